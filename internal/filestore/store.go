// Package filestore saves downloaded documents to a local directory or an
// S3-compatible bucket.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownStore is returned by New for an unregistered store type
var ErrUnknownStore = errors.New("unknown file store type")

// Store persists a named stream and reports where it ended up
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (location string, err error)
}

// Config selects and configures a store
type Config struct {
	Type string
	Dir  string
	S3   S3Config
}

// S3Config addresses an S3-compatible bucket
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Factory builds a store from its configuration
type Factory func(cfg Config) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a store type available to New
func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// Types lists the registered store types
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the store named by cfg.Type; an empty type means "local"
func New(cfg Config) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		key = "local"
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, cfg.Type)
	}
	return factory(cfg)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}
