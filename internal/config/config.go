package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docconv/internal/filestore"
	"docconv/internal/splitter"
	"docconv/pkg/protocol"
)

// Config represents the client configuration
type Config struct {
	DataDir      string                `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	SecretsFile  string                `json:"secrets_file,omitempty" yaml:"secrets_file,omitempty"`
	API          APIConfig             `json:"api" yaml:"api"`
	OutputFormat protocol.OutputFormat `json:"output_format" yaml:"output_format"`
	Splitter     SplitterConfig        `json:"splitter" yaml:"splitter"`
	Download     DownloadConfig        `json:"download" yaml:"download"`
	History      HistoryConfig         `json:"history" yaml:"history"`
	Log          LogConfig             `json:"log" yaml:"log"`
	UI           UIConfig              `json:"ui" yaml:"ui"`
	SSH          SSHServerConfig       `json:"ssh" yaml:"ssh"`
}

// APIConfig points the client at the conversion service
type APIConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"` // 0 = no timeout
	UserAgent      string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// Timeout returns the request timeout, zero when disabled
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// SplitterConfig holds the initial splitter form values
type SplitterConfig struct {
	Type          string `json:"type" yaml:"type"`
	ChunkSize     int    `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap  int    `json:"chunk_overlap" yaml:"chunk_overlap"`
	KeepSeparator bool   `json:"keep_separator" yaml:"keep_separator"`
	Separators    string `json:"separators,omitempty" yaml:"separators,omitempty"` // comma separated, `\n` allowed
}

// Form converts the configured values into an editable splitter form
func (s SplitterConfig) Form() splitter.Form {
	return splitter.Form{
		Type:          s.Type,
		ChunkSize:     fmt.Sprint(s.ChunkSize),
		ChunkOverlap:  fmt.Sprint(s.ChunkOverlap),
		KeepSeparator: s.KeepSeparator,
		Separators:    s.Separators,
	}
}

// DownloadConfig selects where downloaded documents are saved
type DownloadConfig struct {
	Store string   `json:"store" yaml:"store"` // "local" or "s3"
	Dir   string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	S3    S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config holds the S3 download target settings
type S3Config struct {
	Endpoint     string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region       string `json:"region,omitempty" yaml:"region,omitempty"`
	Bucket       string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	AccessKey    string `json:"access_key,omitempty" yaml:"access_key,omitempty"` // Supports ${ENV_VAR} expansion
	SecretKey    string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"` // Supports ${ENV_VAR} expansion
	UsePathStyle bool   `json:"use_path_style,omitempty" yaml:"use_path_style,omitempty"`
}

// StoreConfig converts the download settings for filestore.New
func (d DownloadConfig) StoreConfig() filestore.Config {
	return filestore.Config{
		Type: d.Store,
		Dir:  d.Dir,
		S3: filestore.S3Config{
			Endpoint:     d.S3.Endpoint,
			Region:       d.S3.Region,
			Bucket:       d.S3.Bucket,
			Prefix:       d.S3.Prefix,
			AccessKey:    d.S3.AccessKey,
			SecretKey:    d.S3.SecretKey,
			UsePathStyle: d.S3.UsePathStyle,
		},
	}
}

// HistoryConfig controls the local operation log
type HistoryConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty"` // defaults to <data_dir>/history.db
	RetentionDays int    `json:"retention_days" yaml:"retention_days"`
}

// Retention returns how long entries are kept, zero to keep everything
func (h HistoryConfig) Retention() time.Duration {
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// UIConfig contains interactive front end settings
type UIConfig struct {
	StatusDismissMS int `json:"status_dismiss_ms" yaml:"status_dismiss_ms"`
}

// StatusDismiss returns how long success messages stay visible
func (u UIConfig) StatusDismiss() time.Duration {
	return time.Duration(u.StatusDismissMS) * time.Millisecond
}

// SSHServerConfig holds configuration for the SSH server
type SSHServerConfig struct {
	ListenAddr         string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	HostKeyPath        string `json:"host_key_path,omitempty" yaml:"host_key_path,omitempty"`
	AuthorizedKeysPath string `json:"authorized_keys_path,omitempty" yaml:"authorized_keys_path,omitempty"`
	PruneSchedule      string `json:"prune_schedule,omitempty" yaml:"prune_schedule,omitempty"` // cron spec
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000/api",
		},
		OutputFormat: protocol.FormatMarkdown,
		Splitter: SplitterConfig{
			Type:          splitter.DefaultType,
			ChunkSize:     splitter.DefaultChunkSize,
			ChunkOverlap:  splitter.DefaultChunkOverlap,
			KeepSeparator: true,
		},
		Download: DownloadConfig{
			Store: "local",
			Dir:   ".",
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		UI: UIConfig{
			StatusDismissMS: 5000,
		},
		SSH: SSHServerConfig{
			ListenAddr:    ":2223",
			PruneSchedule: "@daily",
		},
	}
}

// Load loads configuration from a JSON or YAML file (chosen by extension).
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand tilde before loading secrets so secrets_file can use ~/...
	cfg.expandTilde()

	if err := cfg.loadSecretsFile(); err != nil {
		return nil, fmt.Errorf("failed to load secrets file: %w", err)
	}

	cfg.expandEnvVars()
	cfg.expandTilde()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to a file in the format implied by its extension
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// expandEnvVars expands ${ENV_VAR} references in string settings
func (c *Config) expandEnvVars() {
	c.DataDir = os.ExpandEnv(c.DataDir)
	c.SecretsFile = os.ExpandEnv(c.SecretsFile)

	c.API.BaseURL = os.ExpandEnv(c.API.BaseURL)
	c.API.UserAgent = os.ExpandEnv(c.API.UserAgent)

	c.Download.Dir = os.ExpandEnv(c.Download.Dir)
	c.Download.S3.Endpoint = os.ExpandEnv(c.Download.S3.Endpoint)
	c.Download.S3.Region = os.ExpandEnv(c.Download.S3.Region)
	c.Download.S3.Bucket = os.ExpandEnv(c.Download.S3.Bucket)
	c.Download.S3.Prefix = os.ExpandEnv(c.Download.S3.Prefix)
	c.Download.S3.AccessKey = os.ExpandEnv(c.Download.S3.AccessKey)
	c.Download.S3.SecretKey = os.ExpandEnv(c.Download.S3.SecretKey)

	c.History.Path = os.ExpandEnv(c.History.Path)
	c.Log.File = os.ExpandEnv(c.Log.File)
	c.SSH.HostKeyPath = os.ExpandEnv(c.SSH.HostKeyPath)
	c.SSH.AuthorizedKeysPath = os.ExpandEnv(c.SSH.AuthorizedKeysPath)
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url '%s'", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got '%s'", u.Scheme)
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must not be negative")
	}

	validFormat := false
	for _, f := range protocol.OutputFormats() {
		if c.OutputFormat == f {
			validFormat = true
			break
		}
	}
	if !validFormat {
		return fmt.Errorf("invalid output_format '%s'", c.OutputFormat)
	}

	if c.Splitter.ChunkSize <= 0 {
		return fmt.Errorf("splitter.chunk_size must be greater than 0")
	}
	if c.Splitter.ChunkOverlap < 0 {
		return fmt.Errorf("splitter.chunk_overlap must not be negative")
	}

	switch c.Download.Store {
	case "", "local":
	case "s3":
		if c.Download.S3.Bucket == "" {
			return fmt.Errorf("download.s3.bucket is required for the s3 store")
		}
	default:
		return fmt.Errorf("unknown download.store '%s'", c.Download.Store)
	}

	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must not be negative")
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json', got '%s'", c.Log.Format)
	}

	if c.UI.StatusDismissMS < 0 {
		return fmt.Errorf("ui.status_dismiss_ms must not be negative")
	}
	return nil
}

// expandTilde replaces a leading "~/" with the user's home directory in
// path-valued config fields.
func (c *Config) expandTilde() {
	home, err := os.UserHomeDir()
	if err != nil {
		return // can't expand, leave as-is
	}
	expand := func(p string) string {
		if p == "~" {
			return home
		}
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}

	c.DataDir = expand(c.DataDir)
	c.SecretsFile = expand(c.SecretsFile)
	c.Download.Dir = expand(c.Download.Dir)
	c.History.Path = expand(c.History.Path)
	c.Log.File = expand(c.Log.File)
	c.SSH.HostKeyPath = expand(c.SSH.HostKeyPath)
	c.SSH.AuthorizedKeysPath = expand(c.SSH.AuthorizedKeysPath)
}

// loadSecretsFile reads a KEY=VALUE file into the process environment.
// Existing environment variables are NOT overridden (shell/systemd wins).
// If SecretsFile is empty or the file doesn't exist, this is a no-op.
func (c *Config) loadSecretsFile() error {
	if c.SecretsFile == "" {
		return nil
	}
	if _, err := os.Stat(c.SecretsFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(c.SecretsFile); err != nil {
		return fmt.Errorf("cannot load secrets file %s: %w", c.SecretsFile, err)
	}
	return nil
}
