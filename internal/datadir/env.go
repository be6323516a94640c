package datadir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// EnvFileEnvVar allows overriding the .env file path entirely.
	EnvFileEnvVar = "DOCCONV_ENV_FILE"
)

// LoadEnv loads KEY=VALUE .env files from standard locations in priority order.
// Later files do NOT override values set by earlier files (first-write-wins),
// and existing environment variables are never overridden.
//
// Default search order:
//  1. DOCCONV_ENV_FILE (if set, only that file is loaded)
//  2. {datadir}/.env
//  3. Project-level .env (current working directory)
//
// Extra directories may be supplied via dirs; a .env file in each is tried
// after the standard locations.
func LoadEnv(dataRoot string, dirs ...string) error {
	seen := make(map[string]bool)
	for _, p := range findEnvPaths(dataRoot, dirs...) {
		if err := loadEnvFile(p, seen); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// FindEnvFiles returns all .env file paths that would be loaded, in order.
// Files that don't exist on disk are excluded.
func FindEnvFiles(dataRoot string, dirs ...string) []string {
	var found []string
	for _, p := range findEnvPaths(dataRoot, dirs...) {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}

// findEnvPaths builds the candidate list of .env file paths.
func findEnvPaths(dataRoot string, dirs ...string) []string {
	if override := os.Getenv(EnvFileEnvVar); override != "" {
		return []string{override}
	}

	var paths []string
	if dataRoot != "" {
		paths = append(paths, filepath.Join(dataRoot, ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	for _, d := range dirs {
		if d != "" {
			paths = append(paths, filepath.Join(d, ".env"))
		}
	}
	return dedupPaths(paths)
}

// loadEnvFile parses one file with godotenv and applies keys not already
// seen or set. Missing files are silently ignored.
func loadEnvFile(path string, seen map[string]bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return err
	}

	for key, value := range values {
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// dedupPaths removes duplicate paths (after cleaning) while preserving order.
func dedupPaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, p)
	}
	return out
}
