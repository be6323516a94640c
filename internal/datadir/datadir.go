package datadir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default data directory name under $HOME.
	DefaultDirName = ".docconv"

	// EnvVar is the environment variable that overrides the data directory.
	EnvVar = "DOCCONV_DATA_DIR"

	sshSubdir = "ssh"

	sessionFile        = "session.json"
	historyFile        = "history.db"
	logFile            = "docconv.log"
	hostKeyFile        = "ssh_host_key"
	authorizedKeysFile = "authorized_keys"
)

// DataDir provides a single source of truth for all data-directory paths.
// Use New to construct an instance, which resolves the root and optionally
// creates the directory tree.
type DataDir struct {
	root string
}

// New returns a DataDir rooted at the resolved data directory.
// It does NOT create subdirectories; call EnsureDirs for that.
//
// Resolution priority:
//  1. DOCCONV_DATA_DIR environment variable
//  2. configValue argument (from the config file's data_dir field)
//  3. ~/.docconv/
func New(configValue string) (*DataDir, error) {
	root, err := resolveRoot(configValue)
	if err != nil {
		return nil, err
	}
	return &DataDir{root: root}, nil
}

// Root returns the base data directory path.
func (d *DataDir) Root() string { return d.root }

// SSHDir returns {root}/ssh/.
func (d *DataDir) SSHDir() string { return filepath.Join(d.root, sshSubdir) }

// FilePath returns the full path to a file directly inside the root directory.
func (d *DataDir) FilePath(filename string) string {
	return filepath.Join(d.root, filename)
}

// SessionFile is where one-shot CLI commands keep the current file id.
func (d *DataDir) SessionFile() string { return d.FilePath(sessionFile) }

// HistoryDB is the default operation history database.
func (d *DataDir) HistoryDB() string { return d.FilePath(historyFile) }

// LogFile receives logs from the TUI and SSH server.
func (d *DataDir) LogFile() string { return d.FilePath(logFile) }

// HostKeyPath is the default SSH host key.
func (d *DataDir) HostKeyPath() string { return filepath.Join(d.SSHDir(), hostKeyFile) }

// AuthorizedKeysPath is the default SSH authorized_keys file.
func (d *DataDir) AuthorizedKeysPath() string { return filepath.Join(d.SSHDir(), authorizedKeysFile) }

// EnsureDirs creates the root and all subdirectories with 0700 permissions.
func (d *DataDir) EnsureDirs() error {
	for _, dir := range []string{d.root, d.SSHDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Resolve returns the data directory path, creating it with 0700 permissions
// if it doesn't already exist.
func Resolve(configValue string) (string, error) {
	root, err := resolveRoot(configValue)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", root, err)
	}
	return root, nil
}

// resolveRoot determines the root path without creating it.
func resolveRoot(configValue string) (string, error) {
	dir := os.Getenv(EnvVar)
	if dir == "" {
		dir = configValue
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, DefaultDirName)
	}
	return dir, nil
}
