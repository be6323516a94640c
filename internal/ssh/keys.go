package ssh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	charmssh "github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// ErrKeyNotFound is returned when removing a fingerprint that is not listed
var ErrKeyNotFound = errors.New("key not found")

// KeyEntry represents an authorized public key with metadata
type KeyEntry struct {
	PublicKey   charmssh.PublicKey
	Comment     string
	Fingerprint string
}

// LoadAuthorizedKeys loads SSH public keys from an authorized_keys file
func LoadAuthorizedKeys(path string) ([]charmssh.PublicKey, error) {
	if path == "" {
		return nil, fmt.Errorf("no authorized keys path available")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open authorized keys: %w", err)
	}
	defer f.Close()

	entries, err := parseAuthorizedKeys(f)
	if err != nil {
		return nil, err
	}
	keys := make([]charmssh.PublicKey, len(entries))
	for i, e := range entries {
		keys[i] = e.PublicKey
	}
	return keys, nil
}

// ListAuthorizedKeys returns all authorized keys with fingerprints.
// A missing file lists no keys.
func ListAuthorizedKeys(path string) ([]KeyEntry, error) {
	if path == "" {
		return nil, fmt.Errorf("no authorized keys path available")
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open authorized keys: %w", err)
	}
	defer f.Close()

	return parseAuthorizedKeys(f)
}

// parseAuthorizedKeys skips blank lines, comments and lines that do not parse
func parseAuthorizedKeys(r io.Reader) ([]KeyEntry, error) {
	var entries []KeyEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pubKey, comment, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		entries = append(entries, KeyEntry{
			PublicKey:   pubKey,
			Comment:     comment,
			Fingerprint: gossh.FingerprintSHA256(pubKey),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading authorized keys: %w", err)
	}
	return entries, nil
}

// AddAuthorizedKey appends a public key to the authorized_keys file and
// returns its fingerprint. Adding a key that is already present is a no-op.
func AddAuthorizedKey(path string, keyData string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no authorized keys path available")
	}

	keyData = strings.TrimSpace(keyData)
	pubKey, _, _, _, err := gossh.ParseAuthorizedKey([]byte(keyData))
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	fingerprint := gossh.FingerprintSHA256(pubKey)

	existing, err := ListAuthorizedKeys(path)
	if err != nil {
		return "", err
	}
	for _, e := range existing {
		if e.Fingerprint == fingerprint {
			return fingerprint, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to open authorized keys: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(keyData + "\n"); err != nil {
		return "", fmt.Errorf("failed to write key: %w", err)
	}
	return fingerprint, nil
}

// RemoveAuthorizedKey removes a key by fingerprint from the authorized_keys file.
// Comments and unparseable lines are kept.
func RemoveAuthorizedKey(path string, fingerprint string) error {
	if path == "" {
		return fmt.Errorf("no authorized keys path available")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open authorized keys: %w", err)
	}

	var lines []string
	found := false
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			pubKey, _, _, _, err := gossh.ParseAuthorizedKey([]byte(trimmed))
			if err == nil && gossh.FingerprintSHA256(pubKey) == fingerprint {
				found = true
				continue
			}
		}
		lines = append(lines, line)
	}

	if !found {
		return fmt.Errorf("fingerprint %s: %w", fingerprint, ErrKeyNotFound)
	}

	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0600)
}

// InitSSHKeys creates the SSH directory and an empty authorized_keys file
func InitSSHKeys(w io.Writer, hostKeyPath, authorizedKeysPath string) error {
	if _, err := os.Stat(authorizedKeysPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(authorizedKeysPath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(authorizedKeysPath, []byte("# docconv authorized SSH keys\n"), 0600); err != nil {
			return fmt.Errorf("failed to create authorized_keys: %w", err)
		}
		fmt.Fprintf(w, "Created: %s\n", authorizedKeysPath)
	} else {
		fmt.Fprintf(w, "Exists: %s\n", authorizedKeysPath)
	}

	// Host key is auto-generated by Wish when the server starts
	fmt.Fprintf(w, "Host key path: %s (auto-generated on first SSH server start)\n", hostKeyPath)
	return nil
}
