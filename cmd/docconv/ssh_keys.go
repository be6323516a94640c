package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	internalssh "docconv/internal/ssh"
)

var sshKeysPath string

var sshKeysCmd = &cobra.Command{
	Use:   "ssh-keys",
	Short: "Manage SSH authorized keys",
	Long:  "Add, list, and remove SSH public keys for TUI SSH access.",
}

var sshKeysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorized SSH public keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := authorizedKeysPath(cmd)
		if err != nil {
			return err
		}
		entries, err := internalssh.ListAuthorizedKeys(path)
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No authorized keys found.")
			fmt.Fprintln(out, "Add one with: docconv ssh-keys add <key-file-or-string>")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FINGERPRINT\tCOMMENT")
		fmt.Fprintln(w, "-----------\t-------")
		for _, entry := range entries {
			comment := entry.Comment
			if comment == "" {
				comment = "(no comment)"
			}
			fmt.Fprintf(w, "%s\t%s\n", entry.Fingerprint, comment)
		}
		return w.Flush()
	},
}

var sshKeysAddCmd = &cobra.Command{
	Use:   "add <key-file-or-string>",
	Short: "Add an SSH public key",
	Long: `Add an SSH public key to the authorized keys list.
The argument can be a path to a public key file (e.g., ~/.ssh/id_ed25519.pub)
or the key string itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := authorizedKeysPath(cmd)
		if err != nil {
			return err
		}

		keyData := args[0]
		// Check if it's a file path
		if _, err := os.Stat(keyData); err == nil {
			data, err := os.ReadFile(keyData)
			if err != nil {
				return fmt.Errorf("failed to read key file: %w", err)
			}
			keyData = strings.TrimSpace(string(data))
		}

		fingerprint, err := internalssh.AddAuthorizedKey(path, keyData)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "SSH public key %s added.\n", fingerprint)
		return nil
	},
}

var sshKeysRemoveCmd = &cobra.Command{
	Use:   "remove <fingerprint>",
	Short: "Remove an SSH public key by fingerprint",
	Long: `Remove an SSH public key from the authorized keys list.
Use 'docconv ssh-keys list' to find the fingerprint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := authorizedKeysPath(cmd)
		if err != nil {
			return err
		}
		if err := internalssh.RemoveAuthorizedKey(path, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "SSH public key removed successfully.")
		return nil
	},
}

var sshKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize SSH key infrastructure",
	Long:  "Create the SSH directory and an empty authorized_keys file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, modeCLI)
		if err != nil {
			return err
		}
		defer a.Close()

		hostKey, authorizedKeys := sshPaths(a)
		if sshKeysPath != "" {
			authorizedKeys = sshKeysPath
		}
		return internalssh.InitSSHKeys(cmd.OutOrStdout(), hostKey, authorizedKeys)
	},
}

// authorizedKeysPath prefers --authorized-keys, then the config and data dir
func authorizedKeysPath(cmd *cobra.Command) (string, error) {
	if sshKeysPath != "" {
		return sshKeysPath, nil
	}
	a, err := newApp(cmd, modeCLI)
	if err != nil {
		return "", err
	}
	defer a.Close()
	_, path := sshPaths(a)
	return path, nil
}

func init() {
	sshKeysCmd.PersistentFlags().StringVar(&sshKeysPath, "authorized-keys", "", "Path to authorized_keys file (default: <data dir>/ssh/authorized_keys)")

	sshKeysCmd.AddCommand(sshKeysListCmd)
	sshKeysCmd.AddCommand(sshKeysAddCmd)
	sshKeysCmd.AddCommand(sshKeysRemoveCmd)
	sshKeysCmd.AddCommand(sshKeysInitCmd)
}
