package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docconv/internal/history"
	"docconv/internal/logging"
	internalssh "docconv/internal/ssh"
	"docconv/internal/tui"
)

var sshListen string

var sshCmd = &cobra.Command{
	Use:   "ssh-server",
	Short: "Serve the TUI over SSH",
	Long: `Start an SSH server that serves the docconv TUI. Every SSH session gets
its own conversion session; downloads are saved by this server's store.

  ssh -p 2223 user@localhost

Public key auth uses the authorized_keys file managed by 'docconv ssh-keys'.
When the file has no keys, every client is accepted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, modeInteractive)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		cfg := a.cfg
		if sshListen != "" {
			cfg.SSH.ListenAddr = sshListen
		}
		hostKey, authorizedKeys := sshPaths(a)

		if a.history != nil {
			pruner := history.NewPruner(a.history, cfg.History.Retention(), cfg.SSH.PruneSchedule,
				logging.Component(a.logger, "history"))
			if err := pruner.Start(ctx); err != nil {
				return err
			}
			defer pruner.Stop()
		}

		sessionLogger := logging.Component(a.logger, "session")
		server, err := internalssh.NewServer(internalssh.SSHConfig{
			ListenAddr:         cfg.SSH.ListenAddr,
			HostKeyPath:        hostKey,
			AuthorizedKeysPath: authorizedKeys,
			APIURL:             a.client.BaseURL(),
			Logger:             a.logger,
			Health:             a.client,
			NewSession: func(_ context.Context, user string) (tui.Session, func(), error) {
				return a.newController(sessionLogger.With().Str("ssh_user", user).Logger()), nil, nil
			},
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "SSH server listening on %s (logs: %s)\n", cfg.SSH.ListenAddr, logPath(a))
		return internalssh.Serve(ctx, server, a.logger)
	},
}

// sshPaths resolves the host key and authorized_keys paths from config or the data dir
func sshPaths(a *app) (hostKey, authorizedKeys string) {
	hostKey = a.cfg.SSH.HostKeyPath
	if hostKey == "" {
		hostKey = a.dd.HostKeyPath()
	}
	authorizedKeys = a.cfg.SSH.AuthorizedKeysPath
	if authorizedKeys == "" {
		authorizedKeys = a.dd.AuthorizedKeysPath()
	}
	return hostKey, authorizedKeys
}

func logPath(a *app) string {
	if a.cfg.Log.File != "" {
		return a.cfg.Log.File
	}
	return a.dd.LogFile()
}

func init() {
	sshCmd.Flags().StringVar(&sshListen, "listen", "", "SSH listen address (default from config, :2223)")
}
