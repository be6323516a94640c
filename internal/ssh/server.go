package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	charmssh "github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	wishbubbletea "github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/rs/zerolog"

	"docconv/internal/tui"
)

// SessionFactory builds the controller behind one SSH session. The returned
// release func runs when the session disconnects.
type SessionFactory func(ctx context.Context, sshUser string) (s tui.Session, release func(), err error)

// SSHConfig holds configuration for the SSH server
type SSHConfig struct {
	ListenAddr         string
	HostKeyPath        string
	AuthorizedKeysPath string
	APIURL             string
	Logger             zerolog.Logger
	NewSession         SessionFactory
	Health             tui.HealthChecker // optional
}

// NewServer creates a Wish SSH server that serves the TUI
func NewServer(config SSHConfig) (*charmssh.Server, error) {
	if config.NewSession == nil {
		return nil, errors.New("ssh server needs a session factory")
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":2223"
	}
	if config.HostKeyPath == "" {
		return nil, errors.New("ssh server needs a host key path")
	}
	logger := config.Logger.With().Str("component", "ssh").Logger()

	// Load authorized keys for public key auth
	authorizedKeys, err := LoadAuthorizedKeys(config.AuthorizedKeysPath)
	if err != nil {
		logger.Warn().Err(err).Msg("no authorized keys loaded")
		authorizedKeys = nil
	} else {
		logger.Info().Int("count", len(authorizedKeys)).Msg("loaded authorized keys")
	}

	handler := func(sess charmssh.Session) (tea.Model, []tea.ProgramOption) {
		return sshBubbleTeaHandler(sess, config, logger)
	}

	opts := []charmssh.Option{
		wish.WithAddress(config.ListenAddr),
		wish.WithHostKeyPath(config.HostKeyPath),
		wish.WithMiddleware(
			wishbubbletea.Middleware(handler),
			activeterm.Middleware(),
			logging.MiddlewareWithLogger(&logger),
		),
	}

	// Add public key auth if we have authorized keys
	if len(authorizedKeys) > 0 {
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx charmssh.Context, key charmssh.PublicKey) bool {
			return publicKeyHandler(ctx, key, authorizedKeys, logger)
		}))
	} else {
		logger.Warn().Msg("public key auth disabled; every client is accepted")
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}

	return server, nil
}

// Serve runs the server until ctx is cancelled, then shuts it down
func Serve(ctx context.Context, server *charmssh.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("SSH server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, charmssh.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down SSH server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, charmssh.ErrServerClosed) {
		return err
	}
	return nil
}

// sshBubbleTeaHandler creates a controller and TUI model for each SSH session
func sshBubbleTeaHandler(sess charmssh.Session, config SSHConfig, logger zerolog.Logger) (tea.Model, []tea.ProgramOption) {
	sshUser := sess.User()
	if sshUser == "" {
		sshUser = "ssh-user"
	}

	ctx := sess.Context()
	s, release, err := config.NewSession(ctx, sshUser)
	if err != nil {
		logger.Error().Err(err).Str("user", sshUser).Msg("failed to create session")
		_, _ = io.WriteString(sess.Stderr(), "docconv: could not start a session: "+err.Error()+"\n")
		return nil, nil
	}
	if release != nil {
		go func() {
			<-ctx.Done()
			release()
		}()
	}

	// Create renderer for this SSH session so styles emit correct ANSI
	// escape sequences for the connecting terminal.
	renderer := wishbubbletea.MakeRenderer(sess)

	model := tui.NewModel(tui.ModelConfig{
		Session:  s,
		Health:   config.Health,
		APIURL:   config.APIURL,
		Renderer: renderer,
		Context:  ctx,
	})
	model.SetSSHUser(sshUser)

	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// publicKeyHandler validates SSH public keys against the authorized keys list
func publicKeyHandler(ctx charmssh.Context, key charmssh.PublicKey, authorizedKeys []charmssh.PublicKey, logger zerolog.Logger) bool {
	for _, authKey := range authorizedKeys {
		if charmssh.KeysEqual(key, authKey) {
			logger.Info().Str("user", ctx.User()).Msg("public key accepted")
			return true
		}
	}
	logger.Warn().Str("user", ctx.User()).Msg("public key rejected")
	return false
}
