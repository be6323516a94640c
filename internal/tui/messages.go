package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// BubbleTea message types produced by the session and the health probe

// ChangedMsg signals that the session state changed
type ChangedMsg struct{}

// OpDoneMsg reports the end of a background operation
type OpDoneMsg struct {
	Op  string
	Err error
}

// HealthMsg delivers the result of a health probe
type HealthMsg struct {
	OK      bool
	Message string
}

// healthTickMsg schedules the next health probe
type healthTickMsg struct{}

const healthInterval = 30 * time.Second

// ListenCmd blocks until the session reports a change
func ListenCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.Changes():
			return ChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// opCmd runs fn off the UI goroutine
func opCmd(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: op, Err: fn()}
	}
}

// HealthCmd probes the service once
func HealthCmd(ctx context.Context, h HealthChecker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		resp, err := h.Health(ctx)
		if err != nil {
			return HealthMsg{OK: false, Message: err.Error()}
		}
		return HealthMsg{OK: resp.Status == "healthy", Message: resp.Message}
	}
}

func healthTickCmd() tea.Cmd {
	return tea.Tick(healthInterval, func(time.Time) tea.Msg { return healthTickMsg{} })
}
