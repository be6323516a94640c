package tui

import (
	"fmt"
	"strings"
)

// StatusBarModel manages the bottom status bar
type StatusBarModel struct {
	Checked bool // a health probe has completed
	Healthy bool
	Detail  string
	APIURL  string
	FileID  string
	Format  string
	SSHUser string // set for SSH sessions
	Width   int
	Styles  Styles
}

// NewStatusBarModel creates a new status bar
func NewStatusBarModel(styles Styles) StatusBarModel {
	return StatusBarModel{
		Styles: styles,
	}
}

// View renders the status bar
func (s StatusBarModel) View() string {
	var parts []string

	// Service health indicator
	switch {
	case !s.Checked:
		parts = append(parts, s.Styles.StatusChecking.Render("~ checking"))
	case s.Healthy:
		parts = append(parts, s.Styles.StatusConnected.Render("* online"))
	default:
		parts = append(parts, s.Styles.StatusDisconnected.Render("x offline"))
	}

	// API URL (shortened)
	if s.APIURL != "" {
		url := s.APIURL
		url = strings.TrimPrefix(url, "http://")
		url = strings.TrimPrefix(url, "https://")
		if len(url) > 30 {
			url = url[:27] + "..."
		}
		parts = append(parts, s.Styles.Muted.Render(url))
	}

	if s.Format != "" {
		parts = append(parts, s.Styles.Accent.Render(s.Format))
	}

	// File id (shortened)
	if s.FileID != "" {
		id := s.FileID
		if len(id) > 20 {
			id = id[:17] + "..."
		}
		parts = append(parts, s.Styles.Muted.Render("file "+id))
	}

	// SSH indicator
	if s.SSHUser != "" {
		parts = append(parts, s.Styles.Accent.Render(fmt.Sprintf("SSH: %s", s.SSHUser)))
	}

	content := strings.Join(parts, "  |  ")
	return s.Styles.StatusBar.Width(s.Width).Render(content)
}
