package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all the TUI styling definitions
type Styles struct {
	// Layout
	App     lipgloss.Style
	Title   lipgloss.Style
	Section lipgloss.Style
	Panel   lipgloss.Style

	// Buttons
	Button         lipgloss.Style
	ButtonDisabled lipgloss.Style
	ButtonLoading  lipgloss.Style
	Key            lipgloss.Style

	// Results
	Label      lipgloss.Style
	Value      lipgloss.Style
	ChunkLabel lipgloss.Style
	Chunk      lipgloss.Style
	Preview    lipgloss.Style

	// Status slot, one style per status type
	StatusSuccess lipgloss.Style
	StatusError   lipgloss.Style
	StatusInfo    lipgloss.Style

	// Status bar
	StatusBar          lipgloss.Style
	StatusConnected    lipgloss.Style
	StatusDisconnected lipgloss.Style
	StatusChecking     lipgloss.Style

	// Inputs
	InputFocused lipgloss.Style
	InputBlurred lipgloss.Style

	// General
	Muted  lipgloss.Style
	Bold   lipgloss.Style
	Accent lipgloss.Style
	Help   lipgloss.Style
}

// DefaultStyles creates the default style set using the default renderer.
func DefaultStyles() Styles {
	return NewStyles(lipgloss.DefaultRenderer())
}

// NewStyles creates the style set using the given renderer.
// Over SSH, pass the renderer from wishbubbletea.MakeRenderer(sess)
// so that styles emit ANSI colors appropriate for the SSH client's terminal.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		App: r.NewStyle().Padding(0, 1),
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2),
		Section: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213")).
			MarginTop(1),
		Panel: r.NewStyle().
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238")).
			PaddingLeft(1),

		Button: r.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),
		ButtonDisabled: r.NewStyle().
			Foreground(lipgloss.Color("240")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		ButtonLoading: r.NewStyle().
			Foreground(lipgloss.Color("214")).
			Background(lipgloss.Color("236")).
			Padding(0, 1),
		Key: r.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true),

		Label: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		Value: r.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),
		ChunkLabel: r.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true),
		Chunk: r.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		Preview: r.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),

		StatusSuccess: r.NewStyle().
			Foreground(lipgloss.Color("76")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("28")).
			Padding(0, 1),
		StatusError: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("124")).
			Padding(0, 1),
		StatusInfo: r.NewStyle().
			Foreground(lipgloss.Color("75")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("25")).
			Padding(0, 1),

		StatusBar: r.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		StatusConnected: r.NewStyle().
			Foreground(lipgloss.Color("76")).
			Bold(true),
		StatusDisconnected: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		StatusChecking: r.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),

		InputFocused: r.NewStyle().
			Foreground(lipgloss.Color("15")),
		InputBlurred: r.NewStyle().
			Foreground(lipgloss.Color("245")),

		Muted: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		Bold: r.NewStyle().
			Bold(true),
		Accent: r.NewStyle().
			Foreground(lipgloss.Color("213")),
		Help: r.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
