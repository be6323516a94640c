package tui

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docconv/internal/session"
	"docconv/internal/splitter"
	"docconv/pkg/protocol"
)

// ModelConfig holds the configuration for creating a new TUI model
type ModelConfig struct {
	Session Session
	Health  HealthChecker // optional
	APIURL  string
	// StartDir is where the file picker opens. Defaults to the working directory.
	StartDir string
	// Renderer is the Lip Gloss renderer to use for styling. Over SSH, pass the
	// renderer from wishbubbletea.MakeRenderer so colors work correctly. If nil,
	// the default renderer (local terminal) is used.
	Renderer *lipgloss.Renderer
	// Context bounds background operations. Defaults to context.Background().
	Context context.Context
}

// form input indexes, in tab order
const (
	inputChunkSize = iota
	inputChunkOverlap
	inputSeparators
	inputCount
)

const noFocus = -1

// Model is the root BubbleTea model
type Model struct {
	config  ModelConfig
	ctx     context.Context
	session Session
	styles  Styles
	keys    keyMap

	// Sub-models
	statusBar StatusBarModel
	help      help.Model
	spinner   spinner.Model
	picker    filepicker.Model
	results   viewport.Model
	inputs    []textinput.Model

	// Local UI state
	view     session.View
	form     splitter.Form
	focus    int
	picking  bool
	spinning bool
	width    int
	height   int
	quitting bool
}

// NewModel creates the root TUI model
func NewModel(config ModelConfig) Model {
	r := config.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	ctx := config.Context
	if ctx == nil {
		ctx = context.Background()
	}
	styles := NewStyles(r)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.ButtonLoading

	view := config.Session.Snapshot()

	m := Model{
		config:    config,
		ctx:       ctx,
		session:   config.Session,
		styles:    styles,
		keys:      defaultKeyMap(),
		statusBar: NewStatusBarModel(styles),
		help:      help.New(),
		spinner:   sp,
		results:   viewport.New(80, 10),
		view:      view,
		form:      view.Splitter,
		focus:     noFocus,
	}
	m.inputs = m.newInputs()
	m.statusBar.APIURL = config.APIURL
	m.syncView()
	return m
}

func (m Model) newInputs() []textinput.Model {
	inputs := make([]textinput.Model, inputCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Cursor.SetMode(cursor.CursorStatic) // no blinking over SSH
		inputs[i] = ti
	}

	inputs[inputChunkSize].CharLimit = 8
	inputs[inputChunkSize].Width = 8
	inputs[inputChunkSize].SetValue(m.form.ChunkSize)

	inputs[inputChunkOverlap].CharLimit = 8
	inputs[inputChunkOverlap].Width = 8
	inputs[inputChunkOverlap].SetValue(m.form.ChunkOverlap)

	inputs[inputSeparators].Placeholder = `\n\n,\n, ,`
	inputs[inputSeparators].Width = 30
	inputs[inputSeparators].SetValue(m.form.Separators)
	return inputs
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenCmd(m.ctx, m.session)}
	if m.config.Health != nil {
		cmds = append(cmds, HealthCmd(m.ctx, m.config.Health))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		if m.picking {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(m.pickerSize())
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		cmd, handled := m.handleKeyMsg(msg)
		if m.quitting {
			return m, tea.Quit
		}
		if handled {
			return m, cmd
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case ChangedMsg:
		m.view = m.session.Snapshot()
		m.syncView()
		return m, tea.Batch(ListenCmd(m.ctx, m.session), m.startSpinner())

	case OpDoneMsg:
		// The controller already reported the outcome through the status slot.
		return m, nil

	case HealthMsg:
		m.statusBar.Checked = true
		m.statusBar.Healthy = msg.OK
		m.statusBar.Detail = msg.Message
		return m, healthTickCmd()

	case healthTickMsg:
		if m.config.Health != nil {
			return m, HealthCmd(m.ctx, m.config.Health)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.view.Loading() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// The picker reads directories asynchronously and needs every message
	if m.picking {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
		if ok, path := m.picker.DidSelectFile(msg); ok {
			m.picking = false
			cmds = append(cmds, m.uploadCmd(path))
		}
		return m, tea.Batch(cmds...)
	}

	if m.focus != noFocus {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
		m.commitForm()
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
// Returns (cmd, handled) where handled=true stops the key reaching sub-models.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	s, ctx := m.session, m.ctx

	if msg.String() == "ctrl+c" {
		m.quitting = true
		return tea.Quit, true
	}

	if m.picking {
		if key.Matches(msg, m.keys.Cancel) {
			m.picking = false
			m.updateLayout()
			return nil, true
		}
		return nil, false
	}

	// A pasted path is the terminal's version of dropping a file
	if msg.Paste && m.focus == noFocus {
		path := pastedPath(string(msg.Runes))
		if path == "" {
			return nil, true
		}
		return m.uploadCmd(path), true
	}

	if m.focus != noFocus {
		switch {
		case key.Matches(msg, m.keys.NextInput):
			return m.focusInput(m.nextInput(1)), true
		case key.Matches(msg, m.keys.PrevInput):
			return m.focusInput(m.nextInput(-1)), true
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Submit):
			m.commitForm()
			return m.focusInput(noFocus), true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit, true

	case key.Matches(msg, m.keys.Open):
		return m.openPicker(), true

	case key.Matches(msg, m.keys.Convert):
		if !m.view.ConvertEnabled() {
			return nil, true
		}
		m.view.Converting = true
		return tea.Batch(opCmd("convert", func() error { return s.Convert(ctx) }), m.startSpinner()), true

	case key.Matches(msg, m.keys.Split):
		if !m.view.SplitEnabled() {
			return nil, true
		}
		m.commitForm()
		m.view.Splitting = true
		return tea.Batch(opCmd("split", func() error { return s.Split(ctx) }), m.startSpinner()), true

	case key.Matches(msg, m.keys.Download), key.Matches(msg, m.keys.DownloadSplit):
		if m.view.Downloading {
			return nil, true
		}
		fileType := protocol.FileOriginal
		if key.Matches(msg, m.keys.DownloadSplit) {
			fileType = protocol.FileSplit
		}
		m.view.Downloading = true
		return tea.Batch(opCmd("download", func() error { return s.Download(ctx, fileType) }), m.startSpinner()), true

	case key.Matches(msg, m.keys.Format):
		m.session.CycleOutputFormat()
		return nil, true

	case key.Matches(msg, m.keys.SplitterType):
		m.form.Type = splitter.NextType(m.form.Type)
		m.session.SetSplitterForm(m.form)
		return nil, true

	case key.Matches(msg, m.keys.KeepSeparator):
		m.form.KeepSeparator = !m.form.KeepSeparator
		m.session.SetSplitterForm(m.form)
		return nil, true

	case key.Matches(msg, m.keys.NextInput):
		return m.focusInput(inputChunkSize), true

	case key.Matches(msg, m.keys.Dismiss):
		if m.view.Status != nil {
			m.session.DismissStatus(m.view.Status.ID)
		}
		return nil, true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.updateLayout()
		return nil, true
	}

	return nil, false
}

// startSpinner starts the tick loop if a request is in flight and no loop runs
func (m *Model) startSpinner() tea.Cmd {
	if !m.view.Loading() || m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) uploadCmd(path string) tea.Cmd {
	s, ctx := m.session, m.ctx
	return opCmd("upload", func() error { return s.UploadPath(ctx, path) })
}

func (m *Model) openPicker() tea.Cmd {
	dir := m.config.StartDir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.ShowHidden = false
	m.picker = fp
	m.picking = true

	var sizeCmd tea.Cmd
	m.picker, sizeCmd = m.picker.Update(m.pickerSize())
	return tea.Batch(m.picker.Init(), sizeCmd)
}

// pickerSize leaves room for the title, the hint and the status bar
func (m *Model) pickerSize() tea.WindowSizeMsg {
	h := m.height - 4
	if h < 5 {
		h = 5
	}
	return tea.WindowSizeMsg{Width: m.width, Height: h}
}

func (m *Model) nextInput(delta int) int {
	n := inputCount
	if !m.form.SeparatorsVisible() {
		n = inputSeparators
	}
	return ((m.focus+delta)%n + n) % n
}

func (m *Model) focusInput(i int) tea.Cmd {
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	m.focus = i
	return cmd
}

// commitForm pushes the typed values into the session
func (m *Model) commitForm() {
	f := m.form
	f.ChunkSize = m.inputs[inputChunkSize].Value()
	f.ChunkOverlap = m.inputs[inputChunkOverlap].Value()
	f.Separators = m.inputs[inputSeparators].Value()
	if f == m.form {
		return
	}
	m.form = f
	m.session.SetSplitterForm(f)
}

// syncView copies snapshot fields into sub-models
func (m *Model) syncView() {
	m.statusBar.FileID = m.view.FileID
	m.statusBar.Format = string(m.view.OutputFormat)
	m.form.Type = m.view.Splitter.Type
	m.form.KeepSeparator = m.view.Splitter.KeepSeparator
	m.results.SetContent(m.renderResults())
	m.updateLayout()
}

// updateLayout recalculates sub-model dimensions
func (m *Model) updateLayout() {
	m.statusBar.Width = m.width
	m.help.Width = m.width
	if m.width > 0 {
		m.results.Width = m.width - 2
	}
	used := lipgloss.Height(m.renderTop()) + lipgloss.Height(m.renderHelp()) + 1
	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.results.Height = h
}

// View renders the entire TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.picking {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Title.Render("docconv"),
			m.styles.Muted.Render("Select a document to upload (esc to cancel)"),
			m.picker.View(),
			m.statusBar.View(),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTop(),
		m.styles.App.Render(m.results.View()),
		m.renderHelp(),
		m.statusBar.View(),
	)
}

func (m Model) renderTop() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("docconv"))
	b.WriteString("\n")

	// Drop zone
	b.WriteString(m.styles.Section.Render("Document"))
	b.WriteString("\n")
	if f := m.view.File; f != nil {
		b.WriteString(m.styles.Panel.Render(
			m.styles.Value.Render(f.Name) + " " + m.styles.Muted.Render("("+f.SizeText()+")")))
	} else {
		b.WriteString(m.styles.Panel.Render(
			m.styles.Muted.Render("Press o to choose a file, or paste its path")))
	}
	b.WriteString("\n\n")

	// Actions
	b.WriteString(strings.Join([]string{
		m.button("c", "Convert", m.view.CanConvert, m.view.Converting),
		m.button("s", "Split", m.view.CanSplit, m.view.Splitting),
		m.button("d", "Download", true, m.view.Downloading),
		m.button("D", "Download split", true, m.view.Downloading),
	}, " "))
	b.WriteString("\n")

	// Options
	b.WriteString(m.styles.Section.Render("Options"))
	b.WriteString("\n")
	b.WriteString(m.option("f", "Format", string(m.view.OutputFormat)))
	b.WriteString("   ")
	b.WriteString(m.option("t", "Splitter", m.form.Type))
	b.WriteString("   ")
	keep := "no"
	if m.form.KeepSeparator {
		keep = "yes"
	}
	b.WriteString(m.option("k", "Keep separator", keep))
	b.WriteString("\n")
	b.WriteString(m.field(inputChunkSize, "Chunk size"))
	b.WriteString("   ")
	b.WriteString(m.field(inputChunkOverlap, "Chunk overlap"))
	if m.form.SeparatorsVisible() {
		b.WriteString("   ")
		b.WriteString(m.field(inputSeparators, "Separators"))
	}
	b.WriteString("\n")

	// Status slot
	if st := m.view.Status; st != nil {
		b.WriteString(m.statusStyle(st.Type).Render(st.Message))
		b.WriteString("\n")
	}

	return m.styles.App.Render(b.String())
}

func (m Model) renderHelp() string {
	if m.picking {
		return ""
	}
	if m.focus != noFocus {
		return m.styles.Help.Render(m.help.ShortHelpView(m.keys.InputHelp()))
	}
	return m.styles.Help.Render(m.help.View(m.keys))
}

func (m Model) renderResults() string {
	var b strings.Builder

	if r := m.view.Convert; r != nil {
		b.WriteString(m.styles.Section.Render("Conversion"))
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("Content length: "))
		b.WriteString(m.styles.Value.Render(r.LengthText()))
		b.WriteString("\n")
		if r.ContentPreview != "" {
			b.WriteString(m.styles.Preview.Render(r.ContentPreview))
			b.WriteString("\n")
		}
	}

	if r := m.view.Split; r != nil {
		b.WriteString(m.styles.Section.Render("Split"))
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("Chunks: "))
		b.WriteString(m.styles.Value.Render(fmt.Sprint(r.ChunkCount)))
		b.WriteString("\n")
		b.WriteString(m.styles.Label.Render("Parameters: "))
		b.WriteString(r.ParamsText())
		b.WriteString("\n")
		for _, c := range r.Chunks() {
			b.WriteString(m.styles.ChunkLabel.Render(c.Label))
			b.WriteString("\n")
			b.WriteString(m.styles.Chunk.Render(c.Text))
			b.WriteString("\n")
		}
	}

	if m.view.Saved != "" {
		b.WriteString(m.styles.Label.Render("Last saved: "))
		b.WriteString(m.styles.Value.Render(m.view.Saved))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) button(k, label string, enabled, loading bool) string {
	switch {
	case loading:
		return m.styles.ButtonLoading.Render(m.spinner.View() + " " + label)
	case !enabled:
		return m.styles.ButtonDisabled.Render(k + " " + label)
	default:
		return m.styles.Button.Render(m.styles.Key.Render(k) + " " + label)
	}
}

func (m Model) option(k, label, value string) string {
	return m.styles.Key.Render(k) + " " + m.styles.Label.Render(label+": ") + m.styles.Value.Render(value)
}

func (m Model) field(i int, label string) string {
	style := m.styles.InputBlurred
	if m.focus == i {
		style = m.styles.InputFocused
	}
	return m.styles.Label.Render(label+": ") + style.Render("["+m.inputs[i].View()+"]")
}

func (m Model) statusStyle(t session.StatusType) lipgloss.Style {
	switch t {
	case session.StatusSuccess:
		return m.styles.StatusSuccess
	case session.StatusError:
		return m.styles.StatusError
	default:
		return m.styles.StatusInfo
	}
}

// SetSSHUser sets the SSH user for display in the status bar
func (m *Model) SetSSHUser(user string) {
	m.statusBar.SSHUser = user
}

// pastedPath turns pasted text into a local path. Terminals wrap dropped
// paths in quotes or emit file:// URLs.
func pastedPath(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "file://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Path
		}
	}
	// Shells escape spaces when dragging into a terminal
	return strings.ReplaceAll(s, `\ `, " ")
}
