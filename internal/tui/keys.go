package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists every binding of the root model
type keyMap struct {
	Open          key.Binding
	Convert       key.Binding
	Split         key.Binding
	Download      key.Binding
	DownloadSplit key.Binding
	Format        key.Binding
	SplitterType  key.Binding
	KeepSeparator key.Binding
	NextInput     key.Binding
	PrevInput     key.Binding
	Submit        key.Binding
	Cancel        key.Binding
	Dismiss       key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Open:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open file")),
		Convert:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "convert")),
		Split:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "split")),
		Download:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		DownloadSplit: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "download split")),
		Format:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "format")),
		SplitterType:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "splitter")),
		KeepSeparator: key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "keep separator")),
		NextInput:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "edit options")),
		PrevInput:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous")),
		Submit:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
		Cancel:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Dismiss:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:          key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Convert, k.Split, k.Download, k.NextInput, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Convert, k.Split},
		{k.Download, k.DownloadSplit, k.Dismiss},
		{k.Format, k.SplitterType, k.KeepSeparator, k.NextInput},
		{k.Help, k.Quit},
	}
}

// InputHelp is shown while a form input has focus
func (k keyMap) InputHelp() []key.Binding {
	return []key.Binding{k.NextInput, k.PrevInput, k.Submit, k.Cancel}
}
