package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap contains the key bindings of the setup views.
type KeyMap struct {
	Retry   key.Binding
	Quit    key.Binding
	Cancel  key.Binding
	Confirm key.Binding
	Back    key.Binding
	Left    key.Binding
	Right   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "cancel"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h", "shift+tab"),
			key.WithHelp("←", "previous"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l", "tab"),
			key.WithHelp("→", "next"),
		),
	}
}

// helpLine renders "key action" pairs for bindings.
func helpLine(s Styles, bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += s.Help.Render(" • ")
		}
		h := b.Help()
		out += s.HelpKey.Render(h.Key) + " " + s.Help.Render(h.Desc)
	}
	return out
}
