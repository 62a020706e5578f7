package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the client's bindings. Everything printable goes to the
// command line, so bindings use control keys.
type KeyMap struct {
	Submit     key.Binding
	ToggleMode key.Binding
	SwapSides  key.Binding
	Flip       key.Binding
	Reset      key.Binding
	Refresh    key.Binding
	Quit       key.Binding
}

var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "play"),
	),
	ToggleMode: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "toggle mode"),
	),
	SwapSides: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "swap sides"),
	),
	Flip: key.NewBinding(
		key.WithKeys("ctrl+f"),
		key.WithHelp("C-f", "flip board"),
	),
	Reset: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "new game"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Submit, k.ToggleMode, k.SwapSides, k.Flip, k.Reset, k.Quit}
}
