package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	toggle   key.Binding
	next     key.Binding
	prev     key.Binding
	rewind   key.Binding
	forward  key.Binding
	volUp    key.Binding
	volDown  key.Binding
	repeat   key.Binding
	favorite key.Binding
	enqueue  key.Binding
	search   key.Binding
	tab      key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		rewind:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-10s")),
		forward:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+10s")),
		volUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		repeat:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		enqueue:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to queue")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "discover")),
		tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.toggle, k.next, k.prev, k.search, k.tab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.toggle, k.next, k.prev, k.rewind, k.forward},
		{k.volUp, k.volDown, k.repeat},
		{k.favorite, k.enqueue, k.search, k.tab, k.quit},
	}
}
