package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	tap      key.Binding
	music    key.Binding
	calendar key.Binding
	auto     key.Binding
	hide     key.Binding
	show     key.Binding
	up       key.Binding
	down     key.Binding
	submit   key.Binding
	back     key.Binding
	retry    key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		tap:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "tap casper")),
		music:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "music")),
		calendar: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calendar")),
		auto:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "spotify dj")),
		hide:     key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hide")),
		show:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "show")),
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		retry:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open spotify & retry")),
		quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tap, k.hide, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.tap, k.music, k.calendar, k.auto},
		{k.submit, k.back, k.retry},
		{k.hide, k.show, k.quit},
	}
}
