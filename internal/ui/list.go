package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

var _ list.Item = functionItem{}

// functionItem is one entry of the function menu shown after a tap.
type functionItem struct {
	title string
	desc  string
	key   string
}

func (i functionItem) FilterValue() string { return i.title }
func (i functionItem) Title() string       { return i.title }
func (i functionItem) Description() string { return i.desc }

func functionItems() []list.Item {
	return []list.Item{
		functionItem{title: "Play music", desc: "Tell me what you'd like to hear", key: "m"},
		functionItem{title: "Calendar", desc: "Read today's events aloud", key: "c"},
		functionItem{title: "Spotify DJ", desc: "Keep an eye on what's playing", key: "a"},
	}
}

func newFunctionList() list.Model {
	l := list.New(functionItems(), list.NewDefaultDelegate(), 48, 12)
	l.Title = "What can I do for you?"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	return l
}

// selectedKey maps the highlighted menu entry to its shortcut.
func selectedKey(l list.Model) (tea.KeyMsg, bool) {
	item, ok := l.SelectedItem().(functionItem)
	if !ok {
		return tea.KeyMsg{}, false
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(item.key)}, true
}
