package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up               key.Binding
	Down             key.Binding
	Cancel           key.Binding
	Restart          key.Binding
	RestartOverwrite key.Binding
	Delete           key.Binding
	Language         key.Binding
	Add              key.Binding
	ResetAll         key.Binding
	OpenURL          key.Binding
	Refresh          key.Binding
	Settings         key.Binding
	Help             key.Binding
	Quit             key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:               key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:             key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Cancel:           key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel")),
		Restart:          key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		RestartOverwrite: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "restart+overwrite")),
		Delete:           key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Language:         key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "language")),
		Add:              key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		ResetAll:         key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "reset all")),
		OpenURL:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open url")),
		Refresh:          key.NewBinding(key.WithKeys("g", "f5"), key.WithHelp("g", "refresh")),
		Settings:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
		Help:             key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:             key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Cancel, k.Restart, k.Delete, k.Language, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Refresh, k.OpenURL},
		{k.Add, k.Cancel, k.Restart, k.RestartOverwrite, k.Delete, k.Language},
		{k.ResetAll, k.Settings, k.Help, k.Quit},
	}
}

const helpMarkdown = `
# taskdeck

The list refreshes every few seconds. Tasks that are downloading are listed
first, then pending, completed, failed and cancelled ones.

| Key | Action |
| --- | --- |
| ` + "`a`" + ` | Add a task from a store URL |
| ` + "`c`" + ` | Cancel a pending task |
| ` + "`r`" + ` | Restart a finished task |
| ` + "`R`" + ` | Restart and overwrite existing files |
| ` + "`d`" + ` | Delete a finished task |
| ` + "`l`" + ` | Change the download language |
| ` + "`o`" + ` | Open the task URL in a browser |
| ` + "`X`" + ` | Reset all tasks to pending |
| ` + "`s`" + ` | Settings: cookies and service config |
| ` + "`g`" + ` | Refresh now |
| ` + "`q`" + ` | Quit |

Commands that destroy data ask for confirmation first. Reset all asks twice.
`
