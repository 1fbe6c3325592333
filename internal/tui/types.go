package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/utils"
)

// TabType selects what the detail pane shows for the selected module
type TabType int

const (
	MismatchesTab TabType = iota
	ReferencesTab
)

func (t TabType) String() string {
	switch t {
	case MismatchesTab:
		return "Mismatches"
	case ReferencesTab:
		return "References"
	default:
		return "Unknown"
	}
}

type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Tab      key.Binding
	PrevTab  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Filter   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Filter, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Tab, k.PrevTab, k.Filter, k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous module")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next module")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "mismatches/references")),
	PrevTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous tab")),
	PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll details up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll details down")),
	Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// moduleItem is a module result in the list
type moduleItem struct {
	result *muzzle.ModuleResult
}

func (i moduleItem) FilterValue() string {
	return i.result.Module
}

func (i moduleItem) Title() string {
	return fmt.Sprintf("%s %s", utils.GetOutcomeIcon(i.result.Outcome()), i.result.Module)
}

func (i moduleItem) Description() string {
	switch i.result.Outcome() {
	case muzzle.OutcomeSkipped:
		return fmt.Sprintf("skipped, %d required classes missing", len(i.result.MissingRequired))
	default:
		return fmt.Sprintf("%d references, %d mismatches", len(i.result.References), len(i.result.Mismatches))
	}
}
