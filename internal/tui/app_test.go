package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/internal/reference"
	"github.com/mabhi256/jmuzzle/internal/report"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	client := reference.NewBuilder("com.vendor.Client").WithSource("Advice.java", 3).Build()
	gone := reference.NewBuilder("com.vendor.Gone").WithSource("Advice.java", 9).Build()

	r := report.New("target.jar", []*muzzle.ModuleResult{
		{Module: "com.acme.Ok", References: []*reference.Reference{client}},
		{
			Module:     "com.acme.Broken",
			References: []*reference.Reference{gone},
			Mismatches: []muzzle.Mismatch{&muzzle.MissingClass{Reference: gone}},
		},
	})
	m := New(r)
	_, cmd := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Nil(t, cmd)
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestViewBeforeResize(t *testing.T) {
	m := New(report.New("target.jar", nil))
	assert.Equal(t, "Loading...", m.View())
}

func TestViewShowsSelectedModule(t *testing.T) {
	m := testModel(t)
	view := m.View()

	assert.Contains(t, view, "1 passed, 1 failed, 0 skipped")
	assert.Contains(t, view, "com.acme.Broken")
	assert.Contains(t, view, "All references match the target.")
}

func TestNavigation(t *testing.T) {
	m := testModel(t)

	m.Update(keyMsg("down"))
	require.Equal(t, "com.acme.Broken", m.selectedResult().Module)
	assert.Contains(t, m.details.View(), "Missing class com.vendor.Gone")
	assert.Contains(t, m.details.View(), "1 mismatched references.")

	m.Update(keyMsg("tab"))
	assert.Equal(t, ReferencesTab, m.tab)
	assert.Contains(t, m.details.View(), "at Advice.java:9")

	m.Update(keyMsg("tab"))
	assert.Equal(t, MismatchesTab, m.tab)

	m.Update(keyMsg("shift+tab"))
	assert.Equal(t, ReferencesTab, m.tab)
	assert.Contains(t, m.details.View(), "at Advice.java:9")
	m.Update(keyMsg("shift+tab"))
	assert.Equal(t, MismatchesTab, m.tab)
}

func TestHelpToggleAndQuit(t *testing.T) {
	m := testModel(t)

	m.Update(keyMsg("?"))
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestItemDescriptions(t *testing.T) {
	skipped := moduleItem{result: &muzzle.ModuleResult{Module: "a.B", Skipped: true, MissingRequired: []string{"x.Y"}}}
	assert.Equal(t, "skipped, 1 required classes missing", skipped.Description())
	assert.Equal(t, "a.B", skipped.FilterValue())
	assert.Contains(t, skipped.Title(), "a.B")
}
