// Package tui is an interactive browser for muzzle check results.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/internal/report"
	"github.com/mabhi256/jmuzzle/utils"
)

type Model struct {
	report *report.Report

	modules  list.Model
	details  viewport.Model
	help     help.Model
	tab      TabType
	selected int

	width  int
	height int
}

func New(r *report.Report) *Model {
	results := r.Results()
	items := make([]list.Item, len(results))
	for i, res := range results {
		items[i] = moduleItem{result: res}
	}

	modules := list.New(items, list.NewDefaultDelegate(), 0, 0)
	modules.Title = "Modules"
	modules.SetShowStatusBar(false)
	modules.SetShowHelp(false)
	modules.SetFilteringEnabled(true)

	m := &Model{
		report:   r,
		modules:  modules,
		details:  viewport.New(0, 0),
		help:     help.New(),
		tab:      MismatchesTab,
		selected: -1,
	}
	m.refreshDetails()
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tea.KeyMsg:
		// keys belong to the filter input while it is open
		if m.modules.FilterState() == list.Filtering {
			return m.updateList(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		case key.Matches(msg, keys.Tab):
			m.tab = utils.NextEnum(m.tab, ReferencesTab)
			m.selected = -1
			m.refreshDetails()
			return m, nil
		case key.Matches(msg, keys.PrevTab):
			m.tab = utils.PrevEnum(m.tab, ReferencesTab)
			m.selected = -1
			m.refreshDetails()
			return m, nil
		case key.Matches(msg, keys.PageUp):
			m.details.HalfViewUp()
			return m, nil
		case key.Matches(msg, keys.PageDown):
			m.details.HalfViewDown()
			return m, nil
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.modules, cmd = m.modules.Update(msg)
	m.refreshDetails()
	return m, cmd
}

func (m *Model) listWidth() int {
	return max(30, m.width*2/5)
}

func (m *Model) resize() {
	bodyHeight := max(3, m.height-lipgloss.Height(m.renderHeader())-lipgloss.Height(m.renderFooter()))
	m.modules.SetSize(m.listWidth(), bodyHeight)
	m.details.Width = max(20, m.width-m.listWidth()-2)
	m.details.Height = max(1, bodyHeight-1)
	m.selected = -1
	m.refreshDetails()
}

func (m *Model) selectedResult() *muzzle.ModuleResult {
	if item, ok := m.modules.SelectedItem().(moduleItem); ok {
		return item.result
	}
	return nil
}

// refreshDetails re-renders the detail pane when the selection changes
func (m *Model) refreshDetails() {
	index := m.modules.Index()
	if index == m.selected {
		return
	}
	m.selected = index

	res := m.selectedResult()
	if res == nil {
		m.details.SetContent(utils.MutedStyle.Render("no module selected"))
		return
	}

	var content string
	switch m.tab {
	case MismatchesTab:
		content = report.RenderModule(res, m.details.Width)
		switch res.Outcome() {
		case muzzle.OutcomePassed:
			content += "\n\n" + utils.GoodStyle.Render("All references match the target.")
		case muzzle.OutcomeFailed:
			content += "\n\n" + utils.ErrorStyle.Render(fmt.Sprintf("%d mismatched references.", len(res.Mismatches)))
		}
	case ReferencesTab:
		content = report.RenderReferences(res.References)
	}
	m.details.SetContent(content)
	m.details.GotoTop()
}

func (m *Model) renderHeader() string {
	s := m.report.Summary
	title := fmt.Sprintf("Muzzle results for %s: %d passed, %d failed, %d skipped",
		m.report.Target, s.Passed, s.Failed, s.Skipped)
	return utils.HeaderStyle.Width(m.width).Render(title)
}

func (m *Model) renderTabs() string {
	var tabs []string
	for _, t := range []TabType{MismatchesTab, ReferencesTab} {
		style := utils.TabInactiveStyle
		if t == m.tab {
			style = utils.TabActiveStyle
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	return strings.Join(tabs, " ")
}

func (m *Model) renderFooter() string {
	status := utils.StatusBarStyle.Width(m.width).Render(fmt.Sprintf("run %s", m.report.RunID))
	return lipgloss.JoinVertical(lipgloss.Left, m.help.View(keys), status)
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	right := lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), m.details.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.listWidth()).Render(m.modules.View()),
		"  ",
		right,
	)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

// Start runs the browser until the user quits
func Start(r *report.Report) error {
	program := tea.NewProgram(New(r), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
