package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/twilight_door/internal/admin/app"
)

type screen int

const (
	screenHome screen = iota
	screenNodes
	screenThresholds
	screenCalls
)

// subModel is a screen reachable from the home menu.
type subModel interface {
	SetSize(w, h int)
	Update(msg tea.Msg) tea.Cmd
	View() string
	Finished() bool
}

type rootModel struct {
	app *app.App

	width  int
	height int

	active screen

	homeList list.Model
	err      error

	current subModel
}

type menuItem struct {
	title string
	desc  string
	to    screen
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	liveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func NewRootModel(a *app.App) tea.Model {
	items := []list.Item{
		menuItem{title: "Nodes", desc: "Callers in the door, release stuck nodes", to: screenNodes},
		menuItem{title: "SysOp Thresholds", desc: "Security level needed for the SysOp console, per BBS", to: screenThresholds},
		menuItem{title: "Call Log", desc: "Recent sessions and how they ended", to: screenCalls},
		menuItem{title: "Quit", desc: "Exit", to: -1},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Twilight Door Admin"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)

	return &rootModel{
		app:      a,
		active:   screenHome,
		homeList: l,
	}
}

func (m *rootModel) Init() tea.Cmd {
	return nil
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.homeList.SetSize(msg.Width, msg.Height-2)
		if m.current != nil {
			m.current.SetSize(msg.Width, msg.Height)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}

	if m.active == screenHome {
		return m.updateHome(msg)
	}
	if m.current == nil {
		m.activate(m.active)
	}
	cmd := m.current.Update(msg)
	if m.current.Finished() {
		m.active = screenHome
		m.current = nil
	}
	return m, cmd
}

func (m *rootModel) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.homeList, cmd = m.homeList.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if it, ok := m.homeList.SelectedItem().(menuItem); ok {
				if it.to == -1 {
					return m, tea.Quit
				}
				m.activate(it.to)
				return m, nil
			}
		}
	}

	return m, cmd
}

func (m *rootModel) activate(s screen) {
	m.active = s

	switch s {
	case screenNodes:
		m.current = newNodesModel(m.app)
	case screenThresholds:
		m.current = newThresholdsModel(m.app)
	case screenCalls:
		m.current = newCallsModel(m.app)
	default:
		m.current = nil
		return
	}
	m.current.SetSize(m.width, m.height)
}

func (m *rootModel) View() string {
	if m.err != nil {
		return errStyle.Render("Error: ") + m.err.Error()
	}

	if m.active == screenHome {
		return m.homeList.View()
	}
	if m.current == nil {
		return titleStyle.Render("Unknown screen") + "\n" + fmt.Sprint(m.active)
	}
	return m.current.View()
}
