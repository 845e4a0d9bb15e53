package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/huh"

	"github.com/notepid/twilight_door/internal/admin/app"
	"github.com/notepid/twilight_door/internal/node"
)

type nodesModel struct {
	app *app.App

	width  int
	height int

	Done bool

	list   list.Model
	form   *huh.Form
	err    error
	status string

	selected *node.Info
	confirm  bool
}

type nodeItem struct {
	info node.Info
}

func (i nodeItem) Title() string {
	return fmt.Sprintf("%s / node %d: %s", i.info.BBSName, i.info.Node, i.info.Alias)
}

func (i nodeItem) Description() string {
	state := liveStyle.Render("online")
	if !i.info.Alive {
		state = dimStyle.Render("stale")
	}
	return fmt.Sprintf("%s • %s • pid %d • since %s",
		state, i.info.Transport, i.info.PID, i.info.StartedAt.Format("2006-01-02 15:04"))
}

func (i nodeItem) FilterValue() string { return i.info.Alias }

func newNodesModel(a *app.App) *nodesModel {
	m := &nodesModel{app: a}
	m.reloadList()
	return m
}

func (m *nodesModel) Finished() bool { return m.Done }

func (m *nodesModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-3)
}

func (m *nodesModel) reloadList() {
	nodes, err := m.app.Nodes.List("")
	if err != nil {
		m.err = err
		return
	}
	items := make([]list.Item, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, nodeItem{info: n})
	}
	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-3)
	m.list.Title = "Nodes"
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.list.SetShowHelp(true)
}

func (m *nodesModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "esc" || msg.String() == "q" || msg.String() == "enter" {
				m.Done = true
			}
		}
		return nil
	}

	if m.form != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.form = nil
			m.selected = nil
			return nil
		}
		return m.updateForm(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			return cmd
		}
		switch msg.String() {
		case "q", "esc":
			m.Done = true
			return nil
		case "r":
			m.status = ""
			m.reloadList()
			return nil
		case "p":
			n, err := m.app.Nodes.Prune()
			if err != nil {
				m.err = err
				return nil
			}
			m.status = fmt.Sprintf("Pruned %d stale node(s).", n)
			m.reloadList()
			return nil
		case "enter":
			if it, ok := m.list.SelectedItem().(nodeItem); ok {
				info := it.info
				m.selected = &info
				m.confirm = false
				title := fmt.Sprintf("Release node %d on %s held by %s?", info.Node, info.BBSName, info.Alias)
				if info.Alive {
					title += " The process is still running."
				}
				m.form = huh.NewForm(huh.NewGroup(
					huh.NewConfirm().Title(title).Value(&m.confirm),
				))
				return m.form.Init()
			}
		}
	}
	return cmd
}

func (m *nodesModel) updateForm(msg tea.Msg) tea.Cmd {
	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f

	if m.form.State == huh.StateCompleted {
		if m.confirm && m.selected != nil {
			if err := m.app.Nodes.ForceRelease(m.selected.BBSName, m.selected.Node); err != nil {
				m.err = err
				return nil
			}
			m.status = fmt.Sprintf("Released node %d on %s.", m.selected.Node, m.selected.BBSName)
		}
		m.form = nil
		m.selected = nil
		m.reloadList()
		return nil
	}
	return cmd
}

func (m *nodesModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Nodes error: %v\n\nPress Enter/Esc to go back.", m.err)
	}
	if m.form != nil {
		return m.form.View() + "\n\n(esc to cancel)"
	}
	view := m.list.View()
	if m.status != "" {
		view += "\n" + titleStyle.Render(m.status)
	}
	return view + "\n(q back, enter release, p prune stale, r reload)"
}
