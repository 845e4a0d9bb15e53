package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/notepid/twilight_door/internal/admin/app"
	"github.com/notepid/twilight_door/internal/node"
)

const callLogLimit = 200

type callsModel struct {
	app *app.App

	Done bool

	view viewport.Model
	err  error
}

func newCallsModel(a *app.App) *callsModel {
	m := &callsModel{app: a, view: viewport.New(0, 0)}
	calls, err := a.Nodes.RecentCalls(callLogLimit)
	if err != nil {
		m.err = err
		return m
	}
	m.view.SetContent(renderCalls(calls))
	return m
}

func (m *callsModel) Finished() bool { return m.Done }

func (m *callsModel) SetSize(w, h int) {
	m.view.Width = w
	m.view.Height = h - 3
}

func (m *callsModel) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "esc":
			m.Done = true
			return nil
		case "enter":
			if m.err != nil {
				m.Done = true
				return nil
			}
		}
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return cmd
}

func (m *callsModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Call log error: %v\n\nPress Enter/Esc to go back.", m.err)
	}
	return titleStyle.Render("Call Log") + "\n" + m.view.View() + "\n(q to go back, arrows to scroll)"
}

func renderCalls(calls []node.Call) string {
	if len(calls) == 0 {
		return dimStyle.Render("No calls yet.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-12s %4s  %-20s %5s  %-7s %s\n", "Started", "BBS", "Node", "Alias", "Sec", "Via", "Ended")
	for _, c := range calls {
		ended := liveStyle.Render("in progress")
		if c.EndedAt != nil {
			ended = fmt.Sprintf("%s (%s)", c.EndedAt.Format("15:04"), c.EndReason)
		}
		fmt.Fprintf(&b, "%-16s %-12s %4d  %-20s %5d  %-7s %s\n",
			c.StartedAt.Format("2006-01-02 15:04"), c.BBSName, c.Node, c.Alias, c.SecurityLevel, c.Transport, ended)
	}
	return b.String()
}
