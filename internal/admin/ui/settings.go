package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/huh"

	"github.com/notepid/twilight_door/internal/admin/app"
	"github.com/notepid/twilight_door/internal/db"
)

// thresholdsModel edits the SysOp threshold stored for each BBS. The door
// reads it on the next call unless --sysop-threshold overrides it.
type thresholdsModel struct {
	app *app.App

	width  int
	height int

	Done bool

	list list.Model
	form *huh.Form
	err  error

	name      string
	threshold string
	save      bool
}

type bbsItem struct {
	name  string
	value int
	isNew bool
}

func (i bbsItem) Title() string {
	if i.isNew {
		return "+ Add BBS"
	}
	return i.name
}

func (i bbsItem) Description() string {
	if i.isNew {
		return "Store a threshold before the BBS first calls"
	}
	return fmt.Sprintf("threshold %d", i.value)
}

func (i bbsItem) FilterValue() string { return i.name }

func newThresholdsModel(a *app.App) *thresholdsModel {
	m := &thresholdsModel{app: a}
	m.reloadList()
	return m
}

func (m *thresholdsModel) Finished() bool { return m.Done }

func (m *thresholdsModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *thresholdsModel) reloadList() {
	settings, err := m.app.DB.ListBBSSettings()
	if err != nil {
		m.err = err
		return
	}
	items := make([]list.Item, 0, len(settings)+1)
	items = append(items, bbsItem{isNew: true})
	for _, s := range settings {
		items = append(items, bbsItem{name: s.Name, value: s.SysOpThreshold})
	}
	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.Title = "SysOp Thresholds"
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.list.SetShowHelp(true)
}

func (m *thresholdsModel) startEdit(it bbsItem) {
	m.name = it.name
	m.threshold = strconv.Itoa(it.value)
	if it.isNew {
		m.threshold = strconv.Itoa(m.app.Config.SysOp.DefaultThreshold)
	}
	m.save = true

	nameInput := huh.NewInput().Title("BBS Name").Value(&m.name).Validate(nonEmpty("name"))
	m.form = huh.NewForm(
		huh.NewGroup(
			nameInput,
			huh.NewInput().Title("SysOp threshold").
				Description("Callers at or above this security level get the SysOp console").
				Value(&m.threshold).Validate(validIntInRange("threshold", 0, 65535)),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save threshold?").Value(&m.save),
		),
	)
}

func (m *thresholdsModel) Update(msg tea.Msg) tea.Cmd {
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
		case "enter":
			if it, ok := m.list.SelectedItem().(bbsItem); ok {
				m.startEdit(it)
				return m.form.Init()
			}
		}
	}
	return cmd
}

func (m *thresholdsModel) updateForm(msg tea.Msg) tea.Cmd {
	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f

	if m.form.State == huh.StateCompleted {
		if m.save {
			v, _ := strconv.Atoi(strings.TrimSpace(m.threshold))
			s := &db.BBSSettings{Name: strings.TrimSpace(m.name), SysOpThreshold: v}
			if err := m.app.DB.SaveBBSSettings(s); err != nil {
				m.err = err
				return nil
			}
		}
		m.form = nil
		m.reloadList()
		return nil
	}
	return cmd
}

func (m *thresholdsModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Settings error: %v\n\nPress Enter/Esc to go back.", m.err)
	}
	if m.form != nil {
		return m.form.View() + "\n\n(esc to go back)"
	}
	return m.list.View() + "\n(q to go back, enter to edit)"
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func validIntInRange(field string, min, max int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a number", field)
		}
		if v < min || v > max {
			return fmt.Errorf("%s must be between %d and %d", field, min, max)
		}
		return nil
	}
}
