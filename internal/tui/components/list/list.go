// Package list implements a simple bubbletea list component to pick HTTP requests.
package list

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/reqx/internal/spec"
)

// Model is the list tea Model.
type Model struct {
	l        list.Model   // The base list bubble
	selected spec.Request // The selected HTTP request
	picked   bool         // Whether anything was actually selected
}

// New returns a new [Model].
func New(title string, requests []spec.Request) Model {
	items := make([]list.Item, 0, len(requests))
	for _, request := range requests {
		items = append(items, request)
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title

	return Model{
		l: l,
	}
}

// Init helps implement [tea.Model] for [Model].
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates the UI in response to messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if item, ok := m.l.SelectedItem().(spec.Request); ok {
				m.selected = item
				m.picked = true
			}

			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.l.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd

	m.l, cmd = m.l.Update(msg)

	return m, cmd
}

// View renders the UI to the user.
func (m Model) View() string {
	return m.l.View()
}

// Selected returns the picked request from the list, and whether one was
// picked at all.
func (m Model) Selected() (spec.Request, bool) {
	return m.selected, m.picked
}
