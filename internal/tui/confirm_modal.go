package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

type confirmModal struct {
	title        string
	body         string
	confirmLabel string
	focus        confirmModalFocus
	onConfirm    func(m *appModel) tea.Cmd
	// returnTo is the modal shown again after a cancel.
	returnTo modalKind
}

type inputModal struct {
	title    string
	field    textinput.Model
	onSubmit func(m *appModel, v string) tea.Cmd
}

func (m *appModel) openConfirm(title, body, confirmLabel string, onConfirm func(m *appModel) tea.Cmd) {
	m.confirm = confirmModal{
		title:        title,
		body:         body,
		confirmLabel: confirmLabel,
		focus:        confirmFocusCancel,
		onConfirm:    onConfirm,
		returnTo:     m.modal,
	}
	m.modal = modalConfirm
}

func (m *appModel) openInput(title, prompt, value string, onSubmit func(m *appModel, v string) tea.Cmd) {
	ti := textinput.New()
	ti.Prompt = prompt + ": "
	ti.SetValue(value)
	ti.CursorEnd()
	m.input = inputModal{title: title, field: ti, onSubmit: onSubmit}
	m.modal = modalInput
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g", "n":
		m.modal = m.confirm.returnTo
		m.confirm = confirmModal{}
		return m, nil
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.confirm.focus == confirmFocusConfirm {
			m.confirm.focus = confirmFocusCancel
		} else {
			m.confirm.focus = confirmFocusConfirm
		}
		return m, nil
	case "y":
		return m.acceptConfirm()
	case "enter":
		if m.confirm.focus == confirmFocusConfirm {
			return m.acceptConfirm()
		}
		m.modal = m.confirm.returnTo
		m.confirm = confirmModal{}
		return m, nil
	}
	return m, nil
}

func (m appModel) acceptConfirm() (tea.Model, tea.Cmd) {
	fn := m.confirm.onConfirm
	m.modal = modalNone
	m.confirm = confirmModal{}
	if fn == nil {
		return m, nil
	}
	cmd := fn(&m)
	return m, cmd
}

func (m appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		m.modal = modalNone
		m.input = inputModal{}
		return m, nil
	case "enter":
		fn := m.input.onSubmit
		v := m.input.field.Value()
		m.modal = modalNone
		m.input = inputModal{}
		if fn == nil {
			return m, nil
		}
		cmd := fn(&m, v)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input.field, cmd = m.input.field.Update(msg)
	return m, cmd
}

func (m *appModel) renderConfirm() string {
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(m.confirm.confirmLabel)
	cancel := btnBase.Render("Cancel")
	if m.confirm.focus == confirmFocusConfirm {
		confirm = btnActive.Render(m.confirm.confirmLabel)
	} else {
		cancel = btnActive.Render("Cancel")
	}
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, " ", cancel)

	bodyW := modalBodyWidth(m.contentWidth())
	content := strings.Join([]string{
		lipgloss.NewStyle().Width(bodyW).Render(m.confirm.body),
		"",
		controls,
		"",
		styleMuted().Width(bodyW).Render("tab: focus   enter: select   y/n   esc: cancel"),
	}, "\n")
	return renderModalBox(m.contentWidth(), m.confirm.title, content)
}

func (m *appModel) renderInput() string {
	bodyW := modalBodyWidth(m.contentWidth())
	m.input.field.Width = max(10, bodyW-lipgloss.Width(m.input.field.Prompt)-1)
	content := strings.Join([]string{
		m.input.field.View(),
		"",
		styleMuted().Width(bodyW).Render("enter: ok   esc: cancel"),
	}, "\n")
	return renderModalBox(m.contentWidth(), m.input.title, content)
}
