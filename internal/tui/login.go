package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// toLogin shows the login form. An open editor is kept so its draft survives
// the re-login.
func (m *appModel) toLogin(reason string) {
	m.view = viewLogin
	m.modal = modalNone
	m.pending = opNone
	m.label = ""
	m.loginFocus = 0
	m.password.SetValue("")
	m.username.Focus()
	m.password.Blur()
	m.textarea.Blur()
	m.editing = false
	if reason != "" {
		m.flashErr(reason)
	}
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.shutdown()
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.password.Blur()
			cmd := m.username.Focus()
			return m, cmd
		}
		m.username.Blur()
		cmd := m.password.Focus()
		return m, cmd
	case "enter":
		if m.loginFocus == 0 && m.password.Value() == "" {
			m.loginFocus = 1
			m.username.Blur()
			cmd := m.password.Focus()
			return m, cmd
		}
		username := strings.TrimSpace(m.username.Value())
		if username == "" || m.password.Value() == "" {
			m.flashErr("Username and password are required")
			return m, nil
		}
		tick, ok := m.start(opLogin, "Signing in...")
		if !ok {
			return m, nil
		}
		return m, tea.Batch(tick, loginCmd(m.ctx, m.deps, username, m.password.Value()))
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m appModel) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.finish(opLogin)
	if msg.err != nil {
		m.reportErr(msg.err)
		m.password.SetValue("")
		return m, nil
	}
	m.password.SetValue("")
	m.password.Blur()
	m.username.Blur()
	m.flash("Signed in as " + msg.user.Label())

	cmds := []tea.Cmd{loadProjectsCmd(m.ctx, m.deps.Dashboard), refreshSiteCmd(m.ctx, m.deps)}
	if m.ed != nil {
		m.view = viewEditor
		return m, tea.Batch(cmds...)
	}
	m.view = viewProjects
	if id := m.restoreProjectID(); id > 0 {
		cmds = append(cmds, openProjectCmd(m.ctx, m.deps, id))
	}
	return m, tea.Batch(cmds...)
}

func (m *appModel) viewLogin() string {
	title := styleHeader().Render("Sign in")
	server := ""
	if m.deps.Config != nil {
		server = styleMuted().Render(m.deps.Config.Server.URL)
	}
	form := lipgloss.JoinVertical(lipgloss.Left,
		title,
		server,
		"",
		m.username.View(),
		m.password.View(),
		"",
		styleMuted().Render("tab: switch field   enter: sign in   esc: quit"),
	)
	return stylePane(true).Width(min(60, m.contentWidth()-2)).Render(form)
}
