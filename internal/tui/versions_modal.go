package tui

import (
	"fmt"
	"strings"

	"plotline-cli/internal/dashboard"
	"plotline-cli/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

const versionRows = 10

func (m appModel) browseVersions() (tea.Model, tea.Cmd) {
	vs, err := m.ed.BrowseVersions()
	if err != nil {
		m.flashErr(err.Error())
		return m, nil
	}
	if len(vs) == 0 {
		m.ed.CancelBrowse()
		m.flash("No saved versions yet")
		return m, nil
	}
	m.versions = vs
	m.versionIdx = 0
	m.modal = modalVersions
	m.editing = false
	m.textarea.Blur()
	return m, nil
}

func (m appModel) updateVersions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "ctrl+g":
		m.closeVersions()
		return m, nil
	case "up", "k":
		if m.versionIdx > 0 {
			m.versionIdx--
		}
		return m, nil
	case "down", "j":
		if m.versionIdx < len(m.versions)-1 {
			m.versionIdx++
		}
		return m, nil
	case "home", "g":
		m.versionIdx = 0
		return m, nil
	case "end", "G":
		m.versionIdx = max(len(m.versions)-1, 0)
		return m, nil
	case "enter":
		if m.versionIdx < 0 || m.versionIdx >= len(m.versions) {
			return m, nil
		}
		v := m.versions[m.versionIdx]
		s := m.ed.Snapshot()
		if s.Dirty && s.Draft != v.Content {
			m.openConfirm("Restore version",
				fmt.Sprintf("Discard unsaved edits and restore version %d?", v.VersionNumber),
				"Restore",
				func(m *appModel) tea.Cmd {
					m.restore(v)
					return nil
				})
			return m, nil
		}
		m.restore(v)
		return m, nil
	}
	return m, nil
}

// restore loads v into the draft. The user already confirmed, if that was
// needed. Nothing is saved until the next save.
func (m *appModel) restore(v model.Version) {
	err := m.ed.Restore(m.ctx, v.ID, dashboard.AlwaysConfirm)
	m.modal = modalNone
	m.versions = nil
	if err != nil {
		m.ed.CancelBrowse()
		m.flashErr(err.Error())
		return
	}
	m.textarea.SetValue(m.ed.Draft())
	m.flash(fmt.Sprintf("Restored version %d (unsaved; ctrl+s to save)", v.VersionNumber))
}

func (m *appModel) closeVersions() {
	if m.ed != nil {
		m.ed.CancelBrowse()
	}
	m.modal = modalNone
	m.versions = nil
}

func versionLine(v model.Version) string {
	kind := "manual"
	if v.IsAIGenerated {
		kind = "AI"
		if v.AIStyle != "" {
			kind += " " + v.AIStyle
		}
	}
	return fmt.Sprintf("v%-3d  %s  %-12s  %d chars", v.VersionNumber, v.CreatedAt.String(), kind, len([]rune(v.Content)))
}

func (m *appModel) renderVersions() string {
	bodyW := modalBodyWidth(m.contentWidth())

	start := 0
	if m.versionIdx >= versionRows {
		start = m.versionIdx - versionRows + 1
	}
	end := min(start+versionRows, len(m.versions))

	var rows []string
	for i := start; i < end; i++ {
		line := truncate(versionLine(m.versions[i]), bodyW-2)
		if i == m.versionIdx {
			rows = append(rows, styleHeader().Render("› "+line))
		} else {
			rows = append(rows, "  "+line)
		}
	}

	preview := ""
	if m.versionIdx < len(m.versions) {
		preview = fitLines(strings.TrimSpace(m.versions[m.versionIdx].Content), bodyW, 6)
	}

	content := strings.Join([]string{
		strings.Join(rows, "\n"),
		"",
		styleMuted().Render(preview),
		"",
		styleMuted().Render("j/k: move   enter: restore   esc: close"),
	}, "\n")
	return renderModalBox(m.contentWidth(), fmt.Sprintf("Versions (%d)", len(m.versions)), content)
}
