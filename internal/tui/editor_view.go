package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/editor"
	"plotline-cli/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var wordLimitSteps = []int{500, 1000, 2000, 3000, 5000}

func (m appModel) handleEditorOpened(msg editorOpenedMsg) (tea.Model, tea.Cmd) {
	m.finish(opOpen)
	if msg.err != nil {
		if apiclient.IsNotFound(msg.err) {
			m.flashErr(fmt.Sprintf("Project %d not found", msg.projectID))
			return m, nil
		}
		if !m.reportErr(msg.err) {
			m.flashErr(msg.err.Error())
		}
		return m, nil
	}

	if m.ed != nil {
		m.ed.Close()
	}
	m.ed = msg.ed
	m.selectedProjectID = msg.projectID
	m.view = viewEditor
	m.modal = modalNone

	s := m.ed.Snapshot()
	m.textarea.SetValue(s.Draft)
	m.editing = true
	m.resizeTextarea()
	switch {
	case len(s.Warnings) > 0:
		m.flashErr(strings.Join(s.Warnings, "; "))
	case s.OutlineMissing:
		m.flash("No outline yet; start writing")
	default:
		m.flash(fmt.Sprintf("Loaded %q", s.Project.Title))
	}
	m.saveUIState()
	cmd := m.textarea.Focus()
	return m, cmd
}

func (m appModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ed == nil {
		m.view = viewProjects
		return m, nil
	}

	switch msg.String() {
	case "ctrl+s":
		return m.save()
	case "ctrl+g":
		return m.generate()
	case "esc":
		if m.pending == opGenerate {
			m.ed.CancelGenerate()
			m.finish(opGenerate)
			m.flash("Generation cancelled")
			return m, nil
		}
		if m.editing {
			m.editing = false
			m.textarea.Blur()
			return m, nil
		}
		return m.back()
	}

	if m.editing {
		if m.pending == opImport {
			return m, nil
		}
		before := m.textarea.Value()
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		if after := m.textarea.Value(); after != before {
			if err := m.ed.Edit(after); err != nil {
				m.flashErr(err.Error())
			}
		}
		return m, cmd
	}

	switch msg.String() {
	case "enter", "i":
		m.editing = true
		cmd := m.textarea.Focus()
		return m, cmd
	case "s":
		return m.save()
	case "g":
		return m.generate()
	case "t":
		m.style = nextStyle(m.style)
		m.flash("Style: " + string(m.style))
		return m, nil
	case "w":
		m.words = nextWordLimit(m.words)
		m.flash(fmt.Sprintf("Word limit: %d", m.words))
		return m, nil
	case "p":
		m.showPreview = !m.showPreview
		m.resizeTextarea()
		return m, nil
	case "a":
		if err := m.ed.Adopt(); err != nil {
			m.flashErr(err.Error())
			return m, nil
		}
		m.textarea.SetValue(m.ed.Draft())
		m.resizeTextarea()
		m.flash("Continuation added to the draft (unsaved)")
		return m, nil
	case "x":
		if m.ed.Dismiss() {
			m.resizeTextarea()
			m.flash("Continuation dismissed")
		}
		return m, nil
	case "v":
		return m.browseVersions()
	case "E":
		cmd, err := m.openExternalEditor()
		if err != nil {
			m.flashErr("Editor failed: " + err.Error())
			return m, nil
		}
		return m, cmd
	case "I":
		m.openInput("Import outline", "File (.txt/.docx)", "", func(m *appModel, v string) tea.Cmd {
			return m.importFile(expandHome(v))
		})
		cmd := m.input.field.Focus()
		return m, cmd
	case "o":
		m.openInput("Export outline", "Format ("+exportFormats()+")", "txt", func(m *appModel, v string) tea.Cmd {
			return m.export(v)
		})
		cmd := m.input.field.Focus()
		return m, cmd
	case "q", "b":
		return m.back()
	}
	return m, nil
}

// setDraft replaces the draft in both the textarea and the editor.
func (m *appModel) setDraft(text string) {
	m.textarea.SetValue(text)
	if m.ed != nil {
		if err := m.ed.Edit(text); err != nil {
			m.flashErr(err.Error())
		}
	}
}

func (m appModel) save() (tea.Model, tea.Cmd) {
	tick, ok := m.start(opSave, "Saving...")
	if !ok {
		m.flashErr("Busy: " + m.label)
		return m, nil
	}
	return m, tea.Batch(tick, saveCmd(m.ctx, m.ed))
}

// ownsEditor reports whether a result came from the editor still on screen.
func (m appModel) ownsEditor(ed *editor.Editor) bool {
	return ed != nil && ed == m.ed
}

func (m appModel) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if !m.ownsEditor(msg.ed) {
		return m, nil
	}
	m.finish(opSave)
	if msg.err != nil {
		m.reportErr(msg.err)
		return m, nil
	}
	s := m.ed.Snapshot()
	text := "Saved"
	if len(s.Versions) > 0 {
		text = fmt.Sprintf("Saved version %d", s.Versions[0].VersionNumber)
	}
	if len(s.Warnings) > 0 {
		m.flashErr(text + "; " + strings.Join(s.Warnings, "; "))
		return m, nil
	}
	m.flash(text)
	return m, nil
}

func (m appModel) generate() (tea.Model, tea.Cmd) {
	if m.pending == opGenerate {
		// A second request supersedes the first.
		return m, generateCmd(m.ctx, m.ed, model.GenerationRequest{Style: m.style, WordLimit: m.words})
	}
	label := fmt.Sprintf("Generating %s continuation (~%d words), esc to cancel", m.style, m.words)
	tick, ok := m.start(opGenerate, label)
	if !ok {
		m.flashErr("Busy: " + m.label)
		return m, nil
	}
	return m, tea.Batch(tick, generateCmd(m.ctx, m.ed, model.GenerationRequest{Style: m.style, WordLimit: m.words}))
}

func (m appModel) handleGenerated(msg generatedMsg) (tea.Model, tea.Cmd) {
	if !m.ownsEditor(msg.ed) {
		return m, nil
	}
	if errors.Is(msg.err, editor.ErrSuperseded) || errors.Is(msg.err, editor.ErrClosed) || errors.Is(msg.err, context.Canceled) {
		return m, nil
	}
	m.finish(opGenerate)
	if msg.err != nil {
		m.reportErr(msg.err)
		return m, nil
	}
	m.resizeTextarea()
	text := fmt.Sprintf("Continuation ready, %d tokens used", msg.res.TokensUsed)
	if msg.res.TokenBalance != nil {
		text += fmt.Sprintf(" (balance %d)", *msg.res.TokenBalance)
	}
	if msg.res.Fallback {
		text = "AI unavailable; showing an offline sample"
	}
	m.flash(text + ". a: adopt  x: dismiss")
	return m, nil
}

func (m *appModel) importFile(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	if !editor.ImportableExt(path) {
		m.flashErr("Only .txt and .docx files can be imported")
		return nil
	}
	run := func(m *appModel) tea.Cmd {
		tick, ok := m.start(opImport, "Importing "+filepath.Base(path)+"...")
		if !ok {
			m.flashErr("Busy: " + m.label)
			return nil
		}
		return tea.Batch(tick, importCmd(m.ctx, m.ed, path))
	}
	if m.ed.Dirty() {
		m.openConfirm("Replace draft", "Importing replaces the whole draft, including unsaved edits.", "Import", run)
		return nil
	}
	return run(m)
}

func (m appModel) handleImported(msg importedMsg) (tea.Model, tea.Cmd) {
	if !m.ownsEditor(msg.ed) {
		return m, nil
	}
	m.finish(opImport)
	if msg.err != nil {
		m.reportErr(msg.err)
		return m, nil
	}
	m.textarea.SetValue(m.ed.Draft())
	m.flash(fmt.Sprintf("Imported %s (unsaved; ctrl+s to save)", filepath.Base(msg.file)))
	return m, nil
}

func (m *appModel) export(format string) tea.Cmd {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "txt"
	}
	valid := format == "md"
	for _, f := range editor.ExportFormats {
		valid = valid || f == format
	}
	if !valid {
		m.flashErr(fmt.Sprintf("Unsupported export format %q", format))
		return nil
	}
	tick, ok := m.start(opExport, "Exporting "+format+"...")
	if !ok {
		m.flashErr("Busy: " + m.label)
		return nil
	}
	return tea.Batch(tick, exportCmd(m.ctx, m.deps, m.ed, format, exportDir(m.deps)))
}

func (m appModel) handleExported(msg exportedMsg) (tea.Model, tea.Cmd) {
	m.finish(opExport)
	if msg.err != nil {
		m.reportErr(msg.err)
		return m, nil
	}
	text := "Exported to " + msg.path
	if m.ed != nil && m.ed.Dirty() {
		text += " (last saved version)"
	}
	m.flash(text)
	return m, nil
}

func (m appModel) back() (tea.Model, tea.Cmd) {
	if m.ed != nil && m.ed.Dirty() {
		m.openConfirm("Unsaved changes", "Leave the editor and discard unsaved edits?", "Discard", func(m *appModel) tea.Cmd {
			return m.leaveEditor()
		})
		return m, nil
	}
	cmd := m.leaveEditor()
	return m, cmd
}

func (m *appModel) leaveEditor() tea.Cmd {
	if m.ed != nil {
		m.ed.Close()
		m.ed = nil
	}
	if m.pending == opGenerate || m.pending == opSave || m.pending == opImport || m.pending == opExport {
		m.pending = opNone
		m.label = ""
	}
	m.view = viewProjects
	m.editing = false
	m.textarea.Blur()
	m.textarea.SetValue("")
	m.saveUIState()
	return loadProjectsCmd(m.ctx, m.deps.Dashboard)
}

func nextStyle(cur model.Style) model.Style {
	for i, s := range model.Styles {
		if s == cur {
			return model.Styles[(i+1)%len(model.Styles)]
		}
	}
	return model.StyleDefault
}

func nextWordLimit(cur int) int {
	for _, w := range wordLimitSteps {
		if w > cur {
			return w
		}
	}
	return wordLimitSteps[0]
}

// split reports whether the editor shows a second pane.
func (m *appModel) split() bool {
	if m.ed == nil {
		return false
	}
	return m.showPreview || m.ed.Snapshot().Result != nil
}

func (m *appModel) paneWidths() (left, right int) {
	w := m.contentWidth()
	if !m.split() {
		return w, 0
	}
	left = w / 2
	return left, w - left
}

// editorBodyHeight is the space left for panes after the info and help rows.
func (m *appModel) editorBodyHeight() int {
	return max(m.bodyHeight()-2, 4)
}

func (m *appModel) resizeTextarea() {
	left, _ := m.paneWidths()
	m.textarea.SetWidth(max(left-4, 10))
	m.textarea.SetHeight(max(m.editorBodyHeight()-2, 2))
}

func (m *appModel) viewEditor() string {
	if m.ed == nil {
		return ""
	}
	m.resizeTextarea()
	s := m.ed.Snapshot()

	info := []string{}
	if s.Dirty {
		info = append(info, styleWarn().Render("● unsaved"))
	} else {
		info = append(info, styleMuted().Render("saved"))
	}
	info = append(info,
		styleMuted().Render("style: "+string(m.style)),
		styleMuted().Render(fmt.Sprintf("words: %d", m.words)),
		styleMuted().Render(fmt.Sprintf("versions: %d", len(s.Versions))),
	)
	if s.Project.LastEditedAt.IsSet() {
		info = append(info, styleMuted().Render("edited "+s.Project.LastEditedAt.String()))
	}
	if s.State != editor.StateIdle {
		info = append(info, styleAccentBadge().Render(s.State.String()))
	}
	infoLine := truncate(strings.Join(info, "  "), m.contentWidth())

	left, right := m.paneWidths()
	h := m.editorBodyHeight()
	leftPane := stylePane(m.editing).Width(left - 2).Height(h - 2).Render(m.textarea.View())

	body := leftPane
	if right > 0 {
		innerW := right - 4
		var title, text string
		if s.Result != nil {
			title = "Continuation"
			if s.Result.Fallback {
				title += " (offline sample)"
			}
			text = renderMarkdown(s.Result.Content, innerW)
		} else {
			title = "Preview"
			text = renderMarkdown(s.Draft, innerW)
			if text == "" {
				text = styleMuted().Render("(empty)")
			}
		}
		content := styleHeader().Render(title) + "\n" + fitLines(text, innerW, h-3)
		rightPane := stylePane(false).Width(right - 2).Height(h - 2).Render(content)
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	}

	return lipgloss.JoinVertical(lipgloss.Left, infoLine, body, m.editorHelp(s))
}

func (m *appModel) editorHelp(s editor.Snapshot) string {
	var help string
	switch {
	case m.editing:
		help = "esc: commands   ctrl+s: save   ctrl+g: generate"
	case s.Result != nil:
		help = "a: adopt   x: dismiss   g: regenerate   i: edit   s: save   q: back"
	default:
		help = "i: edit  s: save  g: generate  t: style  w: words  v: versions  p: preview  E: $EDITOR  I: import  o: export  q: back"
	}
	return styleMuted().Render(truncate(help, m.contentWidth()))
}
