package tui

import (
	"context"
	"errors"
	"strings"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/editor"
	"plotline-cli/internal/model"
	"plotline-cli/internal/store"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

type view int

const (
	viewLogin view = iota
	viewProjects
	viewEditor
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirm
	modalInput
	modalVersions
)

// op is the user-visible request in flight. At most one is tracked; the
// editor rejects overlapping ones on its own.
type op int

const (
	opNone op = iota
	opLogin
	opProjects
	opCreate
	opDelete
	opOpen
	opSave
	opGenerate
	opImport
	opExport
)

type appModel struct {
	ctx    context.Context
	deps   Deps
	logger *zap.Logger

	uiState *store.TUIState

	width  int
	height int

	view  view
	modal modalKind

	username   textinput.Model
	password   textinput.Model
	loginFocus int

	projectsList      list.Model
	selectedProjectID int

	ed          *editor.Editor
	textarea    textarea.Model
	editing     bool
	showPreview bool
	style       model.Style
	words       int

	versions   []model.Version
	versionIdx int

	confirm confirmModal
	input   inputModal

	spinner  spinner.Model
	spinning bool
	progress progress.Model
	pending  op
	label    string

	minibuffer    string
	minibufferErr bool

	externalEditorPath   string
	externalEditorBefore string
}

func newAppModel(ctx context.Context, d Deps) appModel {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := appModel{
		ctx:    ctx,
		deps:   d,
		logger: logger.Named("tui"),
		view:   viewProjects,
		style:  model.StyleDefault,
		words:  model.DefaultWordLimit,
	}
	if d.Config != nil {
		if s, err := model.ParseStyle(d.Config.AI.DefaultStyle); err == nil {
			m.style = s
		}
		if w := d.Config.AI.WordLimit; w >= model.MinWordLimit && w <= model.MaxWordLimit {
			m.words = w
		}
	}
	m.loadUIState()

	m.username = textinput.New()
	m.username.Prompt = "Username: "
	m.username.Placeholder = "writer"
	m.password = textinput.New()
	m.password.Prompt = "Password: "
	m.password.EchoMode = textinput.EchoPassword
	m.password.EchoCharacter = '•'

	m.projectsList = newProjectList()

	m.textarea = textarea.New()
	m.textarea.Placeholder = "Start your outline here..."
	m.textarea.ShowLineNumbers = false
	m.textarea.CharLimit = 0
	m.textarea.MaxHeight = 0

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.progress = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	if d.Session == nil || !d.Session.LoggedIn() {
		m.view = viewLogin
		m.username.Focus()
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.view == viewLogin {
		return textinput.Blink
	}
	cmds := []tea.Cmd{loadProjectsCmd(m.ctx, m.deps.Dashboard), refreshSiteCmd(m.ctx, m.deps)}
	if id := m.restoreProjectID(); id > 0 {
		cmds = append(cmds, openProjectCmd(m.ctx, m.deps, id))
	}
	return tea.Batch(cmds...)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case siteLoadedMsg:
		return m, nil

	case loginDoneMsg:
		return m.handleLoginDone(msg)
	case projectsLoadedMsg:
		return m.handleProjectsLoaded(msg)
	case projectMutatedMsg:
		return m.handleProjectMutated(msg)
	case editorOpenedMsg:
		return m.handleEditorOpened(msg)
	case savedMsg:
		return m.handleSaved(msg)
	case generatedMsg:
		return m.handleGenerated(msg)
	case importedMsg:
		return m.handleImported(msg)
	case exportedMsg:
		return m.handleExported(msg)
	case externalEditorDoneMsg:
		m.applyExternalEditorResult(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		switch m.modal {
		case modalConfirm:
			return m.updateConfirm(msg)
		case modalInput:
			return m.updateInput(msg)
		case modalVersions:
			return m.updateVersions(msg)
		}
		switch m.view {
		case viewLogin:
			return m.updateLogin(msg)
		case viewProjects:
			return m.updateProjects(msg)
		case viewEditor:
			return m.updateEditor(msg)
		}
	}

	// Non-key messages (cursor blink, list filtering) go to the focused widget.
	var cmd tea.Cmd
	switch {
	case m.modal == modalInput:
		m.input.field, cmd = m.input.field.Update(msg)
	case m.view == viewLogin:
		var c1, c2 tea.Cmd
		m.username, c1 = m.username.Update(msg)
		m.password, c2 = m.password.Update(msg)
		cmd = tea.Batch(c1, c2)
	case m.view == viewProjects:
		m.projectsList, cmd = m.projectsList.Update(msg)
	case m.view == viewEditor && m.editing:
		m.textarea, cmd = m.textarea.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	var body string
	switch m.view {
	case viewLogin:
		body = m.viewLogin()
	case viewProjects:
		body = m.viewProjects()
	default:
		body = m.viewEditor()
	}

	switch m.modal {
	case modalConfirm:
		body = overlay(body, m.renderConfirm(), m.width, m.height)
	case modalInput:
		body = overlay(body, m.renderInput(), m.width, m.height)
	case modalVersions:
		body = overlay(body, m.renderVersions(), m.width, m.height)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), body, m.viewStatusLine())
}

func (m *appModel) viewHeader() string {
	name := "Plotline"
	if m.deps.Session != nil {
		if n := strings.TrimSpace(m.deps.Session.SystemName(m.ctx)); n != "" {
			name = n
		}
	}
	parts := []string{styleAccentBadge().Render(name)}
	if m.view == viewEditor && m.ed != nil {
		parts = append(parts, styleHeader().Render(m.ed.Snapshot().Project.Title))
	}
	if m.deps.Session != nil {
		if u, ok := m.deps.Session.User(); ok {
			parts = append(parts, styleMuted().Render(u.Label()))
		}
	}
	header := strings.Join(parts, "  ")
	if m.deps.Session != nil && m.view != viewLogin {
		if n := firstLine(m.deps.Session.CachedNotice(m.ctx)); n != "" {
			header += "\n" + styleWarn().Render(truncate(n, m.contentWidth()))
		}
	}
	return header
}

func (m *appModel) viewStatusLine() string {
	if m.busy() {
		line := m.spinner.View() + " " + m.label
		if m.pending == opImport && m.ed != nil {
			p := float64(m.ed.Snapshot().Progress) / 100
			line += " " + m.progress.ViewAs(p)
		}
		return line
	}
	if m.minibuffer == "" {
		return ""
	}
	if m.minibufferErr {
		return styleError().Render(truncate(m.minibuffer, m.contentWidth()))
	}
	return styleOK().Render(truncate(m.minibuffer, m.contentWidth()))
}

func (m *appModel) layout() {
	w, h := m.contentWidth(), m.bodyHeight()
	m.projectsList.SetSize(w, h)
	m.progress.Width = min(40, max(10, w/3))
	m.resizeTextarea()
}

func (m *appModel) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

// bodyHeight leaves room for the header, notice and status line.
func (m *appModel) bodyHeight() int {
	h := m.height - 4
	if m.height <= 0 {
		h = 20
	}
	return max(h, 6)
}

func (m *appModel) busy() bool { return m.pending != opNone }

// start marks o as in flight. It reports false when another op already is.
func (m *appModel) start(o op, label string) (tea.Cmd, bool) {
	if m.pending != opNone {
		return nil, false
	}
	m.pending = o
	m.label = label
	m.minibuffer = ""
	if m.spinning {
		return nil, true
	}
	m.spinning = true
	return m.spinner.Tick, true
}

func (m *appModel) finish(o op) {
	if m.pending == o {
		m.pending = opNone
		m.label = ""
	}
}

func (m *appModel) flash(s string) {
	m.minibuffer = s
	m.minibufferErr = false
}

func (m *appModel) flashErr(s string) {
	m.minibuffer = s
	m.minibufferErr = true
}

// reportErr shows err and reports whether it was a 401, in which case the UI
// has moved to the login view. The session itself was already cleared by the
// API client.
func (m *appModel) reportErr(err error) bool {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		m.toLogin("Session expired; please log in again")
		return true
	}
	m.flashErr(apiclient.Message(err, err.Error()))
	return false
}

func (m *appModel) shutdown() {
	m.saveUIState()
	if m.ed != nil {
		m.ed.Close()
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
