package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/config"
	"plotline-cli/internal/continuation"
	"plotline-cli/internal/dashboard"
	"plotline-cli/internal/devserver"
	"plotline-cli/internal/model"
	"plotline-cli/internal/session"
	"plotline-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	srv     *devserver.Server
	deps    Deps
	project model.Project
}

func newFixture(t *testing.T, loggedIn bool) *fixture {
	t.Helper()
	ctx := context.Background()

	srv := devserver.New(devserver.WithUser("writer", "secret"))
	p := srv.AddProject("writer", model.ProjectInput{Title: "Atlas", Genre: "fantasy"})
	srv.SetOutline(p.ID, "Chapter 1")
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	kv, err := st.OpenKV(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	sess, err := session.Load(ctx, kv, zap.NewNop())
	require.NoError(t, err)
	api, err := apiclient.New(hs.URL, zap.NewNop(),
		apiclient.WithTokenSource(sess),
		apiclient.WithUnauthorizedHandler(sess.Unauthorized),
	)
	require.NoError(t, err)
	if loggedIn {
		_, err := sess.LoginWithToken(ctx, api, srv.IssueToken("writer"))
		require.NoError(t, err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{URL: hs.URL, Timeout: 5 * time.Second},
		AI:     config.AIConfig{DefaultStyle: "fantasy", WordLimit: 1000},
		Export: config.ExportConfig{Dir: t.TempDir()},
	}
	return &fixture{
		srv:     srv,
		project: p,
		deps: Deps{
			Config:    cfg,
			Store:     st,
			Logger:    zap.NewNop(),
			Session:   sess,
			API:       api,
			Dashboard: dashboard.New(api, zap.NewNop()),
			Generator: continuation.New(api, zap.NewNop(), continuation.Options{}),
		},
	}
}

func (f *fixture) model(t *testing.T) appModel {
	t.Helper()
	m := newAppModel(context.Background(), f.deps)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(appModel)
	if m.view != viewLogin {
		m = drain(t, m, m.Init())
	}
	t.Cleanup(m.shutdown)
	return m
}

func isAppMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case siteLoadedMsg, loginDoneMsg, projectsLoadedMsg, projectMutatedMsg,
		editorOpenedMsg, savedMsg, generatedMsg, importedMsg, exportedMsg:
		return true
	default:
		return false
	}
}

// runCmd executes c, giving up on commands that only tick (spinner, cursor).
func runCmd(c tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(3 * time.Second):
		return nil
	}
}

// drain runs cmd and feeds resulting app messages back until nothing is left.
func drain(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatalf("model did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := runCmd(c)
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if !isAppMsg(msg) {
			continue
		}
		next, nc := m.Update(msg)
		m = next.(appModel)
		queue = append(queue, nc)
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+g":
		return tea.KeyMsg{Type: tea.KeyCtrlG}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyMsg(k))
		m = drain(t, next.(appModel), cmd)
	}
	return m
}

func openAtlas(t *testing.T, f *fixture) appModel {
	t.Helper()
	m := f.model(t)
	require.Equal(t, viewProjects, m.view)
	require.Len(t, m.projectsList.Items(), 1)
	m = press(t, m, "enter")
	require.Equal(t, viewEditor, m.view, m.minibuffer)
	require.NotNil(t, m.ed)
	return m
}

func TestLoggedOut_StartsAtLoginAndSignsIn(t *testing.T) {
	f := newFixture(t, false)
	m := f.model(t)
	require.Equal(t, viewLogin, m.view)

	m = press(t, m, "writer", "enter", "secret", "enter")

	assert.Equal(t, viewProjects, m.view, m.minibuffer)
	assert.True(t, f.deps.Session.LoggedIn())
	assert.Len(t, m.projectsList.Items(), 1)
	assert.Contains(t, m.minibuffer, "Signed in as")
}

func TestLogin_WrongPasswordStaysOnForm(t *testing.T) {
	f := newFixture(t, false)
	m := f.model(t)

	m = press(t, m, "writer", "enter", "nope", "enter")

	assert.Equal(t, viewLogin, m.view)
	assert.True(t, m.minibufferErr)
	assert.Equal(t, "username or password is incorrect", m.minibuffer)
	assert.Empty(t, m.password.Value())
}

func TestOpenProject_EditAndSaveCreatesVersion(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)
	assert.Equal(t, "Chapter 1", m.textarea.Value())

	m = press(t, m, ": the pass")
	assert.True(t, m.ed.Dirty())
	assert.Contains(t, m.View(), "unsaved")

	m = press(t, m, "ctrl+s")
	assert.False(t, m.minibufferErr, m.minibuffer)
	assert.Equal(t, "Saved version 2", m.minibuffer)
	s := m.ed.Snapshot()
	assert.False(t, s.Dirty)
	assert.Equal(t, "Chapter 1: the pass", s.Saved)
	assert.Equal(t, 2, s.Versions[0].VersionNumber)
}

func TestGenerate_ShowsComparisonThenAdopts(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)
	require.Equal(t, model.StyleFantasy, m.style)

	m = press(t, m, "esc", "g")
	require.False(t, m.minibufferErr, m.minibuffer)
	s := m.ed.Snapshot()
	require.NotNil(t, s.Result)
	assert.True(t, m.split())
	assert.Contains(t, m.View(), "Continuation")
	assert.Equal(t, "Chapter 1", s.Draft, "generation must not touch the draft")

	m = press(t, m, "a")
	assert.Nil(t, m.ed.Snapshot().Result)
	assert.True(t, strings.HasPrefix(m.textarea.Value(), "Chapter 1\n\n"))
	assert.Contains(t, m.textarea.Value(), "Old magic stirs")
	assert.True(t, m.ed.Dirty())
}

func TestGenerate_DismissKeepsDraft(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)

	m = press(t, m, "esc", "g", "x")

	assert.Nil(t, m.ed.Snapshot().Result)
	assert.False(t, m.split())
	assert.Equal(t, "Chapter 1", m.textarea.Value())
	assert.Equal(t, "Continuation dismissed", m.minibuffer)
}

func TestVersions_RestoreAsksWhenDirty(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)

	m = press(t, m, " draft", "esc", "v")
	require.Equal(t, modalVersions, m.modal)
	require.Len(t, m.versions, 1)

	m = press(t, m, "enter")
	require.Equal(t, modalConfirm, m.modal)

	// Cancelling returns to the picker with the draft untouched.
	m = press(t, m, "n")
	assert.Equal(t, modalVersions, m.modal)
	assert.Equal(t, "Chapter 1 draft", m.textarea.Value())

	m = press(t, m, "enter", "y")
	assert.Equal(t, modalNone, m.modal)
	assert.Equal(t, "Chapter 1", m.textarea.Value())
	assert.Equal(t, "Restored version 1 (unsaved; ctrl+s to save)", m.minibuffer)
}

func TestVersions_EscLeavesBrowsing(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)

	m = press(t, m, "esc", "v", "esc")

	assert.Equal(t, modalNone, m.modal)
	assert.Equal(t, "idle", m.ed.State().String())
}

func TestBack_WithUnsavedEditsConfirmsFirst(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)

	m = press(t, m, "!", "esc", "q")
	require.Equal(t, modalConfirm, m.modal)
	m = press(t, m, "n")
	assert.Equal(t, viewEditor, m.view)

	m = press(t, m, "q", "y")
	assert.Equal(t, viewProjects, m.view)
	assert.Nil(t, m.ed)
}

func TestSessionExpired_SwitchesToLoginAndKeepsDraft(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)
	m = press(t, m, " kept")

	f.srv.RevokeTokens()
	m = press(t, m, "ctrl+s")

	assert.Equal(t, viewLogin, m.view)
	assert.Contains(t, m.minibuffer, "Session expired")
	assert.False(t, f.deps.Session.LoggedIn())
	require.NotNil(t, m.ed)
	assert.Equal(t, "Chapter 1 kept", m.ed.Draft())

	m = press(t, m, "writer", "enter", "secret", "enter")
	assert.Equal(t, viewEditor, m.view)
	assert.Equal(t, "Chapter 1 kept", m.textarea.Value())
}

func TestProjects_CreateAndDelete(t *testing.T) {
	f := newFixture(t, true)
	m := f.model(t)

	m = press(t, m, "n")
	require.Equal(t, modalInput, m.modal)
	m = press(t, m, "Beacon", "enter")
	require.False(t, m.minibufferErr, m.minibuffer)
	require.Len(t, m.projectsList.Items(), 2)
	p, ok := m.selectedProject()
	require.True(t, ok)
	assert.Equal(t, "Beacon", p.Title)

	m = press(t, m, "d")
	require.Equal(t, modalConfirm, m.modal)
	assert.Equal(t, confirmFocusCancel, m.confirm.focus)
	m = press(t, m, "y")
	assert.Len(t, m.projectsList.Items(), 1)
	assert.Equal(t, `Deleted "Beacon"`, m.minibuffer)
}

func TestProjects_BlankTitleIsRejectedLocally(t *testing.T) {
	f := newFixture(t, true)
	m := f.model(t)

	m = press(t, m, "n", "   ", "enter")

	assert.True(t, m.minibufferErr)
	assert.Equal(t, "Project title is required", m.minibuffer)
	assert.Len(t, m.projectsList.Items(), 1)
}

func TestOpenMissingProject_ReportsNotFound(t *testing.T) {
	f := newFixture(t, true)
	f.deps.ProjectID = 999
	m := f.model(t)

	assert.Equal(t, viewProjects, m.view)
	assert.Equal(t, "Project 999 not found", m.minibuffer)
}

func TestExport_WritesTxtIntoExportDir(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)

	m = press(t, m, "esc", "o")
	require.Equal(t, modalInput, m.modal)
	m = press(t, m, "enter")

	require.False(t, m.minibufferErr, m.minibuffer)
	assert.Contains(t, m.minibuffer, "Atlas.txt")
}

func TestUIState_ReopensLastProject(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)
	m = press(t, m, "esc", "t")
	m.shutdown()

	st, err := f.deps.Store.LoadTUIState()
	require.NoError(t, err)
	assert.Equal(t, stateViewEditor, st.View)
	assert.Equal(t, f.project.ID, st.SelectedProjectID)
	assert.Equal(t, string(model.StyleSciFi), st.Style)

	again := f.model(t)
	assert.Equal(t, viewEditor, again.view)
	assert.Equal(t, model.StyleSciFi, again.style)
}

func TestEditor_ResultsFromAClosedEditorAreIgnored(t *testing.T) {
	f := newFixture(t, true)
	m := openAtlas(t, f)

	old := m.ed
	require.NoError(t, old.Edit("Chapter 1\n\nLeft in a hurry"))
	saved := saveCmd(m.ctx, old)()
	m = drain(t, m, m.leaveEditor())
	require.Equal(t, viewProjects, m.view)
	require.Nil(t, m.ed)

	var next tea.Model
	assert.NotPanics(t, func() { next, _ = m.Update(saved) })
	m = next.(appModel)
	assert.Equal(t, viewProjects, m.view)
	assert.NotContains(t, m.minibuffer, "Saved")

	// A different editor is open now; the old results still do not apply.
	m = press(t, m, "enter")
	require.Equal(t, viewEditor, m.view)
	require.NotSame(t, old, m.ed)
	m.minibuffer = ""
	for _, msg := range []tea.Msg{
		saved,
		importedMsg{ed: old, file: "late.txt"},
		generatedMsg{ed: old, res: model.GenerationResult{Content: "ghost"}},
	} {
		next, _ = m.Update(msg)
		m = next.(appModel)
	}
	assert.Empty(t, m.minibuffer)
	assert.Nil(t, m.ed.Snapshot().Result)
	assert.Equal(t, opNone, m.pending)
}
