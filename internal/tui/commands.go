package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"plotline-cli/internal/dashboard"
	"plotline-cli/internal/editor"
	"plotline-cli/internal/model"
	"plotline-cli/internal/publish"

	tea "github.com/charmbracelet/bubbletea"
)

type siteLoadedMsg struct{}

type loginDoneMsg struct {
	user model.User
	err  error
}

type projectsLoadedMsg struct {
	projects []model.Project
	err      error
}

type projectMutatedMsg struct {
	verb    string
	project model.Project
	err     error
}

type editorOpenedMsg struct {
	projectID int
	ed        *editor.Editor
	err       error
}

type savedMsg struct {
	ed  *editor.Editor
	err error
}

type generatedMsg struct {
	ed  *editor.Editor
	res model.GenerationResult
	err error
}

type importedMsg struct {
	ed   *editor.Editor
	file string
	err  error
}

type exportedMsg struct {
	path string
	err  error
}

// refreshSiteCmd refreshes the cached status and notice. Failures keep the
// cached values.
func refreshSiteCmd(ctx context.Context, d Deps) tea.Cmd {
	if d.Session == nil || d.API == nil {
		return nil
	}
	return func() tea.Msg {
		_, _ = d.Session.RefreshStatus(ctx, d.API)
		_, _ = d.Session.RefreshNotice(ctx, d.API)
		return siteLoadedMsg{}
	}
}

func loginCmd(ctx context.Context, d Deps, username, password string) tea.Cmd {
	return func() tea.Msg {
		u, err := d.Session.Login(ctx, d.API, username, password)
		return loginDoneMsg{user: u, err: err}
	}
}

func loadProjectsCmd(ctx context.Context, ds *dashboard.Store) tea.Cmd {
	if ds == nil {
		return nil
	}
	return func() tea.Msg {
		ps, err := ds.List(ctx)
		return projectsLoadedMsg{projects: ps, err: err}
	}
}

func createProjectCmd(ctx context.Context, ds *dashboard.Store, title string) tea.Cmd {
	return func() tea.Msg {
		p, err := ds.Create(ctx, model.ProjectInput{Title: title})
		return projectMutatedMsg{verb: "Created", project: p, err: err}
	}
}

func deleteProjectCmd(ctx context.Context, ds *dashboard.Store, p model.Project) tea.Cmd {
	return func() tea.Msg {
		err := ds.Delete(ctx, p.ID, dashboard.AlwaysConfirm)
		return projectMutatedMsg{verb: "Deleted", project: p, err: err}
	}
}

func openProjectCmd(ctx context.Context, d Deps, id int) tea.Cmd {
	return func() tea.Msg {
		ed := editor.New(d.API, d.Generator, d.Logger)
		if err := ed.Load(ctx, id); err != nil {
			ed.Close()
			return editorOpenedMsg{projectID: id, err: err}
		}
		return editorOpenedMsg{projectID: id, ed: ed}
	}
}

func saveCmd(ctx context.Context, ed *editor.Editor) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{ed: ed, err: ed.Save(ctx)}
	}
}

func generateCmd(ctx context.Context, ed *editor.Editor, req model.GenerationRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := ed.Generate(ctx, req)
		return generatedMsg{ed: ed, res: res, err: err}
	}
}

func importCmd(ctx context.Context, ed *editor.Editor, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importedMsg{ed: ed, file: path, err: err}
		}
		defer f.Close()
		return importedMsg{ed: ed, file: path, err: ed.Import(ctx, path, f, nil)}
	}
}

// exportCmd writes the outline into dir. md is rendered locally from the saved
// content; the other formats are rendered by the server and downloaded.
func exportCmd(ctx context.Context, d Deps, ed *editor.Editor, format, dir string) tea.Cmd {
	return func() tea.Msg {
		s := ed.Snapshot()
		opt := publish.WriteOptions{Overwrite: true}
		if format == "md" {
			res, err := publish.WriteMarkdown(s.Project, s.Saved, dir, publish.RenderOptions{Versions: s.Versions}, opt)
			if err != nil {
				return exportedMsg{err: err}
			}
			return exportedMsg{path: firstWritten(res)}
		}
		exp, err := ed.Export(ctx, format)
		if err != nil {
			return exportedMsg{err: err}
		}
		res, err := publish.WriteExport(ctx, d.API, exp, dir, publish.FileName(s.Project, format), opt)
		if err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{path: firstWritten(res)}
	}
}

func firstWritten(res publish.WriteResult) string {
	if len(res.Written) == 0 {
		return ""
	}
	return res.Written[0]
}

func exportDir(d Deps) string {
	if d.Config != nil && strings.TrimSpace(d.Config.Export.Dir) != "" {
		return d.Config.Export.Dir
	}
	return "."
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func exportFormats() string {
	return fmt.Sprintf("%s|md", strings.Join(editor.ExportFormats, "|"))
}
