package tui

import (
	"fmt"
	"strings"

	"plotline-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

type projectItem struct {
	project model.Project
}

func (i projectItem) Title() string { return i.project.Title }

func (i projectItem) Description() string {
	var parts []string
	if g := strings.TrimSpace(i.project.Genre); g != "" {
		parts = append(parts, g)
	}
	if i.project.LastEditedAt.IsSet() {
		parts = append(parts, "edited "+i.project.LastEditedAt.String())
	} else if i.project.UpdatedAt.IsSet() {
		parts = append(parts, "updated "+i.project.UpdatedAt.String())
	}
	if d := firstLine(i.project.Description); d != "" {
		parts = append(parts, d)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("#%d", i.project.ID)
	}
	return strings.Join(parts, "  ·  ")
}

// FilterValue matches the same fields as `projects list --search`.
func (i projectItem) FilterValue() string {
	return i.project.Title + " " + i.project.Description + " " + i.project.Genre
}

func newProjectList() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Projects"
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	return l
}

func projectItems(ps []model.Project) []list.Item {
	items := make([]list.Item, 0, len(ps))
	for _, p := range ps {
		items = append(items, projectItem{project: p})
	}
	return items
}

func (m *appModel) selectedProject() (model.Project, bool) {
	it, ok := m.projectsList.SelectedItem().(projectItem)
	if !ok {
		return model.Project{}, false
	}
	return it.project, true
}

func (m *appModel) selectProject(id int) {
	for i, it := range m.projectsList.Items() {
		if pi, ok := it.(projectItem); ok && pi.project.ID == id {
			m.projectsList.Select(i)
			return
		}
	}
}

func (m appModel) updateProjects(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the filter prompt is open every key belongs to the list.
	if m.projectsList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.projectsList, cmd = m.projectsList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit
	case "enter":
		p, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		var nav openRequest
		if err := m.deps.Dashboard.Open(p.ID, &nav); err != nil {
			m.flashErr(err.Error())
			return m, nil
		}
		return m.openProject(nav.id)
	case "n":
		m.openInput("New project", "Title", "", func(m *appModel, v string) tea.Cmd {
			v = strings.TrimSpace(v)
			if v == "" {
				m.flashErr("Project title is required")
				return nil
			}
			tick, ok := m.start(opCreate, "Creating project...")
			if !ok {
				return nil
			}
			return tea.Batch(tick, createProjectCmd(m.ctx, m.deps.Dashboard, v))
		})
		cmd := m.input.field.Focus()
		return m, cmd
	case "d":
		p, ok := m.selectedProject()
		if !ok {
			return m, nil
		}
		m.openConfirm("Delete project",
			fmt.Sprintf("Delete %q and its outline history? This cannot be undone.", p.Title),
			"Delete",
			func(m *appModel) tea.Cmd {
				tick, ok := m.start(opDelete, "Deleting project...")
				if !ok {
					return nil
				}
				return tea.Batch(tick, deleteProjectCmd(m.ctx, m.deps.Dashboard, p))
			})
		return m, nil
	case "r":
		tick, ok := m.start(opProjects, "Loading projects...")
		if !ok {
			return m, nil
		}
		return m, tea.Batch(tick, loadProjectsCmd(m.ctx, m.deps.Dashboard), refreshSiteCmd(m.ctx, m.deps))
	case "L":
		m.openConfirm("Log out", "Sign out of this device?", "Log out", func(m *appModel) tea.Cmd {
			if err := m.deps.Session.Logout(m.ctx, m.deps.API); err != nil {
				m.logger.Warn("logout request failed")
			}
			if m.ed != nil {
				m.ed.Close()
				m.ed = nil
			}
			m.projectsList.SetItems(nil)
			m.toLogin("")
			m.flash("Logged out")
			return nil
		})
		return m, nil
	}

	var cmd tea.Cmd
	m.projectsList, cmd = m.projectsList.Update(msg)
	return m, cmd
}

// openRequest records the project the dashboard navigated to.
type openRequest struct{ id int }

func (r *openRequest) OpenProject(id int) { r.id = id }

func (m appModel) openProject(id int) (tea.Model, tea.Cmd) {
	tick, ok := m.start(opOpen, "Opening project...")
	if !ok {
		return m, nil
	}
	return m, tea.Batch(tick, openProjectCmd(m.ctx, m.deps, id))
}

func (m appModel) handleProjectsLoaded(msg projectsLoadedMsg) (tea.Model, tea.Cmd) {
	m.finish(opProjects)
	if msg.err != nil {
		m.reportErr(msg.err)
		return m, nil
	}
	cmd := m.projectsList.SetItems(projectItems(msg.projects))
	if m.selectedProjectID > 0 {
		m.selectProject(m.selectedProjectID)
	} else if m.uiState != nil && m.uiState.SelectedProjectID > 0 {
		m.selectProject(m.uiState.SelectedProjectID)
	}
	return m, cmd
}

func (m appModel) handleProjectMutated(msg projectMutatedMsg) (tea.Model, tea.Cmd) {
	m.finish(opCreate)
	m.finish(opDelete)
	if msg.err != nil {
		m.reportErr(msg.err)
		return m, nil
	}
	// The dashboard refetched after the mutation; render what it holds now.
	cmd := m.projectsList.SetItems(projectItems(m.deps.Dashboard.Projects()))
	if msg.verb == "Created" {
		m.selectProject(msg.project.ID)
	}
	if msg.verb == "Deleted" && m.selectedProjectID == msg.project.ID {
		m.selectedProjectID = 0
	}
	m.flash(fmt.Sprintf("%s %q", msg.verb, msg.project.Title))
	return m, cmd
}

func (m *appModel) viewProjects() string {
	help := styleMuted().Render("enter: open   n: new   d: delete   /: filter   r: refresh   L: log out   q: quit")
	if len(m.projectsList.Items()) == 0 && !m.busy() {
		return strings.Join([]string{
			styleHeader().Render("Projects"),
			"",
			styleMuted().Render("No projects yet. Press n to create one."),
			"",
			help,
		}, "\n")
	}
	return m.projectsList.View() + "\n" + help
}
