package tui

import (
	"plotline-cli/internal/model"
	"plotline-cli/internal/store"

	"go.uber.org/zap"
)

const (
	stateViewProjects = "projects"
	stateViewEditor   = "editor"
)

func (m *appModel) loadUIState() {
	st, err := m.deps.Store.LoadTUIState()
	if err != nil {
		m.logger.Debug("tui state unavailable", zap.Error(err))
		st = &store.TUIState{Version: 1}
	}
	m.uiState = st

	if s, err := model.ParseStyle(st.Style); err == nil {
		m.style = s
	}
	if st.WordLimit >= model.MinWordLimit && st.WordLimit <= model.MaxWordLimit {
		m.words = st.WordLimit
	}
	m.showPreview = st.ShowPreview
}

// saveUIState is best effort; a failed write only costs the next launch its
// restored screen.
func (m *appModel) saveUIState() {
	if m.uiState == nil {
		return
	}
	st := m.uiState
	st.View = stateViewProjects
	if m.view == viewEditor && m.ed != nil {
		st.View = stateViewEditor
	}
	if m.selectedProjectID > 0 {
		st.SelectedProjectID = m.selectedProjectID
	}
	st.Search = m.projectsList.FilterValue()
	st.Style = string(m.style)
	st.WordLimit = m.words
	st.ShowPreview = m.showPreview
	if err := m.deps.Store.SaveTUIState(st); err != nil {
		m.logger.Debug("failed to save tui state", zap.Error(err))
	}
}

// restoreProjectID picks the project to reopen at startup, if any.
func (m *appModel) restoreProjectID() int {
	if m.deps.ProjectID > 0 {
		return m.deps.ProjectID
	}
	if m.uiState != nil && m.uiState.View == stateViewEditor {
		return m.uiState.SelectedProjectID
	}
	return 0
}
