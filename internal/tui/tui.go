// Package tui is the interactive terminal UI: login, the project list and the
// outline editor with AI continuation.
package tui

import (
	"context"

	"plotline-cli/internal/config"
	"plotline-cli/internal/dashboard"
	"plotline-cli/internal/editor"
	"plotline-cli/internal/publish"
	"plotline-cli/internal/session"
	"plotline-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// API is the backend surface the UI drives directly.
type API interface {
	session.API
	editor.API
	publish.Downloader
}

type Deps struct {
	Config    *config.Config
	Store     store.Store
	Logger    *zap.Logger
	Session   *session.Session
	API       API
	Dashboard *dashboard.Store
	Generator editor.Generator

	// ProjectID opens this project right away when set.
	ProjectID int
}

func Run(ctx context.Context, d Deps) error {
	applyThemePreference()
	applyColorProfilePreference()

	m := newAppModel(ctx, d)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok {
		fm.shutdown()
	} else {
		m.shutdown()
	}
	return err
}
