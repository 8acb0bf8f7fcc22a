// Package dashboard keeps the project list for the logged-in user.
//
// Every mutation refetches the full list on success; nothing is inserted
// optimistically, and the cached list is untouched when a call fails.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/model"

	"go.uber.org/zap"
)

type API interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	CreateProject(ctx context.Context, in model.ProjectInput) (model.Project, error)
	UpdateProject(ctx context.Context, id int, in model.ProjectInput) (model.Project, error)
	DeleteProject(ctx context.Context, id int) error
}

// Confirmer asks the user a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a func to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// AlwaysConfirm answers yes; used by `--yes`.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Navigator receives "open this project" requests.
type Navigator interface {
	OpenProject(id int)
}

// ErrNotConfirmed is returned when the user declines a confirmation.
var ErrNotConfirmed = errors.New("cancelled")

type Store struct {
	api    API
	logger *zap.Logger

	mu       sync.RWMutex
	projects []model.Project
	loaded   bool
}

func New(api API, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{api: api, logger: logger.Named("dashboard")}
}

// Projects returns a copy of the last fetched list.
func (s *Store) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Project(nil), s.projects...)
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Find looks up a cached project.
func (s *Store) Find(id int) (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}

// List fetches the full project list.
func (s *Store) List(ctx context.Context) ([]model.Project, error) {
	ps, err := s.api.ListProjects(ctx)
	if err != nil {
		s.logger.Warn("list projects failed", zap.Error(err))
		return nil, apiclient.Wrap("list", "failed to load projects, please retry", err)
	}
	if ps == nil {
		ps = []model.Project{}
	}
	s.mu.Lock()
	s.projects = ps
	s.loaded = true
	s.mu.Unlock()
	return append([]model.Project(nil), ps...), nil
}

// Filter matches term against the cached list. It never calls the backend.
func (s *Store) Filter(term string) []model.Project {
	return Filter(s.Projects(), term)
}

// Filter returns the projects whose title, description or genre contains term,
// case-insensitively. Only the empty term matches everything; whitespace is
// matched literally like any other character.
func Filter(projects []model.Project, term string) []model.Project {
	term = strings.ToLower(term)
	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(strings.ToLower(p.Genre), term) {
			out = append(out, p)
		}
	}
	return out
}

func validate(in model.ProjectInput) (model.ProjectInput, error) {
	in = in.Normalized()
	if in.Title == "" {
		return in, model.Invalid("title", "title is required")
	}
	return in, nil
}

func (s *Store) Create(ctx context.Context, in model.ProjectInput) (model.Project, error) {
	in, err := validate(in)
	if err != nil {
		return model.Project{}, err
	}
	p, err := s.api.CreateProject(ctx, in)
	if err != nil {
		return model.Project{}, apiclient.Wrap("create", "failed to create project", err)
	}
	s.logger.Info("project created", zap.Int("project_id", p.ID))
	return p, s.refetch(ctx)
}

func (s *Store) Update(ctx context.Context, id int, in model.ProjectInput) (model.Project, error) {
	in, err := validate(in)
	if err != nil {
		return model.Project{}, err
	}
	p, err := s.api.UpdateProject(ctx, id, in)
	if err != nil {
		return model.Project{}, apiclient.Wrap("update", "failed to update project", err)
	}
	return p, s.refetch(ctx)
}

// Delete removes a project after the confirmer agrees. A declined
// confirmation returns ErrNotConfirmed and sends nothing.
func (s *Store) Delete(ctx context.Context, id int, confirm Confirmer) error {
	if confirm == nil {
		return errors.New("delete requires a confirmation step")
	}
	title := fmt.Sprintf("#%d", id)
	if p, ok := s.Find(id); ok {
		title = fmt.Sprintf("%q", p.Title)
	}
	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Delete project %s? This cannot be undone.", title))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}
	if err := s.api.DeleteProject(ctx, id); err != nil {
		return apiclient.Wrap("delete", "failed to delete project", err)
	}
	s.logger.Info("project deleted", zap.Int("project_id", id))
	return s.refetch(ctx)
}

// Open hands id to the navigator. No network call.
func (s *Store) Open(id int, nav Navigator) error {
	if nav == nil {
		return errors.New("no navigator")
	}
	nav.OpenProject(id)
	return nil
}

func (s *Store) refetch(ctx context.Context) error {
	if _, err := s.List(ctx); err != nil {
		return fmt.Errorf("saved, but refreshing the project list failed: %w", err)
	}
	return nil
}
