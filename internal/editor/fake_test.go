package editor

import (
	"context"
	"io"
	"strings"
	"sync"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/model"
)

// memAPI mimics the backend: every save appends a version.
type memAPI struct {
	mu        sync.Mutex
	project   model.Project
	outline   *model.Outline
	versions  []model.Version
	nextVerID int

	projectErr  error
	outlineErr  error
	versionsErr error
	saveErr     error
	parseErr    error

	saveCalls    int
	projectCalls int

	// onVersions runs before each versions fetch, outside the lock.
	onVersions func()
}

func newMemAPI(id int) *memAPI {
	return &memAPI{project: model.Project{ID: id, Title: "Dragon Road", CreatedAt: model.Now()}}
}

func (m *memAPI) GetProject(ctx context.Context, id int) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectCalls++
	if m.projectErr != nil {
		return model.Project{}, m.projectErr
	}
	return m.project, nil
}

func (m *memAPI) GetOutline(ctx context.Context, id int) (model.Outline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outlineErr != nil {
		return model.Outline{}, m.outlineErr
	}
	if m.outline == nil {
		return model.Outline{}, &apiclient.StatusError{Status: 404, Message: "outline not found"}
	}
	return *m.outline, nil
}

func (m *memAPI) Versions(ctx context.Context, id, limit int) ([]model.Version, error) {
	m.mu.Lock()
	hook := m.onVersions
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versionsErr != nil {
		return nil, m.versionsErr
	}
	return append([]model.Version(nil), m.versions...), nil
}

func (m *memAPI) SaveOutline(ctx context.Context, id int, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.nextVerID++
	n := len(m.versions) + 1
	m.versions = append(m.versions, model.Version{ID: 100 + m.nextVerID, VersionNumber: n, Content: content, CreatedAt: model.Now()})
	m.outline = &model.Outline{ID: 1, ProjectID: id, Content: content, CurrentVersion: n}
	return nil
}

func (m *memAPI) ParseOutlineFile(ctx context.Context, id int, filename string, r io.Reader, progress apiclient.ProgressFunc) (model.ParsedFile, error) {
	if m.parseErr != nil {
		return model.ParsedFile{}, m.parseErr
	}
	b, _ := io.ReadAll(r)
	if progress != nil {
		progress(50)
		progress(100)
	}
	return model.ParsedFile{Content: strings.TrimSpace(string(b)), Filename: filename}, nil
}

func (m *memAPI) Export(ctx context.Context, id int, format string) (model.ExportResult, error) {
	return model.ExportResult{FileURL: "/upload/outline_1." + format, FileSize: 10}, nil
}

// stubGen answers immediately, or waits on release when set.
type stubGen struct {
	mu      sync.Mutex
	res     model.GenerationResult
	err     error
	release chan struct{}
	started chan struct{}
	calls   int
}

func (g *stubGen) Generate(ctx context.Context, id int, req model.GenerationRequest) (model.GenerationResult, error) {
	g.mu.Lock()
	g.calls++
	release, started := g.release, g.started
	res, err := g.res, g.err
	g.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return model.GenerationResult{}, ctx.Err()
		}
	}
	return res, err
}

type answer bool

func (a answer) Confirm(ctx context.Context, prompt string) (bool, error) { return bool(a), nil }
