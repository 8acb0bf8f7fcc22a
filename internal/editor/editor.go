// Package editor drives one project's outline editing session: load, local
// edits, save-as-version, import/export, version restore and AI continuation.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/continuation"
	"plotline-cli/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type API interface {
	GetProject(ctx context.Context, id int) (model.Project, error)
	GetOutline(ctx context.Context, projectID int) (model.Outline, error)
	Versions(ctx context.Context, projectID, limit int) ([]model.Version, error)
	SaveOutline(ctx context.Context, projectID int, content string) error
	ParseOutlineFile(ctx context.Context, projectID int, filename string, r io.Reader, progress apiclient.ProgressFunc) (model.ParsedFile, error)
	Export(ctx context.Context, projectID int, format string) (model.ExportResult, error)
}

type Generator interface {
	Generate(ctx context.Context, projectID int, req model.GenerationRequest) (model.GenerationResult, error)
}

// Confirmer asks the user a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Snapshot is a read-only copy of the editor for rendering.
type Snapshot struct {
	State          State
	ProjectID      int
	Project        model.Project
	Draft          string
	Saved          string
	Dirty          bool
	OutlineMissing bool
	Versions       []model.Version
	Result         *model.GenerationResult
	Request        model.GenerationRequest
	Progress       int
	Err            error
	Warnings       []string
}

type Option func(*Editor)

// WithVersionLimit sets how many versions to request; 0 uses the server default.
func WithVersionLimit(n int) Option {
	return func(e *Editor) { e.versionLimit = n }
}

type Editor struct {
	api          API
	gen          Generator
	logger       *zap.Logger
	versionLimit int

	mu             sync.Mutex
	state          State
	loaded         bool
	closed         bool
	projectID      int
	project        model.Project
	draft          string
	saved          string
	outlineMissing bool
	versions       []model.Version
	result         *model.GenerationResult
	request        model.GenerationRequest
	progress       int
	lastErr        error
	warnings       []string

	seq       uint64
	cancelGen context.CancelFunc
}

func New(api API, gen Generator, logger *zap.Logger, opts ...Option) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Editor{api: api, gen: gen, logger: logger.Named("editor")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a consistent copy of the editor state.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		State:          e.state,
		ProjectID:      e.projectID,
		Project:        e.project,
		Draft:          e.draft,
		Saved:          e.saved,
		Dirty:          e.draft != e.saved,
		OutlineMissing: e.outlineMissing,
		Versions:       append([]model.Version(nil), e.versions...),
		Request:        e.request,
		Progress:       e.progress,
		Err:            e.lastErr,
		Warnings:       append([]string(nil), e.warnings...),
	}
	if e.result != nil {
		r := *e.result
		s.Result = &r
	}
	return s
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft != e.saved
}

func (e *Editor) Warnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.warnings...)
}

// checkLocked validates that op may start now. Caller holds e.mu.
func (e *Editor) checkLocked(op string, allowed ...State) error {
	if e.closed {
		return ErrClosed
	}
	if !e.loaded && op != "load" {
		return ErrNotLoaded
	}
	for _, s := range allowed {
		if e.state == s {
			return nil
		}
	}
	return &BusyError{Op: op, State: e.state}
}

func (e *Editor) setErrLocked(err error) error {
	e.lastErr = err
	return err
}

// Load fetches project metadata, outline and versions concurrently. The
// metadata fetch is a hard dependency; the other two only add warnings. A
// missing outline is an empty draft.
func (e *Editor) Load(ctx context.Context, projectID int) error {
	e.mu.Lock()
	if err := e.checkLocked("load", StateIdle, StateError); err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = StateLoading
	e.seq++
	seq := e.seq
	e.mu.Unlock()

	var (
		project     model.Project
		outline     model.Outline
		versions    []model.Version
		outlineErr  error
		versionsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.api.GetProject(gctx, projectID)
		if err != nil {
			return err
		}
		project = p
		return nil
	})
	g.Go(func() error {
		outline, outlineErr = e.api.GetOutline(gctx, projectID)
		return nil
	})
	g.Go(func() error {
		versions, versionsErr = e.api.Versions(gctx, projectID, e.versionLimit)
		return nil
	})
	projectErr := g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if seq != e.seq {
		return ErrSuperseded
	}

	if projectErr != nil {
		e.state = StateError
		e.logger.Warn("load aborted", zap.Int("project_id", projectID), zap.Error(projectErr))
		return e.setErrLocked(&LoadError{
			ProjectID: projectID,
			Message:   apiclient.Message(projectErr, "failed to load project"),
			Err:       projectErr,
		})
	}

	e.projectID = projectID
	e.project = project
	e.loaded = true
	e.warnings = nil
	e.outlineMissing = false
	e.result = nil
	e.lastErr = nil
	e.progress = 0

	content := ""
	switch {
	case outlineErr == nil:
		content = outline.Content
		e.outlineMissing = strings.TrimSpace(content) == "" && outline.ID == 0
	case apiclient.IsNotFound(outlineErr):
		e.outlineMissing = true
	default:
		e.warnings = append(e.warnings, "outline: "+apiclient.Message(outlineErr, "failed to load outline"))
	}
	e.draft, e.saved = content, content

	if versionsErr != nil {
		e.versions = nil
		e.warnings = append(e.warnings, "versions: "+apiclient.Message(versionsErr, "failed to load version history"))
	} else {
		e.versions = sortVersions(versions)
	}

	e.state = StateIdle
	return nil
}

// Edit replaces the draft. It is allowed while a save or generation is in flight.
func (e *Editor) Edit(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked("edit", StateIdle, StateSaving, StateGenerating, StateVersionBrowsing); err != nil {
		return err
	}
	e.draft = text
	return nil
}

// Save persists the draft as a new version and refreshes project + history.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if err := e.checkLocked("save", StateIdle); err != nil {
		e.mu.Unlock()
		return err
	}
	content := e.draft
	if strings.TrimSpace(content) == "" {
		e.mu.Unlock()
		return model.Invalid("content", "outline is empty; nothing to save")
	}
	id := e.projectID
	e.state = StateSaving
	e.mu.Unlock()

	err := e.api.SaveOutline(ctx, id, content)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		e.state = StateIdle
		e.logger.Warn("save failed", zap.Int("project_id", id), zap.Error(err))
		err = e.setErrLocked(apiclient.Wrap("save", "failed to save outline, please retry", err))
		e.mu.Unlock()
		return err
	}
	e.saved = content
	e.outlineMissing = false
	e.project.LastEditedAt = model.Now()
	e.lastErr = nil
	e.mu.Unlock()

	e.refreshAfterSave(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	// The version exists on the server, but nobody is left to show it.
	if e.closed {
		return ErrClosed
	}
	e.state = StateIdle
	return nil
}

func (e *Editor) refreshAfterSave(ctx context.Context, id int) {
	var (
		project     model.Project
		versions    []model.Version
		projectErr  error
		versionsErr error
		g           errgroup.Group
	)
	g.Go(func() error {
		project, projectErr = e.api.GetProject(ctx, id)
		return nil
	})
	g.Go(func() error {
		versions, versionsErr = e.api.Versions(ctx, id, e.versionLimit)
		return nil
	})
	_ = g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if projectErr == nil {
		optimistic := e.project.LastEditedAt
		e.project = project
		if !e.project.LastEditedAt.IsSet() {
			e.project.LastEditedAt = optimistic
		}
	} else {
		e.warnings = append(e.warnings, "refresh: "+apiclient.Message(projectErr, "failed to refresh project"))
	}
	if versionsErr == nil {
		e.versions = sortVersions(versions)
	} else {
		e.warnings = append(e.warnings, "refresh: "+apiclient.Message(versionsErr, "failed to refresh version history"))
	}
}

// ImportableExt reports whether the server parser accepts the file name.
func ImportableExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".docx":
		return true
	default:
		return false
	}
}

// Import uploads a .txt/.docx file to the parser and replaces the whole draft
// with the result. progress may be nil.
func (e *Editor) Import(ctx context.Context, filename string, r io.Reader, progress apiclient.ProgressFunc) error {
	if !ImportableExt(filename) {
		return model.Invalid("file", "only .txt and .docx files can be imported")
	}
	e.mu.Lock()
	if err := e.checkLocked("import", StateIdle); err != nil {
		e.mu.Unlock()
		return err
	}
	id := e.projectID
	e.state = StateImporting
	e.progress = 0
	e.mu.Unlock()

	parsed, err := e.api.ParseOutlineFile(ctx, id, filepath.Base(filename), r, func(p int) {
		e.mu.Lock()
		e.progress = p
		e.mu.Unlock()
		if progress != nil {
			progress(p)
		}
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.state = StateIdle
	if err != nil {
		return e.setErrLocked(apiclient.Wrap("import", "failed to import file", err))
	}
	e.draft = parsed.Content
	e.progress = 100
	e.lastErr = nil
	return nil
}

// ExportFormats lists the formats the server can render.
var ExportFormats = []string{"txt", "docx", "pdf"}

// Export asks the server to render the saved outline and returns its URL.
func (e *Editor) Export(ctx context.Context, format string) (model.ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "txt"
	}
	valid := false
	for _, f := range ExportFormats {
		valid = valid || f == format
	}
	if !valid {
		return model.ExportResult{}, model.Invalid("format", fmt.Sprintf("unsupported export format %q", format))
	}
	e.mu.Lock()
	if err := e.checkLocked("export", StateIdle, StateVersionBrowsing, StateGenerating); err != nil {
		e.mu.Unlock()
		return model.ExportResult{}, err
	}
	id := e.projectID
	e.mu.Unlock()

	res, err := e.api.Export(ctx, id, format)
	if err != nil {
		return model.ExportResult{}, apiclient.Wrap("export", "failed to export outline", err)
	}
	return res, nil
}

// BrowseVersions enters the version picker and returns the history.
func (e *Editor) BrowseVersions() ([]model.Version, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked("browse versions", StateIdle, StateVersionBrowsing); err != nil {
		return nil, err
	}
	e.state = StateVersionBrowsing
	return append([]model.Version(nil), e.versions...), nil
}

// CancelBrowse leaves the version picker without changing the draft.
func (e *Editor) CancelBrowse() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateVersionBrowsing {
		e.state = StateIdle
	}
}

// Restore replaces the draft with a version's full content. With unsaved
// edits, confirm must agree first; a nil confirm then yields ErrUnsavedChanges.
// Restoring never creates a version; the next Save does.
func (e *Editor) Restore(ctx context.Context, versionID int, confirm Confirmer) error {
	e.mu.Lock()
	if err := e.checkLocked("restore", StateIdle, StateVersionBrowsing); err != nil {
		e.mu.Unlock()
		return err
	}
	v, ok := findVersion(e.versions, versionID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrVersionNotFound, versionID)
	}
	dirty := e.draft != e.saved && e.draft != v.Content
	e.mu.Unlock()

	if dirty {
		if confirm == nil {
			return ErrUnsavedChanges
		}
		ok, err := confirm.Confirm(ctx, fmt.Sprintf("Discard unsaved edits and restore version %d?", v.VersionNumber))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotConfirmed
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked("restore", StateIdle, StateVersionBrowsing); err != nil {
		return err
	}
	e.draft = v.Content
	e.state = StateIdle
	return nil
}

// Generate requests a continuation of the current draft. A newer Generate
// cancels and supersedes an in-flight one; a superseded or cancelled call
// returns without touching state.
func (e *Editor) Generate(ctx context.Context, req model.GenerationRequest) (model.GenerationResult, error) {
	e.mu.Lock()
	if err := e.checkLocked("generate", StateIdle, StateGenerating); err != nil {
		e.mu.Unlock()
		return model.GenerationResult{}, err
	}
	req.Content = e.draft
	req, err := continuation.Normalize(req)
	if err != nil {
		e.mu.Unlock()
		return model.GenerationResult{}, err
	}
	if e.cancelGen != nil {
		e.cancelGen()
	}
	e.seq++
	seq := e.seq
	genCtx, cancel := context.WithCancel(ctx)
	e.cancelGen = cancel
	e.state = StateGenerating
	e.result = nil
	e.request = req
	id := e.projectID
	e.mu.Unlock()

	res, err := e.gen.Generate(genCtx, id, req)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return model.GenerationResult{}, ErrClosed
	}
	if seq != e.seq {
		return model.GenerationResult{}, ErrSuperseded
	}
	e.cancelGen = nil
	e.state = StateIdle
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return model.GenerationResult{}, err
		}
		e.logger.Warn("generation failed", zap.Int("project_id", id), zap.Error(err))
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			return model.GenerationResult{}, e.setErrLocked(err)
		}
		return model.GenerationResult{}, e.setErrLocked(apiclient.Wrap("generate", "AI generation failed, please retry", err))
	}
	e.result = &res
	e.lastErr = nil
	return res, nil
}

// CancelGenerate abandons the in-flight generation, if any.
func (e *Editor) CancelGenerate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateGenerating {
		return false
	}
	if e.cancelGen != nil {
		e.cancelGen()
		e.cancelGen = nil
	}
	e.seq++
	e.state = StateIdle
	return true
}

// Adopt appends the pending result to the draft, separated by a blank line,
// and clears it.
func (e *Editor) Adopt() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked("adopt", StateIdle); err != nil {
		return err
	}
	if e.result == nil {
		return ErrNoResult
	}
	e.draft = e.draft + "\n\n" + e.result.Content
	e.result = nil
	return nil
}

// Dismiss discards the pending result. It reports whether there was one.
func (e *Editor) Dismiss() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	had := e.result != nil
	e.result = nil
	return had
}

// Close tears the session down; late responses are dropped.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.cancelGen != nil {
		e.cancelGen()
		e.cancelGen = nil
	}
	e.seq++
}

func findVersion(vs []model.Version, id int) (model.Version, bool) {
	for _, v := range vs {
		if v.ID == id {
			return v, true
		}
	}
	return model.Version{}, false
}

// sortVersions orders newest first.
func sortVersions(vs []model.Version) []model.Version {
	out := append([]model.Version(nil), vs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out
}
