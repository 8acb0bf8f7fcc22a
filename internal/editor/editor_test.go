package editor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loaded(t *testing.T, api *memAPI, gen *stubGen) *Editor {
	t.Helper()
	if gen == nil {
		gen = &stubGen{}
	}
	e := New(api, gen, zap.NewNop(), WithVersionLimit(100))
	require.NoError(t, e.Load(context.Background(), api.project.ID))
	return e
}

func TestLoad_MissingOutlineIsEmptyDraftAndFirstSaveIsVersionOne(t *testing.T) {
	api := newMemAPI(7)
	e := loaded(t, api, nil)

	snap := e.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "", snap.Draft)
	assert.True(t, snap.OutlineMissing)
	assert.Nil(t, snap.Err)
	assert.Empty(t, snap.Warnings)

	require.NoError(t, e.Edit("Chapter one: the courier leaves."))
	require.NoError(t, e.Save(context.Background()))

	snap = e.Snapshot()
	require.Len(t, snap.Versions, 1)
	assert.Equal(t, 1, snap.Versions[0].VersionNumber)
	assert.False(t, snap.Dirty)
}

func TestLoad_ProjectFailureAborts(t *testing.T) {
	api := newMemAPI(7)
	api.projectErr = &apiclient.EnvelopeError{Message: "project does not exist"}
	e := New(api, &stubGen{}, zap.NewNop())

	err := e.Load(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProjectUnavailable)
	assert.Contains(t, err.Error(), "project does not exist")
	assert.Equal(t, StateError, e.State())
	assert.ErrorIs(t, e.Edit("x"), ErrNotLoaded)

	// Retrying from the error state is allowed.
	api.projectErr = nil
	require.NoError(t, e.Load(context.Background(), 7))
	assert.Equal(t, StateIdle, e.State())
}

func TestLoad_UnauthorizedProjectStillDetectable(t *testing.T) {
	api := newMemAPI(7)
	api.projectErr = &apiclient.StatusError{Status: 401}
	e := New(api, &stubGen{}, zap.NewNop())
	err := e.Load(context.Background(), 7)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
}

func TestLoad_SoftFailuresBecomeWarnings(t *testing.T) {
	api := newMemAPI(7)
	api.outline = &model.Outline{ID: 1, Content: "kept"}
	api.versionsErr = errors.New("boom")
	e := loaded(t, api, nil)

	snap := e.Snapshot()
	assert.Equal(t, "kept", snap.Draft)
	require.Len(t, snap.Warnings, 1)
	assert.Contains(t, snap.Warnings[0], "failed to load version history")

	api.outlineErr = &apiclient.StatusError{Status: 500, Message: "db down"}
	api.versionsErr = nil
	require.NoError(t, e.Load(context.Background(), 7))
	snap = e.Snapshot()
	assert.Equal(t, "", snap.Draft)
	assert.False(t, snap.OutlineMissing)
	require.Len(t, snap.Warnings, 1)
	assert.Contains(t, snap.Warnings[0], "db down")
}

func TestSave_VersionsAreAppendOnlyAndIncreasing(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)

	const saves = 6
	for i := 1; i <= saves; i++ {
		require.NoError(t, e.Edit(strings.Repeat("beat ", i)))
		require.NoError(t, e.Save(context.Background()))
	}
	snap := e.Snapshot()
	require.Len(t, snap.Versions, saves)
	seen := map[int]bool{}
	for i, v := range snap.Versions {
		assert.False(t, seen[v.VersionNumber], "duplicate version number %d", v.VersionNumber)
		seen[v.VersionNumber] = true
		if i > 0 {
			assert.Less(t, v.VersionNumber, snap.Versions[i-1].VersionNumber, "newest first")
		}
	}
	assert.True(t, snap.Project.LastEditedAt.IsSet())
}

func TestSave_ClosedDuringRefreshReportsClosed(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	require.NoError(t, e.Edit("last words"))

	api.mu.Lock()
	api.onVersions = e.Close
	api.mu.Unlock()

	assert.ErrorIs(t, e.Save(context.Background()), ErrClosed)
	assert.Equal(t, 1, api.saveCalls, "the save itself reached the server")
}

func TestSave_RejectsBlankWithoutNetwork(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	require.NoError(t, e.Edit("  \n\t "))
	err := e.Save(context.Background())
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, api.saveCalls)
	assert.Equal(t, StateIdle, e.State())
}

func TestSave_FailureKeepsDraftAndSurfacesMessageVerbatim(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	require.NoError(t, e.Edit("my precious draft"))
	api.saveErr = &apiclient.EnvelopeError{Message: "quota exceeded"}

	err := e.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", err.Error())

	snap := e.Snapshot()
	assert.Equal(t, "my precious draft", snap.Draft)
	assert.True(t, snap.Dirty)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "quota exceeded", snap.Err.Error())
	assert.Empty(t, snap.Versions)
}

func TestSave_OptimisticLastEditedWhenServerOmitsIt(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	require.False(t, e.Snapshot().Project.LastEditedAt.IsSet())
	require.NoError(t, e.Edit("x"))
	before := time.Now().Add(-time.Second)
	require.NoError(t, e.Save(context.Background()))
	got := e.Snapshot().Project.LastEditedAt
	require.True(t, got.IsSet())
	assert.True(t, got.After(before))
	assert.GreaterOrEqual(t, api.projectCalls, 2, "project refetched after save")
}

func TestRestore_RoundTripCreatesNewVersionOnSave(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	ctx := context.Background()

	require.NoError(t, e.Edit("first draft"))
	require.NoError(t, e.Save(ctx))
	require.NoError(t, e.Edit("second draft"))
	require.NoError(t, e.Save(ctx))

	vs, err := e.BrowseVersions()
	require.NoError(t, err)
	assert.Equal(t, StateVersionBrowsing, e.State())
	var first model.Version
	for _, v := range vs {
		if v.VersionNumber == 1 {
			first = v
		}
	}
	require.NoError(t, e.Restore(ctx, first.ID, nil))
	assert.Equal(t, "first draft", e.Draft())
	assert.Equal(t, StateIdle, e.State())
	assert.Len(t, e.Snapshot().Versions, 2, "restore does not touch history")

	require.NoError(t, e.Save(ctx))
	snap := e.Snapshot()
	require.Len(t, snap.Versions, 3)
	assert.Equal(t, 3, snap.Versions[0].VersionNumber)
	assert.Equal(t, "first draft", snap.Versions[0].Content)
	assert.Equal(t, "second draft", snap.Versions[1].Content)
}

func TestRestore_GuardsUnsavedEdits(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	ctx := context.Background()
	require.NoError(t, e.Edit("v1"))
	require.NoError(t, e.Save(ctx))
	vid := e.Snapshot().Versions[0].ID

	require.NoError(t, e.Edit("unsaved work"))
	assert.ErrorIs(t, e.Restore(ctx, vid, nil), ErrUnsavedChanges)
	assert.ErrorIs(t, e.Restore(ctx, vid, answer(false)), ErrNotConfirmed)
	assert.Equal(t, "unsaved work", e.Draft())

	require.NoError(t, e.Restore(ctx, vid, answer(true)))
	assert.Equal(t, "v1", e.Draft())

	assert.ErrorIs(t, e.Restore(ctx, 999, answer(true)), ErrVersionNotFound)
}

func TestBrowse_CancelLeavesDraft(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	require.NoError(t, e.Edit("draft"))
	_, err := e.BrowseVersions()
	require.NoError(t, err)
	ctx := context.Background()
	assert.ErrorIs(t, e.Save(ctx), ErrBusy)
	e.CancelBrowse()
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, "draft", e.Draft())
}

func TestGenerate_AdoptThenClear(t *testing.T) {
	api := newMemAPI(3)
	gen := &stubGen{res: model.GenerationResult{Content: "The pass was sealed.", TokensUsed: 150}}
	e := loaded(t, api, gen)
	require.NoError(t, e.Edit("The courier rode north."))

	res, err := e.Generate(context.Background(), model.GenerationRequest{Style: model.StyleFantasy, WordLimit: 500})
	require.NoError(t, err)
	assert.Equal(t, 150, res.TokensUsed)
	snap := e.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, "The courier rode north.", snap.Request.Content)
	assert.Equal(t, "The courier rode north.", snap.Draft, "result is not applied until adopted")

	require.NoError(t, e.Adopt())
	assert.Equal(t, "The courier rode north.\n\nThe pass was sealed.", e.Draft())
	assert.Nil(t, e.Snapshot().Result)
	assert.ErrorIs(t, e.Adopt(), ErrNoResult)
	assert.Equal(t, "The courier rode north.\n\nThe pass was sealed.", e.Draft())
}

func TestGenerate_DismissDiscards(t *testing.T) {
	gen := &stubGen{res: model.GenerationResult{Content: "extra"}}
	e := loaded(t, newMemAPI(3), gen)
	require.NoError(t, e.Edit("base"))
	_, err := e.Generate(context.Background(), model.GenerationRequest{})
	require.NoError(t, err)
	assert.True(t, e.Dismiss())
	assert.False(t, e.Dismiss())
	assert.Equal(t, "base", e.Draft())
	assert.ErrorIs(t, e.Adopt(), ErrNoResult)
}

func TestGenerate_ValidationBeforeStateChange(t *testing.T) {
	gen := &stubGen{}
	e := loaded(t, newMemAPI(3), gen)
	_, err := e.Generate(context.Background(), model.GenerationRequest{})
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, 0, gen.calls)
}

func TestGenerate_FailureSurfacesServerMessage(t *testing.T) {
	gen := &stubGen{err: &apiclient.EnvelopeError{Message: "insufficient tokens"}}
	e := loaded(t, newMemAPI(3), gen)
	require.NoError(t, e.Edit("x"))
	_, err := e.Generate(context.Background(), model.GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, "insufficient tokens", err.Error())
	assert.Nil(t, e.Snapshot().Result)
	assert.Equal(t, StateIdle, e.State())
}

func TestGenerate_SaveWhileGeneratingIsRejected(t *testing.T) {
	api := newMemAPI(3)
	gen := &stubGen{res: model.GenerationResult{Content: "late"}, release: make(chan struct{}), started: make(chan struct{}, 1)}
	e := loaded(t, api, gen)
	require.NoError(t, e.Edit("draft"))

	done := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.GenerationRequest{})
		done <- err
	}()
	<-gen.started

	assert.Equal(t, StateGenerating, e.State())
	err := e.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	var be *BusyError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, StateGenerating, be.State)
	assert.Equal(t, 0, api.saveCalls)

	// Typing is still allowed.
	require.NoError(t, e.Edit("draft, edited"))

	close(gen.release)
	require.NoError(t, <-done)
	require.NoError(t, e.Adopt())
	assert.Equal(t, "draft, edited\n\nlate", e.Draft())
}

func TestGenerate_LateResultAfterCloseIsIgnored(t *testing.T) {
	gen := &stubGen{res: model.GenerationResult{Content: "ghost"}, release: make(chan struct{}), started: make(chan struct{}, 1)}
	e := loaded(t, newMemAPI(3), gen)
	require.NoError(t, e.Edit("draft"))

	done := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.GenerationRequest{})
		done <- err
	}()
	<-gen.started
	e.Close()

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Nil(t, e.Snapshot().Result)
	assert.Equal(t, "draft", e.Draft())
	assert.ErrorIs(t, e.Edit("x"), ErrClosed)
}

func TestGenerate_CancelDropsResult(t *testing.T) {
	gen := &stubGen{res: model.GenerationResult{Content: "ghost"}, release: make(chan struct{}), started: make(chan struct{}, 1)}
	e := loaded(t, newMemAPI(3), gen)
	require.NoError(t, e.Edit("draft"))

	done := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.GenerationRequest{})
		done <- err
	}()
	<-gen.started
	assert.True(t, e.CancelGenerate())
	assert.Error(t, <-done)
	assert.Equal(t, StateIdle, e.State())
	assert.Nil(t, e.Snapshot().Result)
	assert.False(t, e.CancelGenerate())
}

func TestGenerate_NewerRequestSupersedesOlder(t *testing.T) {
	gen := &stubGen{res: model.GenerationResult{Content: "first"}, release: make(chan struct{}), started: make(chan struct{}, 1)}
	e := loaded(t, newMemAPI(3), gen)
	require.NoError(t, e.Edit("draft"))

	first := make(chan error, 1)
	go func() {
		_, err := e.Generate(context.Background(), model.GenerationRequest{Style: model.StyleUrban})
		first <- err
	}()
	<-gen.started

	gen.mu.Lock()
	gen.release = nil
	gen.started = nil
	gen.res = model.GenerationResult{Content: "second"}
	gen.mu.Unlock()

	res, err := e.Generate(context.Background(), model.GenerationRequest{Style: model.StyleHistory})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Content)
	assert.Error(t, <-first)

	snap := e.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, "second", snap.Result.Content)
	assert.Equal(t, model.StyleHistory, snap.Request.Style)
}

func TestImport_ReplacesDraftAndTracksProgress(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	require.NoError(t, e.Edit("old text"))

	var seen []int
	err := e.Import(context.Background(), "/tmp/plan.TXT", strings.NewReader("  imported outline  "), func(p int) { seen = append(seen, p) })
	require.NoError(t, err)
	assert.Equal(t, "imported outline", e.Draft())
	assert.Equal(t, []int{50, 100}, seen)
	assert.Equal(t, 100, e.Snapshot().Progress)
	assert.Equal(t, 0, api.saveCalls, "import does not save")
}

func TestImport_RejectsUnsupportedAndKeepsDraftOnFailure(t *testing.T) {
	api := newMemAPI(3)
	e := loaded(t, api, nil)
	require.NoError(t, e.Edit("keep"))

	var ve *model.ValidationError
	require.True(t, errors.As(e.Import(context.Background(), "notes.pdf", strings.NewReader("x"), nil), &ve))

	api.parseErr = &apiclient.EnvelopeError{Message: "file too large"}
	err := e.Import(context.Background(), "notes.docx", strings.NewReader("x"), nil)
	require.Error(t, err)
	assert.Equal(t, "file too large", err.Error())
	assert.Equal(t, "keep", e.Draft())
	assert.Equal(t, StateIdle, e.State())
}

func TestExport_ValidatesFormat(t *testing.T) {
	e := loaded(t, newMemAPI(3), nil)
	res, err := e.Export(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/upload/outline_1.txt", res.FileURL)

	_, err = e.Export(context.Background(), "epub")
	var ve *model.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestOperationsRequireLoad(t *testing.T) {
	e := New(newMemAPI(3), &stubGen{}, nil)
	assert.ErrorIs(t, e.Save(context.Background()), ErrNotLoaded)
	_, err := e.Generate(context.Background(), model.GenerationRequest{Content: "x"})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = e.BrowseVersions()
	assert.ErrorIs(t, err, ErrNotLoaded)
}
