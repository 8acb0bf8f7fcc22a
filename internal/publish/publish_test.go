package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plotline-cli/internal/model"
)

type fakeDownloader struct {
	body string
	err  error
}

func (f fakeDownloader) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	n, _ := io.WriteString(w, f.body)
	return int64(n), f.err
}

func TestFileName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		p    model.Project
		ext  string
		want string
	}{
		{model.Project{ID: 3, Title: "Dragon Road"}, "txt", "Dragon_Road.txt"},
		{model.Project{ID: 3, Title: "  ../etc/passwd  "}, ".docx", "etc_passwd.docx"},
		{model.Project{ID: 9, Title: "???"}, "pdf", "outline_9.pdf"},
		{model.Project{ID: 4, Title: "龙之路"}, "md", "龙之路.md"},
	}
	for _, tc := range cases {
		if got := FileName(tc.p, tc.ext); got != tc.want {
			t.Fatalf("FileName(%q, %q) = %q, want %q", tc.p.Title, tc.ext, got, tc.want)
		}
	}
}

func TestWriteExport_RefusesExistingWithoutOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res := model.ExportResult{FileURL: "/upload/outline_1.txt"}
	dl := fakeDownloader{body: "hello"}

	out, err := WriteExport(context.Background(), dl, res, dir, "a.txt", WriteOptions{})
	if err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	if out.Bytes != 5 || len(out.Written) != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if _, err := WriteExport(context.Background(), dl, res, dir, "a.txt", WriteOptions{}); err == nil {
		t.Fatalf("expected exists error")
	}
	dl.body = "replaced"
	if _, err := WriteExport(context.Background(), dl, res, dir, "a.txt", WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("WriteExport overwrite: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	if string(b) != "replaced" {
		t.Fatalf("expected overwritten content, got %q", b)
	}
}

func TestWriteExport_FailedDownloadLeavesNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dl := fakeDownloader{body: "partial", err: errors.New("connection reset")}
	_, err := WriteExport(context.Background(), dl, model.ExportResult{FileURL: "/x"}, dir, "b.txt", WriteOptions{})
	if err == nil {
		t.Fatalf("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(entries))
	}
}

func TestWriteExport_RejectsPathInName(t *testing.T) {
	t.Parallel()

	_, err := WriteExport(context.Background(), fakeDownloader{}, model.ExportResult{FileURL: "/x"}, t.TempDir(), "../x.txt", WriteOptions{})
	if err == nil {
		t.Fatalf("expected invalid name error")
	}
}

func TestRenderOutlineMarkdown(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	p := model.Project{ID: 5, Title: "Atlas", Genre: "scifi", CreatedAt: model.At(now)}
	md := RenderOutlineMarkdown(p, "Act one.\nAct two.\n", RenderOptions{
		Versions: []model.Version{
			{VersionNumber: 2, Content: "Act one.\nAct two.", IsAIGenerated: true, AIStyle: "scifi", CreatedAt: model.At(now)},
			{VersionNumber: 1, Content: "Act one.", CreatedAt: model.At(now)},
		},
		Result: &model.GenerationResult{Content: "Act three.", TokensUsed: 12, Fallback: true},
	})
	for _, want := range []string{
		"# Atlas\n",
		"- Genre: scifi\n",
		"- Last edited: never\n",
		"## Outline\n\nAct one.\nAct two.\n",
		"## Continuation (offline sample)\n",
		"| 2 | " + model.At(now).String() + " | ai (scifi) | 17 |",
		"| 1 | " + model.At(now).String() + " | manual | 8 |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := WriteMarkdown(model.Project{ID: 1, Title: "Empty"}, "", dir, RenderOptions{}, WriteOptions{})
	if err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	b, err := os.ReadFile(res.Written[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "_(empty)_") {
		t.Fatalf("expected empty marker, got:\n%s", b)
	}
}

func TestWriteRecovery_NeverReplacesEarlierFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := model.Project{ID: 4, Title: "North Road"}

	first, err := WriteRecovery(p, "draft one", dir)
	if err != nil {
		t.Fatalf("WriteRecovery: %v", err)
	}
	if filepath.Base(first) != "North_Road.recovered.md" {
		t.Fatalf("unexpected name %q", first)
	}
	second, err := WriteRecovery(p, "draft two", dir)
	if err != nil {
		t.Fatalf("WriteRecovery again: %v", err)
	}
	if filepath.Base(second) != "North_Road.recovered-1.md" {
		t.Fatalf("unexpected second name %q", second)
	}

	b, _ := os.ReadFile(first)
	if string(b) != "draft one" {
		t.Fatalf("first recovery changed: %q", b)
	}
	b, _ = os.ReadFile(second)
	if string(b) != "draft two" {
		t.Fatalf("second recovery: %q", b)
	}
}
