// Package publish writes outlines to local files: server-rendered exports
// and a locally rendered markdown document.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"plotline-cli/internal/model"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
	Bytes   int64    `json:"bytes"`
}

// Downloader fetches a file the server rendered.
type Downloader interface {
	Download(ctx context.Context, fileURL string, w io.Writer) (int64, error)
}

var errFileExists = errors.New("file exists")

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// FileName derives "<title>.<ext>" from a project, falling back to
// "outline_<id>.<ext>" when the title has no usable characters.
func FileName(p model.Project, ext string) string {
	base := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(p.Title), "_"), "._-")
	if base == "" {
		base = "outline_" + strconv.Itoa(p.ID)
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}

// WriteExport downloads res into toDir/name. The file appears only once the
// download completed.
func WriteExport(ctx context.Context, dl Downloader, res model.ExportResult, toDir, name string, opt WriteOptions) (WriteResult, error) {
	if dl == nil {
		return WriteResult{}, errors.New("missing downloader")
	}
	if strings.TrimSpace(res.FileURL) == "" {
		return WriteResult{}, errors.New("server returned no file url")
	}
	outPath, err := target(toDir, name, opt)
	if err != nil {
		return WriteResult{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".plotline-export-*")
	if err != nil {
		return WriteResult{}, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := dl.Download(ctx, res.FileURL, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return WriteResult{}, fmt.Errorf("download export: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}, Bytes: n}, nil
}

func target(toDir, name string, opt WriteOptions) (string, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		toDir = "."
	}
	name = strings.TrimSpace(name)
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	if err := os.MkdirAll(filepath.Clean(toDir), 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(filepath.Clean(toDir), name)
	if !opt.Overwrite {
		if _, err := os.Stat(outPath); err == nil {
			return "", fmt.Errorf("%w (use --overwrite): %s", errFileExists, outPath)
		}
	}
	return outPath, nil
}

func writeFile(toDir, name string, b []byte, opt WriteOptions) (WriteResult, error) {
	outPath, err := target(toDir, name, opt)
	if err != nil {
		return WriteResult{}, err
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}, Bytes: int64(len(b))}, nil
}

// WriteRecovery keeps text the server never accepted as
// "<title>.recovered.md" in toDir. An earlier recovery file is never
// replaced; the name gets a counter instead.
func WriteRecovery(p model.Project, content, toDir string) (string, error) {
	base := strings.TrimSuffix(FileName(p, "md"), ".md") + ".recovered"
	for i := 0; i < 100; i++ {
		name := base + ".md"
		if i > 0 {
			name = base + "-" + strconv.Itoa(i) + ".md"
		}
		res, err := writeFile(toDir, name, []byte(content), WriteOptions{})
		if errors.Is(err, errFileExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return res.Written[0], nil
	}
	return "", fmt.Errorf("too many recovery files for %q in %s", base, toDir)
}
