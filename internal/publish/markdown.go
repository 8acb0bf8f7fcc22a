package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"plotline-cli/internal/model"
)

type RenderOptions struct {
	// Versions appends a version history table (newest first).
	Versions []model.Version
	// Result appends a pending continuation under its own heading.
	Result *model.GenerationResult
}

// RenderOutlineMarkdown renders a project and its outline text as markdown.
func RenderOutlineMarkdown(p model.Project, content string, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = fmt.Sprintf("Project %d", p.ID)
	}
	writeLn("# " + title)
	writeLn("")

	writeLn("## Meta")
	writeLn("")
	writeLn(fmt.Sprintf("- ID: %d", p.ID))
	if g := strings.TrimSpace(p.Genre); g != "" {
		writeLn("- Genre: " + g)
	}
	if p.CreatedAt.IsSet() {
		writeLn("- Created: " + p.CreatedAt.UTC().Format(time.RFC3339))
	}
	if p.LastEditedAt.IsSet() {
		writeLn("- Last edited: " + p.LastEditedAt.UTC().Format(time.RFC3339))
	} else {
		writeLn("- Last edited: never")
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		writeLn("")
		writeLn("> " + strings.ReplaceAll(d, "\n", "\n> "))
	}

	writeLn("")
	writeLn("## Outline")
	writeLn("")
	if strings.TrimSpace(content) == "" {
		writeLn("_(empty)_")
	} else {
		writeLn(strings.TrimRight(content, "\n"))
	}

	if r := opt.Result; r != nil {
		writeLn("")
		heading := "## Continuation"
		if r.Fallback {
			heading += " (offline sample)"
		}
		writeLn(heading)
		writeLn("")
		writeLn(strings.TrimRight(r.Content, "\n"))
		writeLn("")
		writeLn(fmt.Sprintf("_%d tokens_", r.TokensUsed))
	}

	if len(opt.Versions) > 0 {
		writeLn("")
		writeLn("## Versions")
		writeLn("")
		writeLn("| # | Saved | Source | Characters |")
		writeLn("|---|---|---|---|")
		for _, v := range opt.Versions {
			source := "manual"
			if v.IsAIGenerated {
				source = "ai"
				if v.AIStyle != "" {
					source += " (" + v.AIStyle + ")"
				}
			}
			writeLn(fmt.Sprintf("| %d | %s | %s | %d |", v.VersionNumber, v.CreatedAt.String(), source, len([]rune(v.Content))))
		}
	}
	return buf.String()
}

// WriteMarkdown renders the outline locally and writes it to toDir.
func WriteMarkdown(p model.Project, content, toDir string, opt RenderOptions, wopt WriteOptions) (WriteResult, error) {
	return writeFile(toDir, FileName(p, "md"), []byte(RenderOutlineMarkdown(p, content, opt)), wopt)
}
