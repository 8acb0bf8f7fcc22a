package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"plotline-cli/internal/editor"
	"plotline-cli/internal/model"
	"plotline-cli/internal/publish"
	"plotline-cli/internal/tui"

	"github.com/spf13/cobra"
)

type outlineView struct {
	Project  model.Project   `json:"project"`
	Content  string          `json:"content"`
	Missing  bool            `json:"missing,omitempty"`
	Versions []model.Version `json:"versions"`
	Warnings []string        `json:"warnings,omitempty"`
}

type saveView struct {
	ProjectID     int      `json:"project_id"`
	VersionNumber int      `json:"version_number,omitempty"`
	Changed       bool     `json:"changed"`
	Warnings      []string `json:"warnings,omitempty"`
}

func viewOf(s editor.Snapshot) outlineView {
	vs := s.Versions
	if vs == nil {
		vs = []model.Version{}
	}
	return outlineView{Project: s.Project, Content: s.Draft, Missing: s.OutlineMissing, Versions: vs, Warnings: s.Warnings}
}

func savedView(ed *editor.Editor) saveView {
	s := ed.Snapshot()
	v := saveView{ProjectID: s.ProjectID, Changed: true, Warnings: s.Warnings}
	if len(s.Versions) > 0 {
		v.VersionNumber = s.Versions[0].VersionNumber
	}
	return v
}

func newOutlineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "outline",
		Aliases: []string{"outlines"},
		Short:   "Outline editing, versions, import and export",
	}
	cmd.AddCommand(newOutlineShowCmd(app))
	cmd.AddCommand(newOutlineSaveCmd(app))
	cmd.AddCommand(newOutlineEditCmd(app))
	cmd.AddCommand(newOutlineImportCmd(app))
	cmd.AddCommand(newOutlineExportCmd(app))
	cmd.AddCommand(newOutlineVersionsCmd(app))
	cmd.AddCommand(newOutlineRestoreCmd(app))
	return cmd
}

func newOutlineShowCmd(app *App) *cobra.Command {
	var (
		markdown bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's outline and recent versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ed, err := rt.openEditor(ctx, id, editor.WithVersionLimit(limit))
				if err != nil {
					return err
				}
				defer ed.Close()
				s := ed.Snapshot()
				if markdown {
					_, err := io.WriteString(cmd.OutOrStdout(), publish.RenderOutlineMarkdown(s.Project, s.Draft, publish.RenderOptions{Versions: s.Versions}))
					return err
				}
				return writeOut(cmd, app, viewOf(s))
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print as markdown instead of structured output")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of versions to fetch (server default when 0)")
	return cmd
}

// readContent resolves --content / --file, where "-" means stdin.
func readContent(cmd *cobra.Command, content, file string) (string, error) {
	switch {
	case content != "" && file != "":
		return "", errors.New("use either --content or --file, not both")
	case content == "-" || file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	case content != "":
		return content, nil
	case file != "":
		b, err := os.ReadFile(file)
		return string(b), err
	default:
		return "", errors.New("missing --content or --file")
	}
}

func newOutlineSaveCmd(app *App) *cobra.Command {
	var content, file string

	cmd := &cobra.Command{
		Use:   "save <project-id>",
		Short: "Save outline text as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			text, err := readContent(cmd, content, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ed, err := rt.openEditor(ctx, id)
				if err != nil {
					return err
				}
				defer ed.Close()
				if err := ed.Edit(text); err != nil {
					return err
				}
				if err := ed.Save(ctx); err != nil {
					return err
				}
				return writeOut(cmd, app, savedView(ed))
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "Outline text (\"-\" reads stdin)")
	cmd.Flags().StringVar(&file, "file", "", "Read outline text from a file (\"-\" reads stdin)")
	return cmd
}

func newOutlineEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <project-id>",
		Short: "Edit the outline in $VISUAL/$EDITOR and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ed, err := rt.openEditor(ctx, id)
				if err != nil {
					return err
				}
				defer ed.Close()

				before := ed.Draft()
				after, err := editExternally(cmd, before)
				if err != nil {
					return err
				}
				if strings.TrimSpace(after) == strings.TrimSpace(before) {
					return writeOut(cmd, app, saveView{ProjectID: id, Changed: false})
				}
				if err := ed.Edit(after); err != nil {
					return err
				}
				if err := ed.Save(ctx); err != nil {
					path, werr := publish.WriteRecovery(ed.Snapshot().Project, after, rt.cfg.Export.Dir)
					if werr != nil {
						return fmt.Errorf("%w (your edited text could not be kept either: %v)", err, werr)
					}
					return fmt.Errorf("%w (your edited text was kept in %s)", err, path)
				}
				return writeOut(cmd, app, savedView(ed))
			})
		},
	}
}

func editExternally(cmd *cobra.Command, text string) (string, error) {
	f, err := os.CreateTemp("", "plotline-outline-*.md")
	if err != nil {
		return "", err
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	c := tui.EditorCommand(path)
	c.Stdin, c.Stdout, c.Stderr = cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w", tui.EditorName(), err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newOutlineImportCmd(app *App) *cobra.Command {
	var noSave bool

	cmd := &cobra.Command{
		Use:   "import <project-id> <file>",
		Short: "Replace the outline with a .txt or .docx file's text, then save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			path := args[1]
			if !editor.ImportableExt(path) {
				return writeErr(cmd, model.Invalid("file", "only .txt and .docx files can be imported"))
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()

				ed, err := rt.openEditor(ctx, id)
				if err != nil {
					return err
				}
				defer ed.Close()
				if err := ed.Import(ctx, path, f, nil); err != nil {
					return err
				}
				if noSave {
					return writeOut(cmd, app, viewOf(ed.Snapshot()))
				}
				if err := ed.Save(ctx); err != nil {
					return err
				}
				return writeOut(cmd, app, savedView(ed))
			})
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Print the parsed text without saving a version")
	return cmd
}

func newOutlineExportCmd(app *App) *cobra.Command {
	var (
		formatName string
		outDir     string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export the saved outline (txt|docx|pdf rendered by the server, md rendered locally)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ed, err := rt.openEditor(ctx, id)
				if err != nil {
					return err
				}
				defer ed.Close()
				s := ed.Snapshot()
				dir := outDir
				if dir == "" {
					dir = rt.cfg.Export.Dir
				}
				opt := publish.WriteOptions{Overwrite: overwrite}

				ext := strings.ToLower(strings.TrimSpace(formatName))
				if ext == "md" || ext == "markdown" {
					res, err := publish.WriteMarkdown(s.Project, s.Saved, dir, publish.RenderOptions{Versions: s.Versions}, opt)
					if err != nil {
						return err
					}
					return writeOut(cmd, app, res)
				}
				exp, err := ed.Export(ctx, ext)
				if err != nil {
					return err
				}
				if ext == "" {
					ext = "txt"
				}
				res, err := publish.WriteExport(ctx, rt.api, exp, dir, publish.FileName(s.Project, ext), opt)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, res)
			})
		},
	}
	cmd.Flags().StringVar(&formatName, "as", "txt", "Export format: txt|docx|pdf|md")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default export.dir)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newOutlineVersionsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "versions <project-id>",
		Short: "List saved versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				vs, err := rt.api.Versions(ctx, id, limit)
				if err != nil {
					return err
				}
				if vs == nil {
					vs = []model.Version{}
				}
				return writeOut(cmd, app, vs)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of versions")
	return cmd
}

func newOutlineRestoreCmd(app *App) *cobra.Command {
	var (
		yes   bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "restore <project-id> <version-number>",
		Short: "Restore a version's text and save it as a new version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			num, err := parseID("version number", args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ed, err := rt.openEditor(ctx, id, editor.WithVersionLimit(limit))
				if err != nil {
					return err
				}
				defer ed.Close()

				var target *model.Version
				for _, v := range ed.Snapshot().Versions {
					if v.VersionNumber == num {
						v := v
						target = &v
						break
					}
				}
				if target == nil {
					return fmt.Errorf("%w: version %d of project %d", editor.ErrVersionNotFound, num, id)
				}
				ok, err := confirmer(cmd, yes).Confirm(ctx, fmt.Sprintf("Restore version %d of project %d as a new version?", num, id))
				if err != nil {
					return err
				}
				if !ok {
					return writeOut(cmd, app, saveView{ProjectID: id, Changed: false})
				}
				if err := ed.Restore(ctx, target.ID, nil); err != nil {
					return err
				}
				if ed.Dirty() || ed.Snapshot().OutlineMissing {
					if err := ed.Save(ctx); err != nil {
						return err
					}
					return writeOut(cmd, app, savedView(ed))
				}
				// Restoring the current text is a no-op.
				return writeOut(cmd, app, saveView{ProjectID: id, Changed: false})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().IntVar(&limit, "limit", 100, "How far back to look for the version")
	return cmd
}
