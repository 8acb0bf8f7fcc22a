package cli

import (
	"context"
	"errors"

	"plotline-cli/internal/dashboard"
	"plotline-cli/internal/model"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				ps, err := rt.dashboard().List(ctx)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, dashboard.Filter(ps, search))
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive match on title, description or genre")
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show project metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				p, err := rt.api.GetProject(ctx, id)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, p)
			})
		},
	}
}

func projectFlags(cmd *cobra.Command, in *model.ProjectInput) {
	cmd.Flags().StringVar(&in.Title, "title", "", "Project title")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.Genre, "genre", "", "Genre")
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var in model.ProjectInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				p, err := rt.dashboard().Create(ctx, in)
				if err != nil && p.ID == 0 {
					return err
				}
				return writeOut(cmd, app, p)
			})
		},
	}
	projectFlags(cmd, &in)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	var in model.ProjectInput

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update a project's title, description or genre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				cur, err := rt.api.GetProject(ctx, id)
				if err != nil {
					return err
				}
				// Unset flags keep their current values.
				merged := model.ProjectInput{Title: cur.Title, Description: cur.Description, Genre: cur.Genre}
				if cmd.Flags().Changed("title") {
					merged.Title = in.Title
				}
				if cmd.Flags().Changed("description") {
					merged.Description = in.Description
				}
				if cmd.Flags().Changed("genre") {
					merged.Genre = in.Genre
				}
				p, err := rt.dashboard().Update(ctx, id, merged)
				if err != nil && p.ID == 0 {
					return err
				}
				return writeOut(cmd, app, p)
			})
		},
	}
	projectFlags(cmd, &in)
	return cmd
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its outline history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project id", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				d := rt.dashboard()
				// Load the list so the prompt can name the project.
				if _, err := d.List(ctx); err != nil {
					return err
				}
				if _, ok := d.Find(id); !ok {
					return errNotFound("project", id)
				}
				err := d.Delete(ctx, id, confirmer(cmd, yes))
				if errors.Is(err, dashboard.ErrNotConfirmed) {
					return writeOut(cmd, app, map[string]any{"deleted": false, "id": id})
				}
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"deleted": true, "id": id})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
