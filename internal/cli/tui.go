package cli

import (
	"context"

	"plotline-cli/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [project-id]",
		Short: "Start the interactive UI, optionally opening a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := 0
			if len(args) == 1 {
				n, err := parseID("project id", args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				id = n
			}
			return runTUI(cmd, app, id)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App, projectID int) error {
	return app.run(cmd, func(ctx context.Context, rt *runtime) error {
		return tui.Run(ctx, tui.Deps{
			Config:    rt.cfg,
			Store:     rt.store,
			Logger:    rt.logger,
			Session:   rt.session,
			API:       rt.api,
			Dashboard: rt.dashboard(),
			Generator: rt.gen,
			ProjectID: projectID,
		})
	})
}
