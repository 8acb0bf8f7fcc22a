package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the backend's public status and cache it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rt *runtime) error {
				if cached {
					st, _ := rt.session.CachedStatus(ctx)
					return writeOut(cmd, app, st)
				}
				st, err := rt.session.RefreshStatus(ctx, rt.api)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"server":    rt.cfg.Server.URL,
					"status":    st,
					"logged_in": rt.session.LoggedIn(),
				})
			})
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "Print the last cached status without a request")
	return cmd
}

func newNoticeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "notice",
		Short: "Show the site notice",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rt *runtime) error {
				n, err := rt.session.RefreshNotice(ctx, rt.api)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"notice": n})
			})
		},
	}
}

func newHomepageCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "homepage",
		Short: "Show the homepage feature config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rt *runtime) error {
				return writeOut(cmd, app, rt.session.HomePage(ctx, rt.api))
			})
		},
	}
}
