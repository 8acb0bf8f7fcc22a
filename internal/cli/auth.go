package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLoginCmd(app *App) *cobra.Command {
	var (
		username string
		password string
		token    string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the access token locally",
		Example: strings.TrimSpace(`
  plotline login --username writer --password ...
  echo "$PASSWORD" | plotline login --username writer
  plotline login --token <access-token>
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rt *runtime) error {
				if strings.TrimSpace(token) != "" {
					u, err := rt.session.LoginWithToken(ctx, rt.api, token)
					if err != nil {
						return err
					}
					return writeOut(cmd, app, u)
				}
				if password == "" {
					line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if err != nil && line == "" {
						return errors.New("password is required (--password, PLOTLINE_PASSWORD or stdin)")
					}
					password = strings.TrimRight(line, "\r\n")
				}
				u, err := rt.session.Login(ctx, rt.api, username, password)
				if err != nil {
					return err
				}
				if _, err := rt.session.RefreshStatus(ctx, rt.api); err != nil {
					rt.logger.Debug("status refresh after login failed", zap.Error(err))
				}
				return writeOut(cmd, app, u)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", envOr("PLOTLINE_USERNAME", ""), "Username")
	cmd.Flags().StringVar(&password, "password", envOr("PLOTLINE_PASSWORD", ""), "Password (read from stdin when omitted)")
	cmd.Flags().StringVar(&token, "token", "", "Use an existing access token instead of a password")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rt *runtime) error {
				err := rt.session.Logout(ctx, rt.api)
				if err != nil && !rt.session.LoggedIn() {
					// Local state is gone; the server side failure is informational.
					rt.logger.Warn("server logout failed", zap.Error(err))
					return writeOut(cmd, app, map[string]any{"logged_out": true, "warning": err.Error()})
				}
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"logged_out": true})
			})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.authed(cmd, func(ctx context.Context, rt *runtime) error {
				if offline {
					u, _ := rt.session.User()
					return writeOut(cmd, app, u)
				}
				u, err := rt.api.Self(ctx)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, u)
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Print the cached user without asking the server")
	return cmd
}
