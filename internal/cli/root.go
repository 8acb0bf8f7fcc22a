package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"plotline-cli/internal/apiclient"
	"plotline-cli/internal/config"
	"plotline-cli/internal/continuation"
	"plotline-cli/internal/dashboard"
	"plotline-cli/internal/editor"
	"plotline-cli/internal/format"
	"plotline-cli/internal/logging"
	"plotline-cli/internal/session"
	"plotline-cli/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	Dir         string
	Server      string
	PrettyJSON  bool
	Format      string
	DevFallback bool
	Verbose     bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "plotline",
		Short:        "Plotline: novel outline editor with AI continuation",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  plotline

  # Sign in once; the token is kept in ~/.plotline
  plotline login --username writer

  # Scriptable commands
  plotline projects list --search dragon
  plotline generate 12 --style fantasy --words 800

  # Direct project lookup (shortcut for: plotline outline show <project-id>)
  plotline 12
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app, 0)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("PLOTLINE_CONFIG_DIR", ""), "State and config dir (default ~/.plotline)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("PLOTLINE_SERVER", ""), "Backend base URL (overrides server.url)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PLOTLINE_FORMAT", "json"), "Output format (json|edn|yaml)")
	cmd.PersistentFlags().BoolVar(&app.DevFallback, "dev-fallback", false, "Substitute sample text when AI generation fails (development only)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newNoticeCmd(app))
	cmd.AddCommand(newHomepageCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newOutlineCmd(app))
	cmd.AddCommand(newGenerateCmd(app))
	cmd.AddCommand(newAICmd(app))
	cmd.AddCommand(newPackagesCmd(app))
	cmd.AddCommand(newPayCmd(app))
	cmd.AddCommand(newReferralCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newDevserverCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newServeTUICmd(app))

	return cmd
}

// runtime is everything a backend command needs, built once per invocation.
type runtime struct {
	app     *App
	cfg     *config.Config
	store   store.Store
	kv      *store.KV
	logger  *zap.Logger
	api     *apiclient.Client
	session *session.Session
	gen     *continuation.Client

	closeLog func()
}

func (app *App) open(ctx context.Context) (*runtime, error) {
	st, err := store.Open(app.Dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(st.ConfigPath())
	if err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(app.Server); s != "" {
		cfg.Server.URL = strings.TrimRight(s, "/")
	}
	if app.DevFallback {
		cfg.AI.DevFallback = true
	}

	logOpt := logging.Options{Level: cfg.Log.Level, Stderr: app.Verbose}
	if app.Verbose {
		logOpt.Level = "debug"
	}
	if f := strings.TrimSpace(cfg.Log.File); f != "" && f != "-" {
		if !filepath.IsAbs(f) {
			f = filepath.Join(st.Dir, f)
		}
		logOpt.File = f
	}
	logger, closeLog, err := logging.New(logOpt)
	if err != nil {
		return nil, err
	}

	rt := &runtime{app: app, cfg: cfg, store: st, logger: logger, closeLog: closeLog}
	rt.kv, err = st.OpenKV(ctx)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.session, err = session.Load(ctx, rt.kv, logger)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.api, err = apiclient.New(cfg.Server.URL, logger,
		apiclient.WithTimeout(cfg.Server.Timeout),
		apiclient.WithTokenSource(rt.session),
		apiclient.WithUnauthorizedHandler(rt.session.Unauthorized),
	)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.gen = continuation.New(rt.api, logger, continuation.Options{DevFallback: cfg.AI.DevFallback, Model: cfg.AI.Model})
	return rt, nil
}

func (rt *runtime) close() {
	if rt.kv != nil {
		_ = rt.kv.Close()
	}
	if rt.closeLog != nil {
		rt.closeLog()
	}
}

func (rt *runtime) dashboard() *dashboard.Store {
	return dashboard.New(rt.api, rt.logger)
}

func (rt *runtime) editor(opts ...editor.Option) *editor.Editor {
	return editor.New(rt.api, rt.gen, rt.logger, opts...)
}

// openEditor loads projectID, treating a failed metadata fetch as not found
// when the server says so.
func (rt *runtime) openEditor(ctx context.Context, projectID int, opts ...editor.Option) (*editor.Editor, error) {
	ed := rt.editor(opts...)
	if err := ed.Load(ctx, projectID); err != nil {
		ed.Close()
		if apiclient.IsNotFound(err) {
			return nil, errNotFound("project", projectID)
		}
		return nil, err
	}
	return ed, nil
}

// requireLogin fails fast instead of letting the server answer 401.
func (rt *runtime) requireLogin() error {
	if !rt.session.LoggedIn() {
		return session.ErrNotLoggedIn
	}
	return nil
}

// run opens the runtime, runs fn and reports its error on stderr.
func (app *App) run(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	rt, err := app.open(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer rt.close()
	if err := fn(ctx, rt); err != nil {
		return writeErr(cmd, explain(err))
	}
	return nil
}

// authed is run for commands that need a session.
func (app *App) authed(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	return app.run(cmd, func(ctx context.Context, rt *runtime) error {
		if err := rt.requireLogin(); err != nil {
			return err
		}
		return fn(ctx, rt)
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
