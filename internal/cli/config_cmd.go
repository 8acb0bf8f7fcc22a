package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize config.yaml",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rt *runtime) error {
				return writeOut(cmd, app, map[string]any{
					"path":   rt.store.ConfigPath(),
					"config": rt.cfg,
				})
			})
		},
	})
	cmd.AddCommand(newConfigInitCmd(app))
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write config.yaml with the current effective values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rt *runtime) error {
				path := rt.store.ConfigPath()
				if _, err := os.Stat(path); err == nil && !force {
					return errors.New("config exists (use --force): " + path)
				}
				b, err := rt.cfg.YAML()
				if err != nil {
					return err
				}
				if err := rt.store.WriteConfigFile(b); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"written": path})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config (a .bak copy is kept)")
	return cmd
}
