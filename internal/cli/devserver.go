package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"plotline-cli/internal/devserver"
	"plotline-cli/internal/logging"
	"plotline-cli/internal/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDevserverCmd(app *App) *cobra.Command {
	var (
		addr     string
		username string
		password string
		seed     bool
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory backend for local development",
		Long:  "Runs a throwaway backend that speaks the same HTTP contract. All data is lost on exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := logging.New(logging.Options{Level: "debug", Stderr: app.Verbose})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			srv := devserver.New(devserver.WithLogger(logger), devserver.WithUser(username, password))
			if seed {
				p := srv.AddProject(username, model.ProjectInput{Title: "The Long Road North", Genre: "fantasy", Description: "Sample project"})
				srv.SetOutline(p.ID, "Chapter 1: A courier is entrusted with a sealed letter.\nChapter 2: The pass is closed by snow.")
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return writeErr(cmd, err)
			}
			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = hs.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(cmd.ErrOrStderr(), "devserver listening on http://%s (user %q)\n", ln.Addr(), username)
			logger.Info("devserver started", zap.String("addr", ln.Addr().String()))
			if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3000", "Listen address")
	cmd.Flags().StringVar(&username, "user", "writer", "Seeded username")
	cmd.Flags().StringVar(&password, "password", "writer", "Seeded password")
	cmd.Flags().BoolVar(&seed, "seed", true, "Create a sample project")
	return cmd
}
