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

	"plotline-cli/internal/logging"
	"plotline-cli/internal/webtui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-tui",
		Short: "Serve the TUI in a browser terminal (each tab gets its own session)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := logging.New(logging.Options{Level: "info", Stderr: true})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			var childArgs []string
			if app.Dir != "" {
				childArgs = append(childArgs, "--dir", app.Dir)
			}
			if app.Server != "" {
				childArgs = append(childArgs, "--server", app.Server)
			}
			if app.DevFallback {
				childArgs = append(childArgs, "--dev-fallback")
			}
			s, err := webtui.NewServer(webtui.ServerConfig{Addr: addr, Args: childArgs, Logger: logger})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", s.Addr())
			if err != nil {
				return writeErr(cmd, err)
			}
			hs := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = hs.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(cmd.ErrOrStderr(), "plotline tui on http://%s/terminal\n", ln.Addr())
			logger.Info("serving tui", zap.String("addr", ln.Addr().String()))
			if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}
