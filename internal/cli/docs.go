package cli

import (
	"fmt"
	"io"
	"strings"

	"plotline-cli/internal/docs"

	"github.com/spf13/cobra"
)

func newDocsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in help topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{"topics": docs.Topics()})
			}
			body, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown topic %q (available: %s)", args[0], strings.Join(docs.Topics(), ", ")))
			}
			_, err := io.WriteString(cmd.OutOrStdout(), body)
			return err
		},
	}
}
