package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"plotline-cli/internal/dashboard"

	"github.com/spf13/cobra"
)

// promptConfirmer asks on the command's stdin. EOF answers no.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func confirmer(cmd *cobra.Command, yes bool) dashboard.Confirmer {
	if yes {
		return dashboard.AlwaysConfirm
	}
	return promptConfirmer{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
}
