package main

import (
	"os"
	"strconv"
	"strings"

	"plotline-cli/internal/cli"
)

func isProjectID(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n > 0
}

// rewriteProjectLookupArgs turns `plotline <project-id>` into
// `plotline outline show <project-id>`. Cobra would treat the id as an unknown
// subcommand, so argv is rewritten before parsing. Persistent flags may come
// first, so the first positional token is what counts.
func rewriteProjectLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":    true,
		"--server": true,
		"--format": true,
	}
	boolFlags := map[string]bool{
		"--pretty":       true,
		"--dev-fallback": true,
		"--verbose":      true,
		"-v":             true,
	}

	rewrite := func(at int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:at]...)
		out = append(out, "outline", "show")
		return append(out, argv[at:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isProjectID(argv[i+1]) {
				return rewrite(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			switch {
			case strings.Contains(a, "="), boolFlags[a]:
			case valueFlags[a]:
				i++
			}
			// Unknown flags are skipped without consuming a value.
			continue
		}
		if isProjectID(a) {
			return rewrite(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteProjectLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
