package tui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func TestFitLines_PadsAndCutsToBox(t *testing.T) {
	t.Parallel()

	out := fitLines("short\n"+strings.Repeat("x", 50)+"\nthird\nfourth", 12, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, ln := range lines {
		if w := xansi.StringWidth(ln); w != 12 {
			t.Fatalf("line %d width=%d, want 12: %q", i, w, ln)
		}
	}

	out = fitLines("one", 5, 3)
	if got := len(strings.Split(out, "\n")); got != 3 {
		t.Fatalf("expected padding to 3 lines, got %d", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("truncate short=%q", got)
	}
	if got := truncate("hello world", 6); xansi.StringWidth(got) > 6 || !strings.HasSuffix(got, "…") {
		t.Fatalf("truncate long=%q", got)
	}
	if got := truncate("x", 0); got != "" {
		t.Fatalf("truncate zero=%q", got)
	}
}

func TestNextWordLimitAndStyleCycle(t *testing.T) {
	t.Parallel()

	if got := nextWordLimit(1000); got != 2000 {
		t.Fatalf("nextWordLimit(1000)=%d", got)
	}
	if got := nextWordLimit(5000); got != 500 {
		t.Fatalf("nextWordLimit(5000)=%d", got)
	}
	if got := nextStyle("history"); got != "default" {
		t.Fatalf("nextStyle wraps, got %q", got)
	}
}
