package docs

import (
	"strings"
	"testing"
)

func TestTopics_AreSortedAndReadable(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("expected embedded topics")
	}
	for i, topic := range topics {
		if i > 0 && topics[i-1] > topic {
			t.Fatalf("topics not sorted: %v", topics)
		}
		body, ok := Get(topic)
		if !ok || !strings.HasPrefix(body, "# ") {
			t.Fatalf("topic %q: ok=%v body=%q", topic, ok, body)
		}
	}
}

func TestGet_NormalizesAndRejectsPaths(t *testing.T) {
	if _, ok := Get("  TUI "); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	for _, bad := range []string{"", "missing", "../docs", "content/tui"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("Get(%q) should fail", bad)
		}
	}
}
