package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp accepts unix seconds, an RFC3339-ish string, an empty string or null.
// The zero value means "unset" and marshals as null.
type Timestamp struct {
	time.Time
}

func At(t time.Time) Timestamp { return Timestamp{Time: t.UTC()} }

func Now() Timestamp { return At(time.Now()) }

func (t Timestamp) IsSet() bool { return !t.Time.IsZero() }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return t.parseString(s)
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", string(b))
	}
	*t = fromUnix(int64(n))
	return nil
}

func (t *Timestamp) parseString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = fromUnix(n)
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = At(parsed)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func fromUnix(n int64) Timestamp {
	if n <= 0 {
		return Timestamp{}
	}
	return At(time.Unix(n, 0))
}

// String renders a short local time, or "-" when unset.
func (t Timestamp) String() string {
	if !t.IsSet() {
		return "-"
	}
	return t.Time.Local().Format("2006-01-02 15:04")
}
