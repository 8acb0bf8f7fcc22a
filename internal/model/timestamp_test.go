package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_UnmarshalAcceptsServerForms(t *testing.T) {
	cases := map[string]time.Time{
		`1700000000`:             time.Unix(1700000000, 0).UTC(),
		`"1700000000"`:           time.Unix(1700000000, 0).UTC(),
		`"2024-03-01T10:20:30Z"`: time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
		`"2024-03-01 10:20:30"`:  time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
	}
	for in, want := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, ts.Time.Equal(want), "%s => %v", in, ts.Time)
	}
}

func TestTimestamp_EmptyFormsAreUnset(t *testing.T) {
	for _, in := range []string{`null`, `""`, `0`, `"  "`} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.False(t, ts.IsSet(), in)
		assert.Equal(t, "-", ts.String())
	}
}

func TestTimestamp_InvalidString(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestProject_DecodesMixedTimestamps(t *testing.T) {
	body := `{"id":7,"title":"Dragon Road","created_at":1700000000,"last_edited_at":"2024-03-01T10:20:30Z"}`
	var p Project
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Equal(t, 7, p.ID)
	assert.True(t, p.CreatedAt.IsSet())
	assert.Equal(t, 2024, p.LastEditedAt.Year())
	assert.False(t, p.UpdatedAt.IsSet())
}

func TestParseStyle(t *testing.T) {
	st, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleDefault, st)

	st, err = ParseStyle("xianxia")
	require.NoError(t, err)
	assert.Equal(t, StyleXianxia, st)

	_, err = ParseStyle("noir")
	assert.Error(t, err)
}
