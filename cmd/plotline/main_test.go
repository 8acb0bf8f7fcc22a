package main

import (
	"reflect"
	"testing"
)

func TestRewriteProjectLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"plotline"},
			want: []string{"plotline"},
		},
		{
			name: "project id first token",
			in:   []string{"plotline", "12"},
			want: []string{"plotline", "outline", "show", "12"},
		},
		{
			name: "project id after value flag",
			in:   []string{"plotline", "--server", "http://localhost:3000", "12"},
			want: []string{"plotline", "--server", "http://localhost:3000", "outline", "show", "12"},
		},
		{
			name: "project id after equals flag",
			in:   []string{"plotline", "--dir=./tmp-state", "12"},
			want: []string{"plotline", "--dir=./tmp-state", "outline", "show", "12"},
		},
		{
			name: "project id after bool flags",
			in:   []string{"plotline", "--pretty", "-v", "12"},
			want: []string{"plotline", "--pretty", "-v", "outline", "show", "12"},
		},
		{
			name: "project id after double dash",
			in:   []string{"plotline", "--format", "yaml", "--", "12"},
			want: []string{"plotline", "--format", "yaml", "--", "outline", "show", "12"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"plotline", "generate", "12"},
			want: []string{"plotline", "generate", "12"},
		},
		{
			name: "zero is not a project id",
			in:   []string{"plotline", "0"},
			want: []string{"plotline", "0"},
		},
		{
			name: "value flag value is not mistaken for an id",
			in:   []string{"plotline", "--format", "json"},
			want: []string{"plotline", "--format", "json"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteProjectLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteProjectLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
