package model

import "fmt"

type Style string

const (
	StyleDefault Style = "default"
	StyleFantasy Style = "fantasy"
	StyleSciFi   Style = "scifi"
	StyleUrban   Style = "urban"
	StyleXianxia Style = "xianxia"
	StyleHistory Style = "history"
)

// Styles lists every accepted continuation style in display order.
var Styles = []Style{StyleDefault, StyleFantasy, StyleSciFi, StyleUrban, StyleXianxia, StyleHistory}

func ParseStyle(s string) (Style, error) {
	if s == "" {
		return StyleDefault, nil
	}
	for _, st := range Styles {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown style: %s", s)
}

const (
	MinWordLimit     = 100
	MaxWordLimit     = 5000
	DefaultWordLimit = 1000
)

type GenerationRequest struct {
	Content      string `json:"content"`
	Style        Style  `json:"style"`
	WordLimit    int    `json:"wordLimit"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// GenerationResult is transient; it is never stored client-side.
type GenerationResult struct {
	Content      string `json:"content"`
	TokensUsed   int    `json:"tokens_used"`
	TokenBalance *int   `json:"token_balance,omitempty"`

	// Fallback marks canned text produced locally instead of by the AI service.
	Fallback bool `json:"fallback,omitempty"`
}
