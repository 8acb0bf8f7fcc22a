package devserver

import (
	"fmt"
	"strings"

	"plotline-cli/internal/model"

	"github.com/gin-gonic/gin"
)

var styleVoice = map[model.Style]string{
	model.StyleDefault: "The story moves on",
	model.StyleFantasy: "Old magic stirs beneath the mountains",
	model.StyleSciFi:   "The station's long-range array picks up a signal",
	model.StyleUrban:   "Across the city, a phone buzzes at midnight",
	model.StyleXianxia: "The sect elder opens his eyes after a hundred days of seclusion",
	model.StyleHistory: "A courier rides through the night with the emperor's seal",
}

// continuationFor builds deterministic text so tests can assert on it.
func continuationFor(req model.GenerationRequest) string {
	lines := strings.Split(strings.TrimSpace(req.Content), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if r := []rune(last); len(r) > 40 {
		last = string(r[:40])
	}
	text := fmt.Sprintf("%s. Picking up from %q, the next beat raises the stakes.", styleVoice[req.Style], last)
	if req.CustomPrompt != "" {
		text += " (" + req.CustomPrompt + ")"
	}
	return text
}

// generate answers a continuation without persisting it; results only become
// versions once the client adopts and saves them.
func (s *Server) generate(c *gin.Context) {
	var req model.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "invalid parameters")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		fail(c, "content is required")
		return
	}
	st, err := model.ParseStyle(string(req.Style))
	if err != nil {
		fail(c, "unsupported style")
		return
	}
	req.Style = st
	if req.WordLimit == 0 {
		req.WordLimit = model.DefaultWordLimit
	}
	if req.WordLimit < model.MinWordLimit || req.WordLimit > model.MaxWordLimit {
		fail(c, fmt.Sprintf("word limit must be between %d and %d", model.MinWordLimit, model.MaxWordLimit))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.ownedProject(c)
	if p == nil {
		return
	}
	text := continuationFor(req)
	used := len([]rune(text))
	a := s.current(c)
	if a.balance < used {
		fail(c, "insufficient token balance")
		return
	}
	a.balance -= used
	balance := a.balance
	ok(c, model.GenerationResult{Content: text, TokensUsed: used, TokenBalance: &balance})
}
