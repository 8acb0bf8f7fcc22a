// Package continuation requests AI continuations of an outline.
package continuation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"plotline-cli/internal/model"

	"go.uber.org/zap"
)

const (
	DefaultModel        = "qwen-turbo"
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1000
	DefaultSystemPrompt = "You are a helpful AI assistant."
)

// ErrEmptyResult is returned when the service answers successfully with no text.
var ErrEmptyResult = errors.New("the AI service returned an empty continuation")

type API interface {
	Generate(ctx context.Context, projectID int, req model.GenerationRequest) (model.GenerationResult, error)
	Prompt(ctx context.Context, req model.PromptRequest) (model.PromptResult, error)
	Models(ctx context.Context) ([]model.AIModel, error)
}

type Options struct {
	// DevFallback substitutes canned text for failed generations. The result is
	// marked Fallback so callers can label it.
	DevFallback bool
	Model       string
}

type Client struct {
	api    API
	opt    Options
	logger *zap.Logger
}

func New(api API, logger *zap.Logger, opt Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(opt.Model) == "" {
		opt.Model = DefaultModel
	}
	return &Client{api: api, opt: opt, logger: logger.Named("continuation")}
}

func (c *Client) DevFallback() bool { return c.opt.DevFallback }

// Normalize fills defaults and validates a request without touching the network.
func Normalize(req model.GenerationRequest) (model.GenerationRequest, error) {
	if strings.TrimSpace(req.Content) == "" {
		return req, model.Invalid("content", "outline is empty; write something to continue from")
	}
	st, err := model.ParseStyle(string(req.Style))
	if err != nil {
		return req, model.Invalid("style", err.Error())
	}
	req.Style = st
	if req.WordLimit == 0 {
		req.WordLimit = model.DefaultWordLimit
	}
	if req.WordLimit < model.MinWordLimit || req.WordLimit > model.MaxWordLimit {
		return req, model.Invalid("wordLimit", fmt.Sprintf("must be between %d and %d", model.MinWordLimit, model.MaxWordLimit))
	}
	req.CustomPrompt = strings.TrimSpace(req.CustomPrompt)
	return req, nil
}

// Generate asks the service to continue req.Content. Cancellation is never
// masked by the fallback.
func (c *Client) Generate(ctx context.Context, projectID int, req model.GenerationRequest) (model.GenerationResult, error) {
	req, err := Normalize(req)
	if err != nil {
		return model.GenerationResult{}, err
	}

	res, err := c.api.Generate(ctx, projectID, req)
	if err == nil && strings.TrimSpace(res.Content) == "" {
		err = ErrEmptyResult
	}
	if err == nil {
		res.Fallback = false
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.GenerationResult{}, ctxErr
	}
	if !c.opt.DevFallback {
		return model.GenerationResult{}, err
	}

	c.logger.Warn("generation failed; substituting dev fallback",
		zap.Int("project_id", projectID),
		zap.String("style", string(req.Style)),
		zap.Error(err))
	return Fallback(req.Style), nil
}

// Prompt runs a one-shot completion with defaults for unset fields.
func (c *Client) Prompt(ctx context.Context, req model.PromptRequest) (model.PromptResult, error) {
	req.UserPrompt = strings.TrimSpace(req.UserPrompt)
	if req.UserPrompt == "" {
		return model.PromptResult{}, model.Invalid("user_prompt", "prompt is empty")
	}
	if strings.TrimSpace(req.SystemPrompt) == "" {
		req.SystemPrompt = DefaultSystemPrompt
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = c.opt.Model
	}
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return model.PromptResult{}, model.Invalid("temperature", "must be between 0 and 2")
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if req.MaxTokens < 0 {
		return model.PromptResult{}, model.Invalid("max_tokens", "must be positive")
	}
	return c.api.Prompt(ctx, req)
}

func (c *Client) Models(ctx context.Context) ([]model.AIModel, error) {
	return c.api.Models(ctx)
}
