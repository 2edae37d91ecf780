// Package aiprovider talks to the language model that turns product analyses
// into marketing copy. Prompt construction lives with the caller; this
// package only moves a prompt to a provider and a completion back.
package aiprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrEmptyPrompt is returned when a request carries no prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrEmptyResponse is returned when the provider answered without content.
	ErrEmptyResponse = errors.New("provider returned no content")
	// ErrUnknownProvider is returned by New for unsupported provider names.
	ErrUnknownProvider = errors.New("unknown ai provider")
)

// Request is one content generation call.
type Request struct {
	Prompt          string  `json:"prompt" validate:"required"`
	SystemPrompt    string  `json:"system_prompt,omitempty"`
	Temperature     float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens       int     `json:"max_tokens,omitempty" validate:"gte=0,lte=8000"`
	Platform        string  `json:"platform,omitempty"`
	CulturalContext string  `json:"cultural_context,omitempty"`
}

// Provider generates text for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// StatusError reports a non-success response from the provider API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider status %d: %s", e.Status, e.Body)
}

// Config selects and tunes a provider.
type Config struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

type preset struct {
	baseURL string
	model   string
}

var presets = map[string]preset{
	"openai":   {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	"deepseek": {baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
}

// New builds the provider named by cfg.Provider. client may be nil.
func New(cfg Config, client *http.Client, logger *zap.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" || name == "mock" {
		return NewMock(), nil
	}
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = p.model
	}
	cfg.Provider = name
	return NewChat(cfg, client, logger), nil
}
