package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/revcopy-crawler/internal/metrics"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	maxErrorBody       = 512
)

// Chat calls an OpenAI-compatible chat completions endpoint.
type Chat struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	cfg     Config
	logger  *zap.Logger
}

// NewChat builds a Chat provider from cfg.
func NewChat(cfg Config, client *http.Client, logger *zap.Logger) *Chat {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		name:    cfg.Provider,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  client,
		cfg:     cfg,
		logger:  logger.Named("ai").With(zap.String("provider", cfg.Provider)),
	}
}

// Name returns the provider name.
func (c *Chat) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends req, retrying rate limits and gateway errors with
// exponential backoff.
func (c *Chat) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyPrompt
	}
	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.Multiplier = 2

	start := time.Now()
	content, err := backoff.Retry(ctx, func() (string, error) {
		return c.attempt(ctx, payload)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.ObserveAIRetry(c.name)
			c.logger.Warn("ai request failed, retrying", zap.Duration("wait", wait), zap.Error(err))
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	c.logger.Info("content generated",
		zap.String("model", c.model),
		zap.Int("chars", len(content)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return content, nil
}

func (c *Chat) buildRequest(req Request) chatRequest {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	temp := req.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return chatRequest{Model: c.model, Messages: messages, Temperature: temp, MaxTokens: maxTokens}
}

func (c *Chat) attempt(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build chat request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", fmt.Errorf("post chat request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if retryableStatus(resp.StatusCode) {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode chat response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", backoff.Permanent(ErrEmptyResponse)
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", backoff.Permanent(ErrEmptyResponse)
	}
	return content, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
