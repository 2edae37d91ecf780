package aiprovider

import (
	"context"
	"fmt"
	"strings"
)

const mockPromptPreview = 120

// Mock returns canned copy derived from the prompt. It never calls out.
type Mock struct{}

// NewMock returns a Mock provider.
func NewMock() *Mock {
	return &Mock{}
}

// Name returns "mock".
func (Mock) Name() string { return "mock" }

// Generate echoes a preview of the prompt tagged with the target platform.
func (Mock) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prompt := strings.Join(strings.Fields(req.Prompt), " ")
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if runes := []rune(prompt); len(runes) > mockPromptPreview {
		prompt = string(runes[:mockPromptPreview]) + "..."
	}
	platform := req.Platform
	if platform == "" {
		platform = "generic"
	}
	return fmt.Sprintf("[%s] %s", platform, prompt), nil
}
