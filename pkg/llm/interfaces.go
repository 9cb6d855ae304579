// Package llm provides access to the external inference provider: streaming
// and whole-response chat generation plus batch text embeddings.
package llm

import (
	"context"

	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

// GenerateRequest describes one generation call.
type GenerateRequest struct {
	// Turns is the ordered conversation, oldest first. The last turn is
	// the one being answered.
	Turns []models.Turn
	// System is the optional system prompt (bot instructions).
	System string
	// Temperature is the sampling temperature, 0.0-1.0.
	Temperature float64
	// MaxTokens caps the generated output. Zero uses the provider default.
	MaxTokens int
	// ModelID selects the model. Empty falls back to the process-wide default.
	ModelID string
}

// GenerateResult is the outcome of a non-streaming generation call.
type GenerateResult struct {
	Content    string
	StopReason string
	ModelID    string
	UsedTokens int
}

// Fragment is one element of a generation stream. A Fragment with Err set
// is terminal: the provider failed mid-stream and no further fragments
// follow. The error is delivered in-channel rather than out-of-band so the
// consumer sees it in emission order.
type Fragment struct {
	Text string
	Err  error
}

// Gateway is the interface to the inference provider. Use it for dependency
// injection to enable mocking in tests.
type Gateway interface {
	// Stream starts a streaming generation call. The returned channel is a
	// lazy, finite, non-restartable sequence of text fragments; it is
	// closed after the terminal fragment. A nil channel and non-nil error
	// mean the call failed before streaming started.
	Stream(ctx context.Context, req *GenerateRequest) (<-chan Fragment, error)

	// Generate performs a whole-response generation call.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Embed generates one embedding vector per input, preserving order.
	// The whole batch fails if any single embedding is missing from the
	// provider response.
	Embed(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// DefaultModel returns the configured default generation model.
	DefaultModel() string
}
