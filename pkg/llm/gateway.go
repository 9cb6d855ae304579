package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// routedGateway dispatches generation calls by model id: claude-* models go
// to the native Anthropic client when one is configured, everything else to
// the OpenAI-compatible client. Embeddings always go to the OpenAI client.
type routedGateway struct {
	openai    *OpenAIClient
	anthropic *AnthropicClient
}

// NewGateway builds the inference gateway from configuration. The Anthropic
// client is optional; pass an empty anthropicKey to route all models through
// the OpenAI-compatible endpoint.
func NewGateway(cfg *OpenAIConfig, anthropicKey string, logger *zap.Logger) (Gateway, error) {
	oa, err := NewOpenAIClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	g := &routedGateway{openai: oa}
	if anthropicKey != "" {
		ac, err := NewAnthropicClient(anthropicKey, cfg.MaxTokens, logger)
		if err != nil {
			return nil, err
		}
		g.anthropic = ac
	}

	return g, nil
}

func (g *routedGateway) useAnthropic(modelID string) bool {
	return g.anthropic != nil && strings.HasPrefix(modelID, "claude-")
}

func (g *routedGateway) Stream(ctx context.Context, req *GenerateRequest) (<-chan Fragment, error) {
	if g.useAnthropic(req.ModelID) {
		return g.anthropic.Stream(ctx, req)
	}
	return g.openai.Stream(ctx, req)
}

func (g *routedGateway) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if g.useAnthropic(req.ModelID) {
		return g.anthropic.Generate(ctx, req)
	}
	return g.openai.Generate(ctx, req)
}

func (g *routedGateway) Embed(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	return g.openai.Embed(ctx, inputs, model)
}

func (g *routedGateway) DefaultModel() string {
	return g.openai.DefaultModel()
}

var _ Gateway = (*routedGateway)(nil)
