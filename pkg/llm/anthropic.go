package llm

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

// AnthropicClient serves generation for claude-* model ids through the
// native Anthropic Messages API. Embeddings are not offered by Anthropic;
// the gateway routes those to the OpenAI-compatible client.
type AnthropicClient struct {
	client    *anthropic.Client
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates a new Anthropic messages client.
func NewAnthropicClient(apiKey string, maxTokens int, logger *zap.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(apiKey),
		maxTokens: maxTokens,
		logger:    logger.Named("anthropic"),
	}, nil
}

func (c *AnthropicClient) buildRequest(req *GenerateRequest) anthropic.MessagesRequest {
	messages := make([]anthropic.Message, 0, len(req.Turns))
	for _, t := range req.Turns {
		role := anthropic.RoleUser
		if t.Role == models.ChatRoleAssistant {
			role = anthropic.RoleAssistant
		}
		content := t.Content
		messages = append(messages, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{{Type: "text", Text: &content}},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	temperature := float32(req.Temperature)
	return anthropic.MessagesRequest{
		Model:       anthropic.Model(req.ModelID),
		Messages:    messages,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
}

// Stream starts a streaming messages call. CreateMessagesStream blocks
// until the stream finishes, so it runs in a goroutine and any failure,
// including one before the first delta, is delivered as a terminal error
// fragment on the returned channel.
func (c *AnthropicClient) Stream(ctx context.Context, req *GenerateRequest) (<-chan Fragment, error) {
	fragments := make(chan Fragment, streamBuffer)

	streamReq := anthropic.MessagesStreamRequest{
		MessagesRequest: c.buildRequest(req),
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text != nil && *data.Delta.Text != "" {
				select {
				case fragments <- Fragment{Text: *data.Delta.Text}:
				case <-ctx.Done():
				}
			}
		},
	}

	go func() {
		defer close(fragments)

		start := time.Now()
		if _, err := c.client.CreateMessagesStream(ctx, streamReq); err != nil {
			c.logger.Error("Messages stream error", zap.Error(err))
			fragments <- Fragment{Err: fmt.Errorf("%w: %v", apperrors.ErrStreamInterrupted, err)}
			return
		}
		c.logger.Debug("Messages stream completed",
			zap.Duration("elapsed", time.Since(start)))
	}()

	return fragments, nil
}

// Generate performs a whole-response messages call.
func (c *AnthropicClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, c.buildRequest(req))
	if err != nil {
		c.logger.Error("Messages request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInference, err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			content = *block.Text
			break
		}
	}

	return &GenerateResult{
		Content:    content,
		StopReason: string(resp.StopReason),
		ModelID:    req.ModelID,
		UsedTokens: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
