package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
)

// streamBuffer is the fragment channel capacity. Generation and client
// delivery overlap; the buffer only absorbs short bursts.
const streamBuffer = 64

// OpenAIClient talks to an OpenAI-compatible endpoint for both chat
// completion and embeddings.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	maxTokens      int
	logger         *zap.Logger
}

// OpenAIConfig holds configuration for creating an OpenAI-compatible client.
type OpenAIConfig struct {
	BaseURL        string // e.g. "https://api.openai.com/v1"
	APIKey         string // optional for local endpoints
	Model          string // default generation model
	EmbeddingModel string // default embedding model
	MaxTokens      int    // default output cap
}

// NewOpenAIClient creates a new OpenAI-compatible inference client.
func NewOpenAIClient(cfg *OpenAIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		maxTokens:      cfg.MaxTokens,
		logger:         logger.Named("llm"),
	}, nil
}

// DefaultModel returns the configured default generation model.
func (c *OpenAIClient) DefaultModel() string {
	return c.model
}

func (c *OpenAIClient) buildRequest(req *GenerateRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, t := range req.Turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}

	model := req.ModelID
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	// The request struct tags Temperature omitempty, so a literal 0 would
	// be dropped from the wire and the provider would apply its own
	// default. Send the smallest nonzero float instead.
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// Stream starts a streaming chat completion. Mid-stream provider failures
// are delivered as a terminal error fragment on the returned channel.
func (c *OpenAIClient) Stream(ctx context.Context, req *GenerateRequest) (<-chan Fragment, error) {
	openaiReq := c.buildRequest(req)
	openaiReq.Stream = true

	c.logger.Debug("Starting generation stream",
		zap.String("model", openaiReq.Model),
		zap.Int("turns", len(req.Turns)),
		zap.Float64("temperature", req.Temperature))

	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		c.logger.Error("Failed to create stream", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInference, err)
	}

	fragments := make(chan Fragment, streamBuffer)
	go func() {
		defer close(fragments)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				c.logger.Debug("Generation stream completed",
					zap.Duration("elapsed", time.Since(start)))
				return
			}
			if err != nil {
				c.logger.Error("Stream receive error", zap.Error(err))
				fragments <- Fragment{Err: fmt.Errorf("%w: %v", apperrors.ErrStreamInterrupted, err)}
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			if delta := response.Choices[0].Delta.Content; delta != "" {
				select {
				case fragments <- Fragment{Text: delta}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return fragments, nil
}

// Generate performs a whole-response chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	openaiReq := c.buildRequest(req)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		c.logger.Error("Generation request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInference, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", apperrors.ErrInference)
	}

	c.logger.Info("Generation request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResult{
		Content:    resp.Choices[0].Message.Content,
		StopReason: string(resp.Choices[0].FinishReason),
		ModelID:    openaiReq.Model,
		UsedTokens: resp.Usage.TotalTokens,
	}, nil
}

// Embed generates embeddings for the inputs, preserving order. The whole
// batch fails if the provider response is missing any embedding.
func (c *OpenAIClient) Embed(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	if model == "" {
		model = c.embeddingModel
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbedding, err)
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			apperrors.ErrEmbedding, len(resp.Data), len(inputs))
	}

	// The response carries an index per datum; response order is not
	// guaranteed to match input order.
	embeddings := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", apperrors.ErrEmbedding, d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", apperrors.ErrEmbedding, d.Index)
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", apperrors.ErrEmbedding, i)
		}
	}

	return embeddings, nil
}

// Ensure OpenAIClient implements Gateway at compile time.
var _ Gateway = (*OpenAIClient)(nil)
