package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/config"
	"github.com/mangoo-ai/mangoo-engine/pkg/llm"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/repositories"
)

// ChunkInput is one document fragment to be embedded and stored.
type ChunkInput struct {
	Text       string         `json:"text"`
	SourceType string         `json:"source_type"`
	SourceURI  string         `json:"source_uri"`
	Metadata   map[string]any `json:"metadata"`
}

// KnowledgeService ingests document chunks into a knowledge base and runs
// similarity search over it.
type KnowledgeService interface {
	// AddChunks embeds every chunk text in one batch and stores them
	// atomically. Either all chunks land or none do.
	AddChunks(ctx context.Context, knowledgeBaseID string, chunks []ChunkInput) (int, error)

	// SearchSimilar embeds the query and returns the most similar chunks.
	// Zero topK and threshold fall back to configured defaults.
	SearchSimilar(ctx context.Context, knowledgeBaseID, query string, topK int, threshold float64) ([]*models.SearchResult, error)

	// DeleteKnowledgeBase removes every chunk of the knowledge base and
	// returns the count. Unknown ids delete zero chunks without error.
	DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error)
}

type knowledgeService struct {
	chunks  repositories.KnowledgeRepository
	gateway llm.Gateway
	cfg     config.VectorConfig
	logger  *zap.Logger
}

// NewKnowledgeService creates a new KnowledgeService.
func NewKnowledgeService(chunks repositories.KnowledgeRepository, gateway llm.Gateway, cfg config.VectorConfig, logger *zap.Logger) KnowledgeService {
	return &knowledgeService{chunks: chunks, gateway: gateway, cfg: cfg, logger: logger}
}

var _ KnowledgeService = (*knowledgeService)(nil)

func (s *knowledgeService) AddChunks(ctx context.Context, knowledgeBaseID string, inputs []ChunkInput) (int, error) {
	if strings.TrimSpace(knowledgeBaseID) == "" {
		return 0, fmt.Errorf("%w: knowledge_base_id is required", apperrors.ErrValidation)
	}
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: at least one chunk is required", apperrors.ErrValidation)
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Text) == "" {
			return 0, fmt.Errorf("%w: chunk %d has empty text", apperrors.ErrValidation, i)
		}
		texts[i] = in.Text
	}

	embeddings, err := s.gateway.Embed(ctx, texts, "")
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(inputs) {
		return 0, fmt.Errorf("%w: got %d embeddings for %d chunks",
			apperrors.ErrEmbedding, len(embeddings), len(inputs))
	}

	records := make([]*models.KnowledgeChunk, len(inputs))
	for i, in := range inputs {
		if len(embeddings[i]) != s.cfg.Dimension {
			return 0, fmt.Errorf("%w: chunk %d embedding has dimension %d, expected %d",
				apperrors.ErrEmbedding, i, len(embeddings[i]), s.cfg.Dimension)
		}
		records[i] = &models.KnowledgeChunk{
			KnowledgeBaseID: knowledgeBaseID,
			Text:            in.Text,
			Embedding:       pgvector.NewVector(embeddings[i]),
			SourceType:      in.SourceType,
			SourceURI:       in.SourceURI,
			ChunkIndex:      i,
			Metadata:        in.Metadata,
		}
	}

	if err := s.chunks.InsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	s.logger.Info("knowledge chunks added",
		zap.String("knowledge_base_id", knowledgeBaseID),
		zap.Int("count", len(records)))

	return len(records), nil
}

func (s *knowledgeService) SearchSimilar(ctx context.Context, knowledgeBaseID, query string, topK int, threshold float64) ([]*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", apperrors.ErrValidation)
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if threshold <= 0 {
		threshold = s.cfg.SimilarityThreshold
	}

	embeddings, err := s.gateway.Embed(ctx, []string{query}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one query", apperrors.ErrEmbedding, len(embeddings))
	}

	return s.chunks.Search(ctx, knowledgeBaseID, pgvector.NewVector(embeddings[0]), topK, threshold)
}

func (s *knowledgeService) DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error) {
	if strings.TrimSpace(knowledgeBaseID) == "" {
		return 0, fmt.Errorf("%w: knowledge_base_id is required", apperrors.ErrValidation)
	}
	deleted, err := s.chunks.DeleteByKnowledgeBase(ctx, knowledgeBaseID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("knowledge base deleted",
		zap.String("knowledge_base_id", knowledgeBaseID),
		zap.Int64("chunks_removed", deleted))
	return deleted, nil
}
