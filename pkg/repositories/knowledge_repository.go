package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/mangoo-ai/mangoo-engine/pkg/database"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

// KnowledgeRepository provides data access for knowledge chunks. Chunks are
// written in batches and removed in bulk per knowledge base; there is no
// in-place update.
type KnowledgeRepository interface {
	// InsertBatch persists all chunks in one transaction. No chunk
	// survives a failure.
	InsertBatch(ctx context.Context, chunks []*models.KnowledgeChunk) error

	// Search returns chunks of the knowledge base whose cosine similarity
	// to the query embedding exceeds threshold, ordered by descending
	// similarity, limited to topK.
	Search(ctx context.Context, knowledgeBaseID string, query pgvector.Vector, topK int, threshold float64) ([]*models.SearchResult, error)

	// DeleteByKnowledgeBase removes every chunk of the knowledge base and
	// returns the count deleted. An unknown id deletes zero rows.
	DeleteByKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error)
}

type knowledgeRepository struct {
	db *database.DB
}

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(db *database.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

func (r *knowledgeRepository) InsertBatch(ctx context.Context, chunks []*models.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO knowledge_chunks (
			id, knowledge_base_id, text, embedding, source_type,
			source_uri, chunk_index, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		chunk.CreatedAt = now

		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if chunk.Metadata == nil {
			metadataJSON = []byte("{}")
		}

		_, err = tx.Exec(ctx, query,
			chunk.ID, chunk.KnowledgeBaseID, chunk.Text, chunk.Embedding,
			nullableString(chunk.SourceType), nullableString(chunk.SourceURI),
			chunk.ChunkIndex, metadataJSON, chunk.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunk batch: %w", err)
	}

	return nil
}

func (r *knowledgeRepository) Search(ctx context.Context, knowledgeBaseID string, query pgvector.Vector, topK int, threshold float64) ([]*models.SearchResult, error) {
	// The <=> operator is pgvector cosine distance; similarity is its
	// complement. Ascending distance order is descending similarity.
	sql := `
		SELECT id, text, source_type, source_uri, chunk_index, metadata,
		       1 - (embedding <=> $1) AS similarity
		FROM knowledge_chunks
		WHERE knowledge_base_id = $2
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY embedding <=> $1
		LIMIT $4`

	rows, err := r.db.Query(ctx, sql, query, knowledgeBaseID, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}
	defer rows.Close()

	results := make([]*models.SearchResult, 0)
	for rows.Next() {
		var res models.SearchResult
		var sourceType, sourceURI *string
		var metadataJSON []byte

		err := rows.Scan(&res.ID, &res.Text, &sourceType, &sourceURI,
			&res.ChunkIndex, &metadataJSON, &res.Similarity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		if sourceType != nil {
			res.SourceType = *sourceType
		}
		if sourceURI != nil {
			res.SourceURI = *sourceURI
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &res.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

func (r *knowledgeRepository) DeleteByKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE knowledge_base_id = $1`,
		knowledgeBaseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge base: %w", err)
	}
	return tag.RowsAffected(), nil
}
