package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// KnowledgeChunk is a text fragment with its embedding, grouped under a
// knowledge base id. Chunks are created in batches and deleted in bulk;
// they are never updated in place.
type KnowledgeChunk struct {
	ID              uuid.UUID       `json:"id"`
	KnowledgeBaseID string          `json:"knowledge_base_id"`
	Text            string          `json:"text"`
	Embedding       pgvector.Vector `json:"-"`

	SourceType string `json:"source_type,omitempty"` // pdf, url, text, ...
	SourceURI  string `json:"source_uri,omitempty"`
	ChunkIndex int    `json:"chunk_index"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SearchResult is one similarity-search hit. Similarity is
// 1 - cosine_distance, so higher is closer.
type SearchResult struct {
	ID         uuid.UUID      `json:"id"`
	Text       string         `json:"text"`
	SourceType string         `json:"source_type,omitempty"`
	SourceURI  string         `json:"source_uri,omitempty"`
	ChunkIndex int            `json:"chunk_index"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}
