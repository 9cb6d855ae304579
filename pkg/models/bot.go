package models

import (
	"time"

	"github.com/google/uuid"
)

// Bot is a user-owned chatbot configuration. Temperature is stored as an
// integer 0-100 and scaled to 0.0-1.0 at invocation time.
type Bot struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Instructions string    `json:"instructions,omitempty"` // system prompt

	ModelID     string `json:"model_id"`
	Temperature int    `json:"temperature"` // 0-100
	MaxTokens   int    `json:"max_tokens"`

	RAGEnabled bool `json:"rag_enabled"`
	// KnowledgeBaseID is an opaque grouping key. Deleting a knowledge base
	// does not cascade to bots referencing it.
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`

	OwnerID       string `json:"owner_id"`
	IsPublic      bool   `json:"is_public"`
	IsMarketplace bool   `json:"is_marketplace"`
	IsActive      bool   `json:"is_active"`

	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScaledTemperature converts the stored 0-100 integer to the 0.0-1.0
// fraction expected by the inference provider.
func (b *Bot) ScaledTemperature() float64 {
	return float64(b.Temperature) / 100.0
}

// VisibleTo reports whether the bot can be read by the given user.
// The marketplace flag only affects marketplace listings; direct access
// requires the bot to be public or owned by the caller.
func (b *Bot) VisibleTo(userID string) bool {
	return b.IsPublic || b.OwnerID == userID
}
