package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole represents the role of a chat message sender.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// IsValidChatRole checks if the given role is valid.
func IsValidChatRole(r ChatRole) bool {
	switch r {
	case ChatRoleUser, ChatRoleAssistant, ChatRoleSystem:
		return true
	}
	return false
}

// Message is one turn in a chat session. Messages are append-only: they are
// never mutated after creation and only removed in bulk when a session is
// cleared.
type Message struct {
	ID     uuid.UUID `json:"id"`
	ChatID string    `json:"chat_id"` // groups a conversation
	BotID  uuid.UUID `json:"bot_id"`
	UserID string    `json:"user_id"`

	Role    ChatRole `json:"role"`
	Content string   `json:"content"`

	TokensUsed int            `json:"tokens_used,omitempty"`
	ModelID    string         `json:"model_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	// ContextUsed holds ids of knowledge chunks injected as RAG context
	// for the reply, empty for plain turns.
	ContextUsed []uuid.UUID `json:"context_used,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Turn is a role/content pair sent to the inference provider.
type Turn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
