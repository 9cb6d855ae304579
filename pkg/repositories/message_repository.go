package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mangoo-ai/mangoo-engine/pkg/database"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

// DefaultHistoryWindow caps how many prior turns a recent-history query
// returns when the caller does not say otherwise. Older turns fall out of
// the context window; there is no summarization.
const DefaultHistoryWindow = 20

// MessageRepository provides data access for chat messages. Messages are
// append-only; there is no update operation.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// GetRecent returns up to limit of the most recent turns for a
	// session+bot, oldest first.
	GetRecent(ctx context.Context, chatID string, botID uuid.UUID, limit int) ([]*models.Message, error)
	// GetHistory returns all turns of a session visible to the user,
	// oldest first.
	GetHistory(ctx context.Context, chatID, userID string) ([]*models.Message, error)
	// DeleteByChat removes every turn of a session owned by the user and
	// returns the count deleted.
	DeleteByChat(ctx context.Context, chatID, userID string) (int64, error)
}

type messageRepository struct {
	db *database.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *database.DB) MessageRepository {
	return &messageRepository{db: db}
}

var _ MessageRepository = (*messageRepository)(nil)

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	message.CreatedAt = time.Now()
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}

	metadataJSON, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if message.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	contextJSON, err := json.Marshal(message.ContextUsed)
	if err != nil {
		return fmt.Errorf("failed to marshal context_used: %w", err)
	}
	if message.ContextUsed == nil {
		contextJSON = []byte("[]")
	}

	query := `
		INSERT INTO messages (
			id, chat_id, bot_id, user_id, role, content, tokens_used,
			model_id, metadata, context_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		message.ID, message.ChatID, message.BotID, message.UserID,
		message.Role, message.Content, message.TokensUsed,
		nullableString(message.ModelID), metadataJSON, contextJSON,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

const messageColumns = `id, chat_id, bot_id, user_id, role, content,
	tokens_used, model_id, metadata, context_used, created_at`

func (r *messageRepository) GetRecent(ctx context.Context, chatID string, botID uuid.UUID, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryWindow
	}

	// Most recent turns, then reversed to chronological order.
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1 AND bot_id = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, chatID, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) GetHistory(ctx context.Context, chatID, userID string) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1 AND user_id = $2
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (r *messageRepository) DeleteByChat(ctx context.Context, chatID, userID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM messages WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chat history: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectMessages(rows pgx.Rows) ([]*models.Message, error) {
	messages := make([]*models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	var modelID *string
	var metadataJSON, contextJSON []byte

	err := row.Scan(
		&m.ID, &m.ChatID, &m.BotID, &m.UserID, &m.Role, &m.Content,
		&m.TokensUsed, &modelID, &metadataJSON, &contextJSON, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if modelID != nil {
		m.ModelID = *modelID
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &m.ContextUsed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context_used: %w", err)
		}
	}

	return &m, nil
}
