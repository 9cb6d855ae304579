package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/database"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

// BotListFilter controls which bots a listing returns.
type BotListFilter struct {
	// UserID is the caller; owned bots are always included.
	UserID string
	// IncludePublic adds bots with is_public = true.
	IncludePublic bool
	// MarketplaceOnly restricts the listing to marketplace bots,
	// overriding IncludePublic.
	MarketplaceOnly bool
}

// BotRepository provides data access for bots.
type BotRepository interface {
	Create(ctx context.Context, bot *models.Bot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bot, error)
	List(ctx context.Context, filter BotListFilter) ([]*models.Bot, error)
	Update(ctx context.Context, bot *models.Bot) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type botRepository struct {
	db *database.DB
}

// NewBotRepository creates a new BotRepository.
func NewBotRepository(db *database.DB) BotRepository {
	return &botRepository{db: db}
}

var _ BotRepository = (*botRepository)(nil)

const botColumns = `id, name, description, instructions, model_id, temperature,
	max_tokens, rag_enabled, knowledge_base_id, owner_id, is_public,
	is_marketplace, is_active, tags, metadata, created_at, updated_at`

func (r *botRepository) Create(ctx context.Context, bot *models.Bot) error {
	now := time.Now()
	bot.CreatedAt = now
	bot.UpdatedAt = now
	if bot.ID == uuid.Nil {
		bot.ID = uuid.New()
	}

	tagsJSON, metadataJSON, err := marshalBotJSON(bot)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bots (` + botColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = r.db.Exec(ctx, query,
		bot.ID, bot.Name, bot.Description, bot.Instructions, bot.ModelID,
		bot.Temperature, bot.MaxTokens, bot.RAGEnabled, nullableString(bot.KnowledgeBaseID),
		bot.OwnerID, bot.IsPublic, bot.IsMarketplace, bot.IsActive,
		tagsJSON, metadataJSON, bot.CreatedAt, bot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	return nil
}

func (r *botRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1`

	bot, err := scanBot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bot %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}

	return bot, nil
}

func (r *botRepository) List(ctx context.Context, filter BotListFilter) ([]*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE is_active = true`
	args := []any{}

	switch {
	case filter.MarketplaceOnly:
		query += ` AND is_marketplace = true`
	case filter.IncludePublic:
		query += ` AND (owner_id = $1 OR is_public = true)`
		args = append(args, filter.UserID)
	default:
		query += ` AND owner_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	defer rows.Close()

	bots := make([]*models.Bot, 0)
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bots: %w", err)
	}

	return bots, nil
}

func (r *botRepository) Update(ctx context.Context, bot *models.Bot) error {
	bot.UpdatedAt = time.Now()

	tagsJSON, metadataJSON, err := marshalBotJSON(bot)
	if err != nil {
		return err
	}

	query := `
		UPDATE bots SET
			name = $2, description = $3, instructions = $4, model_id = $5,
			temperature = $6, max_tokens = $7, rag_enabled = $8,
			knowledge_base_id = $9, is_public = $10, is_marketplace = $11,
			is_active = $12, tags = $13, metadata = $14, updated_at = $15
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		bot.ID, bot.Name, bot.Description, bot.Instructions, bot.ModelID,
		bot.Temperature, bot.MaxTokens, bot.RAGEnabled, nullableString(bot.KnowledgeBaseID),
		bot.IsPublic, bot.IsMarketplace, bot.IsActive,
		tagsJSON, metadataJSON, bot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bot %s: %w", bot.ID, apperrors.ErrNotFound)
	}

	return nil
}

func (r *botRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bot %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func marshalBotJSON(bot *models.Bot) (tagsJSON, metadataJSON []byte, err error) {
	tagsJSON, err = json.Marshal(bot.Tags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	if bot.Tags == nil {
		tagsJSON = []byte("[]")
	}

	metadataJSON, err = json.Marshal(bot.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if bot.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	return tagsJSON, metadataJSON, nil
}

func scanBot(row pgx.Row) (*models.Bot, error) {
	var b models.Bot
	var kbID *string
	var tagsJSON, metadataJSON []byte

	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.Instructions, &b.ModelID,
		&b.Temperature, &b.MaxTokens, &b.RAGEnabled, &kbID, &b.OwnerID,
		&b.IsPublic, &b.IsMarketplace, &b.IsActive, &tagsJSON, &metadataJSON,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if kbID != nil {
		b.KnowledgeBaseID = *kbID
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &b.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &b.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &b, nil
}

// nullableString maps empty strings to SQL NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
