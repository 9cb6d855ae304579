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

// AgentRepository provides data access for marketplace agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	// List returns public, active agents, optionally filtered by category.
	List(ctx context.Context, category string) ([]*models.Agent, error)
	// ListCategories returns the distinct categories of listable agents.
	ListCategories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, agent *models.Agent) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IncrementUsage bumps the request counter after a completed invocation.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type agentRepository struct {
	db *database.DB
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(db *database.DB) AgentRepository {
	return &agentRepository{db: db}
}

var _ AgentRepository = (*agentRepository)(nil)

const agentColumns = `id, name, display_name, description, category, agent_type,
	capabilities, config, status, is_public, pricing_model, price_per_request,
	icon_url, tags, metadata, total_requests, success_rate, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *models.Agent) error {
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	if agent.Status == "" {
		agent.Status = models.AgentStatusActive
	}
	if agent.SuccessRate == 0 {
		agent.SuccessRate = 100
	}

	capsJSON, configJSON, tagsJSON, metadataJSON, err := marshalAgentJSON(agent)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.db.Exec(ctx, query,
		agent.ID, agent.Name, agent.DisplayName, agent.Description, agent.Category,
		agent.AgentType, capsJSON, configJSON, agent.Status, agent.IsPublic,
		agent.PricingModel, agent.PricePerRequest, agent.IconURL, tagsJSON,
		metadataJSON, agent.TotalRequests, agent.SuccessRate,
		agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`

	agent, err := scanAgent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("agent %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}

func (r *agentRepository) List(ctx context.Context, category string) ([]*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents
		WHERE is_public = true AND status = $1`
	args := []any{models.AgentStatusActive}

	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY display_name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := make([]*models.Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}

	return agents, nil
}

func (r *agentRepository) ListCategories(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM agents
		WHERE is_public = true AND status = $1
		ORDER BY category`

	rows, err := r.db.Query(ctx, query, models.AgentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *agentRepository) Update(ctx context.Context, agent *models.Agent) error {
	agent.UpdatedAt = time.Now()

	capsJSON, configJSON, tagsJSON, metadataJSON, err := marshalAgentJSON(agent)
	if err != nil {
		return err
	}

	query := `
		UPDATE agents SET
			name = $2, display_name = $3, description = $4, category = $5,
			agent_type = $6, capabilities = $7, config = $8, status = $9,
			is_public = $10, pricing_model = $11, price_per_request = $12,
			icon_url = $13, tags = $14, metadata = $15, updated_at = $16
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		agent.ID, agent.Name, agent.DisplayName, agent.Description, agent.Category,
		agent.AgentType, capsJSON, configJSON, agent.Status, agent.IsPublic,
		agent.PricingModel, agent.PricePerRequest, agent.IconURL, tagsJSON,
		metadataJSON, agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %s: %w", agent.ID, apperrors.ErrNotFound)
	}

	return nil
}

func (r *agentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *agentRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE agents SET total_requests = total_requests + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment agent usage: %w", err)
	}
	return nil
}

func marshalAgentJSON(agent *models.Agent) (capsJSON, configJSON, tagsJSON, metadataJSON []byte, err error) {
	capsJSON, err = json.Marshal(agent.Capabilities)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal capabilities: %w", err)
	}
	if agent.Capabilities == nil {
		capsJSON = []byte("[]")
	}

	configJSON, err = json.Marshal(agent.Config)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if agent.Config == nil {
		configJSON = []byte("{}")
	}

	tagsJSON, err = json.Marshal(agent.Tags)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	if agent.Tags == nil {
		tagsJSON = []byte("[]")
	}

	metadataJSON, err = json.Marshal(agent.Metadata)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if agent.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	return capsJSON, configJSON, tagsJSON, metadataJSON, nil
}

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var a models.Agent
	var capsJSON, configJSON, tagsJSON, metadataJSON []byte

	err := row.Scan(
		&a.ID, &a.Name, &a.DisplayName, &a.Description, &a.Category,
		&a.AgentType, &capsJSON, &configJSON, &a.Status, &a.IsPublic,
		&a.PricingModel, &a.PricePerRequest, &a.IconURL, &tagsJSON,
		&metadataJSON, &a.TotalRequests, &a.SuccessRate,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(capsJSON) > 0 {
		if err := json.Unmarshal(capsJSON, &a.Capabilities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal capabilities: %w", err)
		}
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &a.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &a.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &a, nil
}
