package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/repositories"
)

// AgentCreateInput carries the admin-supplied fields for a marketplace agent.
type AgentCreateInput struct {
	Name            string         `json:"name"`
	DisplayName     string         `json:"display_name"`
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	AgentType       string         `json:"agent_type"`
	Capabilities    []string       `json:"capabilities"`
	Config          map[string]any `json:"config"`
	IsPublic        bool           `json:"is_public"`
	PricingModel    string         `json:"pricing_model"`
	PricePerRequest int            `json:"price_per_request"`
	IconURL         string         `json:"icon_url"`
	Tags            []string       `json:"tags"`
	Metadata        map[string]any `json:"metadata"`
}

// AgentUpdateInput carries the updatable fields of an agent. Nil pointers
// leave the stored value unchanged.
type AgentUpdateInput struct {
	DisplayName     *string         `json:"display_name"`
	Description     *string         `json:"description"`
	Category        *string         `json:"category"`
	AgentType       *string         `json:"agent_type"`
	Capabilities    *[]string       `json:"capabilities"`
	Config          *map[string]any `json:"config"`
	Status          *string         `json:"status"`
	IsPublic        *bool           `json:"is_public"`
	PricingModel    *string         `json:"pricing_model"`
	PricePerRequest *int            `json:"price_per_request"`
	IconURL         *string         `json:"icon_url"`
	Tags            *[]string       `json:"tags"`
	Metadata        *map[string]any `json:"metadata"`
}

// AgentService manages the marketplace agent registry. Listings are public;
// mutation is restricted to admins at the handler layer.
type AgentService interface {
	Create(ctx context.Context, input AgentCreateInput) (*models.Agent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	List(ctx context.Context, category string) ([]*models.Agent, error)
	ListCategories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, input AgentUpdateInput) (*models.Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordUsage bumps the agent's request counter. Best effort; callers
	// should not fail a request on a counter error.
	RecordUsage(ctx context.Context, id uuid.UUID) error
}

type agentService struct {
	agents repositories.AgentRepository
	logger *zap.Logger
}

// NewAgentService creates a new AgentService.
func NewAgentService(agents repositories.AgentRepository, logger *zap.Logger) AgentService {
	return &agentService{agents: agents, logger: logger}
}

var _ AgentService = (*agentService)(nil)

func (s *agentService) Create(ctx context.Context, input AgentCreateInput) (*models.Agent, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: agent name is required", apperrors.ErrValidation)
	}
	if input.PricePerRequest < 0 {
		return nil, fmt.Errorf("%w: price_per_request cannot be negative", apperrors.ErrValidation)
	}

	agent := &models.Agent{
		Name:            strings.TrimSpace(input.Name),
		DisplayName:     input.DisplayName,
		Description:     input.Description,
		Category:        input.Category,
		AgentType:       input.AgentType,
		Capabilities:    input.Capabilities,
		Config:          input.Config,
		IsPublic:        input.IsPublic,
		PricingModel:    input.PricingModel,
		PricePerRequest: input.PricePerRequest,
		IconURL:         input.IconURL,
		Tags:            input.Tags,
		Metadata:        input.Metadata,
	}
	if agent.DisplayName == "" {
		agent.DisplayName = agent.Name
	}

	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	s.logger.Info("agent created",
		zap.String("agent_id", agent.ID.String()),
		zap.String("category", agent.Category))

	return agent, nil
}

func (s *agentService) Get(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.agents.GetByID(ctx, id)
}

func (s *agentService) List(ctx context.Context, category string) ([]*models.Agent, error) {
	return s.agents.List(ctx, category)
}

func (s *agentService) ListCategories(ctx context.Context) ([]string, error) {
	return s.agents.ListCategories(ctx)
}

func (s *agentService) Update(ctx context.Context, id uuid.UUID, input AgentUpdateInput) (*models.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil {
		switch *input.Status {
		case models.AgentStatusActive, models.AgentStatusInactive, models.AgentStatusMaintenance:
		default:
			return nil, fmt.Errorf("%w: invalid status %q", apperrors.ErrValidation, *input.Status)
		}
		agent.Status = *input.Status
	}
	if input.DisplayName != nil {
		agent.DisplayName = *input.DisplayName
	}
	if input.Description != nil {
		agent.Description = *input.Description
	}
	if input.Category != nil {
		agent.Category = *input.Category
	}
	if input.AgentType != nil {
		agent.AgentType = *input.AgentType
	}
	if input.Capabilities != nil {
		agent.Capabilities = *input.Capabilities
	}
	if input.Config != nil {
		agent.Config = *input.Config
	}
	if input.IsPublic != nil {
		agent.IsPublic = *input.IsPublic
	}
	if input.PricingModel != nil {
		agent.PricingModel = *input.PricingModel
	}
	if input.PricePerRequest != nil {
		if *input.PricePerRequest < 0 {
			return nil, fmt.Errorf("%w: price_per_request cannot be negative", apperrors.ErrValidation)
		}
		agent.PricePerRequest = *input.PricePerRequest
	}
	if input.IconURL != nil {
		agent.IconURL = *input.IconURL
	}
	if input.Tags != nil {
		agent.Tags = *input.Tags
	}
	if input.Metadata != nil {
		agent.Metadata = *input.Metadata
	}

	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}

	return agent, nil
}

func (s *agentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.agents.Delete(ctx, id)
}

func (s *agentService) RecordUsage(ctx context.Context, id uuid.UUID) error {
	if err := s.agents.IncrementUsage(ctx, id); err != nil {
		s.logger.Warn("failed to record agent usage",
			zap.String("agent_id", id.String()),
			zap.Error(err))
		return err
	}
	return nil
}
