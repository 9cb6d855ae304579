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

// BotCreateInput carries the caller-supplied fields for a new bot.
type BotCreateInput struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Instructions    string         `json:"instructions"`
	ModelID         string         `json:"model_id"`
	Temperature     *int           `json:"temperature"`
	MaxTokens       *int           `json:"max_tokens"`
	RAGEnabled      bool           `json:"rag_enabled"`
	KnowledgeBaseID string         `json:"knowledge_base_id"`
	IsPublic        bool           `json:"is_public"`
	IsMarketplace   bool           `json:"is_marketplace"`
	Tags            []string       `json:"tags"`
	Metadata        map[string]any `json:"metadata"`
}

// BotUpdateInput carries the updatable fields of a bot. Nil pointers leave
// the stored value unchanged.
type BotUpdateInput struct {
	Name            *string         `json:"name"`
	Description     *string         `json:"description"`
	Instructions    *string         `json:"instructions"`
	ModelID         *string         `json:"model_id"`
	Temperature     *int            `json:"temperature"`
	MaxTokens       *int            `json:"max_tokens"`
	RAGEnabled      *bool           `json:"rag_enabled"`
	KnowledgeBaseID *string         `json:"knowledge_base_id"`
	IsPublic        *bool           `json:"is_public"`
	IsMarketplace   *bool           `json:"is_marketplace"`
	IsActive        *bool           `json:"is_active"`
	Tags            *[]string       `json:"tags"`
	Metadata        *map[string]any `json:"metadata"`
}

// BotService manages bot configurations. Reads are open to anyone the bot
// is visible to; writes require ownership.
type BotService interface {
	Create(ctx context.Context, ownerID string, input BotCreateInput) (*models.Bot, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.Bot, error)
	List(ctx context.Context, userID string, includePublic, marketplaceOnly bool) ([]*models.Bot, error)
	Update(ctx context.Context, userID string, id uuid.UUID, input BotUpdateInput) (*models.Bot, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type botService struct {
	bots   repositories.BotRepository
	logger *zap.Logger
}

// NewBotService creates a new BotService.
func NewBotService(bots repositories.BotRepository, logger *zap.Logger) BotService {
	return &botService{bots: bots, logger: logger}
}

var _ BotService = (*botService)(nil)

const (
	defaultTemperature = 70
	defaultMaxTokens   = 4096
)

func (s *botService) Create(ctx context.Context, ownerID string, input BotCreateInput) (*models.Bot, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: bot name is required", apperrors.ErrValidation)
	}
	if input.Temperature != nil && (*input.Temperature < 0 || *input.Temperature > 100) {
		return nil, fmt.Errorf("%w: temperature must be between 0 and 100", apperrors.ErrValidation)
	}
	if input.MaxTokens != nil && *input.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: max_tokens must be positive", apperrors.ErrValidation)
	}

	bot := &models.Bot{
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Instructions:    input.Instructions,
		ModelID:         input.ModelID,
		Temperature:     defaultTemperature,
		MaxTokens:       defaultMaxTokens,
		RAGEnabled:      input.RAGEnabled,
		KnowledgeBaseID: input.KnowledgeBaseID,
		OwnerID:         ownerID,
		IsPublic:        input.IsPublic,
		IsMarketplace:   input.IsMarketplace,
		IsActive:        true,
		Tags:            input.Tags,
		Metadata:        input.Metadata,
	}
	if input.Temperature != nil {
		bot.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		bot.MaxTokens = *input.MaxTokens
	}

	if err := s.bots.Create(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	s.logger.Info("bot created",
		zap.String("bot_id", bot.ID.String()),
		zap.String("owner_id", ownerID))

	return bot, nil
}

func (s *botService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Bot, error) {
	bot, err := s.bots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bot.VisibleTo(userID) {
		return nil, fmt.Errorf("%w: bot %s is private", apperrors.ErrForbidden, id)
	}
	return bot, nil
}

func (s *botService) List(ctx context.Context, userID string, includePublic, marketplaceOnly bool) ([]*models.Bot, error) {
	return s.bots.List(ctx, repositories.BotListFilter{
		UserID:          userID,
		IncludePublic:   includePublic,
		MarketplaceOnly: marketplaceOnly,
	})
}

func (s *botService) Update(ctx context.Context, userID string, id uuid.UUID, input BotUpdateInput) (*models.Bot, error) {
	bot, err := s.bots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bot.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the owner can modify a bot", apperrors.ErrForbidden)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: bot name is required", apperrors.ErrValidation)
		}
		bot.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		bot.Description = *input.Description
	}
	if input.Instructions != nil {
		bot.Instructions = *input.Instructions
	}
	if input.ModelID != nil {
		bot.ModelID = *input.ModelID
	}
	if input.Temperature != nil {
		if *input.Temperature < 0 || *input.Temperature > 100 {
			return nil, fmt.Errorf("%w: temperature must be between 0 and 100", apperrors.ErrValidation)
		}
		bot.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		if *input.MaxTokens <= 0 {
			return nil, fmt.Errorf("%w: max_tokens must be positive", apperrors.ErrValidation)
		}
		bot.MaxTokens = *input.MaxTokens
	}
	if input.RAGEnabled != nil {
		bot.RAGEnabled = *input.RAGEnabled
	}
	if input.KnowledgeBaseID != nil {
		bot.KnowledgeBaseID = *input.KnowledgeBaseID
	}
	if input.IsPublic != nil {
		bot.IsPublic = *input.IsPublic
	}
	if input.IsMarketplace != nil {
		bot.IsMarketplace = *input.IsMarketplace
	}
	if input.IsActive != nil {
		bot.IsActive = *input.IsActive
	}
	if input.Tags != nil {
		bot.Tags = *input.Tags
	}
	if input.Metadata != nil {
		bot.Metadata = *input.Metadata
	}

	if err := s.bots.Update(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to update bot: %w", err)
	}

	return bot, nil
}

func (s *botService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	bot, err := s.bots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bot.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can delete a bot", apperrors.ErrForbidden)
	}
	return s.bots.Delete(ctx, id)
}
