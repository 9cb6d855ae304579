package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
)

func TestBotService_Create_Defaults(t *testing.T) {
	repo := &mockBotRepository{}
	svc := NewBotService(repo, zap.NewNop())

	bot, err := svc.Create(context.Background(), "user-1", BotCreateInput{Name: " my bot "})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if bot.Name != "my bot" {
		t.Errorf("expected trimmed name, got %q", bot.Name)
	}
	if bot.OwnerID != "user-1" {
		t.Errorf("expected owner user-1, got %q", bot.OwnerID)
	}
	if bot.Temperature != 70 || bot.MaxTokens != 4096 {
		t.Errorf("expected temperature/max_tokens defaults, got %d/%d", bot.Temperature, bot.MaxTokens)
	}
	if !bot.IsActive {
		t.Error("new bots must start active")
	}
}

func TestBotService_Create_MissingName(t *testing.T) {
	svc := NewBotService(&mockBotRepository{}, zap.NewNop())

	_, err := svc.Create(context.Background(), "user-1", BotCreateInput{})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestBotService_Create_TemperatureOutOfRange(t *testing.T) {
	svc := NewBotService(&mockBotRepository{}, zap.NewNop())

	temp := 150
	_, err := svc.Create(context.Background(), "user-1", BotCreateInput{Name: "b", Temperature: &temp})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestBotService_Get_PrivateBotHiddenFromOthers(t *testing.T) {
	bot := &models.Bot{ID: uuid.New(), Name: "b", OwnerID: "owner"}
	repo := &mockBotRepository{bot: bot}
	svc := NewBotService(repo, zap.NewNop())

	if _, err := svc.Get(context.Background(), "owner", bot.ID); err != nil {
		t.Fatalf("owner must see own bot: %v", err)
	}

	_, err := svc.Get(context.Background(), "other", bot.ID)
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
}

func TestBotService_Get_MarketplaceBotStillPrivate(t *testing.T) {
	bot := &models.Bot{ID: uuid.New(), Name: "b", OwnerID: "owner", IsMarketplace: true}
	repo := &mockBotRepository{bot: bot}
	svc := NewBotService(repo, zap.NewNop())

	_, err := svc.Get(context.Background(), "other", bot.ID)
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("marketplace flag must not grant read access to a non-public bot, got %v", err)
	}

	if _, err := svc.Get(context.Background(), "owner", bot.ID); err != nil {
		t.Fatalf("owner must see own marketplace bot: %v", err)
	}
}

func TestBotService_Update_NonOwnerForbidden(t *testing.T) {
	bot := &models.Bot{ID: uuid.New(), Name: "b", OwnerID: "owner", IsPublic: true}
	repo := &mockBotRepository{bot: bot}
	svc := NewBotService(repo, zap.NewNop())

	name := "hijacked"
	_, err := svc.Update(context.Background(), "other", bot.ID, BotUpdateInput{Name: &name})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if bot.Name == "hijacked" {
		t.Error("bot must not be mutated by a non-owner")
	}
}

func TestBotService_Update_PartialFields(t *testing.T) {
	bot := &models.Bot{
		ID: uuid.New(), Name: "b", OwnerID: "owner",
		Temperature: 70, MaxTokens: 1000, Description: "old",
	}
	repo := &mockBotRepository{bot: bot}
	svc := NewBotService(repo, zap.NewNop())

	temp := 20
	updated, err := svc.Update(context.Background(), "owner", bot.ID, BotUpdateInput{Temperature: &temp})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Temperature != 20 {
		t.Errorf("expected temperature 20, got %d", updated.Temperature)
	}
	if updated.Description != "old" || updated.MaxTokens != 1000 {
		t.Error("unset fields must remain unchanged")
	}
}

func TestBotService_Delete_NonOwnerForbidden(t *testing.T) {
	bot := &models.Bot{ID: uuid.New(), Name: "b", OwnerID: "owner", IsPublic: true}
	repo := &mockBotRepository{bot: bot}
	svc := NewBotService(repo, zap.NewNop())

	err := svc.Delete(context.Background(), "other", bot.ID)
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if repo.deleteCalled {
		t.Error("repository delete must not run for a non-owner")
	}

	if err := svc.Delete(context.Background(), "owner", bot.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if !repo.deleteCalled {
		t.Error("expected repository delete for the owner")
	}
}

func TestBotService_List_PassesFilter(t *testing.T) {
	repo := &mockBotRepository{}
	svc := NewBotService(repo, zap.NewNop())

	if _, err := svc.List(context.Background(), "user-1", true, false); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if repo.capturedFilter.UserID != "user-1" || !repo.capturedFilter.IncludePublic {
		t.Errorf("unexpected filter: %+v", repo.capturedFilter)
	}
}
