package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/llm"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/repositories"
)

func testBot(ownerID string) *models.Bot {
	return &models.Bot{
		ID:           uuid.New(),
		Name:         "support-bot",
		Instructions: "Be helpful.",
		ModelID:      "gpt-4o",
		Temperature:  70,
		MaxTokens:    1024,
		OwnerID:      ownerID,
		IsActive:     true,
	}
}

func fragmentStream(fragments ...llm.Fragment) func(context.Context, *llm.GenerateRequest) (<-chan llm.Fragment, error) {
	return func(ctx context.Context, req *llm.GenerateRequest) (<-chan llm.Fragment, error) {
		ch := make(chan llm.Fragment, len(fragments))
		for _, f := range fragments {
			ch <- f
		}
		close(ch)
		return ch, nil
	}
}

func collectEvents(t *testing.T, events <-chan models.ChatEvent) []models.ChatEvent {
	t.Helper()
	var collected []models.ChatEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	return collected
}

func TestChatService_StreamChat_HappyPath(t *testing.T) {
	bot := testBot("user-1")
	bots := &mockBotRepository{bot: bot}
	messages := &mockMessageRepository{}
	knowledge := &mockKnowledgeService{}
	gateway := llm.NewMockGateway()
	gateway.StreamFunc = fragmentStream(
		llm.Fragment{Text: "Hello"},
		llm.Fragment{Text: ", world"},
	)

	svc := NewChatService(bots, messages, knowledge, gateway, zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		Message: "hi there",
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}

	collected := collectEvents(t, events)

	if collected[0].Type != models.ChatEventStart {
		t.Errorf("expected start event first, got %q", collected[0].Type)
	}
	if collected[0].ChatID == "" {
		t.Error("start event should carry a minted chat id")
	}
	last := collected[len(collected)-1]
	if last.Type != models.ChatEventDone {
		t.Errorf("expected done event last, got %q", last.Type)
	}

	var content strings.Builder
	for _, ev := range collected {
		if ev.Type == models.ChatEventMessage {
			content.WriteString(ev.Content)
		}
	}
	if content.String() != "Hello, world" {
		t.Errorf("expected streamed content %q, got %q", "Hello, world", content.String())
	}

	// User turn persisted before streaming, assistant turn after.
	if len(messages.created) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(messages.created))
	}
	if messages.created[0].Role != models.ChatRoleUser || messages.created[0].Content != "hi there" {
		t.Errorf("unexpected user turn: %+v", messages.created[0])
	}
	assistant := messages.created[1]
	if assistant.Role != models.ChatRoleAssistant {
		t.Errorf("expected assistant role, got %q", assistant.Role)
	}
	if assistant.Content != "Hello, world" {
		t.Errorf("assistant content should be the fragment concatenation, got %q", assistant.Content)
	}
	if assistant.ModelID != bot.ModelID {
		t.Errorf("expected model id %q, got %q", bot.ModelID, assistant.ModelID)
	}
}

func TestChatService_StreamChat_ScalesTemperature(t *testing.T) {
	bot := testBot("user-1")
	bot.Temperature = 35
	bots := &mockBotRepository{bot: bot}
	gateway := llm.NewMockGateway()

	svc := NewChatService(bots, &mockMessageRepository{}, &mockKnowledgeService{}, gateway, zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		Message: "hi",
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	collectEvents(t, events)

	if gateway.LastStreamRequest == nil {
		t.Fatal("expected a stream request")
	}
	if got := gateway.LastStreamRequest.Temperature; got != 0.35 {
		t.Errorf("expected temperature 0.35, got %v", got)
	}
	if gateway.LastStreamRequest.System != bot.Instructions {
		t.Errorf("expected system prompt %q, got %q", bot.Instructions, gateway.LastStreamRequest.System)
	}
}

func TestChatService_StreamChat_BotNotFound(t *testing.T) {
	bots := &mockBotRepository{getErr: apperrors.ErrNotFound}
	svc := NewChatService(bots, &mockMessageRepository{}, &mockKnowledgeService{}, llm.NewMockGateway(), zap.NewNop())

	_, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   uuid.New(),
		Message: "hi",
	})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChatService_StreamChat_PrivateBotForbidden(t *testing.T) {
	bot := testBot("owner")
	bots := &mockBotRepository{bot: bot}
	messages := &mockMessageRepository{}
	svc := NewChatService(bots, messages, &mockKnowledgeService{}, llm.NewMockGateway(), zap.NewNop())

	_, err := svc.StreamChat(context.Background(), "someone-else", ChatRequest{
		BotID:   bot.ID,
		Message: "hi",
	})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(messages.created) != 0 {
		t.Error("rejected turn must not persist any message")
	}
}

func TestChatService_StreamChat_MarketplaceBotStillPrivate(t *testing.T) {
	bot := testBot("owner")
	bot.IsMarketplace = true
	bots := &mockBotRepository{bot: bot}
	messages := &mockMessageRepository{}
	svc := NewChatService(bots, messages, &mockKnowledgeService{}, llm.NewMockGateway(), zap.NewNop())

	_, err := svc.StreamChat(context.Background(), "someone-else", ChatRequest{
		BotID:   bot.ID,
		Message: "hi",
	})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("marketplace flag must not grant chat access to a non-public bot, got %v", err)
	}
	if len(messages.created) != 0 {
		t.Error("rejected turn must not persist any message")
	}
}

func TestChatService_StreamChat_PublicBotVisible(t *testing.T) {
	bot := testBot("owner")
	bot.IsPublic = true
	bots := &mockBotRepository{bot: bot}
	svc := NewChatService(bots, &mockMessageRepository{}, &mockKnowledgeService{}, llm.NewMockGateway(), zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "someone-else", ChatRequest{
		BotID:   bot.ID,
		Message: "hi",
	})
	if err != nil {
		t.Fatalf("expected public bot to be reachable: %v", err)
	}
	collectEvents(t, events)
}

func TestChatService_StreamChat_RAGRewritesPromptNotHistory(t *testing.T) {
	bot := testBot("user-1")
	bot.RAGEnabled = true
	bot.KnowledgeBaseID = "kb-1"
	bots := &mockBotRepository{bot: bot}
	messages := &mockMessageRepository{}
	chunkID := uuid.New()
	knowledge := &mockKnowledgeService{
		results: []*models.SearchResult{
			{ID: chunkID, Text: "The warranty lasts two years.", Similarity: 0.91},
		},
	}
	gateway := llm.NewMockGateway()
	gateway.StreamFunc = fragmentStream(llm.Fragment{Text: "Two years."})

	svc := NewChatService(bots, messages, knowledge, gateway, zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		Message: "How long is the warranty?",
		UseRAG:  true,
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	collectEvents(t, events)

	if knowledge.capturedTopK != 5 {
		t.Errorf("expected fixed top-K 5, got %d", knowledge.capturedTopK)
	}

	// Prompt sent to the model carries the context block.
	prompt := gateway.LastStreamRequest.Turns[len(gateway.LastStreamRequest.Turns)-1].Content
	if !strings.Contains(prompt, "Use the following context to answer the question:") {
		t.Errorf("expected context block in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "Context 1: The warranty lasts two years.") {
		t.Errorf("expected retrieved chunk in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "Question: How long is the warranty?") {
		t.Errorf("expected original question in prompt, got %q", prompt)
	}

	// Persisted user turn keeps the original text.
	if messages.created[0].Content != "How long is the warranty?" {
		t.Errorf("user turn must keep original text, got %q", messages.created[0].Content)
	}

	// Assistant turn records which chunks were injected.
	assistant := messages.created[1]
	if len(assistant.ContextUsed) != 1 || assistant.ContextUsed[0] != chunkID {
		t.Errorf("expected context_used [%s], got %v", chunkID, assistant.ContextUsed)
	}
}

func TestChatService_StreamChat_RAGEmptyResultsSendsUnmodified(t *testing.T) {
	bot := testBot("user-1")
	bot.RAGEnabled = true
	bot.KnowledgeBaseID = "kb-1"
	bots := &mockBotRepository{bot: bot}
	knowledge := &mockKnowledgeService{}
	gateway := llm.NewMockGateway()

	svc := NewChatService(bots, &mockMessageRepository{}, knowledge, gateway, zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		Message: "hello",
		UseRAG:  true,
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	collectEvents(t, events)

	prompt := gateway.LastStreamRequest.Turns[len(gateway.LastStreamRequest.Turns)-1].Content
	if prompt != "hello" {
		t.Errorf("empty retrieval must leave the turn unmodified, got %q", prompt)
	}
}

func TestChatService_StreamChat_RAGSkippedWhenBotDisabled(t *testing.T) {
	bot := testBot("user-1")
	bot.RAGEnabled = false
	bots := &mockBotRepository{bot: bot}
	knowledge := &mockKnowledgeService{}

	svc := NewChatService(bots, &mockMessageRepository{}, knowledge, llm.NewMockGateway(), zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		Message: "hello",
		UseRAG:  true,
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	collectEvents(t, events)

	if knowledge.searchCalls != 0 {
		t.Error("RAG must not run when the bot has it disabled")
	}
}

func TestChatService_StreamChat_MidStreamErrorSkipsAssistantPersist(t *testing.T) {
	bot := testBot("user-1")
	bots := &mockBotRepository{bot: bot}
	messages := &mockMessageRepository{}
	gateway := llm.NewMockGateway()
	gateway.StreamFunc = fragmentStream(
		llm.Fragment{Text: "partial"},
		llm.Fragment{Err: apperrors.ErrStreamInterrupted},
	)

	svc := NewChatService(bots, messages, &mockKnowledgeService{}, gateway, zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		Message: "hi",
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	collected := collectEvents(t, events)

	last := collected[len(collected)-1]
	if last.Type != models.ChatEventError {
		t.Fatalf("expected terminal error event, got %q", last.Type)
	}

	// Only the user turn survives an interrupted stream.
	if len(messages.created) != 1 {
		t.Fatalf("expected only the user turn persisted, got %d messages", len(messages.created))
	}
	if messages.created[0].Role != models.ChatRoleUser {
		t.Errorf("expected persisted user turn, got role %q", messages.created[0].Role)
	}
}

func TestChatService_StreamChat_ReusesCallerChatID(t *testing.T) {
	bot := testBot("user-1")
	bots := &mockBotRepository{bot: bot}
	svc := NewChatService(bots, &mockMessageRepository{}, &mockKnowledgeService{}, llm.NewMockGateway(), zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		ChatID:  "session-42",
		Message: "hi",
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	collected := collectEvents(t, events)
	if collected[0].ChatID != "session-42" {
		t.Errorf("expected caller-supplied chat id, got %q", collected[0].ChatID)
	}
}

func TestChatService_StreamChat_IncludesHistoryInPrompt(t *testing.T) {
	bot := testBot("user-1")
	bots := &mockBotRepository{bot: bot}
	messages := &mockMessageRepository{
		recent: []*models.Message{
			{Role: models.ChatRoleUser, Content: "first question"},
			{Role: models.ChatRoleAssistant, Content: "first answer"},
		},
	}
	gateway := llm.NewMockGateway()

	svc := NewChatService(bots, messages, &mockKnowledgeService{}, gateway, zap.NewNop())

	events, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{
		BotID:   bot.ID,
		ChatID:  "session-1",
		Message: "followup",
	})
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	collectEvents(t, events)

	turns := gateway.LastStreamRequest.Turns
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns (2 history + 1 new), got %d", len(turns))
	}
	if turns[0].Content != "first question" || turns[2].Content != "followup" {
		t.Errorf("turns out of order: %+v", turns)
	}
	if messages.capturedLimit != repositories.DefaultHistoryWindow {
		t.Errorf("expected the shared history window %d, got %d",
			repositories.DefaultHistoryWindow, messages.capturedLimit)
	}
}

func TestChatService_StreamChat_EmptyMessageRejected(t *testing.T) {
	svc := NewChatService(&mockBotRepository{}, &mockMessageRepository{}, &mockKnowledgeService{}, llm.NewMockGateway(), zap.NewNop())

	_, err := svc.StreamChat(context.Background(), "user-1", ChatRequest{BotID: uuid.New()})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
