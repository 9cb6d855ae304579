package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/apperrors"
	"github.com/mangoo-ai/mangoo-engine/pkg/llm"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/repositories"
)

// ragTopK is the fixed retrieval depth for the chat path. The standalone
// search endpoint honors caller-supplied depth instead.
const ragTopK = 5

// ChatRequest is one incoming chat turn.
type ChatRequest struct {
	BotID   uuid.UUID `json:"bot_id"`
	ChatID  string    `json:"chat_id"` // empty mints a new session
	Message string    `json:"message"`
	UseRAG  bool      `json:"use_rag"`
}

// ChatService orchestrates a chat turn: history replay, optional RAG
// enrichment, streamed generation, and persistence of both sides of the
// exchange.
type ChatService interface {
	// StreamChat runs one chat turn. The user turn is durably persisted
	// before the returned channel produces anything; the assistant turn is
	// persisted only after the stream completes. A non-nil error means the
	// turn was rejected before any side effect on message history.
	StreamChat(ctx context.Context, userID string, req ChatRequest) (<-chan models.ChatEvent, error)

	// GetHistory returns the caller's messages of a session, oldest first.
	GetHistory(ctx context.Context, userID, chatID string) ([]*models.Message, error)

	// DeleteHistory removes the caller's messages of a session and returns
	// the count deleted.
	DeleteHistory(ctx context.Context, userID, chatID string) (int64, error)
}

type chatService struct {
	bots      repositories.BotRepository
	messages  repositories.MessageRepository
	knowledge KnowledgeService
	gateway   llm.Gateway
	logger    *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(
	bots repositories.BotRepository,
	messages repositories.MessageRepository,
	knowledge KnowledgeService,
	gateway llm.Gateway,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		bots:      bots,
		messages:  messages,
		knowledge: knowledge,
		gateway:   gateway,
		logger:    logger,
	}
}

var _ ChatService = (*chatService)(nil)

func (s *chatService) StreamChat(ctx context.Context, userID string, req ChatRequest) (<-chan models.ChatEvent, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", apperrors.ErrValidation)
	}

	bot, err := s.bots.GetByID(ctx, req.BotID)
	if err != nil {
		return nil, err
	}
	if !bot.VisibleTo(userID) {
		return nil, fmt.Errorf("%w: bot %s is private", apperrors.ErrForbidden, req.BotID)
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	history, err := s.messages.GetRecent(ctx, chatID, bot.ID, repositories.DefaultHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	turns := make([]models.Turn, 0, len(history)+1)
	for _, msg := range history {
		turns = append(turns, models.Turn{Role: msg.Role, Content: msg.Content})
	}
	turns = append(turns, models.Turn{Role: models.ChatRoleUser, Content: req.Message})

	var contextUsed []uuid.UUID
	if req.UseRAG && bot.RAGEnabled && bot.KnowledgeBaseID != "" {
		results, err := s.knowledge.SearchSimilar(ctx, bot.KnowledgeBaseID, req.Message, ragTopK, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve context: %w", err)
		}
		if len(results) > 0 {
			turns[len(turns)-1].Content = buildRAGPrompt(req.Message, results)
			contextUsed = make([]uuid.UUID, len(results))
			for i, res := range results {
				contextUsed[i] = res.ID
			}
		}
	}

	// The user turn keeps the original text even when the prompt sent to
	// the model was rewritten with retrieved context.
	userTurn := &models.Message{
		ChatID:  chatID,
		BotID:   bot.ID,
		UserID:  userID,
		Role:    models.ChatRoleUser,
		Content: req.Message,
	}
	if err := s.messages.Create(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	events := make(chan models.ChatEvent, 16)
	go s.run(ctx, events, bot, chatID, userID, turns, contextUsed)

	return events, nil
}

func (s *chatService) run(
	ctx context.Context,
	events chan<- models.ChatEvent,
	bot *models.Bot,
	chatID, userID string,
	turns []models.Turn,
	contextUsed []uuid.UUID,
) {
	defer close(events)

	events <- models.NewStartEvent(chatID)

	fragments, err := s.gateway.Stream(ctx, &llm.GenerateRequest{
		Turns:       turns,
		System:      bot.Instructions,
		Temperature: bot.ScaledTemperature(),
		MaxTokens:   bot.MaxTokens,
		ModelID:     bot.ModelID,
	})
	if err != nil {
		s.logger.Error("failed to start generation",
			zap.String("chat_id", chatID),
			zap.String("bot_id", bot.ID.String()),
			zap.Error(err))
		events <- models.NewErrorEvent(err.Error())
		return
	}

	var full strings.Builder
	for frag := range fragments {
		if frag.Err != nil {
			s.logger.Error("stream interrupted",
				zap.String("chat_id", chatID),
				zap.Error(frag.Err))
			events <- models.NewErrorEvent(frag.Err.Error())
			return
		}
		full.WriteString(frag.Text)
		events <- models.NewMessageEvent(frag.Text)
	}

	assistantTurn := &models.Message{
		ChatID:      chatID,
		BotID:       bot.ID,
		UserID:      userID,
		Role:        models.ChatRoleAssistant,
		Content:     full.String(),
		ModelID:     bot.ModelID,
		ContextUsed: contextUsed,
	}
	if err := s.messages.Create(ctx, assistantTurn); err != nil {
		s.logger.Error("failed to persist assistant message",
			zap.String("chat_id", chatID),
			zap.Error(err))
		events <- models.NewErrorEvent("failed to save response")
		return
	}

	events <- models.NewDoneEvent(chatID)
}

func (s *chatService) GetHistory(ctx context.Context, userID, chatID string) ([]*models.Message, error) {
	return s.messages.GetHistory(ctx, chatID, userID)
}

func (s *chatService) DeleteHistory(ctx context.Context, userID, chatID string) (int64, error) {
	return s.messages.DeleteByChat(ctx, chatID, userID)
}

func buildRAGPrompt(question string, results []*models.SearchResult) string {
	var b strings.Builder
	b.WriteString("Use the following context to answer the question:\n\n")
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Context %d: %s", i+1, res.Text)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s", question)
	return b.String()
}
