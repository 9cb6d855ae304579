package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/repositories"
)

// mockUserRepository is a configurable mock for testing UserService.
type mockUserRepository struct {
	user      *models.User
	upsertErr error
	getErr    error
	updateErr error

	capturedUser *models.User
	capturedRole string
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	m.capturedUser = user
	return m.upsertErr
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.user, nil
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id, role string) error {
	m.capturedRole = role
	return m.updateErr
}

var _ repositories.UserRepository = (*mockUserRepository)(nil)

// mockBotRepository is a configurable mock for testing BotService and
// ChatService.
type mockBotRepository struct {
	bot       *models.Bot
	bots      []*models.Bot
	createErr error
	getErr    error
	listErr   error
	updateErr error
	deleteErr error

	capturedBot    *models.Bot
	capturedFilter repositories.BotListFilter
	deleteCalled   bool
}

func (m *mockBotRepository) Create(ctx context.Context, bot *models.Bot) error {
	m.capturedBot = bot
	return m.createErr
}

func (m *mockBotRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.bot, nil
}

func (m *mockBotRepository) List(ctx context.Context, filter repositories.BotListFilter) ([]*models.Bot, error) {
	m.capturedFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.bots, nil
}

func (m *mockBotRepository) Update(ctx context.Context, bot *models.Bot) error {
	m.capturedBot = bot
	return m.updateErr
}

func (m *mockBotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleteCalled = true
	return m.deleteErr
}

var _ repositories.BotRepository = (*mockBotRepository)(nil)

// mockAgentRepository is a configurable mock for testing AgentService.
type mockAgentRepository struct {
	agent      *models.Agent
	agents     []*models.Agent
	categories []string
	createErr  error
	getErr     error
	listErr    error
	updateErr  error
	deleteErr  error
	usageErr   error

	capturedAgent *models.Agent
	usageCalls    int
}

func (m *mockAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	m.capturedAgent = agent
	return m.createErr
}

func (m *mockAgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.agent, nil
}

func (m *mockAgentRepository) List(ctx context.Context, category string) ([]*models.Agent, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.agents, nil
}

func (m *mockAgentRepository) ListCategories(ctx context.Context) ([]string, error) {
	return m.categories, nil
}

func (m *mockAgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	m.capturedAgent = agent
	return m.updateErr
}

func (m *mockAgentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteErr
}

func (m *mockAgentRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	m.usageCalls++
	return m.usageErr
}

var _ repositories.AgentRepository = (*mockAgentRepository)(nil)

// mockMessageRepository is a configurable mock for testing ChatService.
type mockMessageRepository struct {
	recent    []*models.Message
	history   []*models.Message
	deleted   int64
	createErr error
	recentErr error

	created       []*models.Message
	capturedLimit int
}

func (m *mockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, message)
	return nil
}

func (m *mockMessageRepository) GetRecent(ctx context.Context, chatID string, botID uuid.UUID, limit int) ([]*models.Message, error) {
	m.capturedLimit = limit
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	return m.recent, nil
}

func (m *mockMessageRepository) GetHistory(ctx context.Context, chatID, userID string) ([]*models.Message, error) {
	return m.history, nil
}

func (m *mockMessageRepository) DeleteByChat(ctx context.Context, chatID, userID string) (int64, error) {
	return m.deleted, nil
}

var _ repositories.MessageRepository = (*mockMessageRepository)(nil)

// mockKnowledgeRepository is a configurable mock for testing KnowledgeService.
type mockKnowledgeRepository struct {
	results   []*models.SearchResult
	deleted   int64
	insertErr error
	searchErr error
	deleteErr error

	inserted          []*models.KnowledgeChunk
	capturedQuery     pgvector.Vector
	capturedTopK      int
	capturedThreshold float64
}

func (m *mockKnowledgeRepository) InsertBatch(ctx context.Context, chunks []*models.KnowledgeChunk) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, chunks...)
	return nil
}

func (m *mockKnowledgeRepository) Search(ctx context.Context, knowledgeBaseID string, query pgvector.Vector, topK int, threshold float64) ([]*models.SearchResult, error) {
	m.capturedQuery = query
	m.capturedTopK = topK
	m.capturedThreshold = threshold
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockKnowledgeRepository) DeleteByKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleted, nil
}

var _ repositories.KnowledgeRepository = (*mockKnowledgeRepository)(nil)

// mockKnowledgeService is a configurable mock for testing ChatService RAG
// enrichment without a real vector store.
type mockKnowledgeService struct {
	results   []*models.SearchResult
	searchErr error

	capturedKB    string
	capturedQuery string
	capturedTopK  int
	searchCalls   int
}

func (m *mockKnowledgeService) AddChunks(ctx context.Context, knowledgeBaseID string, chunks []ChunkInput) (int, error) {
	return len(chunks), nil
}

func (m *mockKnowledgeService) SearchSimilar(ctx context.Context, knowledgeBaseID, query string, topK int, threshold float64) ([]*models.SearchResult, error) {
	m.searchCalls++
	m.capturedKB = knowledgeBaseID
	m.capturedQuery = query
	m.capturedTopK = topK
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockKnowledgeService) DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error) {
	return 0, nil
}

var _ KnowledgeService = (*mockKnowledgeService)(nil)
