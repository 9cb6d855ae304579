package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
	"github.com/mangoo-ai/mangoo-engine/pkg/config"
	"github.com/mangoo-ai/mangoo-engine/pkg/database"
	"github.com/mangoo-ai/mangoo-engine/pkg/handlers"
	"github.com/mangoo-ai/mangoo-engine/pkg/llm"
	"github.com/mangoo-ai/mangoo-engine/pkg/middleware"
	"github.com/mangoo-ai/mangoo-engine/pkg/repositories"
	"github.com/mangoo-ai/mangoo-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.String("default_model", cfg.AI.Model))

	// Run migrations before opening the pool
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Authentication
	verifier, err := auth.NewJWKSVerifier(ctx, &auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		Issuer:             cfg.Auth.Issuer,
		JWKSURL:            cfg.Auth.JWKSURL,
		Audience:           cfg.Auth.Audience,
		RefreshInterval:    cfg.Auth.JWKSRefreshInterval,
	})
	if err != nil {
		logger.Fatal("Failed to create token verifier", zap.Error(err))
	}
	authService := auth.NewAuthService(verifier, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// Inference provider
	gateway, err := llm.NewGateway(&llm.OpenAIConfig{
		BaseURL:        cfg.AI.BaseURL,
		APIKey:         cfg.AI.APIKey,
		Model:          cfg.AI.Model,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		MaxTokens:      cfg.AI.MaxTokens,
	}, cfg.AI.AnthropicAPIKey, logger)
	if err != nil {
		logger.Fatal("Failed to create inference gateway", zap.Error(err))
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	botRepo := repositories.NewBotRepository(db)
	agentRepo := repositories.NewAgentRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	knowledgeRepo := repositories.NewKnowledgeRepository(db)

	// Services
	userService := services.NewUserService(userRepo, logger)
	botService := services.NewBotService(botRepo, logger)
	agentService := services.NewAgentService(agentRepo, logger)
	knowledgeService := services.NewKnowledgeService(knowledgeRepo, gateway, cfg.Vector, logger)
	chatService := services.NewChatService(botRepo, messageRepo, knowledgeService, gateway, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewUsersHandler(userService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewBotsHandler(botService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAgentsHandler(agentService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewKnowledgeHandler(knowledgeService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewChatHandler(chatService, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting mangoo-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
