package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for mangoo-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL + pgvector)
	Database DatabaseConfig `yaml:"database"`

	// Inference provider configuration
	AI AIConfig `yaml:"ai"`

	// Vector search defaults
	Vector VectorConfig `yaml:"vector"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are validated.
	// Set to false for local development without an identity provider.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// Issuer is the token issuer URL, e.g. the Cognito user pool issuer
	// "https://cognito-idp.us-east-1.amazonaws.com/<pool-id>".
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER" env-default:""`

	// JWKSURL is the JSON Web Key Set endpoint. If empty it is derived
	// from Issuer as <issuer>/.well-known/jwks.json.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`

	// Audience is the expected "aud" claim (the app client id).
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:""`

	// JWKSRefreshInterval bounds how long signing keys are cached before a
	// background refresh. Keys are never cached for the process lifetime.
	JWKSRefreshInterval time.Duration `yaml:"jwks_refresh_interval" env:"AUTH_JWKS_REFRESH_INTERVAL" env-default:"1h"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"mangoo"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"mangoo"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// AIConfig holds inference provider endpoints and model defaults.
type AIConfig struct {
	// BaseURL is the OpenAI-compatible endpoint for chat and embeddings.
	BaseURL string `yaml:"base_url" env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`

	// APIKey authenticates against BaseURL. Secret - env only.
	APIKey string `yaml:"-" env:"AI_API_KEY"`

	// AnthropicAPIKey enables the native Anthropic path for claude-* model
	// ids. Optional; when empty those models go through BaseURL instead.
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`

	// Model is the process-wide default generation model.
	Model string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o"`

	// EmbeddingModel is the default embedding model.
	EmbeddingModel string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`

	// MaxTokens is the default generation output cap.
	MaxTokens int `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"4096"`

	// Temperature is the default sampling temperature (0.0-1.0).
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.7"`
}

// VectorConfig holds vector search defaults.
type VectorConfig struct {
	// Dimension is the embedding dimensionality. Inserts with a different
	// dimension are rejected by the store.
	Dimension int `yaml:"dimension" env:"VECTOR_DIMENSION" env-default:"1024"`

	// TopK is the default number of chunks returned by similarity search.
	TopK int `yaml:"top_k" env:"VECTOR_TOP_K" env-default:"5"`

	// SimilarityThreshold is the minimum cosine similarity for a result.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"VECTOR_SIMILARITY_THRESHOLD" env-default:"0.7"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.applyDerived(); err != nil {
		return nil, fmt.Errorf("failed to derive config fields: %w", err)
	}

	return cfg, nil
}

// applyDerived fills fields that are computed from other fields.
func (c *Config) applyDerived() error {
	if c.Auth.JWKSURL == "" && c.Auth.Issuer != "" {
		u, err := url.JoinPath(c.Auth.Issuer, ".well-known", "jwks.json")
		if err != nil {
			return fmt.Errorf("invalid auth issuer %q: %w", c.Auth.Issuer, err)
		}
		c.Auth.JWKSURL = u
	}

	if c.Auth.EnableVerification && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth verification enabled but no issuer or jwks_url configured")
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
