// Package bothost wires the conversation and session use-cases on top of a
// caller-provided gorm handle so they can be embedded in another web server.
package bothost

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-bot-host/pkg/auth"
	"github.com/d4l-data4life/go-bot-host/pkg/config"
	"github.com/d4l-data4life/go-bot-host/pkg/conversation"
	"github.com/d4l-data4life/go-bot-host/pkg/handlers"
	"github.com/d4l-data4life/go-bot-host/pkg/llm"
	llmopenai "github.com/d4l-data4life/go-bot-host/pkg/llm/openai"
	"github.com/d4l-data4life/go-bot-host/pkg/llm/simulated"
	"github.com/d4l-data4life/go-bot-host/pkg/models"
	"github.com/d4l-data4life/go-bot-host/pkg/repository"
	"github.com/d4l-data4life/go-bot-host/pkg/session"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// ErrNoDatabase is returned when Config.DB is nil
var ErrNoDatabase = errors.New("bothost: a database handle is required")

// Host bundles the use-cases of the bot host
type Host struct {
	Conversations *conversation.Service
	Sessions      *session.Service

	db       *gorm.DB
	provider llm.Provider
}

// Config configures the Host
type Config struct {
	// DB is the connection used for conversations and sessions (required)
	DB *gorm.DB

	// Provider answers completion requests. When nil, one is built from ProviderConfig.
	Provider llm.Provider

	// ProviderConfig selects and configures the built-in providers
	ProviderConfig config.ProviderConfig

	// Costs overrides the built-in rate tables
	Costs *config.CostTables

	// AutoMigrate creates or updates the tables on start
	AutoMigrate bool
}

// New creates a Host.
//
// Example:
//
//	host, err := bothost.New(bothost.Config{
//	    DB:          db,
//	    AutoMigrate: true,
//	    ProviderConfig: config.ProviderConfig{Provider: config.ProviderSimulated},
//	})
func New(cfg Config) (*Host, error) {
	if cfg.DB == nil {
		return nil, ErrNoDatabase
	}
	if cfg.AutoMigrate {
		if err := models.MigrationFunc(cfg.DB); err != nil {
			return nil, fmt.Errorf("bothost: migration failed: %w", err)
		}
	}

	provider := cfg.Provider
	if provider == nil {
		var err error
		if provider, err = NewProvider(cfg.ProviderConfig); err != nil {
			return nil, err
		}
	}

	costs := config.DefaultCostTables()
	if cfg.Costs != nil {
		costs = *cfg.Costs
	}

	conversations := conversation.NewService(
		repository.NewConversations(cfg.DB),
		provider,
		conversation.Config{
			Costs:              costs,
			DefaultModel:       cfg.ProviderConfig.DefaultModel,
			DefaultTemperature: cfg.ProviderConfig.DefaultTemperature,
			DefaultMaxTokens:   cfg.ProviderConfig.DefaultMaxTokens,
		},
	)

	logging.LogDebugf("Bot host ready (provider=%s)", provider.Name())
	return &Host{
		Conversations: conversations,
		Sessions:      session.NewService(repository.NewSessions(cfg.DB)),
		db:            cfg.DB,
		provider:      provider,
	}, nil
}

// NewProvider builds the completion provider named by cfg.Provider
func NewProvider(cfg config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", config.ProviderSimulated:
		return simulated.NewClient(cfg.DefaultModel), nil
	case config.ProviderOpenAI:
		return llmopenai.NewClient(llmopenai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.DefaultModel,
			Timeout: cfg.RequestTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("bothost: unknown completion provider %q", cfg.Provider)
	}
}

// Provider returns the completion provider in use
func (h *Host) Provider() llm.Provider {
	return h.provider
}

// Ping checks the database connection
func (h *Host) Ping() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// RegisterRoutes mounts the HTTP API on r. users turns bearer tokens into
// user ids and internal routes need serviceSecret.
func (h *Host) RegisterRoutes(r chi.Router, users handlers.UserResolver, serviceSecret string) {
	handlers.RegisterRoutes(r, h.Conversations, h.Sessions, users, serviceSecret)
}

// Users returns a resolver that validates tokens with validator and caches the
// user id for at most cacheTTL
func Users(validator auth.TokenValidator, cacheTTL time.Duration) handlers.UserResolver {
	return auth.NewUserResolver(validator, cacheTTL)
}
