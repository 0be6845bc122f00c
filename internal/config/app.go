package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/voicebot/pkg/log"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"Personal Voice Bot"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	RuntimePath string `env:"VOICEBOT_RUNTIME_PATH" envDefault:".voicebot"`

	// Conversation storage
	StoreDriver      string        `env:"STORE_DRIVER" envDefault:"memory"`
	MaxConversations int           `env:"MAX_CONVERSATIONS" envDefault:"0"`
	ConversationTTL  time.Duration `env:"CONVERSATION_TTL" envDefault:"0s"`
	HistoryLimit     int           `env:"HISTORY_LIMIT" envDefault:"10"`

	// Backend calls
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMMaxRetries int           `env:"LLM_MAX_RETRIES" envDefault:"2"`

	// Directory with <topic>.md / default.md persona overrides
	PersonaDir string `env:"PERSONA_DIR"`

	// Transport Flags
	EnableHTTP     bool `env:"ENABLE_HTTP" envDefault:"true"`
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	return mustParse[AppConfig](ctx, "App")
}

func (c AppConfig) GetRuntimePath() string {
	return resolveRuntimePath(c.RuntimePath)
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.GetRuntimePath(), "voicebot.db")
}

func (c AppConfig) IsSQLiteStore() bool {
	return c.StoreDriver == StoreSQLite
}

// mustParse reads T from the environment and stops the process on failure.
func mustParse[T any](ctx context.Context, name string) *T {
	c, err := env.ParseAs[T]()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msgf("failed to parse %s config", name)
	}
	return &c
}
