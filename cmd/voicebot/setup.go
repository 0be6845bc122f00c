package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/internal/persona"
	"github.com/sandevgo/voicebot/internal/providers/llm"
	"github.com/sandevgo/voicebot/internal/providers/speech"
	"github.com/sandevgo/voicebot/internal/providers/tokens"
	"github.com/sandevgo/voicebot/internal/service/command"
	"github.com/sandevgo/voicebot/internal/service/conversation"
	"github.com/sandevgo/voicebot/internal/service/responder"
	"github.com/sandevgo/voicebot/internal/service/voice"
	"github.com/sandevgo/voicebot/internal/storage/sqlite"
	"github.com/sandevgo/voicebot/internal/transport/telegram"
	"github.com/sandevgo/voicebot/internal/transport/web"
	"github.com/sandevgo/voicebot/pkg/log"
	"github.com/sandevgo/voicebot/pkg/srv"
)

// components is everything a command needs to hold a conversation.
type components struct {
	app       *config.AppConfig
	generator *responder.Generator
	voice     *voice.Pipeline
	services  []srv.Service
}

func newComponents(ctx context.Context) *components {
	logger := log.FromCtx(ctx)

	// init env
	if err := config.LoadEnv(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	openaiCfg := config.NewOpenAIConfig(ctx)
	groqCfg := config.NewGroqConfig(ctx)
	voiceCfg := config.NewVoiceConfig(ctx)

	// 2. Persona
	book, err := persona.Load(appCfg.PersonaDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load persona")
	}

	// 3. Storage
	store, services, err := initStore(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// 4. Backends and the generator
	backends := llm.NewBackends(ctx, appCfg, openaiCfg, groqCfg)

	genCfg := responder.DefaultConfig(llm.BackendOpenAI)
	genCfg.Timeout = appCfg.LLMTimeout
	generator := responder.NewGenerator(genCfg, book, store, backends).
		WithTokenCounter(tokens.NewCounter())

	// 5. Speech
	sp := speech.NewOpenAI(openaiCfg.BaseURL, openaiCfg.APIKey, *voiceCfg)

	return &components{
		app:       appCfg,
		generator: generator,
		voice:     voice.NewPipeline(sp, sp, generator),
		services:  services,
	}
}

// close releases storage for commands that never start services.
func (c *components) close(ctx context.Context) {
	srv.StopServices(ctx, c.services)
}

func initStore(ctx context.Context, cfg *config.AppConfig) (core.ConversationStore, []srv.Service, error) {
	logger := log.FromCtx(ctx)

	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Info().
			Int("max_conversations", cfg.MaxConversations).
			Dur("ttl", cfg.ConversationTTL).
			Msg("using in-memory conversation store")

		return conversation.NewMemoryStore(conversation.Config{
			HistoryLimit:     cfg.HistoryLimit,
			MaxConversations: cfg.MaxConversations,
			TTL:              cfg.ConversationTTL,
		}), nil, nil

	case config.StoreSQLite:
		db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.GetDatabasePath()).Msg("using sqlite conversation store")

		repo := sqlite.NewConversationsRepo(db, cfg.HistoryLimit)
		services := []srv.Service{srv.NewCleanup(db.Close)}

		if ttl := cfg.ConversationTTL; ttl > 0 {
			services = append(services, srv.NewPeriodic("conversation-janitor", janitorInterval(ttl), func(ctx context.Context) error {
				n, err := repo.DeleteStale(ctx, time.Now().Add(-ttl))
				if n > 0 {
					log.FromCtx(ctx).Info().Int64("deleted", n).Msg("removed stale conversations")
				}
				return err
			}))
		}
		return repo, services, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func janitorInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Minute), time.Hour)
}

func initTransports(ctx context.Context, c *components) ([]srv.Service, error) {
	var services []srv.Service

	// HTTP API
	if c.app.EnableHTTP {
		serverCfg := config.NewServerConfig(ctx)
		serverCfg.Debug = serverCfg.Debug || isDebug()
		services = append(services, web.NewServer(ctx, serverCfg, c.generator, c.voice, llm.BackendGroq))
	}

	// Telegram Bot
	if c.app.EnableTelegram {
		tgCfg := config.NewTelegramConfig(ctx)
		if err := tgCfg.Validate(); err != nil {
			return nil, err
		}

		selection := command.NewSelection(c.generator.Primary())
		router := command.New(command.NewCommands(c.generator, selection))

		bot, err := telegram.NewBot(ctx, tgCfg, c.generator, c.voice, router, selection)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no transport enabled, set ENABLE_HTTP or ENABLE_TELEGRAM")
	}
	return services, nil
}
