package llm

import (
	"context"

	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/pkg/log"
)

const (
	BackendOpenAI = "openai"
	BackendGroq   = "groq"
)

// NewBackends builds every configured completion backend keyed by name.
// A backend without an API key is still registered so requests fail with
// the backend error apology instead of an unknown backend.
func NewBackends(ctx context.Context, app *config.AppConfig, oa *config.OpenAIConfig, gq *config.GroqConfig) map[string]core.Backend {
	backends := map[string]core.Backend{
		BackendOpenAI: NewOpenAI(oa.BaseURL, oa.APIKey, oa.Model, app.LLMMaxRetries),
		BackendGroq:   NewGroq(gq.BaseURL, gq.APIKey, gq.Model, app.LLMMaxRetries),
	}

	logger := log.FromCtx(ctx)
	for name, b := range backends {
		logger.Info().
			Str("backend", name).
			Str("model", b.Model()).
			Msg("starting llm backend")
	}
	if oa.APIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is not set")
	}
	if gq.APIKey == "" {
		logger.Warn().Msg("GROQ_API_KEY is not set")
	}

	return backends
}
