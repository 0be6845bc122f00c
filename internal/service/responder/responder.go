package responder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/internal/service/conversation"
	"github.com/sandevgo/voicebot/pkg/log"
)

// User-facing replies for failed turns.
const (
	ReplyBackendError = "I'm sorry, I'm having trouble responding right now. Please try again later."
	ReplyUnexpected   = "I encountered an unexpected error. Please try again."
)

const systemTemplate = "You are a personal voice assistant that responds as if you were the person " +
	"being asked about. Use the following context to guide your responses:\n\n" +
	"%s\n\n" +
	"Always respond in first person as if you are the person being asked about. " +
	"Keep responses concise and conversational, around 2-3 sentences."

// ContextSelector picks the persona block for the opening question.
type ContextSelector interface {
	Select(question string) string
}

type Config struct {
	// Primary backend keeps plain conversation ids. Every other backend
	// stores its history under "<backend>:<id>".
	Primary     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

func DefaultConfig(primary string) Config {
	return Config{
		Primary:     primary,
		MaxTokens:   150,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

type Generator struct {
	cfg      Config
	selector ContextSelector
	store    core.ConversationStore
	backends map[string]core.Backend
	locks    *conversation.KeyedMutex
	tokens   core.TokenCounter
}

func NewGenerator(cfg Config, selector ContextSelector, store core.ConversationStore, backends map[string]core.Backend) *Generator {
	return &Generator{
		cfg:      cfg,
		selector: selector,
		store:    store,
		backends: backends,
		locks:    conversation.NewKeyedMutex(),
	}
}

// WithTokenCounter enables prompt size reporting.
func (g *Generator) WithTokenCounter(tc core.TokenCounter) *Generator {
	g.tokens = tc
	return g
}

// SystemPrompt renders the opening system message for question.
func (g *Generator) SystemPrompt(question string) string {
	return fmt.Sprintf(systemTemplate, g.selector.Select(question))
}

// Key maps a caller-visible conversation id to its store key for backend.
func (g *Generator) Key(backend, conversationID string) string {
	if backend == g.cfg.Primary {
		return conversationID
	}
	return backend + ":" + conversationID
}

// Backends lists the registered backend names.
func (g *Generator) Backends() []string {
	names := make([]string, 0, len(g.backends))
	for name := range g.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Generator) HasBackend(name string) bool {
	_, ok := g.backends[name]
	return ok
}

func (g *Generator) Primary() string {
	return g.cfg.Primary
}

// Generate runs one conversation turn and returns the reply text.
// Backend and storage failures are logged and turned into a fixed apology;
// the error result is reserved for an unknown backend or ctx ending while
// waiting for another turn on the same conversation.
func (g *Generator) Generate(ctx context.Context, message, conversationID, backend string) (string, error) {
	b, ok := g.backends[backend]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownBackend, backend)
	}

	key := g.Key(backend, conversationID)
	ctx = log.WithFields(ctx, "conversation", conversationID, "backend", backend)
	logger := log.FromCtx(ctx)

	unlock, err := g.locks.Lock(ctx, key)
	if err != nil {
		return "", fmt.Errorf("wait for conversation %s: %w", conversationID, err)
	}
	defer unlock()

	history, err := g.prepare(ctx, key, message)
	if err != nil {
		logger.Error().Err(err).Msg("failed to prepare conversation")
		return ReplyUnexpected, nil
	}

	if g.tokens != nil {
		logger.Debug().Int("messages", len(history)).Int("prompt_tokens", g.tokens.Count(history)).Msg("calling backend")
	}

	text, err := g.complete(ctx, b, history)
	if err != nil {
		reply := Classify(err)
		logger.Error().Err(err).Str("reply", reply).Msg("failed to generate response")
		return reply, nil
	}

	// a finished completion is recorded even if the caller has gone away
	if err := g.commit(context.WithoutCancel(ctx), key, text); err != nil {
		logger.Error().Err(err).Msg("failed to store response")
		return ReplyUnexpected, nil
	}

	return text, nil
}

// prepare seeds a new or evicted conversation, appends the user turn and
// returns the history to send.
func (g *Generator) prepare(ctx context.Context, key, message string) ([]core.Message, error) {
	// the system message lands together with the conversation or not at all
	created, err := g.store.Seed(context.WithoutCancel(ctx), key, core.SystemMessage(g.SystemPrompt(message)))
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if created {
		log.FromCtx(ctx).Debug().Msg("started conversation")
	}

	if err := g.store.Append(ctx, key, core.UserMessage(message)); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	return g.store.History(ctx, key)
}

func (g *Generator) complete(ctx context.Context, b core.Backend, history []core.Message) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	text, err := b.Complete(ctx, history, core.CompletionParams{
		Model:       b.Model(),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.ErrEmptyCompletion
	}
	return text, nil
}

func (g *Generator) commit(ctx context.Context, key, text string) error {
	if err := g.store.Append(ctx, key, core.AssistantMessage(text)); err != nil {
		return err
	}
	return g.store.Trim(ctx, key)
}

// History returns the transcript of conversationID on backend.
func (g *Generator) History(ctx context.Context, conversationID, backend string) ([]core.Message, error) {
	if !g.HasBackend(backend) {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownBackend, backend)
	}
	return g.store.History(ctx, g.Key(backend, conversationID))
}

// PromptTokens estimates the prompt size of history, or 0 without a counter.
func (g *Generator) PromptTokens(history []core.Message) int {
	if g.tokens == nil {
		return 0
	}
	return g.tokens.Count(history)
}

// Classify picks the apology for a failed completion.
func Classify(err error) string {
	switch {
	case errors.Is(err, core.ErrBackend),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ReplyBackendError
	default:
		return ReplyUnexpected
	}
}
