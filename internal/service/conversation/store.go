package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sandevgo/voicebot/internal/core"
)

const DefaultHistoryLimit = core.DefaultHistoryLimit

type Config struct {
	// HistoryLimit caps messages per conversation, system message included.
	HistoryLimit int
	// MaxConversations bounds how many histories are kept. Zero means unbounded.
	MaxConversations int
	// TTL drops a history that has not been written for this long. Zero disables expiry.
	TTL time.Duration
}

// MemoryStore is the process-memory ConversationStore.
type MemoryStore struct {
	mu    sync.Mutex
	limit int
	items *expirable.LRU[string, []core.Message]
}

var _ core.ConversationStore = (*MemoryStore)(nil)

func NewMemoryStore(cfg Config) *MemoryStore {
	limit := cfg.HistoryLimit
	if limit < 2 {
		limit = DefaultHistoryLimit
	}

	return &MemoryStore{
		limit: limit,
		items: expirable.NewLRU[string, []core.Message](max(cfg.MaxConversations, 0), nil, cfg.TTL),
	}
}

func (s *MemoryStore) Ensure(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items.Contains(id) {
		return false, nil
	}
	s.items.Add(id, []core.Message{})
	return true, nil
}

func (s *MemoryStore) Seed(_ context.Context, id string, system core.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msgs, ok := s.items.Get(id); ok && len(msgs) > 0 {
		return false, nil
	}
	s.items.Add(id, []core.Message{system})
	return true, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.items.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrConversationNotFound, id)
	}
	next := make([]core.Message, len(msgs), len(msgs)+1)
	copy(next, msgs)
	s.items.Add(id, append(next, msg))
	return nil
}

func (s *MemoryStore) Trim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.items.Get(id)
	if !ok {
		return nil
	}
	if trimmed, changed := TrimHistory(msgs, s.limit); changed {
		s.items.Add(id, trimmed)
	}
	return nil
}

func (s *MemoryStore) History(_ context.Context, id string) ([]core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.items.Peek(id)
	if !ok {
		return []core.Message{}, nil
	}
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Len() int {
	return s.items.Len()
}

// TrimHistory keeps msgs[0] and the newest limit-1 messages once len exceeds limit.
func TrimHistory(msgs []core.Message, limit int) ([]core.Message, bool) {
	if len(msgs) <= limit {
		return msgs, false
	}
	out := make([]core.Message, 0, limit)
	out = append(out, msgs[0])
	out = append(out, msgs[len(msgs)-(limit-1):]...)
	return out, true
}
