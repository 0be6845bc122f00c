package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/internal/persona"
	"github.com/sandevgo/voicebot/internal/service/conversation"
	"github.com/sandevgo/voicebot/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, n int, msgs []core.Message) (string, error)

	mu   sync.Mutex
	seen [][]core.Message
	last core.CompletionParams
}

func (f *fakeBackend) Name() string  { return f.name }
func (f *fakeBackend) Model() string { return f.name + "-model" }

func (f *fakeBackend) Complete(ctx context.Context, msgs []core.Message, p core.CompletionParams) (string, error) {
	n := int(f.calls.Add(1))
	f.mu.Lock()
	f.seen = append(f.seen, msgs)
	f.last = p
	f.mu.Unlock()
	return f.fn(ctx, n, msgs)
}

func reply(text string) func(context.Context, int, []core.Message) (string, error) {
	return func(context.Context, int, []core.Message) (string, error) { return text, nil }
}

func fail(err error) func(context.Context, int, []core.Message) (string, error) {
	return func(context.Context, int, []core.Message) (string, error) { return "", err }
}

type fixture struct {
	gen    *Generator
	store  core.ConversationStore
	book   *persona.Book
	openai *fakeBackend
	groq   *fakeBackend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, conversation.NewMemoryStore(conversation.Config{}))
}

func newFixtureWith(t *testing.T, store core.ConversationStore) *fixture {
	t.Helper()
	book, err := persona.New()
	require.NoError(t, err)

	f := &fixture{
		store:  store,
		book:   book,
		openai: &fakeBackend{name: "openai", fn: reply("openai says hi")},
		groq:   &fakeBackend{name: "groq", fn: reply("groq says hi")},
	}

	cfg := DefaultConfig("openai")
	cfg.Timeout = time.Second
	f.gen = NewGenerator(cfg, book, f.store, map[string]core.Backend{
		"openai": f.openai,
		"groq":   f.groq,
	})
	return f
}

type storeCase struct {
	name string
	new  func(t *testing.T) core.ConversationStore
}

func stores() []storeCase {
	return []storeCase{
		{"memory", func(*testing.T) core.ConversationStore {
			return conversation.NewMemoryStore(conversation.Config{})
		}},
		{"bounded memory", func(*testing.T) core.ConversationStore {
			return conversation.NewMemoryStore(conversation.Config{MaxConversations: 64, TTL: time.Hour})
		}},
		{"sqlite", func(t *testing.T) core.ConversationStore {
			db, err := sqlite.NewDB(context.Background(), sqlite.MemoryPath)
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return sqlite.NewConversationsRepo(db, conversation.DefaultHistoryLimit)
		}},
	}
}

// eachStore runs fn once per store implementation with a fresh fixture.
func eachStore(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			fn(t, newFixtureWith(t, sc.new(t)))
		})
	}
}

func (f *fixture) history(t *testing.T, key string) []core.Message {
	t.Helper()
	h, err := f.store.History(context.Background(), key)
	require.NoError(t, err)
	return h
}

func TestGenerate_Superpower(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		f.openai.fn = reply("Pattern recognition is my superpower.")

		got, err := f.gen.Generate(context.Background(), "What's your superpower?", "c1", "openai")
		require.NoError(t, err)
		assert.Equal(t, "Pattern recognition is my superpower.", got)

		h := f.history(t, "c1")
		require.Len(t, h, 3)
		assert.Equal(t, core.RoleSystem, h[0].Role)
		assert.Contains(t, h[0].Content, f.book.Block(persona.Superpower))
		assert.True(t, strings.HasPrefix(h[0].Content, "You are a personal voice assistant"))
		assert.True(t, strings.HasSuffix(h[0].Content, "around 2-3 sentences."))
		assert.Equal(t, core.UserMessage("What's your superpower?"), h[1])
		assert.Equal(t, core.AssistantMessage("Pattern recognition is my superpower."), h[2])

		assert.Equal(t, core.CompletionParams{Model: "openai-model", MaxTokens: 150, Temperature: 0.7}, f.openai.last)
	})
}

func TestGenerate_SystemMessageSetOnce(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		_, err := f.gen.Generate(ctx, "Tell me your life story", "c1", "openai")
		require.NoError(t, err)
		first := f.history(t, "c1")[0]

		_, err = f.gen.Generate(ctx, "What's your superpower?", "c1", "openai")
		require.NoError(t, err)

		h := f.history(t, "c1")
		require.Len(t, h, 5)
		assert.Equal(t, first, h[0])
		assert.Contains(t, h[0].Content, f.book.Block(persona.LifeStory))
		assert.NotContains(t, h[0].Content, f.book.Block(persona.Superpower))

		// the second request carried the full history
		require.Len(t, f.openai.seen, 2)
		assert.Len(t, f.openai.seen[1], 4)
	})
}

func TestGenerate_DefaultContext(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {

		_, err := f.gen.Generate(context.Background(), "How's the weather?", "c1", "openai")
		require.NoError(t, err)
		assert.Equal(t, f.gen.SystemPrompt("How's the weather?"), f.history(t, "c1")[0].Content)
		assert.Contains(t, f.history(t, "c1")[0].Content, f.book.Default())
	})
}

func TestGenerate_TrimsToTen(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		f.openai.fn = func(_ context.Context, n int, _ []core.Message) (string, error) {
			return fmt.Sprintf("reply %d", n), nil
		}

		for i := 1; i <= 12; i++ {
			_, err := f.gen.Generate(context.Background(), fmt.Sprintf("question %d", i), "c1", "openai")
			require.NoError(t, err)
		}

		h := f.history(t, "c1")
		require.Len(t, h, 10)
		assert.Equal(t, core.RoleSystem, h[0].Role)
		assert.Contains(t, h[0].Content, f.book.Default())

		// last nine messages of the 24 exchanged, in order
		want := []core.Message{core.AssistantMessage("reply 8")}
		for i := 9; i <= 12; i++ {
			want = append(want,
				core.UserMessage(fmt.Sprintf("question %d", i)),
				core.AssistantMessage(fmt.Sprintf("reply %d", i)))
		}
		assert.Equal(t, want, h[1:])
	})
}

func TestGenerate_Isolation(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		_, err := f.gen.Generate(ctx, "What's your superpower?", "a", "openai")
		require.NoError(t, err)
		_, err = f.gen.Generate(ctx, "What are your weaknesses?", "b", "openai")
		require.NoError(t, err)

		a := f.history(t, "a")
		b := f.history(t, "b")
		require.Len(t, a, 3)
		require.Len(t, b, 3)
		assert.Equal(t, "What's your superpower?", a[1].Content)
		assert.Equal(t, "What are your weaknesses?", b[1].Content)
		assert.NotEqual(t, a[0], b[0])
	})
}

func TestGenerate_BackendNamespaces(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		_, err := f.gen.Generate(ctx, "hello", "c1", "openai")
		require.NoError(t, err)
		got, err := f.gen.Generate(ctx, "hello again", "c1", "groq")
		require.NoError(t, err)
		assert.Equal(t, "groq says hi", got)

		assert.Len(t, f.history(t, "c1"), 3)
		groq := f.history(t, "groq:c1")
		require.Len(t, groq, 3)
		assert.Equal(t, "hello again", groq[1].Content)

		h, err := f.gen.History(ctx, "c1", "groq")
		require.NoError(t, err)
		assert.Equal(t, groq, h)
		assert.Equal(t, "c1", f.gen.Key("openai", "c1"))
		assert.Equal(t, "groq:c1", f.gen.Key("groq", "c1"))
	})
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, int, []core.Message) (string, error)
		want string
	}{
		{"transport", fail(&core.BackendError{Provider: "openai", Err: errors.New("connection refused")}), ReplyBackendError},
		{"rate limit", fail(&core.BackendError{Provider: "openai", StatusCode: 429, Err: errors.New("slow down")}), ReplyBackendError},
		{"empty completion", fail(core.ErrEmptyCompletion), ReplyUnexpected},
		{"blank text", reply("   \n"), ReplyUnexpected},
		{"malformed", fail(errors.New("decode: unexpected end of JSON")), ReplyUnexpected},
		{"timeout", func(ctx context.Context, _ int, _ []core.Message) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}, ReplyBackendError},
	}

	for _, sc := range stores() {
		for _, tt := range tests {
			t.Run(sc.name+"/"+tt.name, func(t *testing.T) {
				f := newFixtureWith(t, sc.new(t))
				f.gen.cfg.Timeout = 20 * time.Millisecond
				f.openai.fn = tt.fn

				got, err := f.gen.Generate(context.Background(), "What's your superpower?", "c1", "openai")
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)

				h := f.history(t, "c1")
				require.Len(t, h, 2)
				assert.Equal(t, core.RoleSystem, h[0].Role)
				assert.Equal(t, core.UserMessage("What's your superpower?"), h[1])
			})
		}
	}
}

func TestGenerate_UnknownBackend(t *testing.T) {
	f := newFixture(t)

	_, err := f.gen.Generate(context.Background(), "hi", "c1", "claude")
	assert.ErrorIs(t, err, core.ErrUnknownBackend)
	assert.Empty(t, f.history(t, "c1"))

	_, err = f.gen.History(context.Background(), "c1", "claude")
	assert.ErrorIs(t, err, core.ErrUnknownBackend)
}

func TestGenerate_ConcurrentSameConversation(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		f.openai.fn = func(_ context.Context, n int, _ []core.Message) (string, error) {
			time.Sleep(time.Millisecond)
			return fmt.Sprintf("reply %d", n), nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := f.gen.Generate(context.Background(), fmt.Sprintf("q%d", i), "c1", "openai")
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		h := f.history(t, "c1")
		require.Len(t, h, 9)

		systems := 0
		for _, m := range h {
			if m.Role == core.RoleSystem {
				systems++
			}
		}
		assert.Equal(t, 1, systems)

		// turns never interleave: user, assistant, user, assistant...
		for i := 1; i < len(h); i += 2 {
			assert.Equal(t, core.RoleUser, h[i].Role)
			assert.Equal(t, core.RoleAssistant, h[i+1].Role)
		}
	})
}

func TestGenerate_CancelledWhileWaiting(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := make(chan struct{})
	f.openai.fn = func(context.Context, int, []core.Message) (string, error) {
		close(started)
		<-release
		return "done", nil
	}

	go func() {
		_, _ = f.gen.Generate(context.Background(), "first", "c1", "openai")
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.gen.Generate(ctx, "second", "c1", "openai")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.Eventually(t, func() bool {
		return len(f.history(t, "c1")) == 3
	}, time.Second, 5*time.Millisecond)
}

// cancellingStore aborts the caller's request as the conversation gets seeded.
type cancellingStore struct {
	core.ConversationStore
	cancel context.CancelFunc
	once   sync.Once
}

func (s *cancellingStore) Seed(ctx context.Context, id string, system core.Message) (bool, error) {
	s.once.Do(s.cancel)
	return s.ConversationStore.Seed(ctx, id, system)
}

// failingSeedStore fails the first Seed.
type failingSeedStore struct {
	core.ConversationStore
	failed atomic.Bool
}

func (s *failingSeedStore) Seed(ctx context.Context, id string, system core.Message) (bool, error) {
	if s.failed.CompareAndSwap(false, true) {
		return false, errors.New("disk I/O error")
	}
	return s.ConversationStore.Seed(ctx, id, system)
}

func assertSeeded(t *testing.T, h []core.Message, question string) {
	t.Helper()
	require.NotEmpty(t, h)
	assert.Equal(t, core.RoleSystem, h[0].Role)
	for _, m := range h[1:] {
		assert.NotEqual(t, core.RoleSystem, m.Role)
	}
	require.GreaterOrEqual(t, len(h), 3)
	assert.Equal(t, core.UserMessage(question), h[len(h)-2])
	assert.Equal(t, core.RoleAssistant, h[len(h)-1].Role)
}

func TestGenerate_AbortedDuringSeedKeepsSystemMessage(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			f := newFixtureWith(t, &cancellingStore{ConversationStore: sc.new(t), cancel: cancel})

			_, err := f.gen.Generate(ctx, "Tell me your life story", "c1", "openai")
			require.NoError(t, err)

			_, err = f.gen.Generate(context.Background(), "What's your superpower?", "c1", "openai")
			require.NoError(t, err)

			h := f.history(t, "c1")
			assertSeeded(t, h, "What's your superpower?")
			assert.Contains(t, h[0].Content, f.book.Block(persona.LifeStory))
		})
	}
}

func TestGenerate_SeedFailureRecovers(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			f := newFixtureWith(t, &failingSeedStore{ConversationStore: sc.new(t)})

			got, err := f.gen.Generate(context.Background(), "Tell me your life story", "c1", "openai")
			require.NoError(t, err)
			assert.Equal(t, ReplyUnexpected, got)
			assert.Empty(t, f.history(t, "c1"))
			assert.Zero(t, f.openai.calls.Load())

			_, err = f.gen.Generate(context.Background(), "What's your superpower?", "c1", "openai")
			require.NoError(t, err)

			h := f.history(t, "c1")
			require.Len(t, h, 3)
			assertSeeded(t, h, "What's your superpower?")
			assert.Contains(t, h[0].Content, f.book.Block(persona.Superpower))
		})
	}
}

func TestGenerate_EvictedMidTurnReseeds(t *testing.T) {
	f := newFixtureWith(t, conversation.NewMemoryStore(conversation.Config{MaxConversations: 1}))
	started := make(chan struct{})
	release := make(chan struct{})
	f.openai.fn = func(_ context.Context, n int, _ []core.Message) (string, error) {
		if n == 1 {
			close(started)
			<-release
		}
		return "reply", nil
	}

	done := make(chan string, 1)
	go func() {
		got, _ := f.gen.Generate(context.Background(), "Tell me your life story", "a", "openai")
		done <- got
	}()
	<-started

	// b takes the only slot while a waits on the backend
	_, err := f.gen.Generate(context.Background(), "What's your superpower?", "b", "openai")
	require.NoError(t, err)
	close(release)
	assert.Equal(t, ReplyUnexpected, <-done)
	assert.Empty(t, f.history(t, "a"))

	_, err = f.gen.Generate(context.Background(), "and more?", "a", "openai")
	require.NoError(t, err)

	h := f.history(t, "a")
	require.Len(t, h, 3)
	assert.Equal(t, f.gen.SystemPrompt("and more?"), h[0].Content)
	assertSeeded(t, h, "and more?")
	assert.Equal(t, core.AssistantMessage("reply"), h[2])
}

type countingTokens struct{}

func (countingTokens) Count(msgs []core.Message) int { return len(msgs) * 10 }

func TestPromptTokens(t *testing.T) {
	f := newFixture(t)
	msgs := []core.Message{core.UserMessage("a"), core.UserMessage("b")}

	assert.Zero(t, f.gen.PromptTokens(msgs))
	f.gen.WithTokenCounter(countingTokens{})
	assert.Equal(t, 20, f.gen.PromptTokens(msgs))
}

func TestBackends(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"groq", "openai"}, f.gen.Backends())
	assert.True(t, f.gen.HasBackend("groq"))
	assert.False(t, f.gen.HasBackend("other"))
	assert.Equal(t, "openai", f.gen.Primary())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ReplyBackendError, Classify(fmt.Errorf("wrap: %w", &core.BackendError{Provider: "x", StatusCode: 401})))
	assert.Equal(t, ReplyBackendError, Classify(context.DeadlineExceeded))
	assert.Equal(t, ReplyUnexpected, Classify(core.ErrEmptyCompletion))
	assert.Equal(t, ReplyUnexpected, Classify(errors.New("boom")))
}
