package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/voicebot/internal/core"
)

const encodingName = "cl100k_base"

// Chat format overhead: every message is wrapped in <|start|>role ... <|end|>,
// and the reply is primed with <|start|>assistant.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// Counter estimates prompt size for a chat history.
// The encoding is loaded on first use; until it is available Count falls back
// to a four-characters-per-token estimate.
type Counter struct {
	once sync.Once
	load func() (*tiktoken.Tiktoken, error)
	enc  *tiktoken.Tiktoken
	err  error
}

var _ core.TokenCounter = (*Counter)(nil)

func NewCounter() *Counter {
	return &Counter{
		load: func() (*tiktoken.Tiktoken, error) {
			return tiktoken.GetEncoding(encodingName)
		},
	}
}

func (c *Counter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		c.enc, c.err = c.load()
	})
	return c.enc
}

// Err reports why the encoding could not be loaded, if it failed.
func (c *Counter) Err() error {
	c.encoding()
	return c.err
}

func (c *Counter) Count(messages []core.Message) int {
	if len(messages) == 0 {
		return 0
	}

	enc := c.encoding()
	total := tokensPerReply
	for _, m := range messages {
		total += tokensPerMessage
		total += c.text(enc, m.Role)
		total += c.text(enc, m.Content)
	}
	return total
}

func (c *Counter) text(enc *tiktoken.Tiktoken, s string) int {
	if s == "" {
		return 0
	}
	if enc == nil {
		return (len([]rune(s)) + 3) / 4
	}
	return len(enc.Encode(s, nil, nil))
}
