package core

import "context"

// CompletionParams are the per-call generation settings handed to a Backend.
type CompletionParams struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Backend is a hosted chat completion provider.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, messages []Message, params CompletionParams) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, format AudioFormat) ([]byte, error)
}

type TokenCounter interface {
	Count(messages []Message) int
}
