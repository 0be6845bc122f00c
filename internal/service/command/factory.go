package command

import (
	"context"

	"github.com/sandevgo/voicebot/internal/core"
)

// Conversations is the generator surface the chat commands need.
type Conversations interface {
	History(ctx context.Context, conversationID, backend string) ([]core.Message, error)
	Backends() []string
	HasBackend(name string) bool
}

func NewCommands(conv Conversations, selection *Selection) []Command {
	return []Command{
		NewBackendCommand(conv, selection),
		NewHistoryCommand(conv, selection),
	}
}
