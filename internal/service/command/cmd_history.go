package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/voicebot/internal/core"
)

const historyPreviewLen = 120

type HistoryCommand struct {
	conv      Conversations
	selection *Selection
	formatter *ResponseFormatter
}

func NewHistoryCommand(conv Conversations, selection *Selection) *HistoryCommand {
	return &HistoryCommand{
		conv:      conv,
		selection: selection,
		formatter: NewResponseFormatter(),
	}
}

func (c *HistoryCommand) Name() string {
	return "history"
}

func (c *HistoryCommand) Description() string {
	return "Show the stored conversation"
}

func (c *HistoryCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	backend := c.selection.Backend(sessionID)

	history, err := c.conv.History(ctx, sessionID, backend)
	if err != nil {
		return "", err
	}

	if len(history) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("History"),
			c.formatter.Label("Backend", backend),
			"No messages yet.",
		), nil
	}

	items := make([]string, 0, len(history))
	for _, msg := range history {
		if msg.Role == core.RoleSystem {
			continue
		}
		items = append(items, fmt.Sprintf("**%s**: %s", msg.Role, preview(msg.Content)))
	}

	return c.formatter.Combine(
		c.formatter.Info("History"),
		c.formatter.Label("Backend", backend),
		c.formatter.Label("Messages", fmt.Sprintf("%d", len(history))),
		c.formatter.List(items),
	), nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > historyPreviewLen {
		return string(r[:historyPreviewLen-3]) + "..."
	}
	return s
}
