package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/voicebot/internal/core"
)

type BackendCommand struct {
	conv      Conversations
	selection *Selection
	formatter *ResponseFormatter
}

func NewBackendCommand(conv Conversations, selection *Selection) *BackendCommand {
	return &BackendCommand{
		conv:      conv,
		selection: selection,
		formatter: NewResponseFormatter(),
	}
}

func (c *BackendCommand) Name() string {
	return "backend"
}

func (c *BackendCommand) Description() string {
	return "Show or change the language model backend"
}

func (c *BackendCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Current Backend"),
			c.formatter.Label("Backend", c.selection.Backend(sessionID)),
			c.formatter.Label("Available", strings.Join(c.conv.Backends(), ", ")),
			c.formatter.Usage("/backend [name]"),
		), nil
	}

	name := strings.ToLower(args[0])
	if !c.conv.HasBackend(name) {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownBackend, name)
	}

	c.selection.Set(sessionID, name)

	return c.formatter.Success(fmt.Sprintf("Backend changed to: `%s`", name)), nil
}
