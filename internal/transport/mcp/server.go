package mcp

import (
	"context"
	"fmt"
	"io"
	stdlog "log"

	"github.com/google/uuid"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/pkg/log"
)

const ToolAskPersona = "ask_persona"

type Chatter interface {
	Generate(ctx context.Context, message, conversationID, backend string) (string, error)
	HasBackend(name string) bool
	Backends() []string
	Primary() string
}

// Server exposes the persona as an MCP tool over stdio.
type Server struct {
	srv  *server.MCPServer
	chat Chatter
}

func NewServer(chat Chatter) *Server {
	s := &Server{
		srv: server.NewMCPServer(
			core.BotName,
			core.BotVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		chat: chat,
	}

	s.srv.AddTool(mcpproto.NewTool(ToolAskPersona,
		mcpproto.WithDescription("Ask the persona a personal question. The answer is given in the first person, "+
			"two or three sentences long. Reuse conversation_id to continue a conversation."),
		mcpproto.WithString("question",
			mcpproto.Required(),
			mcpproto.Description("The question to ask"),
		),
		mcpproto.WithString("conversation_id",
			mcpproto.Description("Conversation to continue. A new one is started when empty"),
		),
		mcpproto.WithString("backend",
			mcpproto.Description("Language model backend"),
			mcpproto.Enum(chat.Backends()...),
		),
	), s.handleAsk)

	return s
}

// Serve speaks MCP over in and out until ctx ends or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	logger := log.FromCtx(ctx)
	logger.Info().Str("tool", ToolAskPersona).Msg("serving mcp over stdio")

	stdio := server.NewStdioServer(s.srv)
	stdio.SetErrorLogger(stdlog.New(logger, "", 0))

	return stdio.Listen(ctx, in, out)
}

func (s *Server) handleAsk(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil || question == "" {
		return mcpproto.NewToolResultError("question is required"), nil
	}

	backend := req.GetString("backend", "")
	if backend == "" {
		backend = s.chat.Primary()
	}
	if !s.chat.HasBackend(backend) {
		return mcpproto.NewToolResultError(fmt.Sprintf("unknown backend %q", backend)), nil
	}

	id := req.GetString("conversation_id", "")
	if id == "" {
		id = uuid.NewString()
	}

	reply, err := s.chat.Generate(ctx, question, id, backend)
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	result := mcpproto.NewToolResultText(reply)
	result.StructuredContent = map[string]string{
		"response":        reply,
		"conversation_id": id,
		"backend":         backend,
	}
	return result, nil
}
