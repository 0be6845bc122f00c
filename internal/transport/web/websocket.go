package web

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sandevgo/voicebot/pkg/log"
)

const (
	wsReadLimit   = 64 << 10
	wsIdleTimeout = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Backend        string `json:"backend,omitempty"`
}

type wsResponse struct {
	Response       string `json:"response,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// handleWebsocket serves chat turns over one connection. Frames without a
// conversation id continue the connection's own conversation.
func (s *Server) handleWebsocket(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.FromCtx(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	session := uuid.NewString()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("websocket closed")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		resp := s.wsTurn(ctx, frame, session)

		out, err := sonic.Marshal(resp)
		if err != nil {
			logger.Error().Err(err).Msg("failed to encode websocket frame")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Warn().Err(err).Msg("failed to write websocket frame")
			return
		}
	}
}

func (s *Server) wsTurn(ctx context.Context, frame []byte, session string) wsResponse {
	var req wsRequest
	if err := sonic.Unmarshal(frame, &req); err != nil {
		return wsResponse{Error: "invalid frame: " + err.Error()}
	}
	if req.Message == "" {
		return wsResponse{Error: "message is required"}
	}

	id := req.ConversationID
	if id == "" {
		id = session
	}
	backend := req.Backend
	if backend == "" {
		backend = s.chat.Primary()
	}

	reply, err := s.chat.Generate(ctx, req.Message, id, backend)
	if err != nil {
		return wsResponse{Error: err.Error(), ConversationID: id}
	}
	return wsResponse{Response: reply, ConversationID: id}
}
