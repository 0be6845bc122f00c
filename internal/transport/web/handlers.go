package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/internal/service/voice"
	"github.com/sandevgo/voicebot/pkg/log"
)

// maxAudioSize matches the upload limit of the transcription API.
const maxAudioSize = 25 << 20

const (
	headerConversationID    = "X-Conversation-ID"
	headerResponseText      = "X-Response-Text"
	headerTranscript        = "X-Transcript"
	headerRecognitionFailed = "X-Recognition-Failed"
)

// Message is a pointer so that "" is accepted while a missing field is not.
type chatRequest struct {
	Message        *string `json:"message" binding:"required"`
	ConversationID string  `json:"conversation_id"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string  `json:"conversation_id"`
}

type historyResponse struct {
	ConversationID string         `json:"conversation_id"`
	Backend        string         `json:"backend"`
	Messages       []core.Message `json:"messages"`
	PromptTokens   int            `json:"prompt_tokens"`
}

func fail(c *gin.Context, err error) {
	log.FromCtx(c.Request.Context()).Warn().Err(err).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        core.BotName,
		"version":     core.BotVersion,
		"description": "Answers personal questions in the first person, by text or voice",
		"endpoints": gin.H{
			"chat":          "POST /api/chat",
			"chat_groq":     "POST /api/chat-groq",
			"voice":         "POST /api/voice",
			"conversations": "GET /api/conversations/:id",
			"websocket":     "GET /api/ws",
			"health":        "GET /api/health",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": core.BotVersion})
}

func (s *Server) handleChat(backend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("invalid request: %w", err))
			return
		}

		id := req.ConversationID
		if id == "" {
			id = uuid.NewString()
		}

		reply, err := s.chat.Generate(c.Request.Context(), *req.Message, id, backend)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, chatResponse{Response: reply, ConversationID: id})
	}
}

func (s *Server) handleVoice(c *gin.Context) {
	if s.voice == nil {
		fail(c, errors.New("voice is not configured"))
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		fail(c, fmt.Errorf("missing audio file: %w", err))
		return
	}
	if fh.Size > maxAudioSize {
		fail(c, fmt.Errorf("audio file too large: %d bytes", fh.Size))
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, fmt.Errorf("open audio: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, fmt.Errorf("read audio: %w", err))
		return
	}

	id := c.PostForm("conversation_id")
	if id == "" {
		id = uuid.NewString()
	}

	reply, err := s.voice.Respond(c.Request.Context(), voice.Request{
		Audio:          data,
		Filename:       fh.Filename,
		ConversationID: id,
		Backend:        s.chat.Primary(),
		Format:         core.AudioWAV,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.Header(headerConversationID, id)
	c.Header(headerResponseText, headerValue(reply.Text))
	if reply.Transcript != "" {
		c.Header(headerTranscript, headerValue(reply.Transcript))
	}
	c.Header(headerRecognitionFailed, strconv.FormatBool(reply.RecognitionFailed))
	c.Data(http.StatusOK, "audio/wav", reply.Audio)
}

func (s *Server) handleConversation(c *gin.Context) {
	id := c.Param("id")
	backend := c.DefaultQuery("backend", s.chat.Primary())

	history, err := s.chat.History(c.Request.Context(), id, backend)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, historyResponse{
		ConversationID: id,
		Backend:        backend,
		Messages:       history,
		PromptTokens:   s.chat.PromptTokens(history),
	})
}

// headerValue folds text onto one line.
func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
