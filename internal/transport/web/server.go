package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/internal/service/voice"
	"github.com/sandevgo/voicebot/pkg/log"
)

// Chatter is the conversation side of the API.
type Chatter interface {
	Generate(ctx context.Context, message, conversationID, backend string) (string, error)
	History(ctx context.Context, conversationID, backend string) ([]core.Message, error)
	PromptTokens(history []core.Message) int
	HasBackend(name string) bool
	Primary() string
}

// Voicer answers a spoken question with speech.
type Voicer interface {
	Respond(ctx context.Context, req voice.Request) (*voice.Reply, error)
}

type Server struct {
	cfg       *config.ServerConfig
	chat      Chatter
	voice     Voicer
	alternate string
	logger    zerolog.Logger
	engine    *gin.Engine
	http      *http.Server
}

// NewServer builds the HTTP API. alternate is the backend behind
// /api/chat-groq.
func NewServer(ctx context.Context, cfg *config.ServerConfig, chat Chatter, voicer Voicer, alternate string) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		chat:      chat,
		voice:     voicer,
		alternate: alternate,
		logger:    *log.FromCtx(ctx),
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestID(), requestLogger(s.logger), cors())
	s.routes()

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleRoot)

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/chat", s.handleChat(s.chat.Primary()))
	api.POST("/chat-groq", s.handleChat(s.alternate))
	api.POST("/voice", s.handleVoice)
	api.GET("/conversations/:id", s.handleConversation)
	api.GET("/ws", s.handleWebsocket)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.http.Addr).Msg("starting http server")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
