package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/internal/service/command"
	"github.com/sandevgo/voicebot/pkg/log"
)

// defaultSessionID keeps one local conversation across runs when the store
// is durable.
const defaultSessionID = "cli-local"

type Chatter interface {
	Generate(ctx context.Context, message, conversationID, backend string) (string, error)
}

type lineReader interface {
	Readline() (string, error)
	Close() error
}

type ReadLine struct {
	chat      Chatter
	router    *command.Router
	selection *command.Selection
	rl        lineReader
	out       io.Writer
}

func NewReadLine(cfg *config.AppConfig, chat Chatter, router *command.Router, selection *command.Selection) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.GetRuntimePath(), "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		chat:      chat,
		router:    router,
		selection: selection,
		rl:        rl,
		out:       rl.Stdout(),
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("chat started, type 'exit' to quit")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if out, ok := r.router.Execute(ctx, defaultSessionID, line); ok {
			fmt.Fprintln(r.out, out)
			continue
		}

		reply, err := r.chat.Generate(ctx, line, defaultSessionID, r.selection.Backend(defaultSessionID))
		if err != nil {
			logger.Error().Err(err).Msg("generate failed")
			fmt.Fprintf(r.out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "%s\n\n", reply)
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
