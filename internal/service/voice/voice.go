package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/pkg/audio"
	"github.com/sandevgo/voicebot/pkg/conv"
	"github.com/sandevgo/voicebot/pkg/log"
)

const MessageUnintelligible = "Sorry, I could not understand the audio."

// RecognitionMessage is the spoken reply for a failed recognition.
func RecognitionMessage(err error) string {
	var re *core.RecognitionError
	switch {
	case errors.Is(err, core.ErrUnintelligible), errors.Is(err, audio.ErrSilence):
		return MessageUnintelligible
	case errors.As(err, &re):
		return fmt.Sprintf("Speech recognition service error: %v", re.Err)
	default:
		return fmt.Sprintf("Speech recognition service error: %v", err)
	}
}

type Generator interface {
	Generate(ctx context.Context, message, conversationID, backend string) (string, error)
}

type Request struct {
	Audio          []byte
	Filename       string
	ConversationID string
	Backend        string
	Format         core.AudioFormat
}

type Reply struct {
	// Transcript is what the caller said. Empty when recognition failed.
	Transcript string
	// Text is the reply that was spoken.
	Text   string
	Audio  []byte
	Format core.AudioFormat
	// RecognitionFailed is set when Text is a recognition error message and
	// no completion was requested.
	RecognitionFailed bool
}

// Pipeline turns one spoken question into one spoken answer.
type Pipeline struct {
	stt core.Transcriber
	tts core.Synthesizer
	gen Generator
}

func NewPipeline(stt core.Transcriber, tts core.Synthesizer, gen Generator) *Pipeline {
	return &Pipeline{stt: stt, tts: tts, gen: gen}
}

// Respond runs preprocess, transcribe, generate and synthesize. A recognition
// failure skips generation and speaks the failure message instead.
func (p *Pipeline) Respond(ctx context.Context, req Request) (*Reply, error) {
	logger := log.FromCtx(ctx)
	reply := &Reply{Format: req.Format}

	transcript, err := p.transcribe(ctx, req.Audio, req.Filename)
	if err != nil {
		logger.Warn().Err(err).Str("conversation", req.ConversationID).Msg("speech recognition failed")
		reply.Text = RecognitionMessage(err)
		reply.RecognitionFailed = true
	} else {
		logger.Debug().Str("transcript", transcript).Msg("recognised speech")
		reply.Transcript = transcript

		reply.Text, err = p.gen.Generate(ctx, transcript, req.ConversationID, req.Backend)
		if err != nil {
			return nil, err
		}
	}

	spoken := conv.MarkdownToSpeech(reply.Text)
	if spoken == "" {
		spoken = reply.Text
	}

	reply.Audio, err = p.tts.Synthesize(ctx, spoken, req.Format)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	return reply, nil
}

func (p *Pipeline) transcribe(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", core.ErrUnintelligible
	}

	processed, err := audio.Preprocess(data)
	switch {
	case errors.Is(err, audio.ErrSilence):
		return "", err
	case err != nil:
		// let the recognition service judge audio we cannot parse
		log.FromCtx(ctx).Debug().Err(err).Msg("audio preprocessing skipped")
		processed = data
	}

	return p.stt.Transcribe(ctx, processed, filename)
}
