package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sashabaranov/go-openai"
)

const (
	minSpeed = 0.25
	maxSpeed = 4.0
)

// OpenAI implements speech recognition with Whisper and synthesis with the
// audio/speech endpoint.
type OpenAI struct {
	client *openai.Client
	cfg    config.VoiceConfig
}

var (
	_ core.Transcriber = (*OpenAI)(nil)
	_ core.Synthesizer = (*OpenAI)(nil)
)

func NewOpenAI(baseURL, apiKey string, cfg config.VoiceConfig) *OpenAI {
	oc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		oc.BaseURL = baseURL
	}
	oc.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
	}
}

// Transcribe returns the recognised text. It fails with core.ErrUnintelligible
// when nothing was recognised and with *core.RecognitionError when the service
// could not be reached.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.cfg.STTModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: ISOLanguage(o.cfg.STTLanguage),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", &core.RecognitionError{Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", core.ErrUnintelligible
	}
	return text, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string, format core.AudioFormat) ([]byte, error) {
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(o.cfg.TTSVoice),
		ResponseFormat: openai.SpeechResponseFormat(format),
		Speed:          ClampSpeed(o.cfg.TTSSpeed),
	}
	if strings.HasPrefix(o.cfg.TTSModel, "gpt-4o") && o.cfg.TTSLanguage != "" {
		req.Instructions = "Speak in the language with ISO code " + ISOLanguage(o.cfg.TTSLanguage) + "."
	}

	resp, err := o.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	return data, nil
}

// ISOLanguage reduces a locale such as "en-US" to its ISO-639-1 code.
func ISOLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	lang, _, _ = strings.Cut(lang, "_")
	return strings.ToLower(strings.TrimSpace(lang))
}

// ClampSpeed keeps the speed multiplier inside what the service accepts.
func ClampSpeed(speed float64) float64 {
	switch {
	case speed <= 0:
		return 1.0
	case speed < minSpeed:
		return minSpeed
	case speed > maxSpeed:
		return maxSpeed
	default:
		return speed
	}
}
