package speech

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var voiceCfg = config.VoiceConfig{
	STTLanguage: "en-US",
	STTModel:    "whisper-1",
	TTSLanguage: "en",
	TTSSpeed:    9,
	TTSModel:    "tts-1",
	TTSVoice:    "alloy",
}

func newService(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(srv.URL+"/v1", "sk-test", voiceCfg)
}

func TestTranscribe(t *testing.T) {
	fields := map[string]string{}
	var fileName string
	var fileData []byte

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if !assert.NoError(t, err) {
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(part)
			if part.FormName() == "file" {
				fileName = part.FileName()
				fileData = data
				continue
			}
			fields[part.FormName()] = string(data)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  What's your superpower?  "}`)
	})

	text, err := svc.Transcribe(context.Background(), []byte("RIFF...."), "voice.wav")
	require.NoError(t, err)
	assert.Equal(t, "What's your superpower?", text)

	assert.Equal(t, "voice.wav", fileName)
	assert.Equal(t, []byte("RIFF...."), fileData)
	assert.Equal(t, "whisper-1", fields["model"])
	assert.Equal(t, "en", fields["language"])
}

func TestTranscribe_Empty(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":""}`)
	})

	_, err := svc.Transcribe(context.Background(), []byte("x"), "voice.wav")
	assert.ErrorIs(t, err, core.ErrUnintelligible)
}

func TestTranscribe_ServiceError(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`)
	})

	_, err := svc.Transcribe(context.Background(), []byte("x"), "voice.wav")
	var re *core.RecognitionError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), "speech recognition service error")
}

func TestSynthesize(t *testing.T) {
	var req struct {
		Model          string  `json:"model"`
		Input          string  `json:"input"`
		Voice          string  `json:"voice"`
		ResponseFormat string  `json:"response_format"`
		Speed          float64 `json:"speed"`
	}

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, sonic.Unmarshal(data, &req))

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFfake"))
	})

	audio, err := svc.Synthesize(context.Background(), "Hello there", core.AudioWAV)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFfake"), audio)

	assert.Equal(t, "tts-1", req.Model)
	assert.Equal(t, "Hello there", req.Input)
	assert.Equal(t, "alloy", req.Voice)
	assert.Equal(t, "wav", req.ResponseFormat)
	assert.Equal(t, 4.0, req.Speed)
}

func TestSynthesize_Error(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := svc.Synthesize(context.Background(), "Hello", core.AudioOpus)
	assert.Error(t, err)
}

func TestISOLanguage(t *testing.T) {
	tests := map[string]string{
		"en-US": "en",
		"pt_BR": "pt",
		"DE":    "de",
		"":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ISOLanguage(in), in)
	}
}

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{-2, 1},
		{0.1, 0.25},
		{1.5, 1.5},
		{10, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampSpeed(tt.in))
	}
}
