package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTT struct {
	text  string
	err   error
	calls int
	got   []byte
}

func (f *fakeSTT) Transcribe(_ context.Context, data []byte, _ string) (string, error) {
	f.calls++
	f.got = data
	return f.text, f.err
}

type fakeTTS struct {
	err    error
	spoken string
	format core.AudioFormat
}

func (f *fakeTTS) Synthesize(_ context.Context, text string, format core.AudioFormat) ([]byte, error) {
	f.spoken = text
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio:" + text), nil
}

type fakeGen struct {
	reply   string
	err     error
	calls   int
	message string
	id      string
	backend string
}

func (f *fakeGen) Generate(_ context.Context, message, id, backend string) (string, error) {
	f.calls++
	f.message, f.id, f.backend = message, id, backend
	return f.reply, f.err
}

func speechWAV(t *testing.T) []byte {
	t.Helper()
	samples := make([]int16, 1600)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 8000
		} else {
			samples[i] = -8000
		}
	}
	data, err := audio.EncodeWAV(&audio.PCM{Samples: samples, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	return data
}

func TestRespond(t *testing.T) {
	stt := &fakeSTT{text: "What's your superpower?"}
	tts := &fakeTTS{}
	gen := &fakeGen{reply: "**Pattern** recognition."}
	p := NewPipeline(stt, tts, gen)

	reply, err := p.Respond(context.Background(), Request{
		Audio:          speechWAV(t),
		Filename:       "audio.wav",
		ConversationID: "c1",
		Backend:        "openai",
		Format:         core.AudioWAV,
	})
	require.NoError(t, err)

	assert.Equal(t, "What's your superpower?", reply.Transcript)
	assert.Equal(t, "**Pattern** recognition.", reply.Text)
	assert.False(t, reply.RecognitionFailed)
	assert.Equal(t, []byte("audio:Pattern recognition."), reply.Audio)
	assert.Equal(t, core.AudioWAV, tts.format)

	assert.Equal(t, "What's your superpower?", gen.message)
	assert.Equal(t, "c1", gen.id)
	assert.Equal(t, "openai", gen.backend)
	assert.True(t, audio.IsWAV(stt.got))
}

func TestRespond_RecognitionFailures(t *testing.T) {
	tests := []struct {
		name  string
		audio func(t *testing.T) []byte
		err   error
		want  string
		calls int
	}{
		{"unintelligible", speechWAV, core.ErrUnintelligible, MessageUnintelligible, 1},
		{"service error", speechWAV, &core.RecognitionError{Err: errors.New("quota exceeded")}, "Speech recognition service error: quota exceeded", 1},
		{"silence", func(t *testing.T) []byte {
			data, err := audio.EncodeWAV(&audio.PCM{Samples: make([]int16, 1600), SampleRate: 16000, Channels: 1})
			require.NoError(t, err)
			return data
		}, nil, MessageUnintelligible, 0},
		{"empty upload", func(*testing.T) []byte { return nil }, nil, MessageUnintelligible, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stt := &fakeSTT{err: tt.err}
			tts := &fakeTTS{}
			gen := &fakeGen{reply: "should not be used"}
			p := NewPipeline(stt, tts, gen)

			reply, err := p.Respond(context.Background(), Request{Audio: tt.audio(t), ConversationID: "c1", Format: core.AudioWAV})
			require.NoError(t, err)

			assert.True(t, reply.RecognitionFailed)
			assert.Equal(t, tt.want, reply.Text)
			assert.Empty(t, reply.Transcript)
			assert.Equal(t, tt.want, tts.spoken)
			assert.Zero(t, gen.calls)
			assert.Equal(t, tt.calls, stt.calls)
		})
	}
}

func TestRespond_NonWAVPassthrough(t *testing.T) {
	stt := &fakeSTT{text: "hello"}
	p := NewPipeline(stt, &fakeTTS{}, &fakeGen{reply: "hi"})

	ogg := []byte("OggS\x00\x02 voice note")
	_, err := p.Respond(context.Background(), Request{Audio: ogg, Filename: "voice.ogg", Format: core.AudioOpus})
	require.NoError(t, err)
	assert.Equal(t, ogg, stt.got)
}

func TestRespond_Errors(t *testing.T) {
	t.Run("generator", func(t *testing.T) {
		p := NewPipeline(&fakeSTT{text: "hi"}, &fakeTTS{}, &fakeGen{err: core.ErrUnknownBackend})
		_, err := p.Respond(context.Background(), Request{Audio: speechWAV(t)})
		assert.ErrorIs(t, err, core.ErrUnknownBackend)
	})

	t.Run("synthesis", func(t *testing.T) {
		p := NewPipeline(&fakeSTT{text: "hi"}, &fakeTTS{err: errors.New("tts down")}, &fakeGen{reply: "ok"})
		_, err := p.Respond(context.Background(), Request{Audio: speechWAV(t)})
		assert.ErrorContains(t, err, "tts down")
	})
}

func TestRecognitionMessage(t *testing.T) {
	assert.Equal(t, MessageUnintelligible, RecognitionMessage(core.ErrUnintelligible))
	assert.Equal(t, MessageUnintelligible, RecognitionMessage(audio.ErrSilence))
	assert.Equal(t, "Speech recognition service error: boom", RecognitionMessage(&core.RecognitionError{Err: errors.New("boom")}))
}
