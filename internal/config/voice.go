package config

import "context"

type VoiceConfig struct {
	STTLanguage string  `env:"STT_LANGUAGE" envDefault:"en-US"`
	STTModel    string  `env:"STT_MODEL" envDefault:"whisper-1"`
	TTSLanguage string  `env:"TTS_LANGUAGE" envDefault:"en"`
	TTSSpeed    float64 `env:"TTS_SPEED" envDefault:"1.0"`
	TTSModel    string  `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice    string  `env:"TTS_VOICE" envDefault:"alloy"`
}

func NewVoiceConfig(ctx context.Context) *VoiceConfig {
	return mustParse[VoiceConfig](ctx, "Voice")
}
