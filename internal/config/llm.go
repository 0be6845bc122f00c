package config

import "context"

type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY" secret:"true"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string `env:"OPENAI_BASE_URL"`
}

func NewOpenAIConfig(ctx context.Context) *OpenAIConfig {
	return mustParse[OpenAIConfig](ctx, "OpenAI")
}

type GroqConfig struct {
	APIKey  string `env:"GROQ_API_KEY" secret:"true"`
	Model   string `env:"GROQ_MODEL" envDefault:"llama3-70b-8192"`
	BaseURL string `env:"GROQ_BASE_URL"`
}

func NewGroqConfig(ctx context.Context) *GroqConfig {
	return mustParse[GroqConfig](ctx, "Groq")
}
