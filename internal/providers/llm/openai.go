package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/pkg/retry"
	"github.com/sashabaranov/go-openai"
)

// OpenAI is the primary backend, backed by the official API client.
type OpenAI struct {
	client  *openai.Client
	retrier *retry.Retrier
	model   string
}

var _ core.Backend = (*OpenAI)(nil)

// NewOpenAI creates the primary backend. An empty baseURL targets api.openai.com.
func NewOpenAI(baseURL, apiKey, model string, maxRetries int) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		retrier: newRetrier(maxRetries),
		model:   model,
	}
}

func (o *OpenAI) Name() string {
	return BackendOpenAI
}

func (o *OpenAI) Model() string {
	return o.model
}

func (o *OpenAI) Complete(ctx context.Context, messages []core.Message, params core.CompletionParams) (string, error) {
	model := params.Model
	if model == "" {
		model = o.model
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}

	var text string
	err := o.retrier.Do(ctx, func() error {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return classifyOpenAIError(BackendOpenAI, err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%s: %w", BackendOpenAI, core.ErrEmptyCompletion)
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	return text, err
}

func toOpenAIMessages(messages []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// classifyOpenAIError maps go-openai failures onto core.BackendError.
// Errors with neither an HTTP status nor a transport cause, such as an
// undecodable body, are returned as plain errors.
func classifyOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &core.BackendError{Provider: provider, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &core.BackendError{Provider: provider, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return &core.BackendError{Provider: provider, Err: err}
	}

	return fmt.Errorf("%s: %w", provider, err)
}
