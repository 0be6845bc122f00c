package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sandevgo/voicebot/internal/core"
)

// OpenAICompatible talks to any /v1/chat/completions endpoint over plain HTTP.
type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
}

type OpenAICompatibleConfig struct {
	Name         string
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
	MaxRetries   int
}

var _ core.Backend = (*OpenAICompatible)(nil)

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.Name, strings.TrimRight(cfg.BaseURL, "/"), cfg.APIKey, cfg.Model, cfg.MaxRetries),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
	}
}

type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature float32        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAICompatible) Complete(ctx context.Context, messages []core.Message, params core.CompletionParams) (string, error) {
	model := params.Model
	if model == "" {
		model = o.model
	}

	payload := chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}

	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}

	var text string
	err := o.retrier.Do(ctx, func() error {
		resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload, headers)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		text, err = o.parseResponse(resp)
		return err
	})
	return text, err
}

func (o *OpenAICompatible) parseResponse(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &core.BackendError{Provider: o.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &core.BackendError{Provider: o.name, StatusCode: resp.StatusCode, Err: errors.New(apiErrorMessage(data))}
	}

	var result chatResponse
	if err := sonic.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("%s: decode: %w", o.name, err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%s: %w", o.name, core.ErrEmptyCompletion)
	}
	return *result.Choices[0].Message.Content, nil
}

// apiErrorMessage pulls error.message out of an OpenAI-style error body.
func apiErrorMessage(data []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := sonic.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}

	msg := strings.TrimSpace(string(data))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}
