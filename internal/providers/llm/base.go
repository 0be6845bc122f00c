package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/pkg/retry"
)

type baseProvider struct {
	client  *http.Client
	retrier *retry.Retrier
	name    string
	baseURL string
	apiKey  string
	model   string
}

func newBaseProvider(name, baseURL, apiKey, model string, maxRetries int) baseProvider {
	return baseProvider{
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		retrier: newRetrier(maxRetries),
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

var retryBaseDelay = 500 * time.Millisecond

// newRetrier only repeats failures that may clear up on their own.
func newRetrier(maxRetries int) *retry.Retrier {
	cfg := retry.NewDefaultConfig()
	cfg.MaxRetries = max(maxRetries, 0)
	cfg.InitialDelay = retryBaseDelay
	cfg.MaxDelay = 5 * time.Second
	cfg.Retryable = core.IsRetryable
	return retry.NewRetrier(cfg)
}

func (b *baseProvider) Name() string {
	return b.name
}

func (b *baseProvider) Model() string {
	return b.model
}

func (b *baseProvider) doRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.BotUserAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &core.BackendError{Provider: b.name, Err: fmt.Errorf("request: %w", err)}
	}
	return resp, nil
}
