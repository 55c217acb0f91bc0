// Package providers implements the streaming provider adapter: a shared
// line-oriented SSE/NDJSON reader (sse.go) plus the two wire families the
// spec names — OpenAI-compatible (openai.go) and Anthropic-compatible
// (anthropic.go).
package providers

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// BaseProvider holds shared retry configuration and name for LLM providers.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
	oauth      *clientcredentials.Config
}

// NewBaseProvider creates a base provider with sane defaults.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{
		name:       name,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Name returns the provider's configured name.
func (b *BaseProvider) Name() string { return b.name }

// WithOAuth configures an OAuth2 client-credentials flow for providers
// that front their API key behind a token exchange instead of a static
// secret (e.g. some Azure/OpenRouter gateway deployments).
func (b *BaseProvider) WithOAuth(cfg clientcredentials.Config) {
	b.oauth = &cfg
}

// OAuthTokenSource returns an oauth2.TokenSource honoring ctx cancellation,
// or nil if WithOAuth was never called.
func (b *BaseProvider) OAuthTokenSource(ctx context.Context) oauth2.TokenSource {
	if b.oauth == nil {
		return nil
	}
	return b.oauth.TokenSource(ctx)
}

// Retry executes op with linear backoff if isRetryable returns true.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt >= b.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}
