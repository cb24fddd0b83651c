package llm

import (
	"context"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

// retryClient wraps an LLM client with retry logic for transient failures.
type retryClient struct {
	underlying ports.LLMClient
	config     vibeerrors.RetryConfig
	logger     logging.Logger
}

// NewRetryClient wraps client so transient completion failures are retried
// with exponential backoff before surfacing to the loop.
func NewRetryClient(client ports.LLMClient, config vibeerrors.RetryConfig) ports.LLMClient {
	return &retryClient{
		underlying: client,
		config:     config,
		logger:     logging.NewComponentLogger("llm-retry"),
	}
}

func (c *retryClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	return vibeerrors.RetryWithResult(ctx, c.config, func(ctx context.Context) (*ports.CompletionResponse, error) {
		return c.underlying.Complete(ctx, req)
	}, c.logger)
}

func (c *retryClient) Model() string {
	return c.underlying.Model()
}
