package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

// cachingClient memoizes completions for identical requests. It serves the
// post-loop finalizers, where a retried run re-derives the same title and
// response from the same summary.
type cachingClient struct {
	underlying ports.LLMClient
	cache      *lru.Cache[string, *ports.CompletionResponse]
	logger     logging.Logger
}

// NewCachingClient wraps client with an LRU completion cache of the given size.
func NewCachingClient(client ports.LLMClient, size int) (ports.LLMClient, error) {
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, *ports.CompletionResponse](size)
	if err != nil {
		return nil, err
	}
	return &cachingClient{
		underlying: client,
		cache:      cache,
		logger:     logging.NewComponentLogger("llm-cache"),
	}, nil
}

func (c *cachingClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	key, ok := cacheKey(c.underlying.Model(), req)
	if !ok {
		return c.underlying.Complete(ctx, req)
	}

	if cached, hit := c.cache.Get(key); hit {
		c.logger.Debug("Completion cache hit (model=%s)", c.underlying.Model())
		return cached, nil
	}

	resp, err := c.underlying.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, resp)
	return resp, nil
}

func (c *cachingClient) Model() string {
	return c.underlying.Model()
}

// cacheKey hashes the request. Requests with tools are never cached: tool
// dispatch must observe fresh model decisions.
func cacheKey(model string, req ports.CompletionRequest) (string, bool) {
	if len(req.Tools) > 0 {
		return "", false
	}
	payload, err := json.Marshal(struct {
		Model       string          `json:"model"`
		System      string          `json:"system"`
		Messages    []ports.Message `json:"messages"`
		Temperature float64         `json:"temperature"`
		MaxTokens   int             `json:"max_tokens"`
	}{model, req.SystemPrompt, req.Messages, req.Temperature, req.MaxTokens})
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), true
}
