package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
)

func newFakeAPI(t *testing.T, handler http.HandlerFunc) ports.LLMClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAIClient(Config{BaseURL: server.URL, APIKey: "test", Model: "gpt-test"})
}

func TestCompleteParsesTextAndToolCalls(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {
					"content": "on it",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "write-files", "arguments": "{\"files\":[{\"path\":\"a.txt\",\"content\":\"1\"}]}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	})

	resp, err := client.Complete(context.Background(), ports.CompletionRequest{
		SystemPrompt: "You are a coding agent.",
		Messages:     []ports.Message{{Role: "user", Content: "add a file"}},
		Tools:        []ports.ToolDefinition{{Name: "write-files"}},
	})
	require.NoError(t, err)

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])

	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "write-files", calls[0].Name)
	assert.Contains(t, calls[0].Arguments, "files")
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	var text string
	for _, item := range resp.Output {
		if item.Type == ports.OutputTypeText {
			text = item.Content
		}
	}
	assert.Equal(t, "on it", text)
}

func TestCompleteRepairsMalformedToolArguments(t *testing.T) {
	t.Parallel()

	client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "run-command", "arguments": "{'command': 'npm install',}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	})

	resp, err := client.Complete(context.Background(), ports.CompletionRequest{
		Messages: []ports.Message{{Role: "user", Content: "install deps"}},
	})
	require.NoError(t, err)

	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "npm install", calls[0].Arguments["command"])
}

func TestCompleteClassifiesServerErrorsAsTransient(t *testing.T) {
	t.Parallel()

	client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), ports.CompletionRequest{
		Messages: []ports.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, vibeerrors.IsTransient(err))
}

func TestRetryClientRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	base := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"recovered"},"finish_reason":"stop"}]}`))
	})

	client := NewRetryClient(base, vibeerrors.RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})

	resp, err := client.Complete(context.Background(), ports.CompletionRequest{
		Messages: []ports.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Output, 1)
	assert.Equal(t, "recovered", resp.Output[0].Content)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestCachingClientMemoizesFinalizerCalls(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	base := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Add README"},"finish_reason":"stop"}]}`))
	})

	client, err := NewCachingClient(base, 8)
	require.NoError(t, err)

	req := ports.CompletionRequest{
		SystemPrompt: "Generate a title.",
		Messages:     []ports.Message{{Role: "user", Content: "<task_summary>added readme</task_summary>"}},
	}
	for i := 0; i < 3; i++ {
		resp, err := client.Complete(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, resp.Output, 1)
	}
	assert.Equal(t, int32(1), hits.Load())

	// Requests carrying tools bypass the cache.
	withTools := req
	withTools.Tools = []ports.ToolDefinition{{Name: "run-command"}}
	_, err = client.Complete(context.Background(), withTools)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
