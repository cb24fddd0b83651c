// Package llm implements LLM provider clients against the OpenAI-compatible
// chat completions API, plus retry and caching decorators.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

// Config carries provider settings for one client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type openaiClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      logging.Logger
}

// NewOpenAIClient constructs an LLM client that speaks the OpenAI-compatible
// chat completions API.
func NewOpenAIClient(cfg Config) ports.LLMClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &openaiClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger("llm-openai"),
	}
}

func (c *openaiClient) Model() string {
	return c.model
}

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content,omitempty"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type oaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaiResponse struct {
	Choices []struct {
		Message      oaiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *openaiClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	body := map[string]any{
		"model":       c.model,
		"messages":    c.convertMessages(req),
		"temperature": c.temperature,
		"stream":      false,
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		body["tools"] = convertTools(req.Tools)
		body["tool_choice"] = "auto"
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, vibeerrors.NewTransient(fmt.Errorf("llm request failed: %w", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vibeerrors.NewTransient(fmt.Errorf("read llm response: %w", err), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		reqErr := fmt.Errorf("llm request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
		return nil, vibeerrors.ClassifyHTTPStatus(resp.StatusCode, reqErr)
	}

	var parsed oaiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("llm error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("llm response has no choices")
	}

	choice := parsed.Choices[0]
	c.logger.Debug("LLM turn finished: content=%d bytes, tool_calls=%d, took=%v",
		len(choice.Message.Content), len(choice.Message.ToolCalls), time.Since(started))

	out := &ports.CompletionResponse{
		StopReason: choice.FinishReason,
		Usage: ports.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args, err := parseToolArguments(tc.Function.Arguments)
		if err != nil {
			c.logger.Warn("Unparseable tool arguments for %s: %v", tc.Function.Name, err)
			args = map[string]any{}
		}
		out.Output = append(out.Output, ports.ToolCallItem(ports.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		}))
	}
	if choice.Message.Content != "" {
		out.Output = append(out.Output, ports.TextItem(choice.Message.Content))
	}
	return out, nil
}

func (c *openaiClient) convertMessages(req ports.CompletionRequest) []oaiMessage {
	messages := make([]oaiMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		converted := oaiMessage{Role: msg.Role, Content: msg.Content}
		for _, call := range msg.ToolCalls {
			oaiCall := oaiToolCall{ID: call.ID, Type: "function"}
			oaiCall.Function.Name = call.Name
			if encoded, err := json.Marshal(call.Arguments); err == nil {
				oaiCall.Function.Arguments = string(encoded)
			}
			converted.ToolCalls = append(converted.ToolCalls, oaiCall)
		}
		messages = append(messages, converted)
		for _, result := range msg.ToolResults {
			content := result.Content
			if result.Error != nil && content == "" {
				content = result.Error.Error()
			}
			messages = append(messages, oaiMessage{
				Role:       "tool",
				Content:    content,
				ToolCallID: result.CallID,
			})
		}
	}
	return messages
}

func convertTools(tools []ports.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			},
		})
	}
	return out
}
