package ports

import "context"

// LLMClient represents any LLM provider.
type LLMClient interface {
	// Complete sends a conversation and returns the model's output for one turn.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Model returns the model identifier.
	Model() string
}

// CompletionRequest contains all parameters for LLM completion.
type CompletionRequest struct {
	SystemPrompt string           `json:"system_prompt,omitempty"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Temperature  float64          `json:"temperature,omitempty"`
	MaxTokens    int              `json:"max_tokens,omitempty"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

// CompletionResponse is one model turn: an ordered sequence of output items,
// each either a text message or a tool invocation.
type CompletionResponse struct {
	Output     []OutputItem `json:"output"`
	StopReason string       `json:"stop_reason,omitempty"`
	Usage      TokenUsage   `json:"usage"`
}

// Output item types.
const (
	OutputTypeText     = "text"
	OutputTypeToolCall = "tool_call"
)

// OutputItem is a single element of a model turn. Text content arrives either
// as one string or as a list of fragments, mirroring provider APIs.
type OutputItem struct {
	Type     string    `json:"type"`
	Role     string    `json:"role,omitempty"`
	Content  string    `json:"content,omitempty"`
	Parts    []string  `json:"parts,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
}

// TextItem builds a plain assistant text output item.
func TextItem(content string) OutputItem {
	return OutputItem{Type: OutputTypeText, Role: "assistant", Content: content}
}

// ToolCallItem builds a tool invocation output item.
func ToolCallItem(call ToolCall) OutputItem {
	return OutputItem{Type: OutputTypeToolCall, Role: "assistant", ToolCall: &call}
}

// ToolCalls extracts the tool invocations from the turn in emission order.
func (r *CompletionResponse) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, item := range r.Output {
		if item.Type == OutputTypeToolCall && item.ToolCall != nil {
			calls = append(calls, *item.ToolCall)
		}
	}
	return calls
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message represents a conversation message.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}
