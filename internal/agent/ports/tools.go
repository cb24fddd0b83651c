package ports

import (
	"context"
	"encoding/json"
)

// ToolExecutor executes a single tool call.
//
// Execute never returns a non-nil error for tool-level failures: those are
// captured in ToolResult.Content (and ToolResult.Error) so the model can see
// and react to them on the next turn. Only infrastructure failures that must
// abort the run propagate as errors.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)

	// Definition returns the tool's schema for the LLM.
	Definition() ToolDefinition
}

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema is a JSON-schema object describing tool arguments.
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single schema property.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// ToolCall represents a request to execute a tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`

	// StepID is the durable step name for this invocation, assigned by the
	// loop from call position so it is stable across workflow replays.
	StepID string `json:"step_id,omitempty"`
}

// ToolResult is the execution result handed back to the model.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	Error   error  `json:"error,omitempty"`
}

// MarshalJSON encodes the error as its message so results serialize cleanly
// into the model's next input.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	type alias struct {
		CallID  string `json:"call_id"`
		Content string `json:"content"`
		Error   string `json:"error,omitempty"`
	}
	out := alias{CallID: r.CallID, Content: r.Content}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// ToolRegistry manages available tools.
type ToolRegistry interface {
	Register(tool ToolExecutor) error
	Get(name string) (ToolExecutor, error)
	List() []ToolDefinition
}
