package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
	"github.com/AAsriyan/vibe/internal/workflow"
)

// FileState is the slice of shared agent state the file tools need: a copy of
// the current files map and a way to commit an updated one.
type FileState interface {
	Files() map[string]string
	CommitFiles(files map[string]string)
}

type writeFilesTool struct {
	steps  *workflow.Runner
	env    SandboxEnv
	state  FileState
	logger logging.Logger
}

// NewWriteFiles builds the write-files tool for one workflow run.
func NewWriteFiles(steps *workflow.Runner, env SandboxEnv, state FileState) ports.ToolExecutor {
	return &writeFilesTool{
		steps:  steps,
		env:    env,
		state:  state,
		logger: logging.NewComponentLogger("tool-write-files"),
	}
}

func (t *writeFilesTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "write-files",
		Description: "Create or update files in the sandbox.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"files": {
					Type:        "array",
					Description: "Files to create or update",
					Items: &ports.Property{
						Type: "object",
						Properties: map[string]ports.Property{
							"path":    {Type: "string"},
							"content": {Type: "string"},
						},
						Required: []string{"path", "content"},
					},
				},
			},
			Required: []string{"files"},
		},
	}
}

// writeFilesOutcome is the checkpointed step result: either the updated files
// map, or the error text reported to the model. Partial writes before a
// failure stay applied to the sandbox but are not committed to shared state.
type writeFilesOutcome struct {
	Files     map[string]string `json:"files,omitempty"`
	ErrorText string            `json:"error_text,omitempty"`
}

func (t *writeFilesTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	edits, err := fileEditsArg(call.Arguments, "files")
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Content: err.Error(), Error: err}, nil
	}
	if len(edits) == 0 {
		err := errors.New("files is required")
		return &ports.ToolResult{CallID: call.ID, Content: err.Error(), Error: err}, nil
	}

	outcome, err := workflow.Run(ctx, t.steps, stepID(call, "write-files"), func(ctx context.Context) (writeFilesOutcome, error) {
		handle, err := t.env.reconnect(ctx)
		if err != nil {
			return writeFilesOutcome{}, err
		}

		updated := t.state.Files()
		for _, edit := range edits {
			if err := handle.WriteFile(ctx, edit.Path, edit.Content); err != nil {
				message := fmt.Sprintf("Failed to create or update files: %v", err)
				t.logger.Warn("%s", message)
				return writeFilesOutcome{Files: updated, ErrorText: message}, nil
			}
			updated[edit.Path] = edit.Content
		}
		return writeFilesOutcome{Files: updated}, nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.ErrorText != "" {
		return &ports.ToolResult{
			CallID:  call.ID,
			Content: outcome.ErrorText,
			Error:   errors.New(outcome.ErrorText),
		}, nil
	}

	// The updated map only reaches shared state when every edit succeeded.
	t.state.CommitFiles(outcome.Files)

	encoded, err := json.Marshal(outcome.Files)
	if err != nil {
		return nil, fmt.Errorf("encode files map: %w", err)
	}
	return &ports.ToolResult{CallID: call.ID, Content: string(encoded)}, nil
}
