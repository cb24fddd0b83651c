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

type readFilesTool struct {
	steps  *workflow.Runner
	env    SandboxEnv
	logger logging.Logger
}

// NewReadFiles builds the read-files tool for one workflow run.
func NewReadFiles(steps *workflow.Runner, env SandboxEnv) ports.ToolExecutor {
	return &readFilesTool{
		steps:  steps,
		env:    env,
		logger: logging.NewComponentLogger("tool-read-files"),
	}
}

func (t *readFilesTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "read-files",
		Description: "Read files from the sandbox.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"files": {
					Type:        "array",
					Description: "Paths of files to read",
					Items:       &ports.Property{Type: "string"},
				},
			},
			Required: []string{"files"},
		},
	}
}

func (t *readFilesTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	paths, err := stringSliceArg(call.Arguments, "files")
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Content: err.Error(), Error: err}, nil
	}
	if len(paths) == 0 {
		err := errors.New("files is required")
		return &ports.ToolResult{CallID: call.ID, Content: err.Error(), Error: err}, nil
	}

	// Reads are side-effect free, so a single failure rejects the whole call
	// rather than reporting partial success.
	output, err := workflow.Run(ctx, t.steps, stepID(call, "read-files"), func(ctx context.Context) (string, error) {
		handle, err := t.env.reconnect(ctx)
		if err != nil {
			return "", err
		}

		type fileContent struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		contents := make([]fileContent, 0, len(paths))
		for _, path := range paths {
			content, err := handle.ReadFile(ctx, path)
			if err != nil {
				message := fmt.Sprintf("Failed to read files: %v", err)
				t.logger.Warn("%s", message)
				return message, nil
			}
			contents = append(contents, fileContent{Path: path, Content: content})
		}

		encoded, err := json.Marshal(contents)
		if err != nil {
			return "", fmt.Errorf("encode file contents: %w", err)
		}
		return string(encoded), nil
	})
	if err != nil {
		return nil, err
	}

	return &ports.ToolResult{CallID: call.ID, Content: output}, nil
}
