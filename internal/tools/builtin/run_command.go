package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
	"github.com/AAsriyan/vibe/internal/workflow"
)

type runCommandTool struct {
	steps  *workflow.Runner
	env    SandboxEnv
	logger logging.Logger
}

// NewRunCommand builds the run-command tool for one workflow run.
func NewRunCommand(steps *workflow.Runner, env SandboxEnv) ports.ToolExecutor {
	return &runCommandTool{
		steps:  steps,
		env:    env,
		logger: logging.NewComponentLogger("tool-run-command"),
	}
}

func (t *runCommandTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "run-command",
		Description: "Run a shell command inside the sandbox and return its output.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"command": {Type: "string", Description: "Shell command to execute"},
			},
			Required: []string{"command"},
		},
	}
}

func (t *runCommandTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	command := strings.TrimSpace(stringArg(call.Arguments, "command"))
	if command == "" {
		err := errors.New("command is required")
		return &ports.ToolResult{CallID: call.ID, Content: err.Error(), Error: err}, nil
	}

	// Command failures become text for the model; only sandbox infrastructure
	// failures escape the step and abort the run.
	output, err := workflow.Run(ctx, t.steps, stepID(call, "run-command"), func(ctx context.Context) (string, error) {
		var stdout, stderr strings.Builder

		handle, err := t.env.reconnect(ctx)
		if err != nil {
			return "", err
		}

		result, err := handle.RunCommand(ctx, command,
			func(chunk string) { stdout.WriteString(chunk) },
			func(chunk string) { stderr.WriteString(chunk) },
		)
		if err != nil {
			if result == nil {
				return "", err
			}
			message := fmt.Sprintf("Command failed: %v\nstdout: %s\nstderr: %s", err, stdout.String(), stderr.String())
			t.logger.Warn("%s", message)
			return message, nil
		}

		return result.Stdout, nil
	})
	if err != nil {
		return nil, err
	}

	return &ports.ToolResult{CallID: call.ID, Content: output}, nil
}
