package ports

import (
	"context"
	"time"
)

// SandboxClient provisions and re-attaches to remote execution sandboxes.
type SandboxClient interface {
	// Create starts a sandbox from the given image and returns its id.
	Create(ctx context.Context, image string) (string, error)

	// Connect re-attaches to an existing sandbox by id. Handles are not
	// assumed to be long-lived; callers reconnect before every use.
	Connect(ctx context.Context, sandboxID string) (SandboxHandle, error)
}

// SandboxHandle exposes command execution and file access for one sandbox.
type SandboxHandle interface {
	// SetTimeout configures the sandbox idle/hard timeout. Idempotent.
	SetTimeout(ctx context.Context, timeout time.Duration) error

	// RunCommand executes a shell command, streaming output chunks to the
	// optional callbacks while buffering the full result.
	RunCommand(ctx context.Context, command string, onStdout, onStderr func(string)) (*CommandResult, error)

	WriteFile(ctx context.Context, path, content string) error
	ReadFile(ctx context.Context, path string) (string, error)

	// ExposedHost returns the externally reachable hostname for a sandbox port.
	ExposedHost(ctx context.Context, port int) (string, error)
}

// CommandResult captures a finished sandbox command.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}
