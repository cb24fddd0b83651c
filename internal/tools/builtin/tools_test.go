package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
	"github.com/AAsriyan/vibe/internal/shared/logging"
	"github.com/AAsriyan/vibe/internal/workflow"
)

// fakeSandbox scripts sandbox behavior for tool tests.
type fakeSandbox struct {
	mu          sync.Mutex
	files       map[string]string
	connectErr  error
	commandErr  error
	stdout      string
	stderr      string
	exitCode    int
	failWrites  map[string]error
	timeouts    int
	connects    int
	commandsRun []string
}

func newFakeSandbox() *fakeSandbox {
	return &fakeSandbox{files: make(map[string]string), failWrites: make(map[string]error)}
}

func (f *fakeSandbox) Create(ctx context.Context, image string) (string, error) {
	return "sb-fake", nil
}

func (f *fakeSandbox) Connect(ctx context.Context, sandboxID string) (ports.SandboxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connects++
	return &fakeHandle{sandbox: f}, nil
}

type fakeHandle struct {
	sandbox *fakeSandbox
}

func (h *fakeHandle) SetTimeout(ctx context.Context, timeout time.Duration) error {
	h.sandbox.mu.Lock()
	defer h.sandbox.mu.Unlock()
	h.sandbox.timeouts++
	return nil
}

func (h *fakeHandle) RunCommand(ctx context.Context, command string, onStdout, onStderr func(string)) (*ports.CommandResult, error) {
	h.sandbox.mu.Lock()
	h.sandbox.commandsRun = append(h.sandbox.commandsRun, command)
	stdout, stderr, exitCode, cmdErr := h.sandbox.stdout, h.sandbox.stderr, h.sandbox.exitCode, h.sandbox.commandErr
	h.sandbox.mu.Unlock()

	if onStdout != nil && stdout != "" {
		onStdout(stdout)
	}
	if onStderr != nil && stderr != "" {
		onStderr(stderr)
	}
	result := &ports.CommandResult{Stdout: stdout, Stderr: stderr, ExitCode: exitCode}
	if cmdErr != nil {
		return result, cmdErr
	}
	return result, nil
}

func (h *fakeHandle) WriteFile(ctx context.Context, path, content string) error {
	h.sandbox.mu.Lock()
	defer h.sandbox.mu.Unlock()
	if err, ok := h.sandbox.failWrites[path]; ok {
		return err
	}
	h.sandbox.files[path] = content
	return nil
}

func (h *fakeHandle) ReadFile(ctx context.Context, path string) (string, error) {
	h.sandbox.mu.Lock()
	defer h.sandbox.mu.Unlock()
	content, ok := h.sandbox.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

func (h *fakeHandle) ExposedHost(ctx context.Context, port int) (string, error) {
	return fmt.Sprintf("%d-sb-fake.example.dev", port), nil
}

// fakeFileState implements FileState over a plain map.
type fakeFileState struct {
	mu    sync.Mutex
	files map[string]string
}

func newFakeFileState() *fakeFileState {
	return &fakeFileState{files: make(map[string]string)}
}

func (s *fakeFileState) Files() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.files))
	for path, content := range s.files {
		out[path] = content
	}
	return out
}

func (s *fakeFileState) CommitFiles(files map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
}

func newToolEnv(sandbox *fakeSandbox) (*workflow.Runner, SandboxEnv) {
	steps := workflow.NewRunner("run-test", workflow.NewMemoryStore(), vibeerrors.RetryConfig{
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, logging.Nop())
	env := SandboxEnv{Client: sandbox, SandboxID: "sb-fake", Timeout: 10 * time.Minute}
	return steps, env
}

func TestRunCommandReturnsStdout(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	sandbox.stdout = "v20.11.0\n"
	steps, env := newToolEnv(sandbox)
	tool := NewRunCommand(steps, env)

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "call-1",
		Name:      "run-command",
		Arguments: map[string]any{"command": "node --version"},
		StepID:    "tool:run-command:0:0",
	})
	require.NoError(t, err)
	assert.Equal(t, "v20.11.0\n", result.Content)
	assert.Nil(t, result.Error)
	assert.Equal(t, []string{"node --version"}, sandbox.commandsRun)
	assert.Equal(t, 1, sandbox.timeouts, "reconnect re-asserts the sandbox timeout")
}

func TestRunCommandFailureBecomesText(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	sandbox.stdout = "partial"
	sandbox.stderr = "npm ERR! missing script"
	sandbox.exitCode = 1
	sandbox.commandErr = fmt.Errorf("command exited with status 1")
	steps, env := newToolEnv(sandbox)
	tool := NewRunCommand(steps, env)

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "call-1",
		Arguments: map[string]any{"command": "npm run build"},
		StepID:    "tool:run-command:0:0",
	})
	require.NoError(t, err, "command failures must not abort the loop")
	assert.Contains(t, result.Content, "Command failed")
	assert.Contains(t, result.Content, "partial")
	assert.Contains(t, result.Content, "npm ERR! missing script")
}

func TestRunCommandMissingArgument(t *testing.T) {
	t.Parallel()

	steps, env := newToolEnv(newFakeSandbox())
	tool := NewRunCommand(steps, env)

	result, err := tool.Execute(context.Background(), ports.ToolCall{ID: "call-1", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.Error(t, result.Error)
	assert.Contains(t, result.Content, "command is required")
}

func TestRunCommandInfrastructureFailurePropagates(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	sandbox.connectErr = vibeerrors.NewPermanent(fmt.Errorf("sandbox gone"), 404)
	steps, env := newToolEnv(sandbox)
	tool := NewRunCommand(steps, env)

	_, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "call-1",
		Arguments: map[string]any{"command": "ls"},
		StepID:    "tool:run-command:0:0",
	})
	require.Error(t, err)
}

func TestWriteFilesCommitsUpdatedMap(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	steps, env := newToolEnv(sandbox)
	state := newFakeFileState()
	tool := NewWriteFiles(steps, env, state)

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:   "call-1",
		Name: "write-files",
		Arguments: map[string]any{
			"files": []any{
				map[string]any{"path": "README.md", "content": "# vibe"},
				map[string]any{"path": "app/page.tsx", "content": "export default Page"},
			},
		},
		StepID: "tool:write-files:0:0",
	})
	require.NoError(t, err)
	require.Nil(t, result.Error)

	assert.Equal(t, "# vibe", sandbox.files["README.md"])
	assert.Equal(t, "# vibe", state.Files()["README.md"])
	assert.Equal(t, "export default Page", state.Files()["app/page.tsx"])

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.Content), &decoded))
	assert.Len(t, decoded, 2)
}

func TestWriteFilesLastWriteWins(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	steps, env := newToolEnv(sandbox)
	state := newFakeFileState()
	tool := NewWriteFiles(steps, env, state)

	for i, content := range []string{"1", "2"} {
		_, err := tool.Execute(context.Background(), ports.ToolCall{
			ID:   fmt.Sprintf("call-%d", i),
			Name: "write-files",
			Arguments: map[string]any{
				"files": []any{map[string]any{"path": "a.txt", "content": content}},
			},
			StepID: fmt.Sprintf("tool:write-files:%d:0", i),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, "2", state.Files()["a.txt"])
	assert.Equal(t, "2", sandbox.files["a.txt"])
}

func TestWriteFilesPartialFailureReportsErrorWithoutCommit(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	sandbox.failWrites["b.txt"] = fmt.Errorf("disk full")
	steps, env := newToolEnv(sandbox)
	state := newFakeFileState()
	tool := NewWriteFiles(steps, env, state)

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:   "call-1",
		Name: "write-files",
		Arguments: map[string]any{
			"files": []any{
				map[string]any{"path": "a.txt", "content": "1"},
				map[string]any{"path": "b.txt", "content": "2"},
			},
		},
		StepID: "tool:write-files:0:0",
	})
	require.NoError(t, err, "write failures must not abort the loop")
	assert.Error(t, result.Error)
	assert.Contains(t, result.Content, "Failed to create or update files")

	// The first edit reached the sandbox, but shared state is not committed.
	assert.Equal(t, "1", sandbox.files["a.txt"])
	assert.Empty(t, state.Files())
}

func TestWriteFilesReplayDoesNotRewriteSandbox(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	store := workflow.NewMemoryStore()
	env := SandboxEnv{Client: sandbox, SandboxID: "sb-fake", Timeout: time.Minute}
	state := newFakeFileState()

	call := ports.ToolCall{
		ID:   "call-1",
		Name: "write-files",
		Arguments: map[string]any{
			"files": []any{map[string]any{"path": "a.txt", "content": "1"}},
		},
		StepID: "tool:write-files:0:0",
	}

	steps := workflow.NewRunner("run-1", store, vibeerrors.RetryConfig{MaxAttempts: 1}, logging.Nop())
	_, err := NewWriteFiles(steps, env, state).Execute(context.Background(), call)
	require.NoError(t, err)
	require.Equal(t, 1, sandbox.connects)

	// Resume replays the checkpoint: no new sandbox traffic, state recommitted.
	resumedState := newFakeFileState()
	resumed := workflow.NewRunner("run-1", store, vibeerrors.RetryConfig{MaxAttempts: 1}, logging.Nop())
	_, err = NewWriteFiles(resumed, env, resumedState).Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, 1, sandbox.connects)
	assert.Equal(t, "1", resumedState.Files()["a.txt"])
}

func TestReadFilesReturnsJSONContents(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	sandbox.files["a.txt"] = "alpha"
	sandbox.files["b.txt"] = "beta"
	steps, env := newToolEnv(sandbox)
	tool := NewReadFiles(steps, env)

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "call-1",
		Name:      "read-files",
		Arguments: map[string]any{"files": []any{"a.txt", "b.txt"}},
		StepID:    "tool:read-files:0:0",
	})
	require.NoError(t, err)
	require.Nil(t, result.Error)

	var decoded []struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Content), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "a.txt", decoded[0].Path)
	assert.Equal(t, "alpha", decoded[0].Content)
}

func TestReadFilesSingleFailureFailsWholeCall(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	sandbox.files["a.txt"] = "alpha"
	steps, env := newToolEnv(sandbox)
	tool := NewReadFiles(steps, env)

	result, err := tool.Execute(context.Background(), ports.ToolCall{
		ID:        "call-1",
		Name:      "read-files",
		Arguments: map[string]any{"files": []any{"a.txt", "missing.txt"}},
		StepID:    "tool:read-files:0:0",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Content, "Failed to read files")
	assert.NotContains(t, result.Content, "alpha")
}

func TestRegistryOrderAndLookup(t *testing.T) {
	t.Parallel()

	sandbox := newFakeSandbox()
	steps, env := newToolEnv(sandbox)
	registry := NewRegistry()

	require.NoError(t, registry.Register(NewRunCommand(steps, env)))
	require.NoError(t, registry.Register(NewWriteFiles(steps, env, newFakeFileState())))
	require.NoError(t, registry.Register(NewReadFiles(steps, env)))

	defs := registry.List()
	require.Len(t, defs, 3)
	assert.Equal(t, "run-command", defs[0].Name)
	assert.Equal(t, "write-files", defs[1].Name)
	assert.Equal(t, "read-files", defs[2].Name)

	_, err := registry.Get("write-files")
	require.NoError(t, err)
	_, err = registry.Get("rm-rf")
	require.Error(t, err)

	err = registry.Register(NewReadFiles(steps, env))
	require.Error(t, err, "duplicate registration rejected")
}
