package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
	"github.com/AAsriyan/vibe/internal/shared/logging"
	"github.com/AAsriyan/vibe/internal/tools/builtin"
	"github.com/AAsriyan/vibe/internal/workflow"
)

// FailureMessage is the fixed user-visible content of an ERROR outcome.
const FailureMessage = "Something went wrong. Please try again."

// Defaults for knobs the original system hard-codes.
const (
	DefaultContextLimit   = 5
	DefaultAppPort        = 3000
	DefaultSandboxTimeout = 30 * time.Minute
)

// WorkflowConfig carries the per-deployment knobs of the agent workflow.
type WorkflowConfig struct {
	SandboxImage   string
	SandboxTimeout time.Duration
	AppPort        int
	MaxIterations  int
	ContextLimit   int
}

func (c WorkflowConfig) withDefaults() WorkflowConfig {
	if c.SandboxTimeout <= 0 {
		c.SandboxTimeout = DefaultSandboxTimeout
	}
	if c.AppPort <= 0 {
		c.AppPort = DefaultAppPort
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ContextLimit <= 0 {
		c.ContextLimit = DefaultContextLimit
	}
	return c
}

// WorkflowDeps are the collaborators one workflow instance runs against.
type WorkflowDeps struct {
	LLM          ports.LLMClient
	FinalizerLLM ports.LLMClient // falls back to LLM when nil
	Sandbox      ports.SandboxClient
	Messages     ports.MessageStore
	Checkpoints  workflow.CheckpointStore
	Retry        vibeerrors.RetryConfig
	Predicate    CompletionPredicate
	Metrics      Recorder
	Logger       logging.Logger
}

// RunResult mirrors the persisted record's key fields for callers awaiting
// synchronous confirmation.
type RunResult struct {
	URL     string            `json:"url"`
	Title   string            `json:"title"`
	Files   map[string]string `json:"files"`
	Summary string            `json:"summary"`
}

// CodeAgentWorkflow orchestrates one durable agent run: provision sandbox,
// load context, run the loop, finalize, resolve the outcome.
type CodeAgentWorkflow struct {
	deps   WorkflowDeps
	config WorkflowConfig
	logger logging.Logger
}

// NewCodeAgentWorkflow validates collaborators and applies config defaults.
func NewCodeAgentWorkflow(deps WorkflowDeps, config WorkflowConfig) (*CodeAgentWorkflow, error) {
	switch {
	case deps.LLM == nil:
		return nil, errors.New("llm client is required")
	case deps.Sandbox == nil:
		return nil, errors.New("sandbox client is required")
	case deps.Messages == nil:
		return nil, errors.New("message store is required")
	case deps.Checkpoints == nil:
		return nil, errors.New("checkpoint store is required")
	}
	if deps.FinalizerLLM == nil {
		deps.FinalizerLLM = deps.LLM
	}
	deps.Metrics = orNopRecorder(deps.Metrics)
	deps.Logger = logging.OrNop(deps.Logger)
	return &CodeAgentWorkflow{
		deps:   deps,
		config: config.withDefaults(),
		logger: deps.Logger,
	}, nil
}

// Run executes the workflow for one task event. The runID keys every
// checkpoint, so re-invoking with the same runID resumes the run past
// already-committed steps.
func (w *CodeAgentWorkflow) Run(ctx context.Context, runID string, event ports.TaskEvent) (*RunResult, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	if strings.TrimSpace(event.TaskValue) == "" {
		return nil, errors.New("task value is required")
	}

	w.deps.Metrics.RunStarted()
	steps := workflow.NewRunner(runID, w.deps.Checkpoints, w.deps.Retry, w.logger)

	sandboxID, err := workflow.Run(ctx, steps, "get-sandbox-id", func(ctx context.Context) (string, error) {
		id, err := w.deps.Sandbox.Create(ctx, w.config.SandboxImage)
		if err != nil {
			return "", fmt.Errorf("create sandbox: %w", err)
		}
		handle, err := w.deps.Sandbox.Connect(ctx, id)
		if err != nil {
			return "", fmt.Errorf("connect sandbox %s: %w", id, err)
		}
		if err := handle.SetTimeout(ctx, w.config.SandboxTimeout); err != nil {
			return "", fmt.Errorf("set sandbox timeout: %w", err)
		}
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info("Run %s using sandbox %s", runID, sandboxID)

	history, err := workflow.Run(ctx, steps, "get-previous-messages", func(ctx context.Context) ([]ports.Message, error) {
		return w.loadContext(ctx, event.ConversationID)
	})
	if err != nil {
		return nil, err
	}

	state := NewAgentState()
	env := builtin.SandboxEnv{Client: w.deps.Sandbox, SandboxID: sandboxID, Timeout: w.config.SandboxTimeout}
	registry := builtin.NewRegistry()
	for _, tool := range []ports.ToolExecutor{
		builtin.NewRunCommand(steps, env),
		builtin.NewWriteFiles(steps, env, state),
		builtin.NewReadFiles(steps, env),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	loop := NewLoop(LoopConfig{
		LLM:           w.deps.LLM,
		Tools:         registry,
		Steps:         steps,
		State:         state,
		Predicate:     w.deps.Predicate,
		MaxIterations: w.config.MaxIterations,
		Metrics:       w.deps.Metrics,
		Logger:        w.logger,
	})
	turns, err := loop.Run(ctx, event.TaskValue, history)
	if err != nil {
		return nil, err
	}
	w.logger.Info("Run %s loop finished after %d turn(s)", runID, turns)

	title, response, err := NewFinalizer(w.deps.FinalizerLLM, w.logger).Finalize(ctx, state.Summary())
	if err != nil {
		return nil, err
	}

	// Resolved unconditionally so the step sequence is identical on both
	// outcome paths.
	sandboxURL, err := workflow.Run(ctx, steps, "get-sandbox-url", func(ctx context.Context) (string, error) {
		handle, err := w.deps.Sandbox.Connect(ctx, sandboxID)
		if err != nil {
			return "", fmt.Errorf("connect sandbox %s: %w", sandboxID, err)
		}
		host, err := handle.ExposedHost(ctx, w.config.AppPort)
		if err != nil {
			return "", fmt.Errorf("resolve exposed host: %w", err)
		}
		return "https://" + host, nil
	})
	if err != nil {
		return nil, err
	}

	summary := state.Summary()
	files := state.Files()
	failed := summary == "" || len(files) == 0

	_, err = workflow.Run(ctx, steps, "save-result", func(ctx context.Context) (*ports.StoredMessage, error) {
		if failed {
			return w.deps.Messages.CreateMessage(ctx, ports.CreateMessageParams{
				ConversationID: event.ConversationID,
				Content:        FailureMessage,
				Role:           ports.RoleAssistant,
				Type:           ports.TypeError,
			})
		}
		return w.deps.Messages.CreateMessage(ctx, ports.CreateMessageParams{
			ConversationID: event.ConversationID,
			Content:        response,
			Role:           ports.RoleAssistant,
			Type:           ports.TypeResult,
			Fragment: &ports.Fragment{
				SandboxURL: sandboxURL,
				Title:      title,
				Files:      files,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	outcome := ports.TypeResult
	if failed {
		outcome = ports.TypeError
	}
	w.deps.Metrics.RunFinished(string(outcome))
	w.logger.Info("Run %s resolved as %s", runID, outcome)

	return &RunResult{URL: sandboxURL, Title: title, Files: files, Summary: summary}, nil
}

// loadContext fetches the most recent turns newest first and reverses them to
// the chronological order models expect. Types and fragments are dropped;
// only role and content reach the model.
func (w *CodeAgentWorkflow) loadContext(ctx context.Context, conversationID string) ([]ports.Message, error) {
	if conversationID == "" {
		return nil, nil
	}
	stored, err := w.deps.Messages.ListRecentMessages(ctx, conversationID, w.config.ContextLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	out := make([]ports.Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		role := "user"
		if stored[i].Role == ports.RoleAssistant {
			role = "assistant"
		}
		out = append(out, ports.Message{Role: role, Content: stored[i].Content})
	}
	return out, nil
}
