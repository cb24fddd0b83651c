package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
	"github.com/AAsriyan/vibe/internal/workflow"
)

// DefaultMaxIterations bounds the tool-calling loop when no cap is configured.
const DefaultMaxIterations = 15

// LoopConfig wires one agent loop instance.
type LoopConfig struct {
	LLM           ports.LLMClient
	Tools         ports.ToolRegistry
	Steps         *workflow.Runner
	State         *AgentState
	Predicate     CompletionPredicate
	MaxIterations int
	Metrics       Recorder
	Logger        logging.Logger
}

// Loop is the agent control core: it repeatedly invokes the model with the
// system prompt, tool schemas, and the growing transcript, dispatches tool
// calls in emission order, and checks each turn for the completion marker.
//
// States are RUNNING and DONE. The router stops without a model call when the
// summary is already set; otherwise the loop runs until completion is detected
// or the iteration cap is reached, in which case the summary may stay empty
// and the run is classified as failed downstream.
type Loop struct {
	llm           ports.LLMClient
	tools         ports.ToolRegistry
	steps         *workflow.Runner
	state         *AgentState
	predicate     CompletionPredicate
	maxIterations int
	metrics       Recorder
	logger        logging.Logger
}

// NewLoop builds the loop for one workflow run.
func NewLoop(cfg LoopConfig) *Loop {
	predicate := cfg.Predicate
	if predicate == nil {
		predicate = DefaultCompletionPredicate()
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{
		llm:           cfg.LLM,
		tools:         cfg.Tools,
		steps:         cfg.Steps,
		state:         cfg.State,
		predicate:     predicate,
		maxIterations: maxIterations,
		metrics:       orNopRecorder(cfg.Metrics),
		logger:        logging.OrNop(cfg.Logger),
	}
}

// Run drives the loop for a task. History carries prior conversation turns
// oldest first; it is loaded once before the loop and never refreshed mid-run.
// Returns the number of model turns taken.
func (l *Loop) Run(ctx context.Context, task string, history []ports.Message) (int, error) {
	messages := make([]ports.Message, 0, len(history)+2)
	messages = append(messages, history...)
	messages = append(messages, ports.Message{Role: "user", Content: task})

	turns := 0
	for iteration := 0; iteration < l.maxIterations; iteration++ {
		if l.state.Summary() != "" {
			break
		}

		// Model turns are durable steps so a resumed run replays the exact
		// transcript, tool-call ids included, without re-calling the model.
		request := ports.CompletionRequest{
			SystemPrompt: SystemPrompt,
			Messages:     messages,
			Tools:        l.tools.List(),
		}
		resp, err := workflow.Run(ctx, l.steps, fmt.Sprintf("inference:%d", iteration), func(ctx context.Context) (*ports.CompletionResponse, error) {
			return l.llm.Complete(ctx, request)
		})
		if err != nil {
			return turns, err
		}
		turns++
		l.metrics.ModelTurn()

		calls := resp.ToolCalls()
		results, err := l.dispatch(ctx, iteration, calls)
		if err != nil {
			return turns, err
		}

		// The assistant turn carries its tool calls and their results; the
		// provider client expands results into per-call tool messages.
		text := LastAssistantText(resp)
		messages = append(messages, ports.Message{
			Role:        "assistant",
			Content:     text,
			ToolCalls:   calls,
			ToolResults: results,
		})

		// Completion hook: runs after every turn, however many tool calls
		// preceded the final text. First detection wins.
		if text != "" && l.predicate(text) {
			l.state.SetSummary(text)
			l.logger.Info("Completion detected after %d turn(s)", turns)
		}
	}

	return turns, nil
}

// dispatch executes a turn's tool calls in the order the model emitted them.
// Each call gets a durable step name derived from its position, so replays
// hit the same checkpoint slots. Tool-level failures come back as results;
// only infrastructure failures propagate.
func (l *Loop) dispatch(ctx context.Context, iteration int, calls []ports.ToolCall) ([]ports.ToolResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	results := make([]ports.ToolResult, 0, len(calls))
	for idx, call := range calls {
		call.StepID = fmt.Sprintf("tool:%s:%d:%d", call.Name, iteration, idx)
		l.metrics.ToolInvocation(call.Name)

		executor, err := l.tools.Get(call.Name)
		if err != nil {
			toolErr := errors.New("unknown tool: " + call.Name)
			l.logger.Warn("Model requested unknown tool %q", call.Name)
			results = append(results, ports.ToolResult{CallID: call.ID, Content: toolErr.Error(), Error: toolErr})
			continue
		}

		result, err := executor.Execute(ctx, call)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", call.Name, err)
		}
		results = append(results, *result)
	}
	return results, nil
}
