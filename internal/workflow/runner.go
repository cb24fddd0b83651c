// Package workflow provides the durable step executor that makes agent runs
// safe to re-enter. A step's result is checkpointed once computed; replaying a
// run returns checkpointed values instead of re-executing side effects.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

// Runner executes named steps for one workflow run.
//
// Step names must be stable and unique within the run: they are the checkpoint
// keys, so they are derived from call position and parameters, never from
// wall-clock time or random ids.
type Runner struct {
	runID  string
	store  CheckpointStore
	retry  vibeerrors.RetryConfig
	logger logging.Logger
}

// NewRunner creates a step runner scoped to one workflow run.
func NewRunner(runID string, store CheckpointStore, retry vibeerrors.RetryConfig, logger logging.Logger) *Runner {
	return &Runner{
		runID:  runID,
		store:  store,
		retry:  retry,
		logger: logging.OrNop(logger),
	}
}

// RunID returns the identifier of the workflow run this runner serves.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes a named step at most once per workflow run.
//
// The first execution invokes fn (retrying transient failures per the runner's
// policy), JSON-encodes the result, and checkpoints it under the step name.
// Any later execution of the same name in the same run returns the
// checkpointed value without re-invoking fn. Failures that exhaust the retry
// policy propagate to the caller and abort the run.
func Run[T any](ctx context.Context, r *Runner, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if name == "" {
		return zero, fmt.Errorf("step name must not be empty")
	}

	payload, ok, err := r.store.Get(ctx, r.runID, name)
	if err != nil {
		return zero, fmt.Errorf("load checkpoint for step %q: %w", name, err)
	}
	if ok {
		var cached T
		if err := json.Unmarshal(payload, &cached); err != nil {
			return zero, fmt.Errorf("decode checkpoint for step %q: %w", name, err)
		}
		r.logger.Debug("Step %q replayed from checkpoint (run=%s)", name, r.runID)
		return cached, nil
	}

	result, err := vibeerrors.RetryWithResult(ctx, r.retry, fn, r.logger)
	if err != nil {
		return zero, fmt.Errorf("step %q failed: %w", name, err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("encode checkpoint for step %q: %w", name, err)
	}
	if err := r.store.Put(ctx, r.runID, name, encoded); err != nil {
		return zero, fmt.Errorf("save checkpoint for step %q: %w", name, err)
	}

	r.logger.Debug("Step %q completed and checkpointed (run=%s)", name, r.runID)
	return result, nil
}
