// Package app consumes inbound task events and drives one workflow run per
// event across a bounded worker pool.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AAsriyan/vibe/internal/agent/domain"
	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

// WorkflowRunner executes one agent run for an event.
type WorkflowRunner interface {
	Run(ctx context.Context, runID string, event ports.TaskEvent) (*domain.RunResult, error)
}

// ErrQueueFull is returned when the event queue cannot accept more work.
var ErrQueueFull = errors.New("task queue is full")

// Dispatcher queues task events and fans them out to workers. Each event gets
// a fresh run id; runs for different tasks proceed concurrently and share no
// state.
type Dispatcher struct {
	workflow WorkflowRunner
	events   chan ports.TaskEvent
	workers  int
	logger   logging.Logger
}

// NewDispatcher builds a dispatcher with the given worker count and queue
// capacity.
func NewDispatcher(workflow WorkflowRunner, workers, queueSize int, logger logging.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		workflow: workflow,
		events:   make(chan ports.TaskEvent, queueSize),
		workers:  workers,
		logger:   logging.OrNop(logger),
	}
}

// Enqueue accepts an event for processing without blocking the caller.
func (d *Dispatcher) Enqueue(event ports.TaskEvent) error {
	if event.TaskValue == "" {
		return errors.New("task value is required")
	}
	select {
	case d.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes events until the context is canceled. A failed run is logged
// and the worker moves on; workflow-level task failures are already persisted
// as ERROR outcomes before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		worker := i
		group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case event := <-d.events:
					d.process(ctx, worker, event)
				}
			}
		})
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Dispatcher) process(ctx context.Context, worker int, event ports.TaskEvent) {
	runID := uuid.NewString()
	d.logger.Info("Worker %d starting run %s (conversation=%s)", worker, runID, event.ConversationID)
	result, err := d.workflow.Run(ctx, runID, event)
	if err != nil {
		d.logger.Error("Run %s aborted: %v", runID, err)
		return
	}
	d.logger.Info("Run %s finished: title=%q files=%d", runID, result.Title, len(result.Files))
}

// String describes the pool for startup logging.
func (d *Dispatcher) String() string {
	return fmt.Sprintf("dispatcher(workers=%d, queue=%d)", d.workers, cap(d.events))
}
