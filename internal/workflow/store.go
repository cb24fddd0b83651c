package workflow

import (
	"context"
	"sync"
)

// CheckpointStore persists step results keyed by (run id, step name).
//
// Implementations must be safe for concurrent use: multiple workflow runs
// share one store, each under its own run id.
type CheckpointStore interface {
	// Get returns the checkpointed payload for a step, with ok reporting
	// whether a checkpoint exists.
	Get(ctx context.Context, runID, step string) (payload []byte, ok bool, err error)

	// Put records a step result. Writing the same step twice is allowed and
	// keeps the first value, so a crash between execute and resume never
	// observes two different results for one step.
	Put(ctx context.Context, runID, step string, payload []byte) error
}

// MemoryStore is an in-process checkpoint store, used by tests and by
// deployments that accept losing resume-ability on process restart.
type MemoryStore struct {
	mu    sync.RWMutex
	steps map[string][]byte
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{steps: make(map[string][]byte)}
}

func memoryKey(runID, step string) string {
	return runID + "\x00" + step
}

func (s *MemoryStore) Get(_ context.Context, runID, step string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.steps[memoryKey(runID, step)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true, nil
}

func (s *MemoryStore) Put(_ context.Context, runID, step string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(runID, step)
	if _, exists := s.steps[key]; exists {
		return nil
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	s.steps[key] = stored
	return nil
}
