// Package domain implements the agent control core: shared run state, the
// bounded tool-calling loop, completion detection, post-loop finalizers, and
// the outcome resolver that turns terminal loop state into one persisted
// result per run.
package domain

import "sync"

// AgentState is the mutable record shared by every tool call within one
// workflow run. One instance per run; mutated only by tool handlers and the
// completion hook.
type AgentState struct {
	mu      sync.Mutex
	summary string
	files   map[string]string
}

// NewAgentState returns empty per-run state.
func NewAgentState() *AgentState {
	return &AgentState{files: make(map[string]string)}
}

// SetSummary records the completion summary. The first non-empty write wins;
// later writes are ignored and return false.
func (s *AgentState) SetSummary(summary string) bool {
	if summary == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary != "" {
		return false
	}
	s.summary = summary
	return true
}

// Summary returns the captured completion summary, empty until set.
func (s *AgentState) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Files returns a copy of the accumulated file map.
func (s *AgentState) Files() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.files))
	for path, content := range s.files {
		out[path] = content
	}
	return out
}

// CommitFiles replaces the file map with an updated copy. Callers pass the
// map they derived from Files(), so edits apply last-writer-wins in call
// order.
func (s *AgentState) CommitFiles(files map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
}
