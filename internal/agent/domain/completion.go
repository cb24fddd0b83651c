package domain

import (
	"strings"

	"github.com/AAsriyan/vibe/internal/agent/ports"
)

// CompletionMarker is the substring the agent emits to signal it considers
// the task finished.
const CompletionMarker = "<task_summary>"

// CompletionPredicate decides whether an assistant message signals task
// completion. Substring matching is fragile by nature, so the check is kept
// pluggable: a stricter structured-output signal can replace it without
// touching the loop.
type CompletionPredicate func(text string) bool

// MarkerPredicate matches messages containing the given marker substring.
func MarkerPredicate(marker string) CompletionPredicate {
	return func(text string) bool {
		return strings.Contains(text, marker)
	}
}

// DefaultCompletionPredicate matches the standard completion marker.
func DefaultCompletionPredicate() CompletionPredicate {
	return MarkerPredicate(CompletionMarker)
}

// LastAssistantText returns the text content of the most recent assistant
// text item in a model turn, concatenating multi-part content into one
// string. A tool-calls-only turn yields the empty string.
func LastAssistantText(resp *ports.CompletionResponse) string {
	if resp == nil {
		return ""
	}
	for i := len(resp.Output) - 1; i >= 0; i-- {
		item := resp.Output[i]
		if item.Type != ports.OutputTypeText {
			continue
		}
		if len(item.Parts) > 0 {
			return strings.Join(item.Parts, "")
		}
		return item.Content
	}
	return ""
}
