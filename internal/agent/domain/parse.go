package domain

import (
	"strings"

	"github.com/AAsriyan/vibe/internal/agent/ports"
)

// PlaceholderTitle stands in when a finalizer turn yields no usable text.
const PlaceholderTitle = "Fragment"

// ParseAgentOutput normalizes a finalizer turn into plain text. The first
// output item must be text: anything else falls back to the placeholder
// rather than failing the run. Multi-part text joins with single spaces.
func ParseAgentOutput(resp *ports.CompletionResponse) string {
	if resp == nil || len(resp.Output) == 0 {
		return PlaceholderTitle
	}
	first := resp.Output[0]
	if first.Type != ports.OutputTypeText {
		return PlaceholderTitle
	}
	text := first.Content
	if len(first.Parts) > 0 {
		text = strings.Join(first.Parts, " ")
	}
	if strings.TrimSpace(text) == "" {
		return PlaceholderTitle
	}
	return text
}
