package builtin

import (
	"fmt"
	"strings"

	"github.com/AAsriyan/vibe/internal/agent/ports"
)

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	value, _ := args[key].(string)
	return value
}

func stringSliceArg(args map[string]any, key string) ([]string, error) {
	if args == nil {
		return nil, nil
	}
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of strings", key)
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		value, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q[%d] must be a string", key, i)
		}
		out = append(out, value)
	}
	return out, nil
}

// FileEdit is one create-or-update request for a sandbox file.
type FileEdit struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func fileEditsArg(args map[string]any, key string) ([]FileEdit, error) {
	if args == nil {
		return nil, nil
	}
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of {path, content} objects", key)
	}
	edits := make([]FileEdit, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("argument %q[%d] must be an object", key, i)
		}
		edit := FileEdit{
			Path:    strings.TrimSpace(stringArg(entry, "path")),
			Content: stringArg(entry, "content"),
		}
		if edit.Path == "" {
			return nil, fmt.Errorf("argument %q[%d] is missing path", key, i)
		}
		edits = append(edits, edit)
	}
	return edits, nil
}

// stepID returns the durable step name for a call, falling back to the call id
// (itself replay-stable, since model turns are checkpointed) when the loop did
// not assign one.
func stepID(call ports.ToolCall, tool string) string {
	if call.StepID != "" {
		return call.StepID
	}
	return "tool:" + tool + ":" + call.ID
}
