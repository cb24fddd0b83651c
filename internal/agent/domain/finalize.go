package domain

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/AAsriyan/vibe/internal/agent/ports"
	"github.com/AAsriyan/vibe/internal/shared/logging"
)

// Finalizer runs the two post-loop model turns: a short title and the
// user-facing response, both derived from the captured summary.
type Finalizer struct {
	llm    ports.LLMClient
	logger logging.Logger
}

// NewFinalizer wraps an LLM client for post-loop generation. Finalizer turns
// carry no tools, so a caching client is a good fit here.
func NewFinalizer(llm ports.LLMClient, logger logging.Logger) *Finalizer {
	return &Finalizer{llm: llm, logger: logging.OrNop(logger)}
}

// Finalize produces the title and response concurrently. Unusable model
// output degrades to the placeholder via ParseAgentOutput; only transport
// failures propagate.
func (f *Finalizer) Finalize(ctx context.Context, summary string) (title, response string, err error) {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var genErr error
		title, genErr = f.generate(ctx, TitlePrompt, summary)
		return genErr
	})
	group.Go(func() error {
		var genErr error
		response, genErr = f.generate(ctx, ResponsePrompt, summary)
		return genErr
	})
	if err := group.Wait(); err != nil {
		return "", "", err
	}
	return title, response, nil
}

func (f *Finalizer) generate(ctx context.Context, prompt, summary string) (string, error) {
	resp, err := f.llm.Complete(ctx, ports.CompletionRequest{
		SystemPrompt: prompt,
		Messages:     []ports.Message{{Role: "user", Content: summary}},
	})
	if err != nil {
		return "", err
	}
	return ParseAgentOutput(resp), nil
}
