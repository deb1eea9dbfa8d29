package behaviortree

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// LLMFunc is the opaque language-model collaborator: prompt text in,
// response text out. Failures are treated as ordinary action-node errors.
type LLMFunc func(ctx context.Context, prompt string) (string, error)

// WorkflowFunc is the opaque workflow collaborator: it receives the shared
// context data and returns a transformed copy.
type WorkflowFunc[C any] func(ctx context.Context, data C) (C, error)

// promptEncoder lazily loads the BPE encoding used for prompt token
// accounting. Loading can touch the network; on failure token counting is
// disabled for the process lifetime.
var promptEncoder = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding("cl100k_base")
})

// NewLLMAction wraps an LLM call into an Action leaf. prompt renders the
// request from the context data; apply folds the response back in. A
// collaborator error maps to StatusFailure like any other leaf error.
func NewLLMAction[C any](name string, call LLMFunc, prompt func(data C) string, apply func(data C, response string), logger *zap.Logger) *Action[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("node", name))
	return NewAction(name, func(ctx context.Context, data C) (Status, error) {
		text := prompt(data)
		if enc, err := promptEncoder(); err == nil {
			logger.Debug("llm prompt prepared", zap.Int("prompt_tokens", len(enc.Encode(text, nil, nil))))
		}
		response, err := call(ctx, text)
		if err != nil {
			logger.Warn("llm call failed", zap.Error(err))
			return StatusFailure, err
		}
		if apply != nil {
			apply(data, response)
		}
		return StatusSuccess, nil
	})
}

// NewWorkflowAction wraps a workflow execution into an Action leaf. merge
// folds the workflow's output context back into the shared data; a nil
// merge discards it.
func NewWorkflowAction[C any](name string, run WorkflowFunc[C], merge func(data C, result C), logger *zap.Logger) *Action[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("node", name))
	return NewAction(name, func(ctx context.Context, data C) (Status, error) {
		result, err := run(ctx, data)
		if err != nil {
			logger.Warn("workflow call failed", zap.Error(err))
			return StatusFailure, err
		}
		if merge != nil {
			merge(data, result)
		}
		return StatusSuccess, nil
	})
}
