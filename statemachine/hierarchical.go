package statemachine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/types"
)

// Hierarchical nests sub-machines under the states of a base machine. The
// composite current state reads as "Parent" or "Parent.Substate", and
// dotted transition targets route into the matching sub-machine.
type Hierarchical[C any] struct {
	base   *Machine[C]
	subs   map[string]*Machine[C]
	logger *zap.Logger
}

// NewHierarchical wraps a base machine. Sub-machines are attached with
// AddSubMachine before use.
func NewHierarchical[C any](base *Machine[C], logger *zap.Logger) *Hierarchical[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hierarchical[C]{
		base: base,
		subs: make(map[string]*Machine[C]),
		logger: logger.With(
			zap.String("component", "hierarchical_state_machine"),
			zap.String("machine", base.Name()),
		),
	}
}

// Base returns the wrapped base machine.
func (h *Hierarchical[C]) Base() *Machine[C] { return h.base }

// AddSubMachine nests sub under a registered base state. One sub-machine
// per parent state.
func (h *Hierarchical[C]) AddSubMachine(parentState string, sub *Machine[C]) error {
	if !h.base.HasState(parentState) {
		return types.NewErrorf(types.ErrStateNotFound, "parent state %q is not registered on base machine", parentState)
	}
	key := stateKey(parentState)
	if _, exists := h.subs[key]; exists {
		return types.NewErrorf(types.ErrStateExists, "parent state %q already has a sub-machine", parentState)
	}
	h.subs[key] = sub
	return nil
}

// CurrentState reports "Parent" or "Parent.Substate" when the active base
// state carries a sub-machine with a non-empty current state.
func (h *Hierarchical[C]) CurrentState() string {
	parent := h.base.CurrentState()
	if parent == "" {
		return ""
	}
	sub, ok := h.subs[stateKey(parent)]
	if !ok {
		return parent
	}
	child := sub.CurrentState()
	if child == "" {
		return parent
	}
	return parent + "." + child
}

// Transition routes target to the base machine (single segment) or into
// the active parent's sub-machine ("Parent.Substate"). Dotted targets
// whose parent segment is not the current base state are rejected.
func (h *Hierarchical[C]) Transition(ctx context.Context, target string, data C) error {
	segments := strings.Split(target, ".")
	switch len(segments) {
	case 1:
		return h.base.Transition(ctx, target, data)
	case 2:
		parent, child := segments[0], segments[1]
		if !strings.EqualFold(parent, h.base.CurrentState()) {
			return types.NewErrorf(types.ErrInvalidAddress,
				"dotted target %q does not match current base state %q", target, h.base.CurrentState())
		}
		sub, ok := h.subs[stateKey(parent)]
		if !ok {
			return types.NewErrorf(types.ErrInvalidAddress, "state %q has no sub-machine", parent)
		}
		return sub.Transition(ctx, child, data)
	default:
		return types.NewErrorf(types.ErrInvalidAddress, "target %q has %d segments, want 1 or 2", target, len(segments))
	}
}

// Stop cancels pending timers on the base machine and every sub-machine.
func (h *Hierarchical[C]) Stop() {
	h.base.Stop()
	for _, sub := range h.subs {
		sub.Stop()
	}
}
