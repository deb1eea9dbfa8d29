package behaviortree

import (
	"context"

	"github.com/BaSui01/agentcore/types"
)

// Inverter swaps StatusSuccess and StatusFailure; StatusRunning passes
// through unchanged. A missing child yields StatusFailure.
type Inverter[C any] struct {
	node
	child Node[C]
}

// NewInverter creates an Inverter decorator.
func NewInverter[C any](name string, child Node[C]) *Inverter[C] {
	return &Inverter[C]{node: node{name: name}, child: child}
}

// Execute runs the child and inverts its result.
func (i *Inverter[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	if i.child == nil {
		return StatusFailure, nil
	}
	status, err := i.child.Execute(ctx, data)
	if err != nil {
		return StatusFailure, err
	}
	switch status {
	case StatusSuccess:
		return StatusFailure, nil
	case StatusFailure:
		return StatusSuccess, nil
	default:
		return StatusRunning, nil
	}
}

// Reset propagates to the child.
func (i *Inverter[C]) Reset() {
	if i.child != nil {
		i.child.Reset()
	}
}

// RepeatInfinite makes a Repeater re-execute its child forever.
const RepeatInfinite = -1

// Repeater re-executes its child a fixed number of times, resetting the
// child between completed iterations. Iterations count regardless of the
// child's success or failure; the repeater returns StatusSuccess once the
// count is exhausted. A StatusRunning child propagates without advancing
// the count.
type Repeater[C any] struct {
	node
	child Node[C]
	count int
	done  int
}

// NewRepeater creates a Repeater decorator. count must be positive or
// RepeatInfinite.
func NewRepeater[C any](name string, child Node[C], count int) (*Repeater[C], error) {
	if count == 0 || count < RepeatInfinite {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "repeater %q: invalid repeat count %d", name, count)
	}
	if child == nil {
		return nil, types.NewErrorf(types.ErrMissingChild, "repeater %q has no child", name)
	}
	return &Repeater[C]{node: node{name: name}, child: child, count: count}, nil
}

// Execute iterates the child until the count is exhausted.
func (r *Repeater[C]) Execute(ctx context.Context, data C) (Status, error) {
	for r.count == RepeatInfinite || r.done < r.count {
		if err := ctx.Err(); err != nil {
			return StatusFailure, err
		}
		status, err := r.child.Execute(ctx, data)
		if err != nil {
			return StatusFailure, err
		}
		if status == StatusRunning {
			return StatusRunning, nil
		}
		r.done++
		r.child.Reset()
	}
	return StatusSuccess, nil
}

// Reset clears the iteration count and propagates to the child.
func (r *Repeater[C]) Reset() {
	r.done = 0
	r.child.Reset()
}

// UntilFail re-executes its child, resetting between attempts, until the
// child returns StatusFailure, at which point it returns StatusSuccess.
// StatusRunning propagates. The loop is unbounded by design: the caller
// must ensure the child eventually fails or cancel the context.
type UntilFail[C any] struct {
	node
	child Node[C]
}

// NewUntilFail creates an UntilFail decorator.
func NewUntilFail[C any](name string, child Node[C]) (*UntilFail[C], error) {
	if child == nil {
		return nil, types.NewErrorf(types.ErrMissingChild, "until-fail %q has no child", name)
	}
	return &UntilFail[C]{node: node{name: name}, child: child}, nil
}

// Execute loops until the child fails.
func (u *UntilFail[C]) Execute(ctx context.Context, data C) (Status, error) {
	for {
		if err := ctx.Err(); err != nil {
			return StatusFailure, err
		}
		status, err := u.child.Execute(ctx, data)
		if err != nil {
			return StatusFailure, err
		}
		switch status {
		case StatusFailure:
			return StatusSuccess, nil
		case StatusRunning:
			return StatusRunning, nil
		}
		u.child.Reset()
	}
}

// Reset propagates to the child.
func (u *UntilFail[C]) Reset() {
	u.child.Reset()
}

// ConditionalGate evaluates a predicate before its child. A false predicate
// skips the child and returns StatusSuccess (skip, not failure); a true
// predicate executes the child and returns its status. Predicate errors and
// panics map to StatusFailure.
type ConditionalGate[C any] struct {
	node
	predicate Predicate[C]
	child     Node[C]
}

// NewConditionalGate creates a ConditionalGate decorator.
func NewConditionalGate[C any](name string, predicate Predicate[C], child Node[C]) (*ConditionalGate[C], error) {
	if child == nil {
		return nil, types.NewErrorf(types.ErrMissingChild, "gate %q has no child", name)
	}
	if predicate == nil {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "gate %q has no predicate", name)
	}
	return &ConditionalGate[C]{node: node{name: name}, predicate: predicate, child: child}, nil
}

// Execute evaluates the predicate, then conditionally runs the child.
func (g *ConditionalGate[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	allowed, failed := g.evaluate(ctx, data)
	if failed {
		return StatusFailure, nil
	}
	if !allowed {
		return StatusSuccess, nil
	}
	return g.child.Execute(ctx, data)
}

// evaluate runs the predicate with panic protection.
func (g *ConditionalGate[C]) evaluate(ctx context.Context, data C) (allowed, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			allowed, failed = false, true
		}
	}()
	ok, err := g.predicate(ctx, data)
	if err != nil {
		return false, true
	}
	return ok, false
}

// Reset propagates to the child.
func (g *ConditionalGate[C]) Reset() {
	g.child.Reset()
}
