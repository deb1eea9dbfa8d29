package behaviortree

import "context"

// ActionFunc is the user function wrapped by an Action leaf.
type ActionFunc[C any] func(ctx context.Context, data C) (Status, error)

// Predicate is the user function wrapped by a Condition leaf.
type Predicate[C any] func(ctx context.Context, data C) (bool, error)

// Action wraps a user function into a leaf node. Errors and panics from the
// wrapped function are converted to StatusFailure and never propagate out of
// the tree; cancellation is re-raised as an error instead.
type Action[C any] struct {
	node
	fn ActionFunc[C]
}

// NewAction creates an Action leaf.
func NewAction[C any](name string, fn ActionFunc[C]) *Action[C] {
	return &Action[C]{node: node{name: name}, fn: fn}
}

// NewBoolAction creates an Action leaf from a boolean-returning function,
// mapping true to StatusSuccess and false to StatusFailure.
func NewBoolAction[C any](name string, fn func(ctx context.Context, data C) (bool, error)) *Action[C] {
	return NewAction(name, func(ctx context.Context, data C) (Status, error) {
		ok, err := fn(ctx, data)
		if err != nil {
			return StatusFailure, err
		}
		if ok {
			return StatusSuccess, nil
		}
		return StatusFailure, nil
	})
}

// Execute runs the wrapped function.
func (a *Action[C]) Execute(ctx context.Context, data C) (status Status, err error) {
	if cerr := ctx.Err(); cerr != nil {
		return StatusFailure, cerr
	}
	defer func() {
		if r := recover(); r != nil {
			status, err = StatusFailure, nil
		}
	}()
	if a.fn == nil {
		return StatusFailure, nil
	}
	s, ferr := a.fn(ctx, data)
	if ferr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return StatusFailure, cerr
		}
		return StatusFailure, nil
	}
	return s, nil
}

// Reset is a no-op; actions hold no per-execution state.
func (a *Action[C]) Reset() {}

// Condition wraps a predicate into a leaf node, mapping true to
// StatusSuccess and false to StatusFailure. Predicate errors and panics map
// to StatusFailure. Conditions are read-only by convention.
type Condition[C any] struct {
	node
	predicate Predicate[C]
}

// NewCondition creates a Condition leaf.
func NewCondition[C any](name string, predicate Predicate[C]) *Condition[C] {
	return &Condition[C]{node: node{name: name}, predicate: predicate}
}

// Execute evaluates the predicate.
func (c *Condition[C]) Execute(ctx context.Context, data C) (status Status, err error) {
	if cerr := ctx.Err(); cerr != nil {
		return StatusFailure, cerr
	}
	defer func() {
		if r := recover(); r != nil {
			status, err = StatusFailure, nil
		}
	}()
	if c.predicate == nil {
		return StatusFailure, nil
	}
	ok, perr := c.predicate(ctx, data)
	if perr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return StatusFailure, cerr
		}
		return StatusFailure, nil
	}
	if ok {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// Reset is a no-op; conditions hold no per-execution state.
func (c *Condition[C]) Reset() {}
