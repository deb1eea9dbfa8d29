package behaviortree

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Sequence executes children in registration order, short-circuiting on the
// first child that returns StatusFailure. A StatusRunning child is returned
// immediately without advancing. An empty sequence returns StatusSuccess.
type Sequence[C any] struct {
	node
	children []Node[C]
}

// NewSequence creates a Sequence composite.
func NewSequence[C any](name string, children ...Node[C]) *Sequence[C] {
	return &Sequence[C]{node: node{name: name}, children: children}
}

// Execute runs children one at a time in list order.
func (s *Sequence[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	for _, child := range s.children {
		status, err := child.Execute(ctx, data)
		if err != nil {
			return StatusFailure, err
		}
		switch status {
		case StatusFailure:
			return StatusFailure, nil
		case StatusRunning:
			return StatusRunning, nil
		}
	}
	return StatusSuccess, nil
}

// Reset propagates to every child.
func (s *Sequence[C]) Reset() {
	for _, child := range s.children {
		child.Reset()
	}
}

// Selector executes children in order and returns StatusSuccess on the first
// child that succeeds. StatusFailure is returned only when all children
// fail. An empty selector returns StatusFailure.
type Selector[C any] struct {
	node
	children []Node[C]
}

// NewSelector creates a Selector (fallback) composite.
func NewSelector[C any](name string, children ...Node[C]) *Selector[C] {
	return &Selector[C]{node: node{name: name}, children: children}
}

// Execute runs children one at a time in list order.
func (s *Selector[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	for _, child := range s.children {
		status, err := child.Execute(ctx, data)
		if err != nil {
			return StatusFailure, err
		}
		switch status {
		case StatusSuccess:
			return StatusSuccess, nil
		case StatusRunning:
			return StatusRunning, nil
		}
	}
	return StatusFailure, nil
}

// Reset propagates to every child.
func (s *Selector[C]) Reset() {
	for _, child := range s.children {
		child.Reset()
	}
}

// ParallelPolicy selects how a Parallel composite aggregates child statuses.
type ParallelPolicy int

const (
	// RequireAll succeeds iff zero children failed.
	RequireAll ParallelPolicy = iota
	// RequireOne succeeds iff at least one child succeeded.
	RequireOne
)

// Parallel executes all children concurrently and aggregates their final
// statuses. There is no short-circuit: every child always runs to
// completion, and peers are not canceled when one fails. Any StatusRunning
// child makes the overall result StatusRunning regardless of policy. An
// empty child list returns StatusSuccess.
//
// The shared context data is not locked by the engine; callers are
// responsible for any synchronization its mutations require.
type Parallel[C any] struct {
	node
	policy   ParallelPolicy
	limit    int
	children []Node[C]
}

// ParallelOption configures a Parallel composite.
type ParallelOption[C any] func(*Parallel[C])

// WithMaxConcurrency bounds the number of children executing at once.
// Zero or negative means unbounded.
func WithMaxConcurrency[C any](n int) ParallelOption[C] {
	return func(p *Parallel[C]) { p.limit = n }
}

// NewParallel creates a Parallel composite.
func NewParallel[C any](name string, policy ParallelPolicy, children []Node[C], opts ...ParallelOption[C]) *Parallel[C] {
	p := &Parallel[C]{node: node{name: name}, policy: policy, children: children}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute fans out all children and joins on completion of every one.
func (p *Parallel[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	if len(p.children) == 0 {
		return StatusSuccess, nil
	}

	statuses := make([]Status, len(p.children))
	errs := make([]error, len(p.children))

	// errgroup is used as a bounded WaitGroup: goroutines never return an
	// error so a failing child cannot cancel its peers.
	var g errgroup.Group
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i, child := range p.children {
		g.Go(func() error {
			statuses[i], errs[i] = child.Execute(ctx, data)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return StatusFailure, err
		}
	}

	var succeeded, failed int
	running := false
	for _, status := range statuses {
		switch status {
		case StatusSuccess:
			succeeded++
		case StatusFailure:
			failed++
		case StatusRunning:
			running = true
		}
	}
	// Running takes precedence over both aggregation policies.
	if running {
		return StatusRunning, nil
	}
	switch p.policy {
	case RequireOne:
		if succeeded > 0 {
			return StatusSuccess, nil
		}
		return StatusFailure, nil
	default: // RequireAll
		if failed == 0 {
			return StatusSuccess, nil
		}
		return StatusFailure, nil
	}
}

// Reset propagates to every child.
func (p *Parallel[C]) Reset() {
	for _, child := range p.children {
		child.Reset()
	}
}
