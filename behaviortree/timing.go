package behaviortree

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BaSui01/agentcore/types"
)

// Timeout races its child's execution against a timer. If the timer fires
// first the child's run is canceled and the decorator returns StatusFailure.
// A caller-initiated cancellation is never swallowed as a timeout: only the
// internally-sourced deadline maps to StatusFailure, external cancellation
// propagates as an error.
type Timeout[C any] struct {
	node
	child   Node[C]
	timeout time.Duration
}

// NewTimeout creates a Timeout decorator. timeout must be positive.
func NewTimeout[C any](name string, child Node[C], timeout time.Duration) (*Timeout[C], error) {
	if child == nil {
		return nil, types.NewErrorf(types.ErrMissingChild, "timeout %q has no child", name)
	}
	if timeout <= 0 {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "timeout %q: non-positive duration %s", name, timeout)
	}
	return &Timeout[C]{node: node{name: name}, child: child, timeout: timeout}, nil
}

// Execute runs the child under a deadline.
func (t *Timeout[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}

	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type outcome struct {
		status Status
		err    error
	}
	// Buffered so a child that ignores cancellation can still finish.
	done := make(chan outcome, 1)
	go func() {
		status, err := t.child.Execute(cctx, data)
		done <- outcome{status: status, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return StatusFailure, cerr
			}
			if cctx.Err() == context.DeadlineExceeded {
				return StatusFailure, nil
			}
			return StatusFailure, out.err
		}
		return out.status, nil
	case <-cctx.Done():
		if cerr := ctx.Err(); cerr != nil {
			return StatusFailure, cerr
		}
		return StatusFailure, nil
	}
}

// Reset propagates to the child.
func (t *Timeout[C]) Reset() {
	t.child.Reset()
}

// Cooldown tracks the wall-clock time of the last real execution. Calls
// inside the cooldown window return StatusRunning without invoking the
// child or updating the timestamp. Once the window elapses the child runs
// and the timestamp moves to now regardless of the child's outcome.
type Cooldown[C any] struct {
	node
	child  Node[C]
	period time.Duration

	mu      sync.Mutex
	lastRun time.Time
}

// NewCooldown creates a Cooldown decorator. period must be positive.
func NewCooldown[C any](name string, child Node[C], period time.Duration) (*Cooldown[C], error) {
	if child == nil {
		return nil, types.NewErrorf(types.ErrMissingChild, "cooldown %q has no child", name)
	}
	if period <= 0 {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "cooldown %q: non-positive period %s", name, period)
	}
	return &Cooldown[C]{node: node{name: name}, child: child, period: period}, nil
}

// Execute runs the child only when the cooldown window has elapsed.
func (c *Cooldown[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}

	c.mu.Lock()
	if !c.lastRun.IsZero() && time.Since(c.lastRun) < c.period {
		c.mu.Unlock()
		return StatusRunning, nil
	}
	c.mu.Unlock()

	status, err := c.child.Execute(ctx, data)

	c.mu.Lock()
	c.lastRun = time.Now()
	c.mu.Unlock()

	return status, err
}

// Reset clears the last-execution timestamp and propagates to the child.
func (c *Cooldown[C]) Reset() {
	c.mu.Lock()
	c.lastRun = time.Time{}
	c.mu.Unlock()
	c.child.Reset()
}

// Retry executes its child up to maxAttempts times, waiting an
// exponentially-increasing delay between failed attempts
// (initialDelay * multiplier^(attempt-1), clamped to maxDelay when set) and
// resetting the child before each retry. The first StatusSuccess wins;
// StatusRunning propagates immediately without consuming an attempt.
type Retry[C any] struct {
	node
	child        Node[C]
	maxAttempts  int
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
}

// RetryOption configures a Retry decorator.
type RetryOption[C any] func(*Retry[C])

// WithMaxDelay caps the backoff delay between attempts.
func WithMaxDelay[C any](d time.Duration) RetryOption[C] {
	return func(r *Retry[C]) { r.maxDelay = d }
}

// NewRetry creates a Retry decorator. maxAttempts must be at least 1,
// initialDelay non-negative and multiplier positive.
func NewRetry[C any](name string, child Node[C], maxAttempts int, initialDelay time.Duration, multiplier float64, opts ...RetryOption[C]) (*Retry[C], error) {
	if child == nil {
		return nil, types.NewErrorf(types.ErrMissingChild, "retry %q has no child", name)
	}
	if maxAttempts < 1 {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "retry %q: maxAttempts %d < 1", name, maxAttempts)
	}
	if initialDelay < 0 {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "retry %q: negative initial delay %s", name, initialDelay)
	}
	if multiplier <= 0 {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "retry %q: non-positive backoff multiplier %g", name, multiplier)
	}
	r := &Retry[C]{
		node:         node{name: name},
		child:        child,
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		multiplier:   multiplier,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Execute runs the child with exponential backoff between failed attempts.
func (r *Retry[C]) Execute(ctx context.Context, data C) (Status, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return StatusFailure, err
		}
		status, err := r.child.Execute(ctx, data)
		if err != nil {
			return StatusFailure, err
		}
		switch status {
		case StatusSuccess:
			return StatusSuccess, nil
		case StatusRunning:
			return StatusRunning, nil
		}
		if attempt == r.maxAttempts {
			return StatusFailure, nil
		}
		if err := r.wait(ctx, r.backoff(attempt)); err != nil {
			return StatusFailure, err
		}
		r.child.Reset()
	}
}

// backoff returns the delay before the attempt following attempt i.
func (r *Retry[C]) backoff(attempt int) time.Duration {
	delay := float64(r.initialDelay)
	for i := 1; i < attempt; i++ {
		delay *= r.multiplier
	}
	d := time.Duration(delay)
	if r.maxDelay > 0 && d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

// wait sleeps for d, aborting on cancellation.
func (r *Retry[C]) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset propagates to the child.
func (r *Retry[C]) Reset() {
	r.child.Reset()
}

// RateLimit gates its child behind a token bucket. When no token is
// available the decorator returns StatusRunning without invoking the child,
// mirroring Cooldown's non-blocking contract.
type RateLimit[C any] struct {
	node
	child   Node[C]
	limiter *rate.Limiter
}

// NewRateLimit creates a RateLimit decorator allowing limit executions per
// second with the given burst.
func NewRateLimit[C any](name string, child Node[C], limit rate.Limit, burst int) (*RateLimit[C], error) {
	if child == nil {
		return nil, types.NewErrorf(types.ErrMissingChild, "rate-limit %q has no child", name)
	}
	if limit <= 0 || burst < 1 {
		return nil, types.NewErrorf(types.ErrInvalidNodeConfig, "rate-limit %q: invalid limit %v burst %d", name, limit, burst)
	}
	return &RateLimit[C]{node: node{name: name}, child: child, limiter: rate.NewLimiter(limit, burst)}, nil
}

// Execute runs the child when a token is available.
func (l *RateLimit[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	if !l.limiter.Allow() {
		return StatusRunning, nil
	}
	return l.child.Execute(ctx, data)
}

// Reset propagates to the child. The limiter's bucket is deliberately left
// intact: rate limits outlive tree reuse.
func (l *RateLimit[C]) Reset() {
	l.child.Reset()
}
