package behaviortree

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blackboard is the shared context type used across the package tests.
type blackboard struct {
	mu     sync.Mutex
	Ready  bool
	Result string
	Count  int
}

func (b *blackboard) incr() {
	b.mu.Lock()
	b.Count++
	b.mu.Unlock()
}

// stubNode returns a scripted sequence of statuses, sticking on the last
// entry once exhausted.
type stubNode struct {
	name   string
	script []Status
	err    error
	calls  int32
	resets int32
}

func (s *stubNode) Name() string { return s.name }

func (s *stubNode) Execute(ctx context.Context, _ *blackboard) (Status, error) {
	n := int(atomic.AddInt32(&s.calls, 1))
	if s.err != nil {
		return StatusFailure, s.err
	}
	idx := n - 1
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	return s.script[idx], nil
}

func (s *stubNode) Reset() { atomic.AddInt32(&s.resets, 1) }

func (s *stubNode) callCount() int { return int(atomic.LoadInt32(&s.calls)) }

func succeeding(name string) *stubNode { return &stubNode{name: name, script: []Status{StatusSuccess}} }
func failing(name string) *stubNode    { return &stubNode{name: name, script: []Status{StatusFailure}} }
func running(name string) *stubNode    { return &stubNode{name: name, script: []Status{StatusRunning}} }

func TestSequence(t *testing.T) {
	ctx := context.Background()

	t.Run("empty sequence succeeds", func(t *testing.T) {
		status, err := NewSequence[*blackboard]("empty").Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, status)
	})

	t.Run("all children succeed", func(t *testing.T) {
		a, b := succeeding("a"), succeeding("b")
		status, err := NewSequence[*blackboard]("seq", a, b).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, status)
		assert.Equal(t, 1, a.callCount())
		assert.Equal(t, 1, b.callCount())
	})

	t.Run("failure short-circuits later children", func(t *testing.T) {
		a, b, c := succeeding("a"), failing("b"), succeeding("c")
		status, err := NewSequence[*blackboard]("seq", a, b, c).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusFailure, status)
		assert.Equal(t, 0, c.callCount(), "child after failure must not run")
	})

	t.Run("running propagates without advancing", func(t *testing.T) {
		a, b := running("a"), succeeding("b")
		status, err := NewSequence[*blackboard]("seq", a, b).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, status)
		assert.Equal(t, 0, b.callCount())
	})

	t.Run("canceled context returns error", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		a := succeeding("a")
		status, err := NewSequence[*blackboard]("seq", a).Execute(cctx, &blackboard{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StatusFailure, status)
		assert.Equal(t, 0, a.callCount())
	})
}

func TestSelector(t *testing.T) {
	ctx := context.Background()

	t.Run("empty selector fails", func(t *testing.T) {
		status, err := NewSelector[*blackboard]("empty").Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusFailure, status)
	})

	t.Run("first success short-circuits", func(t *testing.T) {
		a, b, c := failing("a"), succeeding("b"), succeeding("c")
		status, err := NewSelector[*blackboard]("sel", a, b, c).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, status)
		assert.Equal(t, 1, b.callCount())
		assert.Equal(t, 0, c.callCount())
	})

	t.Run("all failures fail", func(t *testing.T) {
		status, err := NewSelector[*blackboard]("sel", failing("a"), failing("b")).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusFailure, status)
	})

	t.Run("running propagates", func(t *testing.T) {
		b := succeeding("b")
		status, err := NewSelector[*blackboard]("sel", failing("a"), running("r"), b).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, status)
		assert.Equal(t, 0, b.callCount())
	})
}

func TestParallel(t *testing.T) {
	ctx := context.Background()

	t.Run("empty parallel succeeds", func(t *testing.T) {
		status, err := NewParallel[*blackboard]("par", RequireAll, nil).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, status)
	})

	t.Run("no short-circuit: every child runs despite a failure", func(t *testing.T) {
		a, b, c := succeeding("a"), failing("b"), succeeding("c")
		status, err := NewParallel("par", RequireAll, []Node[*blackboard]{a, b, c}).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusFailure, status)
		assert.Equal(t, 1, a.callCount())
		assert.Equal(t, 1, b.callCount())
		assert.Equal(t, 1, c.callCount())
	})

	t.Run("require-one succeeds with a single success", func(t *testing.T) {
		status, err := NewParallel("par", RequireOne, []Node[*blackboard]{failing("a"), succeeding("b")}).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, status)
	})

	t.Run("require-one fails when all fail", func(t *testing.T) {
		status, err := NewParallel("par", RequireOne, []Node[*blackboard]{failing("a"), failing("b")}).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusFailure, status)
	})

	t.Run("running takes precedence over both policies", func(t *testing.T) {
		for _, policy := range []ParallelPolicy{RequireAll, RequireOne} {
			status, err := NewParallel("par", policy, []Node[*blackboard]{succeeding("a"), running("r"), failing("b")}).Execute(ctx, &blackboard{})
			require.NoError(t, err)
			assert.Equal(t, StatusRunning, status)
		}
	})

	t.Run("bounded concurrency still runs every child", func(t *testing.T) {
		children := make([]Node[*blackboard], 8)
		stubs := make([]*stubNode, 8)
		for i := range children {
			stubs[i] = succeeding("child")
			children[i] = stubs[i]
		}
		status, err := NewParallel("par", RequireAll, children, WithMaxConcurrency[*blackboard](2)).Execute(ctx, &blackboard{})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, status)
		for _, s := range stubs {
			assert.Equal(t, 1, s.callCount())
		}
	})

	t.Run("child error propagates as failure", func(t *testing.T) {
		errNode := &stubNode{name: "err", err: context.DeadlineExceeded}
		status, err := NewParallel("par", RequireAll, []Node[*blackboard]{succeeding("a"), errNode}).Execute(ctx, &blackboard{})
		assert.Error(t, err)
		assert.Equal(t, StatusFailure, status)
	})

	t.Run("reset propagates to all children", func(t *testing.T) {
		a, b := succeeding("a"), succeeding("b")
		NewParallel("par", RequireAll, []Node[*blackboard]{a, b}).Reset()
		assert.Equal(t, int32(1), a.resets)
		assert.Equal(t, int32(1), b.resets)
	})
}
