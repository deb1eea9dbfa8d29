package statemachine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentcore/persistence"
	"github.com/BaSui01/agentcore/types"
)

// job is the context type used across the package tests.
type job struct {
	Flag  bool
	Trace []string
}

func newLifecycle(t *testing.T, data *job, opts ...Option[*job]) *Machine[*job] {
	t.Helper()
	m := New[*job]("lifecycle", opts...)
	for _, name := range []string{"Idle", "Working", "Done"} {
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: name}))
	}
	require.NoError(t, m.AddTransition("Idle", "Working"))
	require.NoError(t, m.AddTransition("Working", "Done"))
	require.NoError(t, m.AddTransition("Done", "Idle"))
	require.NoError(t, m.SetInitialState(context.Background(), "Idle", data))
	return m
}

func TestMachineConstruction(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate state names are rejected case-insensitively", func(t *testing.T) {
		m := New[*job]("m")
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "Idle"}))
		err := m.AddState(StateDefinition[*job]{Name: "IDLE"})
		assert.True(t, types.HasCode(err, types.ErrStateExists))
	})

	t.Run("transitions require registered endpoints", func(t *testing.T) {
		m := New[*job]("m")
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "Idle"}))
		err := m.AddTransition("Idle", "Working")
		assert.True(t, types.HasCode(err, types.ErrStateNotFound))
		err = m.AddTimeoutTransition("Missing", "Idle", time.Second, nil)
		assert.True(t, types.HasCode(err, types.ErrStateNotFound))
	})

	t.Run("initial state can be set exactly once", func(t *testing.T) {
		m := New[*job]("m")
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "Idle"}))
		require.NoError(t, m.SetInitialState(ctx, "Idle", &job{}))
		err := m.SetInitialState(ctx, "Idle", &job{})
		assert.True(t, types.HasCode(err, types.ErrInitialStateSet))
	})

	t.Run("transition before initial state fails", func(t *testing.T) {
		m := New[*job]("m")
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "Idle"}))
		err := m.Transition(ctx, "Idle", &job{})
		assert.True(t, types.HasCode(err, types.ErrNoInitialState))
	})
}

func TestMachineTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("valid transition moves state and appends one history entry", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		require.NoError(t, m.Transition(ctx, "Working", data))
		assert.Equal(t, "Working", m.CurrentState())
		hist := m.History()
		require.Len(t, hist, 1)
		assert.Equal(t, "Idle", hist[0].From)
		assert.Equal(t, "Working", hist[0].To)
	})

	t.Run("target is matched case-insensitively", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		require.NoError(t, m.Transition(ctx, "wOrKiNg", data))
		assert.Equal(t, "Working", m.CurrentState(), "canonical name wins in reporting")
	})

	t.Run("unregistered target is rejected", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		err := m.Transition(ctx, "Paused", data)
		assert.True(t, types.HasCode(err, types.ErrStateNotFound))
		assert.Equal(t, "Idle", m.CurrentState())
	})

	t.Run("missing edge is rejected and state stays", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		err := m.Transition(ctx, "Done", data)
		assert.True(t, types.HasCode(err, types.ErrInvalidTransition))
		assert.Equal(t, "Idle", m.CurrentState())
		assert.Empty(t, m.History())
	})

	t.Run("guard rejection keeps state and history unchanged", func(t *testing.T) {
		data := &job{Flag: false}
		m := New[*job]("guarded")
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "A"}))
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "B"}))
		require.NoError(t, m.AddTransition("A", "B", WithGuard(func(ctx context.Context, data *job) (bool, error) {
			return data.Flag, nil
		})))
		require.NoError(t, m.SetInitialState(ctx, "A", data))

		err := m.Transition(ctx, "B", data)
		assert.True(t, types.HasCode(err, types.ErrInvalidTransition))
		assert.Equal(t, "A", m.CurrentState())
		assert.Empty(t, m.History())

		data.Flag = true
		require.NoError(t, m.Transition(ctx, "B", data))
		assert.Equal(t, "B", m.CurrentState())
		assert.Len(t, m.History(), 1)
	})

	t.Run("guard selection follows registration order", func(t *testing.T) {
		data := &job{}
		m := New[*job]("ordered")
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "A"}))
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "B"}))
		require.NoError(t, m.AddTransition("A", "B",
			WithGuard(func(ctx context.Context, data *job) (bool, error) { return false, nil }),
			WithAction(func(ctx context.Context, data *job) error {
				data.Trace = append(data.Trace, "first")
				return nil
			}),
		))
		require.NoError(t, m.AddTransition("A", "B",
			WithAction(func(ctx context.Context, data *job) error {
				data.Trace = append(data.Trace, "second")
				return nil
			}),
		))
		require.NoError(t, m.SetInitialState(ctx, "A", data))

		require.NoError(t, m.Transition(ctx, "B", data))
		assert.Equal(t, []string{"second"}, data.Trace, "first enabled transition wins")
	})

	t.Run("exit, transition and entry actions run in order", func(t *testing.T) {
		data := &job{}
		m := New[*job]("ordered")
		require.NoError(t, m.AddState(StateDefinition[*job]{
			Name: "A",
			OnExit: func(ctx context.Context, data *job) error {
				data.Trace = append(data.Trace, "exit-A")
				return nil
			},
		}))
		require.NoError(t, m.AddState(StateDefinition[*job]{
			Name: "B",
			OnEntry: func(ctx context.Context, data *job) error {
				data.Trace = append(data.Trace, "entry-B")
				return nil
			},
		}))
		require.NoError(t, m.AddTransition("A", "B", WithAction(func(ctx context.Context, data *job) error {
			data.Trace = append(data.Trace, "action")
			return nil
		})))
		require.NoError(t, m.SetInitialState(ctx, "A", data))

		require.NoError(t, m.Transition(ctx, "B", data))
		assert.Equal(t, []string{"exit-A", "action", "entry-B"}, data.Trace)
	})

	t.Run("exit action error aborts before any state change", func(t *testing.T) {
		data := &job{}
		m := New[*job]("aborting")
		require.NoError(t, m.AddState(StateDefinition[*job]{
			Name: "A",
			OnExit: func(ctx context.Context, data *job) error {
				return errors.New("resource still held")
			},
		}))
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "B"}))
		require.NoError(t, m.AddTransition("A", "B"))
		require.NoError(t, m.SetInitialState(ctx, "A", data))

		err := m.Transition(ctx, "B", data)
		require.Error(t, err)
		assert.Equal(t, "A", m.CurrentState())
		assert.Empty(t, m.History())
	})

	t.Run("entry action error fails forward", func(t *testing.T) {
		data := &job{}
		m := New[*job]("fail-forward")
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "A"}))
		require.NoError(t, m.AddState(StateDefinition[*job]{
			Name: "B",
			OnEntry: func(ctx context.Context, data *job) error {
				return errors.New("warmup failed")
			},
		}))
		require.NoError(t, m.AddTransition("A", "B"))
		require.NoError(t, m.SetInitialState(ctx, "A", data))

		err := m.Transition(ctx, "B", data)
		require.Error(t, err)
		assert.Equal(t, "B", m.CurrentState(), "no rollback on entry failure")
	})

	t.Run("listeners are notified synchronously in subscription order", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		var events []string
		m.Subscribe(func(e TransitionEvent) { events = append(events, "first:"+e.To) })
		m.Subscribe(func(e TransitionEvent) { events = append(events, "second:"+e.To) })
		require.NoError(t, m.Transition(ctx, "Working", data))
		assert.Equal(t, []string{"first:Working", "second:Working"}, events)
	})

	t.Run("canceled context is rejected eagerly", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := m.Transition(cctx, "Working", data)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, "Idle", m.CurrentState())
	})
}

func TestCanTransition(t *testing.T) {
	ctx := context.Background()
	data := &job{}

	m := New[*job]("guarded")
	require.NoError(t, m.AddState(StateDefinition[*job]{Name: "A"}))
	require.NoError(t, m.AddState(StateDefinition[*job]{Name: "B"}))
	require.NoError(t, m.AddState(StateDefinition[*job]{Name: "C"}))
	require.NoError(t, m.AddTransition("A", "B", WithGuard(func(ctx context.Context, data *job) (bool, error) {
		return data.Flag, nil
	})))
	require.NoError(t, m.AddTransition("A", "C", WithGuard(func(ctx context.Context, data *job) (bool, error) {
		return false, errors.New("guard backend down")
	})))
	require.NoError(t, m.SetInitialState(ctx, "A", data))

	assert.False(t, m.CanTransition(ctx, "A", "B", &job{Flag: false}))
	assert.True(t, m.CanTransition(ctx, "A", "B", &job{Flag: true}))
	assert.False(t, m.CanTransition(ctx, "A", "C", data), "guard errors are treated as not allowed")
	assert.False(t, m.CanTransition(ctx, "B", "A", data), "unknown edge is not allowed")
}

func TestTimedTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("fires while still in the originating state", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		defer m.Stop()
		require.NoError(t, m.AddTimeoutTransition("Idle", "Working", 30*time.Millisecond, nil))

		assert.Eventually(t, func() bool {
			return m.CurrentState() == "Working"
		}, time.Second, 10*time.Millisecond)
		assert.Len(t, m.History(), 1)
	})

	t.Run("stale timer never fires after the state moved", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		defer m.Stop()
		require.NoError(t, m.AddState(StateDefinition[*job]{Name: "C"}))
		require.NoError(t, m.AddTransition("Idle", "C"))
		require.NoError(t, m.AddTimeoutTransition("Idle", "Working", 100*time.Millisecond, nil))

		require.NoError(t, m.Transition(ctx, "C", data))
		time.Sleep(150 * time.Millisecond)
		assert.Equal(t, "C", m.CurrentState(), "timer armed on Idle must not fire from C")
		assert.Len(t, m.History(), 1)
	})

	t.Run("timeout action error suppresses the auto transition", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		defer m.Stop()
		require.NoError(t, m.AddTimeoutTransition("Idle", "Working", 20*time.Millisecond, func(ctx context.Context, data *job) error {
			return errors.New("not ready")
		}))
		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, "Idle", m.CurrentState())
	})

	t.Run("scheduled time in the past fires immediately", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		defer m.Stop()
		require.NoError(t, m.AddScheduledTransition("Idle", "Working", time.Now().Add(-time.Minute), nil))
		assert.Eventually(t, func() bool {
			return m.CurrentState() == "Working"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("non-positive timeout duration is rejected", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data)
		err := m.AddTimeoutTransition("Idle", "Working", 0, nil)
		assert.True(t, types.HasCode(err, types.ErrInvalidNodeConfig))
	})
}

func TestHistoryBounding(t *testing.T) {
	ctx := context.Background()
	data := &job{}
	m := newLifecycle(t, data, WithHistorySize[*job](2))

	for _, target := range []string{"Working", "Done", "Idle", "Working", "Done"} {
		require.NoError(t, m.Transition(ctx, target, data))
	}
	hist := m.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "Idle", hist[0].From)
	assert.Equal(t, "Working", hist[0].To)
	assert.Equal(t, "Working", hist[1].From)
	assert.Equal(t, "Done", hist[1].To)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	data := &job{}

	entries := 0
	m := New[*job]("resettable")
	require.NoError(t, m.AddState(StateDefinition[*job]{
		Name: "Idle",
		OnEntry: func(ctx context.Context, data *job) error {
			entries++
			return nil
		},
	}))
	require.NoError(t, m.AddState(StateDefinition[*job]{Name: "Working"}))
	require.NoError(t, m.AddTransition("Idle", "Working"))
	require.NoError(t, m.SetInitialState(ctx, "Idle", data))
	require.NoError(t, m.Transition(ctx, "Working", data))

	require.NoError(t, m.Reset(ctx, data))
	assert.Equal(t, "Idle", m.CurrentState())
	assert.Equal(t, 2, entries, "reset re-runs the initial entry action")
	assert.Len(t, m.History(), 1, "history is a log, not state")
}

func TestTimeInState(t *testing.T) {
	data := &job{}
	m := newLifecycle(t, data)
	time.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, m.TimeInState(), 20*time.Millisecond)
}

// flakyStore always fails; persistence must stay best-effort.
type flakyStore struct{}

func (f *flakyStore) Save(ctx context.Context, machineID, state string, payload any) error {
	return errors.New("backend offline")
}

func (f *flakyStore) Load(ctx context.Context, machineID string) (*persistence.Snapshot, error) {
	return nil, persistence.ErrNotFound
}

func (f *flakyStore) Delete(ctx context.Context, machineID string) error { return nil }

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure never blocks the transition", func(t *testing.T) {
		data := &job{}
		m := newLifecycle(t, data, WithStore[*job](&flakyStore{}))
		require.NoError(t, m.Transition(ctx, "Working", data))
		assert.Equal(t, "Working", m.CurrentState())
	})

	t.Run("snapshots land in the store on every transition", func(t *testing.T) {
		store := persistence.NewMemoryStore()
		data := &job{}
		m := newLifecycle(t, data, WithStore[*job](store))
		require.NoError(t, m.Transition(ctx, "Working", data))

		snap, err := store.Load(ctx, m.ID())
		require.NoError(t, err)
		assert.Equal(t, "Working", snap.State)
	})
}
