package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentcore/statemachine"
	"github.com/BaSui01/agentcore/types"
)

type agentData struct{}

func newMachine(t *testing.T, name string) *statemachine.Machine[*agentData] {
	t.Helper()
	m, err := statemachine.NewBuilder[*agentData](name).
		State("Idle").
		State("Working").
		Initial("Idle").
		Transition("Idle", "Working").
		Transition("Working", "Idle").
		Build(context.Background(), &agentData{})
	require.NoError(t, err)
	return m
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("register and query by state", func(t *testing.T) {
		r := New[*agentData](nil)
		scout := newMachine(t, "scout")
		worker := newMachine(t, "worker")
		require.NoError(t, r.Register("scout-1", scout))
		require.NoError(t, r.Register("worker-1", worker))

		assert.Equal(t, []string{"scout-1", "worker-1"}, r.AgentsInState("idle"))

		require.NoError(t, worker.Transition(ctx, "Working", &agentData{}))
		assert.Equal(t, []string{"scout-1"}, r.AgentsInState("Idle"))
		assert.Equal(t, []string{"worker-1"}, r.AgentsInState("Working"))
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		r := New[*agentData](nil)
		require.NoError(t, r.Register("a", newMachine(t, "a")))
		err := r.Register("a", newMachine(t, "a"))
		assert.True(t, types.HasCode(err, types.ErrAgentExists))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("get and history", func(t *testing.T) {
		r := New[*agentData](nil)
		m := newMachine(t, "a")
		require.NoError(t, r.Register("a", m))
		require.NoError(t, m.Transition(ctx, "Working", &agentData{}))

		got, err := r.Get("a")
		require.NoError(t, err)
		assert.Same(t, m, got)

		hist, err := r.History("a")
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, "Working", hist[0].To)

		_, err = r.Get("missing")
		assert.True(t, types.HasCode(err, types.ErrAgentNotFound))
	})

	t.Run("deregister leaves the machine running", func(t *testing.T) {
		r := New[*agentData](nil)
		m := newMachine(t, "a")
		require.NoError(t, r.Register("a", m))
		require.NoError(t, r.Deregister("a"))
		assert.True(t, types.HasCode(r.Deregister("a"), types.ErrAgentNotFound))
		assert.Equal(t, "Idle", m.CurrentState())
	})

	t.Run("snapshot maps ids to states", func(t *testing.T) {
		r := New[*agentData](nil)
		require.NoError(t, r.Register("a", newMachine(t, "a")))
		b := newMachine(t, "b")
		require.NoError(t, r.Register("b", b))
		require.NoError(t, b.Transition(ctx, "Working", &agentData{}))

		assert.Equal(t, map[string]string{"a": "Idle", "b": "Working"}, r.Snapshot())
	})
}
