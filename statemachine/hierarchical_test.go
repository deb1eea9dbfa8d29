package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentcore/types"
)

func newWorkPhases(t *testing.T, data *job) *Machine[*job] {
	t.Helper()
	m := New[*job]("work-phases")
	require.NoError(t, m.AddState(StateDefinition[*job]{Name: "Planning"}))
	require.NoError(t, m.AddState(StateDefinition[*job]{Name: "Executing"}))
	require.NoError(t, m.AddTransition("Planning", "Executing"))
	require.NoError(t, m.SetInitialState(context.Background(), "Planning", data))
	return m
}

func TestHierarchical(t *testing.T) {
	ctx := context.Background()

	build := func(t *testing.T, data *job) *Hierarchical[*job] {
		base := New[*job]("agent")
		require.NoError(t, base.AddState(StateDefinition[*job]{Name: "Idle"}))
		require.NoError(t, base.AddState(StateDefinition[*job]{Name: "Working"}))
		require.NoError(t, base.AddTransition("Idle", "Working"))
		require.NoError(t, base.AddTransition("Working", "Idle"))
		require.NoError(t, base.SetInitialState(ctx, "Idle", data))

		h := NewHierarchical(base, nil)
		require.NoError(t, h.AddSubMachine("Working", newWorkPhases(t, data)))
		return h
	}

	t.Run("dotted addressing into the active sub-machine", func(t *testing.T) {
		data := &job{}
		h := build(t, data)
		defer h.Stop()

		require.NoError(t, h.Transition(ctx, "Working", data))
		assert.Equal(t, "Working.Planning", h.CurrentState())

		require.NoError(t, h.Transition(ctx, "Working.Executing", data))
		assert.Equal(t, "Working.Executing", h.CurrentState())
	})

	t.Run("base state without a sub-machine reports a single segment", func(t *testing.T) {
		data := &job{}
		h := build(t, data)
		defer h.Stop()
		assert.Equal(t, "Idle", h.CurrentState())
	})

	t.Run("cross-parent dotted target is rejected", func(t *testing.T) {
		data := &job{}
		h := build(t, data)
		defer h.Stop()

		err := h.Transition(ctx, "Working.Executing", data)
		assert.True(t, types.HasCode(err, types.ErrInvalidAddress), "still in Idle, Working.* must not route")
	})

	t.Run("too many segments are rejected", func(t *testing.T) {
		data := &job{}
		h := build(t, data)
		defer h.Stop()

		err := h.Transition(ctx, "a.b.c", data)
		assert.True(t, types.HasCode(err, types.ErrInvalidAddress))
	})

	t.Run("sub-machine requires a registered parent", func(t *testing.T) {
		data := &job{}
		h := build(t, data)
		defer h.Stop()

		err := h.AddSubMachine("Missing", newWorkPhases(t, data))
		assert.True(t, types.HasCode(err, types.ErrStateNotFound))
		err = h.AddSubMachine("Working", newWorkPhases(t, data))
		assert.True(t, types.HasCode(err, types.ErrStateExists))
	})
}
