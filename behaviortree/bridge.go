package behaviortree

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// StateDriver is the surface a bridge node needs from a state machine.
// statemachine.Machine, Hierarchical and Parallel all satisfy it. The tree never owns the machine's lifecycle.
type StateDriver[C any] interface {
	CurrentState() string
	Transition(ctx context.Context, to string, data C) error
}

// StateMachineCondition is a Condition-equivalent node that succeeds iff
// the machine's current state case-insensitively equals the required state.
// It never mutates the machine.
type StateMachineCondition[C any] struct {
	node
	machine  StateDriver[C]
	required string
}

// NewStateMachineCondition creates a bridge condition node.
func NewStateMachineCondition[C any](name string, machine StateDriver[C], required string) *StateMachineCondition[C] {
	return &StateMachineCondition[C]{node: node{name: name}, machine: machine, required: required}
}

// Execute compares the machine's current state to the required state.
func (n *StateMachineCondition[C]) Execute(ctx context.Context, _ C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	if n.machine == nil {
		return StatusFailure, nil
	}
	if strings.EqualFold(n.machine.CurrentState(), n.required) {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// Reset is a no-op; the node holds no per-execution state.
func (n *StateMachineCondition[C]) Reset() {}

// StateMachineAction is an Action-equivalent node that drives the machine
// toward a target state. A transition error is absorbed into StatusFailure
// and logged — this is the one place a machine's invalid-transition error
// is intentionally converted to tree-node semantics rather than surfaced.
// Cancellation is still propagated, not absorbed.
type StateMachineAction[C any] struct {
	node
	machine StateDriver[C]
	target  string
	logger  *zap.Logger
}

// NewStateMachineAction creates a bridge action node. logger may be nil.
func NewStateMachineAction[C any](name string, machine StateDriver[C], target string, logger *zap.Logger) *StateMachineAction[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateMachineAction[C]{
		node:    node{name: name},
		machine: machine,
		target:  target,
		logger:  logger.With(zap.String("node", name)),
	}
}

// Execute attempts the transition.
func (n *StateMachineAction[C]) Execute(ctx context.Context, data C) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailure, err
	}
	if n.machine == nil {
		return StatusFailure, nil
	}
	if err := n.machine.Transition(ctx, n.target, data); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return StatusFailure, cerr
		}
		n.logger.Warn("state transition rejected",
			zap.String("target", n.target),
			zap.Error(err),
		)
		return StatusFailure, nil
	}
	return StatusSuccess, nil
}

// Reset is a no-op; the node holds no per-execution state.
func (n *StateMachineAction[C]) Reset() {}
