package statemachine

import (
	"context"
	"strings"
)

// Action is a state or transition callback.
type Action[C any] func(ctx context.Context, data C) error

// Guard is a boolean predicate over context data gating whether a
// transition is allowed. A nil guard defaults to true.
type Guard[C any] func(ctx context.Context, data C) (bool, error)

// Hook is a notification callback fired on state entry or exit. Hooks
// cannot fail and cannot abort a transition.
type Hook func(state string)

// StateDefinition describes one named state. Definitions are created at
// machine-build time and immutable afterward.
type StateDefinition[C any] struct {
	// Name identifies the state, unique per machine, case-insensitive.
	Name string

	// OnEntry runs after the machine has moved into this state. An error
	// propagates to the Transition caller (the state stays moved).
	OnEntry Action[C]

	// OnExit runs before the machine leaves this state. An error aborts
	// the transition.
	OnExit Action[C]

	// EntryHooks fire after OnEntry, in registration order.
	EntryHooks []Hook

	// ExitHooks fire after OnExit, in registration order.
	ExitHooks []Hook
}

// stateKey canonicalizes a state name for case-insensitive identity.
func stateKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
