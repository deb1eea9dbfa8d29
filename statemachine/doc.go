// Package statemachine implements an agent lifecycle state machine generic
// over a caller-supplied context type: named case-insensitive states,
// guarded transitions with actions, timed and scheduled auto-transitions
// that race explicit transitions without ever firing stale, entry/exit
// actions, a bounded transition history and best-effort persistence.
//
// Transition can fail with a structured error (no transition registered,
// guard rejected, no initial state); unlike tree nodes these errors are
// surfaced to direct callers, and only the behaviortree bridge node
// converts them into tree Failure semantics.
package statemachine
