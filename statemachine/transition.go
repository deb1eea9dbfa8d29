package statemachine

import "time"

// Transition is a guarded edge between two registered states. Multiple
// transitions may share the same fromState; selection among them is
// deterministic by registration order when guards are evaluated.
type Transition[C any] struct {
	From   string
	To     string
	Guard  Guard[C]
	Action Action[C]
}

// TimedTransition is an automatic transition armed when From is entered and
// fired After later — but only if the machine is still in From at that
// moment.
type TimedTransition[C any] struct {
	From      string
	To        string
	After     time.Duration
	OnTimeout Action[C]
}

// ScheduledTransition is like TimedTransition but keyed on an absolute
// wall-clock time. If At has already passed when the transition is armed,
// it fires immediately on a detached goroutine.
type ScheduledTransition[C any] struct {
	From      string
	To        string
	At        time.Time
	OnTimeout Action[C]
}

// TransitionEvent is delivered to machine listeners after a completed
// transition, synchronously and in subscription order.
type TransitionEvent struct {
	MachineID string    `json:"machine_id"`
	Machine   string    `json:"machine"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// TransitionOption configures a Transition added via AddTransition.
type TransitionOption[C any] func(*Transition[C])

// WithGuard gates the transition on a predicate over context data.
func WithGuard[C any](guard Guard[C]) TransitionOption[C] {
	return func(t *Transition[C]) { t.Guard = guard }
}

// WithAction attaches an action executed between the exit and entry
// actions of the endpoint states.
func WithAction[C any](action Action[C]) TransitionOption[C] {
	return func(t *Transition[C]) { t.Action = action }
}
