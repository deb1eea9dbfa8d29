package statemachine

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/agentcore/types"
)

// Builder assembles a machine fluently. Errors are collected as the
// definition grows and surfaced together by Build.
type Builder[C any] struct {
	name    string
	opts    []Option[C]
	initial string
	errs    []error

	states      []StateDefinition[C]
	transitions []builderTransition[C]
	timed       []TimedTransition[C]
	scheduled   []ScheduledTransition[C]
}

type builderTransition[C any] struct {
	from string
	to   string
	opts []TransitionOption[C]
}

// StateOption configures a state added through the builder.
type StateOption[C any] func(*StateDefinition[C])

// WithOnEntry sets the state's entry action.
func WithOnEntry[C any](action Action[C]) StateOption[C] {
	return func(def *StateDefinition[C]) { def.OnEntry = action }
}

// WithOnExit sets the state's exit action.
func WithOnExit[C any](action Action[C]) StateOption[C] {
	return func(def *StateDefinition[C]) { def.OnExit = action }
}

// WithEntryHook appends an entry notification hook.
func WithEntryHook[C any](hook Hook) StateOption[C] {
	return func(def *StateDefinition[C]) { def.EntryHooks = append(def.EntryHooks, hook) }
}

// WithExitHook appends an exit notification hook.
func WithExitHook[C any](hook Hook) StateOption[C] {
	return func(def *StateDefinition[C]) { def.ExitHooks = append(def.ExitHooks, hook) }
}

// NewBuilder starts a machine definition.
func NewBuilder[C any](name string, opts ...Option[C]) *Builder[C] {
	return &Builder[C]{name: name, opts: opts}
}

// State adds a named state.
func (b *Builder[C]) State(name string, opts ...StateOption[C]) *Builder[C] {
	def := StateDefinition[C]{Name: name}
	for _, opt := range opts {
		opt(&def)
	}
	b.states = append(b.states, def)
	return b
}

// Initial marks the starting state. It must name a state added via State.
func (b *Builder[C]) Initial(name string) *Builder[C] {
	if b.initial != "" {
		b.errs = append(b.errs, types.NewErrorf(types.ErrInitialStateSet, "initial state already set to %q", b.initial))
		return b
	}
	b.initial = name
	return b
}

// Transition adds a guarded edge between two states.
func (b *Builder[C]) Transition(from, to string, opts ...TransitionOption[C]) *Builder[C] {
	b.transitions = append(b.transitions, builderTransition[C]{from: from, to: to, opts: opts})
	return b
}

// TimeoutTransition adds an automatic transition fired after a dwell time.
func (b *Builder[C]) TimeoutTransition(from, to string, after time.Duration, onTimeout Action[C]) *Builder[C] {
	b.timed = append(b.timed, TimedTransition[C]{From: from, To: to, After: after, OnTimeout: onTimeout})
	return b
}

// ScheduledTransition adds an automatic transition fired at an absolute
// time.
func (b *Builder[C]) ScheduledTransition(from, to string, at time.Time, onTimeout Action[C]) *Builder[C] {
	b.scheduled = append(b.scheduled, ScheduledTransition[C]{From: from, To: to, At: at, OnTimeout: onTimeout})
	return b
}

// Build materializes the machine, entering the initial state with data.
// All accumulated definition errors are returned joined.
func (b *Builder[C]) Build(ctx context.Context, data C) (*Machine[C], error) {
	errs := append([]error(nil), b.errs...)
	if b.initial == "" {
		errs = append(errs, types.NewError(types.ErrNoInitialState, "no initial state declared"))
	}

	m := New[C](b.name, b.opts...)
	for _, def := range b.states {
		if err := m.AddState(def); err != nil {
			errs = append(errs, err)
		}
	}
	for _, tr := range b.transitions {
		if err := m.AddTransition(tr.from, tr.to, tr.opts...); err != nil {
			errs = append(errs, err)
		}
	}
	for _, tt := range b.timed {
		if err := m.AddTimeoutTransition(tt.From, tt.To, tt.After, tt.OnTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	for _, st := range b.scheduled {
		if err := m.AddScheduledTransition(st.From, st.To, st.At, st.OnTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := m.SetInitialState(ctx, b.initial, data); err != nil {
		return nil, err
	}
	return m, nil
}
