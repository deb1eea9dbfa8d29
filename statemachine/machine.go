package statemachine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/persistence"
	"github.com/BaSui01/agentcore/types"
)

// Machine is a named state machine over a generic context type. All
// state-mutating sections (current-state swap, timer bookkeeping, history
// append) are serialized by an internal mutex; user-supplied entry, exit
// and transition actions run outside the lock.
type Machine[C any] struct {
	id     string
	name   string
	logger *zap.Logger
	tracer trace.Tracer

	collector *metrics.Collector
	store     persistence.Store

	mu          sync.Mutex
	states      map[string]*StateDefinition[C]
	transitions map[string][]*Transition[C]
	timed       map[string][]*TimedTransition[C]
	scheduled   map[string][]*ScheduledTransition[C]
	current     string
	initial     string
	entryAt     map[string]time.Time
	hist        *history
	timers      []*time.Timer
	lastData    C
	listeners   []func(TransitionEvent)
}

// Option configures a Machine.
type Option[C any] func(*Machine[C])

// WithID overrides the generated machine id.
func WithID[C any](id string) Option[C] {
	return func(m *Machine[C]) { m.id = id }
}

// WithLogger sets the machine's logger.
func WithLogger[C any](logger *zap.Logger) Option[C] {
	return func(m *Machine[C]) { m.logger = logger }
}

// WithStore sets the best-effort snapshot store invoked on every
// successful transition.
func WithStore[C any](store persistence.Store) Option[C] {
	return func(m *Machine[C]) { m.store = store }
}

// WithCollector sets the metrics collector.
func WithCollector[C any](collector *metrics.Collector) Option[C] {
	return func(m *Machine[C]) { m.collector = collector }
}

// WithHistorySize caps the transition history ring (default 100).
func WithHistorySize[C any](size int) Option[C] {
	return func(m *Machine[C]) { m.hist = newHistory(size) }
}

// New creates an empty machine. States and transitions are added before
// SetInitialState; the machine is unusable until an initial state is set.
func New[C any](name string, opts ...Option[C]) *Machine[C] {
	m := &Machine[C]{
		id:          uuid.NewString(),
		name:        name,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("agentcore/statemachine"),
		states:      make(map[string]*StateDefinition[C]),
		transitions: make(map[string][]*Transition[C]),
		timed:       make(map[string][]*TimedTransition[C]),
		scheduled:   make(map[string][]*ScheduledTransition[C]),
		entryAt:     make(map[string]time.Time),
		hist:        newHistory(DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(
		zap.String("component", "state_machine"),
		zap.String("machine", name),
	)
	return m
}

// ID returns the machine's unique identifier.
func (m *Machine[C]) ID() string { return m.id }

// Name returns the machine's name.
func (m *Machine[C]) Name() string { return m.name }

// AddState registers a state definition. Duplicate names (case-insensitive)
// are a construction error.
func (m *Machine[C]) AddState(def StateDefinition[C]) error {
	key := stateKey(def.Name)
	if key == "" {
		return types.NewError(types.ErrInvalidNodeConfig, "state name is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.states[key]; exists {
		return types.NewErrorf(types.ErrStateExists, "state %q already registered", def.Name)
	}
	m.states[key] = &def
	return nil
}

// AddTransition registers a guarded edge. Both endpoint states must already
// be registered.
func (m *Machine[C]) AddTransition(from, to string, opts ...TransitionOption[C]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireStatesLocked(from, to); err != nil {
		return err
	}
	tr := &Transition[C]{From: from, To: to}
	for _, opt := range opts {
		opt(tr)
	}
	m.transitions[stateKey(from)] = append(m.transitions[stateKey(from)], tr)
	return nil
}

// AddTimeoutTransition registers a timed auto-transition armed whenever
// from is entered. If the machine is currently in from, the timer is armed
// immediately.
func (m *Machine[C]) AddTimeoutTransition(from, to string, after time.Duration, onTimeout Action[C]) error {
	if after <= 0 {
		return types.NewErrorf(types.ErrInvalidNodeConfig, "timeout transition %s->%s: non-positive duration %s", from, to, after)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireStatesLocked(from, to); err != nil {
		return err
	}
	tt := &TimedTransition[C]{From: from, To: to, After: after, OnTimeout: onTimeout}
	m.timed[stateKey(from)] = append(m.timed[stateKey(from)], tt)
	if strings.EqualFold(m.current, from) {
		m.armTimedLocked(tt)
	}
	return nil
}

// AddScheduledTransition registers an auto-transition keyed on an absolute
// time. A time already in the past fires immediately (async) once armed.
func (m *Machine[C]) AddScheduledTransition(from, to string, at time.Time, onTimeout Action[C]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireStatesLocked(from, to); err != nil {
		return err
	}
	st := &ScheduledTransition[C]{From: from, To: to, At: at, OnTimeout: onTimeout}
	m.scheduled[stateKey(from)] = append(m.scheduled[stateKey(from)], st)
	if strings.EqualFold(m.current, from) {
		m.armScheduledLocked(st)
	}
	return nil
}

// requireStatesLocked verifies both endpoints are registered.
func (m *Machine[C]) requireStatesLocked(from, to string) error {
	if _, ok := m.states[stateKey(from)]; !ok {
		return types.NewErrorf(types.ErrStateNotFound, "state %q is not registered", from)
	}
	if _, ok := m.states[stateKey(to)]; !ok {
		return types.NewErrorf(types.ErrStateNotFound, "state %q is not registered", to)
	}
	return nil
}

// SetInitialState sets the machine's starting state, runs its entry action
// and arms its timed transitions. It may be called exactly once.
func (m *Machine[C]) SetInitialState(ctx context.Context, name string, data C) error {
	m.mu.Lock()
	if m.initial != "" {
		m.mu.Unlock()
		return types.NewErrorf(types.ErrInitialStateSet, "initial state already set to %q", m.initial)
	}
	def, ok := m.states[stateKey(name)]
	if !ok {
		m.mu.Unlock()
		return types.NewErrorf(types.ErrStateNotFound, "state %q is not registered", name)
	}
	m.initial = def.Name
	m.current = def.Name
	m.entryAt[stateKey(def.Name)] = time.Now()
	m.lastData = data
	m.armTimersLocked(def.Name)
	m.mu.Unlock()

	if def.OnEntry != nil {
		if err := def.OnEntry(ctx, data); err != nil {
			return err
		}
	}
	for _, hook := range def.EntryHooks {
		hook(def.Name)
	}
	m.logger.Info("initial state set", zap.String("state", def.Name))
	return nil
}

// CurrentState returns the current state name, or "" before
// SetInitialState.
func (m *Machine[C]) CurrentState() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// HasState reports whether a state name is registered (case-insensitive).
func (m *Machine[C]) HasState(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[stateKey(name)]
	return ok
}

// InitialState returns the configured initial state name.
func (m *Machine[C]) InitialState() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initial
}

// TimeInState returns how long the machine has been in its current state.
func (m *Machine[C]) TimeInState() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return 0
	}
	entered, ok := m.entryAt[stateKey(m.current)]
	if !ok {
		return 0
	}
	return time.Since(entered)
}

// History returns a copy of the transition history, oldest first.
func (m *Machine[C]) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hist.snapshot()
}

// Subscribe registers a listener notified synchronously, in subscription
// order, after every completed transition.
func (m *Machine[C]) Subscribe(fn func(TransitionEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// CanTransition reports whether a transition from from to to is registered
// and its guard admits the context data. Guard errors and panics are
// logged and treated as "not allowed".
func (m *Machine[C]) CanTransition(ctx context.Context, from, to string, data C) bool {
	m.mu.Lock()
	candidates := m.candidatesLocked(from, to)
	m.mu.Unlock()
	for _, tr := range candidates {
		if m.guardAllows(ctx, tr, data) {
			return true
		}
	}
	return false
}

// candidatesLocked returns the registered transitions from from to to in
// registration order.
func (m *Machine[C]) candidatesLocked(from, to string) []*Transition[C] {
	var out []*Transition[C]
	for _, tr := range m.transitions[stateKey(from)] {
		if stateKey(tr.To) == stateKey(to) {
			out = append(out, tr)
		}
	}
	return out
}

// guardAllows evaluates a transition guard with panic protection.
func (m *Machine[C]) guardAllows(ctx context.Context, tr *Transition[C], data C) (allowed bool) {
	if tr.Guard == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("transition guard panicked",
				zap.String("from", tr.From),
				zap.String("to", tr.To),
				zap.Any("panic", r),
			)
			allowed = false
		}
	}()
	ok, err := tr.Guard(ctx, data)
	if err != nil {
		m.logger.Warn("transition guard failed",
			zap.String("from", tr.From),
			zap.String("to", tr.To),
			zap.Error(err),
		)
		return false
	}
	return ok
}

// Transition moves the machine to the target state. The protocol: resolve
// and validate, run the old state's exit action, run the transition action,
// atomically swap the state and retarget timers, run the new state's entry
// action, append history, persist best-effort, then notify listeners.
//
// Exit, transition and entry action errors propagate and are not rolled
// back: an entry-action error leaves the machine already moved.
func (m *Machine[C]) Transition(ctx context.Context, to string, data C) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.current == "" {
		m.mu.Unlock()
		return types.NewError(types.ErrNoInitialState, "no initial state set")
	}
	from := m.current
	toDef, ok := m.states[stateKey(to)]
	if !ok {
		m.mu.Unlock()
		return types.NewErrorf(types.ErrStateNotFound, "state %q is not registered", to)
	}
	fromDef := m.states[stateKey(from)]
	candidates := m.candidatesLocked(from, to)
	m.mu.Unlock()

	if len(candidates) == 0 {
		return types.NewErrorf(types.ErrInvalidTransition, "no transition from %q to %q", from, toDef.Name)
	}
	var matched *Transition[C]
	for _, tr := range candidates {
		if m.guardAllows(ctx, tr, data) {
			matched = tr
			break
		}
	}
	if matched == nil {
		return types.NewErrorf(types.ErrInvalidTransition, "transition %q -> %q rejected by guard", from, toDef.Name)
	}

	ctx, span := m.tracer.Start(ctx, "statemachine.transition",
		trace.WithAttributes(
			attribute.String("machine.name", m.name),
			attribute.String("state.from", from),
			attribute.String("state.to", toDef.Name),
		),
	)
	defer span.End()
	start := time.Now()

	// Exit-action failure is correctness-critical (releasing a resource):
	// it aborts the transition before any state change.
	if fromDef.OnExit != nil {
		if err := fromDef.OnExit(ctx, data); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return types.NewErrorf(types.ErrInvalidTransition, "exit action of %q failed", from).WithCause(err)
		}
	}
	for _, hook := range fromDef.ExitHooks {
		hook(from)
	}

	if matched.Action != nil {
		if err := matched.Action(ctx, data); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return types.NewErrorf(types.ErrInvalidTransition, "transition action %q -> %q failed", from, toDef.Name).WithCause(err)
		}
	}

	now := time.Now()
	m.mu.Lock()
	if !strings.EqualFold(m.current, from) {
		m.mu.Unlock()
		return types.NewErrorf(types.ErrConcurrentTransition, "state moved from %q to %q during transition", from, m.current)
	}
	// Atomic swap-state-and-cancel-old-timer section: a stale timer must
	// never observe the machine in its originating state again.
	m.cancelTimersLocked()
	m.current = toDef.Name
	m.entryAt[stateKey(toDef.Name)] = now
	m.lastData = data
	m.armTimersLocked(toDef.Name)
	m.mu.Unlock()

	if toDef.OnEntry != nil {
		if err := toDef.OnEntry(ctx, data); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			// Fail-forward: the state is already moved.
			return types.NewErrorf(types.ErrInvalidTransition, "entry action of %q failed", toDef.Name).WithCause(err)
		}
	}
	for _, hook := range toDef.EntryHooks {
		hook(toDef.Name)
	}

	m.mu.Lock()
	m.hist.append(HistoryEntry{From: from, To: toDef.Name, Timestamp: now})
	listeners := make([]func(TransitionEvent), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.persist(ctx, toDef.Name, data)

	duration := time.Since(start)
	if m.collector != nil {
		m.collector.RecordStateTransition(m.name, from, toDef.Name, duration)
	}
	span.SetAttributes(attribute.Int64("transition.duration_ms", duration.Milliseconds()))
	m.logger.Info("state transition",
		zap.String("from", from),
		zap.String("to", toDef.Name),
		zap.Duration("duration", duration),
	)

	event := TransitionEvent{
		MachineID: m.id,
		Machine:   m.name,
		From:      from,
		To:        toDef.Name,
		Timestamp: now,
	}
	for _, listener := range listeners {
		listener(event)
	}
	return nil
}

// Reset forces the machine back to its initial state and re-runs the
// initial state's entry action. Transition history is a log, not state,
// and is deliberately kept.
func (m *Machine[C]) Reset(ctx context.Context, data C) error {
	m.mu.Lock()
	if m.initial == "" {
		m.mu.Unlock()
		return types.NewError(types.ErrNoInitialState, "no initial state set")
	}
	def := m.states[stateKey(m.initial)]
	m.cancelTimersLocked()
	m.current = def.Name
	m.entryAt[stateKey(def.Name)] = time.Now()
	m.lastData = data
	m.armTimersLocked(def.Name)
	m.mu.Unlock()

	if def.OnEntry != nil {
		if err := def.OnEntry(ctx, data); err != nil {
			return err
		}
	}
	for _, hook := range def.EntryHooks {
		hook(def.Name)
	}
	m.logger.Info("machine reset", zap.String("state", def.Name))
	return nil
}

// Stop cancels all pending timed and scheduled transition timers.
func (m *Machine[C]) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimersLocked()
}

// persist saves the new state best-effort: failures are logged and
// swallowed, never aborting or rolling back the transition.
func (m *Machine[C]) persist(ctx context.Context, state string, data C) {
	if m.store == nil {
		return
	}
	err := m.store.Save(ctx, m.id, state, data)
	if m.collector != nil {
		m.collector.RecordPersistenceOperation(m.name, "save", err)
	}
	if err != nil {
		m.logger.Warn("state persistence failed",
			zap.String("state", state),
			zap.Error(err),
		)
	}
}

// cancelTimersLocked stops every pending auto-transition timer.
func (m *Machine[C]) cancelTimersLocked() {
	for _, timer := range m.timers {
		timer.Stop()
	}
	m.timers = nil
}

// armTimersLocked starts timers for every timed and scheduled transition
// registered on state.
func (m *Machine[C]) armTimersLocked(state string) {
	for _, tt := range m.timed[stateKey(state)] {
		m.armTimedLocked(tt)
	}
	for _, st := range m.scheduled[stateKey(state)] {
		m.armScheduledLocked(st)
	}
}

func (m *Machine[C]) armTimedLocked(tt *TimedTransition[C]) {
	timer := time.AfterFunc(tt.After, func() {
		m.fireAuto(tt.From, tt.To, tt.OnTimeout)
	})
	m.timers = append(m.timers, timer)
}

func (m *Machine[C]) armScheduledLocked(st *ScheduledTransition[C]) {
	delay := time.Until(st.At)
	if delay <= 0 {
		// Already due: fire immediately without blocking the caller.
		go m.fireAuto(st.From, st.To, st.OnTimeout)
		return
	}
	timer := time.AfterFunc(delay, func() {
		m.fireAuto(st.From, st.To, st.OnTimeout)
	})
	m.timers = append(m.timers, timer)
}

// fireAuto performs a timed or scheduled transition. It re-checks under
// lock that the machine is still in the originating state; if the state
// moved first the firing silently no-ops.
func (m *Machine[C]) fireAuto(from, to string, onTimeout Action[C]) {
	m.mu.Lock()
	if !strings.EqualFold(m.current, from) {
		m.mu.Unlock()
		return
	}
	data := m.lastData
	m.mu.Unlock()

	ctx := context.Background()
	if onTimeout != nil {
		if err := onTimeout(ctx, data); err != nil {
			m.logger.Warn("timeout action failed",
				zap.String("from", from),
				zap.String("to", to),
				zap.Error(err),
			)
			return
		}
	}
	if err := m.Transition(ctx, to, data); err != nil {
		m.logger.Warn("auto transition failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
		return
	}
	if m.collector != nil {
		m.collector.RecordTimedTransition(m.name, from, to)
	}
}
