package statemachine

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/types"
)

// Parallel runs N named regions, each an independent machine evolving in
// its own orthogonal state space. The composite current state is the
// "|"-joined concatenation of all non-empty region states, and transition
// targets use "region:state" addressing.
type Parallel[C any] struct {
	name   string
	logger *zap.Logger

	mu        sync.Mutex
	order     []string
	regions   map[string]*Machine[C]
	listeners []func(TransitionEvent)
}

// NewParallel creates an empty parallel machine. Regions are attached with
// AddRegion.
func NewParallel[C any](name string, logger *zap.Logger) *Parallel[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parallel[C]{
		name:    name,
		regions: make(map[string]*Machine[C]),
		logger: logger.With(
			zap.String("component", "parallel_state_machine"),
			zap.String("machine", name),
		),
	}
}

// Name returns the parallel machine's name.
func (p *Parallel[C]) Name() string { return p.name }

// AddRegion attaches an independent region machine under a unique name.
// The region's transition events are re-published through the parallel
// machine with the region name prefixed onto the state labels.
func (p *Parallel[C]) AddRegion(name string, machine *Machine[C]) error {
	key := stateKey(name)
	if key == "" {
		return types.NewError(types.ErrInvalidNodeConfig, "region name is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.regions[key]; exists {
		return types.NewErrorf(types.ErrRegionExists, "region %q already registered", name)
	}
	p.order = append(p.order, name)
	p.regions[key] = machine

	machine.Subscribe(func(event TransitionEvent) {
		event.Machine = p.name
		event.From = name + ":" + event.From
		event.To = name + ":" + event.To
		p.mu.Lock()
		listeners := make([]func(TransitionEvent), len(p.listeners))
		copy(listeners, p.listeners)
		p.mu.Unlock()
		for _, listener := range listeners {
			listener(event)
		}
	})
	return nil
}

// Region returns the machine behind a region name.
func (p *Parallel[C]) Region(name string) (*Machine[C], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	machine, ok := p.regions[stateKey(name)]
	return machine, ok
}

// Subscribe registers a listener for re-published region transition
// events.
func (p *Parallel[C]) Subscribe(fn func(TransitionEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// CurrentState joins the non-empty region states with "|", in region
// registration order.
func (p *Parallel[C]) CurrentState() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make([]string, 0, len(p.order))
	for _, name := range p.order {
		if state := p.regions[stateKey(name)].CurrentState(); state != "" {
			states = append(states, state)
		}
	}
	return strings.Join(states, "|")
}

// Transition moves exactly one region, addressed as "region:state". A
// single call can never cross regions.
func (p *Parallel[C]) Transition(ctx context.Context, target string, data C) error {
	region, state, ok := strings.Cut(target, ":")
	if !ok || region == "" || state == "" {
		return types.NewErrorf(types.ErrInvalidAddress, "target %q is not of the form region:state", target)
	}
	p.mu.Lock()
	machine, exists := p.regions[stateKey(region)]
	p.mu.Unlock()
	if !exists {
		return types.NewErrorf(types.ErrRegionNotFound, "region %q is not registered", region)
	}
	return machine.Transition(ctx, state, data)
}

// Stop cancels pending timers in every region.
func (p *Parallel[C]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, machine := range p.regions {
		machine.Stop()
	}
}
