package declarative

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentcore/behaviortree"
	"github.com/BaSui01/agentcore/statemachine"
)

// Factory materializes tree and machine definitions. Leaf behavior cannot
// live in YAML, so callers register named Go functions up front and
// definitions reference them by name.
type Factory[C any] struct {
	logger *zap.Logger

	actions        map[string]behaviortree.ActionFunc[C]
	conditions     map[string]behaviortree.Predicate[C]
	machineActions map[string]statemachine.Action[C]
	guards         map[string]statemachine.Guard[C]
	drivers        map[string]behaviortree.StateDriver[C]
}

// NewFactory creates an empty factory.
func NewFactory[C any](logger *zap.Logger) *Factory[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory[C]{
		logger:         logger.With(zap.String("component", "declarative_factory")),
		actions:        make(map[string]behaviortree.ActionFunc[C]),
		conditions:     make(map[string]behaviortree.Predicate[C]),
		machineActions: make(map[string]statemachine.Action[C]),
		guards:         make(map[string]statemachine.Guard[C]),
		drivers:        make(map[string]behaviortree.StateDriver[C]),
	}
}

// RegisterAction binds a tree action function to a reference name.
func (f *Factory[C]) RegisterAction(name string, fn behaviortree.ActionFunc[C]) *Factory[C] {
	f.actions[name] = fn
	return f
}

// RegisterCondition binds a tree condition predicate to a reference name.
// Gate predicates resolve from the same table.
func (f *Factory[C]) RegisterCondition(name string, fn behaviortree.Predicate[C]) *Factory[C] {
	f.conditions[name] = fn
	return f
}

// RegisterMachineAction binds a state entry/exit/transition action.
func (f *Factory[C]) RegisterMachineAction(name string, fn statemachine.Action[C]) *Factory[C] {
	f.machineActions[name] = fn
	return f
}

// RegisterGuard binds a transition guard.
func (f *Factory[C]) RegisterGuard(name string, fn statemachine.Guard[C]) *Factory[C] {
	f.guards[name] = fn
	return f
}

// RegisterMachine exposes a state machine to bridge nodes under a name.
func (f *Factory[C]) RegisterMachine(name string, driver behaviortree.StateDriver[C]) *Factory[C] {
	f.drivers[name] = driver
	return f
}

// BuildTree materializes a tree definition.
func (f *Factory[C]) BuildTree(def *TreeDefinition) (*behaviortree.Tree[C], error) {
	if def == nil {
		return nil, fmt.Errorf("tree definition is nil")
	}
	if def.Name == "" {
		return nil, fmt.Errorf("tree definition: name is required")
	}
	root, err := f.buildNode(&def.Root)
	if err != nil {
		return nil, fmt.Errorf("tree %q: %w", def.Name, err)
	}
	return behaviortree.NewTree(def.Name, root)
}

func (f *Factory[C]) buildNode(def *NodeDefinition) (behaviortree.Node[C], error) {
	switch def.Type {
	case "action":
		fn, ok := f.actions[def.Ref]
		if !ok {
			return nil, fmt.Errorf("node %q: action %q is not registered", def.Name, def.Ref)
		}
		return behaviortree.NewAction(def.Name, fn), nil

	case "condition":
		fn, ok := f.conditions[def.Ref]
		if !ok {
			return nil, fmt.Errorf("node %q: condition %q is not registered", def.Name, def.Ref)
		}
		return behaviortree.NewCondition(def.Name, fn), nil

	case "sequence":
		children, err := f.buildChildren(def)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewSequence(def.Name, children...), nil

	case "selector":
		children, err := f.buildChildren(def)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewSelector(def.Name, children...), nil

	case "parallel":
		children, err := f.buildChildren(def)
		if err != nil {
			return nil, err
		}
		policy := behaviortree.RequireAll
		switch def.Policy {
		case "", "require_all":
		case "require_one":
			policy = behaviortree.RequireOne
		default:
			return nil, fmt.Errorf("node %q: unknown parallel policy %q", def.Name, def.Policy)
		}
		var opts []behaviortree.ParallelOption[C]
		if def.MaxConcurrency > 0 {
			opts = append(opts, behaviortree.WithMaxConcurrency[C](def.MaxConcurrency))
		}
		return behaviortree.NewParallel(def.Name, policy, children, opts...), nil

	case "inverter":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewInverter(def.Name, child), nil

	case "repeater":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewRepeater(def.Name, child, def.Count)

	case "until_fail":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewUntilFail(def.Name, child)

	case "timeout":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		d, err := parseDuration(def.Name, "duration", def.Duration)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewTimeout(def.Name, child, d)

	case "cooldown":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		d, err := parseDuration(def.Name, "duration", def.Duration)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewCooldown(def.Name, child, d)

	case "retry":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		initial, err := parseDuration(def.Name, "initial_delay", def.InitialDelay)
		if err != nil {
			return nil, err
		}
		var opts []behaviortree.RetryOption[C]
		if def.MaxDelay != "" {
			maxDelay, err := parseDuration(def.Name, "max_delay", def.MaxDelay)
			if err != nil {
				return nil, err
			}
			opts = append(opts, behaviortree.WithMaxDelay[C](maxDelay))
		}
		return behaviortree.NewRetry(def.Name, child, def.MaxAttempts, initial, def.Multiplier, opts...)

	case "gate":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		fn, ok := f.conditions[def.Ref]
		if !ok {
			return nil, fmt.Errorf("node %q: gate predicate %q is not registered", def.Name, def.Ref)
		}
		return behaviortree.NewConditionalGate(def.Name, fn, child)

	case "rate_limit":
		child, err := f.buildChild(def)
		if err != nil {
			return nil, err
		}
		return behaviortree.NewRateLimit(def.Name, child, rate.Limit(def.Rate), def.Burst)

	case "state_condition":
		driver, ok := f.drivers[def.Machine]
		if !ok {
			return nil, fmt.Errorf("node %q: machine %q is not registered", def.Name, def.Machine)
		}
		return behaviortree.NewStateMachineCondition(def.Name, driver, def.State), nil

	case "state_action":
		driver, ok := f.drivers[def.Machine]
		if !ok {
			return nil, fmt.Errorf("node %q: machine %q is not registered", def.Name, def.Machine)
		}
		return behaviortree.NewStateMachineAction(def.Name, driver, def.State, f.logger), nil

	default:
		return nil, fmt.Errorf("node %q: unknown node type %q", def.Name, def.Type)
	}
}

func (f *Factory[C]) buildChild(def *NodeDefinition) (behaviortree.Node[C], error) {
	if def.Child == nil {
		return nil, fmt.Errorf("node %q (%s): child is required", def.Name, def.Type)
	}
	return f.buildNode(def.Child)
}

func (f *Factory[C]) buildChildren(def *NodeDefinition) ([]behaviortree.Node[C], error) {
	children := make([]behaviortree.Node[C], 0, len(def.Children))
	for i := range def.Children {
		child, err := f.buildNode(&def.Children[i])
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// BuildMachine materializes a machine definition and enters its initial
// state with data.
func (f *Factory[C]) BuildMachine(ctx context.Context, def *MachineDefinition, data C, opts ...statemachine.Option[C]) (*statemachine.Machine[C], error) {
	if def == nil {
		return nil, fmt.Errorf("machine definition is nil")
	}
	if def.Name == "" {
		return nil, fmt.Errorf("machine definition: name is required")
	}
	if def.History > 0 {
		opts = append(opts, statemachine.WithHistorySize[C](def.History))
	}

	b := statemachine.NewBuilder(def.Name, opts...)
	for _, state := range def.States {
		var stateOpts []statemachine.StateOption[C]
		if state.OnEntry != "" {
			action, err := f.machineAction(def.Name, state.OnEntry)
			if err != nil {
				return nil, err
			}
			stateOpts = append(stateOpts, statemachine.WithOnEntry(action))
		}
		if state.OnExit != "" {
			action, err := f.machineAction(def.Name, state.OnExit)
			if err != nil {
				return nil, err
			}
			stateOpts = append(stateOpts, statemachine.WithOnExit(action))
		}
		b.State(state.Name, stateOpts...)
	}
	b.Initial(def.Initial)

	for _, tr := range def.Transitions {
		var trOpts []statemachine.TransitionOption[C]
		if tr.Guard != "" {
			guard, ok := f.guards[tr.Guard]
			if !ok {
				return nil, fmt.Errorf("machine %q: guard %q is not registered", def.Name, tr.Guard)
			}
			trOpts = append(trOpts, statemachine.WithGuard(guard))
		}
		if tr.Action != "" {
			action, err := f.machineAction(def.Name, tr.Action)
			if err != nil {
				return nil, err
			}
			trOpts = append(trOpts, statemachine.WithAction(action))
		}
		b.Transition(tr.From, tr.To, trOpts...)
	}

	for _, tt := range def.Timed {
		after, err := time.ParseDuration(tt.After)
		if err != nil {
			return nil, fmt.Errorf("machine %q: timed %s->%s: invalid after %q: %w", def.Name, tt.From, tt.To, tt.After, err)
		}
		action, err := f.optionalMachineAction(def.Name, tt.OnTimeout)
		if err != nil {
			return nil, err
		}
		b.TimeoutTransition(tt.From, tt.To, after, action)
	}

	for _, st := range def.Scheduled {
		at, err := time.Parse(time.RFC3339, st.At)
		if err != nil {
			return nil, fmt.Errorf("machine %q: scheduled %s->%s: invalid at %q: %w", def.Name, st.From, st.To, st.At, err)
		}
		action, err := f.optionalMachineAction(def.Name, st.OnTimeout)
		if err != nil {
			return nil, err
		}
		b.ScheduledTransition(st.From, st.To, at, action)
	}

	return b.Build(ctx, data)
}

func (f *Factory[C]) machineAction(machine, ref string) (statemachine.Action[C], error) {
	action, ok := f.machineActions[ref]
	if !ok {
		return nil, fmt.Errorf("machine %q: action %q is not registered", machine, ref)
	}
	return action, nil
}

func (f *Factory[C]) optionalMachineAction(machine, ref string) (statemachine.Action[C], error) {
	if ref == "" {
		return nil, nil
	}
	return f.machineAction(machine, ref)
}

func parseDuration(node, field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("node %q: invalid %s %q: %w", node, field, value, err)
	}
	return d, nil
}
