package declarative

// TreeDefinition is a declarative behavior tree document, designed to
// be deserialized from YAML or JSON files. Leaf behavior is referenced by
// name and resolved against functions registered on a Factory.
type TreeDefinition struct {
	Name string         `yaml:"name" json:"name"`
	Root NodeDefinition `yaml:"root" json:"root"`
}

// NodeDefinition describes one tree node. Type selects the node kind;
// the remaining fields apply per kind and are ignored otherwise.
type NodeDefinition struct {
	// Type is one of: action, condition, sequence, selector, parallel,
	// inverter, repeater, until_fail, timeout, cooldown, retry, gate,
	// rate_limit, state_condition, state_action.
	Type string `yaml:"type" json:"type"`
	Name string `yaml:"name" json:"name"`

	// Ref names a registered action, condition or gate predicate.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// Machine and State address a registered state machine for bridge
	// nodes: State is the required state (state_condition) or the
	// transition target (state_action).
	Machine string `yaml:"machine,omitempty" json:"machine,omitempty"`
	State   string `yaml:"state,omitempty" json:"state,omitempty"`

	// Count configures repeater iterations (-1 repeats forever).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Duration configures timeout and cooldown windows ("250ms", "5s").
	Duration string `yaml:"duration,omitempty" json:"duration,omitempty"`

	// Retry backoff parameters.
	MaxAttempts  int     `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	InitialDelay string  `yaml:"initial_delay,omitempty" json:"initial_delay,omitempty"`
	Multiplier   float64 `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
	MaxDelay     string  `yaml:"max_delay,omitempty" json:"max_delay,omitempty"`

	// Parallel aggregation: "require_all" (default) or "require_one".
	Policy         string `yaml:"policy,omitempty" json:"policy,omitempty"`
	MaxConcurrency int    `yaml:"max_concurrency,omitempty" json:"max_concurrency,omitempty"`

	// Rate limit parameters (executions per second plus burst).
	Rate  float64 `yaml:"rate,omitempty" json:"rate,omitempty"`
	Burst int     `yaml:"burst,omitempty" json:"burst,omitempty"`

	// Child holds the single wrapped node of a decorator; Children holds
	// the ordered children of a composite.
	Child    *NodeDefinition  `yaml:"child,omitempty" json:"child,omitempty"`
	Children []NodeDefinition `yaml:"children,omitempty" json:"children,omitempty"`
}

// MachineDefinition is a declarative state machine document.
type MachineDefinition struct {
	Name    string `yaml:"name" json:"name"`
	Initial string `yaml:"initial" json:"initial"`

	// History caps the transition history ring; zero keeps the default.
	History int `yaml:"history,omitempty" json:"history,omitempty"`

	States      []StateDef      `yaml:"states" json:"states"`
	Transitions []TransitionDef `yaml:"transitions,omitempty" json:"transitions,omitempty"`
	Timed       []TimedDef      `yaml:"timed,omitempty" json:"timed,omitempty"`
	Scheduled   []ScheduledDef  `yaml:"scheduled,omitempty" json:"scheduled,omitempty"`
}

// StateDef declares one state, with entry/exit actions referenced by name.
type StateDef struct {
	Name    string `yaml:"name" json:"name"`
	OnEntry string `yaml:"on_entry,omitempty" json:"on_entry,omitempty"`
	OnExit  string `yaml:"on_exit,omitempty" json:"on_exit,omitempty"`
}

// TransitionDef declares a guarded edge, guard and action by name.
type TransitionDef struct {
	From   string `yaml:"from" json:"from"`
	To     string `yaml:"to" json:"to"`
	Guard  string `yaml:"guard,omitempty" json:"guard,omitempty"`
	Action string `yaml:"action,omitempty" json:"action,omitempty"`
}

// TimedDef declares a timed auto-transition; After is a duration string.
type TimedDef struct {
	From      string `yaml:"from" json:"from"`
	To        string `yaml:"to" json:"to"`
	After     string `yaml:"after" json:"after"`
	OnTimeout string `yaml:"on_timeout,omitempty" json:"on_timeout,omitempty"`
}

// ScheduledDef declares a scheduled auto-transition; At is RFC 3339.
type ScheduledDef struct {
	From      string `yaml:"from" json:"from"`
	To        string `yaml:"to" json:"to"`
	At        string `yaml:"at" json:"at"`
	OnTimeout string `yaml:"on_timeout,omitempty" json:"on_timeout,omitempty"`
}
