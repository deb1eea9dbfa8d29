package behaviortree

import "context"

// Node is the contract shared by every tree node.
//
// Ownership: a parent exclusively owns its children. A node holding mutable
// per-execution state (Repeater counters, Cooldown timestamps) must not be
// shared between two parents because Reset and internal counters are not
// re-entrant across owners.
type Node[C any] interface {
	// Name returns the node's diagnostic name, unique within a tree by
	// convention (not enforced).
	Name() string

	// Execute runs the node against the shared context data. The returned
	// error carries only cancellation and escaped infrastructure failures;
	// ordinary user-level failures surface as StatusFailure.
	Execute(ctx context.Context, data C) (Status, error)

	// Reset clears any internal counters or timestamps so the node can be
	// reused from scratch. Composites and decorators propagate Reset to
	// every owned child.
	Reset()
}

// node carries the immutable identity shared by all node kinds.
type node struct {
	name        string
	description string
}

// Name returns the node's diagnostic name.
func (n node) Name() string { return n.name }

// Description returns the node's optional description.
func (n node) Description() string { return n.description }
