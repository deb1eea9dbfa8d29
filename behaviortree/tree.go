package behaviortree

import (
	"context"

	"github.com/BaSui01/agentcore/types"
)

// Tree names a root node and is the execution entry point.
type Tree[C any] struct {
	name string
	root Node[C]
}

// NewTree creates a Tree. A nil root is a construction error.
func NewTree[C any](name string, root Node[C]) (*Tree[C], error) {
	if root == nil {
		return nil, types.NewErrorf(types.ErrTreeNoRoot, "tree %q has no root node", name)
	}
	return &Tree[C]{name: name, root: root}, nil
}

// Name returns the tree's name.
func (t *Tree[C]) Name() string { return t.name }

// Root returns the root node.
func (t *Tree[C]) Root() Node[C] { return t.root }

// Execute delegates to the root node.
func (t *Tree[C]) Execute(ctx context.Context, data C) (Status, error) {
	return t.root.Execute(ctx, data)
}

// Reset delegates to the root node.
func (t *Tree[C]) Reset() {
	t.root.Reset()
}
