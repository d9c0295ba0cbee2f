// Package tree holds a recipe's ingredient list as an ordered tree and maps
// the tree's shape back onto encoded positions.
//
// The root holds groups first and root-level ingredients after them. Below
// a group sit ingredients, below an ingredient its "or" alternatives and
// below an alternative its "and" members. Positions stored on the nodes are
// the ones currently persisted; after a Move they may no longer describe
// the shape, which is what Assign repairs.
package tree

import (
	"fmt"
	"sort"

	"github.com/papapumpkin/larder/internal/position"
)

// Root is the parent id addressing the root of the tree.
const Root int64 = 0

// Item is one persisted ingredient-list entry.
type Item struct {
	ID       int64
	Position position.Position
	Label    string
}

// Node is an entry placed in the tree.
type Node struct {
	Item
	Group    bool
	Children []*Node

	parent *Node
}

// Parent returns the node's parent, or nil at the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Level returns the level the node has in the current shape, independent
// of its stored position.
func (n *Node) Level() position.Level {
	if n.Group {
		return position.LevelGroup
	}
	if n.parent == nil {
		return position.LevelIngredient
	}
	return n.parent.Level() + 1
}

// contains reports whether other is n or one of its descendants.
func (n *Node) contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Tree is the ingredient list of one recipe.
type Tree struct {
	Groups []*Node // ordered groups
	Items  []*Node // ordered root-level ingredients

	byID map[int64]*Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{byID: make(map[int64]*Node)}
}

// Build arranges persisted entries into a tree. Entries may come in any
// order; siblings are ordered by position.
func Build(items []Item) (*Tree, error) {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	t := New()
	byPos := make(map[position.Position]*Node, len(sorted))
	for _, it := range sorted {
		if err := position.Validate(it.Position); err != nil {
			return nil, fmt.Errorf("tree: entry %d: %w", it.ID, err)
		}
		if _, dup := t.byID[it.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, it.ID)
		}
		if other, dup := byPos[it.Position]; dup {
			return nil, fmt.Errorf("%w: entries %d and %d at %s", ErrDuplicatePosition, other.ID, it.ID, it.Position)
		}

		n := &Node{Item: it, Group: position.IsGroup(it.Position)}
		byPos[it.Position] = n
		t.byID[it.ID] = n

		switch {
		case n.Group:
			t.Groups = append(t.Groups, n)
			continue
		case position.IsRoot(it.Position):
			t.Items = append(t.Items, n)
			continue
		}
		parentPos, _ := position.ParentOf(it.Position)
		parent, ok := byPos[parentPos]
		if !ok {
			return nil, fmt.Errorf("%w: entry %d at %s expects parent %s", ErrOrphan, it.ID, it.Position, parentPos)
		}
		n.parent = parent
		parent.Children = append(parent.Children, n)
	}
	return t, nil
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	return len(t.byID)
}

// Find returns the node for an entry id.
func (t *Tree) Find(id int64) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Walk visits every node depth-first in display order. Returning an error
// from fn stops the walk.
func (t *Tree) Walk(fn func(n *Node) error) error {
	var visit func(nodes []*Node) error
	visit = func(nodes []*Node) error {
		for _, n := range nodes {
			if err := fn(n); err != nil {
				return err
			}
			if err := visit(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(t.Groups); err != nil {
		return err
	}
	return visit(t.Items)
}

// IDs returns every entry id in display order.
func (t *Tree) IDs() []int64 {
	ids := make([]int64, 0, len(t.byID))
	_ = t.Walk(func(n *Node) error {
		ids = append(ids, n.ID)
		return nil
	})
	return ids
}
