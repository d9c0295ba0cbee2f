package tree

import (
	"fmt"

	"github.com/papapumpkin/larder/internal/position"
)

// Target names where a moved entry should end up. Parent is an entry id or
// Root. Index is the slot among the new siblings of the same kind; a
// negative or too large index appends.
type Target struct {
	Parent int64
	Index  int
}

// Move relocates an entry, with its subtree, to target. Groups only move
// among groups. An entry with children keeps its level, so its subtree
// keeps its shape. Nothing is changed when the move is rejected.
func (t *Tree) Move(id int64, target Target) error {
	n, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if n.Group {
		if target.Parent != Root {
			return fmt.Errorf("%w: group %d can only move among groups", ErrIllegalMove, id)
		}
		t.Groups = insertAt(removeNode(t.Groups, n), n, target.Index)
		return nil
	}

	var parent *Node
	newLevel := position.LevelIngredient
	if target.Parent != Root {
		parent, ok = t.byID[target.Parent]
		if !ok {
			return fmt.Errorf("%w: parent %d", ErrNotFound, target.Parent)
		}
		if n.contains(parent) {
			return fmt.Errorf("%w: entry %d cannot move below itself", ErrIllegalMove, id)
		}
		child, ok := parent.Level().Child()
		if !ok {
			return fmt.Errorf("%w: entry %d cannot have children", ErrIllegalMove, parent.ID)
		}
		newLevel = child
	}

	if len(n.Children) > 0 && newLevel != n.Level() {
		return fmt.Errorf("%w: entry %d has children and would change from %s to %s",
			ErrIllegalMove, id, n.Level(), newLevel)
	}

	siblings := t.Items
	if parent != nil {
		siblings = parent.Children
	}
	if n.parent != parent {
		if len(siblings) >= position.MaxEntries {
			return fmt.Errorf("%w: maximum entries reached below %d", ErrIllegalMove, target.Parent)
		}
	}

	t.detach(n)
	n.parent = parent
	if parent == nil {
		t.Items = insertAt(t.Items, n, target.Index)
	} else {
		parent.Children = insertAt(parent.Children, n, target.Index)
	}
	return nil
}

// Remove deletes an entry and its subtree and returns the removed ids,
// the entry itself first.
func (t *Tree) Remove(id int64) ([]int64, error) {
	n, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	var removed []int64
	var collect func(n *Node)
	collect = func(n *Node) {
		removed = append(removed, n.ID)
		delete(t.byID, n.ID)
		for _, c := range n.Children {
			collect(c)
		}
	}
	t.detach(n)
	collect(n)
	return removed, nil
}

// detach unlinks n from its current sibling list.
func (t *Tree) detach(n *Node) {
	switch {
	case n.Group:
		t.Groups = removeNode(t.Groups, n)
	case n.parent == nil:
		t.Items = removeNode(t.Items, n)
	default:
		n.parent.Children = removeNode(n.parent.Children, n)
	}
	n.parent = nil
}

func removeNode(nodes []*Node, n *Node) []*Node {
	for i, c := range nodes {
		if c == n {
			return append(nodes[:i:i], nodes[i+1:]...)
		}
	}
	return nodes
}

func insertAt(nodes []*Node, n *Node, index int) []*Node {
	if index < 0 || index > len(nodes) {
		index = len(nodes)
	}
	out := make([]*Node, 0, len(nodes)+1)
	out = append(out, nodes[:index]...)
	out = append(out, n)
	return append(out, nodes[index:]...)
}
