package tree

import (
	"fmt"

	"github.com/papapumpkin/larder/internal/position"
)

// Assign derives the target position of every node from the tree's
// current order: the i-th group is group i (counting from zero), and the
// j-th child of any node sits j steps below it (counting from one). Root
// ingredients are children of the global group.
func (t *Tree) Assign() ([]position.Assignment, error) {
	if len(t.Groups) > position.GlobalGroup {
		return nil, fmt.Errorf("%w: %d groups", ErrTooManyEntries, len(t.Groups))
	}
	if len(t.Items) > position.MaxEntries {
		return nil, fmt.Errorf("%w: %d root ingredients", ErrTooManyEntries, len(t.Items))
	}

	out := make([]position.Assignment, 0, len(t.byID))
	for i, g := range t.Groups {
		target := position.Position(i * position.GroupFactor)
		out = append(out, position.Assignment{EntryID: g.ID, From: g.Position, To: target})
		var err error
		if out, err = assignChildren(out, g, target, position.LevelGroup); err != nil {
			return nil, err
		}
	}

	root := position.GlobalGroupPosition()
	for j, n := range t.Items {
		target := root + position.Position(j+1)*position.IngredientFactor
		out = append(out, position.Assignment{EntryID: n.ID, From: n.Position, To: target})
		var err error
		if out, err = assignChildren(out, n, target, position.LevelIngredient); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func assignChildren(out []position.Assignment, n *Node, base position.Position, level position.Level) ([]position.Assignment, error) {
	if len(n.Children) == 0 {
		return out, nil
	}
	child, ok := level.Child()
	if !ok {
		return nil, fmt.Errorf("%w: entry %d has children below the %s level", ErrTooDeep, n.ID, level)
	}
	if len(n.Children) > position.MaxEntries {
		return nil, fmt.Errorf("%w: entry %d has %d children", ErrTooManyEntries, n.ID, len(n.Children))
	}

	step := child.Step()
	for j, c := range n.Children {
		target := base + position.Position(j+1)*step
		out = append(out, position.Assignment{EntryID: c.ID, From: c.Position, To: target})
		var err error
		if out, err = assignChildren(out, c, target, child); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Commit records assigned targets as the nodes' stored positions. Call it
// once the assignments have been persisted.
func (t *Tree) Commit(assignments []position.Assignment) {
	for _, a := range assignments {
		if n, ok := t.byID[a.EntryID]; ok {
			n.Position = a.To
		}
	}
}
