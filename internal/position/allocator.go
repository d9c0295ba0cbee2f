package position

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by the allocator.
var (
	// ErrInvalidParent indicates a parent at the and-level, which cannot
	// have children.
	ErrInvalidParent = errors.New("invalid parent position")
	// ErrLevelExhausted indicates every slot below the parent is taken.
	ErrLevelExhausted = errors.New("maximum entries reached")
)

// RangeQuerier is the storage contract the allocator needs. Both methods
// operate on the half-open range [lo, hi) of a single recipe and must see
// the caller's own uncommitted writes.
type RangeQuerier interface {
	MaxPositionInRange(ctx context.Context, recipeID int64, lo, hi Position) (Position, bool, error)
	CountPositionsInRange(ctx context.Context, recipeID int64, lo, hi Position) (int, error)
}

// Range is the slot layout below one parent. Children are Lo+Step,
// Lo+2*Step, ... up to Lo+MaxEntries*Step; Hi is exclusive.
type Range struct {
	Lo   Position
	Hi   Position
	Step Position
}

// Slot returns the position of the n-th (1-based) child.
func (r Range) Slot(n int) Position {
	return r.Lo + Position(n)*r.Step
}

// ChildRange returns the slot layout for children of parent. Pass
// GlobalGroupPosition() for root-level ingredients.
func ChildRange(parent Position) (Range, error) {
	if parent < 0 || parent >= Limit {
		return Range{}, fmt.Errorf("%w: %d", ErrOutOfRange, int(parent))
	}
	level := Classify(parent)
	child, ok := level.Child()
	if !ok {
		return Range{}, fmt.Errorf("%w: %s is an alternative-group member", ErrInvalidParent, parent)
	}
	step := child.Step()
	lo := (parent / level.Step()) * level.Step()
	// The last slot sits at lo+MaxEntries*step. Anything beyond it belongs
	// to a deeper level of that last child, or to the next sibling.
	return Range{Lo: lo, Hi: lo + MaxEntries*step + 1, Step: step}, nil
}

// Allocator hands out fresh positions. It performs a read followed by a
// dependent write, so callers must serialize edits to one recipe and run
// allocation inside the transaction that stores the result.
type Allocator struct {
	q RangeQuerier
}

// NewAllocator returns an Allocator reading existing positions through q.
func NewAllocator(q RangeQuerier) *Allocator {
	return &Allocator{q: q}
}

// AllocateRootIngredient allocates a plain ingredient in the global group.
func (a *Allocator) AllocateRootIngredient(ctx context.Context, recipeID int64) (Position, error) {
	return a.AllocateIngredient(ctx, recipeID, GlobalGroupPosition())
}

// AllocateIngredient allocates the next position below parent: an
// ingredient for a group, an "or" alternative for an ingredient and an
// "and" member for an alternative. When the level is full it returns None
// and ErrLevelExhausted.
func (a *Allocator) AllocateIngredient(ctx context.Context, recipeID int64, parent Position) (Position, error) {
	r, err := ChildRange(parent)
	if err != nil {
		return None, err
	}

	m, found, err := a.q.MaxPositionInRange(ctx, recipeID, r.Lo, r.Hi)
	if err != nil {
		return None, fmt.Errorf("position: query max in [%d, %d): %w", int(r.Lo), int(r.Hi), err)
	}

	return next(r, m, found, parent)
}

// next computes the slot after m. Lower-order digits of m, left by a deeper
// child of the last sibling, are truncated away.
func next(r Range, m Position, found bool, parent Position) (Position, error) {
	candidate := r.Slot(1)
	if found {
		candidate = ((m + r.Step) / r.Step) * r.Step
	}
	if candidate > r.Slot(MaxEntries) {
		return None, fmt.Errorf("%w: below %s", ErrLevelExhausted, parent)
	}
	return candidate, nil
}

// AllocateGroup allocates the next group position. The first group is 0.
// It returns None and ErrLevelExhausted once group 98 is in use.
func (a *Allocator) AllocateGroup(ctx context.Context, recipeID int64) (Position, error) {
	hi := GlobalGroupPosition()
	n, err := a.q.CountPositionsInRange(ctx, recipeID, 0, hi)
	if err != nil {
		return None, fmt.Errorf("position: count groups: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	m, found, err := a.q.MaxPositionInRange(ctx, recipeID, 0, hi)
	if err != nil {
		return None, fmt.Errorf("position: query max group: %w", err)
	}
	if !found {
		return 0, nil
	}

	g := int(m / GroupFactor)
	if g+1 >= GlobalGroup {
		return None, fmt.Errorf("%w: no group slot left", ErrLevelExhausted)
	}
	return Position((g + 1) * GroupFactor), nil
}
