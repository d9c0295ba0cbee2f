package position

import (
	"context"
	"fmt"
)

// Assignment moves one entry from its current position to a target.
type Assignment struct {
	EntryID int64
	From    Position
	To      Position
}

// Changed reports whether the assignment moves the entry.
func (a Assignment) Changed() bool {
	return a.From != a.To
}

// PositionWriter is the storage contract for renumbering.
type PositionWriter interface {
	// SetPosition overwrites the stored position of one entry.
	SetPosition(ctx context.Context, entryID int64, p Position) error
	// Flush makes every prior SetPosition visible to the store's
	// uniqueness check before the next one runs.
	Flush(ctx context.Context) error
}

// Renumber applies assignments without ever holding two entries of a recipe
// at the same position. Phase one parks every moving entry on the negative
// image of its target, phase two flips it back. Targets must be unique and
// must not collide with entries that keep their position; Tree.Assign
// guarantees both. It returns the number of entries written.
func Renumber(ctx context.Context, w PositionWriter, assignments []Assignment) (int, error) {
	if err := CheckTargets(assignments); err != nil {
		return 0, err
	}

	var moving []Assignment
	for _, a := range assignments {
		if a.Changed() {
			moving = append(moving, a)
		}
	}
	if len(moving) == 0 {
		return 0, nil
	}

	for _, a := range moving {
		if err := w.SetPosition(ctx, a.EntryID, Temporary(a.To)); err != nil {
			return 0, fmt.Errorf("position: park entry %d at %s: %w", a.EntryID, Temporary(a.To), err)
		}
	}

	if err := w.Flush(ctx); err != nil {
		return 0, fmt.Errorf("position: flush temporary positions: %w", err)
	}

	for _, a := range moving {
		if err := w.SetPosition(ctx, a.EntryID, Finalize(Temporary(a.To))); err != nil {
			return 0, fmt.Errorf("position: finalize entry %d at %s: %w", a.EntryID, a.To, err)
		}
	}

	if err := w.Flush(ctx); err != nil {
		return 0, fmt.Errorf("position: flush final positions: %w", err)
	}
	return len(moving), nil
}

// CheckTargets verifies that assignments map onto distinct, valid positions.
func CheckTargets(assignments []Assignment) error {
	seen := make(map[Position]int64, len(assignments))
	for _, a := range assignments {
		if a.To < 0 || a.To >= Limit {
			return fmt.Errorf("%w: entry %d target %d", ErrOutOfRange, a.EntryID, int(a.To))
		}
		if other, dup := seen[a.To]; dup {
			return fmt.Errorf("position: entries %d and %d share target %s", other, a.EntryID, a.To)
		}
		seen[a.To] = a.EntryID
	}
	return nil
}
