package tree

import "errors"

// Sentinel errors for tree construction and editing.
var (
	// ErrOrphan indicates an entry whose parent position has no entry.
	ErrOrphan = errors.New("entry has no parent entry")
	// ErrDuplicatePosition indicates two entries stored at the same position.
	ErrDuplicatePosition = errors.New("duplicate position")
	// ErrDuplicateID indicates two entries with the same id.
	ErrDuplicateID = errors.New("duplicate entry id")
	// ErrNotFound indicates an entry id that is not part of the tree.
	ErrNotFound = errors.New("entry not found")
	// ErrIllegalMove indicates a move the ingredient list cannot represent.
	ErrIllegalMove = errors.New("illegal move")
	// ErrTooManyEntries indicates more than MaxEntries children below a parent.
	ErrTooManyEntries = errors.New("too many entries")
	// ErrTooDeep indicates an entry below the alternative-group level.
	ErrTooDeep = errors.New("entry nested too deep")
)
