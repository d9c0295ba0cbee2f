// Package position implements the ingredient-list position encoding.
//
// A position is a single non-negative integer laid out as GG II OO AA in
// decimal: a group index, an ingredient index inside the group, an "or"
// alternative index inside the ingredient and an "and" member index inside
// the alternative. A zero in a lower field means the position is of the
// enclosing level, so 02010000 is ingredient 1 of group 2 and 02000000 is the
// group itself. Group 99 is the implicit global group holding ungrouped
// ingredients; it never has an entry of its own.
//
// Negative values are reserved for the renumbering transaction and must not
// be passed to the codec functions.
package position

import (
	"errors"
	"fmt"
)

// Position is an encoded ingredient-list position.
type Position int

// Layout factors and limits.
const (
	GroupFactor       = 1_000_000
	IngredientFactor  = 10_000
	AlternativeFactor = 100

	// GlobalGroup is the group index of the implicit, never materialized,
	// group that holds root-level ingredients.
	GlobalGroup = 99

	// MaxEntries is the number of children a single parent can hold.
	MaxEntries = 99

	// Limit is the first value past the encodable range.
	Limit Position = 100 * GroupFactor
)

// None is returned together with an error when no position could be
// allocated. It is never a valid position.
const None Position = -1

// Sentinel errors for external position validation.
var (
	// ErrOutOfRange indicates a value outside [0, 99999999].
	ErrOutOfRange = errors.New("position out of range")
	// ErrMalformed indicates a lower field is set while an enclosing one is zero.
	ErrMalformed = errors.New("malformed position")
	// ErrGlobalGroupEntry indicates an attempt to store the global group itself.
	ErrGlobalGroupEntry = errors.New("global group cannot have an entry")
)

// Level is the tree level a position decodes to.
type Level int

const (
	LevelGroup            Level = iota // GG000000
	LevelIngredient                    // GGII0000
	LevelAlternative                   // GGIIOO00, "or"
	LevelAlternativeGroup              // GGIIOOAA, "and"
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelGroup:
		return "group"
	case LevelIngredient:
		return "ingredient"
	case LevelAlternative:
		return "alternative"
	case LevelAlternativeGroup:
		return "alternative-group"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Child returns the level of a child of l. The and-level has no child level
// and returns false.
func (l Level) Child() (Level, bool) {
	if l >= LevelAlternativeGroup {
		return 0, false
	}
	return l + 1, true
}

// Step returns the distance between two consecutive siblings at level l.
func (l Level) Step() Position {
	switch l {
	case LevelGroup:
		return GroupFactor
	case LevelIngredient:
		return IngredientFactor
	case LevelAlternative:
		return AlternativeFactor
	default:
		return 1
	}
}

// GlobalGroupPosition returns the position of the implicit global group.
func GlobalGroupPosition() Position {
	return GlobalGroup * GroupFactor
}

// IsGroup reports whether p is a group.
func IsGroup(p Position) bool {
	return p%GroupFactor == 0
}

// IsAlternativeGroup reports whether p is an "and" member of an alternative.
func IsAlternativeGroup(p Position) bool {
	return p%AlternativeFactor != 0
}

// IsAlternative reports whether p is an "or" alternative of an ingredient.
// An and-level position is never an alternative.
func IsAlternative(p Position) bool {
	return p%IngredientFactor != 0 && !IsAlternativeGroup(p)
}

// Classify decodes the level of p. The and-level check runs first so the
// result matches exactly one of the predicates above.
func Classify(p Position) Level {
	switch {
	case IsAlternativeGroup(p):
		return LevelAlternativeGroup
	case IsAlternative(p):
		return LevelAlternative
	case IsGroup(p):
		return LevelGroup
	default:
		return LevelIngredient
	}
}

// GroupOf truncates p to its group.
func GroupOf(p Position) Position {
	return (p / GroupFactor) * GroupFactor
}

// ParentOf returns the position of p's parent. Groups have no parent. The
// parent of a root-level ingredient is GlobalGroupPosition().
func ParentOf(p Position) (Position, bool) {
	switch Classify(p) {
	case LevelGroup:
		return 0, false
	case LevelAlternativeGroup:
		return (p / AlternativeFactor) * AlternativeFactor, true
	case LevelAlternative:
		return (p / IngredientFactor) * IngredientFactor, true
	default:
		return GroupOf(p), true
	}
}

// IsRoot reports whether p is displayed at the root of the tree: a group or
// an ingredient of the global group.
func IsRoot(p Position) bool {
	if IsGroup(p) {
		return true
	}
	parent, _ := ParentOf(p)
	return parent == GlobalGroupPosition()
}

// Digits is the field-wise form of a position.
type Digits struct {
	Group       int
	Ingredient  int
	Alternative int
	And         int
}

// Decode splits p into its four fields.
func Decode(p Position) Digits {
	v := int(p)
	return Digits{
		Group:       v / GroupFactor,
		Ingredient:  v / IngredientFactor % 100,
		Alternative: v / AlternativeFactor % 100,
		And:         v % 100,
	}
}

// Encode joins the four fields into a position.
func Encode(d Digits) Position {
	return Position(d.Group*GroupFactor + d.Ingredient*IngredientFactor +
		d.Alternative*AlternativeFactor + d.And)
}

// String renders p as its four two-digit fields, e.g. "02.01.03.00".
func (p Position) String() string {
	if p < 0 {
		return fmt.Sprintf("tmp(%d)", int(Finalize(p)))
	}
	d := Decode(p)
	return fmt.Sprintf("%02d.%02d.%02d.%02d", d.Group, d.Ingredient, d.Alternative, d.And)
}

// Temporary maps a target position onto the negative integers for the first
// renumbering phase. It never yields a valid position, including 0.
func Temporary(p Position) Position {
	return -p - 1
}

// Finalize is the inverse of Temporary. The transform is its own inverse.
func Finalize(t Position) Position {
	return -t - 1
}

// Validate checks a position read from external data. The codec functions
// assume valid input and do not call it.
func Validate(p Position) error {
	if p < 0 || p >= Limit {
		return fmt.Errorf("%w: %d", ErrOutOfRange, int(p))
	}
	if p == GlobalGroupPosition() {
		return fmt.Errorf("%w: %d", ErrGlobalGroupEntry, int(p))
	}
	d := Decode(p)
	if d.And != 0 && d.Alternative == 0 {
		return fmt.Errorf("%w: %s has an and-member without an alternative", ErrMalformed, p)
	}
	if d.Alternative != 0 && d.Ingredient == 0 {
		return fmt.Errorf("%w: %s has an alternative without an ingredient", ErrMalformed, p)
	}
	return nil
}
