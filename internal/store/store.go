// Package store persists recipes and their ingredient lists in SQLite.
//
// Ingredient-list positions are unique per recipe. The constraint is checked
// as each statement runs, so every write that reorders entries goes through
// the two-phase renumbering in package position, and every allocation runs
// inside the transaction that inserts the allocated entry.
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/larder/internal/position"
)

// Sentinel errors returned by the store.
var (
	// ErrNotFound indicates a recipe, entry or unit that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoPosition indicates an insert with an allocation failure value
	// instead of a position.
	ErrNoPosition = errors.New("entry has no valid position")
)

// UnitType classifies ingredient units.
type UnitType int

const (
	UnitQuantity   UnitType = iota // dozen, pair
	UnitMass                       // gram, ounce
	UnitVolume                     // millilitre, teaspoon
	UnitUnspecific                 // pinch, small can
	UnitGroup                      // pseudo unit of group headers
)

// GroupUnit is the name of the pseudo unit carried by group entries.
const GroupUnit = "group"

// Recipe is a stored recipe. Author and Cuisine are looked up by name and
// created on first use, as are Categories, which come back sorted. A nil
// time is one the recipe does not state.
type Recipe struct {
	ID              int64
	UID             uuid.UUID
	Title           string
	Description     string
	Instructions    string
	Notes           string
	Author          string
	Cuisine         string
	Categories      []string
	Yields          float64
	YieldUnit       string
	URL             string
	Rating          *int
	PreparationTime *time.Duration
	CookingTime     *time.Duration
	TotalTime       *time.Duration
	LastModified    time.Time
}

// Unit is an ingredient unit.
type Unit struct {
	ID     int64
	Name   string
	Type   UnitType
	CLDR   bool
	Factor *float64
}

// Entry is one row of a recipe's ingredient list, joined with its
// ingredient and unit.
type Entry struct {
	ID          int64
	UID         uuid.UUID
	RecipeID    int64
	Position    position.Position
	Ingredient  string
	Group       bool
	Name        string // verbose name; empty means the ingredient name
	Unit        string
	Amount      *float64
	RangeAmount *float64
	Optional    bool
}

// Label returns the name shown for the entry.
func (e Entry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Ingredient
}

// NewEntry describes an entry to insert. Unit defaults to the quantity
// base unit, or to GroupUnit for groups.
type NewEntry struct {
	RecipeID    int64
	Position    position.Position
	Ingredient  string
	Group       bool
	Name        string
	Unit        string
	Amount      *float64
	RangeAmount *float64
	Optional    bool
}
