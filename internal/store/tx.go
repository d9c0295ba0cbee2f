package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/papapumpkin/larder/internal/position"
)

// Tx is a store transaction. It satisfies position.RangeQuerier and
// position.PositionWriter, so allocation and renumbering see the writes
// made earlier in the same transaction.
type Tx struct {
	tx       *sql.Tx
	store    *Store
	newUnits []Unit
}

var (
	_ position.RangeQuerier   = (*Tx)(nil)
	_ position.PositionWriter = (*Tx)(nil)
)

// MaxPositionInRange returns the largest position in [lo, hi) for a recipe.
func (t *Tx) MaxPositionInRange(ctx context.Context, recipeID int64, lo, hi position.Position) (position.Position, bool, error) {
	var m sql.NullInt64
	err := t.tx.QueryRowContext(ctx,
		`SELECT MAX(position) FROM ingredient_list_entry
		 WHERE recipe_id = ? AND position >= ? AND position < ?`,
		recipeID, int(lo), int(hi)).Scan(&m)
	if err != nil {
		return position.None, false, fmt.Errorf("store: max position in [%d, %d): %w", int(lo), int(hi), err)
	}
	if !m.Valid {
		return position.None, false, nil
	}
	return position.Position(m.Int64), true, nil
}

// CountPositionsInRange counts the positions in [lo, hi) for a recipe.
func (t *Tx) CountPositionsInRange(ctx context.Context, recipeID int64, lo, hi position.Position) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ingredient_list_entry
		 WHERE recipe_id = ? AND position >= ? AND position < ?`,
		recipeID, int(lo), int(hi)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count positions in [%d, %d): %w", int(lo), int(hi), err)
	}
	return n, nil
}

// SetPosition rewrites the position of one entry.
func (t *Tx) SetPosition(ctx context.Context, entryID int64, p position.Position) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE ingredient_list_entry SET position = ? WHERE id = ?", int(p), entryID)
	if err != nil {
		return fmt.Errorf("store: set position of entry %d to %d: %w", entryID, int(p), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: set position of entry %d: %w", entryID, err)
	}
	if n == 0 {
		return fmt.Errorf("store: entry %d: %w", entryID, ErrNotFound)
	}
	return nil
}

// Flush marks the boundary between renumbering phases. Statements inside
// the transaction are already visible to the ones that follow, so there
// is nothing to write out.
func (t *Tx) Flush(ctx context.Context) error {
	return ctx.Err()
}

// IngredientID returns the id of the named ingredient, adding it when it
// does not exist yet.
func (t *Tx) IngredientID(ctx context.Context, name string, group bool) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		"SELECT id FROM ingredient WHERE name = ? AND is_group = ?", name, group).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("store: query ingredient %q: %w", name, err)
	}

	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO ingredient (name, is_group) VALUES (?, ?)", name, group)
	if err != nil {
		return 0, fmt.Errorf("store: insert ingredient %q: %w", name, err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("store: insert ingredient %q: %w", name, err)
	}
	return id, nil
}

// InsertEntry adds an entry to a recipe's ingredient list. The position
// must be a valid, allocated one.
func (t *Tx) InsertEntry(ctx context.Context, e NewEntry) (Entry, error) {
	if e.Position == position.None {
		return Entry{}, fmt.Errorf("store: insert entry %q: %w", e.Ingredient, ErrNoPosition)
	}
	if err := position.Validate(e.Position); err != nil {
		return Entry{}, fmt.Errorf("store: insert entry %q: %w: %w", e.Ingredient, ErrNoPosition, err)
	}
	if e.Group != position.IsGroup(e.Position) {
		return Entry{}, fmt.Errorf("store: insert entry %q: group flag does not match %s: %w",
			e.Ingredient, e.Position, position.ErrMalformed)
	}

	unit, err := t.entryUnit(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	ingredientID, err := t.IngredientID(ctx, e.Ingredient, e.Group)
	if err != nil {
		return Entry{}, err
	}

	uid := uuid.New()
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO ingredient_list_entry
		 (uid, recipe_id, amount, range_amount, unit_id, name, ingredient_id, optional, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uid.String(), e.RecipeID, nullFloat(e.Amount), nullFloat(e.RangeAmount),
		unit.ID, e.Name, ingredientID, e.Optional, int(e.Position))
	if err != nil {
		return Entry{}, fmt.Errorf("store: insert entry %q at %s: %w", e.Ingredient, e.Position, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("store: insert entry %q: %w", e.Ingredient, err)
	}

	t.store.log.Debug("entry inserted", "recipe", e.RecipeID, "entry", id, "position", e.Position.String())
	return Entry{
		ID:          id,
		UID:         uid,
		RecipeID:    e.RecipeID,
		Position:    e.Position,
		Ingredient:  e.Ingredient,
		Group:       e.Group,
		Name:        e.Name,
		Unit:        unit.Name,
		Amount:      e.Amount,
		RangeAmount: e.RangeAmount,
		Optional:    e.Optional,
	}, nil
}

// Entries returns a recipe's ingredient list ordered by position.
func (t *Tx) Entries(ctx context.Context, recipeID int64) ([]Entry, error) {
	return queryEntries(ctx, t.tx, "e.recipe_id = ?", recipeID)
}

// Entry returns one entry by id.
func (t *Tx) Entry(ctx context.Context, id int64) (Entry, error) {
	entries, err := queryEntries(ctx, t.tx, "e.id = ?", id)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("store: entry %d: %w", id, ErrNotFound)
	}
	return entries[0], nil
}

// DeleteEntries removes entries of a recipe by id and returns how many
// rows were deleted.
func (t *Tx) DeleteEntries(ctx context.Context, recipeID int64, ids []int64) (int, error) {
	stmt, err := t.tx.PrepareContext(ctx,
		"DELETE FROM ingredient_list_entry WHERE recipe_id = ? AND id = ?")
	if err != nil {
		return 0, fmt.Errorf("store: prepare delete: %w", err)
	}
	defer stmt.Close()

	var deleted int
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, recipeID, id)
		if err != nil {
			return deleted, fmt.Errorf("store: delete entry %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("store: delete entry %d: %w", id, err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

// Entries returns a recipe's ingredient list ordered by position.
func (s *Store) Entries(ctx context.Context, recipeID int64) ([]Entry, error) {
	return queryEntries(ctx, s.db, "e.recipe_id = ?", recipeID)
}

const entrySelect = `SELECT e.id, e.uid, e.recipe_id, e.position, i.name, i.is_group, e.name,
       u.name, e.amount, e.range_amount, e.optional
FROM ingredient_list_entry e
JOIN ingredient i ON i.id = e.ingredient_id
JOIN ingredient_unit u ON u.id = e.unit_id`

func queryEntries(ctx context.Context, q queryer, where string, arg any) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, entrySelect+" WHERE "+where+" ORDER BY e.position", arg)
	if err != nil {
		return nil, fmt.Errorf("store: query entries: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var (
			e           Entry
			uid         string
			pos         int64
			amount      sql.NullFloat64
			rangeAmount sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &uid, &e.RecipeID, &pos, &e.Ingredient, &e.Group, &e.Name,
			&e.Unit, &amount, &rangeAmount, &e.Optional); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		if e.UID, err = uuid.Parse(uid); err != nil {
			return nil, fmt.Errorf("store: entry %d uid: %w", e.ID, err)
		}
		e.Position = position.Position(pos)
		e.Amount = floatPtr(amount)
		e.RangeAmount = floatPtr(rangeAmount)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate entries: %w", err)
	}
	return result, nil
}
