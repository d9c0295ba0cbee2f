package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// CreateRecipe inserts a recipe and returns it with its id, uid and
// timestamp filled in.
func (s *Store) CreateRecipe(ctx context.Context, r Recipe) (Recipe, error) {
	var out Recipe
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.CreateRecipe(ctx, r)
		return err
	})
	return out, err
}

// UpdateRecipe replaces the metadata and categories of the recipe with
// r.ID. The ingredient list is left alone.
func (s *Store) UpdateRecipe(ctx context.Context, r Recipe) (Recipe, error) {
	var out Recipe
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.UpdateRecipe(ctx, r)
		return err
	})
	return out, err
}

// Recipe returns the recipe with the given id.
func (s *Store) Recipe(ctx context.Context, id int64) (Recipe, error) {
	return getRecipe(ctx, s.db, "r.id = ?", id)
}

// Recipes returns every recipe ordered by title.
func (s *Store) Recipes(ctx context.Context) ([]Recipe, error) {
	return queryRecipes(ctx, s.db, " ORDER BY r.title, r.id")
}

// DeleteRecipe removes a recipe together with its ingredient list.
func (s *Store) DeleteRecipe(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM recipe WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete recipe %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete recipe %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("store: recipe %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateRecipe inserts a recipe inside the transaction.
func (t *Tx) CreateRecipe(ctx context.Context, r Recipe) (Recipe, error) {
	if r.UID == uuid.Nil {
		r.UID = uuid.New()
	}
	author, cuisine, err := t.recipeRefs(ctx, r)
	if err != nil {
		return Recipe{}, err
	}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO recipe
		(uid, title, description, instructions, notes, author_id, cuisine_id,
		 yields, yield_unit, url, rating, preparation_time, cooking_time, total_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UID.String(), r.Title, r.Description, r.Instructions, r.Notes, author, cuisine,
		r.Yields, r.YieldUnit, r.URL, nullInt(r.Rating),
		nullSeconds(r.PreparationTime), nullSeconds(r.CookingTime), nullSeconds(r.TotalTime))
	if err != nil {
		return Recipe{}, fmt.Errorf("store: insert recipe %q: %w", r.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Recipe{}, fmt.Errorf("store: insert recipe %q: %w", r.Title, err)
	}
	if err := t.setCategories(ctx, id, r.Categories); err != nil {
		return Recipe{}, err
	}
	return getRecipe(ctx, t.tx, "r.id = ?", id)
}

// UpdateRecipe rewrites a recipe's metadata inside the transaction and
// bumps its modification time. The uid never changes.
func (t *Tx) UpdateRecipe(ctx context.Context, r Recipe) (Recipe, error) {
	author, cuisine, err := t.recipeRefs(ctx, r)
	if err != nil {
		return Recipe{}, err
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE recipe SET
		title = ?, description = ?, instructions = ?, notes = ?, author_id = ?, cuisine_id = ?,
		yields = ?, yield_unit = ?, url = ?, rating = ?,
		preparation_time = ?, cooking_time = ?, total_time = ?,
		last_modified = CURRENT_TIMESTAMP
		WHERE id = ?`,
		r.Title, r.Description, r.Instructions, r.Notes, author, cuisine,
		r.Yields, r.YieldUnit, r.URL, nullInt(r.Rating),
		nullSeconds(r.PreparationTime), nullSeconds(r.CookingTime), nullSeconds(r.TotalTime),
		r.ID)
	if err != nil {
		return Recipe{}, fmt.Errorf("store: update recipe %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Recipe{}, fmt.Errorf("store: recipe %d: %w", r.ID, ErrNotFound)
	}
	if err := t.setCategories(ctx, r.ID, r.Categories); err != nil {
		return Recipe{}, err
	}
	return getRecipe(ctx, t.tx, "r.id = ?", r.ID)
}

// Touch updates a recipe's modification time.
func (t *Tx) Touch(ctx context.Context, recipeID int64) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE recipe SET last_modified = CURRENT_TIMESTAMP WHERE id = ?", recipeID)
	if err != nil {
		return fmt.Errorf("store: touch recipe %d: %w", recipeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: recipe %d: %w", recipeID, ErrNotFound)
	}
	return nil
}

// nameTable is a table of unique names a recipe refers to.
type nameTable string

const (
	authorTable   nameTable = "author"
	cuisineTable  nameTable = "cuisine"
	categoryTable nameTable = "category"
)

// nameID returns the id of name in table, adding the row when it is new.
// An empty name is NULL.
func (t *Tx) nameID(ctx context.Context, table nameTable, name string) (sql.NullInt64, error) {
	if name == "" {
		return sql.NullInt64{}, nil
	}
	var id int64
	err := t.tx.QueryRowContext(ctx, "SELECT id FROM "+string(table)+" WHERE name = ?", name).Scan(&id)
	if err == nil {
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return sql.NullInt64{}, fmt.Errorf("store: query %s %q: %w", table, name, err)
	}

	res, err := t.tx.ExecContext(ctx, "INSERT INTO "+string(table)+" (name) VALUES (?)", name)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("store: insert %s %q: %w", table, name, err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return sql.NullInt64{}, fmt.Errorf("store: insert %s %q: %w", table, name, err)
	}
	t.store.log.Debug("name added", "table", string(table), "name", name, "id", id)
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func (t *Tx) recipeRefs(ctx context.Context, r Recipe) (author, cuisine sql.NullInt64, err error) {
	if author, err = t.nameID(ctx, authorTable, strings.TrimSpace(r.Author)); err != nil {
		return
	}
	cuisine, err = t.nameID(ctx, cuisineTable, strings.TrimSpace(r.Cuisine))
	return
}

// setCategories replaces a recipe's categories. Blank and repeated names
// are dropped.
func (t *Tx) setCategories(ctx context.Context, recipeID int64, names []string) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM category_list WHERE recipe_id = ?", recipeID); err != nil {
		return fmt.Errorf("store: clear categories of recipe %d: %w", recipeID, err)
	}
	for _, name := range normalizeNames(names) {
		id, err := t.nameID(ctx, categoryTable, name)
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx,
			"INSERT INTO category_list (recipe_id, category_id) VALUES (?, ?)", recipeID, id.Int64); err != nil {
			return fmt.Errorf("store: add category %q to recipe %d: %w", name, recipeID, err)
		}
	}
	return nil
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

const recipeSelect = `SELECT r.id, r.uid, r.title, r.description, r.instructions, r.notes,
	COALESCE(a.name, ''), COALESCE(c.name, ''), r.yields, r.yield_unit, r.url, r.rating,
	r.preparation_time, r.cooking_time, r.total_time, r.last_modified
	FROM recipe r
	LEFT JOIN author a ON a.id = r.author_id
	LEFT JOIN cuisine c ON c.id = r.cuisine_id`

func getRecipe(ctx context.Context, q queryer, where string, arg any) (Recipe, error) {
	recipes, err := queryRecipes(ctx, q, " WHERE "+where, arg)
	if err != nil {
		return Recipe{}, err
	}
	if len(recipes) == 0 {
		return Recipe{}, fmt.Errorf("store: recipe %v: %w", arg, ErrNotFound)
	}
	return recipes[0], nil
}

// queryRecipes runs recipeSelect with clause appended and fills in the
// categories. The recipe rows are closed before the category query runs,
// since the store has a single connection.
func queryRecipes(ctx context.Context, q queryer, clause string, args ...any) ([]Recipe, error) {
	recipes, err := readRecipes(ctx, q, clause, args...)
	if err != nil || len(recipes) == 0 {
		return recipes, err
	}
	if err := attachCategories(ctx, q, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func readRecipes(ctx context.Context, q queryer, clause string, args ...any) ([]Recipe, error) {
	rows, err := q.QueryContext(ctx, recipeSelect+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query recipes: %w", err)
	}
	defer rows.Close()

	var result []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate recipes: %w", err)
	}
	return result, nil
}

func attachCategories(ctx context.Context, q queryer, recipes []Recipe) error {
	index := make(map[int64]int, len(recipes))
	for i, r := range recipes {
		index[r.ID] = i
	}
	query := `SELECT cl.recipe_id, c.name FROM category_list cl
		JOIN category c ON c.id = cl.category_id`
	var args []any
	if len(recipes) == 1 {
		query += " WHERE cl.recipe_id = ?"
		args = append(args, recipes[0].ID)
	}
	rows, err := q.QueryContext(ctx, query+" ORDER BY c.name", args...)
	if err != nil {
		return fmt.Errorf("store: query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("store: scan category: %w", err)
		}
		if i, ok := index[id]; ok {
			recipes[i].Categories = append(recipes[i].Categories, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate categories: %w", err)
	}
	return nil
}

func scanRecipe(rows *sql.Rows) (Recipe, error) {
	var (
		r       Recipe
		uid     string
		rating  sql.NullInt64
		prep    sql.NullInt64
		cooking sql.NullInt64
		total   sql.NullInt64
		ts      string
	)
	if err := rows.Scan(&r.ID, &uid, &r.Title, &r.Description, &r.Instructions, &r.Notes,
		&r.Author, &r.Cuisine, &r.Yields, &r.YieldUnit, &r.URL, &rating,
		&prep, &cooking, &total, &ts); err != nil {
		return Recipe{}, fmt.Errorf("store: scan recipe: %w", err)
	}
	parsed, err := uuid.Parse(uid)
	if err != nil {
		return Recipe{}, fmt.Errorf("store: recipe %d uid: %w", r.ID, err)
	}
	r.UID = parsed
	r.Rating = intPtr(rating)
	r.PreparationTime = secondsPtr(prep)
	r.CookingTime = secondsPtr(cooking)
	r.TotalTime = secondsPtr(total)
	if r.LastModified, err = parseTimestamp(ts); err != nil {
		return Recipe{}, fmt.Errorf("store: recipe %d timestamp: %w", r.ID, err)
	}
	return r, nil
}
