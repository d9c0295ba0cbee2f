// Package session edits one recipe's ingredient list at a time.
//
// Allocation reads the largest stored position and writes the next one, so
// two writers on the same recipe could hand out the same position. A
// Session holds an exclusive lock file for its recipe while it is open and
// runs every mutation in a single store transaction.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/papapumpkin/larder/internal/logging"
	"github.com/papapumpkin/larder/internal/metrics"
	"github.com/papapumpkin/larder/internal/position"
	"github.com/papapumpkin/larder/internal/store"
	"github.com/papapumpkin/larder/internal/telemetry"
	"github.com/papapumpkin/larder/internal/tree"
)

// ErrRecipeBusy indicates another session holds the recipe's lock.
var ErrRecipeBusy = errors.New("recipe is being edited elsewhere")

const lockRetry = 50 * time.Millisecond

// EntrySpec describes an ingredient to add.
type EntrySpec struct {
	Ingredient  string
	Name        string
	Unit        string
	Amount      *float64
	RangeAmount *float64
	Optional    bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithEvents sets the telemetry emitter.
func WithEvents(e *telemetry.Emitter) Option {
	return func(s *Session) { s.events = e }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLockTimeout bounds how long Open waits for the recipe lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Session) { s.lockTimeout = d }
}

// Session is an open edit session on one recipe. It is not safe for
// concurrent use.
type Session struct {
	store    *store.Store
	recipeID int64
	lock     *flock.Flock

	tree    *tree.Tree
	entries map[int64]store.Entry

	lockTimeout time.Duration
	log         *slog.Logger
	events      *telemetry.Emitter
	metrics     *metrics.Metrics
}

// Open locks recipeID and loads its ingredient list. Lock files live in
// lockDir, which is created when missing.
func Open(ctx context.Context, st *store.Store, recipeID int64, lockDir string, opts ...Option) (*Session, error) {
	s := &Session{
		store:       st,
		recipeID:    recipeID,
		lockTimeout: 5 * time.Second,
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create lock dir: %w", err)
	}
	path := filepath.Join(lockDir, "recipe-"+strconv.FormatInt(recipeID, 10)+".lock")
	s.lock = flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, lockRetry)
	if err != nil && (ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded)) {
		return nil, fmt.Errorf("session: lock recipe %d: %w", recipeID, err)
	}
	if !locked {
		return nil, fmt.Errorf("session: recipe %d: %w", recipeID, ErrRecipeBusy)
	}

	if _, err := st.Recipe(ctx, recipeID); err != nil {
		s.lock.Unlock() //nolint:errcheck // the lookup error is the one to report
		return nil, err
	}
	if err := s.reload(ctx); err != nil {
		s.lock.Unlock() //nolint:errcheck // the load error is the one to report
		return nil, err
	}
	s.log.Debug("session opened", "recipe", recipeID, "entries", s.tree.Len())
	return s, nil
}

// Close releases the recipe lock.
func (s *Session) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("session: unlock recipe %d: %w", s.recipeID, err)
	}
	return nil
}

// RecipeID returns the id of the edited recipe.
func (s *Session) RecipeID() int64 {
	return s.recipeID
}

// Tree reloads and returns the ingredient tree.
func (s *Session) Tree(ctx context.Context) (*tree.Tree, error) {
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s.tree, nil
}

// Entry returns the stored entry behind a tree node.
func (s *Session) Entry(id int64) (store.Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// AddGroup appends a group.
func (s *Session) AddGroup(ctx context.Context, name string) (store.Entry, error) {
	var added store.Entry
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		p, err := position.NewAllocator(tx).AllocateGroup(ctx, s.recipeID)
		if err != nil {
			s.exhausted(err, position.LevelGroup, position.None)
			return fmt.Errorf("session: add group %q: %w", name, err)
		}
		added, err = tx.InsertEntry(ctx, store.NewEntry{
			RecipeID:   s.recipeID,
			Position:   p,
			Ingredient: name,
			Group:      true,
		})
		if err != nil {
			return err
		}
		return tx.Touch(ctx, s.recipeID)
	})
	if err != nil {
		return store.Entry{}, err
	}

	s.allocated(telemetry.KindGroupAllocated, added)
	return added, s.reload(ctx)
}

// AddIngredient appends an ingredient below parent, an entry id or
// tree.Root. Below an ingredient it becomes an "or" alternative and below
// an alternative an "and" member.
func (s *Session) AddIngredient(ctx context.Context, parent int64, spec EntrySpec) (store.Entry, error) {
	parentPos := position.GlobalGroupPosition()
	if parent != tree.Root {
		n, ok := s.tree.Find(parent)
		if !ok {
			return store.Entry{}, fmt.Errorf("session: parent %d: %w", parent, tree.ErrNotFound)
		}
		parentPos = n.Position
	}

	var added store.Entry
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		p, err := position.NewAllocator(tx).AllocateIngredient(ctx, s.recipeID, parentPos)
		if err != nil {
			if child, ok := position.Classify(parentPos).Child(); ok {
				s.exhausted(err, child, parentPos)
			}
			return fmt.Errorf("session: add %q: %w", spec.Ingredient, err)
		}
		added, err = tx.InsertEntry(ctx, store.NewEntry{
			RecipeID:    s.recipeID,
			Position:    p,
			Ingredient:  spec.Ingredient,
			Name:        spec.Name,
			Unit:        spec.Unit,
			Amount:      spec.Amount,
			RangeAmount: spec.RangeAmount,
			Optional:    spec.Optional,
		})
		if err != nil {
			return err
		}
		return tx.Touch(ctx, s.recipeID)
	})
	if err != nil {
		return store.Entry{}, err
	}

	s.allocated(telemetry.KindIngredientAllocated, added)
	return added, s.reload(ctx)
}

// Move relocates an entry and renumbers the list to match the new shape.
// It returns the number of entries whose position changed.
func (s *Session) Move(ctx context.Context, id int64, target tree.Target) (int, error) {
	if err := s.tree.Move(id, target); err != nil {
		return 0, fmt.Errorf("session: move %d: %w", id, err)
	}
	changed, err := s.renumber(ctx, func(*store.Tx) error { return nil })
	if err != nil {
		return 0, fmt.Errorf("session: move %d: %w", id, err)
	}
	return changed, nil
}

// Remove deletes an entry with its subtree and closes the gap it leaves.
// It returns the removed entry ids.
func (s *Session) Remove(ctx context.Context, id int64) ([]int64, error) {
	removed, err := s.tree.Remove(id)
	if err != nil {
		return nil, fmt.Errorf("session: remove %d: %w", id, err)
	}
	_, err = s.renumber(ctx, func(tx *store.Tx) error {
		_, err := tx.DeleteEntries(ctx, s.recipeID, removed)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("session: remove %d: %w", id, err)
	}

	s.emit(telemetry.Event{
		Kind:     telemetry.KindEntriesRemoved,
		RecipeID: s.recipeID,
		EntryID:  id,
		Data:     map[string]any{"ids": removed},
	})
	return removed, nil
}

// renumber runs before, then writes the positions the in-memory tree
// implies, in one transaction. The tree is reloaded afterwards whatever
// the outcome, so a failed edit leaves it matching the store.
func (s *Session) renumber(ctx context.Context, before func(tx *store.Tx) error) (int, error) {
	assignments, err := s.tree.Assign()
	if err != nil {
		return 0, errors.Join(err, s.reload(ctx))
	}

	var changed int
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := before(tx); err != nil {
			return err
		}
		var err error
		if changed, err = position.Renumber(ctx, tx, assignments); err != nil {
			return err
		}
		return tx.Touch(ctx, s.recipeID)
	})
	if err != nil {
		return 0, errors.Join(err, s.reload(ctx))
	}

	s.metrics.Renumbered(changed)
	if changed > 0 {
		s.log.Info("renumbered", "recipe", s.recipeID, "changed", changed)
		s.emit(telemetry.Event{
			Kind:     telemetry.KindRenumbered,
			RecipeID: s.recipeID,
			Data:     map[string]int{"changed": changed},
		})
	}
	return changed, s.reload(ctx)
}

func (s *Session) reload(ctx context.Context) error {
	entries, err := s.store.Entries(ctx, s.recipeID)
	if err != nil {
		return err
	}
	items := make([]tree.Item, len(entries))
	byID := make(map[int64]store.Entry, len(entries))
	for i, e := range entries {
		items[i] = tree.Item{ID: e.ID, Position: e.Position, Label: e.Label()}
		byID[e.ID] = e
	}
	t, err := tree.Build(items)
	if err != nil {
		return fmt.Errorf("session: load recipe %d: %w", s.recipeID, err)
	}
	s.tree, s.entries = t, byID
	return nil
}

func (s *Session) allocated(kind string, e store.Entry) {
	level := position.Classify(e.Position).String()
	s.metrics.Allocated(level)
	s.log.Debug("position allocated", "recipe", s.recipeID, "entry", e.ID, "position", e.Position.String(), "level", level)
	s.emit(telemetry.Event{
		Kind:     kind,
		RecipeID: s.recipeID,
		EntryID:  e.ID,
		Data:     map[string]any{"position": int(e.Position), "level": level},
	})
}

func (s *Session) exhausted(err error, level position.Level, parent position.Position) {
	if !errors.Is(err, position.ErrLevelExhausted) {
		return
	}
	s.metrics.Exhausted(level.String())
	s.log.Warn("level exhausted", "recipe", s.recipeID, "level", level.String(), "parent", int(parent))
	s.emit(telemetry.Event{
		Kind:     telemetry.KindLevelExhausted,
		RecipeID: s.recipeID,
		Data:     map[string]any{"level": level.String(), "parent": int(parent)},
	})
}

func (s *Session) emit(evt telemetry.Event) {
	if err := s.events.Emit(evt); err != nil {
		s.log.Warn("telemetry emit failed", "kind", evt.Kind, "error", err)
	}
}
