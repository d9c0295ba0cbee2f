package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papapumpkin/larder/internal/metrics"
	"github.com/papapumpkin/larder/internal/position"
	"github.com/papapumpkin/larder/internal/store"
	"github.com/papapumpkin/larder/internal/telemetry"
	"github.com/papapumpkin/larder/internal/tree"
)

type fixture struct {
	store    *store.Store
	recipeID int64
	lockDir  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	st, err := store.Open(ctx, filepath.Join(dir, "larder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	r, err := st.CreateRecipe(ctx, store.Recipe{Title: "Béchamel"})
	require.NoError(t, err)
	return fixture{store: st, recipeID: r.ID, lockDir: filepath.Join(dir, "locks")}
}

func (f fixture) open(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := Open(context.Background(), f.store, f.recipeID, f.lockDir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func positions(t *testing.T, s *Session) map[string]position.Position {
	t.Helper()
	tr, err := s.Tree(context.Background())
	require.NoError(t, err)
	out := make(map[string]position.Position, tr.Len())
	require.NoError(t, tr.Walk(func(n *tree.Node) error {
		out[n.Label] = n.Position
		return nil
	}))
	return out
}

func TestAddEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newFixture(t).open(t)

	sauce, err := s.AddGroup(ctx, "Sauce")
	require.NoError(t, err)
	milk, err := s.AddIngredient(ctx, sauce.ID, EntrySpec{Ingredient: "milk", Unit: "volume-milliliter"})
	require.NoError(t, err)
	cream, err := s.AddIngredient(ctx, milk.ID, EntrySpec{Ingredient: "cream"})
	require.NoError(t, err)
	half, err := s.AddIngredient(ctx, cream.ID, EntrySpec{Ingredient: "half and half"})
	require.NoError(t, err)
	salt, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: "salt", Optional: true})
	require.NoError(t, err)

	assert.Equal(t, position.Position(0), sauce.Position)
	assert.Equal(t, position.Position(10_000), milk.Position)
	assert.Equal(t, position.Position(10_100), cream.Position)
	assert.Equal(t, position.Position(10_101), half.Position)
	assert.Equal(t, position.Position(99_010_000), salt.Position)

	_, err = s.AddIngredient(ctx, half.ID, EntrySpec{Ingredient: "too deep"})
	assert.ErrorIs(t, err, position.ErrInvalidParent)

	_, err = s.AddIngredient(ctx, 4242, EntrySpec{Ingredient: "orphan"})
	assert.ErrorIs(t, err, tree.ErrNotFound)

	e, ok := s.Entry(salt.ID)
	require.True(t, ok)
	assert.True(t, e.Optional)
}

func TestOpenLocksRecipe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	first, err := Open(ctx, f.store, f.recipeID, f.lockDir)
	require.NoError(t, err)

	_, err = Open(ctx, f.store, f.recipeID, f.lockDir, WithLockTimeout(100*time.Millisecond))
	require.ErrorIs(t, err, ErrRecipeBusy)

	require.NoError(t, first.Close())
	second, err := Open(ctx, f.store, f.recipeID, f.lockDir, WithLockTimeout(time.Second))
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestOpenUnknownRecipe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := Open(context.Background(), f.store, f.recipeID+100, f.lockDir)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMoveReordersAndKeepsIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newFixture(t).open(t)

	milk, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: "milk"})
	require.NoError(t, err)
	water, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: "water"})
	require.NoError(t, err)

	changed, err := s.Move(ctx, water.ID, tree.Target{Parent: tree.Root, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	got := positions(t, s)
	assert.Equal(t, position.Position(99_010_000), got["water"])
	assert.Equal(t, position.Position(99_020_000), got["milk"])

	e, ok := s.Entry(milk.ID)
	require.True(t, ok)
	assert.Equal(t, milk.UID, e.UID)
}

func TestMoveIntoGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newFixture(t).open(t)

	sauce, err := s.AddGroup(ctx, "Sauce")
	require.NoError(t, err)
	milk, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: "milk"})
	require.NoError(t, err)
	_, err = s.AddIngredient(ctx, milk.ID, EntrySpec{Ingredient: "cream"})
	require.NoError(t, err)

	_, err = s.Move(ctx, milk.ID, tree.Target{Parent: sauce.ID, Index: -1})
	require.NoError(t, err)
	got := positions(t, s)
	assert.Equal(t, position.Position(10_000), got["milk"])
	assert.Equal(t, position.Position(10_100), got["cream"])

	// An entry with children keeps its level.
	salt, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: "salt"})
	require.NoError(t, err)
	_, err = s.Move(ctx, milk.ID, tree.Target{Parent: salt.ID})
	require.ErrorIs(t, err, tree.ErrIllegalMove)
	assert.Equal(t, got["milk"], positions(t, s)["milk"])
}

func TestRemoveClosesGap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newFixture(t).open(t)

	var ids []int64
	for _, name := range []string{"flour", "butter", "milk"} {
		e, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: name})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	_, err := s.AddIngredient(ctx, ids[0], EntrySpec{Ingredient: "rice flour"})
	require.NoError(t, err)

	removed, err := s.Remove(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	got := positions(t, s)
	assert.Equal(t, map[string]position.Position{"butter": 99_010_000, "milk": 99_020_000}, got)

	next, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: "nutmeg"})
	require.NoError(t, err)
	assert.Equal(t, position.Position(99_030_000), next.Position)
}

func TestLevelExhaustedLeavesTreeUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	s := newFixture(t).open(t, WithMetrics(m))

	parent, err := s.AddIngredient(ctx, tree.Root, EntrySpec{Ingredient: "stock"})
	require.NoError(t, err)
	for i := range position.MaxEntries {
		_, err := s.AddIngredient(ctx, parent.ID, EntrySpec{Ingredient: fmt.Sprintf("stock %d", i)})
		require.NoError(t, err)
	}

	_, err = s.AddIngredient(ctx, parent.ID, EntrySpec{Ingredient: "one more"})
	require.ErrorIs(t, err, position.ErrLevelExhausted)

	tr, err := s.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, position.MaxEntries+1, tr.Len())
}

func TestEventsEmitted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	em, err := telemetry.NewEmitter(path)
	require.NoError(t, err)
	s := newFixture(t).open(t, WithEvents(em))

	g, err := s.AddGroup(ctx, "Sauce")
	require.NoError(t, err)
	a, err := s.AddIngredient(ctx, g.ID, EntrySpec{Ingredient: "milk"})
	require.NoError(t, err)
	_, err = s.AddIngredient(ctx, g.ID, EntrySpec{Ingredient: "water"})
	require.NoError(t, err)
	_, err = s.Remove(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, em.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	events, err := telemetry.ReadEvents(f)
	require.NoError(t, err)

	var kinds []string
	for _, evt := range events {
		kinds = append(kinds, evt.Kind)
	}
	assert.Equal(t, []string{
		telemetry.KindGroupAllocated,
		telemetry.KindIngredientAllocated,
		telemetry.KindIngredientAllocated,
		telemetry.KindRenumbered,
		telemetry.KindEntriesRemoved,
	}, kinds)
}
