package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseUnitsLoadedOnOpen(t *testing.T) {
	t.Parallel()
	s := testStore(t)

	tests := []struct {
		typ  UnitType
		name string
	}{
		{UnitQuantity, ""},
		{UnitMass, "mass-gram"},
		{UnitVolume, "volume-milliliter"},
		{UnitGroup, GroupUnit},
	}
	for _, tt := range tests {
		u, ok := s.Units().BaseUnit(tt.typ)
		require.True(t, ok, "type %d", tt.typ)
		assert.Equal(t, tt.name, u.Name)
		assert.Equal(t, tt.typ, u.Type)
		assert.NotZero(t, u.ID)
	}

	_, ok := s.Units().BaseUnit(UnitUnspecific)
	assert.False(t, ok, "unspecific units have no base")
}

func TestInsertEntryUsesBaseUnits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)
	r := testRecipe(t, s)

	var group, plain Entry
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		// A unit name on a group is ignored.
		if group, err = tx.InsertEntry(ctx, NewEntry{
			RecipeID: r.ID, Position: 0, Ingredient: "Sauce", Group: true, Unit: "cup",
		}); err != nil {
			return err
		}
		plain, err = tx.InsertEntry(ctx, NewEntry{RecipeID: r.ID, Position: 10_000, Ingredient: "egg"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, GroupUnit, group.Unit)
	assert.Equal(t, "", plain.Unit)

	_, ok := s.Units().Get("cup")
	assert.False(t, ok, "no unit is created for a group")

	entries, err := s.Entries(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, GroupUnit, entries[0].Unit)
	assert.Equal(t, "", entries[1].Unit)
}
