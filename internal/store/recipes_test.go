package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func durationOf(d time.Duration) *time.Duration { return &d }

func TestRecipeMetadataRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	rating := 9
	created, err := s.CreateRecipe(ctx, Recipe{
		Title:           "Dal makhani",
		Description:     "Slow black lentils",
		Instructions:    "Soak overnight. Simmer for hours.",
		Notes:           "Better on day two",
		Author:          " Grandmother ",
		Cuisine:         "Punjabi",
		Categories:      []string{"lentils", "Curry", "lentils", " "},
		Yields:          6,
		YieldUnit:       "servings",
		Rating:          &rating,
		PreparationTime: durationOf(20 * time.Minute),
		CookingTime:     durationOf(3 * time.Hour),
		TotalTime:       durationOf(11 * time.Hour),
	})
	require.NoError(t, err)

	got, err := s.Recipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grandmother", got.Author)
	assert.Equal(t, "Punjabi", got.Cuisine)
	assert.Equal(t, []string{"Curry", "lentils"}, got.Categories)
	assert.Equal(t, "Soak overnight. Simmer for hours.", got.Instructions)
	assert.Equal(t, "Better on day two", got.Notes)
	require.NotNil(t, got.PreparationTime)
	assert.Equal(t, 20*time.Minute, *got.PreparationTime)
	require.NotNil(t, got.CookingTime)
	assert.Equal(t, 3*time.Hour, *got.CookingTime)
	require.NotNil(t, got.TotalTime)
	assert.Equal(t, 11*time.Hour, *got.TotalTime)
}

func TestRecipeWithoutMetadata(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	r, err := s.CreateRecipe(ctx, Recipe{Title: "Toast"})
	require.NoError(t, err)
	assert.Empty(t, r.Author)
	assert.Empty(t, r.Cuisine)
	assert.Empty(t, r.Categories)
	assert.Nil(t, r.PreparationTime)
	assert.Nil(t, r.CookingTime)
	assert.Nil(t, r.TotalTime)
}

func TestRecipesShareAuthorsAndCategories(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	for _, title := range []string{"Ragù", "Gnocchi", "Panzanella"} {
		_, err := s.CreateRecipe(ctx, Recipe{
			Title: title, Author: "Marcella", Cuisine: "Italian", Categories: []string{"Italian classics"},
		})
		require.NoError(t, err)
	}

	for table, want := range map[string]int{"author": 1, "cuisine": 1, "category": 1, "category_list": 3} {
		var n int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Equal(t, want, n, table)
	}

	all, err := s.Recipes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, r := range all {
		assert.Equal(t, []string{"Italian classics"}, r.Categories, r.Title)
		assert.Equal(t, "Marcella", r.Author, r.Title)
	}
}

func TestUpdateRecipe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	r, err := s.CreateRecipe(ctx, Recipe{
		Title: "Shakshuka", Author: "Yotam", Categories: []string{"eggs", "brunch"},
	})
	require.NoError(t, err)

	r.Title = "Green shakshuka"
	r.Author = ""
	r.Cuisine = "Levantine"
	r.Categories = []string{"eggs", "vegetarian"}
	r.TotalTime = durationOf(35 * time.Minute)
	updated, err := s.UpdateRecipe(ctx, r)
	require.NoError(t, err)

	assert.Equal(t, r.UID, updated.UID)
	assert.Equal(t, "Green shakshuka", updated.Title)
	assert.Empty(t, updated.Author)
	assert.Equal(t, "Levantine", updated.Cuisine)
	assert.Equal(t, []string{"eggs", "vegetarian"}, updated.Categories)
	require.NotNil(t, updated.TotalTime)
	assert.Equal(t, 35*time.Minute, *updated.TotalTime)

	r.ID = 999
	_, err = s.UpdateRecipe(ctx, r)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecipeDropsCategoryLinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	r, err := s.CreateRecipe(ctx, Recipe{Title: "Kimchi", Categories: []string{"fermented"}})
	require.NoError(t, err)
	require.NoError(t, s.DeleteRecipe(ctx, r.ID))

	var links, categories int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM category_list").Scan(&links))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM category").Scan(&categories))
	assert.Zero(t, links)
	assert.Equal(t, 1, categories, "categories outlive their recipes")
}

func TestCategoryNameLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	long := make([]byte, 81)
	for i := range long {
		long[i] = 'x'
	}
	_, err := s.CreateRecipe(ctx, Recipe{Title: "Overlong", Categories: []string{string(long)}})
	require.Error(t, err)

	all, err := s.Recipes(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "a failed insert leaves no recipe behind")
}
