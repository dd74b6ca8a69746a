package recipe

import (
	"context"
	"testing"

	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryStore() *SavedStore {
	return NewSavedStore(&config.Config{
		Redis: config.RedisConfig{Enabled: false, KeyPrefix: "nori"},
	})
}

func sampleRecipe(id, title string) common.Recipe {
	return common.Recipe{
		ID:       id,
		Title:    title,
		Servings: 4,
		Source:   common.RecipeSource{Type: common.RecipeSourceGenerated},
	}
}

func TestListEmpty(t *testing.T) {
	store := memoryStore()

	saved, err := store.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSaveAndList(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()

	entry, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Fried Rice"), "weeknight favorite", []string{"quick"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "user-1", entry.UserID)
	assert.False(t, entry.SavedAt.IsZero())

	saved, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Fried Rice", saved[0].Recipe.Title)
	assert.Equal(t, "weeknight favorite", saved[0].Notes)
}

func TestSaveSameRecipeOverwrites(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()

	first, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Fried Rice"), "", nil)
	require.NoError(t, err)
	second, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Fried Rice v2"), "updated", nil)
	require.NoError(t, err)

	// 同一食譜保留原收藏識別碼與收藏時間
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.SavedAt.Unix(), second.SavedAt.Unix())

	saved, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Fried Rice v2", saved[0].Recipe.Title)
}

func TestGetNotFound(t *testing.T) {
	store := memoryStore()

	_, err := store.Get(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, common.ErrSavedRecipeNotFound)
}

func TestUpdateSetsCookedAtOnce(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()

	entry, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Stew"), "", nil)
	require.NoError(t, err)

	cooked := true
	updated, err := store.Update(ctx, "user-1", entry.ID, SavedUpdate{Cooked: &cooked})
	require.NoError(t, err)
	require.NotNil(t, updated.CookedAt)
	firstCookedAt := *updated.CookedAt

	// 再次標記不改寫首次烹煮時間
	updated, err = store.Update(ctx, "user-1", entry.ID, SavedUpdate{Cooked: &cooked})
	require.NoError(t, err)
	assert.Equal(t, firstCookedAt, *updated.CookedAt)
}

func TestUpdateRating(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()

	entry, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Stew"), "", nil)
	require.NoError(t, err)

	rating := 5
	notes := "family loved it"
	updated, err := store.Update(ctx, "user-1", entry.ID, SavedUpdate{Rating: &rating, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "family loved it", updated.Notes)
}

func TestRemove(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()

	entry, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Stew"), "", nil)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "user-1", entry.ID))
	assert.ErrorIs(t, store.Remove(ctx, "user-1", entry.ID), common.ErrSavedRecipeNotFound)

	saved, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestIsRecipeSaved(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()

	_, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Stew"), "", nil)
	require.NoError(t, err)

	saved, err := store.IsRecipeSaved(ctx, "user-1", "r1")
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = store.IsRecipeSaved(ctx, "user-1", "r2")
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestUsersAreIsolated(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()

	_, err := store.Save(ctx, "user-1", sampleRecipe("r1", "Stew"), "", nil)
	require.NoError(t, err)

	saved, err := store.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, saved)
}
