package profile

import (
	"context"
	"testing"

	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore 回傳未啟用 Redis 的儲存（記憶體模式）
func memoryStore() *Store {
	return NewStore(&config.Config{
		Redis: config.RedisConfig{Enabled: false, KeyPrefix: "nori"},
	})
}

func TestGetProfileMissingReturnsNil(t *testing.T) {
	store := memoryStore()

	profile, err := store.GetProfile(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestInitializeProfileDefaults(t *testing.T) {
	store := memoryStore()

	profile, err := store.InitializeProfile(context.Background(), "user-1", "cook@example.com", "en")
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, common.SkillIntermediate, profile.Preferences.SkillLevel)
	assert.Empty(t, profile.Allergies)
	assert.Empty(t, profile.Pantry)

	loaded, err := store.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "cook@example.com", loaded.Email)
}

func TestUpdatePreferencesMissingProfile(t *testing.T) {
	store := memoryStore()

	_, err := store.UpdatePreferences(context.Background(), "ghost", common.UserPreferences{})
	assert.ErrorIs(t, err, common.ErrProfileNotFound)
}

func TestSaveAllergyReplacesByName(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()
	_, err := store.InitializeProfile(ctx, "user-1", "", "")
	require.NoError(t, err)

	_, err = store.SaveAllergy(ctx, "user-1", "peanut", common.SeverityMild)
	require.NoError(t, err)
	profile, err := store.SaveAllergy(ctx, "user-1", "peanut", common.SeveritySevere)
	require.NoError(t, err)

	require.Len(t, profile.Allergies, 1)
	assert.Equal(t, common.SeveritySevere, profile.Allergies[0].Severity)
	assert.NotEmpty(t, profile.Allergies[0].ID)
}

func TestRemoveAllergy(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()
	_, err := store.InitializeProfile(ctx, "user-1", "", "")
	require.NoError(t, err)

	profile, err := store.SaveAllergy(ctx, "user-1", "shellfish", common.SeverityModerate)
	require.NoError(t, err)

	profile, err = store.RemoveAllergy(ctx, "user-1", profile.Allergies[0].ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Allergies)
}

func TestSavePantryItemOverwritesByName(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()
	_, err := store.InitializeProfile(ctx, "user-1", "", "")
	require.NoError(t, err)

	require.NoError(t, store.SavePantryItem(ctx, "user-1", common.PantryItem{
		Name: "rice", Category: common.CategoryGrains,
		Source: common.PantrySourceInferred, Confirmed: false,
	}))
	require.NoError(t, store.SavePantryItem(ctx, "user-1", common.PantryItem{
		Name: "rice", Category: common.CategoryGrains,
		Source: common.PantrySourceUser, Confirmed: true,
	}))

	profile, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, profile.Pantry, 1)
	assert.Equal(t, common.PantrySourceUser, profile.Pantry[0].Source)
	assert.True(t, profile.Pantry[0].Confirmed)
}

func TestConfirmPantryItem(t *testing.T) {
	store := memoryStore()
	ctx := context.Background()
	_, err := store.InitializeProfile(ctx, "user-1", "", "")
	require.NoError(t, err)

	require.NoError(t, store.SavePantryItem(ctx, "user-1", common.PantryItem{
		Name: "basil", Category: common.CategoryProduce,
		Source: common.PantrySourceInferred, Confirmed: false,
	}))

	profile, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)

	confirmed, err := store.ConfirmPantryItem(ctx, "user-1", profile.Pantry[0].ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Pantry[0].Confirmed)
	assert.NotNil(t, confirmed.Pantry[0].LastUsed)
}

func TestStoredProfilesAreIsolated(t *testing.T) {
	// 讀出的資料是獨立複本，修改不得影響儲存內容
	store := memoryStore()
	ctx := context.Background()
	_, err := store.InitializeProfile(ctx, "user-1", "", "")
	require.NoError(t, err)
	_, err = store.SaveAllergy(ctx, "user-1", "peanut", common.SeverityMild)
	require.NoError(t, err)

	first, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	first.Allergies[0].Name = "mutated"

	second, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "peanut", second.Allergies[0].Name)
}
