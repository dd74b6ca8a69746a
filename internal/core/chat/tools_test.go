package chat

import (
	"context"
	"encoding/json"
	"testing"

	"nori-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProfileStore 模擬使用者資料儲存
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, userID string) (*common.UserProfile, error) {
	args := m.Called(ctx, userID)
	if profile := args.Get(0); profile != nil {
		return profile.(*common.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) SavePantryItem(ctx context.Context, userID string, item common.PantryItem) error {
	args := m.Called(ctx, userID, item)
	return args.Error(0)
}

func testProfile() *common.UserProfile {
	return &common.UserProfile{
		ID: "user-1",
		Preferences: common.UserPreferences{
			DietaryRestrictions: []common.DietaryPreference{common.DietVegetarian},
			PreferredCuisines:   []string{"thai"},
			SkillLevel:          common.SkillAdvanced,
		},
		Allergies: []common.Allergy{
			{ID: "a1", Name: "peanut", Severity: common.SeveritySevere},
		},
		Pantry: []common.PantryItem{
			{ID: "p1", Name: "rice", Category: common.CategoryGrains, Confirmed: true},
			{ID: "p2", Name: "basil", Category: common.CategoryProduce, Confirmed: false},
		},
	}
}

func TestDispatcherDefinitions(t *testing.T) {
	dispatcher := NewDispatcher(new(MockProfileStore))

	defs := dispatcher.Definitions()
	require.Len(t, defs, 3)

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		assert.Equal(t, "function", def.Type)
		names = append(names, def.Function.Name)
	}
	assert.ElementsMatch(t, []string{"get_pantry", "get_preferences", "update_pantry"}, names)
}

func TestDispatcherUnknownTool(t *testing.T) {
	dispatcher := NewDispatcher(new(MockProfileStore))

	result := dispatcher.Execute(context.Background(), "get_weather", nil, "user-1")
	payload, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Unknown tool: get_weather", payload["error"])
}

func TestGetPantryReturnsConfirmedOnly(t *testing.T) {
	store := new(MockProfileStore)
	store.On("GetProfile", mock.Anything, "user-1").Return(testProfile(), nil)
	dispatcher := NewDispatcher(store)

	result := dispatcher.Execute(context.Background(), "get_pantry", nil, "user-1")
	payload := result.(map[string]any)
	items := payload["pantry"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "rice", items[0]["name"])
}

func TestGetPantryNoProfile(t *testing.T) {
	store := new(MockProfileStore)
	store.On("GetProfile", mock.Anything, "ghost").Return(nil, nil)
	dispatcher := NewDispatcher(store)

	result := dispatcher.Execute(context.Background(), "get_pantry", nil, "ghost")
	payload := result.(map[string]any)
	assert.Empty(t, payload["pantry"])
}

func TestGetPreferences(t *testing.T) {
	store := new(MockProfileStore)
	store.On("GetProfile", mock.Anything, "user-1").Return(testProfile(), nil)
	dispatcher := NewDispatcher(store)

	result := dispatcher.Execute(context.Background(), "get_preferences", nil, "user-1")
	payload := result.(map[string]any)

	prefs := payload["preferences"].(map[string]any)
	assert.Equal(t, common.SkillAdvanced, prefs["skillLevel"])
	allergies := payload["allergies"].([]map[string]any)
	require.Len(t, allergies, 1)
	assert.Equal(t, "peanut", allergies[0]["name"])
}

func TestGetPreferencesDefaultsWithoutProfile(t *testing.T) {
	store := new(MockProfileStore)
	store.On("GetProfile", mock.Anything, "ghost").Return(nil, nil)
	dispatcher := NewDispatcher(store)

	result := dispatcher.Execute(context.Background(), "get_preferences", nil, "ghost")
	payload := result.(map[string]any)

	prefs := payload["preferences"].(map[string]any)
	assert.Equal(t, string(common.SkillIntermediate), prefs["skillLevel"])
	assert.Empty(t, payload["allergies"])
}

func TestUpdatePantryMarksInferred(t *testing.T) {
	store := new(MockProfileStore)
	store.On("SavePantryItem", mock.Anything, "user-1", mock.MatchedBy(func(item common.PantryItem) bool {
		return item.Source == common.PantrySourceInferred && !item.Confirmed
	})).Return(nil)
	dispatcher := NewDispatcher(store)

	args := json.RawMessage(`{"items": [{"name": "garlic", "category": "produce"}, {"name": "cumin", "category": "spices"}]}`)
	result := dispatcher.Execute(context.Background(), "update_pantry", args, "user-1")

	payload := result.(map[string]any)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, 2, payload["itemsAdded"])
	store.AssertNumberOfCalls(t, "SavePantryItem", 2)
}

func TestUpdatePantryInvalidArgs(t *testing.T) {
	dispatcher := NewDispatcher(new(MockProfileStore))

	tests := []json.RawMessage{
		json.RawMessage(`{"items": "not an array"}`),
		json.RawMessage(`{"items": []}`),
		json.RawMessage(`not json`),
	}
	for _, args := range tests {
		result := dispatcher.Execute(context.Background(), "update_pantry", args, "user-1")
		payload := result.(map[string]any)
		assert.Equal(t, false, payload["success"])
		assert.Equal(t, "Invalid items array", payload["error"])
	}
}

func TestUpdatePantrySkipsBlankNames(t *testing.T) {
	store := new(MockProfileStore)
	store.On("SavePantryItem", mock.Anything, "user-1", mock.Anything).Return(nil)
	dispatcher := NewDispatcher(store)

	args := json.RawMessage(`{"items": [{"name": "  ", "category": "other"}, {"name": "salt", "category": "spices"}]}`)
	result := dispatcher.Execute(context.Background(), "update_pantry", args, "user-1")

	payload := result.(map[string]any)
	assert.Equal(t, 1, payload["itemsAdded"])
	store.AssertNumberOfCalls(t, "SavePantryItem", 1)
}
