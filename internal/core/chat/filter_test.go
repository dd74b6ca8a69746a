package chat

import (
	"testing"

	"nori-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipeWithIngredients(title string, ingredients ...string) common.Recipe {
	recipe := common.Recipe{Title: title}
	for _, name := range ingredients {
		recipe.Ingredients = append(recipe.Ingredients, common.RecipeIngredient{Name: name})
	}
	return recipe
}

func TestFilterByAllergiesRemovesMatches(t *testing.T) {
	recipes := []common.Recipe{
		recipeWithIngredients("Peanut Butter Cookies", "flour", "peanut butter", "sugar"),
		recipeWithIngredients("Tomato Soup", "tomato", "basil"),
	}
	allergies := []common.Allergy{{Name: "peanut", Severity: common.SeveritySevere}}

	filtered := FilterByAllergies(recipes, allergies)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Tomato Soup", filtered[0].Title)
}

func TestFilterByAllergiesBidirectionalMatch(t *testing.T) {
	// 過敏原寫得比食材更具體時也要命中
	recipes := []common.Recipe{
		recipeWithIngredients("Satay Skewers", "chicken", "peanut"),
	}
	allergies := []common.Allergy{{Name: "peanut butter"}}

	filtered := FilterByAllergies(recipes, allergies)
	assert.Empty(t, filtered)
}

func TestFilterByAllergiesMatchesTitleAndDescription(t *testing.T) {
	recipes := []common.Recipe{
		{Title: "Shrimp Pad Thai", Description: "Classic noodle dish"},
	}
	allergies := []common.Allergy{{Name: "shrimp"}}

	assert.Empty(t, FilterByAllergies(recipes, allergies))
}

func TestFilterByAllergiesCaseInsensitive(t *testing.T) {
	recipes := []common.Recipe{
		recipeWithIngredients("Omelette", "Eggs", "butter"),
	}
	allergies := []common.Allergy{{Name: "EGG"}}

	assert.Empty(t, FilterByAllergies(recipes, allergies))
}

func TestFilterByAllergiesOverExclusion(t *testing.T) {
	// 子字串比對的已知代價："egg" 會連 "eggplant" 一起剔除
	recipes := []common.Recipe{
		recipeWithIngredients("Eggplant Parmesan", "eggplant", "tomato", "cheese"),
	}
	allergies := []common.Allergy{{Name: "egg"}}

	assert.Empty(t, FilterByAllergies(recipes, allergies))
}

func TestFilterByAllergiesNoAllergies(t *testing.T) {
	recipes := []common.Recipe{recipeWithIngredients("Anything", "everything")}
	assert.Len(t, FilterByAllergies(recipes, nil), 1)
}

func TestApplySubstitutionsAnnotatesSteps(t *testing.T) {
	recipes := []common.Recipe{
		{
			Title: "Mashed Potatoes",
			Steps: []common.RecipeStep{
				{Order: 1, Instruction: "Boil the potatoes until tender"},
				{Order: 2, Instruction: "Mash with butter and season"},
			},
		},
	}

	result := ApplySubstitutions(recipes, []common.DietaryPreference{common.DietVegan})
	require.Len(t, result, 1)
	assert.Empty(t, result[0].Steps[0].Notes)
	assert.Equal(t, "Use vegan butter or olive oil instead of butter", result[0].Steps[1].Notes)
}

func TestApplySubstitutionsKeepsRecipe(t *testing.T) {
	recipes := []common.Recipe{
		{
			Title: "Chicken Curry",
			Steps: []common.RecipeStep{{Order: 1, Instruction: "Brown the chicken pieces"}},
		},
	}

	result := ApplySubstitutions(recipes, []common.DietaryPreference{common.DietVegetarian})
	require.Len(t, result, 1)
	assert.Contains(t, result[0].Steps[0].Notes, "plant-based protein")
}

func TestApplySubstitutionsGlutenFree(t *testing.T) {
	recipes := []common.Recipe{
		{
			Title: "Stir-Fry",
			Steps: []common.RecipeStep{
				{Order: 1, Instruction: "Add soy sauce and toss the noodles"},
			},
		},
	}

	result := ApplySubstitutions(recipes, []common.DietaryPreference{common.DietGlutenFree})
	notes := result[0].Steps[0].Notes
	assert.Contains(t, notes, "tamari or coconut aminos")
	assert.Contains(t, notes, "gluten-free pasta or rice noodles")
}

func TestApplySubstitutionsIdempotent(t *testing.T) {
	recipes := []common.Recipe{
		{
			Title: "Alfredo",
			Steps: []common.RecipeStep{{Order: 1, Instruction: "Melt the butter in a pan"}},
		},
	}
	restrictions := []common.DietaryPreference{common.DietDairyFree}

	once := ApplySubstitutions(recipes, restrictions)
	twice := ApplySubstitutions(once, restrictions)
	assert.Equal(t, once[0].Steps[0].Notes, twice[0].Steps[0].Notes)
}

func TestApplySubstitutionsNoRestrictions(t *testing.T) {
	recipes := []common.Recipe{
		{
			Title: "Alfredo",
			Steps: []common.RecipeStep{{Order: 1, Instruction: "Melt the butter in a pan"}},
		},
	}

	result := ApplySubstitutions(recipes, nil)
	assert.Empty(t, result[0].Steps[0].Notes)
}
