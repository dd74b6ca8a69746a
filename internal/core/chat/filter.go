package chat

import (
	"strings"

	"nori-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// FilterByAllergies 過敏原硬過濾：任何命中過敏原的食譜直接剔除
// 比對採雙向不分大小寫子字串（"peanut" 命中 "peanut butter"，
// 反向亦然），寧可錯殺不可放過；"egg" 因此也會剔除 "eggplant"，
// 這是已知且接受的過度排除
func FilterByAllergies(recipes []common.Recipe, allergies []common.Allergy) []common.Recipe {
	if len(allergies) == 0 {
		return recipes
	}

	kept := make([]common.Recipe, 0, len(recipes))
	for _, recipe := range recipes {
		if allergen := findAllergen(recipe, allergies); allergen != "" {
			common.LogInfo("食譜因過敏原被剔除",
				zap.String("recipe", recipe.Title),
				zap.String("allergen", allergen),
			)
			continue
		}
		kept = append(kept, recipe)
	}
	return kept
}

// findAllergen 回傳食譜命中的第一個過敏原名稱，未命中回傳空字串
func findAllergen(recipe common.Recipe, allergies []common.Allergy) string {
	haystacks := make([]string, 0, len(recipe.Ingredients)+len(recipe.Allergens)+1)
	for _, ing := range recipe.Ingredients {
		haystacks = append(haystacks, strings.ToLower(ing.Name))
	}
	for _, a := range recipe.Allergens {
		haystacks = append(haystacks, strings.ToLower(a))
	}
	haystacks = append(haystacks,
		strings.ToLower(recipe.Title+" "+recipe.Description))

	for _, allergy := range allergies {
		needle := strings.ToLower(strings.TrimSpace(allergy.Name))
		if needle == "" {
			continue
		}
		for _, hay := range haystacks {
			if hay == "" {
				continue
			}
			if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
				return allergy.Name
			}
		}
	}
	return ""
}

// substitutionRule 單一偏好對應的食材替換規則
type substitutionRule struct {
	restrictions []common.DietaryPreference
	triggers     []string
	note         string
}

// substitutionRules 偏好軟過濾規則表
// 規則只加註解不改食材，由使用者自行決定是否採用
var substitutionRules = []substitutionRule{
	{
		restrictions: []common.DietaryPreference{common.DietVegan, common.DietDairyFree},
		triggers:     []string{"butter"},
		note:         "Use vegan butter or olive oil instead of butter",
	},
	{
		restrictions: []common.DietaryPreference{common.DietVegan, common.DietDairyFree},
		triggers:     []string{"milk", "cream"},
		note:         "Use plant-based milk (oat, soy, almond) instead of dairy",
	},
	{
		restrictions: []common.DietaryPreference{common.DietVegan, common.DietDairyFree},
		triggers:     []string{"cheese"},
		note:         "Use a plant-based cheese alternative or nutritional yeast",
	},
	{
		restrictions: []common.DietaryPreference{common.DietVegetarian, common.DietVegan},
		triggers:     []string{"chicken", "beef", "pork", "bacon", "sausage", "meat"},
		note:         "Use tofu, tempeh, or plant-based protein instead of meat",
	},
	{
		restrictions: []common.DietaryPreference{common.DietGlutenFree},
		triggers:     []string{"flour", "bread"},
		note:         "Use a gluten-free flour blend instead of wheat flour",
	},
	{
		restrictions: []common.DietaryPreference{common.DietGlutenFree},
		triggers:     []string{"pasta", "noodles"},
		note:         "Use gluten-free pasta or rice noodles",
	},
	{
		restrictions: []common.DietaryPreference{common.DietGlutenFree},
		triggers:     []string{"soy sauce"},
		note:         "Use tamari or coconut aminos instead of soy sauce",
	},
}

// ApplySubstitutions 偏好軟過濾：在命中受限食材的步驟加上替換建議
// 食譜本身保留，重複套用不會堆疊相同註記
func ApplySubstitutions(recipes []common.Recipe, restrictions []common.DietaryPreference) []common.Recipe {
	if len(restrictions) == 0 {
		return recipes
	}

	active := make(map[common.DietaryPreference]bool, len(restrictions))
	for _, r := range restrictions {
		active[r] = true
	}

	for i := range recipes {
		for _, rule := range substitutionRules {
			if !rule.applies(active) {
				continue
			}
			annotateSteps(&recipes[i], rule)
		}
	}
	return recipes
}

func (r substitutionRule) applies(active map[common.DietaryPreference]bool) bool {
	for _, restriction := range r.restrictions {
		if active[restriction] {
			return true
		}
	}
	return false
}

// annotateSteps 在提及受限食材的步驟附上規則的替換註記
func annotateSteps(recipe *common.Recipe, rule substitutionRule) {
	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		instruction := strings.ToLower(step.Instruction)
		hit := false
		for _, trigger := range rule.triggers {
			if strings.Contains(instruction, trigger) {
				hit = true
				break
			}
		}
		if !hit || strings.Contains(step.Notes, rule.note) {
			continue
		}
		if step.Notes == "" {
			step.Notes = rule.note
		} else {
			step.Notes = step.Notes + ". " + rule.note
		}
	}
}
