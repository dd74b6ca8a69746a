package chat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"nori-assistant/internal/pkg/common"
)

// 解析策略依序套用，任一策略成功即停止
var (
	fencedJSONPattern   = regexp.MustCompile("```json\\n([\\s\\S]*?)\\n```")
	embeddedJSONPattern = regexp.MustCompile(`\{[\s\S]*"recipes"[\s\S]*\[[\s\S]*\]`)
	headerTitlePattern  = regexp.MustCompile(`(?m)^#{2,}\s+(.+)$`)
	numberedPattern     = regexp.MustCompile(`(?m)^\d+\.\s+(.+)$`)
	bulletPattern       = regexp.MustCompile(`(?m)^[-*]\s+(.+)$`)
)

// maxRecipesPerResponse 單次回覆最多保留的食譜數
const maxRecipesPerResponse = 5

// ParseRecipeResponse 從模型回覆中抽出食譜列表
// 模型輸出格式不穩定，依序嘗試：fenced JSON 區塊、整段 JSON、
// 內嵌 recipes 物件、標題文字擷取，最後退回佔位食譜。
// 空白輸入回傳空列表，永不回傳錯誤
func ParseRecipeResponse(response string) []common.Recipe {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return []common.Recipe{}
	}

	// 策略一：fenced ```json 區塊
	if match := fencedJSONPattern.FindStringSubmatch(response); match != nil {
		if recipes := parseRecipeJSON(match[1]); recipes != nil {
			return recipes
		}
	}

	// 策略二：整段回覆就是 JSON
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if recipes := parseRecipeJSON(trimmed); recipes != nil {
			return recipes
		}
	}

	// 策略三：內嵌含 recipes 鍵的物件
	if match := embeddedJSONPattern.FindString(response); match != "" {
		if recipes := parseRecipeJSON(match); recipes != nil {
			return recipes
		}
	}

	// 策略四：從純文字擷取候選標題
	if recipes := extractRecipesFromText(response); len(recipes) > 0 {
		return recipes
	}

	// 策略五：完全解析失敗時保留原文供使用者閱讀
	common.LogDebug("無法從回覆解析食譜，改用佔位食譜")
	description := trimmed
	if len(description) > 500 {
		description = description[:500]
	}
	placeholder := common.Recipe{
		Title:       "Recipe Suggestions",
		Description: description,
		Servings:    4,
		Ingredients: []common.RecipeIngredient{},
		Steps:       []common.RecipeStep{},
		Source:      common.RecipeSource{Type: common.RecipeSourceGenerated},
	}
	return normalizeRecipeIDs([]common.Recipe{placeholder})
}

// parseRecipeJSON 解析 JSON 片段，接受裸陣列或 {recipes: [...]} 包裝
// 模型偶爾輸出未加引號的鍵，首次解析失敗時補引號重試一次
func parseRecipeJSON(fragment string) []common.Recipe {
	var raw any
	if err := common.ParseJSON(fragment, &raw); err != nil {
		if err := common.ParseJSON(common.QuoteJSONKeys(fragment), &raw); err != nil {
			return nil
		}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		wrapped, ok := v["recipes"].([]any)
		if !ok {
			return nil
		}
		items = wrapped
	default:
		return nil
	}

	recipes := make([]common.Recipe, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		recipes = append(recipes, normalizeRecipe(obj))
	}
	if len(recipes) == 0 {
		return nil
	}
	return normalizeRecipeIDs(recipes)
}

// normalizeRecipe 將寬鬆的模型輸出正規化為固定結構
// 容忍常見的欄位別名（name/title、instructions/steps、snake_case 時間欄位）
func normalizeRecipe(obj map[string]any) common.Recipe {
	recipe := common.Recipe{
		Title:       firstString(obj, "title", "name"),
		Description: firstString(obj, "description", "summary"),
		PrepTime:    firstInt(obj, "prepTime", "prep_time"),
		CookTime:    firstInt(obj, "cookTime", "cook_time"),
		TotalTime:   firstInt(obj, "totalTime", "total_time"),
		Servings:    firstInt(obj, "servings", "serves"),
		Source:      common.RecipeSource{Type: common.RecipeSourceGenerated},
	}
	if recipe.Title == "" {
		recipe.Title = "Untitled Recipe"
	}
	if recipe.TotalTime == 0 {
		recipe.TotalTime = recipe.PrepTime + recipe.CookTime
	}
	if recipe.Servings == 0 {
		recipe.Servings = 4
	}

	recipe.Ingredients = []common.RecipeIngredient{}
	if rawList, ok := obj["ingredients"].([]any); ok {
		for _, raw := range rawList {
			ing, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			amount := asFloat(ing["amount"])
			if amount == 0 {
				amount = 1
			}
			recipe.Ingredients = append(recipe.Ingredients, common.RecipeIngredient{
				Name:   asString(ing["name"]),
				Amount: amount,
				Unit:   asString(ing["unit"]),
				Notes:  asString(ing["notes"]),
			})
		}
	}

	recipe.Steps = []common.RecipeStep{}
	rawSteps, ok := obj["steps"].([]any)
	if !ok {
		rawSteps, _ = obj["instructions"].([]any)
	}
	for idx, raw := range rawSteps {
		switch step := raw.(type) {
		case map[string]any:
			order := asInt(step["order"])
			if order == 0 {
				order = idx + 1
			}
			recipe.Steps = append(recipe.Steps, common.RecipeStep{
				Order:       order,
				Instruction: asString(step["instruction"]),
				Duration:    asInt(step["duration"]),
				Notes:       asString(step["notes"]),
			})
		case string:
			recipe.Steps = append(recipe.Steps, common.RecipeStep{
				Order:       idx + 1,
				Instruction: step,
			})
		}
	}

	return recipe
}

// extractRecipesFromText 從 Markdown 標題、編號與項目符號列擷取食譜候選
func extractRecipesFromText(response string) []common.Recipe {
	var titles []string
	for _, pattern := range []*regexp.Regexp{headerTitlePattern, numberedPattern, bulletPattern} {
		for _, match := range pattern.FindAllStringSubmatch(response, -1) {
			titles = append(titles, strings.TrimSpace(match[1]))
		}
	}

	recipes := make([]common.Recipe, 0, maxRecipesPerResponse)
	for _, title := range titles {
		if !looksLikeRecipeTitle(title) {
			continue
		}
		recipes = append(recipes, common.Recipe{
			Title:       title,
			Description: "Recipe suggestion: " + title,
			Servings:    4,
			Ingredients: []common.RecipeIngredient{},
			Steps:       []common.RecipeStep{},
			Source:      common.RecipeSource{Type: common.RecipeSourceGenerated},
		})
		if len(recipes) == maxRecipesPerResponse {
			break
		}
	}
	if len(recipes) == 0 {
		return nil
	}
	return normalizeRecipeIDs(recipes)
}

// looksLikeRecipeTitle 過濾明顯不是食譜名稱的標題列
func looksLikeRecipeTitle(title string) bool {
	if len(title) <= 3 || len(title) >= 100 {
		return false
	}
	lower := strings.ToLower(title)
	for _, keyword := range []string{"ingredients", "instructions", "steps"} {
		if strings.Contains(lower, keyword) {
			return false
		}
	}
	return true
}

// normalizeRecipeIDs 補齊食譜、食材與步驟的合成識別碼
func normalizeRecipeIDs(recipes []common.Recipe) []common.Recipe {
	now := time.Now().UnixMilli()
	for i := range recipes {
		if recipes[i].ID == "" {
			recipes[i].ID = fmt.Sprintf("recipe_%d_%d", now, i)
		}
		for j := range recipes[i].Ingredients {
			if recipes[i].Ingredients[j].ID == "" {
				recipes[i].Ingredients[j].ID = fmt.Sprintf("ing_%d_%d", i, j)
			}
		}
		for j := range recipes[i].Steps {
			if recipes[i].Steps[j].ID == "" {
				recipes[i].Steps[j].ID = fmt.Sprintf("step_%d_%d", i, j)
			}
		}
	}
	return recipes
}

var (
	fencedJSONBlockPattern = regexp.MustCompile("```json[\\s\\S]*?```")
	fencedBlockPattern     = regexp.MustCompile("```[\\s\\S]*?```")
	bareObjectPattern      = regexp.MustCompile(`(?m)^\s*\{[\s\S]*\}\s*$`)
	bareArrayPattern       = regexp.MustCompile(`(?m)^\s*\[[\s\S]*\]\s*$`)
	recipeLeadInPattern    = regexp.MustCompile(`(?i)here (?:are|is)( the)?( \d+)? recipe(s)?( suggestions?)?( for you)?[:.!]?\s*$`)
)

// defaultRecipeText 文字被完全剝除後的預設回覆
const defaultRecipeText = "Here are some great recipe suggestions for you!"

// CleanTextResponse 移除回覆中的 JSON 與程式碼區塊，只留對話文字
// 剝除後若為空則回傳固定友善訊息，避免前端顯示空白泡泡
func CleanTextResponse(response string) string {
	text := fencedJSONBlockPattern.ReplaceAllString(response, "")
	text = fencedBlockPattern.ReplaceAllString(text, "")
	text = bareObjectPattern.ReplaceAllString(text, "")
	text = bareArrayPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = recipeLeadInPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultRecipeText
	}
	return text
}

// firstString 依序取出第一個非空字串欄位
func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

// firstInt 依序取出第一個非零整數欄位
func firstInt(obj map[string]any, keys ...string) int {
	for _, key := range keys {
		if n := asInt(obj[key]); n != 0 {
			return n
		}
	}
	return 0
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		var f float64
		fmt.Sscanf(n, "%f", &f)
		return f
	}
	return 0
}

func asInt(v any) int {
	return int(asFloat(v))
}
