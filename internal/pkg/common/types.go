package common

import (
	"time"
)

// Role 對話角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ConversationTurn 單輪對話訊息
// 每個 session 內 append-only，只取最近 N 筆作為模型上下文
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationState 對話衍生狀態
// followUpCount 上限為 2，達上限後 prompt 會強制模型直接提供食譜
type ConversationState struct {
	FollowUpCount int  `json:"follow_up_count"`
	StarchAsked   bool `json:"starch_asked"`
}

// DietaryPreference 飲食偏好（軟過濾：保留食譜，只附加替代建議）
type DietaryPreference string

const (
	DietVegetarian  DietaryPreference = "vegetarian"
	DietVegan       DietaryPreference = "vegan"
	DietDairyFree   DietaryPreference = "dairy-free"
	DietGlutenFree  DietaryPreference = "gluten-free"
	DietLowCarb     DietaryPreference = "low-carb"
	DietKeto        DietaryPreference = "keto"
	DietPaleo       DietaryPreference = "paleo"
	DietPescatarian DietaryPreference = "pescatarian"
)

// SkillLevel 烹飪技能等級
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// AllergySeverity 過敏嚴重程度
type AllergySeverity string

const (
	SeverityMild     AllergySeverity = "mild"
	SeverityModerate AllergySeverity = "moderate"
	SeveritySevere   AllergySeverity = "severe"
)

// Allergy 過敏原（硬過濾：含過敏原的食譜整筆剔除）
type Allergy struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Severity  AllergySeverity `json:"severity"`
	CreatedAt time.Time       `json:"created_at"`
}

// PantryCategory 食材櫃分類
type PantryCategory string

const (
	CategoryProduce   PantryCategory = "produce"
	CategoryDairy     PantryCategory = "dairy"
	CategoryMeat      PantryCategory = "meat"
	CategoryPoultry   PantryCategory = "poultry"
	CategorySeafood   PantryCategory = "seafood"
	CategoryGrains    PantryCategory = "grains"
	CategorySpices    PantryCategory = "spices"
	CategoryOils      PantryCategory = "oils"
	CategoryCanned    PantryCategory = "canned"
	CategoryFrozen    PantryCategory = "frozen"
	CategoryBaking    PantryCategory = "baking"
	CategoryBeverages PantryCategory = "beverages"
	CategoryOther     PantryCategory = "other"
)

// PantryCategories 合法分類列表（工具 schema 用）
var PantryCategories = []string{
	string(CategoryProduce), string(CategoryDairy), string(CategoryMeat),
	string(CategoryPoultry), string(CategorySeafood), string(CategoryGrains),
	string(CategorySpices), string(CategoryOils), string(CategoryCanned),
	string(CategoryFrozen), string(CategoryBaking), string(CategoryBeverages),
	string(CategoryOther),
}

// PantrySource 食材來源：使用者手動加入或模型從對話推斷
type PantrySource string

const (
	PantrySourceUser     PantrySource = "user"
	PantrySourceInferred PantrySource = "inferred"
)

// PantryItem 食材櫃項目
type PantryItem struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  PantryCategory `json:"category"`
	Source    PantrySource   `json:"source"`
	Confirmed bool           `json:"confirmed"`
	LastUsed  *time.Time     `json:"last_used,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// UserPreferences 使用者偏好設定
type UserPreferences struct {
	DietaryRestrictions []DietaryPreference `json:"dietary_restrictions"`
	PreferredCuisines   []string            `json:"preferred_cuisines"`
	SkillLevel          SkillLevel          `json:"skill_level"`
	MaxCookingTime      int                 `json:"max_cooking_time,omitempty"`
}

// UserProfile 使用者擴展資料（偏好、過敏原、食材櫃）
type UserProfile struct {
	ID          string          `json:"id"`
	Email       string          `json:"email,omitempty"`
	Locale      string          `json:"locale,omitempty"`
	Preferences UserPreferences `json:"preferences"`
	Allergies   []Allergy       `json:"allergies"`
	Pantry      []PantryItem    `json:"pantry"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RecipeIngredient 食譜食材
type RecipeIngredient struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Amount             float64 `json:"amount"`
	Unit               string  `json:"unit"`
	Notes              string  `json:"notes,omitempty"`
	IsSubstitution     bool    `json:"is_substitution,omitempty"`
	OriginalIngredient string  `json:"original_ingredient,omitempty"`
}

// RecipeStep 食譜步驟
type RecipeStep struct {
	ID          string `json:"id"`
	Order       int    `json:"order"`
	Instruction string `json:"instruction"`
	Duration    int    `json:"duration,omitempty"`
	Temperature int    `json:"temperature,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// RecipeSourceType 食譜來源類型
type RecipeSourceType string

const (
	RecipeSourceGenerated RecipeSourceType = "generated"
	RecipeSourceAdapted   RecipeSourceType = "adapted"
	RecipeSourceInspired  RecipeSourceType = "inspired"
)

// RecipeSource 食譜來源資訊
type RecipeSource struct {
	Type        RecipeSourceType `json:"type"`
	Attribution string           `json:"attribution,omitempty"`
	URL         string           `json:"url,omitempty"`
}

// Recipe 食譜
// 由 Response Parser 從模型輸出建立，Filter/Adapter 就地加註後交付；
// 交付給呼叫端後不得再修改
type Recipe struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Ingredients  []RecipeIngredient  `json:"ingredients"`
	Steps        []RecipeStep        `json:"steps"`
	PrepTime     int                 `json:"prep_time,omitempty"`
	CookTime     int                 `json:"cook_time,omitempty"`
	TotalTime    int                 `json:"total_time,omitempty"`
	Servings     int                 `json:"servings,omitempty"`
	DietaryTags  []DietaryPreference `json:"dietary_tags"`
	Allergens    []string            `json:"allergens"`
	Source       RecipeSource        `json:"source"`
	CreatedAt    time.Time           `json:"created_at"`
	QueryContext string              `json:"query_context,omitempty"`
}

// SavedRecipe 使用者收藏的食譜
type SavedRecipe struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id"`
	Recipe   Recipe     `json:"recipe"`
	SavedAt  time.Time  `json:"saved_at"`
	Notes    string     `json:"notes,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	Cooked   bool       `json:"cooked"`
	CookedAt *time.Time `json:"cooked_at,omitempty"`
	Rating   int        `json:"rating,omitempty"`
}

// ToolCallRecord 工具呼叫紀錄（回傳給呼叫端方便除錯）
type ToolCallRecord struct {
	Name   string `json:"name"`
	Result any    `json:"result"`
}

// OrchestrationResult 單輪協調結果
type OrchestrationResult struct {
	Text               string           `json:"text"`
	Recipes            []Recipe         `json:"recipes"`
	ToolCalls          []ToolCallRecord `json:"tool_calls,omitempty"`
	IsFollowUpQuestion bool             `json:"is_follow_up_question"`
}
