package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nori-assistant/internal/core/ai/openai"
	"nori-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// ProfileStore 工具所需的使用者資料存取介面
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*common.UserProfile, error)
	SavePantryItem(ctx context.Context, userID string, item common.PantryItem) error
}

// Tool 單一模型工具的封閉介面
// 每個工具自帶 schema 與執行邏輯，Dispatcher 只負責路由
type Tool interface {
	Name() string
	Definition() openai.ToolDefinition
	Execute(ctx context.Context, args json.RawMessage, userID string) any
}

// Dispatcher 將模型的工具呼叫轉發給已註冊的工具
// 實作 openai.ToolExecutor；工具失敗一律回傳錯誤 payload 而非中斷對話
type Dispatcher struct {
	tools []Tool
}

// NewDispatcher 建立標準工具集的調度器
func NewDispatcher(store ProfileStore) *Dispatcher {
	return &Dispatcher{
		tools: []Tool{
			&pantryTool{store: store},
			&preferencesTool{store: store},
			&updatePantryTool{store: store},
		},
	}
}

// Definitions 回傳所有工具的 schema
func (d *Dispatcher) Definitions() []openai.ToolDefinition {
	defs := make([]openai.ToolDefinition, 0, len(d.tools))
	for _, t := range d.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Execute 依名稱路由工具呼叫
func (d *Dispatcher) Execute(ctx context.Context, name string, args json.RawMessage, userID string) any {
	for _, t := range d.tools {
		if t.Name() == name {
			common.LogDebug("執行工具呼叫",
				zap.String("tool", name),
				zap.String("user_id", userID),
			)
			return t.Execute(ctx, args, userID)
		}
	}
	common.LogWarn("未知的工具名稱", zap.String("tool", name))
	return map[string]any{"error": fmt.Sprintf("Unknown tool: %s", name)}
}

// pantryTool 回傳使用者已確認的食材清單
type pantryTool struct {
	store ProfileStore
}

func (t *pantryTool) Name() string { return "get_pantry" }

func (t *pantryTool) Definition() openai.ToolDefinition {
	return openai.ToolDefinition{
		Type: "function",
		Function: openai.FunctionSchema{
			Name:        "get_pantry",
			Description: "Get the user's confirmed pantry items (ingredients they have on hand)",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *pantryTool) Execute(ctx context.Context, _ json.RawMessage, userID string) any {
	profile, err := t.store.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		return map[string]any{"pantry": []any{}}
	}
	items := make([]map[string]any, 0, len(profile.Pantry))
	for _, item := range profile.Pantry {
		if !item.Confirmed {
			continue
		}
		items = append(items, map[string]any{
			"name":     item.Name,
			"category": item.Category,
		})
	}
	return map[string]any{"pantry": items}
}

// preferencesTool 回傳使用者的飲食偏好與過敏原
type preferencesTool struct {
	store ProfileStore
}

func (t *preferencesTool) Name() string { return "get_preferences" }

func (t *preferencesTool) Definition() openai.ToolDefinition {
	return openai.ToolDefinition{
		Type: "function",
		Function: openai.FunctionSchema{
			Name:        "get_preferences",
			Description: "Get the user's dietary preferences, restrictions, and allergies",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

func (t *preferencesTool) Execute(ctx context.Context, _ json.RawMessage, userID string) any {
	profile, err := t.store.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		return map[string]any{
			"preferences": map[string]any{
				"dietaryRestrictions": []any{},
				"preferredCuisines":   []any{},
				"skillLevel":          string(common.SkillIntermediate),
			},
			"allergies": []any{},
		}
	}
	allergies := make([]map[string]any, 0, len(profile.Allergies))
	for _, a := range profile.Allergies {
		allergies = append(allergies, map[string]any{
			"name":     a.Name,
			"severity": a.Severity,
		})
	}
	return map[string]any{
		"preferences": map[string]any{
			"dietaryRestrictions": profile.Preferences.DietaryRestrictions,
			"preferredCuisines":   profile.Preferences.PreferredCuisines,
			"skillLevel":          profile.Preferences.SkillLevel,
		},
		"allergies": allergies,
	}
}

// updatePantryTool 寫入模型從對話中推斷出的食材
// 寫入的項目標記為 inferred 且未確認，需使用者後續確認
type updatePantryTool struct {
	store ProfileStore
}

func (t *updatePantryTool) Name() string { return "update_pantry" }

func (t *updatePantryTool) Definition() openai.ToolDefinition {
	return openai.ToolDefinition{
		Type: "function",
		Function: openai.FunctionSchema{
			Name:        "update_pantry",
			Description: "Add ingredients the user mentioned having to their pantry",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type":        "array",
						"description": "Ingredients the user mentioned having on hand",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name": map[string]any{"type": "string"},
								"category": map[string]any{
									"type": "string",
									"enum": common.PantryCategories,
								},
							},
							"required": []string{"name", "category"},
						},
					},
				},
				"required": []string{"items"},
			},
		},
	}
}

type updatePantryArgs struct {
	Items []struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"items"`
}

func (t *updatePantryTool) Execute(ctx context.Context, args json.RawMessage, userID string) any {
	var parsed updatePantryArgs
	if err := common.ParseJSONBytes(args, &parsed); err != nil || len(parsed.Items) == 0 {
		return map[string]any{"success": false, "error": "Invalid items array"}
	}

	added := 0
	for _, item := range parsed.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		err := t.store.SavePantryItem(ctx, userID, common.PantryItem{
			Name:      name,
			Category:  common.PantryCategory(item.Category),
			Source:    common.PantrySourceInferred,
			Confirmed: false,
		})
		if err != nil {
			common.LogWarn("寫入推斷食材失敗",
				zap.String("user_id", userID),
				zap.String("item", name),
				zap.Error(err),
			)
			continue
		}
		added++
	}
	return map[string]any{"success": true, "itemsAdded": added}
}
