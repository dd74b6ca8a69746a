package chat

import (
	"context"
	"strings"

	"nori-assistant/internal/core/ai/openai"
	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Orchestrator 對話核心：組 prompt、呼叫模型、解析並過濾食譜
type Orchestrator struct {
	config     *config.Config
	client     *openai.Client
	store      ProfileStore
	dispatcher *Dispatcher
}

// NewOrchestrator 建立對話協調器
func NewOrchestrator(cfg *config.Config, client *openai.Client, store ProfileStore) *Orchestrator {
	return &Orchestrator{
		config:     cfg,
		client:     client,
		store:      store,
		dispatcher: NewDispatcher(store),
	}
}

// Converse 處理單輪對話，history 為去除本輪訊息的既有對話
// 對話狀態（追問次數、澱粉主食是否已問）由 state 傳入；
// 呼叫端若無持久化狀態可用 AnalyzeConversation 從 history 推回
func (o *Orchestrator) Converse(
	ctx context.Context,
	userID string,
	userMessage string,
	history []common.ConversationTurn,
	state common.ConversationState,
) (*common.OrchestrationResult, error) {
	if !o.client.IsConfigured() {
		return nil, common.ErrAINotConfigured
	}

	// 個人資料讀取失敗時降級為無偏好對話，不中斷本輪
	profile, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		common.LogWarn("讀取使用者資料失敗，改用無偏好對話",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		profile = nil
	}

	messages := make([]openai.Message, 0, len(history)+2)
	messages = append(messages, openai.Message{
		Role:    common.RoleSystem,
		Content: BuildSystemPrompt(state.FollowUpCount, state.StarchAsked, profile),
	})
	for _, turn := range history {
		messages = append(messages, openai.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, openai.Message{Role: common.RoleUser, Content: userMessage})

	raw, toolCalls, err := o.client.CompleteWithTools(ctx, messages, o.dispatcher, userID)
	if err != nil {
		return nil, err
	}

	recipes := ParseRecipeResponse(raw)
	if profile != nil {
		recipes = FilterByAllergies(recipes, profile.Allergies)
		recipes = ApplySubstitutions(recipes, profile.Preferences.DietaryRestrictions)
	}
	if max := o.config.Chat.MaxRecipes; max > 0 && len(recipes) > max {
		recipes = recipes[:max]
	}

	text := CleanTextResponse(raw)

	result := &common.OrchestrationResult{
		Text:               text,
		Recipes:            recipes,
		ToolCalls:          toolCalls,
		IsFollowUpQuestion: isFollowUpQuestion(text, recipes),
	}

	common.LogInfo("對話輪完成",
		zap.String("user_id", userID),
		zap.Int("recipe_count", len(result.Recipes)),
		zap.Int("tool_calls", len(result.ToolCalls)),
		zap.Bool("follow_up", result.IsFollowUpQuestion),
	)
	return result, nil
}

// isFollowUpQuestion 無食譜且文字以問句收尾才算追問
func isFollowUpQuestion(text string, recipes []common.Recipe) bool {
	if len(recipes) > 0 {
		return false
	}
	trimmed := strings.TrimSpace(text)
	return strings.Contains(trimmed, "?") || strings.HasSuffix(trimmed, "?")
}
