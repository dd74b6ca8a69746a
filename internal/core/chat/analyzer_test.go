package chat

import (
	"testing"

	"nori-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeConversationEmptyHistory(t *testing.T) {
	state := AnalyzeConversation(nil)
	assert.Equal(t, 0, state.FollowUpCount)
	assert.False(t, state.StarchAsked)
}

func TestAnalyzeConversationCountsFollowUps(t *testing.T) {
	history := []common.ConversationTurn{
		{Role: common.RoleUser, Content: "I have some chicken"},
		{Role: common.RoleAssistant, Content: "Do you have any vegetables on hand?"},
		{Role: common.RoleUser, Content: "Yes, broccoli and carrots"},
		{Role: common.RoleAssistant, Content: "Would you like rice or pasta as a side?"},
	}

	state := AnalyzeConversation(history)
	assert.Equal(t, 2, state.FollowUpCount)
	assert.True(t, state.StarchAsked)
}

func TestAnalyzeConversationIgnoresUserQuestions(t *testing.T) {
	history := []common.ConversationTurn{
		{Role: common.RoleUser, Content: "What can I cook tonight?"},
		{Role: common.RoleUser, Content: "Do you have ideas?"},
	}

	state := AnalyzeConversation(history)
	assert.Equal(t, 0, state.FollowUpCount)
}

func TestAnalyzeConversationRecipeReplyNotCounted(t *testing.T) {
	// 食譜回覆裡的反問句不算追問
	history := []common.ConversationTurn{
		{Role: common.RoleAssistant, Content: "Here is a stir-fry recipe, what do you think? Ingredients: chicken, broccoli."},
	}

	state := AnalyzeConversation(history)
	assert.Equal(t, 0, state.FollowUpCount)
}

func TestAnalyzeConversationTimeIndicatorMeansRecipe(t *testing.T) {
	history := []common.ConversationTurn{
		{Role: common.RoleAssistant, Content: "This dish takes 30 min, would you like to try it?"},
	}

	state := AnalyzeConversation(history)
	assert.Equal(t, 0, state.FollowUpCount)
}

func TestAnalyzeConversationDeterministic(t *testing.T) {
	history := []common.ConversationTurn{
		{Role: common.RoleUser, Content: "dinner ideas"},
		{Role: common.RoleAssistant, Content: "What protein do you have?"},
		{Role: common.RoleAssistant, Content: "Do you want potatoes with that?"},
	}

	first := AnalyzeConversation(history)
	second := AnalyzeConversation(history)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, first.FollowUpCount)
	assert.True(t, first.StarchAsked)
}

func TestMentionsStarch(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"would you like rice with that?", true},
		{"how about mashed potatoes?", true},
		{"pasta works great here", true},
		{"what side dish would you like?", true},
		{"do you have any garlic?", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mentionsStarch(tt.content), "content: %q", tt.content)
	}
}
