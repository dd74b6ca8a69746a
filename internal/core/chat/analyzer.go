package chat

import (
	"regexp"
	"strings"

	"nori-assistant/internal/pkg/common"
)

// 追問與食譜判斷用的啟發式 pattern
// 這是對自由文字的最佳努力掃描，不是精確解析：
// 例如食譜回覆裡的反問句會因為同時命中食譜特徵而不被計入，
// 但純聊天句偶爾仍可能誤判，呼叫端需容忍少量誤差
var (
	questionWordPattern  = regexp.MustCompile(`\b(what|which|do you|would you|can you|have you|are you|is there)\b`)
	timeIndicatorPattern = regexp.MustCompile(`\d+\s*(min|minute|hour|h)\b`)
	starchSidePattern    = regexp.MustCompile(`\b(what.*side|side.*dish|starch.*side)\b`)
)

// AnalyzeConversation 掃描歷史中的助手訊息，推導追問次數與澱粉主食詢問旗標
// 純函數：相同歷史必得相同結果，不依賴任何外部狀態
func AnalyzeConversation(history []common.ConversationTurn) common.ConversationState {
	state := common.ConversationState{}

	for _, turn := range history {
		if turn.Role != common.RoleAssistant {
			continue
		}
		content := strings.ToLower(turn.Content)

		if isFollowUpTurn(content) {
			state.FollowUpCount++
		}

		if mentionsStarch(content) {
			state.StarchAsked = true
		}
	}

	return state
}

// isFollowUpTurn 判斷一則（已轉小寫的）助手訊息是否為追問
// 問句（含 ? 或疑問詞）且不含食譜特徵才算；
// Session 提交對話輪時用同一判斷推進持久化狀態，
// 保證持久化狀態與重掃歷史的結果一致
func isFollowUpTurn(content string) bool {
	isQuestion := strings.Contains(content, "?") || questionWordPattern.MatchString(content)

	hasRecipes := strings.Contains(content, "recipe") ||
		strings.Contains(content, "```json") ||
		strings.Contains(content, "ingredients") ||
		timeIndicatorPattern.MatchString(content)

	return isQuestion && !hasRecipes
}

// mentionsStarch 是否提到澱粉主食或配菜問題
func mentionsStarch(content string) bool {
	return strings.Contains(content, "starch") ||
		strings.Contains(content, "rice") ||
		strings.Contains(content, "potato") ||
		strings.Contains(content, "pasta") ||
		starchSidePattern.MatchString(content)
}
