package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Session 單一使用者會話：對話歷史與衍生狀態
// turnLock 保證同一會話同時只處理一輪，後到的請求直接回 409
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time

	mu       sync.RWMutex
	turnLock sync.Mutex
	history  []common.ConversationTurn
	state    common.ConversationState
}

// History 回傳對話歷史的複本
func (s *Session) History() []common.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// State 回傳目前的對話狀態
func (s *Session) State() common.ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// window 取最近 n 筆對話作為模型上下文
func (s *Session) window(n int) []common.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && len(s.history) > n {
		start = len(s.history) - n
	}
	out := make([]common.ConversationTurn, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

// commitTurn 寫入完成的一輪並推進狀態
// 狀態推進用分析器的單則判斷（而非結果旗標，佔位食譜會讓旗標失真），
// 確保持久化狀態與 AnalyzeConversation 重掃完整歷史的結果一致；
// 追問次數上限為 maxFollowUps，助理提到澱粉主食後不再重複詢問
func (s *Session) commitTurn(userMessage string, result *common.OrchestrationResult, maxFollowUps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		common.ConversationTurn{Role: common.RoleUser, Content: userMessage},
		common.ConversationTurn{Role: common.RoleAssistant, Content: result.Text},
	)
	assistant := strings.ToLower(result.Text)
	if isFollowUpTurn(assistant) && s.state.FollowUpCount < maxFollowUps {
		s.state.FollowUpCount++
	}
	if !s.state.StarchAsked && mentionsStarch(assistant) {
		s.state.StarchAsked = true
	}
	s.UpdatedAt = time.Now()
}

// Manager 管理所有進行中的會話並驅動 Orchestrator
type Manager struct {
	config       *config.Config
	orchestrator *Orchestrator

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 建立會話管理器
func NewManager(cfg *config.Config, orchestrator *Orchestrator) *Manager {
	return &Manager{
		config:       cfg,
		orchestrator: orchestrator,
		sessions:     make(map[string]*Session),
	}
}

// sessionKey 同一使用者的不同裝置以 sessionID 區分
func sessionKey(userID, sessionID string) string {
	if sessionID == "" {
		return userID
	}
	return userID + ":" + sessionID
}

// getOrCreate 取得或建立會話
func (m *Manager) getOrCreate(userID, sessionID string) *Session {
	key := sessionKey(userID, sessionID)

	m.mu.RLock()
	session, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok {
		return session
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok = m.sessions[key]; ok {
		return session
	}
	session = &Session{
		ID:        key,
		UserID:    userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		history:   []common.ConversationTurn{},
	}
	m.sessions[key] = session
	common.LogDebug("建立新會話", zap.String("session", key))
	return session
}

// Converse 處理會話內的一輪對話
// 失敗的輪不寫入歷史，使用者可原訊息重試；
// 同會話併發請求以 TryLock 擋下，回傳 ErrTurnInFlight
func (m *Manager) Converse(ctx context.Context, userID, sessionID, userMessage string) (*common.OrchestrationResult, error) {
	session := m.getOrCreate(userID, sessionID)

	if !session.turnLock.TryLock() {
		common.LogWarn("會話已有進行中的輪", zap.String("session", session.ID))
		return nil, common.ErrTurnInFlight
	}
	defer session.turnLock.Unlock()

	history := session.window(m.config.Chat.HistoryWindow)
	state := session.State()

	result, err := m.orchestrator.Converse(ctx, userID, userMessage, history, state)
	if err != nil {
		return nil, err
	}

	session.commitTurn(userMessage, result, m.config.Chat.MaxFollowUps)
	return result, nil
}

// Reset 清空會話的歷史與狀態
func (m *Manager) Reset(userID, sessionID string) {
	key := sessionKey(userID, sessionID)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	common.LogInfo("會話已重設", zap.String("session", key))
}

// SessionCount 進行中的會話數（健康檢查用）
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
