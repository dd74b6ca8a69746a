// Package chat 對話相關的 HTTP 處理器
package chat

import (
	"errors"
	"net/http"

	chatcore "nori-assistant/internal/core/chat"
	"nori-assistant/internal/core/voice"
	"nori-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 對話處理器
type Handler struct {
	manager *chatcore.Manager
}

// NewHandler 創建對話處理器
func NewHandler(manager *chatcore.Manager) *Handler {
	return &Handler{manager: manager}
}

// ConverseRequest 單輪對話請求
type ConverseRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
	Language  string `json:"language"` // 客戶端語系，目前僅接受不處理
	Source    string `json:"source"`   // "text"（預設）或 "voice"
}

// ConverseResponse 單輪對話回應
type ConverseResponse struct {
	Text               string                  `json:"text"`
	Recipes            []common.Recipe         `json:"recipes"`
	ToolCalls          []common.ToolCallRecord `json:"tool_calls,omitempty"`
	IsFollowUpQuestion bool                    `json:"isFollowUpQuestion"`
}

// Converse 處理一輪對話
// source 為 voice 時先做喚醒詞判斷與清理；
// 不該處理的轉錄文字（背景雜音、對旁人說話）回 204
func (h *Handler) Converse(c *gin.Context) {
	var req ConverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Message,
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	message := req.Message
	if req.Source == "voice" {
		if !voice.ShouldProcessTranscript(message, false) {
			common.LogDebug("忽略非指令語音轉錄",
				zap.String("user_id", req.UserID),
			)
			c.Status(http.StatusNoContent)
			return
		}
		message = voice.CleanTranscript(message)
		if message == "" {
			c.Status(http.StatusNoContent)
			return
		}
	}

	result, err := h.manager.Converse(c.Request.Context(), req.UserID, req.SessionID, message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ConverseResponse{
		Text:               result.Text,
		Recipes:            result.Recipes,
		ToolCalls:          result.ToolCalls,
		IsFollowUpQuestion: result.IsFollowUpQuestion,
	})
}

// ResetRequest 重設會話請求
type ResetRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
}

// Reset 清空會話歷史與狀態
func (h *Handler) Reset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Message,
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	h.manager.Reset(req.UserID, req.SessionID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// respondError 將業務錯誤映射到 HTTP 回應
func respondError(c *gin.Context, err error) {
	var customErr *common.CustomError
	if errors.As(err, &customErr) {
		c.JSON(customErr.Status, gin.H{
			"error": customErr.Message,
			"code":  customErr.Code,
		})
		return
	}
	common.LogError("對話處理失敗", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": common.ErrInternalError.Message,
		"code":  common.ErrCodeInternalError,
	})
}
