// Package recipe 收藏食譜相關的 HTTP 處理器
package recipe

import (
	"errors"
	"net/http"

	recipecore "nori-assistant/internal/core/recipe"
	"nori-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 收藏食譜處理器
type Handler struct {
	store *recipecore.SavedStore
}

// NewHandler 創建收藏食譜處理器
func NewHandler(store *recipecore.SavedStore) *Handler {
	return &Handler{store: store}
}

// List 列出使用者的收藏
func (h *Handler) List(c *gin.Context) {
	saved, err := h.store.List(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// SaveRequest 收藏食譜請求
type SaveRequest struct {
	Recipe common.Recipe `json:"recipe" binding:"required"`
	Notes  string        `json:"notes"`
	Tags   []string      `json:"tags"`
}

// Save 收藏一筆食譜
func (h *Handler) Save(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Recipe.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Message,
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	saved, err := h.store.Save(c.Request.Context(), c.Param("userID"), req.Recipe, req.Notes, req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// Update 更新收藏項目（筆記、標籤、已煮、評分）
func (h *Handler) Update(c *gin.Context) {
	var update recipecore.SavedUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Message,
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	saved, err := h.store.Update(c.Request.Context(), c.Param("userID"), c.Param("savedID"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Remove 移除收藏
func (h *Handler) Remove(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("userID"), c.Param("savedID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func respondError(c *gin.Context, err error) {
	var customErr *common.CustomError
	if errors.As(err, &customErr) {
		c.JSON(customErr.Status, gin.H{
			"error": customErr.Message,
			"code":  customErr.Code,
		})
		return
	}
	common.LogError("收藏食譜操作失敗", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": common.ErrInternalError.Message,
		"code":  common.ErrCodeInternalError,
	})
}
