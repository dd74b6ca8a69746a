// Package profile 使用者資料相關的 HTTP 處理器
package profile

import (
	"errors"
	"net/http"

	profilecore "nori-assistant/internal/core/profile"
	"nori-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 使用者資料處理器
type Handler struct {
	store *profilecore.Store
}

// NewHandler 創建使用者資料處理器
func NewHandler(store *profilecore.Store) *Handler {
	return &Handler{store: store}
}

// GetProfile 讀取使用者資料
// 首次存取時自動以預設值建立，App 端不需要獨立的註冊流程
func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.Param("userID")

	profile, err := h.store.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if profile == nil {
		profile, err = h.store.InitializeProfile(c.Request.Context(), userID, "", "")
		if err != nil {
			respondError(c, err)
			return
		}
		common.LogInfo("已建立新的使用者資料", zap.String("user_id", userID))
	}

	c.JSON(http.StatusOK, profile)
}

// UpdatePreferences 更新飲食偏好
func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID := c.Param("userID")

	var prefs common.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		respondInvalid(c)
		return
	}

	profile, err := h.store.UpdatePreferences(c.Request.Context(), userID, prefs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// AddAllergyRequest 新增過敏原請求
type AddAllergyRequest struct {
	Name     string                 `json:"name" binding:"required"`
	Severity common.AllergySeverity `json:"severity"`
}

// AddAllergy 新增過敏原
func (h *Handler) AddAllergy(c *gin.Context) {
	userID := c.Param("userID")

	var req AddAllergyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c)
		return
	}
	if req.Severity == "" {
		req.Severity = common.SeverityModerate
	}

	profile, err := h.store.SaveAllergy(c.Request.Context(), userID, req.Name, req.Severity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RemoveAllergy 移除過敏原
func (h *Handler) RemoveAllergy(c *gin.Context) {
	profile, err := h.store.RemoveAllergy(c.Request.Context(), c.Param("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// AddPantryItemRequest 新增食材請求
type AddPantryItemRequest struct {
	Name     string                `json:"name" binding:"required"`
	Category common.PantryCategory `json:"category"`
}

// AddPantryItem 手動新增食材
// 手動加入的食材直接視為已確認
func (h *Handler) AddPantryItem(c *gin.Context) {
	userID := c.Param("userID")

	var req AddPantryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c)
		return
	}
	if req.Category == "" {
		req.Category = common.CategoryOther
	}

	err := h.store.SavePantryItem(c.Request.Context(), userID, common.PantryItem{
		Name:      req.Name,
		Category:  req.Category,
		Source:    common.PantrySourceUser,
		Confirmed: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	profile, err := h.store.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RemovePantryItem 移除食材
func (h *Handler) RemovePantryItem(c *gin.Context) {
	profile, err := h.store.RemovePantryItem(c.Request.Context(), c.Param("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ConfirmPantryItem 確認模型推斷的食材
func (h *Handler) ConfirmPantryItem(c *gin.Context) {
	profile, err := h.store.ConfirmPantryItem(c.Request.Context(), c.Param("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func respondInvalid(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": common.ErrInvalidRequest.Message,
		"code":  common.ErrCodeInvalidRequest,
	})
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
	common.LogError("使用者資料操作失敗", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": common.ErrInternalError.Message,
		"code":  common.ErrCodeInternalError,
	})
}
