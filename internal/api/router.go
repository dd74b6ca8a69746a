package api

import (
	"context"
	"net/http"
	"time"

	chatHandler "nori-assistant/internal/api/handlers/chat"
	"nori-assistant/internal/api/handlers/health"
	profileHandler "nori-assistant/internal/api/handlers/profile"
	recipeHandler "nori-assistant/internal/api/handlers/recipe"
	"nori-assistant/internal/api/middleware"
	"nori-assistant/internal/core/ai/openai"
	chatcore "nori-assistant/internal/core/chat"
	profilecore "nori-assistant/internal/core/profile"
	recipecore "nori-assistant/internal/core/recipe"
	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 請求體大小限制 (1MB)：對話訊息與食譜 payload 都很小
const maxBodySize = 1 << 20

// Services 路由依賴的服務集合
type Services struct {
	Client       *openai.Client
	ProfileStore *profilecore.Store
	SavedStore   *recipecore.SavedStore
	ChatManager  *chatcore.Manager
}

// NewServices 初始化全部服務
func NewServices(cfg *config.Config) *Services {
	client := openai.NewClient(cfg)
	profileStore := profilecore.NewStore(cfg)
	savedStore := recipecore.NewSavedStore(cfg)
	orchestrator := chatcore.NewOrchestrator(cfg, client, profileStore)
	manager := chatcore.NewManager(cfg, orchestrator)

	return &Services{
		Client:       client,
		ProfileStore: profileStore,
		SavedStore:   savedStore,
		ChatManager:  manager,
	}
}

// Close 釋放服務資源
func (s *Services) Close() {
	if err := s.Client.Close(); err != nil {
		common.LogWarn("關閉模型客戶端失敗", zap.Error(err))
	}
	if err := s.ProfileStore.Close(); err != nil {
		common.LogWarn("關閉使用者資料儲存失敗", zap.Error(err))
	}
	if err := s.SavedStore.Close(); err != nil {
		common.LogWarn("關閉收藏儲存失敗", zap.Error(err))
	}
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, services *Services) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 單回合超時：模型呼叫加上工具往返都要在這個窗口內完成
	turnTimeout := cfg.Chat.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = 60 * time.Second
	}

	// 全局中間件：設置超時並注入服務
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), turnTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("chat_manager", services.ChatManager)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", turnTimeout),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
				"details": gin.H{
					"timeout": turnTimeout.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	chatH := chatHandler.NewHandler(services.ChatManager)
	profileH := profileHandler.NewHandler(services.ProfileStore)
	recipeH := recipeHandler.NewHandler(services.SavedStore)

	api := router.Group("/api/v1")
	{
		chatGroup := api.Group("/chat")
		{
			// 對話端點有上游模型成本，額外套限流與去重
			if cfg.RateLimit.Enabled {
				chatGroup.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
			}
			chatGroup.Use(middleware.Deduplication(cfg))

			chatGroup.POST("/converse", chatH.Converse)
			chatGroup.POST("/reset", chatH.Reset)
		}

		profileGroup := api.Group("/profile")
		{
			profileGroup.GET("/:userID", profileH.GetProfile)
			profileGroup.PUT("/:userID/preferences", profileH.UpdatePreferences)
			profileGroup.POST("/:userID/allergies", profileH.AddAllergy)
			profileGroup.DELETE("/:userID/allergies/:id", profileH.RemoveAllergy)
			profileGroup.POST("/:userID/pantry", profileH.AddPantryItem)
			profileGroup.DELETE("/:userID/pantry/:id", profileH.RemovePantryItem)
			profileGroup.POST("/:userID/pantry/:id/confirm", profileH.ConfirmPantryItem)
		}

		savedGroup := api.Group("/recipes/saved")
		{
			savedGroup.GET("/:userID", recipeH.List)
			savedGroup.POST("/:userID", recipeH.Save)
			savedGroup.PATCH("/:userID/:savedID", recipeH.Update)
			savedGroup.DELETE("/:userID/:savedID", recipeH.Remove)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("turn_timeout", turnTimeout),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
