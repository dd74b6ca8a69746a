// Package recipe 管理使用者收藏的食譜
package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SavedStore 收藏食譜儲存
// 與使用者資料儲存同一套策略：Redis 文件優先，記憶體退場
type SavedStore struct {
	config *config.Config
	client *redis.Client
	mu     sync.RWMutex
	local  map[string][]byte
}

// NewSavedStore 創建收藏食譜儲存
func NewSavedStore(cfg *config.Config) *SavedStore {
	s := &SavedStore{
		config: cfg,
		local:  make(map[string][]byte),
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.Ping(context.Background()).Err(); err != nil {
			common.LogWarn("Redis 連線失敗，收藏食譜改用記憶體儲存",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
		} else {
			s.client = client
		}
	}

	return s
}

// savedKey 生成使用者收藏清單鍵
func (s *SavedStore) savedKey(userID string) string {
	return fmt.Sprintf("%s:saved:%s", s.config.Redis.KeyPrefix, userID)
}

// load 讀取使用者的整份收藏清單，不存在時回傳空清單
func (s *SavedStore) load(ctx context.Context, userID string) ([]common.SavedRecipe, error) {
	var data []byte
	if s.client != nil {
		var err error
		data, err = s.client.Get(ctx, s.savedKey(userID)).Bytes()
		if err == redis.Nil {
			return []common.SavedRecipe{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get saved recipes: %w", err)
		}
	} else {
		s.mu.RLock()
		stored, ok := s.local[userID]
		s.mu.RUnlock()
		if !ok {
			return []common.SavedRecipe{}, nil
		}
		data = stored
	}

	var saved []common.SavedRecipe
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal saved recipes: %w", err)
	}
	return saved, nil
}

// persist 寫回整份收藏清單
func (s *SavedStore) persist(ctx context.Context, userID string, saved []common.SavedRecipe) error {
	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal saved recipes: %w", err)
	}

	if s.client != nil {
		if err := s.client.Set(ctx, s.savedKey(userID), data, s.config.Redis.TTL).Err(); err != nil {
			return fmt.Errorf("failed to save recipes: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[userID] = data
	return nil
}

// List 列出使用者的收藏食譜
func (s *SavedStore) List(ctx context.Context, userID string) ([]common.SavedRecipe, error) {
	return s.load(ctx, userID)
}

// Get 取得單筆收藏
func (s *SavedStore) Get(ctx context.Context, userID, savedID string) (*common.SavedRecipe, error) {
	saved, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range saved {
		if saved[i].ID == savedID {
			return &saved[i], nil
		}
	}
	return nil, common.ErrSavedRecipeNotFound
}

// Save 收藏食譜，同一食譜重複收藏時覆寫既有項目
func (s *SavedStore) Save(ctx context.Context, userID string, rec common.Recipe, notes string, tags []string) (*common.SavedRecipe, error) {
	saved, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := common.SavedRecipe{
		ID:      "saved_" + common.GenerateUUID(),
		UserID:  userID,
		Recipe:  rec,
		SavedAt: time.Now(),
		Notes:   notes,
		Tags:    tags,
	}

	kept := saved[:0]
	for _, existing := range saved {
		if existing.Recipe.ID != rec.ID {
			kept = append(kept, existing)
		} else {
			entry.ID = existing.ID
			entry.SavedAt = existing.SavedAt
			entry.Cooked = existing.Cooked
			entry.CookedAt = existing.CookedAt
			entry.Rating = existing.Rating
		}
	}
	saved = append(kept, entry)

	if err := s.persist(ctx, userID, saved); err != nil {
		return nil, err
	}
	common.LogInfo("食譜已收藏",
		zap.String("user_id", userID),
		zap.String("recipe", rec.Title),
	)
	return &entry, nil
}

// Remove 移除收藏
func (s *SavedStore) Remove(ctx context.Context, userID, savedID string) error {
	saved, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	kept := saved[:0]
	found := false
	for _, existing := range saved {
		if existing.ID == savedID {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return common.ErrSavedRecipeNotFound
	}
	return s.persist(ctx, userID, kept)
}

// SavedUpdate 收藏項目的可更新欄位，nil 表示不變
type SavedUpdate struct {
	Notes  *string  `json:"notes"`
	Tags   []string `json:"tags"`
	Cooked *bool    `json:"cooked"`
	Rating *int     `json:"rating"`
}

// Update 更新收藏項目
// 首次標記 cooked 時記錄 cookedAt 時間
func (s *SavedStore) Update(ctx context.Context, userID, savedID string, update SavedUpdate) (*common.SavedRecipe, error) {
	saved, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range saved {
		if saved[i].ID != savedID {
			continue
		}
		if update.Notes != nil {
			saved[i].Notes = *update.Notes
		}
		if update.Tags != nil {
			saved[i].Tags = update.Tags
		}
		if update.Cooked != nil {
			if *update.Cooked && !saved[i].Cooked {
				now := time.Now()
				saved[i].CookedAt = &now
			}
			saved[i].Cooked = *update.Cooked
		}
		if update.Rating != nil {
			saved[i].Rating = *update.Rating
		}
		if err := s.persist(ctx, userID, saved); err != nil {
			return nil, err
		}
		return &saved[i], nil
	}
	return nil, common.ErrSavedRecipeNotFound
}

// IsRecipeSaved 查詢指定食譜是否已收藏
func (s *SavedStore) IsRecipeSaved(ctx context.Context, userID, recipeID string) (bool, error) {
	saved, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, existing := range saved {
		if existing.Recipe.ID == recipeID {
			return true, nil
		}
	}
	return false, nil
}

// Close 關閉 Redis 連線
func (s *SavedStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
