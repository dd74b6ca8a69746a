package profile

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

// Store 使用者資料儲存
// Redis 啟用時以 JSON 文件存放；未啟用或連線失敗時退回行程內 map
type Store struct {
	config *config.Config
	client *redis.Client
	mu     sync.RWMutex
	local  map[string][]byte // 記憶體模式同樣存 JSON，避免共享底層 slice
}

// NewStore 創建使用者資料儲存
func NewStore(cfg *config.Config) *Store {
	s := &Store{
		config: cfg,
		local:  make(map[string][]byte),
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// 測試連接，失敗則退回記憶體模式
		if err := client.Ping(context.Background()).Err(); err != nil {
			common.LogWarn("Redis 連線失敗，改用記憶體儲存",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
		} else {
			s.client = client
			common.LogInfo("使用者資料儲存已連線 Redis",
				zap.String("addr", cfg.Redis.Addr),
			)
		}
	}

	return s
}

// profileKey 生成使用者資料鍵
func (s *Store) profileKey(userID string) string {
	return fmt.Sprintf("%s:profile:%s", s.config.Redis.KeyPrefix, userID)
}

// GetProfile 獲取使用者資料，不存在時回傳 (nil, nil)
func (s *Store) GetProfile(ctx context.Context, userID string) (*common.UserProfile, error) {
	var data []byte
	if s.client != nil {
		var err error
		data, err = s.client.Get(ctx, s.profileKey(userID)).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
	} else {
		s.mu.RLock()
		stored, ok := s.local[userID]
		s.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		data = stored
	}

	var profile common.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile 儲存使用者資料
func (s *Store) SaveProfile(ctx context.Context, profile *common.UserProfile) error {
	profile.UpdatedAt = time.Now()

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if s.client != nil {
		if err := s.client.Set(ctx, s.profileKey(profile.ID), data, s.config.Redis.TTL).Err(); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[profile.ID] = data
	return nil
}

// InitializeProfile 以預設值建立使用者資料
func (s *Store) InitializeProfile(ctx context.Context, userID, email, locale string) (*common.UserProfile, error) {
	now := time.Now()
	profile := &common.UserProfile{
		ID:     userID,
		Email:  email,
		Locale: locale,
		Preferences: common.UserPreferences{
			DietaryRestrictions: []common.DietaryPreference{},
			PreferredCuisines:   []string{},
			SkillLevel:          common.SkillIntermediate,
		},
		Allergies: []common.Allergy{},
		Pantry:    []common.PantryItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// getOrFail 取得資料，不存在時回傳 ErrProfileNotFound
func (s *Store) getOrFail(ctx context.Context, userID string) (*common.UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, common.ErrProfileNotFound
	}
	return profile, nil
}

// UpdatePreferences 更新偏好設定
func (s *Store) UpdatePreferences(ctx context.Context, userID string, prefs common.UserPreferences) (*common.UserProfile, error) {
	profile, err := s.getOrFail(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Preferences = prefs
	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveAllergy 新增或更新過敏原（同名項目先移除再加入）
func (s *Store) SaveAllergy(ctx context.Context, userID string, name string, severity common.AllergySeverity) (*common.UserProfile, error) {
	profile, err := s.getOrFail(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := profile.Allergies[:0]
	for _, a := range profile.Allergies {
		if a.Name != name {
			kept = append(kept, a)
		}
	}
	profile.Allergies = append(kept, common.Allergy{
		ID:        "allergy_" + common.GenerateUUID(),
		Name:      name,
		Severity:  severity,
		CreatedAt: time.Now(),
	})

	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// RemoveAllergy 移除過敏原
func (s *Store) RemoveAllergy(ctx context.Context, userID, allergyID string) (*common.UserProfile, error) {
	profile, err := s.getOrFail(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := profile.Allergies[:0]
	for _, a := range profile.Allergies {
		if a.ID != allergyID {
			kept = append(kept, a)
		}
	}
	profile.Allergies = kept

	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SavePantryItem 新增或更新食材櫃項目（同名項目覆寫）
func (s *Store) SavePantryItem(ctx context.Context, userID string, item common.PantryItem) error {
	profile, err := s.getOrFail(ctx, userID)
	if err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = "pantry_" + common.GenerateUUID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	kept := profile.Pantry[:0]
	for _, p := range profile.Pantry {
		if p.Name != item.Name {
			kept = append(kept, p)
		}
	}
	profile.Pantry = append(kept, item)

	return s.SaveProfile(ctx, profile)
}

// RemovePantryItem 移除食材櫃項目
func (s *Store) RemovePantryItem(ctx context.Context, userID, itemID string) (*common.UserProfile, error) {
	profile, err := s.getOrFail(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := profile.Pantry[:0]
	for _, p := range profile.Pantry {
		if p.ID != itemID {
			kept = append(kept, p)
		}
	}
	profile.Pantry = kept

	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ConfirmPantryItem 確認推斷的食材櫃項目
func (s *Store) ConfirmPantryItem(ctx context.Context, userID, itemID string) (*common.UserProfile, error) {
	profile, err := s.getOrFail(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range profile.Pantry {
		if profile.Pantry[i].ID == itemID {
			profile.Pantry[i].Confirmed = true
			now := time.Now()
			profile.Pantry[i].LastUsed = &now
			found = true
			break
		}
	}
	if !found {
		return nil, common.ErrNotFound
	}

	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Close 關閉儲存連線
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
