package service

import (
	"sync"

	"github.com/yuqie6/LearnFeed/internal/ai"
)

// GenerationSettings 影响生成内容的用户偏好
type GenerationSettings struct {
	Language   ai.Language
	PostLength ai.PostLength
	Model      string
}

// SettingsProvider 提供当前偏好
type SettingsProvider interface {
	Settings() GenerationSettings
}

// StaticSettings 固定偏好
type StaticSettings GenerationSettings

func (s StaticSettings) Settings() GenerationSettings { return GenerationSettings(s) }

// SettingsStore 可热更新的偏好（配置文件变更时写入）
type SettingsStore struct {
	mu  sync.RWMutex
	cur GenerationSettings
}

// NewSettingsStore 创建偏好存储
func NewSettingsStore(initial GenerationSettings) *SettingsStore {
	return &SettingsStore{cur: initial}
}

func (s *SettingsStore) Settings() GenerationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update 替换当前偏好
func (s *SettingsStore) Update(next GenerationSettings) {
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
}
