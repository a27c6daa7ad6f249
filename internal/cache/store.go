// Package cache 提供带过期时间的键值存储
// 验证码、Token 黑名单等短期数据都放在这里
// 单进程部署使用内存实现，多实例部署使用 Redis 实现
package cache

import (
	"context"
	"sync"
	"time"
)

// Store 带 TTL 的键值存储
type Store interface {
	// Get 读取键值，键不存在或已过期时 ok 为 false
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set 写入键值，ttl <= 0 表示永不过期
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete 删除键
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// SetNX 仅当键不存在时写入，返回是否写入成功
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete 仅当当前值等于 expected 时删除，返回是否删除成功
	// 用于一次性凭据的原子消费
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // 零值表示永不过期
}

// MemoryStore 进程内存储
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock 替换时钟，测试中用于模拟时间流逝
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// lookup 调用方必须持有锁，过期的键会被顺手删除
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return e, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return e, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	return e.value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookup(key)
	return ok, nil
}

func (s *MemoryStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok || e.value != expected {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Purge 清理所有已过期的键
// 返回:
//   - int: 清理的数量
func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if _, ok := s.lookup(k); !ok {
			n++
		}
	}
	return n
}

// RunJanitor 定期清理过期键，直到 ctx 结束
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}
