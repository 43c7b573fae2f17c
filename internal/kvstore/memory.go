package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // ゼロ値は期限なし
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore はプロセス内のmapを使ったStore実装。
// テストと開発用途を想定しており、プロセス終了でデータは失われる。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get は指定キーの値のコピーを返す。存在しない、または期限切れの場合はnilを返す。
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key), nil
}

// Set は値を保存する。
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: cloneBytes(value)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

// Delete は指定キーを削除する。
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Update はロックを保持したまま読み取り・変更・書き込みを行う。
func (s *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.getLocked(key)
	next, err := fn(current)
	if err != nil {
		return err
	}

	entry := memoryEntry{value: cloneBytes(next)}
	if old, ok := s.entries[key]; ok && !old.expired(s.now()) {
		entry.expiresAt = old.expiresAt
	}
	s.entries[key] = entry
	return nil
}

// Keys は指定プレフィックスを持つ有効なキーを昇順で返す。
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	keys := make([]string, 0)
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) && !e.expired(now) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping は常に成功する。
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close は何もしない。
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) getLocked(key string) []byte {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil
	}
	return cloneBytes(e.value)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
