package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry はインメモリバックエンドの1エントリ。
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend はプロセス内のインメモリキャッシュバックエンド。
// 期限切れは読み取り時に判定する（バックグラウンドの掃除は行わない）。
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time // テストで差し替え可能
}

// NewMemoryBackend はMemoryBackendの新しいインスタンスを生成する。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get はキーに対応する値を返す。期限切れエントリはその場で削除しミスを返す。
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(entry.expiresAt) {
		delete(b.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set は値をTTL付きで保存する。
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = memoryEntry{
		value:     value,
		expiresAt: b.now().Add(ttl),
	}
	return nil
}

// Delete はキーのエントリを削除する。存在しないキーでもエラーにはならない。
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
	return nil
}

// Len は現在保持しているエントリ数を返す。テスト用。
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
