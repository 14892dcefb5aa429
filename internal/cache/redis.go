package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix はredisキーの名前空間プレフィックス。
const keyPrefix = "postremote:response:"

// RedisBackend はredisのネイティブTTLを使うキャッシュバックエンド。
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend はRedisBackendを生成する。
func NewRedisBackend(rdb *redis.Client) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

// Get はキーに対応する値を返す。期限切れはredis側で処理される。
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("キャッシュエントリの取得に失敗しました: %w", err)
	}
	return value, true, nil
}

// Set は値をTTL付きで保存する。
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.rdb.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュエントリの保存に失敗しました: %w", err)
	}
	return nil
}

// Delete はキーのエントリを削除する。
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("キャッシュエントリの削除に失敗しました: %w", err)
	}
	return nil
}
