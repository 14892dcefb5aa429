// Package cache はシグネチャ単位のTTL付きレスポンスキャッシュを提供する。
// 実体の保存は差し替え可能なBackendに委譲し、バックエンド障害時は
// 常にキャッシュミスとして振る舞う（レンダリングを失敗させない）。
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/postremote/internal/signature"
)

// Backend はキー/バリューストアのインターフェース。
// TTLの強制はバックエンドの責務であり、期限切れエントリをGetで返してはならない。
type Backend interface {
	// Get はキーに対応する値を返す。存在しない・期限切れの場合は ok=false。
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set は値をTTL付きで保存する。既存エントリは上書きされる。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete はキーのエントリを無条件に削除する。
	Delete(ctx context.Context, key string) error
}

// Store はシグネチャをキーとするレスポンスキャッシュ。
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// Get はシグネチャに対応するキャッシュ済みレスポンスボディを返す。
// 期限切れエントリが返ることはない。バックエンドのエラーはミスとして扱う。
func (s *Store) Get(ctx context.Context, sig signature.Signature) ([]byte, bool) {
	value, ok, err := s.backend.Get(ctx, sig.CacheKey())
	if err != nil {
		s.logger.Warn("キャッシュの取得に失敗したためミスとして扱います",
			slog.String("cache_key", sig.CacheKey()),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return value, ok
}

// Set はレスポンスボディをTTL付きで保存する。
// ttlが0以下の場合は何も保存しない。バックエンドのエラーは警告ログのみで握りつぶす。
func (s *Store) Set(ctx context.Context, sig signature.Signature, body []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	if err := s.backend.Set(ctx, sig.CacheKey(), body, ttl); err != nil {
		s.logger.Warn("キャッシュの保存に失敗しました",
			slog.String("cache_key", sig.CacheKey()),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate はシグネチャのキャッシュエントリをTTLに関わらず無条件に削除する。
func (s *Store) Invalidate(ctx context.Context, sig signature.Signature) {
	if err := s.backend.Delete(ctx, sig.CacheKey()); err != nil {
		s.logger.Warn("キャッシュの削除に失敗しました",
			slog.String("cache_key", sig.CacheKey()),
			slog.String("error", err.Error()),
		)
	}
}
