// Package pipeline はレンダリング要求の一連の流れを組み立てるサービス層。
// オプション解析 → シグネチャ構築 → キャッシュ参照 → リモートフェッチ →
// 正規化 → レンダリングの順に各コンポーネントを呼び出す。
package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/postremote/internal/cache"
	"github.com/hitoshi/postremote/internal/metrics"
	"github.com/hitoshi/postremote/internal/model"
	"github.com/hitoshi/postremote/internal/post"
	"github.com/hitoshi/postremote/internal/remote"
	"github.com/hitoshi/postremote/internal/render"
	"github.com/hitoshi/postremote/internal/signature"
)

// URLValidator はフェッチ前のURL安全性検証のインターフェース。
// security.SSRFGuardが実装する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はレンダリングパイプラインのサービス。
// 状態は持たず、複数のゴルーチンから並行に呼び出せる。
type Service struct {
	store     *cache.Store
	client    *remote.Client
	validator URLValidator
	renderer  *render.Renderer
	collector metrics.MetricsCollector
	logger    *slog.Logger
	defaults  render.Config
}

// NewService はServiceの新しいインスタンスを生成する。
// defaultsは全リクエストに適用される既定設定（既定のキャッシュTTLを含む）。
func NewService(
	store *cache.Store,
	client *remote.Client,
	validator URLValidator,
	renderer *render.Renderer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	defaults render.Config,
) *Service {
	return &Service{
		store:     store,
		client:    client,
		validator: validator,
		renderer:  renderer,
		collector: collector,
		logger:    logger,
		defaults:  defaults,
	}
}

// Render はオプションマップからHTMLリスティングフラグメントを生成する。
// エラー時も常に利用者に返せるフラグメントを返す（第1戻り値はエラー時はエラーフラグメント）。
func (s *Service) Render(ctx context.Context, opts map[string]string) (string, error) {
	s.collector.RecordRender()

	cfg := render.ParseOptions(s.defaults, opts)

	sig, err := signature.Build(cfg.URL, cfg.CategoryID)
	if err != nil {
		return s.renderer.ErrorFragment(err), err
	}

	if err := s.validator.ValidateURL(sig.URL); err != nil {
		s.logger.Warn("リモートサイトURLがセキュリティポリシーによりブロックされました",
			slog.String("url", sig.URL),
			slog.String("error", err.Error()),
		)
		blocked := model.NewSSRFBlockedError()
		return s.renderer.ErrorFragment(blocked), blocked
	}

	ttl := cfg.CacheTimeout

	// TTLが0以下の場合はキャッシュを無効化した上で常にフェッチする。
	if ttl <= 0 {
		s.store.Invalidate(ctx, sig)
	} else if body, ok := s.store.Get(ctx, sig); ok {
		posts, err := model.DecodeRawPosts(body)
		if err == nil {
			s.collector.RecordCacheHit()
			return s.renderer.Render(post.NormalizeAll(posts), cfg), nil
		}
		// 壊れたエントリは破棄してフェッチにフォールバックする
		s.logger.Warn("キャッシュ済みレスポンスを解析できないため破棄します",
			slog.String("cache_key", sig.CacheKey()),
			slog.String("error", err.Error()),
		)
		s.store.Invalidate(ctx, sig)
	}
	s.collector.RecordCacheMiss()

	start := time.Now()
	posts, body, err := s.client.FetchPosts(ctx, sig.URL)
	s.collector.RecordFetchLatency(time.Since(start))

	if err != nil {
		s.recordFetchError(err)
		return s.renderer.ErrorFragment(err), err
	}

	s.collector.RecordFetchSuccess()
	s.collector.RecordRemoteStatus(http.StatusOK)

	// 成功した有効なJSONレスポンスのみ保存する。ttl<=0の場合Setは何もしない。
	s.store.Set(ctx, sig, body, ttl)

	return s.renderer.Render(post.NormalizeAll(posts), cfg), nil
}

// Invalidate はオプションマップに対応するキャッシュエントリを無条件に削除する。
func (s *Service) Invalidate(ctx context.Context, opts map[string]string) error {
	cfg := render.ParseOptions(s.defaults, opts)

	sig, err := signature.Build(cfg.URL, cfg.CategoryID)
	if err != nil {
		return err
	}

	s.store.Invalidate(ctx, sig)
	s.logger.Info("キャッシュエントリを削除しました",
		slog.String("cache_key", sig.CacheKey()),
	)
	return nil
}

// recordFetchError はフェッチエラーの種別に応じたメトリクスを記録する。
func (s *Service) recordFetchError(err error) {
	apiErr, ok := err.(*model.APIError)
	if !ok {
		s.collector.RecordFetchFailure(model.ErrCodeInternal)
		return
	}

	s.collector.RecordFetchFailure(apiErr.Code)
	if apiErr.Code == model.ErrCodeRemoteStatus {
		s.collector.RecordRemoteStatus(apiErr.StatusCode)
	}
}
