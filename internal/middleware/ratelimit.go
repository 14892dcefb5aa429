package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/postremote/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	RenderRate      rate.Limit    // レンダリングのレート（req/sec）
	RenderBurst     int           // レンダリングのバーストサイズ
	InvalidateRate  rate.Limit    // キャッシュ削除のレート（req/sec）
	InvalidateBurst int           // キャッシュ削除のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig は毎分あたりの上限からレート制限設定を構築する。
func NewRateLimiterConfig(renderPerMin, invalidatePerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		RenderRate:      rate.Limit(float64(renderPerMin) / 60.0),
		RenderBurst:     renderPerMin,
		InvalidateRate:  rate.Limit(float64(invalidatePerMin) / 60.0),
		InvalidateBurst: invalidatePerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
// レンダリングとキャッシュ削除の2種類を独立に提供する。
type RateLimiter struct {
	config RateLimiterConfig

	renderMu       sync.RWMutex
	renderLimiters map[string]*clientLimiter

	invalidateMu       sync.RWMutex
	invalidateLimiters map[string]*clientLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:             config,
		renderLimiters:     make(map[string]*clientLimiter),
		invalidateLimiters: make(map[string]*clientLimiter),
		stopCh:             make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// RenderMiddleware はレンダリングエンドポイントのレート制限ミドルウェアを返す。
func (rl *RateLimiter) RenderMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			limiter := rl.getOrCreateRenderLimiter(client)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.RenderRate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", client),
					slog.String("limit_type", "render"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// InvalidateMiddleware はキャッシュ削除専用のレート制限ミドルウェアを返す。
// レンダリングのレート制限とは独立に動作する。
func (rl *RateLimiter) InvalidateMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			limiter := rl.getOrCreateInvalidateLimiter(client)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.InvalidateRate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", client),
					slog.String("limit_type", "invalidate"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RenderLimiterCount は現在管理されているレンダリングリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) RenderLimiterCount() int {
	rl.renderMu.RLock()
	defer rl.renderMu.RUnlock()
	return len(rl.renderLimiters)
}

// InvalidateLimiterCount は現在管理されているキャッシュ削除リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) InvalidateLimiterCount() int {
	rl.invalidateMu.RLock()
	defer rl.invalidateMu.RUnlock()
	return len(rl.invalidateLimiters)
}

// clientIP はリクエスト元のIPアドレスを取り出す。
// ポート部が無い・パースできない場合はRemoteAddrをそのまま使う。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getOrCreateRenderLimiter はクライアントのレンダリングリミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateRenderLimiter(client string) *rate.Limiter {
	rl.renderMu.RLock()
	cl, exists := rl.renderLimiters[client]
	rl.renderMu.RUnlock()

	if exists {
		rl.renderMu.Lock()
		cl.lastAccess = time.Now()
		rl.renderMu.Unlock()
		return cl.limiter
	}

	rl.renderMu.Lock()
	defer rl.renderMu.Unlock()

	// ダブルチェック
	if cl, exists := rl.renderLimiters[client]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.RenderRate, rl.config.RenderBurst)
	rl.renderLimiters[client] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// getOrCreateInvalidateLimiter はクライアントのキャッシュ削除リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateInvalidateLimiter(client string) *rate.Limiter {
	rl.invalidateMu.RLock()
	cl, exists := rl.invalidateLimiters[client]
	rl.invalidateMu.RUnlock()

	if exists {
		rl.invalidateMu.Lock()
		cl.lastAccess = time.Now()
		rl.invalidateMu.Unlock()
		return cl.limiter
	}

	rl.invalidateMu.Lock()
	defer rl.invalidateMu.Unlock()

	// ダブルチェック
	if cl, exists := rl.invalidateLimiters[client]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.InvalidateRate, rl.config.InvalidateBurst)
	rl.invalidateLimiters[client] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.renderMu.Lock()
	for client, cl := range rl.renderLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.renderLimiters, client)
		}
	}
	rl.renderMu.Unlock()

	rl.invalidateMu.Lock()
	for client, cl := range rl.invalidateLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.invalidateLimiters, client)
		}
	}
	rl.invalidateMu.Unlock()
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
}
