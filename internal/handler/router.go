package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/postremote/internal/metrics"
	"github.com/hitoshi/postremote/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// postgresバックエンド使用時は*sql.DBを渡す。依存が無い場合はnilでよい。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger        *slog.Logger
	RateLimiter   *middleware.RateLimiter
	RenderService RenderServiceInterface
	Gatherer      prometheus.Gatherer
	HealthChecker HealthChecker
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders
//
// RequestIDを先頭に置くことで、panic時のログにもリクエストIDが含まれる。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	renderHandler := NewRenderHandler(deps.RenderService)

	// 運用エンドポイント
	r.Get("/health", healthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// レンダリングAPI
	r.Route("/v1", func(r chi.Router) {
		r.With(deps.RateLimiter.RenderMiddleware()).Get("/render", renderHandler.Render)
		r.With(deps.RateLimiter.InvalidateMiddleware()).Delete("/cache", renderHandler.InvalidateCache)
	})

	return r
}

// healthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// checkerが設定されている場合は疎通確認を行い、失敗時は503を返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if checker != nil {
			if err := checker.Ping(); err != nil {
				status = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
