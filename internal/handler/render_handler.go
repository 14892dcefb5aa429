// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/postremote/internal/middleware"
	"github.com/hitoshi/postremote/internal/model"
)

// RenderServiceInterface はレンダリングハンドラーが必要とするサービスインターフェース。
type RenderServiceInterface interface {
	// Render はオプションマップからHTMLリスティングフラグメントを生成する。
	// エラー時は第1戻り値にエラーフラグメントが入る。
	Render(ctx context.Context, opts map[string]string) (string, error)
	// Invalidate はオプションマップに対応するキャッシュエントリを削除する。
	Invalidate(ctx context.Context, opts map[string]string) error
}

// optionKeys はクエリパラメータとして受け付けるオプションキー。
// ここに無いパラメータは無視される。
var optionKeys = []string{
	"url",
	"category_id",
	"content_class",
	"date_format",
	"include_content",
	"include_date",
	"include_date_modified",
	"include_link",
	"include_title",
	"image_size",
	"wrapper",
	"cache_timeout",
}

// RenderHandler はレンダリングとキャッシュ管理のHTTPハンドラー。
type RenderHandler struct {
	service RenderServiceInterface
}

// NewRenderHandler はRenderHandlerを生成する。
func NewRenderHandler(service RenderServiceInterface) *RenderHandler {
	return &RenderHandler{service: service}
}

// optionsFromQuery はクエリパラメータから既知のオプションのみを取り出す。
func optionsFromQuery(r *http.Request) map[string]string {
	query := r.URL.Query()
	opts := make(map[string]string, len(optionKeys))
	for _, key := range optionKeys {
		if query.Has(key) {
			opts[key] = query.Get(key)
		}
	}
	return opts
}

// Render はリモートサイトの投稿一覧をHTMLフラグメントとして返す。
// GET /v1/render
//
// エラー時もボディは常にHTMLフラグメント（<div>…</div>）であり、
// 呼び出し側はステータスに関わらずそのまま埋め込める。
func (h *RenderHandler) Render(w http.ResponseWriter, r *http.Request) {
	fragment, err := h.service.Render(r.Context(), optionsFromQuery(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusForRenderError(err))
	w.Write([]byte(fragment))
}

// InvalidateCache はキャッシュエントリを無条件に削除する。
// DELETE /v1/cache
func (h *RenderHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	err := h.service.Invalidate(r.Context(), optionsFromQuery(r))
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidURL {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
			return
		}
		middleware.WriteInternalServerError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// statusForRenderError はレンダリング結果のエラーをHTTPステータスに対応付ける。
// 入力不正は400、リモート起因は502、エラーなしは200。
func statusForRenderError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}

	switch apiErr.Code {
	case model.ErrCodeInvalidURL, model.ErrCodeSSRFBlocked:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
