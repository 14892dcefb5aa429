// Package remote はリモートWordPressサイトの投稿一覧エンドポイントへの
// HTTPアクセスを提供する。リトライは行わず、失敗は呼び出し元に伝播する
// （次のキャッシュミス時に再試行される）。
package remote

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postremote/internal/model"
)

// userAgent はリモートサイトへのリクエストに付与するUser-Agent。
const userAgent = "Postremote/1.0 WP Posts Renderer"

// Client は投稿一覧エンドポイントのHTTPクライアント。
// 1回のブロッキングGETを行い、トランスポート障害・ステータス異常・JSON不正を
// 区別されたAPIErrorとして返す。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	maxBodySize int64
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはSSRF防止付きクライアント（security.SSRFGuard.NewSafeClient）を渡すことを想定している。
func NewClient(httpClient *http.Client, logger *slog.Logger, maxBodySize int64) *Client {
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// FetchPosts は合成済みURLに対してGETを実行し、デコード済みの投稿一覧と
// 生のレスポンスボディを返す。ボディはキャッシュ保存用にそのまま返す。
// エラーはAPIErrorのFETCH_FAILED / REMOTE_STATUS / INVALID_RESPONSEのいずれかになる。
func (c *Client) FetchPosts(ctx context.Context, url string) ([]model.RawPost, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, model.NewFetchFailedError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("リモートサイトへのリクエストに失敗しました",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("リモートサイトがエラーステータスを返しました",
			slog.String("url", url),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, nil, model.NewRemoteStatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, nil, model.NewFetchFailedError(err.Error())
	}

	posts, err := model.DecodeRawPosts(body)
	if err != nil {
		c.logger.Error("レスポンスJSONのパースに失敗しました",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, nil, model.NewInvalidResponseError(err.Error())
	}

	return posts, body, nil
}
