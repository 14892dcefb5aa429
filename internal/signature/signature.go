// Package signature はリモートサイトへの問い合わせを表す正規化済みシグネチャを提供する。
// シグネチャのURLはネットワークリクエストとキャッシュキー導出の両方にそのまま使われるため、
// 両者が乖離することはない。
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/hitoshi/postremote/internal/model"
)

// postsPath は投稿一覧エンドポイントの固定パス。
const postsPath = "/wp-json/wp/v2/posts"

// schemePrefix はキャッシュキー導出時に除去するスキームプレフィックスのパターン。
// スキームの違いだけでキャッシュが分かれないようにする。
var schemePrefix = regexp.MustCompile(`^https?://`)

// Signature はリモートサイトへの1回の問い合わせを表す。
// Buildで構築した後は変更しない。
type Signature struct {
	// URL は投稿一覧エンドポイントの完全なURL。
	URL string
}

// Build は未検証のベースURLとカテゴリIDから正規化済みシグネチャを構築する。
// ベースURLが空、またはhttp/https以外のスキームの場合はAPIError(INVALID_URL)を返し、
// ネットワークアクセスは一切行われない。
// クエリパラメータはurl.Valuesで決定的に並ぶため、同じ入力は常に同じURLになる。
func Build(baseURL string, categoryID int) (Signature, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return Signature{}, model.NewInvalidURLError("URLが指定されていません")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return Signature{}, model.NewInvalidURLError(err.Error())
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return Signature{}, model.NewInvalidURLError(fmt.Sprintf("サポートされないスキームです: %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return Signature{}, model.NewInvalidURLError("ホストが指定されていません")
	}

	endpoint := *parsed
	endpoint.Scheme = scheme
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + postsPath
	endpoint.Fragment = ""

	q := url.Values{}
	q.Set("_embed", "")
	if categoryID > 0 {
		q.Set("categories", strconv.Itoa(categoryID))
	}
	endpoint.RawQuery = q.Encode()

	return Signature{URL: endpoint.String()}, nil
}

// CacheKey はシグネチャのキャッシュキーを導出する。
// URLから先頭のhttp://またはhttps://を除去した上でsha256ハッシュの16進表現を返す。
func (s Signature) CacheKey() string {
	stripped := schemePrefix.ReplaceAllString(s.URL, "")
	sum := sha256.Sum256([]byte(stripped))
	return hex.EncodeToString(sum[:])
}
