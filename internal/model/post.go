package model

import "encoding/json"

// ImageRef は画像の参照情報を表す。
type ImageRef struct {
	URL    string
	Width  int
	Height int
}

// RawPost はWP REST APIが返す投稿オブジェクトの生の形を表す。
// フィールドの存在は一切保証されないため、アクセスは常に存在チェックを伴う。
type RawPost map[string]any

// DecodeRawPosts は投稿一覧エンドポイントのレスポンスボディをデコードする。
// JSON配列以外のボディはエラーを返す。
func DecodeRawPosts(body []byte) ([]RawPost, error) {
	var posts []RawPost
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Post は正規化済みの投稿を表す。
// RawPostから1回だけ導出され、構築後は変更されない。
type Post struct {
	ID          int64  // 0 = 不明
	Permalink   string
	Title       string // title.rendered の生の値。属性値として使う場合はタグ除去が必要
	ContentHTML string
	PublishedAt string // リモートの日時文字列をそのまま保持する
	ModifiedAt  string

	// FeaturedImage はサイズ名→画像の対応。
	// リモート側のコンパニオンプラグインがREST応答に付与するfeatured_imageフィールド由来。
	FeaturedImage map[string]ImageRef

	// FeaturedMedia は_embedded.['wp:featuredmedia'][0]由来の画像。
	FeaturedMedia *ImageRef
}

// ResolveImage は要求サイズに対して表示すべき画像を解決する。
// 優先順位:
//  1. FeaturedImageに要求サイズが存在すればそれを使う
//  2. FeaturedMediaが存在すればサイズ指定に関わらずfullとして使う
//  3. いずれも無ければ画像なし
//
// 戻り値の2番目は実際に採用されたサイズ名。
func (p *Post) ResolveImage(size string) (ImageRef, string, bool) {
	if size != "" {
		if ref, ok := p.FeaturedImage[size]; ok {
			return ref, size, true
		}
	}
	if p.FeaturedMedia != nil {
		return *p.FeaturedMedia, "full", true
	}
	return ImageRef{}, "", false
}
