// Package post はWP REST APIの生の投稿オブジェクトを正規化済みのPostに変換する。
// 正規化は純粋関数であり、ネットワークアクセスを伴わず、エラーも返さない。
// 欠損・不正なフィールドはすべて既定値（空文字列・不在）に縮退する。
package post

import (
	"strconv"

	"github.com/hitoshi/postremote/internal/model"
)

// Normalize は生の投稿オブジェクト1件を正規化する。
// どのフィールドが欠けていてもpanicやエラーにはならない。
func Normalize(raw model.RawPost) model.Post {
	p := model.Post{
		ID:          intValue(raw["id"]),
		Permalink:   stringValue(raw["link"]),
		Title:       renderedValue(raw["title"]),
		ContentHTML: renderedValue(raw["content"]),
		PublishedAt: stringValue(raw["date"]),
		ModifiedAt:  stringValue(raw["modified"]),
	}

	p.FeaturedImage = featuredImages(raw["featured_image"])
	p.FeaturedMedia = featuredMedia(raw["_embedded"])

	return p
}

// NormalizeAll は投稿一覧をまとめて正規化する。入力順は保持される。
func NormalizeAll(raws []model.RawPost) []model.Post {
	posts := make([]model.Post, 0, len(raws))
	for _, raw := range raws {
		posts = append(posts, Normalize(raw))
	}
	return posts
}

// featuredImages はfeatured_imageフィールド（サイズ名→画像メタ）を抽出する。
// 値は{url,width,height}オブジェクト形式と[url,width,height,crop]配列形式の
// 両方を受け付ける（リモート側のプラグインは配列形式を返す）。
func featuredImages(v any) map[string]model.ImageRef {
	sizes, ok := v.(map[string]any)
	if !ok || len(sizes) == 0 {
		return nil
	}

	images := make(map[string]model.ImageRef, len(sizes))
	for size, meta := range sizes {
		if ref, ok := imageRef(meta); ok {
			images[size] = ref
		}
	}
	if len(images) == 0 {
		return nil
	}
	return images
}

// featuredMedia は_embedded.['wp:featuredmedia'][0]から埋め込みメディアを抽出する。
// source_urlが無い場合は不在として扱う。
func featuredMedia(v any) *model.ImageRef {
	embedded, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	mediaList, ok := embedded["wp:featuredmedia"].([]any)
	if !ok || len(mediaList) == 0 {
		return nil
	}
	media, ok := mediaList[0].(map[string]any)
	if !ok {
		return nil
	}

	sourceURL := stringValue(media["source_url"])
	if sourceURL == "" {
		return nil
	}

	ref := model.ImageRef{URL: sourceURL}
	if details, ok := media["media_details"].(map[string]any); ok {
		ref.Width = int(intValue(details["width"]))
		ref.Height = int(intValue(details["height"]))
	}
	return &ref
}

// imageRef は画像メタ1件をImageRefに変換する。
func imageRef(v any) (model.ImageRef, bool) {
	switch meta := v.(type) {
	case map[string]any:
		url := stringValue(meta["url"])
		if url == "" {
			// wp_get_attachment_image_srcの命名に合わせたsource_urlも許容する
			url = stringValue(meta["source_url"])
		}
		if url == "" {
			return model.ImageRef{}, false
		}
		return model.ImageRef{
			URL:    url,
			Width:  int(intValue(meta["width"])),
			Height: int(intValue(meta["height"])),
		}, true
	case []any:
		if len(meta) == 0 {
			return model.ImageRef{}, false
		}
		url := stringValue(meta[0])
		if url == "" {
			return model.ImageRef{}, false
		}
		ref := model.ImageRef{URL: url}
		if len(meta) > 1 {
			ref.Width = int(intValue(meta[1]))
		}
		if len(meta) > 2 {
			ref.Height = int(intValue(meta[2]))
		}
		return ref, true
	default:
		return model.ImageRef{}, false
	}
}

// stringValue は値を文字列として取り出す。文字列でない場合は空文字列。
func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// intValue は値を整数として取り出す。JSON数値・数値文字列の両方を受け付ける。
func intValue(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// renderedValue は{rendered: "..."}形式のフィールドから描画済み文字列を取り出す。
func renderedValue(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	return stringValue(m["rendered"])
}
