// Package render は正規化済み投稿一覧からHTMLリスティングフラグメントを生成する。
package render

import (
	"strconv"
	"strings"
	"time"
)

// DayInSeconds はキャッシュTTLの既定値（1日）。
const DayInSeconds = 86400

// 許可されるラッパー要素。これ以外はulに縮退する。
var allowedWrappers = map[string]bool{
	"ul":  true,
	"ol":  true,
	"div": true,
}

// Config は検証済みのレンダリング設定を表す。
// 未検証のオプションマップからParseOptionsで1回構築し、以降は変更しない。
type Config struct {
	CategoryID          int
	ContentClasses      []string
	DateFormat          string // Goの参照レイアウト。空の場合はサイト既定のフォーマットを使う
	IncludeContent      bool
	IncludeDate         bool
	IncludeDateModified bool
	IncludeLink         bool
	IncludeTitle        bool
	ImageSize           string
	URL                 string
	Wrapper             string
	CacheTimeout        time.Duration
}

// Defaults は設定の既定値を返す。
func Defaults() Config {
	return Config{
		CategoryID:     0,
		ContentClasses: []string{"content"},
		DateFormat:     "",
		IncludeLink:    true,
		IncludeTitle:   true,
		ImageSize:      "thumbnail",
		Wrapper:        "ul",
		CacheTimeout:   DayInSeconds * time.Second,
	}
}

// オプションマップのキー。
const (
	optCategoryID          = "category_id"
	optContentClass        = "content_class"
	optDateFormat          = "date_format"
	optIncludeContent      = "include_content"
	optIncludeDate         = "include_date"
	optIncludeDateModified = "include_date_modified"
	optIncludeLink         = "include_link"
	optIncludeTitle        = "include_title"
	optImageSize           = "image_size"
	optURL                 = "url"
	optWrapper             = "wrapper"
	optCacheTimeout        = "cache_timeout"
)

// ParseOptions は未検証のオプションマップを検証済みConfigに変換する。
// defaultsに無いキーは無視され、不正な値は安全な既定値に縮退する。エラーは返さない
// （URLの検証はシグネチャ構築時に行われる）。
func ParseOptions(defaults Config, opts map[string]string) Config {
	cfg := defaults

	if v, ok := opts[optCategoryID]; ok {
		cfg.CategoryID = absInt(v)
	}
	if v, ok := opts[optContentClass]; ok {
		cfg.ContentClasses = htmlClassList(v)
	}
	if v, ok := opts[optDateFormat]; ok {
		cfg.DateFormat = strings.TrimSpace(v)
	}
	if v, ok := opts[optIncludeContent]; ok {
		cfg.IncludeContent = toBoolean(v)
	}
	if v, ok := opts[optIncludeDate]; ok {
		cfg.IncludeDate = toBoolean(v)
	}
	if v, ok := opts[optIncludeDateModified]; ok {
		cfg.IncludeDateModified = toBoolean(v)
	}
	if v, ok := opts[optIncludeLink]; ok {
		cfg.IncludeLink = toBoolean(v)
	}
	if v, ok := opts[optIncludeTitle]; ok {
		cfg.IncludeTitle = toBoolean(v)
	}
	if v, ok := opts[optImageSize]; ok {
		cfg.ImageSize = sanitizeKey(v)
	}
	if v, ok := opts[optURL]; ok {
		cfg.URL = strings.TrimSpace(v)
	}
	if v, ok := opts[optWrapper]; ok {
		cfg.Wrapper = strings.TrimSpace(v)
	}
	if v, ok := opts[optCacheTimeout]; ok {
		cfg.CacheTimeout = time.Duration(absInt(v)) * time.Second
	}

	if !allowedWrappers[cfg.Wrapper] {
		cfg.Wrapper = "ul"
	}

	return cfg
}

// toBoolean はyes/no、true/false、on/off、0/1の文字列をboolに変換する。
// いずれにも一致しない値はfalseとして扱う。
func toBoolean(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// absInt は文字列を非負整数に変換する。数値でない場合は0、負数は絶対値を返す。
func absInt(v string) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	if i < 0 {
		return -i
	}
	return i
}

// htmlClassList は空白区切りのクラス指定をCSSクラスとして安全な識別子の一覧にする。
func htmlClassList(v string) []string {
	var classes []string
	for _, field := range strings.Fields(v) {
		if c := sanitizeHTMLClass(field); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}

// sanitizeHTMLClass は英数字・ハイフン・アンダースコア以外の文字を除去する。
func sanitizeHTMLClass(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizeKey は小文字化した上で英数字・ハイフン・アンダースコア以外の文字を除去する。
func sanitizeKey(v string) string {
	return sanitizeHTMLClass(strings.ToLower(strings.TrimSpace(v)))
}
