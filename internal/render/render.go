package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hitoshi/postremote/internal/model"
)

// listingClass はラッパー要素に付与するクラス名。
const listingClass = "display-posts-listing"

// itemClass は各アイテム要素に付与するクラス名。
const itemClass = "listing-item"

// noPostsFragment は投稿が1件も無い場合に返す固定フラグメント。
const noPostsFragment = "<div>表示できる投稿がありません。</div>"

// dateLayouts はリモートの日時文字列の解析に試すレイアウト。
// WP REST APIはタイムゾーンなしのISO 8601形式を返す。
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Renderer は正規化済み投稿一覧からHTMLリスティングフラグメントを組み立てる。
// レンダリングは決定的であり、フック呼び出し以外の副作用を持たない。
// 不正な設定値はエラーにせず安全な既定値に縮退する。
type Renderer struct {
	contentPolicy  *bluemonday.Policy
	imageAttrs     ImageAttributeProvider
	filter         OutputFilter
	siteDateFormat string
}

// NewRenderer はRendererの新しいインスタンスを生成する。
// siteDateFormatはdate_formatオプションが空の場合に使うGoの参照レイアウト。
// imageAttrsとfilterにnilを渡すと、それぞれ何もしない既定実装が使われる。
func NewRenderer(siteDateFormat string, imageAttrs ImageAttributeProvider, filter OutputFilter) *Renderer {
	if imageAttrs == nil {
		imageAttrs = NoopImageAttributes{}
	}
	if filter == nil {
		filter = IdentityFilter{}
	}
	return &Renderer{
		contentPolicy:  newContentPolicy(),
		imageAttrs:     imageAttrs,
		filter:         filter,
		siteDateFormat: siteDateFormat,
	}
}

// newContentPolicy は投稿本文のサニタイズポリシーを構築する。
// 許可リストに無いタグ（script, iframe, style等）とon*イベント属性は除去される。
func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "h2", "h3", "h4",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)

	return p
}

// Render は投稿一覧を設定に従ってHTMLフラグメントに変換する。
// 投稿は入力順のまま出力される。空の一覧は固定のプレースホルダーフラグメントになる。
func (r *Renderer) Render(posts []model.Post, cfg Config) string {
	if len(posts) == 0 {
		return noPostsFragment
	}

	wrapper := cfg.Wrapper
	if !allowedWrappers[wrapper] {
		wrapper = "ul"
	}
	itemElement := "li"
	if wrapper == "div" {
		itemElement = "div"
	}

	var b strings.Builder
	b.WriteString("<" + wrapper + ` class="` + listingClass + `">` + "\n")

	for _, p := range posts {
		b.WriteString(r.renderItem(&p, cfg, itemElement))
	}

	b.WriteString("</" + wrapper + ">\n")
	return b.String()
}

// ErrorFragment はフェッチ・URLエラーを利用者向けのフラグメントに変換する。
// 部分的なリスティングがエラーと並んで出力されることはない。
func (r *Renderer) ErrorFragment(err error) string {
	msg := "投稿の取得中にエラーが発生しました。"
	if apiErr, ok := err.(*model.APIError); ok {
		msg = apiErr.Message
	}
	return "<div>" + html.EscapeString(msg) + "</div>"
}

// renderItem は投稿1件分のアイテム要素を組み立て、出力フィルタに通す。
// マークアップの合成順序は 画像 → タイトル → 日付 → 本文 の固定順。
func (r *Renderer) renderItem(p *model.Post, cfg Config, itemElement string) string {
	image := r.imageMarkup(p, cfg)
	title := r.titleMarkup(p, cfg)
	date := r.dateMarkup(p, cfg)
	content := r.contentMarkup(p, cfg)

	composed := fmt.Sprintf("<%s class=\"%s\">%s%s%s%s</%s>\n",
		itemElement, itemClass, image, title, date, content, itemElement)

	return r.filter.Filter(ItemMarkup{
		HTML:        composed,
		Config:      cfg,
		Image:       image,
		Title:       title,
		Date:        date,
		Excerpt:     "",
		ItemElement: itemElement,
		Content:     content,
		Classes:     []string{itemClass},
		Author:      "",
		Category:    "",
	})
}

// titleMarkup はタイトル要素を組み立てる。
// include_linkとinclude_titleが両方有効ならリンク付き、include_titleのみなら
// テキストのみ、どちらでもなければ省略。タイトルはタグ除去と属性エスケープを行う。
func (r *Renderer) titleMarkup(p *model.Post, cfg Config) string {
	if !cfg.IncludeTitle {
		return ""
	}

	text := html.EscapeString(stripTags(p.Title))

	if cfg.IncludeLink {
		return `<span class="title"><a href="` + html.EscapeString(p.Permalink) + `">` + text + `</a></span>`
	}
	return `<span class="title">` + text + `</span>`
}

// imageMarkup は画像要素を組み立てる。画像が解決できない場合は省略。
func (r *Renderer) imageMarkup(p *model.Post, cfg Config) string {
	ref, sizeName, ok := p.ResolveImage(cfg.ImageSize)
	if !ok {
		return ""
	}

	img := r.imageTag(ref, sizeName, cfg)

	if cfg.IncludeLink {
		return `<a class="image" href="` + html.EscapeString(p.Permalink) + `">` + img + `</a> `
	}
	return `<span class="image">` + img + `</span> `
}

// imageTag はimg要素を組み立てる。幅・高さは判明している場合のみ出力する。
func (r *Renderer) imageTag(ref model.ImageRef, sizeName string, cfg Config) string {
	var b strings.Builder
	b.WriteString("<img")

	if ref.Width > 0 && ref.Height > 0 {
		fmt.Fprintf(&b, ` width="%d" height="%d"`, ref.Width, ref.Height)
	}
	b.WriteString(` src="` + html.EscapeString(ref.URL) + `"`)
	fmt.Fprintf(&b, ` class="attachment-%s size-%s"`, sizeName, sizeName)

	for _, attr := range r.imageAttrs.ImageAttributes(cfg) {
		fmt.Fprintf(&b, ` %s="%s"`, attr.Name, html.EscapeString(attr.Value))
	}

	b.WriteString(" />")
	return b.String()
}

// dateMarkup は日付要素を組み立てる。
// include_dateが有効なら公開日時、そうでなくinclude_date_modifiedが有効なら
// 更新日時、どちらでもなければ省略。
func (r *Renderer) dateMarkup(p *model.Post, cfg Config) string {
	var raw string
	switch {
	case cfg.IncludeDate:
		raw = p.PublishedAt
	case cfg.IncludeDateModified:
		raw = p.ModifiedAt
	default:
		return ""
	}

	return ` <span class="date">` + html.EscapeString(r.formatDate(raw, cfg)) + `</span>`
}

// formatDate はリモートの日時文字列を設定のレイアウトでフォーマットする。
// レイアウトが空の場合はサイト既定のフォーマットを使う。
// 解析できない日時文字列はそのまま返す（欠損より生の値を優先する）。
func (r *Renderer) formatDate(raw string, cfg Config) string {
	if raw == "" {
		return ""
	}

	layout := cfg.DateFormat
	if layout == "" {
		layout = r.siteDateFormat
	}

	for _, parseLayout := range dateLayouts {
		if t, err := time.Parse(parseLayout, raw); err == nil {
			return t.Format(layout)
		}
	}
	return raw
}

// contentMarkup は本文要素を組み立てる。include_contentが無効なら省略。
// 本文HTMLはサニタイズした上でcontent_classのdivで包む。
func (r *Renderer) contentMarkup(p *model.Post, cfg Config) string {
	if !cfg.IncludeContent {
		return ""
	}

	return `<div class="` + strings.Join(cfg.ContentClasses, " ") + `">` +
		r.contentPolicy.Sanitize(p.ContentHTML) + `</div>`
}

// stripTags はHTML文字列からタグを除去し、デコード済みのテキストのみを返す。
// 戻り値は生テキストなので、出力時に呼び出し側で必ずエスケープすること。
// タグを含まない場合もエンティティをデコードする。タイトルには
// &amp; や &#8217; のようなエンティティだけが含まれることが多く、
// デコードせずに再エスケープすると二重エンコードになる。
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return html.UnescapeString(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}
	return b.String()
}
