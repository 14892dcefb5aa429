package render

// Attr はimgタグに追加する属性を表す。
type Attr struct {
	Name  string
	Value string
}

// ImageAttributeProvider は画像タグに属性を追加する拡張ポイント。
// ズームやレイジーロード等のフロント連携用のdata属性を差し込む用途を想定する。
// 既定は何もしない実装。
type ImageAttributeProvider interface {
	// ImageAttributes は設定に応じてimgタグへ追加する属性を返す。
	ImageAttributes(cfg Config) []Attr
}

// NoopImageAttributes は属性を追加しない既定のImageAttributeProvider実装。
type NoopImageAttributes struct{}

// ImageAttributes は常にnilを返す。
func (NoopImageAttributes) ImageAttributes(Config) []Attr { return nil }

// ItemMarkup は1件分のレンダリング結果と中間フラグメントをまとめたもの。
// OutputFilterに渡され、外部コードがパイプラインを変更せずに
// 個々のアイテムのマークアップを書き換えられるようにする。
type ItemMarkup struct {
	HTML        string // 合成済みのアイテム全体のマークアップ
	Config      Config
	Image       string
	Title       string
	Date        string
	Excerpt     string
	ItemElement string
	Content     string
	Classes     []string
	Author      string
	Category    string
}

// OutputFilter はアイテム1件ごとに呼ばれる出力フィルタの拡張ポイント。
type OutputFilter interface {
	// Filter は合成済みマークアップを受け取り、（必要なら書き換えた）マークアップを返す。
	Filter(item ItemMarkup) string
}

// IdentityFilter は入力をそのまま返す既定のOutputFilter実装。
type IdentityFilter struct{}

// Filter は合成済みマークアップを変更せずに返す。
func (IdentityFilter) Filter(item ItemMarkup) string { return item.HTML }
