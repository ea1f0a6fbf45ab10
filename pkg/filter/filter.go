package filter

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

// BrazilKeywords は、ブラジル史に関連するエピソードを識別するための静的キーワードリストです。
// 部分一致で判定するため、過検出・取りこぼしがあり得る点は仕様上許容します。
var BrazilKeywords = []string{
	"brasil", "brasileiro", "brasileira", "império", "dom pedro",
	"república", "colonial", "colônia", "independência", "ditadura",
	"vargas", "military", "indígena", "bandeirante", "escravo",
	"abolição", "quilombo", "cangaço", "regência", "provincial",
	"getúlio", "jk", "kubitschek", "nova república", "primeiro reinado",
	"segundo reinado", "período regencial", "guerra do paraguai",
}

// Filter は、エピソードが対象トピックに関連するかをキーワードの部分一致で判定します。
type Filter struct {
	keywords []string
}

// NewFilter は、指定されたキーワードリストを持つFilterを生成します。
// キーワードは比較前に小文字化とNFC正規化を施して保持します。
func NewFilter(keywords []string) *Filter {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = normalize(kw)
		if kw == "" {
			continue
		}
		normalized = append(normalized, kw)
	}
	return &Filter{keywords: normalized}
}

// NewBrazilFilter は、ブラジル史キーワードで初期化したFilterを生成します。
func NewBrazilFilter() *Filter {
	return NewFilter(BrazilKeywords)
}

// Matches は、エピソードのタイトルまたは概要がいずれかのキーワードを含む場合にtrueを返します。
func (f *Filter) Matches(ep podcast.Episode) bool {
	return f.MatchesText(ep.Title) || f.MatchesText(ep.Description)
}

// MatchesText は、テキストがいずれかのキーワードを含む場合にtrueを返します。
// 大文字小文字は区別せず、合成済み文字と結合文字の表記ゆれはNFC正規化で吸収します。
func (f *Filter) MatchesText(text string) bool {
	if text == "" {
		return false
	}
	normalized := normalize(text)
	for _, kw := range f.keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// MatchedKeywords は、テキストに含まれるキーワードをリスト定義順に返します。
// 1件もマッチしない場合はnilを返します。
func (f *Filter) MatchedKeywords(text string) []string {
	if text == "" {
		return nil
	}
	normalized := normalize(text)
	var matched []string
	for _, kw := range f.keywords {
		if strings.Contains(normalized, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Select は、エピソード列からキーワードにマッチするものだけを抽出します。
// 入力の順序は保持されます。
func (f *Filter) Select(episodes []podcast.Episode) []podcast.Episode {
	var selected []podcast.Episode
	for _, ep := range episodes {
		if f.Matches(ep) {
			selected = append(selected, ep)
		}
	}
	return selected
}

// normalize は比較用の正規化を行います。NFC変換後に小文字化します。
func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
