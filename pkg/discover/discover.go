package discover

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DI)
// ----------------------------------------------------------------------

// Fetcher は、HTMLドキュメントを取得する機能のインターフェースを定義します。
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Discoverer は、サイトのトップページから番組一覧を発見するプロセスを管理します。
type Discoverer struct {
	fetcher Fetcher
}

// NewDiscoverer は、新しいDiscovererのインスタンスを生成します。
func NewDiscoverer(fetcher Fetcher) (*Discoverer, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("discover.NewDiscoverer: Fetcher cannot be nil")
	}
	return &Discoverer{
		fetcher: fetcher,
	}, nil
}

// ----------------------------------------------------------------------
// 定数定義 (解析関連のみ)
// ----------------------------------------------------------------------
const (
	// mainAreaSelector は番組リンクの探索範囲をサイトのメイン領域に限定します。
	mainAreaSelector = "#et-main-area"

	// programPathFragment を含むリンクだけを番組ページとして扱います。
	programPathFragment = "/programa/"

	imageWrapperSelector = "div.dsm-perspective-image-wrapper"
	columnBlockSelector  = "div[class*='et_pb_column']"
	textInnerSelector    = "div.et_pb_text_inner"
)

// displayNameCaser はスラッグから表示名を作る際の単語頭大文字化に使用します。
var displayNameCaser = cases.Title(language.BrazilianPortuguese)

// ----------------------------------------------------------------------
// メイン関数 (メソッド化)
// ----------------------------------------------------------------------

// Discover は、ベースURLのページを取得し、番組ページへのリンクを発見します。
// 戻り値はDOMの出現順を保持し、スラッグで重複排除されます。
func (d *Discoverer) Discover(ctx context.Context, baseURL string) ([]podcast.Podcast, error) {
	doc, err := d.fetcher.FetchDocument(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ベースURLのパースエラー: %w", err)
	}

	// 1. 探索範囲をメインコンテンツ領域に限定
	mainArea := doc.Find(mainAreaSelector)
	if mainArea.Length() == 0 {
		return nil, fmt.Errorf("メインコンテンツ領域 (%s) が見つかりませんでした", mainAreaSelector)
	}

	found := newFoundSet(base)

	// 2. 戦略1: 画像ラッパー内の番組リンクを探索
	mainArea.Find(imageWrapperSelector).Each(func(i int, wrapper *goquery.Selection) {
		link := wrapper.Find("a[href]").FilterFunction(isProgramLink).First()
		if link.Length() > 0 {
			found.add(link)
		}
	})

	// 3. 戦略2: 番組ページへの直接リンクを探索
	mainArea.Find("a[href]").FilterFunction(isProgramLink).Each(func(i int, link *goquery.Selection) {
		if !found.hasURL(link) {
			found.add(link)
		}
	})

	// 4. 戦略3: カード状のコンテンツブロック内を探索
	mainArea.Find(columnBlockSelector).Each(func(i int, block *goquery.Selection) {
		link := block.Find("a[href]").FilterFunction(isProgramLink).First()
		if link.Length() > 0 && !found.hasURL(link) {
			found.add(link)
		}
	})

	return found.podcasts, nil
}

// isProgramLink は、href属性が番組ページを指すリンクかを判定します。
func isProgramLink(i int, s *goquery.Selection) bool {
	href, exists := s.Attr("href")
	return exists && strings.Contains(href, programPathFragment)
}

// ----------------------------------------------------------------------
// 発見結果の収集
// ----------------------------------------------------------------------

// foundSet は発見済みの番組を出現順に保持し、スラッグとURLで重複を排除します。
type foundSet struct {
	base     *url.URL
	podcasts []podcast.Podcast
	seenName map[string]struct{}
	seenURL  map[string]struct{}
}

func newFoundSet(base *url.URL) *foundSet {
	return &foundSet{
		base:     base,
		seenName: make(map[string]struct{}),
		seenURL:  make(map[string]struct{}),
	}
}

// hasURL は、リンク先URLが既に発見済みかを返します。
func (f *foundSet) hasURL(link *goquery.Selection) bool {
	href, exists := link.Attr("href")
	if !exists {
		return false
	}
	_, seen := f.seenURL[f.resolve(href)]
	return seen
}

// add は、リンク要素から番組情報を抽出して登録します。
// 同じスラッグの番組が既にある場合は何もしません。
func (f *foundSet) add(link *goquery.Selection) {
	href, exists := link.Attr("href")
	if !exists {
		return
	}
	absURL := f.resolve(href)

	name := slugFromURL(absURL)
	if name == "" {
		return
	}
	if _, seen := f.seenName[name]; seen {
		return
	}

	f.seenName[name] = struct{}{}
	f.seenURL[absURL] = struct{}{}
	f.podcasts = append(f.podcasts, podcast.Podcast{
		Name:        name,
		DisplayName: displayName(link, name),
		URL:         absURL,
	})
}

// resolve は、相対URLをベースURLに対して絶対化します。
func (f *foundSet) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return f.base.ResolveReference(ref).String()
}

// ----------------------------------------------------------------------
// ヘルパー関数
// ----------------------------------------------------------------------

// slugFromURL は、番組URLのパスの最終セグメントをスラッグとして返します。
func slugFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// displayName は、番組の表示名を複数の候補から順に解決します。
func displayName(link *goquery.Selection, name string) string {
	// 1. リンク自身のテキスト
	if text := strings.TrimSpace(link.Text()); text != "" {
		return text
	}

	// 2. 親要素の次に現れるテキストブロック
	textDiv := link.Parent().NextAllFiltered(textInnerSelector).First()
	if text := strings.TrimSpace(textDiv.Text()); text != "" {
		return text
	}

	// 3. リンク内の画像のtitle属性
	if title, exists := link.Find("img").First().Attr("title"); exists {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}

	// 4. スラッグを整形して代用
	return displayNameCaser.String(strings.ReplaceAll(name, "-", " "))
}
