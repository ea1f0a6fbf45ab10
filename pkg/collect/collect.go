package collect

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
	"golang.org/x/time/rate"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

const (
	// DefaultPageDelay は、ページ取得間のデフォルトの待機時間を定義します。
	DefaultPageDelay = 1000 * time.Millisecond
	// DefaultMaxPages は、ページネーション追跡のデフォルトの上限ページ数です。
	// 「次へ」リンクが循環していてもループが止まることを保証します。
	DefaultMaxPages = 30
)

// ----------------------------------------------------------------------
// 定数定義 (解析関連のみ)
// ----------------------------------------------------------------------
const (
	episodeItemSelector    = "article.dgbm_post_item"
	episodeTitleSelector   = "h2.dg_bm_title a"
	episodeDateSelector    = "span.published"
	episodeExcerptSelector = "div.post-content"
	nextPageSelector       = "div.alignleft a"
)

// Collector は、番組ページを辿ってエピソードを収集するプロセスを管理します。
type Collector struct {
	fetcher  Fetcher
	limiter  *rate.Limiter
	maxPages int
}

// Option は Collector の設定を変更する関数です。
type Option func(*Collector)

// WithPageDelay は、ページ取得間の待機時間を設定します。
func WithPageDelay(delay time.Duration) Option {
	return func(c *Collector) {
		if delay > 0 {
			c.limiter = rate.NewLimiter(rate.Every(delay), 1)
		}
	}
}

// WithMaxPages は、1番組あたりの最大ページ数を設定します。
func WithMaxPages(maxPages int) Option {
	return func(c *Collector) {
		if maxPages > 0 {
			c.maxPages = maxPages
		}
	}
}

// NewCollector は、新しいCollectorのインスタンスを生成します。
func NewCollector(fetcher Fetcher, options ...Option) (*Collector, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("collect.NewCollector: Fetcher cannot be nil")
	}
	c := &Collector{
		fetcher:  fetcher,
		limiter:  rate.NewLimiter(rate.Every(DefaultPageDelay), 1),
		maxPages: DefaultMaxPages,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// ----------------------------------------------------------------------
// メイン関数 (メソッド化)
// ----------------------------------------------------------------------

// Collect は、番組の先頭ページから「次へ」リンクを辿り、全エピソードを収集します。
// 「次へ」リンクが無くなるか、最大ページ数に到達した時点で正常終了します。
// ページの取得に失敗した場合はそこで追跡を打ち切り、それまでに収集した
// エピソードとエラーの両方を返します。
func (c *Collector) Collect(ctx context.Context, p podcast.Podcast) ([]podcast.Episode, error) {
	var episodes []podcast.Episode
	currentURL := p.URL

	for page := 1; currentURL != ""; page++ {
		// 「次へ」リンクが循環していても上限で必ず停止する
		if page > c.maxPages {
			break
		}

		// 1. サーバーに負荷をかけないよう、ページ取得間隔を空ける
		if err := c.limiter.Wait(ctx); err != nil {
			return episodes, fmt.Errorf("ページ取得の待機中に中断されました: %w", err)
		}

		// 2. ページを取得
		doc, err := c.fetcher.FetchDocument(ctx, currentURL)
		if err != nil {
			return episodes, fmt.Errorf("ページ %d (%s) の取得に失敗しました: %w", page, currentURL, err)
		}

		// 3. ページ内のエピソードを抽出
		episodes = append(episodes, c.extractEpisodes(doc, p)...)

		// 4. 次ページのURLを解決 (無ければ空文字で終了)
		currentURL = c.nextPageURL(doc, currentURL)
	}

	return episodes, nil
}

// extractEpisodes は、1ページ分のドキュメントからエピソードを抽出します。
// 必須要素を欠く項目はスキップされます。
func (c *Collector) extractEpisodes(doc *goquery.Document, p podcast.Podcast) []podcast.Episode {
	var episodes []podcast.Episode

	doc.Find(episodeItemSelector).Each(func(i int, article *goquery.Selection) {
		ep, ok := c.extractEpisode(article, p)
		if !ok {
			return
		}
		episodes = append(episodes, ep)
	})

	return episodes
}

// extractEpisode は、記事要素から1件のエピソード情報を抽出します。
func (c *Collector) extractEpisode(article *goquery.Selection, p podcast.Podcast) (podcast.Episode, bool) {
	titleLink := article.Find(episodeTitleSelector).First()
	if titleLink.Length() == 0 {
		return podcast.Episode{}, false
	}

	title := textUtils.NormalizeText(titleLink.Text())
	href, exists := titleLink.Attr("href")
	if title == "" || !exists {
		return podcast.Episode{}, false
	}

	date := strings.TrimSpace(article.Find(episodeDateSelector).First().Text())
	if date == "" {
		date = podcast.DateUnavailable
	}

	// 抜粋はフィルタの判定対象になるため、存在すれば取り込む
	excerpt := textUtils.NormalizeText(article.Find(episodeExcerptSelector).First().Text())

	return podcast.Episode{
		Title:       title,
		Link:        c.resolveURL(p.URL, href),
		Date:        date,
		Description: excerpt,
		Podcast:     p.Name,
	}, true
}

// nextPageURL は、ページネーション要素から次ページのURLを解決します。
// 次ページが存在しない場合は空文字を返します。
func (c *Collector) nextPageURL(doc *goquery.Document, currentURL string) string {
	href, exists := doc.Find(nextPageSelector).First().Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return ""
	}
	return c.resolveURL(currentURL, href)
}

// resolveURL は、相対URLをベースURLに対して絶対化します。
func (c *Collector) resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
