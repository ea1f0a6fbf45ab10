package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-podcast-dig/pkg/collect"
	"github.com/shouni/go-podcast-dig/pkg/discover"
	"github.com/shouni/go-podcast-dig/pkg/export"
	"github.com/shouni/go-podcast-dig/pkg/filter"
	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

// Fetcher は、パイプラインが必要とするHTML取得機能のインターフェースです。
// discover.Fetcher および collect.Fetcher と同じメソッドセットを持つため、
// 単一のHTTPクライアントを全コンポーネントで共有できます。
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// statsPreviewCount は、番組ごとの統計で表示するエピソードの最大件数です。
const statsPreviewCount = 5

// Options は、スクレイピング実行全体の設定です。
type Options struct {
	// BaseURL は番組一覧を発見する起点のURLです。
	BaseURL string
	// OutDir はCSVファイルの出力先ディレクトリです。空ならデフォルトを使用します。
	OutDir string
	// PageDelay はページ取得間の待機時間です。ゼロ以下ならデフォルトを使用します。
	PageDelay time.Duration
	// MaxPages は1番組あたりの最大ページ数です。ゼロ以下ならデフォルトを使用します。
	MaxPages int
	// Only が指定された場合、スラッグが一致する番組のみを処理します。
	Only string
	// Keywords はフィルタのキーワードです。空ならブラジル史キーワードを使用します。
	Keywords []string
}

// Stats は、実行全体の集計結果です。
type Stats struct {
	PodcastsFound     int
	EpisodesCollected int
	EpisodesMatched   int
	FilesSaved        int
	Failures          int
}

// Run は、発見 → 収集 → フィルタ → 保存 のパイプラインを実行します。
// 個々の番組やページの失敗はログに記録して処理を継続し、
// コンテキストの中断と初期化の失敗のみがエラーとして返ります。
func Run(ctx context.Context, fetcher Fetcher, opts Options) (*Stats, error) {
	stats := &Stats{}

	// 1. 依存コンポーネントの初期化
	discoverer, err := discover.NewDiscoverer(fetcher)
	if err != nil {
		return stats, fmt.Errorf("Discovererの初期化エラー: %w", err)
	}
	collector, err := collect.NewCollector(fetcher,
		collect.WithPageDelay(opts.PageDelay),
		collect.WithMaxPages(opts.MaxPages),
	)
	if err != nil {
		return stats, fmt.Errorf("Collectorの初期化エラー: %w", err)
	}
	exporter, err := export.NewExporter(opts.OutDir)
	if err != nil {
		return stats, fmt.Errorf("Exporterの初期化エラー: %w", err)
	}
	matcher := filter.NewBrazilFilter()
	if len(opts.Keywords) > 0 {
		matcher = filter.NewFilter(opts.Keywords)
	}

	// 2. 番組の発見
	log.Printf("番組一覧の取得を開始します: %s", opts.BaseURL)
	podcasts, err := discoverer.Discover(ctx, opts.BaseURL)
	if err != nil {
		if isContextError(err) {
			return stats, err
		}
		// 発見の失敗は0件として扱い、実行自体は正常終了させる
		log.Printf("番組一覧の取得に失敗しました: %v", err)
		stats.Failures++
		return stats, nil
	}
	if len(podcasts) == 0 {
		log.Println("番組が見つかりませんでした。サイトの構造が変わっていないか確認してください。")
		return stats, nil
	}

	stats.PodcastsFound = len(podcasts)
	log.Printf("番組を %d 件発見しました。", len(podcasts))
	for _, p := range podcasts {
		log.Printf("- %s (%s)", p.DisplayName, p.URL)
	}

	// 3. 各番組の 収集 → フィルタ → 保存
	processed := 0
	for _, p := range podcasts {
		if opts.Only != "" && p.Name != opts.Only {
			continue
		}
		processed++
		if err := processPodcast(ctx, collector, matcher, exporter, p, stats); err != nil {
			return stats, err
		}
	}
	if opts.Only != "" && processed == 0 {
		log.Printf("指定された番組 (%s) は見つかりませんでした。", opts.Only)
	}

	// 4. 全体サマリー
	log.Printf("処理が完了しました (番組: %d, 収集: %d, 一致: %d, 保存ファイル: %d, 失敗: %d)",
		stats.PodcastsFound, stats.EpisodesCollected, stats.EpisodesMatched, stats.FilesSaved, stats.Failures)
	return stats, nil
}

// processPodcast は、1番組分の収集・フィルタ・保存を実行します。
// コンテキストの中断以外のエラーは記録のみ行い、nilを返します。
func processPodcast(ctx context.Context, collector *collect.Collector, matcher *filter.Filter, exporter *export.Exporter, p podcast.Podcast, stats *Stats) error {
	log.Printf("番組「%s」のスクレイピングを開始します。", p.DisplayName)

	episodes, err := collector.Collect(ctx, p)
	if err != nil {
		if isContextError(err) {
			return err
		}
		// ページ取得の失敗はそこまでの収集分で続行する
		log.Printf("番組「%s」の収集を途中で打ち切りました: %v", p.DisplayName, err)
		stats.Failures++
	}
	stats.EpisodesCollected += len(episodes)

	matched := matcher.Select(episodes)
	stats.EpisodesMatched += len(matched)
	if len(matched) == 0 {
		log.Printf("番組「%s」に対象トピックのエピソードは見つかりませんでした。", p.DisplayName)
		return nil
	}

	result, err := exporter.Save(p, matched)
	if err != nil {
		log.Printf("番組「%s」の保存に失敗しました: %v", p.DisplayName, err)
		stats.Failures++
		return nil
	}
	if result.UsedBackup {
		log.Printf("一次ファイルへの保存に失敗したため、バックアップに保存しました (原因: %v)", result.PrimaryErr)
	}
	stats.FilesSaved++
	log.Printf("ファイルを保存しました: %s", result.Path)

	verifySavedFile(result.Path)
	logPodcastStats(p, matched)
	return nil
}

// verifySavedFile は、保存したCSVを読み戻してエンコーディングを検証します。
func verifySavedFile(path string) {
	loaded, err := export.ReadEpisodes(path)
	if err != nil {
		log.Printf("保存ファイルの検証に失敗しました: %v", err)
		return
	}
	if len(loaded) == 0 {
		return
	}
	log.Printf("エンコーディング検証 - 先頭タイトル: %s", loaded[0].Title)
}

// logPodcastStats は、番組ごとの集計結果を出力します。
func logPodcastStats(p podcast.Podcast, matched []podcast.Episode) {
	log.Printf("番組「%s」の統計:", p.DisplayName)
	log.Printf("対象トピックのエピソード合計: %d件", len(matched))
	log.Printf("先頭の最大%d件:", statsPreviewCount)
	for i, ep := range matched {
		if i >= statsPreviewCount {
			break
		}
		log.Printf("- %s (%s)", ep.Title, ep.Date)
	}
}

// isContextError は、エラーがコンテキストの中断に由来するかを判定します。
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
