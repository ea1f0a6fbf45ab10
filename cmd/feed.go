package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-podcast-dig/pkg/export"
	"github.com/shouni/go-podcast-dig/pkg/feed"
	"github.com/shouni/go-podcast-dig/pkg/filter"
	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

// コマンドラインフラグ変数を定義
var (
	feedURL        string // --url 解析対象のフィードURL
	feedBrazilOnly bool   // --brazil-only ブラジル史キーワードで絞り込む
	feedSave       bool   // --save 結果をCSVに保存する
	feedOutDir     string // --out-dir CSVの出力先
)

// フィードの全体処理のタイムアウト設定
// Flags.TimeoutSec はHTTPクライアントのタイムアウト秒数を表します。
const overallFeedTimeoutFactor = 2 // クライアントタイムアウトの2倍

// runFeedPipeline は、フィードの取得とエピソードへの変換を実行するメインロジックです。
func runFeedPipeline(url string, parser *feed.Parser, overallTimeout time.Duration) ([]podcast.Episode, string, error) {
	// 1. 全体処理のコンテキストを設定
	ctx, cancel := context.WithTimeout(context.Background(), overallTimeout)
	defer cancel()

	// 2. 取得と変換の実行
	episodes, title, err := parser.FetchEpisodes(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("フィードの取得およびパースエラー (URL: %s): %w", url, err)
	}

	return episodes, title, nil
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "RSS/Atomフィードからエピソードを取得し、一覧表示・CSV保存します",
	Long:  `指定されたURLからRSSまたはAtomフィードを取得し、エピソード (タイトル、URL、公開日) を整形して表示します。キーワードでの絞り込みとCSVファイルへの保存も行えます。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {

		// 全体タイムアウトを設定: クライアントタイムアウトの2倍
		overallTimeout := time.Duration(Flags.TimeoutSec) * overallFeedTimeoutFactor * time.Second
		if Flags.TimeoutSec == 0 {
			overallTimeout = DefaultOverallTimeout
		}

		processedURL, err := ensureScheme(feedURL)
		if err != nil {
			return err
		}

		log.Printf("処理対象フィードURL: %s (全体タイムアウト: %s)", processedURL, overallTimeout)

		// 1. 依存性の初期化
		fetcher := GetGlobalFeedFetcher()
		if fetcher == nil {
			return fmt.Errorf("HTTPクライアントの取得に失敗しました")
		}

		client, ok := fetcher.(*httpkit.Client)
		if !ok {
			return fmt.Errorf("予期しないHTTPクライアントの実装です: %T。feed.NewParserは*httpkit.Clientを期待します。", fetcher)
		}

		// NewParser を利用
		parser := feed.NewParser(client)

		// 2. メインロジックの実行
		episodes, title, err := runFeedPipeline(processedURL, parser, overallTimeout)
		if err != nil {
			return fmt.Errorf("フィード解析パイプラインの実行エラー: %w", err)
		}

		// 3. キーワードによる絞り込み (任意)
		if feedBrazilOnly {
			episodes = filter.NewBrazilFilter().Select(episodes)
		}

		// 4. 結果の出力
		fmt.Printf("--- フィード解析結果 ---\n")
		fmt.Printf("フィードタイトル: %s\n", title)
		fmt.Printf("合計エピソード数: %d\n", len(episodes))
		fmt.Println("-----------------------")

		for i, ep := range episodes {
			fmt.Printf("[%d] %s\n", i+1, ep.Title)
			fmt.Printf("    URL: %s\n", ep.Link)
			fmt.Printf("    公開日: %s\n", ep.Date)
		}
		// 最後に改行を加えて出力完了とする
		fmt.Println()

		// 5. CSVへの保存 (任意)
		if feedSave {
			if len(episodes) == 0 {
				log.Println("保存対象のエピソードがないため、CSVは作成しません。")
				return nil
			}
			exporter, err := export.NewExporter(feedOutDir)
			if err != nil {
				return fmt.Errorf("Exporterの初期化エラー: %w", err)
			}
			result, err := exporter.Save(podcast.Podcast{
				Name:        feedSlug(title),
				DisplayName: title,
				URL:         processedURL,
			}, episodes)
			if err != nil {
				return fmt.Errorf("CSVの保存エラー: %w", err)
			}
			if result.UsedBackup {
				log.Printf("一次ファイルへの保存に失敗したため、バックアップに保存しました (原因: %v)", result.PrimaryErr)
			}
			log.Printf("ファイルを保存しました: %s", result.Path)
		}

		return nil
	},
}

// feedSlug は、フィードタイトルをファイル名に使えるスラッグへ変換します。
func feedSlug(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return "feed"
	}
	title = strings.ReplaceAll(title, "/", " ")
	return strings.Join(strings.Fields(title), "-")
}

func init() {
	// サブコマンド固有のフラグ定義
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "解析対象のフィード (RSS/Atom) URL")
	feedCmd.Flags().BoolVar(&feedBrazilOnly, "brazil-only", false, "ブラジル史キーワードに一致するエピソードのみを表示する")
	feedCmd.Flags().BoolVar(&feedSave, "save", false, "取得したエピソードをCSVファイルに保存する")
	feedCmd.Flags().StringVarP(&feedOutDir, "out-dir", "o", export.DefaultOutputDir, "CSVファイルの出力先ディレクトリ")

	// URLフラグを必須にする
	feedCmd.MarkFlagRequired("url")
}
