package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-podcast-dig/internal/pipeline"
	"github.com/shouni/go-podcast-dig/pkg/collect"
	"github.com/shouni/go-podcast-dig/pkg/export"
)

// コマンドラインフラグ変数を定義
var (
	scrapeBaseURL  string        // --base-url 番組一覧の起点URL
	scrapeOutDir   string        // --out-dir CSVの出力先
	scrapeDelay    time.Duration // --delay ページ取得間の待機時間
	scrapeMaxPages int           // --max-pages 1番組あたりの上限ページ数
	scrapeOnly     string        // --podcast 処理対象を1番組に絞る
	scrapeKeywords []string      // --keyword フィルタキーワードの上書き
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "番組を発見し、キーワードに一致するエピソードをCSVに保存します",
	Long: `サイトのトップページから番組一覧を発見し、各番組のエピソード一覧をページネーションを辿って収集します。
タイトルまたは概要がキーワードに一致したエピソードを、番組ごとのCSVファイル (BOM付きUTF-8) に保存します。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {

		// 1. 依存性の初期化
		fetcher := GetGlobalFetcher()
		if fetcher == nil {
			return fmt.Errorf("HTTPクライアントの取得に失敗しました")
		}

		baseURL, err := ensureScheme(scrapeBaseURL)
		if err != nil {
			return err
		}

		// 2. 実行時間はページ数×待機時間に比例するため、全体タイムアウトは設けない
		ctx := cmd.Context()

		log.Printf("スクレイピングを開始します (起点: %s, 出力先: %s, 待機時間: %s)", baseURL, scrapeOutDir, scrapeDelay)

		// 3. メインロジックの実行
		stats, err := pipeline.Run(ctx, fetcher, pipeline.Options{
			BaseURL:   baseURL,
			OutDir:    scrapeOutDir,
			PageDelay: scrapeDelay,
			MaxPages:  scrapeMaxPages,
			Only:      scrapeOnly,
			Keywords:  scrapeKeywords,
		})
		if err != nil {
			return fmt.Errorf("スクレイピングパイプラインの実行エラー: %w", err)
		}

		// 4. 結果の出力
		fmt.Println("--- スクレイピング結果 ---")
		fmt.Printf("発見した番組数: %d\n", stats.PodcastsFound)
		fmt.Printf("収集したエピソード数: %d\n", stats.EpisodesCollected)
		fmt.Printf("キーワードに一致した数: %d\n", stats.EpisodesMatched)
		fmt.Printf("保存したファイル数: %d\n", stats.FilesSaved)
		if stats.Failures > 0 {
			fmt.Printf("失敗した処理数: %d\n", stats.Failures)
		}
		fmt.Println("--------------------------")

		return nil
	},
}

func init() {
	// サブコマンド固有のフラグ定義
	scrapeCmd.Flags().StringVar(&scrapeBaseURL, "base-url", defaultBaseURL,
		"番組一覧を発見する起点のURL")
	scrapeCmd.Flags().StringVarP(&scrapeOutDir, "out-dir", "o", export.DefaultOutputDir,
		"CSVファイルの出力先ディレクトリ")
	scrapeCmd.Flags().DurationVar(&scrapeDelay, "delay", collect.DefaultPageDelay,
		"ページ取得間の待機時間")
	scrapeCmd.Flags().IntVar(&scrapeMaxPages, "max-pages", collect.DefaultMaxPages,
		"1番組あたりの最大ページ数")
	scrapeCmd.Flags().StringVar(&scrapeOnly, "podcast", "",
		"指定したスラッグの番組のみを処理する")
	scrapeCmd.Flags().StringSliceVar(&scrapeKeywords, "keyword", nil,
		"フィルタキーワードを上書きする (複数指定可)")
}
