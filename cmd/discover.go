package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-podcast-dig/pkg/discover"
)

// 発見対象の起点URLを保持するフラグ変数
var discoverBaseURL string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "サイトのトップページから番組一覧を発見して表示します",
	Long:  `サイトのトップページを取得し、番組ページへのリンクを探索して、発見した番組の一覧 (表示名、スラッグ、URL) を表示します。スクレイピングは行いません。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {

		// 全体タイムアウトを設定: クライアントタイムアウトの2倍
		overallTimeout := time.Duration(Flags.TimeoutSec) * 2 * time.Second
		if Flags.TimeoutSec == 0 {
			overallTimeout = DefaultOverallTimeout
		}

		baseURL, err := ensureScheme(discoverBaseURL)
		if err != nil {
			return err
		}

		log.Printf("処理対象サイト: %s (全体タイムアウト: %s)", baseURL, overallTimeout)

		// 1. 依存性の初期化
		fetcher := GetGlobalFetcher()
		if fetcher == nil {
			return fmt.Errorf("HTTPクライアントの取得に失敗しました")
		}
		discoverer, err := discover.NewDiscoverer(fetcher)
		if err != nil {
			return fmt.Errorf("Discovererの初期化エラー: %w", err)
		}

		// 2. 全体処理のコンテキストを設定
		ctx, cancel := context.WithTimeout(context.Background(), overallTimeout)
		defer cancel()

		// 3. 発見の実行
		podcasts, err := discoverer.Discover(ctx, baseURL)
		if err != nil {
			return fmt.Errorf("番組一覧の取得エラー: %w", err)
		}

		// 4. 結果の出力
		fmt.Printf("--- 番組発見結果 ---\n")
		fmt.Printf("合計番組数: %d\n", len(podcasts))
		fmt.Println("--------------------")

		for i, p := range podcasts {
			fmt.Printf("[%d] %s\n", i+1, p.DisplayName)
			fmt.Printf("    スラッグ: %s\n", p.Name)
			fmt.Printf("    URL: %s\n", p.URL)
		}
		// 最後に改行を加えて出力完了とする
		fmt.Println()

		return nil
	},
}

func init() {
	// サブコマンド固有のフラグ定義
	discoverCmd.Flags().StringVar(&discoverBaseURL, "base-url", defaultBaseURL,
		"番組一覧を発見する起点のURL")
}
