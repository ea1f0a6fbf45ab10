package cmd

import (
	"log"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-podcast-dig/internal/pipeline"
	"github.com/shouni/go-podcast-dig/pkg/httpclient"
)

// --- グローバル定数 ---

const (
	appName           = "podcast-dig"
	defaultTimeoutSec = 10 // 秒
	defaultMaxRetries = 3  // デフォルトのリトライ回数

	// defaultBaseURL は、番組一覧を発見する起点となるサイトのURLです。
	defaultBaseURL = "https://leituraobrigahistoria.com"

	// 全体処理のタイムアウト定数 (discoverCmd, feedCmd で利用)
	DefaultOverallTimeout = 20 * time.Second
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec int // --timeout タイムアウト
	MaxRetries int // --max-retries リトライ回数
}

var Flags AppFlags // アプリケーション固有フラグにアクセスするためのグローバル変数

// globalFetcher はHTMLドキュメント取得用の共有クライアントです。
// pipeline.Fetcher のほか discover.Fetcher / collect.Fetcher も満たします。
var globalFetcher pipeline.Fetcher

// globalFeedFetcher はフィード取得用 (生バイト列) の共有クライアントです。
var globalFeedFetcher httpkit.Fetcher

// ルートコマンドの定義 (clibaseがルートコマンドを生成するため、UseとLongのみ残す)
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "ポッドキャストサイトの番組発見、エピソード収集、キーワード抽出ツール",
	Long:  `ポッドキャスト一覧サイトから番組を発見し (discover)、各番組の全エピソードを収集してキーワードに一致するものをCSVに保存 (scrape)、またはRSSフィードから直接エピソードを取得 (feed) します。`,
}

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		defaultTimeoutSec,
		"HTTPリクエストのタイムアウト時間（秒）",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.MaxRetries,
		"max-retries",
		defaultMaxRetries,
		"HTTPリクエストのリトライ最大回数",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {

	timeout := time.Duration(Flags.TimeoutSec) * time.Second

	// clibase.Flags の利用
	if clibase.Flags.Verbose {
		log.Printf("HTTPクライアントのタイムアウトを設定しました (Timeout: %s)。", timeout)
		log.Printf("HTTPクライアントのリトライ回数を設定しました (MaxRetries: %d)。", Flags.MaxRetries)
	}

	// 共有フェッチャーの初期化 (HTML用とフィード用)
	globalFetcher = httpclient.New(
		timeout,
		httpclient.WithMaxRetries(uint64(Flags.MaxRetries)),
	)
	globalFeedFetcher = httpkit.New(
		timeout,
		httpkit.WithMaxRetries(uint64(Flags.MaxRetries)),
	)

	return nil
}

// GetGlobalFetcher は、初期化されたHTML用フェッチャーを返す関数 (DIの代わり)
func GetGlobalFetcher() pipeline.Fetcher {
	return globalFetcher
}

// GetGlobalFeedFetcher は、初期化されたフィード用フェッチャーを返す関数
func GetGlobalFeedFetcher() httpkit.Fetcher {
	return globalFeedFetcher
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。clibaseのExecuteを使用する。
func Execute() {
	// clibase.Execute を使用して、アプリケーションの初期化、フラグ設定、サブコマンドの登録を一括で行う
	clibase.Execute(
		appName,
		addAppPersistentFlags, // カスタムフラグの追加コールバック
		initAppPreRunE,        // カスタムPersistentPreRunEコールバック
		// サブコマンドのリスト
		scrapeCmd,
		discoverCmd,
		feedCmd,
	)
	// clibase.Execute() の中で os.Exit(1) が処理されるため、ここでは不要
}
