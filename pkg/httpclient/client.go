package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/shouni/go-podcast-dig/pkg/retry"
)

const (
	// DefaultHTTPTimeout は、HTTPクライアントの既定タイムアウトです。
	DefaultHTTPTimeout = 30 * time.Second

	// MaxBodySize は、レスポンスボディの最大読み込みサイズです (10MB)。
	MaxBodySize = int64(10 * 1024 * 1024)

	// maxErrorBodyDisplay は、エラーメッセージに含めるボディの最大バイト数です。
	maxErrorBodyDisplay = 1024

	// UserAgent は、サイトからのブロックを避けるためのUser-Agentです。
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// NonRetryableHTTPError はHTTP 4xx系のステータスコードエラーを示すカスタムエラー型です。
type NonRetryableHTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *NonRetryableHTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディなし", e.StatusCode)
	}

	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBodyDisplay {
		body = body[:maxErrorBodyDisplay] + "..."
	}
	return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディ: %s", e.StatusCode, body)
}

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client はHTTPリクエストと指数バックオフを用いたリトライロジックを管理します。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
}

// Option はClientの設定を行うための関数型です。
type Option func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。主にテストで使用します。
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) Option {
	return func(c *Client) {
		c.retryConfig.MaxRetries = max
	}
}

// New は、新しいClientを生成します。timeout が0以下の場合は既定値を適用します。
func New(timeout time.Duration, options ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retry.DefaultConfig(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// addCommonHeaders は共通のHTTPヘッダーを設定します。
func (c *Client) addCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
}

// FetchDocument はURLからHTMLを取得し、goquery.Documentを返します。
// 一時的なエラー (5xx、ネットワーク障害) は指数バックオフでリトライされます。
func (c *Client) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document

	op := func() error {
		var fetchErr error
		doc, fetchErr = c.doFetch(ctx, url)
		return fetchErr
	}

	err := retry.Do(
		ctx,
		c.retryConfig,
		fmt.Sprintf("URL(%s)のフェッチ", url),
		op,
		c.isHTTPRetryableError,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// doFetch は実際の一度のHTTP GETリクエストとHTML解析を実行します。
func (c *Client) doFetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("GETリクエストの作成に失敗しました: %w", err)
	}
	c.addCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponseForRetry(resp); err != nil {
		return nil, err
	}

	if resp.ContentLength > MaxBodySize {
		return nil, fmt.Errorf("レスポンスボディが最大サイズ (%dバイト) を超えています", MaxBodySize)
	}

	// Content-Typeの文字エンコーディングを解釈し、UTF-8に正規化して解析する。
	// ポルトガル語のアクセント記号を壊さないため、レガシーエンコーディングのページにも対応する。
	body := io.LimitReader(resp.Body, MaxBodySize)
	decoded, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("文字エンコーディングの判定に失敗しました: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	return doc, nil
}

// checkResponseForRetry はHTTPレスポンスのステータスコードを評価し、
// リトライすべきエラーか、非リトライ対象のエラーかを返します。
func checkResponseForRetry(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	// NOTE: エラーレスポンスのボディはここで読み込むが、Closeの責務は呼び出し元が持つ。
	limitedReader := io.LimitReader(resp.Body, MaxBodySize)
	bodyBytes, readErr := io.ReadAll(limitedReader)

	// 5xx 系: リトライ対象のサーバーエラー
	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		if readErr != nil {
			return fmt.Errorf("HTTPステータスコードエラー (5xx リトライ対象, ボディ読み込み失敗): %d, 原因: %w", resp.StatusCode, readErr)
		}
		return fmt.Errorf("HTTPステータスコードエラー (5xx リトライ対象): %d, 詳細: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	// 4xx 系とその他: 非リトライ対象のクライアントエラー
	if readErr != nil {
		return &NonRetryableHTTPError{StatusCode: resp.StatusCode}
	}
	return &NonRetryableHTTPError{StatusCode: resp.StatusCode, Body: bodyBytes}
}

// IsNonRetryableError は与えられたエラーが非リトライ対象のHTTPエラーであるかを判断します。
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var nonRetryable *NonRetryableHTTPError
	return errors.As(err, &nonRetryable)
}

// isHTTPRetryableError はエラーがHTTPリトライ対象かどうかを判定します。
// この関数は retry.ShouldRetryFunc 型のシグネチャを満たします。
func (c *Client) isHTTPRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// コンテキスト起因のエラーは backoff 側の打ち切りに任せる
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// 非リトライ対象エラー (4xx) はリトライしない
	if IsNonRetryableError(err) {
		return false
	}

	// 5xxエラーやネットワークエラーはすべてリトライ対象
	return true
}
