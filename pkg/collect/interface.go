package collect

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、HTMLドキュメントを取得する機能のインターフェースを定義します。
// Collector は、この抽象に依存します。
type Fetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}
