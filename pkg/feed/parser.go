package feed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

// Parserが依存すべきインターフェース
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser は、RSS/Atomフィードの取得とパースを担当します。
type Parser struct {
	client Fetcher // インターフェースに依存
}

// NewParser は新しい Parser インスタンスを初期化し、依存関係を注入します。
// *httpkit.Client は Fetcher インターフェースを満たしているため、そのまま代入可能です。
func NewParser(client *httpkit.Client) *Parser {
	return &Parser{client: client}
}

// FetchAndParse は指定されたURLからフィードを取得し、パースします。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := p.client.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	fp := gofeed.NewParser()
	feed, parseErr := fp.Parse(bytes.NewReader(body))
	if parseErr != nil {
		return nil, fmt.Errorf("RSSフィードのパース失敗 (URL: %s): %w", feedURL, parseErr)
	}
	return feed, nil
}

// FetchEpisodes はフィードを取得し、エピソード一覧とフィードのタイトルを返します。
// スクレイピングを介さずに番組のエピソードを得る場合のエントリポイントです。
func (p *Parser) FetchEpisodes(ctx context.Context, feedURL string) ([]podcast.Episode, string, error) {
	parsed, err := p.FetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, "", err
	}
	return NewFeedAdapter(parsed).GetEpisodes(), parsed.Title, nil
}
