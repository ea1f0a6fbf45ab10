package feed

import (
	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

// 汎用抽出のためのインターフェースとアダプター

// feedDateLayout は、フィードの公開日時をCSVの日付列に合わせる書式です。
const feedDateLayout = "2006-01-02"

// EpisodeSource は、エピソードのリストを提供できる任意の型を表します。
// このインターフェースが抽象化の境界線となります。
type EpisodeSource interface {
	GetEpisodes() []podcast.Episode
}

// FeedAdapter は gofeed.Feed を EpisodeSource に適合させるためのアダプターです。
// gofeed.Feed の具体的な構造への依存を内部に閉じ込めます。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// GetEpisodes は EpisodeSource インターフェースを満たし、フィードのアイテムを
// エピソードに変換します。タイトルを持たないアイテムは無視されます。
func (a *FeedAdapter) GetEpisodes() []podcast.Episode {
	// nil またはアイテムがない場合は、すぐに空のスライスを返します。
	if a.Feed == nil || len(a.Items) == 0 {
		return []podcast.Episode{}
	}

	episodes := make([]podcast.Episode, 0, len(a.Items))
	for _, item := range a.Items {
		if item == nil || item.Title == "" {
			continue
		}
		episodes = append(episodes, podcast.Episode{
			Title:       item.Title,
			Link:        item.Link,
			Date:        itemDate(item),
			Description: item.Description,
			Podcast:     a.Title,
		})
	}
	return episodes
}

// itemDate は、アイテムの公開日時を文字列として解決します。
// パース済みの日時があれば優先し、無ければフィードの生の表記をそのまま使います。
func itemDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format(feedDateLayout)
	}
	if item.Published != "" {
		return item.Published
	}
	return podcast.DateUnavailable
}

// GetAllEpisodes は EpisodeSource インターフェースを満たすオブジェクトから
// エピソードを抽出する汎用関数です。実装の詳細を知る必要がありません。
func GetAllEpisodes(source EpisodeSource) []podcast.Episode {
	if source == nil {
		return []podcast.Episode{}
	}
	return source.GetEpisodes()
}
