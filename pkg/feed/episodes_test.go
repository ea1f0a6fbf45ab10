package feed

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

// MockEpisodeSource は EpisodeSource インターフェースを満たすテスト用のモックです。
type MockEpisodeSource struct {
	Episodes []podcast.Episode
}

// GetEpisodes は MockEpisodeSource のメソッドで、設定されたエピソードを返します。
func (m *MockEpisodeSource) GetEpisodes() []podcast.Episode {
	return m.Episodes
}

// TestFeedAdapter_GetEpisodes は FeedAdapterが gofeed.Feedから正しくエピソードを変換できるかをテストします。
func TestFeedAdapter_GetEpisodes(t *testing.T) {
	published := time.Date(2023, 3, 12, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		feed     *gofeed.Feed
		expected []podcast.Episode
	}{
		{
			name: "正常ケース_複数のアイテムを含む",
			feed: &gofeed.Feed{
				Title: "Escriba Café",
				Items: []*gofeed.Item{
					{
						Title:           "A Independência do Brasil em 1822",
						Link:            "https://podcasts.example/ep/a",
						PublishedParsed: &published,
					},
					{
						Title:       "Filosofia Grega Antiga",
						Link:        "https://podcasts.example/ep/b",
						Published:   "12 de março de 2023",
						Description: "Um episódio sobre os gregos",
					},
					{Title: ""}, // タイトルのないアイテムは無視されるべき
					{
						Title: "Sem data",
						Link:  "https://podcasts.example/ep/c",
					},
				},
			},
			expected: []podcast.Episode{
				{
					Title:   "A Independência do Brasil em 1822",
					Link:    "https://podcasts.example/ep/a",
					Date:    "2023-03-12",
					Podcast: "Escriba Café",
				},
				{
					Title:       "Filosofia Grega Antiga",
					Link:        "https://podcasts.example/ep/b",
					Date:        "12 de março de 2023",
					Description: "Um episódio sobre os gregos",
					Podcast:     "Escriba Café",
				},
				{
					Title:   "Sem data",
					Link:    "https://podcasts.example/ep/c",
					Date:    podcast.DateUnavailable,
					Podcast: "Escriba Café",
				},
			},
		},
		{
			name: "エッジケース_アイテムが空",
			feed: &gofeed.Feed{
				Items: []*gofeed.Item{},
			},
			expected: []podcast.Episode{},
		},
		{
			name:     "エッジケース_フィードがnil",
			feed:     nil, // フィールドがnilの場合、GetEpisodes内のチェックで安全に処理されるべき
			expected: []podcast.Episode{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewFeedAdapter(tt.feed)
			actual := adapter.GetEpisodes()

			if len(actual) != len(tt.expected) {
				t.Fatalf("変換されたエピソードの数が一致しません。\n期待値: %d\n実際: %d", len(tt.expected), len(actual))
			}

			for i := range actual {
				if actual[i] != tt.expected[i] {
					t.Errorf("エピソード [%d] が一致しません。\n期待値: %+v\n実際: %+v", i, tt.expected[i], actual[i])
				}
			}
		})
	}
}

// TestGetAllEpisodes は GetAllEpisodes 汎用関数が EpisodeSource インターフェースを正しく利用できるかをテストします。
func TestGetAllEpisodes(t *testing.T) {
	expectedEpisodes := []podcast.Episode{
		{Title: "Episódio 1"},
		{Title: "Episódio 2"},
	}

	tests := []struct {
		name     string
		source   EpisodeSource
		expected []podcast.Episode
	}{
		{
			name: "正常ケース_FeedAdapterの利用",
			source: NewFeedAdapter(&gofeed.Feed{
				Items: []*gofeed.Item{
					{Title: expectedEpisodes[0].Title},
					{Title: expectedEpisodes[1].Title},
				},
			}),
			expected: []podcast.Episode{
				{Title: "Episódio 1", Date: podcast.DateUnavailable},
				{Title: "Episódio 2", Date: podcast.DateUnavailable},
			},
		},
		{
			name: "正常ケース_MockEpisodeSourceの利用",
			source: &MockEpisodeSource{
				Episodes: expectedEpisodes,
			},
			expected: expectedEpisodes,
		},
		{
			name:     "エッジケース_ソースがnil", // nilチェックの安全性をテスト
			source:   nil,
			expected: []podcast.Episode{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := GetAllEpisodes(tt.source)

			if len(actual) != len(tt.expected) {
				t.Fatalf("抽出されたエピソードの数が一致しません。\n期待値: %d\n実際: %d", len(tt.expected), len(actual))
			}

			for i := range actual {
				if actual[i] != tt.expected[i] {
					t.Errorf("エピソード [%d] が一致しません。\n期待値: %+v\n実際: %+v", i, tt.expected[i], actual[i])
				}
			}
		})
	}
}
