package podcast

// DateUnavailable は、エピソード一覧に公開日が見つからなかった場合に
// Episode.Date へ設定される既定値です。出力CSVにもこの文字列のまま書き込まれます。
const DateUnavailable = "Data não disponível"

// Episode は、番組一覧ページまたはフィードから抽出された1エピソードを表します。
// これは、Collectorの出力、Filterの入力、Exporterの書き込み対象として利用されます。
type Episode struct {
	Title       string // エピソードのタイトル
	Link        string // エピソードページへの絶対URL
	Date        string // 公開日のテキスト表現 (欠落時は DateUnavailable)
	Description string // 一覧に表示される抜粋 (存在しない場合は空文字列)
	Podcast     string // 所属する番組の名前 (スラッグ)
}

// Podcast は、サイトのトップページから発見された1番組を表します。
type Podcast struct {
	Name        string // URLパスから取り出したスラッグ (ファイル名の基礎)
	DisplayName string // 画面表示用の番組名
	URL         string // 番組一覧ページへの絶対URL
}
