package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

const (
	// DefaultOutputDir は、CSVファイルのデフォルトの出力先ディレクトリです。
	DefaultOutputDir = "podcasts_brasil"

	// fileDateLayout は、ファイル名に埋め込む日付の書式です。
	fileDateLayout = "20060102"
)

// csvHeader は出力CSVの列定義です。読み戻し時の検証にも使用します。
var csvHeader = []string{"titulo", "link", "data"}

// utf8BOM は、Excel等がUTF-8を正しく認識できるようファイル先頭に付与します。
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Exporter は、エピソードをCSVファイルとして保存するプロセスを管理します。
type Exporter struct {
	outDir string
}

// NewExporter は、新しいExporterのインスタンスを生成し、出力先ディレクトリを作成します。
// ディレクトリが作成できない場合は回復不能としてエラーを返します。
func NewExporter(outDir string) (*Exporter, error) {
	if outDir == "" {
		outDir = DefaultOutputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("出力先ディレクトリの作成に失敗しました: %w", err)
	}
	return &Exporter{outDir: outDir}, nil
}

// OutputDir は出力先ディレクトリのパスを返します。
func (e *Exporter) OutputDir() string {
	return e.outDir
}

// SaveResult は保存処理の結果を表します。
type SaveResult struct {
	// Path は実際に書き込まれたファイルのパスです。
	Path string
	// UsedBackup は、一次ファイルへの保存に失敗しバックアップに保存された場合にtrueです。
	UsedBackup bool
	// PrimaryErr は、バックアップ使用時の一次保存の失敗理由を保持します。
	PrimaryErr error
}

// Save は、エピソード一覧を番組ごとのCSVファイルに保存します。
// 一次ファイルへの書き込みに失敗した場合はバックアップファイルへの保存を試み、
// 両方に失敗した場合のみエラーを返します。
func (e *Exporter) Save(p podcast.Podcast, episodes []podcast.Episode) (*SaveResult, error) {
	date := time.Now().Format(fileDateLayout)

	primary := filepath.Join(e.outDir, fmt.Sprintf("%s_brasil_%s.csv", p.Name, date))
	err := e.writeFile(primary, episodes)
	if err == nil {
		return &SaveResult{Path: primary}, nil
	}

	backup := filepath.Join(e.outDir, fmt.Sprintf("backup_%s_%s.csv", p.Name, date))
	if backupErr := e.writeFile(backup, episodes); backupErr != nil {
		return nil, fmt.Errorf("バックアップへの保存にも失敗しました: %w (一次保存エラー: %v)", backupErr, err)
	}
	return &SaveResult{Path: backup, UsedBackup: true, PrimaryErr: err}, nil
}

// writeFile は、BOM付きUTF-8のCSVファイルを書き出します。
func (e *Exporter) writeFile(path string, episodes []podcast.Episode) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗しました: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("ファイルのクローズに失敗しました: %w", closeErr)
		}
	}()

	if _, err = f.Write(utf8BOM); err != nil {
		return fmt.Errorf("BOMの書き込みに失敗しました: %w", err)
	}

	w := csv.NewWriter(f)
	if err = w.Write(csvHeader); err != nil {
		return fmt.Errorf("ヘッダーの書き込みに失敗しました: %w", err)
	}
	for _, ep := range episodes {
		if err = w.Write([]string{ep.Title, ep.Link, ep.Date}); err != nil {
			return fmt.Errorf("エピソード行の書き込みに失敗しました: %w", err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("CSVの書き出しに失敗しました: %w", err)
	}
	return nil
}

// ReadEpisodes は、Saveで書き出したCSVファイルを読み戻します。
// 文字化け検証やテストでのラウンドトリップ確認に使用します。
// 番組名はCSVに含まれないため、Episode.Podcastは空になります。
func ReadEpisodes(path string) ([]podcast.Episode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルのオープンに失敗しました: %w", err)
	}
	defer f.Close()

	// 先頭のBOMはデコーダが取り除く
	r := csv.NewReader(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVの読み込みに失敗しました: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSVが空です: %s", path)
	}
	if !isExpectedHeader(records[0]) {
		return nil, fmt.Errorf("予期しないCSVヘッダーです: %v", records[0])
	}

	episodes := make([]podcast.Episode, 0, len(records)-1)
	for _, rec := range records[1:] {
		episodes = append(episodes, podcast.Episode{
			Title: rec[0],
			Link:  rec[1],
			Date:  rec[2],
		})
	}
	return episodes, nil
}

func isExpectedHeader(record []string) bool {
	if len(record) != len(csvHeader) {
		return false
	}
	for i, col := range csvHeader {
		if record[i] != col {
			return false
		}
	}
	return true
}
