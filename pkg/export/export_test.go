package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-podcast-dig/pkg/podcast"
)

var testProgram = podcast.Podcast{
	Name:        "escriba-cafe",
	DisplayName: "Escriba Café",
	URL:         "https://podcasts.example/programa/escriba-cafe/",
}

func testEpisodes() []podcast.Episode {
	return []podcast.Episode{
		{
			Title:   "A Independência do Brasil em 1822",
			Link:    "https://podcasts.example/ep/independencia/",
			Date:    "12 de março de 2023",
			Podcast: "escriba-cafe",
		},
		{
			Title:   `Dom Pedro II disse: "fico", e outras histórias`,
			Link:    "https://podcasts.example/ep/fico/",
			Date:    podcast.DateUnavailable,
			Podcast: "escriba-cafe",
		},
	}
}

func todaySuffix() string {
	return time.Now().Format(fileDateLayout)
}

func TestNewExporter(t *testing.T) {
	t.Run("creates_output_directory", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "saida")
		e, err := NewExporter(outDir)
		require.NoError(t, err)
		assert.Equal(t, outDir, e.OutputDir())

		info, err := os.Stat(outDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("uncreatable_directory_returns_error", func(t *testing.T) {
		// ディレクトリであるべきパスに通常ファイルを置いて作成を失敗させる
		blocked := filepath.Join(t.TempDir(), "bloqueado")
		require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

		e, err := NewExporter(blocked)
		assert.Error(t, err)
		assert.Nil(t, e)
	})
}

func TestSaveAndReadEpisodes(t *testing.T) {
	t.Run("round_trip_preserves_accents", func(t *testing.T) {
		e, err := NewExporter(t.TempDir())
		require.NoError(t, err)

		episodes := testEpisodes()
		result, err := e.Save(testProgram, episodes)
		require.NoError(t, err)
		assert.False(t, result.UsedBackup)
		assert.Equal(t, filepath.Join(e.OutputDir(), fmt.Sprintf("escriba-cafe_brasil_%s.csv", todaySuffix())), result.Path)

		loaded, err := ReadEpisodes(result.Path)
		require.NoError(t, err)
		require.Len(t, loaded, len(episodes))
		for i, ep := range episodes {
			assert.Equal(t, ep.Title, loaded[i].Title)
			assert.Equal(t, ep.Link, loaded[i].Link)
			assert.Equal(t, ep.Date, loaded[i].Date)
		}
	})

	t.Run("file_starts_with_utf8_bom", func(t *testing.T) {
		e, err := NewExporter(t.TempDir())
		require.NoError(t, err)

		result, err := e.Save(testProgram, testEpisodes())
		require.NoError(t, err)

		raw, err := os.ReadFile(result.Path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(raw, utf8BOM), "ファイルがBOMで始まっていません")
	})

	t.Run("empty_episode_list_writes_header_only", func(t *testing.T) {
		e, err := NewExporter(t.TempDir())
		require.NoError(t, err)

		result, err := e.Save(testProgram, nil)
		require.NoError(t, err)

		loaded, err := ReadEpisodes(result.Path)
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})
}

func TestSaveBackupFallback(t *testing.T) {
	t.Run("primary_failure_falls_back_to_backup", func(t *testing.T) {
		e, err := NewExporter(t.TempDir())
		require.NoError(t, err)

		// 一次ファイルのパスをディレクトリで塞いで書き込みを失敗させる
		primary := filepath.Join(e.OutputDir(), fmt.Sprintf("escriba-cafe_brasil_%s.csv", todaySuffix()))
		require.NoError(t, os.Mkdir(primary, 0o755))

		episodes := testEpisodes()
		result, err := e.Save(testProgram, episodes)
		require.NoError(t, err)
		assert.True(t, result.UsedBackup)
		assert.Error(t, result.PrimaryErr)
		assert.Equal(t, filepath.Join(e.OutputDir(), fmt.Sprintf("backup_escriba-cafe_%s.csv", todaySuffix())), result.Path)

		// バックアップの内容が一次ファイルに書くはずだった内容と一致すること
		loaded, err := ReadEpisodes(result.Path)
		require.NoError(t, err)
		require.Len(t, loaded, len(episodes))
		assert.Equal(t, episodes[0].Title, loaded[0].Title)
	})

	t.Run("backup_failure_returns_error", func(t *testing.T) {
		e, err := NewExporter(t.TempDir())
		require.NoError(t, err)

		primary := filepath.Join(e.OutputDir(), fmt.Sprintf("escriba-cafe_brasil_%s.csv", todaySuffix()))
		backup := filepath.Join(e.OutputDir(), fmt.Sprintf("backup_escriba-cafe_%s.csv", todaySuffix()))
		require.NoError(t, os.Mkdir(primary, 0o755))
		require.NoError(t, os.Mkdir(backup, 0o755))

		result, err := e.Save(testProgram, testEpisodes())
		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestReadEpisodes(t *testing.T) {
	t.Run("missing_file_returns_error", func(t *testing.T) {
		episodes, err := ReadEpisodes(filepath.Join(t.TempDir(), "nao-existe.csv"))
		assert.Error(t, err)
		assert.Nil(t, episodes)
	})

	t.Run("unexpected_header_returns_error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalido.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))

		episodes, err := ReadEpisodes(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "予期しないCSVヘッダー")
		assert.Nil(t, episodes)
	})

	t.Run("file_without_bom_is_accepted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sem-bom.csv")
		content := "titulo,link,data\nA República Velha,https://podcasts.example/ep/1/,ontem\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		episodes, err := ReadEpisodes(path)
		require.NoError(t, err)
		require.Len(t, episodes, 1)
		assert.Equal(t, "A República Velha", episodes[0].Title)
	})
}
