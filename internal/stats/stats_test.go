package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func record(from, to, format, status string, chars int, d time.Duration) *TranslationRecord {
	return &TranslationRecord{
		ID:             from + to + status,
		SourceLanguage: from,
		TargetLanguage: to,
		Format:         format,
		Translator:     "docapi",
		CharacterCount: chars,
		Duration:       d,
		Status:         status,
	}
}

func TestDatabase_AddTranslationRecord(t *testing.T) {
	db, err := NewDatabase("", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, db.AddTranslationRecord(record("en", "hi", "docx", StatusCompleted, 100, time.Second)))
	require.NoError(t, db.AddTranslationRecord(record("en", "hi", "docx", StatusCompleted, 300, 3*time.Second)))
	require.NoError(t, db.AddTranslationRecord(record("en", "ne", "txt", StatusFailed, 50, 500*time.Millisecond)))

	s := db.GetStats()
	assert.Equal(t, int64(3), s.TotalTranslations)
	assert.Equal(t, int64(450), s.TotalCharacters)
	assert.Equal(t, int64(1), s.TotalErrors)

	pair := s.LanguagePairs["en-hi"]
	require.NotNil(t, pair)
	assert.Equal(t, int64(2), pair.TranslationCount)
	assert.Equal(t, 2*time.Second, pair.AverageDuration)
	assert.Equal(t, int64(1), s.LanguagePairs["en-ne"].ErrorCount)

	docx := s.FormatStats["docx"]
	assert.Equal(t, int64(200), docx.AverageFileSize)
	assert.Equal(t, 1.0, docx.SuccessRate())
	assert.Equal(t, 0.0, s.FormatStats["txt"].SuccessRate())

	// 失败的翻译不计入性能统计
	assert.Equal(t, time.Second, s.PerformanceStats.FastestTranslation)
	assert.Equal(t, 3*time.Second, s.PerformanceStats.SlowestTranslation)
	assert.InDelta(t, 100.0, s.PerformanceStats.AverageTranslationSpeed, 0.001)
}

func TestDatabase_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.json")

	db, err := NewDatabase(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.AddTranslationRecord(record("en", "hi", "docx", StatusCompleted, 10, time.Second)))
	db.RecordCacheHit()
	db.RecordCacheMiss()
	require.NoError(t, db.Save())

	reopened, err := NewDatabase(path, nil)
	require.NoError(t, err)
	s := reopened.GetStats()
	assert.Equal(t, int64(1), s.TotalTranslations)
	assert.Equal(t, 0.5, s.CacheStats.CacheHitRate)
	require.Len(t, reopened.GetRecentTranslations(0), 1)
}

func TestDatabase_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewDatabase(path, nil)
	assert.Error(t, err)
}

func TestDatabase_RecentLimit(t *testing.T) {
	db, err := NewDatabase("", nil)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxRecentRecords+5; i++ {
		r := record("en", "hi", "docx", StatusCompleted, 1, time.Millisecond)
		r.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.AddTranslationRecord(r))
	}

	recent := db.GetRecentTranslations(3)
	require.Len(t, recent, 3)
	assert.Equal(t, base.Add(time.Duration(MaxRecentRecords+4)*time.Minute), recent[0].Timestamp)
	assert.Len(t, db.GetRecentTranslations(0), MaxRecentRecords)
}

func TestVisualizer(t *testing.T) {
	color.NoColor = true

	db, err := NewDatabase("", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	v := NewVisualizer(db, &buf)
	v.ShowLanguagePairs()
	assert.Contains(t, buf.String(), "No language pair data available.")

	require.NoError(t, db.AddTranslationRecord(record("en", "hi", "docx", StatusCompleted, 1234, time.Second)))
	require.NoError(t, db.AddTranslationRecord(record("en", "hi", "docx", StatusFailed, 10, time.Second)))

	buf.Reset()
	v.ShowOverview()
	v.ShowLanguagePairs()
	v.ShowFormatStats()
	v.ShowRecentTranslations(10)
	out := buf.String()
	assert.Contains(t, out, "1,244")
	assert.Contains(t, out, "en → hi")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "DOCX")
	assert.Contains(t, out, StatusFailed)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", formatDuration(2*time.Minute))

	v := &Visualizer{now: func() time.Time { return time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC) }}
	assert.Equal(t, "N/A", v.formatTime(time.Time{}))
	assert.Equal(t, "09:30:00", v.formatTime(time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "Jan 03 10:00", v.formatTime(time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-12-31 23:00", v.formatTime(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)))
}
