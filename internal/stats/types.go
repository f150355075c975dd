package stats

import (
	"time"
)

// 翻译状态
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StatisticsDB 统计数据库结构
type StatisticsDB struct {
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`

	// 总体统计
	TotalTranslations int64         `json:"total_translations"`
	TotalCharacters   int64         `json:"total_characters"`
	TotalErrors       int64         `json:"total_errors"`
	TotalDuration     time.Duration `json:"total_duration"`

	// 缓存统计
	CacheStats CacheStatistics `json:"cache_stats"`

	// 语言对统计，键为 "from-to"
	LanguagePairs map[string]*LanguagePairStats `json:"language_pairs"`

	// 文件格式统计
	FormatStats map[string]*FormatStats `json:"format_stats"`

	// 最近的翻译记录
	RecentTranslations []*TranslationRecord `json:"recent_translations"`

	// 性能统计
	PerformanceStats PerformanceStatistics `json:"performance_stats"`
}

// CacheStatistics 翻译缓存命中统计
type CacheStatistics struct {
	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`
}

// LanguagePairStats 语言对统计
type LanguagePairStats struct {
	SourceLanguage   string        `json:"source_language"`
	TargetLanguage   string        `json:"target_language"`
	TranslationCount int64         `json:"translation_count"`
	CharacterCount   int64         `json:"character_count"`
	ErrorCount       int64         `json:"error_count"`
	AverageDuration  time.Duration `json:"average_duration"`
	LastUsed         time.Time     `json:"last_used"`
}

// FormatStats 文件格式统计
type FormatStats struct {
	Format          string        `json:"format"`
	FileCount       int64         `json:"file_count"`
	SuccessCount    int64         `json:"success_count"`
	CharacterCount  int64         `json:"character_count"`
	AverageFileSize int64         `json:"average_file_size"`
	AverageDuration time.Duration `json:"average_duration"`
	LastUsed        time.Time     `json:"last_used"`
}

// SuccessRate 成功比例（0-1）
func (f *FormatStats) SuccessRate() float64 {
	if f.FileCount == 0 {
		return 0
	}
	return float64(f.SuccessCount) / float64(f.FileCount)
}

// TranslationRecord 单次文档翻译记录
type TranslationRecord struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	FileName       string    `json:"file_name,omitempty"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	Format         string    `json:"format"`
	Translator     string    `json:"translator"`

	// Markdown 字符数
	CharacterCount  int           `json:"character_count"`
	TranslatedCount int           `json:"translated_count"`
	Duration        time.Duration `json:"duration"`
	Status          string        `json:"status"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// Failed 是否失败
func (r *TranslationRecord) Failed() bool {
	return r.Status == StatusFailed
}

// PerformanceStatistics 性能统计
type PerformanceStatistics struct {
	AverageTranslationSpeed float64       `json:"average_translation_speed"` // 字符/秒
	FastestTranslation      time.Duration `json:"fastest_translation"`
	SlowestTranslation      time.Duration `json:"slowest_translation"`
}
