// Package stats keeps running statistics about document translations in a
// small JSON file.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	StatsDBVersion   = "1.0.0"
	MaxRecentRecords = 100
)

// Database 统计数据库；filePath 为空时只保存在内存中
type Database struct {
	filePath string
	data     *StatisticsDB
	mutex    sync.RWMutex
	logger   *zap.Logger
	now      func() time.Time
}

// NewDatabase 创建统计数据库
func NewDatabase(filePath string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &Database{
		filePath: filePath,
		logger:   logger,
		now:      time.Now,
	}

	if filePath != "" {
		// 确保目录存在
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create stats directory: %w", err)
		}
	}

	if err := db.load(); err != nil {
		return nil, fmt.Errorf("failed to load stats database: %w", err)
	}

	return db, nil
}

func (db *Database) empty() *StatisticsDB {
	now := db.now()
	return &StatisticsDB{
		Version:            StatsDBVersion,
		CreatedAt:          now,
		LastUpdated:        now,
		LanguagePairs:      make(map[string]*LanguagePairStats),
		FormatStats:        make(map[string]*FormatStats),
		RecentTranslations: make([]*TranslationRecord, 0),
	}
}

// load 加载统计数据，文件不存在时从空数据开始
func (db *Database) load() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.filePath == "" {
		db.data = db.empty()
		return nil
	}

	data, err := os.ReadFile(db.filePath)
	if os.IsNotExist(err) {
		db.data = db.empty()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var statsDB StatisticsDB
	if err := json.Unmarshal(data, &statsDB); err != nil {
		return fmt.Errorf("failed to parse stats file: %w", err)
	}

	// 初始化可能为 nil 的字段
	if statsDB.LanguagePairs == nil {
		statsDB.LanguagePairs = make(map[string]*LanguagePairStats)
	}
	if statsDB.FormatStats == nil {
		statsDB.FormatStats = make(map[string]*FormatStats)
	}
	if statsDB.RecentTranslations == nil {
		statsDB.RecentTranslations = make([]*TranslationRecord, 0)
	}

	db.data = &statsDB
	db.logger.Debug("loaded statistics database",
		zap.String("version", statsDB.Version),
		zap.Int64("total_translations", statsDB.TotalTranslations))

	return nil
}

// Save 保存统计数据
func (db *Database) Save() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.saveUnsafe()
}

// saveUnsafe 需要已持有锁
func (db *Database) saveUnsafe() error {
	db.data.LastUpdated = db.now()
	if db.filePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(db.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	// 原子写入
	tempFile := db.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp stats file: %w", err)
	}
	if err := os.Rename(tempFile, db.filePath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	return nil
}

// AddTranslationRecord 记录一次翻译并写盘
func (db *Database) AddTranslationRecord(record *TranslationRecord) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = db.now()
	}

	// 更新总体统计
	db.data.TotalTranslations++
	db.data.TotalCharacters += int64(record.CharacterCount)
	db.data.TotalDuration += record.Duration
	if record.Failed() {
		db.data.TotalErrors++
	}

	// 更新语言对统计
	langPairKey := fmt.Sprintf("%s-%s", record.SourceLanguage, record.TargetLanguage)
	langPair, exists := db.data.LanguagePairs[langPairKey]
	if !exists {
		langPair = &LanguagePairStats{
			SourceLanguage: record.SourceLanguage,
			TargetLanguage: record.TargetLanguage,
		}
		db.data.LanguagePairs[langPairKey] = langPair
	}

	langPair.TranslationCount++
	langPair.CharacterCount += int64(record.CharacterCount)
	langPair.LastUsed = record.Timestamp
	if record.Failed() {
		langPair.ErrorCount++
	}
	langPair.AverageDuration = runningAverage(langPair.AverageDuration, record.Duration, langPair.TranslationCount)

	// 更新格式统计
	formatStats, exists := db.data.FormatStats[record.Format]
	if !exists {
		formatStats = &FormatStats{Format: record.Format}
		db.data.FormatStats[record.Format] = formatStats
	}

	formatStats.FileCount++
	if !record.Failed() {
		formatStats.SuccessCount++
	}
	formatStats.CharacterCount += int64(record.CharacterCount)
	formatStats.AverageFileSize = formatStats.CharacterCount / formatStats.FileCount
	formatStats.AverageDuration = runningAverage(formatStats.AverageDuration, record.Duration, formatStats.FileCount)
	formatStats.LastUsed = record.Timestamp

	// 最近记录，最新在前
	db.data.RecentTranslations = append(db.data.RecentTranslations, record)
	if len(db.data.RecentTranslations) > MaxRecentRecords {
		sort.SliceStable(db.data.RecentTranslations, func(i, j int) bool {
			return db.data.RecentTranslations[i].Timestamp.After(db.data.RecentTranslations[j].Timestamp)
		})
		db.data.RecentTranslations = db.data.RecentTranslations[:MaxRecentRecords]
	}

	if !record.Failed() {
		db.updatePerformanceStats(record)
	}

	return db.saveUnsafe()
}

// updatePerformanceStats 只统计成功的翻译
func (db *Database) updatePerformanceStats(record *TranslationRecord) {
	if record.Duration <= 0 || record.CharacterCount <= 0 {
		return
	}

	perf := &db.data.PerformanceStats
	speed := float64(record.CharacterCount) / record.Duration.Seconds()
	succeeded := db.data.TotalTranslations - db.data.TotalErrors
	if succeeded > 1 {
		perf.AverageTranslationSpeed = (perf.AverageTranslationSpeed*float64(succeeded-1) + speed) / float64(succeeded)
	} else {
		perf.AverageTranslationSpeed = speed
	}

	if perf.FastestTranslation == 0 || record.Duration < perf.FastestTranslation {
		perf.FastestTranslation = record.Duration
	}
	if record.Duration > perf.SlowestTranslation {
		perf.SlowestTranslation = record.Duration
	}
}

func runningAverage(avg, next time.Duration, count int64) time.Duration {
	if count <= 1 {
		return next
	}
	return (avg*time.Duration(count-1) + next) / time.Duration(count)
}

// RecordCacheHit 记录缓存命中
func (db *Database) RecordCacheHit() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.data.CacheStats.CacheHits++
	db.updateHitRate()
}

// RecordCacheMiss 记录缓存未命中
func (db *Database) RecordCacheMiss() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.data.CacheStats.CacheMisses++
	db.updateHitRate()
}

func (db *Database) updateHitRate() {
	c := &db.data.CacheStats
	if total := c.CacheHits + c.CacheMisses; total > 0 {
		c.CacheHitRate = float64(c.CacheHits) / float64(total)
	}
}

// GetStats 获取统计数据（深拷贝）
func (db *Database) GetStats() *StatisticsDB {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	data, _ := json.Marshal(db.data)
	var out StatisticsDB
	_ = json.Unmarshal(data, &out)
	return &out
}

// GetRecentTranslations 获取最近的翻译记录，最新在前；limit <= 0 返回全部
func (db *Database) GetRecentTranslations(limit int) []*TranslationRecord {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if limit <= 0 || limit > len(db.data.RecentTranslations) {
		limit = len(db.data.RecentTranslations)
	}

	sorted := make([]*TranslationRecord, len(db.data.RecentTranslations))
	copy(sorted, db.data.RecentTranslations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	return sorted[:limit]
}
