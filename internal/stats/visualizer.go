package stats

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Visualizer 统计数据可视化器
type Visualizer struct {
	db  *Database
	out io.Writer
	now func() time.Time
}

// NewVisualizer 创建可视化器
func NewVisualizer(db *Database, out io.Writer) *Visualizer {
	return &Visualizer{db: db, out: out, now: time.Now}
}

// ShowOverview 显示总览
func (v *Visualizer) ShowOverview() {
	stats := v.db.GetStats()

	title := color.New(color.FgCyan, color.Bold)
	title.Fprintln(v.out, "Translation Statistics Overview")
	title.Fprintln(v.out, strings.Repeat("=", 50))

	fmt.Fprintln(v.out)
	v.printSection("Overall", [][]string{
		{"Total Translations", formatNumber(stats.TotalTranslations)},
		{"Total Characters", formatNumber(stats.TotalCharacters)},
		{"Total Errors", formatNumber(stats.TotalErrors)},
		{"Total Duration", formatDuration(stats.TotalDuration)},
		{"Database Created", v.formatTime(stats.CreatedAt)},
		{"Last Updated", v.formatTime(stats.LastUpdated)},
	})

	fmt.Fprintln(v.out)
	v.printSection("Performance", [][]string{
		{"Avg Translation Speed", fmt.Sprintf("%.2f chars/sec", stats.PerformanceStats.AverageTranslationSpeed)},
		{"Fastest Translation", formatDuration(stats.PerformanceStats.FastestTranslation)},
		{"Slowest Translation", formatDuration(stats.PerformanceStats.SlowestTranslation)},
	})

	fmt.Fprintln(v.out)
	v.printSection("Cache", [][]string{
		{"Hits", formatNumber(stats.CacheStats.CacheHits)},
		{"Misses", formatNumber(stats.CacheStats.CacheMisses)},
		{"Hit Rate", fmt.Sprintf("%.1f%%", stats.CacheStats.CacheHitRate*100)},
	})
}

// ShowLanguagePairs 显示语言对统计，按翻译次数排序
func (v *Visualizer) ShowLanguagePairs() {
	stats := v.db.GetStats()

	title := color.New(color.FgMagenta, color.Bold)
	title.Fprintln(v.out, "Language Pair Statistics")
	title.Fprintln(v.out, strings.Repeat("=", 50))

	if len(stats.LanguagePairs) == 0 {
		fmt.Fprintln(v.out, "No language pair data available.")
		return
	}

	pairs := make([]*LanguagePairStats, 0, len(stats.LanguagePairs))
	for _, pair := range stats.LanguagePairs {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].TranslationCount != pairs[j].TranslationCount {
			return pairs[i].TranslationCount > pairs[j].TranslationCount
		}
		return pairs[i].SourceLanguage+pairs[i].TargetLanguage < pairs[j].SourceLanguage+pairs[j].TargetLanguage
	})

	tw := table.NewWriter()
	tw.SetOutputMirror(v.out)
	tw.AppendHeader(table.Row{"Pair", "Translations", "Characters", "Errors", "Success", "Avg Duration", "Last Used"})
	for _, pair := range pairs {
		successRate := float64(pair.TranslationCount-pair.ErrorCount) / float64(pair.TranslationCount) * 100
		tw.AppendRow(table.Row{
			fmt.Sprintf("%s → %s", pair.SourceLanguage, pair.TargetLanguage),
			formatNumber(pair.TranslationCount),
			formatNumber(pair.CharacterCount),
			formatNumber(pair.ErrorCount),
			fmt.Sprintf("%.1f%%", successRate),
			formatDuration(pair.AverageDuration),
			v.formatTime(pair.LastUsed),
		})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

// ShowFormatStats 显示格式统计
func (v *Visualizer) ShowFormatStats() {
	stats := v.db.GetStats()

	title := color.New(color.FgGreen, color.Bold)
	title.Fprintln(v.out, "File Format Statistics")
	title.Fprintln(v.out, strings.Repeat("=", 50))

	if len(stats.FormatStats) == 0 {
		fmt.Fprintln(v.out, "No format data available.")
		return
	}

	formats := make([]*FormatStats, 0, len(stats.FormatStats))
	for _, format := range stats.FormatStats {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool {
		if formats[i].FileCount != formats[j].FileCount {
			return formats[i].FileCount > formats[j].FileCount
		}
		return formats[i].Format < formats[j].Format
	})

	fmt.Fprintln(v.out)
	for i, format := range formats {
		if i > 0 {
			fmt.Fprintln(v.out)
		}
		v.printSection(strings.ToUpper(format.Format), [][]string{
			{"Files Processed", formatNumber(format.FileCount)},
			{"Total Characters", formatNumber(format.CharacterCount)},
			{"Avg File Size", formatNumber(format.AverageFileSize) + " chars"},
			{"Success Rate", fmt.Sprintf("%.1f%%", format.SuccessRate()*100)},
			{"Avg Duration", formatDuration(format.AverageDuration)},
			{"Last Used", v.formatTime(format.LastUsed)},
		})
	}
}

// ShowRecentTranslations 显示最近的翻译
func (v *Visualizer) ShowRecentTranslations(limit int) {
	records := v.db.GetRecentTranslations(limit)

	title := color.New(color.FgBlue, color.Bold)
	title.Fprintln(v.out, "Recent Translations")
	title.Fprintln(v.out, strings.Repeat("=", 50))

	if len(records) == 0 {
		fmt.Fprintln(v.out, "No translation records available.")
		return
	}

	errorColor := color.New(color.FgRed)
	tw := table.NewWriter()
	tw.SetOutputMirror(v.out)
	tw.AppendHeader(table.Row{"Time", "File", "Pair", "Translator", "Chars", "Duration", "Status"})
	for _, r := range records {
		status := r.Status
		if r.Failed() {
			status = errorColor.Sprint(r.Status)
		}
		tw.AppendRow(table.Row{
			v.formatTime(r.Timestamp),
			r.FileName,
			fmt.Sprintf("%s → %s", r.SourceLanguage, r.TargetLanguage),
			r.Translator,
			formatNumber(int64(r.CharacterCount)),
			formatDuration(r.Duration),
			status,
		})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

// printSection 打印一个统计部分
func (v *Visualizer) printSection(title string, data [][]string) {
	sectionColor := color.New(color.FgYellow, color.Bold)
	sectionColor.Fprintf(v.out, "%s\n", title)

	maxLabelLen := 0
	for _, row := range data {
		if len(row[0]) > maxLabelLen {
			maxLabelLen = len(row[0])
		}
	}

	labelColor := color.New(color.FgCyan)
	valueColor := color.New(color.FgWhite, color.Bold)
	for _, row := range data {
		labelColor.Fprintf(v.out, "  %-*s: ", maxLabelLen, row[0])
		valueColor.Fprintln(v.out, row[1])
	}
}

// formatNumber 格式化数字（添加千位分隔符）
func formatNumber(n int64) string {
	str := strconv.FormatInt(n, 10)
	if n < 0 || len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(char)
	}
	return result.String()
}

// formatDuration 格式化持续时间
func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "0s"
	case d < time.Second:
		return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}

// formatTime 当天只显示时间，当年省略年份
func (v *Visualizer) formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	now := v.now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04:05")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02 15:04")
	}
	return t.Format("2006-01-02 15:04")
}
