// Package languages holds the table of languages the translation service accepts.
package languages

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownLanguage 无法解析的语言
var ErrUnknownLanguage = errors.New("unknown language")

// Language 语言代码与显示名称
type Language struct {
	Code string `toml:"code" json:"code"`
	Name string `toml:"name" json:"name"`
}

var builtin = []Language{
	{Code: "en", Name: "English"},
	{Code: "hi", Name: "Hindi"},
	{Code: "ne", Name: "Nepali"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "it", Name: "Italian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "zh", Name: "Chinese"},
	{Code: "gu", Name: "Gujarati"},
	{Code: "bho", Name: "Bhojpuri"},
	{Code: "mr", Name: "Marathi"},
	{Code: "kn", Name: "Kannada"},
	{Code: "ta", Name: "Tamil"},
	{Code: "te", Name: "Telugu"},
	{Code: "ml", Name: "Malayalam"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ar", Name: "Arabic"},
	{Code: "ru", Name: "Russian"},
	{Code: "pl", Name: "Polish"},
	{Code: "tr", Name: "Turkish"},
	{Code: "sv", Name: "Swedish"},
	{Code: "no", Name: "Norwegian"},
	{Code: "da", Name: "Danish"},
	{Code: "fi", Name: "Finnish"},
	{Code: "nl", Name: "Dutch"},
	{Code: "cs", Name: "Czech"},
	{Code: "ro", Name: "Romanian"},
	{Code: "th", Name: "Thai"},
	{Code: "he", Name: "Hebrew"},
	{Code: "id", Name: "Indonesian"},
}

// Table 有序的语言表，构建后只读
type Table struct {
	languages []Language
	byCode    map[string]int
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default 返回内置语言表
func Default() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = newTable(builtin)
	})
	return defaultTable
}

func newTable(langs []Language) *Table {
	t := &Table{byCode: make(map[string]int, len(langs))}
	for _, l := range langs {
		t.put(l)
	}
	return t
}

// put 覆盖已有代码时保留原位置
func (t *Table) put(l Language) {
	code := strings.ToLower(strings.TrimSpace(l.Code))
	l.Code = code
	if i, ok := t.byCode[code]; ok {
		t.languages[i] = l
		return
	}
	t.byCode[code] = len(t.languages)
	t.languages = append(t.languages, l)
}

type overrideFile struct {
	Languages []Language `toml:"language"`
}

// LoadFile 在内置表基础上合并 TOML 文件中的 [[language]] 条目
func LoadFile(path string) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read languages file: %w", err)
	}

	var file overrideFile
	if err := toml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal languages file: %w", err)
	}

	t := newTable(builtin)
	title := cases.Title(language.English)
	for i, l := range file.Languages {
		if strings.TrimSpace(l.Code) == "" || strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("languages file entry %d is missing code or name", i+1)
		}
		l.Name = title.String(strings.TrimSpace(l.Name))
		t.put(l)
	}
	return t, nil
}

// All 返回全部语言（副本）
func (t *Table) All() []Language {
	out := make([]Language, len(t.languages))
	copy(out, t.languages)
	return out
}

// Lookup 按代码查找
func (t *Table) Lookup(code string) (Language, bool) {
	i, ok := t.byCode[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Language{}, false
	}
	return t.languages[i], true
}

// Name 返回代码对应的名称，未知代码原样返回
func (t *Table) Name(code string) string {
	if l, ok := t.Lookup(code); ok {
		return l.Name
	}
	return code
}

// Code 返回名称对应的代码，未知名称原样返回
func (t *Table) Code(name string) string {
	for _, l := range t.languages {
		if strings.EqualFold(l.Name, strings.TrimSpace(name)) {
			return l.Code
		}
	}
	return name
}

// Resolve 依次按代码、名称、模糊名称解析用户输入
func (t *Table) Resolve(query string) (Language, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Language{}, fmt.Errorf("%w: empty", ErrUnknownLanguage)
	}
	if l, ok := t.Lookup(q); ok {
		return l, nil
	}
	for _, l := range t.languages {
		if strings.EqualFold(l.Name, q) {
			return l, nil
		}
	}

	names := make([]string, len(t.languages))
	for i, l := range t.languages {
		names[i] = l.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(q, names)
	if len(ranks) == 0 {
		return Language{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, query)
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	return t.languages[ranks[0].OriginalIndex], nil
}
