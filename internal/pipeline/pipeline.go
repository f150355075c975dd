// Package pipeline wires upload, extraction, sanitization, translation and
// packaging into the three user-facing operations: Load, Translate and Download.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/internal/formats/markdown"
	"github.com/nerdneilsfield/go-doc-translator/internal/languages"
	"github.com/nerdneilsfield/go-doc-translator/internal/sanitize"
	"github.com/nerdneilsfield/go-doc-translator/internal/stats"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/cache"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/retry"
)

// ErrNoTranslator 未配置翻译后端
var ErrNoTranslator = errors.New("no translator configured")

// Upload 上传的原始文件
type Upload struct {
	FileName string
	MIMEType string // 为空时按扩展名推断
	Data     []byte
}

// Download 可供下载的 DOCX
type Download struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Pipeline 文档处理流程，构建后只读，可并发使用
type Pipeline struct {
	registry     *document.Registry
	sanitizer    *sanitize.Sanitizer
	bridge       *markdown.Bridge
	packager     *document.Packager
	translator   providers.Translator
	languages    *languages.Table
	downloadName string
	stats        *stats.Database
	retryConfig  *retry.RetryConfig
	cache        cache.Cache
	logger       *zap.Logger
}

// Option 配置 Pipeline
type Option func(*Pipeline)

// WithLogger 设置日志记录器
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithBridge 替换 Markdown 转换器
func WithBridge(b *markdown.Bridge) Option {
	return func(p *Pipeline) { p.bridge = b }
}

// WithLanguages 设置语言表，用于把语言名解析为代码
func WithLanguages(t *languages.Table) Option {
	return func(p *Pipeline) { p.languages = t }
}

// WithDownloadName 设置默认下载文件名
func WithDownloadName(name string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(name) != "" {
			p.downloadName = name
		}
	}
}

// WithStats 记录每次翻译的统计信息
func WithStats(db *stats.Database) Option {
	return func(p *Pipeline) { p.stats = db }
}

// WithRetry 翻译调用按配置重试，认证错误不重试
func WithRetry(cfg retry.RetryConfig) Option {
	return func(p *Pipeline) { p.retryConfig = &cfg }
}

// WithCache 缓存翻译结果；缓存位于重试之外，每次翻译只查询一次
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// New 创建处理流程，translator 可为空（此时 Translate 返回 ErrNoTranslator）
func New(translator providers.Translator, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:     document.NewRegistry(),
		sanitizer:    sanitize.New(),
		bridge:       markdown.NewBridge(),
		packager:     document.NewPackager(),
		translator:   translator,
		languages:    languages.Default(),
		downloadName: document.DefaultFileName,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.translator = p.wrapTranslator(translator)
	return p
}

// wrapTranslator 组装 cache(retry(translator))
func (p *Pipeline) wrapTranslator(tr providers.Translator) providers.Translator {
	if tr == nil {
		return nil
	}

	if p.retryConfig != nil && p.retryConfig.MaxRetries > 0 {
		r := retry.NewRetrier(*p.retryConfig)
		r.OnRetry = func(attempt int, delay time.Duration, err error) {
			p.logger.Warn("翻译请求失败，准备重试",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		}
		tr = retry.Wrap(tr, r)
	}

	if p.cache != nil {
		var observer cache.Observer
		if p.stats != nil {
			observer = p.stats
		}
		tr = cache.Wrap(tr, p.cache, observer)
	}
	return tr
}

// Registry 返回格式注册表
func (p *Pipeline) Registry() *document.Registry {
	return p.registry
}

// Languages 返回语言表
func (p *Pipeline) Languages() *languages.Table {
	return p.languages
}

// Stats 返回统计数据库，未配置时为 nil
func (p *Pipeline) Stats() *stats.Database {
	return p.stats
}

// Load 识别格式、导入并清洗上传内容
func (p *Pipeline) Load(ctx context.Context, up Upload) (*document.Bundle, error) {
	mimeType := up.MIMEType
	if mimeType == "" {
		m, err := p.registry.MIMEForFile(up.FileName)
		if err != nil {
			return nil, err
		}
		mimeType = m
	}

	format, err := p.registry.FormatForMIME(mimeType)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	importer, err := p.registry.Importer(format)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := importer.Import(up.Data)
	if err != nil {
		p.logger.Warn("文档导入失败",
			zap.String("file", up.FileName),
			zap.String("format", string(format)),
			zap.Error(err))
		return nil, err
	}

	bundle := document.NewBundle(format, filepath.Base(up.FileName), p.sanitizer.Sanitize(result.HTML), result.Styles)
	p.logger.Info("文档导入完成",
		zap.String("id", bundle.ID),
		zap.String("file", bundle.FileName),
		zap.String("format", string(format)),
		zap.Int("bytes", len(up.Data)),
		zap.Int("html_size", len(bundle.HTML)),
		zap.Duration("elapsed", time.Since(start)))

	return bundle, nil
}

// Translate 把 bundle 的 HTML 经 Markdown 送去翻译，返回新的 bundle
func (p *Pipeline) Translate(ctx context.Context, bundle *document.Bundle, fromLang, toLang string) (*document.Bundle, error) {
	if p.translator == nil {
		return nil, ErrNoTranslator
	}

	from, err := p.resolveLanguage(fromLang)
	if err != nil {
		return nil, err
	}
	to, err := p.resolveLanguage(toLang)
	if err != nil {
		return nil, err
	}

	md, err := p.bridge.HTMLToMarkdown(bundle.HTML)
	if err != nil {
		return nil, err
	}

	req := &providers.Request{FromLang: from, ToLang: to, Content: md}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := p.logger.With(
		zap.String("id", bundle.ID),
		zap.String("translator", p.translator.Name()),
		zap.String("from", from),
		zap.String("to", to))

	start := time.Now()
	resp, err := p.translator.Translate(ctx, req)
	if err != nil {
		log.Error("翻译失败", zap.Error(err))
		p.record(bundle, req, "", time.Since(start), err)
		return nil, err
	}

	// 命中缓存时没有访问后端，只计入缓存统计
	translated, err := p.bridge.MarkdownToHTML(resp.TranslatedContent)
	if err != nil {
		if !resp.Cached {
			p.record(bundle, req, resp.TranslatedContent, time.Since(start), err)
		}
		return nil, err
	}

	elapsed := time.Since(start)
	log.Info("翻译完成",
		zap.Bool("cached", resp.Cached),
		zap.Int("source_size", len(md)),
		zap.Int("translated_size", len(resp.TranslatedContent)),
		zap.Duration("elapsed", elapsed))
	if !resp.Cached {
		p.record(bundle, req, resp.TranslatedContent, elapsed, nil)
	}

	return bundle.WithHTML(p.sanitizer.Sanitize(translated)), nil
}

// record 写入统计；统计失败只记录日志
func (p *Pipeline) record(bundle *document.Bundle, req *providers.Request, translated string, elapsed time.Duration, err error) {
	if p.stats == nil {
		return
	}

	r := &stats.TranslationRecord{
		ID:              bundle.ID,
		FileName:        bundle.FileName,
		SourceLanguage:  req.FromLang,
		TargetLanguage:  req.ToLang,
		Format:          string(bundle.Format),
		Translator:      p.translator.Name(),
		CharacterCount:  utf8.RuneCountInString(req.Content),
		TranslatedCount: utf8.RuneCountInString(translated),
		Duration:        elapsed,
		Status:          stats.StatusCompleted,
	}
	if err != nil {
		r.Status = stats.StatusFailed
		r.ErrorMessage = err.Error()
	}

	if err := p.stats.AddTranslationRecord(r); err != nil {
		p.logger.Warn("统计写入失败", zap.Error(err))
	}
}

// Markdown 清洗后转换为 Markdown
func (p *Pipeline) Markdown(html string) (string, error) {
	return p.bridge.HTMLToMarkdown(p.sanitizer.Sanitize(html))
}

// HTML 把 Markdown 转换为清洗后的 HTML
func (p *Pipeline) HTML(md string) (string, error) {
	out, err := p.bridge.MarkdownToHTML(md)
	if err != nil {
		return "", err
	}
	return p.sanitizer.Sanitize(out), nil
}

// Sanitize 清洗 HTML
func (p *Pipeline) Sanitize(html string) string {
	return p.sanitizer.Sanitize(html)
}

// Download 把编辑后的 HTML 打包为 DOCX
func (p *Pipeline) Download(ctx context.Context, html, fileName string) (*Download, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := p.packager.Package(p.sanitizer.Sanitize(html))
	if err != nil {
		return nil, err
	}

	name := p.FileName(fileName)
	p.logger.Info("文档打包完成", zap.String("file", name), zap.Int("bytes", len(data)))

	return &Download{
		FileName: name,
		MIMEType: document.DocxMIMEType,
		Data:     data,
	}, nil
}

// FileName 规范化下载文件名：取基本名并确保 .docx 后缀
func (p *Pipeline) FileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = p.downloadName
	}
	name = filepath.Base(name)
	if name == "." || name == "/" {
		name = p.downloadName
	}
	if !strings.EqualFold(filepath.Ext(name), ".docx") {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".docx"
	}
	return name
}

// resolveLanguage 接受语言代码或名称；空值交给请求校验报错
func (p *Pipeline) resolveLanguage(input string) (string, error) {
	if strings.TrimSpace(input) == "" || p.languages == nil {
		return strings.TrimSpace(input), nil
	}
	l, err := p.languages.Resolve(input)
	if err != nil {
		return "", fmt.Errorf("resolve language: %w", err)
	}
	return l.Code, nil
}
