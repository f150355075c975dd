package document

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Format 文档格式类型
type Format string

const (
	FormatDOCX    Format = "docx"
	FormatText    Format = "txt"
	FormatUnknown Format = "unknown"
)

// MIME types accepted at the upload boundary.
const (
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeText = "text/plain"
)

// Importer 把上传的原始字节转换为 HTML 和样式表
type Importer interface {
	Import(data []byte) (*Extraction, error)
}

// ImporterFunc 函数适配器
type ImporterFunc func(data []byte) (*Extraction, error)

// Import 实现 Importer
func (f ImporterFunc) Import(data []byte) (*Extraction, error) {
	return f(data)
}

// Registry 格式注册表：MIME 类型、扩展名与导入器的映射
type Registry struct {
	mu         sync.RWMutex
	importers  map[Format]Importer
	mimeTypes  map[string]Format
	extensions map[string]Format
}

// NewRegistry 创建注册表并注册 docx 与 txt
func NewRegistry() *Registry {
	r := &Registry{
		importers:  make(map[Format]Importer),
		mimeTypes:  make(map[string]Format),
		extensions: make(map[string]Format),
	}
	_ = r.Register(FormatDOCX, MIMETypeDOCX, []string{".docx"}, ImporterFunc(Extract))
	_ = r.Register(FormatText, MIMETypeText, []string{".txt", ".text"}, ImporterFunc(ImportText))
	return r
}

// Register 注册一个格式
func (r *Registry) Register(format Format, mimeType string, exts []string, imp Importer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.importers[format]; exists {
		return fmt.Errorf("format %s already registered", format)
	}

	r.importers[format] = imp
	r.mimeTypes[normalizeMIME(mimeType)] = format
	for _, ext := range exts {
		// 标准化扩展名（去除点号，转小写）
		r.extensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = format
	}
	return nil
}

// FormatForMIME 根据声明的 MIME 类型确定格式
func (r *Registry) FormatForMIME(mimeType string) (Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if format, ok := r.mimeTypes[normalizeMIME(mimeType)]; ok {
		return format, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
}

// MIMEForFile 根据文件扩展名推断 MIME 类型，用于命令行输入
func (r *Registry) MIMEForFile(filename string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	format, ok := r.extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(filename))
	}
	for mimeType, f := range r.mimeTypes {
		if f == format {
			return mimeType, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(filename))
}

// Importer 获取格式对应的导入器
func (r *Registry) Importer(format Format) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	imp, ok := r.importers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return imp, nil
}

// Formats 返回所有已注册的格式
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]Format, 0, len(r.importers))
	for f := range r.importers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// normalizeMIME 去掉参数（如 charset）并转小写
func normalizeMIME(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}
