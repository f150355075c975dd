package document

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrUnsupportedFormat 上传的文件类型不在 docx/txt 之内
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyContent 没有可以打包的内容
	ErrEmptyContent = errors.New("empty content")

	// ErrMissingMainPart 压缩包中缺少 word/document.xml
	ErrMissingMainPart = errors.New("missing word/document.xml")
)

// ExtractionError DOCX 解析失败（压缩包损坏或缺少主文档）
type ExtractionError struct {
	Reason string // 失败原因
	Err    error  // 原始错误
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

// Unwrap 返回原始错误
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// PackagingError 生成 DOCX 失败，下载必须被阻止
type PackagingError struct {
	Reason string
	Err    error
}

// Error 实现error接口
func (e *PackagingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("packaging failed: %s: %v", e.Reason, e.Err)
	}
	return "packaging failed: " + e.Reason
}

// Unwrap 返回原始错误
func (e *PackagingError) Unwrap() error {
	return e.Err
}

func newExtractionError(reason string, err error) *ExtractionError {
	return &ExtractionError{Reason: reason, Err: err}
}

func newPackagingError(reason string, err error) *PackagingError {
	return &PackagingError{Reason: reason, Err: err}
}

// IsExtractionError 判断是否为解析错误
func IsExtractionError(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// IsPackagingError 判断是否为打包错误
func IsPackagingError(err error) bool {
	var target *PackagingError
	return errors.As(err, &target)
}
