package providers

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:    2 * time.Minute, // 整篇文档一次提交，给足时间
		MaxRetries: 3,
		RetryDelay: time.Second,
		Headers:    make(map[string]string),
	}
}

// Request 翻译请求，字段名与远端接口一致
type Request struct {
	FromLang string `json:"from_lang"`
	ToLang   string `json:"to_lang"`
	Content  string `json:"content"`
}

// Response 翻译结果
type Response struct {
	TranslatedContent string `json:"translated_content"`
	// Cached 结果来自缓存，未访问后端
	Cached bool `json:"-"`
}

// Translator 翻译后端接口
//
// 实现必须遵守 ctx 的取消，且不能在失败时把原文当作译文返回。
type Translator interface {
	// Translate 执行翻译
	Translate(ctx context.Context, req *Request) (*Response, error)

	// Name 获取后端名称
	Name() string
}

// TranslatorFunc 把普通函数适配为 Translator，主要用于测试
type TranslatorFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TranslatorFunc) Translate(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

func (f TranslatorFunc) Name() string {
	return "func"
}

// Validate 校验请求字段
func (r *Request) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required.Error("Content is required")),
		validation.Field(&r.FromLang,
			validation.Required.Error("Source language is required"),
			validation.Length(2, 0).Error("Source language is required")),
		validation.Field(&r.ToLang,
			validation.Required.Error("Target language is required"),
			validation.Length(2, 0).Error("Target language is required")),
	)
}
