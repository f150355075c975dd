// Package openai translates Markdown through an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

const systemPrompt = "You are a professional translator. Translate the user's Markdown document accurately while preserving the original meaning and tone. " +
	"Keep every Markdown construct (headings, lists, tables, emphasis, links) exactly where it is. Reply with the translated Markdown only."

// getModel 根据字符串获取模型常量
func getModel(model string) openai.ChatModel {
	switch model {
	case "gpt-4o":
		return openai.ChatModelGPT4o
	case "gpt-4o-mini":
		return openai.ChatModelGPT4oMini
	case "gpt-4-turbo":
		return openai.ChatModelGPT4Turbo
	default:
		// 对于新模型或自定义模型，使用字符串
		return openai.ChatModel(model)
	}
}

// LanguageNamer 把语言代码转换为提示词里的语言名
type LanguageNamer func(code string) string

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	base := providers.DefaultConfig()
	// 重试交给 retry.Wrap，SDK 内部不再重试
	base.MaxRetries = 0
	return Config{
		BaseConfig:  base,
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   4096,
	}
}

// Provider OpenAI 翻译后端
type Provider struct {
	config Config
	client openai.Client
	names  LanguageNamer
}

var _ providers.Translator = (*Provider)(nil)

// New 创建新的OpenAI提供商
func New(config Config, names LanguageNamer) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}

	if config.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(config.APIEndpoint))
	}

	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	if names == nil {
		names = func(code string) string { return code }
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
		names:  names,
	}
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if p.config.APIKey == "" {
		return nil, providers.NewAuthRequiredError()
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(fmt.Sprintf("Translate the following document from %s to %s:\n\n%s",
			p.names(req.FromLang), p.names(req.ToLang), req.Content)),
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    getModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.config.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	if len(completion.Choices) == 0 {
		return nil, providers.NewGenericError(http.StatusOK, "no choices returned from OpenAI")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return nil, providers.NewGenericError(http.StatusOK, "OpenAI returned empty content")
	}

	return &providers.Response{TranslatedContent: content}, nil
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "openai"
}

// classifyError 把 SDK 错误映射为 TranslationAPIError
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return providers.NewNetworkError(ctx.Err())
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			e := providers.NewAuthRequiredError()
			e.Err = err
			return e
		}
		e := providers.NewGenericError(apiErr.StatusCode, "openai chat completion failed")
		e.Err = err
		return e
	}

	return providers.NewNetworkError(err)
}
