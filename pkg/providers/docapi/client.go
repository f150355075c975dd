// Package docapi talks to the remote document translation service.
package docapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

// TranslatePath 翻译接口路径
const TranslatePath = "/api/api/translate_content/"

// 响应体读取上限
const maxResponseBytes = 32 << 20

// TokenSource 提供当前会话令牌，空字符串表示未登录
type TokenSource interface {
	Token() string
}

// Config 远端翻译服务配置
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{BaseConfig: providers.DefaultConfig()}
}

// Client 远端翻译服务客户端
//
// 客户端本身不重试，重试由调用方通过 retry.Wrap 决定。
type Client struct {
	config     Config
	httpClient *http.Client
	tokens     TokenSource
}

var _ providers.Translator = (*Client)(nil)

// New 创建客户端
func New(config Config, tokens TokenSource) *Client {
	return &Client{
		config:     config,
		httpClient: NewHTTPClient(config.Timeout),
		tokens:     tokens,
	}
}

// WithHTTPClient 替换底层 HTTP 客户端
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type translateResponse struct {
	TranslatedContent string `json:"translated_content"`
	// 旧版接口字段
	TranslatedText string `json:"translated_text"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// Translate 执行翻译
func (c *Client) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		return nil, providers.NewAuthRequiredError()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.config.APIEndpoint, "/") + TranslatePath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, providers.NewNetworkError(ctx.Err())
		}
		return nil, providers.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, providers.NewNetworkError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, providers.NewSessionExpiredError()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, providers.NewGenericError(resp.StatusCode, errorMessage(resp, respBody))
	}

	var result translateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		apiErr := providers.NewGenericError(resp.StatusCode, "invalid response from translation service")
		apiErr.Err = err
		return nil, apiErr
	}

	translated := result.TranslatedContent
	if translated == "" {
		translated = result.TranslatedText
	}
	if strings.TrimSpace(translated) == "" {
		return nil, providers.NewGenericError(resp.StatusCode, "translation service returned empty content")
	}

	return &providers.Response{TranslatedContent: translated}, nil
}

// Name 获取后端名称
func (c *Client) Name() string {
	return "docapi"
}

// errorMessage 优先使用 JSON 中的 error/detail，否则退回状态文本
func errorMessage(resp *http.Response, body []byte) string {
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil {
			if e.Error != "" {
				return e.Error
			}
			if e.Detail != "" {
				return e.Detail
			}
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return providers.MessageRequestFailed
}

// NewHTTPClient 供登录等同源请求复用的超时设置
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = providers.DefaultConfig().Timeout
	}
	return &http.Client{Timeout: timeout}
}
