package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 翻译错误类别
type ErrorKind string

const (
	KindAuthRequired   ErrorKind = "auth_required"
	KindSessionExpired ErrorKind = "session_expired"
	KindNetwork        ErrorKind = "network"
	KindGeneric        ErrorKind = "generic"
)

// 面向用户的固定提示
const (
	MessageAuthRequired   = "Authentication required"
	MessageSessionExpired = "Session expired. Please login again."
	MessageNetwork        = "Network error. Please check your connection."
	MessageRequestFailed  = "Request failed"
)

// TranslationAPIError 翻译后端返回的错误
type TranslationAPIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *TranslationAPIError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("translation api: %s: %v", msg, e.Err)
	}
	return "translation api: " + msg
}

func (e *TranslationAPIError) Unwrap() error {
	return e.Err
}

// IsAuth 认证类错误需要用户重新登录，不能重试
func (e *TranslationAPIError) IsAuth() bool {
	return e.Kind == KindAuthRequired || e.Kind == KindSessionExpired
}

// IsRetryable 判断错误是否可重试
func (e *TranslationAPIError) IsRetryable() bool {
	switch {
	case e.IsAuth():
		return false
	case e.Kind == KindNetwork:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// NewAuthRequiredError 缺少令牌
func NewAuthRequiredError() *TranslationAPIError {
	return &TranslationAPIError{Kind: KindAuthRequired, StatusCode: http.StatusUnauthorized, Message: MessageAuthRequired}
}

// NewSessionExpiredError 令牌被服务端拒绝
func NewSessionExpiredError() *TranslationAPIError {
	return &TranslationAPIError{Kind: KindSessionExpired, StatusCode: http.StatusUnauthorized, Message: MessageSessionExpired}
}

// NewNetworkError 传输层失败
func NewNetworkError(err error) *TranslationAPIError {
	return &TranslationAPIError{Kind: KindNetwork, Message: MessageNetwork, Err: err}
}

// NewGenericError 其他失败
func NewGenericError(status int, message string) *TranslationAPIError {
	return &TranslationAPIError{Kind: KindGeneric, StatusCode: status, Message: message}
}

// AsTranslationAPIError 从错误链中取出 TranslationAPIError
func AsTranslationAPIError(err error) (*TranslationAPIError, bool) {
	var apiErr *TranslationAPIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
