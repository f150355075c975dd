package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

// RetryConfig 重试配置
type RetryConfig struct {
	// 最大重试次数（不含首次调用）
	MaxRetries int `json:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ErrorType 错误类型枚举
type ErrorType int

const (
	ErrorTypeNone      ErrorType = iota
	ErrorTypeNetwork             // 网络瞬时错误
	ErrorTypeRetryable           // 429 / 5xx
	ErrorTypeAuth                // 认证错误，永不重试
	ErrorTypePermanent           // 永久性错误
)

// Retrier 指数退避重试器
type Retrier struct {
	config RetryConfig
	// OnRetry 在每次重试等待前调用，可为空
	OnRetry func(attempt int, delay time.Duration, err error)
}

// NewRetrier 创建重试器
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{config: config}
}

// Do 执行 fn，仅对网络错误、429 和 5xx 重试
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return stopError(ctx, lastErr)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		errorType := Classify(lastErr)
		if errorType != ErrorTypeNetwork && errorType != ErrorTypeRetryable {
			return lastErr
		}
		if attempt == r.config.MaxRetries {
			break
		}

		delay := r.calculateDelay(attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt+1, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return stopError(ctx, lastErr)
		case <-timer.C:
		}
	}

	return lastErr
}

// stopError 调用方取消时优先返回已携带取消原因的后端错误
func stopError(ctx context.Context, lastErr error) error {
	if lastErr != nil && errors.Is(lastErr, ctx.Err()) {
		return lastErr
	}
	return ctx.Err()
}

// Classify 分类错误
//
// 后端错误先于 context 错误判断：单次请求超时包装为网络错误，仍可重试；
// 调用方的取消由 Do 在每次调用后检查。
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeNone
	}

	if apiErr, ok := providers.AsTranslationAPIError(err); ok {
		switch {
		case apiErr.IsAuth():
			return ErrorTypeAuth
		case apiErr.Kind == providers.KindNetwork:
			return ErrorTypeNetwork
		case apiErr.IsRetryable():
			return ErrorTypeRetryable
		default:
			return ErrorTypePermanent
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypePermanent
	}

	if isNetworkError(err) {
		return ErrorTypeNetwork
	}
	return ErrorTypePermanent
}

// isNetworkError 判断是否为网络错误
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isNetworkError(urlErr.Err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"i/o timeout",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// Budget 返回完成全部尝试所需的总时长：每次尝试 attemptTimeout，加上各次退避等待。
// attemptTimeout 不大于 0 时返回 0，表示不限制。
func (c RetryConfig) Budget(attemptTimeout time.Duration) time.Duration {
	if attemptTimeout <= 0 {
		return 0
	}
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	r := NewRetrier(c)
	total := attemptTimeout * time.Duration(retries+1)
	for i := 0; i < retries; i++ {
		total += r.calculateDelay(i)
	}
	return total
}

// calculateDelay 计算第 attempt 次失败后的等待时间
func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := r.config.InitialDelay

	if attempt > 0 {
		backoffFactor := r.config.BackoffFactor
		if backoffFactor <= 1.0 {
			backoffFactor = 2.0
		}
		delay = time.Duration(float64(delay) * math.Pow(backoffFactor, float64(attempt)))
	}

	if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	return delay
}

// Translator 给任意翻译后端加上重试
type Translator struct {
	next    providers.Translator
	retrier *Retrier
}

var _ providers.Translator = (*Translator)(nil)

// Wrap 用重试器包装翻译后端
func Wrap(next providers.Translator, retrier *Retrier) *Translator {
	return &Translator{next: next, retrier: retrier}
}

func (t *Translator) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	var resp *providers.Response
	err := t.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = t.next.Translate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *Translator) Name() string {
	return t.next.Name()
}
