package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

func fastConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTypeNone, Classify(nil))
	assert.Equal(t, ErrorTypeAuth, Classify(providers.NewSessionExpiredError()))
	assert.Equal(t, ErrorTypeAuth, Classify(providers.NewAuthRequiredError()))
	assert.Equal(t, ErrorTypeNetwork, Classify(providers.NewNetworkError(errors.New("eof"))))
	assert.Equal(t, ErrorTypeRetryable, Classify(providers.NewGenericError(http.StatusServiceUnavailable, "down")))
	assert.Equal(t, ErrorTypeRetryable, Classify(providers.NewGenericError(http.StatusTooManyRequests, "slow")))
	assert.Equal(t, ErrorTypePermanent, Classify(providers.NewGenericError(http.StatusBadRequest, "bad")))
	assert.Equal(t, ErrorTypeNetwork, Classify(errors.New("dial tcp 127.0.0.1:1: connection refused")))
	assert.Equal(t, ErrorTypePermanent, Classify(context.Canceled))
	assert.Equal(t, ErrorTypePermanent, Classify(context.DeadlineExceeded))
	// a single request timing out is still a network failure
	assert.Equal(t, ErrorTypeNetwork, Classify(providers.NewNetworkError(context.DeadlineExceeded)))
}

func TestRetrier_RetriesServerErrors(t *testing.T) {
	r := NewRetrier(fastConfig(3))
	var retries []int
	r.OnRetry = func(attempt int, _ time.Duration, _ error) { retries = append(retries, attempt) }

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return providers.NewGenericError(http.StatusBadGateway, "bad gateway")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetrier_NeverRetriesAuth(t *testing.T) {
	r := NewRetrier(fastConfig(5))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return providers.NewSessionExpiredError()
	})

	assert.Equal(t, 1, calls)
	apiErr, ok := providers.AsTranslationAPIError(err)
	require.True(t, ok)
	assert.Equal(t, providers.KindSessionExpired, apiErr.Kind)
}

func TestRetrier_GivesUp(t *testing.T) {
	r := NewRetrier(fastConfig(2))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return providers.NewNetworkError(errors.New("connection reset"))
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_StopsOnCancel(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return providers.NewNetworkError(errors.New("timeout"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateDelay(t *testing.T) {
	r := NewRetrier(RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2})

	assert.Equal(t, time.Second, r.calculateDelay(0))
	assert.Equal(t, 2*time.Second, r.calculateDelay(1))
	assert.Equal(t, 4*time.Second, r.calculateDelay(2))
	assert.Equal(t, 5*time.Second, r.calculateDelay(3))
}

func TestTranslator_Wrap(t *testing.T) {
	calls := 0
	flaky := providers.TranslatorFunc(func(_ context.Context, req *providers.Request) (*providers.Response, error) {
		calls++
		if calls == 1 {
			return nil, providers.NewGenericError(http.StatusInternalServerError, "oops")
		}
		return &providers.Response{TranslatedContent: "hola"}, nil
	})

	tr := Wrap(flaky, NewRetrier(fastConfig(2)))
	resp, err := tr.Translate(context.Background(), &providers.Request{FromLang: "en", ToLang: "es", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.TranslatedContent)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "func", tr.Name())
}

func TestRetrier_KeepsBackendErrorOnDeadline(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return providers.NewNetworkError(ctx.Err())
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	apiErr, ok := providers.AsTranslationAPIError(err)
	require.True(t, ok)
	assert.Equal(t, providers.KindNetwork, apiErr.Kind)
}

func TestRetrier_RetriesAttemptTimeout(t *testing.T) {
	r := NewRetrier(fastConfig(2))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return providers.NewNetworkError(context.DeadlineExceeded)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryConfig_Budget(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 3 * time.Second, BackoffFactor: 2}
	// 4 attempts of 10s plus waits of 1s, 2s and 3s (capped)
	assert.Equal(t, 46*time.Second, cfg.Budget(10*time.Second))

	cfg.MaxRetries = 0
	assert.Equal(t, 10*time.Second, cfg.Budget(10*time.Second))
	assert.Equal(t, time.Duration(0), cfg.Budget(0))
}
