package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslationAPIError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       *TranslationAPIError
		auth      bool
		retryable bool
	}{
		{"auth required", NewAuthRequiredError(), true, false},
		{"session expired", NewSessionExpiredError(), true, false},
		{"network", NewNetworkError(errors.New("dial tcp: refused")), false, true},
		{"rate limited", NewGenericError(http.StatusTooManyRequests, "slow down"), false, true},
		{"server error", NewGenericError(http.StatusBadGateway, "bad gateway"), false, true},
		{"bad request", NewGenericError(http.StatusBadRequest, "bad language"), false, false},
		{"empty result", NewGenericError(http.StatusOK, "empty translation"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.auth, tt.err.IsAuth())
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
		})
	}
}

func TestTranslationAPIError_Messages(t *testing.T) {
	assert.Equal(t, "Authentication required", NewAuthRequiredError().Message)
	assert.Equal(t, "Session expired. Please login again.", NewSessionExpiredError().Message)

	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("translate: %w", NewNetworkError(cause))

	apiErr, ok := AsTranslationAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.ErrorIs(t, wrapped, cause)

	_, ok = AsTranslationAPIError(cause)
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	echo := TranslatorFunc(func(_ context.Context, req *Request) (*Response, error) {
		return &Response{TranslatedContent: req.Content}, nil
	})

	require.NoError(t, r.Register("echo", echo))
	require.NoError(t, r.Register("alpha", echo))
	assert.Error(t, r.Register("echo", echo))
	assert.Equal(t, []string{"alpha", "echo"}, r.List())

	got, err := r.Get("echo")
	require.NoError(t, err)
	resp, err := got.Translate(context.Background(), &Request{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", resp.TranslatedContent)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRequest_Validate(t *testing.T) {
	ok := &Request{FromLang: "en", ToLang: "hi", Content: "hello"}
	assert.NoError(t, ok.Validate())

	err := (&Request{FromLang: "e", ToLang: "hi", Content: "hello"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Source language is required")

	err = (&Request{FromLang: "en", ToLang: "hi"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Content is required")
}
