package docapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(url string, token string) *Client {
	cfg := DefaultConfig()
	cfg.APIEndpoint = url
	return New(cfg, staticToken(token))
}

func TestClient_Translate(t *testing.T) {
	var got providers.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, TranslatePath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translated_content":"# नमस्ते"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL+"/", "secret").Translate(context.Background(), &providers.Request{
		FromLang: "en",
		ToLang:   "hi",
		Content:  "# Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "# नमस्ते", resp.TranslatedContent)
	assert.Equal(t, providers.Request{FromLang: "en", ToLang: "hi", Content: "# Hello"}, got)
}

func TestClient_LegacyField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"translated_text":"hola","source_language":"en"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL, "t").Translate(context.Background(), &providers.Request{FromLang: "en", ToLang: "es", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.TranslatedContent)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		json    bool
		kind    providers.ErrorKind
		message string
	}{
		{"session expired", http.StatusUnauthorized, `{"detail":"token expired"}`, true, providers.KindSessionExpired, providers.MessageSessionExpired},
		{"json error", http.StatusBadRequest, `{"error":"unsupported language"}`, true, providers.KindGeneric, "unsupported language"},
		{"json detail", http.StatusForbidden, `{"detail":"not allowed"}`, true, providers.KindGeneric, "not allowed"},
		{"plain text", http.StatusBadGateway, `upstream down`, false, providers.KindGeneric, "Bad Gateway"},
		{"empty content", http.StatusOK, `{"translated_content":""}`, true, providers.KindGeneric, "translation service returned empty content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.json {
					w.Header().Set("Content-Type", "application/json")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, "t").Translate(context.Background(), &providers.Request{FromLang: "en", ToLang: "fr", Content: "x"})
			apiErr, ok := providers.AsTranslationAPIError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestClient_AuthRequired(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "").Translate(context.Background(), &providers.Request{FromLang: "en", ToLang: "fr", Content: "x"})
	apiErr, ok := providers.AsTranslationAPIError(err)
	require.True(t, ok)
	assert.Equal(t, providers.KindAuthRequired, apiErr.Kind)
	assert.Equal(t, "Authentication required", apiErr.Message)
	assert.False(t, called)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, "t").Translate(context.Background(), &providers.Request{FromLang: "en", ToLang: "fr", Content: "x"})
	apiErr, ok := providers.AsTranslationAPIError(err)
	require.True(t, ok)
	assert.Equal(t, providers.KindNetwork, apiErr.Kind)
	assert.True(t, apiErr.IsRetryable())
}

func TestClient_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL, "t").Translate(ctx, &providers.Request{FromLang: "en", ToLang: "fr", Content: "x"})
	apiErr, ok := providers.AsTranslationAPIError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, providers.KindNetwork, apiErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
