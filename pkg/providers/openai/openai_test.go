package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "# Hola"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func newTestProvider(url string) *Provider {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.APIEndpoint = url
	names := map[string]string{"en": "English", "es": "Spanish"}
	return New(cfg, func(code string) string { return names[code] })
}

func TestProvider_Translate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON))
	}))
	defer srv.Close()

	resp, err := newTestProvider(srv.URL+"/v1/").Translate(context.Background(), &providers.Request{
		FromLang: "en",
		ToLang:   "es",
		Content:  "# Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "# Hola", resp.TranslatedContent)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	assert.Contains(t, user["content"], "from English to Spanish")
	assert.Contains(t, user["content"], "# Hello")
}

func TestProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   providers.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, providers.KindAuthRequired},
		{"bad request", http.StatusBadRequest, providers.KindGeneric},
		{"server", http.StatusInternalServerError, providers.KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			_, err := newTestProvider(srv.URL+"/v1/").Translate(context.Background(), &providers.Request{FromLang: "en", ToLang: "es", Content: "x"})
			apiErr, ok := providers.AsTranslationAPIError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestProvider_MissingKey(t *testing.T) {
	p := New(DefaultConfig(), nil)
	_, err := p.Translate(context.Background(), &providers.Request{FromLang: "en", ToLang: "es", Content: "x"})
	apiErr, ok := providers.AsTranslationAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsAuth())
	assert.Equal(t, "openai", p.Name())
}

func TestGetModel(t *testing.T) {
	assert.Equal(t, "gpt-4o", string(getModel("gpt-4o")))
	assert.Equal(t, "my-local-model", string(getModel("my-local-model")))
}

func TestProvider_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProvider(srv.URL+"/v1/").Translate(ctx, &providers.Request{FromLang: "en", ToLang: "es", Content: "x"})
	apiErr, ok := providers.AsTranslationAPIError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, providers.KindNetwork, apiErr.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}
