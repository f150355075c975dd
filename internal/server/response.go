package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/internal/formats/markdown"
	"github.com/nerdneilsfield/go-doc-translator/internal/languages"
	"github.com/nerdneilsfield/go-doc-translator/internal/pipeline"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers"
)

// ProblemDetail RFC 7807 错误响应
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	// Errors 字段级校验错误
	Errors map[string]string `json:"errors,omitempty"`
}

// respondJSON 先编码再写头，避免编码失败时输出半截响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		respondProblem(w, ProblemDetail{Status: http.StatusInternalServerError, Detail: "failed to encode response"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func respondProblem(w http.ResponseWriter, problem ProblemDetail) {
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	if problem.Type == "" {
		problem.Type = "about:blank"
	}

	payload, err := json.Marshal(problem)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_, _ = w.Write(payload)
}

// problemFor 把领域错误映射为 HTTP 状态码和面向用户的说明
func problemFor(err error) ProblemDetail {
	var (
		extractErr *document.ExtractionError
		packErr    *document.PackagingError
		convErr    *markdown.ConversionError
		apiErr     *providers.TranslationAPIError
		fieldErrs  validation.Errors
	)

	switch {
	case errors.Is(err, document.ErrUnsupportedFormat):
		return ProblemDetail{Status: http.StatusUnsupportedMediaType, Detail: "Only .docx and .txt files are supported"}
	case errors.As(err, &extractErr):
		return ProblemDetail{Status: http.StatusUnprocessableEntity, Detail: extractErr.Error()}
	case errors.As(err, &packErr):
		return ProblemDetail{Status: http.StatusUnprocessableEntity, Detail: packErr.Error()}
	case errors.As(err, &convErr):
		return ProblemDetail{Status: http.StatusBadRequest, Detail: convErr.Error()}
	case errors.As(err, &fieldErrs):
		return ProblemDetail{Status: http.StatusBadRequest, Detail: "validation failed", Errors: flatten(fieldErrs)}
	case errors.Is(err, languages.ErrUnknownLanguage):
		return ProblemDetail{Status: http.StatusBadRequest, Detail: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return ProblemDetail{Status: http.StatusGatewayTimeout, Detail: "translation timed out"}
	case errors.As(err, &apiErr):
		if apiErr.IsAuth() {
			return ProblemDetail{Status: http.StatusUnauthorized, Detail: apiErr.Message}
		}
		return ProblemDetail{Status: http.StatusBadGateway, Detail: apiErr.Message}
	case errors.Is(err, pipeline.ErrNoTranslator):
		return ProblemDetail{Status: http.StatusServiceUnavailable, Detail: err.Error()}
	default:
		return ProblemDetail{Status: http.StatusInternalServerError, Detail: "internal error"}
	}
}

func flatten(errs validation.Errors) map[string]string {
	out := make(map[string]string, len(errs))
	for field, err := range errs {
		out[field] = err.Error()
	}
	return out
}
