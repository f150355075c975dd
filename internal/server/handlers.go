package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/internal/logger"
	"github.com/nerdneilsfield/go-doc-translator/internal/pipeline"
)

const maxJSONBody = 32 << 20

type translateRequest struct {
	FromLang string          `json:"from_lang"`
	ToLang   string          `json:"to_lang"`
	HTML     string          `json:"html"`
	Styles   string          `json:"styles"`
	ID       string          `json:"id"`
	Format   document.Format `json:"format"`
	FileName string          `json:"file_name"`
}

func (r translateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FromLang, validation.Required.Error("Source language is required")),
		validation.Field(&r.ToLang, validation.Required.Error("Target language is required")),
		validation.Field(&r.HTML, validation.Required.Error("Content is required")),
	)
}

type markdownRequest struct {
	HTML string `json:"html"`
}

type markdownResponse struct {
	Markdown string `json:"markdown"`
}

type htmlRequest struct {
	Markdown string `json:"markdown"`
}

type htmlResponse struct {
	HTML string `json:"html"`
}

type downloadRequest struct {
	HTML     string `json:"html"`
	FileName string `json:"file_name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.pipeline.Languages().All())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	db := s.pipeline.Stats()
	if db == nil {
		respondProblem(w, ProblemDetail{Status: http.StatusNotFound, Detail: "statistics are disabled"})
		return
	}
	respondJSON(w, http.StatusOK, db.GetStats())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.badRequest(w, r, "invalid multipart upload", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, r, "missing form field \"file\"", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.badRequest(w, r, "failed to read upload", err)
		return
	}

	// 浏览器对未知类型给出 octet-stream，此时按扩展名判断
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}

	bundle, err := s.pipeline.Load(r.Context(), pipeline.Upload{
		FileName: header.Filename,
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, bundle)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	bundle := document.NewBundle(req.Format, req.FileName, s.pipeline.Sanitize(req.HTML), req.Styles)
	if req.ID != "" {
		bundle.ID = req.ID
	}

	ctx := r.Context()
	if s.opts.TranslateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TranslateTimeout)
		defer cancel()
	}

	translated, err := s.pipeline.Translate(ctx, bundle, req.FromLang, req.ToLang)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, translated)
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	var req markdownRequest
	if !s.decode(w, r, &req) {
		return
	}

	md, err := s.pipeline.Markdown(req.HTML)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, markdownResponse{Markdown: md})
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	var req htmlRequest
	if !s.decode(w, r, &req) {
		return
	}

	out, err := s.pipeline.HTML(req.Markdown)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, htmlResponse{HTML: out})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !s.decode(w, r, &req) {
		return
	}

	dl, err := s.pipeline.Download(r.Context(), req.HTML, req.FileName)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", dl.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}

// decode 解析 JSON 请求体，失败时已写出响应
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.badRequest(w, r, "invalid JSON body", err)
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, detail string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondProblem(w, ProblemDetail{Status: http.StatusRequestEntityTooLarge, Detail: "upload too large"})
		return
	}
	logger.FromContext(r.Context(), s.logger).Debug("bad request", zap.String("detail", detail), zap.Error(err))
	respondProblem(w, ProblemDetail{Status: http.StatusBadRequest, Detail: detail})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	problem := problemFor(err)
	log := logger.FromContext(r.Context(), s.logger)
	if problem.Status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", problem.Status), zap.Error(err))
	} else {
		log.Info("request rejected", zap.Int("status", problem.Status), zap.Error(err))
	}
	respondProblem(w, problem)
}
