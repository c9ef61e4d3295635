package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/autostat/internal/analysis"
	"github.com/KaramelBytes/autostat/internal/pipeline"
	"github.com/KaramelBytes/autostat/internal/store"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalyzeResponse is the JSON body of a successful POST /analyze.
type AnalyzeResponse struct {
	ID           string             `json:"id"`
	Message      string             `json:"message"`
	AnalysisType analysis.Kind      `json:"analysis_type"`
	ChartURL     string             `json:"chart_url"`
	ReportURL    string             `json:"report_url,omitempty"`
	ColumnsUsed  analysis.Selection `json:"columns_used"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.FormMemoryBytes); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_form", errors.New("file too large or invalid form"))
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "missing_file", errors.New("no file provided"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_form", err)
		return
	}

	withReport := s.opts.WithReport
	if v := strings.TrimSpace(r.FormValue("report")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "invalid_form", errors.New("report must be a boolean"))
			return
		}
		withReport = b
	}
	opt := s.opts.TableOptions
	if v := r.FormValue("sheet_name"); v != "" {
		opt.SheetName = v
	}
	if v := r.FormValue("sheet_index"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 1 {
			s.writeError(w, r, http.StatusBadRequest, "invalid_form", errors.New("sheet_index must be a positive integer"))
			return
		}
		opt.SheetIndex = i
	}
	objective := r.FormValue("research_objective")
	if strings.TrimSpace(objective) == "" {
		objective = s.opts.DefaultObjective
	}

	id := uuid.NewString()
	if _, err := s.opts.Store.SaveUpload(id, header.Filename, data); err != nil {
		s.writeError(w, r, statusFor(err), codeFor(err), err)
		return
	}
	tbl, err := table.LoadBytes(data, header.Filename, opt)
	if err != nil {
		s.writeError(w, r, statusFor(err), codeFor(err), err)
		return
	}
	res, err := s.opts.Runner.Run(r.Context(), pipeline.Request{ID: id, Table: tbl, Objective: objective, WithReport: withReport})
	if err != nil {
		s.writeError(w, r, statusFor(err), codeFor(err), err)
		return
	}
	if err := s.opts.Store.SaveResult(res); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "storage_error", err)
		return
	}

	resp := AnalyzeResponse{
		ID:           res.ID,
		Message:      res.Message,
		AnalysisType: res.Kind,
		ChartURL:     "/chart/" + res.ChartName,
		ColumnsUsed:  res.Columns,
		Warnings:     res.Warnings,
	}
	if res.ReportName != "" {
		resp.ReportURL = "/report/" + res.ReportName
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArtifact(kind store.Kind, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		f, err := s.opts.Store.Open(kind, name)
		if err != nil {
			s.writeError(w, r, statusFor(err), codeFor(err), err)
			return
		}
		defer f.Close()
		modTime := time.Time{}
		if info, err := f.Stat(); err == nil {
			modTime = info.ModTime()
		}
		w.Header().Set("Content-Type", contentType)
		http.ServeContent(w, r, name, modTime, f)
	}
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(err error) int {
	var (
		pe *table.ParseError
		ae *analysis.AnalysisError
	)
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func codeFor(err error) string {
	var (
		pe *table.ParseError
		ae *analysis.AnalysisError
		re *analysis.RenderError
	)
	switch {
	case errors.As(err, &pe):
		return "parse_error"
	case errors.As(err, &ae):
		return string(ae.Reason)
	case errors.As(err, &re):
		return "render_error"
	case errors.Is(err, store.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	}
	return "internal_error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", fields...)
		if code == "internal_error" || code == "storage_error" {
			msg = "internal server error"
		}
	} else {
		s.log.Warn("request rejected", fields...)
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
