package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/export"
)

const (
	analyzePreviewRows = 5
	previewRecords     = 20
	historyListLimit   = 100
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		internal.LogWarn("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeProcessError maps pipeline failures onto HTTP statuses.
func writeProcessError(w http.ResponseWriter, msg string, err error) {
	var fe *internal.FormatError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, msg, err)
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large", err)
	default:
		internal.LogError("%s: %v", msg, err)
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

var errNoFile = errors.New("no file uploaded")

// readCSVUpload reads the multipart csvFile field.
func (s *Server) readCSVUpload(w http.ResponseWriter, r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", err
		}
		return "", "", errNoFile
	}
	file, header, err := r.FormFile("csvFile")
	if err != nil {
		return "", "", errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, string(data), nil
}

func (s *Server) uploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNoFile) {
		writeError(w, http.StatusBadRequest, errNoFile.Error(), nil)
		return
	}
	writeProcessError(w, "failed to read upload", err)
}

func (s *Server) parse(content string) (*internal.ParsedDocument, error) {
	start := time.Now()
	doc, err := s.opts.Processor.Parse(content)
	s.opts.Metrics.ObserveStage("parse", time.Since(start))
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.ObserveRows(len(doc.Rows), len(doc.Skipped))
	return doc, nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	filename, content, err := s.readCSVUpload(w, r)
	if err != nil {
		s.uploadError(w, err)
		return
	}

	doc, err := s.parse(content)
	if err != nil {
		writeProcessError(w, "failed to process file", err)
		return
	}

	start := time.Now()
	profile := s.opts.Processor.Analyze(doc)
	s.opts.Metrics.ObserveStage("analyze", time.Since(start))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"filename":    filename,
		"analysis":    profile,
		"dataPreview": doc.Rows[:min(len(doc.Rows), analyzePreviewRows)],
		"totalRows":   len(doc.Rows),
		"headers":     doc.Headers,
		"skipped":     doc.Skipped,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	filename, content, err := s.readCSVUpload(w, r)
	if err != nil {
		s.uploadError(w, err)
		return
	}

	templateType := r.FormValue("templateType")
	var tmpl internal.Template
	if templateType != "" && templateType != "auto" {
		if tmpl, err = internal.ParseTemplate(templateType); err != nil {
			writeError(w, http.StatusBadRequest, "invalid template type", err)
			return
		}
	}

	var columns []string
	if raw := r.FormValue("selectedColumns"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &columns); err != nil {
			writeError(w, http.StatusBadRequest, "invalid selectedColumns", err)
			return
		}
	}

	format := r.FormValue("format")
	if format == "" {
		format = "html"
	}
	exporter, err := export.NewExporter(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid format", err)
		return
	}

	start := time.Now()
	res, err := s.opts.Processor.Process(content)
	s.opts.Metrics.ObserveStage("process", time.Since(start))
	if err != nil {
		writeProcessError(w, "failed to generate document", err)
		return
	}
	s.opts.Metrics.ObserveRows(len(res.Document.Rows), len(res.Document.Skipped))
	if tmpl == "" {
		tmpl = res.Profile.RecommendedTemplate
	}

	doc := export.NewDocument(filename, tmpl, columns, res)
	var buf bytes.Buffer
	start = time.Now()
	if err := exporter.Export(doc, &buf); err != nil {
		writeProcessError(w, "failed to generate document", &internal.ExportError{Format: format, Path: filename, Err: err})
		return
	}
	s.opts.Metrics.ObserveStage("export", time.Since(start))

	name := export.OutputName(filename, tmpl, exporter.Extension(), doc.GeneratedAt)
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	_, content, err := s.readCSVUpload(w, r)
	if err != nil {
		s.uploadError(w, err)
		return
	}

	doc, err := s.parse(content)
	if err != nil {
		writeProcessError(w, "failed to generate preview", err)
		return
	}

	head := *doc
	head.Rows = doc.Rows[:min(len(doc.Rows), previewRecords)]
	start := time.Now()
	records := s.opts.Processor.Convert(&head)
	s.opts.Metrics.ObserveStage("convert", time.Since(start))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"preview":   records,
		"totalRows": len(doc.Rows),
	})
}

type uploadURLRequest struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		writeError(w, http.StatusBadRequest, "fileName is required", nil)
		return
	}
	if !s.storageEnabled() {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured", nil)
		return
	}

	up, err := s.opts.Store.PresignUpload(r.Context(), req.FileName, req.FileSize, req.ContentType)
	if err != nil {
		writeProcessError(w, "failed to generate upload url", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"uploadUrl": up.UploadURL,
		"publicUrl": up.PublicURL,
		"key":       up.Key,
		"expiresIn": up.ExpiresIn,
	})
}

type uploadRequest struct {
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"`
	FileSize    int64  `json:"fileSize"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes*2)
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.FileName == "" || req.FileContent == "" {
		writeError(w, http.StatusBadRequest, "fileName and fileContent are required", nil)
		return
	}
	body, err := base64.StdEncoding.DecodeString(req.FileContent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "fileContent must be base64", err)
		return
	}
	if !s.storageEnabled() {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured", nil)
		return
	}

	obj, err := s.opts.Store.Upload(r.Context(), req.FileName, "text/csv", body)
	if err != nil {
		writeProcessError(w, "upload failed", err)
		return
	}

	rec := internal.HistoryRecord{
		FileName:   req.FileName,
		FileSize:   req.FileSize,
		UploadedAt: obj.LastModified,
		ObjectKey:  obj.Key,
		PublicURL:  obj.URL,
	}
	if rec.FileSize == 0 {
		rec.FileSize = int64(len(body))
	}
	if res, err := s.opts.Processor.Process(string(body)); err == nil {
		rec.Template = string(res.Profile.RecommendedTemplate)
		rec.RowCount = len(res.Records)
		rec.SessionCount = len(res.Sessions)
	} else {
		internal.LogDebug("Uploaded %s is not a parsable CSV: %v", req.FileName, err)
	}

	if s.opts.History != nil {
		saved, err := s.opts.History.Add(r.Context(), rec)
		if err != nil {
			writeProcessError(w, "failed to record upload", err)
			return
		}
		rec = *saved
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"record":  rec,
	})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	history := []internal.HistoryRecord{}
	if s.opts.History != nil {
		limit := historyListLimit
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		var err error
		if history, err = s.opts.History.List(r.Context(), limit); err != nil {
			writeProcessError(w, "failed to list history", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": history,
	})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	if s.opts.History == nil {
		writeError(w, http.StatusNotFound, "history record not found", nil)
		return
	}

	rec, err := s.opts.History.Get(r.Context(), id)
	if errors.Is(err, internal.ErrHistoryNotFound) {
		writeError(w, http.StatusNotFound, "history record not found", err)
		return
	}
	if err != nil {
		writeProcessError(w, "failed to delete record", err)
		return
	}

	if rec.ObjectKey != "" && s.storageEnabled() {
		if err := s.opts.Store.Delete(r.Context(), rec.ObjectKey); err != nil {
			writeProcessError(w, "failed to delete stored object", err)
			return
		}
	}
	if err := s.opts.History.Delete(r.Context(), id); err != nil {
		writeProcessError(w, "failed to delete record", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      id,
		"message": "record deleted",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.opts.Version,
	})
}

func (s *Server) storageEnabled() bool {
	return s.opts.Store != nil && s.opts.Store.Enabled()
}
