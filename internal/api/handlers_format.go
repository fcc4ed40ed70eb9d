package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"skripsiforge/internal/merge"
	"skripsiforge/internal/pipeline"
	"skripsiforge/internal/section"

	"github.com/go-chi/chi/v5"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	// Two uploads per request, so double the per-file limit plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*2+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	templateName, templateData, err := s.readUpload(r, "template")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.ToLower(filepath.Ext(templateName)) != ".docx" {
		jsonError(w, "template must be a .docx file", http.StatusBadRequest)
		return
	}

	contentName, contentData, err := s.readUpload(r, "content")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !section.IsSupportedExtension(contentName) {
		jsonError(w, fmt.Sprintf("unsupported content type: %s", filepath.Ext(contentName)), http.StatusBadRequest)
		return
	}

	meta, err := readMetadata(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.orchestrator.NewJob(templateName, contentName, templateData, contentData, meta)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"poll_url":   fmt.Sprintf("/api/format/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/format/%s/result", job.ID),
	})
}

func (s *Server) handleFormatStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleFormatResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted:
		output := job.Output()
		w.Header().Set("Content-Type", docxMIME)
		w.Header().Set("Content-Disposition", `attachment; filename="formatted.docx"`)
		w.Write(output)
	case pipeline.StatusFailed:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"status": snap.Status,
			"phase":  snap.Phase,
			"errors": snap.Errors,
		})
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"status": snap.Status,
			"phase":  snap.Phase,
		})
	}
}

// readUpload reads one multipart file field, enforcing the size limit.
func (s *Server) readUpload(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%s is required: %w", field, err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	data, err := readLimited(file, s.cfg.MaxUploadBytes)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", field, err)
	}
	return filename, data, nil
}

func readLimited(f multipart.File, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("file exceeds max size (%d bytes)", max)
	}
	return data, nil
}

// readMetadata accepts either a "metadata" JSON form field or individual
// form fields named after the JSON keys.
func readMetadata(r *http.Request) (merge.Metadata, error) {
	var meta merge.Metadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return meta, fmt.Errorf("invalid metadata JSON: %w", err)
		}
		return meta, nil
	}
	meta.Title = r.FormValue("title")
	meta.Author = r.FormValue("author")
	meta.Identifier = r.FormValue("identifier")
	meta.Advisor = r.FormValue("advisor")
	meta.Institution = r.FormValue("institution")
	meta.Program = r.FormValue("program")
	meta.Date = r.FormValue("date")
	meta.AbstractID = r.FormValue("abstract_id")
	meta.AbstractEN = r.FormValue("abstract_en")
	meta.Keywords = r.FormValue("keywords")
	meta.Preface = r.FormValue("preface")
	return meta, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
