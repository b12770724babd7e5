package api

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"assignhelper/internal/extract"
	"assignhelper/internal/models"
	"assignhelper/internal/util"
)

// handleUpload stores an assignment file, records it and starts its analysis.
// Extraction and workflow start failures do not fail the upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fh, ok := formFile(r.MultipartForm, "file", "assignment")
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no file uploaded"))
		return
	}
	if fh.Size > limit {
		writeErr(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large"))
		return
	}
	if !extract.Supported(fh.Filename) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, filepath.Ext(fh.Filename)))
		return
	}
	studentID := strings.TrimSpace(r.FormValue("student_id"))
	if studentID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("student_id is required"))
		return
	}

	path, sum, err := saveUploadedFile(s.cfg.UploadDir, fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	text, err := extract.File(path)
	if err != nil {
		log.Printf("extract text file=%q: %v", fh.Filename, err)
		text = ""
	}

	a := models.Assignment{
		StudentID:     studentID,
		Filename:      filepath.Base(fh.Filename),
		StoredPath:    path,
		ContentSHA256: sum,
		OriginalText:  text,
		WordCount:     extract.WordCount(text),
		Status:        models.AssignmentUploaded,
		UploadedAt:    time.Now().UTC(),
	}
	id, err := s.deps.Assignments.Create(r.Context(), a)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	resp := map[string]any{
		"message":         "Assignment uploaded successfully",
		"assignment_id":   id,
		"analysis_job_id": nil,
	}
	started, err := s.deps.Starter.StartAnalysis(r.Context(), id)
	if err != nil {
		log.Printf("start analysis assignment_id=%d: %v", id, err)
		resp["warning"] = "analysis could not be started; use /analysis/{id}/rerun to retry"
	} else {
		resp["analysis_job_id"] = started.WorkflowID
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// saveUploadedFile writes the upload under dstDir with a random name that
// keeps the original extension, hashing the bytes on the way.
func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (path, sha string, err error) {
	if err := util.EnsureDir(dstDir); err != nil {
		return "", "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	tmp, err := os.CreateTemp(dstDir, "upload-*"+ext)
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	_, sha, err = util.CopyWithSHA256(tmp, src)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	finalPath := util.SafeJoin(dstDir, uuid.NewString()+ext)
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}
	return finalPath, sha, nil
}

func formFile(form *multipart.Form, names ...string) (*multipart.FileHeader, bool) {
	for _, n := range names {
		if files := form.File[n]; len(files) > 0 {
			return files[0], true
		}
	}
	return nil, false
}
