package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"assignhelper/internal/catalog"
	"assignhelper/internal/config"
	"assignhelper/internal/embedding"
	"assignhelper/internal/models"
	"assignhelper/internal/pipeline"
	"assignhelper/internal/providers"
	"assignhelper/internal/storage"
	"assignhelper/internal/util"
	"assignhelper/internal/vector"
	"assignhelper/internal/workflows"

	tclient "go.temporal.io/sdk/client"
)

const maxTopK = 50

type SourceSearcher interface {
	SearchSources(ctx context.Context, query string, topK int, f vector.Filters) pipeline.SearchOutcome
}

type AssignmentStore interface {
	Create(ctx context.Context, a models.Assignment) (int64, error)
	Get(ctx context.Context, id int64) (models.Assignment, error)
}

type AnalysisReader interface {
	GetByAssignment(ctx context.Context, assignmentID int64) (models.AnalysisResult, error)
}

type AnalysisStarter interface {
	StartAnalysis(ctx context.Context, assignmentID int64) (workflows.Started, error)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Search      SourceSearcher
	Sources     catalog.Store
	Ingester    *catalog.Ingester
	Assignments AssignmentStore
	Analyses    AnalysisReader
	Starter     AnalysisStarter
}

type Server struct {
	cfg  config.Config
	deps Deps

	closers []func()
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	backend, err := catalog.OpenBackend(ctx, cfg, db)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	s := New(cfg, Deps{
		Search:      pipeline.FromManager(cfg, pm, backend.Index),
		Sources:     backend.Store,
		Ingester:    catalog.NewIngester(backend.Store, embedding.NewGenerator(pm.Embedder().Provider, cfg)),
		Assignments: storage.NewAssignmentRepo(db),
		Analyses:    storage.NewAnalysisRepo(db),
		Starter:     workflows.NewStarter(tc, cfg.TemporalTaskQueue),
	})
	s.closers = append(s.closers, tc.Close, func() { _ = backend.Close() }, db.Close)
	log.Printf("api: catalog=%s embed_providers=%v llm_providers=%v", cfg.CatalogBackend, pm.EmbedProviderRefs(), pm.LLMProviderRefs())
	return s
}

func New(cfg config.Config, deps Deps) *Server {
	return &Server{cfg: cfg, deps: deps}
}

func (s *Server) Close() {
	for _, c := range s.closers {
		c()
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealthz)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/sources", s.handleSources)
	mux.HandleFunc("/sources/", s.handleSourcesScoped)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/analysis/", s.handleAnalysisScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "healthy", "timestamp": time.Now().UTC()})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSearch(w, r)
	case http.MethodPost:
		var req catalog.SourceInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		res, err := s.deps.Ingester.Ingest(r.Context(), req)
		if err != nil {
			log.Printf("ingest source title=%q: %v", req.Title, err)
			status := http.StatusInternalServerError
			switch {
			case strings.TrimSpace(req.Title) == "", errors.Is(err, catalog.ErrEmptySource):
				status = http.StatusBadRequest
			case errors.Is(err, embedding.ErrEmbeddingUnavailable):
				status = http.StatusBadGateway
			}
			writeErr(w, status, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("query parameter is required"))
		return
	}
	topK, err := intParam(q.Get("top_k"), 0)
	if err != nil || topK < 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid top_k"))
		return
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	f := vector.Filters{SourceType: strings.TrimSpace(q.Get("source_type"))}
	if f.MinYear, err = intParam(q.Get("min_year"), 0); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid min_year"))
		return
	}
	if f.MaxYear, err = intParam(q.Get("max_year"), 0); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid max_year"))
		return
	}

	out := s.deps.Search.SearchSources(r.Context(), query, topK, f)
	if out.Err != nil {
		log.Printf("source search degraded status=%s: %v", out.Status, out.Err)
	}
	for i := range out.Sources {
		out.Sources[i].Snippet = util.DisplayEvidenceSnippet(out.Sources[i].Abstract, query, 280)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":         query,
		"sources_found": len(out.Sources),
		"sources":       out.Sources,
		"status":        out.Status,
	})
}

func (s *Server) handleSourcesScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sources/"), "/")
	if rest == "batch" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var req struct {
			Sources []catalog.SourceInput `json:"sources"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		if len(req.Sources) == 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("no sources provided"))
			return
		}
		writeJSON(w, http.StatusOK, s.deps.Ingester.IngestBatch(r.Context(), req.Sources))
		return
	}

	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("source not found"))
		return
	}
	src, err := s.deps.Sources.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("source not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) handleAnalysisScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/analysis/"), "/"), "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("analysis not found"))
		return
	}

	if len(parts) == 2 && parts[1] == "rerun" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		if _, err := s.deps.Assignments.Get(r.Context(), id); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				writeErr(w, http.StatusNotFound, fmt.Errorf("assignment not found"))
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		started, err := s.deps.Starter.StartAnalysis(r.Context(), id)
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"assignment_id": id,
			"workflow_id":   started.WorkflowID,
			"run_id":        started.RunID,
		})
		return
	}
	if len(parts) != 1 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	res, err := s.deps.Analyses.GetByAssignment(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("analysis not found"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func intParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "AH-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusBadGateway:
		return apiError{
			Code:    "AH-API-5020",
			Message: "Embedding or language model provider unavailable. Retry shortly.",
		}
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "AH-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "AH-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "AH-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "AH-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "AH-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "AH-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "AH-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusRequestEntityTooLarge:
		code = "AH-API-4013"
		msg = "File too large. Maximum size is 10MB."
	}

	// 4xx messages only carry user-safe validation context.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "source not found"),
			strings.Contains(raw, "analysis not found"),
			strings.Contains(raw, "assignment not found"),
			strings.Contains(raw, "query parameter is required"),
			strings.Contains(raw, "student_id is required"),
			strings.Contains(raw, "no file uploaded"),
			strings.Contains(raw, "no sources provided"),
			strings.Contains(raw, "invalid top_k"),
			strings.Contains(raw, "invalid min_year"),
			strings.Contains(raw, "invalid max_year"):
			msg = err.Error()
		case strings.Contains(raw, "title is required"):
			msg = "Source title is required."
		case strings.Contains(raw, "no text content available"):
			msg = "No text content available for embedding generation."
		case strings.Contains(raw, "unsupported file type"):
			msg = "Unsupported file type. Allowed: PDF, DOCX, TXT."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
