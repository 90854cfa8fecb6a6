// internal/server/server.go
//
// Package server exposes the extraction service over HTTP. Callers identify
// themselves with the X-Owner-ID header; jobs and results are only visible
// to the owner that submitted them.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/racepull/racepull/internal/monitoring"
	"github.com/racepull/racepull/internal/orchestrator"
	"github.com/racepull/racepull/internal/utils"
	"github.com/racepull/racepull/pkg/types"
)

const ownerHeader = "X-Owner-ID"

// defaultRecentLimit bounds GET /results when no limit is given.
const defaultRecentLimit = 20

// Server is the HTTP front end over the orchestrator.
type Server struct {
	svc     *orchestrator.Service
	metrics *monitoring.Metrics
	health  *monitoring.HealthHandler
	logger  utils.Logger
	router  *mux.Router
}

// New wires the routes and returns the server.
func New(svc *orchestrator.Service, metrics *monitoring.Metrics, health *monitoring.HealthHandler, logger utils.Logger) *Server {
	s := &Server{
		svc:     svc,
		metrics: metrics,
		health:  health,
		logger:  logger,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Handle("/healthz", s.health).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.logRequests)
	api.HandleFunc("/jobs", s.handleSubmitBatch).Methods("POST")
	api.HandleFunc("/jobs/{id}", s.handleJobStatus).Methods("GET")
	api.HandleFunc("/jobs/{id}/results", s.handleJobResults).Methods("GET")
	api.HandleFunc("/results", s.handleRecentResults).Methods("GET")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")
	api.HandleFunc("/platforms", s.handlePlatforms).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type submitRequest struct {
	URLs []string `json:"urls"`
}

type refreshRequest struct {
	URL string `json:"url"`
}

type resultsResponse struct {
	JobID   string                  `json:"job_id,omitempty"`
	Results []types.JobResultRecord `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	job, err := s.svc.SubmitBatch(r.Context(), owner, req.URLs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	job, err := s.svc.JobStatus(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	jobID := mux.Vars(r)["id"]
	records, err := s.svc.JobResults(r.Context(), owner, jobID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{JobID: jobID, Results: records})
}

func (s *Server) handleRecentResults(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.svc.RecentResults(r.Context(), owner, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: records})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must contain a url"})
		return
	}

	result, err := s.svc.Refresh(r.Context(), owner, req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"platforms": s.svc.SupportedPlatforms()})
}

// owner extracts the caller identity, rejecting anonymous requests.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ownerHeader + " header is required"})
		return "", false
	}
	return owner, true
}

// writeError maps service error codes onto HTTP statuses. Unclassified
// errors are treated as caller mistakes: the orchestrator wraps everything
// internal in a coded error.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := utils.CodeOf(err)
	status := http.StatusBadRequest
	switch code {
	case utils.ErrCodeUnauthorized:
		status = http.StatusForbidden
	case utils.ErrCodeNotFound:
		status = http.StatusNotFound
	case utils.ErrCodeStorage:
		status = http.StatusInternalServerError
	case utils.ErrCodeRenderFailure:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.logger.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("request handled")
	})
}
