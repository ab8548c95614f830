package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/webimport/product-extractor/internal/cache"
	"github.com/webimport/product-extractor/internal/database"
	"github.com/webimport/product-extractor/internal/events"
	"github.com/webimport/product-extractor/internal/extract"
	"github.com/webimport/product-extractor/internal/jobs"
	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/page"
)

type Handlers struct {
	engine    *extract.Engine
	jobs      *jobs.Manager
	publisher *events.Publisher
	cache     *cache.ResultCache
	imports   *database.ImportRepository
	logger    *slog.Logger
}

// NewHandlers creates the API handler set. publisher, resultCache and
// imports may be nil when the backing service is not configured; the
// routes that need them respond 503.
func NewHandlers(engine *extract.Engine, jobManager *jobs.Manager, publisher *events.Publisher, resultCache *cache.ResultCache, imports *database.ImportRepository, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine:    engine,
		jobs:      jobManager,
		publisher: publisher,
		cache:     resultCache,
		imports:   imports,
		logger:    logger,
	}
}

// ExtractRequest represents a single-page extraction request
type ExtractRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// Extract handles one-off extraction requests without persistence
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	product, ok := h.extractFromRequest(w, r)
	if !ok {
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// ImportResponse wraps an import result
type ImportResponse struct {
	ImportID string          `json:"import_id,omitempty"`
	Product  *models.Product `json:"product"`
}

// Import extracts a page, persists the result and queues the
// PRODUCT_IMPORTED event
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		h.respondError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	product, ok := h.extractFromRequest(w, r)
	if !ok {
		return
	}

	imported, err := h.publisher.PublishProductImported(r.Context(), product)
	if err != nil {
		h.logger.Error("failed to import product", "url", product.SourceURL, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to import product")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), product.SourceURL, product); err != nil {
			h.logger.Warn("failed to cache result", "url", product.SourceURL, "error", err)
		}
	}

	h.respondJSON(w, http.StatusCreated, ImportResponse{
		ImportID: imported.ID.String(),
		Product:  product,
	})
}

func (h *Handlers) extractFromRequest(w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return nil, false
	}
	if req.HTML == "" {
		h.respondError(w, http.StatusBadRequest, "html is required")
		return nil, false
	}

	if h.cache != nil {
		if product, err := h.cache.Get(r.Context(), req.URL); err == nil {
			return product, true
		} else if !errors.Is(err, cache.ErrMiss) {
			h.logger.Warn("cache lookup failed", "url", req.URL, "error", err)
		}
	}

	pg, err := page.New(req.HTML, req.URL)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid page: "+err.Error())
		return nil, false
	}

	return h.engine.Extract(r.Context(), pg), true
}

// ListImports handles listing persisted imports
func (h *Handlers) ListImports(w http.ResponseWriter, r *http.Request) {
	if h.imports == nil {
		h.respondError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	platform := r.URL.Query().Get("platform")

	imports, err := h.imports.List(r.Context(), platform, limit)
	if err != nil {
		h.logger.Error("failed to list imports", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list imports")
		return
	}

	h.respondJSON(w, http.StatusOK, imports)
}

// CreateJobRequest represents a new bulk extraction job request
type CreateJobRequest struct {
	Pages []jobs.PageInput `json:"pages"`
}

// CreateJobResponse represents the job creation response
type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateJob handles new bulk extraction job creation
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Pages) == 0 {
		h.respondError(w, http.StatusBadRequest, "pages is required")
		return
	}
	for _, p := range req.Pages {
		if p.URL == "" || p.HTML == "" {
			h.respondError(w, http.StatusBadRequest, "every page needs url and html")
			return
		}
	}

	job, err := h.jobs.CreateJob(r.Context(), req.Pages)
	if err != nil {
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "failed to create job: "+err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job created successfully",
	})
}

// GetJob handles job status retrieval
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// GetJobResults handles retrieving per-page results of a job
func (h *Handlers) GetJobResults(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	results, err := h.jobs.GetJobResults(jobID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, results)
}

// ListJobs handles listing all jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListJobs())
}

// GetStats handles statistics retrieval
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.GetStats())
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
