package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webimport/product-extractor/internal/extract"
	"github.com/webimport/product-extractor/internal/jobs"
	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/queue"
)

func newTestRouter(t *testing.T) (*chi.Mux, *jobs.Manager) {
	t.Helper()

	logger := slog.Default()
	engine := extract.NewEngine(extract.DefaultOptions(), logger)
	q := queue.NewInMemoryQueue(16)
	t.Cleanup(func() { q.Close() })

	manager := jobs.NewManager(engine, q, nil, nil, 2, logger)
	handlers := NewHandlers(engine, manager, nil, nil, nil, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", handlers.Extract)
		r.Post("/import", handlers.Import)
		r.Get("/imports", handlers.ListImports)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", handlers.CreateJob)
			r.Get("/", handlers.ListJobs)
			r.Get("/{jobID}", handlers.GetJob)
			r.Get("/{jobID}/results", handlers.GetJobResults)
		})
		r.Get("/stats", handlers.GetStats)
	})

	return r, manager
}

func TestExtractEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("valid request", func(t *testing.T) {
		body := `{"url":"https://www.amazon.com/dp/B08XYZ1234",
			"html":"<html><body><span id=\"productTitle\">Travel Mug</span></body></html>"}`

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)

		var product models.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
		assert.Equal(t, "Travel Mug", product.Title)
		assert.Equal(t, models.PlatformAmazon, product.Platform)
		assert.Equal(t, "B08XYZ1234", product.ASIN)
	})

	t.Run("missing url", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/extract",
			strings.NewReader(`{"html":"<html></html>"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing html", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/extract",
			strings.NewReader(`{"url":"https://example.com/p/1"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/extract",
			strings.NewReader(`{not json`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("relative page url", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/extract",
			strings.NewReader(`{"url":"/p/1","html":"<html></html>"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestImportEndpointWithoutDatabase(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/import",
		strings.NewReader(`{"url":"https://example.com/p/1","html":"<html></html>"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/imports", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobEndpoints(t *testing.T) {
	router, manager := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.StartWorkers(ctx)

	t.Run("create, poll and fetch results", func(t *testing.T) {
		body := `{"pages":[
			{"url":"https://shop.example.com/p/1","html":"<html><head><title>Lamp</title></head></html>"}
		]}`

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)

		var created CreateJobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		require.NotEmpty(t, created.JobID)

		require.Eventually(t, func() bool {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.JobID, nil))
			if rec.Code != http.StatusOK {
				return false
			}
			var job jobs.Job
			if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
				return false
			}
			return job.Status == "completed"
		}, 5*time.Second, 10*time.Millisecond)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.JobID+"/results", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var results []*jobs.PageResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "completed", results[0].Status)
		require.NotNil(t, results[0].Product)
		assert.Equal(t, "Lamp", results[0].Product.Title)
	})

	t.Run("job without pages rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/", strings.NewReader(`{"pages":[]}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("page without html rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/",
			strings.NewReader(`{"pages":[{"url":"https://x.example/p/1"}]}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/unknown-id", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("stats", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var stats jobs.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.GreaterOrEqual(t, stats.TotalJobs, 1)
	})
}
