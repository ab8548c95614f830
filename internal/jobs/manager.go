package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webimport/product-extractor/internal/cache"
	"github.com/webimport/product-extractor/internal/events"
	"github.com/webimport/product-extractor/internal/extract"
	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/queue"
)

var ErrJobNotFound = errors.New("job not found")

// Job represents a bulk extraction job
type Job struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	TotalPages  int        `json:"total_pages"`
	PagesDone   int        `json:"pages_done"`
	PagesFailed int        `json:"pages_failed"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PageInput is one page submitted as part of a bulk job
type PageInput struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// PageResult is the outcome of extracting one page of a job
type PageResult struct {
	URL     string          `json:"url"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Product *models.Product `json:"product,omitempty"`
}

// Stats represents extraction job statistics
type Stats struct {
	TotalJobs     int     `json:"total_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	TotalPages    int     `json:"total_pages"`
	PagesDone     int     `json:"pages_done"`
	PagesFailed   int     `json:"pages_failed"`
	SuccessRate   float64 `json:"success_rate"`
}

type jobState struct {
	job     *Job
	results map[string]*PageResult // keyed by task id
}

// Manager tracks bulk extraction jobs and feeds their pages through
// the task queue. Jobs live in memory; the persisted artifact is the
// imported product row written per page.
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*jobState
	queue     queue.Queue
	engine    *extract.Engine
	publisher *events.Publisher
	cache     *cache.ResultCache
	logger    *slog.Logger
	workers   int
}

// NewManager creates a job manager. publisher and resultCache may be
// nil when the database or Redis is not configured.
func NewManager(engine *extract.Engine, q queue.Queue, publisher *events.Publisher, resultCache *cache.ResultCache, workers int, logger *slog.Logger) *Manager {
	if workers <= 0 {
		workers = 4
	}
	return &Manager{
		jobs:      make(map[string]*jobState),
		queue:     q,
		engine:    engine,
		publisher: publisher,
		cache:     resultCache,
		logger:    logger.With("component", "job_manager"),
		workers:   workers,
	}
}

// CreateJob registers a new bulk job and enqueues one task per page
func (m *Manager) CreateJob(ctx context.Context, pages []PageInput) (*Job, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("job requires at least one page")
	}

	job := &Job{
		ID:         uuid.New().String(),
		Status:     "pending",
		TotalPages: len(pages),
		CreatedAt:  time.Now(),
	}

	state := &jobState{
		job:     job,
		results: make(map[string]*PageResult, len(pages)),
	}

	tasks := make([]*queue.Task, 0, len(pages))
	for _, p := range pages {
		task := &queue.Task{
			ID:        uuid.New().String(),
			JobID:     job.ID,
			URL:       p.URL,
			HTML:      p.HTML,
			CreatedAt: time.Now(),
		}
		state.results[task.ID] = &PageResult{URL: p.URL, Status: "pending"}
		tasks = append(tasks, task)
	}

	m.mu.Lock()
	m.jobs[job.ID] = state
	m.mu.Unlock()

	for _, task := range tasks {
		if err := m.queue.Push(task); err != nil {
			m.mu.Lock()
			delete(m.jobs, job.ID)
			m.mu.Unlock()
			return nil, fmt.Errorf("failed to enqueue page: %w", err)
		}
	}

	m.logger.Info("job created", "id", job.ID, "pages", len(pages))
	return job, nil
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	snapshot := *state.job
	return &snapshot, nil
}

// GetJobResults returns the per-page results of a job
func (m *Manager) GetJobResults(jobID string) ([]*PageResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	results := make([]*PageResult, 0, len(state.results))
	for _, r := range state.results {
		copied := *r
		results = append(results, &copied)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })

	return results, nil
}

// ListJobs lists all jobs, newest first
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, state := range m.jobs {
		snapshot := *state.job
		jobs = append(jobs, &snapshot)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })

	return jobs
}

// GetStats retrieves aggregate job statistics
func (m *Manager) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{}
	for _, state := range m.jobs {
		stats.TotalJobs++
		switch state.job.Status {
		case "pending":
			stats.PendingJobs++
		case "running":
			stats.RunningJobs++
		case "completed":
			stats.CompletedJobs++
		}
		stats.TotalPages += state.job.TotalPages
		stats.PagesDone += state.job.PagesDone
		stats.PagesFailed += state.job.PagesFailed
	}

	if stats.TotalPages > 0 {
		stats.SuccessRate = float64(stats.PagesDone) / float64(stats.TotalPages) * 100
	}

	return stats
}
