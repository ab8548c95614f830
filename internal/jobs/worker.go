package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/webimport/product-extractor/internal/cache"
	"github.com/webimport/product-extractor/internal/models"
	"github.com/webimport/product-extractor/internal/page"
	"github.com/webimport/product-extractor/internal/queue"
)

// StartWorkers starts the worker pool and blocks until ctx is done
func (m *Manager) StartWorkers(ctx context.Context) {
	m.logger.Info("job workers started", "count", m.workers)

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			m.runWorker(ctx, worker)
		}(i)
	}

	wg.Wait()
	m.logger.Info("job workers stopped")
}

func (m *Manager) runWorker(ctx context.Context, worker int) {
	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			m.logger.Error("failed to pop task", "worker", worker, "error", err)
			return
		}

		m.processTask(ctx, task)
	}
}

// processTask extracts one page and records the result on its job
func (m *Manager) processTask(ctx context.Context, task *queue.Task) {
	m.markRunning(task.JobID)

	product, err := m.extractPage(ctx, task)
	if err != nil {
		m.logger.Warn("page extraction failed",
			"job", task.JobID,
			"url", task.URL,
			"error", err)
		m.recordResult(task, nil, err)
		return
	}

	if m.publisher != nil {
		if _, err := m.publisher.PublishProductImported(ctx, product); err != nil {
			m.logger.Error("failed to persist import",
				"job", task.JobID,
				"url", task.URL,
				"error", err)
		}
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, product.SourceURL, product); err != nil {
			m.logger.Warn("failed to cache result", "url", product.SourceURL, "error", err)
		}
	}

	m.recordResult(task, product, nil)
}

func (m *Manager) extractPage(ctx context.Context, task *queue.Task) (*models.Product, error) {
	if m.cache != nil {
		if product, err := m.cache.Get(ctx, task.URL); err == nil {
			m.logger.Debug("cache hit", "url", task.URL)
			return product, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			m.logger.Warn("cache lookup failed", "url", task.URL, "error", err)
		}
	}

	pg, err := page.New(task.HTML, task.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	return m.engine.Extract(ctx, pg), nil
}

func (m *Manager) markRunning(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.jobs[jobID]
	if !ok {
		return
	}
	if state.job.Status == "pending" {
		now := time.Now()
		state.job.Status = "running"
		state.job.StartedAt = &now
	}
}

func (m *Manager) recordResult(task *queue.Task, product *models.Product, extractErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.jobs[task.JobID]
	if !ok {
		return
	}

	result, ok := state.results[task.ID]
	if !ok {
		return
	}

	if extractErr != nil {
		result.Status = "failed"
		result.Error = extractErr.Error()
		state.job.PagesFailed++
	} else {
		result.Status = "completed"
		result.Product = product
		state.job.PagesDone++
	}

	if state.job.PagesDone+state.job.PagesFailed >= state.job.TotalPages {
		now := time.Now()
		state.job.Status = "completed"
		state.job.CompletedAt = &now
		m.logger.Info("job completed",
			"id", state.job.ID,
			"done", state.job.PagesDone,
			"failed", state.job.PagesFailed)
	}
}
