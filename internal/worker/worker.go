package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driving"
)

// Worker drains the embedding job queue. It polls for claimable jobs
// and runs the indexing pipeline for each, bounded by a concurrency
// semaphore. The queue's row locking guarantees no two workers ever
// claim the same job, so multiple worker processes can run side by side.
type Worker struct {
	jobQueue driven.JobQueue
	rag      driving.RAGService
	logger   *slog.Logger

	// Configuration
	pollInterval  time.Duration
	concurrency   int
	jobTimeout    time.Duration
	purgeInterval time.Duration
	retention     time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	JobQueue driven.JobQueue
	RAG      driving.RAGService
	Logger   *slog.Logger

	// PollInterval is the wait between queue polls (default 2s)
	PollInterval time.Duration
	// Concurrency bounds the number of jobs processed at once (default 2)
	Concurrency int
	// JobTimeout caps provider time per job (default 5m)
	JobTimeout time.Duration
	// PurgeInterval is how often completed jobs are purged (default 1h)
	PurgeInterval time.Duration
	// Retention is how long completed jobs are kept (default 24h)
	Retention time.Duration
}

// New creates a new embedding worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}

	return &Worker{
		jobQueue:      cfg.JobQueue,
		rag:           cfg.RAG,
		logger:        logger.With("component", "worker"),
		pollInterval:  cfg.PollInterval,
		concurrency:   cfg.Concurrency,
		jobTimeout:    cfg.JobTimeout,
		purgeInterval: cfg.PurgeInterval,
		retention:     cfg.Retention,
	}
}

// Start begins the polling loop.
// It runs until Stop is called or the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"poll_interval", w.pollInterval,
		"concurrency", w.concurrency,
	)

	go func() {
		defer close(w.doneCh)
		w.run(ctx)
	}()

	return nil
}

// Stop gracefully stops the worker and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// run is the main polling loop
func (w *Worker) run(ctx context.Context) {
	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()
	purge := time.NewTicker(w.purgeInterval)
	defer purge.Stop()

	sem := make(chan struct{}, w.concurrency)
	var inflight sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			inflight.Wait()
			return
		case <-w.stopCh:
			inflight.Wait()
			return
		case <-purge.C:
			w.purgeCompleted(ctx)
		case <-poll.C:
			w.claimAndProcess(ctx, sem, &inflight)
		}
	}
}

// claimAndProcess claims up to the free semaphore capacity and
// dispatches the claimed jobs.
func (w *Worker) claimAndProcess(ctx context.Context, sem chan struct{}, inflight *sync.WaitGroup) {
	free := cap(sem) - len(sem)
	if free == 0 {
		return
	}

	jobs, err := w.jobQueue.ClaimNext(ctx, free)
	if err != nil {
		w.logger.Error("failed to claim jobs", "error", err)
		return
	}

	for _, job := range jobs {
		sem <- struct{}{}
		inflight.Add(1)
		go func(job *domain.EmbeddingJob) {
			defer func() {
				<-sem
				inflight.Done()
			}()
			w.processJob(ctx, job)
		}(job)
	}
}

// processJob runs the indexing pipeline for one claimed job
func (w *Worker) processJob(ctx context.Context, job *domain.EmbeddingJob) {
	logger := w.logger.With("job_id", job.ID, "document_id", job.DocumentID, "attempt", job.Attempts)
	logger.Info("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	startTime := time.Now()
	result, err := w.rag.ProcessDocument(jobCtx, job.DocumentID)
	duration := time.Since(startTime)

	if err == nil && result != nil && !result.Success {
		err = fmt.Errorf("indexing failed: %s", result.Error)
	}

	if err != nil {
		logger.Error("job failed", "duration", duration, "error", err)

		// Rate-limit failures are always requeued: the budget recovers,
		// the document doesn't get less indexable.
		retry := true
		if _, rateLimited := domain.IsRateLimit(err); rateLimited {
			logger.Warn("provider budget exhausted, rescheduling job")
		}
		if markErr := w.jobQueue.MarkFailed(ctx, job.ID, err.Error(), retry); markErr != nil {
			logger.Error("failed to mark job failed", "error", markErr)
		}
		return
	}

	logger.Info("job completed", "duration", duration, "chunks_saved", result.ChunksSaved)

	if markErr := w.jobQueue.MarkCompleted(ctx, job.ID); markErr != nil {
		logger.Error("failed to mark job completed", "error", markErr)
	}
}

// purgeCompleted removes completed jobs past the retention window
func (w *Worker) purgeCompleted(ctx context.Context) {
	removed, err := w.jobQueue.PurgeCompleted(ctx, w.retention)
	if err != nil {
		w.logger.Error("failed to purge completed jobs", "error", err)
		return
	}
	if removed > 0 {
		w.logger.Info("purged completed jobs", "removed", removed)
	}
}

// Health reports the worker's health status.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running}

	if err := w.jobQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
