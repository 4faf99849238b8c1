package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Ensure Queue implements JobQueue
var _ driven.JobQueue = (*Queue)(nil)

// Queue implements JobQueue using PostgreSQL with SKIP LOCKED so
// concurrent workers never double-claim a job. Keeping the queue in the
// same database as the documents means an enqueue can share a
// transaction with the ingest write.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a new PostgreSQL-backed job queue.
// Assumes the embedding_jobs table exists (see schema.sql).
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

const jobColumns = `id, document_id, payload, status, priority,
	attempts, max_attempts, last_error, available_at,
	created_at, updated_at, started_at, completed_at`

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(ctx context.Context, job *domain.EmbeddingJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO embedding_jobs (
			id, document_id, payload, status, priority,
			attempts, max_attempts, last_error, available_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = q.db.ExecContext(ctx, query,
		job.ID,
		job.DocumentID,
		payload,
		job.Status,
		job.Priority,
		job.Attempts,
		job.MaxAttempts,
		job.LastError,
		job.AvailableAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// EnqueueBatch adds multiple jobs atomically
func (q *Queue) EnqueueBatch(ctx context.Context, jobs []*domain.EmbeddingJob) error {
	if len(jobs) == 0 {
		return nil
	}
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return err
		}
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO embedding_jobs (
			id, document_id, payload, status, priority,
			attempts, max_attempts, last_error, available_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		payload, err := json.Marshal(job.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload for job %s: %w", job.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			job.ID,
			job.DocumentID,
			payload,
			job.Status,
			job.Priority,
			job.Attempts,
			job.MaxAttempts,
			job.LastError,
			job.AvailableAt,
			job.CreatedAt,
			job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ClaimNext atomically claims up to limit ready jobs.
// SELECT ... FOR UPDATE SKIP LOCKED guarantees each job goes to exactly
// one worker even with concurrent claimers.
func (q *Queue) ClaimNext(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	if limit <= 0 {
		limit = 1
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	selectQuery := `
		SELECT ` + jobColumns + `
		FROM embedding_jobs
		WHERE status = $1
		  AND available_at <= NOW()
		ORDER BY priority DESC, available_at ASC, created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.QueryContext(ctx, selectQuery, domain.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}

	var jobs []*domain.EmbeddingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	rows.Close()

	if len(jobs) == 0 {
		return nil, nil
	}

	now := time.Now()
	updateQuery := `
		UPDATE embedding_jobs
		SET status = $1, started_at = $2, updated_at = $3, attempts = attempts + 1
		WHERE id = $4
	`
	for _, job := range jobs {
		if _, err := tx.ExecContext(ctx, updateQuery,
			domain.JobStatusProcessing, now, now, job.ID); err != nil {
			return nil, fmt.Errorf("update job status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	for _, job := range jobs {
		job.Status = domain.JobStatusProcessing
		job.StartedAt = &now
		job.UpdatedAt = now
		job.Attempts++
	}
	return jobs, nil
}

// MarkCompleted acknowledges successful completion of a job
func (q *Queue) MarkCompleted(ctx context.Context, jobID string) error {
	now := time.Now()
	result, err := q.db.ExecContext(ctx, `
		UPDATE embedding_jobs
		SET status = $1, completed_at = $2, updated_at = $3, last_error = ''
		WHERE id = $4
	`, domain.JobStatusCompleted, now, now, jobID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records a failure, scheduling a retry when the budget allows.
// The retry decision and the exponential backoff (1s << attempts, capped
// at 5m) are computed in the UPDATE itself, so the attempt budget is
// checked against the row's current state in one statement.
func (q *Queue) MarkFailed(ctx context.Context, jobID string, reason string, retry bool) error {
	now := time.Now()

	result, err := q.db.ExecContext(ctx, `
		UPDATE embedding_jobs
		SET status = CASE WHEN $1::boolean AND attempts < max_attempts THEN $2 ELSE $3 END,
		    available_at = CASE WHEN $1::boolean AND attempts < max_attempts
		        THEN $4::timestamptz + make_interval(secs => LEAST(power(2, attempts), 300))
		        ELSE available_at END,
		    last_error = $5,
		    updated_at = $4
		WHERE id = $6
	`, retry, domain.JobStatusPending, domain.JobStatusFailed, now, reason, jobID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*domain.EmbeddingJob, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM embedding_jobs WHERE id = $1`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

// ListJobs retrieves jobs matching the filter
func (q *Queue) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.EmbeddingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM embedding_jobs WHERE 1=1`
	var args []any

	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		query += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.EmbeddingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// PurgeCompleted removes completed jobs older than the retention window
func (q *Queue) PurgeCompleted(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := q.db.ExecContext(ctx, `
		DELETE FROM embedding_jobs
		WHERE status = $1
		  AND completed_at < $2
	`, domain.JobStatusCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(rows), nil
}

// Stats returns queue statistics
func (q *Queue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	stats := &domain.QueueStats{}

	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM embedding_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		switch domain.JobStatus(status) {
		case domain.JobStatusPending:
			stats.PendingCount = count
		case domain.JobStatusProcessing:
			stats.ProcessingCount = count
		case domain.JobStatusCompleted:
			stats.CompletedCount = count
		case domain.JobStatusFailed:
			stats.FailedCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}

	var age sql.NullInt64
	err = q.db.QueryRowContext(ctx, `
		SELECT EXTRACT(EPOCH FROM (NOW() - MIN(created_at)))::bigint
		FROM embedding_jobs
		WHERE status = $1
	`, domain.JobStatusPending).Scan(&age)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query oldest age: %w", err)
	}
	if age.Valid {
		stats.OldestPendingAge = age.Int64
	}

	return stats, nil
}

// Ping checks database connectivity
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op for the Postgres queue (db connection managed externally)
func (q *Queue) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.EmbeddingJob, error) {
	job := &domain.EmbeddingJob{}
	var payload []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&payload,
		&job.Status,
		&job.Priority,
		&job.Attempts,
		&job.MaxAttempts,
		&job.LastError,
		&job.AvailableAt,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}
