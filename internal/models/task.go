// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/crypto"
	"github.com/dumtruck/konobangu/internal/domain"
)

// TaskStore is the repository for the apalis_jobs table (spec.md section
// 3/4.H). The promoted subscriber_id/subscription_id/task_type columns are
// never written directly here; they are derived by the promote_task_columns
// trigger from the job JSON on every insert/update.
type TaskStore struct{ *Store }

const taskColumns = `id, job, job_type, status, attempts, max_attempts, run_at, last_error, "result", error,
	lock_at, lock_by, done_at, priority, subscriber_id, subscription_id, task_type, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	t := &domain.Task{}
	err := row.Scan(&t.ID, &t.Job, &t.JobType, &t.Status, &t.Attempts, &t.MaxAttempts, &t.RunAt, &t.LastError,
		&t.Result, &t.Error, &t.LockAt, &t.LockBy, &t.DoneAt, &t.Priority, &t.SubscriberID, &t.SubscriptionID,
		&t.TaskType, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("TaskStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("TaskStore.scan", apperrors.KindInternal, err)
	}
	return t, nil
}

// Insert writes a new task row. jobType selects the subscriber_task or
// system_task stream; job is marshaled to JSON and its subscriber_id/
// subscription_id/task_type fields are promoted by the database trigger.
// The id is a nanoid, matching the opaque task-id contract of spec.md
// section 3 ("task IDs (opaque strings chosen by the queue)").
func (s *TaskStore) Insert(ctx context.Context, jobType domain.JobStream, job any, priority int, runAt time.Time) (*domain.Task, error) {
	id, err := crypto.GenerateNanoID(20)
	if err != nil {
		return nil, apperrors.New("TaskStore.Insert", apperrors.KindInternal, err)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, apperrors.New("TaskStore.Insert", apperrors.KindInternal, err)
	}

	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO apalis_jobs (id, job, job_type, priority, run_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns, id, payload, jobType, priority, runAt)
	return scanTask(row)
}

// GetByID loads a task row by its opaque id.
func (s *TaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM apalis_jobs WHERE id = $1`, id)
	return scanTask(row)
}

// AcquireNext implements spec.md section 4.H's acquisition rule: select the
// oldest eligible row of jobType in (priority desc, run_at asc, id asc)
// order, row-lock it with FOR UPDATE SKIP LOCKED (so concurrent workers
// never block on each other), and mark it Running with an incremented
// attempt count and a fresh lease. Returns (nil, nil) when no row is
// eligible, never an error — callers poll and should not treat an empty
// queue as exceptional.
func (s *TaskStore) AcquireNext(ctx context.Context, jobType domain.JobStream, workerID string, now time.Time) (*domain.Task, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.New("TaskStore.AcquireNext", apperrors.KindInternal, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id FROM apalis_jobs
		WHERE job_type = $1
		  AND status = 'Pending'
		  AND attempts < max_attempts
		  AND run_at <= $2
		  AND (lock_at IS NULL OR lock_at <= $2)
		ORDER BY priority DESC, run_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, jobType, now)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.New("TaskStore.AcquireNext", apperrors.KindInternal, err)
	}

	updated := tx.QueryRow(ctx, `
		UPDATE apalis_jobs SET
			status = 'Running',
			lock_by = $2,
			lock_at = $3,
			attempts = attempts + 1
		WHERE id = $1
		RETURNING `+taskColumns, id, workerID, now)
	task, err := scanTask(updated)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.New("TaskStore.AcquireNext", apperrors.KindInternal, err)
	}
	return task, nil
}

// MarkDone transitions a Running task to Done, recording doneAt and an
// optional JSON result payload.
func (s *TaskStore) MarkDone(ctx context.Context, id string, now time.Time, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return apperrors.New("TaskStore.MarkDone", apperrors.KindInternal, err)
	}
	_, err = s.db.Writer().Exec(ctx, `
		UPDATE apalis_jobs SET status = 'Done', done_at = $2, "result" = $3, last_error = NULL
		WHERE id = $1`, id, now, payload)
	if err != nil {
		return apperrors.New("TaskStore.MarkDone", apperrors.KindInternal, err)
	}
	return nil
}

// MarkRetryOrFailed implements the handler-error branch of spec.md section
// 4.H's lifecycle: if the task's attempts (already incremented by
// AcquireNext) are still under max_attempts, reschedule it to Pending at
// runAt (the caller supplies the backoff-computed time); otherwise mark it
// terminally Failed.
func (s *TaskStore) MarkRetryOrFailed(ctx context.Context, id string, runAt time.Time, lastErr string) error {
	_, err := s.db.Writer().Exec(ctx, `
		UPDATE apalis_jobs SET
			status = CASE WHEN attempts < max_attempts THEN 'Pending' ELSE 'Failed' END,
			run_at = CASE WHEN attempts < max_attempts THEN $2 ELSE run_at END,
			lock_by = NULL,
			lock_at = NULL,
			last_error = $3
		WHERE id = $1`, id, runAt, lastErr)
	if err != nil {
		return apperrors.New("TaskStore.MarkRetryOrFailed", apperrors.KindInternal, err)
	}
	return nil
}

// Retry reschedules a terminal (Done/Failed/Killed) task row back to
// Pending with attempts reset, implementing retry_subscriber_task /
// retry_system_task (spec.md section 4.H enqueue API).
func (s *TaskStore) Retry(ctx context.Context, id string, now time.Time) (*domain.Task, error) {
	row := s.db.Writer().QueryRow(ctx, `
		UPDATE apalis_jobs SET
			status = 'Pending',
			attempts = 0,
			run_at = $2,
			lock_by = NULL,
			lock_at = NULL,
			done_at = NULL,
			last_error = NULL
		WHERE id = $1 AND status IN ('Done', 'Failed', 'Killed')
		RETURNING `+taskColumns, id, now)
	return scanTask(row)
}

// ListByStream returns tasks from one logical stream (subscriber_tasks or
// system_tasks), most recent first, for the task-history surfaces exposed
// over GraphQL.
func (s *TaskStore) ListByStream(ctx context.Context, jobType domain.JobStream, subscriberID *int, limit int) ([]*domain.Task, error) {
	var rows pgx.Rows
	var err error
	if subscriberID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+taskColumns+` FROM apalis_jobs
			WHERE job_type = $1 AND subscriber_id = $2
			ORDER BY created_at DESC LIMIT $3`, jobType, *subscriberID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+taskColumns+` FROM apalis_jobs
			WHERE job_type = $1
			ORDER BY created_at DESC LIMIT $2`, jobType, limit)
	}
	if err != nil {
		return nil, apperrors.New("TaskStore.ListByStream", apperrors.KindInternal, err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReclaimExpiredLeases resets any Running row whose lease has expired back
// to Pending, matching spec.md section 4.H's timeout branch ("timeout →
// (lease expired) Pending (reclaimable)"). timeout is the configured
// subscriber_task_timeout or system_task_timeout.
func (s *TaskStore) ReclaimExpiredLeases(ctx context.Context, jobType domain.JobStream, timeout time.Duration, now time.Time) (int, error) {
	tag, err := s.db.Writer().Exec(ctx, `
		UPDATE apalis_jobs SET status = 'Pending', lock_by = NULL, lock_at = NULL
		WHERE job_type = $1 AND status = 'Running' AND lock_at IS NOT NULL AND lock_at + ($2 || ' milliseconds')::interval <= $3`,
		jobType, timeout.Milliseconds(), now)
	if err != nil {
		return 0, apperrors.New("TaskStore.ReclaimExpiredLeases", apperrors.KindInternal, err)
	}
	return int(tag.RowsAffected()), nil
}
