// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package models

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/database"
	"github.com/dumtruck/konobangu/internal/domain"
)

// CronStore is the repository for the cron table (spec.md section 3/4.I).
type CronStore struct{ *Store }

const cronColumns = `id, cron_source, subscriber_id, subscription_id, cron_expr, next_run, last_run, last_error,
	locked_by, locked_at, timeout_ms, attempts, max_attempts, priority, status, enabled, created_at, updated_at`

func scanCron(row pgx.Row) (*domain.Cron, error) {
	c := &domain.Cron{}
	err := row.Scan(&c.ID, &c.CronSource, &c.SubscriberID, &c.SubscriptionID, &c.CronExpr, &c.NextRun, &c.LastRun,
		&c.LastError, &c.LockedBy, &c.LockedAt, &c.TimeoutMs, &c.Attempts, &c.MaxAttempts, &c.Priority,
		&c.Status, &c.Enabled, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("CronStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("CronStore.scan", apperrors.KindInternal, err)
	}
	return c, nil
}

// GetByID loads a cron row.
func (s *CronStore) GetByID(ctx context.Context, id int) (*domain.Cron, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cronColumns+` FROM cron WHERE id = $1`, id)
	return scanCron(row)
}

// ListEnabled returns every enabled cron row, for admin/GraphQL listing.
func (s *CronStore) ListEnabled(ctx context.Context) ([]*domain.Cron, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cronColumns+` FROM cron WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, apperrors.New("CronStore.ListEnabled", apperrors.KindInternal, err)
	}
	defer rows.Close()
	var out []*domain.Cron
	for rows.Next() {
		c, err := scanCron(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a new cron row, due to fire at nextRun.
func (s *CronStore) Create(ctx context.Context, c domain.Cron) (*domain.Cron, error) {
	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO cron (cron_source, subscriber_id, subscription_id, cron_expr, next_run, timeout_ms, max_attempts, priority, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+cronColumns,
		c.CronSource, c.SubscriberID, c.SubscriptionID, c.CronExpr, c.NextRun, c.TimeoutMs, c.MaxAttempts, c.Priority, c.Enabled)
	return scanCron(row)
}

// TryAcquire implements spec.md section 4.I step 1-2: row-lock the cron
// (SELECT ... FOR UPDATE), re-check eligibility under the lock (the NOTIFY
// payload can be stale by the time this runs), and if still eligible mark it
// Running with a fresh lease, all inside tx. Returns (nil, nil) when the row
// is no longer eligible — not an error, since a duplicate/stale
// notification is expected and harmless per the trigger's comment.
// ported from original_source/apps/recorder/src/models/cron/mod.rs
// try_acquire_lock_with_cron_id.
func (s *CronStore) TryAcquire(ctx context.Context, id int, workerID string, now time.Time) (*database.Tx, *domain.Cron, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, nil, apperrors.New("CronStore.TryAcquire", apperrors.KindInternal, err)
	}

	row := tx.QueryRow(ctx, `SELECT `+cronColumns+` FROM cron WHERE id = $1 FOR UPDATE`, id)
	cron, err := scanCron(row)
	if err != nil {
		tx.Rollback(ctx)
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	if !cron.IsEligible(now) {
		tx.Rollback(ctx)
		return nil, nil, nil
	}

	updated := tx.QueryRow(ctx, `
		UPDATE cron SET status = 'Running', locked_by = $2, locked_at = $3, attempts = attempts + 1
		WHERE id = $1
		RETURNING `+cronColumns, id, workerID, now)
	cron, err = scanCron(updated)
	if err != nil {
		tx.Rollback(ctx)
		return nil, nil, err
	}

	// The transaction is left open for the caller to commit once dispatch
	// has been decided (handle_cron_notification commits before invoking the
	// bound action, since dispatch itself enqueues a task via a separate
	// connection/transaction).
	return tx, cron, nil
}

// MarkCompleted implements the success branch of spec.md section 4.I step 3:
// back to Pending, next_run advanced, attempts reset, last_error cleared.
func (s *CronStore) MarkCompleted(ctx context.Context, id int, now, nextRun time.Time) error {
	_, err := s.db.Writer().Exec(ctx, `
		UPDATE cron SET
			status = 'Pending',
			next_run = $3,
			attempts = 0,
			last_error = NULL,
			last_run = $2,
			locked_by = NULL,
			locked_at = NULL
		WHERE id = $1`, id, now, nextRun)
	if err != nil {
		return apperrors.New("CronStore.MarkCompleted", apperrors.KindInternal, err)
	}
	return nil
}

// MarkFailed implements the error branch of spec.md section 4.I step 3:
// retry after retryAfter if attempts remain, else terminal Failed with
// next_run set to failNextRun (the "post-expiry tick").
func (s *CronStore) MarkFailed(ctx context.Context, id int, now time.Time, retryAfter time.Duration, failNextRun time.Time, lastErr string) error {
	retryAt := now.Add(retryAfter)
	_, err := s.db.Writer().Exec(ctx, `
		UPDATE cron SET
			status = CASE WHEN attempts < max_attempts THEN 'Pending' ELSE 'Failed' END,
			next_run = CASE WHEN attempts < max_attempts THEN $2 ELSE $3 END,
			attempts = CASE WHEN attempts < max_attempts THEN attempts + 1 ELSE attempts END,
			last_error = $4,
			locked_by = NULL,
			locked_at = NULL
		WHERE id = $1`, id, retryAt, failNextRun, lastErr)
	if err != nil {
		return apperrors.New("CronStore.MarkFailed", apperrors.KindInternal, err)
	}
	return nil
}
