// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/database"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/metrics"
	"github.com/dumtruck/konobangu/internal/models"
	"github.com/dumtruck/konobangu/internal/task"
)

// notifyChannel is the Postgres NOTIFY channel name emitted by
// notify_cron_due()/check_and_trigger_due_crons() (see
// internal/database/migrations/0004_triggers_and_views.sql).
const notifyChannel = "cron_due_event"

// cronRetryDefault is the fallback poll cadence when TaskConfig.CronRetryDuration
// is left unset, matching domain.DefaultTaskConfig.
const cronRetryDefault = 5 * time.Second

// retryAfter is the fixed delay applied to a failed cron execution that
// still has attempts remaining (spec.md section 4.I step 3).
const retryAfter = 5 * time.Second

// Engine is the one in-memory scheduler instance per process (spec.md
// section 4.I: "One in-memory scheduler").
type Engine struct {
	db       *database.DB
	store    *models.Store
	queue    *task.Queue
	workerID string
	poll     time.Duration
	metrics  *metrics.Collector
}

// New builds an Engine. pollInterval should be domain.TaskConfig.CronRetryDuration
// (defaulting to 5s when zero). collector may be nil, in which case metrics
// are skipped.
func New(db *database.DB, store *models.Store, queue *task.Queue, workerID string, pollInterval time.Duration, collector *metrics.Collector) *Engine {
	if pollInterval <= 0 {
		pollInterval = cronRetryDefault
	}
	return &Engine{db: db, store: store, queue: queue, workerID: workerID, poll: pollInterval, metrics: collector}
}

// Run subscribes to notifyChannel and runs the poll-fallback ticker until
// ctx is canceled. Both loops run under one errgroup so a fatal listener
// error (e.g. connection loss) tears the other down too, rather than
// leaving a half-alive scheduler.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.listenLoop(gctx) })
	g.Go(func() error { return e.pollLoop(gctx) })
	return g.Wait()
}

func (e *Engine) listenLoop(ctx context.Context) error {
	conn, err := e.db.AcquireListenerConn(ctx)
	if err != nil {
		return apperrors.New("cron.listenLoop", apperrors.KindInternal, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return apperrors.New("cron.listenLoop", apperrors.KindInternal, err)
	}
	log.Info().Str("channel", notifyChannel).Msg("cron: listening")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return apperrors.New("cron.listenLoop", apperrors.KindTransport, err)
		}

		var row struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal([]byte(notification.Payload), &row); err != nil {
			log.Error().Err(err).Msg("cron: malformed notification payload")
			continue
		}
		e.handle(ctx, row.ID)
	}
}

func (e *Engine) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if _, err := e.db.Writer().Exec(ctx, `SELECT check_and_trigger_due_crons()`); err != nil {
			log.Error().Err(err).Msg("cron: poll fallback failed")
		}
	}
}

// handle implements spec.md section 4.I steps 1-3 for one candidate cron id.
// A nil cron (no error) means TryAcquire found the row no longer eligible —
// a stale or duplicate notification, expected and harmless.
func (e *Engine) handle(ctx context.Context, id int) {
	now := time.Now()
	tx, c, err := e.store.CronStore().TryAcquire(ctx, id, e.workerID, now)
	if err != nil {
		log.Error().Err(err).Int("cronId", id).Msg("cron: acquire failed")
		return
	}
	if c == nil {
		return
	}
	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Int("cronId", id).Msg("cron: commit acquire failed")
		return
	}

	dispatchStart := time.Now()
	dispatchErr := e.dispatch(ctx, c)
	if e.metrics != nil {
		e.metrics.CronDuration.Observe(time.Since(dispatchStart).Seconds())
	}

	if dispatchErr != nil {
		log.Error().Err(dispatchErr).Int("cronId", id).Msg("cron: dispatch failed")
		failNextRun, nextErr := nextAfter(c.CronExpr, time.Now())
		if nextErr != nil {
			failNextRun = time.Now().Add(retryAfter)
		}
		if err := e.store.CronStore().MarkFailed(ctx, id, time.Now(), retryAfter, failNextRun, dispatchErr.Error()); err != nil {
			log.Error().Err(err).Int("cronId", id).Msg("cron: mark failed errored")
		}
		if e.metrics != nil {
			e.metrics.CronExecutions.WithLabelValues("failed").Inc()
		}
		return
	}

	nextRun, err := nextAfter(c.CronExpr, time.Now())
	if err != nil {
		log.Error().Err(err).Int("cronId", id).Str("cronExpr", c.CronExpr).Msg("cron: next_after failed")
		nextRun = time.Now().Add(e.poll)
	}
	if err := e.store.CronStore().MarkCompleted(ctx, id, time.Now(), nextRun); err != nil {
		log.Error().Err(err).Int("cronId", id).Msg("cron: mark completed errored")
	}
	if e.metrics != nil {
		e.metrics.CronExecutions.WithLabelValues("completed").Inc()
	}
}

// dispatch implements spec.md section 4.I's "Dispatch currently supports
// CronSource::Subscription, which enqueues the subscription's default
// task" — the default task being an incremental feed sync.
func (e *Engine) dispatch(ctx context.Context, c *domain.Cron) error {
	switch c.CronSource {
	case domain.CronSourceSubscription:
		if c.SubscriberID == nil || c.SubscriptionID == nil {
			return apperrors.New("cron.dispatch", apperrors.KindFormat,
				fmt.Errorf("subscription cron %d missing subscriber/subscription id", c.ID))
		}
		cronID := c.ID
		_, err := e.queue.AddSubscriberTask(ctx, *c.SubscriberID, domain.SubscriberTaskPayload{
			TaskType:       domain.SubscriberTaskSyncFeedsIncremental,
			SubscriberID:   *c.SubscriberID,
			SubscriptionID: *c.SubscriptionID,
			CronID:         &cronID,
		})
		return err
	default:
		return apperrors.New("cron.dispatch", apperrors.KindFormat,
			fmt.Errorf("unknown cron source %q", c.CronSource))
	}
}
