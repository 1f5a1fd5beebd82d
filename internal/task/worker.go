// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/metrics"
	"github.com/dumtruck/konobangu/internal/models"
)

// pollInterval is how often an idle worker pool asks AcquireNext again when
// the queue was empty on the last poll.
const pollInterval = 2 * time.Second

// reclaimInterval is how often ReclaimExpiredLeases runs per stream.
const reclaimInterval = 30 * time.Second

// Pool runs one bounded-concurrency worker loop per job stream, polling
// TaskStore.AcquireNext and dispatching to the registered Handler (spec.md
// section 4.H "worker pool"). Concurrency and timeouts come from
// domain.TaskConfig, mirroring
// original_source/apps/recorder/src/task/config.rs's per-stream pool sizing.
type Pool struct {
	store    *models.Store
	cfg      domain.TaskConfig
	workerID string
	metrics  *metrics.Collector

	subscriberHandler Handler
	systemHandler     Handler
}

// NewPool builds a Pool. workerID identifies this process's lease holder
// (lock_by column) and should be stable per running instance. collector may
// be nil, in which case metrics are skipped.
func NewPool(store *models.Store, cfg domain.TaskConfig, workerID string, collector *metrics.Collector, subscriberHandler, systemHandler Handler) *Pool {
	return &Pool{
		store:             store,
		cfg:               cfg,
		workerID:          workerID,
		metrics:           collector,
		subscriberHandler: subscriberHandler,
		systemHandler:     systemHandler,
	}
}

// Run blocks until ctx is canceled, running both stream loops and their
// lease-reclaim tickers concurrently.
func (p *Pool) Run(ctx context.Context) error {
	subConcurrency := resolveConcurrency(p.cfg.SubscriberTaskConcurrency)
	sysConcurrency := resolveConcurrency(p.cfg.SystemTaskConcurrency)

	done := make(chan struct{}, 4)
	go func() { p.runStream(ctx, domain.JobStreamSubscriberTask, subConcurrency, p.cfg.SubscriberTaskTimeout, p.subscriberHandler); done <- struct{}{} }()
	go func() { p.runStream(ctx, domain.JobStreamSystemTask, sysConcurrency, p.cfg.SystemTaskTimeout, p.systemHandler); done <- struct{}{} }()
	go func() { p.runReclaimLoop(ctx, domain.JobStreamSubscriberTask, p.cfg.SubscriberTaskTimeout); done <- struct{}{} }()
	go func() { p.runReclaimLoop(ctx, domain.JobStreamSystemTask, p.cfg.SystemTaskTimeout); done <- struct{}{} }()

	<-ctx.Done()
	for i := 0; i < 4; i++ {
		<-done
	}
	return ctx.Err()
}

// resolveConcurrency mirrors config.rs's max(physical_cpus/2, 1) default
// when the operator leaves concurrency unset (spec.md section 4.H).
func resolveConcurrency(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// runStream polls AcquireNext for one stream and fans work out across a
// semaphore-bounded set of goroutines.
func (p *Pool) runStream(ctx context.Context, stream domain.JobStream, concurrency int, timeout time.Duration, handler Handler) {
	sem := make(chan struct{}, concurrency)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.drainOnce(ctx, stream, sem, timeout, handler)
	}
}

// drainOnce acquires and dispatches tasks until either the stream is empty
// or every semaphore slot is occupied, then returns control to the poll
// ticker rather than busy-looping.
func (p *Pool) drainOnce(ctx context.Context, stream domain.JobStream, sem chan struct{}, timeout time.Duration, handler Handler) {
	for {
		select {
		case sem <- struct{}{}:
		default:
			// Pool saturated; wait for the next tick rather than piling
			// up acquisitions no goroutine is free to run.
			return
		}

		t, err := p.store.TaskStore().AcquireNext(ctx, stream, p.workerID, time.Now())
		if err != nil {
			log.Error().Err(err).Str("stream", string(stream)).Msg("task: acquire failed")
			<-sem
			return
		}
		if t == nil {
			<-sem
			return
		}

		if p.metrics != nil {
			p.metrics.ActiveTasks.WithLabelValues(string(stream)).Inc()
		}
		go func(t *domain.Task) {
			defer func() {
				<-sem
				if p.metrics != nil {
					p.metrics.ActiveTasks.WithLabelValues(string(stream)).Dec()
				}
			}()
			p.execute(ctx, stream, t, timeout, handler)
		}(t)
	}
}

// execute runs handler against a task with a timeout and panic recovery
// (spec.md section 7.7), then transitions the row to Done or
// Pending/Failed.
func (p *Pool) execute(ctx context.Context, stream domain.JobStream, t *domain.Task, timeout time.Duration, handler Handler) {
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	result, err := p.runHandler(taskCtx, t, handler)
	now := time.Now()
	if p.metrics != nil {
		p.metrics.TaskDuration.WithLabelValues(string(stream)).Observe(now.Sub(started).Seconds())
	}
	if err != nil {
		log.Error().Err(err).Str("taskId", t.ID).Str("jobType", string(t.JobType)).Msg("task: handler failed")
		runAt := now.Add(computeBackoff(t.Attempts))
		if markErr := p.store.TaskStore().MarkRetryOrFailed(ctx, t.ID, runAt, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("taskId", t.ID).Msg("task: failed to record handler error")
		}
		if p.metrics != nil {
			p.metrics.TasksProcessed.WithLabelValues(string(stream), "error").Inc()
		}
		return
	}
	if markErr := p.store.TaskStore().MarkDone(ctx, t.ID, now, result); markErr != nil {
		log.Error().Err(markErr).Str("taskId", t.ID).Msg("task: failed to record completion")
	}
	if p.metrics != nil {
		p.metrics.TasksProcessed.WithLabelValues(string(stream), "done").Inc()
	}
}

// runHandler isolates a handler panic into an error so one bad task can
// never take the whole worker goroutine down with it.
func (p *Pool) runHandler(ctx context.Context, t *domain.Task, handler Handler) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return handler(ctx, t)
}

func (p *Pool) runReclaimLoop(ctx context.Context, stream domain.JobStream, timeout time.Duration) {
	ticker := time.NewTicker(reclaimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := p.store.TaskStore().ReclaimExpiredLeases(ctx, stream, timeout, time.Now())
		if err != nil {
			log.Error().Err(err).Str("stream", string(stream)).Msg("task: reclaim failed")
			continue
		}
		if n > 0 {
			log.Warn().Int("count", n).Str("stream", string(stream)).Msg("task: reclaimed expired leases")
		}
	}
}
