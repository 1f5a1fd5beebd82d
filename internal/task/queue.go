// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package task implements the durable task queue and worker pool of spec.md
// section 4.H: two logical streams (subscriber_task, system_task) over the
// apalis_jobs table, bounded-concurrency worker pools, retry/backoff and
// lease reclaim. Grounded on
// original_source/apps/recorder/src/task/core.rs (run/run_async
// error-snapshot pattern) and
// original_source/apps/recorder/src/task/config.rs (concurrency/timeout
// defaults).
package task

import (
	"context"
	"time"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/models"
)

// Queue is the enqueue-side API the rest of the system sees (spec.md
// section 4.H "Enqueue API").
type Queue struct {
	store *models.Store
}

// NewQueue builds a Queue over the given model store.
func NewQueue(store *models.Store) *Queue {
	return &Queue{store: store}
}

// AddSubscriberTask validates that the payload's subscriber matches
// activeSubscriberID and inserts a subscriber_task row.
func (q *Queue) AddSubscriberTask(ctx context.Context, activeSubscriberID int, payload domain.SubscriberTaskPayload) (string, error) {
	if payload.SubscriberID != activeSubscriberID {
		return "", apperrors.New("Queue.AddSubscriberTask", apperrors.KindAuth, apperrors.ErrSubscriberMismatch)
	}
	t, err := q.store.TaskStore().Insert(ctx, domain.JobStreamSubscriberTask, payload, 0, time.Now())
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// AddSystemTask inserts a system_task row. Callers are expected to have
// already enforced admin-only access at the boundary layer (spec.md section
// 4.H: "admin-only").
func (q *Queue) AddSystemTask(ctx context.Context, payload domain.SystemTaskPayload) (string, error) {
	t, err := q.store.TaskStore().Insert(ctx, domain.JobStreamSystemTask, payload, 0, time.Now())
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// RetrySubscriberTask reschedules a terminal subscriber_task row.
func (q *Queue) RetrySubscriberTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return q.store.TaskStore().Retry(ctx, taskID, time.Now())
}

// RetrySystemTask reschedules a terminal system_task row.
func (q *Queue) RetrySystemTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return q.store.TaskStore().Retry(ctx, taskID, time.Now())
}
