// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package domain

import (
	"encoding/json"
	"time"
)

// TaskStatus is the apalis_jobs lifecycle state (spec.md section 4.H).
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "Pending"
	TaskStatusRunning TaskStatus = "Running"
	TaskStatusDone    TaskStatus = "Done"
	TaskStatusFailed  TaskStatus = "Failed"
	TaskStatusKilled  TaskStatus = "Killed"
)

// JobStream tags which of the two logical streams a row belongs to; the
// database views subscriber_tasks/system_tasks filter on this exact string.
type JobStream string

const (
	JobStreamSubscriberTask JobStream = "subscriber_task"
	JobStreamSystemTask     JobStream = "system_task"
)

// SubscriberTaskType enumerates the SubscriberTask discriminated-union
// variants (spec.md section 4.H).
type SubscriberTaskType string

const (
	SubscriberTaskSyncFeedsIncremental SubscriberTaskType = "SyncOneSubscriptionFeedsIncremental"
	SubscriberTaskSyncFeedsFull        SubscriberTaskType = "SyncOneSubscriptionFeedsFull"
	SubscriberTaskSyncSources          SubscriberTaskType = "SyncOneSubscriptionSources"
)

// SystemTaskType enumerates the SystemTask discriminated-union variants.
type SystemTaskType string

const SystemTaskOptimizeImage SystemTaskType = "OptimizeImage"

// SubscriberTaskPayload is the JSON body stored in apalis_jobs.job for any
// subscriber-scoped task. TaskType selects which verb the handler dispatches
// to; CronID is set when the task was enqueued by the cron engine.
type SubscriberTaskPayload struct {
	TaskType       SubscriberTaskType `json:"task_type"`
	SubscriberID   int                `json:"subscriber_id"`
	SubscriptionID int                `json:"subscription_id"`
	CronID         *int               `json:"cron_id,omitempty"`
}

// OptimizeImageOptions configures the image re-encode performed by the
// OptimizeImage system task (spec.md section 4.K expansion).
type OptimizeImageOptions struct {
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
	Format     string `json:"format"`
	Quality    int    `json:"quality,omitempty"`
}

// SystemTaskPayload is the JSON body stored in apalis_jobs.job for an
// admin-scoped task.
type SystemTaskPayload struct {
	TaskType     SystemTaskType        `json:"task_type"`
	SubscriberID *int                  `json:"subscriber_id,omitempty"`
	CronID       *int                  `json:"cron_id,omitempty"`
	OptimizeImage *OptimizeImageOptions `json:"optimize_image,omitempty"`
}

// Task is the physical apalis_jobs row, independent of which payload type it
// carries.
type Task struct {
	ID             string          `json:"id" db:"id"`
	Job            json.RawMessage `json:"job" db:"job"`
	JobType        JobStream       `json:"jobType" db:"job_type"`
	Status         TaskStatus      `json:"status" db:"status"`
	Attempts       int             `json:"attempts" db:"attempts"`
	MaxAttempts    int             `json:"maxAttempts" db:"max_attempts"`
	RunAt          time.Time       `json:"runAt" db:"run_at"`
	LastError      *string         `json:"lastError" db:"last_error"`
	Result         json.RawMessage `json:"result" db:"result"`
	Error          json.RawMessage `json:"error" db:"error"`
	LockAt         *time.Time      `json:"lockAt" db:"lock_at"`
	LockBy         *string         `json:"lockBy" db:"lock_by"`
	DoneAt         *time.Time      `json:"doneAt" db:"done_at"`
	Priority       int             `json:"priority" db:"priority"`
	SubscriberID   *int            `json:"subscriberId" db:"subscriber_id"`
	SubscriptionID *int            `json:"subscriptionId" db:"subscription_id"`
	TaskType       *string         `json:"taskType" db:"task_type"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsEligible implements spec.md section 3 invariant 5: a task is eligible
// iff pending, under its attempt budget, due, and not currently leased.
func (t *Task) IsEligible(now time.Time) bool {
	if t.Status != TaskStatusPending {
		return false
	}
	if t.Attempts >= t.MaxAttempts {
		return false
	}
	if t.RunAt.After(now) {
		return false
	}
	if t.LockAt != nil && t.LockAt.After(now) {
		return false
	}
	return true
}

// CronSource identifies what a Cron row dispatches.
type CronSource string

const CronSourceSubscription CronSource = "Subscription"

// CronStatus is the Cron row's own lifecycle, distinct from TaskStatus.
type CronStatus string

const (
	CronStatusPending   CronStatus = "Pending"
	CronStatusRunning   CronStatus = "Running"
	CronStatusCompleted CronStatus = "Completed"
	CronStatusFailed    CronStatus = "Failed"
)

// Cron is one scheduled recurring dispatch (spec.md section 3/4.I).
type Cron struct {
	ID             int        `json:"id" db:"id"`
	CronSource     CronSource `json:"cronSource" db:"cron_source"`
	SubscriberID   *int       `json:"subscriberId" db:"subscriber_id"`
	SubscriptionID *int       `json:"subscriptionId" db:"subscription_id"`
	CronExpr       string     `json:"cronExpr" db:"cron_expr"`
	NextRun        *time.Time `json:"nextRun" db:"next_run"`
	LastRun        *time.Time `json:"lastRun" db:"last_run"`
	LastError      *string    `json:"lastError" db:"last_error"`
	LockedBy       *string    `json:"lockedBy" db:"locked_by"`
	LockedAt       *time.Time `json:"lockedAt" db:"locked_at"`
	TimeoutMs      int        `json:"timeoutMs" db:"timeout_ms"`
	Attempts       int        `json:"attempts" db:"attempts"`
	MaxAttempts    int        `json:"maxAttempts" db:"max_attempts"`
	Priority       int        `json:"priority" db:"priority"`
	Status         CronStatus `json:"status" db:"status"`
	Enabled        bool       `json:"enabled" db:"enabled"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsEligible implements the cron eligibility predicate of spec.md section
// 4.I step 2.
func (c *Cron) IsEligible(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	if c.Status != CronStatusPending {
		return false
	}
	if c.Attempts >= c.MaxAttempts {
		return false
	}
	if c.NextRun == nil || c.NextRun.After(now) {
		return false
	}
	if c.LockedAt != nil {
		leaseExpiry := c.LockedAt.Add(time.Duration(c.TimeoutMs) * time.Millisecond)
		if leaseExpiry.After(now) {
			return false
		}
	}
	return true
}
