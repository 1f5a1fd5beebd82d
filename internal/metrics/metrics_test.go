// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorExposesRecordedMetrics(t *testing.T) {
	t.Parallel()

	c := New()
	c.TasksProcessed.WithLabelValues("subscriber_task", "done").Inc()
	c.TaskDuration.WithLabelValues("subscriber_task").Observe(0.5)
	c.CronExecutions.WithLabelValues("completed").Inc()
	c.CronDuration.Observe(0.1)
	c.ActiveTasks.WithLabelValues("system_task").Set(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "konobangu_task_processed_total"))
	assert.True(t, strings.Contains(body, "konobangu_cron_executions_total"))
	assert.True(t, strings.Contains(body, "konobangu_task_active"))
}
