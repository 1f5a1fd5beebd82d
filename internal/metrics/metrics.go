// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus counters/histograms for task throughput
// and cron execution latency (spec.md section 6 ambient concern), following
// the teacher's declared github.com/prometheus/client_golang dependency
// (no collector source survived retrieval from autobrr-qui; this is a
// standard registry built the idiomatic way for that exact library).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the recorder emits.
type Collector struct {
	registry *prometheus.Registry

	TasksProcessed  *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec
	CronExecutions  *prometheus.CounterVec
	CronDuration    prometheus.Histogram
	ActiveTasks     *prometheus.GaugeVec
}

// New builds a Collector registered on a fresh, unexported registry (not
// the global default), so tests can construct independent instances.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "konobangu",
			Subsystem: "task",
			Name:      "processed_total",
			Help:      "Total tasks processed by stream and terminal outcome.",
		}, []string{"stream", "outcome"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "konobangu",
			Subsystem: "task",
			Name:      "duration_seconds",
			Help:      "Task handler execution latency by stream.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stream"}),
		CronExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "konobangu",
			Subsystem: "cron",
			Name:      "executions_total",
			Help:      "Total cron row executions by terminal outcome.",
		}, []string{"outcome"}),
		CronDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "konobangu",
			Subsystem: "cron",
			Name:      "dispatch_duration_seconds",
			Help:      "Time from cron acquisition to dispatch completion.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveTasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "konobangu",
			Subsystem: "task",
			Name:      "active",
			Help:      "Currently executing tasks by stream.",
		}, []string{"stream"}),
	}
}

// Handler returns the /metrics HTTP handler for this Collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
