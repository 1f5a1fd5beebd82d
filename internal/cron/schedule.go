// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package cron implements the database-driven scheduler of spec.md section
// 4.I: a LISTEN/NOTIFY consumer with a polling fallback, dispatching due
// cron rows through models.CronStore's lease/transition methods. Grounded on
// original_source/apps/recorder/src/models/cron/mod.rs
// (handle_cron_notification, try_acquire_lock_with_cron_id,
// mark_cron_completed/mark_cron_failed), reimplemented with
// github.com/jackc/pgx/v5's native LISTEN support in place of any ORM event
// hook.
package cron

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dumtruck/konobangu/internal/apperrors"
)

// sixFieldParser understands the standard 6-field form (seconds through
// day-of-week) that github.com/robfig/cron/v3 natively supports.
var sixFieldParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// maxYearScan bounds how many successive occurrences nextAfter will walk
// past while searching for one matching an explicit year field, so a
// cron_expr naming an already-past year fails fast instead of looping
// forever.
const maxYearScan = 200

// nextAfter computes the next strictly-later occurrence of a cron
// expression after `after`, implementing spec.md section 4.I's
// "next_after(now) is deterministic and strictly monotonic" over the
// 7-field seconds-through-year form. robfig/cron/v3 has no year field, so a
// trailing year (or year list/range/step, same syntax as every other field)
// is parsed separately and occurrences are walked forward until one falls in
// an allowed year.
func nextAfter(exprStr string, after time.Time) (time.Time, error) {
	fields := strings.Fields(exprStr)
	base := exprStr
	var yearField string
	if len(fields) == 7 {
		base = strings.Join(fields[:6], " ")
		yearField = fields[6]
	}

	sched, err := sixFieldParser.Parse(base)
	if err != nil {
		return time.Time{}, apperrors.New("cron.nextAfter", apperrors.KindFormat, err)
	}

	t := after.UTC()
	for i := 0; i < maxYearScan; i++ {
		t = sched.Next(t)
		if yearField == "" || yearField == "*" || yearMatches(yearField, t.Year()) {
			return t, nil
		}
	}
	return time.Time{}, apperrors.New("cron.nextAfter", apperrors.KindFormat,
		apperrors.ErrNotFound)
}

// yearMatches implements the same comma/range/step grammar as the other
// cron fields, scoped to a bare year field.
func yearMatches(field string, year int) bool {
	for _, part := range strings.Split(field, ",") {
		step := 1
		rangePart := part
		hasStep := false
		if idx := strings.Index(part, "/"); idx >= 0 {
			hasStep = true
			rangePart = part[:idx]
			if n, err := strconv.Atoi(part[idx+1:]); err == nil && n > 0 {
				step = n
			}
		}

		var lo, hi int
		switch {
		case rangePart == "*":
			return true
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			lo, _ = strconv.Atoi(bounds[0])
			hi, _ = strconv.Atoi(bounds[1])
		default:
			n, err := strconv.Atoi(rangePart)
			if err != nil {
				continue
			}
			lo, hi = n, n
			if hasStep {
				// "N/step" starts at N and has no upper bound.
				hi = math.MaxInt
			}
		}

		if year < lo || year > hi {
			continue
		}
		if (year-lo)%step == 0 {
			return true
		}
	}
	return false
}
