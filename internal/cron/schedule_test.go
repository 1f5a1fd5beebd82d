// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAfterEverySecond(t *testing.T) {
	after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, err := nextAfter("*/1 * * * * *", after)
	require.NoError(t, err)
	assert.True(t, next.After(after))
	assert.LessOrEqual(t, next.Sub(after), 2*time.Second)
}

func TestNextAfterStrictlyMonotonic(t *testing.T) {
	after := time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC)
	first, err := nextAfter("0 0 * * * *", after)
	require.NoError(t, err)
	second, err := nextAfter("0 0 * * * *", first)
	require.NoError(t, err)
	assert.True(t, second.After(first))
}

func TestNextAfterYearField(t *testing.T) {
	after := time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)
	next, err := nextAfter("0 0 0 1 1 * 2027", after)
	require.NoError(t, err)
	assert.Equal(t, 2027, next.Year())
	assert.Equal(t, time.January, next.Month())
	assert.Equal(t, 1, next.Day())
}

func TestNextAfterYearFieldExhausted(t *testing.T) {
	after := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := nextAfter("0 0 0 1 1 * 2026", after)
	assert.Error(t, err)
}

func TestYearMatches(t *testing.T) {
	assert.True(t, yearMatches("*", 2026))
	assert.True(t, yearMatches("2024-2028", 2026))
	assert.False(t, yearMatches("2024-2028", 2030))
	assert.True(t, yearMatches("2024,2026,2028", 2026))
	assert.False(t, yearMatches("2024,2026,2028", 2025))
	assert.True(t, yearMatches("2020/2", 2026))
	assert.False(t, yearMatches("2020/2", 2025))
}

func TestNextAfterInvalidExpr(t *testing.T) {
	_, err := nextAfter("not a cron expr", time.Now())
	assert.Error(t, err)
}
