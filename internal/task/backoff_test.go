// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeBackoffGrowsExponentially(t *testing.T) {
	// 20% jitter on each side means adjacent attempt bands can still overlap
	// near the boundary, so compare against the undoubled base with margin
	// rather than asserting strict ordering between every successive call.
	one := computeBackoff(1)
	assert.GreaterOrEqual(t, one, backoffBase*8/10)
	assert.LessOrEqual(t, one, backoffBase*12/10)

	three := computeBackoff(3)
	assert.GreaterOrEqual(t, three, backoffBase*4*8/10)
	assert.LessOrEqual(t, three, backoffBase*4*12/10)
}

func TestComputeBackoffCapped(t *testing.T) {
	d := computeBackoff(100)
	assert.LessOrEqual(t, d, backoffCap*12/10)
	assert.GreaterOrEqual(t, d, backoffCap*8/10)
}

func TestComputeBackoffClampsLowAttempts(t *testing.T) {
	zero := computeBackoff(0)
	one := computeBackoff(1)
	assert.InDelta(t, float64(backoffBase), float64(zero), float64(backoffBase)*0.25)
	assert.InDelta(t, float64(backoffBase), float64(one), float64(backoffBase)*0.25)
}

func TestComputeBackoffNeverNegativeOrZero(t *testing.T) {
	for attempts := 1; attempts <= 20; attempts++ {
		d := computeBackoff(attempts)
		assert.Greater(t, d, time.Duration(0))
	}
}
