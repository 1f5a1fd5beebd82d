// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package hashutil

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ABC123", "abc123"},
		{"  abc123  ", "abc123"},
		{"", ""},
		{"   ", ""},
		{"AbC123DeF", "abc123def"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeUpper(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc123", "ABC123"},
		{"  ABC123  ", "ABC123"},
		{"", ""},
		{"   ", ""},
		{"AbC123DeF", "ABC123DEF"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeUpper(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeUpper(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
