// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package hashutil canonicalizes torrent info hashes (magnet xt values,
// bencode-derived sha1 sums) so the same torrent is recognized regardless of
// the case or whitespace a tracker or client happened to emit it with
// (spec.md section 4.F).
package hashutil

import (
	"strings"
	"unique"
)

// Normalize canonicalizes a torrent hash to lowercase, trimming whitespace.
// Returns an empty string if the input is blank. The result is interned via
// Go's unique package since the same handful of hashes gets compared
// repeatedly across a downloader's lifetime (selector reduction, dedup
// against already-downloaded episodes).
func Normalize(hash string) string {
	trimmed := strings.ToLower(strings.TrimSpace(hash))
	if trimmed == "" {
		return ""
	}
	return unique.Make(trimmed).Value()
}

// NormalizeUpper canonicalizes a torrent hash to uppercase, trimming
// whitespace. qBittorrent's Web API and rqbit both accept and return info
// hashes uppercased, so downloader backends canonicalize to this form
// rather than Normalize's lowercase.
func NormalizeUpper(hash string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(hash))
	if trimmed == "" {
		return ""
	}
	return unique.Make(trimmed).Value()
}
