// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package downloader implements the polymorphic torrent-downloader contract
// of spec.md section 4.F, grounded on
// original_source/apps/recorder/src/downloader/core.rs for the associated
// types and default selector-reduction and on the teacher's
// internal/qbittorrent/client.go for the qBittorrent backend's wrapping
// pattern.
package downloader

import (
	"context"
	"time"
)

// SimpleState is the internal, engine-agnostic download state every backend
// maps its own status vocabulary onto.
type SimpleState string

const (
	StateActive    SimpleState = "Active"
	StatePaused    SimpleState = "Paused"
	StateCompleted SimpleState = "Completed"
	StateError     SimpleState = "Error"
	StateUnknown   SimpleState = "Unknown"
)

// Task is one torrent as reported by a backend.
type Task struct {
	ID           string
	State        SimpleState
	Name         string
	DownloadedBytes *int64
	TotalBytes      *int64
	LeftBytes       *int64
	ETASeconds      *int64
	AverageSpeed    *int64
	Progress        *float64
}

// HashTorrentSource is either a magnet URL or raw .torrent file bytes, both
// carrying the canonical info-hash (section 4.F).
type HashTorrentSource struct {
	MagnetURL      string
	TorrentBytes   []byte
	TorrentName    string
	Hash           string
}

// Creation is the input to AddDownloads.
type Creation struct {
	SavePath string
	Tags     []string
	Category string
	Sources  []HashTorrentSource
}

// Selector addresses a set of tasks either by explicit hash list or by an
// engine-specific query (e.g. qBittorrent's filter language).
type Selector struct {
	Hashes []string
	Query  map[string]string
}

// IsHashOnly reports whether the selector can be resolved without a backend
// round-trip.
func (s Selector) IsHashOnly() bool {
	return len(s.Hashes) > 0 && len(s.Query) == 0
}

// Downloader is the common contract both backends implement.
type Downloader interface {
	AddDownloads(ctx context.Context, creation Creation) error
	QueryTorrentHashes(ctx context.Context, selector Selector) ([]string, error)
	QueryTorrents(ctx context.Context, selector Selector) ([]Task, error)
	PauseDownloads(ctx context.Context, selector Selector) error
	ResumeDownloads(ctx context.Context, selector Selector) error
	RemoveDownloads(ctx context.Context, selector Selector) error
}

// ReduceSelectorToHashes is the trait-default behavior described in
// spec.md section 4.F: any selector is reduced to a hash list via
// QueryTorrentHashes, with a fast path when it is already hash-only.
func ReduceSelectorToHashes(ctx context.Context, d Downloader, selector Selector) ([]string, error) {
	if selector.IsHashOnly() {
		return selector.Hashes, nil
	}
	return d.QueryTorrentHashes(ctx, selector)
}

// DownloadTimeoutError reports a backend operation exceeding its timeout.
type DownloadTimeoutError struct {
	Action  string
	Timeout time.Duration
}

func (e *DownloadTimeoutError) Error() string {
	return e.Action + ": timed out after " + e.Timeout.String()
}
