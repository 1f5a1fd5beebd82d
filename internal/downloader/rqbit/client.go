// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package rqbit adapts rqbit's HTTP API to the downloader.Downloader
// contract. The original implementation embeds librqbit as an in-process
// Rust library (see original_source/packages/downloader/src/rqbit); no
// equivalent Go library exists in the example pack, so this backend talks
// to rqbit's REST API instead, reusing the net/http conventions the teacher
// applies elsewhere (explicit context, json decode into typed structs).
package rqbit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/downloader"
)

// Client talks to a single rqbit instance's HTTP API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	savePath   string
}

var _ downloader.Downloader = (*Client)(nil)

// New returns a Client bound to the given rqbit HTTP API base URL.
func New(baseURL string, savePath string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, apperrors.New("rqbit.New", apperrors.KindFormat, err)
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		savePath:   savePath,
	}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

type addTorrentResponse struct {
	ID      int    `json:"id"`
	Details struct {
		InfoHash string `json:"info_hash"`
	} `json:"details"`
}

// torrentStats mirrors rqbit's GET /torrents/{id}/stats/v1 response, trimmed
// to the fields SimpleState translation and Task population need.
type torrentStats struct {
	State         string  `json:"state"`
	Error         *string `json:"error"`
	TotalBytes    int64   `json:"total_bytes"`
	ProgressBytes int64   `json:"progress_bytes"`
	UploadedBytes int64   `json:"uploaded_bytes"`
	Finished      bool    `json:"finished"`
	LiveStats     *struct {
		DownloadSpeed struct {
			BytesPerSecond float64 `json:"bytes_per_second"`
		} `json:"download_speed"`
		TimeRemaining *struct {
			Duration *struct {
				Secs int64 `json:"secs"`
			} `json:"Duration"`
		} `json:"time_remaining"`
	} `json:"live,omitempty"`
}

type torrentDetails struct {
	InfoHash string `json:"info_hash"`
	Name     string `json:"name"`
}

// mapState translates rqbit's torrent state string to the internal
// downloader.SimpleState, grounded on the state vocabulary rqbit reports
// (initializing/live/paused/error) mapped onto the same Active/Paused/
// Completed/Error/Unknown vocabulary spec.md section 4.F defines for every
// backend.
func mapState(stats torrentStats) downloader.SimpleState {
	if stats.Error != nil && *stats.Error != "" {
		return downloader.StateError
	}
	switch strings.ToLower(stats.State) {
	case "paused":
		return downloader.StatePaused
	case "live":
		if stats.Finished {
			return downloader.StateCompleted
		}
		return downloader.StateActive
	case "initializing":
		return downloader.StateActive
	case "error":
		return downloader.StateError
	default:
		return downloader.StateUnknown
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return apperrors.New("rqbit.doJSON", apperrors.KindTransport, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.New("rqbit.doJSON", apperrors.KindTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.New("rqbit.doJSON", apperrors.KindTransport, err)
	}

	if resp.StatusCode >= 400 {
		return apperrors.New("rqbit.doJSON", apperrors.KindTransport, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody)))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.New("rqbit.doJSON", apperrors.KindFormat, err)
	}
	return nil
}

// AddDownloads adds each source via POST /torrents, dispatching a magnet URL
// as a text/plain body or raw .torrent bytes as application/x-bittorrent.
func (c *Client) AddDownloads(ctx context.Context, creation downloader.Creation) error {
	savePath := creation.SavePath
	if savePath == "" {
		savePath = c.savePath
	}

	for _, src := range creation.Sources {
		path := fmt.Sprintf("/torrents?overwrite=true&output_folder=%s", url.QueryEscape(savePath))
		var body io.Reader
		var contentType string

		switch {
		case src.MagnetURL != "":
			body = strings.NewReader(src.MagnetURL)
			contentType = "text/plain"
		case len(src.TorrentBytes) > 0:
			body = bytes.NewReader(src.TorrentBytes)
			contentType = "application/x-bittorrent"
		default:
			continue
		}

		var resp addTorrentResponse
		if err := c.doJSON(ctx, http.MethodPost, path, body, contentType, &resp); err != nil {
			return err
		}
	}
	return nil
}

// QueryTorrentHashes reduces a selector to hashes, with a fast path when the
// selector already carries an explicit hash list.
func (c *Client) QueryTorrentHashes(ctx context.Context, selector downloader.Selector) ([]string, error) {
	if selector.IsHashOnly() {
		return selector.Hashes, nil
	}
	tasks, err := c.QueryTorrents(ctx, selector)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(tasks))
	for _, t := range tasks {
		hashes = append(hashes, t.ID)
	}
	return hashes, nil
}

// QueryTorrents looks up each selected hash individually, as rqbit's HTTP
// API addresses torrents one at a time rather than via a batch filter
// language. When the selector carries no explicit hashes, it is treated as
// an empty result: rqbit has no engine-side query language to reduce a
// Selector.Query against.
func (c *Client) QueryTorrents(ctx context.Context, selector downloader.Selector) ([]downloader.Task, error) {
	if !selector.IsHashOnly() && len(selector.Hashes) == 0 {
		return nil, nil
	}

	tasks := make([]downloader.Task, 0, len(selector.Hashes))
	for _, hash := range selector.Hashes {
		var details torrentDetails
		if err := c.doJSON(ctx, http.MethodGet, "/torrents/"+hash, nil, "", &details); err != nil {
			return nil, err
		}

		var stats torrentStats
		if err := c.doJSON(ctx, http.MethodGet, "/torrents/"+hash+"/stats/v1", nil, "", &stats); err != nil {
			return nil, err
		}

		task := downloader.Task{
			ID:         strings.ToUpper(hash),
			State:      mapState(stats),
			Name:       details.Name,
			TotalBytes: &stats.TotalBytes,
		}
		downloaded := stats.ProgressBytes
		task.DownloadedBytes = &downloaded

		if stats.LiveStats != nil {
			speed := int64(stats.LiveStats.DownloadSpeed.BytesPerSecond)
			task.AverageSpeed = &speed
			if stats.LiveStats.TimeRemaining != nil && stats.LiveStats.TimeRemaining.Duration != nil {
				eta := stats.LiveStats.TimeRemaining.Duration.Secs
				task.ETASeconds = &eta
			}
		}
		if stats.TotalBytes > 0 {
			progress := float64(stats.ProgressBytes) / float64(stats.TotalBytes)
			task.Progress = &progress
		}

		tasks = append(tasks, task)
	}
	return tasks, nil
}

// PauseDownloads, ResumeDownloads, and RemoveDownloads each reduce the
// selector to a hash list and issue one POST per hash: rqbit's API has no
// bulk action endpoint.
func (c *Client) PauseDownloads(ctx context.Context, selector downloader.Selector) error {
	return c.forEachHash(ctx, selector, func(hash string) error {
		return c.doJSON(ctx, http.MethodPost, "/torrents/"+hash+"/pause", nil, "", nil)
	})
}

func (c *Client) ResumeDownloads(ctx context.Context, selector downloader.Selector) error {
	return c.forEachHash(ctx, selector, func(hash string) error {
		return c.doJSON(ctx, http.MethodPost, "/torrents/"+hash+"/start", nil, "", nil)
	})
}

func (c *Client) RemoveDownloads(ctx context.Context, selector downloader.Selector) error {
	return c.forEachHash(ctx, selector, func(hash string) error {
		return c.doJSON(ctx, http.MethodPost, "/torrents/"+hash+"/delete", nil, "", nil)
	})
}

func (c *Client) forEachHash(ctx context.Context, selector downloader.Selector, fn func(hash string) error) error {
	hashes, err := downloader.ReduceSelectorToHashes(ctx, c, selector)
	if err != nil {
		return err
	}
	for _, hash := range hashes {
		if err := fn(hash); err != nil {
			return err
		}
	}
	return nil
}
