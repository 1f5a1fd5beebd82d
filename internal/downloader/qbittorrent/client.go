// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package qbittorrent adapts github.com/autobrr/go-qbittorrent to the
// downloader.Downloader contract, grounded on the teacher's
// internal/qbittorrent/client.go wrapping pattern (embed *qbt.Client,
// version-gate feature support via semver).
package qbittorrent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/downloader"
)

// Client wraps *qbt.Client to satisfy downloader.Downloader.
type Client struct {
	*qbt.Client
	webAPIVersion   string
	supportsSetTags bool
}

var _ downloader.Downloader = (*Client)(nil)

// New logs into a qBittorrent instance and returns a Client.
func New(ctx context.Context, host, username, password string) (*Client, error) {
	qbtClient := qbt.NewClient(qbt.Config{
		Host:     host,
		Username: username,
		Password: password,
		Timeout:  30,
	})

	if err := qbtClient.LoginCtx(ctx); err != nil {
		return nil, apperrors.New("qbittorrent.New", apperrors.KindAuth, fmt.Errorf("login: %w", err))
	}

	webAPIVersion, err := qbtClient.GetWebAPIVersionCtx(ctx)
	if err != nil {
		webAPIVersion = ""
	}

	supportsSetTags := false
	if webAPIVersion != "" {
		if v, err := semver.NewVersion(webAPIVersion); err == nil {
			supportsSetTags = !v.LessThan(semver.MustParse("2.11.4"))
		}
	}

	log.Debug().Str("host", host).Str("webAPIVersion", webAPIVersion).Msg("qbittorrent client created")

	return &Client{Client: qbtClient, webAPIVersion: webAPIVersion, supportsSetTags: supportsSetTags}, nil
}

// mapState converts a qBittorrent torrent state to the internal
// downloader.SimpleState, per the table in spec.md section 4.F.
func mapState(state qbt.TorrentState) downloader.SimpleState {
	switch state {
	case qbt.TorrentStateForcedUp, qbt.TorrentStateUploading, qbt.TorrentStatePausedUp,
		qbt.TorrentStateQueuedUp, qbt.TorrentStateStalledUp, qbt.TorrentStateCheckingUp:
		return downloader.StateCompleted
	case qbt.TorrentStateError, qbt.TorrentStateMissingFiles:
		return downloader.StateError
	case qbt.TorrentStatePausedDl:
		return downloader.StatePaused
	case qbt.TorrentStateAllocating, qbt.TorrentStateMoving, qbt.TorrentStateMetaDl,
		qbt.TorrentStateForcedDl, qbt.TorrentStateCheckingResumeData, qbt.TorrentStateQueuedDl,
		qbt.TorrentStateDownloading, qbt.TorrentStateStalledDl, qbt.TorrentStateCheckingDl:
		return downloader.StateActive
	default:
		return downloader.StateUnknown
	}
}

// AddDownloads maps creations to /api/v2/torrents/add, dispatching magnets
// and .torrent files as their respective add APIs require.
func (c *Client) AddDownloads(ctx context.Context, creation downloader.Creation) error {
	opts := map[string]string{
		"savepath": creation.SavePath,
		"category": creation.Category,
	}
	if len(creation.Tags) > 0 {
		opts["tags"] = strings.Join(creation.Tags, ",")
	}

	var urls []string
	for _, src := range creation.Sources {
		if src.MagnetURL != "" {
			urls = append(urls, src.MagnetURL)
		}
	}
	for _, u := range urls {
		if err := c.Client.AddTorrentFromUrlCtx(ctx, u, opts); err != nil {
			return apperrors.New("qbittorrent.AddDownloads", apperrors.KindTransport, err)
		}
	}

	for _, src := range creation.Sources {
		if len(src.TorrentBytes) == 0 {
			continue
		}
		if err := c.Client.AddTorrentFromMemoryCtx(ctx, src.TorrentBytes, opts); err != nil {
			return apperrors.New("qbittorrent.AddDownloads", apperrors.KindTransport, err)
		}
	}

	return nil
}

// QueryTorrentHashes reduces a selector to hashes, with a fast path for
// hash-only selectors (spec.md section 4.F default behavior).
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

// QueryTorrents reuses qBittorrent's own filter language via GetTorrentsCtx.
func (c *Client) QueryTorrents(ctx context.Context, selector downloader.Selector) ([]downloader.Task, error) {
	arg := qbt.TorrentFilterOptions{}
	if len(selector.Hashes) > 0 {
		arg.Hashes = selector.Hashes
	}
	if category, ok := selector.Query["category"]; ok {
		arg.Category = category
	}

	infos, err := c.Client.GetTorrentsCtx(ctx, arg)
	if err != nil {
		return nil, apperrors.New("qbittorrent.QueryTorrents", apperrors.KindTransport, err)
	}

	tasks := make([]downloader.Task, 0, len(infos))
	for _, info := range infos {
		dl := info.Downloaded
		total := info.Size
		progress := info.Progress
		speed := info.DlSpeed
		eta := info.ETA

		tasks = append(tasks, downloader.Task{
			ID:              strings.ToUpper(info.Hash),
			State:           mapState(info.State),
			Name:            info.Name,
			DownloadedBytes: &dl,
			TotalBytes:      &total,
			AverageSpeed:    &speed,
			Progress:        &progress,
			ETASeconds:      &eta,
		})
	}
	return tasks, nil
}

// PauseDownloads/ResumeDownloads/RemoveDownloads accept a hash list joined
// with "|" per spec.md section 4.F; absent hashes are idempotent no-ops
// (qBittorrent itself silently ignores unknown hashes).
func (c *Client) PauseDownloads(ctx context.Context, selector downloader.Selector) error {
	hashes, err := downloader.ReduceSelectorToHashes(ctx, c, selector)
	if err != nil {
		return err
	}
	if len(hashes) == 0 {
		return nil
	}
	if err := c.Client.PauseCtx(ctx, hashes); err != nil {
		return apperrors.New("qbittorrent.PauseDownloads", apperrors.KindTransport, err)
	}
	return nil
}

func (c *Client) ResumeDownloads(ctx context.Context, selector downloader.Selector) error {
	hashes, err := downloader.ReduceSelectorToHashes(ctx, c, selector)
	if err != nil {
		return err
	}
	if len(hashes) == 0 {
		return nil
	}
	if err := c.Client.ResumeCtx(ctx, hashes); err != nil {
		return apperrors.New("qbittorrent.ResumeDownloads", apperrors.KindTransport, err)
	}
	return nil
}

func (c *Client) RemoveDownloads(ctx context.Context, selector downloader.Selector) error {
	hashes, err := downloader.ReduceSelectorToHashes(ctx, c, selector)
	if err != nil {
		return err
	}
	if len(hashes) == 0 {
		return nil
	}
	if err := c.Client.DeleteTorrentsCtx(ctx, hashes, false); err != nil {
		return apperrors.New("qbittorrent.RemoveDownloads", apperrors.KindTransport, err)
	}
	return nil
}
