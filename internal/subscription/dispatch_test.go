// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package subscription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/downloader"
)

// fakeDownloader records AddDownloads calls without touching a real engine,
// exercising internal/subscription's download-dispatch wiring in isolation.
type fakeDownloader struct {
	added []downloader.Creation
}

func (f *fakeDownloader) AddDownloads(ctx context.Context, creation downloader.Creation) error {
	f.added = append(f.added, creation)
	return nil
}
func (f *fakeDownloader) QueryTorrentHashes(ctx context.Context, selector downloader.Selector) ([]string, error) {
	return nil, nil
}
func (f *fakeDownloader) QueryTorrents(ctx context.Context, selector downloader.Selector) ([]downloader.Task, error) {
	return nil, nil
}
func (f *fakeDownloader) PauseDownloads(ctx context.Context, selector downloader.Selector) error  { return nil }
func (f *fakeDownloader) ResumeDownloads(ctx context.Context, selector downloader.Selector) error { return nil }
func (f *fakeDownloader) RemoveDownloads(ctx context.Context, selector downloader.Selector) error { return nil }

var _ downloader.Downloader = (*fakeDownloader)(nil)

func TestDispatchDownloadSendsMagnetSource(t *testing.T) {
	magnet := "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=example"
	ep := domain.Episode{ID: 1, DisplayName: "example episode", EnclosureMagnetLink: &magnet}

	fd := &fakeDownloader{}
	b := &base{deps: Deps{Downloader: fd, DownloadSavePath: "/downloads", DownloadCategory: "anime"}}

	b.dispatchDownload(context.Background(), ep)

	require.Len(t, fd.added, 1)
	creation := fd.added[0]
	assert.Equal(t, "/downloads", creation.SavePath)
	assert.Equal(t, "anime", creation.Category)
	require.Len(t, creation.Sources, 1)
	assert.Equal(t, "C12FE1C06BBA254A9DC9F519B335AA7C1367A88A", creation.Sources[0].Hash)
	assert.Equal(t, magnet, creation.Sources[0].MagnetURL)
}

func TestDispatchDownloadNoopWithoutDownloader(t *testing.T) {
	magnet := "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a"
	ep := domain.Episode{ID: 1, EnclosureMagnetLink: &magnet}

	b := &base{deps: Deps{}}
	// Must not panic with a nil Downloader.
	b.dispatchDownload(context.Background(), ep)
}

func TestDispatchDownloadSwallowsMissingEnclosure(t *testing.T) {
	ep := domain.Episode{ID: 2}
	fd := &fakeDownloader{}
	b := &base{deps: Deps{Downloader: fd}}

	b.dispatchDownload(context.Background(), ep)

	assert.Empty(t, fd.added)
}
