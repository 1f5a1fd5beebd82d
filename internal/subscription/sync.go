// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package subscription

import (
	"context"
	neturl "net/url"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/fetch"
	"github.com/dumtruck/konobangu/internal/mikan"
)

// Open Question decision (spec.md section 9): sync_feeds_full does not
// delete episodes that have disappeared from the current upstream feed
// window. Mikan's RSS feeds are a sliding recent-N window, not an
// authoritative full history; an episode's absence from one fetch is not
// evidence it should be removed, only that it scrolled off the window. Both
// sync_feeds_incremental and sync_feeds_full therefore upsert-only (see
// mikanSubscriber.syncFeed, mikanBangumi.syncFeed) and never issue a DELETE.

// refreshBangumiFromHomepage scrapes a bangumi's homepage for its official
// title and poster, updating the stored row. Shared by every category's
// SyncSources implementation.
func refreshBangumiFromHomepage(ctx context.Context, deps Deps, client *fetch.Client, b *domain.Bangumi) error {
	homepageURL, err := parseURL(*b.Homepage)
	if err != nil {
		return err
	}

	meta, err := mikan.ParseEpisodeMetaFromHomepage(ctx, client, homepageURL)
	if err != nil {
		return err
	}
	if meta == nil {
		return nil
	}

	updated := *b
	if meta.OfficialTitle != "" {
		updated.DisplayName = meta.OfficialTitle
	}
	if meta.PosterSrc != nil && deps.ObjectStore != nil {
		posterURL, err := mikan.FetchPoster(ctx, client, deps.ObjectStore, b.SubscriberID, meta.PosterSrc.String())
		if err == nil {
			updated.PosterLink = &posterURL
		}
	}

	_, err = deps.Store.BangumiStore().UpdateByID(ctx, updated)
	return err
}

func parseURL(raw string) (*neturl.URL, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, apperrors.New("subscription.parseURL", apperrors.KindFormat, err)
	}
	return u, nil
}
