// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package subscription

import (
	"context"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/mikan"
)

// mikanBangumi implements the MikanBangumi category: a single-bangumi feed
// addressed by (mikan_bangumi_id, mikan_fansub_id), spec.md section 4.D
// variant "MikanBangumi". source_url is the bangumi-level RSS URL itself
// (/RSS/Bangumi?bangumiId=...&subgroupid=...), so the ids are recovered by
// parsing its query string rather than needing a separate encoding.
type mikanBangumi struct{ *base }

var _ Subscription = (*mikanBangumi)(nil)

func (s *mikanBangumi) ids() (mikanBangumiID string, mikanFansubID *string, err error) {
	u, err := parseURL(s.row.SourceURL)
	if err != nil {
		return "", nil, err
	}
	mikanBangumiID = u.Query().Get("bangumiId")
	if mikanBangumiID == "" {
		return "", nil, apperrors.New("mikan_bangumi.ids", apperrors.KindFormat,
			apperrors.ErrNotFound)
	}
	if fansub := u.Query().Get("subgroupid"); fansub != "" {
		mikanFansubID = &fansub
	}
	return mikanBangumiID, mikanFansubID, nil
}

func (s *mikanBangumi) resolveBangumi(ctx context.Context, mikanBangumiID string, mikanFansubID *string) (*domain.Bangumi, error) {
	return s.deps.Store.BangumiStore().Upsert(ctx, domain.Bangumi{
		MikanBangumiID: &mikanBangumiID,
		MikanFansubID:  mikanFansubID,
		SubscriberID:   s.row.SubscriberID,
		DisplayName:    s.row.DisplayName,
		RawName:        s.row.DisplayName,
		Season:         1,
		RSSLink:        &s.row.SourceURL,
	})
}

func (s *mikanBangumi) syncFeed(ctx context.Context) error {
	client, err := s.clientForCredential(ctx)
	if err != nil {
		return err
	}

	body, err := client.Get(ctx, s.row.SourceURL)
	if err != nil {
		return err
	}
	root, err := mikan.ParseRSS(body)
	if err != nil {
		return err
	}

	mikanBangumiID, mikanFansubID, err := s.ids()
	if err != nil {
		return err
	}
	bangumi, err := s.resolveBangumi(ctx, mikanBangumiID, mikanFansubID)
	if err != nil {
		return err
	}
	if err := s.deps.Store.BangumiStore().LinkSubscription(ctx, s.row.ID, bangumi.ID, s.row.SubscriberID); err != nil {
		return err
	}

	for _, raw := range root.Channel.Items {
		item, err := mikan.NewRSSItemMeta(raw)
		if err != nil {
			continue
		}
		if err := s.upsertItem(ctx, bangumi.ID, *item); err != nil {
			return err
		}
	}
	return nil
}

func (s *mikanBangumi) SyncFeedsIncremental(ctx context.Context) error {
	logSync(s.row, "sync_feeds_incremental")
	return s.syncFeed(ctx)
}

func (s *mikanBangumi) SyncFeedsFull(ctx context.Context) error {
	logSync(s.row, "sync_feeds_full")
	return s.syncFeed(ctx)
}

func (s *mikanBangumi) SyncSources(ctx context.Context) error {
	logSync(s.row, "sync_sources")

	mikanBangumiID, mikanFansubID, err := s.ids()
	if err != nil {
		return err
	}
	bangumi, err := s.resolveBangumi(ctx, mikanBangumiID, mikanFansubID)
	if err != nil {
		return err
	}
	if bangumi.Homepage == nil {
		// No homepage URL is known for this bangumi yet (one is recorded when
		// a MikanSeason sync upserts the same bangumi from its season-flow
		// card); without it there is nothing to scrape for an official
		// title/poster.
		return nil
	}

	client, err := s.clientForCredential(ctx)
	if err != nil {
		return err
	}
	return refreshBangumiFromHomepage(ctx, s.deps, client, bangumi)
}
