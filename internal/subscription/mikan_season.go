// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package subscription

import (
	"context"

	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/mikan"
)

// mikanSeason implements the MikanSeason category: scrapes the season-flow
// HTML page, which needs a credential cookie to see the caller's
// "my-subscribed" filter (spec.md section 4.D variant "MikanSeason(year,
// season_str)").
type mikanSeason struct{ *base }

var _ Subscription = (*mikanSeason)(nil)

func (s *mikanSeason) fetchCards(ctx context.Context) ([]mikan.BangumiMeta, error) {
	year, seasonStr, err := domain.DecodeSeasonSourceURL(s.row.SourceURL)
	if err != nil {
		return nil, err
	}

	client, err := s.clientForCredential(ctx)
	if err != nil {
		return nil, err
	}

	seasonURL := mikan.BuildSeasonFlowURL(s.deps.MikanBase, year, seasonStr)
	body, err := client.Get(ctx, seasonURL.String())
	if err != nil {
		return nil, err
	}
	return mikan.ParseSeasonFlow(body, s.deps.MikanBase)
}

func (s *mikanSeason) syncBangumiFeed(ctx context.Context, card mikan.BangumiMeta) error {
	client, err := s.clientForCredential(ctx)
	if err != nil {
		return err
	}

	var fansubPtr *string
	if card.MikanFansubID != "" {
		fansubPtr = &card.MikanFansubID
	}

	bangumi, err := s.deps.Store.BangumiStore().Upsert(ctx, domain.Bangumi{
		MikanBangumiID: &card.MikanBangumiID,
		MikanFansubID:  fansubPtr,
		SubscriberID:   s.row.SubscriberID,
		DisplayName:    card.BangumiTitle,
		RawName:        card.BangumiTitle,
		Season:         1,
		Fansub:         fansubPtr,
		Homepage:       nonEmpty(card.Homepage),
		PosterLink:     nonEmpty(card.OriginPosterSrc),
	})
	if err != nil {
		return err
	}
	if err := s.deps.Store.BangumiStore().LinkSubscription(ctx, s.row.ID, bangumi.ID, s.row.SubscriberID); err != nil {
		return err
	}

	rssURL := mikan.BuildBangumiSubscriptionRSSURL(s.deps.MikanBase, card.MikanBangumiID, fansubPtr)
	body, err := client.Get(ctx, rssURL.String())
	if err != nil {
		return err
	}
	root, err := mikan.ParseRSS(body)
	if err != nil {
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

func (s *mikanSeason) syncFeeds(ctx context.Context) error {
	cards, err := s.fetchCards(ctx)
	if err != nil {
		return err
	}
	for _, card := range cards {
		if err := s.syncBangumiFeed(ctx, card); err != nil {
			// One malformed/unreachable bangumi card must not abort the
			// whole season sweep.
			continue
		}
	}
	return nil
}

func (s *mikanSeason) SyncFeedsIncremental(ctx context.Context) error {
	logSync(s.row, "sync_feeds_incremental")
	return s.syncFeeds(ctx)
}

func (s *mikanSeason) SyncFeedsFull(ctx context.Context) error {
	logSync(s.row, "sync_feeds_full")
	return s.syncFeeds(ctx)
}

// SyncSources re-extracts bangumi-level metadata: titles, posters and the
// fansub set, by re-scraping the season-flow cards and refreshing each
// bangumi's homepage.
func (s *mikanSeason) SyncSources(ctx context.Context) error {
	logSync(s.row, "sync_sources")

	cards, err := s.fetchCards(ctx)
	if err != nil {
		return err
	}

	client, err := s.clientForCredential(ctx)
	if err != nil {
		return err
	}

	for _, card := range cards {
		var fansubPtr *string
		if card.MikanFansubID != "" {
			fansubPtr = &card.MikanFansubID
		}
		existing, err := s.deps.Store.BangumiStore().Upsert(ctx, domain.Bangumi{
			MikanBangumiID: &card.MikanBangumiID,
			MikanFansubID:  fansubPtr,
			SubscriberID:   s.row.SubscriberID,
			DisplayName:    card.BangumiTitle,
			RawName:        card.BangumiTitle,
			Season:         1,
			Fansub:         fansubPtr,
			Homepage:       nonEmpty(card.Homepage),
			PosterLink:     nonEmpty(card.OriginPosterSrc),
		})
		if err != nil {
			continue
		}
		if existing.Homepage == nil {
			continue
		}
		_ = refreshBangumiFromHomepage(ctx, s.deps, client, existing)
	}
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
