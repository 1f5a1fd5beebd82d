// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package models

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/crypto"
	"github.com/dumtruck/konobangu/internal/domain"
)

// SubscriptionStore is the repository for the subscriptions table.
type SubscriptionStore struct{ *Store }

func (s *SubscriptionStore) scan(row pgx.Row) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := row.Scan(&sub.ID, &sub.SubscriberID, &sub.Category, &sub.DisplayName, &sub.SourceURL,
		&sub.Enabled, &sub.CredentialID, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("SubscriptionStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("SubscriptionStore.scan", apperrors.KindInternal, err)
	}
	return sub, nil
}

// GetByID loads a subscription, scoped to subscriberID (spec.md section 3
// invariant 1).
func (s *SubscriptionStore) GetByID(ctx context.Context, subscriberID, id int) (*domain.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subscriber_id, category, display_name, source_url, enabled, credential_id, created_at, updated_at
		FROM subscriptions WHERE id = $1 AND subscriber_id = $2`, id, subscriberID)
	return s.scan(row)
}

// ListBySubscriber returns every subscription owned by subscriberID.
func (s *SubscriptionStore) ListBySubscriber(ctx context.Context, subscriberID int) ([]*domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subscriber_id, category, display_name, source_url, enabled, credential_id, created_at, updated_at
		FROM subscriptions WHERE subscriber_id = $1 ORDER BY id`, subscriberID)
	if err != nil {
		return nil, apperrors.New("SubscriptionStore.ListBySubscriber", apperrors.KindInternal, err)
	}
	defer rows.Close()

	var out []*domain.Subscription
	for rows.Next() {
		sub := &domain.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.SubscriberID, &sub.Category, &sub.DisplayName, &sub.SourceURL,
			&sub.Enabled, &sub.CredentialID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, apperrors.New("SubscriptionStore.ListBySubscriber", apperrors.KindInternal, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Create inserts a new subscription.
func (s *SubscriptionStore) Create(ctx context.Context, sub domain.Subscription) (*domain.Subscription, error) {
	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO subscriptions (subscriber_id, category, display_name, source_url, enabled, credential_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, subscriber_id, category, display_name, source_url, enabled, credential_id, created_at, updated_at`,
		sub.SubscriberID, sub.Category, sub.DisplayName, sub.SourceURL, sub.Enabled, sub.CredentialID)
	return s.scan(row)
}

// Delete removes a subscription. Bridge rows cascade per schema FKs.
func (s *SubscriptionStore) Delete(ctx context.Context, subscriberID, id int) error {
	_, err := s.db.Writer().Exec(ctx, `DELETE FROM subscriptions WHERE id = $1 AND subscriber_id = $2`, id, subscriberID)
	if err != nil {
		return apperrors.New("SubscriptionStore.Delete", apperrors.KindInternal, err)
	}
	return nil
}

// BangumiStore is the repository for the bangumis table.
type BangumiStore struct{ *Store }

func scanBangumi(row pgx.Row) (*domain.Bangumi, error) {
	b := &domain.Bangumi{}
	var filter, extra []byte
	err := row.Scan(&b.ID, &b.MikanBangumiID, &b.MikanFansubID, &b.SubscriberID, &b.DisplayName, &b.RawName,
		&b.Season, &b.SeasonRaw, &b.Fansub, &filter, &b.RSSLink, &b.PosterLink, &b.Homepage, &extra,
		&b.BangumiType, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("BangumiStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("BangumiStore.scan", apperrors.KindInternal, err)
	}
	if len(filter) > 0 {
		_ = json.Unmarshal(filter, &b.Filter)
	}
	if len(extra) > 0 {
		_ = json.Unmarshal(extra, &b.Extra)
	}
	return b, nil
}

const bangumiColumns = `id, mikan_bangumi_id, mikan_fansub_id, subscriber_id, display_name, raw_name,
	season, season_raw, fansub, filter, rss_link, poster_link, homepage, extra, bangumi_type, created_at, updated_at`

// GetByID loads a bangumi, scoped to subscriberID.
func (s *BangumiStore) GetByID(ctx context.Context, subscriberID, id int) (*domain.Bangumi, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bangumiColumns+` FROM bangumis WHERE id = $1 AND subscriber_id = $2`, id, subscriberID)
	return scanBangumi(row)
}

// Upsert implements spec.md section 3 invariant 6: the dedup key for a
// bangumi is (mikan_bangumi_id, mikan_fansub_id, subscriber_id). A
// conflicting row is updated in place rather than duplicated.
func (s *BangumiStore) Upsert(ctx context.Context, b domain.Bangumi) (*domain.Bangumi, error) {
	filter, err := json.Marshal(b.Filter)
	if err != nil {
		return nil, apperrors.New("BangumiStore.Upsert", apperrors.KindInternal, err)
	}
	extra, err := json.Marshal(b.Extra)
	if err != nil {
		return nil, apperrors.New("BangumiStore.Upsert", apperrors.KindInternal, err)
	}

	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO bangumis (mikan_bangumi_id, mikan_fansub_id, subscriber_id, display_name, raw_name,
			season, season_raw, fansub, filter, rss_link, poster_link, homepage, extra, bangumi_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (mikan_bangumi_id, mikan_fansub_id, subscriber_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			raw_name = EXCLUDED.raw_name,
			season = EXCLUDED.season,
			season_raw = EXCLUDED.season_raw,
			fansub = EXCLUDED.fansub,
			filter = EXCLUDED.filter,
			rss_link = EXCLUDED.rss_link,
			poster_link = COALESCE(EXCLUDED.poster_link, bangumis.poster_link),
			homepage = COALESCE(EXCLUDED.homepage, bangumis.homepage),
			extra = EXCLUDED.extra,
			bangumi_type = EXCLUDED.bangumi_type
		RETURNING `+bangumiColumns,
		b.MikanBangumiID, b.MikanFansubID, b.SubscriberID, b.DisplayName, b.RawName,
		b.Season, b.SeasonRaw, b.Fansub, filter, b.RSSLink, b.PosterLink, b.Homepage, extra, b.BangumiType)
	return scanBangumi(row)
}

// UpdateByID overwrites a bangumi row addressed by its primary key, for
// callers that already hold the row (e.g. a homepage-metadata refresh) and
// must not risk the NULL-tuple ON CONFLICT pitfall of Upsert when
// mikan_bangumi_id/mikan_fansub_id are unset (Postgres unique indexes treat
// NULL as distinct from NULL, so ON CONFLICT never matches a second NULL row).
func (s *BangumiStore) UpdateByID(ctx context.Context, b domain.Bangumi) (*domain.Bangumi, error) {
	filter, err := json.Marshal(b.Filter)
	if err != nil {
		return nil, apperrors.New("BangumiStore.UpdateByID", apperrors.KindInternal, err)
	}
	extra, err := json.Marshal(b.Extra)
	if err != nil {
		return nil, apperrors.New("BangumiStore.UpdateByID", apperrors.KindInternal, err)
	}

	row := s.db.Writer().QueryRow(ctx, `
		UPDATE bangumis SET
			display_name = $3,
			raw_name = $4,
			season = $5,
			season_raw = $6,
			fansub = $7,
			filter = $8,
			rss_link = $9,
			poster_link = COALESCE($10, poster_link),
			homepage = $11,
			extra = $12,
			bangumi_type = $13
		WHERE id = $1 AND subscriber_id = $2
		RETURNING `+bangumiColumns,
		b.ID, b.SubscriberID, b.DisplayName, b.RawName, b.Season, b.SeasonRaw, b.Fansub, filter,
		b.RSSLink, b.PosterLink, b.Homepage, extra, b.BangumiType)
	return scanBangumi(row)
}

// ListBySubscriber returns every bangumi owned by subscriberID.
func (s *BangumiStore) ListBySubscriber(ctx context.Context, subscriberID int) ([]*domain.Bangumi, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bangumiColumns+` FROM bangumis WHERE subscriber_id = $1 ORDER BY id`, subscriberID)
	if err != nil {
		return nil, apperrors.New("BangumiStore.ListBySubscriber", apperrors.KindInternal, err)
	}
	defer rows.Close()
	var out []*domain.Bangumi
	for rows.Next() {
		b, err := scanBangumi(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBySubscriberAndDisplayName looks up a bangumi by its display name
// within a subscriber's rows. Used by the MikanSubscriber sync path, whose
// feed (/RSS/MyBangumi) carries no mikan_bangumi_id to dedup on directly
// (spec.md section 4.D: the per-subscriber feed is episode-level only) —
// falling back to a title match keeps repeated syncs from spawning
// duplicate bangumi rows for the same show.
func (s *BangumiStore) GetBySubscriberAndDisplayName(ctx context.Context, subscriberID int, displayName string) (*domain.Bangumi, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bangumiColumns+` FROM bangumis WHERE subscriber_id = $1 AND display_name = $2 LIMIT 1`, subscriberID, displayName)
	return scanBangumi(row)
}

// LinkSubscription inserts the bridge row tying a bangumi to a subscription,
// idempotently (spec.md section 3's SubscriptionBangumi bridge table).
func (s *BangumiStore) LinkSubscription(ctx context.Context, subscriptionID, bangumiID, subscriberID int) error {
	_, err := s.db.Writer().Exec(ctx, `
		INSERT INTO subscription_bangumi (subscription_id, bangumi_id, subscriber_id)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, subscriptionID, bangumiID, subscriberID)
	if err != nil {
		return apperrors.New("BangumiStore.LinkSubscription", apperrors.KindInternal, err)
	}
	return nil
}

// EpisodeStore is the repository for the episodes table.
type EpisodeStore struct{ *Store }

// episodeColumnsQualified is episodeColumns with every column qualified by
// the "e" alias, for the join query in ListBySubscription.
const episodeColumnsQualified = `e.id, e.mikan_episode_id, e.subscriber_id, e.bangumi_id, e.raw_name, e.display_name,
	e.season, e.episode_index, e.resolution, e.fansub, e.subtitle, e.source, e.homepage, e.extra,
	e.enclosure_magnet_link, e.enclosure_torrent_link, e.enclosure_pub_date, e.enclosure_content_length,
	e.episode_type, e.created_at, e.updated_at`

const episodeColumns = `id, mikan_episode_id, subscriber_id, bangumi_id, raw_name, display_name, season,
	episode_index, resolution, fansub, subtitle, source, homepage, extra, enclosure_magnet_link,
	enclosure_torrent_link, enclosure_pub_date, enclosure_content_length, episode_type, created_at, updated_at`

func scanEpisode(row pgx.Row) (*domain.Episode, error) {
	e := &domain.Episode{}
	var extra []byte
	err := row.Scan(&e.ID, &e.MikanEpisodeID, &e.SubscriberID, &e.BangumiID, &e.RawName, &e.DisplayName,
		&e.Season, &e.EpisodeIndex, &e.Resolution, &e.Fansub, &e.Subtitle, &e.Source, &e.Homepage, &extra,
		&e.EnclosureMagnetLink, &e.EnclosureTorrentLink, &e.EnclosurePubDate, &e.EnclosureContentLength,
		&e.EpisodeType, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("EpisodeStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("EpisodeStore.scan", apperrors.KindInternal, err)
	}
	if len(extra) > 0 {
		_ = json.Unmarshal(extra, &e.Extra)
	}
	return e, nil
}

// Upsert implements spec.md section 3 invariant 6: the dedup key for an
// episode is (bangumi_id, mikan_episode_id).
func (s *EpisodeStore) Upsert(ctx context.Context, e domain.Episode) (*domain.Episode, error) {
	extra, err := json.Marshal(e.Extra)
	if err != nil {
		return nil, apperrors.New("EpisodeStore.Upsert", apperrors.KindInternal, err)
	}

	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO episodes (mikan_episode_id, subscriber_id, bangumi_id, raw_name, display_name, season,
			episode_index, resolution, fansub, subtitle, source, homepage, extra, enclosure_magnet_link,
			enclosure_torrent_link, enclosure_pub_date, enclosure_content_length, episode_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (bangumi_id, mikan_episode_id) DO UPDATE SET
			raw_name = EXCLUDED.raw_name,
			display_name = EXCLUDED.display_name,
			season = EXCLUDED.season,
			episode_index = EXCLUDED.episode_index,
			resolution = EXCLUDED.resolution,
			fansub = EXCLUDED.fansub,
			subtitle = EXCLUDED.subtitle,
			source = EXCLUDED.source,
			homepage = EXCLUDED.homepage,
			extra = EXCLUDED.extra,
			enclosure_magnet_link = EXCLUDED.enclosure_magnet_link,
			enclosure_torrent_link = EXCLUDED.enclosure_torrent_link,
			enclosure_pub_date = EXCLUDED.enclosure_pub_date,
			enclosure_content_length = EXCLUDED.enclosure_content_length,
			episode_type = EXCLUDED.episode_type
		RETURNING `+episodeColumns,
		e.MikanEpisodeID, e.SubscriberID, e.BangumiID, e.RawName, e.DisplayName, e.Season,
		e.EpisodeIndex, e.Resolution, e.Fansub, e.Subtitle, e.Source, e.Homepage, extra, e.EnclosureMagnetLink,
		e.EnclosureTorrentLink, e.EnclosurePubDate, e.EnclosureContentLength, e.EpisodeType)
	return scanEpisode(row)
}

// LinkSubscription inserts the bridge row tying an episode to a
// subscription, idempotently.
func (s *EpisodeStore) LinkSubscription(ctx context.Context, subscriptionID, episodeID, subscriberID int) error {
	_, err := s.db.Writer().Exec(ctx, `
		INSERT INTO subscription_episode (subscription_id, episode_id, subscriber_id)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, subscriptionID, episodeID, subscriberID)
	if err != nil {
		return apperrors.New("EpisodeStore.LinkSubscription", apperrors.KindInternal, err)
	}
	return nil
}

// ListBySubscription returns every episode reachable from a subscription
// through the subscription_episode bridge, used by the RSS republisher
// (spec.md section 4.J).
func (s *EpisodeStore) ListBySubscription(ctx context.Context, subscriptionID int) ([]*domain.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+episodeColumnsQualified+`
		FROM episodes e
		JOIN subscription_episode se ON se.episode_id = e.id
		WHERE se.subscription_id = $1
		ORDER BY e.enclosure_pub_date DESC NULLS LAST, e.id DESC`, subscriptionID)
	if err != nil {
		return nil, apperrors.New("EpisodeStore.ListBySubscription", apperrors.KindInternal, err)
	}
	defer rows.Close()

	var out []*domain.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FeedStore is the repository for the feeds table.
type FeedStore struct{ *Store }

func scanFeed(row pgx.Row) (*domain.Feed, error) {
	f := &domain.Feed{}
	err := row.Scan(&f.ID, &f.Token, &f.FeedType, &f.FeedSource, &f.SubscriberID, &f.SubscriptionID, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("FeedStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("FeedStore.scan", apperrors.KindInternal, err)
	}
	return f, nil
}

const feedColumns = `id, token, feed_type, feed_source, subscriber_id, subscription_id, created_at, updated_at`

// GetByToken resolves a feed's token to its row (spec.md section 3 invariant
// 7: the token alone authorizes read, no further auth check).
func (s *FeedStore) GetByToken(ctx context.Context, token string) (*domain.Feed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE token = $1`, token)
	return scanFeed(row)
}

// createFeedToken generates the 10-char nanoid token FeedStore.Create
// assigns to a feed inserted without one (spec.md section 3's Feed entity).
func (s *Store) createFeedToken() (string, error) {
	return crypto.GenerateNanoID(10)
}

func (s *FeedStore) Create(ctx context.Context, f domain.Feed) (*domain.Feed, error) {
	token := f.Token
	if token == "" {
		generated, err := s.createFeedToken()
		if err != nil {
			return nil, apperrors.New("FeedStore.Create", apperrors.KindInternal, err)
		}
		token = generated
	}

	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO feeds (token, feed_type, feed_source, subscriber_id, subscription_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+feedColumns,
		token, f.FeedType, f.FeedSource, f.SubscriberID, f.SubscriptionID)
	feed, err := scanFeed(row)
	if apperrors.IsUniqueViolation(err) {
		return nil, apperrors.New("FeedStore.Create", apperrors.KindConflict, err)
	}
	return feed, err
}
