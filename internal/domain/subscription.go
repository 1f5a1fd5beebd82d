// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SubscriptionCategory tags the discriminated-union Subscription variant a
// row represents (spec.md section 3/4.G).
type SubscriptionCategory string

const (
	SubscriptionCategoryMikanSubscriber SubscriptionCategory = "MikanSubscriber"
	SubscriptionCategoryMikanSeason     SubscriptionCategory = "MikanSeason"
	SubscriptionCategoryMikanBangumi    SubscriptionCategory = "MikanBangumi"
	SubscriptionCategoryManual          SubscriptionCategory = "Manual"
)

// Subscription is the row shape backing every category. SourceURL is
// interpreted differently per category (see internal/subscription):
//   - MikanSubscriber: ignored, the token cookie drives /RSS/MyBangumi.
//   - MikanSeason: a "year/season" encoded URL (see EncodeSeasonSourceURL).
//   - MikanBangumi: the bangumi-level RSS URL itself.
//   - Manual: opaque, never fetched.
type Subscription struct {
	ID           int                  `json:"id" db:"id"`
	SubscriberID int                  `json:"subscriberId" db:"subscriber_id"`
	Category     SubscriptionCategory `json:"category" db:"category"`
	DisplayName  string               `json:"displayName" db:"display_name"`
	SourceURL    string               `json:"sourceUrl" db:"source_url"`
	Enabled      bool                 `json:"enabled" db:"enabled"`
	CredentialID *int                 `json:"credentialId" db:"credential_id"`
	CreatedAt    time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time            `json:"updatedAt" db:"updated_at"`
}

// EncodeSeasonSourceURL packs a MikanSeason subscription's (year, season
// string) pair into the opaque source_url column, as a "mikan-season://"
// pseudo-URL. seasonStr is one of spring|summer|fall|winter.
func EncodeSeasonSourceURL(year int, seasonStr string) string {
	v := url.Values{}
	v.Set("year", strconv.Itoa(year))
	v.Set("season", seasonStr)
	return "mikan-season://" + v.Encode()
}

// DecodeSeasonSourceURL reverses EncodeSeasonSourceURL.
func DecodeSeasonSourceURL(sourceURL string) (year int, seasonStr string, err error) {
	raw := strings.TrimPrefix(sourceURL, "mikan-season://")
	v, err := url.ParseQuery(raw)
	if err != nil {
		return 0, "", fmt.Errorf("decode season source url %q: %w", sourceURL, err)
	}
	year, err = strconv.Atoi(v.Get("year"))
	if err != nil {
		return 0, "", fmt.Errorf("decode season source url %q: bad year: %w", sourceURL, err)
	}
	seasonStr = v.Get("season")
	if seasonStr == "" {
		return 0, "", fmt.Errorf("decode season source url %q: missing season", sourceURL)
	}
	return year, seasonStr, nil
}

// Bangumi is a tracked show, deduplicated per spec.md section 3 invariant 6
// by (mikan_bangumi_id, mikan_fansub_id, subscriber_id).
type Bangumi struct {
	ID             int             `json:"id" db:"id"`
	MikanBangumiID *string         `json:"mikanBangumiId" db:"mikan_bangumi_id"`
	MikanFansubID  *string         `json:"mikanFansubId" db:"mikan_fansub_id"`
	SubscriberID   int             `json:"subscriberId" db:"subscriber_id"`
	DisplayName    string          `json:"displayName" db:"display_name"`
	RawName        string          `json:"rawName" db:"raw_name"`
	Season         int             `json:"season" db:"season"`
	SeasonRaw      *string         `json:"seasonRaw" db:"season_raw"`
	Fansub         *string         `json:"fansub" db:"fansub"`
	Filter         map[string]any  `json:"filter" db:"filter"`
	RSSLink        *string         `json:"rssLink" db:"rss_link"`
	PosterLink     *string         `json:"posterLink" db:"poster_link"`
	Homepage       *string         `json:"homepage" db:"homepage"`
	Extra          map[string]any  `json:"extra" db:"extra"`
	BangumiType    *string         `json:"bangumiType" db:"bangumi_type"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}

// Episode is a single downloadable release, deduplicated per spec.md section
// 3 invariant 6 by (bangumi_id, mikan_episode_id).
type Episode struct {
	ID                     int        `json:"id" db:"id"`
	MikanEpisodeID         *string    `json:"mikanEpisodeId" db:"mikan_episode_id"`
	SubscriberID           int        `json:"subscriberId" db:"subscriber_id"`
	BangumiID              int        `json:"bangumiId" db:"bangumi_id"`
	RawName                string     `json:"rawName" db:"raw_name"`
	DisplayName            string     `json:"displayName" db:"display_name"`
	Season                 int        `json:"season" db:"season"`
	EpisodeIndex           int        `json:"episodeIndex" db:"episode_index"`
	Resolution             *string    `json:"resolution" db:"resolution"`
	Fansub                 *string    `json:"fansub" db:"fansub"`
	Subtitle               []string   `json:"subtitle" db:"subtitle"`
	Source                 *string    `json:"source" db:"source"`
	Homepage               *string    `json:"homepage" db:"homepage"`
	Extra                  map[string]any `json:"extra" db:"extra"`
	EnclosureMagnetLink    *string    `json:"enclosureMagnetLink" db:"enclosure_magnet_link"`
	EnclosureTorrentLink   *string    `json:"enclosureTorrentLink" db:"enclosure_torrent_link"`
	EnclosurePubDate       *time.Time `json:"enclosurePubDate" db:"enclosure_pub_date"`
	EnclosureContentLength *int64     `json:"enclosureContentLength" db:"enclosure_content_length"`
	EpisodeType            *string    `json:"episodeType" db:"episode_type"`
	CreatedAt              time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time  `json:"updatedAt" db:"updated_at"`
}

// FeedType identifies the wire format a Feed renders as. Only RSS exists today.
type FeedType string

const FeedTypeRSS FeedType = "Rss"

// FeedSource identifies what a Feed's token resolves to.
type FeedSource string

const FeedSourceSubscriptionEpisode FeedSource = "SubscriptionEpisode"

// Feed is a token-addressed read endpoint (spec.md section 3 invariant 7,
// section 4.J).
type Feed struct {
	ID             int        `json:"id" db:"id"`
	Token          string     `json:"token" db:"token"`
	FeedType       FeedType   `json:"feedType" db:"feed_type"`
	FeedSource     FeedSource `json:"feedSource" db:"feed_source"`
	SubscriberID   *int       `json:"subscriberId" db:"subscriber_id"`
	SubscriptionID *int       `json:"subscriptionId" db:"subscription_id"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}
