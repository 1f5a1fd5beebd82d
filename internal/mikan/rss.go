// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package mikan implements the extraction pipeline of spec.md section 4.D:
// RSS item parsing, season-flow HTML scraping, poster scraping and raw-name
// parsing orchestration. Grounded on
// original_source/apps/recorder/src/extract/mikan/rss.rs for exact item
// shapes and pub_date fallback parsing.
package mikan

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dumtruck/konobangu/internal/apperrors"
)

const bittorrentMimeType = "application/x-bittorrent"

const (
	bangumiRSSPath           = "/RSS/Bangumi"
	subscriberSubscriptionRSSPath = "/RSS/MyBangumi"
	bangumiIDQueryKey        = "bangumiId"
	fansubIDQueryKey         = "subgroupid"
	subscriptionTokenQueryKey = "token"
)

// RSSItemEnclosure is the <enclosure> element of a Mikan RSS item.
type RSSItemEnclosure struct {
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
	URL    string `xml:"url,attr"`
}

// RSSItemTorrentExtension is Mikan's custom <torrent> extension block.
type RSSItemTorrentExtension struct {
	PubDate       string `xml:"pubDate"`
	ContentLength int64  `xml:"contentLength"`
	Link          string `xml:"link"`
}

// RSSItem is one <item> in a Mikan RSS channel.
type RSSItem struct {
	Torrent   RSSItemTorrentExtension `xml:"torrent"`
	Link      string                  `xml:"link"`
	Title     string                  `xml:"title"`
	Enclosure RSSItemEnclosure        `xml:"enclosure"`
}

// RSSChannel is the <channel> element.
type RSSChannel struct {
	Items []RSSItem `xml:"item"`
}

// RSSRoot is the XML document root (<rss><channel>...).
type RSSRoot struct {
	XMLName xml.Name   `xml:"rss"`
	Channel RSSChannel `xml:"channel"`
}

// ParseRSS decodes a Mikan RSS document.
func ParseRSS(data []byte) (*RSSRoot, error) {
	var root RSSRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, apperrors.New("mikan.ParseRSS", apperrors.KindFormat, err)
	}
	return &root, nil
}

// RSSItemMeta is the normalized, validated form of an RSSItem (spec.md
// section 4.D per-item normalization).
type RSSItemMeta struct {
	Title          string
	TorrentLink    *url.URL
	ContentLength  int64
	Mime           string
	PubDate        *time.Time
	MikanEpisodeID string
	MagnetLink     *string
}

// NewRSSItemMeta validates and normalizes a raw RSSItem.
func NewRSSItemMeta(item RSSItem) (*RSSItemMeta, error) {
	if item.Enclosure.Type != bittorrentMimeType {
		return nil, apperrors.New("mikan.NewRSSItemMeta", apperrors.KindFormat,
			fmt.Errorf("expected mime %q, found %q", bittorrentMimeType, item.Enclosure.Type))
	}

	torrentLink, err := url.Parse(item.Enclosure.URL)
	if err != nil {
		return nil, apperrors.New("mikan.NewRSSItemMeta", apperrors.KindFormat,
			fmt.Errorf("enclosure_url: %w", err))
	}

	homepage, err := url.Parse(item.Link)
	if err != nil {
		return nil, apperrors.New("mikan.NewRSSItemMeta", apperrors.KindFormat,
			fmt.Errorf("homepage link: %w", err))
	}

	episodeID, ok := MikanEpisodeIDFromHomepageURL(homepage)
	if !ok {
		return nil, apperrors.New("mikan.NewRSSItemMeta", apperrors.KindFormat,
			fmt.Errorf("mikan_episode_id: missing from homepage url %q", homepage))
	}

	var pubDate *time.Time
	if t, err := ParsePubDate(item.Torrent.PubDate); err == nil {
		pubDate = &t
	}

	return &RSSItemMeta{
		Title:          item.Title,
		TorrentLink:    torrentLink,
		ContentLength:  item.Enclosure.Length,
		Mime:           item.Enclosure.Type,
		PubDate:        pubDate,
		MikanEpisodeID: episodeID,
	}, nil
}

// ParsePubDate tries RFC2822, then RFC3339, then RFC3339 with an assumed
// +08:00 offset — matching MikanRssItemMeta::parse_pub_date exactly.
func ParsePubDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw+"+08:00"); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable pub_date %q", raw)
}

// MikanEpisodeIDFromHomepageURL extracts the trailing path segment of
// /Home/Episode/<id>.
func MikanEpisodeIDFromHomepageURL(homepage *url.URL) (string, bool) {
	segments := strings.Split(strings.Trim(homepage.Path, "/"), "/")
	if len(segments) == 0 {
		return "", false
	}
	last := segments[len(segments)-1]
	if last == "" {
		return "", false
	}
	return last, true
}

// BuildEpisodeHomepageURL builds /Home/Episode/<id> against base.
func BuildEpisodeHomepageURL(base *url.URL, mikanEpisodeID string) *url.URL {
	u := *base
	u.Path = "/Home/Episode/" + mikanEpisodeID
	return &u
}

// BuildSubscriberSubscriptionRSSURL builds /RSS/MyBangumi?token=...
func BuildSubscriberSubscriptionRSSURL(base *url.URL, token string) *url.URL {
	u := *base
	u.Path = subscriberSubscriptionRSSPath
	q := url.Values{}
	q.Set(subscriptionTokenQueryKey, token)
	u.RawQuery = q.Encode()
	return &u
}

// BuildBangumiSubscriptionRSSURL builds /RSS/Bangumi?bangumiId=...&subgroupid=...
func BuildBangumiSubscriptionRSSURL(base *url.URL, mikanBangumiID string, mikanFansubID *string) *url.URL {
	u := *base
	u.Path = bangumiRSSPath
	q := url.Values{}
	q.Set(bangumiIDQueryKey, mikanBangumiID)
	if mikanFansubID != nil {
		q.Set(fansubIDQueryKey, *mikanFansubID)
	}
	u.RawQuery = q.Encode()
	return &u
}
