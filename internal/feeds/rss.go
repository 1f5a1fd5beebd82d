// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package feeds renders the token-addressed read endpoint of spec.md
// section 4.J: RSS 2.0 with a custom <torrent> extension namespace.
// Grounded on original_source/apps/recorder/src/models/feeds/rss.rs and
// subscription_episodes_feed.rs for the exact channel/item field mapping
// and the all-or-nothing validation rule; rendered with stdlib
// encoding/xml since no feed-building library appears in any pack example's
// go.mod (see DESIGN.md).
package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/models"
	"github.com/dumtruck/konobangu/pkg/httphelpers"
)

// ProjectName is the fixed "<project>" token used in channel titles and
// episode GUIDs (spec.md section 4.J), matching the seeded singleton
// subscriber name.
const ProjectName = "konobangu"

// torrentNamespace is the custom extension namespace carrying link,
// contentLength and pubDate per item (spec.md section 4.J).
const torrentNamespace = "https://" + ProjectName + "/rss/torrent"

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type torrentExtension struct {
	XMLName       xml.Name `xml:"torrent"`
	XMLNS         string   `xml:"xmlns,attr"`
	Link          string   `xml:"link"`
	ContentLength int64    `xml:"contentLength"`
	PubDate       string   `xml:"pubDate"`
}

type rssItem struct {
	GUID        string           `xml:"guid"`
	Title       string           `xml:"title"`
	Description string           `xml:"description"`
	Link        string           `xml:"link,omitempty"`
	Enclosure   rssEnclosure     `xml:"enclosure"`
	Torrent     torrentExtension `xml:"torrent"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Link  string    `xml:"link"`
	Items []rssItem `xml:"item"`
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

// MissingFieldError mirrors spec.md section 4.J's "MikanRssInvalidField{field}":
// an item missing a required enclosure field fails the whole render.
type MissingFieldError struct {
	EpisodeID int
	Field     string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("episode %d missing required field %q for rss rendering", e.EpisodeID, e.Field)
}

// Render builds the RSS document for a Feed whose feed_source is
// SubscriptionEpisode. apiBase is the externally visible API base URL
// (config.BaseURL), used for the channel link.
func Render(ctx context.Context, store *models.Store, feed *domain.Feed, apiBase string) ([]byte, error) {
	switch feed.FeedSource {
	case domain.FeedSourceSubscriptionEpisode:
		return renderSubscriptionEpisodes(ctx, store, feed, apiBase)
	default:
		return nil, apperrors.New("feeds.Render", apperrors.KindFormat,
			fmt.Errorf("unsupported feed source %q", feed.FeedSource))
	}
}

func renderSubscriptionEpisodes(ctx context.Context, store *models.Store, feed *domain.Feed, apiBase string) ([]byte, error) {
	if feed.SubscriptionID == nil {
		return nil, apperrors.New("feeds.renderSubscriptionEpisodes", apperrors.KindFormat,
			fmt.Errorf("feed %d has no subscription_id", feed.ID))
	}

	episodes, err := store.EpisodeStore().ListBySubscription(ctx, *feed.SubscriptionID)
	if err != nil {
		return nil, err
	}

	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title: fmt.Sprintf("%s - subscription episodes", ProjectName),
			Link:  httphelpers.JoinBasePath(apiBase, "/api/feeds/rss/"+feed.Token),
		},
	}

	for _, ep := range episodes {
		if ep.EnclosureTorrentLink == nil || *ep.EnclosureTorrentLink == "" {
			return nil, &MissingFieldError{EpisodeID: ep.ID, Field: "enclosure_torrent_link"}
		}
		if ep.EnclosureContentLength == nil {
			return nil, &MissingFieldError{EpisodeID: ep.ID, Field: "enclosure_content_length"}
		}

		pubDate := time.Time{}
		if ep.EnclosurePubDate != nil {
			pubDate = *ep.EnclosurePubDate
		}
		link := ""
		if ep.Homepage != nil {
			link = *ep.Homepage
		}

		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			GUID:        fmt.Sprintf("%s:episode:%d", ProjectName, ep.ID),
			Title:       ep.DisplayName,
			Description: ep.DisplayName,
			Link:        link,
			Enclosure: rssEnclosure{
				URL:    *ep.EnclosureTorrentLink,
				Length: *ep.EnclosureContentLength,
				Type:   "application/x-bittorrent",
			},
			Torrent: torrentExtension{
				XMLNS:         torrentNamespace,
				Link:          *ep.EnclosureTorrentLink,
				ContentLength: *ep.EnclosureContentLength,
				PubDate:       pubDate.Format(time.RFC3339),
			},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.New("feeds.renderSubscriptionEpisodes", apperrors.KindInternal, err)
	}
	return append([]byte(xml.Header), out...), nil
}
