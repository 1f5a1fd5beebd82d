// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package mikan

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"

	"github.com/dumtruck/konobangu/internal/fetch"
)

// titleSeasonRegex strips a trailing "第.*季" season qualifier from a
// scraped official title, grounded on MIKAN_TITLE_SEASON.
var titleSeasonRegex = regexp.MustCompile(`第.*季`)

var backgroundImageURLRegex = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^'"\)]*))\s*\)`)

// EpisodeMeta is the result of scraping a bangumi episode homepage: the
// poster image source and the official (season-stripped) title.
type EpisodeMeta struct {
	Homepage      *url.URL
	PosterSrc     *url.URL
	OfficialTitle string
}

// ParseEpisodeMetaFromHomepage fetches and scrapes a Mikan episode homepage
// for its poster (div.bangumi-poster background-image) and official title
// (p.bangumi-title), grounded on
// original_source/crates/recorder/src/parsers/mikan_ep_parser.rs. Returns
// (nil, nil) when no title could be extracted, matching the original's
// Option<MikanEpisodeMeta> return.
func ParseEpisodeMetaFromHomepage(ctx context.Context, client *fetch.Client, homepage *url.URL) (*EpisodeMeta, error) {
	body, err := client.Get(ctx, homepage.String())
	if err != nil {
		return nil, err
	}

	doc, err := nethtml.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	var posterStyle, officialTitleRaw string
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode {
			switch {
			case n.Data == "div" && hasClass(n, "bangumi-poster"):
				posterStyle = attr(n, "style")
			case n.Data == "p" && hasClass(n, "bangumi-title"):
				officialTitleRaw = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	title := strings.TrimSpace(titleSeasonRegex.ReplaceAllString(html.UnescapeString(officialTitleRaw), ""))
	if title == "" {
		return nil, nil
	}

	meta := &EpisodeMeta{Homepage: homepage, OfficialTitle: title}

	if m := backgroundImageURLRegex.FindStringSubmatch(posterStyle); m != nil {
		rawURL := m[1]
		if rawURL == "" {
			rawURL = m[2]
		}
		if rawURL == "" {
			rawURL = m[3]
		}
		origin := &url.URL{Scheme: homepage.Scheme, Host: homepage.Host}
		if posterURL, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
			resolved := origin.ResolveReference(posterURL)
			resolved.RawQuery = ""
			meta.PosterSrc = resolved
		}
	}

	return meta, nil
}
