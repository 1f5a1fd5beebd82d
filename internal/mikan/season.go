// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package mikan

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/dumtruck/konobangu/internal/apperrors"
)

// BangumiMeta is one card scraped from the season-flow page (spec.md
// section 4.D item 3).
type BangumiMeta struct {
	MikanBangumiID  string
	MikanFansubID   string
	BangumiTitle    string
	Fansub          string
	Homepage        string
	OriginPosterSrc string
}

// ParseSeasonFlow walks the BangumiCoverFlowByDayOfWeek HTML and yields one
// BangumiMeta per bangumi card. Cards are <li> elements under
// .sk-bangumi containing an <a class="an-text"> homepage link (which
// encodes bangumiId/subgroupid as query parameters) and an
// img.image.bangumi-poster with the poster source.
func ParseSeasonFlow(data []byte, baseURL *url.URL) ([]BangumiMeta, error) {
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, apperrors.New("mikan.ParseSeasonFlow", apperrors.KindFormat, err)
	}

	var metas []BangumiMeta
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inSection bool) {
		if n.Type == html.ElementNode {
			if hasClass(n, "sk-bangumi") {
				inSection = true
			}
			if inSection && n.Data == "li" {
				if meta, ok := extractBangumiCard(n, baseURL); ok {
					metas = append(metas, meta)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inSection)
		}
	}
	walk(doc, false)

	return metas, nil
}

func extractBangumiCard(li *html.Node, baseURL *url.URL) (BangumiMeta, bool) {
	var meta BangumiMeta
	var found bool

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "an-text"):
				href := attr(n, "href")
				if href != "" {
					meta.Homepage = resolveURL(baseURL, href)
					if u, err := url.Parse(href); err == nil {
						meta.MikanBangumiID = u.Query().Get(bangumiIDQueryKey)
						meta.MikanFansubID = u.Query().Get(fansubIDQueryKey)
					}
					meta.BangumiTitle = strings.TrimSpace(textContent(n))
					found = true
				}
			case n.Data == "img" && hasClass(n, "image"):
				if src := attr(n, "src"); src != "" {
					meta.OriginPosterSrc = resolveURL(baseURL, src)
				}
			case n.Data == "span" && hasClass(n, "fansub-name"):
				meta.Fansub = strings.TrimSpace(textContent(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(li)

	return meta, found && meta.MikanBangumiID != ""
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func resolveURL(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// BuildSeasonFlowURL builds /Home/BangumiCoverFlowByDayOfWeek?year=...&seasonStr=...
func BuildSeasonFlowURL(base *url.URL, year int, seasonStr string) *url.URL {
	u := *base
	u.Path = "/Home/BangumiCoverFlowByDayOfWeek"
	q := url.Values{}
	q.Set("year", fmt.Sprintf("%d", year))
	q.Set("seasonStr", seasonStr)
	u.RawQuery = q.Encode()
	return &u
}
