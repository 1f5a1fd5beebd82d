// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package fetch implements the per-owner HTTP client contract of spec.md
// section 4.B: retrying, rate-limited, optionally-caching, with a
// per-request cookie fork for multi-tenant credential isolation.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/dumtruck/konobangu/internal/apperrors"
)

// Options mirrors the recognized fetch-client options of spec.md section 4.B.
type Options struct {
	UserAgent                   string
	ExponentialBackoffMaxRetries uint32
	LeakyBucket                 LeakyBucketOptions
	CachePreset                 CachePreset
	CacheSize                   int
}

// CachePreset selects response-caching behavior.
type CachePreset int

const (
	CachePresetNone CachePreset = iota
	CachePresetRFC7234
)

// Client is a single shared HTTP wrapper constructed once per owner (e.g.
// once for Mikan), matching the teacher's per-service client construction
// pattern in internal/qbittorrent.NewClient.
type Client struct {
	owner      string
	httpClient *http.Client
	userAgent  string
	maxRetries uint32
	limiter    *leakyBucket
	cache      *lru.Cache[string, cachedResponse]
	cachePreset CachePreset
}

type cachedResponse struct {
	body      []byte
	expiresAt time.Time
}

// New constructs a Client for the given owner name (used only in logs/error
// context).
func New(owner string, opts Options) (*Client, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "konobangu-recorder/1.0"
	}
	maxRetries := opts.ExponentialBackoffMaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	c := &Client{
		owner: owner,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent:   userAgent,
		maxRetries:  maxRetries,
		limiter:     newLeakyBucket(opts.LeakyBucket),
		cachePreset: opts.CachePreset,
	}

	if opts.CachePreset != CachePresetNone {
		size := opts.CacheSize
		if size <= 0 {
			size = 1024
		}
		cache, err := lru.New[string, cachedResponse](size)
		if err != nil {
			return nil, fmt.Errorf("construct fetch cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// ForkWithAuth returns a detached Client sharing the underlying transport,
// rate limiter and cache, but with its own cookie jar — so per-subscriber
// credentials (spec.md section 5) never leak across requests.
func (c *Client) ForkWithAuth(cookies []*http.Cookie, baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("construct cookie jar: %w", err)
	}

	forked := *c
	forkedHTTP := *c.httpClient
	forkedHTTP.Jar = jar
	forked.httpClient = &forkedHTTP

	if len(cookies) > 0 && baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			jar.SetCookies(u, cookies)
		}
	}

	return &forked, nil
}

// Get fetches url and returns the response body, honoring the rate limiter,
// retry policy and (if enabled) the response cache. The rate limiter
// acquires exactly one token per outgoing request before any retry attempts,
// per spec.md section 4.B.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(url); ok && time.Now().Before(cached.expiresAt) {
			return cached.body, nil
		}
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, apperrors.New("fetch.Get", apperrors.KindTimeout, fmt.Errorf("%s: rate limiter: %w", url, err))
	}

	var body []byte
	var ttl time.Duration

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", c.userAgent)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("%s: %w", url, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("%s: transient status %d", url, resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("%s: status %d", url, resp.StatusCode))
			}

			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%s: read body: %w", url, err)
			}
			body = b
			ttl = cacheTTLFromHeaders(resp.Header, c.cachePreset)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxJitter(250*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Str("owner", c.owner).Uint("attempt", n).Err(err).Msg("retrying fetch")
		}),
	)
	if err != nil {
		return nil, apperrors.New("fetch.Get", apperrors.KindTransport, err)
	}

	if c.cache != nil && ttl > 0 {
		c.cache.Add(url, cachedResponse{body: body, expiresAt: time.Now().Add(ttl)})
	}

	return body, nil
}

func cacheTTLFromHeaders(h http.Header, preset CachePreset) time.Duration {
	if preset != CachePresetRFC7234 {
		return 0
	}
	if cc := h.Get("Cache-Control"); cc != "" {
		if d, ok := maxAgeFromCacheControl(cc); ok {
			return d
		}
	}
	if exp := h.Get("Expires"); exp != "" {
		if t, err := http.ParseTime(exp); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}
	return 0
}

