// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package mikan

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dumtruck/konobangu/internal/fetch"
)

// accountIndicatorPath is a Mikan page only reachable with a live session
// cookie; an expired or absent session bounces the request to the login
// form instead of serving bangumi listings. The original_source graphql
// layer calls a Credential3rdType::check_available that never survived
// retrieval, so this availability probe is original work grounded on the
// same cookie-forking contract fetch.Client.ForkWithAuth already documents.
const accountIndicatorPath = "/"

// loginFormMarker appears in Mikan's login page markup but never in a
// logged-in response, distinguishing an accepted session from a rejected
// one without needing a dedicated API endpoint.
const loginFormMarker = "UserLogin"

// CheckCredentialAvailable reports whether cookies still authenticate
// against Mikan by fetching accountIndicatorPath through a forked client
// carrying only those cookies, then checking the response isn't the login
// page. A transport error also counts as unavailable rather than failing
// the whole request (spec.md section 6 mutation credential3rdCheckAvailable
// only reports a boolean).
func CheckCredentialAvailable(ctx context.Context, client *fetch.Client, base *url.URL, cookies string) (bool, error) {
	forked, err := client.ForkWithAuth(parseCookieHeader(base, cookies), base.String())
	if err != nil {
		return false, err
	}

	probeURL := *base
	probeURL.Path = accountIndicatorPath
	body, err := forked.Get(ctx, probeURL.String())
	if err != nil {
		return false, nil
	}

	return !strings.Contains(string(body), loginFormMarker), nil
}

// parseCookieHeader splits a "k=v; k2=v2" cookie header string (the form
// Credential3rd.Cookies is stored in) into *http.Cookie values, the same
// shape fetch.Client.ForkWithAuth expects; base is not used here, since
// ForkWithAuth itself scopes the cookies to the URL it is given.
func parseCookieHeader(base *url.URL, header string) []*http.Cookie {
	if header == "" {
		return nil
	}
	req := &http.Request{Header: http.Header{"Cookie": {header}}}
	return req.Cookies()
}
