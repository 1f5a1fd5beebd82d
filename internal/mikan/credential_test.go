// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package mikan

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dumtruck/konobangu/internal/fetch"
)

func TestCheckCredentialAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantAvail bool
	}{
		{
			name: "valid session sees bangumi listing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "sess=abc123", r.Header.Get("Cookie"))
				w.Write([]byte("<html><body>MyBangumi</body></html>"))
			},
			wantAvail: true,
		},
		{
			name: "expired session bounces to login",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html><body>UserLogin form</body></html>"))
			},
			wantAvail: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client, err := fetch.New("mikan-test", fetch.Options{})
			require.NoError(t, err)

			base, err := url.Parse(srv.URL)
			require.NoError(t, err)

			available, err := CheckCredentialAvailable(t.Context(), client, base, "sess=abc123")
			require.NoError(t, err)
			require.Equal(t, tt.wantAvail, available)
		})
	}
}

func TestCheckCredentialAvailableUnreachableHostIsUnavailable(t *testing.T) {
	t.Parallel()

	client, err := fetch.New("mikan-test", fetch.Options{})
	require.NoError(t, err)

	base, err := url.Parse("http://127.0.0.1:1")
	require.NoError(t, err)

	available, err := CheckCredentialAvailable(t.Context(), client, base, "")
	require.NoError(t, err)
	require.False(t, available)
}
