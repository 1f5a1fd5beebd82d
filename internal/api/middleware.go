// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dumtruck/konobangu/internal/auth"
)

// Authenticate wraps every request through auth.Service.Authenticate and
// attaches the resolved auth.UserInfo via auth.WithContext. Unlike the
// teacher's IsAuthenticated, there is no session store or setup flow here:
// every request carries its own Basic or bearer credential (spec.md
// section 4.K / 6), so authentication is stateless per request.
func Authenticate(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := authService.Authenticate(r.Context(), r)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("api: authentication failed")
				w.Header().Set("WWW-Authenticate", `Basic realm="konobangu"`)
				RespondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := auth.WithContext(r.Context(), info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
