// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/dumtruck/konobangu/internal/auth"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/feeds"
	gql "github.com/dumtruck/konobangu/internal/graphql"
	"github.com/dumtruck/konobangu/internal/metrics"
	"github.com/dumtruck/konobangu/internal/models"
	"github.com/dumtruck/konobangu/internal/storage"
)

// Dependencies holds every collaborator NewRouter needs, mirroring the
// teacher's internal/api.Dependencies shape (autobrr-qui's router.go).
type Dependencies struct {
	Config      *domain.Config
	Store       *models.Store
	AuthService *auth.Service
	ObjectStore *storage.Store
	Metrics     *metrics.Collector
	GraphQL     *gql.Resolver
}

// NewRouter builds the full HTTP surface: public feed/media reads, the
// authenticated GraphQL CRUD endpoint, health, and (if configured) metrics.
// Grounded on the teacher's internal/api/router.go composition order:
// global middleware first, then CORS, then route groups.
func NewRouter(deps *Dependencies) (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	allowedOrigins := []string{"*"}
	if deps.Config.BaseURL != "" {
		allowedOrigins = []string{deps.Config.BaseURL}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": deps.Config.Version})
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// Token-addressed RSS feed reads (spec.md section 3 invariant 7): the
	// token itself is the authorization, so this route sits outside the
	// Authenticate middleware entirely.
	r.Route("/feeds", func(r chi.Router) {
		r.Get("/rss/{token}", handleFeedRSS(deps))
	})

	// Object storage serve contract (spec.md section 6): media is served
	// under the subscriber-scoped path the storage package generates.
	r.Route("/media", func(r chi.Router) {
		r.Get("/*", handleMediaServe(deps))
	})

	if deps.GraphQL != nil {
		graphqlHandler, err := gql.NewHandler(deps.GraphQL)
		if err != nil {
			return nil, err
		}
		r.Route("/api", func(r chi.Router) {
			r.Use(Authenticate(deps.AuthService))
			r.Handle("/graphql", graphqlHandler)
		})
	}

	return r, nil
}

func handleFeedRSS(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := ParseStringParam(w, r, "token", "feed token")
		if !ok {
			return
		}

		feed, err := deps.Store.FeedStore().GetByToken(r.Context(), token)
		if err != nil {
			RespondAppError(w, err)
			return
		}

		apiBase := strings.TrimRight(deps.Config.BaseURL, "/")
		body, err := feeds.Render(r.Context(), deps.Store, feed, apiBase)
		if err != nil {
			log.Warn().Err(err).Str("token", token).Msg("api: feed render failed")
			RespondAppError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func handleMediaServe(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relPath := chi.URLParam(r, "*")
		if relPath == "" || strings.Contains(relPath, "..") {
			RespondError(w, http.StatusBadRequest, "invalid media path")
			return
		}

		f, err := deps.ObjectStore.Open(relPath)
		if err != nil {
			RespondAppError(w, err)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := io.Copy(w, f); err != nil {
			log.Error().Err(err).Str("path", relPath).Msg("api: media serve failed")
		}
	}
}
