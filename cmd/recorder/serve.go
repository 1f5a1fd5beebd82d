// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dumtruck/konobangu/internal/api"
	"github.com/dumtruck/konobangu/internal/auth"
	"github.com/dumtruck/konobangu/internal/config"
	"github.com/dumtruck/konobangu/internal/cron"
	"github.com/dumtruck/konobangu/internal/database"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/downloader"
	"github.com/dumtruck/konobangu/internal/downloader/qbittorrent"
	"github.com/dumtruck/konobangu/internal/downloader/rqbit"
	"github.com/dumtruck/konobangu/internal/fetch"
	gql "github.com/dumtruck/konobangu/internal/graphql"
	"github.com/dumtruck/konobangu/internal/metrics"
	"github.com/dumtruck/konobangu/internal/models"
	"github.com/dumtruck/konobangu/internal/storage"
	"github.com/dumtruck/konobangu/internal/subscription"
	"github.com/dumtruck/konobangu/internal/task"
)

// runServeCommand is the sole operational subcommand (spec.md section 6:
// "recorder serve" as the default/only command), wiring every boundary
// collaborator described in SPEC_FULL.md section 4.K.
func runServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recorder HTTP server, task worker pool and cron engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	configureLogger(cfg)

	db, err := database.OpenFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	encryptionKey, err := decodeEncryptionKey(cfg.EncryptionKeyHex)
	if err != nil {
		return fmt.Errorf("decode encryption key: %w", err)
	}
	store, err := models.NewStore(db, encryptionKey)
	if err != nil {
		return fmt.Errorf("construct model store: %w", err)
	}

	objectStore, err := storage.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("construct object store: %w", err)
	}

	mikanBase, err := url.Parse(cfg.Mikan.BaseURL)
	if err != nil {
		return fmt.Errorf("parse mikan base url: %w", err)
	}
	mikanClient, err := fetch.New("mikan", fetch.Options{
		UserAgent:                    cfg.Mikan.UserAgent,
		ExponentialBackoffMaxRetries: cfg.Mikan.ExponentialBackoffMaxRetries,
		LeakyBucket: fetch.LeakyBucketOptions{
			MaxTokens:      cfg.Mikan.LeakyBucketMaxTokens,
			InitialTokens:  cfg.Mikan.LeakyBucketInitialTokens,
			RefillTokens:   cfg.Mikan.LeakyBucketRefillTokens,
			RefillInterval: cfg.Mikan.LeakyBucketRefillInterval,
		},
		CachePreset: mikanCachePreset(cfg.Mikan),
		CacheSize:   cfg.Mikan.CacheSize,
	})
	if err != nil {
		return fmt.Errorf("construct mikan fetch client: %w", err)
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	authService, err := buildAuthService(ctx, store, cfg)
	if err != nil {
		return fmt.Errorf("construct auth service: %w", err)
	}

	torrentDownloader, err := buildDownloader(ctx, cfg.Downloader)
	if err != nil {
		return fmt.Errorf("construct downloader: %w", err)
	}

	subDeps := subscription.Deps{
		Store:            store,
		MikanClient:      mikanClient,
		MikanBase:        mikanBase,
		ObjectStore:      objectStore,
		Downloader:       torrentDownloader,
		DownloadSavePath: cfg.Downloader.SavePath,
		DownloadCategory: cfg.Downloader.Category,
	}

	workerID := workerIdentity()
	queue := task.NewQueue(store)
	pool := task.NewPool(store, cfg.Task, workerID, collector,
		task.SubscriberTaskHandler(store, subDeps),
		task.SystemTaskHandler(),
	)
	cronEngine := cron.New(db, store, queue, workerID, cfg.Task.CronRetryDuration, collector)

	resolver := &gql.Resolver{Store: store, Queue: queue, SubDeps: subDeps}

	router, err := api.NewRouter(&api.Dependencies{
		Config:      cfg,
		Store:       store,
		AuthService: authService,
		ObjectStore: objectStore,
		Metrics:     collector,
		GraphQL:     resolver,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("recorder: http server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return cronEngine.Run(gctx) })

	if cfg.MetricsEnabled && collector != nil {
		metricsServer := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.MetricsHost, cfg.MetricsPort),
			Handler: collector.Handler(),
		}
		g.Go(func() error {
			log.Info().Str("addr", metricsServer.Addr).Msg("recorder: metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("recorder: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	return nil
}

// configureLogger sets the global zerolog level and a console writer in
// development, matching the teacher's boot-time logging convention.
func configureLogger(cfg *domain.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.Env() == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// decodeEncryptionKey parses Config.EncryptionKeyHex into AES-256 key bytes.
func decodeEncryptionKey(hexKey string) ([]byte, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, errors.New("encryptionKey is required")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryptionKey hex: %w", err)
	}
	return key, nil
}

func mikanCachePreset(cfg domain.MikanConfig) fetch.CachePreset {
	if cfg.CacheBackend == "none" || cfg.CachePreset == "none" {
		return fetch.CachePresetNone
	}
	return fetch.CachePresetRFC7234
}

// buildAuthService constructs the OIDC provider when enabled, per spec.md
// section 6's "OIDC discovery happens once at boot" requirement.
func buildAuthService(ctx context.Context, store *models.Store, cfg *domain.Config) (*auth.Service, error) {
	if !cfg.OIDCEnabled {
		return auth.New(store, cfg, nil), nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider %q: %w", cfg.OIDCIssuer, err)
	}
	return auth.New(store, cfg, provider), nil
}

// buildDownloader constructs the torrent-downloader backend named by
// DownloaderConfig.Backend (spec.md section 4.F). "none" (the default)
// disables download dispatch entirely; subscription.Deps.Downloader stays
// nil and extraction runs RSS-only.
func buildDownloader(ctx context.Context, cfg domain.DownloaderConfig) (downloader.Downloader, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, nil
	case "qbittorrent":
		return qbittorrent.New(ctx, cfg.QBittorrentHost, cfg.QBittorrentUsername, cfg.QBittorrentPassword)
	case "rqbit":
		return rqbit.New(cfg.RqbitBaseURL, cfg.SavePath)
	default:
		return nil, fmt.Errorf("unknown downloader backend %q", cfg.Backend)
	}
}

// workerIdentity derives a stable-enough lock_by value for this process,
// following the teacher's instance-identity convention of hostname+pid.
func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil {
		host = "recorder"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
