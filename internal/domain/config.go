// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package domain holds configuration and value types shared across the
// recorder without depending on any concrete storage or transport package.
package domain

import "time"

// Config represents the application configuration, loaded by internal/config
// from the YAML search path described in spec.md section 6 and overridden by
// environment variables.
type Config struct {
	Version string `mapstructure:"-"`

	Host    string `mapstructure:"host"`
	BaseURL string `mapstructure:"baseUrl"`
	Port    int    `mapstructure:"port"`

	SessionSecret   string `mapstructure:"sessionSecret"`
	EncryptionKeyHex string `mapstructure:"encryptionKey"`

	LogLevel      string `mapstructure:"logLevel"`
	LogPath       string `mapstructure:"logPath"`
	LogMaxSize    int    `mapstructure:"logMaxSize"`
	LogMaxBackups int    `mapstructure:"logMaxBackups"`

	DataDir string `mapstructure:"dataDir"`

	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
	MetricsHost    string `mapstructure:"metricsHost"`
	MetricsPort    int    `mapstructure:"metricsPort"`

	OIDCEnabled             bool   `mapstructure:"oidcEnabled"`
	OIDCDisableBuiltInLogin bool   `mapstructure:"oidcDisableBuiltInLogin"`
	OIDCIssuer              string `mapstructure:"oidcIssuer"`
	OIDCClientID            string `mapstructure:"oidcClientId"`
	OIDCClientSecret        string `mapstructure:"oidcClientSecret"`
	OIDCRedirectURL         string `mapstructure:"oidcRedirectUrl"`

	// AuthBasicUsername/AuthBasicPasswordHash are the single configured
	// credential pair for HTTP Basic auth. There is no password column
	// anywhere in the schema (see auths table); the password lives only in
	// configuration as an argon2id hash (internal/auth.HashPassword),
	// matching original_source's AuthConfig::Basic(config).
	AuthBasicUsername     string `mapstructure:"authBasicUsername"`
	AuthBasicPasswordHash string `mapstructure:"authBasicPasswordHash"`

	DatabaseDSN             string        `mapstructure:"databaseDsn"`
	DatabaseHost            string        `mapstructure:"databaseHost"`
	DatabasePort            int           `mapstructure:"databasePort"`
	DatabaseUser            string        `mapstructure:"databaseUser"`
	DatabasePassword        string        `mapstructure:"databasePassword"`
	DatabaseName            string        `mapstructure:"databaseName"`
	DatabaseSSLMode         string        `mapstructure:"databaseSslMode"`
	DatabaseConnectTimeout  time.Duration `mapstructure:"databaseConnectTimeout"`
	DatabaseMaxOpenConns    int           `mapstructure:"databaseMaxOpenConns"`
	DatabaseMaxIdleConns    int           `mapstructure:"databaseMaxIdleConns"`
	DatabaseConnMaxLifetime time.Duration `mapstructure:"databaseConnMaxLifetime"`

	Task       TaskConfig       `mapstructure:"task"`
	Mikan      MikanConfig      `mapstructure:"mikan"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
}

// DownloaderConfig selects and configures the torrent-downloader backend
// that newly extracted episodes are dispatched to (spec.md section 2's data
// flow: "feed (F) when sync_sources runs"; SPEC_FULL.md resolves the exact
// dispatch point to episode extraction itself — see DESIGN.md). Backend is
// one of "qbittorrent", "rqbit", or "none" (the default: extraction runs
// without dispatching downloads, e.g. for RSS-only deployments).
type DownloaderConfig struct {
	Backend  string `mapstructure:"backend"`
	SavePath string `mapstructure:"savePath"`
	Category string `mapstructure:"category"`

	QBittorrentHost     string `mapstructure:"qbittorrentHost"`
	QBittorrentUsername string `mapstructure:"qbittorrentUsername"`
	QBittorrentPassword string `mapstructure:"qbittorrentPassword"`

	RqbitBaseURL string `mapstructure:"rqbitBaseUrl"`
}

// DefaultDownloaderConfig disables download dispatch until an operator opts
// into a backend.
func DefaultDownloaderConfig() DownloaderConfig {
	return DownloaderConfig{
		Backend:  "none",
		SavePath: "/downloads",
		Category: "konobangu",
	}
}

// TaskConfig controls worker pool concurrency and timeouts for the task
// queue and cron engine (spec.md section 4.H / 4.I).
type TaskConfig struct {
	SubscriberTaskConcurrency int           `mapstructure:"subscriberTaskConcurrency"`
	SystemTaskConcurrency     int           `mapstructure:"systemTaskConcurrency"`
	SubscriberTaskTimeout     time.Duration `mapstructure:"subscriberTaskTimeout"`
	SystemTaskTimeout         time.Duration `mapstructure:"systemTaskTimeout"`
	CronRetryDuration         time.Duration `mapstructure:"cronRetryDuration"`
}

// MikanConfig configures the Mikan HTTP fetch client owner (spec.md 4.B/4.D).
type MikanConfig struct {
	BaseURL                       string        `mapstructure:"baseUrl"`
	UserAgent                     string        `mapstructure:"userAgent"`
	ExponentialBackoffMaxRetries  uint32        `mapstructure:"exponentialBackoffMaxRetries"`
	LeakyBucketMaxTokens          int           `mapstructure:"leakyBucketMaxTokens"`
	LeakyBucketInitialTokens      int           `mapstructure:"leakyBucketInitialTokens"`
	LeakyBucketRefillTokens       int           `mapstructure:"leakyBucketRefillTokens"`
	LeakyBucketRefillInterval     time.Duration `mapstructure:"leakyBucketRefillInterval"`
	CacheBackend                  string        `mapstructure:"cacheBackend"` // "none" | "moka"
	CacheSize                     int           `mapstructure:"cacheSize"`
	CachePreset                   string        `mapstructure:"cachePreset"` // "none" | "rfc7234"
}

// DefaultTaskConfig mirrors original_source/apps/recorder/src/task/config.rs:
// concurrency defaults to max(physical_cpus/2, 1), timeouts default to 1h,
// cron retry defaults to 5s.
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		SubscriberTaskConcurrency: 0, // resolved at runtime from runtime.NumCPU if zero
		SystemTaskConcurrency:     0,
		SubscriberTaskTimeout:     time.Hour,
		SystemTaskTimeout:         time.Hour,
		CronRetryDuration:         5 * time.Second,
	}
}

// DefaultMikanConfig mirrors the fetch-client defaults of spec.md section 4.B.
func DefaultMikanConfig() MikanConfig {
	return MikanConfig{
		BaseURL:                      "https://mikanani.me",
		UserAgent:                    "konobangu-recorder/1.0",
		ExponentialBackoffMaxRetries: 3,
		LeakyBucketMaxTokens:         5,
		LeakyBucketInitialTokens:     5,
		LeakyBucketRefillTokens:      1,
		LeakyBucketRefillInterval:    time.Second,
		CacheBackend:                 "moka",
		CacheSize:                    1024,
		CachePreset:                  "rfc7234",
	}
}
