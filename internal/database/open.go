// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package database

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dumtruck/konobangu/internal/domain"
)

// OpenOptions configures the Postgres connection. A pre-built DSN takes
// precedence over the individual Host/Port/User/... fields.
type OpenOptions struct {
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	ConnectTimeout  time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres and runs embedded migrations.
func Open(opts OpenOptions) (*DB, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		dsn = buildPostgresDSN(opts)
	}
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	return newPostgres(dsn, opts)
}

// OpenFromConfig builds OpenOptions from the loaded recorder configuration.
func OpenFromConfig(cfg *domain.Config) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	return Open(OpenOptions{
		DSN:             cfg.DatabaseDSN,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUser,
		Password:        cfg.DatabasePassword,
		Database:        cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		ConnectTimeout:  cfg.DatabaseConnectTimeout,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	})
}

func buildPostgresDSN(opts OpenOptions) string {
	host := strings.TrimSpace(opts.Host)
	user := strings.TrimSpace(opts.User)
	dbName := strings.TrimSpace(opts.Database)
	if host == "" || user == "" || dbName == "" {
		return ""
	}

	port := opts.Port
	if port <= 0 {
		port = 5432
	}

	sslMode := strings.TrimSpace(opts.SSLMode)
	if sslMode == "" {
		sslMode = "disable"
	}

	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout/time.Second)))

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, opts.Password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + dbName,
		RawQuery: q.Encode(),
	}

	return u.String()
}
