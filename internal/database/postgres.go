// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	// Register pgx as a database/sql driver, used only by the migration
	// runner below (migrations run as plain SQL batches, not through pgx's
	// native interface, so database/sql's simpler transaction API is enough).
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationAdvisoryLockID = 922337203685477000

func newPostgres(dsn string, opts OpenOptions) (*DB, error) {
	log.Info().Msg("initializing postgres database")

	writerCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	maxConns := int32(opts.MaxOpenConns)
	if maxConns <= 0 {
		maxConns = 25
	}
	connMaxLifetime := opts.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	writerCfg.MaxConns = maxConns
	writerCfg.MaxConnLifetime = connMaxLifetime

	ctx, cancel := context.WithTimeout(context.Background(), connectionSetupTimeout)
	defer cancel()

	writer, err := pgxpool.NewWithConfig(ctx, writerCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres writer pool: %w", err)
	}
	if err := writer.Ping(ctx); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping postgres writer pool: %w", err)
	}

	readerCfg := writerCfg.Copy()
	reader, err := pgxpool.NewWithConfig(ctx, readerCfg)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open postgres reader pool: %w", err)
	}
	if err := reader.Ping(ctx); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("ping postgres reader pool: %w", err)
	}

	db := &DB{
		dialect: DialectPostgres,
		writer:  writer,
		reader:  reader,
	}

	if err := migrate(dsn); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	return db, nil
}

// migrate applies embedded migrations/*.sql files in lexical order, guarded
// by a transaction-scoped advisory lock so concurrent recorder instances
// booting against the same database don't race each other.
func migrate(dsn string) error {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer conn.Close()

	ctx := context.Background()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", int64(migrationAdvisoryLockID)); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, filename := range files {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = $1", filename).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", filename, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + filename)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filename, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", filename); err != nil {
			return fmt.Errorf("record migration %s: %w", filename, err)
		}

		log.Info().Str("migration", filename).Msg("applied database migration")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit postgres migrations: %w", err)
	}
	return nil
}
