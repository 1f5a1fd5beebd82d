// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const connectionSetupTimeout = 10 * time.Second

// DB wraps a writer pool and a reader pool over the same Postgres database.
// The split mirrors the teacher's reader/writer separation in
// internal/database/db.go, but both pools here are pgxpool.Pool rather than
// database/sql, since the cron engine needs native LISTEN/NOTIFY
// (pgxpool.Pool.Acquire + conn.Conn().WaitForNotification) that database/sql
// cannot express.
type DB struct {
	dialect Dialect

	writer *pgxpool.Pool
	reader *pgxpool.Pool
}

// Tx wraps a pgx.Tx so callers don't import pgx directly outside this package.
type Tx struct {
	pgx.Tx
}

// Dialect reports the SQL dialect in use (always DialectPostgres).
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Writer returns the pool used for INSERT/UPDATE/DELETE and transactions.
func (db *DB) Writer() *pgxpool.Pool {
	return db.writer
}

// Reader returns the pool used for read-only SELECT queries.
func (db *DB) Reader() *pgxpool.Pool {
	return db.reader
}

// ExecContext runs a statement against the writer pool.
func (db *DB) ExecContext(ctx context.Context, sql string, args ...any) error {
	_, err := db.writer.Exec(ctx, sql, args...)
	return err
}

// QueryContext runs a read-only query against the reader pool.
func (db *DB) QueryContext(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.reader.Query(ctx, sql, args...)
}

// QueryRowContext runs a read-only single-row query against the reader pool.
func (db *DB) QueryRowContext(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.reader.QueryRow(ctx, sql, args...)
}

// BeginTx starts a transaction on the writer pool.
func (db *DB) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := db.writer.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{Tx: tx}, nil
}

// AcquireListenerConn checks out a dedicated writer-pool connection for use
// with LISTEN/NOTIFY. Callers must call Release on the returned connection's
// pgxpool.Conn once finished (see internal/cron for the consumer).
func (db *DB) AcquireListenerConn(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := db.writer.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener connection: %w", err)
	}
	return conn, nil
}

// Close releases both pools.
func (db *DB) Close() {
	log.Info().Msg("closing postgres connection pools")
	db.writer.Close()
	db.reader.Close()
}
