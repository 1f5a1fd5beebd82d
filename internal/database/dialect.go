// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package database

// Dialect identifies the SQL dialect in use. The recorder only ever speaks
// Postgres (LISTEN/NOTIFY, JSONB path operators and enum types are all
// Postgres-specific and are relied on directly by the cron engine and the
// task queue's promoted columns), but the type is kept so error messages and
// future backends have a stable place to hang off of.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) String() string {
	return string(d)
}
