// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package apperrors classifies errors into the seven kinds of spec.md
// section 7, following the teacher's models.sql_errors.go /
// validation_errors.go pattern of typed sentinel values checked with
// errors.Is/errors.As, specialized to a single Postgres backend.
package apperrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is one of the seven error kinds of spec.md section 7. It is attached
// to wrapped errors via Wrap/New and inspected at HTTP/GraphQL boundaries to
// pick a status code, and by the task worker to decide retry vs terminal
// failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindFormat
	KindAuth
	KindNotFound
	KindConflict
	KindTimeout
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFormat:
		return "format"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind, mirroring the teacher's style
// of small typed error values rather than a generic errors.New per call site.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error for a given op/kind.
func New(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind of err, walking the chain via errors.As; returns
// KindUnknown if err carries none.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// Postgres error codes relevant to classification. See
// https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsUniqueViolation reports whether err is a unique-constraint violation
// (spec.md section 7 kind 5, Conflict/Integrity).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign-key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// IsCheckViolation reports whether err is a check-constraint violation.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation
}

var (
	// ErrNotFound is returned by model lookups for an absent row.
	ErrNotFound = errors.New("entity not found")
	// ErrSubscriberMismatch is returned when a caller addresses an entity
	// owned by a different subscriber (spec.md section 3 invariant 1).
	ErrSubscriberMismatch = errors.New("entity does not belong to the active subscriber")
)
