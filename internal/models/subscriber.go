// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package models

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/domain"
)

// SubscriberStore is the repository for the subscribers table, the tenant
// root entity of spec.md section 3 invariant 1.
type SubscriberStore struct{ *Store }

func (s *SubscriberStore) scan(row pgx.Row) (*domain.Subscriber, error) {
	sub := &domain.Subscriber{}
	err := row.Scan(&sub.ID, &sub.PID, &sub.DisplayName, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("SubscriberStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("SubscriberStore.scan", apperrors.KindInternal, err)
	}
	return sub, nil
}

// GetByID loads a subscriber by its primary key.
func (s *SubscriberStore) GetByID(ctx context.Context, id int) (*domain.Subscriber, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pid, display_name, created_at, updated_at
		FROM subscribers WHERE id = $1`, id)
	return s.scan(row)
}

// GetByPID loads a subscriber by its stable external identifier (the auth
// login name, e.g. "konobangu" for the seeded Basic-auth row).
func (s *SubscriberStore) GetByPID(ctx context.Context, pid string) (*domain.Subscriber, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pid, display_name, created_at, updated_at
		FROM subscribers WHERE pid = $1`, pid)
	return s.scan(row)
}

// Create inserts a new subscriber.
func (s *SubscriberStore) Create(ctx context.Context, pid, displayName string) (*domain.Subscriber, error) {
	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO subscribers (pid, display_name) VALUES ($1, $2)
		RETURNING id, pid, display_name, created_at, updated_at`, pid, displayName)
	sub, err := s.scan(row)
	if apperrors.IsUniqueViolation(err) {
		return nil, apperrors.New("SubscriberStore.Create", apperrors.KindConflict, err)
	}
	return sub, err
}
