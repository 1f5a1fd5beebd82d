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

// AuthStore is the repository for the auths table: the login-identity ->
// subscriber binding of spec.md section 3/4.L (Basic or OIDC).
type AuthStore struct{ *Store }

func (s *AuthStore) scan(row pgx.Row) (*domain.Auth, error) {
	a := &domain.Auth{}
	err := row.Scan(&a.ID, &a.PID, &a.AuthType, &a.SubscriberID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("AuthStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("AuthStore.scan", apperrors.KindInternal, err)
	}
	return a, nil
}

// GetByPIDAndType finds the auth row identifying a login, e.g. the Basic
// username or the OIDC subject claim.
func (s *AuthStore) GetByPIDAndType(ctx context.Context, pid string, authType domain.AuthType) (*domain.Auth, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pid, auth_type, subscriber_id, created_at, updated_at
		FROM auths WHERE pid = $1 AND auth_type = $2`, pid, authType)
	return s.scan(row)
}

// ListBySubscriber returns every login identity bound to a subscriber.
func (s *AuthStore) ListBySubscriber(ctx context.Context, subscriberID int) ([]*domain.Auth, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pid, auth_type, subscriber_id, created_at, updated_at
		FROM auths WHERE subscriber_id = $1 ORDER BY id`, subscriberID)
	if err != nil {
		return nil, apperrors.New("AuthStore.ListBySubscriber", apperrors.KindInternal, err)
	}
	defer rows.Close()

	var auths []*domain.Auth
	for rows.Next() {
		a := &domain.Auth{}
		if err := rows.Scan(&a.ID, &a.PID, &a.AuthType, &a.SubscriberID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, apperrors.New("AuthStore.ListBySubscriber", apperrors.KindInternal, err)
		}
		auths = append(auths, a)
	}
	return auths, rows.Err()
}

// Create binds a new login identity to a subscriber.
func (s *AuthStore) Create(ctx context.Context, pid string, authType domain.AuthType, subscriberID int) (*domain.Auth, error) {
	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO auths (pid, auth_type, subscriber_id) VALUES ($1, $2, $3)
		RETURNING id, pid, auth_type, subscriber_id, created_at, updated_at`, pid, authType, subscriberID)
	a, err := s.scan(row)
	if apperrors.IsUniqueViolation(err) {
		return nil, apperrors.New("AuthStore.Create", apperrors.KindConflict, err)
	}
	return a, err
}
