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

// Credential3rdStore is the repository for the credential_3rds table.
// Encryption happens here, not in the caller: Create/Update take plaintext
// and store ciphertext; Get/List return the row with ciphertext columns
// still encrypted, and DecryptSecrets is called explicitly by whichever
// boundary needs the plaintext for a single RPC (spec.md section 4.C,
// design note "credential lifetime").
type Credential3rdStore struct{ *Store }

// PlaintextSecrets holds the decrypted form of a Credential3rd's secret
// columns, scoped to the stack of whichever function requested it.
type PlaintextSecrets struct {
	Cookies  *string
	Username *string
	Password *string
}

func (s *Credential3rdStore) scan(row pgx.Row) (*domain.Credential3rd, error) {
	c := &domain.Credential3rd{}
	err := row.Scan(&c.ID, &c.SubscriberID, &c.CredentialType, &c.Cookies, &c.Username,
		&c.Password, &c.UserAgent, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New("Credential3rdStore.scan", apperrors.KindNotFound, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.New("Credential3rdStore.scan", apperrors.KindInternal, err)
	}
	return c, nil
}

// GetByID loads a credential row (ciphertext columns still encrypted),
// verifying it belongs to subscriberID per spec.md section 3 invariant 1.
func (s *Credential3rdStore) GetByID(ctx context.Context, subscriberID, id int) (*domain.Credential3rd, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subscriber_id, credential_type, cookies, username, password, user_agent, created_at, updated_at
		FROM credential_3rds WHERE id = $1 AND subscriber_id = $2`, id, subscriberID)
	return s.scan(row)
}

// ListBySubscriber returns every credential owned by subscriberID.
func (s *Credential3rdStore) ListBySubscriber(ctx context.Context, subscriberID int) ([]*domain.Credential3rd, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subscriber_id, credential_type, cookies, username, password, user_agent, created_at, updated_at
		FROM credential_3rds WHERE subscriber_id = $1 ORDER BY id`, subscriberID)
	if err != nil {
		return nil, apperrors.New("Credential3rdStore.ListBySubscriber", apperrors.KindInternal, err)
	}
	defer rows.Close()

	var out []*domain.Credential3rd
	for rows.Next() {
		c := &domain.Credential3rd{}
		if err := rows.Scan(&c.ID, &c.SubscriberID, &c.CredentialType, &c.Cookies, &c.Username,
			&c.Password, &c.UserAgent, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperrors.New("Credential3rdStore.ListBySubscriber", apperrors.KindInternal, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// encryptOptional encrypts a plaintext pointer if non-nil, matching the
// GraphQL input-hook contract described in spec.md section 4.C.
func (s *Credential3rdStore) encryptOptional(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	ciphertext, err := s.encryptor.Encrypt(*plaintext)
	if err != nil {
		return nil, apperrors.New("Credential3rdStore.encryptOptional", apperrors.KindInternal, err)
	}
	return &ciphertext, nil
}

// Create encrypts the given plaintext secrets and inserts a new credential row.
func (s *Credential3rdStore) Create(ctx context.Context, subscriberID int, credentialType domain.CredentialType,
	secrets PlaintextSecrets, userAgent *string) (*domain.Credential3rd, error) {

	cookies, err := s.encryptOptional(secrets.Cookies)
	if err != nil {
		return nil, err
	}
	username, err := s.encryptOptional(secrets.Username)
	if err != nil {
		return nil, err
	}
	password, err := s.encryptOptional(secrets.Password)
	if err != nil {
		return nil, err
	}

	row := s.db.Writer().QueryRow(ctx, `
		INSERT INTO credential_3rds (subscriber_id, credential_type, cookies, username, password, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, subscriber_id, credential_type, cookies, username, password, user_agent, created_at, updated_at`,
		subscriberID, credentialType, cookies, username, password, userAgent)
	return s.scan(row)
}

// Update re-encrypts and overwrites whichever plaintext secrets are non-nil
// in secrets, leaving the rest of the row untouched.
func (s *Credential3rdStore) Update(ctx context.Context, subscriberID, id int, secrets PlaintextSecrets, userAgent *string) (*domain.Credential3rd, error) {
	cookies, err := s.encryptOptional(secrets.Cookies)
	if err != nil {
		return nil, err
	}
	username, err := s.encryptOptional(secrets.Username)
	if err != nil {
		return nil, err
	}
	password, err := s.encryptOptional(secrets.Password)
	if err != nil {
		return nil, err
	}

	row := s.db.Writer().QueryRow(ctx, `
		UPDATE credential_3rds SET
			cookies = COALESCE($3, cookies),
			username = COALESCE($4, username),
			password = COALESCE($5, password),
			user_agent = COALESCE($6, user_agent)
		WHERE id = $1 AND subscriber_id = $2
		RETURNING id, subscriber_id, credential_type, cookies, username, password, user_agent, created_at, updated_at`,
		id, subscriberID, cookies, username, password, userAgent)
	return s.scan(row)
}

// Delete removes a credential row. Subscriptions referencing it have
// credential_id set to NULL by the schema's ON DELETE SET NULL (spec.md
// design note "cyclic references").
func (s *Credential3rdStore) Delete(ctx context.Context, subscriberID, id int) error {
	_, err := s.db.Writer().Exec(ctx, `DELETE FROM credential_3rds WHERE id = $1 AND subscriber_id = $2`, id, subscriberID)
	if err != nil {
		return apperrors.New("Credential3rdStore.Delete", apperrors.KindInternal, err)
	}
	return nil
}

// DecryptSecrets decrypts a credential's ciphertext columns into a
// PlaintextSecrets scoped to the caller's own stack frame. Callers must not
// persist or cache the result; re-decrypt on each use (spec.md design note
// "credential lifetime").
func (s *Credential3rdStore) DecryptSecrets(c *domain.Credential3rd) (PlaintextSecrets, error) {
	decrypt := func(ciphertext *string) (*string, error) {
		if ciphertext == nil {
			return nil, nil
		}
		plaintext, err := s.encryptor.Decrypt(*ciphertext)
		if err != nil {
			return nil, apperrors.New("Credential3rdStore.DecryptSecrets", apperrors.KindInternal, err)
		}
		return &plaintext, nil
	}

	cookies, err := decrypt(c.Cookies)
	if err != nil {
		return PlaintextSecrets{}, err
	}
	username, err := decrypt(c.Username)
	if err != nil {
		return PlaintextSecrets{}, err
	}
	password, err := decrypt(c.Password)
	if err != nil {
		return PlaintextSecrets{}, err
	}

	return PlaintextSecrets{Cookies: cookies, Username: username, Password: password}, nil
}
