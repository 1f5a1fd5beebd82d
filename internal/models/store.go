// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package models is the repository layer: one Store type per entity family,
// grounded on the teacher's internal/models/instance.go pattern (a Store
// wrapping the database handle plus an encryption key, encrypt-on-write and
// decrypt-on-read around any at-rest secret, MarshalJSON/UnmarshalJSON
// redaction for anything serialized back to a client). This package keeps
// the Store wrapper and encrypt-on-write; reads return ciphertext and
// decryption is an explicit Credential3rdStore.DecryptSecrets call, and no
// type here defines MarshalJSON/UnmarshalJSON.
package models

import (
	"github.com/dumtruck/konobangu/internal/crypto"
	"github.com/dumtruck/konobangu/internal/database"
)

// Store is embedded by every entity-specific store in this package.
type Store struct {
	db        *database.DB
	encryptor *crypto.AESEncryptor
}

// NewStore builds the shared store state. encryptionKey must be 32 bytes
// (AES-256-GCM), matching internal/crypto.NewAESEncryptor.
func NewStore(db *database.DB, encryptionKey []byte) (*Store, error) {
	encryptor, err := crypto.NewAESEncryptor(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, encryptor: encryptor}, nil
}

// SubscriberStore returns a store scoped to the subscribers table.
func (s *Store) SubscriberStore() *SubscriberStore { return &SubscriberStore{Store: s} }

// AuthStore returns a store scoped to the auths table.
func (s *Store) AuthStore() *AuthStore { return &AuthStore{Store: s} }

// Credential3rdStore returns a store scoped to the credential_3rds table.
func (s *Store) Credential3rdStore() *Credential3rdStore { return &Credential3rdStore{Store: s} }

// SubscriptionStore returns a store scoped to the subscriptions table.
func (s *Store) SubscriptionStore() *SubscriptionStore { return &SubscriptionStore{Store: s} }

// BangumiStore returns a store scoped to the bangumis table.
func (s *Store) BangumiStore() *BangumiStore { return &BangumiStore{Store: s} }

// EpisodeStore returns a store scoped to the episodes table.
func (s *Store) EpisodeStore() *EpisodeStore { return &EpisodeStore{Store: s} }

// FeedStore returns a store scoped to the feeds table.
func (s *Store) FeedStore() *FeedStore { return &FeedStore{Store: s} }

// TaskStore returns a store scoped to the apalis_jobs table.
func (s *Store) TaskStore() *TaskStore { return &TaskStore{Store: s} }

// CronStore returns a store scoped to the cron table.
func (s *Store) CronStore() *CronStore { return &CronStore{Store: s} }
