// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package storage implements the local-filesystem object store consumed by
// the Mikan poster pipeline and the OptimizeImage system task, per spec.md
// section 6: "an object store rooted at {config.data_dir}. Object paths are
// of the form {subscriber_id}/{category}/{bucket}/{uuid}{ext}." Out of scope
// per spec.md section 1 beyond this read/write/serve contract.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/crypto"
)

// Store is a local-filesystem object store rooted at Root.
type Store struct {
	Root string
}

// New returns a Store rooted at root, creating it if absent.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.New("storage.New", apperrors.KindInternal, err)
	}
	return &Store{Root: root}, nil
}

// ObjectPath builds the {subscriber_id}/{category}/{bucket}/{uuid}{ext}
// relative path described by spec.md section 6.
func ObjectPath(subscriberID int, category, bucket, ext string) (string, error) {
	id, err := crypto.GenerateNanoID(21)
	if err != nil {
		return "", apperrors.New("storage.ObjectPath", apperrors.KindInternal, err)
	}
	return filepath.Join(fmt.Sprintf("%d", subscriberID), category, bucket, id+ext), nil
}

// Write stores data at the given relative path, creating parent directories
// as needed.
func (s *Store) Write(relPath string, data []byte) error {
	full := filepath.Join(s.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return apperrors.New("storage.Write", apperrors.KindInternal, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return apperrors.New("storage.Write", apperrors.KindInternal, err)
	}
	return nil
}

// Read loads the object at relPath.
func (s *Store) Read(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New("storage.Read", apperrors.KindNotFound, apperrors.ErrNotFound)
		}
		return nil, apperrors.New("storage.Read", apperrors.KindInternal, err)
	}
	return data, nil
}

// Open returns a reader for relPath, for streaming serves over HTTP.
func (s *Store) Open(relPath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New("storage.Open", apperrors.KindNotFound, apperrors.ErrNotFound)
		}
		return nil, apperrors.New("storage.Open", apperrors.KindInternal, err)
	}
	return f, nil
}

// URLPath returns the public URL path a router should expose relPath at.
func (s *Store) URLPath(relPath string) string {
	return "/media/" + filepath.ToSlash(relPath)
}
