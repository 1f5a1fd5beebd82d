// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/domain"
)

func TestWithContextFromContext(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	info := &UserInfo{Subscriber: &domain.Subscriber{ID: 1, PID: "konobangu"}}
	ctx := WithContext(context.Background(), info)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, info, got)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "valid bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "missing", header: "", want: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "bearer with no token", header: "Bearer ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, bearerToken(r))
		})
	}
}

func TestAuthenticateNoCredentials(t *testing.T) {
	t.Parallel()

	s := New(nil, &domain.Config{}, nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := s.Authenticate(context.Background(), r)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestAuthenticateBasicRejectsWrongCredentials(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	s := New(nil, &domain.Config{AuthBasicUsername: "admin", AuthBasicPasswordHash: hash}, nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("admin", "wrong-password")

	_, authErr := s.Authenticate(context.Background(), r)
	require.Error(t, authErr)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(authErr))
}

func TestAuthenticateBasicRejectsWhenUnconfigured(t *testing.T) {
	t.Parallel()

	s := New(nil, &domain.Config{}, nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("admin", "anything")

	_, err := s.Authenticate(context.Background(), r)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
}

func TestAuthenticateOIDCWithoutProviderFails(t *testing.T) {
	t.Parallel()

	s := New(nil, &domain.Config{}, nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer some-token")

	_, err := s.Authenticate(context.Background(), r)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
}
