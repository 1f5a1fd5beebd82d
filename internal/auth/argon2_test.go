// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultArgon2Params(t *testing.T) {
	t.Parallel()

	params := DefaultArgon2Params()

	assert.Equal(t, uint32(64*1024), params.Memory)
	assert.Equal(t, uint32(3), params.Iterations)
	assert.Equal(t, uint8(2), params.Parallelism)
	assert.Equal(t, uint32(16), params.SaltLength)
	assert.Equal(t, uint32(32), params.KeyLength)
}

func TestHashPasswordFormat(t *testing.T) {
	t.Parallel()

	for _, password := range []string{"password123", "", strings.Repeat("a", 1000), "пароль密码🔐", "!@#$%^&*()"} {
		hash, err := HashPassword(password)
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v="))
		assert.Len(t, strings.Split(hash, "$"), 6)
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		hash, err := HashPassword("same-password")
		require.NoError(t, err)
		assert.False(t, seen[hash], "salt reuse produced a duplicate hash")
		seen[hash] = true
	}
}

func TestVerifyPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	for _, password := range []string{"password123", "", "пароль密码🔐"} {
		hash, err := HashPassword(password)
		require.NoError(t, err)

		ok, err := VerifyPassword(password, hash)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = VerifyPassword(password+"wrong", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr string
	}{
		{name: "empty hash", hash: "", wantErr: "invalid hash format"},
		{name: "too few parts", hash: "$argon2id$v=19$salt$hash", wantErr: "invalid hash format"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA", wantErr: "incompatible hash algorithm"},
		{name: "wrong version", hash: "$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA", wantErr: "incompatible argon2 version"},
		{name: "invalid parameters", hash: "$argon2id$v=19$invalid$c2FsdA$aGFzaA", wantErr: "failed to parse parameters"},
		{name: "invalid salt", hash: "$argon2id$v=19$m=65536,t=3,p=2$!!!invalid!!$aGFzaA", wantErr: "failed to decode salt"},
		{name: "invalid hash bytes", hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$!!!invalid!!", wantErr: "failed to decode hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := VerifyPassword("password", tt.hash)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeHashExtractsParams(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("test-password")
	require.NoError(t, err)

	params, salt, hashBytes, err := decodeHash(hash)
	require.NoError(t, err)

	defaults := DefaultArgon2Params()
	assert.Equal(t, defaults.Memory, params.Memory)
	assert.Equal(t, defaults.Iterations, params.Iterations)
	assert.Equal(t, defaults.Parallelism, params.Parallelism)
	assert.Len(t, salt, int(defaults.SaltLength))
	assert.Len(t, hashBytes, int(defaults.KeyLength))
}

func TestDecodeHashErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr string
	}{
		{name: "too few parts", hash: "$argon2id$v=19$m=65536", wantErr: "invalid hash format"},
		{name: "wrong algorithm", hash: "$scrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA", wantErr: "incompatible hash algorithm"},
		{name: "missing version prefix", hash: "$argon2id$19$m=65536,t=3,p=2$c2FsdA$aGFzaA", wantErr: "failed to parse version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, _, err := decodeHash(tt.hash)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
