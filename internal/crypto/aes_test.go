// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNanoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		length int
	}{
		{name: "feed token length", length: 10},
		{name: "task id length", length: 20},
		{name: "object storage key length", length: 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := GenerateNanoID(tt.length)
			require.NoError(t, err)
			assert.Len(t, id, tt.length)
			for _, r := range id {
				assert.Contains(t, nanoIDAlphabet, string(r), "id contains a character outside the nanoid alphabet")
			}
		})
	}
}

func TestGenerateNanoID_Uniqueness(t *testing.T) {
	t.Parallel()

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateNanoID(20)
		require.NoError(t, err)
		assert.False(t, ids[id], "duplicate id generated")
		ids[id] = true
	}
}

func TestNewAESEncryptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keyLen  int
		wantErr error
	}{
		{
			name:    "valid 32 byte key",
			keyLen:  32,
			wantErr: nil,
		},
		{
			name:    "too short key",
			keyLen:  16,
			wantErr: ErrInvalidKeySize,
		},
		{
			name:    "too long key",
			keyLen:  64,
			wantErr: ErrInvalidKeySize,
		},
		{
			name:    "empty key",
			keyLen:  0,
			wantErr: ErrInvalidKeySize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key := make([]byte, tt.keyLen)
			encryptor, err := NewAESEncryptor(key)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, encryptor)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, encryptor)
			}
		})
	}
}

func TestAESEncryptor_EncryptDecrypt(t *testing.T) {
	t.Parallel()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	encryptor, err := NewAESEncryptor(key)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{
			name:      "simple text",
			plaintext: "hello world",
		},
		{
			name:      "empty string",
			plaintext: "",
		},
		{
			name:      "unicode content",
			plaintext: "ã“ã‚“ã«ã¡ã¯ä¸–ç•Œ ðŸŒ Ã©mojis",
		},
		{
			name:      "long text",
			plaintext: "This is a much longer piece of text that spans multiple blocks and tests the encryption of larger data sets to ensure everything works correctly.",
		},
		{
			name:      "special characters",
			plaintext: "!@#$%^&*()_+-=[]{}|;':\",./<>?`~",
		},
		{
			name:      "newlines and tabs",
			plaintext: "line1\nline2\ttab\r\nwindows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ciphertext, err := encryptor.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, ciphertext, "ciphertext should differ from plaintext")

			decrypted, err := encryptor.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestAESEncryptor_EncryptProducesDifferentCiphertext(t *testing.T) {
	t.Parallel()

	key := make([]byte, 32)
	encryptor, err := NewAESEncryptor(key)
	require.NoError(t, err)

	plaintext := "same plaintext"
	ciphertexts := make(map[string]bool)

	// Encrypt the same plaintext multiple times
	for i := 0; i < 10; i++ {
		ciphertext, err := encryptor.Encrypt(plaintext)
		require.NoError(t, err)
		assert.False(t, ciphertexts[ciphertext], "same ciphertext produced twice (nonce reuse)")
		ciphertexts[ciphertext] = true
	}
}

func TestAESEncryptor_DecryptErrors(t *testing.T) {
	t.Parallel()

	key := make([]byte, 32)
	encryptor, err := NewAESEncryptor(key)
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext string
		wantErr    error
	}{
		{
			name:       "invalid base64",
			ciphertext: "not-valid-base64!@#$",
			wantErr:    nil, // will return base64 decode error
		},
		{
			name:       "too short ciphertext",
			ciphertext: "YWJj", // "abc" in base64, too short for nonce
			wantErr:    ErrMalformedCiphertext,
		},
		{
			name:       "empty string",
			ciphertext: "",
			wantErr:    nil, // will return base64 or malformed error
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := encryptor.Decrypt(tt.ciphertext)
			assert.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAESEncryptor_TamperedCiphertext(t *testing.T) {
	t.Parallel()

	key := make([]byte, 32)
	encryptor, err := NewAESEncryptor(key)
	require.NoError(t, err)

	// Encrypt something
	ciphertext, err := encryptor.Encrypt("secret data")
	require.NoError(t, err)

	// Tamper with the ciphertext by changing a character
	// First decode, tamper, then re-encode
	decoded := make([]byte, len(ciphertext))
	copy(decoded, []byte(ciphertext))
	if len(decoded) > 10 {
		decoded[10] ^= 0xFF // flip bits
	}
	tampered := string(decoded)

	// Try to decrypt tampered data - should fail
	_, err = encryptor.Decrypt(tampered)
	// The error type depends on where the tampering occurred,
	// but it should definitely error
	assert.Error(t, err)
}

func TestAESEncryptor_DifferentKeysCannotDecrypt(t *testing.T) {
	t.Parallel()

	key1 := make([]byte, 32)
	key2 := make([]byte, 32)
	key2[0] = 1 // Different key

	encryptor1, err := NewAESEncryptor(key1)
	require.NoError(t, err)

	encryptor2, err := NewAESEncryptor(key2)
	require.NoError(t, err)

	// Encrypt with key1
	ciphertext, err := encryptor1.Encrypt("secret")
	require.NoError(t, err)

	// Try to decrypt with key2 - should fail
	_, err = encryptor2.Decrypt(ciphertext)
	assert.Error(t, err)
}
