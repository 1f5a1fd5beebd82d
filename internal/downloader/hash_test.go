// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package downloader

import (
	"testing"

	"github.com/zeebo/bencode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFromMagnet(t *testing.T) {
	hash, err := HashFromMagnet("magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=example")
	require.NoError(t, err)
	assert.Equal(t, "C12FE1C06BBA254A9DC9F519B335AA7C1367A88A", hash)
}

func TestHashFromMagnetMissingXT(t *testing.T) {
	_, err := HashFromMagnet("magnet:?dn=example")
	assert.Error(t, err)
	var magErr *MagnetFormatError
	assert.ErrorAs(t, err, &magErr)
}

func TestHashFromMagnetMalformedURI(t *testing.T) {
	_, err := HashFromMagnet("magnet:?xt=urn:btih:")
	assert.Error(t, err)
}

func TestHashFromTorrentBytes(t *testing.T) {
	info := map[string]any{
		"name":         "example.mkv",
		"piece length": 16384,
		"pieces":       "aaaaaaaaaaaaaaaaaaaa",
		"length":       1024,
	}
	infoBytes, err := bencode.EncodeBytes(info)
	require.NoError(t, err)

	metainfo := map[string]any{
		"announce": "udp://tracker.example:80",
		"info":     bencode.RawMessage(infoBytes),
	}
	data, err := bencode.EncodeBytes(metainfo)
	require.NoError(t, err)

	hash, err := HashFromTorrentBytes(data)
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	// Re-deriving from the same info dict is deterministic.
	hash2, err := HashFromTorrentBytes(data)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)
}

func TestHashFromTorrentBytesMissingInfo(t *testing.T) {
	data, err := bencode.EncodeBytes(map[string]any{"announce": "udp://tracker.example:80"})
	require.NoError(t, err)

	_, err = HashFromTorrentBytes(data)
	assert.Error(t, err)
	var metaErr *TorrentMetaError
	assert.ErrorAs(t, err, &metaErr)
}

func TestHashFromTorrentBytesInvalidBencode(t *testing.T) {
	_, err := HashFromTorrentBytes([]byte("not bencode"))
	assert.Error(t, err)
}

func TestSelectorIsHashOnly(t *testing.T) {
	assert.True(t, Selector{Hashes: []string{"abc"}}.IsHashOnly())
	assert.False(t, Selector{Hashes: []string{"abc"}, Query: map[string]string{"category": "anime"}}.IsHashOnly())
	assert.False(t, Selector{}.IsHashOnly())
	assert.False(t, Selector{Query: map[string]string{"category": "anime"}}.IsHashOnly())
}
