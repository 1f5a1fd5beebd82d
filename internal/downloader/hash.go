// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package downloader

import (
	"crypto/sha1"
	"fmt"
	"net/url"
	"strings"

	"github.com/zeebo/bencode"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/pkg/hashutil"
)

// MagnetFormatError is returned when a magnet URI carries no recognizable
// BitTorrent info-hash in its xt parameter.
type MagnetFormatError struct {
	Magnet string
}

func (e *MagnetFormatError) Error() string {
	return fmt.Sprintf("magnet %q: no btih info-hash in xt parameter", e.Magnet)
}

// TorrentMetaError is returned when .torrent bytes cannot be bencode-decoded
// or are missing an "info" dictionary.
type TorrentMetaError struct {
	Cause error
}

func (e *TorrentMetaError) Error() string {
	return fmt.Sprintf("torrent metainfo: %v", e.Cause)
}

func (e *TorrentMetaError) Unwrap() error { return e.Cause }

// HashFromMagnet extracts and canonicalizes the 40-hex-char info-hash from a
// magnet URI's xt=urn:btih:<hash> parameter.
func HashFromMagnet(magnet string) (string, error) {
	u, err := url.Parse(magnet)
	if err != nil {
		return "", apperrors.New("downloader.HashFromMagnet", apperrors.KindFormat, &MagnetFormatError{Magnet: magnet})
	}

	for _, xt := range u.Query()["xt"] {
		const prefix = "urn:btih:"
		if strings.HasPrefix(xt, prefix) {
			hash := strings.TrimPrefix(xt, prefix)
			if hash != "" {
				return hashutil.NormalizeUpper(hash), nil
			}
		}
	}

	return "", apperrors.New("downloader.HashFromMagnet", apperrors.KindFormat, &MagnetFormatError{Magnet: magnet})
}

// rawMetainfo captures just enough of a .torrent file's bencode structure to
// recompute its info-hash: the raw, still-encoded "info" dictionary.
type rawMetainfo struct {
	Info bencode.RawMessage `bencode:"info"`
}

// HashFromTorrentBytes decodes raw .torrent bytes and derives the canonical
// 40-hex-char info-hash as SHA-1 of the bencoded "info" dictionary.
func HashFromTorrentBytes(data []byte) (string, error) {
	var meta rawMetainfo
	if err := bencode.DecodeBytes(data, &meta); err != nil {
		return "", apperrors.New("downloader.HashFromTorrentBytes", apperrors.KindFormat, &TorrentMetaError{Cause: err})
	}
	if len(meta.Info) == 0 {
		return "", apperrors.New("downloader.HashFromTorrentBytes", apperrors.KindFormat, &TorrentMetaError{Cause: fmt.Errorf("missing info dictionary")})
	}

	sum := sha1.Sum(meta.Info)
	return hashutil.NormalizeUpper(fmt.Sprintf("%x", sum)), nil
}
