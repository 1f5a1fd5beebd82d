// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package mikan

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/webp"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/fetch"
	"github.com/dumtruck/konobangu/internal/storage"
)

// FetchPoster downloads originPosterSrc through the (subscriber-forked)
// Mikan fetch client and stores it under the subscriber's poster bucket,
// re-encoding to JPEG so downstream consumers (the RSS republisher's poster
// links, the GraphQL bangumi type) always see one stable format regardless
// of Mikan's origin content type. Grounded on
// original_source/apps/recorder/src/media/service.rs's poster pipeline.
func FetchPoster(ctx context.Context, client *fetch.Client, store *storage.Store, subscriberID int, originPosterSrc string) (string, error) {
	body, err := client.Get(ctx, originPosterSrc)
	if err != nil {
		return "", err
	}

	img, format, err := decodeImage(body)
	if err != nil {
		return "", apperrors.New("mikan.FetchPoster", apperrors.KindFormat, fmt.Errorf("decode poster %q: %w", originPosterSrc, err))
	}
	_ = format

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", apperrors.New("mikan.FetchPoster", apperrors.KindInternal, fmt.Errorf("encode poster: %w", err))
	}

	relPath, err := storage.ObjectPath(subscriberID, "bangumi", "poster", ".jpg")
	if err != nil {
		return "", err
	}
	if err := store.Write(relPath, buf.Bytes()); err != nil {
		return "", err
	}

	return store.URLPath(relPath), nil
}

func decodeImage(data []byte) (image.Image, string, error) {
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, "webp", nil
	}
	return image.Decode(bytes.NewReader(data))
}
