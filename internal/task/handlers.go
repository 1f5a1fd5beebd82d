// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/dumtruck/konobangu/internal/apperrors"
	"github.com/dumtruck/konobangu/internal/domain"
	"github.com/dumtruck/konobangu/internal/models"
	"github.com/dumtruck/konobangu/internal/subscription"
)

// Handler processes one acquired task row and returns a JSON-marshalable
// result or an error. Errors are classified via apperrors so the worker can
// decide retry vs terminal failure the same way for every handler (spec.md
// section 7 propagation policy).
type Handler func(ctx context.Context, t *domain.Task) (any, error)

// SubscriberTaskHandler dispatches SubscriberTaskPayload.TaskType to the
// matching subscription.Subscription verb (spec.md section 4.H/4.G).
func SubscriberTaskHandler(store *models.Store, deps subscription.Deps) Handler {
	return func(ctx context.Context, t *domain.Task) (any, error) {
		var payload domain.SubscriberTaskPayload
		if err := json.Unmarshal(t.Job, &payload); err != nil {
			return nil, apperrors.New("SubscriberTaskHandler", apperrors.KindFormat, err)
		}

		row, err := store.SubscriptionStore().GetByID(ctx, payload.SubscriberID, payload.SubscriptionID)
		if err != nil {
			return nil, err
		}

		sub, err := subscription.FromRow(deps, row)
		if err != nil {
			return nil, err
		}

		switch payload.TaskType {
		case domain.SubscriberTaskSyncFeedsIncremental:
			err = sub.SyncFeedsIncremental(ctx)
		case domain.SubscriberTaskSyncFeedsFull:
			err = sub.SyncFeedsFull(ctx)
		case domain.SubscriberTaskSyncSources:
			err = sub.SyncSources(ctx)
		default:
			err = apperrors.New("SubscriberTaskHandler", apperrors.KindFormat,
				fmt.Errorf("unknown subscriber task type %q", payload.TaskType))
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"taskType": payload.TaskType, "subscriptionId": payload.SubscriptionID}, nil
	}
}

// SystemTaskHandler dispatches SystemTaskPayload.TaskType; currently only
// OptimizeImage exists (spec.md section 4.H).
func SystemTaskHandler() Handler {
	return func(ctx context.Context, t *domain.Task) (any, error) {
		var payload domain.SystemTaskPayload
		if err := json.Unmarshal(t.Job, &payload); err != nil {
			return nil, apperrors.New("SystemTaskHandler", apperrors.KindFormat, err)
		}

		switch payload.TaskType {
		case domain.SystemTaskOptimizeImage:
			if payload.OptimizeImage == nil {
				return nil, apperrors.New("SystemTaskHandler", apperrors.KindFormat,
					fmt.Errorf("optimize_image task missing options"))
			}
			return nil, optimizeImage(*payload.OptimizeImage)
		default:
			return nil, apperrors.New("SystemTaskHandler", apperrors.KindFormat,
				fmt.Errorf("unknown system task type %q", payload.TaskType))
		}
	}
}

// optimizeImage re-encodes sourcePath to targetPath in the requested format,
// implementing the OptimizeImage system task payload of spec.md section 4.H
// (the image-optimization worker is otherwise out of scope per spec.md
// section 1, "specified only through the system-task payload shape").
func optimizeImage(opts domain.OptimizeImageOptions) error {
	src, err := os.Open(opts.SourcePath)
	if err != nil {
		return apperrors.New("optimizeImage", apperrors.KindNotFound, err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return apperrors.New("optimizeImage", apperrors.KindFormat, err)
	}

	var buf bytes.Buffer
	quality := opts.Quality
	if quality <= 0 {
		quality = 85
	}
	switch strings.ToLower(opts.Format) {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return apperrors.New("optimizeImage", apperrors.KindInternal, err)
		}
	case "jpeg", "jpg", "":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return apperrors.New("optimizeImage", apperrors.KindInternal, err)
		}
	default:
		return apperrors.New("optimizeImage", apperrors.KindFormat, fmt.Errorf("unsupported format %q", opts.Format))
	}

	if err := os.WriteFile(opts.TargetPath, buf.Bytes(), 0o644); err != nil {
		return apperrors.New("optimizeImage", apperrors.KindInternal, err)
	}
	return nil
}
