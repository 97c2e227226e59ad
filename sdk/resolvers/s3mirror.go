// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package resolvers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/elpelech/kagglehub/sdk/cache"
	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/utils"
)

// MirrorStore is the slice of the S3 client the mirror resolver needs:
// paginated listing and per-object download. Implemented by *config.S3Client.
type MirrorStore interface {
	ListFilesAll(ctx context.Context, bucket, prefix string) ([]config.S3File, error)
	WalkPrefix(ctx context.Context, bucket, prefix string, pageSize int32, fn func(obj s3types.Object) error) error
	DownloadFileWithProgress(ctx context.Context, bucket, key, localPath string, hook *config.ProgressHook) error
}

// S3MirrorResolver serves resources from an S3-compatible mirror keyed by
// the same cache-key layout as the local cache. Registered between the
// environment caches and the HTTP fallback: preferred over the public API
// when a mirror is configured, e.g. inside an air-gapped cluster.
type S3MirrorResolver struct {
	s3 MirrorStore
}

func NewS3MirrorResolver(s3 MirrorStore) *S3MirrorResolver {
	return &S3MirrorResolver{s3: s3}
}

func (r *S3MirrorResolver) Name() string { return "s3-mirror" }

func (r *S3MirrorResolver) IsSupported(env config.Environment, _ handle.ResourceHandle) bool {
	return r.s3 != nil && env.Mirror.Configured()
}

// Resolve mirrors the bucket prefix for the handle into the local cache. An
// empty prefix is a committed NotFoundError: the mirror is authoritative for
// what it claims to carry, and the chain must not fall back to the public
// API behind the operator's back.
func (r *S3MirrorResolver) Resolve(ctx context.Context, env config.Environment, h handle.ResourceHandle) (string, error) {
	if path, ok := cache.CompletedEntry(env, h); ok {
		return path, nil
	}

	bucket := env.Mirror.Bucket
	prefix := h.CacheKey() + "/"

	objects, err := r.s3.ListFilesAll(ctx, bucket, prefix)
	if err != nil {
		return "", &kerrors.BackendError{Message: fmt.Sprintf("mirror listing failed for s3://%s/%s: %v", bucket, prefix, err)}
	}
	if len(objects) == 0 {
		return "", &kerrors.NotFoundError{
			Message: fmt.Sprintf("mirror s3://%s/%s carries no objects for %s", bucket, prefix, h.URL()),
		}
	}

	staging, err := cache.NewStagingDir(env)
	if err != nil {
		return "", err
	}

	var totalBytes int64
	for _, obj := range objects {
		totalBytes += obj.Size
	}
	utils.Infof("Mirroring %d file(s) from s3://%s/%s", len(objects), bucket, prefix)
	gp := &utils.GlobalProgress{TotalKnown: totalBytes > 0, TotalBytes: totalBytes}

	err = r.s3.WalkPrefix(ctx, bucket, prefix, 1000, func(obj s3types.Object) error {
		key := aws.ToString(obj.Key)
		relative := strings.TrimPrefix(key, prefix)
		target := filepath.Join(staging, filepath.FromSlash(relative))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create local directory: %w", err)
		}

		var prevWritten int64
		hook := &config.ProgressHook{
			OnProgress: func(_ string, written, _ int64) {
				if delta := written - prevWritten; delta > 0 {
					gp.Add(delta)
					gp.Render(false)
				}
				prevWritten = written
			},
		}
		return r.s3.DownloadFileWithProgress(ctx, bucket, key, target, hook)
	})
	if err != nil {
		cache.Discard(staging)
		return "", &kerrors.BackendError{Message: fmt.Sprintf("mirror download failed for %s: %v", h.URL(), err)}
	}
	gp.Done()

	final := cache.EntryPath(env, h)
	if err := cache.Promote(staging, final); err != nil {
		cache.Discard(staging)
		return "", err
	}
	if err := cache.WriteMarker(env, h); err != nil {
		return "", err
	}
	return final, nil
}
