// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package resolvers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/elpelech/kagglehub/sdk/cache"
	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/utils"
)

// maxConcurrentFileDownloads bounds the worker tasks downloading the
// constituent files of one resource.
const maxConcurrentFileDownloads = 4

// HTTPResolver downloads resources through the hub API into the local
// content cache. It is the lowest-common-denominator strategy and must be
// registered last in every chain.
type HTTPResolver struct {
	api config.ApiHTTP
}

func NewHTTPResolver(api config.ApiHTTP) *HTTPResolver {
	return &HTTPResolver{api: api}
}

func (r *HTTPResolver) Name() string { return "http" }

// IsSupported always claims support: with network access and credentials the
// HTTP resolver can serve any handle.
func (r *HTTPResolver) IsSupported(config.Environment, handle.ResourceHandle) bool {
	return true
}

type resourceMetadata struct {
	CurrentVersionNumber int `json:"currentVersionNumber"`
}

type fileManifestEntry struct {
	Name        string `json:"name"`
	TotalBytes  int64  `json:"totalBytes"`
	MD5Checksum string `json:"md5Checksum"`
	URL         string `json:"url"`
}

type fileManifestPage struct {
	Files         []fileManifestEntry `json:"files"`
	NextPageToken string              `json:"nextPageToken"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, env config.Environment, h handle.ResourceHandle) (string, error) {
	// content-cache fast path: a completed entry needs no network at all
	if path, ok := cache.CompletedEntry(env, h); ok {
		return path, nil
	}

	version := h.Version
	if version == "" {
		resolved, err := r.resolveLatestVersion(ctx, h)
		if err != nil {
			return "", err
		}
		version = resolved
	}

	files, err := r.fetchFileManifest(ctx, h, version)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", kerrors.NewNotFoundError(h.URL())
	}

	staging, err := cache.NewStagingDir(env)
	if err != nil {
		return "", err
	}

	utils.Infof("Downloading %d file(s) for %s", len(files), h)
	if err := r.downloadAll(ctx, files, staging); err != nil {
		cache.Discard(staging)
		return "", err
	}

	if err := expandArchives(files, staging); err != nil {
		cache.Discard(staging)
		return "", err
	}

	final := cache.EntryPath(env, h)
	if err := cache.Promote(staging, final); err != nil {
		cache.Discard(staging)
		return "", err
	}
	// the marker is the last write: visibility implies completeness
	if err := cache.WriteMarker(env, h); err != nil {
		return "", err
	}
	return final, nil
}

// resolveLatestVersion asks the API which version "latest" currently points
// at for this resource.
func (r *HTTPResolver) resolveLatestVersion(ctx context.Context, h handle.ResourceHandle) (string, error) {
	url := r.api.BuildURL([]string{string(h.Kind), h.Owner, h.Name}, nil)
	body, _, err := r.api.Do(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	var meta resourceMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return "", &kerrors.BackendError{Message: fmt.Sprintf("malformed metadata response for %s: %v", h.URL(), err)}
	}
	if meta.CurrentVersionNumber <= 0 {
		return "", &kerrors.BackendError{Message: fmt.Sprintf("metadata response for %s carries no current version", h.URL())}
	}
	return strconv.Itoa(meta.CurrentVersionNumber), nil
}

// fetchFileManifest retrieves the full list of constituent files with sizes
// and checksums, following page tokens.
func (r *HTTPResolver) fetchFileManifest(ctx context.Context, h handle.ResourceHandle, version string) ([]fileManifestEntry, error) {
	var files []fileManifestEntry
	pageToken := ""
	for {
		params := map[string]string{"page_token": pageToken}
		url := r.api.BuildURL([]string{string(h.Kind), h.Owner, h.Name, "versions", version, "files"}, params)
		body, _, err := r.api.Do(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}
		var page fileManifestPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &kerrors.BackendError{Message: fmt.Sprintf("malformed file manifest for %s: %v", h.URL(), err)}
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// downloadAll fetches every file into the staging directory with a bounded
// worker pool and verifies size and checksum per file. All files must verify
// before the caller may promote.
func (r *HTTPResolver) downloadAll(ctx context.Context, files []fileManifestEntry, staging string) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentFileDownloads)
	for _, f := range files {
		f := f
		eg.Go(func() error {
			return r.downloadOne(ctx, f, staging)
		})
	}
	return eg.Wait()
}

func (r *HTTPResolver) downloadOne(ctx context.Context, f fileManifestEntry, staging string) error {
	target := filepath.Join(staging, filepath.FromSlash(f.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer out.Close()

	sum := md5.New()
	written, err := r.api.Download(ctx, f.URL, io.MultiWriter(out, sum))
	if err != nil {
		return err
	}

	if f.TotalBytes > 0 && written != f.TotalBytes {
		return &kerrors.DataCorruptionError{
			Message: fmt.Sprintf("size mismatch for %s: got %d bytes, manifest says %d", f.Name, written, f.TotalBytes),
		}
	}
	if f.MD5Checksum != "" {
		if got := hex.EncodeToString(sum.Sum(nil)); got != f.MD5Checksum {
			return &kerrors.DataCorruptionError{
				Message: fmt.Sprintf("checksum mismatch for %s: got %s, manifest says %s", f.Name, got, f.MD5Checksum),
			}
		}
	}
	return nil
}

// expandArchives unpacks bundle files (competition data arrives zipped) in
// place after verification, then drops the archive itself.
func expandArchives(files []fileManifestEntry, staging string) error {
	for _, f := range files {
		if !utils.IsArchive(f.Name) {
			continue
		}
		archivePath := filepath.Join(staging, filepath.FromSlash(f.Name))
		if _, err := utils.ExtractArchive(archivePath, filepath.Dir(archivePath)); err != nil {
			return &kerrors.DataCorruptionError{
				Message: fmt.Sprintf("failed to expand archive %s: %v", f.Name, err),
			}
		}
		if err := os.Remove(archivePath); err != nil {
			return fmt.Errorf("failed to remove expanded archive: %w", err)
		}
	}
	return nil
}
