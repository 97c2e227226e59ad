// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package cache manages the local content cache: deterministic entry
// locations keyed by resource identity, completion markers, and the
// staging-then-rename protocol that keeps partial downloads invisible.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/utils"
)

// EntryPath returns the directory a completed entry for h lives in (whether
// or not it exists yet). The same handle always maps to the same path.
func EntryPath(env config.Environment, h handle.ResourceHandle) string {
	return filepath.Join(env.CacheRoot, filepath.FromSlash(h.CacheKey()))
}

func markerPath(env config.Environment, h handle.ResourceHandle) string {
	return EntryPath(env, h) + utils.CompleteMarkerSuffix
}

// CompletedEntry reports whether a valid, fully verified entry exists for h
// and returns its path. Only the completion marker makes an entry reusable.
func CompletedEntry(env config.Environment, h handle.ResourceHandle) (string, bool) {
	p := EntryPath(env, h)
	if _, err := os.Stat(markerPath(env, h)); err != nil {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// NewStagingDir creates a fresh download staging directory under the cache
// root. Staging directories live on the same filesystem as final entries so
// promotion is a single rename.
func NewStagingDir(env config.Environment) (string, error) {
	dir := filepath.Join(env.CacheRoot, ".staging", utils.UUIDv4NoDash())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

// Promote atomically moves a fully verified staging directory to the final
// entry path. If another resolution for the same key won the race, the
// staging copy is discarded; content is immutable per version, so either
// outcome is correct.
func Promote(staging, final string) error {
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		if _, statErr := os.Stat(final); statErr == nil {
			Discard(staging)
			return nil
		}
		return fmt.Errorf("failed to promote cache entry: %w", err)
	}
	return nil
}

// WriteMarker records that the entry for h is complete. It must be the last
// step of a resolution: the marker is what makes the entry visible.
func WriteMarker(env config.Environment, h handle.ResourceHandle) error {
	if err := os.WriteFile(markerPath(env, h), []byte{}, 0o644); err != nil {
		return fmt.Errorf("failed to write completion marker: %w", err)
	}
	return nil
}

// Discard removes a staging directory, best effort.
func Discard(staging string) {
	if staging == "" {
		return
	}
	if err := os.RemoveAll(staging); err != nil {
		utils.Warnf("Failed to remove staging directory %s: %v", staging, err)
	}
}
