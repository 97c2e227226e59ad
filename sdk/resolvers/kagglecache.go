// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package resolvers provides the resolution strategies registered in the
// per-kind chains: platform-mounted caches, an optional S3 mirror, and the
// universal authenticated HTTP fallback.
package resolvers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
)

// KaggleCacheResolver serves resources already mounted by the hosted
// notebook platform. It never touches the network and never materializes
// missing data.
type KaggleCacheResolver struct{}

func (KaggleCacheResolver) Name() string { return "kaggle-cache" }

func kaggleMountPath(env config.Environment, h handle.ResourceHandle) string {
	return filepath.Join(env.KaggleInputRoot, h.Name)
}

// IsSupported probes the environment marker and the expected mount path.
// Both checks are cheap stats with no side effects.
func (KaggleCacheResolver) IsSupported(env config.Environment, h handle.ResourceHandle) bool {
	if env.KernelRunType == "" || env.KaggleInputRoot == "" {
		return false
	}
	_, err := os.Stat(kaggleMountPath(env, h))
	return err == nil
}

// Resolve validates the mount and returns it. A mount that vanished or is
// empty despite the marker is a committed NotFoundError: the chain must not
// silently substitute a different source for data the platform claims to
// have mounted.
func (KaggleCacheResolver) Resolve(_ context.Context, env config.Environment, h handle.ResourceHandle) (string, error) {
	return resolveMount(kaggleMountPath(env, h), h)
}

func resolveMount(mount string, h handle.ResourceHandle) (string, error) {
	info, err := os.Stat(mount)
	if err != nil {
		return "", &kerrors.NotFoundError{
			Message: fmt.Sprintf("expected mounted path %s for %s is missing", mount, h.URL()),
		}
	}
	if info.IsDir() {
		entries, err := os.ReadDir(mount)
		if err != nil || len(entries) == 0 {
			return "", &kerrors.NotFoundError{
				Message: fmt.Sprintf("mounted path %s for %s is empty", mount, h.URL()),
			}
		}
	}
	return mount, nil
}
