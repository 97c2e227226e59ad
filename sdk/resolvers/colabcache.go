// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package resolvers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
)

// ColabCacheResolver serves resources pre-mounted by a third-party hosted
// notebook environment. Same contract as KaggleCacheResolver, different
// marker and mount root.
type ColabCacheResolver struct{}

func (ColabCacheResolver) Name() string { return "colab-cache" }

func colabMountPath(env config.Environment, h handle.ResourceHandle) string {
	return filepath.Join(env.ColabInputRoot, h.Name)
}

func (ColabCacheResolver) IsSupported(env config.Environment, h handle.ResourceHandle) bool {
	if env.ColabReleaseTag == "" || env.ColabInputRoot == "" {
		return false
	}
	_, err := os.Stat(colabMountPath(env, h))
	return err == nil
}

func (ColabCacheResolver) Resolve(_ context.Context, env config.Environment, h handle.ResourceHandle) (string, error) {
	return resolveMount(colabMountPath(env, h), h)
}
