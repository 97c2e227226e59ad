// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/registry"
)

// Option adjusts a single download call.
type Option func(*callOptions)

type callOptions struct {
	baseDir string
}

// WithBaseDir overrides the cache root for this call. Path-producing
// operations take the base directory explicitly instead of reading ambient
// state, so there is nothing to save and restore afterwards.
func WithBaseDir(dir string) Option {
	return func(o *callOptions) { o.baseDir = dir }
}

// DatasetDownload resolves "owner/name[/version[/sub/path]]" to a local path
// and records it in the session manifest.
func (s *Service) DatasetDownload(ctx context.Context, ref string, opts ...Option) (string, error) {
	return s.download(ctx, s.datasets, handle.DatasetKind, ref, opts)
}

// ModelDownload resolves a model reference to a local path.
func (s *Service) ModelDownload(ctx context.Context, ref string, opts ...Option) (string, error) {
	return s.download(ctx, s.models, handle.ModelKind, ref, opts)
}

// CompetitionDownload resolves a competition reference to a local path.
func (s *Service) CompetitionDownload(ctx context.Context, ref string, opts ...Option) (string, error) {
	return s.download(ctx, s.competitions, handle.CompetitionKind, ref, opts)
}

func (s *Service) download(ctx context.Context, reg *registry.MultiImplRegistry, kind handle.ResourceKind, ref string, opts []Option) (string, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	h, err := handle.Parse(kind, ref)
	if err != nil {
		return "", err
	}

	env := s.env
	if o.baseDir != "" {
		env = envWithCacheRoot(env, o.baseDir)
	}

	path, err := reg.Resolve(ctx, env, h)
	if err != nil {
		return "", err
	}

	s.manifest.Add(path)

	if h.Subpath != "" {
		sub := filepath.Join(path, filepath.FromSlash(h.Subpath))
		if _, err := os.Stat(sub); err != nil {
			return "", &kerrors.NotFoundError{
				Message: fmt.Sprintf("path %q does not exist inside %s", h.Subpath, h.URL()),
			}
		}
		return sub, nil
	}
	return path, nil
}

func envWithCacheRoot(env config.Environment, root string) config.Environment {
	env.CacheRoot = root
	return env
}
