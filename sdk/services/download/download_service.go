// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package download exposes the public entry points resolving a resource
// reference to a local path.
package download

import (
	"context"
	"fmt"

	"github.com/elpelech/kagglehub/sdk/cache"
	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/registry"
	"github.com/elpelech/kagglehub/sdk/resolvers"
)

// Service owns one resolver chain per resource kind and the shared session
// manifest. Chains are assembled once at construction and are append-only:
// environment caches first, then the optional mirror, then the HTTP
// fallback, which must come last.
type Service struct {
	env      config.Environment
	manifest *cache.Manifest

	datasets     *registry.MultiImplRegistry
	models       *registry.MultiImplRegistry
	competitions *registry.MultiImplRegistry
}

func NewService(ctx context.Context, conf config.Config) (*Service, error) {
	api := config.NewApiHTTP(nil, conf.Api)

	var mirror *resolvers.S3MirrorResolver
	if conf.Mirror.Configured() {
		s3c, err := config.NewS3Client(ctx, conf.Mirror)
		if err != nil {
			return nil, fmt.Errorf("mirror init failed: %w", err)
		}
		mirror = resolvers.NewS3MirrorResolver(s3c)
	}

	s := &Service{
		env:          conf.Env,
		manifest:     cache.Default,
		datasets:     registry.NewMultiImplRegistry("datasets"),
		models:       registry.NewMultiImplRegistry("models"),
		competitions: registry.NewMultiImplRegistry("competitions"),
	}

	httpResolver := resolvers.NewHTTPResolver(api)

	s.datasets.AddImplementation(resolvers.KaggleCacheResolver{})
	s.datasets.AddImplementation(resolvers.ColabCacheResolver{})
	s.models.AddImplementation(resolvers.KaggleCacheResolver{})
	s.models.AddImplementation(resolvers.ColabCacheResolver{})
	// the hosted platform mounts competition data but Colab does not
	s.competitions.AddImplementation(resolvers.KaggleCacheResolver{})

	if mirror != nil {
		s.datasets.AddImplementation(mirror)
		s.models.AddImplementation(mirror)
		s.competitions.AddImplementation(mirror)
	}

	s.datasets.AddImplementation(httpResolver)
	s.models.AddImplementation(httpResolver)
	s.competitions.AddImplementation(httpResolver)

	return s, nil
}

// Manifest returns the session manifest consumed by downstream packaging.
func (s *Service) Manifest() *cache.Manifest {
	return s.manifest
}
