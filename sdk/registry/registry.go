// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package registry dispatches a resource handle to an ordered chain of
// resolver strategies, one chain per resource kind.
package registry

import (
	"context"
	"fmt"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
)

// Resolver is one resolution strategy. IsSupported must be a cheap,
// side-effect-free probe; Resolve may hit the network or the filesystem.
type Resolver interface {
	Name() string
	IsSupported(env config.Environment, h handle.ResourceHandle) bool
	Resolve(ctx context.Context, env config.Environment, h handle.ResourceHandle) (string, error)
}

// MultiImplRegistry holds one ordered resolver chain. Registration order is
// preference order: the first resolver that reports itself supported commits
// to the resolution, and its errors propagate unmasked. The chain is not a
// retry ladder: falling through after a committed failure would blur failure
// attribution.
type MultiImplRegistry struct {
	name  string
	impls []Resolver
}

func NewMultiImplRegistry(name string) *MultiImplRegistry {
	return &MultiImplRegistry{name: name}
}

// AddImplementation appends a resolver to the chain. Called during service
// construction only; the chain is append-only afterwards.
func (r *MultiImplRegistry) AddImplementation(impl Resolver) {
	r.impls = append(r.impls, impl)
}

// Resolve walks the chain in registration order and delegates to the first
// supported resolver. When none is supported the environment cannot satisfy
// the request at all.
func (r *MultiImplRegistry) Resolve(ctx context.Context, env config.Environment, h handle.ResourceHandle) (string, error) {
	for _, impl := range r.impls {
		if !impl.IsSupported(env, h) {
			continue
		}
		path, err := impl.Resolve(ctx, env, h)
		if err != nil {
			return "", fmt.Errorf("%s: %w", impl.Name(), err)
		}
		return path, nil
	}
	return "", &kerrors.UnsupportedEnvironmentError{
		Message: fmt.Sprintf("no resolver in the %s chain supports the current environment for %s", r.name, h),
	}
}
