// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"

	"github.com/elpelech/kagglehub/sdk/kerrors"
)

// Config is the full configuration handed to the SDK services.
type Config struct {
	Api    ApiConfig
	Mirror MirrorConfig
	Env    Environment
}

type ApiConfig struct {
	BaseURL  string
	Username string
	Key      string
}

// MirrorConfig points at an optional S3-compatible read-only mirror of the
// hub. When Bucket is empty the mirror resolver is not registered.
type MirrorConfig struct {
	EndpointURL string
	Bucket      string
	Region      string
	AccessKey   string
	SecretKey   string
}

func (m MirrorConfig) Configured() bool {
	return m.Bucket != ""
}

// Environment is a snapshot of everything resolvers probe: notebook markers,
// mounted input roots and the local cache root. It is built once and passed
// explicitly so resolvers are testable by injection rather than by mutating
// process globals.
type Environment struct {
	CacheRoot string

	// Hosted notebook: set when running inside a Kaggle kernel.
	KernelRunType   string
	KaggleInputRoot string

	// Third-party notebook (Colab) with its own pre-mounted cache.
	ColabReleaseTag string
	ColabInputRoot  string

	Mirror MirrorConfig
}

// DefaultCacheRoot returns ~/.cache/kagglehub, falling back to a relative
// directory when the home directory cannot be determined.
func DefaultCacheRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".kagglehub", "cache")
	}
	return filepath.Join(home, ".cache", "kagglehub")
}

// Credentials returns the configured username/API key pair, or an
// UnauthenticatedError when either is missing. Populating them is the job of
// the external login flow.
func (c Config) Credentials() (username, key string, err error) {
	if c.Api.Username == "" || c.Api.Key == "" {
		return "", "", &kerrors.UnauthenticatedError{
			Message: "no credentials configured: set KAGGLE_USERNAME and KAGGLE_KEY or run the login flow",
		}
	}
	return c.Api.Username, c.Api.Key, nil
}
