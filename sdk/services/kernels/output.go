// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package kernels fetches the output files a notebook run produced.
package kernels

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/utils"
)

const outputPageSize = "500"

type Service struct {
	api config.ApiHTTP
}

func NewService(_ context.Context, conf config.Config) *Service {
	return &Service{api: config.NewApiHTTP(nil, conf.Api)}
}

type outputFile struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

type outputPage struct {
	Files         []outputFile `json:"files"`
	NextPageToken string       `json:"nextPageToken"`
}

// DownloadOutputFiles writes every output file of the given kernel under
// outDir, preserving the relative paths reported by the backend. It returns
// the local paths written.
func (s *Service) DownloadOutputFiles(ctx context.Context, userName, kernelSlug, outDir string) ([]string, error) {
	if userName == "" || kernelSlug == "" {
		return nil, &kerrors.ValidationError{Message: "kernel reference requires both a user name and a kernel slug"}
	}

	files, err := s.listOutputFiles(ctx, userName, kernelSlug)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, kerrors.NewNotFoundError(fmt.Sprintf("%s/%s", userName, kernelSlug))
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := sanitizeRel(f.FileName)
		if err != nil {
			return nil, err
		}
		dest := filepath.Join(outDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, err
		}
		if err := s.downloadOne(ctx, f.URL, dest); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", f.FileName, err)
		}
		written = append(written, dest)
	}

	utils.Infof("Downloaded %d output file(s) from %s/%s", len(written), userName, kernelSlug)
	return written, nil
}

// listOutputFiles walks the paginated listing until the backend stops
// returning a next-page token.
func (s *Service) listOutputFiles(ctx context.Context, userName, kernelSlug string) ([]outputFile, error) {
	var all []outputFile
	pageToken := ""
	for {
		url := s.api.BuildURL([]string{"kernels", "output"}, map[string]string{
			"user_name":   userName,
			"kernel_slug": kernelSlug,
			"page_size":   outputPageSize,
			"page_token":  pageToken,
		})
		body, _, err := s.api.Do(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}

		var page outputPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &kerrors.BackendError{Message: fmt.Sprintf("malformed kernel output listing: %v", err)}
		}
		all = append(all, page.Files...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

func (s *Service) downloadOne(ctx context.Context, url, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := s.api.Download(ctx, url, f); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}

// sanitizeRel rejects file names that would escape the output directory.
func sanitizeRel(name string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(name, "/"))
	if rel == "" || rel == "." || strings.HasPrefix(rel, "..") || strings.Contains(rel, ".."+string(filepath.Separator)) {
		return "", &kerrors.ValidationError{Message: fmt.Sprintf("unsafe output file name %q", name)}
	}
	return rel, nil
}
