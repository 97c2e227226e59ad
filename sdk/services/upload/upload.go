// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package upload publishes a new version of a dataset or model: register
// each local file as a blob, then create the version referencing the blob
// tokens.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/utils"
)

type Service struct {
	api config.ApiHTTP
}

func NewService(_ context.Context, conf config.Config) (*Service, error) {
	if _, _, err := conf.Credentials(); err != nil {
		return nil, err
	}
	return &Service{api: config.NewApiHTTP(nil, conf.Api)}, nil
}

type UploadRequest struct {
	// Ref is "owner/name"; the server assigns the new version number.
	Ref string
	// Input is a local file or directory holding the version's content.
	Input string
	// Notes is the optional version changelog.
	Notes string
}

type UploadResult struct {
	Handle  handle.ResourceHandle
	Version int
	Files   []string
}

type blobStartResponse struct {
	Token     string `json:"token"`
	CreateURL string `json:"createUrl"`
}

type createVersionResponse struct {
	VersionNumber int `json:"versionNumber"`
}

// DatasetUpload publishes a new dataset version from a local file or
// directory.
func (s *Service) DatasetUpload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	return s.upload(ctx, handle.DatasetKind, req)
}

// ModelUpload publishes a new model version.
func (s *Service) ModelUpload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	return s.upload(ctx, handle.ModelKind, req)
}

func (s *Service) upload(ctx context.Context, kind handle.ResourceKind, req UploadRequest) (*UploadResult, error) {
	if req.Input == "" {
		return nil, &kerrors.ValidationError{Message: "missing required input file or directory"}
	}
	h, err := handle.Parse(kind, req.Ref)
	if err != nil {
		return nil, err
	}
	if h.Version != "" {
		return nil, &kerrors.ValidationError{Message: "upload references must not pin a version; the server assigns one"}
	}

	files, err := collectFiles(req.Input)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &kerrors.ValidationError{Message: fmt.Sprintf("input %s holds no files", req.Input)}
	}

	tokens := make([]string, 0, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		token, err := s.uploadBlob(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", f.relName, err)
		}
		tokens = append(tokens, token)
		names = append(names, f.relName)
	}

	version, err := s.createVersion(ctx, h, tokens, req.Notes)
	if err != nil {
		return nil, err
	}

	utils.Infof("Created version %d of %s with %d file(s)", version, h, len(files))
	return &UploadResult{Handle: h, Version: version, Files: names}, nil
}

type localFile struct {
	path    string
	relName string
	size    int64
}

func collectFiles(input string) ([]localFile, error) {
	st, err := os.Stat(input)
	if err != nil {
		return nil, &kerrors.ValidationError{Message: fmt.Sprintf("cannot access input: %v", err)}
	}

	if !st.IsDir() {
		return []localFile{{path: input, relName: st.Name(), size: st.Size()}}, nil
	}

	var files []localFile
	err = filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(input, p)
		if err != nil {
			return err
		}
		files = append(files, localFile{path: p, relName: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %w", err)
	}
	return files, nil
}

// uploadBlob registers the file with the blob endpoint and streams its bytes
// to the returned upload URL.
func (s *Service) uploadBlob(ctx context.Context, f localFile) (string, error) {
	startBody, err := json.Marshal(map[string]any{
		"name":          f.relName,
		"contentLength": f.size,
		"token":         utils.UUIDv4NoDash(),
	})
	if err != nil {
		return "", err
	}

	url := s.api.BuildURL([]string{"blobs", "upload"}, nil)
	body, _, err := s.api.Do(ctx, "POST", url, startBody)
	if err != nil {
		return "", err
	}
	if err := config.ProcessPostResponse(body); err != nil {
		return "", err
	}

	var start blobStartResponse
	if err := json.Unmarshal(body, &start); err != nil {
		return "", &kerrors.BackendError{Message: fmt.Sprintf("malformed blob response: %v", err)}
	}
	if start.CreateURL == "" || start.Token == "" {
		return "", &kerrors.BackendError{Message: "blob response is missing the upload URL or token"}
	}

	file, err := os.Open(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	if err := s.api.Upload(ctx, start.CreateURL, file, f.size); err != nil {
		return "", err
	}
	return start.Token, nil
}

func (s *Service) createVersion(ctx context.Context, h handle.ResourceHandle, tokens []string, notes string) (int, error) {
	reqBody, err := json.Marshal(map[string]any{
		"versionNotes": notes,
		"files":        tokens,
	})
	if err != nil {
		return 0, err
	}

	url := s.api.BuildURL([]string{string(h.Kind), h.Owner, h.Name, "create", "version"}, nil)
	body, _, err := s.api.Do(ctx, "POST", url, reqBody)
	if err != nil {
		return 0, err
	}
	// a 2xx body may still carry an application-level error
	if err := config.ProcessPostResponse(body); err != nil {
		return 0, err
	}

	var resp createVersionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &kerrors.BackendError{Message: fmt.Sprintf("malformed create-version response: %v", err)}
	}
	return resp.VersionNumber, nil
}
