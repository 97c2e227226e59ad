// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elpelech/kagglehub/sdk/kerrors"
)

// ApiHTTP is the authenticated transport against the hub's versioned REST
// API. Non-2xx statuses come back as typed errors from the kerrors taxonomy;
// callers only parse bodies on success.
type ApiHTTP interface {
	BuildURL(segments []string, params map[string]string) string
	Do(ctx context.Context, method, rawURL string, data []byte) ([]byte, int, error)
	// Download streams a GET body into w, returning the bytes written.
	Download(ctx context.Context, rawURL string, w io.Writer) (int64, error)
	// Upload sends raw bytes with a PUT, used by blob upload endpoints.
	Upload(ctx context.Context, rawURL string, r io.Reader, size int64) error
}

type apiHTTP struct {
	httpClient *http.Client
	conf       ApiConfig
}

func NewApiHTTP(httpClient *http.Client, conf ApiConfig) ApiHTTP {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &apiHTTP{httpClient: httpClient, conf: conf}
}

func (a *apiHTTP) BuildURL(segments []string, params map[string]string) string {
	base := strings.TrimSuffix(a.conf.BaseURL, "/")
	for _, seg := range segments {
		base += "/" + seg
	}
	first := true
	for k, v := range params {
		if v == "" {
			continue
		}
		if first {
			base += "?"
			first = false
		} else {
			base += "&"
		}
		base += k + "=" + url.QueryEscape(v)
	}
	return base
}

func (a *apiHTTP) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if a.conf.Username != "" {
		req.SetBasicAuth(a.conf.Username, a.conf.Key)
	}
	return req, nil
}

func (a *apiHTTP) Do(ctx context.Context, method, rawURL string, data []byte) ([]byte, int, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := a.newRequest(ctx, method, rawURL, body)
	if err != nil {
		return nil, 0, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		// timeouts and connection resets are backend failures to the
		// caller; retry policy, if any, lives on the transport
		return nil, 0, &kerrors.BackendError{Message: fmt.Sprintf("request to %s failed: %v", rawURL, err)}
	}
	defer resp.Body.Close()

	b, rerr := io.ReadAll(resp.Body)
	if err := statusToError(resp.StatusCode, rawURL, b); err != nil {
		return b, resp.StatusCode, err
	}
	if rerr != nil {
		return b, resp.StatusCode, &kerrors.BackendError{Message: fmt.Sprintf("truncated response from %s: %v", rawURL, rerr)}
	}
	return b, resp.StatusCode, nil
}

func (a *apiHTTP) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := a.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, &kerrors.BackendError{Message: fmt.Sprintf("request to %s failed: %v", rawURL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, statusToError(resp.StatusCode, rawURL, b)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &kerrors.BackendError{Message: fmt.Sprintf("download from %s interrupted: %v", rawURL, err)}
	}
	return n, nil
}

func (a *apiHTTP) Upload(ctx context.Context, rawURL string, r io.Reader, size int64) error {
	req, err := a.newRequest(ctx, http.MethodPut, rawURL, r)
	if err != nil {
		return err
	}
	req.ContentLength = size

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &kerrors.BackendError{Message: fmt.Sprintf("upload to %s failed: %v", rawURL, err)}
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return statusToError(resp.StatusCode, rawURL, b)
}

// statusToError maps an HTTP status to the error taxonomy: 401/403 carry
// authentication guidance, 404 carries identifier guidance, anything else
// non-2xx becomes a BackendError with the server-supplied message.
func statusToError(status int, rawURL string, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return kerrors.NewUnauthenticatedError(rawURL)
	case status == http.StatusNotFound:
		return kerrors.NewNotFoundError(rawURL)
	}

	msg := fmt.Sprintf("the server responded with status %d for %s", status, rawURL)
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		if s, ok := m["message"].(string); ok && s != "" {
			msg = s
		}
		if code, ok := m["code"].(float64); ok {
			return &kerrors.BackendError{Message: msg, ErrorCode: int(code), HasCode: true}
		}
	}
	return &kerrors.BackendError{Message: msg}
}

// ProcessPostResponse checks a 2xx POST body for an application-level error.
// The API encodes failures inside successful responses via `code`, `message`,
// `error` and `errorCode` fields; such bodies must never be treated as
// success.
func ProcessPostResponse(body []byte) error {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return &kerrors.BackendError{Message: fmt.Sprintf("malformed response body: %v", err)}
	}

	if code, ok := m["code"].(float64); ok && (code < 200 || code >= 300) {
		msg, _ := m["message"].(string)
		if msg == "" {
			msg = "no error message provided"
		}
		return &kerrors.BackendError{Message: msg, ErrorCode: int(code), HasCode: true}
	}

	if errMsg, ok := m["error"].(string); ok && errMsg != "" {
		be := &kerrors.BackendError{Message: errMsg}
		if codeStr, ok := m["errorCode"].(float64); ok {
			be.ErrorCode = int(codeStr)
			be.HasCode = true
		}
		return be
	}
	return nil
}
