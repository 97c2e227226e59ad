// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/kerrors"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) config.ApiHTTP {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return config.NewApiHTTP(srv.Client(), config.ApiConfig{
		BaseURL:  srv.URL,
		Username: "alice",
		Key:      "secret",
	})
}

func TestDoSendsBasicAuth(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		if !ok || user != "alice" || key != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	body, status, err := api.Do(context.Background(), http.MethodGet, api.BuildURL([]string{"hello"}, nil), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status %d, want 200", status)
	}
	if !bytes.Contains(body, []byte("ok")) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestDoStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, "", func(t *testing.T, err error) {
			var e *kerrors.UnauthenticatedError
			if !errors.As(err, &e) {
				t.Fatalf("expected UnauthenticatedError, got %v", err)
			}
		}},
		{"forbidden", http.StatusForbidden, "", func(t *testing.T, err error) {
			var e *kerrors.UnauthenticatedError
			if !errors.As(err, &e) {
				t.Fatalf("expected UnauthenticatedError, got %v", err)
			}
		}},
		{"not found", http.StatusNotFound, "", func(t *testing.T, err error) {
			var e *kerrors.NotFoundError
			if !errors.As(err, &e) {
				t.Fatalf("expected NotFoundError, got %v", err)
			}
		}},
		{"server error with message", http.StatusInternalServerError, `{"code":500,"message":"datastore unavailable"}`, func(t *testing.T, err error) {
			var e *kerrors.BackendError
			if !errors.As(err, &e) {
				t.Fatalf("expected BackendError, got %v", err)
			}
			if e.Message != "datastore unavailable" || !e.HasCode || e.ErrorCode != 500 {
				t.Fatalf("unexpected backend error %+v", e)
			}
		}},
		{"server error malformed body", http.StatusBadGateway, "<html>oops</html>", func(t *testing.T, err error) {
			var e *kerrors.BackendError
			if !errors.As(err, &e) {
				t.Fatalf("expected BackendError, got %v", err)
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, _, err := api.Do(context.Background(), http.MethodGet, api.BuildURL([]string{"x"}, nil), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			tc.check(t, err)
		})
	}
}

func TestBuildURL(t *testing.T) {
	api := config.NewApiHTTP(nil, config.ApiConfig{BaseURL: "https://example.com/api/v1/"})
	got := api.BuildURL([]string{"datasets", "alice", "iris", "versions", "3", "files"}, nil)
	want := "https://example.com/api/v1/datasets/alice/iris/versions/3/files"
	if got != want {
		t.Fatalf("url %q, want %q", got, want)
	}

	got = api.BuildURL([]string{"kernels", "output"}, map[string]string{"page_size": "500", "empty": ""})
	want = "https://example.com/api/v1/kernels/output?page_size=500"
	if got != want {
		t.Fatalf("url %q, want %q", got, want)
	}
}

func TestProcessPostResponse(t *testing.T) {
	if err := config.ProcessPostResponse([]byte(`{"code":200,"status":"ok"}`)); err != nil {
		t.Fatalf("unexpected error for success body: %v", err)
	}

	err := config.ProcessPostResponse([]byte(`{"code":409,"message":"version already exists"}`))
	var be *kerrors.BackendError
	if !errors.As(err, &be) || be.Message != "version already exists" {
		t.Fatalf("expected BackendError with message, got %v", err)
	}

	err = config.ProcessPostResponse([]byte(`{"error":"quota exceeded","errorCode":42}`))
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Message != "quota exceeded" || !be.HasCode || be.ErrorCode != 42 {
		t.Fatalf("unexpected backend error %+v", be)
	}

	if err := config.ProcessPostResponse([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
