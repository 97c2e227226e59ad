// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package handle_test

import (
	"errors"
	"testing"

	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
)

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name    string
		owner   string
		res     string
		version string
		subpath string
		wantErr bool
	}{
		{"ok", "alice", "iris", "", "", false},
		{"ok versioned", "alice", "iris", "3", "", false},
		{"ok tag", "alice", "bert-base", "fp16", "", false},
		{"ok subpath", "alice", "iris", "2", "data/train.csv", false},
		{"empty owner", "", "iris", "", "", true},
		{"empty name", "alice", "", "", "", true},
		{"unsafe owner", "ali/ce", "iris", "", "", true},
		{"unsafe name", "alice", "iris?x=1", "", "", true},
		{"reserved version", "alice", "iris", "latest", "", true},
		{"reserved marker suffix", "alice", "iris", "3.complete", "", true},
		{"zero-padded version", "alice", "iris", "007", "", true},
		{"unsafe subpath", "alice", "iris", "", "../etc/passwd", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := handle.New(handle.DatasetKind, tc.owner, tc.res, tc.version, tc.subpath)
			if tc.wantErr {
				var verr *kerrors.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	h, err := handle.Parse(handle.ModelKind, "alice/bert/3/config.json")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := handle.ResourceHandle{
		Kind: handle.ModelKind, Owner: "alice", Name: "bert",
		Version: "3", Subpath: "config.json",
	}
	if h != want {
		t.Fatalf("parsed %+v, want %+v", h, want)
	}

	if _, err := handle.Parse(handle.DatasetKind, "justowner"); err == nil {
		t.Fatal("expected error for reference without a name")
	}
}

func TestCacheKeyLatestNeverCollides(t *testing.T) {
	latest, err := handle.New(handle.DatasetKind, "alice", "iris", "", "")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	pinned, err := handle.New(handle.DatasetKind, "alice", "iris", "3", "")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if latest.CacheKey() == pinned.CacheKey() {
		t.Fatalf("latest and pinned share cache key %q", latest.CacheKey())
	}
	if got, want := latest.CacheKey(), "datasets/alice/iris/latest"; got != want {
		t.Fatalf("cache key %q, want %q", got, want)
	}
	if got, want := pinned.CacheKey(), "datasets/alice/iris/3"; got != want {
		t.Fatalf("cache key %q, want %q", got, want)
	}
}

func TestURL(t *testing.T) {
	h, _ := handle.New(handle.ModelKind, "alice", "bert", "2", "")
	if got, want := h.URL(), "https://www.kaggle.com/models/alice/bert/versions/2"; got != want {
		t.Fatalf("url %q, want %q", got, want)
	}
}

func TestEquality(t *testing.T) {
	a, _ := handle.New(handle.DatasetKind, "alice", "iris", "1", "")
	b, _ := handle.New(handle.DatasetKind, "alice", "iris", "1", "")
	if a != b {
		t.Fatal("identical handles must compare equal")
	}
	c, _ := handle.New(handle.DatasetKind, "alice", "iris", "2", "")
	if a == c {
		t.Fatal("handles with different versions must not compare equal")
	}
}
