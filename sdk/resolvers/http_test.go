// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package resolvers_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/elpelech/kagglehub/sdk/cache"
	"github.com/elpelech/kagglehub/sdk/config"
	"github.com/elpelech/kagglehub/sdk/handle"
	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/resolvers"
)

// fakeApi is an in-memory ApiHTTP with per-method call counters, so tests
// can assert that the cache fast path performs zero network calls.
type fakeApi struct {
	mu            sync.Mutex
	responses     map[string][]byte // request URL -> body
	fileData      map[string][]byte // download URL -> content
	doCalls       int
	downloadCalls int
}

func newFakeApi() *fakeApi {
	return &fakeApi{
		responses: make(map[string][]byte),
		fileData:  make(map[string][]byte),
	}
}

func (f *fakeApi) BuildURL(segments []string, params map[string]string) string {
	url := "api"
	for _, s := range segments {
		url += "/" + s
	}
	// page tokens are the only parameter these tests exercise
	if v := params["page_token"]; v != "" {
		url += "?page_token=" + v
	}
	return url
}

func (f *fakeApi) Do(_ context.Context, _, rawURL string, _ []byte) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doCalls++
	body, ok := f.responses[rawURL]
	if !ok {
		return nil, 404, kerrors.NewNotFoundError(rawURL)
	}
	return body, 200, nil
}

func (f *fakeApi) Download(_ context.Context, rawURL string, w io.Writer) (int64, error) {
	f.mu.Lock()
	data, ok := f.fileData[rawURL]
	f.downloadCalls++
	f.mu.Unlock()
	if !ok {
		return 0, kerrors.NewNotFoundError(rawURL)
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (f *fakeApi) Upload(context.Context, string, io.Reader, int64) error {
	return errors.New("not implemented")
}

func (f *fakeApi) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doCalls + f.downloadCalls
}

func md5hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// serveDataset wires metadata, a file manifest and file bodies for a
// two-file dataset at version 3.
func serveDataset(t *testing.T, api *fakeApi, corruptChecksum bool) map[string][]byte {
	t.Helper()
	contents := map[string][]byte{
		"train.csv":     []byte("a,b\n1,2\n"),
		"data/test.csv": []byte("a,b\n3,4\n"),
	}

	api.responses["api/datasets/alice/iris"] = []byte(`{"currentVersionNumber":3}`)

	var entries []map[string]any
	for name, data := range contents {
		sum := md5hex(data)
		if corruptChecksum && name == "train.csv" {
			sum = md5hex([]byte("tampered"))
		}
		url := "files/" + name
		entries = append(entries, map[string]any{
			"name":        name,
			"totalBytes":  len(data),
			"md5Checksum": sum,
			"url":         url,
		})
		api.fileData[url] = data
	}
	manifest, err := json.Marshal(map[string]any{"files": entries})
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	api.responses["api/datasets/alice/iris/versions/3/files"] = manifest
	return contents
}

func datasetHandle(t *testing.T, version string) handle.ResourceHandle {
	t.Helper()
	h, err := handle.New(handle.DatasetKind, "alice", "iris", version, "")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return h
}

func TestResolveDownloadsVerifiesAndPromotes(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	api := newFakeApi()
	contents := serveDataset(t, api, false)
	r := resolvers.NewHTTPResolver(api)
	h := datasetHandle(t, "")

	path, err := r.Resolve(context.Background(), env, h)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if path != cache.EntryPath(env, h) {
		t.Fatalf("path %q, want %q", path, cache.EntryPath(env, h))
	}
	// one metadata fetch + one manifest fetch + N downloads
	if api.doCalls != 2 {
		t.Fatalf("%d API calls, want 2 (metadata + manifest)", api.doCalls)
	}
	if api.downloadCalls != len(contents) {
		t.Fatalf("%d downloads, want %d", api.downloadCalls, len(contents))
	}
	for name, want := range contents {
		got, err := os.ReadFile(filepath.Join(path, filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != string(want) {
			t.Fatalf("content of %s = %q, want %q", name, got, want)
		}
	}
}

func TestResolveSecondCallUsesCache(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	api := newFakeApi()
	serveDataset(t, api, false)
	r := resolvers.NewHTTPResolver(api)
	h := datasetHandle(t, "")

	first, err := r.Resolve(context.Background(), env, h)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	callsAfterFirst := api.networkCalls()

	second, err := r.Resolve(context.Background(), env, h)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second != first {
		t.Fatalf("second resolve returned %q, first %q", second, first)
	}
	if api.networkCalls() != callsAfterFirst {
		t.Fatal("second resolve must perform zero network calls")
	}
}

func TestResolveCachedEntryZeroNetworkCalls(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	h := datasetHandle(t, "3")

	// pre-existing completed entry
	entry := cache.EntryPath(env, h)
	if err := os.MkdirAll(entry, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(entry, "train.csv"), []byte("cached"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := cache.WriteMarker(env, h); err != nil {
		t.Fatalf("marker: %v", err)
	}

	api := newFakeApi()
	r := resolvers.NewHTTPResolver(api)
	path, err := r.Resolve(context.Background(), env, h)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if path != entry {
		t.Fatalf("path %q, want %q", path, entry)
	}
	if api.networkCalls() != 0 {
		t.Fatalf("%d network calls, want 0", api.networkCalls())
	}
}

func TestResolveChecksumMismatchLeavesNoEntry(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	api := newFakeApi()
	serveDataset(t, api, true)
	r := resolvers.NewHTTPResolver(api)
	h := datasetHandle(t, "")

	_, err := r.Resolve(context.Background(), env, h)
	var dce *kerrors.DataCorruptionError
	if !errors.As(err, &dce) {
		t.Fatalf("expected DataCorruptionError, got %v", err)
	}

	if _, ok := cache.CompletedEntry(env, h); ok {
		t.Fatal("corrupted download must not leave a completed entry")
	}
	if _, statErr := os.Stat(cache.EntryPath(env, h)); !os.IsNotExist(statErr) {
		t.Fatal("corrupted download must not leave a partial entry")
	}
	entries, _ := os.ReadDir(filepath.Join(env.CacheRoot, ".staging"))
	if len(entries) != 0 {
		t.Fatalf("staging dir not cleaned up: %d leftovers", len(entries))
	}
}

func TestResolvePinnedVersionSkipsMetadataFetch(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	api := newFakeApi()
	serveDataset(t, api, false)
	r := resolvers.NewHTTPResolver(api)

	if _, err := r.Resolve(context.Background(), env, datasetHandle(t, "3")); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if api.doCalls != 1 {
		t.Fatalf("%d API calls, want 1 (manifest only; version is pinned)", api.doCalls)
	}
}

func TestResolveNotFoundPropagates(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	api := newFakeApi() // serves nothing
	r := resolvers.NewHTTPResolver(api)

	_, err := r.Resolve(context.Background(), env, datasetHandle(t, ""))
	var nf *kerrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestResolveManifestPagination(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	api := newFakeApi()
	h := datasetHandle(t, "1")

	page := func(names []string, next string) []byte {
		var entries []map[string]any
		for _, name := range names {
			data := []byte("content of " + name)
			url := "files/" + name
			api.fileData[url] = data
			entries = append(entries, map[string]any{
				"name":        name,
				"totalBytes":  len(data),
				"md5Checksum": md5hex(data),
				"url":         url,
			})
		}
		b, err := json.Marshal(map[string]any{"files": entries, "nextPageToken": next})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}
	base := "api/datasets/alice/iris/versions/1/files"
	api.responses[base] = page([]string{"part-0.csv"}, "t1")
	api.responses[base+"?page_token=t1"] = page([]string{"part-1.csv"}, "")

	r := resolvers.NewHTTPResolver(api)
	path, err := r.Resolve(context.Background(), env, h)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, name := range []string{"part-0.csv", "part-1.csv"} {
		if _, err := os.Stat(filepath.Join(path, name)); err != nil {
			t.Fatalf("paged file %s missing: %v", name, err)
		}
	}
}

func TestResolveExpandsCompetitionBundle(t *testing.T) {
	env := config.Environment{CacheRoot: t.TempDir()}
	api := newFakeApi()
	h, err := handle.New(handle.CompetitionKind, "kaggle", "titanic", "1", "")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	zipData := buildZip(t, map[string]string{
		"train.csv": "survived\n1\n",
		"test.csv":  "survived\n0\n",
	})
	api.fileData["files/bundle.zip"] = zipData
	manifest, err := json.Marshal(map[string]any{"files": []map[string]any{{
		"name":        "bundle.zip",
		"totalBytes":  len(zipData),
		"md5Checksum": md5hex(zipData),
		"url":         "files/bundle.zip",
	}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	api.responses["api/competitions/kaggle/titanic/versions/1/files"] = manifest

	r := resolvers.NewHTTPResolver(api)
	path, err := r.Resolve(context.Background(), env, h)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, "train.csv")); err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, "bundle.zip")); !os.IsNotExist(err) {
		t.Fatal("archive must be removed after expansion")
	}
}

func TestHTTPResolverAlwaysSupported(t *testing.T) {
	r := resolvers.NewHTTPResolver(newFakeApi())
	if !r.IsSupported(config.Environment{}, datasetHandle(t, "")) {
		t.Fatal("http resolver must claim support everywhere")
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
