// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package install

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	soldeer "github.com/soldeerio/soldeer"
)

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, soldeer.SoldeerConfigName), []byte(body), 0o644))
}

func buildZipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fakeRegistry implements registryResolver without any network I/O.
type fakeRegistry struct {
	calls   int
	version string
	url     string
	err     error
}

func (f *fakeRegistry) Resolve(ctx context.Context, name, req string) (string, string, error) {
	f.calls++
	return f.version, f.url, f.err
}

func TestInstallHTTPDepFetchesExtractsAndLocks(t *testing.T) {
	archive := buildZipArchive(t, map[string]string{"src/A.sol": "contract A {}"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	root := t.TempDir()
	writeConfig(t, root, `
[dependencies]
pkg-a = { version = "1.0.0", url = "`+srv.URL+`/pkg-a.zip" }
`)

	cfg, err := soldeer.LoadConfig(root)
	require.NoError(t, err)
	lf, err := soldeer.LoadLockfile(root)
	require.NoError(t, err)
	scfg, err := cfg.ReadSoldeerConfig()
	require.NoError(t, err)

	in := New(root, &fakeRegistry{}, srv.Client(), nil)
	results, err := in.Install(context.Background(), cfg, lf, scfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StateInstalled, results[0].State)
	assert.Equal(t, "1.0.0", results[0].Entry.Version)

	got, err := os.ReadFile(filepath.Join(root, "dependencies", "pkg-a-1.0.0", "src", "A.sol"))
	require.NoError(t, err)
	assert.Equal(t, "contract A {}", string(got))

	entry, ok := lf.Find("pkg-a")
	require.True(t, ok)
	assert.NotEmpty(t, entry.Integrity.FolderSHA256)
	assert.NotEmpty(t, entry.Integrity.ZipSHA256)
}

func TestInstallSecondRunSkipsWithoutNetworkIO(t *testing.T) {
	archive := buildZipArchive(t, map[string]string{"src/A.sol": "contract A {}"})
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(archive)
	}))
	defer srv.Close()

	root := t.TempDir()
	writeConfig(t, root, `
[dependencies]
pkg-a = { version = "1.0.0", url = "`+srv.URL+`/pkg-a.zip" }
`)

	cfg, err := soldeer.LoadConfig(root)
	require.NoError(t, err)
	lf, err := soldeer.LoadLockfile(root)
	require.NoError(t, err)
	scfg, err := cfg.ReadSoldeerConfig()
	require.NoError(t, err)

	in := New(root, &fakeRegistry{}, srv.Client(), nil)
	_, err = in.Install(context.Background(), cfg, lf, scfg)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	// Re-load fresh in-memory state the way a second CLI invocation would.
	cfg2, err := soldeer.LoadConfig(root)
	require.NoError(t, err)
	lf2, err := soldeer.LoadLockfile(root)
	require.NoError(t, err)
	scfg2, err := cfg2.ReadSoldeerConfig()
	require.NoError(t, err)

	in2 := New(root, &fakeRegistry{}, srv.Client(), nil)
	results, err := in2.Install(context.Background(), cfg2, lf2, scfg2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StateSkipped, results[0].State)
	assert.Equal(t, 1, hits, "second install must not perform any network I/O")
}

func TestInstallOneFailureDoesNotAbortSiblings(t *testing.T) {
	archive := buildZipArchive(t, map[string]string{"src/B.sol": "contract B {}"})
	mux := http.NewServeMux()
	mux.HandleFunc("/good.zip", func(w http.ResponseWriter, r *http.Request) { w.Write(archive) })
	mux.HandleFunc("/bad.zip", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	writeConfig(t, root, `
[dependencies]
pkg-good = { version = "1.0.0", url = "`+srv.URL+`/good.zip" }
pkg-bad = { version = "1.0.0", url = "`+srv.URL+`/bad.zip" }
`)

	cfg, err := soldeer.LoadConfig(root)
	require.NoError(t, err)
	lf, err := soldeer.LoadLockfile(root)
	require.NoError(t, err)
	scfg, err := cfg.ReadSoldeerConfig()
	require.NoError(t, err)

	in := New(root, &fakeRegistry{}, srv.Client(), nil)
	results, err := in.Install(context.Background(), cfg, lf, scfg)
	require.Error(t, err)
	require.Len(t, results, 2)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.Equal(t, StateInstalled, byName["pkg-good"].State)
	assert.Equal(t, StateFailed, byName["pkg-bad"].State)

	entry, ok := lf.Find("pkg-good")
	assert.True(t, ok)
	assert.Equal(t, "1.0.0", entry.Version)
	_, ok = lf.Find("pkg-bad")
	assert.False(t, ok)
}

func TestInstallRegistryDepResolvesThenFetches(t *testing.T) {
	archive := buildZipArchive(t, map[string]string{"src/C.sol": "contract C {}"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	root := t.TempDir()
	writeConfig(t, root, `
[dependencies]
pkg-c = "^1.0.0"
`)

	cfg, err := soldeer.LoadConfig(root)
	require.NoError(t, err)
	lf, err := soldeer.LoadLockfile(root)
	require.NoError(t, err)
	scfg, err := cfg.ReadSoldeerConfig()
	require.NoError(t, err)

	reg := &fakeRegistry{version: "1.2.0", url: srv.URL + "/pkg-c.zip"}
	in := New(root, reg, srv.Client(), nil)
	results, err := in.Install(context.Background(), cfg, lf, scfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StateInstalled, results[0].State)
	assert.Equal(t, "1.2.0", results[0].Entry.Version)
	assert.Equal(t, 1, reg.calls)

	_, err = os.Stat(filepath.Join(root, "dependencies", "pkg-c-1.2.0", "src", "C.sol"))
	require.NoError(t, err)
}

func TestInstallWritesRemappingsTxt(t *testing.T) {
	archive := buildZipArchive(t, map[string]string{"src/A.sol": "contract A {}"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	root := t.TempDir()
	writeConfig(t, root, `
[dependencies]
pkg-a = { version = "1.0.0", url = "`+srv.URL+`/pkg-a.zip" }
`)

	cfg, err := soldeer.LoadConfig(root)
	require.NoError(t, err)
	lf, err := soldeer.LoadLockfile(root)
	require.NoError(t, err)
	scfg, err := cfg.ReadSoldeerConfig()
	require.NoError(t, err)

	in := New(root, &fakeRegistry{}, srv.Client(), nil)
	_, err = in.Install(context.Background(), cfg, lf, scfg)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, soldeer.RemappingsTxtName))
	require.NoError(t, err)
	assert.Contains(t, string(got), "pkg-a-1.0.0=dependencies/pkg-a-1.0.0/")
}
