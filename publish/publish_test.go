// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package publish

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	soldeer "github.com/soldeerio/soldeer"
)

type fakePusher struct {
	calls   int
	name    string
	version string
	zip     []byte
	err     error
}

func (f *fakePusher) Push(ctx context.Context, name, version string, zipBytes []byte) error {
	f.calls++
	f.name, f.version, f.zip = name, version, zipBytes
	return f.err
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func zipNames(t *testing.T, zipBytes []byte) []string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	require.NoError(t, err)
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestRunUploadsZipToRegistry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/A.sol", "contract A {}")
	writeFile(t, root, "README.md", "hello")

	reg := &fakePusher{}
	res, err := Run(context.Background(), Request{SourceDir: root, Name: "pkg-a", Version: "1.0.0"}, reg)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.calls)
	assert.Equal(t, "pkg-a", reg.name)
	assert.Equal(t, "1.0.0", reg.version)
	assert.ElementsMatch(t, []string{"src/A.sol", "README.md"}, zipNames(t, res.zipBytes))
}

func TestRunRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/A.sol", "contract A {}")
	writeFile(t, root, "build/out.bin", "binary")
	writeFile(t, root, ".gitignore", "build/\n")

	reg := &fakePusher{}
	res, err := Run(context.Background(), Request{SourceDir: root, Name: "pkg-a", Version: "1.0.0", SkipWarnings: true}, reg)
	require.NoError(t, err)
	names := zipNames(t, res.zipBytes)
	assert.Contains(t, names, "src/A.sol")
	assert.NotContains(t, names, "build/out.bin")
}

func TestRunNestedIgnoreScopedToItsSubtree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "vendor/keep.sol", "contract Keep {}")
	writeFile(t, root, "vendor/generated.sol", "contract Generated {}")
	writeFile(t, root, "vendor/.soldeerignore", "generated.sol\n")

	reg := &fakePusher{}
	res, err := Run(context.Background(), Request{SourceDir: root, Name: "pkg-a", Version: "1.0.0", SkipWarnings: true}, reg)
	require.NoError(t, err)
	names := zipNames(t, res.zipBytes)
	assert.Contains(t, names, "vendor/keep.sol")
	assert.NotContains(t, names, "vendor/generated.sol")
}

func TestRunAbortsOnDotfilesUnlessSkipWarnings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/A.sol", "contract A {}")
	writeFile(t, root, ".env", "SECRET=1")

	reg := &fakePusher{}
	_, err := Run(context.Background(), Request{SourceDir: root, Name: "pkg-a", Version: "1.0.0"}, reg)
	require.Error(t, err)
	var sErr *soldeer.Error
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, soldeer.KindDotfilesPresent, sErr.Kind)
	assert.Equal(t, 0, reg.calls)

	res, err := Run(context.Background(), Request{SourceDir: root, Name: "pkg-a", Version: "1.0.0", SkipWarnings: true}, reg)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.calls)
	assert.Contains(t, res.Dotfiles, ".env")
}

func TestRunDryRunWritesLocalZipWithoutUpload(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/A.sol", "contract A {}")
	dest := t.TempDir()

	reg := &fakePusher{}
	res, err := Run(context.Background(), Request{
		SourceDir:     root,
		Name:          "pkg-a",
		Version:       "1.0.0",
		DryRun:        true,
		DryRunDestDir: dest,
	}, reg)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.calls)
	assert.Equal(t, filepath.Join(dest, "pkg-a-1.0.0.zip"), res.ZipPath)

	_, statErr := os.Stat(res.ZipPath)
	require.NoError(t, statErr)
}
