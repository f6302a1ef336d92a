// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soldeer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLockfileMissingFileIsEmptyNotError(t *testing.T) {
	root := t.TempDir()
	lf, err := LoadLockfile(root)
	require.NoError(t, err)
	assert.Empty(t, lf.Entries())
}

func TestLoadLockfileParsesAllDependencyKinds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, LockFileName, `
[[dependencies]]
name = "reg-dep"
version = "1.2.0"
source = "registry"
url = "https://registry.example.com/reg-dep-1.2.0.zip"
checksum = "deadbeef"
integrity = "cafef00d"

[[dependencies]]
name = "http-dep"
version = "2.0.0"
source = "http"
url = "https://example.com/http-dep.zip"
checksum = "abc123"
integrity = "def456"

[[dependencies]]
name = "git-dep"
version = "main/abcdef1"
source = "git"
url = "https://example.com/git-dep.git"
rev = "abcdef123456"
integrity = "112233"
`)

	lf, err := LoadLockfile(root)
	require.NoError(t, err)
	entries := lf.Entries()
	require.Len(t, entries, 3)

	byName := make(map[string]LockEntry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	reg := byName["reg-dep"]
	assert.Equal(t, SourceRegistry, reg.Kind)
	assert.Equal(t, "1.2.0", reg.Version)
	assert.Equal(t, "https://registry.example.com/reg-dep-1.2.0.zip", reg.Locator.URL)
	assert.Equal(t, "deadbeef", reg.Integrity.ZipSHA256)
	assert.Equal(t, "cafef00d", reg.Integrity.FolderSHA256)

	httpDep := byName["http-dep"]
	assert.Equal(t, SourceHTTP, httpDep.Kind)

	gitDep := byName["git-dep"]
	assert.Equal(t, SourceGit, gitDep.Kind)
	assert.Equal(t, "abcdef123456", gitDep.Locator.Rev)
	assert.Equal(t, "abcdef123456", gitDep.Integrity.Rev)
	assert.Empty(t, gitDep.Integrity.ZipSHA256, "git deps carry only Rev, no archive hashes")
}

func TestLoadLockfileRejectsDuplicateEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, LockFileName, `
[[dependencies]]
name = "dup"
version = "1.0.0"
source = "registry"

[[dependencies]]
name = "dup"
version = "1.0.0"
source = "registry"
`)
	_, err := LoadLockfile(root)
	require.Error(t, err)
	sErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindLockMalformed, sErr.Kind)
}

func TestLoadLockfileRejectsEntryMissingNameOrVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, LockFileName, `
[[dependencies]]
name = "incomplete"
source = "registry"
`)
	_, err := LoadLockfile(root)
	require.Error(t, err)
	sErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindLockMalformed, sErr.Kind)
}

func TestLockfileFindAndUpsert(t *testing.T) {
	lf := &Lockfile{path: filepath.Join(t.TempDir(), LockFileName)}

	_, ok := lf.Find("pkg-a")
	assert.False(t, ok)

	lf.Upsert(LockEntry{Name: "pkg-a", Version: "1.0.0", Kind: SourceRegistry})
	entry, ok := lf.Find("pkg-a")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", entry.Version)

	// Upsert of the same name replaces rather than appending.
	lf.Upsert(LockEntry{Name: "pkg-a", Version: "2.0.0", Kind: SourceRegistry})
	entries := lf.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "2.0.0", entries[0].Version)
}

func TestLockfileRemoveIsIdempotent(t *testing.T) {
	lf := &Lockfile{path: filepath.Join(t.TempDir(), LockFileName)}
	lf.Upsert(LockEntry{Name: "pkg-a", Version: "1.0.0"})
	lf.Upsert(LockEntry{Name: "pkg-b", Version: "1.0.0"})

	lf.Remove("pkg-a")
	entries := lf.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "pkg-b", entries[0].Name)

	// Removing something already gone is a no-op, not an error.
	lf.Remove("pkg-a")
	assert.Len(t, lf.Entries(), 1)
}

// TestLockfileSaveRoundTripsAndCanonicalizesOrder covers Save/load across
// every dependency kind, and confirms entries come back sorted by
// name-then-version regardless of insertion order (spec §4.3).
func TestLockfileSaveRoundTripsAndCanonicalizesOrder(t *testing.T) {
	root := t.TempDir()
	lf, err := LoadLockfile(root)
	require.NoError(t, err)

	lf.Upsert(LockEntry{
		Name: "zeta", Version: "1.0.0", Kind: SourceRegistry,
		Locator:   SourceLocator{URL: "https://registry.example.com/zeta.zip"},
		Integrity: Integrity{ZipSHA256: "zipsha", FolderSHA256: "foldersha"},
	})
	lf.Upsert(LockEntry{
		Name: "alpha", Version: "2.0.0", Kind: SourceGit,
		Locator:   SourceLocator{URL: "https://example.com/alpha.git", Rev: "deadbeef"},
		Integrity: Integrity{Rev: "deadbeef"},
	})
	lf.Upsert(LockEntry{
		Name: "alpha", Version: "1.0.0", Kind: SourceHTTP,
	})

	require.NoError(t, lf.Save())

	raw, err := os.ReadFile(filepath.Join(root, LockFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "zeta")

	reloaded, err := LoadLockfile(root)
	require.NoError(t, err)
	entries := reloaded.Entries()
	require.Len(t, entries, 3)

	// alpha@1.0.0, alpha@2.0.0, zeta@1.0.0 — name then version.
	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, "1.0.0", entries[0].Version)
	assert.Equal(t, "alpha", entries[1].Name)
	assert.Equal(t, "2.0.0", entries[1].Version)
	assert.Equal(t, "zeta", entries[2].Name)

	zetaEntry, ok := reloaded.Find("zeta")
	require.True(t, ok)
	assert.Equal(t, "zipsha", zetaEntry.Integrity.ZipSHA256)
	assert.Equal(t, "foldersha", zetaEntry.Integrity.FolderSHA256)

	gitEntry := entries[1]
	assert.Equal(t, "deadbeef", gitEntry.Locator.Rev)
	assert.Equal(t, "deadbeef", gitEntry.Integrity.Rev)
}

func TestLockEntryInstallFolderName(t *testing.T) {
	e := LockEntry{Name: "pkg-a", Version: "1.2.0"}
	assert.Equal(t, "pkg-a-1.2.0", e.InstallFolderName())
}
