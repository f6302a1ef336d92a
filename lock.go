// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soldeer

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const LockFileName = "soldeer.lock"

// Lockfile is the in-memory form of soldeer.lock: entries keyed by
// (name, version), per spec §3/§4.3.
type Lockfile struct {
	path    string
	entries []LockEntry
}

// LoadLockfile reads soldeer.lock from projectRoot. A missing file yields
// an empty, writable Lockfile rather than an error — the first `install`
// of a fresh project has no lock yet.
func LoadLockfile(projectRoot string) (*Lockfile, error) {
	path := filepath.Join(projectRoot, LockFileName)
	lf := &Lockfile{path: path}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, NewError(KindIoError, path, err)
	}
	defer f.Close()

	tree, err := toml.LoadReader(f)
	if err != nil {
		return nil, NewError(KindLockMalformed, path, err)
	}

	rawEntries, _ := tree.Get("dependencies").([]*toml.Tree)
	seen := make(map[string]bool, len(rawEntries))
	for _, rt := range rawEntries {
		e, err := lockEntryFromTree(rt)
		if err != nil {
			return nil, NewError(KindLockMalformed, path, err)
		}
		key := e.Name + "@" + e.Version
		if seen[key] {
			return nil, NewError(KindLockMalformed, path, errors.Errorf("duplicate lock entry for %s", key))
		}
		seen[key] = true
		lf.entries = append(lf.entries, e)
	}
	return lf, nil
}

func lockEntryFromTree(rt *toml.Tree) (LockEntry, error) {
	name, _ := rt.Get("name").(string)
	version, _ := rt.Get("version").(string)
	sourceStr, _ := rt.Get("source").(string)
	if name == "" || version == "" {
		return LockEntry{}, errors.New("lock entry missing name or version")
	}

	e := LockEntry{Name: name, Version: version}
	switch sourceStr {
	case "git":
		e.Kind = SourceGit
	case "http":
		e.Kind = SourceHTTP
	default:
		e.Kind = SourceRegistry
	}

	e.Locator.URL, _ = rt.Get("url").(string)
	e.Locator.Rev, _ = rt.Get("rev").(string)
	e.Integrity.Rev = e.Locator.Rev
	e.Integrity.ZipSHA256, _ = rt.Get("checksum").(string)
	e.Integrity.FolderSHA256, _ = rt.Get("integrity").(string)
	return e, nil
}

// Entries returns a defensive copy of the loaded/accumulated entries, in
// no particular order; use Find for lookups.
func (lf *Lockfile) Entries() []LockEntry {
	out := make([]LockEntry, len(lf.entries))
	copy(out, lf.entries)
	return out
}

// Find returns the entry for name, and whether one exists.
func (lf *Lockfile) Find(name string) (LockEntry, bool) {
	for _, e := range lf.entries {
		if e.Name == name {
			return e, true
		}
	}
	return LockEntry{}, false
}

// Upsert replaces any existing entry with the same name (a lockfile has at
// most one resolved version per declared dependency, spec §3's Lifecycle)
// or appends a new one.
func (lf *Lockfile) Upsert(e LockEntry) {
	for i, existing := range lf.entries {
		if existing.Name == e.Name {
			lf.entries[i] = e
			return
		}
	}
	lf.entries = append(lf.entries, e)
}

// Remove deletes name's entry, if present; a no-op otherwise (uninstall is
// idempotent, spec §4.9).
func (lf *Lockfile) Remove(name string) {
	out := lf.entries[:0]
	for _, e := range lf.entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	lf.entries = out
}

// Save writes the lockfile, canonicalized: entries sorted by name then
// version (spec §4.3), atomic write-temp-then-rename.
func (lf *Lockfile) Save() error {
	sorted := make([]LockEntry, len(lf.entries))
	copy(sorted, lf.entries)
	sort.Sort(sortedLockEntries(sorted))

	tables := make([]*toml.Tree, 0, len(sorted))
	for _, e := range sorted {
		m := map[string]interface{}{
			"name":    e.Name,
			"version": e.Version,
			"source":  e.Kind.String(),
		}
		if e.Locator.URL != "" {
			m["url"] = e.Locator.URL
		}
		if e.Integrity.Rev != "" {
			m["rev"] = e.Integrity.Rev
		}
		if e.Integrity.ZipSHA256 != "" {
			m["checksum"] = e.Integrity.ZipSHA256
		}
		if e.Integrity.FolderSHA256 != "" {
			m["integrity"] = e.Integrity.FolderSHA256
		}
		t, err := toml.TreeFromMap(m)
		if err != nil {
			return NewError(KindIoError, lf.path, err)
		}
		tables = append(tables, t)
	}

	root, err := toml.TreeFromMap(map[string]interface{}{})
	if err != nil {
		return NewError(KindIoError, lf.path, err)
	}
	root.Set("dependencies", tables)

	s, err := root.ToTomlString()
	if err != nil {
		return NewError(KindIoError, lf.path, err)
	}
	return atomicWriteFile(lf.path, []byte(s), 0o644)
}

type sortedLockEntries []LockEntry

func (s sortedLockEntries) Len() int      { return len(s) }
func (s sortedLockEntries) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s sortedLockEntries) Less(i, j int) bool {
	if s[i].Name != s[j].Name {
		return s[i].Name < s[j].Name
	}
	return s[i].Version < s[j].Version
}
