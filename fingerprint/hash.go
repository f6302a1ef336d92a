// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fingerprint computes the two canonical digests spec §4.1
// defines: the archive digest (raw downloaded bytes) and the folder
// digest (a deterministic walk of an installed dependency's contents).
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// ArchiveDigest returns the lowercase hex SHA-256 of r's bytes, matching
// spec §4.1 "Archive digest".
func ArchiveDigest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "hashing archive")
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

type node struct {
	relPath string // forward-slash, relative to root
	isDir   bool
	isLink  bool
}

// FolderDigest returns the deterministic SHA-256 of root's contents, per
// spec §4.1 "Folder digest": sorted relative paths with forward slashes,
// `<relative_path>\n<file_bytes>` fed into one running hash for regular
// files, path-only for symlinks and non-empty directories, empty
// directories and the root's own name excluded. A `.gitignore`/`.ignore`/
// `.soldeerignore` at root, if present, excludes matching paths.
func FolderDigest(root string) (string, error) {
	matcher, err := loadIgnoreMatcher(root)
	if err != nil {
		return "", err
	}

	var nodes []node
	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == root {
				return nil
			}
			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			isLink := de.IsSymlink()
			isDir := de.IsDir() && !isLink

			if matcher.Match(rel, isDir) {
				if isDir {
					return filepath.SkipDir
				}
				return nil
			}

			nodes = append(nodes, node{relPath: rel, isDir: isDir, isLink: isLink})
			return nil
		},
		Unsorted:            true, // we sort ourselves below, across the whole tree, not per-directory
		FollowSymbolicLinks: false,
	})
	if err != nil {
		return "", errors.Wrap(err, "walking folder for digest")
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].relPath < nodes[j].relPath })

	nonEmptyDirs := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.isDir {
			continue // directories are marked non-empty by their descendants, not by themselves
		}
		dir := pathDir(n.relPath)
		for dir != "" {
			nonEmptyDirs[dir] = true
			dir = pathDir(dir)
		}
	}

	h := sha256.New()
	for _, n := range nodes {
		if n.isDir {
			if !nonEmptyDirs[n.relPath] {
				continue // empty directories are ignored
			}
			h.Write([]byte(n.relPath))
			continue
		}
		if n.isLink {
			h.Write([]byte(n.relPath))
			continue
		}

		f, err := os.Open(filepath.Join(root, n.relPath))
		if err != nil {
			return "", errors.Wrapf(err, "opening %s", n.relPath)
		}
		h.Write([]byte(n.relPath))
		h.Write([]byte{'\n'})
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", errors.Wrapf(err, "reading %s", n.relPath)
		}
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// pathDir is filepath.Dir for forward-slash relative paths, returning ""
// for a top-level entry instead of ".".
func pathDir(rel string) string {
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return ""
	}
	return rel[:i]
}
