// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fsutil holds the small filesystem primitives shared by the root
// package's config, lockfile and remappings writes, the fetch and install
// packages, and the CLI: existence predicates and an atomic
// write-temp-then-rename, generalized from the teacher's renameWithFallback.
package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
)

// IsRegular is true if name is a regular file.
func IsRegular(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !fi.IsDir(), nil
}

// IsDir is true if name is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// WriteFileAtomic writes data to path by writing to a sibling temp file and
// renaming it into place, so a crash mid-write never leaves a truncated
// config/lockfile/remappings file (spec §4.2, §4.3, §4.7 step 4).
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".soldeer-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return RenameWithFallback(tmpPath, path)
}

// RenameWithFallback attempts to rename src to dest, falling back to a copy
// when they sit on different devices (syscall.EXDEV), emulating rename
// semantics by removing src after a successful fallback copy.
func RenameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := CopyDir(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	err = os.Rename(src, dest)
	if err == nil {
		return nil
	}

	terr, ok := err.(*os.LinkError)
	if !ok {
		return err
	}

	var cerr error
	if terr.Err == syscall.EXDEV {
		if fi.IsDir() {
			cerr = CopyDir(src, dest)
		} else {
			cerr = CopyFile(src, dest)
		}
	} else {
		return terr
	}

	if cerr != nil {
		return cerr
	}
	return os.RemoveAll(src)
}

// CopyDir recursively copies src into dest, preserving file modes.
func CopyDir(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, fi.Mode()); err != nil {
		return err
	}

	dir, err := os.Open(src)
	if err != nil {
		return err
	}
	defer dir.Close()

	entries, err := dir.Readdir(-1)
	if err != nil {
		return err
	}
	for _, obj := range entries {
		if obj.Mode()&os.ModeSymlink != 0 {
			continue
		}
		srcfile := filepath.Join(src, obj.Name())
		destfile := filepath.Join(dest, obj.Name())
		if obj.IsDir() {
			if err := CopyDir(srcfile, destfile); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(srcfile, destfile); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies src to dest, preserving the permission bits.
func CopyFile(src, dest string) error {
	srcfile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcfile.Close()

	destfile, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer destfile.Close()

	if _, err := io.Copy(destfile, srcfile); err != nil {
		return err
	}

	srcinfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dest, srcinfo.Mode())
}

// RemoveAll removes path and everything under it, tolerating a missing
// path (uninstall's idempotence requirement, spec §4.9).
func RemoveAll(path string) error {
	err := os.RemoveAll(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
