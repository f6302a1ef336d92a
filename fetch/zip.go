package fetch

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/internal/fsutil"
)

// Extract unpacks archivePath into destDir, refusing any entry whose
// normalized path escapes destDir (absolute paths or `..` components,
// spec §4.5's ZIP extractor). File modes are preserved where the entry
// carries them. Any error removes the partial destDir before returning.
func Extract(archivePath, destDir string) (err error) {
	r, openErr := zip.OpenReader(archivePath)
	if openErr != nil {
		return soldeer.NewError(soldeer.KindArchiveMalformed, archivePath, openErr)
	}
	defer r.Close()

	defer func() {
		if err != nil {
			fsutil.RemoveAll(destDir)
		}
	}()

	if err = os.MkdirAll(destDir, 0o755); err != nil {
		return soldeer.NewError(soldeer.KindIoError, destDir, err)
	}

	for _, f := range r.File {
		target, safeErr := safeJoin(destDir, f.Name)
		if safeErr != nil {
			return soldeer.NewError(soldeer.KindPathTraversal, f.Name, safeErr)
		}

		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return soldeer.NewError(soldeer.KindIoError, target, err)
			}
			continue
		}

		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return soldeer.NewError(soldeer.KindIoError, target, err)
		}

		if err = extractFile(f, target); err != nil {
			return soldeer.NewError(soldeer.KindArchiveMalformed, f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// safeJoin joins destDir and name after normalizing name, rejecting
// absolute paths and any result that would resolve outside destDir.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", soldeer.NewError(soldeer.KindPathTraversal, name, nil)
	}
	target := filepath.Join(destDir, clean)
	destWithSep := destDir + string(filepath.Separator)
	if target != destDir && !strings.HasPrefix(target, destWithSep) {
		return "", soldeer.NewError(soldeer.KindPathTraversal, name, nil)
	}
	return target, nil
}
