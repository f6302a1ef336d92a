package soldeer

import (
	"os"

	"github.com/soldeerio/soldeer/internal/fsutil"
)

// atomicWriteFile writes data to path via write-to-temp-then-rename, used
// by every on-disk write this package makes (config, lockfile,
// remappings) so a failed run never leaves a truncated file (spec §7).
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if err := fsutil.WriteFileAtomic(path, data, perm); err != nil {
		return NewError(KindIoError, path, err)
	}
	return nil
}
