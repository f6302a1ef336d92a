package fingerprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveDigestIsStableForSameBytes(t *testing.T) {
	d1, err := ArchiveDigest(strings.NewReader("hello world"))
	require.NoError(t, err)
	d2, err := ArchiveDigest(strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	d3, err := ArchiveDigest(strings.NewReader("hello World"))
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestFolderDigestStableAcrossRunsAndIgnoresBuildArtifacts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/Token.sol":   "contract Token {}",
		"README.md":       "hello",
		"build/Token.json": `{"abi":[]}`,
	})
	os.WriteFile(filepath.Join(root, ".soldeerignore"), []byte("build/\n"), 0644)

	d1, err := FolderDigest(root)
	require.NoError(t, err)

	// A second identical folder, built independently, must hash the same.
	root2 := t.TempDir()
	writeTree(t, root2, map[string]string{
		"src/Token.sol":   "contract Token {}",
		"README.md":       "hello",
		"build/Token.json": `{"different":"garbage"}`,
	})
	os.WriteFile(filepath.Join(root2, ".soldeerignore"), []byte("build/\n"), 0644)

	d2, err := FolderDigest(root2)
	require.NoError(t, err)

	assert.Equal(t, d1, d2, "build/ is ignored so differing build artifacts must not affect the digest")
}

func TestFolderDigestChangesWithContent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "one"})
	d1, err := FolderDigest(root)
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"a.txt": "two"})
	d2, err := FolderDigest(root)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestFolderDigestIgnoresEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	writeTree(t, root, map[string]string{"a.txt": "content"})
	d1, err := FolderDigest(root)
	require.NoError(t, err)

	root2 := t.TempDir()
	writeTree(t, root2, map[string]string{"a.txt": "content"})
	d2, err := FolderDigest(root2)
	require.NoError(t, err)

	assert.Equal(t, d1, d2, "an empty directory must not affect the digest")
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}
