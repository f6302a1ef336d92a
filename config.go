// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soldeer

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const (
	FoundryConfigName = "foundry.toml"
	SoldeerConfigName = "soldeer.toml"
)

// configKind records which file owns [dependencies], per spec §4.2's
// preference order.
type configKind int

const (
	configFoundry configKind = iota
	configSoldeer
)

// Config is the loaded host config: whichever of foundry.toml/soldeer.toml
// owns the `[dependencies]` table for this project. It holds the parsed
// TOML tree so Add/Remove/Replace edit a single key and keep every other
// key and table. Each save re-serializes the whole tree: comments in the
// file are not kept, keys are written in alphabetical order, and the
// original whitespace is not reproduced.
type Config struct {
	root string
	path string
	kind configKind
	tree *toml.Tree
}

// LoadConfig finds and parses the host config under projectRoot, per spec
// §4.2's preference order: foundry.toml if it has [dependencies], else
// soldeer.toml, else KindConfigMissing.
func LoadConfig(projectRoot string) (*Config, error) {
	foundryPath := filepath.Join(projectRoot, FoundryConfigName)
	if tree, err := loadTomlTree(foundryPath); err == nil {
		if tree.Has("dependencies") {
			return &Config{root: projectRoot, path: foundryPath, kind: configFoundry, tree: tree}, nil
		}
	} else if !os.IsNotExist(errors.Cause(err)) {
		return nil, NewError(KindConfigMalformed, foundryPath, err)
	}

	soldeerPath := filepath.Join(projectRoot, SoldeerConfigName)
	if tree, err := loadTomlTree(soldeerPath); err == nil {
		return &Config{root: projectRoot, path: soldeerPath, kind: configSoldeer, tree: tree}, nil
	} else if !os.IsNotExist(errors.Cause(err)) {
		return nil, NewError(KindConfigMalformed, soldeerPath, err)
	}

	return nil, NewError(KindConfigMissing, projectRoot, errors.New("neither foundry.toml ([dependencies]) nor soldeer.toml was found; run `soldeer init`"))
}

func loadTomlTree(path string) (*toml.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	tree, err := toml.LoadReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return tree, nil
}

// InitConfig implements spec §4.9 Init's config step: augment the existing
// host config in place with an empty `[dependencies]` table and default
// `[soldeer]` options, or create a fresh soldeer.toml when no host config
// exists yet.
func InitConfig(projectRoot string) (*Config, error) {
	cfg, err := LoadConfig(projectRoot)
	if err != nil {
		if sErr, ok := err.(*Error); !ok || sErr.Kind != KindConfigMissing {
			return nil, err
		}
		path := filepath.Join(projectRoot, SoldeerConfigName)
		kind := configSoldeer
		tree, _ := toml.TreeFromMap(map[string]interface{}{})
		foundryPath := filepath.Join(projectRoot, FoundryConfigName)
		if ft, ferr := loadTomlTree(foundryPath); ferr == nil {
			path, kind, tree = foundryPath, configFoundry, ft
		}
		cfg = &Config{root: projectRoot, path: path, kind: kind, tree: tree}
	}

	if !cfg.tree.Has("dependencies") {
		empty, _ := toml.TreeFromMap(map[string]interface{}{})
		cfg.tree.Set("dependencies", empty)
	}
	if !cfg.tree.Has("soldeer") {
		cfg.tree.Set("soldeer", defaultSoldeerTree())
	}
	if err := cfg.save(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultSoldeerTree() *toml.Tree {
	t, _ := toml.TreeFromMap(map[string]interface{}{
		"remappings_generate":   true,
		"remappings_regenerate": false,
		"remappings_version":    true,
		"remappings_location":   "txt",
		"recursive_deps":        false,
	})
	return t
}

// Path is the absolute path of the loaded host config file.
func (c *Config) Path() string { return c.path }

// IsFoundryHost is true when [dependencies] lives in foundry.toml rather
// than a standalone soldeer.toml; only a foundry host supports
// remappings_location = "config" (spec §3 SoldeerConfig).
func (c *Config) IsFoundryHost() bool { return c.kind == configFoundry }

// ReadDependencies parses every `name = "<req>"` or
// `name = { version = "...", url|git = "...", rev|branch|tag = "..." }`
// entry under [dependencies] into a Dependency, per spec §4.2.
func (c *Config) ReadDependencies() ([]Dependency, error) {
	raw, ok := c.tree.Get("dependencies").(*toml.Tree)
	if !ok || raw == nil {
		return nil, nil
	}

	keys := raw.Keys()
	deps := make([]Dependency, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, name := range keys {
		if seen[name] {
			return nil, NewError(KindDuplicateDependency, name, nil)
		}
		seen[name] = true

		dep, err := parseDependencyValue(name, raw.Get(name))
		if err != nil {
			return nil, err
		}
		if err := dep.Validate(); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func parseDependencyValue(name string, v interface{}) (Dependency, error) {
	switch val := v.(type) {
	case string:
		return Dependency{Name: name, Kind: SourceRegistry, VersionReq: val}, nil
	case *toml.Tree:
		d := Dependency{Name: name}
		version, _ := val.Get("version").(string)
		url, hasURL := val.Get("url").(string)
		gitURL, hasGit := val.Get("git").(string)

		switch {
		case hasGit:
			d.Kind = SourceGit
			d.URL = gitURL
			d.VersionReq = version
			d.GitIdentifier = gitIdentifierFromTree(val)
		case hasURL:
			d.Kind = SourceHTTP
			d.URL = url
			d.VersionReq = version
		default:
			return Dependency{}, NewError(KindConfigMalformed, name, errors.New("table dependency must carry url or git"))
		}
		return d, nil
	default:
		return Dependency{}, NewError(KindConfigMalformed, name, errors.Errorf("unsupported dependency value type %T", v))
	}
}

func gitIdentifierFromTree(val *toml.Tree) GitIdentifier {
	if rev, ok := val.Get("rev").(string); ok && rev != "" {
		return GitIdentifier{Kind: GitRev, Value: rev}
	}
	if branch, ok := val.Get("branch").(string); ok && branch != "" {
		return GitIdentifier{Kind: GitBranch, Value: branch}
	}
	if tag, ok := val.Get("tag").(string); ok && tag != "" {
		return GitIdentifier{Kind: GitTag, Value: tag}
	}
	return GitIdentifier{Kind: GitNone}
}

// ReadSoldeerConfig parses the `[soldeer]` table, falling back to spec §3's
// defaults for any option left unset.
func (c *Config) ReadSoldeerConfig() (SoldeerConfig, error) {
	cfg := DefaultSoldeerConfig()
	raw, ok := c.tree.Get("soldeer").(*toml.Tree)
	if !ok || raw == nil {
		return cfg, nil
	}

	if v, ok := raw.Get("remappings_generate").(bool); ok {
		cfg.RemappingsGenerate = v
	}
	if v, ok := raw.Get("remappings_regenerate").(bool); ok {
		cfg.RemappingsRegenerate = v
	}
	if v, ok := raw.Get("remappings_version").(bool); ok {
		cfg.RemappingsVersion = v
	}
	if v, ok := raw.Get("remappings_prefix").(string); ok {
		cfg.RemappingsPrefix = v
	}
	if v, ok := raw.Get("remappings_location").(string); ok {
		switch v {
		case "config":
			cfg.RemappingsLocation = RemappingsLocationConfig
		case "txt":
			cfg.RemappingsLocation = RemappingsLocationTxt
		default:
			return cfg, NewError(KindConfigMalformed, "soldeer.remappings_location", errors.Errorf("unknown value %q", v))
		}
	}
	if cfg.RemappingsLocation == RemappingsLocationConfig && !c.IsFoundryHost() {
		return cfg, NewError(KindConfigMalformed, "soldeer.remappings_location", errors.New(`"config" target requires a foundry-style host config`))
	}
	if v, ok := raw.Get("recursive_deps").(bool); ok {
		cfg.RecursiveDeps = v
	}
	return cfg, nil
}

// Add inserts or overwrites dep's declaration under [dependencies],
// keeping every other key and table, then writes atomically (see Config
// for what a save does not keep).
func (c *Config) Add(dep Dependency) error {
	if err := dep.Validate(); err != nil {
		return err
	}
	return c.setDependency(dep)
}

// Replace is Add under a name that's expected to already exist; the
// structural edit is identical either way (set-or-insert).
func (c *Config) Replace(dep Dependency) error {
	return c.Add(dep)
}

func (c *Config) setDependency(dep Dependency) error {
	value, err := dependencyToTomlValue(dep)
	if err != nil {
		return err
	}
	if !c.tree.Has("dependencies") {
		empty, _ := toml.TreeFromMap(map[string]interface{}{})
		c.tree.Set("dependencies", empty)
	}
	c.tree.SetPath([]string{"dependencies", dep.Name}, value)
	return c.save()
}

func dependencyToTomlValue(dep Dependency) (interface{}, error) {
	switch dep.Kind {
	case SourceRegistry:
		return dep.VersionReq, nil
	case SourceHTTP:
		m := map[string]interface{}{"url": dep.URL}
		if dep.VersionReq != "" {
			m["version"] = dep.VersionReq
		}
		return toml.TreeFromMap(m)
	case SourceGit:
		m := map[string]interface{}{"git": dep.URL}
		if dep.VersionReq != "" {
			m["version"] = dep.VersionReq
		}
		switch dep.GitIdentifier.Kind {
		case GitRev:
			m["rev"] = dep.GitIdentifier.Value
		case GitBranch:
			m["branch"] = dep.GitIdentifier.Value
		case GitTag:
			m["tag"] = dep.GitIdentifier.Value
		}
		return toml.TreeFromMap(m)
	default:
		return nil, NewError(KindConfigMalformed, dep.Name, errors.New("unknown dependency kind"))
	}
}

// Remove deletes name's declaration from [dependencies]. Removing a name
// that isn't declared is KindUnknownDependency.
func (c *Config) Remove(name string) error {
	raw, ok := c.tree.Get("dependencies").(*toml.Tree)
	if !ok || raw == nil || !raw.Has(name) {
		return NewError(KindUnknownDependency, name, nil)
	}
	if err := raw.Delete(name); err != nil {
		return NewError(KindIoError, name, err)
	}
	c.tree.Set("dependencies", raw)
	return c.save()
}

func (c *Config) save() error {
	s, err := c.tree.ToTomlString()
	if err != nil {
		return NewError(KindIoError, c.path, err)
	}
	return atomicWriteFile(c.path, []byte(s), 0o644)
}
