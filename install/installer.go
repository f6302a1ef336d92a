// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package install is the orchestrator: given a project's declared
// dependencies and its existing lockfile, it produces a plan and executes
// it with a bounded worker pool, one state machine per dependency (spec
// §4.6).
package install

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
	"github.com/theckman/go-flock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/fetch"
	"github.com/soldeerio/soldeer/fingerprint"
	"github.com/soldeerio/soldeer/internal/fsutil"
	solog "github.com/soldeerio/soldeer/log"
)

// State is one point in the per-dependency install state machine:
// Plan → Fetching → Extracting → Hashing → Installed, with terminal
// Failed and the Skipped fast path.
type State int

const (
	StatePlan State = iota
	StateFetching
	StateExtracting
	StateHashing
	StateInstalled
	StateSkipped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "Fetching"
	case StateExtracting:
		return "Extracting"
	case StateHashing:
		return "Hashing"
	case StateInstalled:
		return "Installed"
	case StateSkipped:
		return "Skipped"
	case StateFailed:
		return "Failed"
	default:
		return "Plan"
	}
}

// Result is the terminal outcome of one dependency's state machine.
type Result struct {
	Name  string
	State State
	Entry soldeer.LockEntry
	Err   error
}

// registryResolver is the subset of registry.Client the installer needs,
// narrowed so tests can substitute a fake without a live HTTP server.
type registryResolver interface {
	Resolve(ctx context.Context, name, req string) (version, url string, err error)
}

// Installer drives the plan-then-fan-out algorithm of spec §4.6.
type Installer struct {
	ProjectRoot string
	Registry    registryResolver
	HTTPClient  *http.Client
	Concurrency int // <=0 means runtime.NumCPU(), capped to the dep count
	Logger      *solog.Logger

	// Progress, if set, is called once per dependency as its state machine
	// reaches a terminal state (Installed/Skipped/Failed). It may be called
	// concurrently from multiple goroutines.
	Progress func(Result)
}

// New builds an Installer rooted at projectRoot.
func New(projectRoot string, reg registryResolver, httpClient *http.Client, logger *solog.Logger) *Installer {
	return &Installer{ProjectRoot: projectRoot, Registry: reg, HTTPClient: httpClient, Logger: logger}
}

type planItem struct {
	dep         soldeer.Dependency
	hasOldEntry bool
	oldEntry    soldeer.LockEntry
}

// lockSatisfies decides the spec §4.6 "use lock" fast path: a lock entry
// of the same source, whose recorded version still satisfies the
// declaration. Registry deps check SemVer (falling back to a legacy
// literal match); HTTP deps compare the archive URL; git deps only reuse
// the lock when pinned to the identical rev — branch/tag/None tracking
// refs always re-resolve so upstream moves are observed (this is our
// resolution of the ambiguity between spec §4.5 step 4's computed
// "<branch-or-tag>/<shortrev>" label and §8 scenario S3's literal
// "<name>-<version_req>" folder name: see DESIGN.md).
func lockSatisfies(d soldeer.Dependency, l soldeer.LockEntry) bool {
	if l.Kind != d.Kind {
		return false
	}
	switch d.Kind {
	case soldeer.SourceRegistry:
		c, err := semver.NewConstraint(d.VersionReq)
		if err != nil {
			return d.VersionReq == l.Version
		}
		v, err := semver.NewVersion(l.Version)
		if err != nil {
			return d.VersionReq == l.Version
		}
		return c.Check(v)
	case soldeer.SourceHTTP:
		return l.Locator.URL == d.URL
	case soldeer.SourceGit:
		if l.Locator.URL != d.URL {
			return false
		}
		return d.GitIdentifier.Kind == soldeer.GitRev && d.GitIdentifier.Value == l.Integrity.Rev
	default:
		return false
	}
}

// Install reconciles cfg's declared dependencies against lf, fetching
// whatever is missing or stale, then writes the lockfile once and
// regenerates remappings. It returns an error when the config cannot be
// read, another install holds the project's lock file, the lockfile or
// remappings cannot be written, or at least one dependency failed. Once
// the dependencies have run, Results reports every dependency's terminal
// state.
func (in *Installer) Install(ctx context.Context, cfg *soldeer.Config, lf *soldeer.Lockfile, scfg soldeer.SoldeerConfig) ([]Result, error) {
	deps, err := cfg.ReadDependencies()
	if err != nil {
		return nil, err
	}

	guard := flock.NewFlock(filepath.Join(in.ProjectRoot, ".soldeer-install.lock"))
	locked, err := guard.TryLock()
	if err != nil {
		return nil, soldeer.NewError(soldeer.KindIoError, guard.Path(), err)
	}
	if !locked {
		return nil, soldeer.NewError(soldeer.KindIoError, guard.Path(), errors.New("another soldeer install is already running in this project"))
	}
	defer guard.Unlock()

	items := make([]planItem, 0, len(deps))
	for _, d := range deps {
		item := planItem{dep: d}
		if old, ok := lf.Find(d.Name); ok && lockSatisfies(d, old) {
			item.hasOldEntry = true
			item.oldEntry = old
		}
		items = append(items, item)
	}

	concurrency := in.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	var g errgroup.Group
	results := make([]Result, len(items))

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{Name: item.dep.Name, State: StateFailed, Err: err}
				return nil
			}
			defer sem.Release(1)
			// Per-dep failures never abort siblings (spec §7 propagation):
			// installOne always returns a terminal Result, never an error
			// that would cancel the group.
			results[i] = in.installOne(ctx, item)
			if in.Progress != nil {
				in.Progress(results[i])
			}
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		if r.State == StateInstalled || r.State == StateSkipped {
			lf.Upsert(r.Entry)
		}
	}
	if err := lf.Save(); err != nil {
		return results, err
	}

	installed := make([]soldeer.InstalledDep, 0, len(results))
	byName := make(map[string]soldeer.Dependency, len(deps))
	for _, d := range deps {
		byName[d.Name] = d
	}
	for _, r := range results {
		if r.State != StateInstalled && r.State != StateSkipped {
			continue
		}
		installed = append(installed, soldeer.InstalledDep{
			Name:            r.Name,
			ResolvedVersion: r.Entry.Version,
			VersionReqLabel: byName[r.Name].VersionReq,
		})
	}
	if err := soldeer.SyncRemappings(cfg, scfg, in.ProjectRoot, installed); err != nil {
		return results, err
	}

	if scfg.RecursiveDeps {
		in.recurse(ctx, results)
	}

	var failures []string
	for _, r := range results {
		if r.State == StateFailed {
			failures = append(failures, fmt.Sprintf("%s: %v", r.Name, r.Err))
		}
	}
	if len(failures) > 0 {
		return results, soldeer.NewError(soldeer.KindDownloadFailed, strings.Join(failures, "; "), errors.New("one or more dependencies failed to install"))
	}
	return results, nil
}

func (in *Installer) installOne(ctx context.Context, item planItem) Result {
	name := item.dep.Name

	switch item.dep.Kind {
	case soldeer.SourceRegistry, soldeer.SourceHTTP:
		return in.installArchive(ctx, item)
	case soldeer.SourceGit:
		return in.installGit(ctx, item)
	default:
		return Result{Name: name, State: StateFailed, Err: soldeer.NewError(soldeer.KindConfigMalformed, name, errors.New("unknown dependency kind"))}
	}
}

func (in *Installer) installArchive(ctx context.Context, item planItem) Result {
	name := item.dep.Name

	version := item.dep.VersionReq
	url := item.dep.URL
	if item.hasOldEntry {
		version = item.oldEntry.Version
		url = item.oldEntry.Locator.URL
	} else if item.dep.Kind == soldeer.SourceRegistry {
		v, u, err := in.Registry.Resolve(ctx, name, item.dep.VersionReq)
		if err != nil {
			return Result{Name: name, State: StateFailed, Err: err}
		}
		version, url = v, u
	}

	folder := in.folderPath(name, version)

	if item.hasOldEntry && version == item.oldEntry.Version {
		if matches, _ := folderMatches(folder, item.oldEntry.Integrity.FolderSHA256); matches {
			return Result{Name: name, State: StateSkipped, Entry: item.oldEntry}
		}
	}
	fsutil.RemoveAll(folder)

	tmpDir := filepath.Join(in.ProjectRoot, "dependencies", ".tmp-"+uuid.NewString())
	defer fsutil.RemoveAll(tmpDir)

	httpRes, err := fetch.Archive(ctx, in.HTTPClient, url, tmpDir, name+".zip")
	if err != nil {
		return Result{Name: name, State: StateFailed, Err: err}
	}

	if err := fetch.Extract(httpRes.ArchivePath, folder); err != nil {
		fsutil.RemoveAll(folder)
		return Result{Name: name, State: StateFailed, Err: err}
	}

	folderHash, err := fingerprint.FolderDigest(folder)
	if err != nil {
		fsutil.RemoveAll(folder)
		return Result{Name: name, State: StateFailed, Err: soldeer.NewError(soldeer.KindHashMismatch, name, err)}
	}

	entry := soldeer.LockEntry{
		Name:    name,
		Version: version,
		Kind:    item.dep.Kind,
		Locator: soldeer.SourceLocator{URL: url},
		Integrity: soldeer.Integrity{
			ZipSHA256:    httpRes.ZipSHA256,
			FolderSHA256: folderHash,
		},
	}
	return Result{Name: name, State: StateInstalled, Entry: entry}
}

func (in *Installer) installGit(ctx context.Context, item planItem) Result {
	name := item.dep.Name

	if item.hasOldEntry {
		folder := in.folderPath(name, item.oldEntry.Version)
		if matches, _ := folderMatches(folder, item.oldEntry.Integrity.FolderSHA256); matches {
			return Result{Name: name, State: StateSkipped, Entry: item.oldEntry}
		}
	}

	tmpDir := filepath.Join(in.ProjectRoot, "dependencies", ".tmp-"+uuid.NewString())
	defer fsutil.RemoveAll(tmpDir)

	gitRes, err := fetch.Git(item.dep.URL, tmpDir, item.dep.GitIdentifier)
	if err != nil {
		return Result{Name: name, State: StateFailed, Err: err}
	}

	folder := in.folderPath(name, gitRes.Version)
	fsutil.RemoveAll(folder)
	if item.hasOldEntry && item.oldEntry.Version != gitRes.Version {
		fsutil.RemoveAll(in.folderPath(name, item.oldEntry.Version))
	}

	if err := relocateTree(tmpDir, folder); err != nil {
		fsutil.RemoveAll(folder)
		return Result{Name: name, State: StateFailed, Err: soldeer.NewError(soldeer.KindIoError, folder, err)}
	}

	folderHash, err := fingerprint.FolderDigest(folder)
	if err != nil {
		fsutil.RemoveAll(folder)
		return Result{Name: name, State: StateFailed, Err: soldeer.NewError(soldeer.KindHashMismatch, name, err)}
	}

	entry := soldeer.LockEntry{
		Name:    name,
		Version: gitRes.Version,
		Kind:    soldeer.SourceGit,
		Locator: soldeer.SourceLocator{URL: item.dep.URL, Rev: gitRes.Rev},
		Integrity: soldeer.Integrity{
			Rev:          gitRes.Rev,
			FolderSHA256: folderHash,
		},
	}
	return Result{Name: name, State: StateInstalled, Entry: entry}
}

func (in *Installer) folderPath(name, version string) string {
	return filepath.Join(in.ProjectRoot, "dependencies", name+"-"+version)
}

func folderMatches(folder, wantHash string) (bool, error) {
	if wantHash == "" {
		return false, nil
	}
	if ok, _ := fsutil.IsDir(folder); !ok {
		return false, nil
	}
	got, err := fingerprint.FolderDigest(folder)
	if err != nil {
		return false, err
	}
	return got == wantHash, nil
}

// relocateTree moves the cloned tree at src into its final dest, per spec
// §4.5 step 4 ("extracting is a rename of the cloned tree into place").
// Grounded directly on the teacher's project_manager.go default-case
// relocation, which uses termie/go-shutil's CopyTree rather than a bare
// os.Rename so VCS-internal directories never leak into the installed
// folder.
func relocateTree(src, dest string) error {
	opts := &shutil.CopyTreeOptions{
		Symlinks:     true,
		CopyFunction: shutil.Copy,
		Ignore: func(_ string, contents []os.FileInfo) (ignore []string) {
			for _, fi := range contents {
				if !fi.IsDir() {
					continue
				}
				switch fi.Name() {
				case ".git", ".bzr", ".svn", ".hg":
					ignore = append(ignore, fi.Name())
				}
			}
			return
		},
	}
	if err := shutil.CopyTree(src, dest, opts); err != nil {
		return err
	}
	return fsutil.RemoveAll(src)
}

// recurse implements spec §4.6's recursive install: for every dependency
// that landed in Installed/Skipped, descend into its folder and (a) run
// `git submodule update --init --recursive` if it carries .gitmodules,
// and (b) run a non-recursive install if it carries its own host config.
// Depth is bounded to one level; child failures are logged and never roll
// back the parent.
func (in *Installer) recurse(ctx context.Context, results []Result) {
	for _, r := range results {
		if r.State != StateInstalled && r.State != StateSkipped {
			continue
		}
		folder := in.folderPath(r.Name, r.Entry.Version)

		if ok, _ := fsutil.IsRegular(filepath.Join(folder, ".gitmodules")); ok {
			if err := runGitSubmodules(folder); err != nil && in.Logger != nil {
				in.Logger.Logerrf("submodule update for %s: %v", r.Name, err)
			}
		}

		childCfg, err := soldeer.LoadConfig(folder)
		if err != nil {
			continue // no child config: nothing more to do
		}
		childLock, err := soldeer.LoadLockfile(folder)
		if err != nil {
			if in.Logger != nil {
				in.Logger.Logerrf("recursive install for %s: %v", r.Name, err)
			}
			continue
		}
		childSCfg, err := childCfg.ReadSoldeerConfig()
		if err != nil {
			if in.Logger != nil {
				in.Logger.Logerrf("recursive install for %s: %v", r.Name, err)
			}
			continue
		}
		childSCfg.RecursiveDeps = false

		child := New(folder, in.Registry, in.HTTPClient, in.Logger)
		if _, err := child.Install(ctx, childCfg, childLock, childSCfg); err != nil && in.Logger != nil {
			in.Logger.Logerrf("recursive install for %s: %v", r.Name, err)
		}
	}
}

func runGitSubmodules(dir string) error {
	cmd := exec.Command("git", "submodule", "update", "--init", "--recursive")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &soldeer.GitFailedError{Args: cmd.Args, Stderr: string(out)}
	}
	return nil
}
