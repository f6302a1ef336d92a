// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/install"
	"github.com/soldeerio/soldeer/registry"
)

type updateCommand struct {
	recursiveDeps bool
}

func (c *updateCommand) Name() string      { return "update" }
func (c *updateCommand) Args() string      { return "[--recursive-deps]" }
func (c *updateCommand) ShortHelp() string { return "re-resolve dependencies and reinstall what changed" }
func (c *updateCommand) LongHelp() string {
	return "Update drops the lockfile's fast-path entry for every dependency that isn't\n" +
		"pinned to an exact git commit, then runs the same reconciliation as install.\n" +
		"Registry dependencies re-resolve their version requirement against the\n" +
		"registry's current revisions; branch/tag/unpinned git dependencies re-clone to\n" +
		"pick up upstream movement; http dependencies are always re-downloaded and\n" +
		"re-hashed. A dependency pinned to an exact rev has nothing to update."
}
func (c *updateCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.recursiveDeps, "recursive-deps", false, "after update, descend into each dependency and install its own dependencies")
}

func (c *updateCommand) Run(ctx *soldeer.Ctx, args []string) error {
	cfg, err := soldeer.LoadConfig(ctx.WorkingDir)
	if err != nil {
		return err
	}
	deps, err := cfg.ReadDependencies()
	if err != nil {
		return err
	}
	lf, err := soldeer.LoadLockfile(ctx.WorkingDir)
	if err != nil {
		return err
	}
	scfg, err := cfg.ReadSoldeerConfig()
	if err != nil {
		return err
	}
	if c.recursiveDeps {
		scfg.RecursiveDeps = true
	}

	for _, d := range deps {
		if d.Kind == soldeer.SourceGit && d.GitIdentifier.Kind == soldeer.GitRev {
			continue // pinned to an exact commit: nothing to re-resolve
		}
		lf.Remove(d.Name)
	}

	reg := registry.New(ctx.APIURL, ctx.HTTPClient)
	reg.Token = ctx.LoginToken
	inst := install.New(ctx.WorkingDir, reg, ctx.HTTPClient, ctx.Logger)
	inst.Progress = newInstallProgress(ctx.Err, len(deps))
	results, err := inst.Install(context.Background(), cfg, lf, scfg)
	reportResults(ctx, results)
	return err
}
