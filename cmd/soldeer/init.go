// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/install"
	"github.com/soldeerio/soldeer/registry"
)

const forgeStdVersionReq = "*"

type initCommand struct {
	clean bool
}

func (c *initCommand) Name() string { return "init" }
func (c *initCommand) Args() string { return "[--clean]" }
func (c *initCommand) ShortHelp() string {
	return "bootstrap a project's soldeer config and install forge-std"
}
func (c *initCommand) LongHelp() string {
	return "Init creates or augments the host config (foundry.toml or soldeer.toml) with an\n" +
		"empty [dependencies] table and default [soldeer] settings, then installs the\n" +
		"latest forge-std. With --clean, it also removes lib/ and any .gitmodules file,\n" +
		"so a project migrating off git submodules starts from a clean slate."
}
func (c *initCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.clean, "clean", false, "remove lib/ and .gitmodules before installing")
}

func (c *initCommand) Run(ctx *soldeer.Ctx, args []string) error {
	cfg, err := soldeer.InitConfig(ctx.WorkingDir)
	if err != nil {
		return err
	}

	if c.clean {
		if err := os.RemoveAll(filepath.Join(ctx.WorkingDir, "lib")); err != nil {
			return soldeer.NewError(soldeer.KindIoError, "lib", err)
		}
		if err := os.Remove(filepath.Join(ctx.WorkingDir, ".gitmodules")); err != nil && !os.IsNotExist(err) {
			return soldeer.NewError(soldeer.KindIoError, ".gitmodules", err)
		}
	}

	if err := cfg.Add(soldeer.Dependency{Name: "forge-std", Kind: soldeer.SourceRegistry, VersionReq: forgeStdVersionReq}); err != nil {
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

	deps, err := cfg.ReadDependencies()
	if err != nil {
		return err
	}

	reg := registry.New(ctx.APIURL, ctx.HTTPClient)
	inst := install.New(ctx.WorkingDir, reg, ctx.HTTPClient, ctx.Logger)
	inst.Progress = newInstallProgress(ctx.Err, len(deps))
	results, err := inst.Install(context.Background(), cfg, lf, scfg)
	reportResults(ctx, results)
	return err
}
