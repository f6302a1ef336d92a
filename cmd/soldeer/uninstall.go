// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"path/filepath"

	"github.com/pkg/errors"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/internal/fsutil"
)

type uninstallCommand struct{}

func (c *uninstallCommand) Name() string      { return "uninstall" }
func (c *uninstallCommand) Args() string      { return "<name>" }
func (c *uninstallCommand) ShortHelp() string { return "remove a dependency from config, lock, remappings, and disk" }
func (c *uninstallCommand) LongHelp() string {
	return "Uninstall removes name's declaration, lock entry, and installed folder, then\n" +
		"regenerates remappings. It is idempotent: any piece that's already missing is\n" +
		"logged and skipped rather than treated as an error."
}
func (c *uninstallCommand) Register(fs *flag.FlagSet) {}

func (c *uninstallCommand) Run(ctx *soldeer.Ctx, args []string) error {
	if len(args) != 1 {
		return soldeer.NewError(soldeer.KindNameInvalid, "uninstall", errors.New("uninstall takes exactly one dependency name"))
	}
	name := args[0]

	cfg, err := soldeer.LoadConfig(ctx.WorkingDir)
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

	if entry, ok := lf.Find(name); ok {
		folder := filepath.Join(ctx.WorkingDir, "dependencies", entry.InstallFolderName())
		if err := fsutil.RemoveAll(folder); err != nil {
			return soldeer.NewError(soldeer.KindIoError, folder, err)
		}
	} else {
		ctx.Logger.LogDepfln("%s: no lock entry, nothing to remove from disk", name)
	}
	lf.Remove(name)
	if err := lf.Save(); err != nil {
		return err
	}

	if err := cfg.Remove(name); err != nil {
		if sErr, ok := err.(*soldeer.Error); !ok || sErr.Kind != soldeer.KindUnknownDependency {
			return err
		}
		ctx.Logger.LogDepfln("%s: not declared in config, nothing to remove there", name)
	}

	deps, err := cfg.ReadDependencies()
	if err != nil {
		return err
	}
	byName := make(map[string]soldeer.Dependency, len(deps))
	for _, d := range deps {
		byName[d.Name] = d
	}

	var installed []soldeer.InstalledDep
	for _, e := range lf.Entries() {
		installed = append(installed, soldeer.InstalledDep{
			Name:            e.Name,
			ResolvedVersion: e.Version,
			VersionReqLabel: byName[e.Name].VersionReq,
		})
	}
	if err := soldeer.SyncRemappings(cfg, scfg, ctx.WorkingDir, installed); err != nil {
		return err
	}

	ctx.Logger.LogDepfln("%s: uninstalled", name)
	return nil
}
