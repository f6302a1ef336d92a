// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"strings"

	"github.com/pkg/errors"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/install"
	"github.com/soldeerio/soldeer/registry"
)

type installCommand struct {
	url           string
	git           string
	rev           string
	branch        string
	tag           string
	recursiveDeps bool
}

func (c *installCommand) Name() string { return "install" }
func (c *installCommand) Args() string {
	return "[<name>~<req> [--url <u> | --git <u> [--rev <h> | --branch <b> | --tag <t>]]]"
}
func (c *installCommand) ShortHelp() string { return "reconcile declared dependencies, or add and install one" }
func (c *installCommand) LongHelp() string {
	return "With no arguments, install reconciles every declared dependency against the\n" +
		"lockfile and fetches whatever is missing or stale. Given <name>~<req>, it first\n" +
		"adds the declaration to the host config (as a registry entry, or an http/git\n" +
		"entry when --url/--git is given), then runs the same reconciliation."
}
func (c *installCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.url, "url", "", "install from this archive URL instead of the registry")
	fs.StringVar(&c.git, "git", "", "install by cloning this git URL instead of the registry")
	fs.StringVar(&c.rev, "rev", "", "pin the git dependency to this commit")
	fs.StringVar(&c.branch, "branch", "", "track this git branch")
	fs.StringVar(&c.tag, "tag", "", "pin the git dependency to this tag")
	fs.BoolVar(&c.recursiveDeps, "recursive-deps", false, "after install, descend into each dependency and install its own dependencies")
}

func (c *installCommand) Run(ctx *soldeer.Ctx, args []string) error {
	cfg, err := soldeer.LoadConfig(ctx.WorkingDir)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		dep, err := c.parseDependency(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Add(dep); err != nil {
			return err
		}
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

	deps, err := cfg.ReadDependencies()
	if err != nil {
		return err
	}

	reg := registry.New(ctx.APIURL, ctx.HTTPClient)
	reg.Token = ctx.LoginToken
	inst := install.New(ctx.WorkingDir, reg, ctx.HTTPClient, ctx.Logger)
	inst.Progress = newInstallProgress(ctx.Err, len(deps))
	results, err := inst.Install(context.Background(), cfg, lf, scfg)
	reportResults(ctx, results)
	return err
}

// parseDependency splits "<name>~<req>" and applies the --url/--git family
// of flags, per spec §6's install argument grammar.
func (c *installCommand) parseDependency(spec string) (soldeer.Dependency, error) {
	name, req, ok := strings.Cut(spec, "~")
	if !ok {
		return soldeer.Dependency{}, soldeer.NewError(soldeer.KindVersionReqInvalid, spec, errors.New("expected <name>~<req>"))
	}

	dep := soldeer.Dependency{Name: name, VersionReq: req}
	switch {
	case c.git != "":
		dep.Kind = soldeer.SourceGit
		dep.URL = c.git
		dep.GitIdentifier = c.gitIdentifier()
	case c.url != "":
		dep.Kind = soldeer.SourceHTTP
		dep.URL = c.url
	default:
		dep.Kind = soldeer.SourceRegistry
	}

	if err := dep.Validate(); err != nil {
		return soldeer.Dependency{}, err
	}
	return dep, nil
}

func (c *installCommand) gitIdentifier() soldeer.GitIdentifier {
	switch {
	case c.rev != "":
		return soldeer.GitIdentifier{Kind: soldeer.GitRev, Value: c.rev}
	case c.branch != "":
		return soldeer.GitIdentifier{Kind: soldeer.GitBranch, Value: c.branch}
	case c.tag != "":
		return soldeer.GitIdentifier{Kind: soldeer.GitTag, Value: c.tag}
	default:
		return soldeer.GitIdentifier{Kind: soldeer.GitNone}
	}
}
