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
	"github.com/soldeerio/soldeer/publish"
	"github.com/soldeerio/soldeer/registry"
)

type pushCommand struct {
	dryRun       bool
	skipWarnings bool
}

func (c *pushCommand) Name() string      { return "push" }
func (c *pushCommand) Args() string      { return "<name>~<version> [path]" }
func (c *pushCommand) ShortHelp() string { return "package a source tree and publish it to the registry" }
func (c *pushCommand) LongHelp() string {
	return "Push walks path (the working directory by default) under layered\n" +
		".gitignore/.ignore/.soldeerignore rules, zips what remains, and uploads it as\n" +
		"name's version release. It aborts if dotfiles are present unless\n" +
		"--skip-warnings is given. --dry-run writes the zip locally instead of\n" +
		"uploading it."
}
func (c *pushCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.dryRun, "dry-run", false, "write the zip to a local file instead of uploading")
	fs.BoolVar(&c.skipWarnings, "skip-warnings", false, "publish even if dotfiles are present")
}

func (c *pushCommand) Run(ctx *soldeer.Ctx, args []string) error {
	if len(args) < 1 {
		return soldeer.NewError(soldeer.KindNameInvalid, "push", errors.New("push requires <name>~<version>"))
	}
	name, version, ok := strings.Cut(args[0], "~")
	if !ok {
		return soldeer.NewError(soldeer.KindVersionReqInvalid, args[0], errors.New("expected <name>~<version>"))
	}

	sourceDir := ctx.WorkingDir
	if len(args) >= 2 {
		sourceDir = args[1]
	}

	reg := registry.New(ctx.APIURL, ctx.HTTPClient)
	reg.Token = ctx.LoginToken
	if reg.Token == "" && !c.dryRun {
		return soldeer.NewError(soldeer.KindAuthRequired, name, errors.New("run `soldeer login` first"))
	}

	res, err := publish.Run(context.Background(), publish.Request{
		SourceDir:    sourceDir,
		Name:         name,
		Version:      version,
		DryRun:       c.dryRun,
		SkipWarnings: c.skipWarnings,
	}, reg)
	if err != nil {
		return err
	}

	if len(res.Dotfiles) > 0 {
		ctx.Logger.LogDepfln("included dotfiles: %s", strings.Join(res.Dotfiles, ", "))
	}
	if c.dryRun {
		ctx.Logger.LogDepfln("wrote %s (%d bytes)", res.ZipPath, res.Bytes)
	} else {
		ctx.Logger.LogDepfln("published %s~%s (%d bytes)", name, version, res.Bytes)
	}
	return nil
}
