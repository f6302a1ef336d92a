// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"

	soldeer "github.com/soldeerio/soldeer"
)

// buildVersion is overridden at release build time via -ldflags.
var buildVersion = "dev"

type versionCommand struct{}

func (c *versionCommand) Name() string      { return "version" }
func (c *versionCommand) Args() string      { return "" }
func (c *versionCommand) ShortHelp() string { return "print the soldeer version" }
func (c *versionCommand) LongHelp() string  { return "Version prints the soldeer build version." }
func (c *versionCommand) Register(fs *flag.FlagSet) {}

func (c *versionCommand) Run(ctx *soldeer.Ctx, args []string) error {
	fmt.Fprintln(ctx.Out, "soldeer version "+buildVersion)
	return nil
}
