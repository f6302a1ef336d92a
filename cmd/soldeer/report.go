// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/install"
)

// reportResults prints one line per dependency's terminal state, in the
// style of the teacher's -v output: installs and skips go to stdout via the
// logger, failures go to the error stream.
func reportResults(ctx *soldeer.Ctx, results []install.Result) {
	for _, r := range results {
		switch r.State {
		case install.StateInstalled:
			ctx.Logger.LogDepfln("%s: installed %s", r.Name, r.Entry.Version)
		case install.StateSkipped:
			ctx.Logger.LogDepfln("%s: up to date at %s", r.Name, r.Entry.Version)
		case install.StateFailed:
			ctx.Logger.Logerrf("%s: %v", r.Name, r.Err)
		}
	}
}
