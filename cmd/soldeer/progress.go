// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/soldeerio/soldeer/install"
)

// newInstallProgress renders a per-dependency progress bar to w, ticking
// once per terminal state (Installed/Skipped/Failed) as the installer's
// bounded worker pool reports it.
func newInstallProgress(w io.Writer, total int) func(install.Result) {
	if total == 0 {
		return func(install.Result) {}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("installing"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	return func(install.Result) {
		_ = bar.Add(1)
	}
}
