// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command soldeer manages smart-contract source dependencies: resolving
// declarations against a registry or direct archive/git URLs, installing
// them into dependencies/, and keeping a lockfile and compiler remappings
// in sync.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	soldeer "github.com/soldeerio/soldeer"
)

type command interface {
	Name() string           // "install"
	Args() string           // "<name>~<req> [--url <u> | --git <u>]"
	ShortHelp() string      // one-line summary
	LongHelp() string       // paragraph(s) of detail
	Register(*flag.FlagSet) // command-specific flags
	Run(ctx *soldeer.Ctx, args []string) error
}

func main() {
	c := &Config{
		Args:   os.Args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(c.Run())
}

// Config specifies one soldeer process invocation.
type Config struct {
	Args           []string
	Stdout, Stderr io.Writer
}

func (c *Config) Run() (exitCode int) {
	commands := []command{
		&initCommand{},
		&installCommand{},
		&updateCommand{},
		&uninstallCommand{},
		&loginCommand{},
		&pushCommand{},
		&versionCommand{},
	}

	color.NoColor = os.Getenv("NO_COLOR") != "" && os.Getenv("CLICOLOR_FORCE") == ""
	if os.Getenv("CLICOLOR_FORCE") != "" {
		color.NoColor = false
	}

	usage := func() {
		fmt.Fprintln(c.Stderr, "soldeer is a package manager for smart-contract dependencies")
		fmt.Fprintln(c.Stderr)
		fmt.Fprintln(c.Stderr, "Usage: soldeer <command> [arguments]")
		fmt.Fprintln(c.Stderr)
		fmt.Fprintln(c.Stderr, "Commands:")
		fmt.Fprintln(c.Stderr)
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
		}
		w.Flush()
		fmt.Fprintln(c.Stderr)
		fmt.Fprintln(c.Stderr, `Use "soldeer help <command>" for more information about a command.`)
	}

	cmdName, printCmdHelp, exit := parseArgs(c.Args)
	if exit {
		usage()
		return 1
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		cmd.Register(fs)
		resetUsage(c.Stderr, fs, cmdName, cmd.Args(), cmd.LongHelp())

		if printCmdHelp {
			fs.Usage()
			return 1
		}
		if err := fs.Parse(c.Args[2:]); err != nil {
			return 1
		}

		ctx, err := soldeer.NewContext(c.Stdout, c.Stderr)
		if err != nil {
			fmt.Fprintln(c.Stderr, err)
			return 1
		}
		if err := ctx.LoadLoginToken(); err != nil {
			fmt.Fprintln(c.Stderr, err)
			return 1
		}

		if err := cmd.Run(ctx, fs.Args()); err != nil {
			color.New(color.FgRed).Fprintf(c.Stderr, "soldeer: error: %v\n", err)
			return 1
		}
		return 0
	}

	if cmdName == "" || cmdName == "help" {
		usage()
		return 1
	}
	fmt.Fprintf(c.Stderr, "soldeer: %s: no such command\n", cmdName)
	usage()
	return 1
}

func resetUsage(stderr io.Writer, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		def := f.DefValue
		if def == "" {
			def = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, def)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: soldeer %s %s\n\n", name, args)
		fmt.Fprintln(stderr, strings.TrimSpace(longHelp))
		fmt.Fprintln(stderr)
		if hasFlags {
			fmt.Fprintln(stderr, "Flags:")
			fmt.Fprintln(stderr)
			fmt.Fprintln(stderr, flagBlock.String())
		}
	}
}

// parseArgs determines the command name and whether the user asked for
// help on a specific command, mirroring the teacher's dep CLI shell.
func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
	isHelpArg := func(s string) bool {
		return strings.Contains(strings.ToLower(s), "help") || strings.ToLower(s) == "-h"
	}

	switch len(args) {
	case 0, 1:
		exit = true
	case 2:
		if isHelpArg(args[1]) {
			exit = true
		}
		cmdName = args[1]
	default:
		if isHelpArg(args[1]) {
			cmdName = args[2]
			printCmdUsage = true
		} else {
			cmdName = args[1]
		}
	}
	return cmdName, printCmdUsage, exit
}
