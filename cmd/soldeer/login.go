// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	soldeer "github.com/soldeerio/soldeer"
	"github.com/soldeerio/soldeer/registry"
)

type loginCommand struct {
	email string
}

func (c *loginCommand) Name() string      { return "login" }
func (c *loginCommand) Args() string      { return "[--email <e>]" }
func (c *loginCommand) ShortHelp() string { return "authenticate against the registry and save a token" }
func (c *loginCommand) LongHelp() string {
	return "Login prompts for an email (or takes --email) and a password read without\n" +
		"echo, exchanges them for a bearer token, and saves it to the login file (spec\n" +
		"§6 SOLDEER_LOGIN_FILE) for use by push."
}
func (c *loginCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "registry account email; prompted for if omitted")
}

func (c *loginCommand) Run(ctx *soldeer.Ctx, args []string) error {
	email := c.email
	if email == "" {
		fmt.Fprint(ctx.Out, "Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return soldeer.NewError(soldeer.KindIoError, "stdin", err)
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(ctx.Out, "Password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(ctx.Out)
	if err != nil {
		return soldeer.NewError(soldeer.KindIoError, "stdin", err)
	}

	reg := registry.New(ctx.APIURL, ctx.HTTPClient)
	token, err := reg.Login(context.Background(), email, string(passwordBytes))
	if err != nil {
		return err
	}

	if err := registry.SaveToken(ctx.LoginFilePath, token); err != nil {
		return err
	}

	ctx.Logger.LogDepfln("logged in as %s", email)
	return nil
}
