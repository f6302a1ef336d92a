// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry is the HTTP client for the Soldeer registry: resolving
// a declared name+requirement to a concrete version and download URL,
// authenticating, and pushing a packaged release (spec §4.4).
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	soldeer "github.com/soldeerio/soldeer"
)

// Client talks to a Soldeer registry over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

// New builds a Client against baseURL (spec §6: SOLDEER_API_URL).
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, HTTP: httpClient}
}

type revisionEntry struct {
	Version         string `json:"version"`
	URL             string `json:"url"`
	InternalVersion int    `json:"internal_version"`
}

// Resolve fetches the revision list for name and applies spec §4.4's
// matching rule: filter to entries whose SemVer satisfies req; if req is not
// a SemVer requirement or no entry parses as SemVer, fall back to the entry
// whose version string literally equals req, else the entry with the
// highest internal_version. A SemVer requirement that no SemVer entry
// satisfies is KindUnknownDependency. Ties among
// SemVer candidates break on highest SemVer, then highest internal_version.
// The returned version is the registry's original version string.
func (c *Client) Resolve(ctx context.Context, name, req string) (version, url string, err error) {
	entries, err := c.fetchRevisions(ctx, name)
	if err != nil {
		return "", "", err
	}
	if len(entries) == 0 {
		return "", "", soldeer.NewError(soldeer.KindUnknownDependency, name, errors.New("registry returned no revisions"))
	}

	constraint, cErr := semver.NewConstraint(req)

	type candidate struct {
		entry revisionEntry
		sv    *semver.Version
	}
	var semverCandidates []candidate
	anySemver := false
	if cErr == nil {
		for _, e := range entries {
			v, err := semver.NewVersion(e.Version)
			if err != nil {
				continue
			}
			anySemver = true
			if constraint.Check(v) {
				semverCandidates = append(semverCandidates, candidate{entry: e, sv: v})
			}
		}
	}

	if len(semverCandidates) > 0 {
		sort.Slice(semverCandidates, func(i, j int) bool {
			if !semverCandidates[i].sv.Equal(semverCandidates[j].sv) {
				return semverCandidates[i].sv.GreaterThan(semverCandidates[j].sv)
			}
			return semverCandidates[i].entry.InternalVersion > semverCandidates[j].entry.InternalVersion
		})
		best := semverCandidates[0].entry
		return best.Version, best.URL, nil
	}
	if anySemver {
		return "", "", soldeer.NewError(soldeer.KindUnknownDependency, name, errors.Errorf("no revision satisfies %q", req))
	}

	// Legacy fallback: literal match, else highest internal_version.
	for _, e := range entries {
		if e.Version == req {
			return e.Version, e.URL, nil
		}
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.InternalVersion > best.InternalVersion {
			best = e
		}
	}
	return best.Version, best.URL, nil
}

func (c *Client) fetchRevisions(ctx context.Context, name string) ([]revisionEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/revision-cli", nil)
	if err != nil {
		return nil, soldeer.NewError(soldeer.KindRegistryUnreachable, name, err)
	}
	q := req.URL.Query()
	q.Set("project_name", name)
	req.URL.RawQuery = q.Encode()

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, soldeer.NewError(soldeer.KindRegistryUnreachable, name, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, soldeer.NewError(soldeer.KindRegistryError, fmt.Sprintf("status %d", resp.StatusCode),
			&soldeer.RegistryError{Status: resp.StatusCode, Body: string(body)})
	}

	var entries []revisionEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, soldeer.NewError(soldeer.KindRegistryError, "decoding revision-cli response", err)
	}
	return entries, nil
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges email+password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", soldeer.NewError(soldeer.KindRegistryUnreachable, "login", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", soldeer.NewError(soldeer.KindRegistryUnreachable, "login", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", soldeer.NewError(soldeer.KindAuthInvalid, "login", &soldeer.RegistryError{Status: resp.StatusCode, Body: string(body)})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", soldeer.NewError(soldeer.KindRegistryError, fmt.Sprintf("status %d", resp.StatusCode), &soldeer.RegistryError{Status: resp.StatusCode, Body: string(body)})
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", soldeer.NewError(soldeer.KindRegistryError, "decoding login response", err)
	}
	return lr.Token, nil
}

// SaveToken persists token to path with mode 0600 where the OS supports
// it (spec §4.4, §6 Token file).
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return soldeer.NewError(soldeer.KindIoError, path, err)
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return soldeer.NewError(soldeer.KindIoError, path, err)
	}
	return nil
}

// Push uploads a packaged release as multipart/form-data. Any non-2xx
// response is surfaced verbatim as a RegistryError (spec §4.4).
func (c *Client) Push(ctx context.Context, name, version string, zipBytes []byte) error {
	if c.Token == "" {
		return soldeer.NewError(soldeer.KindAuthRequired, name, errors.New("push requires login"))
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("project_name", name); err != nil {
		return soldeer.NewError(soldeer.KindIoError, name, err)
	}
	if err := w.WriteField("revision", version); err != nil {
		return soldeer.NewError(soldeer.KindIoError, name, err)
	}
	fw, err := w.CreateFormFile("zip_name", name+"-"+version+".zip")
	if err != nil {
		return soldeer.NewError(soldeer.KindIoError, name, err)
	}
	if _, err := fw.Write(zipBytes); err != nil {
		return soldeer.NewError(soldeer.KindIoError, name, err)
	}
	if err := w.Close(); err != nil {
		return soldeer.NewError(soldeer.KindIoError, name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/revision/upload", &body)
	if err != nil {
		return soldeer.NewError(soldeer.KindRegistryUnreachable, name, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return soldeer.NewError(soldeer.KindRegistryUnreachable, name, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return soldeer.NewError(soldeer.KindRegistryError, fmt.Sprintf("status %d", resp.StatusCode),
			&soldeer.RegistryError{Status: resp.StatusCode, Body: string(respBody)})
	}
	return nil
}
