// Package release implements the publishing side of the build automation:
// tagging, packaging build artifacts and creating GitHub releases.
package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"

	"github.com/biologyguy/tattle/pkg/tlog"
)

// Params describes the release to create. This mirrors the JSON body of the
// GitHub "create release" call.
type Params struct {
	TagName         string `json:"tag_name"`
	TargetCommitish string `json:"target_commitish"`
	Name            string `json:"name"`
	Body            string `json:"body"`
	Draft           bool   `json:"draft"`
	Prerelease      bool   `json:"prerelease"`
}

// Release is the subset of the API response we care about.
type Release struct {
	ID        int64  `json:"id"`
	HTMLURL   string `json:"html_url"`
	UploadURL string `json:"upload_url"`
}

// Client talks to the GitHub releases API.
type Client struct {
	APIBase string
	Token   string
	HTTP    *http.Client
}

func NewClient(apiBase, token string) *Client {
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}

	return &Client{
		APIBase: apiBase,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Minute},
	}
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "token "+c.Token)
	}
}

func apiError(resp *http.Response, what string) error {
	var payload struct {
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&payload)
	return eris.Errorf("%s returned status %d: %s", what, resp.StatusCode, payload.Message)
}

// CreateRelease creates a release record for an existing tag.
func (c *Client) CreateRelease(ctx context.Context, owner, repo string, params Params) (*Release, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "failed to serialize release request")
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases", c.APIBase, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to build request for %s", url)
	}

	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "release request to %s failed", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp, "release creation")
	}

	var release Release
	err = json.NewDecoder(resp.Body).Decode(&release)
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse release response")
	}

	tlog.Log(ctx).Info().Msgf("Created release %s", release.HTMLURL)
	return &release, nil
}

// UploadAsset attaches a file to the release, displaying upload progress.
func (c *Client) UploadAsset(ctx context.Context, release *Release, path string) error {
	handle, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "failed to open asset %s", path)
	}
	defer handle.Close()

	info, err := handle.Stat()
	if err != nil {
		return eris.Wrapf(err, "failed to stat asset %s", path)
	}

	name := filepath.Base(path)
	url := uploadURL(release.UploadURL, name)

	bar := getProgressBar(info.Size(), "    "+name)
	body := io.TeeReader(handle, bar)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return eris.Wrapf(err, "failed to build upload request for %s", name)
	}

	c.decorate(req)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = info.Size()

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return eris.Wrapf(err, "upload of %s failed", name)
	}
	defer resp.Body.Close()
	bar.Finish()

	if resp.StatusCode != http.StatusCreated {
		return apiError(resp, "asset upload")
	}

	return nil
}

// uploadURL expands the hypermedia template GitHub returns
// (".../assets{?name,label}") into a usable URL.
func uploadURL(template, name string) string {
	pos := strings.Index(template, "{")
	if pos > -1 {
		template = template[:pos]
	}

	return template + "?name=" + neturl.QueryEscape(name)
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}
