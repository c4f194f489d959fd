package reporters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/rotisserie/eris"

	"github.com/biologyguy/tattle/pkg/report"
)

// fingerprintMarker prefixes the fingerprint embedded in issue bodies.
// Rather than trying to do fuzzy matching against existing issues, we search
// for this marker and compare fingerprints.
const fingerprintMarker = "tattle-fingerprint:"

const defaultAPIBase = "https://api.github.com"

var issueTemplate = template.Must(template.New("issue").Parse(`An error report was submitted automatically.

| | |
|---|---|
| Application | {{.Error.App.Name}} {{.Error.App.Version}} |
| Location | {{.Error.Package}}.{{.Error.Function}} ({{.Error.File}}:{{.Error.Line}}) |
| Kind | {{.Error.Kind}} |
| OS | {{.Error.System.OS}}/{{.Error.System.Arch}} |
| Runtime | {{.Error.System.Runtime}} |
| Reporter | {{.User.ID}} |

` + "```" + `
{{.Error.Trace}}
` + "```" + `

<!-- {{.Marker}}{{.Fingerprint}} -->
`))

// GitHubOptions configure the GitHub issue reporter.
type GitHubOptions struct {
	Owner  string
	Repo   string
	Token  string
	Labels []string
	// APIBase overrides the GitHub API endpoint (used by tests).
	APIBase string
	Client  *http.Client
}

// GitHubReporter files error reports as issues on the project's tracker.
type GitHubReporter struct {
	opts   GitHubOptions
	client *http.Client
}

func NewGitHubReporter(opts GitHubOptions) *GitHubReporter {
	if opts.APIBase == "" {
		opts.APIBase = defaultAPIBase
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &GitHubReporter{opts: opts, client: client}
}

func (r *GitHubReporter) Name() string {
	return "github"
}

func (r *GitHubReporter) do(ctx context.Context, method, path string, body, response interface{}) error {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "failed to serialize request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.opts.APIBase+path, reader)
	if err != nil {
		return eris.Wrapf(err, "failed to build request for %s", path)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.opts.Token != "" {
		req.Header.Set("Authorization", "token "+r.opts.Token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiError struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&apiError)
		return eris.Errorf("request to %s returned status %d: %s", path, resp.StatusCode, apiError.Message)
	}

	if response != nil {
		err = json.NewDecoder(resp.Body).Decode(response)
		if err != nil {
			return eris.Wrapf(err, "failed to parse response from %s", path)
		}
	}

	return nil
}

// CheckPrevious searches existing issues for the error's fingerprint marker.
func (r *GitHubReporter) CheckPrevious(ctx context.Context, reportErr *report.Error) (bool, error) {
	query := fmt.Sprintf(`repo:%s/%s in:body "%s%s"`,
		r.opts.Owner, r.opts.Repo, fingerprintMarker, reportErr.Fingerprint())

	var result struct {
		TotalCount int `json:"total_count"`
	}
	err := r.do(ctx, http.MethodGet, "/search/issues?q="+url.QueryEscape(query), nil, &result)
	if err != nil {
		return false, err
	}

	return result.TotalCount > 0, nil
}

// Report creates a new issue containing the fingerprint marker, the metadata
// table and the cleaned trace. Returns the issue's URL.
func (r *GitHubReporter) Report(ctx context.Context, rep *report.Report) (string, error) {
	bodyBuffer := strings.Builder{}
	err := issueTemplate.Execute(&bodyBuffer, struct {
		*report.Report
		Marker      string
		Fingerprint string
	}{rep, fingerprintMarker, rep.Error.Fingerprint()})
	if err != nil {
		return "", eris.Wrap(err, "failed to render issue body")
	}

	title := rep.Error.Kind + ": " + rep.Error.Message
	if len(title) > 120 {
		title = title[:117] + "..."
	}

	request := struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels,omitempty"`
	}{title, bodyBuffer.String(), r.opts.Labels}

	var response struct {
		HTMLURL string `json:"html_url"`
	}
	err = r.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/issues", r.opts.Owner, r.opts.Repo), request, &response)
	if err != nil {
		return "", err
	}

	return response.HTMLURL, nil
}
