// Package known fetches and queries the known-error index: a JSON document
// published by the maintainers that maps error fingerprints to the version
// the bug first appeared in and, once fixed, the version that resolved it.
package known

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// unresolvedMarker is the value the index uses for bugs without a fix.
const unresolvedMarker = "None"

// Entry describes one known bug. On the wire it's a two-element array:
// ["<first seen version>", "<resolved-in version or None>"].
type Entry struct {
	Since      string
	ResolvedIn string
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields []string
	err := json.Unmarshal(data, &fields)
	if err != nil {
		return err
	}

	if len(fields) != 2 {
		return eris.Errorf("expected 2 fields in index entry but got %d", len(fields))
	}

	e.Since = fields[0]
	e.ResolvedIn = fields[1]
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{e.Since, e.ResolvedIn})
}

// Resolved returns true once a fix has been published.
func (e Entry) Resolved() bool {
	return e.ResolvedIn != "" && e.ResolvedIn != unresolvedMarker
}

// Index maps error fingerprints to their entries.
type Index map[string]Entry

var commentPattern = regexp.MustCompile(`(?m)^#.*$`)

// Parse reads an index document. Lines starting with # are treated as
// comments; the rest must be a single JSON object.
func Parse(data []byte) (Index, error) {
	cleaned := commentPattern.ReplaceAllString(string(data), "")
	cleaned = strings.TrimSpace(cleaned)

	var idx Index
	err := json.Unmarshal([]byte(cleaned), &idx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse error index")
	}

	return idx, nil
}

// Fetch downloads and parses the index from the given URL. A short timeout
// keeps a slow index server from blocking the report flow.
func Fetch(ctx context.Context, client *http.Client, url string) (Index, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to build request for %s", url)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to download error index from %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("error index request to %s returned status %d", url, resp.StatusCode)
	}

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read error index")
	}

	return Parse(data)
}

// Status classifies the lookup result for a fingerprint.
type Status int

const (
	// StatusUnknown means the fingerprint isn't in the index; the user found a new bug.
	StatusUnknown Status = iota
	// StatusOpen means the bug is known but hasn't been fixed.
	StatusOpen
	// StatusResolved means a version containing the fix has been published.
	StatusResolved
)

// Verdict is the result of checking a fingerprint against the index.
type Verdict struct {
	Status     Status
	Since      string
	ResolvedIn string
	// UpgradeAdvised is set when the running version is older than the
	// version that resolved this bug.
	UpgradeAdvised bool
}

// Message renders the verdict the way it's presented to the user.
func (v Verdict) Message() string {
	switch v.Status {
	case StatusOpen:
		return "This is a known bug since version " + v.Since + ", but it has not been resolved yet."
	case StatusResolved:
		msg := "This bug was resolved in version " + v.ResolvedIn + "."
		if v.UpgradeAdvised {
			msg += " We recommend you upgrade to the latest version."
		}
		return msg
	default:
		return "Uh oh, you've found a new bug! This issue is not currently in the bug tracker."
	}
}

// Lookup checks a fingerprint against the index and compares the running
// version against the resolved-in version.
func (idx Index) Lookup(fingerprint, runningVersion string) (Verdict, error) {
	entry, found := idx[fingerprint]
	if !found {
		return Verdict{Status: StatusUnknown}, nil
	}

	verdict := Verdict{
		Since:      entry.Since,
		ResolvedIn: entry.ResolvedIn,
	}

	if !entry.Resolved() || entry.ResolvedIn == runningVersion {
		verdict.Status = StatusOpen
		verdict.ResolvedIn = ""
		return verdict, nil
	}

	verdict.Status = StatusResolved

	running, err := semver.NewVersion(runningVersion)
	if err != nil {
		return verdict, eris.Wrapf(err, "failed to parse running version %s", runningVersion)
	}

	resolved, err := semver.NewVersion(entry.ResolvedIn)
	if err != nil {
		return verdict, eris.Wrapf(err, "failed to parse resolved-in version %s", entry.ResolvedIn)
	}

	verdict.UpgradeAdvised = running.LessThan(resolved)
	return verdict, nil
}
