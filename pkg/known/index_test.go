package known

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndex = `# Known errors for tattle
# fingerprint: [first seen, resolved in]
{
  "aaaa": ["1.0.0", "None"],
  "bbbb": ["1.0.0", "1.2.0"]
}`

func TestParse(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)
	require.Len(t, idx, 2)

	assert.Equal(t, Entry{Since: "1.0.0", ResolvedIn: "None"}, idx["aaaa"])
	assert.False(t, idx["aaaa"].Resolved())
	assert.True(t, idx["bbbb"].Resolved())
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	_, err := Parse([]byte(`{"aaaa": ["1.0.0"]}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)

	cases := []struct {
		name        string
		fingerprint string
		running     string
		status      Status
		upgrade     bool
	}{
		{"unknown fingerprint", "cccc", "1.0.0", StatusUnknown, false},
		{"open bug", "aaaa", "1.0.0", StatusOpen, false},
		{"resolved, upgrade advised", "bbbb", "1.0.0", StatusResolved, true},
		{"resolved, already newer", "bbbb", "1.3.0", StatusResolved, false},
		// The fix shipped in the running version, so if the error still
		// occurs the bug is evidently not fixed.
		{"resolved in running version", "bbbb", "1.2.0", StatusOpen, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict, err := idx.Lookup(tc.fingerprint, tc.running)
			require.NoError(t, err)
			assert.Equal(t, tc.status, verdict.Status)
			assert.Equal(t, tc.upgrade, verdict.UpgradeAdvised)
			assert.NotEmpty(t, verdict.Message())
		})
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleIndex))
	}))
	defer server.Close()

	idx, err := Fetch(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Len(t, idx, 2)
}

func TestFetchNilClientUsesTimeoutDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleIndex))
	}))
	defer server.Close()

	idx, err := Fetch(context.Background(), nil, server.URL)
	require.NoError(t, err)
	assert.Len(t, idx, 2)
}

func TestFetchRejectsErrorResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), server.Client(), server.URL)
	assert.Error(t, err)
}
