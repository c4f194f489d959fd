package report

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApp = AppInfo{Name: "tattle", Version: "1.2.3"}

func TestFromError(t *testing.T) {
	collector := NewCollector(testApp)
	reportErr := collector.FromError(eris.New("something broke"))

	assert.NotEmpty(t, reportErr.ID)
	assert.Equal(t, "something broke", reportErr.Message)
	assert.Equal(t, "*eris.rootError", reportErr.Kind)
	assert.Equal(t, testApp, reportErr.App)
	assert.Equal(t, runtime.GOOS, reportErr.System.OS)
	assert.False(t, reportErr.Time.IsZero())

	// The frame should point at this test, not at the report package.
	assert.Equal(t, "collector_test.go", reportErr.File)
	assert.Contains(t, reportErr.Function, "TestFromError")
}

func TestFromErrorUnwrapsCause(t *testing.T) {
	collector := NewCollector(testApp)
	wrapped := eris.Wrap(errSentinel{}, "loading settings")
	reportErr := collector.FromError(wrapped)

	assert.Equal(t, "report.errSentinel", reportErr.Kind)
	assert.Contains(t, reportErr.Message, "loading settings")
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }

func TestGuardPanic(t *testing.T) {
	collector := NewCollector(testApp)
	reported, err := collector.Guard(func() error {
		panic("boom")
	})

	require.Error(t, err)
	require.NotNil(t, reported)
	assert.Equal(t, "panic(string)", reported.Kind)
	assert.Equal(t, "boom", reported.Message)
	assert.NotEmpty(t, reported.Trace)
}

func TestGuardNormalReturn(t *testing.T) {
	collector := NewCollector(testApp)
	reported, err := collector.Guard(func() error {
		return nil
	})

	assert.NoError(t, err)
	assert.Nil(t, reported)
}

func TestBundleRoundTrip(t *testing.T) {
	collector := NewCollector(testApp)
	rep := New(UserInfo{ID: "user-1"}, collector.FromError(eris.New("bundle me")))

	encoded, err := EncodeBundle(rep)
	require.NoError(t, err)

	decoded, err := ReadBundle(bytes.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, rep.User, decoded.User)
	assert.Equal(t, rep.Error.Message, decoded.Error.Message)
	assert.Equal(t, rep.Error.Fingerprint(), decoded.Error.Fingerprint())
}
