package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biologyguy/tattle/pkg/known"
	"github.com/biologyguy/tattle/pkg/report"
	"github.com/biologyguy/tattle/pkg/storage"
)

type recordingReporter struct {
	reports []*report.Report
}

func (r *recordingReporter) Name() string { return "recorder" }

func (r *recordingReporter) CheckPrevious(ctx context.Context, err *report.Error) (bool, error) {
	return false, nil
}

func (r *recordingReporter) Report(ctx context.Context, rep *report.Report) (string, error) {
	r.reports = append(r.reports, rep)
	return "recorded", nil
}

func openTestStore(t *testing.T) context.Context {
	t.Helper()

	ctx := context.Background()
	err := storage.Open(ctx, filepath.Join(t.TempDir(), "tattle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close(ctx) })
	return ctx
}

func queueTestReport(t *testing.T, ctx context.Context) *report.Error {
	t.Helper()

	reportErr := &report.Error{
		ID:       "err-1",
		Package:  "pkg/demo",
		Function: "Frob",
		File:     "demo.go",
		Kind:     "*eris.rootError",
		Message:  "frobnication failed",
	}

	err := storage.QueueReport(ctx, report.New(report.UserInfo{}, reportErr))
	require.NoError(t, err)
	return reportErr
}

func TestDeliverQueuedKnownBugStillSent(t *testing.T) {
	ctx := openTestStore(t)
	reportErr := queueTestReport(t, ctx)

	idx := known.Index{
		reportErr.Fingerprint(): {Since: "0.1.0", ResolvedIn: "None"},
	}

	queued, err := storage.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	recorder := &recordingReporter{}
	out := bytes.Buffer{}
	confirm := func(*report.Error) bool { return true }

	err = deliverQueued(ctx, queued, []report.Reporter{recorder}, idx, "0.2.0", "user-1", confirm, &out)
	require.NoError(t, err)

	// the verdict is shown but the report still goes out
	assert.Contains(t, out.String(), "known bug since version 0.1.0")
	require.Len(t, recorder.reports, 1)
	assert.Equal(t, "user-1", recorder.reports[0].User.ID)

	remaining, err := storage.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	submitted, err := storage.WasSubmitted(ctx, reportErr.Fingerprint())
	require.NoError(t, err)
	assert.True(t, submitted)
}

func TestDeliverQueuedConsentDeclinedKeepsReport(t *testing.T) {
	ctx := openTestStore(t)
	queueTestReport(t, ctx)

	queued, err := storage.ListReports(ctx)
	require.NoError(t, err)

	recorder := &recordingReporter{}
	out := bytes.Buffer{}
	confirm := func(*report.Error) bool { return false }

	err = deliverQueued(ctx, queued, []report.Reporter{recorder}, nil, "0.2.0", "user-1", confirm, &out)
	require.NoError(t, err)

	assert.Empty(t, recorder.reports)
	remaining, err := storage.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
