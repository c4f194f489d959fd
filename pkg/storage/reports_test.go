package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biologyguy/tattle/pkg/report"
)

func openTestDB(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()

	err := Open(ctx, filepath.Join(t.TempDir(), "tattle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { Close(ctx) })

	return ctx
}

func testReport(id, message string) *report.Report {
	return report.New(report.UserInfo{ID: "user-1"}, &report.Error{
		ID:      id,
		Kind:    "*errors.errorString",
		Message: message,
	})
}

func TestQueueRoundTrip(t *testing.T) {
	ctx := openTestDB(t)

	require.NoError(t, QueueReport(ctx, testReport("err-1", "first")))
	require.NoError(t, QueueReport(ctx, testReport("err-2", "second")))

	queued, err := ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, 0, queued[0].Attempts)
	assert.False(t, queued[0].QueuedAt.IsZero())

	require.NoError(t, DeleteReport(ctx, "err-1"))

	queued, err = ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "err-2", queued[0].Report.Error.ID)
}

func TestQueueReportCountsAttempts(t *testing.T) {
	ctx := openTestDB(t)

	rep := testReport("err-1", "flaky")
	require.NoError(t, QueueReport(ctx, rep))
	require.NoError(t, QueueReport(ctx, rep))
	require.NoError(t, QueueReport(ctx, rep))

	queued, err := ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, 2, queued[0].Attempts)
}

func TestSubmittedFingerprints(t *testing.T) {
	ctx := openTestDB(t)
	fingerprint := testReport("err-1", "first").Error.Fingerprint()

	found, err := WasSubmitted(ctx, fingerprint)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, MarkSubmitted(ctx, fingerprint))

	found, err = WasSubmitted(ctx, fingerprint)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSettings(t *testing.T) {
	ctx := openTestDB(t)

	value, err := GetSetting(ctx, "user_id")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, SetSetting(ctx, "user_id", "abc123"))

	value, err = GetSetting(ctx, "user_id")
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)
}

func TestBatchUpdateSharesTransaction(t *testing.T) {
	ctx := openTestDB(t)

	err := BatchUpdate(ctx, func(ctx context.Context) error {
		require.NotNil(t, TxFromCtx(ctx))

		err := QueueReport(ctx, testReport("err-1", "first"))
		if err != nil {
			return err
		}

		return SetSetting(ctx, "user_id", "abc123")
	})
	require.NoError(t, err)

	err = BatchRead(ctx, func(ctx context.Context) error {
		queued, err := ListReports(ctx)
		require.NoError(t, err)
		assert.Len(t, queued, 1)
		return nil
	})
	require.NoError(t, err)
}
