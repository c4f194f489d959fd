package report

import (
	"context"

	"github.com/biologyguy/tattle/pkg/tlog"
)

// UserInfo carries the (anonymous) identity of the reporting user.
type UserInfo struct {
	// ID is a random identifier generated on first use. It allows
	// maintainers to count affected users without learning who they are.
	ID string `json:"id"`
	// Contact is an optional address the user chose to share.
	Contact string `json:"contact,omitempty"`
}

// Result records the outcome of one reporter.
type Result struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Reporter sends an error report somewhere. Implementations live in the
// reporters package.
type Reporter interface {
	// Name identifies the reporter in results and logs.
	Name() string
	// CheckPrevious returns true if the error has been reported through
	// this channel before.
	CheckPrevious(ctx context.Context, err *Error) (bool, error)
	// Report submits the report and returns a short result description
	// (an issue URL, an upload path, ...).
	Report(ctx context.Context, rep *Report) (string, error)
}

// Report encapsulates an error report.
type Report struct {
	User    UserInfo          `json:"user"`
	Error   *Error            `json:"error"`
	Results map[string]Result `json:"results"`
}

// New creates a report for the given user and error.
func New(user UserInfo, err *Error) *Report {
	return &Report{
		User:    user,
		Error:   err,
		Results: map[string]Result{},
	}
}

// Send submits the report through the given reporters. Reporters that have
// already seen this error are skipped. Returns the number of reporters that
// accepted the report; individual outcomes are recorded in Results.
func (r *Report) Send(ctx context.Context, reporters []Reporter) int {
	sent := 0
	for _, reporter := range reporters {
		logger := tlog.Log(ctx).With().Str("reporter", reporter.Name()).Logger()

		seen, err := reporter.CheckPrevious(ctx, r.Error)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to check for previous reports, sending anyway")
		}
		if seen {
			logger.Info().Msg("Error was already reported, skipping")
			r.Results[reporter.Name()] = Result{OK: true, Detail: "already reported"}
			continue
		}

		detail, err := reporter.Report(ctx, r)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to send report")
			r.Results[reporter.Name()] = Result{OK: false, Detail: err.Error()}
			continue
		}

		logger.Info().Msg("Report sent")
		r.Results[reporter.Name()] = Result{OK: true, Detail: detail}
		sent++
	}
	return sent
}
