package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/spf13/cobra"

	"github.com/biologyguy/tattle/pkg/config"
	"github.com/biologyguy/tattle/pkg/known"
	"github.com/biologyguy/tattle/pkg/report"
	"github.com/biologyguy/tattle/pkg/reporters"
	"github.com/biologyguy/tattle/pkg/storage"
	"github.com/biologyguy/tattle/pkg/tlog"
)

const consentPrompt = "An error report is ready to be sent to the developers. " +
	"It contains no personal data beyond what is shown above. Send it?"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage queued error reports",
}

func storePath(cfg *config.Config) (string, error) {
	if cfg.Store.Path != "" {
		return cfg.Store.Path, nil
	}

	dir, err := settingsDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "tattle.db"), nil
}

func openStore(ctx context.Context, cfg *config.Config) error {
	path, err := storePath(cfg)
	if err != nil {
		return err
	}

	return storage.Open(ctx, path)
}

// anonymousUserID returns the persistent random ID that lets maintainers
// count affected users without identifying them. Generated on first use.
func anonymousUserID(ctx context.Context) (string, error) {
	id, err := storage.GetSetting(ctx, "user_id")
	if err != nil {
		return "", err
	}

	if id == "" {
		id = nanoid.New()
		err = storage.SetSetting(ctx, "user_id", id)
		if err != nil {
			return "", err
		}
	}

	return id, nil
}

// fetchIndex retrieves the known-error index if one is configured. A missing
// or unreachable index only disables the lookup, it never blocks reporting.
func fetchIndex(ctx context.Context, cfg *config.Config) known.Index {
	if cfg.Index.URL == "" {
		return nil
	}

	// nil selects Fetch's own client with its short timeout; a stalled index
	// server must not hang the report commands.
	idx, err := known.Fetch(ctx, nil, cfg.Index.URL)
	if err != nil {
		tlog.Log(ctx).Warn().Err(err).Msg("Could not fetch the known-error index")
		return nil
	}

	return idx
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued reports and their status in the known-error index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close(ctx)

		queued, err := storage.ListReports(ctx)
		if err != nil {
			return err
		}

		if len(queued) == 0 {
			fmt.Println("No queued reports.")
			return nil
		}

		idx := fetchIndex(ctx, cfg)
		for _, item := range queued {
			reportErr := item.Report.Error
			fmt.Printf("%s  %s: %s\n", reportErr.ID, reportErr.Kind, reportErr.Message)
			fmt.Printf("    queued %s, %d attempt(s), fingerprint %s\n",
				item.QueuedAt.Format(time.RFC3339), item.Attempts, reportErr.Fingerprint()[:16])

			if idx != nil {
				verdict, err := idx.Lookup(reportErr.Fingerprint(), cfg.Application.Version)
				if err != nil {
					tlog.Log(ctx).Warn().Err(err).Msg("Index lookup failed")
				} else if verdict.Status != known.StatusUnknown {
					fmt.Printf("    %s\n", verdict.Message())
				}
			}
		}

		return nil
	},
}

var reportSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Transmit queued reports through the configured reporters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}

		active := reporters.FromConfig(cfg)
		if len(active) == 0 {
			tlog.Log(ctx).Warn().Msg("No reporters are enabled, nothing to do")
			return nil
		}

		err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close(ctx)

		queued, err := storage.ListReports(ctx)
		if err != nil {
			return err
		}

		userID, err := anonymousUserID(ctx)
		if err != nil {
			return err
		}

		idx := fetchIndex(ctx, cfg)
		confirm := func(reportErr *report.Error) bool {
			if yes || cfg.Consent.Diagnostics {
				return true
			}

			fmt.Printf("%s: %s\n", reportErr.Kind, reportErr.Message)
			return report.Ask(os.Stdin, os.Stdout, consentPrompt, false, time.Minute)
		}

		return deliverQueued(ctx, queued, active, idx, cfg.Application.Version, userID, confirm, os.Stdout)
	},
}

// deliverQueued walks the queued reports: machine-level dedup first, then the
// known-error index verdict, the consent check and finally the hand-off to the
// active reporters. The verdict is informational only; a known bug is still
// reported so maintainers can gauge how many users hit it.
func deliverQueued(ctx context.Context, queued []storage.QueuedReport, active []report.Reporter, idx known.Index, version, userID string, confirm func(*report.Error) bool, out io.Writer) error {
	for _, item := range queued {
		if item.Report.User.ID == "" {
			item.Report.User.ID = userID
		}

		reportErr := item.Report.Error
		fingerprint := reportErr.Fingerprint()
		logger := tlog.Log(ctx).With().Str("error", reportErr.ID).Logger()

		submitted, err := storage.WasSubmitted(ctx, fingerprint)
		if err != nil {
			return err
		}
		if submitted {
			logger.Info().Msg("Already reported from this machine, dropping")
			err = storage.DeleteReport(ctx, reportErr.ID)
			if err != nil {
				return err
			}
			continue
		}

		if idx != nil {
			verdict, err := idx.Lookup(fingerprint, version)
			if err != nil {
				logger.Warn().Err(err).Msg("Could not check the known-error index")
			} else {
				fmt.Fprintln(out, verdict.Message())
			}
		}

		if !confirm(reportErr) {
			logger.Info().Msg("Consent not given, keeping report queued")
			continue
		}

		sent := item.Report.Send(ctx, active)
		if sent > 0 {
			err = storage.MarkSubmitted(ctx, fingerprint)
			if err != nil {
				return err
			}

			err = storage.DeleteReport(ctx, reportErr.ID)
			if err != nil {
				return err
			}

			logger.Info().Msgf("Report delivered through %d reporter(s)", sent)
		} else {
			err = storage.QueueReport(ctx, item.Report)
			if err != nil {
				return err
			}

			logger.Warn().Msg("All reporters failed, report stays queued")
		}
	}

	return nil
}

var reportPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Discard all queued reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer storage.Close(ctx)

		queued, err := storage.ListReports(ctx)
		if err != nil {
			return err
		}

		for _, item := range queued {
			err = storage.DeleteReport(ctx, item.Report.Error.ID)
			if err != nil {
				return err
			}
		}

		tlog.Log(ctx).Info().Msgf("Removed %d report(s)", len(queued))
		return nil
	},
}

func init() {
	reportSendCmd.Flags().BoolP("yes", "y", false, "send without asking for confirmation")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportSendCmd)
	reportCmd.AddCommand(reportPruneCmd)
	rootCmd.AddCommand(reportCmd)
}
