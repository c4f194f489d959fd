package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/biologyguy/tattle/pkg/config"
	"github.com/biologyguy/tattle/pkg/tlog"
)

var rootCmd = &cobra.Command{
	Use:   "tattle",
	Short: "Error reporting and build automation for tattle",
	Long: `tattle bundles the tools used to build, test and release this project as
well as the commands to inspect and submit queued error reports.`,
	SilenceUsage: true,
}

// settingsDir returns (and creates) the directory holding the report
// database and the config salt.
func settingsDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(base, "tattle")
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return "", err
	}

	return dir, nil
}

// loadConfig reads the configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if os.Getenv("TATTLE_DEBUG") == "" {
		zerolog.SetGlobalLevel(cfg.LogLevel())
	}

	var writer zerolog.LevelWriter
	if cfg.Log.JSON {
		writer = zerolog.MultiLevelWriter(os.Stderr)
	} else {
		writer = zerolog.MultiLevelWriter(tlog.NewConsoleWriter())
	}

	if cfg.Log.File != "" {
		handle, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
		if err != nil {
			return nil, err
		}
		writer = zerolog.MultiLevelWriter(writer, handle)
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	return cfg, nil
}

func main() {
	log.Logger = zerolog.New(tlog.NewConsoleWriter()).With().Timestamp().Logger()

	if os.Getenv("TATTLE_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cobra.CheckErr(rootCmd.Execute())
}
