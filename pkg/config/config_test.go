package config

import (
	"testing"

	"github.com/cristalhq/aconfig"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	// Load only the struct defaults; files and env vars would make the
	// result depend on the machine running the tests.
	cfg := Config{}
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFiles: true,
		SkipEnv:   true,
		SkipFlags: true,
	})
	require.NoError(t, loader.Load())
	return &cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
	assert.Equal(t, "master", cfg.Repository.Branch)
}

func TestValidateLogLevel(t *testing.T) {
	cfg := validConfig(t)

	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg.Log.Level = "debug"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())
}

func TestValidateIndexURL(t *testing.T) {
	cfg := validConfig(t)

	cfg.Index.URL = "ftp://example.com/index.json"
	assert.Error(t, cfg.Validate())

	cfg.Index.URL = "https://example.com/index.json"
	assert.NoError(t, cfg.Validate())
}

func TestValidateMailEncryption(t *testing.T) {
	cfg := validConfig(t)

	cfg.Reporters.Mail.Encryption = "TLS"
	assert.Error(t, cfg.Validate())

	for _, value := range []string{"STARTTLS", "SSL", "None"} {
		cfg.Reporters.Mail.Encryption = value
		assert.NoError(t, cfg.Validate())
	}
}

func TestValidateGitHubReporterNeedsRepo(t *testing.T) {
	cfg := validConfig(t)

	cfg.Reporters.GitHub.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Repository.Owner = "biologyguy"
	cfg.Repository.Name = "tattle"
	assert.NoError(t, cfg.Validate())
}

func TestValidateReleaseAPIBaseAlone(t *testing.T) {
	cfg := validConfig(t)

	// a custom API base without the GitHub reporter doesn't require a repo
	cfg.Release.APIBase = "https://github.example.com/api/v3"
	assert.NoError(t, cfg.Validate())
}
