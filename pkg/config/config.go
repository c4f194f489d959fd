// Package config loads and validates tattle's configuration.
package config

import (
	"net/url"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	Application struct {
		Name    string `usage:"Name of the application reports are filed for"`
		Version string `usage:"Version of the running application"`
	}
	Repository struct {
		Owner  string `usage:"GitHub repository owner"`
		Name   string `usage:"GitHub repository name"`
		Branch string `default:"master" usage:"Branch releases are tagged on"`
	}
	Index struct {
		URL string `usage:"URL of the known-error index (JSON)"`
	}
	Log struct {
		Level string `default:"info"`
		File  string
		JSON  bool `default:"false" usage:"Output JSONND instead of pretty console messages"`
	}
	Store struct {
		Path string `usage:"Path to the local report database (defaults to <settings dir>/tattle.db)"`
	}
	Reporters struct {
		GitHub struct {
			Enabled bool     `default:"false"`
			Token   string   `usage:"API token used to file issues"`
			Labels  []string `usage:"Labels attached to filed issues"`
		}
		FTP struct {
			Enabled  bool   `default:"false"`
			Host     string `usage:"FTP server (host:port)"`
			Username string
			Password string
			Dir      string `usage:"Directory reports are uploaded to"`
		}
		Mail struct {
			Enabled    bool   `default:"false"`
			To         string `usage:"Maintainer address reports are sent to"`
			From       string `usage:"Mail sender"`
			Server     string `usage:"SMTP server"`
			Port       int
			Encryption string `default:"STARTTLS" usage:"Transport encryption (STARTTLS, SSL or None)"`
			Username   string
			Password   string
			Subject    string `default:"[tattle] Error report" usage:"Report mail subject"`
		}
	}
	Release struct {
		APIBase string `default:"https://api.github.com" usage:"Base URL for the GitHub API"`
		Draft   bool   `default:"false" usage:"Create releases as drafts"`
	}
	Consent struct {
		Diagnostics bool `default:"false" usage:"Send reports without asking (opt-in diagnostics mode)"`
		Paranoid    bool `default:"false" usage:"Exclude all personally identifiable information from reports"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object
func Loader() (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:  "TATTLE",
		FlagPrefix: "cfg",
		Files:      []string{"tattle.toml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads the configuration from tattle.toml and the environment and
// validates it.
func Load() (*Config, error) {
	cfg, loader := Loader()
	err := loader.Load()
	if err != nil {
		return nil, eris.Wrap(err, "Failed to load configuration")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if cfg.Index.URL != "" {
		parsed, err := url.Parse(cfg.Index.URL)
		if err != nil {
			return eris.Wrap(err, "Invalid value for index.url")
		}

		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return eris.Errorf(`Invalid scheme %s for index.url (must be http or https)`, parsed.Scheme)
		}
	}

	switch cfg.Reporters.Mail.Encryption {
	case "STARTTLS":
	case "SSL":
	case "None":
		// valid
		break
	default:
		return eris.Errorf(`Invalid value for reporters.mail.encryption: %s (must be one of STARTTLS, SSL or None)`, cfg.Reporters.Mail.Encryption)
	}

	if cfg.Reporters.GitHub.Enabled && (cfg.Repository.Owner == "" || cfg.Repository.Name == "") {
		return eris.New("repository.owner and repository.name must be set when the GitHub reporter is enabled")
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
