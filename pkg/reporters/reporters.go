// Package reporters contains the transports a report can be sent through:
// GitHub issues, an FTP drop directory and mail to the maintainers.
package reporters

import (
	"github.com/biologyguy/tattle/pkg/config"
	"github.com/biologyguy/tattle/pkg/report"
)

// FromConfig builds the list of enabled reporters.
func FromConfig(cfg *config.Config) []report.Reporter {
	var result []report.Reporter

	if cfg.Reporters.GitHub.Enabled {
		result = append(result, NewGitHubReporter(GitHubOptions{
			Owner:  cfg.Repository.Owner,
			Repo:   cfg.Repository.Name,
			Token:  cfg.Reporters.GitHub.Token,
			Labels: cfg.Reporters.GitHub.Labels,
		}))
	}

	if cfg.Reporters.FTP.Enabled {
		result = append(result, &FTPReporter{
			Host:     cfg.Reporters.FTP.Host,
			Username: cfg.Reporters.FTP.Username,
			Password: cfg.Reporters.FTP.Password,
			Dir:      cfg.Reporters.FTP.Dir,
		})
	}

	if cfg.Reporters.Mail.Enabled {
		result = append(result, NewMailReporter(cfg))
	}

	return result
}
