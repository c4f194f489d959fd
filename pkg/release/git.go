package release

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"

	"github.com/biologyguy/tattle/pkg/tlog"
)

// ValidateVersion checks that the given version is strict semver (no leading
// "v", all three components present) and returns the tag name for it.
func ValidateVersion(version string) (string, error) {
	_, err := semver.StrictNewVersion(version)
	if err != nil {
		return "", eris.Wrapf(err, "invalid version %s", version)
	}

	return "v" + version, nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		return "", eris.Wrapf(err, "git %s failed", strings.Join(args, " "))
	}

	return strings.TrimSpace(string(output)), nil
}

// Tag creates an annotated tag for the release and pushes it.
func Tag(ctx context.Context, dir, version, message string) (string, error) {
	tag, err := ValidateVersion(version)
	if err != nil {
		return "", err
	}

	if message == "" {
		message = "Release " + version
	}

	tlog.Log(ctx).Info().Msgf("Tagging %s", tag)
	_, err = git(ctx, dir, "tag", "-a", tag, "-m", message)
	if err != nil {
		return "", err
	}

	_, err = git(ctx, dir, "push", "origin", tag)
	if err != nil {
		return "", err
	}

	return tag, nil
}

// HeadCommit returns the commit the release will point at.
func HeadCommit(ctx context.Context, dir string) (string, error) {
	return git(ctx, dir, "rev-parse", "HEAD")
}
