package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/biologyguy/tattle/pkg/release"
	"github.com/biologyguy/tattle/pkg/tlog"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Tag and publish releases on GitHub",
}

var releaseCreateCmd = &cobra.Command{
	Use:   "create <version>",
	Short: "Create an annotated tag and publish a GitHub release for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token, err := cmd.Flags().GetString("token")
		if err != nil {
			return err
		}
		if token == "" {
			token = cfg.Reporters.GitHub.Token
		}
		if token == "" {
			token = os.Getenv("GITHUB_TOKEN")
		}
		if token == "" {
			return eris.New("No GitHub token given. Pass --token or set GITHUB_TOKEN.")
		}

		body, err := cmd.Flags().GetString("notes")
		if err != nil {
			return err
		}

		skipTag, err := cmd.Flags().GetBool("skip-tag")
		if err != nil {
			return err
		}

		assets, err := cmd.Flags().GetStringSlice("asset")
		if err != nil {
			return err
		}

		draft := cfg.Release.Draft
		if cmd.Flags().Changed("draft") {
			draft, err = cmd.Flags().GetBool("draft")
			if err != nil {
				return err
			}
		}

		tag, err := release.ValidateVersion(args[0])
		if err != nil {
			return err
		}

		if !skipTag {
			tag, err = release.Tag(ctx, ".", args[0], "")
			if err != nil {
				return err
			}
		}

		commit, err := release.HeadCommit(ctx, ".")
		if err != nil {
			return err
		}

		client := release.NewClient(cfg.Release.APIBase, token)
		tlog.Log(ctx).Info().Msgf("Creating release %s for %s/%s at %s",
			tag, cfg.Repository.Owner, cfg.Repository.Name, commit[:10])

		rel, err := client.CreateRelease(ctx, cfg.Repository.Owner, cfg.Repository.Name, release.Params{
			TagName:         tag,
			TargetCommitish: cfg.Repository.Branch,
			Name:            fmt.Sprintf("%s %s", cfg.Application.Name, tag),
			Body:            body,
			Draft:           draft,
		})
		if err != nil {
			return err
		}

		for _, asset := range assets {
			tlog.Log(ctx).Info().Msgf("Uploading %s", filepath.Base(asset))
			err = client.UploadAsset(ctx, rel, asset)
			if err != nil {
				return eris.Wrapf(err, "Failed to upload %s", asset)
			}
		}

		tlog.Log(ctx).Info().Msgf("Release published: %s", rel.HTMLURL)
		return nil
	},
}

var releasePackCmd = &cobra.Command{
	Use:   "pack <archive> <file...>",
	Short: "Bundle release files into an archive and write a checksum manifest",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dest := args[0]
		files := args[1:]

		err := release.BuildArchive(dest, files)
		if err != nil {
			return err
		}

		sumFile := dest + ".sha256"
		err = release.WriteChecksums(sumFile, []string{dest})
		if err != nil {
			return err
		}

		tlog.Log(ctx).Info().Msgf("Wrote %s and %s", dest, sumFile)
		return nil
	},
}

func init() {
	releaseCreateCmd.Flags().String("token", "", "GitHub API token")
	releaseCreateCmd.Flags().String("notes", "", "release description (Markdown)")
	releaseCreateCmd.Flags().Bool("skip-tag", false, "don't create or push a git tag, use the existing one")
	releaseCreateCmd.Flags().Bool("draft", false, "create the release as a draft (overrides the config)")
	releaseCreateCmd.Flags().StringSlice("asset", nil, "file to upload as a release asset (can be repeated)")

	releaseCmd.AddCommand(releaseCreateCmd)
	releaseCmd.AddCommand(releasePackCmd)
	rootCmd.AddCommand(releaseCmd)
}
