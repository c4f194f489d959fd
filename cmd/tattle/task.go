package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/biologyguy/tattle/pkg/taskfile"
	"github.com/biologyguy/tattle/pkg/tlog"
)

const taskScriptName = "tasks.star"

var taskCmd = &cobra.Command{
	Use:   "task [target... | option=value...]",
	Short: "Run build targets from the nearest tasks.star file",
	Long: `Parses the first tasks.star file found in the current directory or one of
its parents and executes the given targets. Without arguments, the available
targets are listed. Options (i.e. version=1.2.0 token=...) are passed to the
task script.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targetArgs := make([]string, 0)
		options := make(map[string]string)
		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		noCache, err := cmd.Flags().GetBool("no-cache")
		if err != nil {
			return err
		}

		for _, part := range args {
			pos := strings.Index(part, "=")
			if pos > -1 {
				options[part[:pos]] = part[pos+1:]
			} else {
				targetArgs = append(targetArgs, part)
			}
		}

		logger := log.Logger
		ctx := tlog.WithLogger(context.Background(), &logger)

		taskPath, err := findTaskScript()
		if err != nil {
			return err
		}

		projectRoot := filepath.Dir(taskPath)
		targets, err := loadTargets(ctx, taskPath, projectRoot, options, noCache)
		if err != nil {
			return err
		}

		for _, name := range targetArgs {
			err = taskfile.Run(ctx, projectRoot, name, targets, taskfile.RunOptions{
				DryRun: dryRun,
				Force:  force,
			})
			if err != nil {
				return eris.Wrapf(err, "Failed target %s", name)
			}
		}

		if len(targetArgs) == 0 {
			printTargets(targets)
		}

		return nil
	},
}

// findTaskScript searches the working directory and its parents for tasks.star.
func findTaskScript() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "Failed to retrieve the current working directory")
	}

	path := wd
	for {
		taskPath := filepath.Join(path, taskScriptName)
		_, err := os.Stat(taskPath)
		if err == nil {
			relPath, err := filepath.Rel(wd, taskPath)
			if err == nil {
				return relPath, nil
			}
			return taskPath, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "Failed to check %s", taskPath)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.Errorf("No %s file found", taskScriptName)
		}

		path = parent
	}
}

// loadTargets parses the task script, reusing the cached result when the
// script hasn't changed and the same options were passed.
func loadTargets(ctx context.Context, taskPath, projectRoot string, options map[string]string, noCache bool) (taskfile.List, error) {
	cachePath := filepath.Join(projectRoot, ".task-cache")

	if !noCache {
		scriptInfo, err := os.Stat(taskPath)
		if err == nil {
			cacheInfo, err := os.Stat(cachePath)
			if err == nil && cacheInfo.ModTime().After(scriptInfo.ModTime()) {
				cachedOptions, targets, err := taskfile.ReadCache(cachePath)
				if err == nil && reflect.DeepEqual(cachedOptions, options) {
					return targets, nil
				}
			}
		}
	}

	targets, _, err := taskfile.Load(ctx, taskPath, projectRoot, options, true)
	if err != nil {
		return nil, eris.Wrap(err, "Failed to parse tasks")
	}

	err = taskfile.WriteCache(cachePath, options, targets)
	if err != nil {
		tlog.Log(ctx).Debug().Err(err).Msg("Failed to write task cache")
	}

	return targets, nil
}

func printTargets(targets taskfile.List) {
	fmt.Println("Available targets:")
	maxNameLen := 0
	sortedNames := make([]string, 0)
	for _, tgt := range targets {
		if len(tgt.Name) > maxNameLen {
			maxNameLen = len(tgt.Name)
		}

		sortedNames = append(sortedNames, tgt.Name)
	}

	sort.Strings(sortedNames)

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range sortedNames {
		fmt.Printf(lineFmt, name+":", targets[name].Desc)
	}
}

func init() {
	taskCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	taskCmd.Flags().BoolP("force", "f", false, "force build; always execute the passed targets even if they don't have to run")
	taskCmd.Flags().Bool("no-cache", false, "always re-evaluate the task script")

	rootCmd.AddCommand(taskCmd)
}
