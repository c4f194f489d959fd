package taskfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/biologyguy/tattle/pkg/tlog"
)

type (
	runtimeCtxKey struct{}
	runtimeCtx    struct {
		runTargets  map[string]bool
		projectRoot string
	}
)

func getRuntimeCtx(ctx context.Context) *runtimeCtx {
	return ctx.Value(runtimeCtxKey{}).(*runtimeCtx)
}

func getTargetEnv(tgt *Target) expand.Environ {
	envVars := os.Environ()

	for name, value := range tgt.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}

	return expand.ListEnviron(envVars...)
}

var defaultExecHandler = interp.DefaultExecHandler(2)

// toolArgs is the command prefix for the cross-platform file helpers. The
// current executable is resolved so task scripts keep working when the runner
// was started through "go run" and no installed binary exists on PATH.
var toolArgs = resolveToolArgs()

func resolveToolArgs() []string {
	exe, err := os.Executable()
	if err != nil {
		return []string{"tattle", "tool"}
	}

	return []string{exe, "tool"}
}

func rewriteExecArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	switch args[0] {
	case "mv", "rm", "mkdir":
		// always use our cross-platform implementation for these operations to make sure
		// they behave consistently
		return append(append([]string{}, toolArgs...), args...)
	}

	return args
}

func execHandler(ctx context.Context, args []string) error {
	return defaultExecHandler(ctx, rewriteExecArgs(args))
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

func resolvePatternLists(ctx context.Context, base string, patterns []string) ([]string, error) {
	result := []string{}
	cfg := expand.Config{
		ReadDir:  shellReadDir,
		GlobStar: true,
	}

	parser := syntax.NewParser()
	parserCtx := &scriptCtx{
		filepath:    "invalid",
		projectRoot: getRuntimeCtx(ctx).projectRoot,
	}

	for _, item := range patterns {
		item = normalizePath(parserCtx, base, item)
		item = filepath.ToSlash(item)

		words := make([]*syntax.Word, 0)
		parser.Words(strings.NewReader(item), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			// If a pattern didn't match anything, it's returned as a result. Skip those results.
			if !strings.Contains(match, "*") {
				result = append(result, match)
			}
		}
	}
	return result, nil
}

// RunOptions modify how targets are run.
type RunOptions struct {
	// DryRun prints commands without executing them.
	DryRun bool
	// Force runs targets even if the freshness checks say there's nothing to do.
	Force bool
}

// Run executes the named target including its dependencies
func Run(ctx context.Context, projectRoot, name string, targets List, opts RunOptions) error {
	rctx := runtimeCtx{
		projectRoot: projectRoot,
		runTargets:  make(map[string]bool),
	}

	ctx = context.WithValue(ctx, runtimeCtxKey{}, &rctx)
	tgt, found := targets[name]
	if !found {
		return eris.Errorf("Target %s not found", name)
	}

	return runTarget(ctx, tgt, targets, opts, true)
}

func runTarget(ctx context.Context, tgt *Target, targets List, opts RunOptions, canSkip bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	rctx := getRuntimeCtx(ctx)
	done, visited := rctx.runTargets[tgt.Name]
	if visited {
		if done {
			// this target has already been run
			tlog.Log(ctx).Debug().Msgf("Target %s already run", tgt.Name)
			return nil
		}

		return eris.Errorf("Target %s was called recursively", tgt.Name)
	}

	rctx.runTargets[tgt.Name] = false

	for _, dep := range tgt.Deps {
		if !rctx.runTargets[dep] {
			depTarget, ok := targets[dep]
			if !ok {
				return eris.Errorf("Target %s not found", dep)
			}

			err := runTarget(ctx, depTarget, targets, RunOptions{DryRun: opts.DryRun}, true)
			if err != nil {
				return eris.Wrapf(err, "Target %s failed due to its dependency %s", tgt.Name, dep)
			}
		}
	}

	if canSkip && !opts.Force {
		skipList, err := resolvePatternLists(ctx, tgt.Base, tgt.SkipIfExists)
		if err != nil {
			return eris.Wrap(err, "failed to resolve skip_if_exists list")
		}

		found := 0
		for _, item := range skipList {
			_, err := os.Stat(item)
			if err == nil {
				found++
			} else if !eris.Is(err, os.ErrNotExist) {
				return eris.Wrapf(err, "Failed to check %s", item)
			}
		}

		if found > 0 && found == len(skipList) {
			tlog.Log(ctx).Info().
				Str("target", tgt.Name).
				Msg("skipped because all skip files exist")

			rctx.runTargets[tgt.Name] = true
			return nil
		}
	}

	if !opts.Force {
		upToDate, err := isFresh(ctx, tgt)
		if err != nil {
			return err
		}

		if upToDate {
			rctx.runTargets[tgt.Name] = true
			return nil
		}
	}

	// With the skip and input/output checks done, we can finally start executing
	runner, err := interp.New(
		interp.Dir(tgt.Base),
		interp.Env(getTargetEnv(tgt)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "Failed to initialize runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(
		syntax.Minify(true),
	)
	strBuffer := strings.Builder{}

	for _, item := range tgt.Cmds {
		stmts, err := item.ShellStmts(parser)
		if err != nil {
			return eris.Wrap(err, "failed to parse shell script")
		}
		if stmts != nil {
			for _, stm := range stmts {
				strBuffer.Reset()
				printer.Print(&strBuffer, stm)
				tlog.Log(ctx).Info().
					Str("target", tgt.Name).
					Bool("command", true).
					Msg(strBuffer.String())

				if !opts.DryRun {
					err = runner.Run(ctx, stm)
					if err != nil {
						return err
					}

					if runner.Exited() {
						return nil
					}
				}
			}
		} else {
			subTarget := item.TargetRef()
			if subTarget == nil {
				return eris.Errorf("unexpected command %+v", item)
			}

			err = runTarget(ctx, subTarget, targets, opts, true)
			if err != nil {
				return err
			}
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	if tgt.Name != "" {
		rctx.runTargets[tgt.Name] = true
	}
	return nil
}

// isFresh implements the input/output freshness check: a target with inputs
// and outputs has nothing to do if the newest output is newer than the
// newest input.
func isFresh(ctx context.Context, tgt *Target) (bool, error) {
	inputList, err := resolvePatternLists(ctx, tgt.Base, tgt.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	outputList, err := resolvePatternLists(ctx, tgt.Base, tgt.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve output list")
	}

	var newestInput time.Time
	for _, item := range inputList {
		info, err := os.Stat(item)
		if err != nil {
			return false, eris.Wrapf(err, "Failed to check input %s", item)
		}

		if info.ModTime().Sub(newestInput) > 0 {
			newestInput = info.ModTime()
		}
	}

	if newestInput.IsZero() {
		return false, nil
	}

	var newestOutput time.Time
	oldestOutput := time.Now()

	for _, item := range outputList {
		info, err := os.Stat(item)
		if err != nil && !eris.Is(err, os.ErrNotExist) {
			return false, eris.Wrapf(err, "Failed to check output %s", item)
		}

		if err == nil {
			mt := info.ModTime()
			if mt.Sub(newestOutput) > 0 {
				newestOutput = mt
			}

			if oldestOutput.Sub(mt) > 0 {
				oldestOutput = mt
			}
		}
	}

	if newestOutput.Sub(oldestOutput) > 10*time.Minute {
		tlog.Log(ctx).Warn().
			Str("target", tgt.Name).
			Msgf("oldest output is %f minutes older than the newest output", newestOutput.Sub(oldestOutput).Minutes())
	}

	if newestOutput.Sub(newestInput) > 0 {
		tlog.Log(ctx).Info().
			Str("target", tgt.Name).
			Msgf("nothing to do (output is %f seconds newer)", newestOutput.Sub(newestInput).Seconds())

		return true, nil
	}

	return false, nil
}
