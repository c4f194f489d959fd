package taskfile

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAndRun(t *testing.T, script, name string, opts RunOptions) (string, error) {
	t.Helper()

	path, root := writeScript(t, script)
	targets, _, err := Load(context.Background(), path, root, nil, true)
	require.NoError(t, err)

	return root, Run(context.Background(), root, name, targets, opts)
}

func readOutput(t *testing.T, root, name string) string {
	t.Helper()

	content, err := ioutil.ReadFile(filepath.Join(root, name))
	require.NoError(t, err)
	return string(content)
}

func TestRunExecutesCommandsInOrder(t *testing.T) {
	root, err := loadAndRun(t, `
def configure():
    target(
        name="build",
        cmds=[
            "echo first > log.txt",
            "echo second >> log.txt",
        ],
    )
`, "build", RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", readOutput(t, root, "log.txt"))
}

func TestRunExecutesDepsFirst(t *testing.T) {
	root, err := loadAndRun(t, `
def configure():
    target(name="build", deps=["prepare"], cmds=["echo build >> log.txt"])
    target(name="prepare", cmds=["echo prepare >> log.txt"])
`, "build", RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, "prepare\nbuild\n", readOutput(t, root, "log.txt"))
}

func TestRunSharedDepRunsOnce(t *testing.T) {
	root, err := loadAndRun(t, `
def configure():
    target(name="all", deps=["a", "b"])
    target(name="a", deps=["shared"], cmds=["echo a >> log.txt"])
    target(name="b", deps=["shared"], cmds=["echo b >> log.txt"])
    target(name="shared", cmds=["echo shared >> log.txt"])
`, "all", RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, "shared\na\nb\n", readOutput(t, root, "log.txt"))
}

func TestRunDetectsDependencyCycles(t *testing.T) {
	_, err := loadAndRun(t, `
def configure():
    target(name="a", deps=["b"], cmds=["echo a"])
    target(name="b", deps=["a"], cmds=["echo b"])
`, "a", RunOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "recursively")
}

func TestRunUnknownTarget(t *testing.T) {
	_, err := loadAndRun(t, `
def configure():
    target(name="build", cmds=["echo x"])
`, "missing", RunOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunHaltsOnFailure(t *testing.T) {
	root, err := loadAndRun(t, `
def configure():
    target(
        name="build",
        cmds=[
            "exit 3",
            "echo unreachable > log.txt",
        ],
    )
`, "build", RunOptions{})

	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(root, "log.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDryRun(t *testing.T) {
	root, err := loadAndRun(t, `
def configure():
    target(name="build", cmds=["echo built > log.txt"])
`, "build", RunOptions{DryRun: true})

	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(root, "log.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSkipIfExists(t *testing.T) {
	script := `
def configure():
    target(
        name="build",
        skip_if_exists=["marker.txt"],
        cmds=["echo built >> log.txt"],
    )
`
	path, root := writeScript(t, script)
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "marker.txt"), []byte("x"), 0660))

	targets, _, err := Load(context.Background(), path, root, nil, true)
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), root, "build", targets, RunOptions{}))
	_, statErr := os.Stat(filepath.Join(root, "log.txt"))
	assert.True(t, os.IsNotExist(statErr))

	// Force overrides the skip check.
	require.NoError(t, Run(context.Background(), root, "build", targets, RunOptions{Force: true}))
	assert.Equal(t, "built\n", readOutput(t, root, "log.txt"))
}

func TestRunFreshnessCheck(t *testing.T) {
	script := `
def configure():
    target(
        name="build",
        inputs=["input.txt"],
        outputs=["output.txt"],
        cmds=["echo built >> log.txt"],
    )
`
	path, root := writeScript(t, script)
	input := filepath.Join(root, "input.txt")
	output := filepath.Join(root, "output.txt")

	require.NoError(t, ioutil.WriteFile(input, []byte("in"), 0660))
	require.NoError(t, ioutil.WriteFile(output, []byte("out"), 0660))

	// Make the output newer than the input.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(input, old, old))

	targets, _, err := Load(context.Background(), path, root, nil, true)
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), root, "build", targets, RunOptions{}))
	_, statErr := os.Stat(filepath.Join(root, "log.txt"))
	assert.True(t, os.IsNotExist(statErr), "fresh target must not run")

	// Now the input is newer, so the target has to run.
	now := time.Now()
	require.NoError(t, os.Chtimes(input, now, now))
	require.NoError(t, os.Chtimes(output, old, old))

	require.NoError(t, Run(context.Background(), root, "build", targets, RunOptions{}))
	assert.Equal(t, "built\n", readOutput(t, root, "log.txt"))
}

func TestRewriteExecArgs(t *testing.T) {
	rewritten := rewriteExecArgs([]string{"mkdir", "-p", "build"})
	require.Len(t, rewritten, len(toolArgs)+3)
	// the file helpers go through the running binary, not through PATH
	assert.Equal(t, toolArgs, rewritten[:len(toolArgs)])
	assert.Equal(t, []string{"mkdir", "-p", "build"}, rewritten[len(toolArgs):])

	assert.Equal(t, []string{"echo", "hi"}, rewriteExecArgs([]string{"echo", "hi"}))
	assert.Empty(t, rewriteExecArgs(nil))
}

func TestRunHiddenTargetViaReference(t *testing.T) {
	root, err := loadAndRun(t, `
def configure():
    prepare = target(name="prepare", hidden=True, cmds=["echo prepare >> log.txt"])
    target(name="build", cmds=[prepare, "echo build >> log.txt"])
    target(name="docs", cmds=[prepare, "echo docs >> log.txt"])
    target(name="all", deps=["build", "docs"])
`, "all", RunOptions{})

	require.NoError(t, err)
	// the shared hidden target runs exactly once
	assert.Equal(t, "prepare\nbuild\ndocs\n", readOutput(t, root, "log.txt"))
}

func TestRunHiddenTargetNotResolvableByName(t *testing.T) {
	_, err := loadAndRun(t, `
def configure():
    target(name="prepare", hidden=True, cmds=["echo prepare"])
    target(name="build", deps=["prepare"], cmds=["echo build"])
`, "build", RunOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Target prepare not found")
}

func TestRunNestedTargetReference(t *testing.T) {
	root, err := loadAndRun(t, `
def configure():
    helper = target(cmds=["echo helper >> log.txt"])
    target(name="main", cmds=[helper, "echo main >> log.txt"])
`, "main", RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, "helper\nmain\n", readOutput(t, root, "log.txt"))
}
