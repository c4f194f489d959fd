package taskfile

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadYaml(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "meta.yml"), []byte(`
name: tattle
release:
  draft: true
  assets:
    - bundle.tar.gz
    - bundle.zip
`), 0660))

	path := filepath.Join(root, "tasks.star")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
name = read_yaml("meta.yml", "name")
draft = read_yaml("meta.yml", "release.draft")
second = read_yaml("meta.yml", "release.assets.1")
missing = read_yaml("meta.yml", "release.channel", "stable")

def configure():
    target(
        name="check",
        cmds=["echo %s %s %s %s" % (name, draft, second, missing)],
    )
`), 0660))

	targets, _, err := Load(context.Background(), path, root, nil, true)
	require.NoError(t, err)

	cmd := targets["check"].Cmds[0].(ShellCommand)
	assert.Equal(t, "echo tattle True bundle.zip stable", cmd.Script)
}

func TestExecuteCapturesOutput(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "tasks.star")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
result = execute("echo hello").strip()

def configure():
    target(name="check", cmds=["echo %s" % result])
`), 0660))

	targets, _, err := Load(context.Background(), path, root, nil, true)
	require.NoError(t, err)

	cmd := targets["check"].Cmds[0].(ShellCommand)
	assert.Equal(t, "echo hello", cmd.Script)
}

func TestExecuteReturnsFalseOnFailure(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "tasks.star")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
result = execute("exit 1")

def configure():
    if result != False:
        fail("expected False")
    target(name="check", cmds=["echo ok"])
`), 0660))

	_, _, err := Load(context.Background(), path, root, nil, true)
	require.NoError(t, err)
}

func TestNormalizePath(t *testing.T) {
	ctx := &scriptCtx{
		filepath:    filepath.Join("/project", "sub", "tasks.star"),
		projectRoot: "/project",
	}

	cases := []struct {
		input    string
		expected string
	}{
		{"file.txt", filepath.Join("/project", "sub", "file.txt")},
		{"//file.txt", filepath.Join("/project", "file.txt")},
		{"../file.txt", filepath.Join("/project", "file.txt")},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, normalizePath(ctx, tc.input))
	}
}

func TestIsfileIsdir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "exists.txt"), []byte("x"), 0660))

	path := filepath.Join(root, "tasks.star")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
def configure():
    if not isfile("exists.txt"):
        fail("expected exists.txt")
    if isfile("missing.txt"):
        fail("missing.txt should not exist")
    if not isdir("//"):
        fail("expected the project root to be a directory")
    target(name="noop", cmds=["echo ok"])
`), 0660))

	_, _, err := Load(context.Background(), path, root, nil, true)
	require.NoError(t, err)
}
