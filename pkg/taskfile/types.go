package taskfile

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	starsyntax "go.starlark.net/syntax"
	"mvdan.cc/sh/v3/syntax"
)

// Command is a single entry in a target's command list. It's either a shell
// snippet or a reference to another target.
type Command interface {
	// ShellStmts parses the command into shell statements. Returns nil for
	// target references.
	ShellStmts(parser *syntax.Parser) ([]*syntax.Stmt, error)
	// TargetRef returns the referenced target or nil for shell commands.
	TargetRef() *Target
}

// ShellCommand is a shell snippet belonging to a target.
type ShellCommand struct {
	TargetName string
	Script     string
	Index      int
}

func (c ShellCommand) ShellStmts(parser *syntax.Parser) ([]*syntax.Stmt, error) {
	reader := strings.NewReader(c.Script)
	result, err := parser.Parse(reader, fmt.Sprintf("%s:%d", c.TargetName, c.Index))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", c.Script)
	}

	return result.Stmts, nil
}

func (c ShellCommand) TargetRef() *Target { return nil }

// RefCommand points to another target that should run in this position.
type RefCommand struct {
	Target *Target
}

func (c RefCommand) ShellStmts(*syntax.Parser) ([]*syntax.Stmt, error) { return nil, nil }

func (c RefCommand) TargetRef() *Target { return c.Target }

// Target contains the processed values passed to target() by the task script
type Target struct {
	Env          map[string]string
	Name         string
	Desc         string
	Base         string
	Inputs       []string
	Deps         []string
	SkipIfExists []string
	Outputs      []string
	Cmds         []Command
	Hidden       bool
}

// List maps target names to their declarations
type List map[string]*Target

// Option describes a substitution variable declared by the task script
// (i.e. version, token, installargs, testargs).
type Option struct {
	DefaultValue starlark.String
	Help         string
}

func (o Option) Default() string {
	return o.DefaultValue.GoString()
}

// Implement starlark.Value for *Target so scripts can pass targets around.

func (t *Target) String() string {
	return fmt.Sprintf("<target %s: %s>", t.Name, t.Desc)
}

func (t *Target) Type() string {
	return "target"
}

// Freeze doesn't do anything since targets are immutable anyway
func (t *Target) Freeze() {}

func (t *Target) Truth() starlark.Bool {
	return starlark.True
}

func (t *Target) Hash() (uint32, error) {
	return 0, eris.New("target is not a hashable type")
}

// Path is a filesystem path value inside a task script. Using a dedicated
// type lets command processing turn absolute paths into relative ones.
type Path string

func (p Path) String() string {
	return starlark.String(p).String()
}

func (p Path) Type() string {
	return "path"
}

func (p Path) Freeze() {}

func (p Path) Truth() starlark.Bool {
	return p != ""
}

func (p Path) Hash() (uint32, error) {
	return starlark.String(p).Hash()
}

func (p Path) CompareSameType(op starsyntax.Token, y_ starlark.Value, depth int) (bool, error) {
	y := y_.(Path)

	switch op {
	case starsyntax.EQL:
		return p == y, nil
	case starsyntax.NEQ:
		return p != y, nil
	case starsyntax.LT:
		return p < y, nil
	case starsyntax.LE:
		return p <= y, nil
	case starsyntax.GT:
		return p > y, nil
	case starsyntax.GE:
		return p >= y, nil
	}

	return false, eris.Errorf("unknown operator %v", op)
}

func (p Path) Index(i int) starlark.Value {
	return starlark.String(p[i])
}

func (p Path) Len() int {
	return len(p)
}

func (p Path) Slice(start, end, step int) starlark.Value {
	return starlark.String(p).Slice(start, end, step)
}
