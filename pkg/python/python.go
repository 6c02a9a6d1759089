// Package python runs a Python interpreter as a child process.
package python

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/specvital/unittest-adapter/pkg/environ"
)

// DefaultExecutable is used when neither a flag nor $PYTHON names an interpreter.
const DefaultExecutable = "python3"

// Invocation describes one interpreter run.
type Invocation struct {
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is the complete child environment as KEY=value pairs.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs an interpreter invocation to completion.
type Executor interface {
	Exec(ctx context.Context, inv Invocation) error
	Command(inv Invocation) string
}

// Interpreter executes invocations with a real interpreter binary.
type Interpreter struct {
	Path string
}

// New returns an Interpreter for path, falling back to $PYTHON in env and
// then DefaultExecutable.
func New(path string, env *environ.Env) *Interpreter {
	if path == "" && env != nil {
		path = env.Get(environ.Python)
	}
	if path == "" {
		path = DefaultExecutable
	}
	return &Interpreter{Path: path}
}

// Exec runs the interpreter and waits for it to exit.
func (i *Interpreter) Exec(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, i.Path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", i.Path, strings.Join(inv.Args, " "), err)
	}
	return nil
}

// Command renders the invocation as a shell-like string for logs and errors.
func (i *Interpreter) Command(inv Invocation) string {
	return strings.Join(append([]string{i.Path}, inv.Args...), " ")
}
