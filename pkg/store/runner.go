package store

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Runner executes a package-manager command inside dir and returns its
// combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecCommandFunc matches exec.CommandContext.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	execCommand ExecCommandFunc
	env         []string
}

// ExecRunnerOption configures an ExecRunner.
type ExecRunnerOption func(*ExecRunner)

// WithExecCommand replaces exec.CommandContext.
func WithExecCommand(fn ExecCommandFunc) ExecRunnerOption {
	return func(r *ExecRunner) { r.execCommand = fn }
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) ExecRunnerOption {
	return func(r *ExecRunner) { r.env = append(r.env, env...) }
}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner(opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{execCommand: exec.CommandContext}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := r.execCommand(ctx, name, args...)
	cmd.Dir = dir
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

var _ Runner = (*ExecRunner)(nil)

// CommandLine renders name and args as a bash-quoted command line.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{name}, args...) {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = a
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}
