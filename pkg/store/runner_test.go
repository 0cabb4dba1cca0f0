package store

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperCommand re-executes the test binary as a stand-in package manager.
func helperCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "STACKPACK_HELPER_PROCESS=1")
	return cmd
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("STACKPACK_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	args = args[1:]
	wd, _ := os.Getwd()
	fmt.Fprintf(os.Stdout, "%v in %s\n", args, wd)
	if args[1] == "fail" {
		fmt.Fprintln(os.Stderr, "boom")
		os.Exit(2)
	}
	os.Exit(0)
}

func TestExecRunner(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner(WithExecCommand(helperCommand), WithEnv("npm_config_loglevel=error"))

	out, err := r.Run(context.Background(), dir, "npm", "install", "x@1")
	require.NoError(t, err)
	assert.Contains(t, string(out), "[npm install x@1]")

	out, err = r.Run(context.Background(), dir, "npm", "fail")
	require.Error(t, err)
	assert.Contains(t, string(out), "boom")
}
