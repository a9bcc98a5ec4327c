package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available:", err)
	}
}

// =============================================================================
// ExecRunner Tests
// =============================================================================

func TestExecRunner_CapturesOutput(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)

	res, err := r.Run(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
	})

	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\nerr", res.Output())
}

func TestExecRunner_PassesEnvAndDir(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)
	dir := t.TempDir()

	res, err := r.Run(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "echo $SWARMUP_TEST_VALUE; pwd"},
		Env:  []string{"SWARMUP_TEST_VALUE=hello"},
		Dir:  dir,
	})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "hello", lines[0])
	assert.Contains(t, lines[1], dir[strings.LastIndex(dir, "/")+1:])
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)

	res, err := r.Run(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "echo boom >&2; exit 3"},
	})

	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.ErrorIs(t, err, ErrNonZeroExit)

	var cmdErr *Error
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Error(), "exit 3")
	assert.Contains(t, cmdErr.Error(), "boom")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner(nil)

	_, err := r.Run(context.Background(), Cmd{Name: "swarmup-no-such-binary"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNonZeroExit)
}

func TestExecRunner_ContextCancelled(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, Cmd{Name: "sh", Args: []string{"-c", "sleep 5"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecRunner_LookPath(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(nil)

	path, err := r.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = r.LookPath("swarmup-no-such-binary")
	assert.Error(t, err)
}

func TestCmd_String(t *testing.T) {
	assert.Equal(t, "docker", Cmd{Name: "docker"}.String())
	assert.Equal(t, "git clone --depth 1", Cmd{Name: "git", Args: []string{"clone", "--depth", "1"}}.String())
}
