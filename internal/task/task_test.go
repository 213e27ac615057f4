package task

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func TestParseCommandLine(t *testing.T) {
	bin, args, ok := ParseCommandLine("npm run   start")
	require.True(t, ok)
	assert.Equal(t, "npm", bin)
	assert.Equal(t, []string{"run", "start"}, args)

	bin, args, ok = ParseCommandLine("  server ")
	require.True(t, ok)
	assert.Equal(t, "server", bin)
	assert.Nil(t, args)

	for _, line := range []string{"", "   ", "\t\n"} {
		_, _, ok = ParseCommandLine(line)
		assert.False(t, ok, "line=%q", line)
	}
}

func TestSpecString(t *testing.T) {
	assert.Equal(t, "sleep 1", Spec{Path: "sleep", Args: []string{"1"}}.String())
	assert.Equal(t, "true", Spec{Path: "true"}.String())
}

func TestBuildCommandDirAndEnv(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	cmd := Spec{Path: "env", Dir: dir, Env: []string{"GRAPHDEV_TEST=1"}}.buildCommand()
	assert.Equal(t, dir, cmd.Dir)
	assert.Contains(t, cmd.Env, "GRAPHDEV_TEST=1")
	assert.Greater(t, len(cmd.Env), 1, "extra env is appended to the inherited env")
	assert.Equal(t, os.Stdout, cmd.Stdout)

	cmd = Spec{Path: "env"}.buildCommand()
	assert.Nil(t, cmd.Env, "nil Env inherits the parent environment")
}

func TestStartAndReap(t *testing.T) {
	requireUnix(t)
	tk, err := Start(Spec{Path: "sh", Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	assert.Greater(t, tk.PID(), 0)
	assert.False(t, tk.StartedAt().IsZero())

	select {
	case <-tk.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("process was not reaped")
	}
	assert.Error(t, tk.ExitErr(), "non-zero exit is reported")
}

func TestStartKeepsPIDStable(t *testing.T) {
	requireUnix(t)
	tk, err := Start(Spec{Path: "sleep", Args: []string{"5"}})
	require.NoError(t, err)
	pid := tk.PID()
	assert.Nil(t, tk.ExitErr(), "no exit error while running")
	assert.Equal(t, pid, tk.PID())

	require.NoError(t, tk.cmd.Process.Kill())
	select {
	case <-tk.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("process was not reaped after kill")
	}
	assert.Equal(t, pid, tk.PID())
}

func TestStartFailure(t *testing.T) {
	_, err := Start(Spec{Path: "/definitely/not/a/real/binary-xyz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not spawn child process")
}
