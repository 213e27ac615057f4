package proctable

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupBeforeRefresh(t *testing.T) {
	tb := New()
	_, ok := tb.Lookup(os.Getpid())
	assert.False(t, ok, "an empty snapshot knows no process")
	assert.True(t, tb.RefreshedAt().IsZero())
}

func TestRefreshFindsSelf(t *testing.T) {
	tb := New()
	require.NoError(t, tb.Refresh(context.Background()))
	assert.False(t, tb.RefreshedAt().IsZero())
	assert.Greater(t, tb.Len(), 0)

	p, ok := tb.Lookup(os.Getpid())
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), p.PID())
}

func TestSnapshotIsNotRequeried(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
	ctx := context.Background()
	tb := New()
	require.NoError(t, tb.Refresh(ctx))

	cmd := exec.Command("sleep", "5")
	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill(); _, _ = cmd.Process.Wait() }()

	_, ok := tb.Lookup(cmd.Process.Pid)
	assert.False(t, ok, "process started after the snapshot must not be visible")

	require.NoError(t, tb.Refresh(ctx))
	_, ok = tb.Lookup(cmd.Process.Pid)
	assert.True(t, ok)
}

func TestKill(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
	ctx := context.Background()
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() { _ = cmd.Wait(); close(done) }()

	tb := New()
	require.NoError(t, tb.Refresh(ctx))
	p, ok := tb.Lookup(cmd.Process.Pid)
	require.True(t, ok)
	require.NoError(t, p.Kill(ctx))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("process survived Kill")
	}
}
