//go:build !windows

package task

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartLeadsOwnProcessGroup(t *testing.T) {
	tk, err := Start(Spec{Path: "sleep", Args: []string{"5"}})
	require.NoError(t, err)
	defer func() {
		_ = syscall.Kill(-tk.PID(), syscall.SIGKILL)
		<-tk.Done()
	}()

	pgid, err := syscall.Getpgid(tk.PID())
	require.NoError(t, err)
	assert.Equal(t, tk.PID(), pgid, "child must lead its own group")
	assert.NotEqual(t, syscall.Getpgrp(), pgid)
}
