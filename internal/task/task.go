package task

import (
	"fmt"
	"os/exec"
	"time"
)

// Task owns one child process started from a Spec.
//
// A Task exposes no way to stop its process: the owner signals it by PID
// against a process-table snapshot, so that a single snapshot can serve a
// whole teardown pass.
type Task struct {
	spec      Spec
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	waitDone  chan struct{} // closed once cmd.Wait returns
	exitErr   error
}

// Start launches the process described by spec.
func Start(spec Spec) (*Task, error) {
	cmd := spec.buildCommand()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("could not spawn child process: %w", err)
	}
	t := &Task{
		spec:      spec,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		waitDone:  make(chan struct{}),
	}
	// single waiter; reaps the child so it never lingers as a zombie
	go func() {
		t.exitErr = cmd.Wait()
		close(t.waitDone)
	}()
	return t, nil
}

func (t *Task) PID() int             { return t.pid }
func (t *Task) Spec() Spec           { return t.spec }
func (t *Task) StartedAt() time.Time { return t.startedAt }

// Done is closed once the process has exited and been reaped.
func (t *Task) Done() <-chan struct{} { return t.waitDone }

// ExitErr returns the result of cmd.Wait. Only meaningful after Done is closed.
func (t *Task) ExitErr() error {
	select {
	case <-t.waitDone:
		return t.exitErr
	default:
		return nil
	}
}
