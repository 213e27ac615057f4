package task

import (
	"os"
	"os/exec"
	"strings"
)

// Spec describes the process a Task launches.
type Spec struct {
	Path string   `json:"path"`     // executable name or path
	Args []string `json:"args"`     // arguments, without the executable
	Dir  string   `json:"work_dir"` // optional working dir
	Env  []string `json:"env"`      // optional extra env appended to the supervisor's
}

// ParseCommandLine splits a command line on whitespace into the executable
// and its arguments. ok is false when line holds no token at all.
func ParseCommandLine(line string) (bin string, args []string, ok bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil, false
	}
	if len(parts) > 1 {
		args = parts[1:]
	}
	return parts[0], args, true
}

// String renders the spec as a single command line.
func (s Spec) String() string {
	return strings.TrimSpace(s.Path + " " + strings.Join(s.Args, " "))
}

// buildCommand constructs the *exec.Cmd for s.
func (s Spec) buildCommand() *exec.Cmd {
	// ok: intentional execution of a user-configured command
	// #nosec G204
	cmd := exec.Command(s.Path, s.Args...)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	configureStdio(cmd)
	configureSysProcAttr(cmd)
	return cmd
}
