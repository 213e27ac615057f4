package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/loykin/graphdev/internal/subgraph"
)

// Kind classifies why spawning or discovery failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindDuplicateTask
	KindEmptyCommand
	KindExecutableNotFound
	KindSpawnFailure
	KindDiscoveryTimeout
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateTask:
		return "duplicate_task"
	case KindEmptyCommand:
		return "empty_command"
	case KindExecutableNotFound:
		return "executable_not_found"
	case KindSpawnFailure:
		return "spawn_failure"
	case KindDiscoveryTimeout:
		return "discovery_timeout"
	default:
		return "unknown"
	}
}

// Error is returned by Spawn and SpawnAndDiscover. Only the fields relevant
// to Kind are set.
type Error struct {
	Kind     Kind
	Subgraph subgraph.Name // DuplicateTask, DiscoveryTimeout
	Binary   string        // ExecutableNotFound
	Timeout  time.Duration // DiscoveryTimeout
	Err      error         // SpawnFailure
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrDuplicateTask      = &Error{Kind: KindDuplicateTask}
	ErrEmptyCommand       = &Error{Kind: KindEmptyCommand}
	ErrExecutableNotFound = &Error{Kind: KindExecutableNotFound}
	ErrSpawnFailure       = &Error{Kind: KindSpawnFailure}
	ErrDiscoveryTimeout   = &Error{Kind: KindDiscoveryTimeout}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindDuplicateTask:
		return fmt.Sprintf("subgraph with name '%s' already has a running process", e.Subgraph)
	case KindEmptyCommand:
		return "the command you passed is empty"
	case KindExecutableNotFound:
		return fmt.Sprintf("%s is not installed on this machine", e.Binary)
	case KindSpawnFailure:
		// the task package already prefixes launch errors
		if e.Err != nil {
			return e.Err.Error()
		}
		return "could not spawn child process"
	case KindDiscoveryTimeout:
		return fmt.Sprintf("could not find GraphQL endpoint after %s", e.Timeout)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "runner error"
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}
