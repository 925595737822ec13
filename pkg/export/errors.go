// ABOUTME: Export result codes and stage-tagged errors
// ABOUTME: Distinguishes init, write and finalize failures and detects a full disk
package export

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrDiskFull matches stage errors caused by running out of space
var ErrDiskFull = errors.New("disk full")

// Result is the terminal condition of an export
type Result int

const (
	Success Result = iota
	Cancelled
	Error
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Cancelled:
		return "cancelled"
	default:
		return "error"
	}
}

// Stage identifies where an export failed
type Stage int

const (
	StageInit Stage = iota
	StageWrite
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageWrite:
		return "write"
	default:
		return "finalize"
	}
}

// StageError wraps a failure with the stage it happened in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e.DiskFull() {
		return fmt.Sprintf("export %s failed: disk full: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("export %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDiskFull) match ENOSPC failures
func (e *StageError) Is(target error) bool {
	return target == ErrDiskFull && e.DiskFull()
}

// DiskFull reports whether the underlying failure was ENOSPC
func (e *StageError) DiskFull() bool {
	return errors.Is(e.Err, syscall.ENOSPC)
}

func stageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
