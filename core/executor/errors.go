package executor

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorClass groups stage failures by how they're reported.
type ErrorClass int

const (
	Other ErrorClass = iota
	NotFound
	PermissionDenied
	BadFormat
	IsDirectory
	BadArgument
	Redirection
)

// Status is the exit status a stage failing with this class reports.
func (c ErrorClass) Status() int {
	switch c {
	case NotFound:
		return 127
	case PermissionDenied, BadFormat, IsDirectory:
		return 126
	default:
		return 1
	}
}

// StageError is a failure to start one stage of a pipeline. It never affects
// the other stages.
type StageError struct {
	// Name is argv[0], or the path for redirection failures.
	Name  string
	Class ErrorClass
	Err   error
}

func (e *StageError) Error() string {
	switch e.Class {
	case NotFound:
		return fmt.Sprintf("%s: command not found", e.Name)
	case PermissionDenied:
		return fmt.Sprintf("%s: permission denied", e.Name)
	case BadFormat:
		return fmt.Sprintf("%s: exec format error", e.Name)
	case IsDirectory:
		return fmt.Sprintf("%s: is a directory", e.Name)
	case BadArgument:
		return fmt.Sprintf("%s: argument contains a NUL byte", e.Name)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// classify wraps a lookup or exec error.
func classify(name string, err error) *StageError {
	class := Other
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		class = NotFound
	case errors.Is(err, fs.ErrPermission):
		class = PermissionDenied
	case errors.Is(err, syscall.ENOEXEC):
		class = BadFormat
	case errors.Is(err, syscall.EISDIR):
		class = IsDirectory
	}
	return &StageError{Name: name, Class: class, Err: err}
}

// exhausted reports whether err means no more processes or descriptors can be
// created right now.
func exhausted(err error) bool {
	for _, errno := range []syscall.Errno{syscall.EAGAIN, syscall.ENOMEM, syscall.EMFILE, syscall.ENFILE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
