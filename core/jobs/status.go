package jobs

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// State is the coarse state of a process.
type State int

const (
	Running State = iota
	Exited
	Stopped
)

// Status is the last known status of a job member.
type Status struct {
	State State

	// Code is the exit status for Exited processes, 128+signal if the process
	// was killed.
	Code int

	// Signal is the signal that killed or stopped the process, if any.
	Signal syscall.Signal
}

// ExitedWith returns an Exited status with the given code.
func ExitedWith(code int) Status {
	return Status{State: Exited, Code: code}
}

// StatusOf converts a wait status into a Status.
func StatusOf(ws unix.WaitStatus) Status {
	switch {
	case ws.Exited():
		return ExitedWith(ws.ExitStatus())
	case ws.Signaled():
		return Status{State: Exited, Code: 128 + int(ws.Signal()), Signal: ws.Signal()}
	case ws.Stopped():
		return Status{State: Stopped, Code: 128 + int(ws.StopSignal()), Signal: ws.StopSignal()}
	default:
		return Status{State: Running}
	}
}

func (s Status) String() string {
	switch {
	case s.State == Running:
		return "running"
	case s.State == Stopped:
		return "suspended"
	case s.Signal != 0:
		return fmt.Sprintf("killed (%s)", signalName(s.Signal))
	case s.Code == 0:
		return "done"
	default:
		return fmt.Sprintf("exit %d", s.Code)
	}
}

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}
