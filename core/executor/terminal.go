package executor

import (
	"errors"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal arbitrates foreground control of the shell's controlling terminal.
type Terminal struct {
	fd    int
	pgid  int
	state *term.State
	log   *zap.Logger
}

// OpenTerminal sets up job control on f. It waits until the shell is in the
// foreground, moves the shell into its own process group and takes the
// terminal. It returns nil if f isn't a terminal.
//
// It must be called before SIGTTIN is caught, otherwise the wait for the
// foreground never stops the shell.
func OpenTerminal(f *os.File, log *zap.Logger) (*Terminal, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	for {
		fg, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
		if err != nil {
			return nil, err
		}
		if fg == unix.Getpgrp() {
			break
		}
		log.Debug("waiting for foreground", zap.Int("fg", fg))
		_ = unix.Kill(-unix.Getpgrp(), unix.SIGTTIN)
	}

	pid := os.Getpid()
	// A session leader can't change its group and already owns it.
	if err := unix.Setpgid(pid, pid); err != nil && !errors.Is(err, unix.EPERM) {
		return nil, err
	}

	t := &Terminal{fd: fd, pgid: unix.Getpgrp(), log: log}
	if err := t.Give(t.pgid); err != nil {
		return nil, err
	}
	if state, err := term.GetState(fd); err == nil {
		t.state = state
	}
	return t, nil
}

// Fd returns the terminal's descriptor.
func (t *Terminal) Fd() int {
	return t.fd
}

// Pgid returns the shell's own process group.
func (t *Terminal) Pgid() int {
	return t.pgid
}

// Give makes pgid the terminal's foreground process group.
func (t *Terminal) Give(pgid int) error {
	// The shell isn't in the foreground while a job has the terminal, so the
	// handoff would otherwise stop it with SIGTTOU.
	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)

	t.log.Debug("terminal handoff", zap.Int("pgid", pgid))
	return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}

// Reclaim takes the terminal back for the shell and restores the terminal
// modes saved when it was opened.
func (t *Terminal) Reclaim() error {
	if err := t.Give(t.pgid); err != nil {
		return err
	}
	if t.state != nil {
		return term.Restore(t.fd, t.state)
	}
	return nil
}
