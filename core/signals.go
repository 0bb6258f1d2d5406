package core

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// signalTrap catches the signals an interactive shell must survive. They are
// caught rather than ignored so programs the shell starts get the default
// dispositions back on exec.
type signalTrap struct {
	ch chan os.Signal
}

func trapSignals() *signalTrap {
	t := &signalTrap{ch: make(chan os.Signal, 32)}
	signal.Notify(t.ch, unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTTIN, unix.SIGCHLD)
	return t
}

// childChanged drains the pending signals and reports whether a SIGCHLD was
// among them.
func (t *signalTrap) childChanged() bool {
	changed := false
	for {
		select {
		case sig := <-t.ch:
			if sig == unix.SIGCHLD {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (t *signalTrap) Close() error {
	signal.Stop(t.ch)
	return nil
}
