package executor

import (
	"errors"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/josephlewis42/mumsh/core/shell"
	"go.uber.org/zap"
)

// runStage starts a single stage with the given descriptor table, indexed by
// child descriptor number. Builtins run in-process. A pgid of 0 makes the new
// process lead its own group.
//
// It returns the pid of the started process (0 if none), the stage's status
// when no process was started, and whether the rest of the pipeline must be
// abandoned.
func (e *Executor) runStage(stage *shell.Stage, files []*os.File, pgid int, foreground bool) (pid, status int, abort bool) {
	files, opened, redirErr := redirect(files, stage.Redirections)
	defer closeFiles(opened)
	if redirErr != nil {
		e.Printer.Errorf("%v", redirErr)
		return 0, redirErr.Class.Status(), false
	}

	if stage.Input != nil {
		e.Log.Debug("input redirection not connected", zap.Stringer("input", stage.Input))
	}

	argv := stage.Argv()
	if len(argv) == 0 {
		// Only redirections: the files were created, nothing runs.
		return 0, 0, false
	}

	if e.Builtins != nil {
		if status, ok := e.Builtins.RunBuiltin(stage, stdioOf(files)); ok {
			e.Log.Debug("builtin", zap.Strings("argv", argv), zap.Int("status", status))
			return 0, status, false
		}
	}

	path, err := LookPath(e.Env.Getenv("PATH"), argv[0])
	if err != nil {
		return 0, e.stageFailed(classify(argv[0], err)), false
	}

	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Env:   e.Env.Environ(),
		Files: files,
		Sys:   e.sysProcAttr(pgid, foreground),
	})
	if err != nil {
		if exhausted(err) {
			e.Printer.Errorf("%s: %v", argv[0], err)
			return 0, 1, true
		}
		return 0, e.stageFailed(classify(argv[0], err)), false
	}
	pid = proc.Pid
	// Children are reaped with wait4 by pid, not through os.Process.
	_ = proc.Release()

	if pgid == 0 {
		pgid = pid
	}
	e.Log.Debug("spawned",
		zap.Int("pid", pid),
		zap.Int("pgid", pgid),
		zap.Strings("argv", argv),
		zap.Bool("foreground", foreground))
	return pid, 0, false
}

func (e *Executor) stageFailed(err *StageError) int {
	msg := err.Error()
	if err.Class == NotFound && e.Suggest != nil {
		if suggestion := e.Suggest(err.Name); suggestion != "" {
			msg += ", did you mean " + suggestion + "?"
		}
	}
	e.Printer.Errorf("%s", msg)
	return err.Class.Status()
}

// sysProcAttr places the child in the pipeline's process group. Only with job
// control does the pipeline get its own group; the group leader of a
// foreground pipeline takes the terminal before it execs.
func (e *Executor) sysProcAttr(pgid int, foreground bool) *syscall.SysProcAttr {
	if e.Terminal == nil {
		return nil
	}
	return &syscall.SysProcAttr{
		Setpgid:    true,
		Pgid:       pgid,
		Foreground: foreground && pgid == 0,
		Ctty:       e.Terminal.Fd(),
	}
}

// redirect applies redirections in order to a copy of files. Files it opens
// are returned so the caller can close its copies once the child started.
func redirect(files []*os.File, redirs []shell.Redirection) ([]*os.File, []*os.File, *StageError) {
	files = append([]*os.File(nil), files...)
	var opened []*os.File

	for _, r := range redirs {
		for len(files) <= r.SourceFD {
			files = append(files, nil)
		}

		switch r.Kind {
		case shell.DupFD:
			if r.TargetFD >= len(files) || files[r.TargetFD] == nil {
				return files, opened, &StageError{
					Name:  r.String(),
					Class: Redirection,
					Err:   syscall.EBADF,
				}
			}
			files[r.SourceFD] = files[r.TargetFD]
		default:
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if r.Kind == shell.Append {
				flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			}
			f, err := os.OpenFile(r.TargetPath, flags, 0666)
			if err != nil {
				var pathErr *os.PathError
				if errors.As(err, &pathErr) {
					err = pathErr.Err
				}
				return files, opened, &StageError{Name: r.TargetPath, Class: Redirection, Err: err}
			}
			opened = append(opened, f)
			files[r.SourceFD] = f
		}
	}

	return files, opened, nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// stdioOf maps a descriptor table to builtin streams; closed descriptors read
// nothing and discard writes.
func stdioOf(files []*os.File) Stdio {
	stdio := Stdio{In: strings.NewReader(""), Out: io.Discard, Err: io.Discard}
	if len(files) > 0 && files[0] != nil {
		stdio.In = files[0]
	}
	if len(files) > 1 && files[1] != nil {
		stdio.Out = files[1]
	}
	if len(files) > 2 && files[2] != nil {
		stdio.Err = files[2]
	}
	return stdio
}
