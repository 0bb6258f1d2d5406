// Package executor runs pipelines built by the shell package: it wires pipes
// and redirections, starts one process per stage in a shared process group,
// and waits for foreground pipelines or hands background ones to the job
// table.
package executor

import (
	"io"
	"os"
	"strings"

	"github.com/josephlewis42/mumsh/core/jobs"
	"github.com/josephlewis42/mumsh/core/logger"
	"github.com/josephlewis42/mumsh/core/shell"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Stdio is the standard streams given to a builtin.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Builtins runs commands inside the shell process. RunBuiltin reports
// handled=false for stages it doesn't recognize.
type Builtins interface {
	RunBuiltin(stage *shell.Stage, stdio Stdio) (status int, handled bool)
}

// Environment is the shell's variable store.
type Environment interface {
	Environ() []string
	Getenv(key string) string
}

// Executor starts pipelines.
type Executor struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	Jobs     *jobs.Table
	Builtins Builtins
	Env      Environment

	// Terminal enables job control when set.
	Terminal *Terminal

	// Suggest optionally proposes a replacement for an unknown command.
	Suggest func(name string) string

	Printer *logger.Printer
	Log     *zap.Logger
}

// spawned is a started stage.
type spawned struct {
	stage int
	pid   int
}

// Execute runs p and returns the exit status of its last stage.
//
// Foreground pipelines are waited for; if they are stopped they move to the
// job table and the status is 128 plus the stop signal. Background pipelines
// are added to the job table and announced, and report 0. A pipeline cut
// short because no more processes or descriptors were available reports 1
// once the stages that did start have been dealt with.
func (e *Executor) Execute(p *shell.Pipeline) int {
	n := len(p.Stages)
	if n == 0 {
		return 0
	}

	for _, stage := range p.Stages {
		if err := checkArgs(stage); err != nil {
			e.Printer.Errorf("%v", err)
			return err.Class.Status()
		}
	}

	pipes, err := makePipes(n - 1)
	if err != nil {
		e.Printer.Errorf("pipe: %v", err)
		return 1
	}

	var (
		children []spawned
		pgid     int
		aborted  = -1
		statuses = make([]int, n)
	)
	for i, stage := range p.Stages {
		files := []*os.File{e.Stdin, e.Stdout, e.Stderr}
		if i > 0 {
			files[0] = pipes[i-1].r
		}
		if i < n-1 {
			files[1] = pipes[i].w
		}

		pid, status, abort := e.runStage(stage, files, pgid, !p.Background)
		statuses[i] = status
		if pid > 0 {
			if pgid == 0 {
				pgid = pid
			}
			children = append(children, spawned{stage: i, pid: pid})
		}
		if abort {
			aborted = i
			break
		}
	}
	closePipes(pipes)

	if aborted >= 0 {
		// Stages that were never reached report the failure too.
		for i := aborted; i < n; i++ {
			statuses[i] = 1
		}
	}
	if len(children) == 0 {
		return statuses[n-1]
	}

	if p.Background {
		for _, c := range children {
			e.Jobs.Insert(pgid, c.pid)
		}
		e.Jobs.SetCommand(pgid, p.String())
		e.recordFinal(pgid, children, statuses)
		e.Jobs.Announce(pgid)
		if aborted >= 0 {
			return 1
		}
		return 0
	}

	if e.Terminal != nil {
		if err := e.Terminal.Give(pgid); err != nil {
			e.Log.Warn("terminal handoff failed", zap.Int("pgid", pgid), zap.Error(err))
		}
	}

	pids := make([]int, len(children))
	for i, c := range children {
		pids[i] = c.pid
	}
	results := e.wait(pids)
	e.reclaim()

	if stopped, sig := anyStopped(results); stopped {
		// Every member joins before any status is set so exited ones can't
		// empty the job.
		for _, pid := range pids {
			e.Jobs.Insert(pgid, pid)
		}
		for _, pid := range pids {
			e.Jobs.SetStatus(pgid, pid, results[pid])
		}
		e.Jobs.SetCommand(pgid, p.String())
		e.recordFinal(pgid, children, statuses)
		e.Jobs.Suspended(pgid)
		return 128 + sig
	}

	for _, c := range children {
		statuses[c.stage] = results[c.pid].Code
	}
	return statuses[n-1]
}

// recordFinal keeps the last stage's status on the job when that stage didn't
// leave a process behind.
func (e *Executor) recordFinal(pgid int, children []spawned, statuses []int) {
	last := len(statuses) - 1
	if children[len(children)-1].stage != last {
		e.Jobs.SetFinalStatus(pgid, jobs.ExitedWith(statuses[last]))
	}
}

// ResumeForeground continues a job with the terminal and waits for it the
// same way Execute waits for a foreground pipeline.
func (e *Executor) ResumeForeground(job *jobs.Job) int {
	if e.Terminal != nil {
		if err := e.Terminal.Give(job.Pgid); err != nil {
			e.Log.Warn("terminal handoff failed", zap.Int("pgid", job.Pgid), zap.Error(err))
		}
	}
	if err := e.Continue(job); err != nil {
		e.reclaim()
		e.Printer.Errorf("fg: %v", err)
		return 1
	}

	pids := job.Pids()
	results := e.wait(pids)
	e.reclaim()

	for _, pid := range pids {
		e.Jobs.SetStatus(job.Pgid, pid, results[pid])
	}
	if stopped, sig := anyStopped(results); stopped {
		e.Jobs.Suspended(job.Pgid)
		return 128 + sig
	}
	return job.LastStatus().Code
}

// Continue sends SIGCONT to a job's process group and marks it running.
func (e *Executor) Continue(job *jobs.Job) error {
	e.Log.Debug("continue job", zap.Int("job", job.ID), zap.Int("pgid", job.Pgid))
	if e.Terminal != nil {
		if err := unix.Kill(-job.Pgid, unix.SIGCONT); err != nil {
			return err
		}
	} else {
		// Without job control the members share the shell's group.
		for _, pid := range job.Pids() {
			if err := unix.Kill(pid, unix.SIGCONT); err != nil && err != unix.ESRCH {
				return err
			}
		}
	}
	e.Jobs.Continue(job.Pgid)
	return nil
}

func (e *Executor) reclaim() {
	if e.Terminal == nil {
		return
	}
	if err := e.Terminal.Reclaim(); err != nil {
		e.Log.Warn("terminal reclaim failed", zap.Error(err))
	}
}

// wait blocks until every pid has exited or stopped.
func (e *Executor) wait(pids []int) map[int]jobs.Status {
	results := make(map[int]jobs.Status, len(pids))
	for _, pid := range pids {
		_, ws, err := jobs.Wait4(pid, unix.WUNTRACED)
		st := jobs.StatusOf(ws)
		if err != nil {
			// Already reaped; nothing more can be learned about it.
			e.Log.Warn("wait failed", zap.Int("pid", pid), zap.Error(err))
			st = jobs.ExitedWith(0)
		}
		e.Log.Debug("waited", zap.Int("pid", pid), zap.Stringer("status", st))
		results[pid] = st
	}
	return results
}

func anyStopped(results map[int]jobs.Status) (bool, int) {
	for _, st := range results {
		if st.State == jobs.Stopped {
			return true, int(st.Signal)
		}
	}
	return false, 0
}

func checkArgs(stage *shell.Stage) *StageError {
	for _, arg := range stage.Argv() {
		if strings.IndexByte(arg, 0) >= 0 {
			return &StageError{Name: stage.Name(), Class: BadArgument}
		}
	}
	for _, r := range stage.Redirections {
		if strings.IndexByte(r.TargetPath, 0) >= 0 {
			return &StageError{Name: r.TargetPath, Class: BadArgument}
		}
	}
	return nil
}

type pipe struct {
	r, w *os.File
}

// makePipes creates every pipe of the pipeline up front.
func makePipes(count int) ([]pipe, error) {
	pipes := make([]pipe, 0, count)
	for i := 0; i < count; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			closePipes(pipes)
			return nil, err
		}
		pipes = append(pipes, pipe{r: r, w: w})
	}
	return pipes, nil
}

func closePipes(pipes []pipe) {
	for _, p := range pipes {
		p.r.Close()
		p.w.Close()
	}
}
