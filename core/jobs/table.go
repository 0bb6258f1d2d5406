// Package jobs tracks the process groups of background and suspended
// pipelines.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// WaitFunc has the signature of wait4(2) without the rusage argument.
type WaitFunc func(pid int, options int) (int, unix.WaitStatus, error)

// Wait4 calls unix.Wait4, retrying on EINTR.
func Wait4(pid int, options int) (int, unix.WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return wpid, ws, err
	}
}

// PollOptions are the wait options used to check a member without blocking.
const PollOptions = unix.WNOHANG | unix.WUNTRACED | unix.WCONTINUED

// Table is the registry of jobs, indexed by process group.
//
// A Table is owned by a single shell and isn't safe for concurrent use.
type Table struct {
	// Wait is used to check members; it defaults to Wait4.
	Wait WaitFunc

	out  io.Writer
	log  *zap.Logger
	jobs *orderedmap.OrderedMap[int, *Job]
}

// NewTable creates an empty table that writes notifications to out.
func NewTable(out io.Writer, log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{
		Wait: Wait4,
		out:  out,
		log:  log,
		jobs: orderedmap.NewOrderedMap[int, *Job](),
	}
}

// Insert adds pid to the job for pgid, creating the job with the smallest
// unused id if it doesn't exist.
func (t *Table) Insert(pgid, pid int) *Job {
	job, ok := t.jobs.Get(pgid)
	if !ok {
		job = newJob(t.nextID(), pgid)
		t.jobs.Set(pgid, job)
		t.log.Debug("job created", zap.Int("job", job.ID), zap.Int("pgid", pgid))
	}
	job.add(pid)
	return job
}

func (t *Table) nextID() int {
	var ids []int
	for el := t.jobs.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.ID)
	}
	sort.Ints(ids)

	for i, id := range ids {
		if id != i+1 {
			return i + 1
		}
	}
	return len(ids) + 1
}

// SetCommand records the command text shown by listings.
func (t *Table) SetCommand(pgid int, command string) {
	if job, ok := t.jobs.Get(pgid); ok {
		job.Command = command
	}
}

// SetStatus records st for a member of the job for pgid. Exited members leave
// the job; a job with no members left is removed without a report.
func (t *Table) SetStatus(pgid, pid int, st Status) {
	job, ok := t.jobs.Get(pgid)
	if !ok {
		return
	}
	job.update(pid, st)
	if job.Done() {
		t.jobs.Delete(pgid)
	}
}

// SetFinalStatus records the status of a pipeline whose last stage ran
// without a process, such as a builtin.
func (t *Table) SetFinalStatus(pgid int, st Status) {
	if job, ok := t.jobs.Get(pgid); ok {
		job.final = &st
	}
}

// Continue marks every stopped member of the job as running.
func (t *Table) Continue(pgid int) {
	job, ok := t.jobs.Get(pgid)
	if !ok {
		return
	}
	for _, pid := range job.Pids() {
		if st, _ := job.Status(pid); st.State == Stopped {
			job.update(pid, Status{State: Running})
		}
	}
}

// Get returns the job for pgid.
func (t *Table) Get(pgid int) (*Job, bool) {
	return t.jobs.Get(pgid)
}

// ByID returns the job with the given id.
func (t *Table) ByID(id int) (*Job, bool) {
	for el := t.jobs.Front(); el != nil; el = el.Next() {
		if el.Value.ID == id {
			return el.Value, true
		}
	}
	return nil, false
}

// Current returns the most recently added job.
func (t *Table) Current() (*Job, bool) {
	if el := t.jobs.Back(); el != nil {
		return el.Value, true
	}
	return nil, false
}

// Remove drops the job for pgid.
func (t *Table) Remove(pgid int) {
	t.jobs.Delete(pgid)
}

// Jobs returns all jobs ordered by id.
func (t *Table) Jobs() []*Job {
	var out []*Job
	for el := t.jobs.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of jobs.
func (t *Table) Len() int {
	return t.jobs.Len()
}

// Announce prints the id and member pids of a newly started job.
func (t *Table) Announce(pgid int) {
	job, ok := t.jobs.Get(pgid)
	if !ok {
		return
	}
	fmt.Fprintf(t.out, "[%d] %s\n", job.ID, joinPids(job.Pids()))
}

// Suspended prints the stop notification for a job.
func (t *Table) Suspended(pgid int) {
	if job, ok := t.jobs.Get(pgid); ok {
		t.notify(job, "suspended", job.Pids())
	}
}

// Poll checks every member without blocking, records status changes and
// reports them. Jobs whose members have all exited are reported and removed.
// Calling Poll when nothing changed does nothing.
func (t *Table) Poll() {
	var finished []int

	for el := t.jobs.Front(); el != nil; el = el.Next() {
		job := el.Value

		var stopped, continued []int
		for _, pid := range job.Pids() {
			st, changed := t.check(pid)
			if !changed || !job.update(pid, st) {
				continue
			}
			t.log.Debug("job member changed",
				zap.Int("job", job.ID),
				zap.Int("pid", pid),
				zap.Stringer("status", st))

			switch st.State {
			case Stopped:
				stopped = append(stopped, pid)
			case Running:
				continued = append(continued, pid)
			}
		}

		switch {
		case job.Done():
			for _, line := range job.summary() {
				fmt.Fprintf(t.out, "[%d]    %s\n", job.ID, line)
			}
			finished = append(finished, job.Pgid)
		case len(stopped) > 0:
			t.notify(job, "suspended", stopped)
		case len(continued) > 0:
			t.notify(job, "continued", continued)
		}
	}

	for _, pgid := range finished {
		t.jobs.Delete(pgid)
	}
}

// check polls a single pid, reporting whether it had anything to report.
func (t *Table) check(pid int) (Status, bool) {
	wpid, ws, err := t.Wait(pid, PollOptions)
	switch {
	case errors.Is(err, unix.ECHILD):
		// Reaped elsewhere, nothing more can be learned about it.
		t.log.Warn("member already reaped, reporting it done", zap.Int("pid", pid), zap.Error(err))
		return ExitedWith(0), true
	case err != nil:
		t.log.Warn("wait failed", zap.Int("pid", pid), zap.Error(err))
		return Status{}, false
	case wpid == 0:
		return Status{}, false
	}
	return StatusOf(ws), true
}

func (t *Table) notify(job *Job, what string, pids []int) {
	fmt.Fprintf(t.out, "[%d]  + %s  %s\n", job.ID, what, joinPids(pids))
}

func joinPids(pids []int) string {
	out := make([]string, len(pids))
	for i, pid := range pids {
		out[i] = strconv.Itoa(pid)
	}
	return strings.Join(out, " ")
}
