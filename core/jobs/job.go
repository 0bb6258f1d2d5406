package jobs

import (
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

// Job is a pipeline's process group tracked by the shell.
type Job struct {
	ID      int
	Pgid    int
	Command string

	// members holds the pids that haven't exited, in spawn order.
	members *orderedmap.OrderedMap[int, struct{}]
	// statuses holds the last status of every pid ever added.
	statuses *orderedmap.OrderedMap[int, Status]
	// final is the pipeline's status when its last stage had no process.
	final *Status
}

func newJob(id, pgid int) *Job {
	return &Job{
		ID:       id,
		Pgid:     pgid,
		members:  orderedmap.NewOrderedMap[int, struct{}](),
		statuses: orderedmap.NewOrderedMap[int, Status](),
	}
}

// Pids returns the members that haven't exited.
func (j *Job) Pids() []int {
	var out []int
	for el := j.members.Front(); el != nil; el = el.Next() {
		out = append(out, el.Key)
	}
	return out
}

// Status returns the last known status of pid.
func (j *Job) Status(pid int) (Status, bool) {
	return j.statuses.Get(pid)
}

// Stopped reports whether any live member is stopped.
func (j *Job) Stopped() bool {
	for el := j.members.Front(); el != nil; el = el.Next() {
		if st, _ := j.statuses.Get(el.Key); st.State == Stopped {
			return true
		}
	}
	return false
}

// Done reports whether every member has exited.
func (j *Job) Done() bool {
	return j.members.Len() == 0
}

// LastStatus returns the status of the pipeline once the job is done: the
// status of the most recently added pid, unless the last stage never was a
// process.
func (j *Job) LastStatus() Status {
	if j.final != nil {
		return *j.final
	}
	if el := j.statuses.Back(); el != nil {
		return el.Value
	}
	return Status{}
}

// State summarizes the job for listings.
func (j *Job) State() string {
	switch {
	case j.Done():
		return j.LastStatus().String()
	case j.Stopped():
		return "suspended"
	default:
		return "running"
	}
}

func (j *Job) add(pid int) {
	j.members.Set(pid, struct{}{})
	j.statuses.Set(pid, Status{State: Running})
}

// update records st for pid and reports whether it changed.
func (j *Job) update(pid int, st Status) bool {
	prev, ok := j.statuses.Get(pid)
	if !ok {
		return false
	}
	if st.State == Exited {
		j.members.Delete(pid)
	}
	j.statuses.Set(pid, st)
	return prev != st
}

// summary groups consecutive pids sharing a final status into report lines.
func (j *Job) summary() []string {
	var (
		lines []string
		pids  []string
		cur   Status
	)
	flush := func() {
		if len(pids) > 0 {
			lines = append(lines, cur.String()+"  "+strings.Join(pids, " "))
		}
		pids = nil
	}
	for el := j.statuses.Front(); el != nil; el = el.Next() {
		if len(pids) > 0 && el.Value != cur {
			flush()
		}
		cur = el.Value
		pids = append(pids, strconv.Itoa(el.Key))
	}
	flush()
	return lines
}
