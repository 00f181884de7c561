package kernel

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/log"
	"github.com/evanphx/sysgate/pkg/waiter"
)

const (
	ChildExited waiter.EventType = 1 << iota
	ProcessKilled
)

// ProcessTable owns pid allocation and the parent links between processes.
type ProcessTable struct {
	mu        sync.RWMutex
	max       int
	highWater int
	processes map[int]*Process

	events waiter.Waiter
}

func NewProcessTable(max int) *ProcessTable {
	return &ProcessTable{
		max:       max,
		processes: make(map[int]*Process),
	}
}

// AssignPid gives proc the lowest free pid and links it to parent.
func (pt *ProcessTable) AssignPid(proc, parent *Process) (int, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if len(pt.processes) >= pt.max {
		return 0, errors.Wrapf(ErrProcLimit, "%d processes", len(pt.processes))
	}

	proc.parent = parent

	for i := 1; i <= pt.highWater; i++ {
		if _, ok := pt.processes[i]; !ok {
			proc.Pid = i
			pt.processes[i] = proc
			return i, nil
		}
	}

	pt.highWater++
	pid := pt.highWater
	pt.processes[pid] = proc
	proc.Pid = pid

	return pid, nil
}

func (pt *ProcessTable) Lookup(pid int) (*Process, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	p, ok := pt.processes[pid]
	return p, ok
}

func (pt *ProcessTable) Remove(proc *Process) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	delete(pt.processes, proc.Pid)
}

func (pt *ProcessTable) Len() int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	return len(pt.processes)
}

// Each calls fn on every process in pid order.
func (pt *ProcessTable) Each(fn func(*Process)) {
	pt.mu.RLock()
	procs := make([]*Process, 0, len(pt.processes))
	for _, p := range pt.processes {
		procs = append(procs, p)
	}
	pt.mu.RUnlock()

	sort.Slice(procs, func(i, j int) bool { return procs[i].Pid < procs[j].Pid })

	for _, p := range procs {
		fn(p)
	}
}

// reparent hands p's children to init.
func (pt *ProcessTable) reparent(p, initProc *Process) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	for _, child := range pt.processes {
		if child.parent == p {
			child.parent = initProc
		}
	}
}

// findZombieChild returns an exited child of parent, if any, and whether
// parent has any children at all.
func (pt *ProcessTable) findZombieChild(parent *Process) (*Process, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	log.L.Trace("process-reap-once", "pid", parent.Pid, "count", len(pt.processes))

	var (
		zombie  *Process
		haveKid bool
	)

	for _, p := range pt.processes {
		if p.parent != parent {
			continue
		}

		haveKid = true

		if p.State() == Zombie && (zombie == nil || p.Pid < zombie.Pid) {
			zombie = p
		}
	}

	return zombie, haveKid
}
