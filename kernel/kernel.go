package kernel

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/log"
	"github.com/evanphx/sysgate/memory"
)

type Kernel struct {
	Params Params
	Clock  *Clock

	mu        sync.RWMutex
	policy    Policy
	processes *ProcessTable
	init      *Process
}

// NewKernel creates a kernel. A nil params uses DefaultParams.
func NewKernel(params *Params) (*Kernel, error) {
	p := DefaultParams()
	if params != nil {
		p = *params
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	k := &Kernel{
		Params:    p,
		Clock:     NewClock(),
		policy:    NewPasswordPolicy(p.Password),
		processes: NewProcessTable(p.MaxProcs),
	}

	return k, nil
}

// SetPolicy replaces the policy that gates setuid.
func (k *Kernel) SetPolicy(policy Policy) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.policy = policy
}

func (k *Kernel) currentPolicy() Policy {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.policy
}

func (k *Kernel) Processes() *ProcessTable {
	return k.processes
}

// Lookup finds a live or exited-but-unreaped process.
func (k *Kernel) Lookup(pid int) (*Process, bool) {
	return k.processes.Lookup(pid)
}

// InitProcess creates the first process: uid 0, an empty environment and a
// one page heap.
func (k *Kernel) InitProcess() (*Process, error) {
	if k.init != nil {
		return nil, errors.New("init already started")
	}

	proc := &Process{
		Kernel: k,
		Mem:    memory.NewVirtualMemory(k.Params.MemoryLimit),
		state:  Runnable,
		env:    NewEnvTable(k.Params.MaxEnv),
	}

	if _, err := proc.Mem.Grow(memory.PageSize); err != nil {
		return nil, err
	}

	if _, err := k.processes.AssignPid(proc, nil); err != nil {
		return nil, err
	}

	k.init = proc

	log.L.Debug("init-process", "pid", proc.Pid)

	return proc, nil
}
