package kernel

import (
	"context"

	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/log"
)

// Fork duplicates p. The child gets a copy of the memory, registers,
// identity and environment; its a0 is zeroed so fork returns 0 in the child.
func (p *Process) Fork() (*Process, error) {
	k := p.Kernel

	p.mu.Lock()
	child := &Process{
		Kernel: k,
		state:  Runnable,
		uid:    p.uid,
		env:    p.env.Clone(),
	}
	p.mu.Unlock()

	child.Mem = p.Mem.Fork()
	child.Trapframe = p.Trapframe
	child.Trapframe.SetResult(0)

	if _, err := k.processes.AssignPid(child, p); err != nil {
		return nil, err
	}

	log.L.Trace("process-fork", "parent", p.Pid, "child", child.Pid)

	return child, nil
}

// Exit turns p into a zombie until its parent waits for it. Children are
// handed to init.
func (p *Process) Exit(code int) error {
	k := p.Kernel

	if p == k.init {
		return ErrInitExit
	}

	log.L.Trace("process-exit", "pid", p.Pid, "code", code)

	k.processes.reparent(p, k.init)

	p.mu.Lock()
	p.exitStatus.Code = code
	p.state = Zombie
	p.mu.Unlock()

	k.processes.events.Notify(ChildExited)

	return nil
}

// Wait reaps an exited child, copying its status to addr unless addr is 0.
// It blocks while p has children that are still running.
func (p *Process) Wait(ctx context.Context, addr uint64) (int, error) {
	k := p.Kernel

	c := make(chan struct{}, 1)
	ev := k.processes.events.RegisterChannel(ChildExited|ProcessKilled, c)
	defer k.processes.events.Unregister(ev)

	for {
		child, haveKids := k.processes.findZombieChild(p)

		if child != nil {
			child.mu.Lock()
			status := child.exitStatus
			child.mu.Unlock()

			if addr != 0 {
				if err := p.CopyOut(addr, status.Status()); err != nil {
					return 0, err
				}
			}

			k.processes.Remove(child)

			log.L.Trace("wait-found-child", "pid", child.Pid, "status", status.Code)
			return child.Pid, nil
		}

		if !haveKids {
			return 0, ErrNoChildren
		}

		if p.Killed() {
			return 0, ErrKilled
		}

		log.L.Trace("process-waiting-reap", "pid", p.Pid)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-c:
			// ok, try the loop again
		}
	}
}

// GrowProc changes p's memory size by delta bytes and returns the old size.
func (p *Process) GrowProc(delta int64) (uint64, error) {
	return p.Mem.Grow(delta)
}

// Kill marks pid for termination. A sleeping or waiting target is woken so
// it notices promptly; it exits the next time it leaves the kernel. init
// cannot be killed since it reaps every orphan.
func (k *Kernel) Kill(pid int) error {
	p, ok := k.processes.Lookup(pid)
	if !ok {
		return errors.Wrapf(ErrNoProcess, "pid %d", pid)
	}

	if p == k.init {
		return ErrKillInit
	}

	p.setKilled()

	k.Clock.Wake()
	k.processes.events.Notify(ProcessKilled)

	return nil
}
