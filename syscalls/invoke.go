package syscalls

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/log"
)

// Invoker dispatches a trapped syscall to its handler and delivers the
// result back into the caller's registers.
type Invoker struct {
	Kernel *kernel.Kernel

	tracer *tracer
}

func NewInvoker(k *kernel.Kernel) (*Invoker, error) {
	tr, err := newTracer(k.Params.Trace, k.Params.TraceFilter)
	if err != nil {
		return nil, err
	}

	return &Invoker{
		Kernel: k,
		tracer: tr,
	}, nil
}

// InvokeSyscall runs the syscall whose number is in the task's a7. The
// result is written to a0 and returned. A killed task is terminated on its
// way out of the kernel, and an exiting task gets no result at all.
func (i *Invoker) InvokeSyscall(ctx context.Context, t *kernel.Task) int64 {
	tf := &t.Trapframe
	num := tf.Syscall()

	l := log.L.With("pid", t.Pid, "name", Name(num))

	if t.State() == kernel.Zombie {
		l.Warn("syscall from exited process", "num", num)
		return abi.Fail
	}

	if t.Killed() {
		i.terminate(l, t)
		return abi.Fail
	}

	var h Handler
	if num >= 0 && num < len(Syscalls) {
		h = Syscalls[num]
	}

	if h == nil {
		l.Warn("unknown sys call", "num", num)
		tf.SetResult(abi.Fail)
		return abi.Fail
	}

	var args [abi.MaxArgs]uint64
	copy(args[:], tf.A[:abi.MaxArgs])

	ret := h(ctx, l, t)

	if i.tracer != nil {
		i.tracer.trace(l, t.Pid, num, args, ret)
	}

	if ret < 0 && l.IsDebug() {
		l.Debug("syscall-failed", "args", spew.Sdump(args))
	}

	if t.State() == kernel.Zombie {
		return ret
	}

	tf.SetResult(ret)

	if t.Killed() {
		i.terminate(l, t)
	}

	return ret
}

func (i *Invoker) terminate(l hclog.Logger, t *kernel.Task) {
	l.Trace("terminating killed process")

	if err := t.Exit(-1); err != nil {
		l.Error("error terminating killed process", "error", err)
	}
}
