package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
)

func sysExit(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	code := argInt(t, 0)

	if err := t.Exit(code); err != nil {
		l.Error("error exiting process", "error", err, "code", code)
		return abi.Fail
	}

	return 0 // not reached by the caller
}

func sysGetpid(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	return int64(t.Pid)
}

func sysFork(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	child, err := t.Fork()
	if err != nil {
		return fail(l, "error forking process", err)
	}

	return int64(child.Pid)
}

func sysWait(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	addr := argAddr(t, 0)

	pid, err := t.Wait(ctx, addr)
	if err != nil {
		return fail(l, "error waiting for child", err)
	}

	return int64(pid)
}

func sysSbrk(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	n := argInt(t, 0)

	addr, err := t.GrowProc(int64(n))
	if err != nil {
		return fail(l, "error growing process", err)
	}

	return int64(addr)
}

func sysKill(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	pid := argInt(t, 0)

	if err := t.Kernel.Kill(pid); err != nil {
		return fail(l, "error killing process", err)
	}

	return 0
}

func init() {
	register(abi.SysFork, "fork", sysFork)
	register(abi.SysExit, "exit", sysExit)
	register(abi.SysWait, "wait", sysWait)
	register(abi.SysKill, "kill", sysKill)
	register(abi.SysGetpid, "getpid", sysGetpid)
	register(abi.SysSbrk, "sbrk", sysSbrk)
}
