package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
)

// sysGetUID returns the uid of the process named by argument 0.
func sysGetUID(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	pid := argInt(t, 0)

	uid, err := t.Kernel.GetUID(pid)
	if err != nil {
		return fail(l, "error getting uid", err)
	}

	return int64(uid)
}

// sysSetUID sets the uid of a process if the offered password is right.
func sysSetUID(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	var (
		pid = argInt(t, 0)
		uid = argInt(t, 1)
		buf [abi.MAXPWD]byte
	)

	secret, err := argStr(t, 2, buf[:])
	if err != nil {
		return fail(l, "error copying password", err)
	}

	if err := t.Kernel.SetUID(pid, uid, []byte(secret)); err != nil {
		return fail(l, "error setting uid", err)
	}

	return 0
}

// sysGetenv copies the value of a key in some process's environment out to
// a MAXENVV byte user buffer. A missing key leaves the buffer alone and
// still returns 0.
func sysGetenv(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	var (
		pid = argInt(t, 0)
		key [abi.MAXENVK]byte
	)

	k, err := argStr(t, 1, key[:])
	if err != nil {
		return fail(l, "error copying key", err)
	}

	dst := argAddr(t, 2)

	val, ok, err := t.Kernel.GetEnv(pid, k)
	if err != nil {
		return fail(l, "error getting env", err)
	}

	if !ok {
		return 0
	}

	var out [abi.MAXENVV]byte
	copy(out[:], val)

	if err := t.Mem.CopyOut(dst, out[:]); err != nil {
		return fail(l, "error copying value out", err)
	}

	return 0
}

// sysSetenv sets a key in some process's environment.
func sysSetenv(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	var (
		pid = argInt(t, 0)
		key [abi.MAXENVK]byte
		val [abi.MAXENVV]byte
	)

	k, err := argStr(t, 1, key[:])
	if err != nil {
		return fail(l, "error copying key", err)
	}

	v, err := argStr(t, 2, val[:])
	if err != nil {
		return fail(l, "error copying value", err)
	}

	if err := t.Kernel.SetEnv(pid, k, v); err != nil {
		return fail(l, "error setting env", err)
	}

	return 0
}

// sysEnv lists environment variables on the console.
func sysEnv(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	if err := t.Kernel.EnvDump(t.Process); err != nil {
		l.Error("error dumping environment", "error", err)
	}

	return 0
}

func init() {
	register(abi.SysGetuid, "getuid", sysGetUID)
	register(abi.SysSetuid, "setuid", sysSetUID)
	register(abi.SysGetenv, "getenv", sysGetenv)
	register(abi.SysSetenv, "setenv", sysSetenv)
	register(abi.SysEnv, "env", sysEnv)
}
