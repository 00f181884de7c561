package boundary

import (
	"context"
	"encoding/binary"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
)

type SyscallInvoker interface {
	InvokeSyscall(context.Context, *kernel.Task) int64
}

const (
	ScratchSize = 4 * memory.PageSize
	ScratchBase = memory.MaxVA - ScratchSize
)

var ErrScratchFull = errors.New("scratch space exhausted")

// User is the user side of the syscall boundary for one process: it stages
// arguments in the process's registers and memory and traps into the
// kernel. String arguments live in a scratch region at the top of the
// address space that is reset on every call.
type User struct {
	L       hclog.Logger
	Invoker SyscallInvoker
	Task    *kernel.Task

	next uint64
}

func NewUser(l hclog.Logger, inv SyscallInvoker, p *kernel.Process) (*User, error) {
	if _, ok := p.Mem.FindRegion(ScratchBase); !ok {
		if _, err := p.Mem.NewRegion(ScratchBase, ScratchSize); err != nil {
			return nil, err
		}
	}

	return &User{
		L:       l,
		Invoker: inv,
		Task:    &kernel.Task{Process: p},
		next:    ScratchBase,
	}, nil
}

func (u *User) Pid() int {
	return u.Task.Pid
}

// reset releases all scratch space. Stubs start from an empty scratch area
// so a stub that failed while staging does not leak its allocations.
func (u *User) reset() {
	u.next = ScratchBase
}

// Alloc reserves n bytes of scratch space until the next call.
func (u *User) Alloc(n int) (uint64, error) {
	if uint64(n) > ScratchBase+ScratchSize-u.next {
		return 0, ErrScratchFull
	}

	addr := u.next
	u.next += uint64(n)

	return addr, nil
}

// Str places s, NUL terminated, in scratch space.
func (u *User) Str(s string) (uint64, error) {
	addr, err := u.Alloc(len(s) + 1)
	if err != nil {
		return 0, err
	}

	if err := u.Task.Mem.CopyOut(addr, append([]byte(s), 0)); err != nil {
		return 0, err
	}

	return addr, nil
}

// Syscall traps with raw register arguments and returns a0.
func (u *User) Syscall(ctx context.Context, num int, args ...uint64) int64 {
	tf := &u.Task.Trapframe

	for i, a := range args {
		tf.A[i] = a
	}

	tf.A[abi.RegSyscall] = uint64(num)

	u.L.Trace("syscall", "pid", u.Task.Pid, "num", num, "args", args)

	ret := u.Invoker.InvokeSyscall(ctx, u.Task)

	u.reset()

	return ret
}

func (u *User) Fork(ctx context.Context) int64 {
	return u.Syscall(ctx, abi.SysFork)
}

func (u *User) Exit(ctx context.Context, code int) {
	u.Syscall(ctx, abi.SysExit, uint64(code))
}

// Wait reaps a child and returns its pid and exit status.
func (u *User) Wait(ctx context.Context) (int64, int32, error) {
	u.reset()

	addr, err := u.Alloc(4)
	if err != nil {
		return 0, 0, err
	}

	var buf [4]byte
	if err := u.Task.Mem.CopyOut(addr, buf[:]); err != nil {
		return 0, 0, err
	}

	pid := u.Syscall(ctx, abi.SysWait, addr)
	if pid < 0 {
		return pid, 0, nil
	}

	if err := u.Task.Mem.CopyIn(buf[:], addr); err != nil {
		return pid, 0, err
	}

	return pid, int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (u *User) Sbrk(ctx context.Context, n int) int64 {
	return u.Syscall(ctx, abi.SysSbrk, uint64(n))
}

func (u *User) Kill(ctx context.Context, pid int) int64 {
	return u.Syscall(ctx, abi.SysKill, uint64(pid))
}

func (u *User) Getpid(ctx context.Context) int64 {
	return u.Syscall(ctx, abi.SysGetpid)
}

func (u *User) Sleep(ctx context.Context, n int) int64 {
	return u.Syscall(ctx, abi.SysSleep, uint64(n))
}

func (u *User) Uptime(ctx context.Context) int64 {
	return u.Syscall(ctx, abi.SysUptime)
}

func (u *User) Getuid(ctx context.Context, pid int) int64 {
	return u.Syscall(ctx, abi.SysGetuid, uint64(pid))
}

func (u *User) Setuid(ctx context.Context, pid, uid int, password string) (int64, error) {
	u.reset()

	pw, err := u.Str(password)
	if err != nil {
		return 0, err
	}

	return u.Syscall(ctx, abi.SysSetuid, uint64(pid), uint64(uid), pw), nil
}

// Getenv returns the value of key in pid's environment, "" if it is unset.
func (u *User) Getenv(ctx context.Context, pid int, key string) (string, int64, error) {
	u.reset()

	k, err := u.Str(key)
	if err != nil {
		return "", 0, err
	}

	dst, err := u.Alloc(abi.MAXENVV)
	if err != nil {
		return "", 0, err
	}

	var buf [abi.MAXENVV]byte
	if err := u.Task.Mem.CopyOut(dst, buf[:]); err != nil {
		return "", 0, err
	}

	ret := u.Syscall(ctx, abi.SysGetenv, uint64(pid), k, dst)
	if ret < 0 {
		return "", ret, nil
	}

	if err := u.Task.Mem.CopyIn(buf[:], dst); err != nil {
		return "", ret, err
	}

	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}

	return string(buf[:n]), ret, nil
}

func (u *User) Setenv(ctx context.Context, pid int, key, val string) (int64, error) {
	u.reset()

	k, err := u.Str(key)
	if err != nil {
		return 0, err
	}

	v, err := u.Str(val)
	if err != nil {
		return 0, err
	}

	return u.Syscall(ctx, abi.SysSetenv, uint64(pid), k, v), nil
}

func (u *User) Env(ctx context.Context) int64 {
	return u.Syscall(ctx, abi.SysEnv)
}
