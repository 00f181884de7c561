package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
)

// Handler implements one syscall. Arguments are read from the task's
// trapframe; the return value is delivered in a0, negative on failure.
type Handler func(context.Context, hclog.Logger, *kernel.Task) int64

var (
	Syscalls     [abi.MaxSyscall]Handler
	SyscallNames [abi.MaxSyscall]string
)

func register(num int, name string, h Handler) {
	if Syscalls[num] != nil {
		panic("syscall registered twice: " + name)
	}

	Syscalls[num] = h
	SyscallNames[num] = name
}

// Name returns the syscall's name, or "" if num is not a syscall.
func Name(num int) string {
	if num < 0 || num >= len(SyscallNames) {
		return ""
	}

	return SyscallNames[num]
}
