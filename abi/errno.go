package abi

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Errno classifies a failed syscall. User programs only ever see -1; the
// errno is carried in traces.
type Errno int32

// Error numbers.
const (
	EPERM  = Errno(unix.EPERM)
	ESRCH  = Errno(unix.ESRCH)
	EINTR  = Errno(unix.EINTR)
	EAGAIN = Errno(unix.EAGAIN)
	ENOMEM = Errno(unix.ENOMEM)
	EFAULT = Errno(unix.EFAULT)
	EINVAL = Errno(unix.EINVAL)
	ECHILD = Errno(unix.ECHILD)
	ENOSPC = Errno(unix.ENOSPC)
	ENOSYS = Errno(unix.ENOSYS)
)

func (e Errno) String() string {
	if name := unix.ErrnoName(syscall.Errno(e)); name != "" {
		return name
	}
	return fmt.Sprintf("{Errno %d}", int32(e))
}

func (e Errno) Error() string {
	return e.String() + " " + syscall.Errno(e).Error()
}
