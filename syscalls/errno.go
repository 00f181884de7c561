package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/memory"
)

var errnos = map[error]abi.Errno{
	memory.ErrInvalidMemoryAccess: abi.EFAULT,
	memory.ErrNoMemory:            abi.ENOMEM,
	memory.ErrBadRegionRequest:    abi.EINVAL,
	kernel.ErrNoProcess:           abi.ESRCH,
	kernel.ErrUnauthorized:        abi.EPERM,
	kernel.ErrKilled:              abi.EINTR,
	kernel.ErrNoChildren:          abi.ECHILD,
	kernel.ErrProcLimit:           abi.EAGAIN,
	kernel.ErrEnvFull:             abi.ENOSPC,
	kernel.ErrEnvTooLong:          abi.EINVAL,
	kernel.ErrInitExit:            abi.EPERM,
	kernel.ErrKillInit:            abi.EPERM,
	context.Canceled:              abi.EINTR,
	context.DeadlineExceeded:      abi.EINTR,
}

// errnoFor classifies err for tracing.
func errnoFor(err error) abi.Errno {
	if e, ok := errnos[errors.Cause(err)]; ok {
		return e
	}

	return abi.ENOSYS
}

// fail logs err against the current call and returns the failure result.
func fail(l hclog.Logger, msg string, err error) int64 {
	l.Debug(msg, "error", err, "errno", errnoFor(err))
	return abi.Fail
}
