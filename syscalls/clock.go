package syscalls

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
)

func sysSleep(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	n := argInt(t, 0)

	if err := t.Kernel.Clock.Sleep(ctx, int64(n), t.Killed); err != nil {
		return fail(l, "sleep interrupted", err)
	}

	return 0
}

// sysUptime returns how many clock ticks have occurred since boot.
func sysUptime(ctx context.Context, l hclog.Logger, t *kernel.Task) int64 {
	return int64(t.Kernel.Clock.Now())
}

func init() {
	register(abi.SysSleep, "sleep", sysSleep)
	register(abi.SysUptime, "uptime", sysUptime)
}
