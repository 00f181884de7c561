package boundary

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/kernel"
	"github.com/evanphx/sysgate/log"
	"github.com/evanphx/sysgate/syscalls"
)

type system struct {
	k    *kernel.Kernel
	inv  *syscalls.Invoker
	root *User
	out  bytes.Buffer
}

func boot(t *testing.T) *system {
	s := &system{}

	params := kernel.DefaultParams()
	params.Console = &s.out

	k, err := kernel.NewKernel(&params)
	require.NoError(t, err)

	proc, err := k.InitProcess()
	require.NoError(t, err)

	inv, err := syscalls.NewInvoker(k)
	require.NoError(t, err)

	root, err := NewUser(log.L, inv, proc)
	require.NoError(t, err)

	s.k = k
	s.inv = inv
	s.root = root

	return s
}

func (s *system) user(t *testing.T, pid int64) *User {
	p, ok := s.k.Lookup(int(pid))
	require.True(t, ok)

	u, err := NewUser(log.L, s.inv, p)
	require.NoError(t, err)

	return u
}

// forkTo forks from init until a process with the given pid exists.
func (s *system) forkTo(t *testing.T, pid int64) *User {
	ctx := context.Background()

	for {
		child := s.root.Fork(ctx)
		require.Greater(t, child, int64(0))

		if child == pid {
			return s.user(t, child)
		}
	}
}

func TestUser(t *testing.T) {
	n := neko.Modern(t)

	ctx := context.Background()

	n.It("round trips an environment variable on pid 7", func(t *testing.T) {
		s := boot(t)
		s.forkTo(t, 7)

		ret, err := s.root.Setenv(ctx, 7, "SHELL", "/bin/sh")
		require.NoError(t, err)
		require.Equal(t, int64(0), ret)

		val, ret, err := s.root.Getenv(ctx, 7, "SHELL")
		require.NoError(t, err)
		require.Equal(t, int64(0), ret)
		require.Equal(t, "/bin/sh", val)
	})

	n.It("changes identity only with the password", func(t *testing.T) {
		s := boot(t)
		u := s.forkTo(t, 7)

		require.Equal(t, int64(0), u.Getuid(ctx, 7))

		ret, err := u.Setuid(ctx, 7, 1000, "wrong")
		require.NoError(t, err)
		require.Equal(t, int64(-1), ret)
		require.Equal(t, int64(0), u.Getuid(ctx, 7))

		ret, err = u.Setuid(ctx, 7, 1000, kernel.DefaultPassword)
		require.NoError(t, err)
		require.Equal(t, int64(0), ret)
		require.Equal(t, int64(1000), u.Getuid(ctx, 7))
	})

	n.It("returns an empty value for a missing key", func(t *testing.T) {
		s := boot(t)

		val, ret, err := s.root.Getenv(ctx, 1, "NOPE")
		require.NoError(t, err)
		require.Equal(t, int64(0), ret)
		require.Equal(t, "", val)
	})

	n.It("truncates nothing up to the value limit", func(t *testing.T) {
		s := boot(t)

		long := strings.Repeat("v", abi.MAXENVV-1)

		ret, err := s.root.Setenv(ctx, 1, "LONG", long)
		require.NoError(t, err)
		require.Equal(t, int64(0), ret)

		val, _, err := s.root.Getenv(ctx, 1, "LONG")
		require.NoError(t, err)
		require.Equal(t, long, val)

		ret, err = s.root.Setenv(ctx, 1, "LONG", long+"v")
		require.NoError(t, err)
		require.Equal(t, int64(-1), ret)
	})

	n.It("sleeps zero ticks for a negative duration", func(t *testing.T) {
		s := boot(t)

		require.Equal(t, int64(0), s.root.Sleep(ctx, -5))
	})

	n.It("reports a non decreasing uptime", func(t *testing.T) {
		s := boot(t)

		a := s.root.Uptime(ctx)
		s.k.Clock.Advance()
		b := s.root.Uptime(ctx)

		require.GreaterOrEqual(t, b, a)
	})

	n.It("runs a fork, exit, wait cycle", func(t *testing.T) {
		s := boot(t)

		pid := s.root.Fork(ctx)
		child := s.user(t, pid)

		require.Equal(t, pid, child.Getpid(ctx))
		child.Exit(ctx, 42)

		got, status, err := s.root.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, pid, got)
		require.Equal(t, int32(42), status)

		got, _, err = s.root.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(-1), got)
	})

	n.It("grows the heap with sbrk", func(t *testing.T) {
		s := boot(t)

		old := s.root.Sbrk(ctx, 100)
		require.Equal(t, int64(4096), old)
		require.Equal(t, int64(4196), s.root.Sbrk(ctx, 0))
	})

	n.It("kills a sleeping child", func(t *testing.T) {
		s := boot(t)

		pid := s.root.Fork(ctx)
		child := s.user(t, pid)

		done := make(chan int64, 1)
		go func() {
			done <- child.Sleep(ctx, 1<<30)
		}()

		time.Sleep(20 * time.Millisecond)
		require.Equal(t, int64(0), s.root.Kill(ctx, int(pid)))

		select {
		case ret := <-done:
			require.Equal(t, int64(-1), ret)
		case <-time.After(2 * time.Second):
			t.Fatal("child never woke")
		}

		got, status, err := s.root.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, pid, got)
		require.Equal(t, int32(-1), status)
	})

	n.It("prints the environment", func(t *testing.T) {
		s := boot(t)

		_, err := s.root.Setenv(ctx, 1, "HOME", "/root")
		require.NoError(t, err)

		require.Equal(t, int64(0), s.root.Env(ctx))
		require.Contains(t, s.out.String(), "HOME")
	})

	n.It("lets init keep reaping after a child tries to kill it", func(t *testing.T) {
		s := boot(t)

		pid := s.root.Fork(ctx)
		child := s.user(t, pid)

		require.Equal(t, int64(-1), child.Kill(ctx, 1))
		require.Equal(t, int64(1), s.root.Getpid(ctx))

		child.Exit(ctx, 9)

		got, status, err := s.root.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, pid, got)
		require.Equal(t, int32(9), status)
	})

	n.It("releases scratch space when staging fails", func(t *testing.T) {
		s := boot(t)

		_, err := s.root.Setenv(ctx, 1, strings.Repeat("k", 20), strings.Repeat("v", ScratchSize))
		require.Equal(t, ErrScratchFull, err)

		ret, err := s.root.Setuid(ctx, 1, 1000, strings.Repeat("x", ScratchSize-10))
		require.NoError(t, err)
		require.Equal(t, int64(-1), ret)

		ret, err = s.root.Setuid(ctx, 1, 1000, kernel.DefaultPassword)
		require.NoError(t, err)
		require.Equal(t, int64(0), ret)
	})

	n.It("refuses scratch allocations that do not fit", func(t *testing.T) {
		s := boot(t)

		_, err := s.root.Str(strings.Repeat("x", ScratchSize))
		require.Equal(t, ErrScratchFull, err)
	})

	n.Meow()
}
