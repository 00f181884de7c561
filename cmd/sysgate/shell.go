package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/boundary"
	"github.com/evanphx/sysgate/kernel"
	clog "github.com/evanphx/sysgate/log"
)

// shell runs one syscall per script line on behalf of the current process.
// "as PID" switches the current process.
type shell struct {
	k   *kernel.Kernel
	inv boundary.SyscallInvoker
	out io.Writer

	cur *boundary.User
}

func newShell(k *kernel.Kernel, inv boundary.SyscallInvoker, proc *kernel.Process, out io.Writer) (*shell, error) {
	u, err := boundary.NewUser(clog.L, inv, proc)
	if err != nil {
		return nil, err
	}

	return &shell{k: k, inv: inv, out: out, cur: u}, nil
}

func intArg(fields []string, i int, def int) (int, error) {
	if i >= len(fields) {
		return def, nil
	}

	v, err := strconv.Atoi(fields[i])
	if err != nil {
		return 0, errors.Wrapf(err, "argument %d", i)
	}

	return v, nil
}

func need(fields []string, n int) error {
	if len(fields) < n+1 {
		return errors.Errorf("%s needs %d arguments", fields[0], n)
	}
	return nil
}

func (s *shell) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields := strings.Fields(line)
	u := s.cur
	self := u.Pid()

	var (
		ret int64
		err error
	)

	switch fields[0] {
	case "as":
		if err := need(fields, 1); err != nil {
			return err
		}

		pid, err := intArg(fields, 1, 0)
		if err != nil {
			return err
		}

		p, ok := s.k.Lookup(pid)
		if !ok {
			return errors.Errorf("no process %d", pid)
		}

		nu, err := boundary.NewUser(clog.L, s.inv, p)
		if err != nil {
			return err
		}

		s.cur = nu
		return nil

	case "fork":
		ret = u.Fork(ctx)
	case "exit":
		code, err := intArg(fields, 1, 0)
		if err != nil {
			return err
		}

		u.Exit(ctx, code)
		fmt.Fprintf(s.out, "[%d] exit(%d)\n", self, code)
		return nil
	case "wait":
		var status int32
		ret, status, err = u.Wait(ctx)
		if err == nil && ret >= 0 {
			fmt.Fprintf(s.out, "[%d] status %d\n", self, status)
		}
	case "getpid":
		ret = u.Getpid(ctx)
	case "sbrk":
		var n int
		if n, err = intArg(fields, 1, 0); err == nil {
			ret = u.Sbrk(ctx, n)
		}
	case "kill":
		if err = need(fields, 1); err == nil {
			var pid int
			if pid, err = intArg(fields, 1, 0); err == nil {
				ret = u.Kill(ctx, pid)
			}
		}
	case "sleep":
		var n int
		if n, err = intArg(fields, 1, 0); err == nil {
			ret = u.Sleep(ctx, n)
		}
	case "uptime":
		ret = u.Uptime(ctx)
	case "getuid":
		var pid int
		if pid, err = intArg(fields, 1, self); err == nil {
			ret = u.Getuid(ctx, pid)
		}
	case "setuid":
		if err = need(fields, 2); err == nil {
			var uid, pid int
			if uid, err = intArg(fields, 1, 0); err == nil {
				if pid, err = intArg(fields, 3, self); err == nil {
					ret, err = u.Setuid(ctx, pid, uid, fields[2])
				}
			}
		}
	case "getenv":
		if err = need(fields, 1); err == nil {
			var pid int
			if pid, err = intArg(fields, 2, self); err == nil {
				var val string
				val, ret, err = u.Getenv(ctx, pid, fields[1])
				if err == nil && ret >= 0 {
					fmt.Fprintf(s.out, "[%d] %s=%s\n", self, fields[1], val)
				}
			}
		}
	case "setenv":
		if err = need(fields, 2); err == nil {
			var pid int
			if pid, err = intArg(fields, 3, self); err == nil {
				ret, err = u.Setenv(ctx, pid, fields[1], fields[2])
			}
		}
	case "env":
		ret = u.Env(ctx)
	default:
		return errors.Errorf("unknown command %q", fields[0])
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "[%d] %s = %d\n", self, line, ret)
	return nil
}
