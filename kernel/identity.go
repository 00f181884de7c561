package kernel

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
)

func (k *Kernel) lookup(pid int) (*Process, error) {
	p, ok := k.processes.Lookup(pid)
	if !ok {
		return nil, errors.Wrapf(ErrNoProcess, "pid %d", pid)
	}

	return p, nil
}

func (k *Kernel) GetUID(pid int) (int, error) {
	p, err := k.lookup(pid)
	if err != nil {
		return 0, err
	}

	return p.UID(), nil
}

// SetUID changes pid's uid if secret satisfies the kernel policy. This is
// the only writer of a process's uid.
func (k *Kernel) SetUID(pid, uid int, secret []byte) error {
	if !k.currentPolicy().Authorize(secret) {
		return errors.Wrapf(ErrUnauthorized, "setuid pid %d", pid)
	}

	p, err := k.lookup(pid)
	if err != nil {
		return err
	}

	p.setUID(uid)
	return nil
}

// GetEnv looks key up in pid's environment. A missing key is not an error.
func (k *Kernel) GetEnv(pid int, key string) (string, bool, error) {
	p, err := k.lookup(pid)
	if err != nil {
		return "", false, err
	}

	val, ok := p.Getenv(key)
	return val, ok, nil
}

func (k *Kernel) SetEnv(pid int, key, val string) error {
	p, err := k.lookup(pid)
	if err != nil {
		return err
	}

	return p.Setenv(key, val)
}

// EnvDump prints environment tables to the console, either every process's
// or only caller's depending on Params.EnvDumpScope.
func (k *Kernel) EnvDump(caller *Process) error {
	tw := tabwriter.NewWriter(k.Params.Console, 4, 8, 1, ' ', 0)

	dump := func(p *Process) {
		for _, kv := range p.Environ() {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", p.Pid, kv[0], kv[1])
		}
	}

	switch k.Params.EnvDumpScope {
	case EnvScopeCaller:
		dump(caller)
	default:
		k.processes.Each(dump)
	}

	return tw.Flush()
}
