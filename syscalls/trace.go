package syscalls

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/abi"
)

// tracer logs syscalls, optionally only those matching a filter expression
// such as `name == "setenv" && result < 0`.
type tracer struct {
	filter *vm.Program
}

func traceEnv(pid, num int, args [abi.MaxArgs]uint64, ret int64) map[string]interface{} {
	return map[string]interface{}{
		"pid":    pid,
		"num":    num,
		"name":   Name(num),
		"args":   args[:],
		"result": ret,
	}
}

func newTracer(enabled bool, filter string) (*tracer, error) {
	if !enabled {
		return nil, nil
	}

	tr := &tracer{}

	if filter == "" {
		return tr, nil
	}

	program, err := expr.Compile(filter,
		expr.Env(traceEnv(0, 0, [abi.MaxArgs]uint64{}, 0)),
		expr.AsBool(),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling trace filter %q", filter)
	}

	tr.filter = program

	return tr, nil
}

func (tr *tracer) match(env map[string]interface{}) bool {
	if tr.filter == nil {
		return true
	}

	out, err := expr.Run(tr.filter, env)
	if err != nil {
		return false
	}

	ok, _ := out.(bool)
	return ok
}

func (tr *tracer) trace(l hclog.Logger, pid, num int, args [abi.MaxArgs]uint64, ret int64) {
	env := traceEnv(pid, num, args, ret)
	if !tr.match(env) {
		return
	}

	l.Info("syscall", "num", num, "a0", args[0], "a1", args[1], "a2", args[2], "result", ret)
}
