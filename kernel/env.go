package kernel

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/abi"
)

// EnvTable is a process's environment. Keys are unique. It is not safe for
// concurrent use; the owning Process serializes access.
type EnvTable struct {
	max  int
	vars map[string]string
}

func NewEnvTable(max int) *EnvTable {
	return &EnvTable{
		max:  max,
		vars: make(map[string]string),
	}
}

func (e *EnvTable) Get(key string) (string, bool) {
	val, ok := e.vars[key]
	return val, ok
}

// Set inserts or replaces key. Keys and values must fit their ABI buffers
// with room for the NUL.
func (e *EnvTable) Set(key, val string) error {
	if len(key) == 0 || len(key) >= abi.MAXENVK {
		return errors.Wrapf(ErrEnvTooLong, "key length %d", len(key))
	}

	if len(val) >= abi.MAXENVV {
		return errors.Wrapf(ErrEnvTooLong, "value length %d", len(val))
	}

	if _, ok := e.vars[key]; !ok && len(e.vars) >= e.max {
		return errors.Wrapf(ErrEnvFull, "%d entries", len(e.vars))
	}

	e.vars[key] = val
	return nil
}

func (e *EnvTable) Len() int {
	return len(e.vars)
}

// Keys returns the keys in sorted order.
func (e *EnvTable) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

func (e *EnvTable) Clone() *EnvTable {
	child := NewEnvTable(e.max)
	for k, v := range e.vars {
		child.vars[k] = v
	}

	return child
}
