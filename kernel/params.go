package kernel

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/evanphx/sysgate/abi"
)

// EnvScope selects which environment tables the env syscall prints.
type EnvScope int

const (
	EnvScopeAll EnvScope = iota
	EnvScopeCaller
)

var envScopeNames = map[EnvScope]string{
	EnvScopeAll:    "all",
	EnvScopeCaller: "caller",
}

func (s EnvScope) String() string {
	if name, ok := envScopeNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParseEnvScope(name string) (EnvScope, error) {
	for scope, n := range envScopeNames {
		if n == name {
			return scope, nil
		}
	}

	return 0, errors.Errorf("unknown env scope %q", name)
}

const (
	DefaultPassword    = "letmein-sysgate"
	DefaultMaxProcs    = 64
	DefaultMaxEnv      = 16
	DefaultMemoryLimit = 64 << 20
)

// Params define kernel parameters.
type Params struct {
	// Password gates setuid. Only its digest is kept by the kernel.
	Password string

	MaxProcs    int
	MaxEnv      int
	MemoryLimit uint64

	EnvDumpScope EnvScope
	Console      io.Writer

	// Trace logs every syscall. TraceFilter, when set, is an expression
	// selecting which calls are logged.
	Trace       bool
	TraceFilter string
}

func DefaultParams() Params {
	return Params{
		Password:     DefaultPassword,
		MaxProcs:     DefaultMaxProcs,
		MaxEnv:       DefaultMaxEnv,
		MemoryLimit:  DefaultMemoryLimit,
		EnvDumpScope: EnvScopeAll,
		Console:      os.Stdout,
	}
}

func (p *Params) validate() error {
	if p.Password == "" {
		return errors.New("password must not be empty")
	}

	// setuid stages the password with its NUL in a MAXPWD byte buffer.
	if len(p.Password) >= abi.MAXPWD {
		return errors.Errorf("password must be shorter than %d bytes, got %d", abi.MAXPWD, len(p.Password))
	}

	if p.MaxProcs < 1 {
		return errors.Errorf("MaxProcs must be at least 1, got %d", p.MaxProcs)
	}

	if p.MaxEnv < 0 {
		return errors.Errorf("MaxEnv must not be negative, got %d", p.MaxEnv)
	}

	if p.Console == nil {
		p.Console = io.Discard
	}

	return nil
}
