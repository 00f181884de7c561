package kernel

import "github.com/pkg/errors"

var (
	ErrNoProcess    = errors.New("no such process")
	ErrUnauthorized = errors.New("unauthorized")
	ErrKilled       = errors.New("process killed")
	ErrNoChildren   = errors.New("no children")
	ErrProcLimit    = errors.New("process table full")
	ErrEnvFull      = errors.New("environment table full")
	ErrEnvTooLong   = errors.New("environment entry too long")
	ErrInitExit     = errors.New("init exiting")
	ErrKillInit     = errors.New("init cannot be killed")
)
