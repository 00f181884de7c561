// Package abi holds the calling convention shared by user programs and the
// kernel: syscall numbers, argument registers and fixed buffer sizes.
package abi

// Syscall numbers.
const (
	SysFork   = 1
	SysExit   = 2
	SysWait   = 3
	SysKill   = 6
	SysGetpid = 11
	SysSbrk   = 12
	SysSleep  = 13
	SysUptime = 14

	SysGetuid = 22
	SysSetuid = 23
	SysGetenv = 24
	SysSetenv = 25
	SysEnv    = 26
)

// MaxSyscall bounds the syscall table.
const MaxSyscall = 64

// Argument slots are passed in a0..a5. The syscall number travels in a7 and
// the result comes back in a0.
const (
	MaxArgs    = 6
	RegSyscall = 7
	RegResult  = 0
)

// Buffer sizes. Strings copied in from user space must fit, NUL included.
const (
	MAXPWD  = 32  // password offered to setuid
	MAXENVK = 32  // environment key
	MAXENVV = 128 // environment value, also the getenv copy-out width
)

// Fail is the result every failed syscall returns.
const Fail = -1
