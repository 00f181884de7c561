package syscalls

import (
	"github.com/evanphx/sysgate/kernel"
)

// argInt fetches argument n as a 32-bit signed integer.
func argInt(t *kernel.Task, n int) int {
	return int(int32(t.Trapframe.Arg(n)))
}

// argAddr fetches argument n as a user address. Nothing is checked here;
// the copy that uses the address does the checking.
func argAddr(t *kernel.Task, n int) uint64 {
	return t.Trapframe.Arg(n)
}

// argStr copies the NUL-terminated string addressed by argument n into buf.
// It never touches more than len(buf) bytes and fails if the string,
// including its NUL, does not fit.
func argStr(t *kernel.Task, n int, buf []byte) (string, error) {
	sz, err := t.Mem.CopyInStr(buf, argAddr(t, n))
	if err != nil {
		return "", err
	}

	return string(buf[:sz]), nil
}
