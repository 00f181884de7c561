package kernel

import (
	"crypto/subtle"

	"golang.org/x/crypto/blake2b"

	"github.com/evanphx/sysgate/abi"
)

// Policy decides whether an offered secret grants a privileged operation.
type Policy interface {
	Authorize(secret []byte) bool
}

// PasswordPolicy accepts exactly one password. The password is compared as
// a NUL-padded MAXPWD-byte buffer, so anything past MAXPWD bytes is ignored.
type PasswordPolicy struct {
	digest [blake2b.Size256]byte
}

func padSecret(secret []byte) [abi.MAXPWD]byte {
	var buf [abi.MAXPWD]byte
	copy(buf[:], secret)
	return buf
}

func NewPasswordPolicy(password string) *PasswordPolicy {
	buf := padSecret([]byte(password))

	return &PasswordPolicy{
		digest: blake2b.Sum256(buf[:]),
	}
}

func (pp *PasswordPolicy) Authorize(secret []byte) bool {
	buf := padSecret(secret)
	offered := blake2b.Sum256(buf[:])

	return subtle.ConstantTimeCompare(offered[:], pp.digest[:]) == 1
}
