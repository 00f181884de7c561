package memory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestVirtualMemory(t *testing.T) {
	n := neko.Modern(t)

	n.It("copies data across page boundaries", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(3 * PageSize)
		require.NoError(t, err)

		data := make([]byte, PageSize+100)
		for i := range data {
			data[i] = byte(i)
		}

		err = vm.CopyOut(PageSize-50, data)
		require.NoError(t, err)

		out := make([]byte, len(data))
		err = vm.CopyIn(out, PageSize-50)
		require.NoError(t, err)

		require.Equal(t, data, out)
	})

	n.It("rejects accesses past the end of the heap", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(100)
		require.NoError(t, err)

		err = vm.CopyOut(90, make([]byte, 20))
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		var b [1]byte
		err = vm.CopyIn(b[:], 100)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		err = vm.CopyIn(b[:], 99)
		require.NoError(t, err)
	})

	n.It("does not write anything when the destination is partly unmapped", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(PageSize)
		require.NoError(t, err)

		err = vm.CopyOut(PageSize-4, []byte("abcdefgh"))
		require.Error(t, err)

		var b [4]byte
		err = vm.CopyIn(b[:], PageSize-4)
		require.NoError(t, err)
		require.Equal(t, [4]byte{}, b)
	})

	n.It("rejects addresses that wrap or exceed the user range", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(PageSize)
		require.NoError(t, err)

		var b [8]byte
		err = vm.CopyIn(b[:], ^uint64(0)-3)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		_, err = vm.CopyInStr(b[:], ^uint64(0))
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		err = vm.CopyOut(MaxVA, b[:])
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))
	})

	n.It("copies a terminated string", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(PageSize)
		require.NoError(t, err)

		require.NoError(t, vm.CopyOut(10, []byte("SHELL\x00")))

		var buf [32]byte
		n, err := vm.CopyInStr(buf[:], 10)
		require.NoError(t, err)
		require.Equal(t, "SHELL", string(buf[:n]))
	})

	n.It("fails on a string not terminated within the bound", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(PageSize)
		require.NoError(t, err)

		require.NoError(t, vm.CopyOut(0, []byte("0123456789\x00")))

		backing := make([]byte, 16)
		buf := backing[:8]

		_, err = vm.CopyInStr(buf, 0)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		require.Equal(t, make([]byte, 8), backing[8:])

		// exactly fits, NUL included
		buf = backing[:11]
		n, err := vm.CopyInStr(buf, 0)
		require.NoError(t, err)
		require.Equal(t, 10, n)
	})

	n.It("fails on a string running into unmapped memory", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(PageSize)
		require.NoError(t, err)

		require.NoError(t, vm.CopyOut(PageSize-3, []byte("abc")))

		var buf [32]byte
		_, err = vm.CopyInStr(buf[:], PageSize-3)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))
	})

	n.It("reads strings spanning two regions' pages", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(2 * PageSize)
		require.NoError(t, err)

		require.NoError(t, vm.CopyOut(PageSize-2, []byte("key\x00")))

		var buf [8]byte
		n, err := vm.CopyInStr(buf[:], PageSize-2)
		require.NoError(t, err)
		require.Equal(t, "key", string(buf[:n]))
	})

	n.It("grows and shrinks the heap", func(t *testing.T) {
		vm := NewVirtualMemory(2 * PageSize)

		old, err := vm.Grow(PageSize)
		require.NoError(t, err)
		require.Equal(t, uint64(0), old)

		require.NoError(t, vm.CopyOut(PageSize-1, []byte{0xff}))

		old, err = vm.Grow(-PageSize)
		require.NoError(t, err)
		require.Equal(t, uint64(PageSize), old)
		require.Equal(t, uint64(0), vm.Size())

		_, err = vm.Grow(PageSize)
		require.NoError(t, err)

		var b [1]byte
		require.NoError(t, vm.CopyIn(b[:], PageSize-1))
		require.Equal(t, byte(0), b[0])

		_, err = vm.Grow(2 * PageSize)
		require.Equal(t, ErrNoMemory, errors.Cause(err))

		_, err = vm.Grow(-2 * PageSize)
		require.Equal(t, ErrBadRegionRequest, errors.Cause(err))
		require.Equal(t, uint64(PageSize), vm.Size())
	})

	n.It("keeps regions from overlapping", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(PageSize + 1)
		require.NoError(t, err)

		_, err = vm.NewRegion(PageSize, PageSize)
		require.Equal(t, ErrBadRegionRequest, errors.Cause(err))

		_, err = vm.NewRegion(4*PageSize, PageSize)
		require.NoError(t, err)

		_, err = vm.Grow(3 * PageSize)
		require.Equal(t, ErrNoMemory, errors.Cause(err))

		// the gap between the heap and the region is unmapped
		var b [1]byte
		err = vm.CopyIn(b[:], 3*PageSize)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		require.NoError(t, vm.CopyIn(b[:], 4*PageSize))
	})

	n.It("forks into an independent copy", func(t *testing.T) {
		vm := NewVirtualMemory(0)
		_, err := vm.Grow(PageSize)
		require.NoError(t, err)

		require.NoError(t, vm.CopyOut(0, []byte("parent")))

		child := vm.Fork()
		require.NoError(t, child.CopyOut(0, []byte("child!")))

		var b [6]byte
		require.NoError(t, vm.CopyIn(b[:], 0))
		require.Equal(t, "parent", string(b[:]))

		require.NoError(t, child.CopyIn(b[:], 0))
		require.Equal(t, "child!", string(b[:]))
	})

	n.Meow()
}
