package memory

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const (
	PageSize = 4096

	// MaxVA is one past the highest user virtual address.
	MaxVA = 1 << 38
)

const translationCacheSize = 256

var (
	ErrInvalidMemoryAccess = errors.New("invalid memory access")
	ErrBadRegionRequest    = errors.New("bad region request")
	ErrNoMemory            = errors.New("out of memory")
)

type Region struct {
	Start, Size uint64

	linear []byte
}

func (reg *Region) dup() *Region {
	child := &Region{}

	// shallow dup
	*child = *reg

	child.linear = make([]byte, len(reg.linear))

	copy(child.linear, reg.linear)

	return child
}

func (reg *Region) Contains(x uint64) bool {
	if x < reg.Start {
		return false
	}

	if x >= reg.Start+reg.Size {
		return false
	}

	return true
}

// End is the first page boundary at or after the end of the region.
func (reg *Region) End() uint64 {
	return PageRoundUp(reg.Start + reg.Size)
}

func PageRoundUp(sz uint64) uint64 {
	return (sz + PageSize - 1) &^ (PageSize - 1)
}

func PageRoundDown(sz uint64) uint64 {
	return sz &^ (PageSize - 1)
}

// view returns the bytes from addr up to the end of addr's page, clipped to
// the region. addr must be inside the region.
func (reg *Region) view(addr uint64) []byte {
	offset := addr - reg.Start

	end := PageRoundDown(addr) + PageSize - reg.Start
	if end > reg.Size {
		end = reg.Size
	}

	if uint64(len(reg.linear)) < end {
		slice := make([]byte, PageRoundUp(end))
		copy(slice, reg.linear)

		reg.linear = slice
	}

	return reg.linear[offset:end]
}

// VirtualMemory is a process's user address space. Region 0 is the heap,
// which starts at address 0 and whose size is the process size.
type VirtualMemory struct {
	mu sync.Mutex

	regions []*Region
	limit   uint64

	// vpn -> *Region
	tlb *lru.ARCCache
}

// NewVirtualMemory creates an address space with an empty heap. The heap
// may never grow past limit bytes.
func NewVirtualMemory(limit uint64) *VirtualMemory {
	if limit == 0 || limit > MaxVA {
		limit = MaxVA
	}

	return &VirtualMemory{
		regions: []*Region{{Start: 0}},
		limit:   limit,
		tlb:     newTLB(),
	}
}

func newTLB() *lru.ARCCache {
	tlb, err := lru.NewARC(translationCacheSize)
	if err != nil {
		panic(err)
	}

	return tlb
}

func (vm *VirtualMemory) Fork() *VirtualMemory {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	child := &VirtualMemory{
		limit:   vm.limit,
		regions: make([]*Region, len(vm.regions)),
		tlb:     newTLB(),
	}

	for i, reg := range vm.regions {
		child.regions[i] = reg.dup()
	}

	return child
}

// Size is the size of the heap, in bytes.
func (vm *VirtualMemory) Size() uint64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.regions[0].Size
}

func (vm *VirtualMemory) FindRegion(addr uint64) (*Region, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.findRegion(addr)
}

func (vm *VirtualMemory) findRegion(addr uint64) (*Region, bool) {
	if addr >= MaxVA {
		return nil, false
	}

	vpn := addr / PageSize

	if v, ok := vm.tlb.Get(vpn); ok {
		reg := v.(*Region)
		if reg.Contains(addr) {
			return reg, true
		}
	}

	for _, reg := range vm.regions {
		if reg.Contains(addr) {
			vm.tlb.Add(vpn, reg)
			return reg, true
		}
	}

	return nil, false
}

func (vm *VirtualMemory) translate(addr uint64) ([]byte, error) {
	reg, ok := vm.findRegion(addr)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x not mapped", addr)
	}

	return reg.view(addr), nil
}

func checkRange(addr uint64, sz int) error {
	if addr >= MaxVA || uint64(sz) > MaxVA-addr {
		return errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x, size=%#x out of range", addr, sz)
	}

	return nil
}

// CopyIn fills dst from user memory starting at addr. Every byte must be
// mapped; on failure dst may be partially written but nothing beyond it.
func (vm *VirtualMemory) CopyIn(dst []byte, addr uint64) error {
	if err := checkRange(addr, len(dst)); err != nil {
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	for len(dst) > 0 {
		src, err := vm.translate(addr)
		if err != nil {
			return err
		}

		n := copy(dst, src)
		dst = dst[n:]
		addr += uint64(n)
	}

	return nil
}

// CopyOut writes src into user memory at addr. The whole destination range
// is validated before any byte is written.
func (vm *VirtualMemory) CopyOut(addr uint64, src []byte) error {
	if err := checkRange(addr, len(src)); err != nil {
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	for a, end := addr, addr+uint64(len(src)); a < end; {
		reg, ok := vm.findRegion(a)
		if !ok {
			return errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x not mapped", a)
		}

		a = reg.Start + reg.Size
	}

	for len(src) > 0 {
		dst, err := vm.translate(addr)
		if err != nil {
			return err
		}

		n := copy(dst, src)
		src = src[n:]
		addr += uint64(n)
	}

	return nil
}

// CopyInStr copies a NUL-terminated string from addr into dst, including
// the NUL, and returns the string length. At most len(dst) bytes are read.
// If no NUL is found within that bound the copy fails.
func (vm *VirtualMemory) CopyInStr(dst []byte, addr uint64) (int, error) {
	if err := checkRange(addr, 1); err != nil {
		return 0, err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	n := 0

	for n < len(dst) {
		src, err := vm.translate(addr + uint64(n))
		if err != nil {
			return 0, err
		}

		for i := 0; i < len(src) && n < len(dst); i++ {
			dst[n] = src[i]
			if src[i] == 0 {
				return n, nil
			}
			n++
		}
	}

	return 0, errors.Wrapf(ErrInvalidMemoryAccess, "string at %#x not terminated within %d bytes", addr, len(dst))
}

func (vm *VirtualMemory) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidMemoryAccess
	}

	if err := vm.CopyIn(b, uint64(off)); err != nil {
		return 0, err
	}

	return len(b), nil
}

func (vm *VirtualMemory) WriteAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidMemoryAccess
	}

	if err := vm.CopyOut(uint64(off), b); err != nil {
		return 0, err
	}

	return len(b), nil
}

// Grow changes the heap size by delta bytes and returns the previous size.
// Released bytes read back as zero if the heap grows again.
func (vm *VirtualMemory) Grow(delta int64) (uint64, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	heap := vm.regions[0]
	old := heap.Size

	if delta < 0 {
		shrink := uint64(-delta)
		if shrink > old {
			return old, errors.Wrapf(ErrBadRegionRequest, "shrink by %d below zero", shrink)
		}

		heap.Size = old - shrink

		if uint64(len(heap.linear)) > heap.Size {
			clear(heap.linear[heap.Size:])
		}

		vm.tlb.Purge()
		return old, nil
	}

	newSize := old + uint64(delta)
	if newSize > vm.limit || newSize < old {
		return old, errors.Wrapf(ErrNoMemory, "heap size %d exceeds limit %d", newSize, vm.limit)
	}

	for _, reg := range vm.regions[1:] {
		if PageRoundUp(newSize) > reg.Start {
			return old, errors.Wrapf(ErrNoMemory, "heap would overlap region at %#x", reg.Start)
		}
	}

	heap.Size = newSize
	vm.tlb.Purge()

	return old, nil
}

// NewRegion maps a fresh zeroed region. start must be page aligned and the
// region may not overlap the heap or any other region.
func (vm *VirtualMemory) NewRegion(start, size uint64) (*Region, error) {
	if start%PageSize != 0 || size == 0 || start >= MaxVA || size > MaxVA-start {
		return nil, errors.Wrapf(ErrBadRegionRequest, "start=%#x, size=%#x", start, size)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	end := PageRoundUp(start + size)

	for _, reg := range vm.regions {
		if start < reg.End() && reg.Start < end {
			return nil, errors.Wrapf(ErrBadRegionRequest, "start=%#x overlaps region at %#x", start, reg.Start)
		}
	}

	reg := &Region{
		Start: start,
		Size:  size,
	}

	vm.regions = append(vm.regions, reg)
	vm.tlb.Purge()

	return reg, nil
}
