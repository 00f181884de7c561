package kernel

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/evanphx/sysgate/abi"
	"github.com/evanphx/sysgate/memory"
)

// Task is a process while it is executing a syscall.
type Task struct {
	*Process
}

type ProcessState int

const (
	Unused   ProcessState = 0
	Runnable ProcessState = 1
	Zombie   ProcessState = 2
)

var stateNames = map[ProcessState]string{
	Unused:   "unused",
	Runnable: "runnable",
	Zombie:   "zombie",
}

func (st ProcessState) String() string {
	if name, ok := stateNames[st]; ok {
		return name
	}
	return fmt.Sprintf("{ProcessState %d}", int(st))
}

type ExitStatus struct {
	Code int
}

// Status is the value wait copies out to user space.
func (e ExitStatus) Status() int32 {
	return int32(e.Code)
}

// Trapframe is the register state saved on entry to the kernel.
type Trapframe struct {
	A [8]uint64
}

func (tf *Trapframe) Arg(n int) uint64 {
	if n < 0 || n >= abi.MaxArgs {
		panic(fmt.Sprintf("argument slot %d out of range", n))
	}

	return tf.A[n]
}

func (tf *Trapframe) Syscall() int {
	return int(tf.A[abi.RegSyscall])
}

func (tf *Trapframe) SetResult(v int64) {
	tf.A[abi.RegResult] = uint64(v)
}

type Process struct {
	Kernel *Kernel
	Pid    int

	// Owned by the syscall currently running on behalf of this process.
	Trapframe Trapframe
	Mem       *memory.VirtualMemory

	// Protected by Kernel.processes.mu.
	parent *Process

	mu         sync.Mutex
	state      ProcessState
	exitStatus ExitStatus
	killed     bool
	uid        int
	env        *EnvTable
}

func (p *Process) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *Process) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.killed
}

func (p *Process) setKilled() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.killed = true
}

func (p *Process) Parent() *Process {
	p.Kernel.processes.mu.RLock()
	defer p.Kernel.processes.mu.RUnlock()

	return p.parent
}

func (p *Process) UID() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.uid
}

func (p *Process) setUID(uid int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.uid = uid
}

func (p *Process) Getenv(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.env.Get(key)
}

func (p *Process) Setenv(key, val string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.env.Set(key, val)
}

// Environ returns a sorted snapshot of the environment as key/value pairs.
func (p *Process) Environ() [][2]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out [][2]string

	for _, k := range p.env.Keys() {
		v, _ := p.env.Get(k)
		out = append(out, [2]string{k, v})
	}

	return out
}

// Size is the process's memory size in bytes.
func (p *Process) Size() uint64 {
	return p.Mem.Size()
}

type writeAdapter struct {
	sub    io.WriterAt
	offset int64
}

func (w writeAdapter) Write(b []byte) (int, error) {
	return w.sub.WriteAt(b, w.offset)
}

type readAdapter struct {
	sub    io.ReaderAt
	offset int64
}

func (ra readAdapter) Read(b []byte) (int, error) {
	return ra.sub.ReadAt(b, ra.offset)
}

// CopyOut encodes val little-endian into user memory at addr.
func (p *Process) CopyOut(addr uint64, val interface{}) error {
	return binary.Write(writeAdapter{sub: p.Mem, offset: int64(addr)}, binary.LittleEndian, val)
}

// CopyIn decodes a little-endian value from user memory at addr.
func (p *Process) CopyIn(addr uint64, val interface{}) error {
	return binary.Read(readAdapter{sub: p.Mem, offset: int64(addr)}, binary.LittleEndian, val)
}
