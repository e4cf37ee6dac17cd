package jitrt

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ngcodegen/corejit/internal/jiterr"
)

// JitFunction is a weak handle to runtime-owned executable memory (spec
// §3/§4.9/§8): it carries a slot index and an epoch rather than a
// pointer back into the Runtime, so disposing the Runtime and disposing
// a handle can never race into a double munmap, and the Runtime<->
// JitFunction ownership cycle never needs a backward pointer.
type JitFunction struct {
	rt       *Runtime
	slot     int
	epoch    uint64
	size     int
	disposed bool
}

// Address returns the function's current base address. It is valid to
// call from any goroutine once Add/AddCached has returned, satisfying
// spec §5's cross-thread callability requirement: the protectRX syscall
// (or, where the OS offers none, the I-cache flush) supplies the
// store-release this call's happens-before depends on.
//
// Address returns (0, false) once the underlying slot has been disposed
// or reused by a later Add call under the same Runtime.
func (f *JitFunction) Address() (uintptr, bool) {
	return f.rt.addrOf(f.slot, f.epoch)
}

// Size returns the number of code bytes installed, excluding the
// page-granularity rounding applied to the underlying allocation.
func (f *JitFunction) Size() int { return f.size }

// Call invokes the function as a signature-erased zero-argument routine
// returning no value — the minimal shape the spec's CPUID-probe
// collaborator (§6) needs. Higher-level callers that need an actual
// argument-passing ABI build their own typed wrapper over Address using
// the frame package's classification, since Go cannot call through an
// arbitrary foreign calling convention without one.
func (f *JitFunction) Call() error {
	addr, ok := f.Address()
	if !ok {
		return fmt.Errorf("%w: call through disposed JitFunction", jiterr.InvalidState)
	}
	// A Go func value is a pointer to a funcval whose first word is the
	// entry address; entry points at a word holding addr, so
	// reinterpreting &entry as *func() yields a func value whose funcval
	// starts with addr, and calling fn jumps straight into the installed
	// code.
	entry := &addr
	fn := *(*func())(unsafe.Pointer(&entry))
	fn()
	return nil
}

// Dispose releases the handle's slot. Safe to call more than once, and
// safe to call after the owning Runtime has already been disposed —
// both are silent no-ops per the weak-handle contract (spec §4.9 option
// (b)).
func (f *JitFunction) Dispose() {
	if f.disposed {
		return
	}
	f.disposed = true
	runtime.SetFinalizer(f, nil)
	f.rt.releaseIfCurrent(f.slot, f.epoch)
}

// release is the runtime.SetFinalizer target, modeled directly on
// internal/engine/compiler/engine.go's releaseCode: a handle the caller
// let become unreachable without disposing it still gets its page
// reclaimed rather than leaking executable memory for the process's
// lifetime.
func (f *JitFunction) release() {
	f.Dispose()
}
