// Package vmem implements the W^X-disciplined executable memory
// allocator of spec §4.9: a block of process memory is always either
// writable-and-not-executable or executable-and-not-writable, never
// both, matching the defense-in-depth stance most production JITs take
// (and that hardened kernels enforce outright). Code is written into a
// block while it is RW, then flipped to RX before any JitFunction is
// allowed to hand out a callable pointer to it.
//
// The platform-specific halves (vmem_unix.go, vmem_windows.go) are
// grounded on golang.org/x/sys/unix's Mmap/Mprotect/Munmap and
// golang.org/x/sys/windows's VirtualAlloc/VirtualProtect/VirtualFree,
// the same split internal/platform's mmap_*.go files make, one os-build
// file per syscall surface.
package vmem

import (
	"fmt"

	"github.com/ngcodegen/corejit/internal/jiterr"
)

// Flags is a bitmask of the protection bits a Block can carry. Read is
// implied by either Write or Exec on every platform this package
// targets, so it is tracked for documentation purposes rather than
// independently enforceable.
type Flags byte

const (
	Read Flags = 1 << iota
	Write
	Exec
)

// Block is one allocation: a page-aligned span of process memory plus
// the Flags it currently carries. Addr is the process address the
// allocation starts at; Data aliases it as a Go byte slice for the RW
// phase, and must not be read or written once the block has been
// switched to Exec-only.
type Block struct {
	Addr  uintptr
	Data  []byte
	Size  int
	flags Flags
}

// Flags reports a Block's current protection.
func (b *Block) Flags() Flags { return b.flags }

// Info is static information about the host's virtual memory system,
// read once at process start.
type Info struct {
	PageSize int
}

// WriteBytes copies data into block at offset, failing if the block does
// not currently carry Write or if the write would run past its end. This
// is the only sanctioned way to populate a block once allocated: callers
// must not hold onto and mutate block.Data directly after a Protect call
// has revoked Write, since on some platforms the backing mapping may have
// moved or been marked read-only at the page-table level even though the
// Go slice header still points at the old address.
func WriteBytes(block *Block, data []byte, offset int) error {
	if block.flags&Write == 0 {
		return fmt.Errorf("%w: block is not writable", jiterr.ProtectionFailed)
	}
	if offset < 0 || offset+len(data) > block.Size {
		return fmt.Errorf("%w: write of %d bytes at offset %d overruns a %d-byte block", jiterr.InvalidArgument, len(data), offset, block.Size)
	}
	copy(block.Data[offset:], data)
	return nil
}
