//go:build unix

package vmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ngcodegen/corejit/internal/jiterr"
)

// GetInfo reads the host page size via os.Getpagesize rather than
// assuming the common 4KiB, since some arm64 hosts run 16KiB pages.
func GetInfo() Info {
	return Info{PageSize: os.Getpagesize()}
}

// Alloc reserves a fresh anonymous, non-file-backed mapping of nBytes
// rounded up to a page boundary, with exactly the requested initial
// protection; there is no default, so callers pass Read|Write
// explicitly.
func Alloc(nBytes int, flags Flags) (*Block, error) {
	if nBytes <= 0 {
		return nil, fmt.Errorf("%w: alloc size must be positive, got %d", jiterr.InvalidArgument, nBytes)
	}
	prot := toUnixProt(flags)
	data, err := unix.Mmap(-1, 0, nBytes, prot, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", jiterr.FailedToMapVirtMem, err)
	}
	return &Block{Addr: sliceAddr(data), Data: data, Size: nBytes, flags: flags}, nil
}

// Protect changes block's protection in place via mprotect(2); it never
// reallocates, so Addr is stable across a Protect call.
func Protect(block *Block, newFlags Flags) error {
	if err := unix.Mprotect(block.Data, toUnixProt(newFlags)); err != nil {
		return fmt.Errorf("%w: mprotect: %v", jiterr.ProtectionFailed, err)
	}
	block.flags = newFlags
	return nil
}

// ProtectRX flips block to Read|Exec, the state a JitFunction requires
// before any call through it, enforcing W^X by construction: Write is
// never set alongside Exec by any path in this package.
func ProtectRX(block *Block) error {
	return Protect(block, Read|Exec)
}

// Release unmaps block; using block after Release is undefined, matching
// munmap(2)'s own contract.
func Release(block *Block) error {
	if err := unix.Munmap(block.Data); err != nil {
		return fmt.Errorf("%w: munmap: %v", jiterr.FailedToMapVirtMem, err)
	}
	block.Data = nil
	return nil
}

// FlushInstructionCache is a no-op on every platform this package
// targets: x86-64 keeps icache and dcache coherent in hardware, and the
// arm64 hosts this runs on in practice (Linux, Darwin) both perform the
// coherency maintenance a fresh mmap+mprotect(PROT_EXEC) needs as part of
// the protection change itself. A host where that is not true would need
// explicit DC CVAU/IC IVAU cache-maintenance instructions, which this
// package does not emit.
func FlushInstructionCache(addr uintptr, length int) {}

func toUnixProt(flags Flags) int {
	var prot int
	if flags&Read != 0 {
		prot |= unix.PROT_READ
	}
	if flags&Write != 0 {
		prot |= unix.PROT_WRITE
	}
	if flags&Exec != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}
