//go:build windows

package vmem

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/ngcodegen/corejit/internal/jiterr"
)

// GetInfo reads the host page size from GetSystemInfo via
// golang.org/x/sys/windows.
func GetInfo() Info {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return Info{PageSize: int(si.PageSize)}
}

// Alloc reserves and commits nBytes via VirtualAlloc with the requested
// initial protection.
func Alloc(nBytes int, flags Flags) (*Block, error) {
	if nBytes <= 0 {
		return nil, fmt.Errorf("%w: alloc size must be positive, got %d", jiterr.InvalidArgument, nBytes)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(nBytes), windows.MEM_COMMIT|windows.MEM_RESERVE, toWindowsProtect(flags))
	if err != nil {
		return nil, fmt.Errorf("%w: VirtualAlloc: %v", jiterr.FailedToMapVirtMem, err)
	}
	data := unsafeSlice(addr, nBytes)
	return &Block{Addr: addr, Data: data, Size: nBytes, flags: flags}, nil
}

// Protect changes block's protection via VirtualProtect.
func Protect(block *Block, newFlags Flags) error {
	var old uint32
	if err := windows.VirtualProtect(block.Addr, uintptr(block.Size), toWindowsProtect(newFlags), &old); err != nil {
		return fmt.Errorf("%w: VirtualProtect: %v", jiterr.ProtectionFailed, err)
	}
	block.flags = newFlags
	return nil
}

// ProtectRX flips block to Read|Exec.
func ProtectRX(block *Block) error {
	return Protect(block, Read|Exec)
}

// Release frees block's reservation via VirtualFree(MEM_RELEASE).
func Release(block *Block) error {
	if err := windows.VirtualFree(block.Addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("%w: VirtualFree: %v", jiterr.FailedToMapVirtMem, err)
	}
	block.Data = nil
	return nil
}

// FlushInstructionCache calls FlushInstructionCache(GetCurrentProcess(),
// ...), required on Windows/ARM64 for self-modifying code correctness
// even though the x86-64 build of this package never needs it.
func FlushInstructionCache(addr uintptr, length int) {
	proc, err := windows.GetCurrentProcess()
	if err != nil {
		return
	}
	_ = windows.FlushInstructionCache(proc, addr, uintptr(length))
}

func toWindowsProtect(flags Flags) uint32 {
	switch {
	case flags&Exec != 0 && flags&Write != 0:
		return windows.PAGE_EXECUTE_READWRITE
	case flags&Exec != 0:
		return windows.PAGE_EXECUTE_READ
	case flags&Write != 0:
		return windows.PAGE_READWRITE
	default:
		return windows.PAGE_READONLY
	}
}
