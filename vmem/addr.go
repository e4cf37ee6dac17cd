package vmem

import "unsafe"

// sliceAddr returns the process address backing data's first byte. It
// populates Block.Addr, the address a jitrt.JitFunction hands out and
// calls as its entry point; reads/writes go through Block.Data.
func sliceAddr(data []byte) uintptr {
	if len(data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&data[0]))
}

// unsafeSlice views a raw VirtualAlloc address as a Go byte slice for
// the RW phase of a Block's lifetime, on Windows where the allocator
// hands back an address rather than a slice the way unix.Mmap does.
func unsafeSlice(addr uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
}
