package frame

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/isa/x64"
	"github.com/ngcodegen/corejit/operand"
)

// SysVAMD64 is the System V x86-64 ABI register file: six integer
// argument registers, eight XMM float/vector argument registers, a
// 128-byte red zone below RSP, and no shadow space.
func SysVAMD64() ABIRegs {
	return ABIRegs{
		ArgInts:      []operand.Register{x64.RDI, x64.RSI, x64.RDX, x64.RCX, x64.R8, x64.R9},
		ArgFloats:    []operand.Register{x64.XMM0, x64.XMM1, x64.XMM2, x64.XMM3, x64.XMM4, x64.XMM5, x64.XMM6, x64.XMM7},
		ResultInts:   []operand.Register{x64.RAX, x64.RDX},
		ResultFloats: []operand.Register{x64.XMM0, x64.XMM1},
		CalleeSaved:  []operand.Register{x64.RBX, x64.R12, x64.R13, x64.R14, x64.R15, x64.RBP},
		FrameBase:    x64.RBP,
		StackPtr:     x64.RSP,
		StackAlign:   16,
		RedZone:      128,
	}
}

// Win64AMD64 is the Microsoft x64 ABI: four argument registers shared
// positionally between the integer and float classes — argument i always
// resolves to ArgInts[i] or ArgFloats[i] depending on its own type, so a
// mixed-type call burns the other class's slot i even when that argument
// didn't use it (e.g. (int64, float64) leaves RDX and XMM0 unused) — a
// mandatory 32-byte shadow space the caller reserves for the callee's own
// use, and no red zone. SharedArgSlots is set so ClassifyArgs applies the
// single positional counter this requires instead of SysV/AAPCS's
// independent per-class counters.
func Win64AMD64() ABIRegs {
	return ABIRegs{
		ArgInts:        []operand.Register{x64.RCX, x64.RDX, x64.R8, x64.R9},
		ArgFloats:      []operand.Register{x64.XMM0, x64.XMM1, x64.XMM2, x64.XMM3},
		ResultInts:     []operand.Register{x64.RAX},
		ResultFloats:   []operand.Register{x64.XMM0},
		CalleeSaved:    []operand.Register{x64.RBX, x64.RBP, x64.RSI, x64.RDI, x64.R12, x64.R13, x64.R14, x64.R15},
		FrameBase:      x64.RBP,
		StackPtr:       x64.RSP,
		StackAlign:     16,
		ShadowSpace:    32,
		SharedArgSlots: true,
	}
}

// EmitPrologueX64 appends "push rbp; mov rbp, rsp; sub rsp, N" (N rounded
// to AlignStack) plus a push for every register in layout.PreservedRegs,
// after node in the IR, and returns the last node emitted (so the caller
// can chain further insertions or locate the epilogue's matching point).
func EmitPrologueX64(b *builder.Builder, after *builder.Node, layout Layout) *builder.Node {
	n := after
	ins := func(id isa.Instruction, ops ...operand.Operand) {
		nn := &builder.Node{Kind: builder.NodeInst, Instruction: id, Operands: ops}
		b.InsertAfter(n, nn)
		n = nn
	}
	if layout.PreserveFramePointer {
		ins(x64.PUSH, x64.RBP)
		ins(x64.MOV, x64.RBP, x64.RSP)
	}
	for _, r := range layout.PreservedRegs {
		ins(x64.PUSH, r)
	}
	size := alignUp(layout.LocalStackSize, layout.AlignStack)
	if size > 0 {
		ins(x64.SUB, x64.RSP, operand.Immediate{Value: size})
	}
	return n
}

// EmitEpilogueX64 appends the mirror-image sequence before ret (which the
// caller is expected to have already placed or will place immediately
// after this call): deallocate locals, pop preserved registers in
// reverse, pop rbp.
func EmitEpilogueX64(b *builder.Builder, before *builder.Node, layout Layout) {
	ins := func(id isa.Instruction, ops ...operand.Operand) {
		nn := &builder.Node{Kind: builder.NodeInst, Instruction: id, Operands: ops}
		b.InsertBefore(before, nn)
	}
	size := alignUp(layout.LocalStackSize, layout.AlignStack)
	if size > 0 {
		ins(x64.ADD, x64.RSP, operand.Immediate{Value: size})
	}
	for i := len(layout.PreservedRegs) - 1; i >= 0; i-- {
		ins(x64.POP, layout.PreservedRegs[i])
	}
	if layout.PreserveFramePointer {
		ins(x64.POP, x64.RBP)
	}
}

func alignUp(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
