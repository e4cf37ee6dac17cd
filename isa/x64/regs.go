// Package x64 implements the x86-64 instruction database and assembler
// (spec §4.4, §4.5), modeled closely on internal/asm/amd64 of the
// teacher repository: REX-prefixed ModRM/SIB encoding, a table-driven
// per-instruction operand-signature dispatch, and branch-form selection:
// a backward jump takes the short form when its known distance fits,
// a forward jump takes the near form, and nothing is re-encoded later.
package x64

import "github.com/ngcodegen/corejit/operand"

// Architectural GP register indices (0-15; 8-15 require REX.B/X/R).
const (
	RAXIdx = iota
	RCXIdx
	RDXIdx
	RBXIdx
	RSPIdx
	RBPIdx
	RSIIdx
	RDIIdx
	R8Idx
	R9Idx
	R10Idx
	R11Idx
	R12Idx
	R13Idx
	R14Idx
	R15Idx
)

func gp(idx uint16, w operand.Width) operand.Register {
	return operand.Register{Class: operand.ClassGP, Index: idx, Width: w}
}

// 64-bit GP registers.
var (
	RAX = gp(RAXIdx, operand.Width64)
	RCX = gp(RCXIdx, operand.Width64)
	RDX = gp(RDXIdx, operand.Width64)
	RBX = gp(RBXIdx, operand.Width64)
	RSP = gp(RSPIdx, operand.Width64)
	RBP = gp(RBPIdx, operand.Width64)
	RSI = gp(RSIIdx, operand.Width64)
	RDI = gp(RDIIdx, operand.Width64)
	R8  = gp(R8Idx, operand.Width64)
	R9  = gp(R9Idx, operand.Width64)
	R10 = gp(R10Idx, operand.Width64)
	R11 = gp(R11Idx, operand.Width64)
	R12 = gp(R12Idx, operand.Width64)
	R13 = gp(R13Idx, operand.Width64)
	R14 = gp(R14Idx, operand.Width64)
	R15 = gp(R15Idx, operand.Width64)
)

// 32-bit views of the same architectural indices.
var (
	EAX = gp(RAXIdx, operand.Width32)
	ECX = gp(RCXIdx, operand.Width32)
	EDX = gp(RDXIdx, operand.Width32)
	EBX = gp(RBXIdx, operand.Width32)
	ESP = gp(RSPIdx, operand.Width32)
	EBP = gp(RBPIdx, operand.Width32)
	ESI = gp(RSIIdx, operand.Width32)
	EDI = gp(RDIIdx, operand.Width32)
)

// AH/BH/CH/DH: high-byte legacy encodings, incompatible with any REX prefix.
var (
	AH = operand.Register{Class: operand.ClassGP, Index: RAXIdx, Width: operand.Width8, HighByte: true}
	BH = operand.Register{Class: operand.ClassGP, Index: RBXIdx, Width: operand.Width8, HighByte: true}
	CH = operand.Register{Class: operand.ClassGP, Index: RCXIdx, Width: operand.Width8, HighByte: true}
	DH = operand.Register{Class: operand.ClassGP, Index: RDXIdx, Width: operand.Width8, HighByte: true}
)

// Low-byte registers; SPL/BPL/SIL/DIL force a REX prefix even when it
// would otherwise carry value 0x40, per spec §4.5.
var (
	AL  = gp(RAXIdx, operand.Width8)
	CL  = gp(RCXIdx, operand.Width8)
	DL  = gp(RDXIdx, operand.Width8)
	BL  = gp(RBXIdx, operand.Width8)
	SPL = gp(RSPIdx, operand.Width8)
	BPL = gp(RBPIdx, operand.Width8)
	SIL = gp(RSIIdx, operand.Width8)
	DIL = gp(RDIIdx, operand.Width8)
)

func vec(idx uint16) operand.Register {
	return operand.Register{Class: operand.ClassVector, Index: idx, Width: operand.Width128}
}

// XMM0-XMM7: the ABI-visible subset used for argument/return passing.
var (
	XMM0 = vec(0)
	XMM1 = vec(1)
	XMM2 = vec(2)
	XMM3 = vec(3)
	XMM4 = vec(4)
	XMM5 = vec(5)
	XMM6 = vec(6)
	XMM7 = vec(7)
)

// requiresREXLowByte reports whether r is one of SPL/BPL/SIL/DIL, which
// must always carry a REX prefix to select the low-byte encoding instead
// of the legacy AH/BH/CH/DH encoding that shares the same ModRM bits.
func requiresREXLowByte(r operand.Register) bool {
	return r.Width == operand.Width8 && !r.HighByte &&
		(r.Index == RSPIdx || r.Index == RBPIdx || r.Index == RSIIdx || r.Index == RDIIdx)
}
