// Package arm64 implements the AArch64 instruction database and
// assembler (spec §4.4, §4.5): fixed 32-bit word encoding, with branch
// fixups recorded against the imm26 (B/BL) or imm19 (B.cond/CBZ/CBNZ)
// fields and ADRP/ADD pairs for constant-pool references, modeled on
// internal/asm/arm64 of the teacher repository.
package arm64

import "github.com/ngcodegen/corejit/operand"

// REGZERO (x31 in most contexts) reads as zero and discards writes;
// SP shares the same architectural encoding but is selected by
// instruction choice rather than register index.
const REGZERO = 31

func gp(idx uint16) operand.Register {
	return operand.Register{Class: operand.ClassGP, Index: idx, Width: operand.Width64}
}

func gp32(idx uint16) operand.Register {
	return operand.Register{Class: operand.ClassGP, Index: idx, Width: operand.Width32}
}

var (
	X0  = gp(0)
	X1  = gp(1)
	X2  = gp(2)
	X3  = gp(3)
	X4  = gp(4)
	X5  = gp(5)
	X6  = gp(6)
	X7  = gp(7)
	X8  = gp(8)
	X9  = gp(9)
	X10 = gp(10)
	X11 = gp(11)
	X12 = gp(12)
	X13 = gp(13)
	X14 = gp(14)
	X15 = gp(15)
	X16 = gp(16)
	X17 = gp(17)
	X18 = gp(18)
	X19 = gp(19)
	X20 = gp(20)
	X21 = gp(21)
	X22 = gp(22)
	X23 = gp(23)
	X24 = gp(24)
	X25 = gp(25)
	X26 = gp(26)
	X27 = gp(27)
	X28 = gp(28)
	X29 = gp(29) // frame pointer (FP)
	X30 = gp(30) // link register (LR)
	XZR = gp(REGZERO)
)

var (
	W0 = gp32(0)
	W1 = gp32(1)
	W2 = gp32(2)
)

func vec(idx uint16) operand.Register {
	return operand.Register{Class: operand.ClassVector, Index: idx, Width: operand.Width128}
}

var (
	V0 = vec(0)
	V1 = vec(1)
	V2 = vec(2)
	V3 = vec(3)
	V4 = vec(4)
	V5 = vec(5)
	V6 = vec(6)
	V7 = vec(7)
)

// SP is the architecturally distinct stack pointer; it shares the
// encoded index 31 with XZR but behaves as "sp" in base-register
// addressing contexts and is never usable as a general GP operand.
var SP = operand.Register{Class: operand.ClassGP, Index: 31, Width: operand.Width64}

func regBits(r operand.Register) uint32 { return uint32(r.Index) & 0x1F }
