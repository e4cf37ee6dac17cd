package code

import "github.com/ngcodegen/corejit/operand"

// FixupKind identifies the shape of a deferred patch: its byte width,
// whether it is PC-relative, and (for AArch64) how the immediate field
// is packed into the instruction word.
type FixupKind byte

const (
	// FixupRel8 is a PC-relative signed 8-bit displacement (x86-64 short jump).
	FixupRel8 FixupKind = iota
	// FixupRel32 is a PC-relative signed 32-bit displacement (x86-64 near jump/call).
	FixupRel32
	// FixupAbs32 is an absolute 32-bit value.
	FixupAbs32
	// FixupAbs64 is an absolute 64-bit value.
	FixupAbs64
	// FixupRipRel32 is a RIP-relative signed 32-bit displacement (x86-64 [rip+disp32]).
	FixupRipRel32
	// FixupARM64BImm26 is AArch64 B/BL's imm26 field, word-granular (<<2).
	FixupARM64BImm26
	// FixupARM64BCondImm19 is AArch64 B.cond/CBZ/CBNZ's imm19 field, word-granular (<<2).
	FixupARM64BCondImm19
	// FixupARM64Adrp is AArch64 ADRP's page-relative imm21, page-granular (<<12).
	FixupARM64Adrp
	// FixupARM64AddLow12 is the low-12-bits-of-address immediate on the
	// ADD that follows an ADRP in a constant-pool address materialization.
	FixupARM64AddLow12
)

// Width reports the number of bytes a fixup kind patches in place, for
// kinds with a fixed-size encoded field (x86-64). AArch64 kinds pack
// into a full 4-byte instruction word already present in the buffer and
// return 4.
func (k FixupKind) Width() int {
	switch k {
	case FixupRel8:
		return 1
	case FixupRel32, FixupAbs32, FixupRipRel32:
		return 4
	case FixupAbs64:
		return 8
	case FixupARM64BImm26, FixupARM64BCondImm19, FixupARM64Adrp, FixupARM64AddLow12:
		return 4
	default:
		return 0
	}
}

// Fixup is one deferred patch: at offset Offset (the first byte of the
// patched field, or of the instruction word on AArch64), of kind Kind,
// targeting Label, plus Addend added to the computed displacement.
type Fixup struct {
	Offset uint64
	Kind   FixupKind
	Label  operand.Label
	Addend int64
}
