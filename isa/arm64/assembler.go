package arm64

import (
	"fmt"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// Assembler encodes individual AArch64 instructions directly into a
// code.CodeHolder, one 32-bit word at a time.
type Assembler struct {
	CH *code.CodeHolder
}

func NewAssembler(ch *code.CodeHolder) *Assembler {
	return &Assembler{CH: ch}
}

func emitWord(ch *code.CodeHolder, w uint32) (uint64, error) {
	return ch.Emit([]byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)})
}

// MOV copies src into dst using ORR dst, XZR, src (the canonical AArch64
// register-move idiom; there is no dedicated register-register MOV
// opcode).
func (a *Assembler) MOV(dst, src operand.Register) error {
	sf := sizeBit(dst.Width)
	word := (sf << 31) | (0b0101010 << 24) | (regBits(src) << 16) | (regBits(XZR) << 5) | regBits(dst)
	_, err := emitWord(a.CH, word)
	return err
}

// MOVZImm loads a 16-bit immediate into dst, zero-extended, at shift*16 bits.
func (a *Assembler) MOVZImm(dst operand.Register, imm16 uint16, shift uint8) error {
	if shift > 3 {
		return fmt.Errorf("%w: movz shift must be 0-3 (16-bit units)", jiterr.InvalidArgument)
	}
	sf := sizeBit(dst.Width)
	word := (sf << 31) | (0b10100101 << 23) | (uint32(shift) << 21) | (uint32(imm16) << 5) | regBits(dst)
	_, err := emitWord(a.CH, word)
	return err
}

func sizeBit(w operand.Width) uint32 {
	if w == operand.Width64 {
		return 1
	}
	return 0
}

// addSub encodes ADD/SUB (shifted register, shift=0) or ADD/SUB
// (immediate, 12-bit unsigned) depending on whether c is a register or
// an immediate operand.
func (a *Assembler) addSub(sub bool, setFlags bool, dst, src1 operand.Register, c operand.Operand) error {
	sf := sizeBit(dst.Width)
	var s uint32
	if setFlags {
		s = 1
	}
	var op uint32
	if sub {
		op = 1
	}
	if imm, ok := c.(operand.Immediate); ok {
		if imm.Value < 0 || imm.Value > 0xFFF {
			return fmt.Errorf("%w: add/sub immediate must fit 12 unsigned bits", jiterr.InvalidArgument)
		}
		word := (sf << 31) | (op << 30) | (s << 29) | (0b10001 << 24) | (uint32(imm.Value) << 10) | (regBits(src1) << 5) | regBits(dst)
		_, err := emitWord(a.CH, word)
		return err
	}
	if reg, ok := c.(operand.Register); ok {
		word := (sf << 31) | (op << 30) | (s << 29) | (0b01011 << 24) | (regBits(reg) << 16) | (regBits(src1) << 5) | regBits(dst)
		_, err := emitWord(a.CH, word)
		return err
	}
	return fmt.Errorf("%w: add/sub operand must be register or immediate", jiterr.OperandMismatch)
}

func (a *Assembler) ADD(dst, src1 operand.Register, c operand.Operand) error {
	return a.addSub(false, false, dst, src1, c)
}

func (a *Assembler) SUB(dst, src1 operand.Register, c operand.Operand) error {
	return a.addSub(true, false, dst, src1, c)
}

// CMP is SUBS with a discarded destination (XZR).
func (a *Assembler) CMP(src1 operand.Register, c operand.Operand) error {
	return a.addSub(true, true, XZR.WithWidth(src1.Width), src1, c)
}

// logical encodes AND/ORR/EOR (shifted register, shift=0).
func (a *Assembler) logical(opc uint32, dst, src1, src2 operand.Register) error {
	sf := sizeBit(dst.Width)
	word := (sf << 31) | (opc << 29) | (0b01010 << 24) | (regBits(src2) << 16) | (regBits(src1) << 5) | regBits(dst)
	_, err := emitWord(a.CH, word)
	return err
}

func (a *Assembler) AND(dst, src1, src2 operand.Register) error { return a.logical(0b00, dst, src1, src2) }
func (a *Assembler) ORR(dst, src1, src2 operand.Register) error { return a.logical(0b01, dst, src1, src2) }
func (a *Assembler) EOR(dst, src1, src2 operand.Register) error { return a.logical(0b10, dst, src1, src2) }

// MVN dst = ~src (ORN dst, XZR, src with the shifted-register NOT bit set).
func (a *Assembler) MVN(dst, src operand.Register) error {
	sf := sizeBit(dst.Width)
	const n = 1
	word := (sf << 31) | (0b01 << 29) | (0b01010 << 24) | (n << 21) | (regBits(src) << 16) | (regBits(XZR) << 5) | regBits(dst)
	_, err := emitWord(a.CH, word)
	return err
}

// NEG dst = -src (SUB dst, XZR, src).
func (a *Assembler) NEG(dst, src operand.Register) error {
	return a.SUB(dst, XZR.WithWidth(dst.Width), src)
}

// MUL dst = src1 * src2 (MADD dst, src1, src2, XZR).
func (a *Assembler) MUL(dst, src1, src2 operand.Register) error {
	sf := sizeBit(dst.Width)
	word := (sf << 31) | (0b0011011000 << 21) | (regBits(src2) << 16) | (regBits(XZR) << 10) | (regBits(src1) << 5) | regBits(dst)
	_, err := emitWord(a.CH, word)
	return err
}

// shiftImm encodes LSL/LSR/ASR by immediate as the corresponding UBFM/SBFM alias.
func (a *Assembler) shiftImm(id isa.Instruction, dst, src operand.Register, amount uint8) error {
	bits := uint32(dst.Width)
	if amount >= uint8(bits) {
		return fmt.Errorf("%w: shift amount out of range", jiterr.InvalidArgument)
	}
	sf := sizeBit(dst.Width)
	n := sf
	var immr, imms uint32
	switch id {
	case LSL:
		immr = (bits - uint32(amount)) % bits
		imms = bits - 1 - uint32(amount)
	case LSR:
		immr = uint32(amount)
		imms = bits - 1
	case ASR:
		immr = uint32(amount)
		imms = bits - 1
	default:
		return fmt.Errorf("%w: %s is not a shift instruction", jiterr.UnknownInstruction, InstructionName(id))
	}
	var opc uint32
	if id == ASR {
		opc = 0b00
	} else {
		opc = 0b10 // UBFM for LSL/LSR
	}
	word := (sf << 31) | (opc << 29) | (0b100110 << 23) | (n << 22) | (immr << 16) | (imms << 10) | (regBits(src) << 5) | regBits(dst)
	_, err := emitWord(a.CH, word)
	return err
}

func (a *Assembler) LSL(dst, src operand.Register, amount uint8) error {
	return a.shiftImm(LSL, dst, src, amount)
}
func (a *Assembler) LSR(dst, src operand.Register, amount uint8) error {
	return a.shiftImm(LSR, dst, src, amount)
}
func (a *Assembler) ASR(dst, src operand.Register, amount uint8) error {
	return a.shiftImm(ASR, dst, src, amount)
}

// LDR/STR (unsigned immediate offset, scaled by access size, 12-bit field).
func (a *Assembler) ldSt(load bool, rt operand.Register, base operand.Register, offset int64) error {
	if offset < 0 {
		return fmt.Errorf("%w: unsigned-offset ldr/str requires offset >= 0", jiterr.InvalidArgument)
	}
	size := ldStSizeBits(rt.Width)
	scale := uint32(rt.Width) / 8
	if offset%int64(scale) != 0 {
		return fmt.Errorf("%w: offset must be a multiple of the access size", jiterr.InvalidArgument)
	}
	imm12 := uint32(offset / int64(scale))
	if imm12 > 0xFFF {
		return fmt.Errorf("%w: offset does not fit a 12-bit scaled field", jiterr.DisplacementOverflow)
	}
	var opc uint32
	if load {
		opc = 0b01
	}
	word := (size << 30) | (0b111001 << 24) | (opc << 22) | (imm12 << 10) | (regBits(base) << 5) | regBits(rt)
	_, err := emitWord(a.CH, word)
	return err
}

func ldStSizeBits(w operand.Width) uint32 {
	switch w {
	case operand.Width8:
		return 0b00
	case operand.Width16:
		return 0b01
	case operand.Width32:
		return 0b10
	default:
		return 0b11
	}
}

func (a *Assembler) LDR(rt operand.Register, base operand.Register, offset int64) error {
	return a.ldSt(true, rt, base, offset)
}

func (a *Assembler) STR(rt operand.Register, base operand.Register, offset int64) error {
	return a.ldSt(false, rt, base, offset)
}

// StpPreIndex encodes "stp rt1, rt2, [base, #imm]!" (pre-index, writeback),
// the standard frame-pointer/link-register push used in prologues.
func (a *Assembler) StpPreIndex(rt1, rt2, base operand.Register, imm int64) error {
	return a.stp(rt1, rt2, base, imm, 0b11, false)
}

// LdpPostIndex encodes "ldp rt1, rt2, [base], #imm" (post-index, writeback),
// the standard frame-pointer/link-register pop used in epilogues.
func (a *Assembler) LdpPostIndex(rt1, rt2, base operand.Register, imm int64) error {
	return a.stp(rt1, rt2, base, imm, 0b01, true)
}

func (a *Assembler) stp(rt1, rt2, base operand.Register, imm int64, indexBits uint32, load bool) error {
	scale := int64(8)
	if rt1.Width != operand.Width64 {
		scale = 4
	}
	if imm%scale != 0 {
		return fmt.Errorf("%w: stp/ldp offset must be a multiple of the register width", jiterr.InvalidArgument)
	}
	imm7 := (imm / scale) & 0x7F
	opc := uint32(0b10)
	if rt1.Width != operand.Width64 {
		opc = 0
	}
	var l uint32
	if load {
		l = 1
	}
	word := (opc << 30) | (0b101 << 27) | (indexBits << 23) | (l << 22) | (uint32(imm7) << 15) | (regBits(rt2) << 10) | (regBits(base) << 5) | regBits(rt1)
	_, err := emitWord(a.CH, word)
	return err
}

// RET returns via x30 (the link register) by default.
func (a *Assembler) RET() error {
	return a.RETReg(X30)
}

// RET/BR/BLR word encodings: "unconditional branch (register)", opc in
// bits [24:21] (0000=BR, 0001=BLR, 0010=RET) over a fixed 0xD6... base.
const (
	brBase  = 0xD61F0000
	blrBase = 0xD63F0000
	retBase = 0xD65F0000
)

func (a *Assembler) RETReg(r operand.Register) error {
	word := uint32(retBase) | (regBits(r) << 5)
	_, err := emitWord(a.CH, word)
	return err
}

// BLR branches with link to an address held in a register.
func (a *Assembler) BLR(r operand.Register) error {
	word := uint32(blrBase) | (regBits(r) << 5)
	_, err := emitWord(a.CH, word)
	return err
}

// BR branches (no link) to an address held in a register.
func (a *Assembler) BR(r operand.Register) error {
	word := uint32(brBase) | (regBits(r) << 5)
	_, err := emitWord(a.CH, word)
	return err
}

// NOP emits the architectural NOP (HINT #0).
func (a *Assembler) NOP() error {
	_, err := emitWord(a.CH, 0xD503201F)
	return err
}

// B emits an unconditional branch to label, recording a fixup if the
// label is not yet bound, matching EncodeRelativeBranch's placeholder
// discipline.
func (a *Assembler) B(label operand.Label) error {
	return a.branch(label, 0x14000000, code.FixupARM64BImm26)
}

// BL emits a branch-with-link to label.
func (a *Assembler) BL(label operand.Label) error {
	return a.branch(label, 0x94000000, code.FixupARM64BImm26)
}

func (a *Assembler) branch(label operand.Label, opcodeBase uint32, kind code.FixupKind) error {
	if a.CH.IsBound(label) {
		target := a.CH.LabelOffset(label)
		disp := int64(target) - int64(a.CH.Offset())
		word, err := encodeImm26(opcodeBase, disp)
		if err != nil {
			return err
		}
		_, err = emitWord(a.CH, word)
		return err
	}
	off, err := emitWord(a.CH, opcodeBase)
	if err != nil {
		return err
	}
	return a.CH.AddFixup(off, kind, label, 0)
}

func encodeImm26(opcodeBase uint32, disp int64) (uint32, error) {
	if disp%4 != 0 || disp < -(1<<25)*4 || disp >= (1<<25)*4 {
		return 0, fmt.Errorf("%w: b/bl displacement %d out of range", jiterr.DisplacementOverflow, disp)
	}
	imm26 := uint32(disp/4) & 0x03FFFFFF
	return opcodeBase | imm26, nil
}

// BCond emits a conditional branch on cc to label.
func (a *Assembler) BCond(cc isa.ConditionCode, label operand.Label) error {
	opcodeBase := uint32(0b01010100<<24) | condBits(cc)
	if a.CH.IsBound(label) {
		target := a.CH.LabelOffset(label)
		disp := int64(target) - int64(a.CH.Offset())
		word, err := encodeImm19(opcodeBase, disp)
		if err != nil {
			return err
		}
		_, err = emitWord(a.CH, word)
		return err
	}
	off, err := emitWord(a.CH, opcodeBase)
	if err != nil {
		return err
	}
	return a.CH.AddFixup(off, code.FixupARM64BCondImm19, label, 0)
}

func encodeImm19(opcodeBase uint32, disp int64) (uint32, error) {
	if disp%4 != 0 || disp < -(1<<18)*4 || disp >= (1<<18)*4 {
		return 0, fmt.Errorf("%w: b.cond displacement %d out of range", jiterr.DisplacementOverflow, disp)
	}
	imm19 := uint32(disp/4) & 0x7FFFF
	return opcodeBase | (imm19 << 5), nil
}

// CBZ/CBNZ branch on rt == 0 / rt != 0.
func (a *Assembler) CBZ(rt operand.Register, label operand.Label) error {
	return a.cbz(rt, label, false)
}

func (a *Assembler) CBNZ(rt operand.Register, label operand.Label) error {
	return a.cbz(rt, label, true)
}

func (a *Assembler) cbz(rt operand.Register, label operand.Label, nz bool) error {
	sf := sizeBit(rt.Width)
	var op uint32
	if nz {
		op = 1
	}
	opcodeBase := (sf << 31) | (0b011010 << 25) | (op << 24) | regBits(rt)
	if a.CH.IsBound(label) {
		target := a.CH.LabelOffset(label)
		disp := int64(target) - int64(a.CH.Offset())
		word, err := encodeImm19(opcodeBase, disp)
		if err != nil {
			return err
		}
		_, err = emitWord(a.CH, word)
		return err
	}
	off, err := emitWord(a.CH, opcodeBase)
	if err != nil {
		return err
	}
	return a.CH.AddFixup(off, code.FixupARM64BCondImm19, label, 0)
}

// AdrpAdd emits the page-relative ADRP + ADD pair used to materialize a
// constant-pool address into dst. It records two fixups against the same
// label: an ADRP page fixup on the first word and a low-12-bit fixup on
// the ADD that follows it.
func (a *Assembler) AdrpAdd(dst operand.Register, label operand.Label) error {
	off, err := emitWord(a.CH, 0x90000000|regBits(dst))
	if err != nil {
		return err
	}
	if err := a.CH.AddFixup(off, code.FixupARM64Adrp, label, 0); err != nil {
		return err
	}
	// ADD dst, dst, #0 placeholder; the low-12 offset is folded in by a
	// second fixup sharing the same label via a page-offset-only kind.
	// ADRP supplies the 4 KiB page, so the ADD's immediate is simply the
	// low 12 bits of the label's offset, patched as a 12-bit unsigned
	// immediate.
	return a.addLow12(dst, dst, label)
}

func (a *Assembler) addLow12(dst, src operand.Register, label operand.Label) error {
	off, err := emitWord(a.CH, (1<<31)|(0b10001<<24)|(regBits(src)<<5)|regBits(dst))
	if err != nil {
		return err
	}
	return a.CH.AddFixup(off, code.FixupARM64AddLow12, label, 0)
}
