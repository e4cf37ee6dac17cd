package x64

import (
	"fmt"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// Assembler encodes individual x86-64 instructions directly into a
// code.CodeHolder. It carries no IR of its own; it is the direct-encode
// half of capability composition described in spec §9 ("one concrete
// type per architecture implementing a small Emitter capability"), the
// Builder (package builder) implements the same capability by recording
// nodes instead of bytes.
type Assembler struct {
	CH *code.CodeHolder

	// EnablePadding turns on Intel-JCC-erratum-style NOP padding so that a
	// forward (near-form) JMP or Jcc does not straddle a 32-byte boundary,
	// matching the teacher's maybeNOPPadding pass. CALL and backward jumps
	// are not padded.
	EnablePadding bool
}

// NewAssembler creates an Assembler writing into ch.
func NewAssembler(ch *code.CodeHolder) *Assembler {
	return &Assembler{CH: ch}
}

func regOf(o operand.Operand) (operand.Register, bool) {
	r, ok := o.(operand.Register)
	return r, ok
}

func memOf(o operand.Operand) (operand.Memory, bool) {
	m, ok := o.(operand.Memory)
	return m, ok
}

func immOf(o operand.Operand) (operand.Immediate, bool) {
	i, ok := o.(operand.Immediate)
	return i, ok
}

// --- mov / arithmetic family -----------------------------------------

// opcodeRR describes a reg/reg or reg/mem ALU opcode pair: the opcode
// used when the ModRM.reg field is the destination (reg <- r/m) and the
// one used when it's the source (r/m <- reg), mirroring x86's dual
// opcode-direction encoding for ADD/SUB/CMP/AND/OR/XOR/TEST/MOV.
type opcodeRR struct {
	rmToReg byte // e.g. 0x03 for ADD r, r/m
	regToRM byte // e.g. 0x01 for ADD r/m, r
	imm8    byte // opcode for r/m, imm8 (group1 uses 0x83 with a /digit extension)
	imm32   byte // opcode for r/m, imm32 (group1 uses 0x81 with a /digit extension)
	ext     byte // /digit ModRM.reg extension for the group1 immediate forms
}

var aluOpcodes = map[isa.Instruction]opcodeRR{
	ADD: {rmToReg: 0x03, regToRM: 0x01, imm8: 0x83, imm32: 0x81, ext: 0},
	OR:  {rmToReg: 0x0B, regToRM: 0x09, imm8: 0x83, imm32: 0x81, ext: 1},
	AND: {rmToReg: 0x23, regToRM: 0x21, imm8: 0x83, imm32: 0x81, ext: 4},
	SUB: {rmToReg: 0x2B, regToRM: 0x29, imm8: 0x83, imm32: 0x81, ext: 5},
	XOR: {rmToReg: 0x33, regToRM: 0x31, imm8: 0x83, imm32: 0x81, ext: 6},
	CMP: {rmToReg: 0x3B, regToRM: 0x39, imm8: 0x83, imm32: 0x81, ext: 7},
}

// alu emits one of the ADD/SUB/CMP/AND/OR/XOR family to dst, src.
func (a *Assembler) alu(id isa.Instruction, dst, src operand.Operand) error {
	oc, ok := aluOpcodes[id]
	if !ok {
		return fmt.Errorf("%w: %s is not an ALU instruction", jiterr.UnknownInstruction, InstructionName(id))
	}

	if dstReg, ok := regOf(dst); ok {
		if srcReg, ok := regOf(src); ok {
			// ALU "r/m, reg" opcode form: ModRM.reg=src, ModRM.rm=dst.
			return a.emitRegReg(oc.regToRM, dstReg, srcReg)
		}
		if srcMem, ok := memOf(src); ok {
			return a.emitRegMem(oc.rmToReg, dstReg, srcMem)
		}
		if srcImm, ok := immOf(src); ok {
			return a.emitRegImm(oc, dstReg, srcImm)
		}
	}
	if dstMem, ok := memOf(dst); ok {
		if srcReg, ok := regOf(src); ok {
			return a.emitMemReg(oc.regToRM, dstMem, srcReg)
		}
		if srcImm, ok := immOf(src); ok {
			return a.emitMemImm(oc, dstMem, srcImm)
		}
	}
	return fmt.Errorf("%w: %s %s, %s", jiterr.OperandMismatch, InstructionName(id), dst, src)
}

func (a *Assembler) ADD(dst, src operand.Operand) error { return a.alu(ADD, dst, src) }
func (a *Assembler) SUB(dst, src operand.Operand) error { return a.alu(SUB, dst, src) }
func (a *Assembler) CMP(dst, src operand.Operand) error { return a.alu(CMP, dst, src) }
func (a *Assembler) AND(dst, src operand.Operand) error { return a.alu(AND, dst, src) }
func (a *Assembler) OR(dst, src operand.Operand) error  { return a.alu(OR, dst, src) }
func (a *Assembler) XOR(dst, src operand.Operand) error { return a.alu(XOR, dst, src) }

// emitRegReg emits a reg<->reg ALU/MOV form. opcode must be an "r/m, reg"
// form (e.g. 0x01 ADD r/m,r): it is encoded with ModRM.reg=src and
// ModRM.rm=dst, so dst receives the result.
func (a *Assembler) emitRegReg(opcode byte, dst, src operand.Register) error {
	if dst.HighByte || src.HighByte {
		if dst.Width != operand.Width8 || src.Width != operand.Width8 {
			return fmt.Errorf("%w: high-byte register at non-8-bit width", jiterr.OperandMismatch)
		}
	}
	modrm, prefix, err := regRegModRM(src, dst) // ModRM.reg=src, ModRM.rm=dst matches "r/m,reg" opcodes
	if err != nil {
		return err
	}
	forceLow := requiresREXLowByte(dst) || requiresREXLowByte(src)
	buf := make([]byte, 0, 4)
	if rb := rexByteIfNeeded(prefix, dst.Width, forceLow); rb != nil {
		buf = append(buf, rb...)
	}
	if dst.Width == operand.Width16 {
		buf = append([]byte{0x66}, buf...)
	}
	buf = append(buf, opcode, modrm)
	_, err = a.CH.Emit(buf)
	return err
}

func (a *Assembler) emitRegMem(opcode byte, dst operand.Register, src operand.Memory) error {
	regBits, rp := register3bits(dst, fieldReg)
	memBytes, mp, rip, err := encodeMemory(regBits, src)
	if err != nil {
		return err
	}
	forceLow := requiresREXLowByte(dst)
	buf := make([]byte, 0, 8)
	if rb := rexByteIfNeeded(rp|mp, dst.Width, forceLow); rb != nil {
		buf = append(buf, rb...)
	}
	buf = append(buf, opcode)
	buf = append(buf, memBytes...)
	var ripFixupAt int = -1
	if rip {
		ripFixupAt = len(buf)
		buf = append(buf, 0, 0, 0, 0)
	}
	off, err := a.CH.Emit(buf)
	if err != nil {
		return err
	}
	if rip {
		return a.CH.AddFixup(off+uint64(ripFixupAt), code.FixupRipRel32, *src.RIPLabel, src.Displacement)
	}
	return nil
}

func (a *Assembler) emitMemReg(opcode byte, dst operand.Memory, src operand.Register) error {
	return a.emitRegMem(opcode, src, dst)
}

func (a *Assembler) emitRegImm(oc opcodeRR, dst operand.Register, imm operand.Immediate) error {
	modrmReg, rp2 := register3bits(dst, fieldRM)
	forceLow := requiresREXLowByte(dst)
	buf := make([]byte, 0, 8)
	if rb := rexByteIfNeeded(rp2, dst.Width, forceLow); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (oc.ext << 3) | modrmReg
	if imm.FitsInt8() && dst.Width != operand.Width8 {
		buf = append(buf, oc.imm8, modrm, byte(int8(imm.Value)))
	} else if dst.Width == operand.Width8 {
		buf = append(buf, 0x80, modrm, byte(imm.Value))
	} else if imm.FitsInt32() {
		buf = append(buf, oc.imm32, modrm)
		buf = append(buf, le32(int32(imm.Value))...)
	} else {
		return fmt.Errorf("%w: immediate %d does not fit", jiterr.DisplacementOverflow, imm.Value)
	}
	_, err := a.CH.Emit(buf)
	return err
}

func (a *Assembler) emitMemImm(oc opcodeRR, dst operand.Memory, imm operand.Immediate) error {
	memBytes, mp, rip, err := encodeMemory(oc.ext, dst)
	if err != nil {
		return err
	}
	if rip {
		return fmt.Errorf("%w: rip-relative read-modify-write not supported", jiterr.OperandMismatch)
	}
	w := dst.Size
	buf := make([]byte, 0, 12)
	if rb := rexByteIfNeeded(mp, w, false); rb != nil {
		buf = append(buf, rb...)
	}
	if w == operand.Width8 {
		buf = append(buf, 0x80)
		buf = append(buf, memBytes...)
		buf = append(buf, byte(imm.Value))
	} else if imm.FitsInt8() && oc.imm8 != oc.imm32 {
		buf = append(buf, oc.imm8)
		buf = append(buf, memBytes...)
		buf = append(buf, byte(int8(imm.Value)))
	} else {
		buf = append(buf, oc.imm32)
		buf = append(buf, memBytes...)
		buf = append(buf, le32(int32(imm.Value))...)
	}
	_, err = a.CH.Emit(buf)
	return err
}

// MOV covers reg<-reg, reg<-mem, mem<-reg, and reg<-imm forms. Unlike
// the ALU family, MOV has its own opcode space (0x88-0x8B, 0xB8+r,
// 0xC7/0) rather than a group1 ext.
func (a *Assembler) MOV(dst, src operand.Operand) error {
	if dstReg, ok := regOf(dst); ok {
		if srcReg, ok := regOf(src); ok {
			op := byte(0x89)
			if dstReg.Width == operand.Width8 {
				op = 0x88
			}
			return a.emitRegReg(op, dstReg, srcReg)
		}
		if srcMem, ok := memOf(src); ok {
			op := byte(0x8B)
			if dstReg.Width == operand.Width8 {
				op = 0x8A
			}
			return a.emitRegMem(op, dstReg, srcMem)
		}
		if srcImm, ok := immOf(src); ok {
			return a.movRegImm(dstReg, srcImm)
		}
	}
	if dstMem, ok := memOf(dst); ok {
		if srcReg, ok := regOf(src); ok {
			op := byte(0x89)
			if srcReg.Width == operand.Width8 {
				op = 0x88
			}
			return a.emitMemReg(op, dstMem, srcReg)
		}
		if srcImm, ok := immOf(src); ok {
			return a.emitMemImm(opcodeRR{imm8: 0xC7, imm32: 0xC7, ext: 0}, dstMem, srcImm)
		}
	}
	return fmt.Errorf("%w: mov %s, %s", jiterr.OperandMismatch, dst, src)
}

func (a *Assembler) movRegImm(dst operand.Register, imm operand.Immediate) error {
	bits, rp := register3bits(dst, fieldOpcodeEmbedded)
	forceLow := requiresREXLowByte(dst)
	buf := make([]byte, 0, 10)
	if dst.Width == operand.Width64 {
		if rb := rexByteIfNeeded(rp, operand.Width64, forceLow); rb != nil {
			buf = append(buf, rb...)
		}
		buf = append(buf, 0xB8+bits)
		buf = append(buf, le64(imm.Value)...)
	} else {
		if rb := rexByteIfNeeded(rp, dst.Width, forceLow); rb != nil {
			buf = append(buf, rb...)
		}
		switch dst.Width {
		case operand.Width8:
			buf = append(buf, 0xB0+bits, byte(imm.Value))
		case operand.Width16:
			buf = append(buf, 0x66, 0xB8+bits, byte(imm.Value), byte(imm.Value>>8))
		default:
			buf = append(buf, 0xB8+bits)
			buf = append(buf, le32(int32(imm.Value))...)
		}
	}
	_, err := a.CH.Emit(buf)
	return err
}

// LEA computes a memory operand's effective address into dst.
func (a *Assembler) LEA(dst operand.Register, src operand.Memory) error {
	return a.emitRegMem(0x8D, dst, src)
}

// TEST sets flags from dst & src without storing, covering reg/reg and
// reg/imm forms.
func (a *Assembler) TEST(dst, src operand.Operand) error {
	dstReg, ok := regOf(dst)
	if !ok {
		return fmt.Errorf("%w: test requires a register destination", jiterr.OperandMismatch)
	}
	if srcReg, ok := regOf(src); ok {
		op := byte(0x85)
		if dstReg.Width == operand.Width8 {
			op = 0x84
		}
		return a.emitRegReg(op, dstReg, srcReg) // note: TEST's ModRM.reg is also the "source" operand, symmetric op
	}
	if srcImm, ok := immOf(src); ok {
		bits, rp := register3bits(dstReg, fieldRM)
		forceLow := requiresREXLowByte(dstReg)
		buf := make([]byte, 0, 8)
		if rb := rexByteIfNeeded(rp, dstReg.Width, forceLow); rb != nil {
			buf = append(buf, rb...)
		}
		modrm := byte(0b1100_0000) | bits
		if dstReg.Width == operand.Width8 {
			buf = append(buf, 0xF6, modrm, byte(srcImm.Value))
		} else {
			buf = append(buf, 0xF7, modrm)
			buf = append(buf, le32(int32(srcImm.Value))...)
		}
		_, err := a.CH.Emit(buf)
		return err
	}
	return fmt.Errorf("%w: test %s, %s", jiterr.OperandMismatch, dst, src)
}

// --- group3/group5 single-operand forms ------------------------------

func (a *Assembler) unaryGroup3(ext byte, dst operand.Register) error {
	bits, rp := register3bits(dst, fieldRM)
	forceLow := requiresREXLowByte(dst)
	buf := make([]byte, 0, 4)
	if rb := rexByteIfNeeded(rp, dst.Width, forceLow); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (ext << 3) | bits
	op := byte(0xF7)
	if dst.Width == operand.Width8 {
		op = 0xF6
	}
	buf = append(buf, op, modrm)
	_, err := a.CH.Emit(buf)
	return err
}

func (a *Assembler) NOT(dst operand.Register) error { return a.unaryGroup3(2, dst) }
func (a *Assembler) NEG(dst operand.Register) error { return a.unaryGroup3(3, dst) }

func (a *Assembler) incDec(ext byte, dst operand.Register) error {
	bits, rp := register3bits(dst, fieldRM)
	forceLow := requiresREXLowByte(dst)
	buf := make([]byte, 0, 4)
	if rb := rexByteIfNeeded(rp, dst.Width, forceLow); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (ext << 3) | bits
	op := byte(0xFF)
	if dst.Width == operand.Width8 {
		op = 0xFE
	}
	buf = append(buf, op, modrm)
	_, err := a.CH.Emit(buf)
	return err
}

func (a *Assembler) INC(dst operand.Register) error { return a.incDec(0, dst) }
func (a *Assembler) DEC(dst operand.Register) error { return a.incDec(1, dst) }

// IMUL (two-operand form): dst *= src, both registers.
func (a *Assembler) IMUL(dst, src operand.Register) error {
	regBits, rp := register3bits(dst, fieldReg)
	rmBits, bp := register3bits(src, fieldRM)
	buf := make([]byte, 0, 5)
	if rb := rexByteIfNeeded(rp|bp, dst.Width, false); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (regBits << 3) | rmBits
	buf = append(buf, 0x0F, 0xAF, modrm)
	_, err := a.CH.Emit(buf)
	return err
}

// --- shift/rotate family (SHL/SHR/SAR/ROL/ROR) ------------------------

var shiftExt = map[isa.Instruction]byte{
	ROL: 0,
	ROR: 1,
	SHL: 4,
	SHR: 5,
	SAR: 7,
}

// ShiftByImm emits dst <<= imm (or the SHR/SAR/ROL/ROR equivalent).
// Rotation mnemonics (ROL/ROR) are fully encoded, not stubbed as no-ops
// (spec §9 Open Question, resolved here).
func (a *Assembler) ShiftByImm(id isa.Instruction, dst operand.Register, count uint8) error {
	ext, ok := shiftExt[id]
	if !ok {
		return fmt.Errorf("%w: %s is not a shift instruction", jiterr.UnknownInstruction, InstructionName(id))
	}
	bits, rp := register3bits(dst, fieldRM)
	forceLow := requiresREXLowByte(dst)
	buf := make([]byte, 0, 4)
	if rb := rexByteIfNeeded(rp, dst.Width, forceLow); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (ext << 3) | bits
	op := byte(0xC1)
	if dst.Width == operand.Width8 {
		op = 0xC0
	}
	if count == 1 {
		op2 := byte(0xD1)
		if dst.Width == operand.Width8 {
			op2 = 0xD0
		}
		buf = append(buf, op2, modrm)
	} else {
		buf = append(buf, op, modrm, count)
	}
	_, err := a.CH.Emit(buf)
	return err
}

// ShiftByCL emits dst <<= cl (or the SHR/SAR/ROL/ROR equivalent), the
// variable-shift-count form; CL must be preloaded by the caller. The
// register allocator neither pins CL nor inserts a copy into it.
func (a *Assembler) ShiftByCL(id isa.Instruction, dst operand.Register) error {
	ext, ok := shiftExt[id]
	if !ok {
		return fmt.Errorf("%w: %s is not a shift instruction", jiterr.UnknownInstruction, InstructionName(id))
	}
	bits, rp := register3bits(dst, fieldRM)
	buf := make([]byte, 0, 4)
	if rb := rexByteIfNeeded(rp, dst.Width, false); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (ext << 3) | bits
	op := byte(0xD3)
	if dst.Width == operand.Width8 {
		op = 0xD2
	}
	buf = append(buf, op, modrm)
	_, err := a.CH.Emit(buf)
	return err
}

// --- stack / control flow ---------------------------------------------

// PUSH pushes a 64-bit GP register.
func (a *Assembler) PUSH(r operand.Register) error {
	bits, rp := register3bits(r, fieldOpcodeEmbedded)
	buf := make([]byte, 0, 2)
	if rp != rexNone {
		buf = append(buf, byte(rp))
	}
	buf = append(buf, 0x50+bits)
	_, err := a.CH.Emit(buf)
	return err
}

// POP pops into a 64-bit GP register.
func (a *Assembler) POP(r operand.Register) error {
	bits, rp := register3bits(r, fieldOpcodeEmbedded)
	buf := make([]byte, 0, 2)
	if rp != rexNone {
		buf = append(buf, byte(rp))
	}
	buf = append(buf, 0x58+bits)
	_, err := a.CH.Emit(buf)
	return err
}

// RET emits a near return.
func (a *Assembler) RET() error {
	_, err := a.CH.Emit([]byte{0xC3})
	return err
}

// NOPs emits n bytes of single-byte NOP (0x90); used by label-relaxation
// tests and by callers padding small gaps.
func (a *Assembler) NOPs(n int) error {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0x90
	}
	_, err := a.CH.Emit(b)
	return err
}

// nopOpcodes holds the length-1..9 multi-byte NOP encodings Intel
// recommends, used by the optional erratum-padding pass instead of
// chains of single-byte 0x90s.
var nopOpcodes = [...][]byte{
	{0x90},
	{0x66, 0x90},
	{0x0F, 0x1F, 0x00},
	{0x0F, 0x1F, 0x40, 0x00},
	{0x0F, 0x1F, 0x44, 0x00, 0x00},
	{0x66, 0x0F, 0x1F, 0x44, 0x00, 0x00},
	{0x0F, 0x1F, 0x80, 0x00, 0x00, 0x00, 0x00},
	{0x0F, 0x1F, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x66, 0x0F, 0x1F, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
}

// PadNOP emits n bytes of padding using the longest legal multi-byte NOP
// forms, matching the teacher's padNOP helper.
func (a *Assembler) PadNOP(n int) error {
	for n > 0 {
		chunk := n
		if chunk > len(nopOpcodes) {
			chunk = len(nopOpcodes)
		}
		if _, err := a.CH.Emit(nopOpcodes[chunk-1]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// maybeJCCErratumPad inserts NOP padding so that the next `instrLen`
// bytes (a Jcc/JMP/CALL opcode the Intel erratum applies to) do not
// straddle a 32-byte boundary, mirroring the teacher's maybeNOPPadding.
func (a *Assembler) maybeJCCErratumPad(instrLen int) error {
	if !a.EnablePadding {
		return nil
	}
	const boundary = 32
	cur := int(a.CH.Offset())
	end := cur + instrLen
	curBoundary := cur / boundary
	endLastByteBoundary := (end - 1) / boundary
	if curBoundary == endLastByteBoundary {
		return nil
	}
	pad := (curBoundary+1)*boundary - cur
	return a.PadNOP(pad)
}

// JMP emits an unconditional jump to label. If label is already bound
// (a backward jump), the assembler picks the short (EB) or near (E9)
// form based on the now-known distance. If label is not yet bound (a
// forward jump), it defaults to the near form and records a fixup,
// per spec §4.3's relaxation policy.
func (a *Assembler) JMP(label operand.Label) error {
	if a.CH.IsBound(label) {
		return a.jmpBackward(label)
	}
	if err := a.maybeJCCErratumPad(5); err != nil {
		return err
	}
	off, err := a.CH.Emit([]byte{0xE9, 0, 0, 0, 0})
	if err != nil {
		return err
	}
	return a.CH.AddFixup(off+1, code.FixupRel32, label, 0)
}

func (a *Assembler) jmpBackward(label operand.Label) error {
	target := a.CH.LabelOffset(label)
	shortEnd := a.CH.Offset() + 2
	disp := int64(target) - int64(shortEnd)
	if disp >= -128 && disp <= 127 {
		_, err := a.CH.Emit([]byte{0xEB, byte(int8(disp))})
		return err
	}
	longEnd := a.CH.Offset() + 5
	disp = int64(target) - int64(longEnd)
	buf := append([]byte{0xE9}, le32(int32(disp))...)
	_, err := a.CH.Emit(buf)
	return err
}

// JMPShort forces the 2-byte short-jump encoding; the caller is asserting
// the distance is known to fit (spec §4.3: "the assembler offers an
// explicit short-form opcode for callers that know the distance").
func (a *Assembler) JMPShort(label operand.Label) error {
	if !a.CH.IsBound(label) {
		off, err := a.CH.Emit([]byte{0xEB, 0})
		if err != nil {
			return err
		}
		return a.CH.AddFixup(off+1, code.FixupRel8, label, 0)
	}
	return a.jmpBackward(label)
}

// Jcc emits a conditional jump on cc to label, with the same
// backward-short/forward-long relaxation policy as JMP.
func (a *Assembler) Jcc(cc isa.ConditionCode, label operand.Label) error {
	if a.CH.IsBound(label) {
		target := a.CH.LabelOffset(label)
		shortEnd := a.CH.Offset() + 2
		disp := int64(target) - int64(shortEnd)
		if disp >= -128 && disp <= 127 {
			_, err := a.CH.Emit([]byte{0x70 + ccBits(cc), byte(int8(disp))})
			return err
		}
		longEnd := a.CH.Offset() + 6
		disp = int64(target) - int64(longEnd)
		buf := append([]byte{0x0F, 0x80 + ccBits(cc)}, le32(int32(disp))...)
		_, err := a.CH.Emit(buf)
		return err
	}
	if err := a.maybeJCCErratumPad(6); err != nil {
		return err
	}
	off, err := a.CH.Emit([]byte{0x0F, 0x80 + ccBits(cc), 0, 0, 0, 0})
	if err != nil {
		return err
	}
	return a.CH.AddFixup(off+2, code.FixupRel32, label, 0)
}

// CALL emits a near relative call to label (no short form exists for call).
func (a *Assembler) CALL(label operand.Label) error {
	off, err := a.CH.Emit([]byte{0xE8, 0, 0, 0, 0})
	if err != nil {
		return err
	}
	return a.CH.AddFixup(off+1, code.FixupRel32, label, 0)
}

// CALLReg emits an indirect call through a register.
func (a *Assembler) CALLReg(r operand.Register) error {
	bits, rp := register3bits(r, fieldRM)
	buf := make([]byte, 0, 3)
	if rp != rexNone {
		buf = append(buf, byte(rp))
	}
	modrm := byte(0b1100_0000) | (2 << 3) | bits
	buf = append(buf, 0xFF, modrm)
	_, err := a.CH.Emit(buf)
	return err
}

// JMPReg emits an indirect unconditional jump through a register.
func (a *Assembler) JMPReg(r operand.Register) error {
	bits, rp := register3bits(r, fieldRM)
	buf := make([]byte, 0, 3)
	if rp != rexNone {
		buf = append(buf, byte(rp))
	}
	modrm := byte(0b1100_0000) | (4 << 3) | bits
	buf = append(buf, 0xFF, modrm)
	_, err := a.CH.Emit(buf)
	return err
}

// SETcc sets dst (an 8-bit register) to 0/1 based on cc.
func (a *Assembler) SETcc(cc isa.ConditionCode, dst operand.Register) error {
	bits, rp := register3bits(dst, fieldRM)
	forceLow := requiresREXLowByte(dst)
	buf := make([]byte, 0, 4)
	if rb := rexByteIfNeeded(rp, operand.Width8, forceLow); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | bits
	buf = append(buf, 0x0F, 0x90+ccBits(cc), modrm)
	_, err := a.CH.Emit(buf)
	return err
}

// CMOVcc conditionally moves src into dst.
func (a *Assembler) CMOVcc(cc isa.ConditionCode, dst, src operand.Register) error {
	regBits, rp := register3bits(dst, fieldReg)
	rmBits, bp := register3bits(src, fieldRM)
	buf := make([]byte, 0, 5)
	if rb := rexByteIfNeeded(rp|bp, dst.Width, false); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (regBits << 3) | rmBits
	buf = append(buf, 0x0F, 0x40+ccBits(cc), modrm)
	_, err := a.CH.Emit(buf)
	return err
}

// MOVZX/MOVSX: zero/sign-extend src (8 or 16-bit) into dst (32 or 64-bit).
func (a *Assembler) MOVZX(dst, src operand.Register) error {
	return a.movXX(0xB6, dst, src)
}

func (a *Assembler) MOVSX(dst, src operand.Register) error {
	return a.movXX(0xBE, dst, src)
}

func (a *Assembler) movXX(baseOp byte, dst, src operand.Register) error {
	regBits, rp := register3bits(dst, fieldReg)
	rmBits, bp := register3bits(src, fieldRM)
	op := baseOp
	if src.Width == operand.Width16 {
		op++
	}
	buf := make([]byte, 0, 6)
	if rb := rexByteIfNeeded(rp|bp, dst.Width, requiresREXLowByte(src)); rb != nil {
		buf = append(buf, rb...)
	}
	modrm := byte(0b1100_0000) | (regBits << 3) | rmBits
	buf = append(buf, 0x0F, op, modrm)
	_, err := a.CH.Emit(buf)
	return err
}

// NOP emits a single architectural NOP.
func (a *Assembler) NOP() error {
	_, err := a.CH.Emit([]byte{0x90})
	return err
}
