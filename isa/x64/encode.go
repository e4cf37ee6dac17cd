package x64

import (
	"fmt"

	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/operand"
)

// rex is the REX prefix byte under construction; bits are OR'd in as
// register-extension requirements are discovered, mirroring the teacher
// repo's amd64 encoder.
type rex byte

const (
	rexNone    rex = 0x00
	rexDefault rex = 0b0100_0000
	rexW       rex = rexDefault | 0b1000
	rexR       rex = rexDefault | 0b0100
	rexX       rex = rexDefault | 0b0010
	rexB       rex = rexDefault | 0b0001
)

// modrmFieldPosition identifies which ModRM/SIB field a register's 3 low
// bits land in, which in turn decides which REX bit (R/X/B) its high bit
// extends.
type modrmFieldPosition byte

const (
	fieldReg modrmFieldPosition = iota
	fieldRM
	fieldSIBIndex
	fieldSIBBase
	fieldOpcodeEmbedded
)

// register3bits returns the low 3 bits of reg's architectural index and
// the REX bit its 4th bit (if set) contributes, given which ModRM/SIB
// field it occupies.
func register3bits(reg operand.Register, pos modrmFieldPosition) (bits byte, r rex) {
	idx := byte(reg.Index)
	bits = idx & 0x7
	if idx&0x8 == 0 {
		return bits, rexNone
	}
	switch pos {
	case fieldReg:
		return bits, rexR
	case fieldRM, fieldSIBBase, fieldOpcodeEmbedded:
		return bits, rexB
	case fieldSIBIndex:
		return bits, rexX
	default:
		return bits, rexNone
	}
}

func fitsInt8(v int64) bool  { return v >= -128 && v <= 127 }
func fitsInt32(v int64) bool { return v >= -(1 << 31) && v <= (1<<31)-1 }

// regRegModRM builds a mod=11 ModRM byte for two physical registers,
// reg occupying the reg field and rm occupying the rm field.
func regRegModRM(reg, rm operand.Register) (modrm byte, prefix rex, err error) {
	regBits, rp := register3bits(reg, fieldReg)
	rmBits, bp := register3bits(rm, fieldRM)
	if (reg.HighByte || rm.HighByte) && (rp != rexNone || bp != rexNone) {
		return 0, 0, fmt.Errorf("%w: AH/BH/CH/DH incompatible with REX-requiring register", jiterr.OperandMismatch)
	}
	modrm = 0b1100_0000 | (regBits << 3) | rmBits
	return modrm, rp | bp, nil
}

// encodeMemory computes the ModRM (+ optional SIB, + optional
// displacement) bytes for mem with regBits occupying the ModRM.reg
// field, following the addressing-form rules of spec §4.5: absolute
// [disp32], base-only with the RBP/R13 zero-displacement special case,
// base+index*scale with RSP illegal as index, and RIP-relative mode
// (mod=00, rm=101).
//
// It returns the encoded bytes (without the displacement for RIP-relative
// forms, whose 4-byte placeholder the caller must append and later patch
// via a fixup), the REX bits contributed by base/index, and whether a
// trailing 4-byte placeholder for a RIP-relative fixup is needed.
func encodeMemory(regBits byte, mem operand.Memory) (bytes []byte, prefix rex, ripPlaceholder bool, err error) {
	if mem.RIPRelative {
		modrm := byte(0b00_000_101) | (regBits << 3)
		return []byte{modrm}, rexNone, true, nil
	}

	if mem.Base == nil && mem.Index == nil {
		// Absolute [disp32]: mod=00, rm=100 (SIB follows), SIB base=101 (none), index=100 (none).
		modrm := byte(0b00_000_100) | (regBits << 3)
		sib := byte(0b00_100_101)
		b := []byte{modrm, sib}
		b = append(b, le32(int32(mem.Displacement))...)
		return b, rexNone, false, nil
	}

	if mem.Index == nil {
		base := *mem.Base
		baseBits, bp := register3bits(base, fieldRM)
		needsSIB := base.Index&0x7 == RSPIdx // RSP/R12 require a SIB even with no index.
		forcedDisp8 := base.Index&0x7 == RBPIdx && mem.Displacement == 0

		var mod byte
		var dispBytes []byte
		switch {
		case mem.Displacement == 0 && !forcedDisp8:
			mod = 0b00
		case fitsInt8(mem.Displacement):
			mod = 0b01
			dispBytes = []byte{byte(int8(mem.Displacement))}
		default:
			mod = 0b10
			dispBytes = le32(int32(mem.Displacement))
		}
		if forcedDisp8 && mod == 0b00 {
			mod = 0b01
			dispBytes = []byte{0}
		}

		if needsSIB {
			modrm := (mod << 6) | (regBits << 3) | 0b100
			sib := byte(0b00_100_000) | baseBits // index=100 (none), scale=00
			b := append([]byte{modrm, sib}, dispBytes...)
			return b, bp, false, nil
		}
		modrm := (mod << 6) | (regBits << 3) | baseBits
		b := append([]byte{modrm}, dispBytes...)
		return b, bp, false, nil
	}

	// base + index*scale (+ disp); also handles index-only (base==nil) by
	// encoding base field as 101 with mod=00 and an explicit disp32.
	idx := *mem.Index
	if idx.Index&0x7 == RSPIdx {
		return nil, 0, false, fmt.Errorf("%w: RSP is not a legal SIB index", jiterr.InvalidArgument)
	}
	var scaleBits byte
	switch mem.Scale {
	case operand.Scale1, 0:
		scaleBits = 0b00
	case operand.Scale2:
		scaleBits = 0b01
	case operand.Scale4:
		scaleBits = 0b10
	case operand.Scale8:
		scaleBits = 0b11
	default:
		return nil, 0, false, fmt.Errorf("%w: illegal SIB scale %d", jiterr.InvalidArgument, mem.Scale)
	}
	idxBits, xp := register3bits(idx, fieldSIBIndex)

	if mem.Base == nil {
		modrm := byte(0b00_000_100) | (regBits << 3)
		sib := (scaleBits << 6) | (idxBits << 3) | 0b101
		b := append([]byte{modrm, sib}, le32(int32(mem.Displacement))...)
		return b, xp, false, nil
	}

	base := *mem.Base
	baseBits, bp := register3bits(base, fieldSIBBase)
	forcedDisp8 := base.Index&0x7 == RBPIdx && mem.Displacement == 0

	var mod byte
	var dispBytes []byte
	switch {
	case mem.Displacement == 0 && !forcedDisp8:
		mod = 0b00
	case fitsInt8(mem.Displacement):
		mod = 0b01
		dispBytes = []byte{byte(int8(mem.Displacement))}
	default:
		mod = 0b10
		dispBytes = le32(int32(mem.Displacement))
	}
	if forcedDisp8 && mod == 0b00 {
		mod = 0b01
		dispBytes = []byte{0}
	}

	modrm := (mod << 6) | (regBits << 3) | 0b100
	sib := (scaleBits << 6) | (idxBits << 3) | baseBits
	b := append([]byte{modrm, sib}, dispBytes...)
	return b, xp | bp, false, nil
}

func le32(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func le64(v int64) []byte {
	u := uint64(v)
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	return b
}

// rexByteIfNeeded returns the REX byte to emit (or nil) given the
// accumulated prefix bits and whether operand width forces REX.W, plus
// whether any 8-bit operand requires a REX purely to select the
// SPL/BPL/SIL/DIL encoding.
func rexByteIfNeeded(acc rex, w operand.Width, forceLowByteREX bool) []byte {
	p := acc
	if w == operand.Width64 {
		p |= rexW
	}
	if forceLowByteREX && p == rexNone {
		p = rexDefault
	}
	if p == rexNone {
		return nil
	}
	return []byte{byte(p)}
}
