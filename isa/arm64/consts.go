package arm64

import "github.com/ngcodegen/corejit/isa"

// Canonical instruction ids.
const (
	MOV isa.Instruction = iota
	ADD
	SUB
	CMP
	AND
	ORR
	EOR
	MVN
	NEG
	LSL
	LSR
	ASR
	MUL
	LDR
	STR
	LDP
	STP
	B
	BCond
	BL
	BLR
	RET
	CBZ
	CBNZ
	ADRP
	NOP
)

func InstructionName(id isa.Instruction) string {
	switch id {
	case MOV:
		return "mov"
	case ADD:
		return "add"
	case SUB:
		return "sub"
	case CMP:
		return "cmp"
	case AND:
		return "and"
	case ORR:
		return "orr"
	case EOR:
		return "eor"
	case MVN:
		return "mvn"
	case NEG:
		return "neg"
	case LSL:
		return "lsl"
	case LSR:
		return "lsr"
	case ASR:
		return "asr"
	case MUL:
		return "mul"
	case LDR:
		return "ldr"
	case STR:
		return "str"
	case LDP:
		return "ldp"
	case STP:
		return "stp"
	case B:
		return "b"
	case BCond:
		return "b.cond"
	case BL:
		return "bl"
	case BLR:
		return "blr"
	case RET:
		return "ret"
	case CBZ:
		return "cbz"
	case CBNZ:
		return "cbnz"
	case ADRP:
		return "adrp"
	case NOP:
		return "nop"
	default:
		return "unknown"
	}
}

func Meta(id isa.Instruction) isa.InstructionMeta {
	switch id {
	case B:
		return isa.InstructionMeta{IsJump: true}
	case BCond, CBZ, CBNZ:
		return isa.InstructionMeta{IsJump: true, IsConditionalJump: true}
	case BL, BLR:
		return isa.InstructionMeta{IsCall: true}
	case RET:
		return isa.InstructionMeta{IsReturn: true}
	case CMP:
		return isa.InstructionMeta{IsCompare: true}
	case MOV:
		return isa.InstructionMeta{IsMove: true}
	default:
		return isa.InstructionMeta{}
	}
}

// condBits maps the architecture-neutral isa.ConditionCode to AArch64's
// 4-bit condition field, which does not share x86's bit pattern.
func condBits(cc isa.ConditionCode) uint32 {
	table := [...]uint32{
		isa.CondO:  0b0110, // VS
		isa.CondNO: 0b0111, // VC
		isa.CondB:  0b0011, // LO/CC
		isa.CondAE: 0b0010, // HS/CS
		isa.CondE:  0b0000, // EQ
		isa.CondNE: 0b0001, // NE
		isa.CondBE: 0b1001, // LS
		isa.CondA:  0b1000, // HI
		isa.CondS:  0b0100, // MI
		isa.CondNS: 0b0101, // PL
		isa.CondP:  0b0110, // VS (parity has no direct AArch64 analog; aliased to overflow)
		isa.CondNP: 0b0111, // VC
		isa.CondL:  0b1011, // LT
		isa.CondGE: 0b1010, // GE
		isa.CondLE: 0b1101, // LE
		isa.CondG:  0b1100, // GT
	}
	return table[cc]
}
