package arm64

import (
	"fmt"

	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/operand"
)

// EncodeNode dispatches one already-physical-register IR node to its
// AArch64 encoder, the same table-driven shape as isa/x64's EncodeNode.
func (a *Assembler) EncodeNode(n *builder.Node) error {
	ops := n.Operands
	regAt := func(i int) operand.Register {
		r, _ := ops[i].(operand.Register)
		return r
	}
	switch n.Instruction {
	case MOV:
		return a.MOV(regAt(0), regAt(1))
	case ADD:
		return a.ADD(regAt(0), regAt(1), ops[2])
	case SUB:
		return a.SUB(regAt(0), regAt(1), ops[2])
	case CMP:
		return a.CMP(regAt(0), ops[1])
	case AND:
		return a.AND(regAt(0), regAt(1), regAt(2))
	case ORR:
		return a.ORR(regAt(0), regAt(1), regAt(2))
	case EOR:
		return a.EOR(regAt(0), regAt(1), regAt(2))
	case MVN:
		return a.MVN(regAt(0), regAt(1))
	case NEG:
		return a.NEG(regAt(0), regAt(1))
	case MUL:
		return a.MUL(regAt(0), regAt(1), regAt(2))
	case LSL, LSR, ASR:
		imm, _ := ops[2].(operand.Immediate)
		return a.shiftImm(n.Instruction, regAt(0), regAt(1), uint8(imm.Value))
	case STP: // always pre-index with writeback, the frame-builder's push shape
		rt1, rt2 := regAt(0), regAt(1)
		base := regAt(2)
		imm, _ := ops[3].(operand.Immediate)
		return a.StpPreIndex(rt1, rt2, base, imm.Value)
	case LDP: // always post-index with writeback, the frame-builder's pop shape
		rt1, rt2 := regAt(0), regAt(1)
		base := regAt(2)
		imm, _ := ops[3].(operand.Immediate)
		return a.LdpPostIndex(rt1, rt2, base, imm.Value)
	case LDR:
		mem, _ := ops[1].(operand.Memory)
		base := operand.Register{}
		if mem.Base != nil {
			base = *mem.Base
		}
		return a.LDR(regAt(0), base, mem.Displacement)
	case STR:
		mem, _ := ops[0].(operand.Memory)
		base := operand.Register{}
		if mem.Base != nil {
			base = *mem.Base
		}
		return a.STR(regAt(1), base, mem.Displacement)
	case B:
		lbl, ok := ops[0].(operand.Label)
		if !ok {
			return fmt.Errorf("%w: b requires a label", jiterr.OperandMismatch)
		}
		return a.B(lbl)
	case BCond:
		lbl, ok := ops[0].(operand.Label)
		if !ok || !n.Options.HasCond {
			return fmt.Errorf("%w: b.cond requires a label and condition", jiterr.OperandMismatch)
		}
		return a.BCond(n.Options.Cond, lbl)
	case BL:
		lbl, ok := ops[0].(operand.Label)
		if !ok {
			return fmt.Errorf("%w: bl requires a label", jiterr.OperandMismatch)
		}
		return a.BL(lbl)
	case BLR:
		return a.BLR(regAt(0))
	case CBZ:
		lbl, ok := ops[1].(operand.Label)
		if !ok {
			return fmt.Errorf("%w: cbz requires a label", jiterr.OperandMismatch)
		}
		return a.CBZ(regAt(0), lbl)
	case CBNZ:
		lbl, ok := ops[1].(operand.Label)
		if !ok {
			return fmt.Errorf("%w: cbnz requires a label", jiterr.OperandMismatch)
		}
		return a.CBNZ(regAt(0), lbl)
	case RET:
		return a.RET()
	case NOP:
		return a.NOP()
	case ADRP:
		lbl, ok := ops[1].(operand.Label)
		if !ok {
			return fmt.Errorf("%w: adrp-pair requires a label", jiterr.OperandMismatch)
		}
		return a.AdrpAdd(regAt(0), lbl)
	default:
		return fmt.Errorf("%w: instruction id %d", jiterr.UnknownInstruction, n.Instruction)
	}
}
