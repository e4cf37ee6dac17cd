package x64

import (
	"fmt"

	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/operand"
)

// EncodeNode dispatches one already-physical-register IR node to its
// encoder, the table-driven replacement (spec §9) for the original
// exception-based "no match -> next overload" dispatch: a single switch
// over the canonical instruction id, each arm requiring its operand
// signature to already match (the register allocator is responsible for
// rewriting every VirtReg operand to a physical register or a spill
// memory operand before this pass runs).
func (a *Assembler) EncodeNode(n *builder.Node) error {
	ops := n.Operands
	switch n.Instruction {
	case MOV:
		return a.MOV(ops[0], ops[1])
	case LEA:
		dst, ok := regOf(ops[0])
		src, ok2 := memOf(ops[1])
		if !ok || !ok2 {
			return fmt.Errorf("%w: lea requires (reg, mem)", jiterr.OperandMismatch)
		}
		return a.LEA(dst, src)
	case ADD:
		return a.ADD(ops[0], ops[1])
	case SUB:
		return a.SUB(ops[0], ops[1])
	case CMP:
		return a.CMP(ops[0], ops[1])
	case TEST:
		return a.TEST(ops[0], ops[1])
	case AND:
		return a.AND(ops[0], ops[1])
	case OR:
		return a.OR(ops[0], ops[1])
	case XOR:
		return a.XOR(ops[0], ops[1])
	case NOT:
		r, _ := regOf(ops[0])
		return a.NOT(r)
	case NEG:
		r, _ := regOf(ops[0])
		return a.NEG(r)
	case INC:
		r, _ := regOf(ops[0])
		return a.INC(r)
	case DEC:
		r, _ := regOf(ops[0])
		return a.DEC(r)
	case IMUL:
		dst, _ := regOf(ops[0])
		src, _ := regOf(ops[1])
		return a.IMUL(dst, src)
	case SHL, SHR, SAR, ROL, ROR:
		dst, _ := regOf(ops[0])
		if len(ops) > 1 {
			if imm, ok := immOf(ops[1]); ok {
				return a.ShiftByImm(n.Instruction, dst, uint8(imm.Value))
			}
		}
		return a.ShiftByCL(n.Instruction, dst)
	case PUSH:
		r, _ := regOf(ops[0])
		return a.PUSH(r)
	case POP:
		r, _ := regOf(ops[0])
		return a.POP(r)
	case JMP:
		if len(ops) == 1 {
			if lbl, ok := ops[0].(operand.Label); ok {
				if n.Options.ForceShort {
					return a.JMPShort(lbl)
				}
				return a.JMP(lbl)
			}
			if r, ok := regOf(ops[0]); ok {
				return a.JMPReg(r)
			}
		}
		return fmt.Errorf("%w: jmp requires a label or register operand", jiterr.OperandMismatch)
	case Jcc:
		lbl, ok := ops[0].(operand.Label)
		if !ok || !n.Options.HasCond {
			return fmt.Errorf("%w: conditional jump requires a label and condition", jiterr.OperandMismatch)
		}
		return a.Jcc(n.Options.Cond, lbl)
	case SETcc:
		r, ok := regOf(ops[0])
		if !ok || !n.Options.HasCond {
			return fmt.Errorf("%w: setcc requires a register and condition", jiterr.OperandMismatch)
		}
		return a.SETcc(n.Options.Cond, r)
	case CMOVcc:
		dst, _ := regOf(ops[0])
		src, _ := regOf(ops[1])
		if !n.Options.HasCond {
			return fmt.Errorf("%w: cmovcc requires a condition", jiterr.OperandMismatch)
		}
		return a.CMOVcc(n.Options.Cond, dst, src)
	case MOVZX:
		dst, _ := regOf(ops[0])
		src, _ := regOf(ops[1])
		return a.MOVZX(dst, src)
	case MOVSX:
		dst, _ := regOf(ops[0])
		src, _ := regOf(ops[1])
		return a.MOVSX(dst, src)
	case CALL:
		if lbl, ok := ops[0].(operand.Label); ok {
			return a.CALL(lbl)
		}
		if r, ok := regOf(ops[0]); ok {
			return a.CALLReg(r)
		}
		return fmt.Errorf("%w: call requires a label or register operand", jiterr.OperandMismatch)
	case RET:
		return a.RET()
	case NOP:
		return a.NOP()
	default:
		return fmt.Errorf("%w: instruction id %d", jiterr.UnknownInstruction, n.Instruction)
	}
}
