package regalloc

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// SpillConfig supplies the architecture-specific pieces the rewrite pass
// needs to materialize a spilled vreg as a memory operand and to move it
// in and out of a scratch register: the plain register-to-register/
// register-to-memory move opcode (isa/x64.MOV or isa/arm64.MOV), the
// frame-pointer-relative base register spill slots are addressed from,
// and one scratch register per class (frame.SpillConfigFor picks them).
// DoAllocation does not remove the scratch registers from RegisterInfo's
// pools; it uses the pools exactly as given.
type SpillConfig struct {
	MoveOpcode isa.Instruction
	FrameBase  operand.Register
	SlotOffset int64 // byte offset of spill slot 0 from FrameBase
	SlotSize   int64
	Scratch    map[operand.Class]operand.Register
}

func (s SpillConfig) slotMem(slot int, width operand.Width) operand.Memory {
	return operand.BaseDisp(s.FrameBase, s.SlotOffset+int64(slot)*s.SlotSize, width)
}

// rewrite replaces every virtual-register operand with its assigned
// physical register, and for spilled vregs splices a reload before each
// use and a store after each def through the class's scratch register,
// mutating b's node list in place.
func rewrite(b *builder.Builder, nodes []*builder.Node, intervals map[uint32]*LiveInterval, cfg SpillConfig, meta func(isa.Instruction) isa.InstructionMeta) {
	for _, n := range nodes {
		if n.Kind != builder.NodeInst {
			continue
		}
		m := meta(n.Instruction)
		for i, op := range n.Operands {
			switch v := op.(type) {
			case operand.Register:
				if !v.Virtual {
					continue
				}
				isDef := i == 0 && !m.IsCompare
				// Operand 0 of a read-modify-write instruction is also a use;
				// only a plain move overwrites it without reading it.
				isUse := !isDef || !m.IsMove
				n.Operands[i] = rewriteReg(b, n, v, intervals, cfg, isDef, isUse)
			case operand.Memory:
				n.Operands[i] = rewriteMemory(b, n, v, intervals, cfg)
			}
		}
	}
}

// rewriteReg resolves one virtual register operand to its final physical
// form, splicing a reload before and/or a store after n when the vreg
// was spilled.
func rewriteReg(b *builder.Builder, n *builder.Node, reg operand.Register, intervals map[uint32]*LiveInterval, cfg SpillConfig, isDef, isUse bool) operand.Register {
	iv, found := intervals[reg.VID]
	if !found {
		return reg
	}
	if !iv.Spilled {
		return iv.PhysReg.WithWidth(reg.Width)
	}
	scratch := cfg.Scratch[classOf(reg)].WithWidth(reg.Width)
	mem := cfg.slotMem(iv.SpillSlot, reg.Width)
	if isUse {
		b.InsertBefore(n, &builder.Node{
			Kind: builder.NodeInst, Instruction: cfg.MoveOpcode,
			Operands: []operand.Operand{scratch, mem},
		})
	}
	if isDef {
		b.InsertAfter(n, &builder.Node{
			Kind: builder.NodeInst, Instruction: cfg.MoveOpcode,
			Operands: []operand.Operand{mem, scratch},
		})
	}
	return scratch
}

// rewriteMemory resolves a memory operand's virtual base/index registers.
// Base and index are always address-computation uses, never defs; a
// spilled base/index is reloaded into scratch immediately before n, same
// as a spilled register use.
func rewriteMemory(b *builder.Builder, n *builder.Node, mem operand.Memory, intervals map[uint32]*LiveInterval, cfg SpillConfig) operand.Memory {
	if mem.Base != nil && mem.Base.Virtual {
		r := rewriteReg(b, n, *mem.Base, intervals, cfg, false, true)
		mem.Base = &r
	}
	if mem.Index != nil && mem.Index.Virtual {
		r := rewriteReg(b, n, *mem.Index, intervals, cfg, false, true)
		mem.Index = &r
	}
	return mem
}
