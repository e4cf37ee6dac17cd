package regalloc

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// defUse reports the virtual registers a node defines and reads, under
// the destination-first convention isa/x64 and isa/arm64 both use: for a
// non-compare instruction, operand 0 is a definition (and, since most
// arithmetic forms are read-modify-write, also a use); every other
// register operand, plus operand 0 itself for compare instructions, is a
// use only. Memory operand base/index registers are always uses.
func defUse(n *builder.Node, meta func(isa.Instruction) isa.InstructionMeta) (defs, uses []operand.Register) {
	if n.Kind != builder.NodeInst {
		return nil, nil
	}
	m := meta(n.Instruction)
	addUse := func(r operand.Register) {
		if r.Virtual {
			uses = append(uses, r)
		}
	}
	for i, op := range n.Operands {
		switch v := op.(type) {
		case operand.Register:
			if i == 0 && !m.IsCompare {
				if v.Virtual {
					defs = append(defs, v)
				}
			}
			addUse(v)
		case operand.Memory:
			if v.Base != nil {
				addUse(*v.Base)
			}
			if v.Index != nil {
				addUse(*v.Index)
			}
		}
	}
	return defs, uses
}
