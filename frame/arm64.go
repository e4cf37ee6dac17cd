package frame

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/isa/arm64"
	"github.com/ngcodegen/corejit/operand"
)

// AArch64AAPCS is the ARM64 Procedure Call Standard register file: eight
// integer and eight vector argument registers, X29/X30 as frame
// pointer/link register, and no shadow space or red zone (AAPCS has
// neither).
func AArch64AAPCS() ABIRegs {
	return ABIRegs{
		ArgInts:      []operand.Register{arm64.X0, arm64.X1, arm64.X2, arm64.X3, arm64.X4, arm64.X5, arm64.X6, arm64.X7},
		ArgFloats:    []operand.Register{arm64.V0, arm64.V1, arm64.V2, arm64.V3, arm64.V4, arm64.V5, arm64.V6, arm64.V7},
		ResultInts:   []operand.Register{arm64.X0, arm64.X1},
		ResultFloats: []operand.Register{arm64.V0, arm64.V1},
		CalleeSaved:  []operand.Register{arm64.X19, arm64.X20, arm64.X21, arm64.X22, arm64.X23, arm64.X24, arm64.X25, arm64.X26, arm64.X27, arm64.X28, arm64.X29},
		FrameBase:    arm64.X29,
		StackPtr:     arm64.SP,
		LinkOrRA:     arm64.X30,
		StackAlign:   16,
	}
}

// EmitPrologueARM64 appends "stp x29, x30, [sp, #-16]!; mov x29, sp" (the
// mov encoded as "add x29, sp, #0", since ORR would read XZR) plus
// a stp pair per two consecutive PreservedRegs (an odd trailing one pairs
// with xzr), then reserves LocalStackSize bytes, all inserted after node.
func EmitPrologueARM64(b *builder.Builder, after *builder.Node, layout Layout) *builder.Node {
	n := after
	ins := func(id isa.Instruction, ops ...operand.Operand) {
		nn := &builder.Node{Kind: builder.NodeInst, Instruction: id, Operands: ops}
		b.InsertAfter(n, nn)
		n = nn
	}
	stpPre := func(rt1, rt2, base operand.Register, imm int64) {
		ins(arm64.STP, rt1, rt2, base, operand.Immediate{Value: imm})
	}
	if layout.PreserveFramePointer {
		stpPre(arm64.X29, arm64.X30, arm64.SP, -16)
		ins(arm64.ADD, arm64.X29, arm64.SP, operand.Immediate{Value: 0})
	}
	regs := layout.PreservedRegs
	for i := 0; i+1 < len(regs); i += 2 {
		stpPre(regs[i], regs[i+1], arm64.SP, -16)
	}
	if len(regs)%2 == 1 {
		stpPre(regs[len(regs)-1], arm64.XZR, arm64.SP, -16)
	}
	size := alignUp(layout.LocalStackSize, layout.AlignStack)
	if size > 0 {
		ins(arm64.SUB, arm64.SP, arm64.SP, operand.Immediate{Value: size})
	}
	return n
}

// EmitEpilogueARM64 appends the mirror-image sequence before ret.
func EmitEpilogueARM64(b *builder.Builder, before *builder.Node, layout Layout) {
	ins := func(id isa.Instruction, ops ...operand.Operand) {
		nn := &builder.Node{Kind: builder.NodeInst, Instruction: id, Operands: ops}
		b.InsertBefore(before, nn)
	}
	ldpPost := func(rt1, rt2, base operand.Register, imm int64) {
		ins(arm64.LDP, rt1, rt2, base, operand.Immediate{Value: imm})
	}
	size := alignUp(layout.LocalStackSize, layout.AlignStack)
	if size > 0 {
		ins(arm64.ADD, arm64.SP, arm64.SP, operand.Immediate{Value: size})
	}
	regs := layout.PreservedRegs
	if len(regs)%2 == 1 {
		ldpPost(regs[len(regs)-1], arm64.XZR, arm64.SP, 16)
	}
	for i := len(regs) - 1 - len(regs)%2; i >= 1; i -= 2 {
		ldpPost(regs[i-1], regs[i], arm64.SP, 16)
	}
	if layout.PreserveFramePointer {
		ldpPost(arm64.X29, arm64.X30, arm64.SP, 16)
	}
}
