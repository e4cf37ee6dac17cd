package frame

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/isa/arm64"
	"github.com/ngcodegen/corejit/isa/x64"
	"github.com/ngcodegen/corejit/operand"
	"github.com/ngcodegen/corejit/regalloc"
)

// RegistersForEnv picks the ABI register file for env, matching the
// calling-convention tag a builder.FuncSignature carries.
func RegistersForEnv(env code.Env) ABIRegs {
	switch {
	case env.Arch == code.ArchARM64:
		return AArch64AAPCS()
	case env.ABI == code.ABIWin64:
		return Win64AMD64()
	default:
		return SysVAMD64()
	}
}

// Build runs the full spec §4.8 pipeline for one function: it classifies
// sig's parameters/results against abi, emits loads that bring each
// incoming argument from its ABI location into argVRegs (the vregs the
// function body was written against), computes the Layout from localBytes
// plus whichever callee-saved registers clobbered are used by the body,
// splices a prologue after the FuncBegin node and an epilogue before the
// FuncEnd node, and returns the pin map regalloc.DoAllocation needs to
// hold argument/result vregs in their ABI-mandated physical registers for
// their entire lifetime.
func Build(b *builder.Builder, env code.Env, sig *builder.FuncSignature, argVRegs, resultVRegs []operand.Register, localBytes int64, clobbered []operand.Register) (pins map[uint32]operand.Register, layout Layout) {
	abi := RegistersForEnv(env)
	resolved := Classify(sig, abi)

	begin, end := findFuncBounds(b, sig)
	pins = map[uint32]operand.Register{}

	for i, loc := range resolved.Args {
		if i >= len(argVRegs) {
			break
		}
		v := argVRegs[i]
		switch loc.Kind {
		case ArgKindReg:
			pins[v.VID] = loc.Reg
		case ArgKindStack:
			loadStackArg(b, begin, env, v, abi, resolved.AlignedStackSlotSize(), loc.Offset)
		}
	}
	for i, loc := range resolved.Results {
		if i >= len(resultVRegs) {
			break
		}
		if loc.Kind == ArgKindReg {
			pins[resultVRegs[i].VID] = loc.Reg
		}
	}

	layout = Layout{
		PreserveFramePointer: true,
		LocalStackSize:       localBytes,
		AlignStack:           abi.StackAlign,
		PreservedRegs:        intersectRegs(abi.CalleeSaved, clobbered),
		UseRedZone:           abi.RedZone > 0 && localBytes <= abi.RedZone,
	}

	if env.Arch == code.ArchARM64 {
		EmitPrologueARM64(b, begin, layout)
		EmitEpilogueARM64(b, end, layout)
	} else {
		EmitPrologueX64(b, begin, layout)
		EmitEpilogueX64(b, end, layout)
	}
	return pins, layout
}

// SpillConfigFor returns the regalloc.SpillConfig wired to env's move
// opcode and frame base, so spilled vregs are stored/reloaded relative to
// the same frame pointer the prologue/epilogue established.
func SpillConfigFor(env code.Env, abi ABIRegs, argResultAreaSize int64) regalloc.SpillConfig {
	moveOp := x64.MOV
	scratch := map[operand.Class]operand.Register{operand.ClassGP: x64.R11, operand.ClassVector: x64.XMM7}
	if env.Arch == code.ArchARM64 {
		moveOp = arm64.MOV
		scratch = map[operand.Class]operand.Register{operand.ClassGP: arm64.X16, operand.ClassVector: arm64.V7}
	}
	return regalloc.SpillConfig{
		MoveOpcode: moveOp,
		FrameBase:  abi.FrameBase,
		SlotOffset: -(argResultAreaSize + 8),
		SlotSize:   8,
		Scratch:    scratch,
	}
}

func loadStackArg(b *builder.Builder, after *builder.Node, env code.Env, dst operand.Register, abi ABIRegs, argAreaSize, offset int64) {
	mem := operand.BaseDisp(abi.FrameBase, argAreaSize+offset+16, dst.Width)
	id := x64.MOV
	if env.Arch == code.ArchARM64 {
		id = arm64.LDR
	}
	nn := &builder.Node{Kind: builder.NodeInst, Instruction: id, Operands: []operand.Operand{dst, mem}}
	b.InsertAfter(after, nn)
}

func intersectRegs(abiCalleeSaved, clobbered []operand.Register) []operand.Register {
	var out []operand.Register
	for _, c := range clobbered {
		for _, a := range abiCalleeSaved {
			if c.Equal(a) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// findFuncBounds locates the FuncBegin/FuncEnd node pair in b carrying
// sig, so prologue/epilogue insertion has a stable anchor regardless of
// how many instructions already sit between them.
func findFuncBounds(b *builder.Builder, sig *builder.FuncSignature) (begin, end *builder.Node) {
	for n := b.First(); n != nil; n = n.Next() {
		if n.Kind == builder.NodeFuncBegin && n.Sig == sig {
			begin = n
		}
		if n.Kind == builder.NodeFuncEnd && begin != nil && end == nil {
			end = n
		}
	}
	return begin, end
}
