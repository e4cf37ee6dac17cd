package frame_test

import (
	"testing"

	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/frame"
	"github.com/ngcodegen/corejit/internal/testing/require"
	"github.com/ngcodegen/corejit/isa/x64"
	"github.com/ngcodegen/corejit/operand"
)

func TestBuildSysVPinsIntArgsToRegisters(t *testing.T) {
	b := builder.New(code.ArchAMD64)
	sig := builder.NewSignature("identity", builder.CallConvSystemV,
		[]builder.Type{builder.TypeInt64, builder.TypeInt64}, []builder.Type{builder.TypeInt64})
	b.FuncBegin(sig)
	arg0 := b.NewVReg(operand.ClassGP, operand.Width64)
	arg1 := b.NewVReg(operand.ClassGP, operand.Width64)
	ret0 := b.NewVReg(operand.ClassGP, operand.Width64)
	b.Inst(x64.MOV, ret0, arg0)
	b.Inst(x64.ADD, ret0, arg1)
	b.FuncEnd()

	env := code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV, Platform: "linux"}
	pins, layout := frame.Build(b, env, sig, []operand.Register{arg0, arg1}, []operand.Register{ret0}, 0, nil)

	require.Equal(t, x64.RDI, pins[arg0.VID])
	require.Equal(t, x64.RSI, pins[arg1.VID])
	require.Equal(t, x64.RAX, pins[ret0.VID])
	require.True(t, layout.PreserveFramePointer)

	var sawPush, sawRet bool
	for _, n := range b.Nodes() {
		if n.Kind == builder.NodeInst && n.Instruction == x64.PUSH {
			sawPush = true
		}
		if n.Kind == builder.NodeInst && n.Instruction == x64.POP {
			sawRet = true
		}
	}
	require.True(t, sawPush, "expected a push rbp in the prologue")
	require.True(t, sawRet, "expected a pop rbp in the epilogue")
}

func TestClassifyArgsSpillsToStack(t *testing.T) {
	types := []builder.Type{
		builder.TypeInt64, builder.TypeInt64, builder.TypeInt64,
		builder.TypeInt64, builder.TypeInt64, builder.TypeInt64, builder.TypeInt64,
	}
	locs, stackSize := frame.ClassifyArgs(types, []operand.Register{x64.RDI, x64.RSI, x64.RDX, x64.RCX, x64.R8, x64.R9}, nil, false)
	require.Equal(t, frame.ArgKindStack, locs[6].Kind)
	require.Equal(t, int64(8), stackSize)
}

// TestWin64SharesPositionalSlotsAcrossClasses is the regression for spec
// §4.8's "integer and vector share positional slots": a mixed (int64,
// float64) signature must put the float in XMM1, the slot the leading int
// argument did not consume, not XMM0.
func TestWin64SharesPositionalSlotsAcrossClasses(t *testing.T) {
	abi := frame.Win64AMD64()
	types := []builder.Type{builder.TypeInt64, builder.TypeFloat64}

	locs, _ := frame.ClassifyArgs(types, abi.ArgInts, abi.ArgFloats, abi.SharedArgSlots)
	require.Equal(t, frame.ArgKindReg, locs[0].Kind)
	require.Equal(t, x64.RCX, locs[0].Reg)
	require.Equal(t, frame.ArgKindReg, locs[1].Kind)
	require.Equal(t, x64.XMM1, locs[1].Reg)
}
