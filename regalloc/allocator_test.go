package regalloc_test

import (
	"testing"

	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/internal/testing/require"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
	"github.com/ngcodegen/corejit/regalloc"
)

const (
	testMOV isa.Instruction = iota
	testADD
	testCMP
	testJMP
	testRET
)

func testMeta(id isa.Instruction) isa.InstructionMeta {
	switch id {
	case testMOV:
		return isa.InstructionMeta{IsMove: true}
	case testCMP:
		return isa.InstructionMeta{IsCompare: true}
	case testJMP:
		return isa.InstructionMeta{IsJump: true}
	case testRET:
		return isa.InstructionMeta{IsReturn: true}
	default:
		return isa.InstructionMeta{}
	}
}

func physGP(i uint16) operand.Register {
	return operand.Register{Class: operand.ClassGP, Index: i, Width: operand.Width64}
}

func smallPool(n int) regalloc.RegisterInfo {
	var regs []operand.Register
	for i := 0; i < n; i++ {
		regs = append(regs, physGP(uint16(i)))
	}
	return regalloc.RegisterInfo{Pools: map[operand.Class]regalloc.ClassPool{
		operand.ClassGP: {CallerSaved: regs},
	}}
}

func spillConfig() regalloc.SpillConfig {
	return regalloc.SpillConfig{
		MoveOpcode: testMOV,
		FrameBase:  physGP(31),
		SlotSize:   8,
		Scratch: map[operand.Class]operand.Register{
			operand.ClassGP: physGP(30),
		},
	}
}

// TestSpillsUnderPressure is scenario 5: 20 simultaneously-live virtual
// GPs against a 9-register pool must spill at least 11 of them.
func TestSpillsUnderPressure(t *testing.T) {
	b := builder.New(code.ArchAMD64)
	vregs := make([]operand.Register, 20)
	for i := range vregs {
		vregs[i] = b.NewVReg(operand.ClassGP, operand.Width64)
		b.Inst(testMOV, vregs[i], physGP(0))
	}
	for i := range vregs {
		b.Inst(testCMP, vregs[i], physGP(0))
	}
	b.Inst(testRET)

	alloc := regalloc.DoAllocation(b, testMeta, smallPool(9), nil, spillConfig())
	spilled := 0
	for _, iv := range alloc.Intervals {
		if iv.Spilled {
			spilled++
		}
	}
	require.True(t, spilled >= 11, "expected at least 11 spills, got %d", spilled)

	for _, n := range b.Nodes() {
		for _, op := range n.Operands {
			if r, ok := op.(operand.Register); ok {
				require.False(t, r.Virtual, "found unrewritten virtual register %s", r)
			}
		}
	}
}

// TestCoalescesDeadMove verifies a mov whose source dies at the copy
// collapses into the destination's interval instead of competing for its
// own register.
func TestCoalescesDeadMove(t *testing.T) {
	b := builder.New(code.ArchAMD64)
	src := b.NewVReg(operand.ClassGP, operand.Width64)
	dst := b.NewVReg(operand.ClassGP, operand.Width64)
	b.Inst(testMOV, src, physGP(0))
	b.Inst(testMOV, dst, src)
	b.Inst(testCMP, dst, physGP(1))
	b.Inst(testRET)

	alloc := regalloc.DoAllocation(b, testMeta, smallPool(4), nil, spillConfig())
	require.Equal(t, 0, alloc.NumSpills)

	coalescedCount := 0
	for _, n := range b.Nodes() {
		if n.Kind == builder.NodeComment && n.Comment == "coalesced move" {
			coalescedCount++
		}
	}
	require.Equal(t, 1, coalescedCount)
}

// TestLoopKeepsVRegLiveAcrossBackEdge exercises the CFG/liveness path: a
// vreg defined before a loop and used only after the loop body must stay
// live (and hold its register) across the whole loop, not just to the
// block boundary nearest its definition.
func TestLoopKeepsVRegLiveAcrossBackEdge(t *testing.T) {
	b := builder.New(code.ArchAMD64)
	carried := b.NewVReg(operand.ClassGP, operand.Width64)
	b.Inst(testMOV, carried, physGP(0))

	top := b.NewLabel()
	b.Bind(top)
	scratch := b.NewVReg(operand.ClassGP, operand.Width64)
	b.Inst(testMOV, scratch, physGP(1))
	b.Inst(testCMP, scratch, physGP(2))
	b.Inst(testJMP, top)

	b.Inst(testCMP, carried, physGP(3))
	b.Inst(testRET)

	alloc := regalloc.DoAllocation(b, testMeta, smallPool(8), nil, spillConfig())
	iv, ok := alloc.Intervals[carried.VID]
	require.True(t, ok, "carried interval should survive coalescing/assignment")
	require.True(t, iv.End > iv.Start, "carried should be live across the loop body")
}
