package regalloc

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// DoAllocation runs the full pipeline of spec §4.7 over b's IR: build the
// CFG, compute liveness-closed live intervals, coalesce redundant moves,
// sweep-assign physical registers or spill slots, then rewrite the IR in
// place so every operand is physical. pins forces specific vregs (the
// function's incoming ABI argument registers, and its return value
// register) to specific physical registers for their whole lifetime;
// frame supplies the memory shape and scratch registers spilled vregs
// are rematerialized through.
func DoAllocation(b *builder.Builder, meta func(isa.Instruction) isa.InstructionMeta, info RegisterInfo, pins map[uint32]operand.Register, frame SpillConfig) *Allocation {
	nodes := b.Nodes()
	c := buildCFG(nodes, meta)
	intervals := buildIntervals(c, meta)
	coalesce(nodes, intervals, meta)
	numSpills := assign(intervals, info, pins)
	rewrite(b, nodes, intervals, frame, meta)
	return &Allocation{Intervals: intervals, NumSpills: numSpills}
}
