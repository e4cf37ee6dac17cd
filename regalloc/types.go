// Package regalloc implements the linear-scan register allocator of
// spec §4.7: it walks a builder.Builder's IR in program order, assigns
// virtual registers to physical registers or spill slots, and rewrites
// the IR in place. The sweep-by-start-point assignment and
// farthest-end spill heuristic (the victim is the active interval whose
// End lies furthest away; next-use distances are not computed) are
// grounded on
// _examples/xyproto-vibe67's register_allocator.go; the VReg/RealReg
// vocabulary echoes internal/engine/wazevo/backend/regalloc (whose own
// algorithm is graph coloring, not linear scan, and is not reused here).
package regalloc

import (
	"github.com/ngcodegen/corejit/operand"
)

// LiveInterval is one VirtReg's live range: Start is the position of its
// first definition or use, End is the position of its last use (extended
// to the last node of any block it is live out of). Defs and Uses record
// every node index that defines or reads the register, needed by the
// rewrite pass and by spill-slot store/reload insertion.
type LiveInterval struct {
	VReg  operand.Register
	Start int
	End   int
	Defs  []int
	Uses  []int

	PhysReg   operand.Register
	Assigned  bool
	Spilled   bool
	SpillSlot int
}

// ClassPool is the ordered set of physical registers available to the
// allocator for one register class, partitioned into caller-saved
// (preferred, since no save/restore is owed across a call) and
// callee-saved (used once caller-saved registers run out).
type ClassPool struct {
	CallerSaved []operand.Register
	CalleeSaved []operand.Register
}

// RegisterInfo is the per-architecture, per-calling-convention register
// file the allocator draws from: one ClassPool per register class. ABI
// argument/result pins are not part of it; DoAllocation takes them as its
// separate pins map.
type RegisterInfo struct {
	Pools map[operand.Class]ClassPool
}

// Allocation is the result of DoAllocation: the resolved interval for
// every virtual register id, plus the number of 8-byte spill slots the
// function frame must reserve.
type Allocation struct {
	Intervals map[uint32]*LiveInterval
	NumSpills int
}
