package regalloc

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// buildIntervals computes one LiveInterval per virtual register, using
// node index as the program-point position. The live-out sets close the
// gap left by a single linear def/use scan: a vreg live out of a block
// (carried through a loop, say, without being read inside it) has its
// End extended to that block's last node, which a pure first-def/last-use
// scan over a flat instruction list would miss.
func buildIntervals(c *cfg, meta func(isa.Instruction) isa.InstructionMeta) map[uint32]*LiveInterval {
	_, liveOut := liveness(c, meta)
	intervals := map[uint32]*LiveInterval{}

	touch := func(r operand.Register, pos int, isDef bool) {
		iv, ok := intervals[r.VID]
		if !ok {
			iv = &LiveInterval{VReg: r, Start: pos, End: pos}
			intervals[r.VID] = iv
		}
		if pos < iv.Start {
			iv.Start = pos
		}
		if pos > iv.End {
			iv.End = pos
		}
		if isDef {
			iv.Defs = append(iv.Defs, pos)
		} else {
			iv.Uses = append(iv.Uses, pos)
		}
	}

	for idx, n := range c.nodes {
		if n.Kind != builder.NodeInst {
			continue
		}
		defs, uses := defUse(n, meta)
		for _, d := range defs {
			touch(d, idx, true)
		}
		for _, u := range uses {
			touch(u, idx, false)
		}
	}

	for bi, b := range c.blocks {
		if b.end == b.start {
			continue
		}
		last := b.end - 1
		for vid := range liveOut[bi] {
			if iv, ok := intervals[vid]; ok && iv.End < last {
				iv.End = last
			}
		}
	}
	return intervals
}
