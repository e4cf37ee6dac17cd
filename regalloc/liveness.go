package regalloc

import (
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

type vregSet map[uint32]bool

func (s vregSet) clone() vregSet {
	out := make(vregSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s vregSet) union(o vregSet) bool {
	changed := false
	for k := range o {
		if !s[k] {
			s[k] = true
			changed = true
		}
	}
	return changed
}

// blockSets holds the classic upward-exposed-use and kill sets for one
// block, from which the backward dataflow equations compute LiveIn/Out.
type blockSets struct {
	ueVar   vregSet
	varKill vregSet
}

func computeBlockSets(c *cfg, meta func(isa.Instruction) isa.InstructionMeta) []blockSets {
	out := make([]blockSets, len(c.blocks))
	for bi, b := range c.blocks {
		ue := vregSet{}
		kill := vregSet{}
		for i := b.start; i < b.end; i++ {
			defs, uses := defUse(c.nodes[i], meta)
			for _, u := range uses {
				if !kill[u.VID] {
					ue[u.VID] = true
				}
			}
			for _, d := range defs {
				kill[d.VID] = true
			}
		}
		out[bi] = blockSets{ueVar: ue, varKill: kill}
	}
	return out
}

// liveness runs the standard backward iterative dataflow to a fixpoint:
//
//	LiveOut[B] = union over successors S of LiveIn[S]
//	LiveIn[B]  = UEVar[B] ∪ (LiveOut[B] - VarKill[B])
//
// Loops are handled correctly because predecessors through a back-edge
// are revisited until no set changes, rather than assumed acyclic.
func liveness(c *cfg, meta func(isa.Instruction) isa.InstructionMeta) (liveIn, liveOut []vregSet) {
	sets := computeBlockSets(c, meta)
	n := len(c.blocks)
	liveIn = make([]vregSet, n)
	liveOut = make([]vregSet, n)
	for i := range c.blocks {
		liveIn[i] = vregSet{}
		liveOut[i] = vregSet{}
	}
	for changed := true; changed; {
		changed = false
		for bi := n - 1; bi >= 0; bi-- {
			newOut := vregSet{}
			for _, s := range c.blocks[bi].succs {
				newOut.union(liveIn[s])
			}
			newIn := newOut.clone()
			for k := range sets[bi].varKill {
				delete(newIn, k)
			}
			newIn.union(sets[bi].ueVar)
			if !setEqual(newIn, liveIn[bi]) {
				liveIn[bi] = newIn
				changed = true
			}
			if !setEqual(newOut, liveOut[bi]) {
				liveOut[bi] = newOut
				changed = true
			}
		}
	}
	return liveIn, liveOut
}

func setEqual(a, b vregSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// classOf returns the register class a vreg was minted with.
func classOf(r operand.Register) operand.Class { return r.Class }
