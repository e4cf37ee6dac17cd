package regalloc

import (
	"sort"

	"github.com/ngcodegen/corejit/operand"
)

type regQueue struct {
	regs []operand.Register
}

func newRegQueue(pool ClassPool) *regQueue {
	q := &regQueue{}
	q.regs = append(q.regs, pool.CallerSaved...)
	q.regs = append(q.regs, pool.CalleeSaved...)
	return q
}

func (q *regQueue) pop() (operand.Register, bool) {
	if len(q.regs) == 0 {
		return operand.Register{}, false
	}
	r := q.regs[0]
	q.regs = q.regs[1:]
	return r, true
}

func (q *regQueue) push(r operand.Register) { q.regs = append(q.regs, r) }

func (q *regQueue) remove(r operand.Register) bool {
	for i, x := range q.regs {
		if x.Equal(r) {
			q.regs = append(q.regs[:i], q.regs[i+1:]...)
			return true
		}
	}
	return false
}

// assign runs the sweep-by-start-point linear scan of spec §4.7: process
// intervals in order of increasing Start, expire intervals whose End
// precedes the current Start back into the free pool, then either hand
// out a free physical register or spill. When no register is free, the
// active interval with the farthest End (the one least likely to be
// needed soon) is evicted in favor of the current interval if the
// current interval ends sooner; otherwise the current interval itself is
// the one spilled. pins forces specific vregs (ABI argument/return
// registers) to specific physical registers for their entire interval.
func assign(intervals map[uint32]*LiveInterval, info RegisterInfo, pins map[uint32]operand.Register) int {
	ordered := make([]*LiveInterval, 0, len(intervals))
	for _, iv := range intervals {
		ordered = append(ordered, iv)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	queues := map[operand.Class]*regQueue{}
	for class, pool := range info.Pools {
		queues[class] = newRegQueue(pool)
	}
	activeByClass := map[operand.Class][]*LiveInterval{}

	expire := func(class operand.Class, start int) {
		active := activeByClass[class]
		kept := active[:0]
		for _, a := range active {
			if a.End < start {
				queues[class].push(a.PhysReg)
			} else {
				kept = append(kept, a)
			}
		}
		activeByClass[class] = kept
	}

	spillCount := 0
	for _, iv := range ordered {
		class := classOf(iv.VReg)
		expire(class, iv.Start)
		q := queues[class]

		if reg, pinned := pins[iv.VReg.VID]; pinned {
			q.remove(reg)
			iv.PhysReg = reg
			iv.Assigned = true
			activeByClass[class] = append(activeByClass[class], iv)
			continue
		}

		if reg, ok := q.pop(); ok {
			iv.PhysReg = reg
			iv.Assigned = true
			activeByClass[class] = append(activeByClass[class], iv)
			continue
		}

		active := activeByClass[class]
		victimIdx := -1
		for i, a := range active {
			if a.Assigned && !hasPin(pins, a.VReg.VID) {
				if victimIdx == -1 || a.End > active[victimIdx].End {
					victimIdx = i
				}
			}
		}
		if victimIdx >= 0 && active[victimIdx].End > iv.End {
			victim := active[victimIdx]
			iv.PhysReg = victim.PhysReg
			iv.Assigned = true
			victim.Spilled = true
			victim.SpillSlot = spillCount
			spillCount++
			active[victimIdx] = iv
			continue
		}
		iv.Spilled = true
		iv.SpillSlot = spillCount
		spillCount++
	}
	return spillCount
}

func hasPin(pins map[uint32]operand.Register, vid uint32) bool {
	_, ok := pins[vid]
	return ok
}
