package regalloc

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// block is a maximal straight-line run of nodes: no label appears except
// possibly as the first node, and no jump appears except possibly as the
// last instruction node.
type block struct {
	start, end int // node indices, end exclusive
	succs      []int
}

// cfg is the basic-block graph built from one function's node slice, used
// by the liveness pass to propagate live-out sets across loop back-edges.
type cfg struct {
	nodes  []*builder.Node
	blocks []block
	// labelBlock maps a bound label's id to the block that starts with
	// its NodeLabel node.
	labelBlock map[uint32]int
}

func buildCFG(nodes []*builder.Node, meta func(isa.Instruction) isa.InstructionMeta) *cfg {
	c := &cfg{nodes: nodes, labelBlock: map[uint32]int{}}
	if len(nodes) == 0 {
		return c
	}
	starts := map[int]bool{0: true}
	for i, n := range nodes {
		if n.Kind == builder.NodeLabel {
			starts[i] = true
		}
		if n.Kind == builder.NodeInst && meta(n.Instruction).IsJump && i+1 < len(nodes) {
			starts[i+1] = true
		}
	}
	var bounds []int
	for i := range nodes {
		if starts[i] {
			bounds = append(bounds, i)
		}
	}
	bounds = append(bounds, len(nodes))
	for bi := 0; bi+1 < len(bounds); bi++ {
		b := block{start: bounds[bi], end: bounds[bi+1]}
		c.blocks = append(c.blocks, b)
		if nodes[b.start].Kind == builder.NodeLabel {
			c.labelBlock[nodes[b.start].Label.ID] = len(c.blocks) - 1
		}
	}
	for bi := range c.blocks {
		c.blocks[bi].succs = c.successorsOf(bi, meta)
	}
	return c
}

func (c *cfg) successorsOf(bi int, meta func(isa.Instruction) isa.InstructionMeta) []int {
	b := c.blocks[bi]
	var succs []int
	fallthroughOK := true
	if b.end > b.start {
		last := c.nodes[b.end-1]
		if last.Kind == builder.NodeInst {
			m := meta(last.Instruction)
			if m.IsReturn {
				fallthroughOK = false
			}
			if m.IsJump {
				if lbl, ok := labelOperand(last); ok {
					if tb, found := c.labelBlock[lbl]; found {
						succs = append(succs, tb)
					}
				}
				if !m.IsConditionalJump {
					fallthroughOK = false
				}
			}
		}
	}
	if fallthroughOK && bi+1 < len(c.blocks) {
		succs = append(succs, bi+1)
	}
	return succs
}

func labelOperand(n *builder.Node) (uint32, bool) {
	for _, op := range n.Operands {
		if lbl, ok := op.(operand.Label); ok {
			return lbl.ID, true
		}
	}
	return 0, false
}
