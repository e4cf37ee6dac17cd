// Package builder implements the deferred IR (spec §4.6): an append-only
// doubly-linked list of nodes recording instructions, labels, alignment
// directives, embedded data, comments, and function boundaries, in
// program order. It is the input format consumed by the register
// allocator (package regalloc) and ultimately serialized by the
// architecture assemblers (isa/x64, isa/arm64).
package builder

import (
	"fmt"
	"strings"

	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// NodeKind discriminates the IR node variants of spec §3.
type NodeKind byte

const (
	NodeInst NodeKind = iota
	NodeLabel
	NodeAlign
	NodeEmbedData
	NodeComment
	NodeFuncBegin
	NodeFuncEnd
	NodeSentinel
)

// AlignMode selects what an Align node pads with.
type AlignMode byte

const (
	AlignNOP AlignMode = iota
	AlignZero
)

// SentinelKind marks a structural position in the node list that carries
// no bytes of its own (e.g. a basic-block boundary marker appended with
// Builder.Sentinel). The regalloc CFG builder does not insert these; it
// splits blocks at labels and jumps.
type SentinelKind byte

const (
	SentinelBlockBoundary SentinelKind = iota
)

// InstOptions carries the rarely-needed per-instruction flags an encoder
// consults: an explicit condition code for Jcc/SETcc/CMOVcc/B.cond, and a
// caller request for the short-form branch encoding.
type InstOptions struct {
	Cond       isa.ConditionCode
	HasCond    bool
	ForceShort bool
}

// Node is one element of the IR list. Exactly one of the Kind-specific
// fields below is meaningful for a given Kind; this mirrors the
// teacher's single nodeImpl struct carrying a discriminant plus a union
// of fields, generalized across both architectures instead of being
// x86-64-specific.
type Node struct {
	Kind NodeKind

	// NodeInst
	Instruction isa.Instruction
	Operands    []operand.Operand
	Options     InstOptions

	// NodeLabel
	Label operand.Label

	// NodeAlign
	AlignMode AlignMode
	AlignTo   int

	// NodeEmbedData
	Data     []byte
	UnitSize int

	// NodeComment
	Comment string

	// NodeFuncBegin / NodeFuncEnd
	FuncName string
	Sig      *FuncSignature

	// NodeSentinel
	Sentinel SentinelKind

	prev, next *Node
}

func (n *Node) String() string {
	switch n.Kind {
	case NodeInst:
		parts := make([]string, len(n.Operands))
		for i, o := range n.Operands {
			parts[i] = o.String()
		}
		return fmt.Sprintf("inst(%d) %s", n.Instruction, strings.Join(parts, ", "))
	case NodeLabel:
		return fmt.Sprintf("%s:", n.Label)
	case NodeAlign:
		return fmt.Sprintf("align %d", n.AlignTo)
	case NodeEmbedData:
		return fmt.Sprintf("embed %d bytes", len(n.Data))
	case NodeComment:
		return "// " + n.Comment
	case NodeFuncBegin:
		return "func " + n.FuncName + " {"
	case NodeFuncEnd:
		return "}"
	case NodeSentinel:
		return "sentinel"
	default:
		return "?"
	}
}

// Next returns the next node in program order, or nil at the list's end.
func (n *Node) Next() *Node { return n.next }

// Prev returns the previous node in program order, or nil at the list's start.
func (n *Node) Prev() *Node { return n.prev }

// IsJump reports whether this instruction node is any kind of jump,
// using the architecture's own Meta table.
func (n *Node) IsJump(meta func(isa.Instruction) isa.InstructionMeta) bool {
	return n.Kind == NodeInst && meta(n.Instruction).IsJump
}
