package builder

import (
	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/operand"
)

// Builder appends IR nodes without encoding; it is the Emitter
// capability (spec §9) implemented by recording nodes rather than bytes.
// It exposes NewLabel, Bind, Align, Comment, EmbedData, and the generic
// Inst/InstCond appenders that take an instruction id; it has no
// per-instruction methods. Serialization (register allocation, then
// assembly) is a separate pass over the finished node list.
type Builder struct {
	Arch code.Arch

	head, tail  *Node
	nextLabelID uint32
	nextVRegID  uint32
}

// New creates an empty Builder targeting arch.
func New(arch code.Arch) *Builder {
	return &Builder{Arch: arch}
}

func (b *Builder) append(n *Node) *Node {
	if b.tail == nil {
		b.head, b.tail = n, n
		return n
	}
	n.prev = b.tail
	b.tail.next = n
	b.tail = n
	return n
}

// First returns the first node in program order, or nil if empty.
func (b *Builder) First() *Node { return b.head }

// Last returns the last node in program order, or nil if empty.
func (b *Builder) Last() *Node { return b.tail }

// Nodes materializes the node list into a slice, for passes that find it
// more convenient than walking the linked list (the allocator and tests).
func (b *Builder) Nodes() []*Node {
	var out []*Node
	for n := b.head; n != nil; n = n.next {
		out = append(out, n)
	}
	return out
}

// NewLabel mints a fresh label id, unique within this Builder.
func (b *Builder) NewLabel() operand.Label {
	id := b.nextLabelID
	b.nextLabelID++
	return operand.Label{ID: id}
}

// NewVReg mints a fresh virtual register of the given class and width.
func (b *Builder) NewVReg(class operand.Class, width operand.Width) operand.Register {
	id := b.nextVRegID
	b.nextVRegID++
	return operand.Register{Virtual: true, VID: id, Class: class, Width: width}
}

// Bind appends a Label node, marking the program point l refers to.
func (b *Builder) Bind(l operand.Label) *Node {
	return b.append(&Node{Kind: NodeLabel, Label: l})
}

// Inst appends an instruction node and returns it so callers can attach
// jump-target bookkeeping (AssignJumpTarget-equivalent: simply set
// Operands to include the target Label operand).
func (b *Builder) Inst(id isa.Instruction, ops ...operand.Operand) *Node {
	return b.append(&Node{Kind: NodeInst, Instruction: id, Operands: ops})
}

// InstCond appends a conditional instruction (Jcc/SETcc/CMOVcc/B.cond)
// carrying an explicit condition code.
func (b *Builder) InstCond(id isa.Instruction, cc isa.ConditionCode, ops ...operand.Operand) *Node {
	return b.append(&Node{Kind: NodeInst, Instruction: id, Operands: ops, Options: InstOptions{Cond: cc, HasCond: true}})
}

// Align appends an alignment directive.
func (b *Builder) Align(mode AlignMode, to int) *Node {
	return b.append(&Node{Kind: NodeAlign, AlignMode: mode, AlignTo: to})
}

// EmbedData appends a raw data blob, unitSize bytes per logical element
// (used for jump tables and inline constants placed directly in the
// instruction stream rather than the constant pool).
func (b *Builder) EmbedData(data []byte, unitSize int) *Node {
	return b.append(&Node{Kind: NodeEmbedData, Data: data, UnitSize: unitSize})
}

// Comment appends a debug-only comment node; it contributes no bytes.
func (b *Builder) Comment(s string) *Node {
	return b.append(&Node{Kind: NodeComment, Comment: s})
}

// FuncBegin appends a function-boundary marker carrying sig; the
// register allocator uses it to pin ABI argument registers and the
// frame builder uses it to choose prologue shape.
func (b *Builder) FuncBegin(sig *FuncSignature) *Node {
	return b.append(&Node{Kind: NodeFuncBegin, Sig: sig, FuncName: sig.Name})
}

// FuncEnd appends the matching function-boundary close marker.
func (b *Builder) FuncEnd() *Node {
	return b.append(&Node{Kind: NodeFuncEnd})
}

// Sentinel appends a structural marker carrying no bytes.
func (b *Builder) Sentinel(kind SentinelKind) *Node {
	return b.append(&Node{Kind: NodeSentinel, Sentinel: kind})
}

// InsertAfter splices newNode immediately after at, used by the frame
// builder to insert prologue/epilogue instructions and by the allocator
// to insert spill stores/reloads.
func (b *Builder) InsertAfter(at *Node, newNode *Node) {
	newNode.prev = at
	newNode.next = at.next
	if at.next != nil {
		at.next.prev = newNode
	} else {
		b.tail = newNode
	}
	at.next = newNode
}

// InsertBefore splices newNode immediately before at.
func (b *Builder) InsertBefore(at *Node, newNode *Node) {
	newNode.next = at
	newNode.prev = at.prev
	if at.prev != nil {
		at.prev.next = newNode
	} else {
		b.head = newNode
	}
	at.prev = newNode
}
