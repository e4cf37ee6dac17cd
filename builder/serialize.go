package builder

import (
	"fmt"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/internal/jiterr"
)

// NodeEncoder is the capability an architecture assembler exposes to the
// serializer: turn one already-physical-register NodeInst into bytes.
// isa/x64.Assembler and isa/arm64.Assembler both implement it.
type NodeEncoder interface {
	EncodeNode(n *Node) error
}

// nopPadder is implemented by encoders that can pad with architectural
// NOPs instead of zero bytes (x86-64's multi-byte NOP forms).
type nopPadder interface {
	PadNOP(n int) error
}

// Serialize walks nodes in program order and, for each, either binds a
// label into ch, emits raw embedded bytes, pads for alignment, or
// dispatches to enc for an instruction. FuncBegin/FuncEnd/Comment/
// Sentinel nodes contribute no bytes directly; a prior frame-building
// pass (package frame) is expected to have already inserted the concrete
// prologue/epilogue instruction nodes between them.
func Serialize(ch *code.CodeHolder, enc NodeEncoder, nodes []*Node) error {
	for _, n := range nodes {
		switch n.Kind {
		case NodeLabel:
			if err := ch.Bind(n.Label); err != nil {
				return err
			}
		case NodeInst:
			if err := enc.EncodeNode(n); err != nil {
				return err
			}
		case NodeEmbedData:
			if _, err := ch.Emit(n.Data); err != nil {
				return err
			}
		case NodeAlign:
			if err := emitAlign(ch, enc, n); err != nil {
				return err
			}
		case NodeComment, NodeFuncBegin, NodeFuncEnd, NodeSentinel:
			// Contribute no bytes.
		default:
			return fmt.Errorf("%w: unknown node kind %d", jiterr.InvalidArgument, n.Kind)
		}
	}
	return nil
}

func emitAlign(ch *code.CodeHolder, enc NodeEncoder, n *Node) error {
	if n.AlignTo <= 0 {
		return fmt.Errorf("%w: align-to must be positive", jiterr.InvalidArgument)
	}
	cur := int(ch.Offset())
	rem := cur % n.AlignTo
	if rem == 0 {
		return nil
	}
	pad := n.AlignTo - rem
	if n.AlignMode == AlignNOP {
		if padder, ok := enc.(nopPadder); ok {
			return padder.PadNOP(pad)
		}
	}
	_, err := ch.Emit(make([]byte, pad))
	return err
}
