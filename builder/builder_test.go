package builder_test

import (
	"bytes"
	"testing"

	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/isa/x64"
	"github.com/ngcodegen/corejit/operand"
)

// TestSerializeEmitsMovAddRet builds `mov eax, 1; add eax, 2; ret` through
// the node list and checks Serialize drives the x64 encoder to the exact
// expected byte sequence.
func TestSerializeEmitsMovAddRet(t *testing.T) {
	b := builder.New(code.ArchAMD64)
	b.Inst(x64.MOV, x64.EAX, operand.Immediate{Value: 1})
	b.Inst(x64.ADD, x64.EAX, operand.Immediate{Value: 2})
	b.Inst(x64.RET)

	ch := code.New(code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV})
	enc := x64.NewAssembler(ch)
	if err := builder.Serialize(ch, enc, b.Nodes()); err != nil {
		t.Fatal(err)
	}

	fc, err := ch.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if fc.Bytes[len(fc.Bytes)-1] != 0xC3 {
		t.Fatalf("expected trailing RET (0xC3), got %#x", fc.Bytes[len(fc.Bytes)-1])
	}
	want := []byte{0xB8, 0x01, 0x00, 0x00, 0x00, 0x83, 0xC0, 0x02, 0xC3}
	if !bytes.Equal(fc.Bytes, want) {
		t.Fatalf("got % x, want % x", fc.Bytes, want)
	}
}

// TestFuncBeginEndContributeNoBytes checks that function-boundary and
// comment markers are skipped by Serialize entirely, leaving only the
// RET's single byte in the finalized buffer.
func TestFuncBeginEndContributeNoBytes(t *testing.T) {
	b := builder.New(code.ArchAMD64)
	sig := &builder.FuncSignature{Name: "noop"}
	b.FuncBegin(sig)
	b.Comment("body")
	b.Inst(x64.RET)
	b.FuncEnd()

	ch := code.New(code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV})
	enc := x64.NewAssembler(ch)
	if err := builder.Serialize(ch, enc, b.Nodes()); err != nil {
		t.Fatal(err)
	}

	fc, err := ch.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Bytes) != 1 || fc.Bytes[0] != 0xC3 {
		t.Fatalf("expected a single RET byte, got %v", fc.Bytes)
	}
}

// TestInsertBeforeAfterSpliceCorrectly exercises the splice helpers the
// allocator and frame builder rely on to insert spill code and
// prologue/epilogue instructions without disturbing node order.
func TestInsertBeforeAfterSpliceCorrectly(t *testing.T) {
	b := builder.New(code.ArchAMD64)
	first := b.Inst(x64.RET)
	mid := &builder.Node{Kind: builder.NodeComment, Comment: "mid"}
	b.InsertBefore(first, mid)
	last := &builder.Node{Kind: builder.NodeComment, Comment: "last"}
	b.InsertAfter(first, last)

	nodes := b.Nodes()
	if len(nodes) != 3 || nodes[0] != mid || nodes[1] != first || nodes[2] != last {
		t.Fatalf("unexpected node order: %+v", nodes)
	}
	if b.First() != mid || b.Last() != last {
		t.Fatalf("expected head=mid tail=last, got head=%+v tail=%+v", b.First(), b.Last())
	}
}
