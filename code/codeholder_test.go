package code

import (
	"errors"
	"testing"

	"github.com/ngcodegen/corejit/internal/jiterr"
)

func newTestHolder() *CodeHolder {
	return New(Env{Arch: ArchAMD64, ABI: ABISystemV, Platform: "linux"})
}

func TestBindAndRel32Fixup(t *testing.T) {
	c := newTestHolder()
	l := c.NewLabel()

	// jmp rel32 placeholder at offset 0, 5 bytes (opcode + imm32).
	off, _ := c.Emit([]byte{0xE9, 0, 0, 0, 0})
	if err := c.AddFixup(off+1, FixupRel32, l, 0); err != nil {
		t.Fatal(err)
	}
	// 200 one-byte NOPs between the jump and the label.
	for i := 0; i < 200; i++ {
		c.Emit([]byte{0x90})
	}
	if err := c.Bind(l); err != nil {
		t.Fatal(err)
	}
	c.Emit([]byte{0xC3}) // ret

	fc, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if fc.Bytes[0] != 0xE9 {
		t.Fatalf("expected E9 opcode, got %#x", fc.Bytes[0])
	}
	disp := int32(fc.Bytes[1]) | int32(fc.Bytes[2])<<8 | int32(fc.Bytes[3])<<16 | int32(fc.Bytes[4])<<24
	if disp != 200 {
		t.Fatalf("expected displacement 200, got %d", disp)
	}
}

func TestDoubleBindIsInvalidState(t *testing.T) {
	c := newTestHolder()
	l := c.NewLabel()
	c.Emit([]byte{0x90})
	if err := c.Bind(l); err != nil {
		t.Fatal(err)
	}
	err := c.Bind(l)
	if !errors.Is(err, jiterr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestUnresolvedLabelFailsFinalize(t *testing.T) {
	c := newTestHolder()
	l := c.NewLabel()
	off, _ := c.Emit([]byte{0xEB, 0})
	c.AddFixup(off+1, FixupRel8, l, 0)
	_, err := c.Finalize()
	if !errors.Is(err, jiterr.UnresolvedLabel) {
		t.Fatalf("expected UnresolvedLabel, got %v", err)
	}
}

func TestFinalizeTwiceIsInvalidState(t *testing.T) {
	c := newTestHolder()
	c.Emit([]byte{0xC3})
	if _, err := c.Finalize(); err != nil {
		t.Fatal(err)
	}
	_, err := c.Finalize()
	if !errors.Is(err, jiterr.InvalidState) {
		t.Fatalf("expected InvalidState on second finalize, got %v", err)
	}
}

func TestConstPoolDedupAndRipRelative(t *testing.T) {
	c := newTestHolder()
	val := []byte{0xEF, 0xBE, 0xAD, 0xDE} // 0xDEADBEEF LE
	l1 := c.AddConst(val, 4)
	l2 := c.AddConst(val, 4)
	if l1 != l2 {
		t.Fatalf("expected dedup to return the same label, got %v and %v", l1, l2)
	}

	// mov eax, [rip+disp32]; ret
	off, _ := c.Emit([]byte{0x8B, 0x05, 0, 0, 0, 0})
	c.AddFixup(off+2, FixupRipRel32, l1, 0)
	c.Emit([]byte{0xC3})

	fc, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if fc.TextLen != 7 {
		t.Fatalf("expected text length 7, got %d", fc.TextLen)
	}
	// The pool aligns each entry against its absolute offset, so padding may
	// sit between the text and the constant; read it where its label landed.
	constBytes := fc.Bytes[c.LabelOffset(l1):]
	if len(constBytes) < 4 || constBytes[0] != 0xEF {
		t.Fatalf("unexpected constant pool bytes: %x", constBytes)
	}
}

func TestRel8Overflow(t *testing.T) {
	c := newTestHolder()
	l := c.NewLabel()
	off, _ := c.Emit([]byte{0xEB, 0})
	c.AddFixup(off+1, FixupRel8, l, 0)
	for i := 0; i < 300; i++ {
		c.Emit([]byte{0x90})
	}
	c.Bind(l)
	_, err := c.Finalize()
	if !errors.Is(err, jiterr.DisplacementOverflow) {
		t.Fatalf("expected DisplacementOverflow, got %v", err)
	}
}

func TestARM64BranchImm26(t *testing.T) {
	c := New(Env{Arch: ArchARM64, ABI: ABIAArch64AAPCS, Platform: "linux"})
	l := c.NewLabel()
	// b L; word is 0x14000000 with imm26 filled in later.
	off, _ := c.Emit([]byte{0x00, 0x00, 0x00, 0x14})
	c.AddFixup(off, FixupARM64BImm26, l, 0)
	for i := 0; i < 3; i++ {
		c.Emit([]byte{0x1F, 0x20, 0x03, 0xD5}) // nop
	}
	c.Bind(l)
	c.Emit([]byte{0xC0, 0x03, 0x5F, 0xD6}) // ret

	fc, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	word0 := uint32(fc.Bytes[0]) | uint32(fc.Bytes[1])<<8 | uint32(fc.Bytes[2])<<16 | uint32(fc.Bytes[3])<<24
	if word0 != 0x14000004 {
		t.Fatalf("expected word0 0x14000004, got %#x", word0)
	}
}
