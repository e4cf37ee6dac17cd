package arm64_test

import (
	"testing"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/isa"
	"github.com/ngcodegen/corejit/isa/arm64"
)

// TestBranchFixup is end-to-end scenario 6: b L; nop x3; L: ret must
// encode word 0 as 0x14000004 (b imm26=4) and the label must resolve
// cleanly through finalize.
func TestBranchFixup(t *testing.T) {
	ch := code.New(code.Env{Arch: code.ArchARM64, ABI: code.ABIAArch64AAPCS, Platform: "linux"})
	a := arm64.NewAssembler(ch)
	l := ch.NewLabel()
	if err := a.B(l); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := a.NOP(); err != nil {
			t.Fatal(err)
		}
	}
	if err := ch.Bind(l); err != nil {
		t.Fatal(err)
	}
	if err := a.RET(); err != nil {
		t.Fatal(err)
	}
	fc, err := ch.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	word0 := uint32(fc.Bytes[0]) | uint32(fc.Bytes[1])<<8 | uint32(fc.Bytes[2])<<16 | uint32(fc.Bytes[3])<<24
	if word0 != 0x14000004 {
		t.Fatalf("expected word0 0x14000004, got %#x", word0)
	}
	if len(fc.Bytes) != 20 {
		t.Fatalf("expected 5 instructions (20 bytes), got %d", len(fc.Bytes))
	}
}

func TestBCondShortDistance(t *testing.T) {
	ch := code.New(code.Env{Arch: code.ArchARM64, ABI: code.ABIAArch64AAPCS, Platform: "linux"})
	a := arm64.NewAssembler(ch)
	l := ch.NewLabel()
	if err := a.BCond(isa.CondE, l); err != nil {
		t.Fatal(err)
	}
	if err := a.NOP(); err != nil {
		t.Fatal(err)
	}
	if err := ch.Bind(l); err != nil {
		t.Fatal(err)
	}
	if _, err := ch.Finalize(); err != nil {
		t.Fatal(err)
	}
}
