package x64_test

import (
	"bytes"
	"testing"

	"github.com/ngcodegen/corejit/code"
	"github.com/ngcodegen/corejit/isa/x64"
	"github.com/ngcodegen/corejit/operand"
)

func newHolder() *code.CodeHolder {
	return code.New(code.Env{Arch: code.ArchAMD64, ABI: code.ABISystemV, Platform: "linux"})
}

// TestIdentitySysV is end-to-end scenario 1 of spec §8: mov rax, rdi; ret.
func TestIdentitySysV(t *testing.T) {
	ch := newHolder()
	a := x64.NewAssembler(ch)
	if err := a.MOV(x64.RAX, x64.RDI); err != nil {
		t.Fatal(err)
	}
	if err := a.RET(); err != nil {
		t.Fatal(err)
	}
	fc, err := ch.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x48, 0x89, 0xF8, 0xC3}
	if !bytes.Equal(fc.Bytes, want) {
		t.Fatalf("got % x, want % x", fc.Bytes, want)
	}
}

// TestAddWin64 is end-to-end scenario 2: mov rax, rcx; add rax, rdx; ret.
func TestAddWin64(t *testing.T) {
	ch := code.New(code.Env{Arch: code.ArchAMD64, ABI: code.ABIWin64, Platform: "windows"})
	a := x64.NewAssembler(ch)
	if err := a.MOV(x64.RAX, x64.RCX); err != nil {
		t.Fatal(err)
	}
	if err := a.ADD(x64.RAX, x64.RDX); err != nil {
		t.Fatal(err)
	}
	if err := a.RET(); err != nil {
		t.Fatal(err)
	}
	fc, err := ch.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x48, 0x89, 0xC8, 0x48, 0x01, 0xD0, 0xC3}
	if !bytes.Equal(fc.Bytes, want) {
		t.Fatalf("got % x, want % x", fc.Bytes, want)
	}
}

// TestLabelRelaxation is end-to-end scenario 3: jmp L; nop x200; L: ret
// must encode the jmp as rel32 since the distance exceeds 127.
func TestLabelRelaxation(t *testing.T) {
	ch := newHolder()
	a := x64.NewAssembler(ch)
	l := ch.NewLabel()
	if err := a.JMP(l); err != nil {
		t.Fatal(err)
	}
	if err := a.NOPs(200); err != nil {
		t.Fatal(err)
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
	if fc.Bytes[0] != 0xE9 {
		t.Fatalf("expected E9 (jmp rel32) at offset 0, got %#x", fc.Bytes[0])
	}
	disp := int32(fc.Bytes[1]) | int32(fc.Bytes[2])<<8 | int32(fc.Bytes[3])<<16 | int32(fc.Bytes[4])<<24
	if disp != 200 {
		t.Fatalf("expected displacement 200, got %d", disp)
	}
}

// TestConstPoolRipRelative is end-to-end scenario 4: mov eax, [rip+K];
// ret, where K holds 0xDEADBEEF.
func TestConstPoolRipRelative(t *testing.T) {
	ch := newHolder()
	a := x64.NewAssembler(ch)
	k := ch.AddConst([]byte{0xEF, 0xBE, 0xAD, 0xDE}, 4)
	mem := operand.RIP(k, 0, operand.Width32)
	if err := a.MOV(x64.EAX, mem); err != nil {
		t.Fatal(err)
	}
	if err := a.RET(); err != nil {
		t.Fatal(err)
	}
	fc, err := ch.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if fc.Bytes[0] != 0x8B {
		t.Fatalf("expected 8B (mov r32, r/m32), got %#x", fc.Bytes[0])
	}
	if fc.Bytes[1] != 0x05 {
		t.Fatalf("expected modrm 05 (rip-relative, reg=eax), got %#x", fc.Bytes[1])
	}
	// The pool aligns the 4-byte entry against its absolute offset, so one
	// pad byte follows the 7-byte text; read it where its label landed.
	constBytes := fc.Bytes[ch.LabelOffset(k):]
	if len(constBytes) < 4 || constBytes[0] != 0xEF || constBytes[3] != 0xDE {
		t.Fatalf("unexpected constant bytes: % x", constBytes)
	}
}

func TestJmpBackwardShortForm(t *testing.T) {
	ch := newHolder()
	a := x64.NewAssembler(ch)
	l := ch.NewLabel()
	ch.Bind(l)
	a.NOPs(10)
	if err := a.JMP(l); err != nil {
		t.Fatal(err)
	}
	fc, err := ch.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if fc.Bytes[10] != 0xEB {
		t.Fatalf("expected short jmp (EB) for a 10-byte backward distance, got %#x", fc.Bytes[10])
	}
}
