package operand

import "testing"

func mustEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRegisterEqualPhysical(t *testing.T) {
	a := Register{Class: ClassGP, Index: 0, Width: Width64}
	b := Register{Class: ClassGP, Index: 0, Width: Width64}
	c := Register{Class: ClassGP, Index: 1, Width: Width64}
	if !a.Equal(b) {
		t.Fatal("expected equal physical registers")
	}
	if a.Equal(c) {
		t.Fatal("expected distinct physical registers")
	}
}

func TestRegisterEqualVirtual(t *testing.T) {
	a := Register{Virtual: true, VID: 7, Class: ClassGP, Width: Width64}
	b := Register{Virtual: true, VID: 7, Class: ClassVector, Width: Width128}
	c := Register{Virtual: true, VID: 8, Class: ClassGP, Width: Width64}
	if !a.Equal(b) {
		t.Fatal("virtual registers compare by id alone")
	}
	if a.Equal(c) {
		t.Fatal("expected distinct virtual registers")
	}
}

func TestWithWidth(t *testing.T) {
	rax := Register{Class: ClassGP, Index: 0, Width: Width64}
	eax := rax.WithWidth(Width32)
	mustEqual(t, eax.Index, rax.Index)
	mustEqual(t, eax.Width, Width32)
}

func TestImmediateFits(t *testing.T) {
	small := Immediate{Value: 42}
	if !small.FitsInt8() {
		t.Fatal("42 should fit int8")
	}
	big := Immediate{Value: 1 << 40}
	if big.FitsInt8() || big.FitsInt32() {
		t.Fatal("1<<40 should not fit int8/int32")
	}
	if big.FitsUint32() {
		t.Fatal("1<<40 should not fit uint32")
	}
}

func TestMemoryConstructors(t *testing.T) {
	rax := Register{Class: ClassGP, Index: 0, Width: Width64}
	rbx := Register{Class: ClassGP, Index: 3, Width: Width64}
	m := BaseIndexScale(rax, rbx, Scale4, 16, Width32)
	if m.Base == nil || !m.Base.Equal(rax) {
		t.Fatal("expected base == rax")
	}
	if m.Index == nil || !m.Index.Equal(rbx) {
		t.Fatal("expected index == rbx")
	}
	mustEqual(t, m.Scale, Scale4)
	mustEqual(t, m.Displacement, int64(16))
}

func TestLabelKindAndString(t *testing.T) {
	l := Label{ID: 3}
	mustEqual(t, l.Kind(), KindLabel)
	mustEqual(t, l.String(), "L3")
}
