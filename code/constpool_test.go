package code

import "testing"

// TestConstPoolAlignsAgainstAbsoluteOffset is the regression for a bug
// where a vec128 constant's 16-byte alignment was computed against the
// pool-relative cursor instead of the absolute image offset: an odd-length
// text section (here 3 bytes) must still push the constant to the next
// absolute 16-byte boundary, not merely the next pool-relative one.
func TestConstPoolAlignsAgainstAbsoluteOffset(t *testing.T) {
	c := newTestHolder()
	if _, err := c.Emit([]byte{0x90, 0x90, 0x90}); err != nil { // 3-byte text section
		t.Fatal(err)
	}

	l := c.AddConst(make([]byte, 16), 16) // vec128 constant

	if _, err := c.Finalize(); err != nil {
		t.Fatal(err)
	}

	off := c.LabelOffset(l)
	if off%16 != 0 {
		t.Fatalf("expected constant at a 16-byte-aligned absolute offset, got %d", off)
	}
}

// TestConstPoolDeduplicatesEqualEntries checks AddConst's dedup path stays
// correct under the new alignment computation.
func TestConstPoolDeduplicatesEqualEntries(t *testing.T) {
	c := newTestHolder()
	l1 := c.AddConst([]byte{1, 2, 3, 4}, 4)
	l2 := c.AddConst([]byte{1, 2, 3, 4}, 4)
	if l1.ID != l2.ID {
		t.Fatalf("expected equal constants to dedup to the same label, got %d and %d", l1.ID, l2.ID)
	}
}
