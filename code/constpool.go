package code

import (
	"fmt"

	"github.com/ngcodegen/corejit/operand"
)

type poolEntry struct {
	label operand.Label
	value []byte
	width int
}

// constPool deduplicates constant-pool entries by (value, width) and
// lays them out after the text section during Finalize, per spec §4.3.
type constPool struct {
	entries []poolEntry
	dedup   map[string]operand.Label
}

func newConstPool() *constPool {
	return &constPool{dedup: make(map[string]operand.Label)}
}

func poolKey(value []byte, width int) string {
	return fmt.Sprintf("%d:%x", width, value)
}

// AddConst adds a constant to the pool, returning a label bound during
// Finalize to the constant's byte offset in the final image. Equal
// (value, width) pairs are deduplicated to the same label.
func (c *CodeHolder) AddConst(value []byte, width int) operand.Label {
	key := poolKey(value, width)
	if l, ok := c.pool.dedup[key]; ok {
		return l
	}
	l := c.NewLabel()
	c.pool.dedup[key] = l
	c.pool.entries = append(c.pool.entries, poolEntry{label: l, value: value, width: width})
	return l
}

// layout assigns each pool entry an offset after textLen, aligned to its
// own width (entries up to 8 bytes align to their width; wider entries
// align to 16 bytes, matching typical vector-constant alignment needs),
// and returns the concatenated pool bytes plus a label-id -> offset map.
//
// Alignment is computed against the absolute image offset (textLen +
// cursor), not the pool-relative cursor alone: a vec128/vec256 constant
// needs its final address aligned, and textLen is not generally a
// multiple of 16, so padding against cursor alone could still land the
// entry on a misaligned absolute address.
func (c *constPool) layout(textLen int) (base int, bytes []byte, offsets map[uint32]int) {
	offsets = make(map[uint32]int, len(c.entries))
	cursor := 0
	for _, e := range c.entries {
		align := e.width
		if align > 16 || align <= 0 {
			align = 16
		}
		if rem := (textLen + cursor) % align; rem != 0 {
			pad := align - rem
			bytes = append(bytes, make([]byte, pad)...)
			cursor += pad
		}
		offsets[e.label.ID] = textLen + cursor
		bytes = append(bytes, e.value...)
		cursor += len(e.value)
	}
	return textLen, bytes, offsets
}
