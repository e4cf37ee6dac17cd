// Package code implements the CodeHolder (spec §4.3): a relocation-aware
// byte buffer with a label table, a fixup queue, and a deduplicated
// constant pool, modeled on the buffer-growth and fixup-resolution
// discipline of wazero's internal/asm buffer and amd64/arm64 assemblers.
package code

import (
	"fmt"

	"github.com/ngcodegen/corejit/internal/jiterr"
	"github.com/ngcodegen/corejit/operand"
)

type labelEntry struct {
	state  operand.LabelState
	offset uint64
}

// CodeHolder owns the text bytes, the label table, the fixup queue, and
// the constant pool for one compiled unit. It is not safe for concurrent
// mutation (spec §5): a single goroutine builds, finalizes, and installs.
type CodeHolder struct {
	Env Env

	buf    []byte
	labels []labelEntry
	fixups []Fixup
	pool   *constPool

	finalized    bool
	finalizedBuf []byte
}

// New creates an empty CodeHolder for the given environment.
func New(env Env) *CodeHolder {
	return &CodeHolder{
		Env:  env,
		pool: newConstPool(),
	}
}

// NewLabel reserves a new label id; it starts Unbound/unreferenced.
func (c *CodeHolder) NewLabel() operand.Label {
	id := uint32(len(c.labels))
	c.labels = append(c.labels, labelEntry{state: operand.LabelUnbound})
	return operand.Label{ID: id}
}

// Offset returns the current end of the text buffer, i.e. the offset the
// next Emit call will start writing at.
func (c *CodeHolder) Offset() uint64 { return uint64(len(c.buf)) }

// Emit appends bytes to the text buffer and returns the offset they start at.
func (c *CodeHolder) Emit(b []byte) (offset uint64, err error) {
	if c.finalized {
		return 0, fmt.Errorf("%w: emit after finalize", jiterr.InvalidState)
	}
	offset = uint64(len(c.buf))
	c.buf = append(c.buf, b...)
	return offset, nil
}

// Bind records the current text offset as label's bound location. It does
// not patch any bytes: fixups already queued against the label stay in the
// queue and are resolved, together with all others, by Finalize.
// Re-binding an already bound label is a fatal InvalidState error (spec §3).
func (c *CodeHolder) Bind(l operand.Label) error {
	if int(l.ID) >= len(c.labels) {
		return fmt.Errorf("%w: bind of unknown label %s", jiterr.InvalidArgument, l)
	}
	entry := &c.labels[l.ID]
	if entry.state == operand.LabelBound {
		return fmt.Errorf("%w: label %s bound twice", jiterr.InvalidState, l)
	}
	entry.state = operand.LabelBound
	entry.offset = uint64(len(c.buf))
	return nil
}

// AddFixup records a deferred patch at offset, of kind, targeting label,
// with addend folded into the final displacement computation.
func (c *CodeHolder) AddFixup(offset uint64, kind FixupKind, label operand.Label, addend int64) error {
	if int(label.ID) >= len(c.labels) {
		return fmt.Errorf("%w: fixup against unknown label %s", jiterr.InvalidArgument, label)
	}
	entry := &c.labels[label.ID]
	if entry.state == operand.LabelUnbound {
		entry.state = operand.LabelReferenced
	}
	c.fixups = append(c.fixups, Fixup{Offset: offset, Kind: kind, Label: label, Addend: addend})
	return nil
}

// ConstPool exposes the constant pool for dedup-add operations.
func (c *CodeHolder) ConstPool() *constPool { return c.pool }

// IsBound reports whether l has already been bound to an offset.
func (c *CodeHolder) IsBound(l operand.Label) bool {
	if int(l.ID) >= len(c.labels) {
		return false
	}
	return c.labels[l.ID].state == operand.LabelBound
}

// LabelOffset returns l's bound offset. Only valid when IsBound(l).
func (c *CodeHolder) LabelOffset(l operand.Label) uint64 {
	return c.labels[l.ID].offset
}

// FinalizedCode is the immutable result of a successful Finalize: the
// final byte vector (text followed by the laid-out constant pool) and
// the resolved relocation info kept for introspection/testing.
type FinalizedCode struct {
	Bytes        []byte
	TextLen      int
	RelocationInfo []ResolvedFixup
}

// ResolvedFixup records, for testing and tooling, what a fixup resolved to.
type ResolvedFixup struct {
	Offset       uint64
	Kind         FixupKind
	Label        operand.Label
	Displacement int64
}

// Finalize implements the four-step pipeline of spec §4.3: append the
// constant pool with required alignment, resolve every fixup, verify
// every referenced label was bound, and return an immutable FinalizedCode.
//
// Calling Finalize a second time on the same holder is an InvalidState
// error (Open Question in spec §9, resolved here — see DESIGN.md).
func (c *CodeHolder) Finalize() (*FinalizedCode, error) {
	if c.finalized {
		return nil, fmt.Errorf("%w: finalize called twice", jiterr.InvalidState)
	}
	if len(c.buf) == 0 && len(c.fixups) == 0 {
		return nil, fmt.Errorf("%w: empty code holder", jiterr.NoCodeGenerated)
	}

	textLen := len(c.buf)
	poolBase, poolBytes, poolOffsets := c.pool.layout(textLen)
	_ = poolBase
	full := make([]byte, textLen+len(poolBytes))
	copy(full, c.buf)
	copy(full[textLen:], poolBytes)

	// Constant-pool entries are addressed by synthetic labels minted at
	// ConstPool.Add time; bind them now that their offsets are known.
	for id, off := range poolOffsets {
		lbl := operand.Label{ID: id}
		if int(lbl.ID) < len(c.labels) {
			entry := &c.labels[lbl.ID]
			entry.state = operand.LabelBound
			entry.offset = uint64(off)
		}
	}

	resolved := make([]ResolvedFixup, 0, len(c.fixups))
	for _, fx := range c.fixups {
		entry := &c.labels[fx.Label.ID]
		if entry.state != operand.LabelBound {
			return nil, fmt.Errorf("%w: %s referenced but never bound", jiterr.UnresolvedLabel, fx.Label)
		}
		disp, err := resolveDisplacement(fx, entry.offset)
		if err != nil {
			return nil, err
		}
		if err := patch(full, fx, disp); err != nil {
			return nil, err
		}
		resolved = append(resolved, ResolvedFixup{Offset: fx.Offset, Kind: fx.Kind, Label: fx.Label, Displacement: disp})
	}

	// Verify no referenced-but-unbound labels slipped through (e.g. a
	// label referenced only by AssignJumpTarget-style bookkeeping with no
	// fixup recorded would be a builder bug, not reachable here, but kept
	// as a defensive pass matching spec's explicit invariant 2).
	for id, entry := range c.labels {
		if entry.state == operand.LabelReferenced {
			return nil, fmt.Errorf("%w: label L%d referenced but never bound", jiterr.UnresolvedLabel, id)
		}
	}

	c.finalized = true
	c.finalizedBuf = full
	return &FinalizedCode{Bytes: full, TextLen: textLen, RelocationInfo: resolved}, nil
}

// resolveDisplacement computes the displacement for one fixup given the
// bound offset of its target label, per spec §4.3's algorithm:
// PC-relative kinds: disp = target − (fixupOffset + width(kind)) + addend.
// Absolute kinds: disp = target + addend.
func resolveDisplacement(fx Fixup, target uint64) (int64, error) {
	switch fx.Kind {
	case FixupRel8, FixupRel32, FixupRipRel32:
		end := fx.Offset + uint64(fx.Kind.Width())
		return int64(target) - int64(end) + fx.Addend, nil
	case FixupAbs32, FixupAbs64:
		return int64(target) + fx.Addend, nil
	case FixupARM64BImm26, FixupARM64BCondImm19:
		return int64(target) - int64(fx.Offset) + fx.Addend, nil
	case FixupARM64Adrp:
		instrPage := int64(fx.Offset) &^ 0xFFF
		targetPage := (int64(target) + fx.Addend) &^ 0xFFF
		return (targetPage - instrPage) >> 12, nil
	case FixupARM64AddLow12:
		return (int64(target) + fx.Addend) & 0xFFF, nil
	default:
		return 0, fmt.Errorf("%w: unknown fixup kind %d", jiterr.InvalidArgument, fx.Kind)
	}
}

// patch writes the resolved displacement into buf at the fixup's site,
// checking the field-width overflow rules from spec §4.3 and §4.5.
func patch(buf []byte, fx Fixup, disp int64) error {
	off := fx.Offset
	switch fx.Kind {
	case FixupRel8:
		if disp < -128 || disp > 127 {
			return fmt.Errorf("%w: rel8 displacement %d out of range", jiterr.DisplacementOverflow, disp)
		}
		buf[off] = byte(int8(disp))
	case FixupRel32, FixupRipRel32:
		if disp < -(1<<31) || disp > (1<<31)-1 {
			return fmt.Errorf("%w: rel32 displacement %d out of range", jiterr.DisplacementOverflow, disp)
		}
		putUint32LE(buf[off:], uint32(int32(disp)))
	case FixupAbs32:
		if disp < 0 || disp > 0xFFFFFFFF {
			return fmt.Errorf("%w: abs32 displacement %d out of range", jiterr.DisplacementOverflow, disp)
		}
		putUint32LE(buf[off:], uint32(disp))
	case FixupAbs64:
		putUint64LE(buf[off:], uint64(disp))
	case FixupARM64BImm26:
		if disp%4 != 0 || disp < -(1<<25)*4 || disp >= (1<<25)*4 {
			return fmt.Errorf("%w: b imm26 displacement %d out of range", jiterr.DisplacementOverflow, disp)
		}
		imm26 := uint32(disp/4) & 0x03FFFFFF
		word := leUint32(buf[off:])
		word = (word &^ 0x03FFFFFF) | imm26
		putUint32LE(buf[off:], word)
	case FixupARM64BCondImm19:
		if disp%4 != 0 || disp < -(1<<18)*4 || disp >= (1<<18)*4 {
			return fmt.Errorf("%w: b.cond imm19 displacement %d out of range", jiterr.DisplacementOverflow, disp)
		}
		imm19 := uint32(disp/4) & 0x7FFFF
		word := leUint32(buf[off:])
		word = (word &^ (0x7FFFF << 5)) | (imm19 << 5)
		putUint32LE(buf[off:], word)
	case FixupARM64Adrp:
		pageDisp := disp
		if pageDisp < -(1<<20) || pageDisp >= (1<<20) {
			return fmt.Errorf("%w: adrp page displacement %d out of range", jiterr.DisplacementOverflow, pageDisp)
		}
		immlo := uint32(pageDisp) & 0x3
		immhi := (uint32(pageDisp) >> 2) & 0x7FFFF
		word := leUint32(buf[off:])
		word = (word &^ (0x3 << 29)) | (immlo << 29)
		word = (word &^ (0x7FFFF << 5)) | (immhi << 5)
		putUint32LE(buf[off:], word)
	case FixupARM64AddLow12:
		if disp < 0 || disp > 0xFFF {
			return fmt.Errorf("%w: add low-12 displacement %d out of range", jiterr.DisplacementOverflow, disp)
		}
		word := leUint32(buf[off:])
		word = (word &^ (0xFFF << 10)) | (uint32(disp) << 10)
		putUint32LE(buf[off:], word)
	default:
		return fmt.Errorf("%w: unknown fixup kind %d", jiterr.InvalidArgument, fx.Kind)
	}
	return nil
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
