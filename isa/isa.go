// Package isa defines the architecture-neutral vocabulary shared by the
// x86-64 and AArch64 instruction databases and assemblers (spec §4.4,
// §4.5): canonical instruction ids, the condition-code enum that
// parameterizes Jcc/SETcc/CMOVcc/B.cond, and the small set of predicates
// the register allocator's CFG builder needs from any architecture.
package isa

import "fmt"

// Instruction is a canonical instruction id. Each architecture package
// defines its own numeric space; aliasing mnemonics (JAE/JNB/JNC) map to
// the same id at the table-construction site rather than at use sites.
type Instruction uint16

// ConditionCode is the architecture-neutral condition enum of spec §4.4.
// Jcc, SETcc, CMOVcc on x86-64 and B.cond on AArch64 are all
// parameterized by this same enum; each architecture's encoder maps it
// to its own condition bit pattern.
type ConditionCode byte

const (
	CondO ConditionCode = iota
	CondNO
	CondB
	CondAE
	CondE
	CondNE
	CondBE
	CondA
	CondS
	CondNS
	CondP
	CondNP
	CondL
	CondGE
	CondLE
	CondG
)

func (c ConditionCode) String() string {
	names := [...]string{"o", "no", "b", "ae", "e", "ne", "be", "a", "s", "ns", "p", "np", "l", "ge", "le", "g"}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("cc(%d)", byte(c))
}

// Negate returns the condition that holds exactly when c does not,
// matching the standard x86/AArch64 pairing (used by the register
// allocator and by branch-relaxation to invert a conditional branch
// around a long jump).
func (c ConditionCode) Negate() ConditionCode {
	return c ^ 1
}

// InstructionMeta is the per-instruction-id static metadata the register
// allocator's CFG builder needs (spec §4.7 step 1): whether the
// instruction is a jump, a conditional jump, or a return, independent of
// architecture.
type InstructionMeta struct {
	IsJump            bool
	IsConditionalJump bool
	IsCall            bool
	IsReturn          bool
	// IsCompare marks instructions whose first operand is read-only (CMP,
	// TEST): the register allocator's def/use pass must not treat operand
	// 0 as a definition the way it does for the destination-first
	// MOV/ADD/SUB family.
	IsCompare bool
	// IsMove marks a plain register-to-register move, the only shape the
	// allocator's coalescing pass considers merging away.
	IsMove bool
}
