// Package jiterr defines the error taxonomy shared by every layer of the
// code generator (spec §7): sentinel Kind values meant to be wrapped with
// fmt.Errorf("%w: ...", Kind) and compared with errors.Is.
package jiterr

// Kind is a sentinel error identifying one of the taxonomy's buckets.
type Kind struct{ name string }

func (k *Kind) Error() string { return k.name }

var (
	// InvalidArgument marks a nonsensical size, operand kind, or bounds.
	InvalidArgument = &Kind{"invalid argument"}
	// UnknownInstruction marks an instruction id with no registered encoder.
	UnknownInstruction = &Kind{"unknown instruction"}
	// OperandMismatch marks an instruction for which no operand signature matched.
	OperandMismatch = &Kind{"operand mismatch"}
	// InvalidState marks an illegal sequencing: double bind, double finalize,
	// write to a non-writable block, use of a disposed handle.
	InvalidState = &Kind{"invalid state"}
	// UnresolvedLabel marks a referenced-but-never-bound label at finalize time.
	UnresolvedLabel = &Kind{"unresolved label"}
	// DisplacementOverflow marks a fixup whose computed displacement does not
	// fit the field width chosen at encode time.
	DisplacementOverflow = &Kind{"displacement overflow"}
	// FailedToMapVirtMem marks an OS refusal to map pages.
	FailedToMapVirtMem = &Kind{"failed to map virtual memory"}
	// ProtectionFailed marks an OS refusal to change page protection.
	ProtectionFailed = &Kind{"protection failed"}
	// NoCodeGenerated marks an empty buffer handed to the runtime.
	NoCodeGenerated = &Kind{"no code generated"}
	// FeatureNotEnabled marks functionality disabled by configuration
	// (e.g. executable memory turned off).
	FeatureNotEnabled = &Kind{"feature not enabled"}
)
