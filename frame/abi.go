// Package frame implements function calling-convention handling (spec
// §4.8): resolving a builder.FuncSignature's parameters and results to
// registers or stack slots under SysV-x64, Win64, or AArch64 AAPCS, and
// emitting the prologue/epilogue instruction sequence each convention
// requires. The argument-classification algorithm is grounded on
// internal/engine/wazevo/backend's FunctionABI.setABIArgs, generalized
// from that package's SSA-typed, register-allocator-VReg-typed version
// to operate directly on builder.Type and operand.Register.
package frame

import (
	"github.com/ngcodegen/corejit/builder"
	"github.com/ngcodegen/corejit/operand"
)

// ArgKind is where one argument or result lives.
type ArgKind byte

const (
	ArgKindReg ArgKind = iota
	ArgKindStack
)

// ArgLoc is the resolved location of one argument or result.
type ArgLoc struct {
	Index  int
	Kind   ArgKind
	Reg    operand.Register // valid if Kind == ArgKindReg
	Offset int64             // valid if Kind == ArgKindStack, relative to the arg/ret stack area
	Type   builder.Type
}

// ABIRegs is the fixed register file one calling convention draws
// argument and result locations from.
type ABIRegs struct {
	ArgInts    []operand.Register
	ArgFloats  []operand.Register
	ResultInts   []operand.Register
	ResultFloats []operand.Register
	// CalleeSaved lists the registers the prologue/epilogue must preserve
	// across a call, per the convention (spec §4.8's preservedRegs).
	CalleeSaved []operand.Register
	FrameBase   operand.Register // RBP / X29: the register spill slots and stack args are addressed from
	StackPtr    operand.Register // RSP / SP
	LinkOrRA    operand.Register // return-address register on arm64 (X30); unused on x64
	StackAlign  int64
	ShadowSpace int64 // Win64's caller-reserved 32 bytes; 0 elsewhere
	RedZone     int64 // SysV's 128-byte callee scratch area below RSP; 0 elsewhere
	// SharedArgSlots is true under Win64, where "integer and vector share
	// positional slots" (spec §4.8): argument i always resolves against
	// ArgInts[i] or ArgFloats[i] depending on its own type, rather than each
	// class tracking an independent cursor the way SysV and AAPCS do.
	SharedArgSlots bool
}

// Layout is the computed frame shape for one function (spec §4.8):
// whether the frame pointer is preserved, how many bytes of local (spill)
// stack the prologue must reserve, and which callee-saved registers this
// function's body actually clobbers and must save/restore.
type Layout struct {
	PreserveFramePointer bool
	LocalStackSize       int64
	AlignStack           int64
	PreservedRegs        []operand.Register
	UseRedZone           bool
}

// Resolved is the outcome of classifying one function's signature: where
// every argument and result lives, and the total stack-passed bytes.
type Resolved struct {
	Args, Results          []ArgLoc
	ArgStackSize, RetStackSize int64
}

// ClassifyArgs resolves types left-to-right to registers, then spills the
// remainder to stack slots in order, each slot 8 bytes (16 for vec128)
// and placed directly after the previous one, mirroring
// FunctionABI.setABIArgs.
//
// Under the default (shared == false) independent-counter mode, int and
// float each track their own cursor into intRegs/floatRegs — the SysV and
// AAPCS shape, where e.g. two floats in a row both come from the front of
// floatRegs regardless of how many ints preceded them.
//
// Under shared == true (Win64's "integer and vector share positional
// slots", spec §4.8), argument i always resolves against intRegs[i] or
// floatRegs[i] depending on its own type — a single positional counter,
// not a per-class one — so a Win64 (int64, float64) puts the float in
// XMM1, not XMM0, since the preceding int already consumed slot 0.
func ClassifyArgs(types []builder.Type, intRegs, floatRegs []operand.Register, shared bool) ([]ArgLoc, int64) {
	locs := make([]ArgLoc, len(types))
	var stackOffset int64
	intIdx, floatIdx := 0, 0
	for i, t := range types {
		loc := &locs[i]
		loc.Index, loc.Type = i, t
		if shared {
			if i < len(intRegs) && i < len(floatRegs) {
				if t.IsFloat() {
					loc.Kind, loc.Reg = ArgKindReg, floatRegs[i]
				} else {
					loc.Kind, loc.Reg = ArgKindReg, intRegs[i]
				}
				continue
			}
		} else if t.IsFloat() {
			if floatIdx < len(floatRegs) {
				loc.Kind, loc.Reg = ArgKindReg, floatRegs[floatIdx]
				floatIdx++
				continue
			}
		} else {
			if intIdx < len(intRegs) {
				loc.Kind, loc.Reg = ArgKindReg, intRegs[intIdx]
				intIdx++
				continue
			}
		}
		loc.Kind = ArgKindStack
		slot := int64(8)
		if t == builder.TypeVec128 {
			slot = 16
		}
		loc.Offset = stackOffset
		stackOffset += slot
	}
	return locs, stackOffset
}

// Classify resolves both the parameter list and the result list of sig
// against abi.
func Classify(sig *builder.FuncSignature, abi ABIRegs) Resolved {
	args, argSize := ClassifyArgs(sig.Params, abi.ArgInts, abi.ArgFloats, abi.SharedArgSlots)
	rets, retSize := ClassifyArgs(sig.Results, abi.ResultInts, abi.ResultFloats, abi.SharedArgSlots)
	return Resolved{Args: args, Results: rets, ArgStackSize: argSize, RetStackSize: retSize}
}

// AlignedStackSlotSize rounds the combined argument+result stack area up
// to a 16-byte boundary, as FunctionABI.AlignedArgResultStackSlotSize
// does.
func (r Resolved) AlignedStackSlotSize() int64 {
	total := r.ArgStackSize + r.RetStackSize
	return (total + 15) &^ 15
}
