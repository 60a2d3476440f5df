package ir

import (
	"fmt"
	"strings"
)

// Opcode is a compact discriminant for every instruction and terminator
// shape the core needs.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Arithmetic (integer only; float arithmetic is the F-prefixed set).
	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem

	// Float arithmetic.
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	// Bitwise.
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr

	// Integer compares.
	OpICmpEQ
	OpICmpNE
	OpICmpSLT
	OpICmpSLE
	OpICmpSGT
	OpICmpSGE
	OpICmpULT
	OpICmpULE
	OpICmpUGT
	OpICmpUGE

	// Float compares (ordered/unordered).
	OpFCmpOEQ
	OpFCmpONE
	OpFCmpOLT
	OpFCmpOLE
	OpFCmpOGT
	OpFCmpOGE
	OpFCmpUEQ
	OpFCmpUNE
	OpFCmpULT
	OpFCmpULE
	OpFCmpUGT
	OpFCmpUGE

	// Casts.
	OpSExt
	OpZExt
	OpTrunc
	OpFPTrunc
	OpFPExt
	OpItoF // signed/unsigned int -> float, Signed field distinguishes
	OpFtoI // float -> signed/unsigned int
	OpBitcast
	OpPtrCast

	// Memory.
	OpAlloca
	OpLoad
	OpStore
	OpGEP
	OpMemcpy

	// Calls.
	OpCallDirect
	OpCallIndirect
	OpCallIntrinsic

	// Control (non-terminator).
	OpPhi
	OpSelect
	OpCopy // introduced by phi-elimination
	OpInlineAsm

	// Terminators.
	OpBr
	OpCondBr
	OpRet
	OpUnreachable
	OpIndirectBr
	OpSwitch
)

// IsTerminator reports whether op closes a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBr, OpCondBr, OpRet, OpUnreachable, OpIndirectBr, OpSwitch:
		return true
	default:
		return false
	}
}

// HasSideEffect reports whether an instruction of this opcode must never
// be removed by DCE even with zero users, and must never be hoisted by
// LICM without alias reasoning. Stores, calls, memcpy, and inline asm are
// effectful by opcode; a volatile load is effectful too, but that depends
// on the instruction's Volatile flag, so DCE checks it per instruction.
func (op Opcode) HasSideEffect() bool {
	switch op {
	case OpStore, OpCallDirect, OpCallIndirect, OpCallIntrinsic, OpInlineAsm, OpMemcpy:
		return true
	default:
		return false
	}
}

// PhiEdge is one (predecessor, incoming value) pair of a phi instruction.
type PhiEdge struct {
	Pred BlockID
	Val  Value
}

// SwitchCase is one label of a switch terminator.
type SwitchCase struct {
	Val    Value // must be a constant integer
	Target BlockID
}

// Instr is a single IR instruction: a definition site (opcode + typed
// operands + optional result) or a terminator. All operands are held
// inline; opcode-specific fields below are zero unless the opcode uses
// them, matching the compact-discriminant design note.
type Instr struct {
	Op     Opcode
	ID     ValueID // InvalidValue if this instruction yields no value
	Type   Type    // result type, if ID != InvalidValue
	Args   []Value // primary operands, meaning depends on Op
	Name   string  // optional source name, for readability in dumps only

	// alloca
	AllocaSize  int64
	AllocaAlign int64
	ElemType    Type // the promoted register type mem2reg gives this slot
	Volatile    bool

	// gep
	GEPBase   Value
	GEPOffset int64 // constant byte offset
	GEPIndex  Value // optional dynamic index (ValInvalid Kind if unused)
	GEPStride int64 // element stride multiplying GEPIndex

	// calls
	Callee     string // direct callee name; empty for indirect
	CalleeVal  Value  // indirect callee pointer
	Sig        Signature
	Intrinsic  string // OpCallIntrinsic name (e.g. builtin lowering target)
	// PureIntrinsic marks an OpCallIntrinsic with no observable side
	// effect (e.g. __builtin_popcount), overriding the opcode's default
	// call-is-effectful classification for GVN/DCE purposes.
	PureIntrinsic bool

	// casts
	SrcType Type
	Signed  bool // for ItoF/FtoI: whether the integer side is signed

	// phi
	Incoming []PhiEdge

	// select
	Cond, TrueV, FalseV Value

	// branches
	Target      BlockID   // Br
	Cond2       Value     // CondBr condition (reuse Cond for select; keep distinct name)
	TrueBlk     BlockID   // CondBr
	FalseBlk    BlockID   // CondBr
	RetVal      *Value    // Ret, nil for void return
	IndirectTgt Value     // IndirectBr address operand
	IndirectSet []BlockID // possible targets of an indirect branch
	SwitchVal   Value
	SwitchDef   BlockID
	Cases       []SwitchCase

	// inline asm
	AsmText    string
	AsmClobber []string

	// memcpy
	MemcpyDst, MemcpySrc, MemcpyLen Value
}

func (i *Instr) HasResult() bool { return i.ID != InvalidValue }

func (i *Instr) String() string {
	var b strings.Builder
	if i.HasResult() {
		fmt.Fprintf(&b, "%%%d = ", i.ID)
	}
	switch i.Op {
	case OpAlloca:
		fmt.Fprintf(&b, "alloca %s, size %d, align %d", i.ElemType, i.AllocaSize, i.AllocaAlign)
	case OpLoad:
		vol := ""
		if i.Volatile {
			vol = "volatile "
		}
		fmt.Fprintf(&b, "%sload %s, %s", vol, i.Type, i.Args[0])
	case OpStore:
		vol := ""
		if i.Volatile {
			vol = "volatile "
		}
		fmt.Fprintf(&b, "%sstore %s, %s", vol, i.Args[0], i.Args[1])
	case OpGEP:
		fmt.Fprintf(&b, "gep %s, off %d", i.GEPBase, i.GEPOffset)
		if i.GEPStride != 0 {
			fmt.Fprintf(&b, ", %s*%d", i.GEPIndex, i.GEPStride)
		}
	case OpMemcpy:
		fmt.Fprintf(&b, "memcpy %s, %s, %s", i.MemcpyDst, i.MemcpySrc, i.MemcpyLen)
	case OpCallDirect:
		fmt.Fprintf(&b, "call @%s(%s)", i.Callee, joinValues(i.Args))
	case OpCallIndirect:
		fmt.Fprintf(&b, "call %s(%s)", i.CalleeVal, joinValues(i.Args))
	case OpCallIntrinsic:
		fmt.Fprintf(&b, "call.intrinsic %s(%s)", i.Intrinsic, joinValues(i.Args))
	case OpPhi:
		b.WriteString("phi ")
		for idx, e := range i.Incoming {
			if idx > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "[bb%d: %s]", e.Pred, e.Val)
		}
	case OpSelect:
		fmt.Fprintf(&b, "select %s, %s, %s", i.Cond, i.TrueV, i.FalseV)
	case OpCopy:
		fmt.Fprintf(&b, "copy %s", i.Args[0])
	case OpSExt, OpZExt, OpTrunc, OpFPTrunc, OpFPExt, OpBitcast, OpPtrCast:
		fmt.Fprintf(&b, "%s %s -> %s", i.Op, i.Args[0], i.Type)
	case OpItoF, OpFtoI:
		fmt.Fprintf(&b, "%s %s -> %s", i.Op, i.Args[0], i.Type)
	case OpInlineAsm:
		fmt.Fprintf(&b, "asm %q clobber(%s)", i.AsmText, strings.Join(i.AsmClobber, ","))
	case OpBr:
		fmt.Fprintf(&b, "br bb%d", i.Target)
	case OpCondBr:
		fmt.Fprintf(&b, "br %s, bb%d, bb%d", i.Cond2, i.TrueBlk, i.FalseBlk)
	case OpRet:
		if i.RetVal == nil {
			b.WriteString("ret")
		} else {
			fmt.Fprintf(&b, "ret %s", *i.RetVal)
		}
	case OpUnreachable:
		b.WriteString("unreachable")
	case OpIndirectBr:
		fmt.Fprintf(&b, "indirectbr %s", i.IndirectTgt)
	case OpSwitch:
		fmt.Fprintf(&b, "switch %s, default bb%d", i.SwitchVal, i.SwitchDef)
		for _, c := range i.Cases {
			fmt.Fprintf(&b, ", [%s: bb%d]", c.Val, c.Target)
		}
	default:
		fmt.Fprintf(&b, "%s %s", i.Op, joinValues(i.Args))
	}
	return b.String()
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func (op Opcode) String() string {
	names := map[Opcode]string{
		OpAdd: "add", OpSub: "sub", OpMul: "mul", OpUDiv: "udiv", OpSDiv: "sdiv",
		OpURem: "urem", OpSRem: "srem", OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv",
		OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr",
		OpICmpEQ: "icmp.eq", OpICmpNE: "icmp.ne", OpICmpSLT: "icmp.slt", OpICmpSLE: "icmp.sle",
		OpICmpSGT: "icmp.sgt", OpICmpSGE: "icmp.sge", OpICmpULT: "icmp.ult", OpICmpULE: "icmp.ule",
		OpICmpUGT: "icmp.ugt", OpICmpUGE: "icmp.uge",
		OpFCmpOEQ: "fcmp.oeq", OpFCmpONE: "fcmp.one", OpFCmpOLT: "fcmp.olt", OpFCmpOLE: "fcmp.ole",
		OpFCmpOGT: "fcmp.ogt", OpFCmpOGE: "fcmp.oge", OpFCmpUEQ: "fcmp.ueq", OpFCmpUNE: "fcmp.une",
		OpFCmpULT: "fcmp.ult", OpFCmpULE: "fcmp.ule", OpFCmpUGT: "fcmp.ugt", OpFCmpUGE: "fcmp.uge",
		OpSExt: "sext", OpZExt: "zext", OpTrunc: "trunc", OpFPTrunc: "fptrunc", OpFPExt: "fpext",
		OpItoF: "itof", OpFtoI: "ftoi", OpBitcast: "bitcast", OpPtrCast: "ptrcast",
		OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpGEP: "gep", OpMemcpy: "memcpy",
		OpCallDirect: "call", OpCallIndirect: "call", OpCallIntrinsic: "call.intrinsic",
		OpPhi: "phi", OpSelect: "select", OpCopy: "copy", OpInlineAsm: "asm",
		OpBr: "br", OpCondBr: "brcond", OpRet: "ret", OpUnreachable: "unreachable",
		OpIndirectBr: "indirectbr", OpSwitch: "switch",
	}
	if s, ok := names[op]; ok {
		return s
	}
	return "op?"
}

// IsCommutative reports whether operand order does not affect the result,
// used by GVN when building a canonical operand ordering.
func (op Opcode) IsCommutative() bool {
	switch op {
	case OpAdd, OpMul, OpAnd, OpOr, OpXor, OpICmpEQ, OpICmpNE, OpFAdd, OpFMul:
		return true
	default:
		return false
	}
}

// IsPure reports whether the instruction is free of side effects and does
// not read through memory, making it eligible for GVN and LICM hoisting
// (subject to LICM's separate load-hoisting ban).
func (i *Instr) IsPure() bool {
	if i.Op == OpCallIntrinsic {
		return i.PureIntrinsic
	}
	if i.Op.HasSideEffect() {
		return false
	}
	switch i.Op {
	case OpLoad: // pure w.r.t. control flow, but reads memory, so never a GVN/LICM candidate
		return false
	case OpAlloca, OpPhi, OpUnreachable, OpInlineAsm:
		return false
	default:
		return true
	}
}
