package opt

import (
	"math"

	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// constantFold evaluates any instruction whose operands are all compile-
// time constants, replacing its uses with the folded value.
func constantFold(f *ir.Function, _ *target.Descriptor) bool {
	changed := false
	for _, b := range f.Blocks {
		for _, in := range append([]*ir.Instr{}, b.Instr...) {
			if !in.HasResult() {
				continue
			}
			if v, ok := foldInstr(in); ok {
				replaceAllUses(f, in.ID, v)
				changed = true
			}
		}
	}
	return changed
}

func foldInstr(in *ir.Instr) (ir.Value, bool) {
	switch in.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr:
		return foldIntBinOp(in)
	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv:
		return foldFloatBinOp(in)
	case ir.OpICmpEQ, ir.OpICmpNE, ir.OpICmpSLT, ir.OpICmpSLE, ir.OpICmpSGT, ir.OpICmpSGE,
		ir.OpICmpULT, ir.OpICmpULE, ir.OpICmpUGT, ir.OpICmpUGE:
		return foldICmp(in)
	case ir.OpSExt, ir.OpZExt, ir.OpTrunc:
		if len(in.Args) == 1 && in.Args[0].IsConst() && in.Args[0].Kind == ir.ValConstInt {
			return in.Args[0].Narrow(in.Type), true
		}
	case ir.OpSelect:
		if in.Cond.IsConst() && in.Cond.Kind == ir.ValConstInt {
			if in.Cond.Int != 0 {
				return in.TrueV, true
			}
			return in.FalseV, true
		}
	}
	return ir.Value{}, false
}

func foldIntBinOp(in *ir.Instr) (ir.Value, bool) {
	if len(in.Args) != 2 {
		return ir.Value{}, false
	}
	a, b := in.Args[0], in.Args[1]
	if !a.IsConst() || !b.IsConst() || a.Kind != ir.ValConstInt || b.Kind != ir.ValConstInt {
		return ir.Value{}, false
	}
	var r uint64
	switch in.Op {
	case ir.OpAdd:
		r = a.Int + b.Int
	case ir.OpSub:
		r = a.Int - b.Int
	case ir.OpMul:
		r = a.Int * b.Int
	case ir.OpUDiv:
		if b.Int == 0 {
			return ir.Value{}, false
		}
		r = a.Int / b.Int
	case ir.OpSDiv:
		if b.Int == 0 || (a.SignedInt() == math.MinInt64 && b.SignedInt() == -1) {
			return ir.Value{}, false
		}
		r = uint64(a.SignedInt() / b.SignedInt())
	case ir.OpURem:
		if b.Int == 0 {
			return ir.Value{}, false
		}
		r = a.Int % b.Int
	case ir.OpSRem:
		if b.Int == 0 {
			return ir.Value{}, false
		}
		r = uint64(a.SignedInt() % b.SignedInt())
	case ir.OpAnd:
		r = a.Int & b.Int
	case ir.OpOr:
		r = a.Int | b.Int
	case ir.OpXor:
		r = a.Int ^ b.Int
	case ir.OpShl:
		r = a.Int << (b.Int & 63)
	case ir.OpLShr:
		r = a.Int >> (b.Int & 63)
	case ir.OpAShr:
		r = uint64(a.SignedInt() >> (b.Int & 63))
	default:
		return ir.Value{}, false
	}
	return ir.ConstInt(in.Type, r), true
}

func foldFloatBinOp(in *ir.Instr) (ir.Value, bool) {
	if len(in.Args) != 2 {
		return ir.Value{}, false
	}
	a, b := in.Args[0], in.Args[1]
	if !a.IsConst() || !b.IsConst() || a.Kind != ir.ValConstFloat || b.Kind != ir.ValConstFloat {
		return ir.Value{}, false
	}
	var r float64
	switch in.Op {
	case ir.OpFAdd:
		r = a.Float + b.Float
	case ir.OpFSub:
		r = a.Float - b.Float
	case ir.OpFMul:
		r = a.Float * b.Float
	case ir.OpFDiv:
		r = a.Float / b.Float
	}
	return ir.ConstFloat(in.Type, r), true
}

func foldICmp(in *ir.Instr) (ir.Value, bool) {
	if len(in.Args) != 2 {
		return ir.Value{}, false
	}
	a, b := in.Args[0], in.Args[1]
	if !a.IsConst() || !b.IsConst() || a.Kind != ir.ValConstInt || b.Kind != ir.ValConstInt {
		return ir.Value{}, false
	}
	var res bool
	switch in.Op {
	case ir.OpICmpEQ:
		res = a.Int == b.Int
	case ir.OpICmpNE:
		res = a.Int != b.Int
	case ir.OpICmpSLT:
		res = a.SignedInt() < b.SignedInt()
	case ir.OpICmpSLE:
		res = a.SignedInt() <= b.SignedInt()
	case ir.OpICmpSGT:
		res = a.SignedInt() > b.SignedInt()
	case ir.OpICmpSGE:
		res = a.SignedInt() >= b.SignedInt()
	case ir.OpICmpULT:
		res = a.Int < b.Int
	case ir.OpICmpULE:
		res = a.Int <= b.Int
	case ir.OpICmpUGT:
		res = a.Int > b.Int
	case ir.OpICmpUGE:
		res = a.Int >= b.Int
	}
	v := uint64(0)
	if res {
		v = 1
	}
	return ir.ConstInt(ir.I32, v), true
}
