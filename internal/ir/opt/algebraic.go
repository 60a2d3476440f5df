package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// algebraicSimplify rewrites the handful of identities that show up
// constantly in lowered C: x+0, x-0, x*1, x*0, x&0, x|0, x^0, x&x, x|x,
// x^x, x-x, shifts by 0, and x/1, none of which need a full
// constant-folding evaluation. It looks at one instruction at a time, so
// double negation (a chain of two instructions) is not simplified.
func algebraicSimplify(f *ir.Function, _ *target.Descriptor) bool {
	changed := false
	for _, b := range f.Blocks {
		for _, in := range append([]*ir.Instr{}, b.Instr...) {
			if !in.HasResult() || len(in.Args) != 2 {
				continue
			}
			if v, ok := simplifyBinOp(in); ok {
				replaceAllUses(f, in.ID, v)
				changed = true
			}
		}
	}
	return changed
}

func simplifyBinOp(in *ir.Instr) (ir.Value, bool) {
	a, b := in.Args[0], in.Args[1]
	isZero := func(v ir.Value) bool { return v.IsConst() && v.Kind == ir.ValConstInt && v.Int == 0 }
	isOne := func(v ir.Value) bool { return v.IsConst() && v.Kind == ir.ValConstInt && v.Int == 1 }

	switch in.Op {
	case ir.OpAdd:
		if isZero(b) {
			return a, true
		}
		if isZero(a) {
			return b, true
		}
	case ir.OpSub:
		if isZero(b) {
			return a, true
		}
		if a.Eq(b) {
			return ir.ConstInt(in.Type, 0), true
		}
	case ir.OpMul:
		if isOne(b) {
			return a, true
		}
		if isOne(a) {
			return b, true
		}
		if isZero(a) || isZero(b) {
			return ir.ConstInt(in.Type, 0), true
		}
	case ir.OpOr:
		if isZero(b) {
			return a, true
		}
		if isZero(a) {
			return b, true
		}
		if a.Eq(b) {
			return a, true
		}
	case ir.OpAnd:
		if isZero(a) || isZero(b) {
			return ir.ConstInt(in.Type, 0), true
		}
		if a.Eq(b) {
			return a, true
		}
	case ir.OpXor:
		if isZero(b) {
			return a, true
		}
		if isZero(a) {
			return b, true
		}
		if a.Eq(b) {
			return ir.ConstInt(in.Type, 0), true
		}
	case ir.OpShl, ir.OpLShr, ir.OpAShr:
		if isZero(b) {
			return a, true
		}
	case ir.OpSDiv, ir.OpUDiv:
		if isOne(b) {
			return a, true
		}
	}
	return ir.Value{}, false
}
