package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// narrowPass replaces a cast whose operand is an integer constant with
// Value.Narrow of that constant to the cast's type, and drops a cast whose
// operand already has the cast's type. A pair of casts such as
// trunc(zext x) is not combined.
func narrowPass(f *ir.Function, _ *target.Descriptor) bool {
	changed := false
	for _, b := range f.Blocks {
		for _, in := range append([]*ir.Instr{}, b.Instr...) {
			if !in.HasResult() || len(in.Args) != 1 {
				continue
			}
			if !isCastOp(in.Op) {
				continue
			}
			src := in.Args[0]
			if src.IsConst() && src.Kind == ir.ValConstInt {
				replaceAllUses(f, in.ID, src.Narrow(in.Type))
				changed = true
				continue
			}
			if src.Type.Eq(in.Type) {
				replaceAllUses(f, in.ID, src)
				changed = true
			}
		}
	}
	return changed
}

func isCastOp(op ir.Opcode) bool {
	switch op {
	case ir.OpSExt, ir.OpZExt, ir.OpTrunc, ir.OpBitcast:
		return true
	default:
		return false
	}
}
