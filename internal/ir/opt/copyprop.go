package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// copyProp eliminates OpCopy instructions (introduced by phi-elimination
// on a re-optimized function, or by a trivial single-source phi) and phis
// with exactly one distinct incoming value, replacing every use with the
// copied/phi'd value directly.
func copyProp(f *ir.Function, _ *target.Descriptor) bool {
	changed := false
	for _, b := range f.Blocks {
		for _, in := range append([]*ir.Instr{}, b.Instr...) {
			if in.Op == ir.OpCopy && in.HasResult() {
				replaceAllUses(f, in.ID, in.Args[0])
				changed = true
			}
		}
		for _, p := range append([]*ir.Instr{}, b.Phis...) {
			if v, ok := trivialPhiValue(p); ok {
				replaceAllUses(f, p.ID, v)
				changed = true
			}
		}
	}
	return changed
}

// trivialPhiValue reports the single distinct incoming value of a phi,
// ignoring self-references (a loop-carried phi whose only other source is
// itself is still trivial, equal to that other source).
func trivialPhiValue(p *ir.Instr) (ir.Value, bool) {
	var uniform ir.Value
	found := false
	for _, e := range p.Incoming {
		if e.Val.Kind == ir.ValReg && e.Val.Reg == p.ID {
			continue
		}
		if !found {
			uniform = e.Val
			found = true
			continue
		}
		if !uniform.Eq(e.Val) {
			return ir.Value{}, false
		}
	}
	return uniform, found
}
