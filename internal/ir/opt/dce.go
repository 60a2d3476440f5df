package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// dce removes every instruction and phi with zero remaining uses that has
// no side effect, iterating to a local fixed point within one call since
// removing one dead def can make its own operands' defs dead in turn.
func dce(f *ir.Function, _ *target.Descriptor) bool {
	changed := false
	for {
		removedAny := false
		for _, b := range f.Blocks {
			for _, p := range append([]*ir.Instr{}, b.Phis...) {
				if countUses(f, p.ID) == 0 {
					b.RemovePhi(p.ID)
					removedAny = true
				}
			}
			for _, in := range append([]*ir.Instr{}, b.Instr...) {
				if !in.HasResult() {
					continue
				}
				if in.Op == ir.OpCallIntrinsic {
					if !in.PureIntrinsic {
						continue
					}
				} else if in.Op.HasSideEffect() || (in.Op == ir.OpLoad && in.Volatile) {
					continue
				}
				if countUses(f, in.ID) == 0 {
					b.RemoveInstr(in.ID)
					removedAny = true
				}
			}
		}
		if !removedAny {
			break
		}
		changed = true
	}
	return changed
}
