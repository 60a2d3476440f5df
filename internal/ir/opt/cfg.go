package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// cfgSimplify prunes unreachable blocks, folds a CondBr with a constant
// condition to an unconditional Br, and merges a block into its unique
// predecessor when that predecessor's only successor is this block —
// the three cheap CFG cleanups every later pass benefits from seeing
// already applied.
func cfgSimplify(f *ir.Function, _ *target.Descriptor) bool {
	changed := false

	for _, b := range f.Blocks {
		if b.Term != nil && b.Term.Op == ir.OpCondBr {
			cond := b.Term.Cond2
			if cond.IsConst() && cond.Kind == ir.ValConstInt {
				dest := b.Term.FalseBlk
				if cond.Int != 0 {
					dest = b.Term.TrueBlk
				}
				dropped := b.Term.TrueBlk
				if cond.Int != 0 {
					dropped = b.Term.FalseBlk
				}
				b.Term = &ir.Instr{Op: ir.OpBr, ID: ir.InvalidValue, Target: dest}
				if db := f.Block(dropped); db != nil && dropped != dest {
					removePhiEdge(db, b.ID)
				}
				changed = true
			}
		}
	}

	f.RebuildCFG()
	reach := f.ReachableBlocks()
	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if reach[b.ID] {
			kept = append(kept, b)
		} else {
			changed = true
		}
	}
	f.Blocks = kept
	f.RebuildCFG()

	changed = mergeStraightLine(f) || changed

	return changed
}

// mergeStraightLine folds b into its single predecessor p when p's only
// successor is b and b has no other predecessor: p's phis have already
// resolved (single incoming edge), and b's phis (if any survive) become
// trivial once folded, so they are rewritten to their sole incoming value.
func mergeStraightLine(f *ir.Function) bool {
	changed := false
	for {
		merged := false
		for _, b := range f.Blocks {
			if len(b.Preds) != 1 {
				continue
			}
			p := f.Block(b.Preds[0])
			if p == nil || p.ID == b.ID || p.Term == nil || p.Term.Op != ir.OpBr {
				continue
			}
			if len(p.Succs()) != 1 || p.Succs()[0] != b.ID {
				continue
			}
			for _, phi := range b.Phis {
				if len(phi.Incoming) == 1 {
					replaceAllUses(f, phi.ID, phi.Incoming[0].Val)
				}
			}
			p.Instr = append(p.Instr, b.Instr...)
			p.Term = b.Term
			f.RemoveBlock(b.ID)
			for _, ob := range f.Blocks {
				ob.ReplacePredInPhis(b.ID, p.ID)
			}
			merged = true
			changed = true
			break
		}
		if !merged {
			break
		}
		f.RebuildCFG()
	}
	return changed
}
