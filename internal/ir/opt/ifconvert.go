package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// ifConvert recovers a branch diamond, such as short-circuit lowering
// leaves after mem2reg (a ternary with side-effect-free arms is already a
// select straight out of lowering), when each arm is empty or a single
// side-effect-free instruction feeding one join phi, collapsing the
// branch into a select in the predecessor.
func ifConvert(f *ir.Function, _ *target.Descriptor) bool {
	f.RebuildCFG()
	changed := false
	for _, b := range append([]*ir.BasicBlock{}, f.Blocks...) {
		if b.Term == nil || b.Term.Op != ir.OpCondBr {
			continue
		}
		thenB := f.Block(b.Term.TrueBlk)
		elseB := f.Block(b.Term.FalseBlk)
		if thenB == nil || elseB == nil {
			continue
		}
		join, thenVal, ok := simpleArm(f, thenB)
		if !ok {
			continue
		}
		join2, elseVal, ok := simpleArm(f, elseB)
		if !ok || join2 != join {
			continue
		}
		joinB := f.Block(join)
		if joinB == nil || len(joinB.Preds) != 2 {
			continue
		}
		phi := singleUserPhi(joinB, thenB.ID, elseB.ID)
		if phi == nil {
			continue
		}

		for _, in := range thenB.Instr {
			b.Instr = append(b.Instr, in)
		}
		for _, in := range elseB.Instr {
			b.Instr = append(b.Instr, in)
		}
		sel := &ir.Instr{Op: ir.OpSelect, ID: f.NewValue(), Type: phi.Type, Cond: b.Term.Cond2, TrueV: thenVal, FalseV: elseVal}
		b.Instr = append(b.Instr, sel)
		b.Term = &ir.Instr{Op: ir.OpBr, ID: ir.InvalidValue, Target: join}

		replaceAllUses(f, phi.ID, ir.Reg(sel.ID, phi.Type))
		removePhiEdge(joinB, thenB.ID)
		removePhiEdge(joinB, elseB.ID)
		f.RemoveBlock(thenB.ID)
		f.RemoveBlock(elseB.ID)
		f.RebuildCFG()
		changed = true
	}
	return changed
}

// simpleArm reports whether b is a single-instruction (or empty) block that
// unconditionally branches to a join block, returning that join and the
// value it contributes there.
func simpleArm(f *ir.Function, b *ir.BasicBlock) (ir.BlockID, ir.Value, bool) {
	if len(b.Phis) != 0 || b.Term == nil || b.Term.Op != ir.OpBr {
		return ir.InvalidBlock, ir.Value{}, false
	}
	if len(b.Preds) != 1 {
		return ir.InvalidBlock, ir.Value{}, false
	}
	for _, in := range b.Instr {
		if !in.IsPure() {
			return ir.InvalidBlock, ir.Value{}, false
		}
	}
	if len(b.Instr) > 1 {
		return ir.InvalidBlock, ir.Value{}, false
	}
	join := f.Block(b.Term.Target)
	if join == nil {
		return ir.InvalidBlock, ir.Value{}, false
	}
	var val ir.Value
	if len(b.Instr) == 1 {
		val = ir.Reg(b.Instr[0].ID, b.Instr[0].Type)
	}
	for _, p := range join.Phis {
		for _, e := range p.Incoming {
			if e.Pred == b.ID {
				val = e.Val
			}
		}
	}
	return join.ID, val, true
}

func singleUserPhi(join *ir.BasicBlock, thenPred, elsePred ir.BlockID) *ir.Instr {
	var found *ir.Instr
	for _, p := range join.Phis {
		hasThen, hasElse := false, false
		for _, e := range p.Incoming {
			if e.Pred == thenPred {
				hasThen = true
			}
			if e.Pred == elsePred {
				hasElse = true
			}
		}
		if hasThen && hasElse {
			if found != nil {
				return nil // more than one phi spans both arms; leave it alone
			}
			found = p
		}
	}
	return found
}
