package opt

import (
	"github.com/coilc/coilc/internal/dom"
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// licm hoists loop-invariant pure instructions into a loop preheader.
// Loads are never hoisted, matching IsPure's comment: two iterations of a
// loop are not provably reading the same value without alias analysis this
// pass does not have.
func licm(f *ir.Function, _ *target.Descriptor) bool {
	f.RebuildCFG()
	tree := dom.Build(f)
	loops := dom.NaturalLoops(f, tree)
	changed := false

	for _, loop := range loops {
		ph := ensurePreheader(f, loop)
		if ph == ir.InvalidBlock {
			continue
		}
		phBlock := f.Block(ph)
		defBlock := map[ir.ValueID]ir.BlockID{}
		for _, b := range f.Blocks {
			for _, in := range b.AllInstrs() {
				if in.HasResult() {
					defBlock[in.ID] = b.ID
				}
			}
		}
		hoisted := map[ir.ValueID]bool{}

		order := blocksInRPO(f, tree)
		for _, b := range order {
			if !loop.Body[b.ID] || b.ID == ph {
				continue
			}
			if !tree.Dominates(b.ID, loop.Latch) {
				continue
			}
			var stay []*ir.Instr
			for _, in := range b.Instr {
				if hoistable(in, loop, defBlock, hoisted) {
					phBlock.Instr = append(phBlock.Instr, in)
					hoisted[in.ID] = true
					changed = true
					continue
				}
				stay = append(stay, in)
			}
			b.Instr = stay
		}
	}
	return changed
}

func hoistable(in *ir.Instr, loop *dom.Loop, defBlock map[ir.ValueID]ir.BlockID, hoisted map[ir.ValueID]bool) bool {
	if !in.HasResult() || !in.IsPure() {
		return false
	}
	safe := true
	forEachOperand(in, func(v ir.Value) {
		if v.Kind != ir.ValReg {
			return
		}
		if db, ok := defBlock[v.Reg]; ok && loop.Body[db] && !hoisted[v.Reg] {
			safe = false
		}
	})
	return safe
}

// forEachOperand visits every Value-typed operand slot of in.
func forEachOperand(in *ir.Instr, fn func(ir.Value)) {
	for _, a := range in.Args {
		fn(a)
	}
	fn(in.GEPBase)
	fn(in.GEPIndex)
	fn(in.CalleeVal)
	fn(in.Cond)
	fn(in.TrueV)
	fn(in.FalseV)
	fn(in.MemcpyDst)
	fn(in.MemcpySrc)
	fn(in.MemcpyLen)
}

// ensurePreheader returns loop's existing preheader or synthesizes one by
// redirecting every outside predecessor of the header to a new block that
// falls through to it, collapsing any header phi edges those predecessors
// fed into a merge phi in the new block.
func ensurePreheader(f *ir.Function, loop *dom.Loop) ir.BlockID {
	if ph := loop.Preheader(f); ph != ir.InvalidBlock {
		return ph
	}
	hb := f.Block(loop.Header)
	var outside []ir.BlockID
	for _, p := range hb.Preds {
		if !loop.Body[p] {
			outside = append(outside, p)
		}
	}
	if len(outside) == 0 {
		return ir.InvalidBlock
	}

	ph := f.NewBlock("licm.preheader")
	isOutside := func(p ir.BlockID) bool {
		for _, o := range outside {
			if o == p {
				return true
			}
		}
		return false
	}
	for _, p := range outside {
		redirectTarget(f.Block(p).Term, loop.Header, ph.ID)
	}

	for _, p := range hb.Phis {
		var kept, collapsed []ir.PhiEdge
		for _, e := range p.Incoming {
			if isOutside(e.Pred) {
				collapsed = append(collapsed, e)
			} else {
				kept = append(kept, e)
			}
		}
		switch len(collapsed) {
		case 0:
			continue
		case 1:
			kept = append(kept, ir.PhiEdge{Pred: ph.ID, Val: collapsed[0].Val})
		default:
			merge := &ir.Instr{Op: ir.OpPhi, ID: f.NewValue(), Type: p.Type, Incoming: collapsed}
			ph.Phis = append(ph.Phis, merge)
			kept = append(kept, ir.PhiEdge{Pred: ph.ID, Val: ir.Reg(merge.ID, p.Type)})
		}
		p.Incoming = kept
	}

	ph.Term = &ir.Instr{Op: ir.OpBr, ID: ir.InvalidValue, Target: loop.Header}
	f.RebuildCFG()
	return ph.ID
}

// redirectTarget rewrites every occurrence of from in term's target set to
// to, covering every terminator shape that can name a successor block.
func redirectTarget(term *ir.Instr, from, to ir.BlockID) {
	if term == nil {
		return
	}
	switch term.Op {
	case ir.OpBr:
		if term.Target == from {
			term.Target = to
		}
	case ir.OpCondBr:
		if term.TrueBlk == from {
			term.TrueBlk = to
		}
		if term.FalseBlk == from {
			term.FalseBlk = to
		}
	case ir.OpSwitch:
		if term.SwitchDef == from {
			term.SwitchDef = to
		}
		for i := range term.Cases {
			if term.Cases[i].Target == from {
				term.Cases[i].Target = to
			}
		}
	case ir.OpIndirectBr:
		for i := range term.IndirectSet {
			if term.IndirectSet[i] == from {
				term.IndirectSet[i] = to
			}
		}
	}
}
