// Package phielim lowers SSA phis into explicit copies on the predecessor
// edges that feed them, the step between the optimizer (which needs SSA
// form for its dominance-based reasoning) and stack-slot layout (which
// needs a plain register-transfer program with no block-argument-like
// constructs left).
package phielim

import "github.com/coilc/coilc/internal/ir"

// Run eliminates every phi in f, replacing it with a parallel copy on each
// incoming edge, splitting critical edges where a naive copy placement
// would run on a branch it shouldn't. After Run, f is no longer SSA and
// must be verified with ssa=false.
func Run(f *ir.Function) {
	f.RebuildCFG()
	blocks := append([]*ir.BasicBlock{}, f.Blocks...)
	for _, b := range blocks {
		if len(b.Phis) == 0 {
			continue
		}
		preds := append([]ir.BlockID{}, b.Preds...)
		succHasMultiplePreds := len(preds) > 1
		for _, predID := range preds {
			var pairs []copyPair
			for _, p := range b.Phis {
				for _, e := range p.Incoming {
					if e.Pred == predID {
						pairs = append(pairs, copyPair{dst: p.ID, typ: p.Type, src: e.Val})
					}
				}
			}
			if len(pairs) == 0 {
				continue
			}
			dest := edgeBlock(f, predID, b.ID, succHasMultiplePreds)
			for _, mv := range sequentialize(f, pairs) {
				dest.Instr = append(dest.Instr, &ir.Instr{Op: ir.OpCopy, ID: mv.dst, Type: mv.typ, Args: []ir.Value{mv.src}})
			}
		}
		b.Phis = nil
	}
	f.RebuildCFG()
}

// edgeBlock returns the block that should hold the copies for the
// (pred, succ) edge: pred itself when pred has only one successor (so
// copies placed there cannot run on the wrong branch) or succ has only one
// predecessor, or a freshly split block spliced onto the edge otherwise.
func edgeBlock(f *ir.Function, pred, succ ir.BlockID, succHasMultiplePreds bool) *ir.BasicBlock {
	predBlock := f.Block(pred)
	if len(predBlock.Succs()) <= 1 || !succHasMultiplePreds {
		return predBlock
	}
	split := f.NewBlock("phi.edge")
	redirectTarget(predBlock.Term, succ, split.ID)
	split.Term = &ir.Instr{Op: ir.OpBr, ID: ir.InvalidValue, Target: succ}
	return split
}

func redirectTarget(term *ir.Instr, from, to ir.BlockID) {
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

type copyPair struct {
	dst ir.ValueID
	typ ir.Type
	src ir.Value
}

// sequentialize orders a parallel copy set (several destinations that must
// all simultaneously take on their paired source's current value) into a
// sequence of ordinary one-at-a-time copies, breaking any cycle among the
// destinations with one temporary register holding the value the cycle
// would otherwise overwrite before it gets read.
func sequentialize(f *ir.Function, pairs []copyPair) []copyPair {
	filtered := pairs[:0]
	for _, p := range pairs {
		if p.src.Kind == ir.ValReg && p.src.Reg == p.dst {
			continue
		}
		filtered = append(filtered, p)
	}
	pairs = filtered
	if len(pairs) == 0 {
		return nil
	}

	srcOf := map[ir.ValueID]ir.Value{}
	typOf := map[ir.ValueID]ir.Type{}
	dstSet := map[ir.ValueID]bool{}
	for _, p := range pairs {
		srcOf[p.dst] = p.src
		typOf[p.dst] = p.typ
		dstSet[p.dst] = true
	}
	srcCount := map[ir.ValueID]int{}
	for _, p := range pairs {
		if p.src.Kind == ir.ValReg && dstSet[p.src.Reg] {
			srcCount[p.src.Reg]++
		}
	}

	loc := map[ir.ValueID]ir.Value{} // set only when a cycle break redirects readers to a temp
	todo := map[ir.ValueID]bool{}
	for d := range dstSet {
		todo[d] = true
	}
	var ready []ir.ValueID
	for d := range dstSet {
		if srcCount[d] == 0 {
			ready = append(ready, d)
		}
	}

	resolve := func(v ir.Value) ir.Value {
		if v.Kind == ir.ValReg {
			if l, ok := loc[v.Reg]; ok {
				return l
			}
		}
		return v
	}

	var out []copyPair
	for len(todo) > 0 {
		for len(ready) > 0 {
			d := ready[len(ready)-1]
			ready = ready[:len(ready)-1]
			if !todo[d] {
				continue
			}
			orig := srcOf[d]
			out = append(out, copyPair{dst: d, typ: typOf[d], src: resolve(orig)})
			delete(todo, d)
			if orig.Kind == ir.ValReg && dstSet[orig.Reg] {
				srcCount[orig.Reg]--
				if srcCount[orig.Reg] == 0 && todo[orig.Reg] {
					ready = append(ready, orig.Reg)
				}
			}
		}
		if len(todo) == 0 {
			break
		}
		pick := lowestPending(todo)
		typ := typOf[pick]
		temp := f.NewValue()
		out = append(out, copyPair{dst: temp, typ: typ, src: ir.Reg(pick, typ)})
		loc[pick] = ir.Reg(temp, typ)
		ready = append(ready, pick)
	}
	return out
}

func lowestPending(todo map[ir.ValueID]bool) ir.ValueID {
	first := true
	var pick ir.ValueID
	for d := range todo {
		if first || d < pick {
			pick = d
			first = false
		}
	}
	return pick
}
