// Package mem2reg promotes alloca slots that behave like local scalar
// variables into SSA registers: dominance-frontier phi placement followed
// by a dominator-tree-guided renaming walk, the standard construction
// this core's SSA form is built on.
package mem2reg

import (
	"github.com/coilc/coilc/internal/dom"
	"github.com/coilc/coilc/internal/ir"
)

// slot is one alloca chosen for promotion: its id plus the register type
// its loads and stores agree on.
type slot struct {
	elem ir.Type
}

// Run promotes every promotable alloca in f to SSA registers and returns
// the count promoted, for callers tracking fixed-point progress across
// the optimizer pipeline.
func Run(f *ir.Function) int {
	if f.IsDeclaration() {
		return 0
	}
	candidates := findCandidates(f)
	if len(candidates) == 0 {
		return 0
	}

	f.RebuildCFG()
	tree := dom.Build(f)
	frontier := dom.Frontier(f, tree)

	owners := placePhis(f, candidates, frontier)
	replace := rename(f, tree, candidates, owners)
	substitute(f, replace)
	stripAllocas(f, candidates)

	return len(candidates)
}

// findCandidates applies the promotability predicate: an alloca is
// promotable when every use is a non-volatile Load whose type matches the
// slot's element type exactly, or a non-volatile Store into the slot (the
// stored value's type is not checked here). Any other use of
// the alloca's address — passed to a call, stored as a value, GEP'd into,
// taken as an operand of anything but a matching load/store — disqualifies
// it, since the optimizer cannot otherwise account for aliasing through
// that escaped pointer.
func findCandidates(f *ir.Function) map[ir.ValueID]*slot {
	allocas := map[ir.ValueID]*slot{}
	for _, b := range f.Blocks {
		for _, in := range b.Instr {
			if in.Op == ir.OpAlloca {
				allocas[in.ID] = &slot{elem: in.ElemType}
			}
		}
	}
	if len(allocas) == 0 {
		return nil
	}

	disqualified := map[ir.ValueID]bool{}
	disqualify := func(v ir.Value) {
		if v.Kind == ir.ValReg {
			if _, ok := allocas[v.Reg]; ok {
				disqualified[v.Reg] = true
			}
		}
	}

	for _, b := range f.Blocks {
		for _, in := range b.AllInstrs() {
			switch in.Op {
			case ir.OpAlloca:
				continue
			case ir.OpLoad:
				addr := in.Args[0]
				if addr.Kind == ir.ValReg {
					if s, ok := allocas[addr.Reg]; ok && (in.Volatile || !in.Type.Eq(s.elem)) {
						disqualified[addr.Reg] = true
					}
				}
				continue
			case ir.OpStore:
				addr, val := in.Args[0], in.Args[1]
				if addr.Kind == ir.ValReg {
					if _, ok := allocas[addr.Reg]; ok && in.Volatile {
						disqualified[addr.Reg] = true
					}
				}
				disqualify(val)
				continue
			}
			if in.Op == ir.OpPhi {
				for _, e := range in.Incoming {
					disqualify(e.Val)
				}
				continue
			}
			for _, v := range operandsOf(in) {
				disqualify(v)
			}
		}
	}

	out := map[ir.ValueID]*slot{}
	for id, s := range allocas {
		if !disqualified[id] {
			out[id] = s
		}
	}
	return out
}

func operandsOf(in *ir.Instr) []ir.Value {
	out := append([]ir.Value{}, in.Args...)
	out = append(out, in.GEPBase, in.GEPIndex, in.CalleeVal, in.Cond, in.TrueV, in.FalseV,
		in.Cond2, in.IndirectTgt, in.SwitchVal, in.MemcpyDst, in.MemcpySrc, in.MemcpyLen)
	if in.RetVal != nil {
		out = append(out, *in.RetVal)
	}
	return out
}

// placePhis inserts empty phis at the iterated dominance frontier of each
// candidate's store sites, returning which candidate each inserted phi
// belongs to (a phi can't otherwise be told apart from a source-level phi
// of the same result type once its Incoming edges are filled in).
func placePhis(f *ir.Function, candidates map[ir.ValueID]*slot, frontier map[ir.BlockID][]ir.BlockID) map[*ir.Instr]ir.ValueID {
	owners := map[*ir.Instr]ir.ValueID{}
	for id, s := range candidates {
		defSites := map[ir.BlockID]bool{}
		for _, b := range f.Blocks {
			for _, in := range b.Instr {
				if in.Op == ir.OpStore && in.Args[0].Kind == ir.ValReg && in.Args[0].Reg == id {
					defSites[b.ID] = true
				}
			}
		}
		if len(defSites) == 0 {
			continue
		}
		hasPhi := map[ir.BlockID]bool{}
		worklist := make([]ir.BlockID, 0, len(defSites))
		for b := range defSites {
			worklist = append(worklist, b)
		}
		for len(worklist) > 0 {
			n := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, d := range frontier[n] {
				if hasPhi[d] {
					continue
				}
				hasPhi[d] = true
				bb := f.Block(d)
				p := &ir.Instr{Op: ir.OpPhi, ID: f.NewValue(), Type: s.elem}
				bb.Phis = append(bb.Phis, p)
				owners[p] = id
				if !defSites[d] {
					defSites[d] = true
					worklist = append(worklist, d)
				}
			}
		}
	}
	return owners
}

// rename performs the dominator-tree-guided renaming walk, returning a
// map from each deleted load's result id to the value that now stands in
// for it. Every value placed in this map, or pushed onto a per-candidate
// stack, is fully resolved (never itself a reference to another entry in
// this map) — a store's incoming value is resolved against the map before
// being pushed, so a later load of it never chains through a dead id.
func rename(f *ir.Function, tree *dom.Tree, candidates map[ir.ValueID]*slot, owners map[*ir.Instr]ir.ValueID) map[ir.ValueID]ir.Value {
	stacks := map[ir.ValueID][]ir.Value{}
	for id, s := range candidates {
		stacks[id] = []ir.Value{undefValue(s.elem)}
	}
	phiFor := map[ir.BlockID]map[ir.ValueID]*ir.Instr{}
	for _, b := range f.Blocks {
		for _, p := range b.Phis {
			if id, ok := owners[p]; ok {
				if phiFor[b.ID] == nil {
					phiFor[b.ID] = map[ir.ValueID]*ir.Instr{}
				}
				phiFor[b.ID][id] = p
			}
		}
	}

	replace := map[ir.ValueID]ir.Value{}
	resolve := func(v ir.Value) ir.Value {
		if v.Kind == ir.ValReg {
			if rv, ok := replace[v.Reg]; ok {
				return rv
			}
		}
		return v
	}

	var walk func(ir.BlockID)
	walk = func(bid ir.BlockID) {
		b := f.Block(bid)
		pushed := map[ir.ValueID]int{}
		for id, p := range phiFor[bid] {
			stacks[id] = append(stacks[id], ir.Reg(p.ID, p.Type))
			pushed[id]++
		}

		kept := b.Instr[:0]
		for _, in := range b.Instr {
			switch {
			case in.Op == ir.OpLoad && in.Args[0].Kind == ir.ValReg && isCandidate(candidates, in.Args[0].Reg):
				cur := stacks[in.Args[0].Reg]
				replace[in.ID] = cur[len(cur)-1]
			case in.Op == ir.OpStore && in.Args[0].Kind == ir.ValReg && isCandidate(candidates, in.Args[0].Reg):
				id := in.Args[0].Reg
				val := resolve(in.Args[1])
				elem := candidates[id].elem
				if !val.Type.Eq(elem) && val.IsConst() && val.Kind == ir.ValConstInt {
					val = val.Narrow(elem)
				}
				stacks[id] = append(stacks[id], val)
				pushed[id]++
			default:
				kept = append(kept, in)
			}
		}
		b.Instr = kept

		for _, s := range b.Succs() {
			for id, p := range phiFor[s] {
				cur := stacks[id]
				p.Incoming = append(p.Incoming, ir.PhiEdge{Pred: bid, Val: cur[len(cur)-1]})
			}
		}

		for _, c := range tree.Children(bid) {
			walk(c)
		}

		for id, n := range pushed {
			stacks[id] = stacks[id][:len(stacks[id])-n]
		}
	}
	walk(f.Entry)
	return replace
}

func isCandidate(candidates map[ir.ValueID]*slot, id ir.ValueID) bool {
	_, ok := candidates[id]
	return ok
}

func undefValue(t ir.Type) ir.Value {
	switch t.Kind {
	case ir.KindFloat:
		return ir.ConstFloat(t, 0)
	case ir.KindPtr:
		return ir.NullPtr()
	default:
		return ir.ConstInt(t, 0)
	}
}

// substitute rewrites every remaining use of a deleted load's result to
// its resolved value, across every instruction operand, phi incoming
// edge, and terminator operand in the function.
func substitute(f *ir.Function, replace map[ir.ValueID]ir.Value) {
	if len(replace) == 0 {
		return
	}
	rw := func(v ir.Value) ir.Value {
		if v.Kind == ir.ValReg {
			if nv, ok := replace[v.Reg]; ok {
				return nv
			}
		}
		return v
	}
	for _, b := range f.Blocks {
		for _, p := range b.Phis {
			for i := range p.Incoming {
				p.Incoming[i].Val = rw(p.Incoming[i].Val)
			}
		}
		for _, in := range b.Instr {
			for i := range in.Args {
				in.Args[i] = rw(in.Args[i])
			}
			in.GEPBase = rw(in.GEPBase)
			in.GEPIndex = rw(in.GEPIndex)
			in.CalleeVal = rw(in.CalleeVal)
			in.Cond = rw(in.Cond)
			in.TrueV = rw(in.TrueV)
			in.FalseV = rw(in.FalseV)
			in.MemcpyDst = rw(in.MemcpyDst)
			in.MemcpySrc = rw(in.MemcpySrc)
			in.MemcpyLen = rw(in.MemcpyLen)
		}
		if t := b.Term; t != nil {
			t.Cond2 = rw(t.Cond2)
			t.IndirectTgt = rw(t.IndirectTgt)
			t.SwitchVal = rw(t.SwitchVal)
			if t.RetVal != nil {
				rv := rw(*t.RetVal)
				t.RetVal = &rv
			}
			for i := range t.Cases {
				t.Cases[i].Val = rw(t.Cases[i].Val)
			}
		}
	}
}

// stripAllocas removes the now-dead alloca instructions themselves; their
// loads and stores were already dropped during rename.
func stripAllocas(f *ir.Function, candidates map[ir.ValueID]*slot) {
	for _, b := range f.Blocks {
		kept := b.Instr[:0]
		for _, in := range b.Instr {
			if in.Op == ir.OpAlloca {
				if _, ok := candidates[in.ID]; ok {
					continue
				}
			}
			kept = append(kept, in)
		}
		b.Instr = kept
	}
}
