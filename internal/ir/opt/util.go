package opt

import "github.com/coilc/coilc/internal/ir"

// removePhiEdge deletes the incoming edge from pred out of every phi in b,
// used when cfg_simplify removes a CFG edge that fed a phi.
func removePhiEdge(b *ir.BasicBlock, pred ir.BlockID) {
	for _, p := range b.Phis {
		kept := p.Incoming[:0]
		for _, e := range p.Incoming {
			if e.Pred != pred {
				kept = append(kept, e)
			}
		}
		p.Incoming = kept
	}
}

// replaceAllUses rewrites every use of id across f to val, then deletes
// id's own defining instruction or phi (never a terminator) since a dead def with zero remaining uses is always safe to
// drop immediately rather than waiting for a separate dce round.
func replaceAllUses(f *ir.Function, id ir.ValueID, val ir.Value) {
	substituteFunc(f, id, val)
	for _, b := range f.Blocks {
		b.RemoveInstr(id)
		b.RemovePhi(id)
	}
}

// substituteFunc rewrites every reference to id, across every block's
// phis, instructions, and terminator, to val — without deleting id's own
// definition (used mid-pass, before the definition itself is known dead).
func substituteFunc(f *ir.Function, id ir.ValueID, val ir.Value) {
	rw := func(v ir.Value) ir.Value {
		if v.Kind == ir.ValReg && v.Reg == id {
			return val
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

// countUses counts every operand slot across the function equal to a
// ValReg of id, used by DCE to decide whether a definition is dead.
func countUses(f *ir.Function, id ir.ValueID) int {
	n := 0
	count := func(v ir.Value) {
		if v.Kind == ir.ValReg && v.Reg == id {
			n++
		}
	}
	for _, b := range f.Blocks {
		for _, p := range b.Phis {
			for _, e := range p.Incoming {
				count(e.Val)
			}
		}
		for _, in := range b.Instr {
			for _, a := range in.Args {
				count(a)
			}
			count(in.GEPBase)
			count(in.GEPIndex)
			count(in.CalleeVal)
			count(in.Cond)
			count(in.TrueV)
			count(in.FalseV)
			count(in.MemcpyDst)
			count(in.MemcpySrc)
			count(in.MemcpyLen)
		}
		if t := b.Term; t != nil {
			count(t.Cond2)
			count(t.IndirectTgt)
			count(t.SwitchVal)
			if t.RetVal != nil {
				count(*t.RetVal)
			}
			for _, c := range t.Cases {
				count(c.Val)
			}
		}
	}
	return n
}
