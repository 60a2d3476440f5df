package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// defaultInlineSizeCap bounds the callee instruction count eligible for
// inlining absent an explicit always_inline attribute; small helpers
// (accessors, thin wrappers) are the common case worth the code growth.
// -O3 doubles this via the sizeCap parameter threaded from the pipeline.
const defaultInlineSizeCap = 24

// Inline expands direct calls to small, non-variadic callees in place,
// skipping a callee that is the caller itself or that directly calls the
// caller back (a callee that only calls itself can still be inlined into
// another function), splitting the call site's block and grafting a clone
// of the callee's CFG between the two halves. Reports whether anything
// was inlined so the caller knows a fresh RunFunction pass is worthwhile.
func Inline(m *ir.Module, tgt *target.Descriptor, sizeCap int) bool {
	changed := false
	for _, f := range m.Functions {
		for {
			site, call, callee := findInlineSite(m, f, sizeCap)
			if site == nil {
				break
			}
			inlineCall(f, site, call, callee)
			changed = true
		}
	}
	return changed
}

func findInlineSite(m *ir.Module, f *ir.Function, sizeCap int) (*ir.BasicBlock, *ir.Instr, *ir.Function) {
	for _, b := range f.Blocks {
		for _, in := range b.Instr {
			if in.Op != ir.OpCallDirect {
				continue
			}
			callee := m.FindFunction(in.Callee)
			if callee == nil || callee == f || callee.IsDeclaration() {
				continue
			}
			if callee.Attrs.NoInline || callee.Sig.Variadic {
				continue
			}
			if !callee.Attrs.AlwaysInline && countInstrs(callee) > sizeCap {
				continue
			}
			if callsFunction(callee, f.Name) {
				continue // avoid inlining a mutually-recursive pair
			}
			return b, in, callee
		}
	}
	return nil, nil, nil
}

func countInstrs(f *ir.Function) int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Phis) + len(b.Instr)
	}
	return n
}

func callsFunction(f *ir.Function, name string) bool {
	for _, b := range f.Blocks {
		for _, in := range b.Instr {
			if in.Op == ir.OpCallDirect && in.Callee == name {
				return true
			}
		}
	}
	return false
}

// inlineCall splits site at call, clones callee's body between the two
// halves, and rewrites uses of call's result to the callee's returned
// value(s), merged through a phi if the callee has more than one return.
func inlineCall(f *ir.Function, site *ir.BasicBlock, call *ir.Instr, callee *ir.Function) {
	idx := -1
	for i, in := range site.Instr {
		if in == call {
			idx = i
			break
		}
	}
	before, after := site.Instr[:idx], append([]*ir.Instr{}, site.Instr[idx+1:]...)
	site.Instr = before

	cont := f.NewBlock(site.Name + ".inline.cont")
	cont.Instr = after
	cont.Term = site.Term

	blockRemap := map[ir.BlockID]ir.BlockID{}
	for _, b := range callee.Blocks {
		blockRemap[b.ID] = f.NewBlock(callee.Name + "." + b.Name).ID
	}

	valRemap := map[ir.ValueID]ir.Value{}
	for i, p := range callee.Params {
		if i < len(call.Args) {
			valRemap[p] = call.Args[i]
		}
	}

	var retVals []ir.PhiEdge
	for _, cb := range callee.Blocks {
		nb := f.Block(blockRemap[cb.ID])
		for _, p := range cb.Phis {
			np := &ir.Instr{Op: ir.OpPhi, ID: f.NewValue(), Type: p.Type}
			valRemap[p.ID] = ir.Reg(np.ID, p.Type)
			nb.Phis = append(nb.Phis, np)
		}
	}
	for _, cb := range callee.Blocks {
		nb := f.Block(blockRemap[cb.ID])
		for i, p := range cb.Phis {
			np := nb.Phis[i]
			for _, e := range p.Incoming {
				np.Incoming = append(np.Incoming, ir.PhiEdge{Pred: blockRemap[e.Pred], Val: remapValue(e.Val, valRemap)})
			}
		}
		for _, in := range cb.Instr {
			clone := cloneInstr(in, f, valRemap, blockRemap)
			nb.Instr = append(nb.Instr, clone)
		}
		term := cb.Term
		if term.Op == ir.OpRet {
			nb.Term = &ir.Instr{Op: ir.OpBr, ID: ir.InvalidValue, Target: cont.ID}
			if term.RetVal != nil {
				retVals = append(retVals, ir.PhiEdge{Pred: nb.ID, Val: remapValue(*term.RetVal, valRemap)})
			}
			continue
		}
		nb.Term = cloneInstr(term, f, valRemap, blockRemap)
	}

	site.Term = &ir.Instr{Op: ir.OpBr, ID: ir.InvalidValue, Target: blockRemap[callee.Entry]}

	if call.HasResult() {
		var result ir.Value
		if len(retVals) == 1 {
			result = retVals[0].Val
		} else if len(retVals) > 1 {
			p := &ir.Instr{Op: ir.OpPhi, ID: f.NewValue(), Type: call.Type, Incoming: retVals}
			cont.Phis = append(cont.Phis, p)
			result = ir.Reg(p.ID, call.Type)
		}
		if result.Kind != ir.ValInvalid {
			replaceAllUses(f, call.ID, result)
		}
	}

	f.RebuildCFG()
	for _, s := range cont.Succs() {
		if sb := f.Block(s); sb != nil {
			sb.ReplacePredInPhis(site.ID, cont.ID)
		}
	}
	f.RebuildCFG()
}

func remapValue(v ir.Value, remap map[ir.ValueID]ir.Value) ir.Value {
	if v.Kind == ir.ValReg {
		if nv, ok := remap[v.Reg]; ok {
			return nv
		}
	}
	return v
}

// cloneInstr copies in into a fresh instruction with a freshly allocated
// result id (recorded into valRemap), every value operand rewritten
// through valRemap and every block operand rewritten through blockRemap.
func cloneInstr(in *ir.Instr, f *ir.Function, valRemap map[ir.ValueID]ir.Value, blockRemap map[ir.BlockID]ir.BlockID) *ir.Instr {
	c := *in
	if in.HasResult() {
		c.ID = f.NewValue()
		valRemap[in.ID] = ir.Reg(c.ID, in.Type)
	}
	rw := func(v ir.Value) ir.Value { return remapValue(v, valRemap) }
	rb := func(b ir.BlockID) ir.BlockID {
		if nb, ok := blockRemap[b]; ok {
			return nb
		}
		return b
	}

	c.Args = make([]ir.Value, len(in.Args))
	for i, a := range in.Args {
		c.Args[i] = rw(a)
	}
	c.GEPBase = rw(in.GEPBase)
	c.GEPIndex = rw(in.GEPIndex)
	c.CalleeVal = rw(in.CalleeVal)
	c.Cond = rw(in.Cond)
	c.TrueV = rw(in.TrueV)
	c.FalseV = rw(in.FalseV)
	c.MemcpyDst = rw(in.MemcpyDst)
	c.MemcpySrc = rw(in.MemcpySrc)
	c.MemcpyLen = rw(in.MemcpyLen)
	c.Cond2 = rw(in.Cond2)
	c.IndirectTgt = rw(in.IndirectTgt)
	c.SwitchVal = rw(in.SwitchVal)
	if in.RetVal != nil {
		rv := rw(*in.RetVal)
		c.RetVal = &rv
	}
	if in.Cases != nil {
		c.Cases = make([]ir.SwitchCase, len(in.Cases))
		for i, cs := range in.Cases {
			c.Cases[i] = ir.SwitchCase{Val: cs.Val, Target: rb(cs.Target)}
		}
	}
	c.Target = rb(in.Target)
	c.TrueBlk = rb(in.TrueBlk)
	c.FalseBlk = rb(in.FalseBlk)
	c.SwitchDef = rb(in.SwitchDef)
	if in.IndirectSet != nil {
		c.IndirectSet = make([]ir.BlockID, len(in.IndirectSet))
		for i, s := range in.IndirectSet {
			c.IndirectSet[i] = rb(s)
		}
	}
	return &c
}
