package opt

import "github.com/coilc/coilc/internal/ir"

// DeadStatics removes internal-linkage functions and globals nothing in
// the surviving module reaches, iterating to a fixed point since removing
// one dead static can make another one's last reference disappear.
func DeadStatics(m *ir.Module) bool {
	changed := false
	for {
		reachedFn, reachedGlobal := reachableStatics(m)
		removedAny := false
		for _, f := range append([]*ir.Function{}, m.Functions...) {
			if f.Attrs.Static && !f.Attrs.Used && !reachedFn[f.Name] {
				m.RemoveFunction(f.Name)
				removedAny = true
			}
		}
		for _, g := range append([]*ir.Global{}, m.Globals...) {
			if g.Linkage == ir.LinkageInternal && !g.AddressTaken && !reachedGlobal[g.Name] {
				m.RemoveGlobal(g.Name)
				removedAny = true
			}
		}
		if !removedAny {
			break
		}
		changed = true
	}
	return changed
}

// reachableStatics walks every external-linkage function's body (the
// module's root set, since those are callable from outside this
// compilation unit) plus every non-static function, collecting every
// callee and global symbol referenced along the way.
func reachableStatics(m *ir.Module) (map[string]bool, map[string]bool) {
	fns := map[string]bool{}
	globals := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if fns[name] {
			return
		}
		fns[name] = true
		f := m.FindFunction(name)
		if f == nil {
			return
		}
		for _, b := range f.Blocks {
			for _, in := range b.AllInstrs() {
				scanRefs(in, visit, globals)
			}
			for _, p := range b.Phis {
				for _, e := range p.Incoming {
					if e.Val.Kind == ir.ValGlobal {
						globals[e.Val.Sym] = true
					}
				}
			}
		}
	}
	for _, f := range m.Functions {
		if !f.Attrs.Static || f.Attrs.Used {
			visit(f.Name)
		}
	}
	for {
		grew := false
		for _, g := range m.Globals {
			if !globals[g.Name] {
				continue
			}
			for _, r := range g.Relocs {
				if !globals[r.Symbol] {
					globals[r.Symbol] = true
					grew = true
				}
			}
		}
		if !grew {
			break
		}
	}
	return fns, globals
}

func scanRefs(in *ir.Instr, visit func(string), globals map[string]bool) {
	mark := func(v ir.Value) {
		switch v.Kind {
		case ir.ValGlobal:
			globals[v.Sym] = true
		case ir.ValFunc:
			visit(v.Sym)
		}
	}
	if in.Op == ir.OpCallDirect {
		visit(in.Callee)
	}
	for _, a := range in.Args {
		mark(a)
	}
	mark(in.GEPBase)
	mark(in.GEPIndex)
	mark(in.CalleeVal)
	mark(in.Cond)
	mark(in.TrueV)
	mark(in.FalseV)
	mark(in.MemcpyDst)
	mark(in.MemcpySrc)
	mark(in.MemcpyLen)
	mark(in.SwitchVal)
	if in.RetVal != nil {
		mark(*in.RetVal)
	}
	for _, c := range in.Cases {
		mark(c.Val)
	}
}
