package layout

import "github.com/coilc/coilc/internal/ir"

// traceSet returns id plus every value transitively derived from it via
// GEP, since a pointer computed by indexing into an alloca carries the
// same identity as the alloca for escape and liveness purposes.
func traceSet(f *ir.Function, id ir.ValueID) map[ir.ValueID]bool {
	trace := map[ir.ValueID]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, b := range f.Blocks {
			for _, in := range b.Instr {
				if in.Op != ir.OpGEP || trace[in.ID] {
					continue
				}
				if in.GEPBase.Kind == ir.ValReg && trace[in.GEPBase.Reg] {
					trace[in.ID] = true
					changed = true
				}
			}
		}
	}
	return trace
}

// addressEscapes reports whether allocaID's address (or any pointer
// derived from it via GEP) is observable outside the current function's
// stack frame lifetime: stored as a value, passed to a call, returned, or
// merged through a phi. Using it purely as the address operand of a load,
// store, or memcpy does not count, since that access is over by the time
// the instruction completes.
func addressEscapes(f *ir.Function, allocaID ir.ValueID) bool {
	trace := traceSet(f, allocaID)
	isTraced := func(v ir.Value) bool { return v.Kind == ir.ValReg && trace[v.Reg] }

	for _, b := range f.Blocks {
		for _, in := range b.AllInstrs() {
			switch in.Op {
			case ir.OpLoad, ir.OpGEP:
				continue
			case ir.OpStore:
				if isTraced(in.Args[1]) {
					return true
				}
				continue
			case ir.OpMemcpy:
				continue
			}
			escaped := false
			forEachOperand(in, func(v ir.Value) {
				if isTraced(v) {
					escaped = true
				}
			})
			if escaped {
				return true
			}
		}
		for _, p := range b.Phis {
			for _, e := range p.Incoming {
				if isTraced(e.Val) {
					return true
				}
			}
		}
	}
	return false
}

// forEachOperand visits every value-typed operand slot on in, blind to
// whether the slot is actually populated for in's opcode.
func forEachOperand(in *ir.Instr, fn func(ir.Value)) {
	for _, a := range in.Args {
		fn(a)
	}
	fn(in.GEPBase)
	fn(in.GEPIndex)
	fn(in.CalleeVal)
	fn(in.Cond)
	fn(in.Cond2)
	fn(in.TrueV)
	fn(in.FalseV)
	fn(in.MemcpyDst)
	fn(in.MemcpySrc)
	fn(in.MemcpyLen)
	fn(in.IndirectTgt)
	fn(in.SwitchVal)
	if in.RetVal != nil {
		fn(*in.RetVal)
	}
	for _, c := range in.Cases {
		fn(c.Val)
	}
}
