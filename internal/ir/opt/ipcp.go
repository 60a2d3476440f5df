package opt

import "github.com/coilc/coilc/internal/ir"

// IPCP replaces a parameter with a constant when every direct call site in
// the module passes that same constant, letting constant_fold and
// algebraic_simplify clean up the callee on the next fixed-point round.
// Functions with their address taken are skipped: an indirect caller could
// still pass anything.
func IPCP(m *ir.Module) bool {
	changed := false
	for _, callee := range m.Functions {
		if callee.IsDeclaration() || callee.Attrs.Used || callee.Sig.Variadic {
			continue
		}
		for i := range callee.Params {
			c, ok := uniformArgument(m, callee.Name, i)
			if !ok {
				continue
			}
			replaceAllUses(callee, callee.Params[i], c)
			changed = true
		}
	}
	return changed
}

// uniformArgument reports the single constant value passed for parameter
// index i at every call site targeting callee across the module, or false
// if any call site passes something else (or there are no call sites).
func uniformArgument(m *ir.Module, callee string, i int) (ir.Value, bool) {
	var found ir.Value
	seen := false
	for _, f := range m.Functions {
		for _, b := range f.Blocks {
			for _, in := range b.Instr {
				if in.Op != ir.OpCallDirect || in.Callee != callee {
					continue
				}
				if i >= len(in.Args) {
					return ir.Value{}, false
				}
				arg := in.Args[i]
				if !arg.IsConst() {
					return ir.Value{}, false
				}
				if !seen {
					found, seen = arg, true
					continue
				}
				if !found.Eq(arg) {
					return ir.Value{}, false
				}
			}
		}
	}
	return found, seen
}
