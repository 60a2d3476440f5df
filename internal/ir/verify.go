package ir

import "github.com/coilc/coilc/internal/diagnostics"

// Verify checks the class-2 internal invariants from the testable
// properties: every block has exactly one terminator and it is last,
// every branch target exists, and (when ssa is true) every phi appears
// only at block heads with one incoming pair per predecessor whose type
// matches the phi's result type. Violations raise a diagnostics.Fault —
// these are bugs by construction, never recovered silently by the pass
// that finds them.
func Verify(f *Function, ssa bool) {
	if f.IsDeclaration() {
		return
	}
	ids := map[BlockID]*BasicBlock{}
	for _, b := range f.Blocks {
		ids[b.ID] = b
	}
	for _, b := range f.Blocks {
		if b.Term == nil {
			diagnostics.Raise(f.Name, b.Name, "block has no terminator")
		}
		if !b.Term.Op.IsTerminator() {
			diagnostics.Raise(f.Name, b.Name, "terminator slot holds non-terminator opcode %s", b.Term.Op)
		}
		for _, in := range b.Instr {
			if in.Op.IsTerminator() {
				diagnostics.Raise(f.Name, b.Name, "terminator-shaped instruction %s found among non-terminators", in.Op)
			}
		}
		if !ssa && len(b.Phis) > 0 {
			diagnostics.Raise(f.Name, b.Name, "phi present in non-SSA form")
		}
		for _, s := range b.Succs() {
			if ids[s] == nil {
				diagnostics.Raise(f.Name, b.Name, "terminator names nonexistent successor bb%d", s)
			}
		}
		if ssa {
			for _, p := range b.Phis {
				seen := map[BlockID]bool{}
				for _, e := range p.Incoming {
					if seen[e.Pred] {
						diagnostics.Raise(f.Name, b.Name, "phi %%%d has duplicate incoming edge from bb%d", p.ID, e.Pred)
					}
					seen[e.Pred] = true
					if !e.Val.Type.Eq(p.Type) && e.Val.Kind != ValInvalid {
						diagnostics.Raise(f.Name, b.Name, "phi %%%d operand type %s does not match result type %s", p.ID, e.Val.Type, p.Type)
					}
				}
				for _, pred := range b.Preds {
					if !seen[pred] {
						diagnostics.Raise(f.Name, b.Name, "phi %%%d missing incoming edge from predecessor bb%d", p.ID, pred)
					}
				}
			}
		}
	}
	reach := f.ReachableBlocks()
	for _, b := range f.Blocks {
		if !reach[b.ID] {
			diagnostics.Raise(f.Name, b.Name, "unreachable block survived to verification")
		}
	}
}
