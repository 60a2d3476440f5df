package ir

import (
	"fmt"
	"strings"
)

// BasicBlock is a label, a run of phi instructions (SSA form only),
// a run of non-terminator instructions, and exactly one terminator.
type BasicBlock struct {
	ID    BlockID
	Name  string
	Phis  []*Instr
	Instr []*Instr
	Term  *Instr

	// Preds is maintained by Function.RebuildCFG; passes must not assume
	// it is fresh after they mutate terminators without calling it.
	Preds []BlockID
}

// Succs derives the successor set from the terminator. Empty for a block
// with no terminator yet (mid-lowering) or for Ret/Unreachable.
func (b *BasicBlock) Succs() []BlockID {
	if b.Term == nil {
		return nil
	}
	switch b.Term.Op {
	case OpBr:
		return []BlockID{b.Term.Target}
	case OpCondBr:
		return []BlockID{b.Term.TrueBlk, b.Term.FalseBlk}
	case OpIndirectBr:
		return append([]BlockID{}, b.Term.IndirectSet...)
	case OpSwitch:
		out := make([]BlockID, 0, len(b.Term.Cases)+1)
		out = append(out, b.Term.SwitchDef)
		for _, c := range b.Term.Cases {
			out = append(out, c.Target)
		}
		return out
	default:
		return nil
	}
}

// AllInstrs returns phis followed by body instructions followed by the
// terminator, in execution order. Convenience for passes that don't care
// about the phi/body split.
func (b *BasicBlock) AllInstrs() []*Instr {
	out := make([]*Instr, 0, len(b.Phis)+len(b.Instr)+1)
	out = append(out, b.Phis...)
	out = append(out, b.Instr...)
	if b.Term != nil {
		out = append(out, b.Term)
	}
	return out
}

// RemovePhi deletes the phi with the given result id, if present.
func (b *BasicBlock) RemovePhi(id ValueID) {
	for idx, p := range b.Phis {
		if p.ID == id {
			b.Phis = append(b.Phis[:idx], b.Phis[idx+1:]...)
			return
		}
	}
}

// RemoveInstr deletes the non-terminator instruction with the given
// result id, if present.
func (b *BasicBlock) RemoveInstr(id ValueID) {
	for idx, in := range b.Instr {
		if in.ID == id {
			b.Instr = append(b.Instr[:idx], b.Instr[idx+1:]...)
			return
		}
	}
}

// ReplacePredInPhis rewrites every phi's incoming-edge predecessor id from
// oldPred to newPred; used by CFG simplification when it merges or elides
// blocks.
func (b *BasicBlock) ReplacePredInPhis(oldPred, newPred BlockID) {
	for _, p := range b.Phis {
		for i := range p.Incoming {
			if p.Incoming[i].Pred == oldPred {
				p.Incoming[i].Pred = newPred
			}
		}
	}
}

func (b *BasicBlock) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "bb%d", b.ID)
	if b.Name != "" {
		fmt.Fprintf(&s, " (%s)", b.Name)
	}
	s.WriteString(":\n")
	for _, in := range b.AllInstrs() {
		s.WriteString("  ")
		s.WriteString(in.String())
		s.WriteString("\n")
	}
	return s.String()
}
