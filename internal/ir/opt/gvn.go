package opt

import (
	"fmt"
	"sort"

	"github.com/coilc/coilc/internal/dom"
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// gvn value-numbers every pure instruction (arithmetic, compares, casts,
// GEPs, pure intrinsics — never a load, since two loads of the same
// address are not provably equal without alias analysis) and replaces
// each later member of a congruence class with the dominating member,
// canonicalizing commutative operand order first so a+b and b+a number
// the same.
func gvn(f *ir.Function, _ *target.Descriptor) bool {
	f.RebuildCFG()
	tree := dom.Build(f)

	type entry struct {
		id ir.ValueID
		bb ir.BlockID
	}
	classes := map[string]*entry{}
	changed := false

	order := blocksInRPO(f, tree)
	for _, b := range order {
		for _, in := range append([]*ir.Instr{}, b.Instr...) {
			if !in.HasResult() || !isGVNCandidate(in) {
				continue
			}
			key := valueNumber(in)
			if prev, ok := classes[key]; ok {
				if tree.Dominates(prev.bb, b.ID) && prev.id != in.ID {
					replaceAllUses(f, in.ID, ir.Reg(prev.id, in.Type))
					changed = true
					continue
				}
			}
			classes[key] = &entry{id: in.ID, bb: b.ID}
		}
	}
	return changed
}

func isGVNCandidate(in *ir.Instr) bool {
	if in.Op == ir.OpCallIntrinsic {
		return in.PureIntrinsic
	}
	return in.IsPure()
}

// valueNumber builds a canonical string key for an instruction's
// (opcode, type, operands) shape, sorting commutative operand pairs so
// both orders of a+b hash identically.
func valueNumber(in *ir.Instr) string {
	args := append([]ir.Value{}, in.Args...)
	if in.Op.IsCommutative() && len(args) == 2 {
		if args[0].String() > args[1].String() {
			args[0], args[1] = args[1], args[0]
		}
	}
	switch in.Op {
	case ir.OpGEP:
		return fmt.Sprintf("gep|%s|%d|%s|%d|%s", in.GEPBase, in.GEPOffset, in.GEPIndex, in.GEPStride, in.Type)
	case ir.OpSelect:
		return fmt.Sprintf("select|%s|%s|%s|%s", in.Cond, in.TrueV, in.FalseV, in.Type)
	default:
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s|%s|%v|%s", in.Op, in.Type, parts, in.SrcType)
	}
}

func blocksInRPO(f *ir.Function, tree *dom.Tree) []*ir.BasicBlock {
	order := append([]*ir.BasicBlock{}, f.Blocks...)
	sort.Slice(order, func(i, j int) bool {
		return tree.RPOIndex(order[i].ID) < tree.RPOIndex(order[j].ID)
	})
	return order
}
