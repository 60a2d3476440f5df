package opt

import (
	"github.com/coilc/coilc/internal/dom"
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// ivStrengthReduce turns factor*i, where i is a basic induction variable
// (a header phi stepped by a constant amount on the latch edge) and
// factor is loop-invariant, into its own derived induction variable that
// accumulates by step*factor each iteration, removing the per-iteration
// multiply. This is the classic array-index-times-element-size case that
// pointer arithmetic lowering produces.
func ivStrengthReduce(f *ir.Function, _ *target.Descriptor) bool {
	f.RebuildCFG()
	tree := dom.Build(f)
	loops := dom.NaturalLoops(f, tree)
	changed := false

	for _, loop := range loops {
		iv, ok := findBasicIV(f, loop)
		if !ok {
			continue
		}
		defBlock := map[ir.ValueID]ir.BlockID{}
		for _, b := range f.Blocks {
			for _, in := range b.AllInstrs() {
				if in.HasResult() {
					defBlock[in.ID] = b.ID
				}
			}
		}
		invariant := func(v ir.Value) bool {
			if v.Kind != ir.ValReg {
				return true
			}
			db, ok := defBlock[v.Reg]
			return !ok || !loop.Body[db]
		}

		ph := ensurePreheader(f, loop)
		if ph == ir.InvalidBlock {
			continue
		}
		phBlock := f.Block(ph)
		latchBlock := f.Block(iv.latchPred)

		for _, b := range f.Blocks {
			if !loop.Body[b.ID] {
				continue
			}
			for _, in := range append([]*ir.Instr{}, b.Instr...) {
				if in.Op != ir.OpMul || len(in.Args) != 2 {
					continue
				}
				var factor ir.Value
				switch {
				case in.Args[0].Kind == ir.ValReg && in.Args[0].Reg == iv.phi.ID && invariant(in.Args[1]):
					factor = in.Args[1]
				case in.Args[1].Kind == ir.ValReg && in.Args[1].Reg == iv.phi.ID && invariant(in.Args[0]):
					factor = in.Args[0]
				default:
					continue
				}

				bdPh := ir.NewBuilder(f, phBlock)
				initDerived := bdPh.BinOp(ir.OpMul, in.Type, iv.init, factor)
				stepDerived := bdPh.BinOp(ir.OpMul, in.Type, iv.step, factor)

				derived := &ir.Instr{Op: ir.OpPhi, ID: f.NewValue(), Type: in.Type}
				headerBlock := f.Block(loop.Header)
				headerBlock.Phis = append(headerBlock.Phis, derived)

				bdLatch := ir.NewBuilder(f, latchBlock)
				next := bdLatch.BinOp(iv.stepOp, in.Type, ir.Reg(derived.ID, in.Type), stepDerived)

				derived.Incoming = []ir.PhiEdge{
					{Pred: ph, Val: initDerived},
					{Pred: iv.latchPred, Val: next},
				}

				replaceAllUses(f, in.ID, ir.Reg(derived.ID, in.Type))
				changed = true
			}
		}
	}
	return changed
}

type basicIV struct {
	phi       *ir.Instr
	init      ir.Value
	step      ir.Value
	stepOp    ir.Opcode
	latchPred ir.BlockID
}

// findBasicIV looks for a header phi with one incoming edge from outside
// the loop (the initial value) and one from inside (a self-referencing
// add/sub by a non-register step), the textbook basic induction variable
// shape.
func findBasicIV(f *ir.Function, loop *dom.Loop) (basicIV, bool) {
	header := f.Block(loop.Header)
	for _, p := range header.Phis {
		if len(p.Incoming) != 2 {
			continue
		}
		var initEdge, latchEdge *ir.PhiEdge
		for i := range p.Incoming {
			e := &p.Incoming[i]
			if loop.Body[e.Pred] {
				latchEdge = e
			} else {
				initEdge = e
			}
		}
		if initEdge == nil || latchEdge == nil {
			continue
		}
		def := findDefInBlock(f, latchEdge.Pred, latchEdge.Val)
		if def == nil || (def.Op != ir.OpAdd && def.Op != ir.OpSub) || len(def.Args) != 2 {
			continue
		}
		var step ir.Value
		switch {
		case def.Args[0].Kind == ir.ValReg && def.Args[0].Reg == p.ID:
			step = def.Args[1]
		case def.Args[1].Kind == ir.ValReg && def.Args[1].Reg == p.ID && def.Op == ir.OpAdd:
			step = def.Args[0]
		default:
			continue
		}
		if step.Kind == ir.ValReg {
			continue // only non-register (constant) steps handled
		}
		return basicIV{phi: p, init: initEdge.Val, step: step, stepOp: def.Op, latchPred: latchEdge.Pred}, true
	}
	return basicIV{}, false
}

func findDefInBlock(f *ir.Function, b ir.BlockID, v ir.Value) *ir.Instr {
	if v.Kind != ir.ValReg {
		return nil
	}
	bb := f.Block(b)
	if bb == nil {
		return nil
	}
	for _, in := range bb.AllInstrs() {
		if in.HasResult() && in.ID == v.Reg {
			return in
		}
	}
	return nil
}
