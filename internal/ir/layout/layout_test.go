package layout

import (
	"testing"

	"github.com/coilc/coilc/internal/ir"
)

// buildMixed builds one function exercising all three tiers:
//
//	entry:  %esc = alloca i32           ; address escapes via call -> Tier 1
//	        %tmp = alloca i32           ; never escapes, single-block -> Tier 3
//	        store 7, %tmp
//	        %v = load %tmp
//	        call sink(%esc)
//	        %live = add %v, 1           ; crosses into exit -> Tier 2
//	        br exit
//	exit:   ret %live
func buildMixed() (*ir.Function, ir.ValueID, ir.ValueID, ir.ValueID) {
	f := ir.NewFunction("f", ir.Signature{Ret: ir.I32})
	entry := f.NewBlock("entry")
	exit := f.NewBlock("exit")

	bd := ir.NewBuilder(f, entry)
	esc := bd.Alloca("esc", ir.I32, 4, 4)
	tmp := bd.Alloca("tmp", ir.I32, 4, 4)
	bd.Store(tmp, ir.ConstInt(ir.I32, 7), false)
	v := bd.Load(ir.I32, tmp, false)
	bd.CallDirect(ir.Void, "sink", ir.Signature{Ret: ir.Void, Params: []ir.Type{ir.Ptr}}, []ir.Value{esc})
	live := bd.BinOp(ir.OpAdd, ir.I32, v, ir.ConstInt(ir.I32, 1))
	bd.Br(exit.ID)

	bd.SetBlock(exit)
	ret := live
	bd.Ret(&ret)

	f.RebuildCFG()
	return f, esc.Reg, tmp.Reg, live.Reg
}

func TestComputeClassifiesTiers(t *testing.T) {
	f, escID, tmpID, liveID := buildMixed()
	plan := Compute(f, 64)

	esc, ok := plan.Slots[escID]
	if !ok || esc.Class != Permanent {
		t.Fatalf("escaping alloca got class %v, want Permanent", esc)
	}

	tmp, ok := plan.Slots[tmpID]
	if !ok || tmp.Class != BlockLocal {
		t.Fatalf("non-escaping single-block alloca got class %v, want BlockLocal", tmp)
	}

	live, ok := plan.Slots[liveID]
	if !ok || live.Class != Packed {
		t.Fatalf("cross-block value got class %v, want Packed", live)
	}

	if plan.FrameSize <= 0 || plan.FrameSize%plan.FrameAlign != 0 {
		t.Fatalf("frame size %d not aligned to %d", plan.FrameSize, plan.FrameAlign)
	}
}

// TestComputeCoalescesCopyIntoItsSource builds a copy whose source and
// only reader both live in the copy's own block, the case coalescing is
// meant to catch: %live = add 1, 2; %cp = copy %live; ret %cp, all in one
// block.
func TestComputeCoalescesCopyIntoItsSource(t *testing.T) {
	f := ir.NewFunction("f", ir.Signature{Ret: ir.I32})
	entry := f.NewBlock("entry")
	bd := ir.NewBuilder(f, entry)
	live := bd.BinOp(ir.OpAdd, ir.I32, ir.ConstInt(ir.I32, 1), ir.ConstInt(ir.I32, 2))
	cpID := f.NewValue()
	entry.Instr = append(entry.Instr, &ir.Instr{Op: ir.OpCopy, ID: cpID, Type: ir.I32, Args: []ir.Value{live}})
	ret := ir.Reg(cpID, ir.I32)
	bd.Ret(&ret)
	f.RebuildCFG()

	plan := Compute(f, 64)
	liveSlot := plan.Slots[live.Reg]
	cpSlot, ok := plan.Slots[cpID]
	if !ok {
		t.Fatalf("copy destination %%%d has no slot", cpID)
	}
	if cpSlot != liveSlot {
		t.Fatalf("copy destination did not coalesce onto its source's slot: %+v vs %+v", cpSlot, liveSlot)
	}
}

// TestComputeDoesNotCoalesceWhenSourceHasOtherReaders regression-tests
// the cross-block slot aliasing bug described for copy coalescing: a copy
// must not steal its source's slot when the source is read again outside
// the copy's own block, since a later reuse of that slot for something
// else would corrupt the other reader's value.
func TestComputeDoesNotCoalesceWhenSourceHasOtherReaders(t *testing.T) {
	f := ir.NewFunction("f", ir.Signature{Ret: ir.I32})
	entry := f.NewBlock("entry")
	mid := f.NewBlock("mid")
	exit := f.NewBlock("exit")

	bd := ir.NewBuilder(f, entry)
	live := bd.BinOp(ir.OpAdd, ir.I32, ir.ConstInt(ir.I32, 1), ir.ConstInt(ir.I32, 2))
	bd.Br(mid.ID)

	bd.SetBlock(mid)
	cpID := f.NewValue()
	mid.Instr = append(mid.Instr, &ir.Instr{Op: ir.OpCopy, ID: cpID, Type: ir.I32, Args: []ir.Value{live}})
	// live is read again here, outside the source's defining block (entry)
	// and outside mid too — a second independent reader in exit.
	bd.Br(exit.ID)

	bd.SetBlock(exit)
	other := bd.BinOp(ir.OpAdd, ir.I32, live, ir.ConstInt(ir.I32, 1))
	ret := other
	bd.Ret(&ret)

	f.RebuildCFG()
	plan := Compute(f, 64)

	liveSlot := plan.Slots[live.Reg]
	cpSlot := plan.Slots[cpID]
	if liveSlot == cpSlot {
		t.Fatal("coalesced a copy whose source has a second independent reader")
	}
}

func TestComputeDeclarationReturnsEmptyPlan(t *testing.T) {
	f := ir.NewFunction("decl", ir.Signature{Ret: ir.Void})
	plan := Compute(f, 64)
	if plan.FrameSize != 0 || len(plan.Slots) != 0 {
		t.Fatalf("declaration got non-empty plan: %+v", plan)
	}
}
