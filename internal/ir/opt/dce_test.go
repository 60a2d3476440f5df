package opt

import (
	"testing"

	"github.com/coilc/coilc/internal/ir"
)

func TestDCERemovesUnusedPureInstr(t *testing.T) {
	f := ir.NewFunction("f", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32}})
	entry := f.NewBlock("entry")
	bd := ir.NewBuilder(f, entry)
	a := ir.Reg(f.NewValue(), ir.I32)
	f.Params = []ir.ValueID{a.Reg}

	dead := bd.BinOp(ir.OpAdd, ir.I32, a, ir.ConstInt(ir.I32, 1))
	_ = dead
	ret := a
	bd.Ret(&ret)

	if !dce(f, hostTarget(t)) {
		t.Fatal("dce reported no change on a dead add")
	}
	for _, in := range entry.Instr {
		if in.Op == ir.OpAdd {
			t.Fatal("dead add survived dce")
		}
	}
}

func TestDCEKeepsSideEffectingCall(t *testing.T) {
	f := ir.NewFunction("f", ir.Signature{Ret: ir.Void})
	entry := f.NewBlock("entry")
	bd := ir.NewBuilder(f, entry)
	bd.CallDirect(ir.Void, "sideeffect", ir.Signature{Ret: ir.Void}, nil)
	bd.Ret(nil)

	dce(f, hostTarget(t))
	found := false
	for _, in := range entry.Instr {
		if in.Op == ir.OpCallDirect {
			found = true
		}
	}
	if !found {
		t.Fatal("dce removed a side-effecting call with no result uses")
	}
}

func TestDCEChainsThroughDeadDefs(t *testing.T) {
	// a dead chain: %1 = add p, 1; %2 = add %1, 1; neither used.
	f := ir.NewFunction("f", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32}})
	entry := f.NewBlock("entry")
	bd := ir.NewBuilder(f, entry)
	p := ir.Reg(f.NewValue(), ir.I32)
	f.Params = []ir.ValueID{p.Reg}

	v1 := bd.BinOp(ir.OpAdd, ir.I32, p, ir.ConstInt(ir.I32, 1))
	_ = bd.BinOp(ir.OpAdd, ir.I32, v1, ir.ConstInt(ir.I32, 1))
	ret := p
	bd.Ret(&ret)

	dce(f, hostTarget(t))
	if len(entry.Instr) != 0 {
		t.Fatalf("dce left %d instructions, want 0 (whole dead chain removed)", len(entry.Instr))
	}
}
