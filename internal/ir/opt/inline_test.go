package opt

import (
	"testing"

	"github.com/coilc/coilc/internal/ir"
)

// buildCallerOfSmallCallee builds a small callee(a) { return a + 1; } and a
// caller that calls it once.
func buildCallerOfSmallCallee() *ir.Module {
	m := ir.NewModule("m", ir.TargetInfo{PointerWidth: 64})

	inc := ir.NewFunction("inc", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32}})
	ie := inc.NewBlock("entry")
	a := ir.Reg(inc.NewValue(), ir.I32)
	inc.Params = []ir.ValueID{a.Reg}
	ibd := ir.NewBuilder(inc, ie)
	sum := ibd.BinOp(ir.OpAdd, ir.I32, a, ir.ConstInt(ir.I32, 1))
	iret := sum
	ibd.Ret(&iret)
	m.AddFunction(inc)

	caller := ir.NewFunction("caller", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32}})
	ce := caller.NewBlock("entry")
	p := ir.Reg(caller.NewValue(), ir.I32)
	caller.Params = []ir.ValueID{p.Reg}
	cbd := ir.NewBuilder(caller, ce)
	call := cbd.CallDirect(ir.I32, "inc", inc.Sig, []ir.Value{p})
	cret := call
	cbd.Ret(&cret)
	m.AddFunction(caller)

	return m
}

func TestInlineExpandsSmallCallee(t *testing.T) {
	m := buildCallerOfSmallCallee()
	tgt := hostTarget(t)
	if !Inline(m, tgt, defaultInlineSizeCap) {
		t.Fatal("Inline reported no change for an eligible small callee")
	}
	caller := m.FindFunction("caller")
	for _, b := range caller.Blocks {
		for _, in := range b.Instr {
			if in.Op == ir.OpCallDirect && in.Callee == "inc" {
				t.Fatal("call to inc survived inlining")
			}
		}
	}
	sawAdd := false
	for _, b := range caller.Blocks {
		for _, in := range b.Instr {
			if in.Op == ir.OpAdd {
				sawAdd = true
			}
		}
	}
	if !sawAdd {
		t.Fatal("callee body was not grafted into the caller")
	}
	ir.Verify(caller, true)
}

func TestInlineRespectsSizeCap(t *testing.T) {
	m := buildCallerOfSmallCallee()
	if Inline(m, hostTarget(t), 0) {
		t.Fatal("Inline expanded a callee larger than a zero size cap")
	}
}

func TestInlineNeverInlinesMutualRecursion(t *testing.T) {
	m := ir.NewModule("m", ir.TargetInfo{PointerWidth: 64})

	evenFn := ir.NewFunction("is_even", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32}})
	oddFn := ir.NewFunction("is_odd", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32}})

	be := evenFn.NewBlock("entry")
	en := ir.Reg(evenFn.NewValue(), ir.I32)
	evenFn.Params = []ir.ValueID{en.Reg}
	ebd := ir.NewBuilder(evenFn, be)
	ecall := ebd.CallDirect(ir.I32, "is_odd", oddFn.Sig, []ir.Value{en})
	eret := ecall
	ebd.Ret(&eret)
	m.AddFunction(evenFn)

	bo := oddFn.NewBlock("entry")
	on := ir.Reg(oddFn.NewValue(), ir.I32)
	oddFn.Params = []ir.ValueID{on.Reg}
	obd := ir.NewBuilder(oddFn, bo)
	ocall := obd.CallDirect(ir.I32, "is_even", evenFn.Sig, []ir.Value{on})
	oret := ocall
	obd.Ret(&oret)
	m.AddFunction(oddFn)

	Inline(m, hostTarget(t), defaultInlineSizeCap)
	for _, in := range evenFn.Blocks[0].Instr {
		if in.Op == ir.OpCallDirect {
			return // still calling out, as expected
		}
	}
	t.Fatal("mutually-recursive callee was inlined")
}
