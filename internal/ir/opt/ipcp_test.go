package opt

import (
	"testing"

	"github.com/coilc/coilc/internal/ir"
)

// buildCalleeWithUniformArg builds callee(int flag, int x) { return flag + x; }
// called twice, always with flag=1, so IPCP should replace flag's uses
// with the constant 1.
func buildCalleeWithUniformArg() *ir.Module {
	m := ir.NewModule("m", ir.TargetInfo{PointerWidth: 64})

	callee := ir.NewFunction("callee", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32, ir.I32}})
	entry := callee.NewBlock("entry")
	flag := ir.Reg(callee.NewValue(), ir.I32)
	x := ir.Reg(callee.NewValue(), ir.I32)
	callee.Params = []ir.ValueID{flag.Reg, x.Reg}
	bd := ir.NewBuilder(callee, entry)
	sum := bd.BinOp(ir.OpAdd, ir.I32, flag, x)
	ret := sum
	bd.Ret(&ret)
	m.AddFunction(callee)

	caller := ir.NewFunction("caller", ir.Signature{Ret: ir.I32, Params: []ir.Type{ir.I32}})
	centry := caller.NewBlock("entry")
	p := ir.Reg(caller.NewValue(), ir.I32)
	caller.Params = []ir.ValueID{p.Reg}
	cbd := ir.NewBuilder(caller, centry)
	r1 := cbd.CallDirect(ir.I32, "callee", callee.Sig, []ir.Value{ir.ConstInt(ir.I32, 1), p})
	r2 := cbd.CallDirect(ir.I32, "callee", callee.Sig, []ir.Value{ir.ConstInt(ir.I32, 1), ir.ConstInt(ir.I32, 5)})
	total := cbd.BinOp(ir.OpAdd, ir.I32, r1, r2)
	ret2 := total
	cbd.Ret(&ret2)
	m.AddFunction(caller)

	return m
}

func TestIPCPReplacesUniformArgument(t *testing.T) {
	m := buildCalleeWithUniformArg()
	if !IPCP(m) {
		t.Fatal("IPCP reported no change with a uniform constant argument")
	}
	callee := m.FindFunction("callee")
	entry := callee.Blocks[0]
	add := entry.Instr[0]
	if add.Op != ir.OpAdd {
		t.Fatalf("expected the add to remain, got %s", add)
	}
	sawConst := false
	for _, a := range add.Args {
		if a.IsConst() && a.Int == 1 {
			sawConst = true
		}
	}
	if !sawConst {
		t.Fatalf("flag parameter was not replaced by its uniform constant: %s", add)
	}
}

func TestIPCPSkipsNonUniformArgument(t *testing.T) {
	m := buildCalleeWithUniformArg()
	callee := m.FindFunction("callee")
	// x is passed as p (a register) at one call site and 5 at another —
	// non-uniform, so IPCP must not touch it.
	changed := IPCP(m)
	_ = changed
	entry := callee.Blocks[0]
	add := entry.Instr[0]
	regArgs := 0
	for _, a := range add.Args {
		if a.Kind == ir.ValReg {
			regArgs++
		}
	}
	if regArgs == 0 {
		t.Fatal("IPCP replaced the non-uniform parameter x")
	}
}

func TestIPCPSkipsAddressTakenFunction(t *testing.T) {
	m := buildCalleeWithUniformArg()
	callee := m.FindFunction("callee")
	callee.Attrs.Used = true
	IPCP(m)
	entry := callee.Blocks[0]
	add := entry.Instr[0]
	for _, a := range add.Args {
		if a.IsConst() {
			t.Fatal("IPCP replaced a parameter on a function marked Used (address taken)")
		}
	}
}
