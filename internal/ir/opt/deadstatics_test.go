package opt

import (
	"testing"

	"github.com/coilc/coilc/internal/ir"
)

func buildModuleWithDeadStatic() *ir.Module {
	m := ir.NewModule("m", ir.TargetInfo{PointerWidth: 64})

	unused := ir.NewFunction("unused_helper", ir.Signature{Ret: ir.I32})
	unused.Attrs.Static = true
	e := unused.NewBlock("entry")
	ret := ir.ConstInt(ir.I32, 0)
	ir.NewBuilder(unused, e).Ret(&ret)
	m.AddFunction(unused)

	used := ir.NewFunction("used_helper", ir.Signature{Ret: ir.I32})
	used.Attrs.Static = true
	ue := used.NewBlock("entry")
	uret := ir.ConstInt(ir.I32, 1)
	ir.NewBuilder(used, ue).Ret(&uret)
	m.AddFunction(used)

	main := ir.NewFunction("main", ir.Signature{Ret: ir.I32})
	me := main.NewBlock("entry")
	bd := ir.NewBuilder(main, me)
	call := bd.CallDirect(ir.I32, "used_helper", used.Sig, nil)
	mret := call
	bd.Ret(&mret)
	m.AddFunction(main)

	return m
}

func TestDeadStaticsRemovesUnreachableStaticFunction(t *testing.T) {
	m := buildModuleWithDeadStatic()
	if !DeadStatics(m) {
		t.Fatal("DeadStatics reported no change")
	}
	if m.FindFunction("unused_helper") != nil {
		t.Fatal("unreachable static function survived DeadStatics")
	}
	if m.FindFunction("used_helper") == nil {
		t.Fatal("reachable static function was incorrectly removed")
	}
	if m.FindFunction("main") == nil {
		t.Fatal("external-linkage entry point was incorrectly removed")
	}
}

func TestDeadStaticsKeepsAddressTakenGlobal(t *testing.T) {
	m := ir.NewModule("m", ir.TargetInfo{PointerWidth: 64})
	m.AddGlobal(&ir.Global{Name: "tab", Type: ir.Ptr, Size: 8, Align: 8, Linkage: ir.LinkageInternal, AddressTaken: true})
	main := ir.NewFunction("main", ir.Signature{Ret: ir.Void})
	e := main.NewBlock("entry")
	ir.NewBuilder(main, e).Ret(nil)
	m.AddFunction(main)

	DeadStatics(m)
	found := false
	for _, g := range m.Globals {
		if g.Name == "tab" {
			found = true
		}
	}
	if !found {
		t.Fatal("address-taken internal global was removed")
	}
}
