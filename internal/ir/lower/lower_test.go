package lower

import (
	"testing"

	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/diagnostics"
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

func hostTarget(t *testing.T) *target.Descriptor {
	t.Helper()
	d, err := target.Describe(target.X86_64)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// buildMaxUnit builds int max(int a, int b) { if (a > b) return a; return b; }
func buildMaxUnit() *cast.TranslationUnit {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	a := cast.Ident("a", intT)
	b := cast.Ident("b", intT)
	fn := cast.Func("max", intT, []*cast.Decl{cast.Param("a", intT), cast.Param("b", intT)},
		cast.If(cast.Bin(cast.BGt, intT, a, b), cast.Return(a), nil),
		cast.Return(b),
	)
	tu.Functions = append(tu.Functions, fn)
	return tu
}

func TestLowerTranslationUnitProducesVerifiableFunction(t *testing.T) {
	tu := buildMaxUnit()
	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	f := m.FindFunction("max")
	if f == nil {
		t.Fatal("max was not lowered into the module")
	}
	ir.Verify(f, false)

	if len(f.Params) != 2 {
		t.Fatalf("max has %d params, want 2", len(f.Params))
	}
}

// buildSumLoopUnit builds:
//
//	int sum(int n) {
//	  int total = 0;
//	  for (int i = 0; i < n; i = i + 1) total = total + i;
//	  return total;
//	}
func buildSumLoopUnit() *cast.TranslationUnit {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	n := cast.Ident("n", intT)
	i := cast.Ident("i", intT)
	total := cast.Ident("total", intT)

	init := cast.DeclStmt(cast.Var("i", intT, cast.IntLit(intT, 0)))
	cond := cast.Bin(cast.BLt, intT, i, n)
	post := cast.Assign(cast.AAssign, i, cast.Bin(cast.BAdd, intT, i, cast.IntLit(intT, 1)))
	body := cast.ExprStmt(cast.Assign(cast.AAssign, total, cast.Bin(cast.BAdd, intT, total, i)))

	fn := cast.Func("sum", intT, []*cast.Decl{cast.Param("n", intT)},
		cast.DeclStmt(cast.Var("total", intT, cast.IntLit(intT, 0))),
		cast.For(init, cond, post, body),
		cast.Return(total),
	)
	tu.Functions = append(tu.Functions, fn)
	return tu
}

func TestLowerTranslationUnitLowersForLoop(t *testing.T) {
	tu := buildSumLoopUnit()
	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	f := m.FindFunction("sum")
	if f == nil {
		t.Fatal("sum was not lowered")
	}
	ir.Verify(f, false)

	var sawHead, sawBody, sawPost, sawExit bool
	for _, b := range f.Blocks {
		switch b.Name {
		case "for.head":
			sawHead = true
		case "for.body":
			sawBody = true
		case "for.post":
			sawPost = true
		case "for.end":
			sawExit = true
		}
	}
	if !sawHead || !sawBody || !sawPost || !sawExit {
		t.Fatalf("missing expected for-loop blocks in %v", blockNames(f))
	}
}

func blockNames(f *ir.Function) []string {
	names := make([]string, len(f.Blocks))
	for i, b := range f.Blocks {
		names[i] = b.Name
	}
	return names
}

func TestLowerTranslationUnitPrunesDeadJoinAfterBothArmsReturn(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	a := cast.Ident("a", intT)
	fn := cast.Func("choose", intT, []*cast.Decl{cast.Param("a", intT)},
		cast.If(cast.Bin(cast.BGt, intT, a, cast.IntLit(intT, 0)),
			cast.Return(cast.IntLit(intT, 1)),
			cast.Return(cast.IntLit(intT, 0)),
		),
	)
	tu.Functions = append(tu.Functions, fn)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	f := m.FindFunction("choose")
	ir.Verify(f, false)
	for _, b := range f.Blocks {
		if b.Name == "if.end" {
			t.Fatal("unreachable if.end block survived pruning")
		}
	}
}

func TestLowerTranslationUnitRegistersExternForDeclarationOnly(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	decl := cast.Func("puts_int", intT, []*cast.Decl{cast.Param("v", intT)})
	tu.Functions = append(tu.Functions, decl)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	if m.FindFunction("puts_int") != nil {
		t.Fatal("a declaration-only function should not produce a defined Function")
	}
	found := false
	for _, e := range m.Externs {
		if e.Name == "puts_int" {
			found = true
		}
	}
	if !found {
		t.Fatal("puts_int was not registered as an extern")
	}
}

func TestLowerTranslationUnitLowersGlobalWithConstInitializer(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	g := cast.Var("counter", intT, cast.IntLit(intT, 7))
	tu.Globals = append(tu.Globals, g)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	if len(m.Globals) != 1 || m.Globals[0].Name != "counter" {
		t.Fatalf("globals = %+v, want one entry named counter", m.Globals)
	}
	if m.Globals[0].Linkage != ir.LinkageExternal {
		t.Errorf("non-static global linkage = %v, want external", m.Globals[0].Linkage)
	}
}

func TestLowerTranslationUnitRejectsNonConstGlobalInitializer(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	nonConst := cast.Ident("not_a_constant", intT)
	g := cast.Var("bad", intT, nonConst)
	tu.Globals = append(tu.Globals, g)

	bag := &diagnostics.Bag{}
	LowerTranslationUnit(tu, hostTarget(t), bag)
	if !bag.HasErrors() {
		t.Fatal("a non-constant global initializer should be reported as an error")
	}
}

func TestLowerTranslationUnitStaticGlobalIsInternalLinkage(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	g := cast.StaticVar("hidden", intT, cast.IntLit(intT, 1))
	tu.Globals = append(tu.Globals, g)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	if m.Globals[0].Linkage != ir.LinkageInternal {
		t.Errorf("static global linkage = %v, want internal", m.Globals[0].Linkage)
	}
}

func TestComputeLayoutAssignsFieldOffsets(t *testing.T) {
	intT := cast.Int(cast.CInt)
	charT := cast.Int(cast.CChar)
	point := &cast.CType{
		Kind: cast.CStruct,
		Tag:  "point",
		Fields: []cast.Field{
			{Name: "flag", Type: charT},
			{Name: "x", Type: intT},
		},
	}
	structs := map[string]*cast.CType{"point": point}
	ComputeLayout(structs, 64)

	if point.Size == 0 {
		t.Fatal("ComputeLayout left struct size unset")
	}
	x := point.FieldByName("x")
	if x == nil {
		t.Fatal("missing field x")
	}
	if x.ByteOffset == 0 {
		t.Error("int field x following a char should not sit at offset 0 once aligned")
	}
}

// TestLowerTranslationUnitLowersShortCircuitAnd builds
// int f(int a, int b) { return a && b; } — spec.md's flagship short-circuit
// example — and asserts it survives lowering without a phi ever reaching
// the pre-mem2reg Verify call.
func TestLowerTranslationUnitLowersShortCircuitAnd(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	a := cast.Ident("a", intT)
	b := cast.Ident("b", intT)
	fn := cast.Func("f", intT, []*cast.Decl{cast.Param("a", intT), cast.Param("b", intT)},
		cast.Return(cast.Bin(cast.BLogAnd, intT, a, b)),
	)
	tu.Functions = append(tu.Functions, fn)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	f := m.FindFunction("f")
	if f == nil {
		t.Fatal("f was dropped from the module (short-circuit lowering faulted)")
	}
	ir.Verify(f, false)

	sawAlloca := false
	for _, b := range f.Blocks {
		if len(b.Phis) != 0 {
			t.Fatalf("block %s has %d phis before mem2reg has run", b.Name, len(b.Phis))
		}
		for _, in := range b.Instr {
			if in.Op == ir.OpAlloca {
				sawAlloca = true
			}
		}
	}
	if !sawAlloca {
		t.Fatal("expected a temporary alloca joining the && diamond")
	}
}

// TestLowerTranslationUnitTernarySideEffectFreeArmsIsSelect covers the
// ternary lowering contract's select-when-pure branch: return c ? a : b
// with a, b, c all plain idents lowers to OpSelect, not a diamond.
func TestLowerTranslationUnitTernarySideEffectFreeArmsIsSelect(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	fn := cast.Func("pick", intT, []*cast.Decl{cast.Param("a", intT), cast.Param("b", intT), cast.Param("c", intT)},
		cast.Return(cast.Ternary(intT, cast.Ident("c", intT), cast.Ident("a", intT), cast.Ident("b", intT))),
	)
	tu.Functions = append(tu.Functions, fn)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	f := m.FindFunction("pick")
	ir.Verify(f, false)

	sawSelect := false
	for _, b := range f.Blocks {
		for _, in := range b.Instr {
			if in.Op == ir.OpSelect {
				sawSelect = true
			}
		}
		if b.Name == "cond.then" || b.Name == "cond.else" || b.Name == "cond.join" {
			t.Fatalf("side-effect-free ternary built a diamond block %s instead of a select", b.Name)
		}
	}
	if !sawSelect {
		t.Fatal("expected a select for a side-effect-free ternary")
	}
}

// TestLowerTranslationUnitTernaryWithCallArmIsDiamond covers a ternary
// with a call in one arm, which must not be folded to select (the callee
// only runs on its taken side).
func TestLowerTranslationUnitTernaryWithCallArmIsDiamond(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	sideEffecting := cast.FuncType(intT, []*cast.CType{}, false)
	call := cast.Call(intT, cast.Ident("compute", sideEffecting))
	fn := cast.Func("pick", intT, []*cast.Decl{cast.Param("a", intT), cast.Param("c", intT)},
		cast.Return(cast.Ternary(intT, cast.Ident("c", intT), cast.Ident("a", intT), call)),
	)
	tu.Functions = append(tu.Functions, fn)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", bag.Items())
	}
	f := m.FindFunction("pick")
	ir.Verify(f, false)

	sawJoin := false
	for _, b := range f.Blocks {
		if len(b.Phis) != 0 {
			t.Fatalf("block %s has %d phis before mem2reg has run", b.Name, len(b.Phis))
		}
		if b.Name == "cond.join" {
			sawJoin = true
		}
	}
	if !sawJoin {
		t.Fatal("a ternary with a call arm should still lower as a diamond")
	}
}

func TestLowerFunctionWithBreakOutsideLoopIsFault(t *testing.T) {
	tu := cast.NewTranslationUnit()
	intT := cast.Int(cast.CInt)
	fn := cast.Func("bad", intT, nil, cast.Break(), cast.Return(cast.IntLit(intT, 0)))
	tu.Functions = append(tu.Functions, fn)

	bag := &diagnostics.Bag{}
	m := LowerTranslationUnit(tu, hostTarget(t), bag)
	if !bag.HasErrors() {
		t.Fatal("break outside a loop should be reported as an error")
	}
	if m.FindFunction("bad") != nil {
		t.Fatal("a function that faulted mid-lowering should not be added to the module")
	}
}
