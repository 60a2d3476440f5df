package main

import "github.com/coilc/coilc/internal/cast"

// selftestPrograms stands in for the real C source files this compiler
// core cannot parse (internal/cast is a builder API, not a parser): each
// entry hand-assembles a small translation unit exercising a different
// corner of the pipeline, keyed by the name a user passes as an input
// "file" in -selftest mode.
var selftestPrograms = map[string]func() *cast.TranslationUnit{
	"fib":     buildFib,
	"sumloop": buildSumLoop,
	"ternary": buildTernary,
	"rotate3": buildRotate3,
}

// buildFib builds int fib(int n) { if (n < 2) return n; return fib(n-1) + fib(n-2); }
// exercising recursive-call lowering and the inliner's check that skips a
// call from a function to itself.
func buildFib() *cast.TranslationUnit {
	tu := cast.NewTranslationUnit()
	i32 := cast.Int(cast.CInt)
	fibSig := cast.FuncType(i32, []*cast.CType{i32}, false)

	n := cast.Param("n", i32)
	nRef := cast.Ident("n", i32)
	fibRef := cast.Ident("fib", fibSig)

	cond := cast.Bin(cast.BLt, i32, nRef, cast.IntLit(i32, 2))
	base := cast.Return(nRef)
	rec1 := cast.Call(i32, fibRef, cast.Bin(cast.BSub, i32, nRef, cast.IntLit(i32, 1)))
	rec2 := cast.Call(i32, fibRef, cast.Bin(cast.BSub, i32, nRef, cast.IntLit(i32, 2)))
	body := cast.Block(
		cast.If(cond, base, nil),
		cast.Return(cast.Bin(cast.BAdd, i32, rec1, rec2)),
	)
	tu.Functions = append(tu.Functions, cast.Func("fib", i32, []*cast.Decl{n}, body))
	return tu
}

// buildSumLoop builds int sumloop(int n) { int s = 0; for (int i = 0; i < n; i++) s += i * 4; return s; }
// exercising mem2reg promotion, induction-variable strength reduction (i*4), and LICM.
func buildSumLoop() *cast.TranslationUnit {
	tu := cast.NewTranslationUnit()
	i32 := cast.Int(cast.CInt)

	n := cast.Param("n", i32)
	nRef := cast.Ident("n", i32)
	sRef := cast.Ident("s", i32)
	iRef := cast.Ident("i", i32)

	sDecl := cast.Var("s", i32, cast.IntLit(i32, 0))
	iDecl := cast.Var("i", i32, cast.IntLit(i32, 0))

	step := cast.Bin(cast.BMul, i32, iRef, cast.IntLit(i32, 4))
	sAssign := cast.ExprStmt(cast.Assign(cast.AAddAssign, sRef, step))
	iInc := cast.Unary(cast.UPostInc, i32, iRef)

	loop := cast.For(
		cast.DeclStmt(iDecl),
		cast.Bin(cast.BLt, i32, iRef, nRef),
		iInc,
		cast.Block(sAssign),
	)
	body := cast.Block(cast.DeclStmt(sDecl), loop, cast.Return(sRef))
	tu.Functions = append(tu.Functions, cast.Func("sumloop", i32, []*cast.Decl{n}, body))
	return tu
}

// buildTernary builds int ternary(int a, int b, int c) { return c ? a : b; }
// with both arms side-effect-free idents, exercising direct select lowering.
func buildTernary() *cast.TranslationUnit {
	tu := cast.NewTranslationUnit()
	i32 := cast.Int(cast.CInt)

	a := cast.Param("a", i32)
	b := cast.Param("b", i32)
	c := cast.Param("c", i32)
	body := cast.Block(cast.Return(cast.Ternary(i32, cast.Ident("c", i32), cast.Ident("a", i32), cast.Ident("b", i32))))
	tu.Functions = append(tu.Functions, cast.Func("ternary", i32, []*cast.Decl{a, b, c}, body))
	return tu
}

// buildRotate3 builds a three-variable cyclic rotation across a loop back
// edge (a=b; b=c; c=tmp;-shaped, via successive locals feeding a single
// join point every iteration), exercising phi-elimination's cycle-breaking
// parallel-copy sequentialization.
func buildRotate3() *cast.TranslationUnit {
	tu := cast.NewTranslationUnit()
	i32 := cast.Int(cast.CInt)

	n := cast.Param("n", i32)
	nRef := cast.Ident("n", i32)
	aDecl := cast.Var("a", i32, cast.IntLit(i32, 1))
	bDecl := cast.Var("b", i32, cast.IntLit(i32, 2))
	cDecl := cast.Var("c", i32, cast.IntLit(i32, 3))
	aRef, bRef, cRef := cast.Ident("a", i32), cast.Ident("b", i32), cast.Ident("c", i32)
	tmpDecl := cast.Var("t", i32, aRef)

	rotate := cast.Block(
		cast.DeclStmt(tmpDecl),
		cast.ExprStmt(cast.Assign(cast.AAssign, aRef, bRef)),
		cast.ExprStmt(cast.Assign(cast.AAssign, bRef, cRef)),
		cast.ExprStmt(cast.Assign(cast.AAssign, cRef, cast.Ident("t", i32))),
	)
	iDecl := cast.Var("i", i32, cast.IntLit(i32, 0))
	loop := cast.For(cast.DeclStmt(iDecl), cast.Bin(cast.BLt, i32, cast.Ident("i", i32), nRef),
		cast.Unary(cast.UPostInc, i32, cast.Ident("i", i32)), rotate)
	body := cast.Block(cast.DeclStmt(aDecl), cast.DeclStmt(bDecl), cast.DeclStmt(cDecl), loop,
		cast.Return(cast.Bin(cast.BAdd, i32, cast.Bin(cast.BAdd, i32, aRef, bRef), cRef)))
	tu.Functions = append(tu.Functions, cast.Func("rotate3", i32, []*cast.Decl{n}, body))
	return tu
}
