package cast

// Builder offers short constructors for the fluent style used by tests
// and cmd/coilc's -selftest mode to assemble a TranslationUnit without a
// real parser.

func IntLit(t *CType, v int64) *Expr {
	return &Expr{Kind: EIntLit, Type: t, IntVal: v, IsConst: true, ConstVal: v}
}

func FloatLit(t *CType, v float64) *Expr {
	return &Expr{Kind: EFloatLit, Type: t, FloatVal: v}
}

func StringLit(s string) *Expr {
	return &Expr{Kind: EStringLit, Type: PointerTo(Int(CChar)), StrVal: s}
}

func Ident(name string, t *CType) *Expr {
	return &Expr{Kind: EIdent, Type: t, Name: name}
}

func Bin(op BinOpKind, t *CType, lhs, rhs *Expr) *Expr {
	return &Expr{Kind: EBinOp, Type: t, BinOp: op, LHS: lhs, RHS: rhs}
}

func Assign(op AssignKind, lhs, rhs *Expr) *Expr {
	return &Expr{Kind: EAssign, Type: lhs.Type, AssignOp: op, LHS: lhs, RHS: rhs}
}

func Unary(op UnaryKind, t *CType, sub *Expr) *Expr {
	return &Expr{Kind: EUnary, Type: t, UnOp: op, Sub: sub}
}

func Cast(to *CType, sub *Expr) *Expr {
	return &Expr{Kind: ECast, Type: to, CastTo: to, Sub: sub}
}

func Ternary(t *CType, cond, then, els *Expr) *Expr {
	return &Expr{Kind: ETernary, Type: t, Cond: cond, Then: then, Else: els}
}

func Call(t *CType, callee *Expr, args ...*Expr) *Expr {
	return &Expr{Kind: ECall, Type: t, Callee: callee, Args: args}
}

func Index(t *CType, base, idx *Expr) *Expr {
	return &Expr{Kind: EIndex, Type: t, Base: base, Index: idx}
}

func Member(t *CType, base *Expr, field string, arrow bool) *Expr {
	return &Expr{Kind: EMember, Type: t, Base: base, Field: field, Arrow: arrow}
}

func ExprStmt(e *Expr) *Stmt { return &Stmt{Kind: SExpr, ExprS: e} }

func Return(e *Expr) *Stmt { return &Stmt{Kind: SReturn, ExprS: e} }

func Block(stmts ...*Stmt) *Stmt { return &Stmt{Kind: SBlock, Body: stmts} }

func DeclStmt(decls ...*Decl) *Stmt { return &Stmt{Kind: SDeclBlock, Decls: decls} }

func If(cond *Expr, then, els *Stmt) *Stmt {
	return &Stmt{Kind: SIf, Cond: cond, Then: then, Else: els}
}

func While(cond *Expr, body *Stmt) *Stmt {
	return &Stmt{Kind: SWhile, CondE: cond, Loop: body}
}

func DoWhile(body *Stmt, cond *Expr) *Stmt {
	return &Stmt{Kind: SDoWhile, CondE: cond, Loop: body}
}

func For(init *Stmt, cond, post *Expr, body *Stmt) *Stmt {
	return &Stmt{Kind: SFor, InitS: init, CondE: cond, PostE: post, Loop: body}
}

func Break() *Stmt    { return &Stmt{Kind: SBreak} }
func Continue() *Stmt { return &Stmt{Kind: SContinue} }
func Goto(label string) *Stmt { return &Stmt{Kind: SGoto, Label: label} }
func Label(name string, s *Stmt) *Stmt {
	return &Stmt{Kind: SLabel, Label: name, Then: s}
}

func Var(name string, t *CType, init *Expr) *Decl {
	return &Decl{Name: name, Type: t, Init: init}
}

func StaticVar(name string, t *CType, init *Expr) *Decl {
	return &Decl{Name: name, Type: t, Init: init, Static: true}
}

func Param(name string, t *CType) *Decl {
	return &Decl{Name: name, Type: t, IsParam: true}
}

func Func(name string, ret *CType, params []*Decl, body ...*Stmt) *Function {
	return &Function{Name: name, Ret: ret, Params: params, Body: body}
}
