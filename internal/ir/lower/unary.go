package lower

import (
	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/ir"
)

func lowerUnary(c *ctx, e *cast.Expr) ir.Value {
	switch e.UnOp {
	case cast.UNeg:
		v := lowerExpr(c, e.Sub)
		t := irType(e.Type, c.ptrWidth())
		if e.Type.IsFloat() {
			return c.bd.BinOp(ir.OpFSub, t, ir.ConstFloat(t, 0), v)
		}
		return c.bd.BinOp(ir.OpSub, t, ir.ConstInt(t, 0), v)
	case cast.UNot:
		v := lowerExpr(c, e.Sub)
		b := toBool(c, v, e.Sub.Type)
		inv := c.bd.ICmp(ir.OpICmpEQ, b, ir.ConstInt(ir.I32, 0))
		return convert(c.bd, inv, cast.Int(cast.CInt), e.Type, c.ptrWidth())
	case cast.UBitNot:
		v := lowerExpr(c, e.Sub)
		t := v.Type
		return c.bd.BinOp(ir.OpXor, t, v, ir.ConstInt(t, ^uint64(0)))
	case cast.UAddr:
		lv := lowerLValue(c, e.Sub)
		return lv.addr
	case cast.UDeref:
		ptr := lowerExpr(c, e.Sub)
		if e.Type.IsAggregate() {
			return ptr
		}
		return c.bd.Load(irType(e.Type, c.ptrWidth()), ptr, false)
	case cast.UPreInc, cast.UPreDec, cast.UPostInc, cast.UPostDec:
		return lowerIncDec(c, e)
	default:
		c.fault("unsupported unary operator")
		return ir.Value{}
	}
}

func lowerIncDec(c *ctx, e *cast.Expr) ir.Value {
	lv := lowerLValue(c, e.Sub)
	old := readLV(c, lv)

	isInc := e.UnOp == cast.UPreInc || e.UnOp == cast.UPostInc
	isPost := e.UnOp == cast.UPostInc || e.UnOp == cast.UPostDec

	var updated ir.Value
	if e.Sub.Type.IsPointer() {
		elemSize := cast.SizeOf(e.Sub.Type.Elem, c.ptrWidth())
		delta := int64(1)
		if !isInc {
			delta = -1
		}
		idxT := ir.Type{Kind: ir.KindInt, Width: uint8(c.ptrWidth())}
		updated = c.bd.GEP(old, 0, ir.ConstInt(idxT, uint64(delta)), elemSize)
	} else if e.Sub.Type.IsFloat() {
		one := ir.ConstFloat(old.Type, 1)
		op := ir.OpFAdd
		if !isInc {
			op = ir.OpFSub
		}
		updated = c.bd.BinOp(op, old.Type, old, one)
	} else {
		one := ir.ConstInt(old.Type, 1)
		op := ir.OpAdd
		if !isInc {
			op = ir.OpSub
		}
		updated = c.bd.BinOp(op, old.Type, old, one)
	}
	writeLV(c, lv, updated)
	if isPost {
		return old
	}
	return updated
}

// lowerTernary lowers a?b:c. Per the ternary lowering contract, it folds
// to a select when both arms are side-effect-free (evaluating both
// unconditionally is then safe); otherwise it lowers as a diamond joined
// through a temporary alloca, since a real phi here would violate the
// pre-SSA IR lowering hands to mem2reg.
func lowerTernary(c *ctx, e *cast.Expr) ir.Value {
	cond := lowerExpr(c, e.Cond)
	condBool := toBool(c, cond, e.Cond.Type)

	if e.Type.Kind != cast.CVoid && isSideEffectFree(e.Then) && isSideEffectFree(e.Else) {
		thenVal := lowerExpr(c, e.Then)
		thenVal = convert(c.bd, thenVal, e.Then.Type, e.Type, c.ptrWidth())
		elseVal := lowerExpr(c, e.Else)
		elseVal = convert(c.bd, elseVal, e.Else.Type, e.Type, c.ptrWidth())
		return c.bd.Select(irType(e.Type, c.ptrWidth()), condBool, thenVal, elseVal)
	}

	thenBlock := c.f.NewBlock("cond.then")
	elseBlock := c.f.NewBlock("cond.else")
	joinBlock := c.f.NewBlock("cond.join")

	var slot ir.Value
	if e.Type.Kind != cast.CVoid {
		resT := irType(e.Type, c.ptrWidth())
		slot = c.bd.Alloca("cond.slot", resT, cast.SizeOf(e.Type, c.ptrWidth()), cast.AlignOf(e.Type, c.ptrWidth()))
	}

	c.bd.CondBr(condBool, thenBlock.ID, elseBlock.ID)

	c.bd.SetBlock(thenBlock)
	thenVal := lowerExpr(c, e.Then)
	if e.Type.Kind != cast.CVoid {
		thenVal = convert(c.bd, thenVal, e.Then.Type, e.Type, c.ptrWidth())
		c.bd.Store(slot, thenVal, false)
	}
	c.bd.Br(joinBlock.ID)

	c.bd.SetBlock(elseBlock)
	elseVal := lowerExpr(c, e.Else)
	if e.Type.Kind != cast.CVoid {
		elseVal = convert(c.bd, elseVal, e.Else.Type, e.Type, c.ptrWidth())
		c.bd.Store(slot, elseVal, false)
	}
	c.bd.Br(joinBlock.ID)

	c.bd.SetBlock(joinBlock)
	if e.Type.Kind == cast.CVoid {
		return ir.Value{}
	}
	return c.bd.Load(irType(e.Type, c.ptrWidth()), slot, false)
}

// isSideEffectFree reports whether evaluating e can be done unconditionally
// without changing program behavior: no assignment, increment/decrement,
// or call anywhere in its subtree.
func isSideEffectFree(e *cast.Expr) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case cast.EAssign, cast.ECall:
		return false
	case cast.EUnary:
		switch e.UnOp {
		case cast.UPreInc, cast.UPreDec, cast.UPostInc, cast.UPostDec:
			return false
		}
		return isSideEffectFree(e.Sub)
	case cast.EBinOp:
		return isSideEffectFree(e.LHS) && isSideEffectFree(e.RHS)
	case cast.ECast:
		return isSideEffectFree(e.Sub)
	case cast.ETernary:
		return isSideEffectFree(e.Cond) && isSideEffectFree(e.Then) && isSideEffectFree(e.Else)
	case cast.EIndex:
		return isSideEffectFree(e.Base) && isSideEffectFree(e.Index)
	case cast.EMember:
		return isSideEffectFree(e.Base)
	case cast.EComma:
		for _, sub := range e.Exprs {
			if !isSideEffectFree(sub) {
				return false
			}
		}
		return true
	case cast.ESizeof:
		return true
	default:
		return true
	}
}

// lowerCall lowers a function call, dispatching to the builtin table
// first per the boundary contract.
func lowerCall(c *ctx, e *cast.Expr) ir.Value {
	args := make([]ir.Value, len(e.Args))
	argTypes := make([]*cast.CType, len(e.Args))
	for i, a := range e.Args {
		args[i] = lowerExpr(c, a)
		argTypes[i] = a.Type
	}

	if e.Callee.Kind == cast.EIdent {
		if v, ok := lowerBuiltinCall(c, e.Callee.Name, e.Type, args); ok {
			return v
		}
	}

	retT := irType(e.Type, c.ptrWidth())
	if e.Callee.Kind == cast.EIdent && c.lookup(e.Callee.Name) == nil {
		sig := ir.Signature{Ret: retT}
		for _, t := range argTypes {
			sig.Params = append(sig.Params, irType(t, c.ptrWidth()))
		}
		return c.bd.CallDirect(retT, e.Callee.Name, sig, args)
	}

	callee := lowerExpr(c, e.Callee)
	sig := ir.Signature{Ret: retT}
	for _, t := range argTypes {
		sig.Params = append(sig.Params, irType(t, c.ptrWidth()))
	}
	return c.bd.CallIndirect(retT, callee, sig, args)
}
