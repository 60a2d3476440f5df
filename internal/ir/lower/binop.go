package lower

import (
	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/ir"
)

// lowerBinOp lowers a binary expression. && and || are diamonds, never
// bitwise and/or on a boolean value, since either operand may carry a
// side effect that the other must not evaluate.
func lowerBinOp(c *ctx, e *cast.Expr) ir.Value {
	switch e.BinOp {
	case cast.BLogAnd:
		return lowerShortCircuit(c, e, false)
	case cast.BLogOr:
		return lowerShortCircuit(c, e, true)
	}

	if e.LHS.Type.IsPointer() && e.RHS.Type.IsInteger() && (e.BinOp == cast.BAdd || e.BinOp == cast.BSub) {
		return lowerPointerArith(c, e)
	}
	if e.RHS.Type.IsPointer() && e.LHS.Type.IsInteger() && e.BinOp == cast.BAdd {
		return lowerPointerArith(c, &cast.Expr{Type: e.Type, BinOp: e.BinOp, LHS: e.RHS, RHS: e.LHS})
	}
	if e.LHS.Type.IsPointer() && e.RHS.Type.IsPointer() && e.BinOp == cast.BSub {
		return lowerPointerDiff(c, e)
	}

	lhs := lowerExpr(c, e.LHS)
	rhs := lowerExpr(c, e.RHS)

	if isCompare(e.BinOp) {
		if e.LHS.Type.IsFloat() || e.RHS.Type.IsFloat() {
			opT := usualArithmeticType(e.LHS.Type, e.RHS.Type, c.ptrWidth())
			lhs = convert(c.bd, lhs, e.LHS.Type, opT, c.ptrWidth())
			rhs = convert(c.bd, rhs, e.RHS.Type, opT, c.ptrWidth())
			return c.bd.ICmp(fcmpOpcode(e.BinOp), lhs, rhs)
		}
		opT := usualArithmeticType(e.LHS.Type, e.RHS.Type, c.ptrWidth())
		lhs = convert(c.bd, lhs, e.LHS.Type, opT, c.ptrWidth())
		rhs = convert(c.bd, rhs, e.RHS.Type, opT, c.ptrWidth())
		return c.bd.ICmp(icmpOpcode(e.BinOp, opT.IsUnsigned()), lhs, rhs)
	}

	opT := usualArithmeticType(e.LHS.Type, e.RHS.Type, c.ptrWidth())
	lhs = convert(c.bd, lhs, e.LHS.Type, opT, c.ptrWidth())
	rhs = convert(c.bd, rhs, e.RHS.Type, opT, c.ptrWidth())
	resT := irType(opT, c.ptrWidth())
	op := arithOpcode(e.BinOp, opT)
	result := c.bd.BinOp(op, resT, lhs, rhs)
	return convert(c.bd, result, opT, e.Type, c.ptrWidth())
}

func lowerPointerArith(c *ctx, e *cast.Expr) ir.Value {
	base := lowerExpr(c, e.LHS)
	idx := lowerExpr(c, e.RHS)
	idx = scaleIndexToPtrWidth(c, idx, e.RHS.Type)
	elemSize := cast.SizeOf(e.LHS.Type.Elem, c.ptrWidth())
	if e.BinOp == cast.BSub {
		zero := ir.ConstInt(idx.Type, 0)
		idx = c.bd.BinOp(ir.OpSub, idx.Type, zero, idx)
	}
	return c.bd.GEP(base, 0, idx, elemSize)
}

// lowerPointerDiff computes (p1 - p2) / sizeof(*p1), the element-count
// distance between two pointers into the same array.
func lowerPointerDiff(c *ctx, e *cast.Expr) ir.Value {
	p1 := lowerExpr(c, e.LHS)
	p2 := lowerExpr(c, e.RHS)
	ptrIntT := ir.Type{Kind: ir.KindInt, Width: uint8(c.ptrWidth())}
	i1 := c.bd.Cast(ir.OpBitcast, ptrIntT, p1, false)
	i2 := c.bd.Cast(ir.OpBitcast, ptrIntT, p2, false)
	diff := c.bd.BinOp(ir.OpSub, ptrIntT, i1, i2)
	elemSize := cast.SizeOf(e.LHS.Type.Elem, c.ptrWidth())
	if elemSize <= 1 {
		return convert(c.bd, diff, cast.Int(cast.CLong), e.Type, c.ptrWidth())
	}
	scaled := c.bd.BinOp(ir.OpSDiv, ptrIntT, diff, ir.ConstInt(ptrIntT, uint64(elemSize)))
	return convert(c.bd, scaled, cast.Int(cast.CLong), e.Type, c.ptrWidth())
}

// lowerShortCircuit lowers && (isOr=false) or || (isOr=true) as a
// diamond: evaluate lhs, branch, evaluate rhs only on the side that can
// still change the result, join through a temporary alloca (a real phi
// would violate the pre-SSA IR lowering hands to mem2reg; mem2reg is what
// turns this store/load pair into one once it runs).
func lowerShortCircuit(c *ctx, e *cast.Expr, isOr bool) ir.Value {
	lhs := lowerExpr(c, e.LHS)
	lhsBool := toBool(c, lhs, e.LHS.Type)

	rhsBlock := c.f.NewBlock("sc.rhs")
	joinBlock := c.f.NewBlock("sc.join")
	shortBlock := c.f.NewBlock("sc.short")

	slot := c.bd.Alloca("sc.slot", ir.I32, 4, 4)

	if isOr {
		c.bd.CondBr(lhsBool, shortBlock.ID, rhsBlock.ID)
	} else {
		c.bd.CondBr(lhsBool, rhsBlock.ID, shortBlock.ID)
	}

	c.bd.SetBlock(shortBlock)
	shortVal := ir.ConstInt(ir.I32, boolConst(isOr))
	c.bd.Store(slot, shortVal, false)
	c.bd.Br(joinBlock.ID)

	c.bd.SetBlock(rhsBlock)
	rhs := lowerExpr(c, e.RHS)
	rhsBool := toBool(c, rhs, e.RHS.Type)
	c.bd.Store(slot, rhsBool, false)
	c.bd.Br(joinBlock.ID)

	c.bd.SetBlock(joinBlock)
	result := c.bd.Load(ir.I32, slot, false)
	return convert(c.bd, result, cast.Int(cast.CInt), e.Type, c.ptrWidth())
}

func boolConst(isOr bool) uint64 {
	if isOr {
		return 1
	}
	return 0
}

// toBool normalizes any scalar to a 0/1 i32 truth value.
func toBool(c *ctx, v ir.Value, t *cast.CType) ir.Value {
	if t.IsFloat() {
		zero := ir.ConstFloat(v.Type, 0)
		return c.bd.ICmp(ir.OpFCmpONE, v, zero)
	}
	if t.IsPointer() {
		zero := ir.NullPtr()
		return c.bd.ICmp(ir.OpICmpNE, v, zero)
	}
	zero := ir.ConstInt(v.Type, 0)
	return c.bd.ICmp(ir.OpICmpNE, v, zero)
}

func isCompare(op cast.BinOpKind) bool {
	switch op {
	case cast.BEq, cast.BNe, cast.BLt, cast.BLe, cast.BGt, cast.BGe:
		return true
	default:
		return false
	}
}

func icmpOpcode(op cast.BinOpKind, unsigned bool) ir.Opcode {
	switch op {
	case cast.BEq:
		return ir.OpICmpEQ
	case cast.BNe:
		return ir.OpICmpNE
	case cast.BLt:
		if unsigned {
			return ir.OpICmpULT
		}
		return ir.OpICmpSLT
	case cast.BLe:
		if unsigned {
			return ir.OpICmpULE
		}
		return ir.OpICmpSLE
	case cast.BGt:
		if unsigned {
			return ir.OpICmpUGT
		}
		return ir.OpICmpSGT
	default: // BGe
		if unsigned {
			return ir.OpICmpUGE
		}
		return ir.OpICmpSGE
	}
}

func fcmpOpcode(op cast.BinOpKind) ir.Opcode {
	switch op {
	case cast.BEq:
		return ir.OpFCmpOEQ
	case cast.BNe:
		return ir.OpFCmpONE
	case cast.BLt:
		return ir.OpFCmpOLT
	case cast.BLe:
		return ir.OpFCmpOLE
	case cast.BGt:
		return ir.OpFCmpOGT
	default:
		return ir.OpFCmpOGE
	}
}

func arithOpcode(op cast.BinOpKind, t *cast.CType) ir.Opcode {
	if t.IsFloat() {
		switch op {
		case cast.BAdd:
			return ir.OpFAdd
		case cast.BSub:
			return ir.OpFSub
		case cast.BMul:
			return ir.OpFMul
		default:
			return ir.OpFDiv
		}
	}
	unsigned := t.IsUnsigned()
	switch op {
	case cast.BAdd:
		return ir.OpAdd
	case cast.BSub:
		return ir.OpSub
	case cast.BMul:
		return ir.OpMul
	case cast.BDiv:
		if unsigned {
			return ir.OpUDiv
		}
		return ir.OpSDiv
	case cast.BMod:
		if unsigned {
			return ir.OpURem
		}
		return ir.OpSRem
	case cast.BAnd:
		return ir.OpAnd
	case cast.BOr:
		return ir.OpOr
	case cast.BXor:
		return ir.OpXor
	case cast.BShl:
		return ir.OpShl
	default: // BShr
		if unsigned {
			return ir.OpLShr
		}
		return ir.OpAShr
	}
}
