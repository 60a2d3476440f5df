package lower

import (
	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/ir"
)

// lowerAssign lowers "=" and every compound assignment operator. A plain
// "=" lowers to a single store of the (converted) rhs; a compound op
// lowers to read-modify-write against the same lvalue address so a
// volatile or bitfield destination is only addressed once.
func lowerAssign(c *ctx, e *cast.Expr) ir.Value {
	lv := lowerLValue(c, e.LHS)
	if e.AssignOp == cast.AAssign {
		rhs := lowerExpr(c, e.RHS)
		converted := convert(c.bd, rhs, e.RHS.Type, e.LHS.Type, c.ptrWidth())
		writeLV(c, lv, converted)
		return converted
	}

	cur := readLV(c, lv)
	rhs := lowerExpr(c, e.RHS)
	binOp := compoundToBinOp(e.AssignOp)

	if e.LHS.Type.IsPointer() && (binOp == cast.BAdd || binOp == cast.BSub) {
		idx := rhs
		idx = scaleIndexToPtrWidth(c, idx, e.RHS.Type)
		elemSize := cast.SizeOf(e.LHS.Type.Elem, c.ptrWidth())
		if binOp == cast.BSub {
			zero := ir.ConstInt(idx.Type, 0)
			idx = c.bd.BinOp(ir.OpSub, idx.Type, zero, idx)
		}
		result := c.bd.GEP(cur, 0, idx, elemSize)
		writeLV(c, lv, result)
		return result
	}

	opT := usualArithmeticType(e.LHS.Type, e.RHS.Type, c.ptrWidth())
	lhsWide := convert(c.bd, cur, e.LHS.Type, opT, c.ptrWidth())
	rhsWide := convert(c.bd, rhs, e.RHS.Type, opT, c.ptrWidth())
	op := arithOpcode(binOp, opT)
	resT := irType(opT, c.ptrWidth())
	wide := c.bd.BinOp(op, resT, lhsWide, rhsWide)
	narrow := convert(c.bd, wide, opT, e.LHS.Type, c.ptrWidth())
	writeLV(c, lv, narrow)
	return narrow
}

func compoundToBinOp(a cast.AssignKind) cast.BinOpKind {
	switch a {
	case cast.AAddAssign:
		return cast.BAdd
	case cast.ASubAssign:
		return cast.BSub
	case cast.AMulAssign:
		return cast.BMul
	case cast.ADivAssign:
		return cast.BDiv
	case cast.AModAssign:
		return cast.BMod
	case cast.AAndAssign:
		return cast.BAnd
	case cast.AOrAssign:
		return cast.BOr
	case cast.AXorAssign:
		return cast.BXor
	case cast.AShlAssign:
		return cast.BShl
	default: // AShrAssign
		return cast.BShr
	}
}
