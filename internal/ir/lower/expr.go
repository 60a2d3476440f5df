package lower

import (
	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/ir"
)

// lvalue is an addressable location: either a plain address (a scalar,
// pointer, or aggregate-by-address) or a bitfield inside a container.
type lvalue struct {
	addr  ir.Value
	ty    *cast.CType
	field *cast.Field // non-nil for a bitfield member
}

// lowerExpr lowers e to exactly one value, per the function-body
// contract. Short-circuit &&/|| and side-effecting ternaries lower to
// diamond control flow rather than boolean ops; a side-effect-free
// ternary lowers to select.
func lowerExpr(c *ctx, e *cast.Expr) ir.Value {
	switch e.Kind {
	case cast.EIntLit:
		return ir.ConstInt(irType(e.Type, c.ptrWidth()), uint64(e.IntVal))
	case cast.EFloatLit:
		return ir.ConstFloat(irType(e.Type, c.ptrWidth()), e.FloatVal)
	case cast.EStringLit:
		sym := c.m.Strings.Intern([]byte(e.StrVal + "\x00"))
		return ir.GlobalRef(sym)
	case cast.EIdent:
		return lowerIdent(c, e)
	case cast.EBinOp:
		return lowerBinOp(c, e)
	case cast.EAssign:
		return lowerAssign(c, e)
	case cast.EUnary:
		return lowerUnary(c, e)
	case cast.ECast:
		v := lowerExpr(c, e.Sub)
		return convert(c.bd, v, e.Sub.Type, e.CastTo, c.ptrWidth())
	case cast.ETernary:
		return lowerTernary(c, e)
	case cast.ECall:
		return lowerCall(c, e)
	case cast.EIndex, cast.EMember:
		lv := lowerLValue(c, e)
		return readLV(c, lv)
	case cast.ESizeof:
		return lowerSizeof(c, e)
	case cast.EComma:
		var last ir.Value
		for _, sub := range e.Exprs {
			last = lowerExpr(c, sub)
		}
		return last
	default:
		c.fault("unsupported expression kind %d", e.Kind)
		return ir.Value{}
	}
}

func lowerIdent(c *ctx, e *cast.Expr) ir.Value {
	b := c.lookup(e.Name)
	if b == nil {
		// Function reference used as a value (address-of-function or
		// direct call callee handled separately in lowerCall).
		return ir.FuncRef(e.Name)
	}
	if b.ty.Kind == cast.CArray {
		// Array-to-pointer decay: the "value" of an array identifier is
		// its address, not a load through it.
		return b.addr
	}
	return c.bd.Load(irType(b.ty, c.ptrWidth()), b.addr, false)
}

func lowerSizeof(c *ctx, e *cast.Expr) ir.Value {
	var t *cast.CType
	if e.SizeofType != nil {
		t = e.SizeofType
	} else {
		t = e.SizeofExpr.Type
	}
	sz := cast.SizeOf(t, c.ptrWidth())
	return ir.ConstInt(irType(e.Type, c.ptrWidth()), uint64(sz))
}

// lowerLValue resolves an addressable expression to its address (or, for
// a bitfield member, the address of its container plus field metadata).
func lowerLValue(c *ctx, e *cast.Expr) lvalue {
	switch e.Kind {
	case cast.EIdent:
		b := c.lookup(e.Name)
		if b == nil {
			c.fault("unresolved identifier %q", e.Name)
			return lvalue{}
		}
		return lvalue{addr: b.addr, ty: b.ty}
	case cast.EUnary:
		if e.UnOp == cast.UDeref {
			ptr := lowerExpr(c, e.Sub)
			return lvalue{addr: ptr, ty: e.Type}
		}
		c.fault("expression is not assignable")
		return lvalue{}
	case cast.EIndex:
		elemSize := cast.SizeOf(e.Type, c.ptrWidth())
		var base ir.Value
		if e.Base.Type.Kind == cast.CArray {
			base = lowerLValue(c, e.Base).addr
		} else {
			base = lowerExpr(c, e.Base)
		}
		idx := lowerExpr(c, e.Index)
		idx = scaleIndexToPtrWidth(c, idx, e.Index.Type)
		addr := c.bd.GEP(base, 0, idx, elemSize)
		return lvalue{addr: addr, ty: e.Type}
	case cast.EMember:
		var baseAddr ir.Value
		var structTy *cast.CType
		if e.Arrow {
			baseAddr = lowerExpr(c, e.Base)
			structTy = e.Base.Type.Elem
		} else {
			baseAddr = lowerLValue(c, e.Base).addr
			structTy = e.Base.Type
		}
		f := structTy.FieldByName(e.Field)
		if f == nil {
			c.fault("undefined member %q of %s", e.Field, structTy)
			return lvalue{}
		}
		addr := c.bd.GEP(baseAddr, f.ByteOffset, ir.Value{}, 0)
		if f.BitWidth > 0 {
			return lvalue{addr: addr, ty: f.Type, field: f}
		}
		return lvalue{addr: addr, ty: f.Type}
	default:
		c.fault("expression is not assignable")
		return lvalue{}
	}
}

// readLV loads through an lvalue, applying the bitfield
// load->shift->mask->extend sequence when field is a bitfield.
func readLV(c *ctx, lv lvalue) ir.Value {
	if lv.field != nil {
		return readBitfield(c, lv)
	}
	return c.bd.Load(irType(lv.ty, c.ptrWidth()), lv.addr, false)
}

func readBitfield(c *ctx, lv lvalue) ir.Value {
	f := lv.field
	containerT := ir.Type{Kind: ir.KindUint, Width: uint8(f.ContainerBits)}
	container := c.bd.Load(containerT, lv.addr, false)
	shifted := c.bd.BinOp(ir.OpLShr, containerT, container, ir.ConstInt(containerT, uint64(f.BitOffset)))
	mask := uint64(1)<<uint(f.BitWidth) - 1
	masked := c.bd.BinOp(ir.OpAnd, containerT, shifted, ir.ConstInt(containerT, mask))
	fieldT := irType(f.Type, c.ptrWidth())
	if fieldT.Eq(containerT) {
		return masked
	}
	if f.Type.IsUnsigned() {
		return convertInt(c.bd, masked, fieldT, true)
	}
	// Sign-extend from the bitfield's declared width, not the container's:
	// shift left then arithmetic-shift right by (containerBits - width).
	shiftAmt := uint64(f.ContainerBits - f.BitWidth)
	left := c.bd.BinOp(ir.OpShl, containerT, masked, ir.ConstInt(containerT, shiftAmt))
	signedContainerT := ir.Type{Kind: ir.KindInt, Width: uint8(f.ContainerBits)}
	asSigned := c.bd.Cast(ir.OpBitcast, signedContainerT, left, false)
	right := c.bd.BinOp(ir.OpAShr, signedContainerT, asSigned, ir.ConstInt(signedContainerT, shiftAmt))
	return convertInt(c.bd, right, fieldT, false)
}

// writeLV stores val through an lvalue, applying the bitfield
// load->mask-container->shift-new-value->or->store sequence when field is
// a bitfield.
func writeLV(c *ctx, lv lvalue, val ir.Value) {
	if lv.field != nil {
		writeBitfield(c, lv, val)
		return
	}
	c.bd.Store(lv.addr, val, false)
}

func writeBitfield(c *ctx, lv lvalue, val ir.Value) {
	f := lv.field
	containerT := ir.Type{Kind: ir.KindUint, Width: uint8(f.ContainerBits)}
	container := c.bd.Load(containerT, lv.addr, false)
	mask := uint64(1)<<uint(f.BitWidth) - 1
	clearMask := ^(mask << uint(f.BitOffset))
	cleared := c.bd.BinOp(ir.OpAnd, containerT, container, ir.ConstInt(containerT, clearMask))
	valWide := convertInt(c.bd, val, containerT, true)
	valMasked := c.bd.BinOp(ir.OpAnd, containerT, valWide, ir.ConstInt(containerT, mask))
	shifted := c.bd.BinOp(ir.OpShl, containerT, valMasked, ir.ConstInt(containerT, uint64(f.BitOffset)))
	merged := c.bd.BinOp(ir.OpOr, containerT, cleared, shifted)
	c.bd.Store(lv.addr, merged, false)
}

// scaleIndexToPtrWidth widens/narrows an array or pointer index to the
// pointer's own width, since pointer-arithmetic scaling must be performed
// "in the same width as the pointer."
func scaleIndexToPtrWidth(c *ctx, idx ir.Value, idxCType *cast.CType) ir.Value {
	want := ir.Type{Kind: ir.KindInt, Width: uint8(c.ptrWidth())}
	if idx.Type.Eq(want) {
		return idx
	}
	return convertInt(c.bd, idx, want, idxCType.IsUnsigned())
}
