package lower

import (
	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/ir"
)

// irType maps a C type to its flat IR type. Aggregates have no IR type of
// their own; they are only ever addressed through Ptr.
func irType(t *cast.CType, ptrWidth int) ir.Type {
	switch t.Kind {
	case cast.CBool, cast.CChar, cast.CShort, cast.CInt, cast.CLong, cast.CLongLong, cast.CEnum:
		return ir.Type{Kind: ir.KindInt, Width: uint8(t.Width(ptrWidth))}
	case cast.CUChar, cast.CUShort, cast.CUInt, cast.CULong, cast.CULongLong:
		return ir.Type{Kind: ir.KindUint, Width: uint8(t.Width(ptrWidth))}
	case cast.CFloat:
		return ir.F32
	case cast.CDouble:
		return ir.F64
	case cast.CPointer, cast.CArray, cast.CStruct, cast.CUnion, cast.CFunction:
		return ir.Ptr
	default:
		return ir.Void
	}
}

// convert materializes the implicit or explicit conversion from v (of C
// type `from`) to C type `to` as an explicit cast instruction, per the
// contract that every implicit conversion required by usual arithmetic
// conversions, default argument promotion, and assignment compatibility
// must be a real instruction, not left implicit in the IR.
func convert(bd *ir.Builder, v ir.Value, from, to *cast.CType, ptrWidth int) ir.Value {
	dstT := irType(to, ptrWidth)
	srcT := v.Type

	if from.IsInteger() && to.IsInteger() {
		return convertInt(bd, v, dstT, from.IsUnsigned())
	}
	if from.IsInteger() && to.IsFloat() {
		if v.IsConst() {
			return ir.ConstFloat(dstT, constIntAsFloat(v, from.IsUnsigned()))
		}
		return bd.Cast(ir.OpItoF, dstT, v, !from.IsUnsigned())
	}
	if from.IsFloat() && to.IsInteger() {
		if v.IsConst() {
			return ir.ConstInt(dstT, uint64(int64(v.Float)))
		}
		return bd.Cast(ir.OpFtoI, dstT, v, !to.IsUnsigned())
	}
	if from.IsFloat() && to.IsFloat() {
		if srcT.Eq(dstT) {
			return v
		}
		if srcT.Width < dstT.Width {
			return bd.Cast(ir.OpFPExt, dstT, v, false)
		}
		return bd.Cast(ir.OpFPTrunc, dstT, v, false)
	}
	if from.IsPointer() && to.IsPointer() {
		if srcT.Eq(dstT) {
			return v
		}
		return bd.Cast(ir.OpPtrCast, dstT, v, false)
	}
	if from.IsPointer() && to.IsInteger() {
		return bd.Cast(ir.OpBitcast, dstT, v, false)
	}
	if from.IsInteger() && to.IsPointer() {
		return bd.Cast(ir.OpBitcast, dstT, v, false)
	}
	// Same representation already (e.g. array-decay already produced a
	// pointer, or a no-op qualifier-only conversion).
	if srcT.Eq(dstT) {
		return v
	}
	return bd.Cast(ir.OpBitcast, dstT, v, false)
}

func constIntAsFloat(v ir.Value, unsigned bool) float64 {
	if unsigned {
		return float64(v.Int)
	}
	return float64(v.SignedInt())
}

// convertInt performs sext/zext/trunc, folding constants directly rather
// than emitting a cast instruction over a compile-time-known value —
// this keeps trivially-foldable casts out of the IR the optimizer would
// otherwise have to fold right back down.
func convertInt(bd *ir.Builder, v ir.Value, dst ir.Type, srcUnsigned bool) ir.Value {
	src := v.Type
	if src.Eq(dst) {
		return v
	}
	if v.IsConst() && v.Kind == ir.ValConstInt {
		return v.Narrow(dst)
	}
	if dst.Width < src.Width {
		return bd.Cast(ir.OpTrunc, dst, v, srcUnsigned)
	}
	if srcUnsigned {
		return bd.Cast(ir.OpZExt, dst, v, true)
	}
	return bd.Cast(ir.OpSExt, dst, v, false)
}

// usualArithmeticType picks the C type usual-arithmetic-conversions would
// promote two operands to: double beats float beats integer promotion by
// rank, matching the rank order used by the language (simplified: this
// core does not need to model exotic ranks beyond the standard chain).
func usualArithmeticType(a, b *cast.CType, ptrWidth int) *cast.CType {
	if a.IsFloat() || b.IsFloat() {
		if a.Kind == cast.CDouble || b.Kind == cast.CDouble {
			return cast.Int(cast.CDouble)
		}
		return cast.Int(cast.CFloat)
	}
	wa, wb := a.Width(ptrWidth), b.Width(ptrWidth)
	if wa < 32 {
		wa = 32
	}
	if wb < 32 {
		wb = 32
	}
	if wa == wb {
		if a.IsUnsigned() || b.IsUnsigned() {
			return unsignedOfWidth(wa)
		}
		return signedOfWidth(wa)
	}
	if wa > wb {
		return promotedType(a)
	}
	return promotedType(b)
}

func promotedType(t *cast.CType) *cast.CType {
	if t.Width(64) < 32 {
		if t.IsUnsigned() {
			return cast.Int(cast.CUInt)
		}
		return cast.Int(cast.CInt)
	}
	return t
}

func signedOfWidth(w int) *cast.CType {
	switch {
	case w <= 32:
		return cast.Int(cast.CInt)
	case w <= 64:
		return cast.Int(cast.CLong)
	default:
		return cast.Int(cast.CLongLong)
	}
}

func unsignedOfWidth(w int) *cast.CType {
	switch {
	case w <= 32:
		return cast.Int(cast.CUInt)
	case w <= 64:
		return cast.Int(cast.CULong)
	default:
		return cast.Int(cast.CULongLong)
	}
}
