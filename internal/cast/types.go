// Package cast ("C AST") is a stand-in for the real preprocessor, lexer,
// parser, and semantic analyzer, which are explicitly out of scope for
// this repository. It provides a typed AST plus the SemaResult tables
// (function signatures, struct/union layouts, expression types, constant
// values) that lowering consumes at the frontend/core boundary, built
// through a small fluent constructor API rather than parsed from text.
package cast

import "fmt"

// CTypeKind is the C-level type tag, distinct from ir.Type: it carries
// aggregate shape (struct/union/array/function-pointer chains) that the
// IR deliberately does not represent as first-class types.
type CTypeKind uint8

const (
	CVoid CTypeKind = iota
	CBool
	CChar
	CShort
	CInt
	CLong
	CLongLong
	CUChar
	CUShort
	CUInt
	CULong
	CULongLong
	CFloat
	CDouble
	CPointer
	CArray
	CStruct
	CUnion
	CFunction
	CEnum
)

// CType is a derived-chain-aware C type: Pointer/Array/Function wrap an
// Elem, exactly the "derived chain" the boundary contract requires to
// distinguish e.g. pointer-to-function-pointer from pointer-to-function.
type CType struct {
	Kind CTypeKind
	Elem *CType // Pointer, Array element type; Function return type
	// Array
	ArrayLen    int64 // -1 for VLA / incomplete
	IsVLA       bool
	VLALenExpr  *Expr
	// Struct/Union: Size/Align are filled by lower.ComputeLayout (pass 1)
	// once all field types are known; zero until then.
	Tag    string
	Fields []Field
	Size   int64
	Align  int64
	// Function
	Params   []*CType
	Variadic bool
	// Enum
	Underlying *CType
	Volatile   bool
	Const      bool
}

// Field is one struct/union member, with layout already computed (struct
// and union layout is computed once, ahead of body lowering).
type Field struct {
	Name       string
	Type       *CType
	ByteOffset int64
	// Bitfield: BitWidth > 0 marks a bitfield member. ContainerBits is the
	// width of the storage unit the bit-shift/mask lowering operates on
	// (typically the field's declared integer type's width).
	BitWidth      int
	BitOffset     int
	ContainerBits int
}

func Int(kind CTypeKind) *CType { return &CType{Kind: kind} }

func PointerTo(elem *CType) *CType { return &CType{Kind: CPointer, Elem: elem} }

func ArrayOf(elem *CType, n int64) *CType { return &CType{Kind: CArray, Elem: elem, ArrayLen: n} }

func VLAOf(elem *CType, lenExpr *Expr) *CType {
	return &CType{Kind: CArray, Elem: elem, ArrayLen: -1, IsVLA: true, VLALenExpr: lenExpr}
}

func FuncType(ret *CType, params []*CType, variadic bool) *CType {
	return &CType{Kind: CFunction, Elem: ret, Params: params, Variadic: variadic}
}

// IsInteger reports whether t is one of the integer scalar kinds.
func (t *CType) IsInteger() bool {
	switch t.Kind {
	case CBool, CChar, CShort, CInt, CLong, CLongLong, CUChar, CUShort, CUInt, CULong, CULongLong, CEnum:
		return true
	default:
		return false
	}
}

func (t *CType) IsFloat() bool { return t.Kind == CFloat || t.Kind == CDouble }
func (t *CType) IsPointer() bool { return t.Kind == CPointer }
func (t *CType) IsAggregate() bool { return t.Kind == CStruct || t.Kind == CUnion || t.Kind == CArray }

func (t *CType) IsUnsigned() bool {
	switch t.Kind {
	case CBool, CUChar, CUShort, CUInt, CULong, CULongLong:
		return true
	default:
		return false
	}
}

// Width returns the type's storage width in bits, using LP64 sizing for
// long/pointer unless target says otherwise (lowering re-derives pointer
// width from the target descriptor; this default only matters for the
// frontend stub's own layout pass).
func (t *CType) Width(pointerWidth int) int {
	switch t.Kind {
	case CBool, CChar, CUChar:
		return 8
	case CShort, CUShort:
		return 16
	case CInt, CUInt, CFloat, CEnum:
		return 32
	case CLong, CULong:
		if pointerWidth == 32 {
			return 32
		}
		return 64
	case CLongLong, CULongLong, CDouble:
		return 64
	case CPointer:
		return pointerWidth
	default:
		return 0
	}
}

func (t *CType) String() string {
	switch t.Kind {
	case CPointer:
		return fmt.Sprintf("%s*", t.Elem)
	case CArray:
		if t.IsVLA {
			return fmt.Sprintf("%s[?]", t.Elem)
		}
		return fmt.Sprintf("%s[%d]", t.Elem, t.ArrayLen)
	case CStruct:
		return "struct " + t.Tag
	case CUnion:
		return "union " + t.Tag
	default:
		return kindNames[t.Kind]
	}
}

var kindNames = map[CTypeKind]string{
	CVoid: "void", CBool: "_Bool", CChar: "char", CShort: "short", CInt: "int",
	CLong: "long", CLongLong: "long long", CUChar: "unsigned char", CUShort: "unsigned short",
	CUInt: "unsigned int", CULong: "unsigned long", CULongLong: "unsigned long long",
	CFloat: "float", CDouble: "double", CFunction: "function", CEnum: "enum",
}

// SizeOf returns t's storage size in bytes for a given pointer width.
// Struct/union sizes must already be computed (lower.ComputeLayout);
// VLA arrays have no static size and return 0 (their size is a runtime
// value carried alongside the alloca instead).
func SizeOf(t *CType, ptrWidth int) int64 {
	switch t.Kind {
	case CPointer:
		return int64(ptrWidth / 8)
	case CArray:
		if t.IsVLA {
			return 0
		}
		return t.ArrayLen * SizeOf(t.Elem, ptrWidth)
	case CStruct, CUnion:
		return t.Size
	default:
		return int64(t.Width(ptrWidth) / 8)
	}
}

// AlignOf returns t's required alignment in bytes.
func AlignOf(t *CType, ptrWidth int) int64 {
	switch t.Kind {
	case CArray:
		return AlignOf(t.Elem, ptrWidth)
	case CStruct, CUnion:
		if t.Align != 0 {
			return t.Align
		}
		return 1
	default:
		sz := SizeOf(t, ptrWidth)
		if sz == 0 {
			return 1
		}
		return sz
	}
}

// FieldByName looks up a struct/union member, returning nil if absent.
func (t *CType) FieldByName(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}
