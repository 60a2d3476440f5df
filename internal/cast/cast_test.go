package cast

import "testing"

func TestSizeOfScalars(t *testing.T) {
	cases := []struct {
		t    *CType
		want int64
	}{
		{Int(CChar), 1},
		{Int(CShort), 2},
		{Int(CInt), 4},
		{Int(CFloat), 4},
		{Int(CDouble), 8},
		{Int(CLongLong), 8},
		{PointerTo(Int(CInt)), 8},
	}
	for _, c := range cases {
		if got := SizeOf(c.t, 64); got != c.want {
			t.Errorf("SizeOf(%s) = %d, want %d", c.t, got, c.want)
		}
	}
}

func TestSizeOfLongIsPointerWidthDependent(t *testing.T) {
	long := Int(CLong)
	if got := SizeOf(long, 64); got != 8 {
		t.Errorf("SizeOf(long, 64) = %d, want 8", got)
	}
	if got := SizeOf(long, 32); got != 4 {
		t.Errorf("SizeOf(long, 32) = %d, want 4", got)
	}
}

func TestSizeOfArray(t *testing.T) {
	arr := ArrayOf(Int(CInt), 10)
	if got := SizeOf(arr, 64); got != 40 {
		t.Errorf("SizeOf(int[10]) = %d, want 40", got)
	}
}

func TestSizeOfVLAIsZero(t *testing.T) {
	vla := VLAOf(Int(CInt), Ident("n", Int(CInt)))
	if got := SizeOf(vla, 64); got != 0 {
		t.Errorf("SizeOf(VLA) = %d, want 0", got)
	}
}

func TestAlignOfStructUsesComputedAlign(t *testing.T) {
	st := &CType{Kind: CStruct, Tag: "point", Align: 4}
	if got := AlignOf(st, 64); got != 4 {
		t.Errorf("AlignOf(struct) = %d, want 4", got)
	}
	unset := &CType{Kind: CStruct, Tag: "empty"}
	if got := AlignOf(unset, 64); got != 1 {
		t.Errorf("AlignOf(unlaid-out struct) = %d, want 1", got)
	}
}

func TestIsIntegerFloatPointerAggregate(t *testing.T) {
	if !Int(CInt).IsInteger() {
		t.Error("int should be integer")
	}
	if Int(CFloat).IsInteger() {
		t.Error("float should not be integer")
	}
	if !Int(CDouble).IsFloat() {
		t.Error("double should be float")
	}
	if !PointerTo(Int(CInt)).IsPointer() {
		t.Error("int* should be pointer")
	}
	if !ArrayOf(Int(CInt), 4).IsAggregate() {
		t.Error("int[4] should be aggregate")
	}
	if !(&CType{Kind: CStruct}).IsAggregate() {
		t.Error("struct should be aggregate")
	}
}

func TestIsUnsigned(t *testing.T) {
	if !Int(CUInt).IsUnsigned() {
		t.Error("unsigned int should be unsigned")
	}
	if Int(CInt).IsUnsigned() {
		t.Error("int should not be unsigned")
	}
}

func TestFieldByName(t *testing.T) {
	st := &CType{Kind: CStruct, Tag: "point", Fields: []Field{
		{Name: "x", Type: Int(CInt), ByteOffset: 0},
		{Name: "y", Type: Int(CInt), ByteOffset: 4},
	}}
	f := st.FieldByName("y")
	if f == nil || f.ByteOffset != 4 {
		t.Fatalf("FieldByName(y) = %+v, want offset 4", f)
	}
	if st.FieldByName("z") != nil {
		t.Error("FieldByName(z) should be nil for a missing field")
	}
}

func TestStringFormatsDerivedTypes(t *testing.T) {
	cases := []struct {
		t    *CType
		want string
	}{
		{Int(CInt), "int"},
		{PointerTo(Int(CChar)), "char*"},
		{ArrayOf(Int(CInt), 3), "int[3]"},
		{&CType{Kind: CStruct, Tag: "point"}, "struct point"},
	}
	for _, c := range cases {
		if got := c.t.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

// TestBuilderAssemblesIfElseFunction exercises the fluent constructors used
// in place of a real parser: max(a, b) { if (a > b) return a; else return b; }
func TestBuilderAssemblesIfElseFunction(t *testing.T) {
	intT := Int(CInt)
	a := Ident("a", intT)
	b := Ident("b", intT)
	cond := Bin(BGt, intT, a, b)
	fn := Func("max", intT, []*Decl{Param("a", intT), Param("b", intT)},
		If(cond, Return(a), Return(b)),
	)

	if fn.Name != "max" || len(fn.Params) != 2 {
		t.Fatalf("Func built wrong shape: %+v", fn)
	}
	if len(fn.Body) != 1 || fn.Body[0].Kind != SIf {
		t.Fatalf("expected a single if statement, got %+v", fn.Body)
	}
	ifStmt := fn.Body[0]
	if ifStmt.Cond.BinOp != BGt {
		t.Errorf("if condition op = %v, want BGt", ifStmt.Cond.BinOp)
	}
	if ifStmt.Then.Kind != SReturn || ifStmt.Else.Kind != SReturn {
		t.Fatal("both arms should be return statements")
	}
}

func TestBuilderForLoopShape(t *testing.T) {
	intT := Int(CInt)
	i := Ident("i", intT)
	init := DeclStmt(Var("i", intT, IntLit(intT, 0)))
	cond := Bin(BLt, intT, i, IntLit(intT, 10))
	post := Assign(AAddAssign, i, IntLit(intT, 1))
	loop := For(init, cond, post, Block(ExprStmt(post)))

	if loop.Kind != SFor {
		t.Fatalf("For() produced kind %v, want SFor", loop.Kind)
	}
	if loop.InitS.Kind != SDeclBlock {
		t.Errorf("loop init = %v, want SDeclBlock", loop.InitS.Kind)
	}
	if loop.CondE.BinOp != BLt {
		t.Errorf("loop cond op = %v, want BLt", loop.CondE.BinOp)
	}
	if loop.PostE.AssignOp != AAddAssign {
		t.Errorf("loop post op = %v, want AAddAssign", loop.PostE.AssignOp)
	}
}

func TestIntLitIsConst(t *testing.T) {
	lit := IntLit(Int(CInt), 42)
	if !lit.IsConst || lit.ConstVal != 42 {
		t.Fatalf("IntLit(42) = %+v, want IsConst=true ConstVal=42", lit)
	}
}

func TestNewTranslationUnitHasEmptyStructMap(t *testing.T) {
	tu := NewTranslationUnit()
	if tu.Structs == nil {
		t.Fatal("NewTranslationUnit should initialize Structs")
	}
	if len(tu.Functions) != 0 || len(tu.Globals) != 0 {
		t.Fatal("a fresh TranslationUnit should have no functions or globals")
	}
}
