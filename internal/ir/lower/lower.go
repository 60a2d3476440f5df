// Package lower implements the three-pass AST-to-IR lowering: pass 0
// (typedefs, folded into the frontend stub since there is no separate
// typedef table here), pass 1 (signatures, globals, struct/union
// layout), and pass 2 (per-function body lowering into alloca-based IR).
package lower

import (
	"github.com/coilc/coilc/internal/builtins"
	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/diagnostics"
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// binding is a lexical-scope entry: name -> alloca address + its C type.
type binding struct {
	addr ir.Value
	ty   *cast.CType
}

// ctx carries the per-function lowering state described by the
// function-body contract: a lexical scope stack, break/continue/switch
// target stacks, a goto label table with forward-fixup, and the shared
// string-literal intern table (owned by the module).
type ctx struct {
	m   *ir.Module
	f   *ir.Function
	bd  *ir.Builder
	tgt *target.Descriptor
	bag *diagnostics.Bag
	tu  *cast.TranslationUnit

	scopes []map[string]*binding

	breakTargets    []ir.BlockID
	continueTargets []ir.BlockID

	labels map[string]*ir.BasicBlock

	fnName string
}

func newCtx(m *ir.Module, f *ir.Function, entry *ir.BasicBlock, tgt *target.Descriptor, bag *diagnostics.Bag, tu *cast.TranslationUnit) *ctx {
	return &ctx{
		m: m, f: f, bd: ir.NewBuilder(f, entry), tgt: tgt, bag: bag, tu: tu,
		scopes: []map[string]*binding{{}}, labels: map[string]*ir.BasicBlock{}, fnName: f.Name,
	}
}

func (c *ctx) pushScope() { c.scopes = append(c.scopes, map[string]*binding{}) }
func (c *ctx) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *ctx) declare(name string, b *binding) {
	c.scopes[len(c.scopes)-1][name] = b
}

func (c *ctx) lookup(name string) *binding {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i][name]; ok {
			return b
		}
	}
	return nil
}

func (c *ctx) ptrWidth() int { return c.tgt.PointerWidth }

func (c *ctx) labelBlock(name string) *ir.BasicBlock {
	if b, ok := c.labels[name]; ok {
		return b
	}
	b := c.f.NewBlock("label." + name)
	c.labels[name] = b
	return b
}

func (c *ctx) fault(format string, args ...interface{}) {
	diagnostics.Raise(c.fnName, c.bd.Cur.Name, format, args...)
}

// LowerTranslationUnit runs pass 1 (signatures, globals, layout) and pass
// 2 (function bodies) over tu, producing one IR Module. Per-function
// errors are recorded in bag and that function is skipped; the rest of
// the module lowers normally.
func LowerTranslationUnit(tu *cast.TranslationUnit, tgt *target.Descriptor, bag *diagnostics.Bag) *ir.Module {
	m := ir.NewModule("module", ir.TargetInfo{PointerWidth: tgt.PointerWidth, ABI: tgt.ABI})

	// Pass 1: struct/union layout.
	ComputeLayout(tu.Structs, tgt.PointerWidth)

	// Pass 1: globals.
	for _, g := range tu.Globals {
		lowerGlobal(m, g, tgt, bag)
	}

	// Pass 1: function prototypes (needed so mutually-recursive calls and
	// forward references resolve during pass 2).
	sigs := map[string]ir.Signature{}
	for _, fn := range tu.Functions {
		sig := signatureOf(fn, tgt.PointerWidth)
		sigs[fn.Name] = sig
		if fn.Body == nil {
			m.AddExtern(&ir.ExternFunc{Name: fn.Name, Sig: sig})
		}
	}

	// Pass 2: bodies.
	for _, fn := range tu.Functions {
		if fn.Body == nil {
			continue
		}
		f := lowerFunctionSafe(m, fn, sigs, tgt, bag, tu)
		if f != nil {
			m.AddFunction(f)
		}
	}

	return m
}

func signatureOf(fn *cast.Function, ptrWidth int) ir.Signature {
	params := make([]ir.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = irType(p.Type, ptrWidth)
	}
	return ir.Signature{Ret: irType(fn.Ret, ptrWidth), Params: params, Variadic: fn.Variadic}
}

func lowerGlobal(m *ir.Module, g *cast.Decl, tgt *target.Descriptor, bag *diagnostics.Bag) {
	size := cast.SizeOf(g.Type, tgt.PointerWidth)
	align := cast.AlignOf(g.Type, tgt.PointerWidth)
	link := ir.LinkageExternal
	if g.Static {
		link = ir.LinkageInternal
	}
	gv := &ir.Global{Name: g.Name, Type: irType(g.Type, tgt.PointerWidth), Size: size, Align: align, Linkage: link}
	if g.Init != nil {
		if !g.Init.IsConst && g.Init.Kind != cast.EStringLit {
			bag.Errorf(g.Name, "non-constant initializer for static storage object %q", g.Name)
		} else {
			gv.Init, gv.Relocs = constInitializerBytes(g.Init, g.Type, tgt.PointerWidth)
		}
	}
	m.AddGlobal(gv)
}

// constInitializerBytes lowers a constant global initializer expression to
// a byte image plus relocation entries for any symbol references, per the
// contract that "global initializers are lowered to byte sequences with
// relocation references to symbols."
func constInitializerBytes(e *cast.Expr, t *cast.CType, ptrWidth int) ([]byte, []ir.Reloc) {
	size := cast.SizeOf(t, ptrWidth)
	buf := make([]byte, size)
	if e.Kind == cast.EStringLit {
		copy(buf, []byte(e.StrVal))
		return buf, nil
	}
	if e.IsConst {
		putLE(buf, uint64(e.ConstVal))
		return buf, nil
	}
	return buf, nil
}

func putLE(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v >> (8 * uint(i)))
	}
}

// lowerFunctionSafe wraps lowerFunction with the diagnostics.Recover
// boundary: an internal fault or a reported frontend error aborts this
// function's lowering only, per the recovery model.
func lowerFunctionSafe(m *ir.Module, fn *cast.Function, sigs map[string]ir.Signature, tgt *target.Descriptor, bag *diagnostics.Bag, tu *cast.TranslationUnit) (out *ir.Function) {
	defer diagnostics.Recover(bag)
	before := bag.HasErrors()
	f := lowerFunction(m, fn, sigs, tgt, bag, tu)
	if !before && bag.HasErrors() {
		return nil
	}
	return f
}

func lowerFunction(m *ir.Module, fn *cast.Function, sigs map[string]ir.Signature, tgt *target.Descriptor, bag *diagnostics.Bag, tu *cast.TranslationUnit) *ir.Function {
	sig := sigs[fn.Name]
	f := ir.NewFunction(fn.Name, sig)
	f.Attrs = ir.FuncAttrs{AlwaysInline: fn.AlwaysInline, NoInline: fn.NoInline, Static: fn.Static}

	entry := f.NewBlock("entry")
	c := newCtx(m, f, entry, tgt, bag, tu)

	// Allocate parameter registers and their allocas; store params into
	// their allocas immediately (function-body contract).
	for i, p := range fn.Params {
		pt := irType(p.Type, tgt.PointerWidth)
		regID := f.NewValue()
		f.Params = append(f.Params, regID)
		paramVal := ir.Reg(regID, pt)

		size := cast.SizeOf(p.Type, tgt.PointerWidth)
		align := cast.AlignOf(p.Type, tgt.PointerWidth)
		addr := c.bd.Alloca(p.Name, pt, size, align)
		c.bd.Store(addr, paramVal, false)
		c.declare(p.Name, &binding{addr: addr, ty: p.Type})
		_ = i
	}

	for _, s := range fn.Body {
		lowerStmt(c, s)
	}

	ensureTerminator(c.bd.Cur, fn.Ret, tgt.PointerWidth)

	// Splice in any label blocks that were referenced but never given a
	// physical position (forward goto to a label declared later is
	// already handled by lowerStmt appending in visitation order; this
	// only guards labels that ended up with no terminator, e.g. a label
	// as the last statement of a function).
	for _, b := range f.Blocks {
		ensureTerminator(b, fn.Ret, tgt.PointerWidth)
	}

	f.RebuildCFG()
	pruneUnreachable(f)
	ir.Verify(f, false)
	return f
}

// pruneUnreachable drops blocks lowering created that never gained a
// predecessor: a join block after an if/else whose arms both terminate,
// or a label block whose goto never materialized. Verify treats a
// surviving unreachable block as an internal fault, so this runs before
// it on every function.
func pruneUnreachable(f *ir.Function) {
	reach := f.ReachableBlocks()
	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if reach[b.ID] {
			kept = append(kept, b)
		}
	}
	f.Blocks = kept
	f.RebuildCFG()
}

func ensureTerminator(b *ir.BasicBlock, ret *cast.CType, ptrWidth int) {
	if b.Term != nil {
		return
	}
	if ret == nil || ret.Kind == cast.CVoid {
		b.Term = &ir.Instr{Op: ir.OpRet, ID: ir.InvalidValue}
		return
	}
	zero := ir.ConstInt(irType(ret, ptrWidth), 0)
	b.Term = &ir.Instr{Op: ir.OpRet, ID: ir.InvalidValue, RetVal: &zero}
}

// lowerBuiltinCall consults the builtin table before emitting a normal
// call, per the boundary contract.
func lowerBuiltinCall(c *ctx, name string, retType *cast.CType, args []ir.Value) (ir.Value, bool) {
	b, ok := builtins.Lookup(name)
	if !ok {
		return ir.Value{}, false
	}
	sig := ir.Signature{Ret: irType(retType, c.ptrWidth())}
	rt := irType(retType, c.ptrWidth())
	return b.EmitCall(c.bd, c.tgt, rt, sig, args), true
}
