package ir

// Builder emits instructions into one function, tracking the current
// insertion block the way lowering needs: sequential statement-at-a-time
// emission with an explicit "current block" that changes as control-flow
// constructs open new blocks.
type Builder struct {
	F   *Function
	Cur *BasicBlock
}

func NewBuilder(f *Function, entry *BasicBlock) *Builder {
	return &Builder{F: f, Cur: entry}
}

// SetBlock redirects subsequent emission to b.
func (bd *Builder) SetBlock(b *BasicBlock) { bd.Cur = b }

func (bd *Builder) push(in *Instr) {
	bd.Cur.Instr = append(bd.Cur.Instr, in)
}

func (bd *Builder) def(t Type) ValueID { return bd.F.NewValue() }

func (bd *Builder) Alloca(name string, elem Type, size, align int64) Value {
	id := bd.def(Ptr)
	bd.push(&Instr{Op: OpAlloca, ID: id, Type: Ptr, Name: name, AllocaSize: size, AllocaAlign: align, ElemType: elem})
	return Reg(id, Ptr)
}

func (bd *Builder) Load(t Type, addr Value, volatile bool) Value {
	id := bd.def(t)
	bd.push(&Instr{Op: OpLoad, ID: id, Type: t, Args: []Value{addr}, Volatile: volatile})
	return Reg(id, t)
}

func (bd *Builder) Store(addr, val Value, volatile bool) {
	bd.push(&Instr{Op: OpStore, ID: InvalidValue, Args: []Value{addr, val}, Volatile: volatile})
}

func (bd *Builder) GEP(base Value, offset int64, index Value, stride int64) Value {
	id := bd.def(Ptr)
	bd.push(&Instr{Op: OpGEP, ID: id, Type: Ptr, GEPBase: base, GEPOffset: offset, GEPIndex: index, GEPStride: stride})
	return Reg(id, Ptr)
}

func (bd *Builder) BinOp(op Opcode, t Type, lhs, rhs Value) Value {
	id := bd.def(t)
	bd.push(&Instr{Op: op, ID: id, Type: t, Args: []Value{lhs, rhs}})
	return Reg(id, t)
}

func (bd *Builder) ICmp(op Opcode, lhs, rhs Value) Value {
	id := bd.def(I32)
	bd.push(&Instr{Op: op, ID: id, Type: I32, Args: []Value{lhs, rhs}})
	return Reg(id, I32)
}

func (bd *Builder) Cast(op Opcode, dst Type, src Value, signed bool) Value {
	id := bd.def(dst)
	bd.push(&Instr{Op: op, ID: id, Type: dst, Args: []Value{src}, SrcType: src.Type, Signed: signed})
	return Reg(id, dst)
}

func (bd *Builder) Select(t Type, cond, tv, fv Value) Value {
	id := bd.def(t)
	bd.push(&Instr{Op: OpSelect, ID: id, Type: t, Cond: cond, TrueV: tv, FalseV: fv})
	return Reg(id, t)
}

func (bd *Builder) CallDirect(t Type, callee string, sig Signature, args []Value) Value {
	id := InvalidValue
	if t.Kind != KindVoid {
		id = bd.def(t)
	}
	bd.push(&Instr{Op: OpCallDirect, ID: id, Type: t, Callee: callee, Sig: sig, Args: args})
	if id == InvalidValue {
		return Value{}
	}
	return Reg(id, t)
}

func (bd *Builder) CallIndirect(t Type, calleeVal Value, sig Signature, args []Value) Value {
	id := InvalidValue
	if t.Kind != KindVoid {
		id = bd.def(t)
	}
	bd.push(&Instr{Op: OpCallIndirect, ID: id, Type: t, CalleeVal: calleeVal, Sig: sig, Args: args})
	if id == InvalidValue {
		return Value{}
	}
	return Reg(id, t)
}

func (bd *Builder) CallIntrinsic(t Type, name string, args []Value) Value {
	return bd.CallIntrinsicPure(t, name, args, false)
}

func (bd *Builder) CallIntrinsicPure(t Type, name string, args []Value, pure bool) Value {
	id := InvalidValue
	if t.Kind != KindVoid {
		id = bd.def(t)
	}
	bd.push(&Instr{Op: OpCallIntrinsic, ID: id, Type: t, Intrinsic: name, Args: args, PureIntrinsic: pure})
	if id == InvalidValue {
		return Value{}
	}
	return Reg(id, t)
}

func (bd *Builder) Memcpy(dst, src, length Value) {
	bd.push(&Instr{Op: OpMemcpy, ID: InvalidValue, MemcpyDst: dst, MemcpySrc: src, MemcpyLen: length})
}

// terminators: these set bd.Cur.Term and do not change bd.Cur. Callers
// switch blocks explicitly via SetBlock.

func (bd *Builder) Br(target BlockID) {
	bd.Cur.Term = &Instr{Op: OpBr, ID: InvalidValue, Target: target}
}

func (bd *Builder) CondBr(cond Value, t, f BlockID) {
	bd.Cur.Term = &Instr{Op: OpCondBr, ID: InvalidValue, Cond2: cond, TrueBlk: t, FalseBlk: f}
}

func (bd *Builder) Ret(val *Value) {
	bd.Cur.Term = &Instr{Op: OpRet, ID: InvalidValue, RetVal: val}
}

func (bd *Builder) Unreachable() {
	bd.Cur.Term = &Instr{Op: OpUnreachable, ID: InvalidValue}
}

func (bd *Builder) Switch(val Value, def BlockID, cases []SwitchCase) {
	bd.Cur.Term = &Instr{Op: OpSwitch, ID: InvalidValue, SwitchVal: val, SwitchDef: def, Cases: cases}
}

// Phi adds a phi instruction with no incoming edges yet to block b; edges
// are filled in later by mem2reg's renaming walk.
func (bd *Builder) Phi(b *BasicBlock, t Type) Value {
	id := bd.F.NewValue()
	p := &Instr{Op: OpPhi, ID: id, Type: t}
	b.Phis = append(b.Phis, p)
	return Reg(id, t)
}
