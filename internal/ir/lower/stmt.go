package lower

import (
	"github.com/coilc/coilc/internal/cast"
	"github.com/coilc/coilc/internal/ir"
)

// lowerStmt lowers one statement into the builder's current block,
// possibly opening and closing new blocks for control flow. Once the
// current block already has a terminator (e.g. after an unconditional
// return or goto), any further statements in the same list are
// unreachable and are lowered into a fresh, dead block so lowering never
// has to special-case "no current block" — pruneUnreachable later drops
// it.
func lowerStmt(c *ctx, s *cast.Stmt) {
	if c.bd.Cur.Term != nil {
		c.bd.SetBlock(c.f.NewBlock("unreachable"))
	}
	switch s.Kind {
	case cast.SEmpty:
	case cast.SExpr:
		lowerExpr(c, s.ExprS)
	case cast.SReturn:
		lowerReturn(c, s)
	case cast.SDeclBlock:
		lowerDeclBlock(c, s)
	case cast.SBlock:
		c.pushScope()
		for _, sub := range s.Body {
			lowerStmt(c, sub)
		}
		c.popScope()
	case cast.SIf:
		lowerIf(c, s)
	case cast.SWhile:
		lowerWhile(c, s)
	case cast.SDoWhile:
		lowerDoWhile(c, s)
	case cast.SFor:
		lowerFor(c, s)
	case cast.SSwitch:
		lowerSwitch(c, s)
	case cast.SBreak:
		if len(c.breakTargets) == 0 {
			c.fault("break outside a loop or switch")
			return
		}
		c.bd.Br(c.breakTargets[len(c.breakTargets)-1])
	case cast.SContinue:
		if len(c.continueTargets) == 0 {
			c.fault("continue outside a loop")
			return
		}
		c.bd.Br(c.continueTargets[len(c.continueTargets)-1])
	case cast.SGoto:
		target := c.labelBlock(s.Label)
		c.bd.Br(target.ID)
	case cast.SLabel:
		target := c.labelBlock(s.Label)
		if c.bd.Cur.Term == nil {
			c.bd.Br(target.ID)
		}
		c.bd.SetBlock(target)
	default:
		c.fault("unsupported statement kind %d", s.Kind)
	}
}

func lowerReturn(c *ctx, s *cast.Stmt) {
	if s.ExprS == nil {
		c.bd.Ret(nil)
		return
	}
	fnRet := c.f.Sig.Ret
	v := lowerExpr(c, s.ExprS)
	converted := v
	if !irType(s.ExprS.Type, c.ptrWidth()).Eq(fnRet) {
		converted = c.forceIRType(v, fnRet)
	}
	c.bd.Ret(&converted)
}

// forceIRType performs a raw bitcast/trunc/ext when only the flat IR
// types (not the C types, already gone by this point) are available, for
// call-site and return-site conversions that convert's C-type dispatch
// cannot see through.
func (c *ctx) forceIRType(v ir.Value, want ir.Type) ir.Value {
	if v.Type.Eq(want) {
		return v
	}
	if v.IsConst() && v.Kind == ir.ValConstInt {
		return v.Narrow(want)
	}
	if v.Type.IsInt() && want.IsInt() {
		if want.Width < v.Type.Width {
			return c.bd.Cast(ir.OpTrunc, want, v, v.Type.Kind == ir.KindUint)
		}
		if v.Type.Kind == ir.KindUint {
			return c.bd.Cast(ir.OpZExt, want, v, true)
		}
		return c.bd.Cast(ir.OpSExt, want, v, false)
	}
	return c.bd.Cast(ir.OpBitcast, want, v, false)
}

func lowerDeclBlock(c *ctx, s *cast.Stmt) {
	for _, d := range s.Decls {
		size := cast.SizeOf(d.Type, c.ptrWidth())
		align := cast.AlignOf(d.Type, c.ptrWidth())
		addr := c.bd.Alloca(d.Name, irType(d.Type, c.ptrWidth()), size, align)
		c.declare(d.Name, &binding{addr: addr, ty: d.Type})
		if d.Init != nil {
			v := lowerExpr(c, d.Init)
			converted := convert(c.bd, v, d.Init.Type, d.Type, c.ptrWidth())
			c.bd.Store(addr, converted, false)
		}
	}
}

func lowerIf(c *ctx, s *cast.Stmt) {
	cond := lowerExpr(c, s.Cond)
	condBool := toBool(c, cond, s.Cond.Type)

	thenBlock := c.f.NewBlock("if.then")
	joinBlock := c.f.NewBlock("if.end")

	if s.Else != nil {
		elseBlock := c.f.NewBlock("if.else")
		c.bd.CondBr(condBool, thenBlock.ID, elseBlock.ID)

		c.bd.SetBlock(thenBlock)
		lowerStmt(c, s.Then)
		if c.bd.Cur.Term == nil {
			c.bd.Br(joinBlock.ID)
		}

		c.bd.SetBlock(elseBlock)
		lowerStmt(c, s.Else)
		if c.bd.Cur.Term == nil {
			c.bd.Br(joinBlock.ID)
		}
	} else {
		c.bd.CondBr(condBool, thenBlock.ID, joinBlock.ID)

		c.bd.SetBlock(thenBlock)
		lowerStmt(c, s.Then)
		if c.bd.Cur.Term == nil {
			c.bd.Br(joinBlock.ID)
		}
	}
	c.bd.SetBlock(joinBlock)
}

func lowerWhile(c *ctx, s *cast.Stmt) {
	headBlock := c.f.NewBlock("while.head")
	bodyBlock := c.f.NewBlock("while.body")
	exitBlock := c.f.NewBlock("while.end")

	c.bd.Br(headBlock.ID)
	c.bd.SetBlock(headBlock)
	cond := lowerExpr(c, s.CondE)
	condBool := toBool(c, cond, s.CondE.Type)
	c.bd.CondBr(condBool, bodyBlock.ID, exitBlock.ID)

	c.bd.SetBlock(bodyBlock)
	c.breakTargets = append(c.breakTargets, exitBlock.ID)
	c.continueTargets = append(c.continueTargets, headBlock.ID)
	lowerStmt(c, s.Loop)
	c.breakTargets = c.breakTargets[:len(c.breakTargets)-1]
	c.continueTargets = c.continueTargets[:len(c.continueTargets)-1]
	if c.bd.Cur.Term == nil {
		c.bd.Br(headBlock.ID)
	}

	c.bd.SetBlock(exitBlock)
}

func lowerDoWhile(c *ctx, s *cast.Stmt) {
	bodyBlock := c.f.NewBlock("dowhile.body")
	condBlock := c.f.NewBlock("dowhile.cond")
	exitBlock := c.f.NewBlock("dowhile.end")

	c.bd.Br(bodyBlock.ID)
	c.bd.SetBlock(bodyBlock)
	c.breakTargets = append(c.breakTargets, exitBlock.ID)
	c.continueTargets = append(c.continueTargets, condBlock.ID)
	lowerStmt(c, s.Loop)
	c.breakTargets = c.breakTargets[:len(c.breakTargets)-1]
	c.continueTargets = c.continueTargets[:len(c.continueTargets)-1]
	if c.bd.Cur.Term == nil {
		c.bd.Br(condBlock.ID)
	}

	c.bd.SetBlock(condBlock)
	cond := lowerExpr(c, s.CondE)
	condBool := toBool(c, cond, s.CondE.Type)
	c.bd.CondBr(condBool, bodyBlock.ID, exitBlock.ID)

	c.bd.SetBlock(exitBlock)
}

func lowerFor(c *ctx, s *cast.Stmt) {
	c.pushScope()
	defer c.popScope()

	if s.InitS != nil {
		lowerStmt(c, s.InitS)
	}

	headBlock := c.f.NewBlock("for.head")
	bodyBlock := c.f.NewBlock("for.body")
	postBlock := c.f.NewBlock("for.post")
	exitBlock := c.f.NewBlock("for.end")

	c.bd.Br(headBlock.ID)
	c.bd.SetBlock(headBlock)
	if s.CondE != nil {
		cond := lowerExpr(c, s.CondE)
		condBool := toBool(c, cond, s.CondE.Type)
		c.bd.CondBr(condBool, bodyBlock.ID, exitBlock.ID)
	} else {
		c.bd.Br(bodyBlock.ID)
	}

	c.bd.SetBlock(bodyBlock)
	c.breakTargets = append(c.breakTargets, exitBlock.ID)
	c.continueTargets = append(c.continueTargets, postBlock.ID)
	lowerStmt(c, s.Loop)
	c.breakTargets = c.breakTargets[:len(c.breakTargets)-1]
	c.continueTargets = c.continueTargets[:len(c.continueTargets)-1]
	if c.bd.Cur.Term == nil {
		c.bd.Br(postBlock.ID)
	}

	c.bd.SetBlock(postBlock)
	if s.PostE != nil {
		lowerExpr(c, s.PostE)
	}
	c.bd.Br(headBlock.ID)

	c.bd.SetBlock(exitBlock)
}

// lowerSwitch lowers to the IR's native OpSwitch terminator plus a
// fallthrough chain of blocks for the case bodies, since C switch bodies
// fall through by default and OpSwitch only dispatches to a single entry
// block per case value.
func lowerSwitch(c *ctx, s *cast.Stmt) {
	val := lowerExpr(c, s.SwitchVal)
	exitBlock := c.f.NewBlock("switch.end")

	caseBlocks := make([]*ir.BasicBlock, len(s.Cases))
	defaultBlock := exitBlock
	var irCases []ir.SwitchCase
	for i, cs := range s.Cases {
		caseBlocks[i] = c.f.NewBlock("switch.case")
		if cs.Val == nil {
			defaultBlock = caseBlocks[i]
			continue
		}
		cv := lowerExpr(c, cs.Val)
		irCases = append(irCases, ir.SwitchCase{Val: cv, Target: caseBlocks[i].ID})
	}
	c.bd.Switch(val, defaultBlock.ID, irCases)

	c.breakTargets = append(c.breakTargets, exitBlock.ID)
	for i, cs := range s.Cases {
		c.bd.SetBlock(caseBlocks[i])
		for _, sub := range cs.Body {
			lowerStmt(c, sub)
		}
		if c.bd.Cur.Term == nil {
			next := exitBlock
			if i+1 < len(caseBlocks) {
				next = caseBlocks[i+1]
			}
			c.bd.Br(next.ID)
		}
	}
	c.breakTargets = c.breakTargets[:len(c.breakTargets)-1]

	c.bd.SetBlock(exitBlock)
}
