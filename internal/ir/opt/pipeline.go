// Package opt implements the optimizer pipeline: a fixed set of
// function-local and whole-module passes iterated to a fixed point (or an
// iteration cap), the same shape as a classic SSA middle-end pass
// manager. Every pass here consumes and produces the SSA form mem2reg
// establishes; none of them run before mem2reg has promoted what it can.
package opt

import (
	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/ir/mem2reg"
	"github.com/coilc/coilc/internal/target"
)

// MaxIterations bounds the fixed-point loop so a pathological
// pass-reintroduces-work cycle cannot hang the compiler; three rounds is
// enough for the pass set here to converge on realistic input, and the
// loop still exits early the first round nothing changes.
const MaxIterations = 3

// Level selects which passes run, mirroring the driver's -O0..-O3 switch.
type Level int

const (
	O0 Level = iota
	O1
	O2
	O3
)

// FunctionPass runs once per function and reports whether it changed
// anything, so the driver can decide whether another fixed-point round is
// worth running.
type FunctionPass struct {
	Name string
	Run  func(f *ir.Function, tgt *target.Descriptor) bool
}

// functionPasses is the fixed per-function pass list, in the order the
// pipeline applies them each round. cfg_simplify runs first and last in
// spirit: it also runs implicitly at the top of every later pass via
// RebuildCFG, since several passes only produce meaningful terminators
// after it has pruned dead edges.
func functionPasses(level Level) []FunctionPass {
	passes := []FunctionPass{
		{"cfg_simplify", cfgSimplify},
		{"copy_prop", copyProp},
		{"algebraic_simplify", algebraicSimplify},
		{"constant_fold", constantFold},
		{"narrow", narrowPass},
		{"dce", dce},
	}
	if level >= O1 {
		passes = append(passes, FunctionPass{"gvn", gvn})
	}
	if level >= O2 {
		passes = append(passes,
			FunctionPass{"licm", licm},
			FunctionPass{"iv_strength_reduce", ivStrengthReduce},
			FunctionPass{"if_convert", ifConvert},
		)
	}
	return passes
}

// RunFunction iterates mem2reg plus the function-local pass list to a
// fixed point (bounded by MaxIterations), matching the design note that
// the optimizer keeps re-promoting allocas the other passes' rewrites may
// have made promotable (e.g. after copy_prop removes an escaping use).
func RunFunction(f *ir.Function, tgt *target.Descriptor, level Level) {
	if f.IsDeclaration() {
		return
	}
	if level == O0 {
		// -O0: SSA construction only, no optimizer pipeline at all.
		mem2reg.Run(f)
		f.RebuildCFG()
		return
	}
	passes := functionPasses(level)
	iterations := MaxIterations
	if level == O3 {
		iterations += 2
	}
	for iter := 0; iter < iterations; iter++ {
		changed := mem2reg.Run(f) > 0
		for _, p := range passes {
			f.RebuildCFG()
			if p.Run(f, tgt) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	f.RebuildCFG()
}

// RunModule runs RunFunction over every defined function, then the
// whole-module passes: inlining (which needs every callee already at its
// own fixed point), inter-procedural constant propagation, and dead
// static elimination.
func RunModule(m *ir.Module, tgt *target.Descriptor, level Level) {
	for _, f := range m.Functions {
		RunFunction(f, tgt, level)
	}
	if level >= O2 {
		sizeCap := defaultInlineSizeCap
		if level == O3 {
			sizeCap *= 2
		}
		if Inline(m, tgt, sizeCap) {
			for _, f := range m.Functions {
				RunFunction(f, tgt, level)
			}
		}
		IPCP(m)
		for _, f := range m.Functions {
			RunFunction(f, tgt, level)
		}
	}
	if level >= O1 {
		DeadStatics(m)
	}
}
