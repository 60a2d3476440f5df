// Package stub renders the finalized, non-SSA IR into a target-annotated
// textual instruction listing. It performs no instruction selection or
// register allocation of its own — the whole point is to expose a
// diffable artifact that proves the core's output (module, layout plan)
// is actually consumable by something shaped like a backend, without
// this repository taking on real per-architecture codegen.
package stub

import (
	"fmt"
	"strings"

	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/ir/layout"
	"github.com/coilc/coilc/internal/target"
)

// Render produces the listing for one function on one target, given its
// already-computed layout plan.
func Render(tgt *target.Descriptor, f *ir.Function, plan *layout.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; target %s frame=%d align=%d\n", tgt, plan.FrameSize, plan.FrameAlign)
	fmt.Fprintf(&b, "define %s%s\n", f.Name, f.Sig)
	if f.IsDeclaration() {
		b.WriteString("  ; declaration, no body\n")
		return b.String()
	}
	for _, bb := range f.Blocks {
		fmt.Fprintf(&b, "bb%d:\n", bb.ID)
		for _, in := range bb.AllInstrs() {
			b.WriteString("  ")
			b.WriteString(in.String())
			if in.HasResult() {
				if s, ok := plan.Slots[in.ID]; ok {
					fmt.Fprintf(&b, "  ; slot[%s] off=%d size=%d", s.Class, s.Offset, s.Size)
				}
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderModule renders every defined function in m for tgt, one listing
// concatenated after another, computing each function's layout plan
// fresh (layout.Compute is cheap relative to the optimizer pipeline that
// already ran).
func RenderModule(tgt *target.Descriptor, m *ir.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; module %s\n", m.Name)
	for _, f := range m.Functions {
		plan := layout.Compute(f, tgt.PointerWidth)
		b.WriteString(Render(tgt, f, plan))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderAllTargets renders m once for every architecture coilc supports,
// keyed by arch name, matching spec.md's "for each of the four target
// names" requirement without hardcoding any one of them as default.
func RenderAllTargets(archs []target.Arch, m *ir.Module) (map[target.Arch]string, error) {
	out := make(map[target.Arch]string, len(archs))
	for _, a := range archs {
		d, err := target.Describe(a)
		if err != nil {
			return nil, err
		}
		out[a] = RenderModule(d, m)
	}
	return out, nil
}
