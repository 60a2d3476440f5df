package layout

import "github.com/coilc/coilc/internal/ir"

// findCoalesceable returns, for every copy whose destination may safely
// share its source's slot, a map from that destination to the (already
// slot-resolving) source id: the copy is the source's only remaining
// reader, and nothing outside the source's own defining block reads the
// destination either, so the two never need distinct storage at once.
// Reusing the slot when the destination lives on in another block was a
// real bug: a long-lived value assigned that slot later would clobber the
// copy before its out-of-block use ran.
func findCoalesceable(f *ir.Function, permanent map[ir.ValueID]*Slot) map[ir.ValueID]ir.ValueID {
	defBlockOf := map[ir.ValueID]ir.BlockID{}
	for _, b := range f.Blocks {
		for _, in := range b.Instr {
			if in.HasResult() {
				defBlockOf[in.ID] = b.ID
			}
		}
	}
	useCount := map[ir.ValueID]int{}
	for _, b := range f.Blocks {
		for _, in := range b.AllInstrs() {
			forEachOperand(in, func(v ir.Value) {
				if v.Kind == ir.ValReg {
					useCount[v.Reg]++
				}
			})
		}
	}

	coalesced := map[ir.ValueID]ir.ValueID{}
	for _, b := range f.Blocks {
		for _, in := range b.Instr {
			if in.Op != ir.OpCopy || in.Args[0].Kind != ir.ValReg {
				continue
			}
			src := in.Args[0].Reg
			if _, isPermanent := permanent[src]; isPermanent {
				continue
			}
			if useCount[src] != 1 {
				continue
			}
			srcBlock, ok := defBlockOf[src]
			if !ok {
				continue // src is a parameter register, not a local definition
			}
			if usesOutsideBlock(f, in.ID, srcBlock) {
				continue
			}
			coalesced[in.ID] = resolveCoalesce(coalesced, src)
		}
	}
	return coalesced
}

func resolveCoalesce(c map[ir.ValueID]ir.ValueID, id ir.ValueID) ir.ValueID {
	for {
		next, ok := c[id]
		if !ok {
			return id
		}
		id = next
	}
}

func usesOutsideBlock(f *ir.Function, id ir.ValueID, block ir.BlockID) bool {
	for _, b := range f.Blocks {
		if b.ID == block {
			continue
		}
		for _, in := range b.AllInstrs() {
			found := false
			forEachOperand(in, func(v ir.Value) {
				if v.Kind == ir.ValReg && v.Reg == id {
					found = true
				}
			})
			if found {
				return true
			}
		}
	}
	return false
}
