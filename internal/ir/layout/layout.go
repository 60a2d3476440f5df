// Package layout assigns every IR value that must live in memory (a
// permanently addressable alloca, or a spilled SSA temporary) to a stack
// slot, once phi elimination has produced a flat, non-SSA register-transfer
// program. It never runs before phielim.Run and never runs before the
// optimizer pipeline has finished — the fewer temporaries survive to this
// point, the smaller the frame it produces.
package layout

import "github.com/coilc/coilc/internal/ir"

// Class is the tier a slot was assigned under.
type Class int

const (
	// Permanent holds an addressable alloca that escaped the function
	// (its address was stored, passed to a call, or returned).
	Permanent Class = iota
	// Packed holds an SSA temporary (or a non-escaping alloca) whose live
	// range spans more than one block, colored by greedy interval scheduling.
	Packed
	// BlockLocal holds a value live within a single block only, reusing a
	// shared per-lane pool offset across every block that needs a lane.
	BlockLocal
)

func (c Class) String() string {
	switch c {
	case Permanent:
		return "permanent"
	case Packed:
		return "packed"
	case BlockLocal:
		return "block-local"
	default:
		return "?"
	}
}

// Slot is one assigned stack location.
type Slot struct {
	Offset int64
	Size   int64
	Align  int64
	Class  Class
}

// Plan is the whole function's frame layout: every value's slot, plus the
// resulting frame size and alignment the backend must reserve.
type Plan struct {
	Slots      map[ir.ValueID]*Slot
	FrameSize  int64
	FrameAlign int64
}

// Compute builds the layout plan for f, which must already be in
// non-SSA (post phi-elimination) form.
func Compute(f *ir.Function, ptrWidthBits int) *Plan {
	p := &Plan{Slots: map[ir.ValueID]*Slot{}, FrameAlign: 8}
	if f.IsDeclaration() {
		return p
	}
	f.RebuildCFG()

	offset := int64(0)
	var packedIDs, blockLocalIDs []ir.ValueID
	sizeOf := map[ir.ValueID]int64{}
	alignOf := map[ir.ValueID]int64{}

	for _, b := range f.Blocks {
		for _, in := range b.Instr {
			if in.Op != ir.OpAlloca {
				continue
			}
			if addressEscapes(f, in.ID) {
				offset = alignUp(offset, in.AllocaAlign)
				p.Slots[in.ID] = &Slot{Offset: offset, Size: in.AllocaSize, Align: in.AllocaAlign, Class: Permanent}
				offset += in.AllocaSize
				continue
			}
			sizeOf[in.ID], alignOf[in.ID] = in.AllocaSize, in.AllocaAlign
			if spansMultipleBlocks(f, in.ID) {
				packedIDs = append(packedIDs, in.ID)
			} else {
				blockLocalIDs = append(blockLocalIDs, in.ID)
			}
		}
	}

	coalesced := findCoalesceable(f, p.Slots)

	for _, in := range f.AllValues() {
		if !in.HasResult() || in.Op == ir.OpAlloca {
			continue
		}
		if _, done := p.Slots[in.ID]; done {
			continue
		}
		if _, isCoalesced := coalesced[in.ID]; isCoalesced {
			continue // resolved after its source gets a slot, below
		}
		sizeOf[in.ID] = int64(in.Type.Bytes(ptrWidthBits))
		alignOf[in.ID] = int64(in.Type.Bytes(ptrWidthBits))
		if alignOf[in.ID] == 0 {
			alignOf[in.ID] = 1
		}
		if spansMultipleBlocks(f, in.ID) {
			packedIDs = append(packedIDs, in.ID)
		} else {
			blockLocalIDs = append(blockLocalIDs, in.ID)
		}
	}

	offset = assignPacked(f, p, packedIDs, sizeOf, alignOf, offset, ptrWidthBits)
	offset = assignBlockLocal(f, p, blockLocalIDs, sizeOf, alignOf, offset)

	for dst, src := range coalesced {
		if s, ok := p.Slots[src]; ok {
			p.Slots[dst] = s
		}
	}

	p.FrameSize = alignUp(offset, p.FrameAlign)
	return p
}

func alignUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// spansMultipleBlocks reports whether id's def and every use of it (tracing
// through GEP chains rooted at id, for an alloca) lie within a single
// block or cross a block boundary.
func spansMultipleBlocks(f *ir.Function, id ir.ValueID) bool {
	trace := traceSet(f, id)
	blocks := map[ir.BlockID]bool{}
	for _, b := range f.Blocks {
		for _, in := range b.AllInstrs() {
			if in.HasResult() && trace[in.ID] {
				blocks[b.ID] = true
			}
			touches := false
			forEachOperand(in, func(v ir.Value) {
				if v.Kind == ir.ValReg && trace[v.Reg] {
					touches = true
				}
			})
			if touches {
				blocks[b.ID] = true
			}
		}
	}
	return len(blocks) > 1
}
