package layout

import (
	"container/heap"

	"github.com/coilc/coilc/internal/ir"
)

// interval is a value's live range expressed as block-ordered instruction
// indices: the earliest point it (or anything traced back to it, for a
// demoted alloca) is defined, and the latest point it is used.
type interval struct {
	id         ir.ValueID
	start, end int
}

type physSlot struct {
	size, align int64
}

// assignPacked colors ids with greedy interval scheduling: sort by
// interval start, and for each interval reuse the slot whose previous
// occupant's interval ended earliest, provided it ended at or before this
// interval's start, tracked with a min-heap keyed by that occupant's end
// index. Slots are laid out into
// physical offsets only once every interval has claimed its final size,
// since a later, larger value can grow a lane it reuses.
func assignPacked(f *ir.Function, p *Plan, ids []ir.ValueID, sizeOf, alignOf map[ir.ValueID]int64, offset int64, ptrWidthBits int) int64 {
	if len(ids) == 0 {
		return offset
	}
	_ = ptrWidthBits
	order := f.AllValues()
	index := map[ir.ValueID]int{}
	for i, in := range order {
		if in.HasResult() {
			index[in.ID] = i
		}
	}

	intervals := make([]interval, 0, len(ids))
	for _, id := range ids {
		intervals = append(intervals, computeInterval(order, index, id, traceSet(f, id)))
	}
	for i := 1; i < len(intervals); i++ {
		for j := i; j > 0 && intervals[j].start < intervals[j-1].start; j-- {
			intervals[j], intervals[j-1] = intervals[j-1], intervals[j]
		}
	}

	var slots []physSlot
	lane := map[ir.ValueID]int{}
	free := &freeHeap{}
	heap.Init(free)

	for _, iv := range intervals {
		size, align := sizeOf[iv.id], alignOf[iv.id]
		if align == 0 {
			align = 1
		}
		var slotIdx int
		if free.Len() > 0 && (*free)[0].end <= iv.start {
			e := heap.Pop(free).(freeEntry)
			slotIdx = e.slot
			if size > slots[slotIdx].size {
				slots[slotIdx].size = size
			}
			if align > slots[slotIdx].align {
				slots[slotIdx].align = align
			}
		} else {
			slotIdx = len(slots)
			slots = append(slots, physSlot{size: size, align: align})
		}
		heap.Push(free, freeEntry{end: iv.end, slot: slotIdx})
		lane[iv.id] = slotIdx
	}

	slotOffset := make([]int64, len(slots))
	for i, s := range slots {
		offset = alignUp(offset, s.align)
		slotOffset[i] = offset
		offset += s.size
	}
	for _, iv := range intervals {
		l := lane[iv.id]
		p.Slots[iv.id] = &Slot{Offset: slotOffset[l], Size: slots[l].size, Align: slots[l].align, Class: Packed}
	}
	return offset
}

// computeInterval finds the earliest instruction index at which any
// member of trace is defined, and the latest at which any member is used
// as an operand (definitions count as uses too, so a value written but
// never read still gets an interval of nonzero length).
func computeInterval(order []*ir.Instr, index map[ir.ValueID]int, id ir.ValueID, trace map[ir.ValueID]bool) interval {
	iv := interval{id: id, start: -1, end: -1}
	for i, in := range order {
		if in.HasResult() && trace[in.ID] {
			if iv.start == -1 || i < iv.start {
				iv.start = i
			}
			if i > iv.end {
				iv.end = i
			}
		}
		touches := false
		forEachOperand(in, func(v ir.Value) {
			if v.Kind == ir.ValReg && trace[v.Reg] {
				touches = true
			}
		})
		if touches && i > iv.end {
			iv.end = i
		}
		if touches && iv.start == -1 {
			iv.start = i
		}
	}
	if iv.start == -1 {
		iv.start = index[id]
		iv.end = index[id]
	}
	return iv
}

// freeHeap is a min-heap of every assigned slot, ordered by the
// instruction index its current occupant's interval ends at; a slot is
// only reused once that index is at or before the new interval's start.
type freeHeap []freeEntry

type freeEntry struct {
	end  int
	slot int
}

func (h freeHeap) Len() int            { return len(h) }
func (h freeHeap) Less(i, j int) bool  { return h[i].end < h[j].end }
func (h freeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *freeHeap) Push(x interface{}) { *h = append(*h, x.(freeEntry)) }
func (h *freeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
