package layout

import "github.com/coilc/coilc/internal/ir"

// assignBlockLocal packs ids into a shared pool of lanes reused across
// blocks: within a block, a lane is claimed greedily at a value's
// definition and released the moment its last use in that block passes,
// exactly like Tier 2 but scoped to one block's instruction order. Every
// lane the pool has ever grown to is considered free at the start of each
// new block, since only one block executes at a time and no two blocks'
// values can ever be simultaneously live.
func assignBlockLocal(f *ir.Function, p *Plan, ids []ir.ValueID, sizeOf, alignOf map[ir.ValueID]int64, offset int64) int64 {
	if len(ids) == 0 {
		return offset
	}
	want := map[ir.ValueID]bool{}
	for _, id := range ids {
		want[id] = true
	}

	var laneSize, laneAlign []int64
	valueLane := map[ir.ValueID]int{}

	for _, b := range f.Blocks {
		instrs := b.AllInstrs()
		lastUse := map[ir.ValueID]int{}
		for idx, in := range instrs {
			if in.HasResult() && want[in.ID] {
				if _, ok := lastUse[in.ID]; !ok {
					lastUse[in.ID] = idx
				}
			}
			forEachOperand(in, func(v ir.Value) {
				if v.Kind == ir.ValReg && want[v.Reg] {
					lastUse[v.Reg] = idx
				}
			})
		}

		free := make([]int, len(laneSize))
		for i := range free {
			free[i] = len(laneSize) - 1 - i
		}
		active := map[ir.ValueID]int{}

		for idx, in := range instrs {
			if in.HasResult() && want[in.ID] {
				var l int
				if len(free) > 0 {
					l = free[len(free)-1]
					free = free[:len(free)-1]
				} else {
					l = len(laneSize)
					laneSize = append(laneSize, 0)
					laneAlign = append(laneAlign, 1)
				}
				size, align := sizeOf[in.ID], alignOf[in.ID]
				if align == 0 {
					align = 1
				}
				if size > laneSize[l] {
					laneSize[l] = size
				}
				if align > laneAlign[l] {
					laneAlign[l] = align
				}
				valueLane[in.ID] = l
				active[in.ID] = l
			}
			for vid, l := range active {
				if lastUse[vid] == idx {
					free = append(free, l)
					delete(active, vid)
				}
			}
		}
	}

	laneOffset := make([]int64, len(laneSize))
	for i := range laneSize {
		offset = alignUp(offset, laneAlign[i])
		laneOffset[i] = offset
		offset += laneSize[i]
	}
	for _, id := range ids {
		l, ok := valueLane[id]
		if !ok {
			continue // never observed with a def in AllInstrs order, e.g. a param-only alias
		}
		p.Slots[id] = &Slot{Offset: laneOffset[l], Size: laneSize[l], Align: laneAlign[l], Class: BlockLocal}
	}
	return offset
}
