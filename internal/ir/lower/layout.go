package lower

import "github.com/coilc/coilc/internal/cast"

// ComputeLayout is lowering's pass 1 struct/union layout step: field
// offsets, alignment, padding, and bitfield containers. Structs are
// visited depth-first so nested aggregates are already sized.
func ComputeLayout(structs map[string]*cast.CType, ptrWidth int) {
	visiting := map[*cast.CType]bool{}
	for _, t := range structs {
		layoutOne(t, ptrWidth, visiting)
	}
}

func layoutOne(t *cast.CType, ptrWidth int, visiting map[*cast.CType]bool) {
	if t == nil || (t.Kind != cast.CStruct && t.Kind != cast.CUnion) {
		return
	}
	if t.Size != 0 || visiting[t] {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	if t.Kind == cast.CUnion {
		layoutUnion(t, ptrWidth)
		return
	}

	var offset int64
	var maxAlign int64 = 1
	var bitCursor int   // bits used in the current container
	var bitContainer int64 // byte offset of the current bitfield container
	haveContainer := false

	for i := range t.Fields {
		f := &t.Fields[i]
		layoutOne(f.Type, ptrWidth, visiting)

		if f.BitWidth > 0 {
			containerBits := f.Type.Width(ptrWidth)
			if containerBits == 0 {
				containerBits = 32
			}
			if !haveContainer || bitCursor+f.BitWidth > containerBits {
				// start a fresh container, aligned to the field type.
				align := int64(containerBits / 8)
				offset = alignUp(offset, align)
				bitContainer = offset
				offset += align
				bitCursor = 0
				haveContainer = true
				if align > maxAlign {
					maxAlign = align
				}
			}
			f.ByteOffset = bitContainer
			f.BitOffset = bitCursor
			f.ContainerBits = containerBits
			bitCursor += f.BitWidth
			continue
		}

		haveContainer = false
		align := cast.AlignOf(f.Type, ptrWidth)
		if align > maxAlign {
			maxAlign = align
		}
		offset = alignUp(offset, align)
		f.ByteOffset = offset
		offset += cast.SizeOf(f.Type, ptrWidth)
	}

	t.Align = maxAlign
	t.Size = alignUp(offset, maxAlign)
}

func layoutUnion(t *cast.CType, ptrWidth int) {
	var maxSize, maxAlign int64 = 0, 1
	for i := range t.Fields {
		f := &t.Fields[i]
		align := cast.AlignOf(f.Type, ptrWidth)
		size := cast.SizeOf(f.Type, ptrWidth)
		f.ByteOffset = 0
		if f.BitWidth > 0 {
			f.BitOffset = 0
			f.ContainerBits = f.Type.Width(ptrWidth)
		}
		if align > maxAlign {
			maxAlign = align
		}
		if size > maxSize {
			maxSize = size
		}
	}
	t.Align = maxAlign
	t.Size = alignUp(maxSize, maxAlign)
}

func alignUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
