// Package dom computes dominator trees, dominance frontiers, and natural
// loop forests for one function at a time. Per the concurrency model,
// these are explicit values a pass computes and discards — never cached
// on the IR itself, since mutating passes invalidate them silently.
package dom

import (
	"sort"

	"github.com/coilc/coilc/internal/ir"
)

// Tree is a function's dominator tree plus the reverse-postorder numbering
// used to compute it.
type Tree struct {
	entry    ir.BlockID
	idom     map[ir.BlockID]ir.BlockID
	children map[ir.BlockID][]ir.BlockID
	rpo      []ir.BlockID
	rpoIndex map[ir.BlockID]int
}

// Build computes the dominator tree of f using the iterative
// Cooper/Harvey/Kennedy algorithm. f.RebuildCFG must have been called
// (or Preds must otherwise be current) before calling Build.
func Build(f *ir.Function) *Tree {
	order := reversePostorder(f)
	rpoIndex := make(map[ir.BlockID]int, len(order))
	for i, b := range order {
		rpoIndex[b] = i
	}

	idom := map[ir.BlockID]ir.BlockID{f.Entry: f.Entry}
	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == f.Entry {
				continue
			}
			bb := f.Block(b)
			var newIdom ir.BlockID
			found := false
			for _, p := range bb.Preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if !found {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	children := map[ir.BlockID][]ir.BlockID{}
	for b, p := range idom {
		if b == f.Entry {
			continue
		}
		children[p] = append(children[p], b)
	}
	for k := range children {
		sort.Slice(children[k], func(i, j int) bool { return children[k][i] < children[k][j] })
	}

	return &Tree{entry: f.Entry, idom: idom, children: children, rpo: order, rpoIndex: rpoIndex}
}

func intersect(idom map[ir.BlockID]ir.BlockID, rpoIndex map[ir.BlockID]int, a, b ir.BlockID) ir.BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(f *ir.Function) []ir.BlockID {
	visited := map[ir.BlockID]bool{}
	var post []ir.BlockID
	var walk func(ir.BlockID)
	walk = func(id ir.BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		b := f.Block(id)
		if b == nil {
			return
		}
		for _, s := range b.Succs() {
			walk(s)
		}
		post = append(post, id)
	}
	walk(f.Entry)
	out := make([]ir.BlockID, len(post))
	for i, b := range post {
		out[len(post)-1-i] = b
	}
	return out
}

// IDom returns b's immediate dominator, or (b, true) if b is the entry.
func (t *Tree) IDom(b ir.BlockID) (ir.BlockID, bool) {
	d, ok := t.idom[b]
	return d, ok
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a), inclusive of a == b.
func (t *Tree) Dominates(a, b ir.BlockID) bool {
	if a == b {
		return true
	}
	cur, ok := t.idom[b]
	for ok {
		if cur == a {
			return true
		}
		if cur == t.entry {
			return cur == a
		}
		cur, ok = t.idom[cur]
	}
	return false
}

// StrictlyDominates reports whether a dominates b and a != b.
func (t *Tree) StrictlyDominates(a, b ir.BlockID) bool {
	return a != b && t.Dominates(a, b)
}

// Children returns b's immediate children in the dominator tree.
func (t *Tree) Children(b ir.BlockID) []ir.BlockID { return t.children[b] }

// RPOIndex returns b's reverse-postorder index, used by GVN to decide
// which of two congruent values dominates the other without recomputing
// dominance directly.
func (t *Tree) RPOIndex(b ir.BlockID) int { return t.rpoIndex[b] }

// Frontier computes the dominance frontier of every block: the set of
// blocks where a definition first becomes non-dominating.
func Frontier(f *ir.Function, t *Tree) map[ir.BlockID][]ir.BlockID {
	df := map[ir.BlockID][]ir.BlockID{}
	for _, b := range f.Blocks {
		preds := b.Preds
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != t.entry && !t.Dominates(runner, b.ID) {
				df[runner] = appendUnique(df[runner], b.ID)
				idom, ok := t.IDom(runner)
				if !ok {
					break
				}
				runner = idom
			}
			// The immediate dominator itself may still need b.ID when
			// runner has reached idom(b) exactly; the loop above already
			// stops once t.Dominates(runner, b.ID) holds, which includes
			// that boundary case correctly.
		}
	}
	return df
}

func appendUnique(s []ir.BlockID, v ir.BlockID) []ir.BlockID {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// Loop is one natural loop: its header and the set of blocks in its body
// (header included).
type Loop struct {
	Header ir.BlockID
	Body   map[ir.BlockID]bool
	Latch  ir.BlockID
}

// NaturalLoops finds every natural loop in f via dominator back-edges: an
// edge n->h is a back-edge iff h dominates n. The loop body is n plus
// every block that can reach n without going through h.
func NaturalLoops(f *ir.Function, t *Tree) []*Loop {
	var loops []*Loop
	for _, b := range f.Blocks {
		for _, s := range b.Succs() {
			if t.Dominates(s, b.ID) {
				loops = append(loops, buildLoop(f, s, b.ID))
			}
		}
	}
	return loops
}

func buildLoop(f *ir.Function, header, latch ir.BlockID) *Loop {
	body := map[ir.BlockID]bool{header: true, latch: true}
	stack := []ir.BlockID{latch}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		bb := f.Block(n)
		if bb == nil {
			continue
		}
		for _, p := range bb.Preds {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	return &Loop{Header: header, Body: body, Latch: latch}
}

// Preheader returns b's existing single-entry preheader if the header has
// exactly one predecessor outside the loop, or InvalidBlock otherwise; the
// caller (LICM) synthesizes one when this returns InvalidBlock.
func (l *Loop) Preheader(f *ir.Function) ir.BlockID {
	hb := f.Block(l.Header)
	var outside []ir.BlockID
	for _, p := range hb.Preds {
		if !l.Body[p] {
			outside = append(outside, p)
		}
	}
	if len(outside) != 1 {
		return ir.InvalidBlock
	}
	return outside[0]
}
