// Package group holds the pending group signals: tagged notifications sent
// from one entity to another, consumed when the target runs its next pass.
package group

import "github.com/pgesim/engine/internal/core/ecs"

// PoolSize is the number of signal entries shared by all targets.
const PoolSize = 255

// Nil terminates entry chains.
const Nil = -1

// Entry is one pending signal on a target's chain.
type Entry struct {
	Source ecs.Index
	Tag    uint16
	Next   int
}

// Table is a fixed pool of entries threaded either onto a target's chain or
// onto the free list.
type Table struct {
	entries [PoolSize]Entry
	heads   [ecs.Capacity]int
	free    int
}

// NewTable returns a table with every entry free.
func NewTable() *Table {
	t := &Table{}
	t.Reset()
	return t
}

// Reset drops every chain and rebuilds the free list in pool order.
func (t *Table) Reset() {
	for i := range t.entries {
		t.entries[i] = Entry{Next: i + 1}
	}
	t.entries[PoolSize-1].Next = Nil
	for i := range t.heads {
		t.heads[i] = Nil
	}
	t.free = 0
}

// Notify pushes a signal onto target's chain, newest first. Returns false
// when the pool is exhausted; the signal is then dropped.
func (t *Table) Notify(target, source ecs.Index, tag uint16) bool {
	if t.free == Nil || !target.Valid() {
		return false
	}
	id := t.free
	e := &t.entries[id]
	t.free = e.Next
	*e = Entry{Source: source, Tag: tag, Next: t.heads[target]}
	t.heads[target] = id
	return true
}

// ReleaseAll returns target's whole chain to the free list.
func (t *Table) ReleaseAll(target ecs.Index) {
	if !target.Valid() {
		return
	}
	id := t.heads[target]
	t.heads[target] = Nil
	for id != Nil {
		next := t.entries[id].Next
		t.release(id)
		id = next
	}
}

func (t *Table) release(id int) {
	t.entries[id] = Entry{Next: t.free}
	t.free = id
}

// Pending reports whether target has at least one signal.
func (t *Table) Pending(target ecs.Index) bool {
	return target.Valid() && t.heads[target] != Nil
}

// Chain calls fn for each signal of target, newest first, until fn returns
// false.
func (t *Table) Chain(target ecs.Index, fn func(e Entry) bool) {
	if !target.Valid() {
		return
	}
	for id := t.heads[target]; id != Nil; id = t.entries[id].Next {
		if !fn(t.entries[id]) {
			return
		}
	}
}

// Find returns the newest signal of target carrying tag.
func (t *Table) Find(target ecs.Index, tag uint16) (Entry, bool) {
	var found Entry
	ok := false
	t.Chain(target, func(e Entry) bool {
		if e.Tag == tag {
			found, ok = e, true
			return false
		}
		return true
	})
	return found, ok
}

// Remove purges idx as a target and as a source of any chain.
func (t *Table) Remove(idx ecs.Index) {
	t.ReleaseAll(idx)
	for target := range t.heads {
		prev := Nil
		id := t.heads[target]
		for id != Nil {
			next := t.entries[id].Next
			if t.entries[id].Source == idx {
				if prev == Nil {
					t.heads[target] = next
				} else {
					t.entries[prev].Next = next
				}
				t.release(id)
			} else {
				prev = id
			}
			id = next
		}
	}
}

// Free counts the entries on the free list.
func (t *Table) Free() int {
	n := 0
	for id := t.free; id != Nil && n <= PoolSize; id = t.entries[id].Next {
		n++
	}
	return n
}

// Allocated counts the entries on target chains.
func (t *Table) Allocated() int {
	n := 0
	for target := range t.heads {
		for id := t.heads[target]; id != Nil && n <= PoolSize; id = t.entries[id].Next {
			n++
		}
	}
	return n
}

// Raw exposes the pool for snapshots.
func (t *Table) Raw() (entries *[PoolSize]Entry, heads *[ecs.Capacity]int, free *int) {
	return &t.entries, &t.heads, &t.free
}
