// Package collision owns the per-frame occupancy buckets, the room caches
// built from them, and the mutable copy of the level's cell grid.
package collision

import (
	"errors"

	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
)

// SlotPoolSize bounds both slots and buckets per frame.
const SlotPoolSize = 256

// Nil terminates slot and bucket links.
const Nil uint16 = 0xFFFF

// Room cache layout: 48 cells (3 rows of 16) per area.
const (
	CacheLeft    = 0x00
	CacheCurrent = 0x30
	CacheRight   = 0x60
	CacheSize    = 0x90
	CacheEmpty   = 0xFF
)

// ErrSlotsExhausted is returned when a frame places more cells than the pool holds.
var ErrSlotsExhausted = errors.New("collision slot pool exhausted")

// Key identifies an occupancy cell: room*64 + row*16 + col, rows 0..2 of 72px.
type Key uint16

// InvalidKey marks a position outside the placement window.
const InvalidKey Key = 0xFFFF

// MakeKey builds the key of a cell.
func MakeKey(room uint8, row, col int) Key {
	return Key(row*16 + col + int(room)*64)
}

// Room returns the room part of the key.
func (k Key) Room() uint8 { return uint8(k / 64) }

// Slot is one entity's occupation of one cell.
type Slot struct {
	Key        Key
	Entity     ecs.Index
	Prev       uint16 // older slot of the same bucket
	NextBucket uint16 // next bucket occupied by the same entity
}

type undoHead struct {
	bucket int
	head   uint16
}

// Grid is the collision state of the running level.
type Grid struct {
	level *data.Level
	ct    []int8 // flat collision table, patched in place by terrain ops

	slots    [SlotPoolSize]Slot
	used     int
	heads    [SlotPoolSize]uint16 // newest slot of each bucket
	keys     [SlotPoolSize]Key
	nbuckets int

	cache     [CacheSize]uint8
	leftRoom  int8
	rightRoom int8

	patches []Patch

	undo []undoHead
	wake []ecs.Index
}

// NewGrid returns an empty grid; Load must be called before use.
func NewGrid() *Grid {
	g := &Grid{
		undo: make([]undoHead, 0, 16),
		wake: make([]ecs.Index, 0, 32),
	}
	g.clearCache()
	return g
}

// Load takes a fresh copy of the level's cells and drops all frame state and
// terrain patches.
func (g *Grid) Load(lvl *data.Level) {
	g.level = lvl
	g.ct = lvl.CollisionData()
	g.patches = g.patches[:0]
	g.Reset()
	g.clearCache()
	g.leftRoom, g.rightRoom = -1, -1
}

// Reset empties the buckets at the start of a frame.
func (g *Grid) Reset() {
	g.used = 0
	g.nbuckets = 0
}

func (g *Grid) clearCache() {
	for i := range g.cache {
		g.cache[i] = CacheEmpty
	}
}

// Neighbor reads the connectivity table; negative means none.
func (g *Grid) Neighbor(room uint8, d data.Direction) int8 {
	if !world.ValidRoom(room) {
		return -1
	}
	return g.ct[d.CTOffset()+int(room)]
}

// GridPos returns the occupancy key of e shifted by dx pixels, crossing at
// most one room edge, or InvalidKey.
func (g *Grid) GridPos(e *world.Live, dx int) Key {
	if !world.ValidRoom(e.Room) {
		return InvalidKey
	}
	x := int(e.PosX) + dx
	y := int(e.PosY)
	room := int8(e.Room)
	switch {
	case x < 0:
		room = g.Neighbor(e.Room, data.DirLeft)
		x += data.RoomW
	case x >= data.RoomW:
		room = g.Neighbor(e.Room, data.DirRight)
		x -= data.RoomW
	case y < 0:
		room = g.Neighbor(e.Room, data.DirUp)
		y += data.RoomH
	case y >= data.RoomH:
		room = g.Neighbor(e.Room, data.DirDown)
		y -= data.RoomH
	}
	if room < 0 || int(room) >= data.RoomCount {
		return InvalidKey
	}
	col := (x + 8) >> 4
	row := (y - 8) / 72
	if col < 0 || col > 15 || row < 0 || row > 2 {
		return InvalidKey
	}
	return MakeKey(uint8(room), row, col)
}

// FindBucket returns this frame's bucket for key, or -1.
func (g *Grid) FindBucket(key Key) int {
	for b := 0; b < g.nbuckets; b++ {
		if g.keys[b] == key {
			return b
		}
	}
	return -1
}

// Place records the cells covered by entity idx: Span steps of 16px from its
// position. Any step off the window leaves the entity unplaced with no bucket
// changed. Entities sharing a bucket with a wake-on-collide entity activate it.
func (g *Grid) Place(s *world.State, idx ecs.Index) error {
	e := &s.Live[idx]
	span := int(s.Template(idx).Span)
	e.CollisionSlot = world.NoLink
	if span == 0 {
		return nil
	}
	if span > SlotPoolSize {
		return fault.Enginef("place", "entity %d: span %d exceeds slot pool %d", idx, span, SlotPoolSize)
	}

	usedBefore, bucketsBefore := g.used, g.nbuckets
	g.undo = g.undo[:0]
	g.wake = g.wake[:0]
	prev := Nil
	first := -1
	for c := 0; c < span; c++ {
		if g.used >= SlotPoolSize {
			g.rollback(usedBefore, bucketsBefore)
			return fault.Engine("place", ErrSlotsExhausted)
		}
		key := g.GridPos(e, c*16)
		if key == InvalidKey {
			g.rollback(usedBefore, bucketsBefore)
			return nil
		}
		id := uint16(g.used)
		g.used++
		sl := &g.slots[id]
		*sl = Slot{Key: key, Entity: idx, Prev: Nil, NextBucket: Nil}

		b := g.FindBucket(key)
		if b >= 0 {
			g.undo = append(g.undo, undoHead{bucket: b, head: g.heads[b]})
			sl.Prev = g.heads[b]
			g.heads[b] = id
			g.wake = append(g.wake, idx)
			if sl.Prev != Nil {
				g.wake = append(g.wake, g.slots[sl.Prev].Entity)
			}
		} else {
			b = g.nbuckets
			g.heads[b] = id
			g.keys[b] = key
			g.nbuckets++
		}
		if prev == Nil {
			first = b
		} else {
			g.slots[prev].NextBucket = uint16(b)
		}
		prev = id
	}

	e.CollisionSlot = uint8(first)
	for _, w := range g.wake {
		if s.Live[w].Flags&world.FlagWakeOnCollide != 0 {
			s.Activate(w)
		}
	}
	return nil
}

func (g *Grid) rollback(used, buckets int) {
	for i := len(g.undo) - 1; i >= 0; i-- {
		g.heads[g.undo[i].bucket] = g.undo[i].head
	}
	g.undo = g.undo[:0]
	g.used = used
	g.nbuckets = buckets
}

// PrepareRoom rebuilds the left/current/right caches around room from this
// frame's buckets.
func (g *Grid) PrepareRoom(room uint8) {
	g.clearCache()
	g.leftRoom = g.Neighbor(room, data.DirLeft)
	g.rightRoom = g.Neighbor(room, data.DirRight)
	for b := 0; b < g.nbuckets; b++ {
		k := g.keys[b]
		cell := int(k & 0x3F)
		switch r := int8(k.Room()); {
		case uint8(r) == room:
			g.cache[CacheCurrent+cell] = uint8(b)
		case r == g.leftRoom:
			g.cache[CacheLeft+cell] = uint8(b)
		case r == g.rightRoom:
			g.cache[CacheRight+cell] = uint8(b)
		}
	}
}

// SideRooms returns the rooms cached left and right of the current room.
func (g *Grid) SideRooms() (left, right int8) { return g.leftRoom, g.rightRoom }

// CachedBucket returns the bucket cached at cache index i, or -1.
func (g *Grid) CachedBucket(i int) int {
	if i < 0 || i >= CacheSize || g.cache[i] == CacheEmpty {
		return -1
	}
	return int(g.cache[i])
}

// EachInBucket calls fn for every occupant of bucket b, newest first, until fn
// returns false.
func (g *Grid) EachInBucket(b int, fn func(sl *Slot) bool) {
	if b < 0 || b >= g.nbuckets {
		return
	}
	for id := g.heads[b]; id != Nil; id = g.slots[id].Prev {
		if !fn(&g.slots[id]) {
			return
		}
	}
}

// Occupants returns the entities of bucket b, newest first.
func (g *Grid) Occupants(b int) []ecs.Index {
	var out []ecs.Index
	g.EachInBucket(b, func(sl *Slot) bool {
		out = append(out, sl.Entity)
		return true
	})
	return out
}

// Walk visits every occupant of every bucket covered by self, starting at
// bucket first (the entity's CollisionSlot). self is visited too. Stops and
// returns true as soon as fn does.
func (g *Grid) Walk(first uint8, self ecs.Index, fn func(other ecs.Index) bool) bool {
	b := first
	for b != world.NoLink {
		if int(b) >= g.nbuckets {
			return false
		}
		cur := b
		b = world.NoLink
		for id := g.heads[cur]; id != Nil; id = g.slots[id].Prev {
			sl := &g.slots[id]
			if fn(sl.Entity) {
				return true
			}
			if sl.Entity == self {
				b = uint8(sl.NextBucket)
			}
			if b == cur {
				return false
			}
		}
	}
	return false
}

// Remove unlinks every slot of idx so later queries this frame miss it.
func (g *Grid) Remove(idx ecs.Index) {
	for b := 0; b < g.nbuckets; b++ {
		prev := Nil
		for id := g.heads[b]; id != Nil; {
			next := g.slots[id].Prev
			if g.slots[id].Entity == idx {
				if prev == Nil {
					g.heads[b] = next
				} else {
					g.slots[prev].Prev = next
				}
			} else {
				prev = id
			}
			id = next
		}
	}
}

// Buckets returns the number of buckets built this frame.
func (g *Grid) Buckets() int { return g.nbuckets }

// Frame is the serialisable part of the grid between two ticks.
type Frame struct {
	Slots     []Slot
	Heads     []uint16
	Keys      []Key
	Cache     [CacheSize]uint8
	LeftRoom  int8
	RightRoom int8
}

// Frame copies out the current buckets and caches.
func (g *Grid) Frame() Frame {
	f := Frame{
		Slots:     append([]Slot(nil), g.slots[:g.used]...),
		Heads:     append([]uint16(nil), g.heads[:g.nbuckets]...),
		Keys:      append([]Key(nil), g.keys[:g.nbuckets]...),
		Cache:     g.cache,
		LeftRoom:  g.leftRoom,
		RightRoom: g.rightRoom,
	}
	return f
}

// SetFrame replaces the buckets and caches.
func (g *Grid) SetFrame(f Frame) error {
	if len(f.Slots) > SlotPoolSize || len(f.Heads) > SlotPoolSize || len(f.Heads) != len(f.Keys) {
		return fault.Corrupt("restore grid", "%d slots, %d heads, %d keys", len(f.Slots), len(f.Heads), len(f.Keys))
	}
	if err := f.check(); err != nil {
		return err
	}
	g.used = copy(g.slots[:], f.Slots)
	copy(g.heads[:], f.Heads)
	g.nbuckets = copy(g.keys[:], f.Keys)
	g.cache = f.Cache
	g.leftRoom, g.rightRoom = f.LeftRoom, f.RightRoom
	return nil
}

// check rejects bucket chains that leave the slot list, share slots or loop,
// and same-entity bucket links that loop back past their start.
func (f *Frame) check() error {
	seen := make([]bool, len(f.Slots))
	next := make(map[[2]int]int) // (entity, bucket) → next bucket
	for b, head := range f.Heads {
		for id := head; id != Nil; id = f.Slots[id].Prev {
			if int(id) >= len(f.Slots) || seen[id] {
				return fault.Corrupt("restore grid", "bucket %d reaches slot %d twice or out of %d", b, id, len(f.Slots))
			}
			seen[id] = true
			sl := f.Slots[id]
			if sl.NextBucket != Nil && int(sl.NextBucket) >= len(f.Heads) {
				return fault.Corrupt("restore grid", "slot %d links to bucket %d of %d", id, sl.NextBucket, len(f.Heads))
			}
			next[[2]int{int(sl.Entity), b}] = int(sl.NextBucket)
		}
	}
	for k := range next {
		b := k[1]
		for steps := 0; b != int(Nil); steps++ {
			if steps > len(f.Heads) {
				return fault.Corrupt("restore grid", "entity %d bucket links loop", k[0])
			}
			n, ok := next[[2]int{k[0], b}]
			if !ok || n == b {
				break
			}
			b = n
		}
	}
	return nil
}

// Cells exposes the mutable collision table.
func (g *Grid) Cells() []int8 { return g.ct }
