package vm

import (
	"github.com/pgesim/engine/internal/collision"
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
)

// hitFunc is evaluated for every occupant of a scanned cell.
type hitFunc func(m *Machine, other, self *world.Live, a, b int16) uint16

// stopFunc is evaluated after each scanned cell; non-zero ends the scan.
// dy is the row offset accumulated so far, step the cell count.
type stopFunc func(m *Machine, dy, step int, a int16) uint16

// scanDirection derives the scan bounds from a template counter: positive
// counts scan behind the entity, zero or negative counts ahead.
func (m *Machine) scanDirection(thr int16) (dx, dy, n int) {
	dx, dy, n = -1, -1, int(thr)
	if thr <= 0 {
		dx, dy, n = 1, 1, -n
	}
	if m.ctx.FacingLeft {
		dx = -dx
	}
	return dx, dy, n
}

// detectHit walks the entity's occupancy row cell by cell, summing each over
// the occupants, until stop holds or the counter-0 range is exhausted.
// The sum is only returned when scored is set.
func (m *Machine) detectHit(a, b int16, each hitFunc, stop stopFunc, skipOwn, scored bool) uint16 {
	s := m.State
	e := m.self()
	if !world.ValidRoom(e.Room) {
		return 0
	}
	room := int8(e.Room)
	dx, dy, thr := m.scanDirection(m.tpl().Counters[0])
	gx := (int(e.PosX) + 8) >> 4
	gy := int(e.PosY) / 72
	if gy < 0 || gy > 2 {
		return 0
	}

	var score uint16
	rowDY, step := 0, 0
	if skipOwn {
		rowDY = dy
		gx += dx
		step = 1
	}
	for step <= thr {
		if gx < 0 {
			if room = m.Grid.Neighbor(uint8(room), data.DirLeft); room < 0 {
				break
			}
			gx += data.RoomCols
		}
		if gx >= data.RoomCols {
			if room = m.Grid.Neighbor(uint8(room), data.DirRight); room < 0 {
				break
			}
			gx -= data.RoomCols
		}
		bucket := m.Grid.FindBucket(collision.MakeKey(uint8(room), gy, gx))
		m.Grid.EachInBucket(bucket, func(sl *collision.Slot) bool {
			score += each(m, &s.Live[sl.Entity], e, a, b)
			return true
		})
		if stop(m, rowDY, step, a) != 0 {
			break
		}
		gx += dx
		step++
		rowDY += dy
	}
	if scored {
		return score
	}
	return 0
}

// detectGunHit is the projectile variant: it scans the row the entity aims
// at, stops at the first occupant hit and fails when the shot leaves the map.
func (m *Machine) detectGunHit(a, b int16, each hitFunc, stop stopFunc, longRange bool) uint16 {
	s := m.State
	e := m.self()
	if !world.ValidRoom(e.Room) {
		return 0
	}
	room := int8(e.Room)
	thr := m.tpl().Counters[3]
	if longRange {
		thr = m.tpl().Counters[0]
	}
	dx, dy, n := m.scanDirection(thr)
	gx := (int(e.PosX) + 8) >> 4
	gy := (int(e.PosY) - 8) / 72
	if gy < 0 || gy > 2 {
		return 0
	}

	rowDY, step := dy, 1
	gx += dx
	for step <= n {
		if gx < 0 {
			if room = m.Grid.Neighbor(uint8(room), data.DirLeft); room < 0 {
				return 0
			}
			gx += data.RoomCols
		}
		if gx >= data.RoomCols {
			if room = m.Grid.Neighbor(uint8(room), data.DirRight); room < 0 {
				return 0
			}
			gx -= data.RoomCols
		}
		var r uint16
		bucket := m.Grid.FindBucket(collision.MakeKey(uint8(room), gy, gx))
		m.Grid.EachInBucket(bucket, func(sl *collision.Slot) bool {
			r = each(m, &s.Live[sl.Entity], e, a, b)
			return r == 0
		})
		if r != 0 {
			return r
		}
		if stop(m, rowDY, step, a) != 0 {
			break
		}
		gx += dx
		step++
		rowDY += dy
	}
	return 0
}

// wallAhead stops a melee scan at the first solid middle-row cell.
func wallAhead(m *Machine, dy, _ int, _ int16) uint16 {
	return boolRes(m.grid(1, dy) != 0, 1)
}

// neverStop scans the full range.
func neverStop(*Machine, int, int, int16) uint16 { return 0 }

// shotBlocked stops a projectile at solid cells; with a == 1 cells flagged 2
// let the shot through.
func shotBlocked(m *Machine, dy, _ int, a int16) uint16 {
	v := m.grid(1, dy)
	if v != 0 && (v&2 == 0 || a != 1) {
		return uint16(v)
	}
	return 0
}

// meleeTarget matches an active entity of object type b facing the given
// way relative to self whose program does not already listen for tag a.
func meleeTarget(sameFacing, notify bool) hitFunc {
	return func(m *Machine, other, self *world.Live, a, b int16) uint16 {
		if other == self || !other.Active() {
			return 0
		}
		if int16(m.State.Template(other.Index).ObjectType) != b {
			return 0
		}
		if (other.FacingLeft() == self.FacingLeft()) != sameFacing {
			return 0
		}
		if m.listensFor(other, uint16(a)) {
			return 0
		}
		if notify {
			m.updateGroup(self.Index, other.Index, uint16(a))
		}
		return 1
	}
}

// shotTarget hits an active entity of one of types when its program reacts
// to the matching hit tag: 1|2 from behind, 3|4 from the front, the odd tag
// when b is 0.
func shotTarget(types ...uint8) hitFunc {
	return func(m *Machine, other, self *world.Live, _, b int16) uint16 {
		if other == self || !other.Active() {
			return 0
		}
		ot := m.State.Template(other.Index).ObjectType
		ok := false
		for _, t := range types {
			if ot == t {
				ok = true
				break
			}
		}
		if !ok {
			return 0
		}
		var id uint16 = 2
		if other.FacingLeft() != self.FacingLeft() {
			id = 4
		}
		if b == 0 {
			id--
		}
		if !m.listensFor(other, id) {
			return 0
		}
		m.updateGroup(self.Index, other.Index, id)
		return 1
	}
}

// listensFor reports whether e's current program tests for signal tag.
func (m *Machine) listensFor(e *world.Live, tag uint16) bool {
	node, err := m.State.Node(e.Index)
	if err != nil {
		m.fail(err)
		return false
	}
	for i := int(e.FirstObj); i < int(node.LastObj); i++ {
		d := node.At(i)
		if d == nil || d.Type != e.ObjType {
			break
		}
		if listens(d.Op2, d.Arg2, tag, false) || listens(d.Op1, d.Arg1, tag, false) {
			return true
		}
	}
	return false
}

// findPiege returns the first other occupant of e's first cell whose object
// type is typ (0xFFFF for any).
func (m *Machine) findPiege(e *world.Live, typ uint16) *world.Live {
	if e.CollisionSlot == world.NoLink {
		return nil
	}
	var found *world.Live
	m.Grid.EachInBucket(int(e.CollisionSlot), func(sl *collision.Slot) bool {
		if sl.Entity == e.Index {
			return true
		}
		if typ == 0xFFFF || uint16(m.State.Template(sl.Entity).ObjectType) == typ {
			found = &m.State.Live[sl.Entity]
			return false
		}
		return true
	})
	return found
}

// collidingObject returns the colliding icon of the first occupant of e's
// first cell whose object type is one of types, with the last occupant
// visited.
func (m *Machine) collidingObject(e *world.Live, types ...uint8) (uint8, *world.Live) {
	last := e
	if e.CollisionSlot == world.NoLink {
		return 0, last
	}
	var icon uint8
	m.Grid.EachInBucket(int(e.CollisionSlot), func(sl *collision.Slot) bool {
		last = &m.State.Live[sl.Entity]
		tpl := m.State.Template(sl.Entity)
		for _, t := range types {
			if tpl.ObjectType == t {
				icon = tpl.CollidingIcon
				return false
			}
		}
		return true
	})
	return icon, last
}

// CollidingObject reports the icon of the pickup or trigger the entity is
// standing on, for the HUD.
func (m *Machine) CollidingObject(idx ecs.Index) (icon uint8, with ecs.Index) {
	e := &m.State.Live[idx]
	icon, last := m.collidingObject(e, data.ObjectPickup)
	if icon == 0 {
		icon, last = m.collidingObject(last, 5, 9)
	}
	return icon, last.Index
}

// rowWalk is the state of a scan along the entity's row: the linear index
// into the room caches, the linear index into the collision table, and the
// column and cache area the two are tracking.
type rowWalk struct {
	m     *Machine
	self  *world.Live
	match func(o *world.Live) bool
	room  uint8
	area  int
	gy    int
	col   int
	slot  int
	ct    int
}

// rowBase is the collision table index of column 0 of the walked row in room.
func (w *rowWalk) rowBase(room uint8) int {
	return data.CTGrid + int(room)*data.RoomCells + (2*w.gy+1)*data.RoomCols
}

// occupied reports whether the cache cell at w.slot holds an active occupant
// other than the walker that match accepts. Indexes outside the cache hold
// nothing.
func (w *rowWalk) occupied() bool {
	found := false
	w.m.Grid.EachInBucket(w.m.Grid.CachedBucket(w.slot), func(sl *collision.Slot) bool {
		o := &w.m.State.Live[sl.Entity]
		if o != w.self && o.Active() && w.match(o) {
			found = true
			return false
		}
		return true
	})
	return found
}

// wall reads the collision table at w.ct. Past the table reads as solid.
func (w *rowWalk) wall() bool {
	ct := w.m.Grid.Cells()
	if w.ct < 0 || w.ct >= len(ct) {
		return true
	}
	return ct[w.ct] != 0
}

// enterLeft moves the walk into the room on the left. The slot index is only
// moved back 31 cells, so the first cache read after the wrap lands one cell
// past column 15 of the new area.
func (w *rowWalk) enterLeft() bool {
	if w.area--; w.area < 0 {
		return false
	}
	nb := w.m.Grid.Neighbor(w.room, data.DirLeft)
	if nb < 0 {
		return false
	}
	w.room, w.col = uint8(nb), data.RoomCols-1
	w.ct = w.rowBase(w.room) + data.RoomCols
	w.slot -= 31
	return true
}

// enterRight moves the walk into the room on the right. ctCol is the table
// column the walk resumes at.
func (w *rowWalk) enterRight(slotJump, ctCol int) bool {
	if w.area++; w.area > 2 {
		return false
	}
	nb := w.m.Grid.Neighbor(w.room, data.DirRight)
	if nb < 0 {
		return false
	}
	w.room, w.col = uint8(nb), 0
	w.ct = w.rowBase(w.room) + ctCol
	w.slot += slotJump
	return true
}

// startRow sets up a walk from the entity's cell. ok is false when the
// entity is outside the three cached rooms or off the three scan rows.
func (m *Machine) startRow(match func(o *world.Live) bool) (w *rowWalk, ok bool) {
	e := m.self()
	if !world.ValidRoom(e.Room) {
		return nil, false
	}
	left, right := m.Grid.SideRooms()
	w = &rowWalk{m: m, self: e, match: match, room: e.Room}
	switch {
	case e.Room == m.State.CurrentRoom:
		w.area = 1
	case int8(e.Room) == left:
		w.area = 0
	case int8(e.Room) == right:
		w.area = 2
	default:
		return nil, false
	}
	w.col = (int(e.PosX) + 8) >> 4
	w.gy = int(e.PosY) / 72
	if w.gy < 0 || w.gy > 2 {
		return nil, false
	}
	w.slot = w.area*collision.CacheCurrent + w.gy*data.RoomCols + w.col
	w.ct = w.rowBase(w.room) + w.col
	return w, true
}

// rowReach mirrors n by facing and returns the clamped cell budget together
// with the direction: a non-negative count walks left.
func (m *Machine) rowReach(n int16) (cx int, leftward bool) {
	cx = int(n)
	if m.ctx.FacingLeft {
		cx = -cx
	}
	leftward = cx >= 0
	if cx < 0 {
		cx = -cx
	}
	return min(cx, 16), leftward
}

// typeInRow looks along the row for an active occupant match accepts (opcode
// 0x40). Leftward the walk starts one cell out; rightward the wall column
// starts one cell out and the cache read two cells out. Both check at least
// one cell and at most n. A solid cell in the row below the scan line ends it.
func (m *Machine) typeInRow(n int16, match func(o *world.Live) bool) uint16 {
	w, ok := m.startRow(match)
	if !ok {
		return 0
	}
	cx, leftward := m.rowReach(n)
	if leftward {
		for left := cx - 1; ; left-- {
			if w.col--; w.col < 0 && !w.enterLeft() {
				return 0
			}
			w.slot--
			if w.occupied() {
				return 1
			}
			w.ct--
			if w.wall() {
				return 0
			}
			if left <= 0 {
				return 0
			}
		}
	}
	w.slot++
	w.ct++
	for left := cx - 1; ; left-- {
		if w.col++; w.col == data.RoomCols && !w.enterRight(32, 1) {
			return 0
		}
		w.slot++
		if w.occupied() {
			return 1
		}
		hit := w.wall()
		w.ct++
		if hit {
			return 0
		}
		if left <= 0 {
			return 0
		}
	}
}

// fighterInRow is the fighter variant (opcode 0x6A). Leftward it starts on
// the entity's own cell, rightward on the next one, and checks n+1 cells.
func (m *Machine) fighterInRow(n int16, match func(o *world.Live) bool) uint16 {
	w, ok := m.startRow(match)
	if !ok {
		return 0
	}
	cx, leftward := m.rowReach(n)
	w.slot++
	w.ct++
	if leftward {
		for left := cx; ; left-- {
			if w.col--; w.col < 0 && !w.enterLeft() {
				return 0
			}
			w.slot--
			if w.occupied() {
				return 1
			}
			w.ct--
			if w.wall() {
				return 0
			}
			if left <= 0 {
				return 0
			}
		}
	}
	for left, first := cx, true; ; left-- {
		if !first {
			if w.col++; w.col == data.RoomCols && !w.enterRight(32, 0) {
				return 0
			}
		}
		first = false
		found := w.occupied()
		w.slot++
		if found {
			return 1
		}
		hit := w.wall()
		w.ct++
		if hit {
			return 0
		}
		if left <= 0 {
			return 0
		}
	}
}

// zorderFunc compares an occupant (other) of the entity's cells with the
// entity itself. comp and comp2 are opcode-specific.
type zorderFunc func(m *Machine, other, self *world.Live, comp, comp2 int16) uint16

// zorder walks every occupant of every cell e covers, self included, and
// returns 1 as soon as cmp holds.
func (m *Machine) zorder(e *world.Live, comp int16, cmp zorderFunc, comp2 int16) uint16 {
	s := m.State
	hit := m.Grid.Walk(e.CollisionSlot, e.Index, func(o ecs.Index) bool {
		return cmp(m, &s.Live[o], e, comp, comp2) != 0
	})
	return boolRes(hit, 1)
}

func zByNumber(*Machine, *world.Live, *world.Live, int16, int16) uint16 { return 0 }

func zIfIndex(m *Machine, other, self *world.Live, comp, comp2 int16) uint16 {
	if int16(other.Index) == comp2 {
		return 0
	}
	m.updateGroup(self.Index, other.Index, uint16(comp))
	return 1
}

func zIfSameDirection(m *Machine, other, self *world.Live, comp, _ int16) uint16 {
	if other == self || other.FacingLeft() != self.FacingLeft() {
		return 0
	}
	m.Scratch.CompareVar2 = 1
	m.updateGroup(self.Index, other.Index, uint16(comp))
	return boolRes(self.Index == 0, 0xFFFF)
}

func zIfDifferentDirection(m *Machine, other, self *world.Live, comp, _ int16) uint16 {
	if other == self || other.FacingLeft() == self.FacingLeft() {
		return 0
	}
	m.Scratch.CompareVar1 = 1
	m.updateGroup(self.Index, other.Index, uint16(comp))
	return boolRes(self.Index == 0, 0xFFFF)
}

func (m *Machine) animKind(e *world.Live) int16 {
	a, err := m.anim(e)
	if err != nil {
		m.fail(err)
		return -1
	}
	return int16(a.Kind)
}

func zByAnimYIfType(m *Machine, other, _ *world.Live, comp, comp2 int16) uint16 {
	if int16(m.State.Template(other.Index).ObjectType) != comp2 {
		return 0
	}
	return boolRes(m.animKind(other) == comp, 1)
}

func zByAnimY(m *Machine, other, self *world.Live, comp, _ int16) uint16 {
	if other == self {
		return 0
	}
	return boolRes(m.animKind(other) == comp, 1)
}

func zByIndex(m *Machine, other, self *world.Live, comp, _ int16) uint16 {
	if other != self {
		m.updateGroup(self.Index, other.Index, uint16(comp))
		m.Scratch.CompareVar1 = 0xFFFF
	}
	return 0
}

func zByObj(m *Machine, other, _ *world.Live, comp, _ int16) uint16 {
	if int16(m.State.Template(other.Index).ObjectType) != comp {
		return 0
	}
	if comp == int16(data.ObjectMonster) {
		return boolRes(other.Life >= 0, 1)
	}
	return 1
}

func zIfTypeAndDirection(same bool) zorderFunc {
	return func(m *Machine, other, self *world.Live, comp, _ int16) uint16 {
		if int16(m.State.Template(other.Index).ObjectType) != comp {
			return 0
		}
		return boolRes((other.FacingLeft() == self.FacingLeft()) == same, 1)
	}
}
