package vm

import (
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
)

func registerEntityOps(reg *Registry) {
	reg.Register(0x27, "isPiegeDead", func(m *Machine, a Args) uint16 {
		if m.self().Life > 0 {
			return 0
		}
		if m.tpl().ObjectType == data.ObjectMonster {
			m.State.Score += 100
		}
		return 1
	})
	reg.Register(0x2E, "nop", func(*Machine, Args) uint16 { return 1 })
	reg.Register(0x30, "addItemToInventory", func(m *Machine, a Args) uint16 {
		owner := m.entity(int(a.A))
		if owner == nil {
			return 0
		}
		e := m.self()
		m.State.UpdateInventory(uint8(owner.Index), uint8(e.Index))
		e.Room = world.RoomNone
		m.State.Relocate(e.Index)
		return 0xFFFF
	})
	reg.Register(0x31, "copyPiege", func(m *Machine, a Args) uint16 {
		src := m.entity(int(a.A))
		if src == nil {
			return 0
		}
		m.copyPiege(m.self(), src)
		return 0xFFFF
	})
	reg.Register(0x32, "canUseCurrentInventoryItem", func(m *Machine, a Args) uint16 {
		inv := m.State.Player().CurrentInventory
		if inv == world.NoLink {
			return 0
		}
		return boolRes(int16(m.State.Template(ecs.Index(inv)).ObjectID) == a.A, 1)
	})
	reg.Register(0x3E, "setPiegeCounter", func(m *Machine, a Args) uint16 {
		m.self().CounterValue = a.A
		return 1
	})
	reg.Register(0x3F, "decPiegeCounter", func(m *Machine, a Args) uint16 {
		e := m.self()
		e.CounterValue--
		return boolRes(e.CounterValue == a.A, 0xFFFF)
	})
	reg.Register(0x41, "wakeUpPiege", func(m *Machine, a Args) uint16 {
		if t := m.counterEntity(a.A); t != nil {
			m.State.Activate(t.Index)
		}
		return 1
	})
	reg.Register(0x42, "removePiege", func(m *Machine, a Args) uint16 {
		if t := m.counterEntity(a.A); t != nil {
			m.State.Deactivate(t.Index)
		}
		return 1
	})
	reg.Register(0x43, "removePiegeIfNotNear", opRemoveIfNotNear)
	reg.Register(0x44, "loadPiegeCounter", func(m *Machine, a Args) uint16 {
		m.self().CounterValue = m.counter(int(a.A))
		return 1
	})
	reg.Register(0x4A, "killInventoryPiege", func(m *Machine, a Args) uint16 {
		owner := m.entity(int(a.A))
		if owner == nil {
			return 0
		}
		m.State.Kill(m.ctx.Index)
		m.State.Detach(uint8(owner.Index), uint8(m.ctx.Index))
		return 1
	})
	reg.Register(0x4B, "killPiege", func(m *Machine, a Args) uint16 {
		m.State.Kill(m.ctx.Index)
		if m.tpl().ObjectType == data.ObjectMonster {
			m.State.Score += 200
		}
		return 0xFFFF
	})
	reg.Register(0x4C, "isInCurrentRoom", func(m *Machine, a Args) uint16 {
		return boolRes(m.self().Room == m.State.CurrentRoom, 1)
	})
	reg.Register(0x4D, "isNotInCurrentRoom", func(m *Machine, a Args) uint16 {
		return boolRes(m.self().Room != m.State.CurrentRoom, 1)
	})
	reg.Register(0x4E, "scrollPosY", func(m *Machine, a Args) uint16 {
		e := m.self()
		e.PosY += a.A
		for _, item := range m.State.Inventory(uint8(e.Index)) {
			m.State.Live[item].PosY += a.A
		}
		return 1
	})
	reg.Register(0x54, "isPiegeNear", func(m *Machine, a Args) uint16 {
		return boolRes(m.findPiege(m.State.Player(), uint16(a.A)) != nil, 1)
	})
	reg.Register(0x55, "setLife", func(m *Machine, a Args) uint16 {
		m.self().Life = a.A
		return 1
	})
	reg.Register(0x56, "incLife", func(m *Machine, a Args) uint16 {
		m.self().Life += a.A
		return 1
	})
	reg.Register(0x57, "setPiegeDefaultAnim", opSetDefaultAnim)
	reg.Register(0x58, "setLifeCounter", func(m *Machine, a Args) uint16 {
		t := m.entity(int(a.A))
		if t == nil {
			return 0
		}
		t.Life = m.counter(0)
		return 1
	})
	reg.Register(0x59, "decLifeCounter", func(m *Machine, a Args) uint16 {
		t := m.entity(int(a.A))
		if t == nil {
			return 0
		}
		m.self().Life = t.Life - 1
		return 1
	})
	reg.Register(0x65, "addLifeToCounterPiege", adjustCounterLife(1))
	reg.Register(0x66, "subLifeFromCounterPiege", adjustCounterLife(-1))
	reg.Register(0x6D, "isCollidingObject", func(m *Machine, a Args) uint16 {
		icon, _ := m.collidingObject(m.self(), data.ObjectPickup)
		return boolRes(int16(icon) == a.A, 1)
	})
	reg.Register(0x76, "isBelowConrad", conradVertical(false))
	reg.Register(0x77, "isAboveConrad", conradVertical(true))
	reg.Register(0x78, "isNotFacingConrad", facingConrad(false))
	reg.Register(0x79, "isFacingConrad", facingConrad(true))
	reg.Register(0x80, "setPiegePosX", func(m *Machine, a Args) uint16 {
		if n := uint8(m.counter(0)); n != world.NoLink {
			if t := m.entity(int(n)); t != nil {
				m.self().PosX = t.PosX
			}
		}
		return 0xFFFF
	})
	reg.Register(0x81, "setPiegePosModX", func(m *Machine, a Args) uint16 {
		if n := uint8(m.counter(0)); n != world.NoLink {
			if t := m.entity(int(n)); t != nil {
				e := m.self()
				dx := t.PosX % 256
				if dx >= e.PosX {
					dx -= e.PosX
				}
				e.PosX += dx
			}
		}
		return 0xFFFF
	})
	reg.Register(0x82, "changeRoom", opChangeRoom)
	reg.Register(0x83, "hasInventoryItem", func(m *Machine, a Args) uint16 {
		for _, item := range m.State.Inventory(0) {
			if int16(m.State.Template(ecs.Index(item)).ObjectID) == a.A {
				return 0xFFFF
			}
		}
		return 0
	})
	reg.Register(0x88, "adjustPos", func(m *Machine, a Args) uint16 {
		e := m.self()
		e.PosX &^= 0x0F
		if e.PosY != 70 && e.PosY != 142 && e.PosY != 214 {
			e.PosY = (e.PosY/72+1)*72 - 2
		}
		return 0xFFFF
	})

	registerHitOps(reg)
}

// counterEntity resolves the entity named by template counter n; nil when n
// is out of 0..3 or the counter is negative.
func (m *Machine) counterEntity(n int16) *world.Live {
	if n < 0 || n > 3 {
		return nil
	}
	num := m.tpl().Counters[n]
	if num < 0 {
		return nil
	}
	return m.entity(int(num))
}

// opRemoveIfNotNear drops an entity out of the active table once neither its
// room nor a room next to the current one is on screen. Entities without the
// room-wake flag never come back.
func opRemoveIfNotNear(m *Machine, _ Args) uint16 {
	s := m.State
	e := m.self()
	skip := func() uint16 {
		m.ctx.PlayAnimSound = false
		return 1
	}
	drop := func() uint16 {
		s.Deactivate(e.Index)
		e.CollisionSlot = world.NoLink
		return skip()
	}

	if m.tpl().Flags&data.TplWakeInRoom == 0 {
		return drop()
	}
	if !world.ValidRoom(s.CurrentRoom) {
		return skip()
	}
	if !world.ValidRoom(e.Room) {
		return drop()
	}
	if e.Room == s.CurrentRoom {
		return skip()
	}
	for _, d := range []data.Direction{data.DirUp, data.DirDown, data.DirRight, data.DirLeft} {
		if n := m.Grid.Neighbor(s.CurrentRoom, d); n >= 0 && uint8(n) == e.Room {
			return skip()
		}
	}
	return drop()
}

// opSetDefaultAnim moves the entity to the room in counter a.A and resets its
// sprite to the first frame of the current animation.
func opSetDefaultAnim(m *Machine, a Args) uint16 {
	if a.A < 0 || a.A > 3 {
		return m.fail(fault.Corrupt("opcode", "entity %d: setPiegeDefaultAnim counter %d", m.ctx.Index, a.A))
	}
	e := m.self()
	r := m.tpl().Counters[a.A]
	e.Room = uint8(r)
	m.State.Relocate(e.Index)
	if r == 1 {
		m.State.LoadMap = true
	}
	if err := m.Anim.SetupDefault(e); err != nil {
		return m.fail(err)
	}
	return 1
}

func adjustCounterLife(sign int16) OpFunc {
	return func(m *Machine, a Args) uint16 {
		if a.A < 0 || a.A > 2 {
			return m.fail(fault.Corrupt("opcode", "entity %d: counter pair %d out of range", m.ctx.Index, a.A))
		}
		c := m.tpl().Counters
		t := m.entity(int(c[a.A]))
		if t == nil {
			return 0
		}
		t.Life += sign * c[a.A+1]
		return 1
	}
}

// conradVertical compares the entity's row with the player's: below when the
// player's row is above ours, or the player is in the room above.
func conradVertical(above bool) OpFunc {
	return func(m *Machine, a Args) uint16 {
		e := m.self()
		c := m.State.Player()
		if c.Room == e.Room {
			cy, y := (c.PosY-8)/72, e.PosY/72
			if (!above && cy < y) || (above && cy > y) {
				return 0xFFFF
			}
			return 0
		}
		if !world.ValidRoom(e.Room) {
			return 0
		}
		dir := data.DirUp
		if above {
			dir = data.DirDown
		}
		return boolRes(int8(c.Room) == m.Grid.Neighbor(e.Room, dir), 0xFFFF)
	}
}

// facingConrad checks whether the entity (by its pass facing) looks at the
// player on the same row. a.A == 0 accepts any distance, including the
// player standing in the next room; otherwise the player must be closer
// than a.A cells.
func facingConrad(facing bool) OpFunc {
	return func(m *Machine, a Args) uint16 {
		e := m.self()
		c := m.State.Player()
		if e.PosY/72 != (c.PosY-8)/72 {
			return 0
		}
		left := m.ctx.FacingLeft
		if e.Room == c.Room {
			if a.A == 0 {
				var ok bool
				switch {
				case facing && left:
					ok = e.PosX > c.PosX
				case facing:
					ok = e.PosX <= c.PosX
				case left:
					ok = e.PosX < c.PosX
				default:
					ok = e.PosX > c.PosX
				}
				return boolRes(ok, 0xFFFF)
			}
			dx := c.PosX - e.PosX
			if facing == left {
				dx = -dx
			}
			return boolRes(dx > 0 && int(dx) < int(a.A)*16, 0xFFFF)
		}
		if a.A != 0 || !world.ValidRoom(e.Room) {
			return 0
		}
		dir := data.DirRight
		if facing == left {
			dir = data.DirLeft
		}
		return boolRes(int8(c.Room) == m.Grid.Neighbor(e.Room, dir), 0xFFFF)
	}
}

// opChangeRoom moves the entity named by counter a.A onto the one named by
// counter a.A+1. When both share an object node the mover also takes over
// its animation state. A moved player drags the view along.
func opChangeRoom(m *Machine, a Args) uint16 {
	s := m.State
	if a.A < 0 || a.A > 2 {
		return m.fail(fault.Corrupt("opcode", "entity %d: changeRoom counter %d", m.ctx.Index, a.A))
	}
	c := m.tpl().Counters
	dst := m.entity(int(c[a.A]))
	src := m.entity(int(c[a.A+1]))
	if dst == nil || src == nil {
		return 0
	}
	if !world.ValidRoom(src.Room) {
		return 0xFFFF
	}
	dst.PosX = src.PosX
	dst.PosY = src.PosY
	dst.Room = src.Room
	dst.Flags &^= world.FlagFacingLeft
	dst.Flags |= src.Flags & world.FlagFacingLeft
	s.Relocate(dst.Index)

	dtpl := s.Template(dst.Index)
	if dtpl.ObjNode == s.Template(src.Index).ObjNode {
		dst.ObjType = src.ObjType
		dst.AnimSeq = 0
		node, err := s.Node(dst.Index)
		if err != nil {
			return m.fail(err)
		}
		first, ok := node.FirstOfType(dst.ObjType)
		if !ok {
			return m.fail(fault.Corrupt("opcode", "entity %d: node has no descriptor for type %d", dst.Index, dst.ObjType))
		}
		dst.FirstObj = uint16(first)
	}
	if dtpl.ObjectType == data.ObjectPlayer && s.CurrentRoom != dst.Room {
		s.CurrentRoom = dst.Room
		s.LoadMap = true
	}
	if err := m.Anim.SetupDefault(dst); err != nil {
		return m.fail(err)
	}
	return 0xFFFF
}

func registerHitOps(reg *Registry) {
	reg.Register(0x40, "isTypeInRowAhead", func(m *Machine, a Args) uint16 {
		return m.typeInRow(a.A, func(o *world.Live) bool {
			return int16(m.State.Template(o.Index).ObjectType) == a.B
		})
	})
	reg.Register(0x6A, "isFighterInRowAhead", func(m *Machine, a Args) uint16 {
		return m.fighterInRow(a.A, func(o *world.Live) bool {
			t := m.State.Template(o.Index).ObjectType
			return o.Life >= 0 && (t == data.ObjectPlayer || t == data.ObjectMonster)
		})
	})

	reg.Register(0x52, "hitFacingNotify", func(m *Machine, a Args) uint16 {
		return m.detectHit(a.A, a.B, meleeTarget(false, true), wallAhead, false, false)
	})
	reg.Register(0x53, "hitBehindNotify", func(m *Machine, a Args) uint16 {
		return m.detectHit(a.A, a.B, meleeTarget(true, true), wallAhead, false, false)
	})
	reg.Register(0x5D, "hitFacingNotifyThroughWalls", func(m *Machine, a Args) uint16 {
		return m.detectHit(a.A, a.B, meleeTarget(false, true), neverStop, false, false)
	})
	reg.Register(0x5E, "hitBehindNotifyThroughWalls", func(m *Machine, a Args) uint16 {
		return m.detectHit(a.A, a.B, meleeTarget(true, true), neverStop, false, false)
	})
	reg.Register(0x62, "countFacing", func(m *Machine, a Args) uint16 {
		return m.detectHit(a.A, a.B, meleeTarget(false, false), wallAhead, false, true)
	})
	reg.Register(0x63, "countBehind", func(m *Machine, a Args) uint16 {
		return m.detectHit(a.A, a.B, meleeTarget(true, false), wallAhead, false, true)
	})
	reg.Register(0x64, "gunHitLongRange", func(m *Machine, a Args) uint16 {
		return m.detectGunHit(a.A, a.B, shotTarget(data.ObjectPlayer, 12, data.ObjectMonster), shotBlocked, true)
	})
	reg.Register(0x86, "gunHit", func(m *Machine, a Args) uint16 {
		return m.detectGunHit(a.A, a.B, shotTarget(data.ObjectPlayer, data.ObjectMonster), shotBlocked, false)
	})

	reg.Register(0x5F, "snapToWall", opSnapToWall)
	reg.Register(0x7F, "isFreeOfPickups", func(m *Machine, a Args) uint16 {
		s := m.State
		e := m.self()
		blocked := m.Grid.Walk(e.CollisionSlot, e.Index, func(o ecs.Index) bool {
			if o == e.Index {
				return false
			}
			other := &s.Live[o]
			return s.Template(o).ObjectType == data.ObjectPickup && other.Owner != uint8(e.Index)
		})
		return boolRes(!blocked, 0xFFFF)
	})
}

// opSnapToWall steps along the middle row, up to counter 0 cells, and moves
// the entity to the first solid cell it meets. With a.A == 1 cells flagged 2
// do not count.
func opSnapToWall(m *Machine, a Args) uint16 {
	e := m.self()
	room := e.Room
	if !world.ValidRoom(room) {
		return 0
	}
	cx := int(m.tpl().Counters[0])
	dx := -1
	if cx <= 0 {
		dx = 1
		cx = -cx
	}
	if m.ctx.FacingLeft {
		dx = -dx
	}
	gx := (int(e.PosX) + 8) >> 4
	for i := 0; i <= cx; i++ {
		if v := m.grid(1, -i); v != 0 && (v&2 == 0 || a.A != 1) {
			e.Room = room
			e.PosX = int16(gx * 16)
			m.State.Relocate(e.Index)
			return 1
		}
		if gx < 0 {
			nb := m.Grid.Neighbor(room, data.DirLeft)
			if nb < 0 {
				return 0
			}
			room = uint8(nb)
			gx += data.RoomCols
		} else if gx >= data.RoomCols {
			nb := m.Grid.Neighbor(room, data.DirRight)
			if nb < 0 {
				return 0
			}
			room = uint8(nb)
			gx -= data.RoomCols
		}
		gx += dx
	}
	return 0
}
