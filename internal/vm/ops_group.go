package vm

import (
	"strconv"

	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/group"
	"github.com/pgesim/engine/internal/world"
)

// Opcodes the interpreter itself inspects when deciding whether a program
// reacts to a signal.
const (
	opIsInGroup      uint8 = 0x22
	opIsInGroupSlice uint8 = 0x6B
	opForwardGroup   uint8 = 0x6F
)

func registerGroupOps(reg *Registry) {
	reg.Register(opIsInGroup, "isInGroup", func(m *Machine, a Args) uint16 {
		_, ok := m.Groups.Find(m.ctx.Index, uint16(a.A))
		return boolRes(ok, 0xFFFF)
	})
	for n := 0; n < 4; n++ {
		reg.Register(0x23+uint8(n), "updateGroup"+strconv.Itoa(n), updateCounterGroup(n))
		reg.Register(0x38+uint8(n), "isInGroup"+strconv.Itoa(n+1), inGroupFrom(n))
	}
	reg.Register(opIsInGroupSlice, "isInGroupSlice", func(m *Machine, a Args) uint16 {
		lo, hi := uint16(1), uint16(2)
		if a.A != 0 {
			lo, hi = 3, 4
		}
		hit := false
		m.Groups.Chain(m.ctx.Index, func(g group.Entry) bool {
			hit = g.Tag == lo || g.Tag == hi
			return !hit
		})
		return boolRes(hit, 1)
	})
	reg.Register(opForwardGroup, "forwardGroup", func(m *Machine, a Args) uint16 {
		g, ok := m.Groups.Find(m.ctx.Index, uint16(a.A))
		if !ok {
			return 0
		}
		m.updateGroup(m.ctx.Index, g.Source, 0xC)
		return 1
	})

	reg.Register(0x2F, "pickupObject", func(m *Machine, a Args) uint16 {
		it := m.findPiege(m.self(), uint16(data.ObjectPickup))
		if it == nil {
			return 0
		}
		m.updateGroup(m.ctx.Index, it.Index, uint16(a.A))
		return 0xFFFF
	})
	reg.Register(0x33, "removeItemFromInventory", func(m *Machine, a Args) uint16 {
		if inv := m.self().CurrentInventory; inv != world.NoLink {
			m.updateGroup(m.ctx.Index, ecs.Index(inv), uint16(a.A))
		}
		return 1
	})
	reg.Register(0x48, "notifyIfLifeEqual", notifyByLife(func(x, y int16) bool { return x == y }))
	reg.Register(0x6C, "notifyIfLifeAtMost", notifyByLife(func(x, y int16) bool { return x <= y }))
	reg.Register(0x60, "findAndCopyPiege", func(m *Machine, a Args) uint16 {
		g, ok := m.Groups.Find(m.ctx.Index, uint16(a.A))
		if !ok {
			return 0
		}
		m.copyPiege(m.self(), &m.State.Live[g.Source])
		return 1
	})
	reg.Register(0x6E, "giveToSignaller", func(m *Machine, a Args) uint16 {
		g, ok := m.Groups.Find(m.ctx.Index, uint16(a.A))
		if !ok {
			return 0
		}
		m.State.UpdateInventory(uint8(g.Source), uint8(m.ctx.Index))
		return 0xFFFF
	})
	reg.Register(0x70, "notifyInventory", func(m *Machine, a Args) uint16 {
		for _, item := range m.State.Inventory(uint8(m.ctx.Index)) {
			m.updateGroup(m.ctx.Index, ecs.Index(item), uint16(a.A))
		}
		return 1
	})
	reg.Register(0x71, "detachSignaller", func(m *Machine, a Args) uint16 {
		g, ok := m.Groups.Find(m.ctx.Index, uint16(a.A))
		if !ok {
			return 0
		}
		m.State.Reorder(uint8(g.Source))
		return 1
	})
	reg.Register(0x73, "giveToColliding", func(m *Machine, a Args) uint16 {
		it := m.findPiege(m.self(), uint16(a.A))
		if it == nil {
			return 0
		}
		m.State.UpdateInventory(uint8(it.Index), uint8(m.ctx.Index))
		return 0xFFFF
	})
	reg.Register(0x7C, "notifyColliding", func(m *Machine, a Args) uint16 {
		e := m.self()
		it := m.findPiege(e, 3)
		if it == nil {
			it = m.findPiege(e, 5)
		}
		if it == nil {
			it = m.findPiege(e, 9)
		}
		if it == nil {
			it = m.findPiege(e, 0xFFFF)
		}
		if it != nil {
			m.updateGroup(m.ctx.Index, it.Index, uint16(a.A))
		}
		return 0
	})

	registerZOrderOps(reg)
}

// updateCounterGroup signals the entity named by template counter n.
func updateCounterGroup(n int) OpFunc {
	return func(m *Machine, a Args) uint16 {
		t := m.entity(int(m.counter(n)))
		if t == nil {
			return 0
		}
		m.updateGroup(m.ctx.Index, t.Index, uint16(a.A))
		return 0xFFFF
	}
}

// inGroupFrom holds when tag a.A is pending from the entity named by
// template counter n.
func inGroupFrom(n int) OpFunc {
	return func(m *Machine, a Args) uint16 {
		src := m.counter(n)
		hit := false
		m.Groups.Chain(m.ctx.Index, func(g group.Entry) bool {
			hit = g.Tag == uint16(a.A) && int16(g.Source) == src
			return !hit
		})
		return boolRes(hit, 1)
	}
}

// notifyByLife signals the object the player stands on (of the type in
// counter 0) when its life compares to ours.
func notifyByLife(cmp func(other, self int16) bool) OpFunc {
	return func(m *Machine, a Args) uint16 {
		it := m.findPiege(m.State.Player(), uint16(m.counter(0)))
		if it == nil || !cmp(it.Life, m.self().Life) {
			return 0
		}
		m.updateGroup(m.ctx.Index, it.Index, uint16(a.A))
		return 1
	}
}

// copyPiege moves dst onto src: position, room and facing. dst leaves any
// inventory it was carried in.
func (m *Machine) copyPiege(dst, src *world.Live) {
	dst.PosX = src.PosX
	dst.PosY = src.PosY
	dst.Room = src.Room
	dst.Flags &^= world.FlagFacingLeft
	dst.Flags |= src.Flags & world.FlagFacingLeft
	m.State.Reorder(uint8(dst.Index))
	m.State.Relocate(dst.Index)
}

func registerZOrderOps(reg *Registry) {
	reg.Register(0x2B, "zorderIfTypeAndDifferentDirection", func(m *Machine, a Args) uint16 {
		return m.zorder(m.self(), a.A, zIfTypeAndDirection(false), 0)
	})
	reg.Register(0x2C, "zorderIfTypeAndSameDirection", func(m *Machine, a Args) uint16 {
		return m.zorder(m.self(), a.A, zIfTypeAndDirection(true), 0)
	})
	reg.Register(0x2D, "zorderNotByObj", func(m *Machine, a Args) uint16 {
		return m.zorder(m.self(), a.A, zByObj, 0) ^ 1
	})
	reg.Register(0x50, "zorderByObj", func(m *Machine, a Args) uint16 {
		return m.zorder(m.self(), a.A, zByObj, 0)
	})
	reg.Register(0x3C, "zorderByAnimYIfType", func(m *Machine, a Args) uint16 {
		return m.zorder(m.self(), a.A, zByAnimYIfType, a.B)
	})
	reg.Register(0x3D, "zorderByAnimY", func(m *Machine, a Args) uint16 {
		return m.zorder(m.self(), a.A, zByAnimY, 0)
	})
	reg.Register(0x45, "zorderByNumber", func(m *Machine, a Args) uint16 {
		return m.zorder(m.self(), a.A, zByNumber, 0)
	})
	reg.Register(0x46, "zorderIfDifferentDirection", func(m *Machine, a Args) uint16 {
		m.Scratch.CompareVar1 = 0
		m.zorder(m.self(), a.A, zIfDifferentDirection, 0)
		return m.Scratch.CompareVar1
	})
	reg.Register(0x47, "zorderIfSameDirection", func(m *Machine, a Args) uint16 {
		m.Scratch.CompareVar2 = 0
		m.zorder(m.self(), a.A, zIfSameDirection, 0)
		return m.Scratch.CompareVar2
	})
	reg.Register(0x49, "zorderIfIndex", func(m *Machine, a Args) uint16 {
		return m.zorder(m.State.Player(), a.A, zIfIndex, m.counter(0))
	})
	reg.Register(0x7E, "zorderByIndex", func(m *Machine, a Args) uint16 {
		m.Scratch.CompareVar1 = 0
		m.zorder(m.self(), a.A, zByIndex, 0)
		return m.Scratch.CompareVar1
	})
}
