package vm

import "github.com/pgesim/engine/internal/core/fault"

func registerMiscOps(reg *Registry) {
	reg.Register(0x4F, "playDefaultDeathCutscene", func(m *Machine, a Args) uint16 {
		if m.State.DeathCounter == 0 {
			m.State.DeathCounter = int(a.A)
		}
		return 1
	})
	reg.Register(0x5A, "playCutscene", func(m *Machine, a Args) uint16 {
		if m.State.DeathCounter == 0 {
			m.Host.Cutscene(uint16(a.A))
		}
		return 1
	})
	reg.Register(0x5B, "isTempVar2Set", func(m *Machine, a Args) uint16 {
		return boolRes(m.Scratch.TempVar2 == uint16(a.A), 0xFFFF)
	})
	reg.Register(0x5C, "playDeathCutscene", func(m *Machine, a Args) uint16 {
		s := m.State
		if s.DeathCounter == 0 {
			s.DeathCounter = int(m.tpl().Counters[3]) + 1
			s.DeathCutscene = uint16(a.A)
		}
		return 1
	})
	reg.Register(0x61, "isInRandomRange", func(m *Machine, a Args) uint16 {
		n := uint16(a.A)
		if n == 0 {
			return 0
		}
		return boolRes(m.Host.Random()%n == 0, 1)
	})
	reg.Register(0x69, "saveState", func(m *Machine, a Args) uint16 {
		m.Host.SaveState()
		return 0xFFFF
	})
	reg.Register(0x7B, "displayText", func(m *Machine, a Args) uint16 {
		m.State.Text = uint16(a.A)
		return 0xFFFF
	})
	reg.Register(0x7D, "playSound", func(m *Machine, a Args) uint16 {
		v := uint16(a.A)
		m.Host.PlaySound(uint8(v), uint8(v>>8))
		return 0xFFFF
	})
	reg.Register(0x84, "changeLevel", func(m *Machine, a Args) uint16 {
		m.State.CurrentLevel = int(a.A) - 1
		return uint16(m.State.CurrentLevel)
	})
	reg.Register(0x85, "shakeScreen", func(m *Machine, a Args) uint16 {
		m.Host.Shake(uint8(m.Host.Random() & 7))
		return 0xFFFF
	})
	reg.Register(0x87, "playSoundGroup", func(m *Machine, a Args) uint16 {
		if a.A < 0 || a.A > 3 {
			return m.fail(fault.Corrupt("opcode", "entity %d: playSoundGroup counter %d", m.ctx.Index, a.A))
		}
		c := uint16(m.tpl().Counters[a.A])
		m.Host.PlaySound(uint8(c), uint8(c>>8))
		return 0xFFFF
	})
	reg.Register(0x8A, "setTempVar1", func(m *Machine, a Args) uint16 {
		m.Scratch.TempVar1 = uint16(a.A)
		return 0xFFFF
	})
	reg.Register(0x8B, "isTempVar1Set", func(m *Machine, a Args) uint16 {
		return boolRes(m.Scratch.TempVar1 == uint16(a.A), 0xFFFF)
	})
}
