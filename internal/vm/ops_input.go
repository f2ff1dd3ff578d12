package vm

import "github.com/pgesim/engine/internal/core/fault"

// Key mask bits.
const (
	KeyUp    uint8 = 0x01
	KeyDown  uint8 = 0x02
	KeyLeft  uint8 = 0x04
	KeyRight uint8 = 0x08
	KeyDirs  uint8 = 0x0F
)

func registerInputOps(reg *Registry) {
	reg.Register(0x01, "isInpUp", func(m *Machine, a Args) uint16 { return boolRes(m.Input == KeyUp, 0xFFFF) })
	reg.Register(0x02, "isInpBackward", func(m *Machine, a Args) uint16 { return boolRes(m.Input == m.facingKey(), 0xFFFF) })
	reg.Register(0x03, "isInpDown", func(m *Machine, a Args) uint16 { return boolRes(m.Input == KeyDown, 0xFFFF) })
	reg.Register(0x04, "isInpForward", func(m *Machine, a Args) uint16 { return boolRes(m.Input == m.awayKey(), 0xFFFF) })
	reg.Register(0x05, "isInpUpMod", inpWithMod(func(*Machine) uint8 { return KeyUp }))
	reg.Register(0x06, "isInpBackwardMod", inpWithMod((*Machine).facingKey))
	reg.Register(0x07, "isInpDownMod", inpWithMod(func(*Machine) uint8 { return KeyDown }))
	reg.Register(0x08, "isInpForwardMod", inpWithMod((*Machine).awayKey))
	reg.Register(0x09, "isInpIdle", func(m *Machine, a Args) uint16 { return boolRes(m.Input == 0, 0xFFFF) })
	reg.Register(0x0A, "isInpNoMod", opInpNoMod)
	reg.Register(0x34, "isInpNoModClearAhead", opInpNoModClearAhead)
	reg.Register(0x35, "isInpMod", opInpMod)
}

// facingKey is the direction key the entity faces; the scripts' "backward"
// opcodes test it.
func (m *Machine) facingKey() uint8 {
	if m.ctx.FacingLeft {
		return KeyLeft
	}
	return KeyRight
}

func (m *Machine) awayKey() uint8 {
	if m.ctx.FacingLeft {
		return KeyRight
	}
	return KeyLeft
}

func (m *Machine) modKey(n int16) (uint8, bool) {
	keys := m.State.Level.ModKeys
	if n < 0 || int(n) >= len(keys) {
		m.fail(fault.Corrupt("opcode", "entity %d: modifier key %d out of range", m.ctx.Index, n))
		return 0, false
	}
	return keys[n], true
}

func inpWithMod(dir func(*Machine) uint8) OpFunc {
	return func(m *Machine, a Args) uint16 {
		mod, ok := m.modKey(a.A)
		if !ok {
			return 0
		}
		return boolRes(m.Input == mod|dir(m), 0xFFFF)
	}
}

func opInpNoMod(m *Machine, a Args) uint16 {
	mod, ok := m.modKey(a.A)
	if !ok {
		return 0
	}
	return boolRes((m.Input&KeyDirs)|mod == m.Input, 0xFFFF)
}

func opInpMod(m *Machine, a Args) uint16 {
	mod, ok := m.modKey(a.A)
	if !ok {
		return 0
	}
	return boolRes(m.Input == mod, 0xFFFF)
}

// opInpNoModClearAhead holds with the first modifier held and nothing in the
// lower row a.A cells ahead.
func opInpNoModClearAhead(m *Machine, a Args) uint16 {
	mod := m.State.Level.ModKeys[0]
	if (m.Input&KeyDirs)|mod != m.Input {
		return 0
	}
	return boolRes(m.grid(2, -int(a.A)) == 0, 0xFFFF)
}
