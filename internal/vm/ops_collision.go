package vm

// Cell checks relative to the pass cell. Rows: 0 upper, 1 middle, 2 lower.
// Column arguments are in cells, mirrored by facing; "u" variants look
// behind (negated argument), "d" variants ahead.

func registerCollisionOps(reg *Registry) {
	checks := []struct {
		op   uint8
		name string
		dy   int
		sign int
	}{
		{0x0B, "getCollision0u", 0, -1},
		{0x0C, "getCollision00", 0, 0},
		{0x0D, "getCollision0d", 0, 1},
		{0x0E, "getCollision1u", 1, -1},
		{0x0F, "getCollision10", 1, 0},
		{0x10, "getCollision1d", 1, 1},
		{0x11, "getCollision2u", 2, -1},
		{0x12, "getCollision20", 2, 0},
		{0x13, "getCollision2d", 2, 1},
	}
	for _, p := range checks {
		reg.Register(p.op, p.name, getCollision(p.dy, p.sign))
		// the doesNotCollide family mirrors the getCollision layout 9 ids up
		reg.Register(p.op+9, "doesNotCollide"+p.name[len("getCollision"):], doesNotCollide(p.dy, p.sign))
	}

	reg.Register(0x1D, "collides0o0d", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(0, x) != 0 && m.grid(0, x+1) == 0 && m.grid(-1, x) == 0, 0xFFFF)
	})
	reg.Register(0x1E, "collides2o2d", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(2, x) != 0 && m.grid(2, x+1) == 0 && m.grid(1, x) == 0, 0xFFFF)
	})
	reg.Register(0x1F, "collides0o0u", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(0, x) != 0 && m.grid(0, x-1) == 0 && m.grid(-1, x) == 0, 0xFFFF)
	})
	reg.Register(0x20, "collides2o2u", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(2, x) != 0 && m.grid(2, x-1) == 0 && m.grid(1, x) == 0, 0xFFFF)
	})
	reg.Register(0x21, "collides2u2o", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(2, x-1) != 0 && m.grid(2, x) == 0 && m.grid(1, x-1) == 0, 0xFFFF)
	})
	reg.Register(0x28, "collides1u2o", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(1, x-1) != 0 && m.grid(2, x) == 0, 0xFFFF)
	})
	reg.Register(0x29, "collides1u1o", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(1, x-1) != 0 && m.grid(1, x) == 0, 0xFFFF)
	})
	reg.Register(0x2A, "collides1o1u", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(1, x-1) == 0 && m.grid(1, x) != 0, 0xFFFF)
	})
	reg.Register(0x67, "isLedgeBehind", func(m *Machine, a Args) uint16 {
		return boolRes(m.grid(1, -int(a.A))&2 != 0, 0xFFFF)
	})
	reg.Register(0x74, "collidesFloorBehind", func(m *Machine, a Args) uint16 {
		return boolRes(m.grid(4, -int(a.A)) != 0, 0xFFFF)
	})
	reg.Register(0x75, "noFloorBehind", func(m *Machine, a Args) uint16 {
		return boolRes(m.grid(4, -int(a.A)) == 0, 0xFFFF)
	})
	reg.Register(0x7A, "isDropBehind", func(m *Machine, a Args) uint16 {
		x := int(a.A)
		return boolRes(m.grid(1, -x) == 0 && m.grid(2, -(x+1)) != 0, 0xFFFF)
	})

	reg.Register(0x36, "setCollisionState1", setCollisionState(1))
	reg.Register(0x37, "setCollisionState0", setCollisionState(0))
	reg.Register(0x68, "setCollisionState2", setCollisionState(2))
	reg.Register(0x72, "restoreCollisionState", func(m *Machine, a Args) uint16 {
		m.Grid.RestoreTerrain(m.self(), int(a.A))
		return 0xFFFF
	})
}

func getCollision(dy, sign int) OpFunc {
	return func(m *Machine, a Args) uint16 {
		return uint16(m.grid(dy, sign*int(a.A)))
	}
}

func doesNotCollide(dy, sign int) OpFunc {
	return func(m *Machine, a Args) uint16 {
		return boolRes(m.grid(dy, sign*int(a.A)) == 0, 0xFFFF)
	}
}

// setCollisionState writes v over the entity's span at row a.A of its cell.
func setCollisionState(v int8) OpFunc {
	return func(m *Machine, a Args) uint16 {
		e := m.self()
		if err := m.Grid.SetTerrain(e, int(m.tpl().Span), m.ctx.FacingLeft, int(a.A), v); err != nil {
			return m.fail(err)
		}
		return 1
	}
}
