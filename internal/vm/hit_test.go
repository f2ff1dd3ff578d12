package vm

import (
	"testing"

	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowLevel puts the player (facing right, column 6) and a monster facing it
// (column 8) on the top row of room 0. Counter 0 of the player scans three
// cells ahead.
func rowLevel(extra ...data.Template) *data.Level {
	tpls := append([]data.Template{
		{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1, Span: 1, Counters: [4]int16{-3}},
		{PosX: 132, PosY: 70, ObjectType: data.ObjectMonster, RoomLocation: 1, Span: 1, MirrorX: 1, Life: 2},
	}, extra...)
	return newLevel(idleNode(), tpls...)
}

func TestDetectHitCounts(t *testing.T) {
	f := newFixture(t, rowLevel())
	f.place(t)

	r, err := f.op(0, 0x62, 5, int16(data.ObjectMonster))
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r, "opposite-facing monster in range")

	r, err = f.op(0, 0x63, 5, int16(data.ObjectMonster))
	require.NoError(t, err)
	assert.Zero(t, r, "no same-facing monster")

	r, err = f.op(0, 0x62, 5, int16(data.ObjectPickup))
	require.NoError(t, err)
	assert.Zero(t, r, "type mismatch")
}

func TestDetectHitStopsAtWall(t *testing.T) {
	lvl := rowLevel()
	lvl.Rooms[0][1*data.RoomCols+7] = 1
	f := newFixture(t, lvl)
	f.place(t)

	r, err := f.op(0, 0x62, 5, int16(data.ObjectMonster))
	require.NoError(t, err)
	assert.Zero(t, r)

	_, err = f.op(0, 0x5D, 5, int16(data.ObjectMonster))
	require.NoError(t, err)
	_, ok := f.group.Find(1, 5)
	assert.True(t, ok, "the through-walls variant still reaches the monster")
}

func TestDetectHitNotifies(t *testing.T) {
	f := newFixture(t, rowLevel())
	f.place(t)

	r, err := f.op(0, 0x52, 5, int16(data.ObjectMonster))
	require.NoError(t, err)
	assert.Zero(t, r, "unscored variant")
	g, ok := f.group.Find(1, 5)
	require.True(t, ok)
	assert.EqualValues(t, 0, g.Source)
}

func TestGunHit(t *testing.T) {
	lvl := rowLevel()
	lvl.Nodes = append(lvl.Nodes, node(data.Descriptor{Op1: opIsInGroupSlice, Arg1: 1}))
	lvl.Templates[1].ObjNode = 1
	lvl.Templates[1].PosY = 78
	lvl.Templates[0].PosY = 78
	lvl.Templates[0].Counters = [4]int16{-3, 0, 0, -3}
	f := newFixture(t, lvl)
	f.place(t)

	r, err := f.op(0, 0x86, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r)
	_, ok := f.group.Find(1, 4)
	assert.True(t, ok, "frontal shot carries tag 4")
}

func TestScanRow(t *testing.T) {
	monster := int16(data.ObjectMonster)
	fighterAt := func(x int16) data.Template {
		return data.Template{PosX: x, PosY: 70, ObjectType: data.ObjectMonster, RoomLocation: 1, Span: 1, Life: 1}
	}
	tests := []struct {
		name string
		lvl  func() *data.Level
		op   uint8
		a, b int16
		want uint16
	}{
		// player at column 6 facing right, monster at column 8
		{"type, three cells right", func() *data.Level { return rowLevel() }, 0x40, -3, monster, 1},
		{"type, cache read starts two cells out", func() *data.Level { return rowLevel() }, 0x40, -1, monster, 1},
		{"type, adjacent cell is never read", func() *data.Level {
			lvl := rowLevel()
			lvl.Templates[1].PosX = 116
			return lvl
		}, 0x40, -2, monster, 0},
		{"type, zero walks one cell left", func() *data.Level { return rowLevel() }, 0x40, 0, monster, 0},
		{"fighter, one cell right reads two", func() *data.Level { return rowLevel() }, 0x6A, -1, 0, 1},
		{"fighter, zero reads only the own cell", func() *data.Level { return rowLevel() }, 0x6A, 0, 0, 0},
		{"fighter in the own cell", func() *data.Level { return rowLevel(fighterAt(100)) }, 0x6A, 0, 0, 1},
		{"fighter, wall below the first cell", func() *data.Level {
			lvl := rowLevel()
			lvl.Rooms[0][1*data.RoomCols+7] = 1
			return lvl
		}, 0x6A, -3, 0, 0},
		{"fighter behind, leftward", func() *data.Level { return rowLevel(fighterAt(68)) }, 0x6A, 2, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.lvl())
			f.place(t)
			r, err := f.op(0, tt.op, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}
}

func TestScanRowIgnoresDeadFighters(t *testing.T) {
	f := newFixture(t, rowLevel())
	f.place(t)
	f.state.Entity(1).Life = -1
	r, err := f.op(0, 0x6A, -3, 0)
	require.NoError(t, err)
	assert.Zero(t, r)
}

func TestScanRowWrapsIntoLeftRoom(t *testing.T) {
	lvl := rowLevel(data.Template{PosX: 232, PosY: 70, InitRoom: 5, ObjectType: 7, RoomLocation: 1, Span: 1})
	lvl.Templates[1].PosX = 0
	lvl.Templates[1].ObjectType = 7
	f := newFixture(t, lvl)
	f.place(t)
	e := f.state.Entity(1)
	require.Equal(t, 0, (int(e.PosX)+8)>>4)
	e.Flags &^= world.FlagFacingLeft

	// the first cache read after the wrap lands one cell late
	r, err := f.op(1, 0x40, 1, 7)
	require.NoError(t, err)
	assert.Zero(t, r)

	// the second reaches column 15 of room 5
	r, err = f.op(1, 0x40, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r)
}

func TestFindPiegeAndPickup(t *testing.T) {
	lvl := rowLevel(data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPickup, Span: 1, Flags: data.TplWakeOnGroup, RoomLocation: 1, CollidingIcon: 9})
	f := newFixture(t, lvl)
	f.place(t)

	it := f.m.findPiege(f.state.Player(), uint16(data.ObjectPickup))
	require.NotNil(t, it)
	assert.EqualValues(t, 2, it.Index)
	assert.Nil(t, f.m.findPiege(f.state.Player(), uint16(data.ObjectMonster)))

	icon, with := f.m.CollidingObject(0)
	assert.Equal(t, uint8(9), icon)
	assert.EqualValues(t, 2, with)

	r, err := f.op(0, 0x2F, 6, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), r)
	assert.True(t, f.group.Pending(2))

	r, err = f.op(0, 0x6D, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r)
}

func TestZOrder(t *testing.T) {
	lvl := rowLevel()
	lvl.Templates[1].PosX = 100
	f := newFixture(t, lvl)
	f.place(t)

	r, err := f.op(0, 0x50, int16(data.ObjectMonster), 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r)

	r, err = f.op(0, 0x2D, int16(data.ObjectMonster), 0)
	require.NoError(t, err)
	assert.Zero(t, r)

	r, err = f.op(0, 0x2B, int16(data.ObjectMonster), 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r, "monster faces the other way")

	r, err = f.op(0, 0x3D, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r, "animation kind 3")

	r, err = f.op(0, 0x46, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r)
	assert.True(t, f.group.Pending(1))

	r, err = f.op(0, 0x47, 8, 0)
	require.NoError(t, err)
	assert.Zero(t, r)
}

func TestSnapToWall(t *testing.T) {
	lvl := rowLevel()
	lvl.Templates[0].Counters[0] = 3
	lvl.Rooms[0][1*data.RoomCols+4] = 1
	f := newFixture(t, lvl)

	r, err := f.op(0, 0x5F, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r)
	assert.Equal(t, int16(64), f.state.Player().PosX, "two cells back")

	lvl.Templates[0].Counters[0] = 1
	f.state.Player().PosX = 100
	r, err = f.op(0, 0x5F, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, r, "wall out of range")
}
