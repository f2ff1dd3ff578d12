package vm

import (
	"testing"

	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idleNode() []*data.ObjectNode {
	return []*data.ObjectNode{node(data.Descriptor{Op1: 0x2E})}
}

func TestInputOps(t *testing.T) {
	lvl := newLevel(idleNode(), data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1})
	f := newFixture(t, lvl)

	cases := []struct {
		name  string
		left  bool
		input uint8
		op    uint8
		a     int16
		want  uint16
	}{
		{"up", false, KeyUp, 0x01, 0, 0xFFFF},
		{"up with extra key", false, KeyUp | KeyLeft, 0x01, 0, 0},
		{"backward facing right", false, KeyRight, 0x02, 0, 0xFFFF},
		{"backward facing left", true, KeyLeft, 0x02, 0, 0xFFFF},
		{"forward facing right", false, KeyLeft, 0x04, 0, 0xFFFF},
		{"down with mod 0", false, 0x40 | KeyDown, 0x07, 0, 0xFFFF},
		{"down without mod", false, KeyDown, 0x07, 0, 0},
		{"idle", false, 0, 0x09, 0, 0xFFFF},
		{"no mod holds with direction", false, 0x10 | KeyUp, 0x0A, 1, 0xFFFF},
		{"mod alone", false, 0x20, 0x35, 2, 0xFFFF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := f.state.Entity(0)
			e.Flags &^= world.FlagFacingLeft
			if tc.left {
				e.Flags |= world.FlagFacingLeft
			}
			f.m.Input = tc.input
			got, err := f.op(0, tc.op, tc.a, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := f.op(0, 0x05, 3, 0)
	assert.Error(t, err, "modifier index past the table")
}

func TestCollisionCheckMirrorsFacing(t *testing.T) {
	lvl := newLevel(idleNode(), data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1})
	lvl.Rooms[0][1*data.RoomCols+8] = 3
	f := newFixture(t, lvl)

	got, err := f.op(0, 0x10, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), got, "getCollision1d two cells ahead")

	f.state.Entity(0).Flags |= world.FlagFacingLeft
	got, err = f.op(0, 0x0E, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), got, "getCollision1u mirrors back to the same cell")
}

func TestFacingConrad(t *testing.T) {
	lvl := newLevel(idleNode(),
		data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1},
		data.Template{PosX: 150, PosY: 70, ObjectType: data.ObjectMonster, RoomLocation: 1, MirrorX: 1},
		data.Template{PosX: 200, PosY: 70, InitRoom: 5, ObjectType: data.ObjectMonster, RoomLocation: 1},
	)
	f := newFixture(t, lvl)

	cases := []struct {
		name string
		idx  ecs.Index
		op   uint8
		a    int16
		want uint16
	}{
		{"facing, any distance", 1, 0x79, 0, 0xFFFF},
		{"facing, within 4 cells", 1, 0x79, 4, 0xFFFF},
		{"facing, beyond 3 cells", 1, 0x79, 3, 0},
		{"not facing", 1, 0x78, 0, 0},
		{"player in the room to the right", 2, 0x79, 0, 0xFFFF},
		{"next room needs a zero distance", 2, 0x79, 2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.op(tc.idx, tc.op, tc.a, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRemovePiegeIfNotNear(t *testing.T) {
	lvl := newLevel(idleNode(),
		data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1},
		data.Template{PosX: 100, PosY: 70, InitRoom: 5, RoomLocation: 1, Flags: data.TplWakeInRoom},
		data.Template{PosX: 100, PosY: 70, InitRoom: 9, RoomLocation: 1, Flags: data.TplWakeInRoom},
		data.Template{PosX: 100, PosY: 70, InitRoom: 0, RoomLocation: 1},
	)
	f := newFixture(t, lvl)

	r, err := f.op(1, 0x43, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r)
	assert.True(t, f.state.IsActive(1), "neighbor room keeps it")
	assert.False(t, f.m.Context().PlayAnimSound)

	_, err = f.op(2, 0x43, 0, 0)
	require.NoError(t, err)
	assert.False(t, f.state.IsActive(2), "far room")
	assert.Equal(t, uint8(9), f.state.Entity(2).Room, "only deactivated, not killed")

	_, err = f.op(3, 0x43, 0, 0)
	require.NoError(t, err)
	assert.False(t, f.state.IsActive(3), "no room-wake flag")
}

func TestInventoryOps(t *testing.T) {
	lvl := newLevel(idleNode(),
		data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1},
		data.Template{PosX: 40, PosY: 70, ObjectType: data.ObjectPickup, RoomLocation: 1, ObjectID: 12},
		data.Template{PosX: 60, PosY: 70, ObjectType: data.ObjectPickup, RoomLocation: 1, ObjectID: 13},
	)
	f := newFixture(t, lvl)

	r, err := f.op(1, 0x30, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), r)
	assert.Equal(t, world.RoomNone, f.state.Entity(1).Room)
	assert.False(t, f.state.InRoomList(1, 0))
	_, err = f.op(2, 0x30, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2}, f.state.Inventory(0))

	r, _ = f.op(0, 0x32, 12, 0)
	assert.Equal(t, uint16(1), r, "current item is the chain head")
	r, _ = f.op(0, 0x83, 13, 0)
	assert.Equal(t, uint16(0xFFFF), r)

	_, err = f.op(0, 0x4E, -2, 0)
	require.NoError(t, err)
	assert.Equal(t, int16(68), f.state.Entity(2).PosY, "carried items scroll along")

	_, err = f.op(1, 0x4A, 0, 0)
	require.NoError(t, err)
	assert.True(t, f.state.Entity(1).Dead())
	assert.Equal(t, []uint8{2}, f.state.Inventory(0))
}

func TestChangeRoomMovesPlayer(t *testing.T) {
	lvl := newLevel(idleNode(),
		data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1},
		data.Template{PosX: 40, PosY: 142, InitRoom: 5, RoomLocation: 1, MirrorX: 1},
		data.Template{PosX: 10, PosY: 70, RoomLocation: 1, Counters: [4]int16{0, 1}},
	)
	f := newFixture(t, lvl)

	r, err := f.op(2, 0x82, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), r)
	p := f.state.Player()
	assert.Equal(t, uint8(5), p.Room)
	assert.Equal(t, int16(40), p.PosX)
	assert.Equal(t, int16(142), p.PosY)
	assert.True(t, p.FacingLeft())
	assert.Equal(t, uint8(5), f.state.CurrentRoom)
	assert.True(t, f.state.LoadMap)
	assert.True(t, f.state.InRoomList(0, 5))

	_, err = f.op(2, 0x82, 3, 0)
	assert.Error(t, err)
}

func TestSetPiegeDefaultAnim(t *testing.T) {
	lvl := newLevel(idleNode(),
		data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1},
		data.Template{PosX: 10, PosY: 70, RoomLocation: 1, Counters: [4]int16{5, 1}},
	)
	f := newFixture(t, lvl)

	_, err := f.op(1, 0x57, 0, 0)
	require.NoError(t, err)
	assert.True(t, f.state.InRoomList(1, 5))
	assert.False(t, f.state.LoadMap)

	_, err = f.op(1, 0x57, 1, 0)
	require.NoError(t, err)
	assert.True(t, f.state.LoadMap, "room 1 reloads the map")

	_, err = f.op(1, 0x57, 4, 0)
	assert.Error(t, err)
}

func TestHostOps(t *testing.T) {
	lvl := newLevel(idleNode(),
		data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1, Counters: [4]int16{0, 0, 0x0105, 30}},
	)
	f := newFixture(t, lvl)
	f.host.random = 6

	r, _ := f.op(0, 0x61, 3, 0)
	assert.Equal(t, uint16(1), r)
	r, _ = f.op(0, 0x61, 4, 0)
	assert.Zero(t, r)
	r, _ = f.op(0, 0x61, 0, 0)
	assert.Zero(t, r)

	f.op(0, 0x7D, 0x0102, 0)
	f.op(0, 0x87, 2, 0)
	assert.Equal(t, [][2]uint8{{2, 1}, {5, 1}}, f.host.sounds)

	f.op(0, 0x85, 0, 0)
	assert.Equal(t, []uint8{6}, f.host.shakes)

	f.op(0, 0x5C, 77, 0)
	assert.Equal(t, 31, f.state.DeathCounter)
	assert.Equal(t, uint16(77), f.state.DeathCutscene)
	f.op(0, 0x5A, 3, 0)
	assert.Empty(t, f.host.cutscenes, "no cutscene while the death countdown runs")
	f.op(0, 0x4F, 5, 0)
	assert.Equal(t, 31, f.state.DeathCounter)

	r, _ = f.op(0, 0x84, 3, 0)
	assert.Equal(t, uint16(2), r)
	assert.Equal(t, 2, f.state.CurrentLevel)

	f.op(0, 0x69, 0, 0)
	assert.Equal(t, 1, f.host.saves)

	f.op(0, 0x8A, 4, 0)
	r, _ = f.op(0, 0x8B, 4, 0)
	assert.Equal(t, uint16(0xFFFF), r)

	f.op(0, 0x7B, 12, 0)
	assert.Equal(t, uint16(12), f.state.Text)
}

func TestCounterOps(t *testing.T) {
	lvl := newLevel(idleNode(),
		data.Template{PosX: 100, PosY: 70, ObjectType: data.ObjectPlayer, RoomLocation: 1, Counters: [4]int16{1, 4, 2, 9}},
		data.Template{PosX: 50, PosY: 70, RoomLocation: 1, Life: 10},
	)
	f := newFixture(t, lvl)

	f.op(0, 0x3E, 2, 0)
	r, _ := f.op(0, 0x3F, 0, 0)
	assert.Zero(t, r)
	r, _ = f.op(0, 0x3F, 0, 0)
	assert.Equal(t, uint16(0xFFFF), r)

	f.op(0, 0x44, 3, 0)
	assert.Equal(t, int16(9), f.state.Player().CounterValue)

	f.op(0, 0x65, 0, 0)
	assert.Equal(t, int16(14), f.state.Entity(1).Life)
	f.op(0, 0x66, 0, 0)
	assert.Equal(t, int16(10), f.state.Entity(1).Life)

	f.op(0, 0x58, 1, 0)
	assert.Equal(t, int16(1), f.state.Entity(1).Life)
	f.op(0, 0x59, 1, 0)
	assert.Equal(t, int16(0), f.state.Player().Life)

	f.op(0, 0x42, 0, 0)
	assert.False(t, f.state.IsActive(1))
	f.op(0, 0x41, 0, 0)
	assert.True(t, f.state.IsActive(1))

	f.state.Player().PosX, f.state.Player().PosY = 37, 100
	f.op(0, 0x88, 0, 0)
	assert.Equal(t, int16(32), f.state.Player().PosX)
	assert.Equal(t, int16(142), f.state.Player().PosY)
}
