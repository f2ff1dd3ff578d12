package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeTestLevel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "level.yaml"), `
name: lab
sound_count: 40
mod_keys: [64, 16, 32]
map_rooms: [0, 5]
rooms:
  - {room: 0, up: -1, down: -1, right: -1, left: 5}
  - {room: 5, up: -1, down: -1, right: 0, left: -1}
`)
	writeFile(t, filepath.Join(dir, "templates.yaml"), `
templates:
  - {type: 2, pos_x: 100, pos_y: 70, obj_node: 0, life: 3, object_type: 1, init_room: 0, room_location: 1, span: 1, counters: [4, 0, 0, 0]}
  - {type: 7, pos_x: 30, pos_y: 142, obj_node: 1, life: 1, object_type: 10, init_room: 5, flags: 4, span: 2}
`)
	writeFile(t, filepath.Join(dir, "objects.yaml"), `
nodes:
  - id: 0
    aliases: [2]
    descriptors:
      - {type: 2, next_type: 2, op1: 0x2E}
      - {type: 3, next_type: 2, dx: -4, op1: 0x01, arg1: 0}
  - id: 1
    descriptors:
      - {type: 7, next_type: 7, op1: 0x2E, flags: 0x30}
`)
	writeFile(t, filepath.Join(dir, "anims.yaml"), `
anims:
  - {type: 2, sound: 3, kind: 1, frames: [{n: 10, dx: 1}, {n: 0xFFFF}]}
  - {type: 7, background: true, frames: [{n: 0x8004, dy: -2}]}
`)
	writeFile(t, filepath.Join(dir, "rooms", "0.txt"), `# room 0
0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0
0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0
0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0
1,1,1,1,1,1,1,1,1,1,1,1,1,1,1,1
0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0
0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0
1,1,1,1,1,1,1,1,1,1,1,1,1,1,1,-2
`)
	return dir
}

func TestLoadLevel(t *testing.T) {
	lvl, err := LoadLevel(writeTestLevel(t))
	require.NoError(t, err)

	assert.Equal(t, "lab", lvl.Name)
	assert.Equal(t, 40, lvl.SoundCount)
	assert.Equal(t, DefaultScoreTable, lvl.ScoreTable)
	require.Len(t, lvl.Templates, 2)
	assert.Equal(t, [4]int16{4, 0, 0, 0}, lvl.Templates[0].Counters)
	assert.Equal(t, uint8(2), lvl.Templates[1].Span)

	assert.Equal(t, 3, lvl.NodeCount())
	n0, err := lvl.Node(0)
	require.NoError(t, err)
	n2, err := lvl.Node(2)
	require.NoError(t, err)
	assert.Same(t, n0, n2)
	assert.Equal(t, uint16(2), n0.LastObj)
	assert.Equal(t, int8(-4), n0.At(1).DX)

	idx, ok := n0.FirstOfType(3)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = n0.FirstOfType(9)
	assert.False(t, ok)

	_, err = lvl.Node(3)
	assert.True(t, errors.Is(err, ErrNoTable))

	a, err := lvl.Anim(7)
	require.NoError(t, err)
	assert.True(t, a.Background)
	assert.Equal(t, FrameEmpty, a.Frame(5).Number)
	_, err = lvl.Anim(3)
	assert.ErrorIs(t, err, ErrNoTable)

	assert.Equal(t, int8(1), lvl.Cell(0, 4, 3))
	assert.Equal(t, int8(-2), lvl.Cell(0, 15, 6))
	assert.Equal(t, int8(0), lvl.Cell(5, 4, 3))
	assert.True(t, lvl.HasRoomMap(5))
	assert.False(t, lvl.HasRoomMap(1))
}

func TestCollisionDataLayout(t *testing.T) {
	lvl, err := LoadLevel(writeTestLevel(t))
	require.NoError(t, err)

	ct := lvl.CollisionData()
	require.Len(t, ct, CTSize)
	assert.Equal(t, int8(5), ct[CTLeft+0])
	assert.Equal(t, int8(0), ct[CTRight+5])
	assert.Equal(t, int8(-1), ct[CTUp+0])
	assert.Equal(t, int8(-1), ct[CTDown+63])
	assert.Equal(t, int8(1), ct[CTGrid+0*RoomCells+3*RoomCols+7])

	ct[CTGrid] = 9
	assert.Equal(t, int8(0), lvl.CollisionData()[CTGrid], "each call returns a fresh copy")
}

func TestSplitCollisionData(t *testing.T) {
	lvl, err := LoadLevel(writeTestLevel(t))
	require.NoError(t, err)

	conn, rooms, err := SplitCollisionData(lvl.CollisionData())
	require.NoError(t, err)
	assert.Equal(t, lvl.Connectivity, conn)
	assert.Equal(t, []RoomLink{
		{Room: 0, Up: -1, Down: -1, Right: -1, Left: 5},
		{Room: 5, Up: -1, Down: -1, Right: 0, Left: -1},
	}, conn.Links())

	dir := t.TempDir()
	require.NoError(t, WriteRoomFile(dir, 0, &rooms[0]))
	grid, err := loadRoomFile(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, lvl.Rooms[0], grid)

	_, _, err = SplitCollisionData(make([]int8, 10))
	assert.Error(t, err)
}

func TestLoadLevelRejectsSparseNodes(t *testing.T) {
	dir := writeTestLevel(t)
	writeFile(t, filepath.Join(dir, "objects.yaml"), `
nodes:
  - {id: 0, descriptors: []}
  - {id: 2, descriptors: []}
`)
	_, err := LoadLevel(dir)
	assert.ErrorContains(t, err, "object node 1 missing")
}

func TestLoadDemo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lab.dem")
	require.NoError(t, os.WriteFile(path, []byte{0x08, 0x08, 0x18}, 0o644))
	masks, err := LoadDemo(path)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0x08, 0x08, 0x18}, masks)
}
