package collision

import (
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/world"
)

// Cell is an entity's position on the 16×7 room grid: columns of 16px and
// rows of 36px, the row rounded down to an even value.
type Cell struct {
	Room uint8
	X    int
	Y    int
}

// CellOf returns the grid cell cached for e at the start of its pass.
func CellOf(e *world.Live) Cell {
	return Cell{
		Room: e.Room,
		X:    (int(e.PosX) + 8) >> 4,
		Y:    (int(e.PosY) / 36) &^ 1,
	}
}

// Query reads the cell dy rows and dx columns away from c. dx is mirrored
// when facing left. Cells past the room edge are read from the neighbor room
// (±16 columns, ±6 rows); a missing neighbor reads as 1.
func (g *Grid) Query(c Cell, facingLeft bool, dy, dx int) int16 {
	if facingLeft {
		dx = -dx
	}
	y := c.Y + dy
	x := c.X + dx

	room := int8(c.Room)
	switch {
	case x < 0:
		room = g.Neighbor(c.Room, data.DirLeft)
		x += data.RoomCols
	case x >= data.RoomCols:
		room = g.Neighbor(c.Room, data.DirRight)
		x -= data.RoomCols
	case y < 1:
		room = g.Neighbor(c.Room, data.DirUp)
		y += data.RoomRows - 1
	case y >= data.RoomRows:
		room = g.Neighbor(c.Room, data.DirDown)
		y -= data.RoomRows - 1
	default:
		if !world.ValidRoom(c.Room) {
			return 1
		}
	}
	if room < 0 {
		return 1
	}
	return int16(g.at(int(room), x, y))
}

// at reads the flat table the way the room grids are laid out back to back:
// a row outside 0..6 spills into the adjacent room's block.
func (g *Grid) at(room, x, y int) int8 {
	i := data.CTGrid + room*data.RoomCells + y*data.RoomCols + x
	if i < data.CTGrid || i >= len(g.ct) {
		return 1
	}
	return g.ct[i]
}

// CellValue returns the current (possibly patched) value of a room cell.
func (g *Grid) CellValue(room uint8, x, y int) int8 {
	if !world.ValidRoom(room) || x < 0 || x >= data.RoomCols || y < 0 || y >= data.RoomRows {
		return 0
	}
	return g.at(int(room), x, y)
}
