package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Room geometry. A room is 256×216 pixels split into a 16×7 collision grid.
const (
	RoomCount = 64
	RoomCols  = 16
	RoomRows  = 7
	RoomCells = RoomCols * RoomRows // 0x70
	RoomW     = 256
	RoomH     = 216
)

// Layout of the flat collision table: four 64-entry neighbor tables followed
// by the per-room cell grids.
const (
	CTUp    = 0x00
	CTDown  = 0x40
	CTRight = 0x80
	CTLeft  = 0xC0
	CTGrid  = 0x100
	CTSize  = CTGrid + RoomCount*RoomCells // 0x1D00
)

// Direction indexes Connectivity.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirRight
	DirLeft
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirRight:
		return "right"
	case DirLeft:
		return "left"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// CTOffset returns the neighbor table offset of d inside the flat table.
func (d Direction) CTOffset() int {
	return [...]int{CTUp, CTDown, CTRight, CTLeft}[d]
}

// Connectivity holds the neighbor room of every room per direction.
// Negative values mean there is no neighbor.
type Connectivity [4][RoomCount]int8

// RoomLink is the YAML form of one room's neighbors.
type RoomLink struct {
	Room  uint8 `yaml:"room"`
	Up    int8  `yaml:"up"`
	Down  int8  `yaml:"down"`
	Right int8  `yaml:"right"`
	Left  int8  `yaml:"left"`
}

// NewConnectivity returns a table where no room has neighbors.
func NewConnectivity() Connectivity {
	var c Connectivity
	for d := range c {
		for r := range c[d] {
			c[d][r] = -1
		}
	}
	return c
}

// Link sets the neighbors of one room.
func (c *Connectivity) Link(l RoomLink) {
	c[DirUp][l.Room] = l.Up
	c[DirDown][l.Room] = l.Down
	c[DirRight][l.Room] = l.Right
	c[DirLeft][l.Room] = l.Left
}

// Neighbor returns the room next to room in direction d, or -1.
func (c *Connectivity) Neighbor(room int, d Direction) int8 {
	if room < 0 || room >= RoomCount {
		return -1
	}
	return c[d][room]
}

// RoomGrid is one room's collision cells, row-major [y*16+x].
// 0 is passable; any other value is a terrain or trigger code.
type RoomGrid [RoomCells]int8

// loadRoomFile reads a CSV grid file: 7 lines of 16 comma-separated values.
// Blank lines and lines starting with '#' are skipped.
func loadRoomFile(dir string, room int) (RoomGrid, error) {
	var grid RoomGrid
	path := filepath.Join(dir, strconv.Itoa(room)+".txt")
	f, err := os.Open(path)
	if err != nil {
		return grid, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	y := 0
	for scanner.Scan() && y < RoomRows {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		x := 0
		for _, tok := range strings.Split(line, ",") {
			if x >= RoomCols {
				break
			}
			val, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 16)
			if err != nil {
				return grid, fmt.Errorf("room %d row %d col %d: %w", room, y, x, err)
			}
			grid[y*RoomCols+x] = int8(val)
			x++
		}
		y++
	}
	return grid, scanner.Err()
}

// WriteRoomFile writes grid in the format loadRoomFile reads.
func WriteRoomFile(dir string, room int, grid *RoomGrid) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# room %d\n", room)
	for y := 0; y < RoomRows; y++ {
		for x := 0; x < RoomCols; x++ {
			if x > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(grid[y*RoomCols+x])))
		}
		b.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, strconv.Itoa(room)+".txt"), []byte(b.String()), 0o644)
}

// SplitCollisionData is the inverse of Level.CollisionData: it cuts a flat
// collision table into room links and room grids.
func SplitCollisionData(ct []int8) (Connectivity, [RoomCount]RoomGrid, error) {
	var (
		conn  Connectivity
		rooms [RoomCount]RoomGrid
	)
	if len(ct) != CTSize {
		return conn, rooms, fmt.Errorf("collision table has %d bytes, want %d", len(ct), CTSize)
	}
	for _, d := range []Direction{DirUp, DirDown, DirRight, DirLeft} {
		copy(conn[d][:], ct[d.CTOffset():d.CTOffset()+RoomCount])
	}
	for r := 0; r < RoomCount; r++ {
		copy(rooms[r][:], ct[CTGrid+r*RoomCells:])
	}
	return conn, rooms, nil
}

// Links lists the rooms that have at least one neighbor.
func (c *Connectivity) Links() []RoomLink {
	var out []RoomLink
	for r := 0; r < RoomCount; r++ {
		l := RoomLink{Room: uint8(r), Up: c[DirUp][r], Down: c[DirDown][r], Right: c[DirRight][r], Left: c[DirLeft][r]}
		if l.Up < 0 && l.Down < 0 && l.Right < 0 && l.Left < 0 {
			continue
		}
		out = append(out, l)
	}
	return out
}
