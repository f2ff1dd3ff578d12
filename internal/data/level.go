package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MaxTemplates is the entity slot capacity of a level.
const MaxTemplates = 256

// DefaultScoreTable is the points table indexed by a descriptor's high nibble.
var DefaultScoreTable = [16]uint16{0, 200, 300, 400, 500, 800, 1000, 1200, 1500, 2000, 2200, 2500, 3000, 3200, 3500, 5000}

// DefaultModKeys maps the isInpMod opcode argument to an input mask bit
// (shift, enter, space).
var DefaultModKeys = [3]uint8{0x40, 0x10, 0x20}

// Level is the pre-decoded resource set the simulation runs on.
// Treated as read-only once loaded; the collision grid works on its own copy
// of the cell data.
type Level struct {
	Name         string
	Templates    []Template
	Nodes        []*ObjectNode // indexed by node id
	Anims        []*AnimTable  // indexed by obj_type
	Connectivity Connectivity
	Rooms        [RoomCount]RoomGrid
	Sprites      map[uint16]SpriteMetrics
	ScoreTable   [16]uint16
	ModKeys      [3]uint8
	SoundCount   int            // sfx ids below this are mixer samples
	MapRooms     map[uint8]bool // rooms with a background map; nil means all
}

// ErrNoTable is wrapped by lookups that miss (bad node id, unknown anim type).
var ErrNoTable = errors.New("no such table")

// NewLevel returns an empty level with default tables and no room links.
func NewLevel(name string) *Level {
	return &Level{
		Name:         name,
		Connectivity: NewConnectivity(),
		Sprites:      map[uint16]SpriteMetrics{},
		ScoreTable:   DefaultScoreTable,
		ModKeys:      DefaultModKeys,
	}
}

type levelFile struct {
	Name       string     `yaml:"name"`
	SoundCount int        `yaml:"sound_count"`
	ScoreTable []uint16   `yaml:"score_table"`
	ModKeys    []uint8    `yaml:"mod_keys"`
	MapRooms   []uint8    `yaml:"map_rooms"`
	Rooms      []RoomLink `yaml:"rooms"`
}

// LoadLevel loads a level directory:
//
//	level.yaml      name, tables, room links
//	templates.yaml  entity templates
//	objects.yaml    object nodes
//	anims.yaml      animation tables
//	sprites.yaml    sprite metrics (optional)
//	rooms/N.txt     collision grid of room N (missing rooms are all passable)
func LoadLevel(dir string) (*Level, error) {
	path := filepath.Join(dir, "level.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	var f levelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse level %s: %w", path, err)
	}

	lvl := NewLevel(f.Name)
	lvl.SoundCount = f.SoundCount
	if len(f.ScoreTable) > 0 {
		if len(f.ScoreTable) != len(lvl.ScoreTable) {
			return nil, fmt.Errorf("level %s: score_table needs %d entries, got %d", path, len(lvl.ScoreTable), len(f.ScoreTable))
		}
		copy(lvl.ScoreTable[:], f.ScoreTable)
	}
	if len(f.ModKeys) > 0 {
		if len(f.ModKeys) != len(lvl.ModKeys) {
			return nil, fmt.Errorf("level %s: mod_keys needs %d entries, got %d", path, len(lvl.ModKeys), len(f.ModKeys))
		}
		copy(lvl.ModKeys[:], f.ModKeys)
	}
	if len(f.MapRooms) > 0 {
		lvl.MapRooms = make(map[uint8]bool, len(f.MapRooms))
		for _, r := range f.MapRooms {
			lvl.MapRooms[r] = true
		}
	}
	for _, l := range f.Rooms {
		if int(l.Room) >= RoomCount {
			return nil, fmt.Errorf("level %s: room %d out of range", path, l.Room)
		}
		lvl.Connectivity.Link(l)
	}

	if lvl.Templates, err = LoadTemplates(filepath.Join(dir, "templates.yaml")); err != nil {
		return nil, err
	}
	if lvl.Nodes, err = LoadObjectNodes(filepath.Join(dir, "objects.yaml")); err != nil {
		return nil, err
	}
	if lvl.Anims, err = LoadAnims(filepath.Join(dir, "anims.yaml")); err != nil {
		return nil, err
	}
	if lvl.Sprites, err = LoadSprites(filepath.Join(dir, "sprites.yaml")); err != nil {
		return nil, err
	}

	roomDir := filepath.Join(dir, "rooms")
	for r := 0; r < RoomCount; r++ {
		grid, err := loadRoomFile(roomDir, r)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		lvl.Rooms[r] = grid
	}
	return lvl, nil
}

// NodeCount returns the number of addressable object-node ids.
func (l *Level) NodeCount() int { return len(l.Nodes) }

// Node returns the object node for id.
func (l *Level) Node(id uint16) (*ObjectNode, error) {
	if int(id) >= len(l.Nodes) || l.Nodes[id] == nil {
		return nil, fmt.Errorf("object node %d of %d: %w", id, len(l.Nodes), ErrNoTable)
	}
	return l.Nodes[id], nil
}

// Anim returns the animation table of objType.
func (l *Level) Anim(objType uint16) (*AnimTable, error) {
	if int(objType) >= len(l.Anims) || l.Anims[objType] == nil {
		return nil, fmt.Errorf("anim type %d: %w", objType, ErrNoTable)
	}
	return l.Anims[objType], nil
}

// Cell returns the static collision byte of a room cell.
func (l *Level) Cell(room, x, y int) int8 {
	if room < 0 || room >= RoomCount || x < 0 || x >= RoomCols || y < 0 || y >= RoomRows {
		return 0
	}
	return l.Rooms[room][y*RoomCols+x]
}

// HasRoomMap reports whether room has a background map to load.
func (l *Level) HasRoomMap(room uint8) bool {
	if room >= RoomCount {
		return false
	}
	if l.MapRooms == nil {
		return true
	}
	return l.MapRooms[room]
}

// Sprite returns the metrics of a sprite number; unknown sprites are zero-sized.
func (l *Level) Sprite(n uint16) SpriteMetrics {
	return l.Sprites[n]
}

// CollisionData builds the flat collision table: neighbor tables at
// CTUp/CTDown/CTRight/CTLeft, then room grids from CTGrid. Each call returns a
// fresh copy that the caller may patch.
func (l *Level) CollisionData() []int8 {
	ct := make([]int8, CTSize)
	for _, d := range []Direction{DirUp, DirDown, DirRight, DirLeft} {
		copy(ct[d.CTOffset():d.CTOffset()+RoomCount], l.Connectivity[d][:])
	}
	for r := 0; r < RoomCount; r++ {
		copy(ct[CTGrid+r*RoomCells:], l.Rooms[r][:])
	}
	return ct
}
