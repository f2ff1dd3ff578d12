package world

import (
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
)

// State is the entity store of the running level: the live slot array, the
// per-room resident lists, the active table and the level-wide counters the
// opcodes touch. Single-goroutine access only (simulation loop).
type State struct {
	Level    *data.Level
	Live     [ecs.Capacity]Live
	Count    int           // number of templates in the level
	Registry *ecs.Registry // indices purged on Kill

	roomHead [data.RoomCount]ecs.Index
	linked   [ecs.Capacity]uint8 // room list the slot is linked into, RoomNone if none
	active   [ecs.Capacity]bool

	Skill        uint8
	CurrentRoom  uint8
	CurrentLevel int
	Score        uint32
	LoadMap      bool  // background map of CurrentRoom must be reloaded
	Blinking     uint8 // player hit invulnerability, decays once per tick

	DeathCounter  int    // ticks until the death cutscene plays, 0 = none
	DeathCutscene uint16 // cutscene queued by the death countdown
	Text          uint16 // text id queued for display, TextNone if none
}

// TextNone marks an empty text slot.
const TextNone uint16 = 0xFFFF

// NewState returns an empty store with its own removal registry.
func NewState() *State {
	s := &State{Registry: ecs.NewRegistry(), Text: TextNone}
	s.clearLists()
	return s
}

func (s *State) clearLists() {
	for i := range s.roomHead {
		s.roomHead[i] = ecs.None
	}
	for i := range s.linked {
		s.linked[i] = RoomNone
		s.active[i] = false
	}
}

// Template returns the spawn record of slot idx.
func (s *State) Template(idx ecs.Index) *data.Template {
	return &s.Level.Templates[idx]
}

// Entity returns slot idx, or nil when idx is outside the loaded level.
func (s *State) Entity(idx ecs.Index) *Live {
	if int(idx) >= s.Count {
		return nil
	}
	return &s.Live[idx]
}

// Node returns the object node of slot idx.
func (s *State) Node(idx ecs.Index) (*data.ObjectNode, error) {
	n, err := s.Level.Node(s.Template(idx).ObjNode)
	if err != nil {
		return nil, fault.Corrupt("node", "entity %d: %v", idx, err)
	}
	return n, nil
}

// Spawn resets every slot from its template. Templates whose skill exceeds
// skill keep their position but get no flags and never become resident.
// The caller is expected to run the default animation setup afterwards.
func (s *State) Spawn(lvl *data.Level, skill uint8) error {
	s.Level = lvl
	s.Count = len(lvl.Templates)
	s.Skill = skill
	s.clearLists()
	s.Live = [ecs.Capacity]Live{}
	if s.Count > 0 {
		s.CurrentRoom = lvl.Templates[0].InitRoom
	}

	for i := 0; i < s.Count; i++ {
		idx := ecs.Index(i)
		tpl := &lvl.Templates[i]
		e := &s.Live[i]
		e.reset(idx, tpl)
		if skill >= 2 && tpl.ObjectType == data.ObjectMonster {
			e.Life *= 2
		}
		if !s.Eligible(idx) {
			continue
		}

		var flags uint8
		if tpl.RoomLocation != 0 || (tpl.Flags&data.TplWakeInRoom != 0 && s.CurrentRoom == tpl.InitRoom) {
			flags |= FlagActive
			s.active[i] = true
		}
		if tpl.MirrorX != 0 {
			flags |= FlagFacingLeft
		}
		if tpl.InitFlags&8 != 0 {
			flags |= FlagForeground
		}
		flags |= (tpl.InitFlags & 3) << 5
		if tpl.Flags&data.TplWakeOnCollide != 0 {
			flags |= FlagWakeOnCollide
		}
		e.Flags = flags

		if int(tpl.ObjNode) >= lvl.NodeCount() {
			return fault.Corrupt("spawn", "entity %d: node %d out of range (%d nodes)", i, tpl.ObjNode, lvl.NodeCount())
		}
		node, err := s.Node(idx)
		if err != nil {
			return err
		}
		first, ok := node.FirstOfType(e.ObjType)
		if !ok {
			return fault.Corrupt("spawn", "entity %d: node %d has no descriptor for type %d", i, tpl.ObjNode, e.ObjType)
		}
		e.FirstObj = uint16(first)
	}

	for i := 0; i < s.Count; i++ {
		if s.Eligible(ecs.Index(i)) {
			s.link(ecs.Index(i), s.Live[i].Room)
		}
	}
	return nil
}

// Eligible reports whether slot idx exists at the current skill level.
func (s *State) Eligible(idx ecs.Index) bool {
	return int(idx) < s.Count && s.Template(idx).Skill <= s.Skill
}

// IsActive reports whether idx is in the active table.
func (s *State) IsActive(idx ecs.Index) bool { return idx.Valid() && s.active[idx] }

// Activate sets the active flag and adds idx to the active table.
func (s *State) Activate(idx ecs.Index) {
	s.Live[idx].Flags |= FlagActive
	s.active[idx] = true
}

// Deactivate clears the active flag and removes idx from the active table.
func (s *State) Deactivate(idx ecs.Index) {
	s.Live[idx].Flags &^= FlagActive
	s.active[idx] = false
}

// ActiveTable exposes the active table for snapshots.
func (s *State) ActiveTable() *[ecs.Capacity]bool { return &s.active }

// LinkToRoom moves idx to room, unlinking it from its previous list first.
// Rooms outside 0..63 leave the entity unlinked.
func (s *State) LinkToRoom(idx ecs.Index, room uint8) {
	s.Live[idx].Room = room
	s.Relocate(idx)
}

// UnlinkFromRoom removes idx from whatever room list holds it.
func (s *State) UnlinkFromRoom(idx ecs.Index) {
	room := s.linked[idx]
	if room == RoomNone {
		return
	}
	prev := ecs.None
	for cur := s.roomHead[room]; cur != ecs.None; cur = s.Live[cur].NextInRoom {
		if cur == idx {
			if prev == ecs.None {
				s.roomHead[room] = s.Live[cur].NextInRoom
			} else {
				s.Live[prev].NextInRoom = s.Live[cur].NextInRoom
			}
			break
		}
		prev = cur
	}
	s.Live[idx].NextInRoom = ecs.None
	s.linked[idx] = RoomNone
}

// Relocate brings the room lists in line with the entity's Room field after
// an opcode has changed it. A no-op when the entity is already resident there.
func (s *State) Relocate(idx ecs.Index) {
	room := s.Live[idx].Room
	if s.linked[idx] == room {
		return
	}
	s.UnlinkFromRoom(idx)
	s.link(idx, room)
}

func (s *State) link(idx ecs.Index, room uint8) {
	if !ValidRoom(room) {
		return
	}
	s.Live[idx].NextInRoom = s.roomHead[room]
	s.roomHead[room] = idx
	s.linked[idx] = room
}

// RoomHead returns the first resident of room, ecs.None when empty.
func (s *State) RoomHead(room uint8) ecs.Index {
	if !ValidRoom(room) {
		return ecs.None
	}
	return s.roomHead[room]
}

// RoomHeads exposes the list heads for snapshots.
func (s *State) RoomHeads() *[data.RoomCount]ecs.Index { return &s.roomHead }

// RestoreLinks rebuilds the membership index after a snapshot restore wrote
// Live and the room heads directly.
func (s *State) RestoreLinks() {
	for i := range s.linked {
		s.linked[i] = RoomNone
	}
	for r := range s.roomHead {
		for cur := s.roomHead[r]; cur != ecs.None; cur = s.Live[cur].NextInRoom {
			s.linked[cur] = uint8(r)
		}
	}
}

// EachInRoom calls fn for every resident of room, newest link first. fn must
// not relink entities.
func (s *State) EachInRoom(room uint8, fn func(e *Live)) {
	for cur := s.RoomHead(room); cur != ecs.None; cur = s.Live[cur].NextInRoom {
		fn(&s.Live[cur])
	}
}

// InRoomList reports whether idx is linked into room's list.
func (s *State) InRoomList(idx ecs.Index, room uint8) bool {
	return ValidRoom(room) && s.linked[idx] == room
}

// Kill makes idx fully inert: dead room, inactive, unlinked and purged from
// every registered index. Idempotent.
func (s *State) Kill(idx ecs.Index) {
	e := &s.Live[idx]
	e.Room = RoomDead
	s.Deactivate(idx)
	s.UnlinkFromRoom(idx)
	e.CollisionSlot = NoLink
	s.Registry.RemoveAll(idx)
}

// Player returns slot 0.
func (s *State) Player() *Live { return &s.Live[0] }
