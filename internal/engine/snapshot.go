package engine

import (
	"fmt"

	"github.com/pgesim/engine/internal/collision"
	"github.com/pgesim/engine/internal/core/ecs"
	"github.com/pgesim/engine/internal/core/fault"
	"github.com/pgesim/engine/internal/data"
	"github.com/pgesim/engine/internal/group"
	"github.com/pgesim/engine/internal/savestate"
	"github.com/pgesim/engine/internal/vm"
	"github.com/pgesim/engine/internal/world"
)

// SnapshotTag opens every snapshot.
const SnapshotTag = "PGS1"

// Snapshot dumps the whole simulation state between two ticks.
func (e *Engine) Snapshot() []byte {
	s := e.State
	w := savestate.NewWriterWithTag(SnapshotTag)
	w.WriteS(fmt.Sprintf("%s tick %d", e.level.Name, e.tick))

	w.WriteQ(e.tick)
	w.WriteDU(e.Rand.Seed)
	w.WriteDU(s.Score)
	w.WriteC(s.CurrentRoom)
	w.WriteD(int32(s.CurrentLevel))
	w.WriteC(s.Skill)
	w.WriteH(uint16(s.Count))
	w.WriteD(int32(s.DeathCounter))
	w.WriteH(s.DeathCutscene)
	w.WriteH(s.Text)
	w.WriteBool(s.LoadMap)
	w.WriteC(s.Blinking)
	w.WriteC(e.lastLR)
	w.WriteH(e.scratch.CompareVar1)
	w.WriteH(e.scratch.CompareVar2)
	w.WriteH(e.scratch.TempVar1)
	w.WriteH(e.scratch.TempVar2)
	w.WriteBool(e.scratch.ProcessOBJ)

	for i := range s.Live {
		writeLive(w, &s.Live[i])
	}
	for _, h := range s.RoomHeads() {
		w.WriteH(uint16(h))
	}
	for _, a := range s.ActiveTable() {
		w.WriteBool(a)
	}

	entries, heads, free := e.Groups.Raw()
	for _, g := range entries {
		w.WriteH(uint16(g.Source))
		w.WriteH(g.Tag)
		w.WriteD(int32(g.Next))
	}
	for _, h := range heads {
		w.WriteD(int32(h))
	}
	w.WriteD(int32(*free))

	f := e.Grid.Frame()
	w.WriteH(uint16(len(f.Slots)))
	for _, sl := range f.Slots {
		w.WriteH(uint16(sl.Key))
		w.WriteH(uint16(sl.Entity))
		w.WriteH(sl.Prev)
		w.WriteH(sl.NextBucket)
	}
	w.WriteH(uint16(len(f.Heads)))
	for i := range f.Heads {
		w.WriteH(f.Heads[i])
		w.WriteH(uint16(f.Keys[i]))
	}
	w.WriteBytes(f.Cache[:])
	w.WriteC(byte(f.LeftRoom))
	w.WriteC(byte(f.RightRoom))

	cells := e.Grid.Cells()
	w.WriteD(int32(len(cells)))
	w.WriteBytes(int8Bytes(cells))
	patches := e.Grid.Patches()
	w.WriteH(uint16(len(patches)))
	for _, p := range patches {
		w.WriteD(int32(p.Origin))
		w.WriteC(byte(len(p.Saved)))
		w.WriteBytes(int8Bytes(p.Saved))
	}
	return w.Bytes()
}

// Digest fingerprints the current state.
func (e *Engine) Digest() savestate.Digest {
	return savestate.Sum(e.Snapshot())
}

// SnapshotLabel reads the human-readable label of a snapshot.
func SnapshotLabel(raw []byte) (string, error) {
	r := savestate.NewReader(raw)
	if err := r.ExpectTag(SnapshotTag); err != nil {
		return "", fault.Corrupt("label", "%v", err)
	}
	label := r.ReadS()
	return label, r.Err()
}

func writeLive(w *savestate.Writer, l *world.Live) {
	w.WriteH(uint16(l.Index))
	w.WriteH(l.ObjType)
	w.WriteH(uint16(l.PosX))
	w.WriteH(uint16(l.PosY))
	w.WriteC(l.AnimSeq)
	w.WriteC(l.Room)
	w.WriteH(uint16(l.Life))
	w.WriteH(uint16(l.CounterValue))
	w.WriteC(l.CollisionSlot)
	w.WriteC(l.NextInventory)
	w.WriteC(l.CurrentInventory)
	w.WriteC(l.Owner)
	w.WriteH(l.AnimNumber)
	w.WriteC(l.Flags)
	w.WriteH(l.FirstObj)
	w.WriteH(uint16(l.NextInRoom))
}

func readLive(r *savestate.Reader) world.Live {
	return world.Live{
		Index:            ecs.Index(r.ReadH()),
		ObjType:          r.ReadH(),
		PosX:             int16(r.ReadH()),
		PosY:             int16(r.ReadH()),
		AnimSeq:          r.ReadC(),
		Room:             r.ReadC(),
		Life:             int16(r.ReadH()),
		CounterValue:     int16(r.ReadH()),
		CollisionSlot:    r.ReadC(),
		NextInventory:    r.ReadC(),
		CurrentInventory: r.ReadC(),
		Owner:            r.ReadC(),
		AnimNumber:       r.ReadH(),
		Flags:            r.ReadC(),
		FirstObj:         r.ReadH(),
		NextInRoom:       ecs.Index(r.ReadH()),
	}
}

// image is a decoded snapshot, checked before any of it is applied.
type image struct {
	tick          uint64
	seed          uint32
	score         uint32
	room          uint8
	level         int
	skill         uint8
	count         int
	deathCounter  int
	deathCutscene uint16
	text          uint16
	loadMap       bool
	blinking      uint8
	lastLR        uint8
	scratch       vm.Scratch

	live   [ecs.Capacity]world.Live
	heads  [data.RoomCount]ecs.Index
	active [ecs.Capacity]bool

	groups     [group.PoolSize]group.Entry
	groupHeads [ecs.Capacity]int
	groupFree  int

	frame   collision.Frame
	cells   []int8
	patches []collision.Patch
}

func decode(raw []byte) (*image, error) {
	r := savestate.NewReader(raw)
	if err := r.ExpectTag(SnapshotTag); err != nil {
		return nil, fault.Corrupt("restore", "%v", err)
	}
	r.ReadS()

	im := &image{
		tick:          r.ReadQ(),
		seed:          r.ReadDU(),
		score:         r.ReadDU(),
		room:          r.ReadC(),
		level:         int(r.ReadD()),
		skill:         r.ReadC(),
		count:         int(r.ReadH()),
		deathCounter:  int(r.ReadD()),
		deathCutscene: r.ReadH(),
		text:          r.ReadH(),
		loadMap:       r.ReadBool(),
		blinking:      r.ReadC(),
		lastLR:        r.ReadC(),
	}
	im.scratch = vm.Scratch{
		CompareVar1: r.ReadH(),
		CompareVar2: r.ReadH(),
		TempVar1:    r.ReadH(),
		TempVar2:    r.ReadH(),
		ProcessOBJ:  r.ReadBool(),
	}
	for i := range im.live {
		im.live[i] = readLive(r)
	}
	for i := range im.heads {
		im.heads[i] = ecs.Index(r.ReadH())
	}
	for i := range im.active {
		im.active[i] = r.ReadBool()
	}

	for i := range im.groups {
		im.groups[i] = group.Entry{Source: ecs.Index(r.ReadH()), Tag: r.ReadH(), Next: int(r.ReadD())}
	}
	for i := range im.groupHeads {
		im.groupHeads[i] = int(r.ReadD())
	}
	im.groupFree = int(r.ReadD())

	im.frame.Slots = make([]collision.Slot, r.ReadH())
	for i := range im.frame.Slots {
		im.frame.Slots[i] = collision.Slot{
			Key:        collision.Key(r.ReadH()),
			Entity:     ecs.Index(r.ReadH()),
			Prev:       r.ReadH(),
			NextBucket: r.ReadH(),
		}
	}
	n := int(r.ReadH())
	im.frame.Heads = make([]uint16, n)
	im.frame.Keys = make([]collision.Key, n)
	for i := 0; i < n; i++ {
		im.frame.Heads[i] = r.ReadH()
		im.frame.Keys[i] = collision.Key(r.ReadH())
	}
	copy(im.frame.Cache[:], r.ReadBytes(collision.CacheSize))
	im.frame.LeftRoom = int8(r.ReadC())
	im.frame.RightRoom = int8(r.ReadC())

	im.cells = bytesInt8(r.ReadBytes(int(r.ReadD())))
	im.patches = make([]collision.Patch, r.ReadH())
	for i := range im.patches {
		origin := int(r.ReadD())
		im.patches[i] = collision.Patch{Origin: origin, Saved: bytesInt8(r.ReadBytes(int(r.ReadC())))}
	}

	if err := r.Err(); err != nil {
		return nil, fault.Corrupt("restore", "%v", err)
	}
	if r.Remaining() != 0 {
		return nil, fault.Corrupt("restore", "%d trailing bytes", r.Remaining())
	}
	return im, im.check()
}

// check rejects links that would send the store or the pools out of range,
// and lists that loop or share nodes.
func (im *image) check() error {
	link := func(i, limit int) bool { return i == group.Nil || (i >= 0 && i < limit) }
	if !link(im.groupFree, group.PoolSize) {
		return fault.Corrupt("restore", "group free list %d", im.groupFree)
	}
	for i, g := range im.groups {
		if !link(g.Next, group.PoolSize) {
			return fault.Corrupt("restore", "group entry %d links to %d", i, g.Next)
		}
	}
	for i, h := range im.groupHeads {
		if !link(h, group.PoolSize) {
			return fault.Corrupt("restore", "group chain of %d starts at %d", i, h)
		}
	}
	for r, h := range im.heads {
		if h != ecs.None && int(h) >= im.count {
			return fault.Corrupt("restore", "room %d list starts at %d of %d", r, h, im.count)
		}
	}
	for i := range im.live {
		if n := im.live[i].NextInRoom; n != ecs.None && int(n) >= im.count {
			return fault.Corrupt("restore", "entity %d links to %d of %d", i, n, im.count)
		}
	}
	for i := 0; i < im.count; i++ {
		if im.live[i].Index != ecs.Index(i) {
			return fault.Corrupt("restore", "record %d carries index %d", i, im.live[i].Index)
		}
	}

	// every entry is free or in exactly one chain
	inGroup := make([]bool, group.PoolSize)
	groupNext := func(id int) int { return im.groups[id].Next }
	if err := walkOnce(inGroup, im.groupFree, group.Nil, groupNext); err != nil {
		return fault.Corrupt("restore", "group free list: %v", err)
	}
	for t, h := range im.groupHeads {
		if err := walkOnce(inGroup, h, group.Nil, groupNext); err != nil {
			return fault.Corrupt("restore", "group chain of %d: %v", t, err)
		}
	}

	// an entity sits in at most one room list
	inRoom := make([]bool, ecs.Capacity)
	for r, h := range im.heads {
		err := walkOnce(inRoom, int(h), int(ecs.None), func(i int) int { return int(im.live[i].NextInRoom) })
		if err != nil {
			return fault.Corrupt("restore", "room %d list: %v", r, err)
		}
	}

	// an item is carried by at most one owner
	carried := make([]bool, ecs.Capacity)
	for i := 0; i < im.count; i++ {
		err := walkOnce(carried, int(im.live[i].CurrentInventory), int(world.NoLink), func(n int) int {
			if n >= im.count {
				return -1
			}
			return int(im.live[n].NextInventory)
		})
		if err != nil {
			return fault.Corrupt("restore", "inventory of %d: %v", i, err)
		}
	}
	return nil
}

// walkOnce follows a list from head until end, marking nodes in seen. A node
// outside seen or already marked is an error.
func walkOnce(seen []bool, head, end int, next func(int) int) error {
	for id := head; id != end; id = next(id) {
		if id < 0 || id >= len(seen) {
			return fmt.Errorf("link to %d", id)
		}
		if seen[id] {
			return fmt.Errorf("node %d reached twice", id)
		}
		seen[id] = true
	}
	return nil
}

// Restore replaces the simulation state with a snapshot. A snapshot taken in
// another level loads that level first; the template count must match.
func (e *Engine) Restore(raw []byte) error {
	im, err := decode(raw)
	if err != nil {
		return err
	}
	if im.level != e.opts.Level || im.skill != e.opts.Skill {
		lvl, err := e.levels(im.level)
		if err != nil {
			return fmt.Errorf("restore level %d: %w", im.level, err)
		}
		if len(lvl.Templates) != im.count {
			return fault.Corrupt("restore", "snapshot has %d entities, level %d has %d", im.count, im.level, len(lvl.Templates))
		}
		e.opts.Level, e.opts.Skill = im.level, im.skill
		if err := e.load(lvl); err != nil {
			return err
		}
	}
	s := e.State
	if s.Count != im.count {
		return fault.Corrupt("restore", "snapshot has %d entities, level has %d", im.count, s.Count)
	}
	if err := e.Grid.SetFrame(im.frame); err != nil {
		return err
	}
	if err := e.Grid.SetTerrainState(im.cells, im.patches); err != nil {
		return err
	}

	e.tick = im.tick
	e.Rand.Seed = im.seed
	e.lastLR = im.lastLR
	e.scratch = im.scratch
	s.Score = im.score
	s.CurrentRoom = im.room
	s.CurrentLevel = im.level
	s.Skill = im.skill
	s.DeathCounter = im.deathCounter
	s.DeathCutscene = im.deathCutscene
	s.Text = im.text
	s.LoadMap = im.loadMap
	s.Blinking = im.blinking
	s.Live = im.live
	*s.RoomHeads() = im.heads
	*s.ActiveTable() = im.active
	s.RestoreLinks()

	entries, heads, free := e.Groups.Raw()
	*entries = im.groups
	*heads = im.groupHeads
	*free = im.groupFree

	e.Buffers.Reset()
	e.Buffers.Prepare(s)
	return nil
}

func int8Bytes(v []int8) []byte {
	b := make([]byte, len(v))
	for i, x := range v {
		b[i] = byte(x)
	}
	return b
}

func bytesInt8(b []byte) []int8 {
	v := make([]int8, len(b))
	for i, x := range b {
		v[i] = int8(x)
	}
	return v
}
